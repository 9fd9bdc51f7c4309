package shared

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	assert.True(t, Percent(decimal.NewFromInt(1700000), decimal.NewFromInt(2000000)).Equal(decimal.NewFromInt(85)))
	assert.True(t, Percent(decimal.NewFromInt(10), decimal.Zero).IsZero())
	assert.Equal(t, "33.33", Percent(decimal.NewFromInt(1), decimal.NewFromInt(3)).StringFixed(2))
}

func TestSumDecimals(t *testing.T) {
	total := SumDecimals(decimal.RequireFromString("10.50"), decimal.RequireFromString("2.25"))
	assert.Equal(t, "12.75", total.StringFixed(2))
	assert.True(t, SumDecimals().IsZero())
}

func TestFormatMoneyGroupsThousands(t *testing.T) {
	out := FormatMoney(decimal.NewFromInt(1250000))
	assert.Contains(t, out, "$")
	assert.NotEqual(t, "$1250000", out)
}
