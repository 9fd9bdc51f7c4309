package expenses

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	limit := decimal.NewFromInt(2_000_000)
	cases := []struct {
		consumed string
		alertPct int
		want     BudgetStatus
	}{
		{"0", 80, BudgetNormal},
		{"1599999.99", 80, BudgetNormal},
		{"1600000", 80, BudgetAlerting},
		{"1999999.99", 80, BudgetAlerting},
		{"2000000", 80, BudgetExceeded},
		{"2800000", 80, BudgetExceeded},
		{"1000000", 50, BudgetAlerting},
		{"1999999.99", 100, BudgetNormal},
		{"2000000", 100, BudgetExceeded},
	}
	for _, tc := range cases {
		got := StatusFor(decimal.RequireFromString(tc.consumed), limit, tc.alertPct)
		assert.Equal(t, tc.want, got, "consumed=%s alert=%d", tc.consumed, tc.alertPct)
	}
}

func TestEvaluateJustBelowThresholds(t *testing.T) {
	b := Budget{ID: 4, CategoryName: "Insumos", Limit: dec(2_000_000), AlertPct: 80}

	u := Evaluate(b, decimal.RequireFromString("1599999.99"))
	assert.Equal(t, BudgetNormal, u.Status)
	assert.True(t, u.Percentage.Equal(decimal.NewFromInt(80)), "displayed percentage is still rounded")
	assert.Nil(t, AlertFor(u))

	u = Evaluate(b, decimal.RequireFromString("1999999.99"))
	assert.Equal(t, BudgetAlerting, u.Status)
	alert := AlertFor(u)
	require.NotNil(t, alert)
	assert.NotContains(t, alert.Message, "excedido")
}

func TestEvaluateAndAlert(t *testing.T) {
	b := Budget{ID: 7, CategoryID: 1, CategoryName: "Servicios Públicos", Limit: dec(400_000), AlertPct: 80, Month: 3, Year: 2025}

	u := Evaluate(b, dec(100_000))
	assert.Equal(t, BudgetNormal, u.Status)
	assert.True(t, u.Available.Equal(dec(300_000)))
	assert.Nil(t, AlertFor(u))

	u = Evaluate(b, dec(330_000))
	alert := AlertFor(u)
	require.NotNil(t, alert)
	assert.Equal(t, BudgetAlerting, alert.Status)
	assert.True(t, alert.Percentage.Equal(decimal.RequireFromString("82.5")))
	assert.Contains(t, alert.Message, "Servicios Públicos")
	assert.Contains(t, alert.Message, "82.5%")

	alert = AlertFor(Evaluate(b, dec(450_000)))
	require.NotNil(t, alert)
	assert.Equal(t, BudgetExceeded, alert.Status)
	assert.Contains(t, alert.Message, "excedido")
	assert.Equal(t, int64(7), alert.BudgetID)
}
