package shared

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.LatinAmericanSpanish)

// FormatMoney renders an amount with locale grouping, e.g. "$1.250.000".
func FormatMoney(amount decimal.Decimal) string {
	if amount.IsInteger() {
		return moneyPrinter.Sprintf("$%d", amount.IntPart())
	}
	f, _ := amount.Round(2).Float64()
	return moneyPrinter.Sprintf("$%.2f", f)
}

// Percent computes part/whole*100 rounded to two decimals; zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2)
}

// SumDecimals adds a list of amounts.
func SumDecimals(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
