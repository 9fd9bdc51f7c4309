package expenses

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/shared"
)

var hundred = decimal.NewFromInt(100)

// StatusFor classifies consumed against limit and the alert threshold. The
// comparison uses the exact ratio; only the displayed percentage is rounded.
func StatusFor(consumed, limit decimal.Decimal, alertPct int) BudgetStatus {
	used := consumed.Mul(hundred)
	switch {
	case used.GreaterThanOrEqual(limit.Mul(hundred)):
		return BudgetExceeded
	case used.GreaterThanOrEqual(limit.Mul(decimal.NewFromInt(int64(alertPct)))):
		return BudgetAlerting
	default:
		return BudgetNormal
	}
}

// Evaluate computes the usage of b given what has been consumed in its month.
func Evaluate(b Budget, consumed decimal.Decimal) BudgetUsage {
	return BudgetUsage{
		Budget:     b,
		Consumed:   consumed,
		Percentage: shared.Percent(consumed, b.Limit),
		Available:  b.Limit.Sub(consumed),
		Status:     StatusFor(consumed, b.Limit, b.AlertPct),
	}
}

// AlertFor returns the alert for u, or nil when the budget is within its threshold.
func AlertFor(u BudgetUsage) *BudgetAlert {
	if u.Status == BudgetNormal {
		return nil
	}
	msg := fmt.Sprintf("El presupuesto de %s va en %s%% (%s de %s)",
		u.CategoryName, u.Percentage.StringFixed(1), shared.FormatMoney(u.Consumed), shared.FormatMoney(u.Limit))
	if u.Status == BudgetExceeded {
		msg = fmt.Sprintf("Presupuesto de %s excedido: %s de %s",
			u.CategoryName, shared.FormatMoney(u.Consumed), shared.FormatMoney(u.Limit))
	}
	return &BudgetAlert{
		BudgetID:     u.ID,
		CategoryID:   u.CategoryID,
		CategoryName: u.CategoryName,
		Month:        u.Month,
		Year:         u.Year,
		Limit:        u.Limit,
		Consumed:     u.Consumed,
		Percentage:   u.Percentage,
		Status:       u.Status,
		Message:      msg,
	}
}
