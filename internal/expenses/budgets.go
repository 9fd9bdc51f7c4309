package expenses

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/shared"
)

// CreateBudget opens a monthly budget for a category. Only one active budget may
// exist per category and month.
func (s *Service) CreateBudget(ctx context.Context, req BudgetRequest) (Budget, error) {
	if !req.Limit.IsPositive() {
		return Budget{}, ErrInvalidLimit
	}
	if req.Month < 1 || req.Month > 12 || req.Year < 2000 {
		return Budget{}, ErrInvalidPeriod
	}
	alertPct := req.AlertPct
	if alertPct == 0 {
		alertPct = DefaultAlertPct
	}
	if alertPct < 1 || alertPct > 100 {
		return Budget{}, ErrInvalidAlertPct
	}
	cat, err := s.repo.GetCategory(ctx, req.CategoryID)
	if err != nil {
		return Budget{}, err
	}
	b := Budget{
		CategoryID:    cat.ID,
		CategoryName:  cat.Name,
		CategoryColor: cat.Color,
		Limit:         req.Limit,
		Period:        PeriodMonthly,
		Month:         req.Month,
		Year:          req.Year,
		Active:        true,
		AlertPct:      alertPct,
		CreatedAt:     s.now(),
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.ListBudgets(ctx, b.Month, b.Year)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if e.CategoryID == b.CategoryID {
				return ErrBudgetExists
			}
		}
		id, err := tx.InsertBudget(ctx, b)
		if err != nil {
			return err
		}
		b.ID = id
		return nil
	})
	if err != nil {
		return Budget{}, err
	}
	s.logger.Info("budget created",
		slog.Int64("budget_id", b.ID),
		slog.String("category", b.CategoryName),
		slog.Int("month", b.Month),
		slog.Int("year", b.Year))
	return b, nil
}

// UpdateBudget changes the limit and alert threshold of an active budget.
func (s *Service) UpdateBudget(ctx context.Context, id int64, req BudgetUpdateRequest) (Budget, error) {
	if !req.Limit.IsPositive() {
		return Budget{}, ErrInvalidLimit
	}
	b, err := s.repo.GetBudget(ctx, id)
	if err != nil {
		return Budget{}, err
	}
	if !b.Active {
		return Budget{}, ErrBudgetInactive
	}
	if req.AlertPct != 0 {
		if req.AlertPct < 1 || req.AlertPct > 100 {
			return Budget{}, ErrInvalidAlertPct
		}
		b.AlertPct = req.AlertPct
	}
	b.Limit = req.Limit
	if err := s.repo.UpdateBudget(ctx, b); err != nil {
		return Budget{}, err
	}
	return b, nil
}

// DeactivateBudget retires a budget; its category can then be budgeted again.
func (s *Service) DeactivateBudget(ctx context.Context, id int64) error {
	b, err := s.repo.GetBudget(ctx, id)
	if err != nil {
		return err
	}
	if !b.Active {
		return ErrBudgetInactive
	}
	b.Active = false
	return s.repo.UpdateBudget(ctx, b)
}

// BudgetOverview reports consumption of every active budget of a month. A zero
// month or year selects the current one.
func (s *Service) BudgetOverview(ctx context.Context, month, year int) (BudgetOverview, error) {
	now := s.localNow()
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	if month < 1 || month > 12 {
		return BudgetOverview{}, ErrInvalidPeriod
	}
	budgets, err := s.repo.ListBudgets(ctx, month, year)
	if err != nil {
		return BudgetOverview{}, err
	}
	consumed, err := s.repo.Consumption(ctx, shared.MonthWindow(year, time.Month(month), s.cfg.Location), nil)
	if err != nil {
		return BudgetOverview{}, err
	}
	out := BudgetOverview{
		Month:          month,
		Year:           year,
		Budgets:        make([]BudgetUsage, 0, len(budgets)),
		TotalLimit:     decimal.Zero,
		TotalConsumed:  decimal.Zero,
		TotalAvailable: decimal.Zero,
	}
	for _, b := range budgets {
		c, ok := consumed[b.CategoryID]
		if !ok {
			c = decimal.Zero
		}
		u := Evaluate(b, c)
		out.Budgets = append(out.Budgets, u)
		out.TotalLimit = out.TotalLimit.Add(b.Limit)
		out.TotalConsumed = out.TotalConsumed.Add(c)
		switch u.Status {
		case BudgetAlerting:
			out.Alerts++
		case BudgetExceeded:
			out.Exceeded++
		}
	}
	out.TotalAvailable = out.TotalLimit.Sub(out.TotalConsumed)
	return out, nil
}

// CopyBudgetsToNextMonth rolls the active budgets of the current month into the
// next one. It refuses when the next month already has budgets.
func (s *Service) CopyBudgetsToNextMonth(ctx context.Context) (CopyResult, error) {
	now := s.localNow()
	year, month := now.Year(), now.Month()
	nextYear, nextMonth := shared.NextMonth(year, month)
	res := CopyResult{Month: int(nextMonth), Year: nextYear}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		target, err := tx.ListBudgets(ctx, res.Month, res.Year)
		if err != nil {
			return err
		}
		if len(target) > 0 {
			return ErrTargetHasBudgets
		}
		current, err := tx.ListBudgets(ctx, int(month), year)
		if err != nil {
			return err
		}
		if len(current) == 0 {
			return ErrNothingToCopy
		}
		for _, b := range current {
			b.Month, b.Year = res.Month, res.Year
			b.CreatedAt = now
			if _, err := tx.InsertBudget(ctx, b); err != nil {
				return err
			}
			res.Copied++
		}
		return nil
	})
	if err != nil {
		return CopyResult{}, err
	}
	s.logger.Info("budgets copied", slog.Int("copied", res.Copied), slog.Int("month", res.Month), slog.Int("year", res.Year))
	return res, nil
}
