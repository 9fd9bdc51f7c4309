package reports

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/comanda-pos/comanda/internal/shared"
)

const dateLayout = "2006-01-02"

// Cache stores built reports under versioned keys.
type Cache interface {
	Key(ctx context.Context, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
}

// Config carries the reporting parameters.
type Config struct {
	CutoffHour int
	Location   *time.Location
}

// Service builds financial reports and the dashboard.
type Service struct {
	repo    Repository
	cache   Cache
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
	flight  singleflight.Group
	printer *message.Printer
}

// NewService constructs a Service. A nil cache builds every report on demand.
func NewService(repo Repository, cache Cache, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Service{
		repo:    repo,
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		printer: message.NewPrinter(language.LatinAmericanSpanish),
	}
}

func (s *Service) bucket() DayBucket {
	return DayBucket{TimeZone: s.cfg.Location.String(), CutoffHour: s.cfg.CutoffHour}
}

// businessDate is the calendar date of the business day containing t.
func (s *Service) businessDate(t time.Time) time.Time {
	return shared.Today(shared.BusinessDayStart(t.In(s.cfg.Location), s.cfg.CutoffHour))
}

// Financial reports income against expenses for the business days from..to
// inclusive. Zero bounds default to the current month up to today.
func (s *Service) Financial(ctx context.Context, from, to time.Time) (Financial, error) {
	today := s.businessDate(s.now())
	if to.IsZero() {
		to = today
	}
	if from.IsZero() {
		from = time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, s.cfg.Location)
	}
	from, to = shared.Today(from.In(s.cfg.Location)), shared.Today(to.In(s.cfg.Location))
	if to.Before(from) || int(to.Sub(from).Hours()/24) >= MaxRangeDays {
		return Financial{}, ErrInvalidRange
	}

	if s.cache == nil {
		return s.buildFinancial(ctx, from, to)
	}
	key, err := s.cache.Key(ctx, "financial", from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return Financial{}, err
	}
	v, err, dup := s.deduplicate(ctx, key, func(ctx context.Context) (any, error) {
		var out Financial
		err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			return s.buildFinancial(ctx, from, to)
		})
		return out, err
	})
	if err != nil {
		return Financial{}, err
	}
	if dup {
		s.logger.Debug("financial report shared", slog.String("key", key))
	}
	return v.(Financial), nil
}

func (s *Service) deduplicate(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error, bool) {
	ch := s.flight.DoChan(key, func() (any, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-ch:
		return res.Val, res.Err, res.Shared
	}
}

func (s *Service) buildFinancial(ctx context.Context, from, to time.Time) (Financial, error) {
	window := shared.DateRange(from, to, s.cfg.CutoffHour)
	var (
		income, spent []DayAmount
		categories    []CategoryTotal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		income, err = s.repo.DailyIncome(gctx, window, s.bucket())
		return err
	})
	g.Go(func() error {
		var err error
		spent, err = s.repo.DailyExpenses(gctx, window, s.bucket())
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = s.repo.ExpensesByCategory(gctx, window)
		return err
	})
	if err := g.Wait(); err != nil {
		return Financial{}, err
	}

	out := Financial{
		From:        from,
		To:          to,
		Income:      decimal.Zero,
		Expenses:    decimal.Zero,
		ByCategory:  categories,
		GeneratedAt: s.now(),
	}
	if out.ByCategory == nil {
		out.ByCategory = []CategoryTotal{}
	}
	incomeByDay := s.indexDays(income)
	spentByDay := s.indexDays(spent)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		in, ex := incomeByDay[key], spentByDay[key]
		out.Income = out.Income.Add(in.Amount)
		out.Expenses = out.Expenses.Add(ex.Amount)
		out.InvoiceCount += in.Count
		out.ExpenseCount += ex.Count
		out.Daily = append(out.Daily, DayPoint{
			Day:      d,
			Income:   in.Amount,
			Expenses: ex.Amount,
			Profit:   in.Amount.Sub(ex.Amount),
		})
	}
	out.Profit = out.Income.Sub(out.Expenses)
	out.MarginPct = shared.Percent(out.Profit, out.Income)
	out.Summary = Summary{
		Income:   shared.FormatMoney(out.Income),
		Expenses: shared.FormatMoney(out.Expenses),
		Profit:   shared.FormatMoney(out.Profit),
		Margin:   s.printer.Sprintf("%.1f%%", out.MarginPct.InexactFloat64()),
		Invoices: s.printer.Sprintf("%d facturas", out.InvoiceCount),
	}
	s.logger.Info("financial report built",
		slog.String("from", from.Format(dateLayout)),
		slog.String("to", to.Format(dateLayout)),
		slog.Int("invoices", out.InvoiceCount))
	return out, nil
}

// indexDays keys aggregates by calendar date.
func (s *Service) indexDays(days []DayAmount) map[string]DayAmount {
	out := make(map[string]DayAmount, len(days))
	for _, d := range days {
		out[d.Day.Format(dateLayout)] = d
	}
	return out
}

// Dashboard returns live counters for the current business day. It is never cached.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	now := s.now().In(s.cfg.Location)
	window := shared.BusinessDay(now, s.cfg.CutoffHour)
	out := Dashboard{Day: shared.Today(window.Start), Sales: decimal.Zero, Expenses: decimal.Zero}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		days, err := s.repo.DailyIncome(gctx, window, s.bucket())
		for _, d := range days {
			out.Sales = out.Sales.Add(d.Amount)
			out.InvoiceCount += d.Count
		}
		return err
	})
	g.Go(func() error {
		days, err := s.repo.DailyExpenses(gctx, window, s.bucket())
		for _, d := range days {
			out.Expenses = out.Expenses.Add(d.Amount)
		}
		return err
	})
	g.Go(func() error {
		var err error
		out.OpenTables, err = s.repo.OpenTables(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.PendingKitchen, err = s.repo.PendingKitchenOrders(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.ActiveDeliveries, err = s.repo.ActiveDeliveries(gctx, window)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	out.SalesLabel = shared.FormatMoney(out.Sales)
	return out, nil
}

// Warmup pre-builds the month-to-date financial report.
func (s *Service) Warmup(ctx context.Context) error {
	_, err := s.Financial(ctx, time.Time{}, time.Time{})
	return err
}
