package expenses

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/menu"
	"github.com/comanda-pos/comanda/internal/shared"
)

// MenuCatalog resolves the menu items staff consume.
type MenuCatalog interface {
	Item(ctx context.Context, id int64) (menu.Item, error)
}

// AlertQueue hands budget alerts to the background worker.
type AlertQueue interface {
	BudgetAlert(ctx context.Context, alert BudgetAlert) error
}

// Recorder receives budget counters.
type Recorder interface {
	BudgetAlert(status string)
}

// CacheBumper invalidates cached reports that read expense totals.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// Config carries the expense parameters.
type Config struct {
	CutoffHour int
	Location   *time.Location
}

// Service orchestrates expenses, payables, budgets and staff meals.
type Service struct {
	repo    Repository
	catalog MenuCatalog
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
	alerts  AlertQueue
	metrics Recorder
	cache   CacheBumper
	audit   shared.AuditRecorder
}

// NewService constructs a Service.
func NewService(repo Repository, catalog MenuCatalog, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Service{repo: repo, catalog: catalog, cfg: cfg, logger: logger, now: time.Now}
}

// SetAudit sets the audit trail for destructive operations.
func (s *Service) SetAudit(a shared.AuditRecorder) { s.audit = a }

// SetAlertQueue sets where budget alerts are enqueued.
func (s *Service) SetAlertQueue(q AlertQueue) { s.alerts = q }

// SetMetrics sets the counters recorder.
func (s *Service) SetMetrics(m Recorder) { s.metrics = m }

// SetCache sets the report cache invalidated on expense changes.
func (s *Service) SetCache(c CacheBumper) { s.cache = c }

func (s *Service) localNow() time.Time {
	return s.now().In(s.cfg.Location)
}

func (s *Service) today() time.Time {
	return shared.Today(s.localNow())
}

func (s *Service) bump(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump failed", slog.Any("error", err))
	}
}

func (s *Service) dateOnly(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	local := t.In(s.cfg.Location)
	d := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.cfg.Location)
	return &d
}

// apply copies the editable fields of req onto e after validating them.
func (s *Service) apply(ctx context.Context, e *Expense, req ExpenseRequest) error {
	concept := strings.TrimSpace(req.Concept)
	if concept == "" {
		return ErrConceptRequired
	}
	if !req.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		method = MethodCash
	}
	if !validMethod(method) {
		return ErrInvalidMethod
	}
	if e.CategoryID != req.CategoryID {
		cat, err := s.repo.GetCategory(ctx, req.CategoryID)
		if err != nil {
			return err
		}
		if !cat.Active {
			return ErrCategoryInactive
		}
		e.CategoryName, e.CategoryColor = cat.Name, cat.Color
	}
	e.ProviderName = ""
	if req.ProviderID != nil {
		p, err := s.repo.GetProvider(ctx, *req.ProviderID)
		if err != nil {
			return err
		}
		if !p.Active && (e.ProviderID == nil || *e.ProviderID != p.ID) {
			return ErrProviderInactive
		}
		e.ProviderName = p.Name
	}
	e.Concept = concept
	e.Amount = req.Amount
	e.CategoryID = req.CategoryID
	e.ProviderID = req.ProviderID
	e.PaymentMethod = method
	e.InvoiceNumber = strings.TrimSpace(req.InvoiceNumber)
	e.Notes = strings.TrimSpace(req.Notes)
	if req.SpentAt != nil && !req.SpentAt.IsZero() {
		e.SpentAt = *req.SpentAt
	}
	return nil
}

// RecordExpense stores an expense and evaluates the category budget for its month.
// A budget alert is reported alongside the expense and never rejects it.
func (s *Service) RecordExpense(ctx context.Context, actor shared.Actor, req ExpenseRequest) (Recorded, error) {
	now := s.now()
	e := Expense{SpentAt: now}
	if err := s.apply(ctx, &e, req); err != nil {
		return Recorded{}, err
	}
	status := req.PaymentStatus
	if status == "" {
		status = StatusPaid
	}
	switch status {
	case StatusPaid:
		e.PaidAt = &now
	case StatusPending:
		e.DueDate = s.dateOnly(req.DueDate)
	default:
		return Recorded{}, ErrInvalidStatus
	}
	e.PaymentStatus = status
	if actor.UserID != 0 {
		uid := actor.UserID
		e.UserID = &uid
	}

	id, err := s.repo.InsertExpense(ctx, e)
	if err != nil {
		return Recorded{}, err
	}
	e.ID = id
	s.logger.Info("expense recorded",
		slog.Int64("expense_id", id),
		slog.Int64("category_id", e.CategoryID),
		slog.String("amount", e.Amount.String()),
		slog.String("status", string(e.PaymentStatus)))
	s.bump(ctx)
	return Recorded{Expense: e, Alert: s.checkBudget(ctx, e)}, nil
}

// UpdateExpense edits an expense. Only its author or an administrator may do so.
func (s *Service) UpdateExpense(ctx context.Context, actor shared.Actor, id int64, req ExpenseRequest) (Recorded, error) {
	e, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return Recorded{}, err
	}
	owner := e.UserID != nil && *e.UserID == actor.UserID
	if !owner && actor.Role != shared.RoleAdmin {
		return Recorded{}, ErrNotOwner
	}
	if err := s.apply(ctx, &e, req); err != nil {
		return Recorded{}, err
	}
	if e.PaymentStatus != StatusPaid && req.DueDate != nil {
		e.DueDate = s.dateOnly(req.DueDate)
		e.PaymentStatus = s.dueStatus(*e.DueDate)
	}
	if err := s.repo.UpdateExpense(ctx, e); err != nil {
		return Recorded{}, err
	}
	s.bump(ctx)
	return Recorded{Expense: e, Alert: s.checkBudget(ctx, e)}, nil
}

// DeleteExpense removes an expense permanently.
func (s *Service) DeleteExpense(ctx context.Context, actor shared.Actor, id int64) error {
	e, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return err
	}
	s.logger.Info("expense deleted", slog.Int64("expense_id", id), slog.String("by", actor.Username))
	s.bump(ctx)
	if s.audit != nil {
		entry := shared.AuditLog{ActorID: actor.UserID, Action: "delete", Entity: "expense", EntityID: id, Meta: map[string]any{
			"concept": e.Concept,
			"amount":  e.Amount.StringFixed(2),
		}}
		if err := s.audit.Record(ctx, entry); err != nil {
			s.logger.Error("audit expense delete", slog.Int64("expense_id", id), slog.Any("error", err))
		}
	}
	return nil
}

// ApproveExpense marks an expense as reviewed by an administrator.
func (s *Service) ApproveExpense(ctx context.Context, actor shared.Actor, id int64) (Expense, error) {
	e, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if e.Approved {
		return Expense{}, ErrAlreadyApproved
	}
	now := s.now()
	uid := actor.UserID
	e.Approved, e.ApprovedAt, e.ApprovedBy = true, &now, &uid
	if err := s.repo.UpdateExpense(ctx, e); err != nil {
		return Expense{}, err
	}
	return e, nil
}

// Get returns one expense.
func (s *Service) Get(ctx context.Context, id int64) (Expense, error) {
	return s.repo.GetExpense(ctx, id)
}

// List returns the expenses of a business-day range with totals per category.
func (s *Service) List(ctx context.Context, f Filter) (Listing, error) {
	from, to := f.From, f.To
	switch {
	case from.IsZero() && to.IsZero():
		start := shared.BusinessDayStart(s.localNow(), s.cfg.CutoffHour)
		from, to = start, start
	case from.IsZero():
		from = to
	case to.IsZero():
		to = from
	}
	if to.Before(from) {
		from, to = to, from
	}
	window := shared.DateRange(from, to, s.cfg.CutoffHour)
	list, err := s.repo.ListExpenses(ctx, window, f.CategoryID)
	if err != nil {
		return Listing{}, err
	}
	out := Listing{From: shared.Today(from), To: shared.Today(to), Expenses: list, Total: decimal.Zero}
	idx := map[int64]int{}
	for _, e := range list {
		out.Total = out.Total.Add(e.Amount)
		i, ok := idx[e.CategoryID]
		if !ok {
			i = len(out.ByCategory)
			idx[e.CategoryID] = i
			out.ByCategory = append(out.ByCategory, CategoryTotal{
				CategoryID: e.CategoryID, Name: e.CategoryName, Color: e.CategoryColor, Total: decimal.Zero,
			})
		}
		out.ByCategory[i].Total = out.ByCategory[i].Total.Add(e.Amount)
		out.ByCategory[i].Count++
	}
	sort.SliceStable(out.ByCategory, func(i, j int) bool {
		return out.ByCategory[i].Total.GreaterThan(out.ByCategory[j].Total)
	})
	return out, nil
}

func (s *Service) dueStatus(due time.Time) PaymentStatus {
	if due.Before(s.today()) {
		return StatusOverdue
	}
	return StatusPending
}

// Payables flags overdue expenses and summarises what is still owed.
func (s *Service) Payables(ctx context.Context, f PayableFilter) (Payables, error) {
	swept, err := s.repo.SweepOverdue(ctx, s.today())
	if err != nil {
		return Payables{}, err
	}
	if swept > 0 {
		s.logger.Info("payables marked overdue", slog.Int64("count", swept))
	}
	statuses := []PaymentStatus{StatusPending, StatusOverdue}
	if f.Status != "" && f.Status != "todos" {
		if !f.Status.IsValid() {
			return Payables{}, ErrInvalidStatus
		}
		statuses = []PaymentStatus{f.Status}
	}
	list, err := s.repo.ListUnpaid(ctx, statuses, f.ProviderID)
	if err != nil {
		return Payables{}, err
	}
	out := Payables{
		Expenses:     list,
		TotalPending: decimal.Zero,
		TotalOverdue: decimal.Zero,
		Total:        decimal.Zero,
		Swept:        swept,
	}
	byProvider := map[int64]int{}
	for _, e := range list {
		switch e.PaymentStatus {
		case StatusPending:
			out.TotalPending = out.TotalPending.Add(e.Amount)
		case StatusOverdue:
			out.TotalOverdue = out.TotalOverdue.Add(e.Amount)
		}
		out.Total = out.Total.Add(e.Amount)

		var key int64
		name := "Sin proveedor"
		if e.ProviderID != nil {
			key, name = *e.ProviderID, e.ProviderName
		}
		i, ok := byProvider[key]
		if !ok {
			i = len(out.ByProvider)
			byProvider[key] = i
			out.ByProvider = append(out.ByProvider, ProviderBalance{ProviderID: e.ProviderID, Name: name, Total: decimal.Zero})
		}
		out.ByProvider[i].Total = out.ByProvider[i].Total.Add(e.Amount)
		out.ByProvider[i].Count++
	}
	sort.SliceStable(out.ByProvider, func(i, j int) bool {
		return out.ByProvider[i].Total.GreaterThan(out.ByProvider[j].Total)
	})
	return out, nil
}

// MarkExpensePaid settles a pending or overdue expense.
func (s *Service) MarkExpensePaid(ctx context.Context, id int64) (Expense, error) {
	e, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if e.PaymentStatus == StatusPaid {
		return Expense{}, ErrAlreadyPaid
	}
	now := s.now()
	e.PaymentStatus, e.PaidAt = StatusPaid, &now
	if err := s.repo.UpdateExpense(ctx, e); err != nil {
		return Expense{}, err
	}
	s.logger.Info("payable settled", slog.Int64("expense_id", id), slog.String("amount", e.Amount.String()))
	return e, nil
}

// SetDueDate reschedules an unpaid expense. Moving the date forward clears the
// overdue flag.
func (s *Service) SetDueDate(ctx context.Context, id int64, due time.Time) (Expense, error) {
	if due.IsZero() {
		return Expense{}, ErrDueDateRequired
	}
	e, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if e.PaymentStatus == StatusPaid {
		return Expense{}, ErrPaidDueDateChange
	}
	e.DueDate = s.dateOnly(&due)
	e.PaymentStatus = s.dueStatus(*e.DueDate)
	if err := s.repo.UpdateExpense(ctx, e); err != nil {
		return Expense{}, err
	}
	return e, nil
}

// checkBudget evaluates the active budget of the expense's category for the month the
// expense falls in. Failures are logged; they never undo the expense.
func (s *Service) checkBudget(ctx context.Context, e Expense) *BudgetAlert {
	local := e.SpentAt.In(s.cfg.Location)
	b, err := s.repo.ActiveBudget(ctx, e.CategoryID, int(local.Month()), local.Year())
	if err != nil {
		s.logger.Warn("budget lookup failed", slog.Int64("category_id", e.CategoryID), slog.Any("error", err))
		return nil
	}
	if b == nil {
		return nil
	}
	window := shared.MonthWindow(b.Year, time.Month(b.Month), s.cfg.Location)
	consumed, err := s.repo.Consumption(ctx, window, &b.CategoryID)
	if err != nil {
		s.logger.Warn("budget consumption failed", slog.Int64("budget_id", b.ID), slog.Any("error", err))
		return nil
	}
	alert := AlertFor(Evaluate(*b, consumed[b.CategoryID]))
	if alert == nil {
		return nil
	}
	s.logger.Warn("budget threshold reached",
		slog.Int64("budget_id", b.ID),
		slog.String("category", b.CategoryName),
		slog.String("percentage", alert.Percentage.String()),
		slog.String("status", string(alert.Status)))
	if s.metrics != nil {
		s.metrics.BudgetAlert(string(alert.Status))
	}
	if s.alerts != nil {
		if err := s.alerts.BudgetAlert(ctx, *alert); err != nil {
			s.logger.Warn("budget alert enqueue failed", slog.Int64("budget_id", b.ID), slog.Any("error", err))
		}
	}
	return alert
}
