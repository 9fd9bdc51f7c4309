package invoicing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/settings"
	"github.com/comanda-pos/comanda/internal/shared"
)

const (
	idempotencyModule = "invoicing"
	recentLimit       = 50
)

// ProfileSource supplies the restaurant profile printed on invoices.
type ProfileSource interface {
	Get(ctx context.Context) (settings.Profile, error)
}

// CacheBumper invalidates cached reports that read invoice totals.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// Recorder receives invoicing counters.
type Recorder interface {
	InvoiceIssued(origin string)
	InvoiceDeleted()
	PaymentRecorded(kind string)
}

// Config carries the invoicing parameters.
type Config struct {
	DueDays    int
	CutoffHour int
	Location   *time.Location
}

// Service is the invoicing engine.
type Service struct {
	repo        Repository
	cfg         Config
	logger      *slog.Logger
	now         func() time.Time
	profiles    ProfileSource
	reports     CacheBumper
	metrics     Recorder
	idempotency shared.IdempotencyGuard
	audit       shared.AuditRecorder
}

// NewService creates a new service.
func NewService(repo Repository, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.DueDays <= 0 {
		cfg.DueDays = 15
	}
	return &Service{repo: repo, cfg: cfg, logger: logger, now: time.Now}
}

// SetProfiles sets the restaurant profile source.
func (s *Service) SetProfiles(p ProfileSource) { s.profiles = p }

// SetReportCache sets the cache bumped when invoice totals change.
func (s *Service) SetReportCache(c CacheBumper) { s.reports = c }

// SetMetrics sets the counters recorder.
func (s *Service) SetMetrics(m Recorder) { s.metrics = m }

// SetIdempotency sets the guard used for client supplied request keys.
func (s *Service) SetIdempotency(g shared.IdempotencyGuard) { s.idempotency = g }

// SetAudit sets the audit trail for destructive operations.
func (s *Service) SetAudit(a shared.AuditRecorder) { s.audit = a }

func (s *Service) today() time.Time {
	return shared.Today(s.now().In(s.cfg.Location))
}

func (s *Service) parseDueDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation("2006-01-02", raw, s.cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDueDate, raw)
	}
	return &d, nil
}

func creationStatus(status PaymentStatus) (PaymentStatus, error) {
	switch status {
	case "":
		return StatusPaid, nil
	case StatusPaid, StatusPending:
		return status, nil
	default:
		return "", ErrInvalidStatus
	}
}

func checkBreakdown(method PaymentMethod, b *Breakdown, total decimal.Decimal) (*Breakdown, error) {
	if method != MethodMixed {
		return nil, nil
	}
	if b == nil {
		return nil, ErrBreakdownRequired
	}
	if !b.Sum().Equal(total) {
		return nil, fmt.Errorf("%w: %s of %s", ErrBreakdownMismatch, b.Sum().StringFixed(2), total.StringFixed(2))
	}
	return b, nil
}

// settle applies the payment status rules to a freshly computed invoice. A zero
// total cannot be owed, so it is always paid.
func (s *Service) settle(inv *Invoice, status PaymentStatus, due *time.Time, now time.Time) {
	if inv.Total.IsZero() {
		status = StatusPaid
	}
	inv.PaymentStatus = status
	if status == StatusPaid {
		inv.Outstanding = decimal.Zero
		inv.PaidAt = &now
		inv.DueDate = nil
		return
	}
	inv.Outstanding = inv.Total
	inv.PaidAt = nil
	if due == nil {
		d := s.today().AddDate(0, 0, s.cfg.DueDays)
		due = &d
	}
	inv.DueDate = due
}

func (s *Service) claim(ctx context.Context, key string) (release func(), err error) {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return func() {}, nil
	}
	if err := s.idempotency.Claim(ctx, idempotencyModule, key); err != nil {
		return nil, err
	}
	return func() {
		if err := s.idempotency.Release(context.WithoutCancel(ctx), idempotencyModule, key); err != nil {
			s.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", err))
		}
	}, nil
}

func actorID(actor shared.Actor) *int64 {
	if actor.UserID == 0 {
		return nil
	}
	id := actor.UserID
	return &id
}

// InvoiceSession settles an active session. The subtotal is recomputed from the
// orders, the number reserved, the invoice stored, the session closed and every
// order marked delivered and paid, all in one transaction.
func (s *Service) InvoiceSession(ctx context.Context, actor shared.Actor, sessionID int64, req SessionInvoiceRequest, key string) (Invoice, error) {
	if req.PaymentMethod == "" {
		req.PaymentMethod = MethodCash
	}
	if !req.PaymentMethod.IsValid() {
		return Invoice{}, ErrInvalidMethod
	}
	if req.Tip.IsNegative() {
		return Invoice{}, ErrNegativeTip
	}
	status, err := creationStatus(req.PaymentStatus)
	if err != nil {
		return Invoice{}, err
	}
	due, err := s.parseDueDate(req.DueDate)
	if err != nil {
		return Invoice{}, err
	}

	release, err := s.claim(ctx, key)
	if err != nil {
		return Invoice{}, err
	}

	var inv Invoice
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		active, err := tx.SessionForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if !active {
			return ErrSessionClosed
		}
		subtotal, err := tx.SessionSubtotal(ctx, sessionID)
		if err != nil {
			return err
		}
		now := s.now()
		inv = Invoice{
			SessionID:        &sessionID,
			IssuedAt:         now,
			Subtotal:         subtotal,
			Tax:              decimal.Zero,
			Tip:              req.Tip,
			Total:            subtotal.Add(req.Tip),
			PaymentMethod:    req.PaymentMethod,
			CustomerName:     strings.TrimSpace(req.CustomerName),
			CustomerDocument: strings.TrimSpace(req.CustomerDocument),
			Notes:            strings.TrimSpace(req.Notes),
			CreatedBy:        actorID(actor),
		}
		if inv.Breakdown, err = checkBreakdown(inv.PaymentMethod, req.Breakdown, inv.Total); err != nil {
			return err
		}
		s.settle(&inv, status, due, now)

		n, err := tx.NextNumber(ctx)
		if err != nil {
			return err
		}
		inv.Number = FormatNumber(n)
		if inv.ID, err = tx.Insert(ctx, inv); err != nil {
			return err
		}
		if err := tx.CloseSession(ctx, sessionID, inv.Total, now); err != nil {
			return err
		}
		return tx.SettleSessionOrders(ctx, sessionID, now)
	})
	if err != nil {
		release()
		return Invoice{}, err
	}
	s.issued(ctx, inv)
	return inv, nil
}

// InvoiceDelivery settles a delivery. The subtotal is the delivery subtotal plus
// its fee; the delivery is linked to the invoice and marked paid.
func (s *Service) InvoiceDelivery(ctx context.Context, actor shared.Actor, deliveryID int64, req DeliveryInvoiceRequest, key string) (Invoice, error) {
	if req.Tip.IsNegative() {
		return Invoice{}, ErrNegativeTip
	}
	status, err := creationStatus(req.PaymentStatus)
	if err != nil {
		return Invoice{}, err
	}
	due, err := s.parseDueDate(req.DueDate)
	if err != nil {
		return Invoice{}, err
	}

	release, err := s.claim(ctx, key)
	if err != nil {
		return Invoice{}, err
	}

	var inv Invoice
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		d, err := tx.DeliveryForUpdate(ctx, deliveryID)
		if err != nil {
			return err
		}
		if d.InvoiceID != nil {
			return ErrAlreadyInvoiced
		}
		if d.Cancelled {
			return ErrDeliveryCancelled
		}
		method := d.PaymentMethod
		if !method.IsValid() {
			method = MethodCash
		}
		now := s.now()
		subtotal := d.Subtotal.Add(d.Fee)
		inv = Invoice{
			DeliveryID:    &deliveryID,
			IssuedAt:      now,
			Subtotal:      subtotal,
			Tax:           decimal.Zero,
			Tip:           req.Tip,
			Total:         subtotal.Add(req.Tip),
			PaymentMethod: method,
			CustomerName:  d.CustomerName,
			Notes:         strings.TrimSpace(req.Notes),
			CreatedBy:     actorID(actor),
		}
		s.settle(&inv, status, due, now)

		n, err := tx.NextNumber(ctx)
		if err != nil {
			return err
		}
		inv.Number = FormatNumber(n)
		if inv.ID, err = tx.Insert(ctx, inv); err != nil {
			return err
		}
		return tx.LinkDelivery(ctx, deliveryID, inv.ID)
	})
	if err != nil {
		release()
		return Invoice{}, err
	}
	s.issued(ctx, inv)
	return inv, nil
}

func (s *Service) issued(ctx context.Context, inv Invoice) {
	if s.metrics != nil {
		s.metrics.InvoiceIssued(inv.Origin())
	}
	s.bumpReports(ctx)
	s.logger.Info("invoice issued",
		slog.Int64("invoice_id", inv.ID),
		slog.String("number", inv.Number),
		slog.String("origin", inv.Origin()),
		slog.String("total", inv.Total.StringFixed(2)),
		slog.String("status", string(inv.PaymentStatus)))
}

func (s *Service) bumpReports(ctx context.Context) {
	if s.reports == nil {
		return
	}
	if err := s.reports.Bump(ctx); err != nil {
		s.logger.Warn("bump report cache", slog.Any("error", err))
	}
}

// DeleteInvoice removes an invoice and reverses what issuing it did. A session is
// reopened with its orders back to pending and unpaid; a delivery loses its
// invoice link and paid flag but keeps its operational state.
func (s *Service) DeleteInvoice(ctx context.Context, id int64) (Invoice, error) {
	var inv Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		inv, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch {
		case inv.SessionID != nil:
			if _, err := tx.SessionForUpdate(ctx, *inv.SessionID); err != nil {
				return err
			}
			if err := tx.ReopenSession(ctx, *inv.SessionID, s.now()); err != nil {
				return err
			}
		case inv.DeliveryID != nil:
			if err := tx.UnlinkDelivery(ctx, *inv.DeliveryID); err != nil {
				return err
			}
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return Invoice{}, err
	}
	if s.metrics != nil {
		s.metrics.InvoiceDeleted()
	}
	s.bumpReports(ctx)
	if s.audit != nil {
		entry := shared.AuditLog{Action: "delete", Entity: "invoice", EntityID: id, Meta: map[string]any{
			"number": inv.Number,
			"total":  inv.Total.StringFixed(2),
		}}
		if err := s.audit.Record(ctx, entry); err != nil {
			s.logger.Error("audit invoice delete", slog.Int64("invoice_id", id), slog.Any("error", err))
		}
	}
	s.logger.Warn("invoice deleted",
		slog.Int64("invoice_id", id),
		slog.String("number", inv.Number),
		slog.String("total", inv.Total.StringFixed(2)))
	return inv, nil
}

// UpdateInvoice edits tip, customer data, notes and payment method. Totals are
// recomputed from the origin and the amount already collected is preserved.
func (s *Service) UpdateInvoice(ctx context.Context, id int64, req UpdateRequest) (Invoice, error) {
	if req.PaymentMethod != "" && !req.PaymentMethod.IsValid() {
		return Invoice{}, ErrInvalidMethod
	}
	if req.Tip.IsNegative() {
		return Invoice{}, ErrNegativeTip
	}
	due, err := s.parseDueDate(req.DueDate)
	if err != nil {
		return Invoice{}, err
	}

	var inv Invoice
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		inv, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		subtotal := inv.Subtotal
		switch {
		case inv.SessionID != nil:
			if subtotal, err = tx.SessionSubtotal(ctx, *inv.SessionID); err != nil {
				return err
			}
		case inv.DeliveryID != nil:
			d, err := tx.DeliveryForUpdate(ctx, *inv.DeliveryID)
			if err != nil {
				return err
			}
			subtotal = d.Subtotal.Add(d.Fee)
		}

		collected := inv.AmountPaid()
		if req.PaymentMethod != "" {
			inv.PaymentMethod = req.PaymentMethod
		}
		inv.Subtotal = subtotal
		inv.Tip = req.Tip
		inv.Total = subtotal.Add(inv.Tax).Add(req.Tip)
		inv.CustomerName = strings.TrimSpace(req.CustomerName)
		inv.CustomerDocument = strings.TrimSpace(req.CustomerDocument)
		inv.Notes = strings.TrimSpace(req.Notes)
		if inv.Breakdown, err = checkBreakdown(inv.PaymentMethod, req.Breakdown, inv.Total); err != nil {
			return err
		}
		if due != nil {
			inv.DueDate = due
		}
		s.rebalance(&inv, collected)
		return tx.Update(ctx, inv)
	})
	if err != nil {
		return Invoice{}, err
	}
	s.bumpReports(ctx)
	s.logger.Info("invoice updated", slog.Int64("invoice_id", id), slog.String("total", inv.Total.StringFixed(2)))
	return inv, nil
}

// rebalance recomputes outstanding and status after a total change.
func (s *Service) rebalance(inv *Invoice, collected decimal.Decimal) {
	now := s.now()
	inv.Outstanding = inv.Total.Sub(collected)
	if !inv.Outstanding.IsPositive() {
		inv.Outstanding = decimal.Zero
		inv.PaymentStatus = StatusPaid
		if inv.PaidAt == nil {
			inv.PaidAt = &now
		}
		return
	}
	inv.PaidAt = nil
	if inv.DueDate == nil {
		d := s.today().AddDate(0, 0, s.cfg.DueDays)
		inv.DueDate = &d
	}
	if inv.DueDate.Before(s.today()) {
		inv.PaymentStatus = StatusOverdue
	} else {
		inv.PaymentStatus = StatusPending
	}
}

// RecordPartialPayment subtracts amount from the outstanding balance. A zero
// amount settles the whole balance.
func (s *Service) RecordPartialPayment(ctx context.Context, id int64, amount decimal.Decimal) (Invoice, error) {
	if amount.IsNegative() {
		return Invoice{}, ErrInvalidAmount
	}
	var (
		inv  Invoice
		kind string
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		inv, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.PaymentStatus == StatusPaid {
			return ErrAlreadyPaid
		}
		if amount.IsZero() {
			amount = inv.Outstanding
		}
		if !amount.IsPositive() {
			return ErrInvalidAmount
		}
		if amount.GreaterThan(inv.Outstanding) {
			return fmt.Errorf("%w: %s > %s", ErrAmountExceeds, amount.StringFixed(2), inv.Outstanding.StringFixed(2))
		}
		inv.Outstanding = inv.Outstanding.Sub(amount)
		kind = "partial"
		if inv.Outstanding.IsZero() {
			now := s.now()
			inv.PaymentStatus = StatusPaid
			inv.PaidAt = &now
			kind = "full"
		}
		return tx.Update(ctx, inv)
	})
	if err != nil {
		return Invoice{}, err
	}
	if s.metrics != nil {
		s.metrics.PaymentRecorded(kind)
	}
	s.logger.Info("invoice payment recorded",
		slog.Int64("invoice_id", id),
		slog.String("amount", amount.StringFixed(2)),
		slog.String("outstanding", inv.Outstanding.StringFixed(2)))
	return inv, nil
}

// MarkPaid settles the full outstanding balance.
func (s *Service) MarkPaid(ctx context.Context, id int64) (Invoice, error) {
	return s.RecordPartialPayment(ctx, id, decimal.Zero)
}

// SweepOverdue flips pending invoices whose due date is before today. Running it
// again changes nothing.
func (s *Service) SweepOverdue(ctx context.Context) (int64, error) {
	n, err := s.repo.SweepOverdue(ctx, s.today())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("invoices marked overdue", slog.Int64("count", n))
	}
	return n, nil
}

// Receivables runs the overdue sweep and lists invoices by status. An empty
// filter lists everything still owed.
func (s *Service) Receivables(ctx context.Context, status string) (Receivables, error) {
	var statuses []PaymentStatus
	switch strings.TrimSpace(status) {
	case "", "todos":
		statuses = []PaymentStatus{StatusPending, StatusOverdue}
	default:
		st := PaymentStatus(status)
		if !st.IsValid() {
			return Receivables{}, ErrInvalidStatusQuery
		}
		statuses = []PaymentStatus{st}
	}

	if _, err := s.SweepOverdue(ctx); err != nil {
		return Receivables{}, err
	}
	invoices, err := s.repo.ListByStatus(ctx, statuses)
	if err != nil {
		return Receivables{}, err
	}
	return summarizeReceivables(invoices), nil
}

func summarizeReceivables(invoices []Invoice) Receivables {
	out := Receivables{
		Invoices:     invoices,
		TotalPending: decimal.Zero,
		TotalOverdue: decimal.Zero,
		ByCustomer:   []CustomerBalance{},
	}
	if out.Invoices == nil {
		out.Invoices = []Invoice{}
	}
	byCustomer := map[string]*CustomerBalance{}
	for _, inv := range invoices {
		switch inv.PaymentStatus {
		case StatusPending:
			out.TotalPending = out.TotalPending.Add(inv.Outstanding)
		case StatusOverdue:
			out.TotalOverdue = out.TotalOverdue.Add(inv.Outstanding)
		default:
			continue
		}
		if inv.CustomerName == "" {
			continue
		}
		cb, ok := byCustomer[inv.CustomerName]
		if !ok {
			cb = &CustomerBalance{Customer: inv.CustomerName, Total: decimal.Zero}
			byCustomer[inv.CustomerName] = cb
		}
		cb.Total = cb.Total.Add(inv.Outstanding)
		cb.Count++
	}
	for _, cb := range byCustomer {
		out.ByCustomer = append(out.ByCustomer, *cb)
	}
	sort.Slice(out.ByCustomer, func(i, j int) bool {
		if !out.ByCustomer[i].Total.Equal(out.ByCustomer[j].Total) {
			return out.ByCustomer[i].Total.GreaterThan(out.ByCustomer[j].Total)
		}
		return out.ByCustomer[i].Customer < out.ByCustomer[j].Customer
	})
	out.Total = out.TotalPending.Add(out.TotalOverdue)
	out.Summary = fmt.Sprintf("%s por cobrar (%s vencido)", shared.FormatMoney(out.Total), shared.FormatMoney(out.TotalOverdue))
	return out
}

// List returns invoices of a business day, or the most recent ones when day is zero.
func (s *Service) List(ctx context.Context, day time.Time) ([]Invoice, error) {
	if day.IsZero() {
		return s.repo.List(ctx, nil, recentLimit)
	}
	window := shared.DateRange(day, day, s.cfg.CutoffHour)
	return s.repo.List(ctx, &window, 0)
}

// Get returns an invoice with the restaurant profile.
func (s *Service) Get(ctx context.Context, id int64) (Detail, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	d := Detail{Invoice: inv}
	if s.profiles != nil {
		if d.Restaurant, err = s.profiles.Get(ctx); err != nil {
			return Detail{}, err
		}
	}
	return d, nil
}
