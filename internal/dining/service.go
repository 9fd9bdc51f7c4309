package dining

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/menu"
	"github.com/comanda-pos/comanda/internal/shared"
)

// DefaultNotificationWindow is how far back the ready feed looks when the
// client sends no timestamp.
const DefaultNotificationWindow = 10 * time.Second

// MenuCatalog resolves menu items referenced by order lines.
type MenuCatalog interface {
	Item(ctx context.Context, id int64) (menu.Item, error)
}

// Service implements the session lifecycle and the order state machine.
type Service struct {
	repo       Repository
	catalog    MenuCatalog
	cutoffHour int
	logger     *slog.Logger
	now        func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, catalog MenuCatalog, cutoffHour int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, catalog: catalog, cutoffHour: cutoffHour, logger: logger, now: time.Now}
}

// OpenOrGetActiveSession returns the active session of a table, opening one when the
// table is idle. The table row lock serializes concurrent callers.
func (s *Service) OpenOrGetActiveSession(ctx context.Context, tableID int64) (Session, error) {
	var sess Session
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		sess, err = s.openOrGet(ctx, tx, tableID)
		return err
	})
	return sess, err
}

func (s *Service) openOrGet(ctx context.Context, tx TxRepository, tableID int64) (Session, error) {
	active, err := tx.LockTable(ctx, tableID)
	if err != nil {
		return Session{}, err
	}
	if !active {
		return Session{}, ErrTableInactive
	}
	existing, err := tx.ActiveSessionForUpdate(ctx, tableID)
	if err != nil {
		return Session{}, err
	}
	if existing != nil {
		return *existing, nil
	}
	sess, err := tx.InsertSession(ctx, tableID, s.now())
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("session opened", slog.Int64("session_id", sess.ID), slog.Int64("table_id", tableID))
	return sess, nil
}

// PlaceOrder adds order lines to the table's active session, opening it if needed.
func (s *Service) PlaceOrder(ctx context.Context, actor shared.Actor, req PlaceOrderRequest) (PlaceOrderResult, error) {
	lines, err := s.resolveLines(ctx, req.Items)
	if err != nil {
		return PlaceOrderResult{}, err
	}

	var result PlaceOrderResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sess, err := s.openOrGet(ctx, tx, req.TableID)
		if err != nil {
			return err
		}
		now := s.now()
		var createdBy *int64
		if actor.UserID != 0 {
			id := actor.UserID
			createdBy = &id
		}
		placed := make([]Order, 0, len(lines))
		for _, line := range lines {
			line.SessionID = sess.ID
			line.TableID = req.TableID
			line.State = StatePending
			line.CreatedBy = createdBy
			line.CreatedAt = now
			line.StateUpdatedByRole = actor.Role
			o, err := tx.InsertOrder(ctx, line)
			if err != nil {
				return err
			}
			placed = append(placed, o)
		}
		result = PlaceOrderResult{Session: sess, Orders: Views(placed)}
		return nil
	})
	if err != nil {
		return PlaceOrderResult{}, err
	}
	s.logger.Info("orders placed",
		slog.Int64("session_id", result.Session.ID),
		slog.Int("lines", len(result.Orders)),
		slog.String("role", string(actor.Role)))
	return result, nil
}

func (s *Service) resolveLines(ctx context.Context, items []OrderLineRequest) ([]Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	out := make([]Order, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		o := Order{
			MenuItemID:  it.MenuItemID,
			ProductName: strings.TrimSpace(it.ProductName),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Notes:       strings.TrimSpace(it.Notes),
		}
		if it.MenuItemID != nil && s.catalog != nil {
			item, err := s.catalog.Item(ctx, *it.MenuItemID)
			if err != nil {
				return nil, err
			}
			if !item.Available {
				return nil, ErrItemUnavailable
			}
			o.ProductName = item.Name
			o.UnitPrice = item.Price
		}
		if o.ProductName == "" {
			return nil, ErrProductRequired
		}
		if o.UnitPrice.IsNegative() {
			return nil, ErrNegativePrice
		}
		out = append(out, o)
	}
	return out, nil
}

// AdvanceOrder moves an order forward in the kitchen state machine.
func (s *Service) AdvanceOrder(ctx context.Context, actor shared.Actor, orderID int64, next OrderState) (Order, error) {
	if !next.IsValid() {
		return Order{}, ErrUnknownState
	}
	var updated Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.State.CanAdvanceTo(next) {
			return ErrInvalidTransition
		}
		now := s.now()
		if err := tx.UpdateOrderState(ctx, orderID, next, now, actor.Role); err != nil {
			return err
		}
		o.State = next
		o.StateUpdatedAt = now
		o.StateUpdatedByRole = actor.Role
		updated = o
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.logger.Info("order state changed",
		slog.Int64("order_id", orderID),
		slog.String("state", string(next)),
		slog.String("role", string(actor.Role)))
	return updated, nil
}

// MarkOrderPaid sets the paid flag regardless of kitchen state.
func (s *Service) MarkOrderPaid(ctx context.Context, orderID int64, paid bool) (Order, error) {
	var updated Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := tx.SetOrderPaid(ctx, orderID, paid); err != nil {
			return err
		}
		o.Paid = paid
		updated = o
		return nil
	})
	return updated, err
}

// DeleteOrder removes an order line the kitchen has not started.
func (s *Service) DeleteOrder(ctx context.Context, orderID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.State != StatePending {
			return ErrOrderNotPending
		}
		return tx.DeleteOrder(ctx, orderID)
	})
}

// CloseSession ends a session with a frozen total.
func (s *Service) CloseSession(ctx context.Context, sessionID int64, total decimal.Decimal) (Session, error) {
	if total.IsNegative() {
		return Session{}, ErrNegativeTotal
	}
	var closed Session
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sess, err := tx.GetSessionForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if !sess.Active {
			return ErrSessionClosed
		}
		now := s.now()
		if err := tx.CloseSession(ctx, sessionID, total, now); err != nil {
			return err
		}
		sess.Active = false
		sess.EndedAt = &now
		sess.Total = total
		closed = sess
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("session closed", slog.Int64("session_id", sessionID), slog.String("total", total.StringFixed(2)))
	return closed, nil
}

// ReleaseTable force-closes the active session without an invoice. Every order is
// marked delivered and paid and the session keeps its computed total.
func (s *Service) ReleaseTable(ctx context.Context, tableID int64) (Session, error) {
	var released Session
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockTable(ctx, tableID); err != nil {
			return err
		}
		sess, err := tx.ActiveSessionForUpdate(ctx, tableID)
		if err != nil {
			return err
		}
		if sess == nil {
			return ErrNoActiveSession
		}
		orders, err := tx.ListOrders(ctx, sess.ID)
		if err != nil {
			return err
		}
		total := SumOrders(orders)
		now := s.now()
		if err := tx.SettleOrders(ctx, sess.ID, now); err != nil {
			return err
		}
		if err := tx.CloseSession(ctx, sess.ID, total, now); err != nil {
			return err
		}
		sess.Active = false
		sess.EndedAt = &now
		sess.Total = total
		released = *sess
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	s.logger.Warn("table released without invoice",
		slog.Int64("table_id", tableID),
		slog.Int64("session_id", released.ID),
		slog.String("total", released.Total.StringFixed(2)))
	return released, nil
}

// SessionSummary returns a session with its orders and recomputed subtotal.
func (s *Service) SessionSummary(ctx context.Context, sessionID int64) (Summary, error) {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	return s.summarize(ctx, sess)
}

// TableSummary returns the summary of the table's active session, or nil when idle.
func (s *Service) TableSummary(ctx context.Context, tableID int64) (*Summary, error) {
	sess, err := s.repo.ActiveSession(ctx, tableID)
	if err != nil || sess == nil {
		return nil, err
	}
	sum, err := s.summarize(ctx, *sess)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

func (s *Service) summarize(ctx context.Context, sess Session) (Summary, error) {
	orders, err := s.repo.ListOrders(ctx, sess.ID)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Session: sess, Orders: Views(orders), Subtotal: SumOrders(orders)}, nil
}

// KitchenQueue lists pending and preparing orders of the current business day,
// oldest first.
func (s *Service) KitchenQueue(ctx context.Context) (KitchenQueue, error) {
	window := shared.BusinessDay(s.now(), s.cutoffHour)
	orders, err := s.repo.KitchenOrders(ctx, window)
	if err != nil {
		return KitchenQueue{}, err
	}
	q := KitchenQueue{Orders: orders}
	if q.Orders == nil {
		q.Orders = []KitchenOrder{}
	}
	for _, o := range orders {
		switch o.State {
		case StatePending:
			q.Pending++
		case StatePreparing:
			q.Preparing++
		}
	}
	return q, nil
}

// ReadyNotifications returns orders that became ready after since, skipping
// transitions made by waitstaff. A zero since looks back DefaultNotificationWindow.
// The returned time is the server clock to use as the next since.
func (s *Service) ReadyNotifications(ctx context.Context, since time.Time) ([]Notification, time.Time, error) {
	now := s.now()
	if since.IsZero() {
		since = now.Add(-DefaultNotificationWindow)
	}
	rows, err := s.repo.ReadySince(ctx, since)
	if err != nil {
		return nil, now, err
	}
	out := make([]Notification, 0, len(rows))
	for _, n := range rows {
		if n.UpdatedByRole == shared.RoleWaiter {
			continue
		}
		out = append(out, n)
	}
	return out, now, nil
}

// History lists closed sessions of the business day that starts on day.
func (s *Service) History(ctx context.Context, day time.Time) (History, error) {
	if day.IsZero() {
		day = shared.BusinessDayStart(s.now(), s.cutoffHour)
	}
	window := shared.DateRange(day, day, s.cutoffHour)
	entries, err := s.repo.ClosedSessions(ctx, window)
	if err != nil {
		return History{}, err
	}
	h := History{
		Day:              shared.Today(day),
		Sessions:         entries,
		Total:            decimal.Zero,
		TotalInvoiced:    decimal.Zero,
		TotalNotInvoiced: decimal.Zero,
	}
	if h.Sessions == nil {
		h.Sessions = []HistoryEntry{}
	}
	for _, e := range entries {
		h.Total = h.Total.Add(e.Session.Total)
		if e.InvoiceID != nil {
			h.TotalInvoiced = h.TotalInvoiced.Add(e.Session.Total)
		} else {
			h.TotalNotInvoiced = h.TotalNotInvoiced.Add(e.Session.Total)
		}
	}
	return h, nil
}
