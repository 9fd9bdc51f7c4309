package dining

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/platform/db"
	"github.com/comanda-pos/comanda/internal/shared"
)

// Repository defines persistence for sessions and orders.
type Repository interface {
	GetSession(ctx context.Context, id int64) (Session, error)
	ActiveSession(ctx context.Context, tableID int64) (*Session, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
	ListOrders(ctx context.Context, sessionID int64) ([]Order, error)
	KitchenOrders(ctx context.Context, window shared.Window) ([]KitchenOrder, error)
	ReadySince(ctx context.Context, since time.Time) ([]Notification, error)
	ClosedSessions(ctx context.Context, window shared.Window) ([]HistoryEntry, error)

	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional write operations.
type TxRepository interface {
	LockTable(ctx context.Context, tableID int64) (active bool, err error)
	ActiveSessionForUpdate(ctx context.Context, tableID int64) (*Session, error)
	InsertSession(ctx context.Context, tableID int64, startedAt time.Time) (Session, error)
	InsertOrder(ctx context.Context, o Order) (Order, error)
	GetOrderForUpdate(ctx context.Context, id int64) (Order, error)
	UpdateOrderState(ctx context.Context, id int64, state OrderState, at time.Time, role shared.Role) error
	SetOrderPaid(ctx context.Context, id int64, paid bool) error
	DeleteOrder(ctx context.Context, id int64) error
	GetSessionForUpdate(ctx context.Context, id int64) (Session, error)
	CloseSession(ctx context.Context, id int64, total decimal.Decimal, endedAt time.Time) error
	SettleOrders(ctx context.Context, sessionID int64, at time.Time) error
	ListOrders(ctx context.Context, sessionID int64) ([]Order, error)
}

type repository struct {
	pool     *pgxpool.Pool
	beginner db.Beginner
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool, beginner: pool}
}

// WithTx runs fn in a read-committed transaction. Session creation serializes on
// the table row lock; a waiter must see the session committed by the lock holder,
// which a repeatable-read snapshot taken before the wait would hide.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxLevel(ctx, r.beginner, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const sessionColumns = `s.id, s.table_id, t.number, s.started_at, s.ended_at, s.total, s.active`

func scanSession(row pgx.Row) (Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.TableID, &s.TableNumber, &s.StartedAt, &s.EndedAt, &s.Total, &s.Active)
	return s, err
}

const orderColumns = `o.id, o.session_id, o.table_id, o.menu_item_id, o.product_name, o.quantity,
	o.unit_price, o.notes, o.state, o.paid, o.created_by, o.created_at, o.state_updated_at,
	o.state_updated_by_role`

func scanOrder(row pgx.Row, extra ...any) (Order, error) {
	var o Order
	dest := []any{&o.ID, &o.SessionID, &o.TableID, &o.MenuItemID, &o.ProductName, &o.Quantity,
		&o.UnitPrice, &o.Notes, &o.State, &o.Paid, &o.CreatedBy, &o.CreatedAt, &o.StateUpdatedAt,
		&o.StateUpdatedByRole}
	err := row.Scan(append(dest, extra...)...)
	return o, err
}

func (r *repository) GetSession(ctx context.Context, id int64) (Session, error) {
	s, err := scanSession(r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM dining_sessions s JOIN dining_tables t ON t.id = s.table_id
		WHERE s.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	return s, err
}

func (r *repository) ActiveSession(ctx context.Context, tableID int64) (*Session, error) {
	s, err := scanSession(r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM dining_sessions s JOIN dining_tables t ON t.id = s.table_id
		WHERE s.table_id = $1 AND s.active`, tableID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) GetOrder(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	return o, err
}

func (r *repository) ListOrders(ctx context.Context, sessionID int64) ([]Order, error) {
	return listOrders(ctx, r.pool, sessionID)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listOrders(ctx context.Context, q querier, sessionID int64) ([]Order, error) {
	rows, err := q.Query(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.session_id = $1 ORDER BY o.created_at, o.id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *repository) KitchenOrders(ctx context.Context, window shared.Window) ([]KitchenOrder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+`, t.number
		FROM orders o JOIN dining_tables t ON t.id = o.table_id
		WHERE o.state IN ('pendiente', 'preparando')
		  AND o.created_at >= $1 AND o.created_at < $2
		ORDER BY o.created_at, o.id`, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []KitchenOrder
	for rows.Next() {
		var number int
		o, err := scanOrder(rows, &number)
		if err != nil {
			return nil, err
		}
		out = append(out, KitchenOrder{Order: o, TableNumber: number})
	}
	return out, rows.Err()
}

func (r *repository) ReadySince(ctx context.Context, since time.Time) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT o.id, t.number, o.product_name, o.quantity, o.state_updated_at, o.state_updated_by_role
		FROM orders o JOIN dining_tables t ON t.id = o.table_id
		WHERE o.state = 'listo' AND o.state_updated_at > $1
		ORDER BY o.state_updated_at`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.OrderID, &n.TableNumber, &n.ProductName, &n.Quantity, &n.UpdatedAt, &n.UpdatedByRole); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *repository) ClosedSessions(ctx context.Context, window shared.Window) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+`,
		       (SELECT COUNT(*) FROM orders o WHERE o.session_id = s.id),
		       i.id, i.number
		FROM dining_sessions s
		JOIN dining_tables t ON t.id = s.table_id
		LEFT JOIN invoices i ON i.session_id = s.id
		WHERE NOT s.active AND s.ended_at >= $1 AND s.ended_at < $2
		ORDER BY s.ended_at DESC`, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		s := &e.Session
		if err := rows.Scan(&s.ID, &s.TableID, &s.TableNumber, &s.StartedAt, &s.EndedAt, &s.Total, &s.Active,
			&e.OrderCount, &e.InvoiceID, &e.InvoiceNumber); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
