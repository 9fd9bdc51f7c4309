package invoicing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/platform/db"
	"github.com/comanda-pos/comanda/internal/shared"
)

// Repository defines invoice persistence.
type Repository interface {
	Get(ctx context.Context, id int64) (Invoice, error)
	List(ctx context.Context, window *shared.Window, limit int) ([]Invoice, error)
	ListByStatus(ctx context.Context, statuses []PaymentStatus) ([]Invoice, error)
	SweepOverdue(ctx context.Context, today time.Time) (int64, error)

	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the writes that must commit together with an invoice.
type TxRepository interface {
	NextNumber(ctx context.Context) (int64, error)
	Insert(ctx context.Context, inv Invoice) (int64, error)
	GetForUpdate(ctx context.Context, id int64) (Invoice, error)
	Update(ctx context.Context, inv Invoice) error
	Delete(ctx context.Context, id int64) error

	SessionForUpdate(ctx context.Context, sessionID int64) (active bool, err error)
	SessionSubtotal(ctx context.Context, sessionID int64) (decimal.Decimal, error)
	CloseSession(ctx context.Context, sessionID int64, total decimal.Decimal, at time.Time) error
	SettleSessionOrders(ctx context.Context, sessionID int64, at time.Time) error
	ReopenSession(ctx context.Context, sessionID int64, at time.Time) error

	DeliveryForUpdate(ctx context.Context, deliveryID int64) (DeliverySnapshot, error)
	LinkDelivery(ctx context.Context, deliveryID, invoiceID int64) error
	UnlinkDelivery(ctx context.Context, deliveryID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// WithTx runs fn in a read-committed transaction. Number allocation and session
// closing serialize on row locks, so each waiter sees the winner's commit.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxLevel(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const invoiceColumns = `id, number, session_id, delivery_id, issued_at, subtotal, tax, tip, total,
	payment_method, payment_breakdown, payment_status, due_date, paid_at, outstanding,
	customer_name, customer_document, notes, created_by`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var (
		inv       Invoice
		breakdown []byte
	)
	err := row.Scan(&inv.ID, &inv.Number, &inv.SessionID, &inv.DeliveryID, &inv.IssuedAt,
		&inv.Subtotal, &inv.Tax, &inv.Tip, &inv.Total, &inv.PaymentMethod, &breakdown,
		&inv.PaymentStatus, &inv.DueDate, &inv.PaidAt, &inv.Outstanding,
		&inv.CustomerName, &inv.CustomerDocument, &inv.Notes, &inv.CreatedBy)
	if err != nil {
		return Invoice{}, err
	}
	if len(breakdown) > 0 && string(breakdown) != "null" {
		var b Breakdown
		if err := json.Unmarshal(breakdown, &b); err != nil {
			return Invoice{}, err
		}
		inv.Breakdown = &b
	}
	return inv, nil
}

func collect(rows pgx.Rows) ([]Invoice, error) {
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrNotFound
	}
	return inv, err
}

func (r *repository) List(ctx context.Context, window *shared.Window, limit int) ([]Invoice, error) {
	if window == nil {
		rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices ORDER BY issued_at DESC LIMIT $1`, limit)
		if err != nil {
			return nil, err
		}
		return collect(rows)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE issued_at >= $1 AND issued_at < $2
		ORDER BY issued_at DESC`, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repository) ListByStatus(ctx context.Context, statuses []PaymentStatus) ([]Invoice, error) {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE payment_status = ANY($1)
		ORDER BY due_date NULLS LAST, issued_at`, names)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// SweepOverdue flips pending invoices past their due date to overdue.
func (r *repository) SweepOverdue(ctx context.Context, today time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices SET payment_status = 'vencida'
		WHERE payment_status = 'pendiente' AND due_date IS NOT NULL AND due_date < $1`, today)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
