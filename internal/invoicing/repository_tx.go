package invoicing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/platform/db"
)

const sequenceName = "invoice"

type txRepository struct {
	tx pgx.Tx
}

// NextNumber reserves the next invoice sequence value. The sequence row is seeded
// from the highest existing number and locked until the transaction ends.
func (t *txRepository) NextNumber(ctx context.Context) (int64, error) {
	var last int64
	err := t.tx.QueryRow(ctx, `SELECT last_value FROM invoice_sequences WHERE name = $1 FOR UPDATE`, sequenceName).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		if err := t.seedSequence(ctx); err != nil {
			return 0, err
		}
		err = t.tx.QueryRow(ctx, `SELECT last_value FROM invoice_sequences WHERE name = $1 FOR UPDATE`, sequenceName).Scan(&last)
	}
	if err != nil {
		return 0, err
	}
	next := last + 1
	if _, err := t.tx.Exec(ctx, `UPDATE invoice_sequences SET last_value = $2 WHERE name = $1`, sequenceName, next); err != nil {
		return 0, err
	}
	return next, nil
}

// seedSequence creates the sequence row from the highest well-formed number.
// Zero padded digits order by length first, then lexically.
func (t *txRepository) seedSequence(ctx context.Context) error {
	var seed int64
	var highest string
	err := t.tx.QueryRow(ctx, `
		SELECT number FROM invoices WHERE number ~ $1
		ORDER BY char_length(number) DESC, number DESC LIMIT 1`, numberPattern).Scan(&highest)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return err
	default:
		if n, perr := ParseNumber(highest); perr == nil {
			seed = n
		}
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO invoice_sequences (name, last_value) VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING`, sequenceName, seed)
	return err
}

func breakdownJSON(b *Breakdown) ([]byte, error) {
	if b == nil {
		return nil, nil
	}
	return json.Marshal(b)
}

func (t *txRepository) Insert(ctx context.Context, inv Invoice) (int64, error) {
	breakdown, err := breakdownJSON(inv.Breakdown)
	if err != nil {
		return 0, err
	}
	var id int64
	err = t.tx.QueryRow(ctx, `
		INSERT INTO invoices (number, session_id, delivery_id, issued_at, subtotal, tax, tip, total,
		                      payment_method, payment_breakdown, payment_status, due_date, paid_at,
		                      outstanding, customer_name, customer_document, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`,
		inv.Number, inv.SessionID, inv.DeliveryID, inv.IssuedAt, inv.Subtotal, inv.Tax, inv.Tip, inv.Total,
		inv.PaymentMethod, breakdown, inv.PaymentStatus, inv.DueDate, inv.PaidAt,
		inv.Outstanding, inv.CustomerName, inv.CustomerDocument, inv.Notes, inv.CreatedBy,
	).Scan(&id)
	if db.IsUniqueViolation(err, "uniq_invoice_session") || db.IsUniqueViolation(err, "uniq_invoice_delivery") {
		return 0, ErrAlreadyInvoiced
	}
	return id, err
}

func (t *txRepository) GetForUpdate(ctx context.Context, id int64) (Invoice, error) {
	inv, err := scanInvoice(t.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrNotFound
	}
	return inv, err
}

func (t *txRepository) Update(ctx context.Context, inv Invoice) error {
	breakdown, err := breakdownJSON(inv.Breakdown)
	if err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `
		UPDATE invoices SET subtotal = $2, tax = $3, tip = $4, total = $5, payment_method = $6,
		       payment_breakdown = $7, payment_status = $8, due_date = $9, paid_at = $10,
		       outstanding = $11, customer_name = $12, customer_document = $13, notes = $14
		WHERE id = $1`,
		inv.ID, inv.Subtotal, inv.Tax, inv.Tip, inv.Total, inv.PaymentMethod,
		breakdown, inv.PaymentStatus, inv.DueDate, inv.PaidAt,
		inv.Outstanding, inv.CustomerName, inv.CustomerDocument, inv.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) Delete(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) SessionForUpdate(ctx context.Context, sessionID int64) (bool, error) {
	var active bool
	err := t.tx.QueryRow(ctx, `SELECT active FROM dining_sessions WHERE id = $1 FOR UPDATE`, sessionID).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrSessionNotFound
	}
	return active, err
}

// SessionSubtotal sums quantity × unit price over the session's orders.
func (t *txRepository) SessionSubtotal(ctx context.Context, sessionID int64) (decimal.Decimal, error) {
	var subtotal decimal.Decimal
	err := t.tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity * unit_price), 0) FROM orders WHERE session_id = $1`, sessionID).Scan(&subtotal)
	return subtotal, err
}

func (t *txRepository) CloseSession(ctx context.Context, sessionID int64, total decimal.Decimal, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE dining_sessions SET active = FALSE, ended_at = $2, total = $3
		WHERE id = $1 AND active`, sessionID, at, total)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionClosed
	}
	return nil
}

func (t *txRepository) SettleSessionOrders(ctx context.Context, sessionID int64, at time.Time) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE orders SET paid = TRUE,
		       state_updated_at = CASE WHEN state <> 'entregado' THEN $2 ELSE state_updated_at END,
		       state = 'entregado'
		WHERE session_id = $1`, sessionID, at)
	return err
}

// ReopenSession restores a settled session: active again, no end date, zero total,
// every order back to pending and unpaid.
func (t *txRepository) ReopenSession(ctx context.Context, sessionID int64, at time.Time) error {
	var occupied bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM dining_sessions other
			JOIN dining_sessions s ON s.table_id = other.table_id
			WHERE s.id = $1 AND other.active AND other.id <> s.id
		)`, sessionID).Scan(&occupied)
	if err != nil {
		return err
	}
	if occupied {
		return ErrTableReoccupied
	}
	tag, err := t.tx.Exec(ctx, `
		UPDATE dining_sessions SET active = TRUE, ended_at = NULL, total = 0 WHERE id = $1`, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	_, err = t.tx.Exec(ctx, `
		UPDATE orders SET state = 'pendiente', paid = FALSE, state_updated_at = $2
		WHERE session_id = $1`, sessionID, at)
	return err
}

func (t *txRepository) DeliveryForUpdate(ctx context.Context, deliveryID int64) (DeliverySnapshot, error) {
	var (
		d     DeliverySnapshot
		state string
	)
	err := t.tx.QueryRow(ctx, `
		SELECT id, subtotal, delivery_fee, payment_method, customer_name, state, invoice_id
		FROM deliveries WHERE id = $1 FOR UPDATE`, deliveryID).Scan(
		&d.ID, &d.Subtotal, &d.Fee, &d.PaymentMethod, &d.CustomerName, &state, &d.InvoiceID)
	if errors.Is(err, pgx.ErrNoRows) {
		return DeliverySnapshot{}, ErrDeliveryNotFound
	}
	d.Cancelled = state == "cancelado"
	return d, err
}

func (t *txRepository) LinkDelivery(ctx context.Context, deliveryID, invoiceID int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE deliveries SET invoice_id = $2, paid = TRUE WHERE id = $1`, deliveryID, invoiceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDeliveryNotFound
	}
	return nil
}

// UnlinkDelivery clears the invoice link and paid flag, leaving the delivery state alone.
func (t *txRepository) UnlinkDelivery(ctx context.Context, deliveryID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE deliveries SET invoice_id = NULL, paid = FALSE WHERE id = $1`, deliveryID)
	return err
}
