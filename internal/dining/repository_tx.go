package dining

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/shared"
)

type txRepository struct {
	tx pgx.Tx
}

// LockTable takes a row lock on the table so session creation is serialized per table.
func (t *txRepository) LockTable(ctx context.Context, tableID int64) (bool, error) {
	var active bool
	err := t.tx.QueryRow(ctx, `SELECT active FROM dining_tables WHERE id = $1 FOR UPDATE`, tableID).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrTableNotFound
	}
	return active, err
}

func (t *txRepository) ActiveSessionForUpdate(ctx context.Context, tableID int64) (*Session, error) {
	s, err := scanSession(t.tx.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM dining_sessions s JOIN dining_tables t ON t.id = s.table_id
		WHERE s.table_id = $1 AND s.active
		FOR UPDATE OF s`, tableID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (t *txRepository) InsertSession(ctx context.Context, tableID int64, startedAt time.Time) (Session, error) {
	s := Session{TableID: tableID, StartedAt: startedAt, Active: true, Total: decimal.Zero}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO dining_sessions (table_id, started_at, total, active)
		VALUES ($1, $2, 0, TRUE)
		RETURNING id, (SELECT number FROM dining_tables WHERE id = $1)`, tableID, startedAt).Scan(&s.ID, &s.TableNumber)
	return s, err
}

func (t *txRepository) InsertOrder(ctx context.Context, o Order) (Order, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders (session_id, table_id, menu_item_id, product_name, quantity, unit_price,
		                    notes, state, paid, created_by, created_at, state_updated_at, state_updated_by_role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9, $10, $10, $11)
		RETURNING id`,
		o.SessionID, o.TableID, o.MenuItemID, o.ProductName, o.Quantity, o.UnitPrice,
		o.Notes, o.State, o.CreatedBy, o.CreatedAt, o.StateUpdatedByRole,
	).Scan(&o.ID)
	o.StateUpdatedAt = o.CreatedAt
	return o, err
}

func (t *txRepository) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	return o, err
}

func (t *txRepository) UpdateOrderState(ctx context.Context, id int64, state OrderState, at time.Time, role shared.Role) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE orders SET state = $2, state_updated_at = $3, state_updated_by_role = $4
		WHERE id = $1`, id, state, at, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (t *txRepository) SetOrderPaid(ctx context.Context, id int64, paid bool) error {
	tag, err := t.tx.Exec(ctx, `UPDATE orders SET paid = $2 WHERE id = $1`, id, paid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (t *txRepository) DeleteOrder(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (t *txRepository) GetSessionForUpdate(ctx context.Context, id int64) (Session, error) {
	s, err := scanSession(t.tx.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM dining_sessions s JOIN dining_tables t ON t.id = s.table_id
		WHERE s.id = $1
		FOR UPDATE OF s`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	return s, err
}

func (t *txRepository) CloseSession(ctx context.Context, id int64, total decimal.Decimal, endedAt time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE dining_sessions SET active = FALSE, ended_at = $2, total = $3
		WHERE id = $1 AND active`, id, endedAt, total)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionClosed
	}
	return nil
}

// SettleOrders marks every order of the session delivered and paid.
func (t *txRepository) SettleOrders(ctx context.Context, sessionID int64, at time.Time) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE orders SET paid = TRUE,
		       state_updated_at = CASE WHEN state <> 'entregado' THEN $2 ELSE state_updated_at END,
		       state = 'entregado'
		WHERE session_id = $1`, sessionID, at)
	return err
}

func (t *txRepository) ListOrders(ctx context.Context, sessionID int64) ([]Order, error) {
	return listOrders(ctx, t.tx, sessionID)
}
