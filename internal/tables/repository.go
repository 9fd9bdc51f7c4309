package tables

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/platform/db"
)

// Repository defines persistence for tables.
type Repository interface {
	List(ctx context.Context, activeOnly bool) ([]Overview, error)
	Get(ctx context.Context, id int64) (Table, error)
	Create(ctx context.Context, t Table) (Table, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	HasOrders(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]Overview, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.number, t.capacity, t.active, s.id,
		       COALESCE(SUM(o.quantity * o.unit_price), 0)
		FROM dining_tables t
		LEFT JOIN dining_sessions s ON s.table_id = t.id AND s.active
		LEFT JOIN orders o ON o.session_id = s.id
		WHERE ($1 = FALSE OR t.active)
		GROUP BY t.id, s.id
		ORDER BY t.number
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Overview
	for rows.Next() {
		var o Overview
		if err := rows.Scan(&o.ID, &o.Number, &o.Capacity, &o.Active, &o.SessionID, &o.OpenTotal); err != nil {
			return nil, err
		}
		o.Occupied = o.SessionID != nil
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Table, error) {
	var t Table
	err := r.pool.QueryRow(ctx, `SELECT id, number, capacity, active FROM dining_tables WHERE id = $1`, id).
		Scan(&t.ID, &t.Number, &t.Capacity, &t.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Table{}, ErrNotFound
	}
	return t, err
}

func (r *repository) Create(ctx context.Context, t Table) (Table, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO dining_tables (number, capacity) VALUES ($1, $2) RETURNING id, active`,
		t.Number, t.Capacity).Scan(&t.ID, &t.Active)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return Table{}, ErrDuplicateNumber
		}
		return Table{}, db.Classify(err)
	}
	return t, nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE dining_tables SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM dining_tables WHERE id = $1`, id)
	if err != nil {
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) HasOrders(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM orders WHERE table_id = $1)
		    OR EXISTS (SELECT 1 FROM dining_sessions WHERE table_id = $1)
	`, id).Scan(&exists)
	return exists, err
}
