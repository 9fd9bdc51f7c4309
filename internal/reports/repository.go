package reports

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/shared"
)

// Repository runs the read-only aggregates behind the reports.
type Repository interface {
	DailyIncome(ctx context.Context, window shared.Window, day DayBucket) ([]DayAmount, error)
	DailyExpenses(ctx context.Context, window shared.Window, day DayBucket) ([]DayAmount, error)
	ExpensesByCategory(ctx context.Context, window shared.Window) ([]CategoryTotal, error)
	OpenTables(ctx context.Context) (int, error)
	PendingKitchenOrders(ctx context.Context) (int, error)
	ActiveDeliveries(ctx context.Context, window shared.Window) (int, error)
}

// DayBucket describes how timestamps fold into business days.
type DayBucket struct {
	TimeZone   string
	CutoffHour int
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func collectDays(rows pgx.Rows) ([]DayAmount, error) {
	defer rows.Close()
	var out []DayAmount
	for rows.Next() {
		var d DayAmount
		if err := rows.Scan(&d.Day, &d.Amount, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repository) DailyIncome(ctx context.Context, window shared.Window, day DayBucket) ([]DayAmount, error) {
	rows, err := r.pool.Query(ctx, `SELECT ((issued_at AT TIME ZONE $3) - make_interval(hours => $4))::date AS day,
			COALESCE(SUM(total), 0), COUNT(*)
		FROM invoices
		WHERE issued_at >= $1 AND issued_at < $2
		GROUP BY day ORDER BY day`, window.Start, window.End, day.TimeZone, day.CutoffHour)
	if err != nil {
		return nil, err
	}
	return collectDays(rows)
}

func (r *repository) DailyExpenses(ctx context.Context, window shared.Window, day DayBucket) ([]DayAmount, error) {
	rows, err := r.pool.Query(ctx, `SELECT ((spent_at AT TIME ZONE $3) - make_interval(hours => $4))::date AS day,
			COALESCE(SUM(amount), 0), COUNT(*)
		FROM expenses
		WHERE spent_at >= $1 AND spent_at < $2
		GROUP BY day ORDER BY day`, window.Start, window.End, day.TimeZone, day.CutoffHour)
	if err != nil {
		return nil, err
	}
	return collectDays(rows)
}

func (r *repository) ExpensesByCategory(ctx context.Context, window shared.Window) ([]CategoryTotal, error) {
	rows, err := r.pool.Query(ctx, `SELECT c.id, c.name, c.color, SUM(e.amount), COUNT(e.id)
		FROM expenses e JOIN expense_categories c ON c.id = e.category_id
		WHERE e.spent_at >= $1 AND e.spent_at < $2
		GROUP BY c.id, c.name, c.color
		ORDER BY SUM(e.amount) DESC`, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CategoryTotal
	for rows.Next() {
		var c CategoryTotal
		if err := rows.Scan(&c.CategoryID, &c.Name, &c.Color, &c.Total, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) OpenTables(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT table_id) FROM dining_sessions WHERE active`).Scan(&n)
	return n, err
}

func (r *repository) PendingKitchenOrders(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders o
		JOIN dining_sessions s ON s.id = o.session_id
		WHERE s.active AND o.state IN ('pendiente', 'preparando')`).Scan(&n)
	return n, err
}

func (r *repository) ActiveDeliveries(ctx context.Context, window shared.Window) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM deliveries
		WHERE ordered_at >= $1 AND ordered_at < $2
		  AND state NOT IN ('entregado', 'cancelado')`, window.Start, window.End).Scan(&n)
	return n, err
}
