package expenses

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

// Repository provides persistence for expenses, providers, budgets and staff meals.
type Repository interface {
	GetExpense(ctx context.Context, id int64) (Expense, error)
	ListExpenses(ctx context.Context, window shared.Window, categoryID *int64) ([]Expense, error)
	InsertExpense(ctx context.Context, e Expense) (int64, error)
	UpdateExpense(ctx context.Context, e Expense) error
	DeleteExpense(ctx context.Context, id int64) error
	ListUnpaid(ctx context.Context, statuses []PaymentStatus, providerID *int64) ([]Expense, error)
	SweepOverdue(ctx context.Context, today time.Time) (int64, error)
	Consumption(ctx context.Context, window shared.Window, categoryID *int64) (map[int64]decimal.Decimal, error)

	ListCategories(ctx context.Context, activeOnly bool) ([]Category, error)
	GetCategory(ctx context.Context, id int64) (Category, error)
	InsertCategory(ctx context.Context, c Category) (int64, error)
	UpdateCategory(ctx context.Context, c Category) error

	ListProviders(ctx context.Context, activeOnly bool) ([]Provider, error)
	GetProvider(ctx context.Context, id int64) (Provider, error)
	InsertProvider(ctx context.Context, p Provider) (int64, error)
	UpdateProvider(ctx context.Context, p Provider) error

	GetBudget(ctx context.Context, id int64) (Budget, error)
	ActiveBudget(ctx context.Context, categoryID int64, month, year int) (*Budget, error)
	ListBudgets(ctx context.Context, month, year int) ([]Budget, error)
	UpdateBudget(ctx context.Context, b Budget) error

	InsertStaffMeal(ctx context.Context, m StaffMeal) (int64, error)
	ListStaffMeals(ctx context.Context, window shared.Window) ([]StaffMeal, error)

	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the budget writes that must see a consistent month.
type TxRepository interface {
	ListBudgets(ctx context.Context, month, year int) ([]Budget, error)
	InsertBudget(ctx context.Context, b Budget) (int64, error)
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*repository)(nil)

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// WithTx runs fn inside a serializable transaction so that two rollovers of the
// same month cannot both pass the emptiness check.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxLevel(ctx, r.pool, pgx.Serializable, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (t *txRepository) ListBudgets(ctx context.Context, month, year int) ([]Budget, error) {
	return listBudgets(ctx, t.tx, month, year)
}

func (t *txRepository) InsertBudget(ctx context.Context, b Budget) (int64, error) {
	return insertBudget(ctx, t.tx, b)
}

const expenseColumns = `e.id, e.spent_at, e.concept, e.amount, e.category_id, c.name, c.color,
	e.provider_id, COALESCE(p.name, ''), e.user_id, e.payment_method, e.invoice_number,
	e.notes, e.approved, e.approved_at, e.approved_by, e.payment_status, e.due_date, e.paid_at`

const expenseFrom = ` FROM expenses e
	JOIN expense_categories c ON c.id = e.category_id
	LEFT JOIN providers p ON p.id = e.provider_id`

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.SpentAt, &e.Concept, &e.Amount, &e.CategoryID, &e.CategoryName,
		&e.CategoryColor, &e.ProviderID, &e.ProviderName, &e.UserID, &e.PaymentMethod,
		&e.InvoiceNumber, &e.Notes, &e.Approved, &e.ApprovedAt, &e.ApprovedBy,
		&e.PaymentStatus, &e.DueDate, &e.PaidAt)
	return e, err
}

func collectExpenses(rows pgx.Rows) ([]Expense, error) {
	defer rows.Close()
	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repository) GetExpense(ctx context.Context, id int64) (Expense, error) {
	e, err := scanExpense(r.pool.QueryRow(ctx, `SELECT `+expenseColumns+expenseFrom+` WHERE e.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, ErrNotFound
	}
	return e, err
}

func (r *repository) ListExpenses(ctx context.Context, window shared.Window, categoryID *int64) ([]Expense, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+expenseColumns+expenseFrom+`
		WHERE e.spent_at >= $1 AND e.spent_at < $2
		  AND ($3::bigint IS NULL OR e.category_id = $3)
		ORDER BY e.spent_at DESC, e.id DESC`, window.Start, window.End, categoryID)
	if err != nil {
		return nil, err
	}
	return collectExpenses(rows)
}

func (r *repository) InsertExpense(ctx context.Context, e Expense) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO expenses (spent_at, concept, amount, category_id,
		provider_id, user_id, payment_method, invoice_number, notes, payment_status, due_date, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
		e.SpentAt, e.Concept, e.Amount, e.CategoryID, e.ProviderID, e.UserID, e.PaymentMethod,
		e.InvoiceNumber, e.Notes, e.PaymentStatus, e.DueDate, e.PaidAt).Scan(&id)
	return id, db.Classify(err)
}

func (r *repository) UpdateExpense(ctx context.Context, e Expense) error {
	tag, err := r.pool.Exec(ctx, `UPDATE expenses SET spent_at = $2, concept = $3, amount = $4,
		category_id = $5, provider_id = $6, payment_method = $7, invoice_number = $8, notes = $9,
		approved = $10, approved_at = $11, approved_by = $12, payment_status = $13,
		due_date = $14, paid_at = $15
		WHERE id = $1`,
		e.ID, e.SpentAt, e.Concept, e.Amount, e.CategoryID, e.ProviderID, e.PaymentMethod,
		e.InvoiceNumber, e.Notes, e.Approved, e.ApprovedAt, e.ApprovedBy, e.PaymentStatus,
		e.DueDate, e.PaidAt)
	if err != nil {
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteExpense(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListUnpaid(ctx context.Context, statuses []PaymentStatus, providerID *int64) ([]Expense, error) {
	raw := make([]string, len(statuses))
	for i, s := range statuses {
		raw[i] = string(s)
	}
	rows, err := r.pool.Query(ctx, `SELECT `+expenseColumns+expenseFrom+`
		WHERE e.payment_status = ANY($1)
		  AND ($2::bigint IS NULL OR e.provider_id = $2)
		ORDER BY e.due_date ASC NULLS LAST, e.id`, raw, providerID)
	if err != nil {
		return nil, err
	}
	return collectExpenses(rows)
}

func (r *repository) SweepOverdue(ctx context.Context, today time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE expenses SET payment_status = $1
		WHERE payment_status = $2 AND due_date IS NOT NULL AND due_date < $3::date`,
		StatusOverdue, StatusPending, today)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repository) Consumption(ctx context.Context, window shared.Window, categoryID *int64) (map[int64]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, `SELECT category_id, COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE spent_at >= $1 AND spent_at < $2
		  AND ($3::bigint IS NULL OR category_id = $3)
		GROUP BY category_id`, window.Start, window.End, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64]decimal.Decimal{}
	for rows.Next() {
		var id int64
		var total decimal.Decimal
		if err := rows.Scan(&id, &total); err != nil {
			return nil, err
		}
		out[id] = total
	}
	return out, rows.Err()
}

const categoryColumns = `id, name, description, color, active`

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.Active)
	return c, err
}

func (r *repository) ListCategories(ctx context.Context, activeOnly bool) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM expense_categories
		WHERE active OR NOT $1 ORDER BY name`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) GetCategory(ctx context.Context, id int64) (Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM expense_categories WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, ErrCategoryNotFound
	}
	return c, err
}

func (r *repository) InsertCategory(ctx context.Context, c Category) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO expense_categories (name, description, color, active)
		VALUES ($1, $2, $3, $4) RETURNING id`, c.Name, c.Description, c.Color, c.Active).Scan(&id)
	return id, db.Classify(err)
}

func (r *repository) UpdateCategory(ctx context.Context, c Category) error {
	tag, err := r.pool.Exec(ctx, `UPDATE expense_categories SET name = $2, description = $3,
		color = $4, active = $5 WHERE id = $1`, c.ID, c.Name, c.Description, c.Color, c.Active)
	if err != nil {
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

const providerColumns = `id, name, tax_id, phone, email, address, notes, active`

func scanProvider(row pgx.Row) (Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.Name, &p.TaxID, &p.Phone, &p.Email, &p.Address, &p.Notes, &p.Active)
	return p, err
}

func (r *repository) ListProviders(ctx context.Context, activeOnly bool) ([]Provider, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+providerColumns+` FROM providers
		WHERE active OR NOT $1 ORDER BY name`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) GetProvider(ctx context.Context, id int64) (Provider, error) {
	p, err := scanProvider(r.pool.QueryRow(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Provider{}, ErrProviderNotFound
	}
	return p, err
}

func (r *repository) InsertProvider(ctx context.Context, p Provider) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO providers (name, tax_id, phone, email, address, notes, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		p.Name, p.TaxID, p.Phone, p.Email, p.Address, p.Notes, p.Active).Scan(&id)
	return id, db.Classify(err)
}

func (r *repository) UpdateProvider(ctx context.Context, p Provider) error {
	tag, err := r.pool.Exec(ctx, `UPDATE providers SET name = $2, tax_id = $3, phone = $4,
		email = $5, address = $6, notes = $7, active = $8 WHERE id = $1`,
		p.ID, p.Name, p.TaxID, p.Phone, p.Email, p.Address, p.Notes, p.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProviderNotFound
	}
	return nil
}

const budgetColumns = `b.id, b.category_id, c.name, c.color, b.limit_amount, b.period, b.month,
	b.year, b.active, b.alert_pct, b.created_at`

const budgetFrom = ` FROM budgets b JOIN expense_categories c ON c.id = b.category_id`

func scanBudget(row pgx.Row) (Budget, error) {
	var b Budget
	err := row.Scan(&b.ID, &b.CategoryID, &b.CategoryName, &b.CategoryColor, &b.Limit, &b.Period,
		&b.Month, &b.Year, &b.Active, &b.AlertPct, &b.CreatedAt)
	return b, err
}

func (r *repository) GetBudget(ctx context.Context, id int64) (Budget, error) {
	b, err := scanBudget(r.pool.QueryRow(ctx, `SELECT `+budgetColumns+budgetFrom+` WHERE b.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Budget{}, ErrBudgetNotFound
	}
	return b, err
}

func (r *repository) ActiveBudget(ctx context.Context, categoryID int64, month, year int) (*Budget, error) {
	b, err := scanBudget(r.pool.QueryRow(ctx, `SELECT `+budgetColumns+budgetFrom+`
		WHERE b.category_id = $1 AND b.month = $2 AND b.year = $3 AND b.active`,
		categoryID, month, year))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) ListBudgets(ctx context.Context, month, year int) ([]Budget, error) {
	return listBudgets(ctx, r.pool, month, year)
}

func listBudgets(ctx context.Context, q querier, month, year int) ([]Budget, error) {
	rows, err := q.Query(ctx, `SELECT `+budgetColumns+budgetFrom+`
		WHERE b.month = $1 AND b.year = $2 AND b.active
		ORDER BY c.name`, month, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func insertBudget(ctx context.Context, q querier, b Budget) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `INSERT INTO budgets (category_id, limit_amount, period, month, year, active, alert_pct)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6) RETURNING id`,
		b.CategoryID, b.Limit, b.Period, b.Month, b.Year, b.AlertPct).Scan(&id)
	if db.IsUniqueViolation(err, "uniq_active_budget") {
		return 0, ErrBudgetExists
	}
	return id, db.Classify(err)
}

func (r *repository) UpdateBudget(ctx context.Context, b Budget) error {
	tag, err := r.pool.Exec(ctx, `UPDATE budgets SET limit_amount = $2, alert_pct = $3, active = $4
		WHERE id = $1`, b.ID, b.Limit, b.AlertPct, b.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBudgetNotFound
	}
	return nil
}

func (r *repository) InsertStaffMeal(ctx context.Context, m StaffMeal) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO staff_meals (menu_item_id, quantity, cost, consumed_at, user_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		m.MenuItemID, m.Quantity, m.Cost, m.ConsumedAt, m.UserID, m.Notes).Scan(&id)
	return id, db.Classify(err)
}

func (r *repository) ListStaffMeals(ctx context.Context, window shared.Window) ([]StaffMeal, error) {
	rows, err := r.pool.Query(ctx, `SELECT s.id, s.menu_item_id, m.name, s.quantity, s.cost,
		s.consumed_at, s.user_id, COALESCE(u.username, ''), s.notes
		FROM staff_meals s
		JOIN menu_items m ON m.id = s.menu_item_id
		LEFT JOIN users u ON u.id = s.user_id
		WHERE s.consumed_at >= $1 AND s.consumed_at < $2
		ORDER BY s.consumed_at DESC`, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StaffMeal
	for rows.Next() {
		var m StaffMeal
		if err := rows.Scan(&m.ID, &m.MenuItemID, &m.ItemName, &m.Quantity, &m.Cost,
			&m.ConsumedAt, &m.UserID, &m.Username, &m.Notes); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
