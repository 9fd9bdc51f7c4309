package menu

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/platform/db"
)

// Repository defines menu persistence.
type Repository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, c Category) (Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	CountItems(ctx context.Context, categoryID int64) (int, error)
	CategoryExists(ctx context.Context, id int64) (bool, error)

	ListItems(ctx context.Context, availableOnly bool) ([]Item, error)
	GetItem(ctx context.Context, id int64) (Item, error)
	CreateItem(ctx context.Context, it Item) (Item, error)
	UpdateItem(ctx context.Context, it Item) error
	SetAvailable(ctx context.Context, id int64, available bool) error
	DeleteItem(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, sort_order FROM menu_categories ORDER BY sort_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Order); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) CreateCategory(ctx context.Context, c Category) (Category, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO menu_categories (name, sort_order) VALUES ($1, $2) RETURNING id`,
		c.Name, c.Order).Scan(&c.ID)
	return c, db.Classify(err)
}

func (r *repository) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menu_categories WHERE id = $1`, id)
	if err != nil {
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *repository) CountItems(ctx context.Context, categoryID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM menu_items WHERE category_id = $1`, categoryID).Scan(&n)
	return n, err
}

func (r *repository) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM menu_categories WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

const selectItem = `SELECT id, category_id, name, description, price, available, image_url, sort_order FROM menu_items`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.CategoryID, &it.Name, &it.Description, &it.Price, &it.Available, &it.ImageURL, &it.Order)
	return it, err
}

func (r *repository) ListItems(ctx context.Context, availableOnly bool) ([]Item, error) {
	rows, err := r.pool.Query(ctx, selectItem+` WHERE ($1 = FALSE OR available) ORDER BY category_id, sort_order, name`, availableOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *repository) GetItem(ctx context.Context, id int64) (Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, selectItem+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	return it, err
}

func (r *repository) CreateItem(ctx context.Context, it Item) (Item, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO menu_items (category_id, name, description, price, available, image_url, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		it.CategoryID, it.Name, it.Description, it.Price, it.Available, it.ImageURL, it.Order,
	).Scan(&it.ID)
	return it, db.Classify(err)
}

func (r *repository) UpdateItem(ctx context.Context, it Item) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE menu_items SET category_id = $2, name = $3, description = $4, price = $5,
		       available = $6, image_url = $7, sort_order = $8
		WHERE id = $1`,
		it.ID, it.CategoryID, it.Name, it.Description, it.Price, it.Available, it.ImageURL, it.Order)
	if err != nil {
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *repository) SetAvailable(ctx context.Context, id int64, available bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE menu_items SET available = $2 WHERE id = $1`, id, available)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *repository) DeleteItem(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}
