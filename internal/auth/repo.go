package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const selectUser = `SELECT id, username, name, password_hash, role, active, created_at FROM users`

// FindByUsername fetches a user by username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.scan(r.pool.QueryRow(ctx, selectUser+` WHERE username = $1`, username))
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.scan(r.pool.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
}

func (r *PGRepository) scan(row pgx.Row) (*User, error) {
	var (
		user User
		role string
	)
	if err := row.Scan(&user.ID, &user.Username, &user.Name, &user.PasswordHash, &role, &user.IsActive, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	user.Role = shared.Role(role)
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
