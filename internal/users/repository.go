package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/platform/db"
	"github.com/comanda-pos/comanda/internal/shared"
)

// ErrDuplicateUsername is returned when the username is already taken.
var ErrDuplicateUsername = errors.New("users: username already exists")

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns all users.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, username, name, role, active, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Username, &user.Name, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CreateUser inserts a user with an already hashed password.
func (r *Repository) CreateUser(ctx context.Context, user User, passwordHash string) (User, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO users (username, name, password_hash, role)
VALUES ($1, $2, $3, $4) RETURNING id, active, created_at`,
		user.Username, user.Name, passwordHash, string(user.Role),
	).Scan(&user.ID, &user.Active, &user.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return User{}, ErrDuplicateUsername
		}
		return User{}, db.Classify(err)
	}
	return user, nil
}

// UpdateRole changes the role of a user.
func (r *Repository) UpdateRole(ctx context.Context, id int64, role shared.Role) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET role = $2 WHERE id = $1`, id, string(role))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteUser removes a user.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetUser fetches a single user.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `SELECT id, username, name, role, active, created_at FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Username, &user.Name, &user.Role, &user.Active, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	return user, err
}
