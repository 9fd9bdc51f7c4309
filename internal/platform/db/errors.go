package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/comanda-pos/comanda/internal/shared"
)

// Postgres SQLSTATE codes translated into the shared taxonomy.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// Classify wraps constraint and serialization failures with shared.ErrIntegrity so
// callers can surface them as retryable. Other errors pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation, codeForeignKeyViolation, codeSerializationFailure, codeDeadlockDetected:
		if errors.Is(err, shared.ErrIntegrity) {
			return err
		}
		return fmt.Errorf("%w: %s", shared.ErrIntegrity, pgErr.ConstraintName)
	}
	return err
}

// IsUniqueViolation reports whether err is a unique constraint violation, optionally
// restricted to one constraint name.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
