package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/comanda-pos/comanda/internal/shared"
)

// Aliases kept so handlers can reference errors without importing shared.
var (
	ErrNotFound     = shared.ErrNotFound
	ErrValidation   = shared.ErrValidation
	ErrForbidden    = shared.ErrPermission
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps domain errors to HTTP responses using RFC7807. Unclassified
// errors are logged and reported without detail.
func RespondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, shared.ErrPermission):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized), errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	case errors.Is(err, shared.ErrIntegrity):
		w.Header().Set("Retry-After", "1")
		Problem(w, http.StatusConflict, "Conflict", "the operation collided with a concurrent change, retry")
	default:
		if logger != nil {
			attrs := []any{slog.Any("error", err)}
			if r != nil {
				attrs = append(attrs, slog.String("path", r.URL.Path), slog.String("method", r.Method))
			}
			logger.Error("unhandled error", attrs...)
		}
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
