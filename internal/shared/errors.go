package shared

import "errors"

// Error taxonomy shared by every domain package. Domain errors wrap one of these
// so handlers can classify them with errors.Is.
var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState marks an operation not allowed in the entity's current state.
	ErrInvalidState = errors.New("invalid state")
	// ErrPermission marks a role check failure.
	ErrPermission = errors.New("permission denied")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrIntegrity wraps store constraint violations such as duplicate numbers.
	ErrIntegrity = errors.New("integrity violation")

	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
