package dining

import (
	"fmt"

	"github.com/comanda-pos/comanda/internal/shared"
)

// Domain errors for sessions and orders.
var (
	ErrTableNotFound   = fmt.Errorf("%w: table", shared.ErrNotFound)
	ErrSessionNotFound = fmt.Errorf("%w: session", shared.ErrNotFound)
	ErrOrderNotFound   = fmt.Errorf("%w: order", shared.ErrNotFound)

	ErrNoItems         = fmt.Errorf("%w: at least one item is required", shared.ErrValidation)
	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be greater than zero", shared.ErrValidation)
	ErrNegativePrice   = fmt.Errorf("%w: unit price cannot be negative", shared.ErrValidation)
	ErrProductRequired = fmt.Errorf("%w: product name is required", shared.ErrValidation)
	ErrItemUnavailable = fmt.Errorf("%w: menu item is not available", shared.ErrValidation)
	ErrUnknownState    = fmt.Errorf("%w: unknown order state", shared.ErrValidation)
	ErrNegativeTotal   = fmt.Errorf("%w: total cannot be negative", shared.ErrValidation)
	ErrInvalidSince    = fmt.Errorf("%w: since must be an RFC 3339 timestamp", shared.ErrValidation)

	ErrTableInactive     = fmt.Errorf("%w: table is not active", shared.ErrInvalidState)
	ErrInvalidTransition = fmt.Errorf("%w: order state can only move forward", shared.ErrInvalidState)
	ErrSessionClosed     = fmt.Errorf("%w: session already closed", shared.ErrInvalidState)
	ErrNoActiveSession   = fmt.Errorf("%w: table has no active session", shared.ErrInvalidState)
	ErrOrderNotPending   = fmt.Errorf("%w: only pending orders can be deleted", shared.ErrInvalidState)
)
