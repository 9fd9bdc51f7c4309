package delivery

import (
	"fmt"

	"github.com/comanda-pos/comanda/internal/shared"
)

// Domain errors for deliveries.
var (
	ErrNotFound        = fmt.Errorf("%w: delivery", shared.ErrNotFound)
	ErrItemNotFound    = fmt.Errorf("%w: delivery item", shared.ErrNotFound)
	ErrCourierNotFound = fmt.Errorf("%w: courier", shared.ErrNotFound)
	ErrZoneNotFound    = fmt.Errorf("%w: delivery zone", shared.ErrNotFound)

	ErrNoItems          = fmt.Errorf("%w: at least one item is required", shared.ErrValidation)
	ErrInvalidQuantity  = fmt.Errorf("%w: quantity must be greater than zero", shared.ErrValidation)
	ErrNegativePrice    = fmt.Errorf("%w: unit price cannot be negative", shared.ErrValidation)
	ErrProductRequired  = fmt.Errorf("%w: product name is required", shared.ErrValidation)
	ErrItemUnavailable  = fmt.Errorf("%w: menu item is not available", shared.ErrValidation)
	ErrNegativeAmount   = fmt.Errorf("%w: fee and tip cannot be negative", shared.ErrValidation)
	ErrInvalidMethod    = fmt.Errorf("%w: unknown payment method", shared.ErrValidation)
	ErrUnknownState     = fmt.Errorf("%w: unknown delivery state", shared.ErrValidation)
	ErrUnknownKitchen   = fmt.Errorf("%w: kitchen state must be pendiente, preparando or listo", shared.ErrValidation)
	ErrReasonRequired   = fmt.Errorf("%w: a cancellation reason is required", shared.ErrValidation)
	ErrCancelViaCancel  = fmt.Errorf("%w: use the cancel operation with a reason", shared.ErrValidation)
	ErrCourierInactive  = fmt.Errorf("%w: courier is not active", shared.ErrValidation)
	ErrCustomerRequired = fmt.Errorf("%w: customer name, phone and address are required", shared.ErrValidation)

	ErrInvalidTransition = fmt.Errorf("%w: delivery state can only move forward", shared.ErrInvalidState)
	ErrAlreadyDelivered  = fmt.Errorf("%w: delivery already delivered", shared.ErrInvalidState)
	ErrCancelled         = fmt.Errorf("%w: delivery is cancelled", shared.ErrInvalidState)

	ErrEditDelivered = fmt.Errorf("%w: only administrators can edit a delivered order", shared.ErrPermission)
)
