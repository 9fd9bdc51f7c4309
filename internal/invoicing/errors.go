package invoicing

import (
	"fmt"

	"github.com/comanda-pos/comanda/internal/shared"
)

// Domain errors for invoicing.
var (
	ErrNotFound         = fmt.Errorf("%w: invoice", shared.ErrNotFound)
	ErrSessionNotFound  = fmt.Errorf("%w: session", shared.ErrNotFound)
	ErrDeliveryNotFound = fmt.Errorf("%w: delivery", shared.ErrNotFound)

	ErrInvalidMethod      = fmt.Errorf("%w: unknown payment method", shared.ErrValidation)
	ErrInvalidStatus      = fmt.Errorf("%w: payment status must be pagada or pendiente", shared.ErrValidation)
	ErrNegativeTip        = fmt.Errorf("%w: tip cannot be negative", shared.ErrValidation)
	ErrBreakdownRequired  = fmt.Errorf("%w: mixed payment needs a breakdown", shared.ErrValidation)
	ErrBreakdownMismatch  = fmt.Errorf("%w: payment breakdown must add up to the total", shared.ErrValidation)
	ErrInvalidAmount      = fmt.Errorf("%w: payment amount must be positive", shared.ErrValidation)
	ErrAmountExceeds      = fmt.Errorf("%w: payment exceeds the outstanding balance", shared.ErrValidation)
	ErrInvalidDueDate     = fmt.Errorf("%w: due date must be YYYY-MM-DD", shared.ErrValidation)
	ErrMalformedNumber    = fmt.Errorf("%w: malformed invoice number", shared.ErrValidation)
	ErrInvalidStatusQuery = fmt.Errorf("%w: unknown status filter", shared.ErrValidation)

	ErrAlreadyInvoiced   = fmt.Errorf("%w: already invoiced", shared.ErrInvalidState)
	ErrSessionClosed     = fmt.Errorf("%w: session is not active", shared.ErrInvalidState)
	ErrDeliveryCancelled = fmt.Errorf("%w: cancelled deliveries cannot be invoiced", shared.ErrInvalidState)
	ErrAlreadyPaid       = fmt.Errorf("%w: invoice already paid", shared.ErrInvalidState)
	ErrTableReoccupied   = fmt.Errorf("%w: table has a new active session, close it before deleting this invoice", shared.ErrInvalidState)
)
