package expenses

import (
	"fmt"

	"github.com/comanda-pos/comanda/internal/shared"
)

// Domain errors for expenses, payables and budgets.
var (
	ErrNotFound         = fmt.Errorf("%w: expense", shared.ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("%w: expense category", shared.ErrNotFound)
	ErrProviderNotFound = fmt.Errorf("%w: provider", shared.ErrNotFound)
	ErrBudgetNotFound   = fmt.Errorf("%w: budget", shared.ErrNotFound)

	ErrConceptRequired  = fmt.Errorf("%w: concept is required", shared.ErrValidation)
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be greater than zero", shared.ErrValidation)
	ErrInvalidMethod    = fmt.Errorf("%w: payment method must be efectivo, tarjeta or transferencia", shared.ErrValidation)
	ErrInvalidStatus    = fmt.Errorf("%w: unknown payment status", shared.ErrValidation)
	ErrCategoryInactive = fmt.Errorf("%w: category is not active", shared.ErrValidation)
	ErrProviderInactive = fmt.Errorf("%w: provider is not active", shared.ErrValidation)
	ErrInvalidLimit     = fmt.Errorf("%w: budget limit must be greater than zero", shared.ErrValidation)
	ErrInvalidPeriod    = fmt.Errorf("%w: budget month or year out of range", shared.ErrValidation)
	ErrInvalidAlertPct  = fmt.Errorf("%w: alert percentage must be between 1 and 100", shared.ErrValidation)
	ErrInvalidQuantity  = fmt.Errorf("%w: quantity must be greater than zero", shared.ErrValidation)
	ErrNegativeCost     = fmt.Errorf("%w: cost cannot be negative", shared.ErrValidation)
	ErrNameRequired     = fmt.Errorf("%w: name is required", shared.ErrValidation)
	ErrDueDateRequired  = fmt.Errorf("%w: due date is required", shared.ErrValidation)

	ErrAlreadyPaid       = fmt.Errorf("%w: expense already paid", shared.ErrInvalidState)
	ErrAlreadyApproved   = fmt.Errorf("%w: expense already approved", shared.ErrInvalidState)
	ErrBudgetExists      = fmt.Errorf("%w: an active budget already exists for this category and month", shared.ErrInvalidState)
	ErrBudgetInactive    = fmt.Errorf("%w: budget is not active", shared.ErrInvalidState)
	ErrNothingToCopy     = fmt.Errorf("%w: no active budgets in the current month", shared.ErrInvalidState)
	ErrTargetHasBudgets  = fmt.Errorf("%w: the next month already has active budgets", shared.ErrInvalidState)
	ErrPaidDueDateChange = fmt.Errorf("%w: paid expenses have no due date to change", shared.ErrInvalidState)

	ErrNotOwner = fmt.Errorf("%w: only the author or an administrator can edit this expense", shared.ErrPermission)
)
