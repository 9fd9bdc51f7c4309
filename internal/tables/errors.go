package tables

import (
	"fmt"

	"github.com/comanda-pos/comanda/internal/shared"
)

var (
	// ErrInvalidNumber rejects non-positive table numbers.
	ErrInvalidNumber = fmt.Errorf("%w: table number must be positive", shared.ErrValidation)
	// ErrInvalidCapacity rejects non-positive capacities.
	ErrInvalidCapacity = fmt.Errorf("%w: capacity must be positive", shared.ErrValidation)
	// ErrDuplicateNumber is returned when another table already uses the number.
	ErrDuplicateNumber = fmt.Errorf("%w: table number already exists", shared.ErrValidation)
	// ErrHasHistory blocks deleting a table that orders reference.
	ErrHasHistory = fmt.Errorf("%w: table has orders and cannot be deleted, deactivate it instead", shared.ErrInvalidState)
	// ErrNotFound indicates the table does not exist.
	ErrNotFound = fmt.Errorf("%w: table", shared.ErrNotFound)
)
