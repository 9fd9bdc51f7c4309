package menu

import (
	"fmt"

	"github.com/comanda-pos/comanda/internal/shared"
)

var (
	// ErrItemNotFound indicates the menu item does not exist.
	ErrItemNotFound = fmt.Errorf("%w: menu item", shared.ErrNotFound)
	// ErrCategoryNotFound indicates the category does not exist.
	ErrCategoryNotFound = fmt.Errorf("%w: menu category", shared.ErrNotFound)
	// ErrCategoryInUse blocks deleting a category that still has items.
	ErrCategoryInUse = fmt.Errorf("%w: category still has items", shared.ErrInvalidState)
	// ErrNegativePrice rejects prices below zero.
	ErrNegativePrice = fmt.Errorf("%w: price cannot be negative", shared.ErrValidation)
	// ErrNameRequired rejects blank names.
	ErrNameRequired = fmt.Errorf("%w: name is required", shared.ErrValidation)
)
