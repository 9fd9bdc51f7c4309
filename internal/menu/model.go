// Package menu manages the restaurant menu: categories and priced items.
package menu

import "github.com/shopspring/decimal"

// Category groups menu items.
type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// Item is a sellable product.
type Item struct {
	ID          int64           `json:"id"`
	CategoryID  int64           `json:"category_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Available   bool            `json:"available"`
	ImageURL    string          `json:"image_url"`
	Order       int             `json:"order"`
}

// Section is a category with its items, used by the public menu.
type Section struct {
	Category
	Items []Item `json:"items"`
}

// CategoryRequest creates a category.
type CategoryRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Order int    `json:"order" validate:"gte=0"`
}

// ItemRequest creates or replaces an item.
type ItemRequest struct {
	CategoryID  int64           `json:"category_id" validate:"required,gt=0"`
	Name        string          `json:"name" validate:"required,max=150"`
	Description string          `json:"description" validate:"max=500"`
	Price       decimal.Decimal `json:"price"`
	Available   *bool           `json:"available,omitempty"`
	ImageURL    string          `json:"image_url" validate:"max=500"`
	Order       int             `json:"order" validate:"gte=0"`
}
