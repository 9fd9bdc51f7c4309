// Package settings holds the restaurant profile printed on invoices and reports.
package settings

import (
	"time"

	"github.com/shopspring/decimal"
)

// Profile is the single restaurant configuration record.
type Profile struct {
	Name           string          `json:"name"`
	TaxID          string          `json:"tax_id"`
	Address        string          `json:"address"`
	City           string          `json:"city"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email"`
	Regime         string          `json:"regime"`
	DianResolution string          `json:"dian_resolution"`
	InvoiceRange   string          `json:"invoice_range"`
	VATPct         decimal.Decimal `json:"vat_pct"`
	LogoURL        string          `json:"logo_url"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// UpdateRequest replaces the editable profile fields.
type UpdateRequest struct {
	Name           string          `json:"name" validate:"required,max=150"`
	TaxID          string          `json:"tax_id" validate:"required,max=50"`
	Address        string          `json:"address" validate:"required,max=200"`
	City           string          `json:"city" validate:"required,max=100"`
	Phone          string          `json:"phone" validate:"max=50"`
	Email          string          `json:"email" validate:"omitempty,email"`
	Regime         string          `json:"regime" validate:"max=100"`
	DianResolution string          `json:"dian_resolution" validate:"max=200"`
	InvoiceRange   string          `json:"invoice_range" validate:"max=100"`
	VATPct         decimal.Decimal `json:"vat_pct"`
	LogoURL        string          `json:"logo_url" validate:"max=500"`
}
