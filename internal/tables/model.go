// Package tables manages the physical seating units of the dining room.
package tables

import (
	"github.com/shopspring/decimal"
)

// Table is a physical seating unit.
type Table struct {
	ID       int64 `json:"id"`
	Number   int   `json:"number"`
	Capacity int   `json:"capacity"`
	Active   bool  `json:"active"`
}

// Overview is a table row enriched with its live occupancy.
type Overview struct {
	Table
	Occupied  bool            `json:"occupied"`
	SessionID *int64          `json:"session_id,omitempty"`
	OpenTotal decimal.Decimal `json:"open_total"`
}

// CreateRequest carries a new table definition.
type CreateRequest struct {
	Number   int `json:"number" validate:"required,gt=0"`
	Capacity int `json:"capacity" validate:"required,gt=0"`
}
