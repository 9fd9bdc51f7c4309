package reports

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/shared"
)

// ErrInvalidRange is returned when the report range is inverted or too long.
var ErrInvalidRange = fmt.Errorf("%w: invalid report date range", shared.ErrValidation)

// MaxRangeDays bounds the financial report range.
const MaxRangeDays = 366

// DayAmount is an aggregate for one business day.
type DayAmount struct {
	Day    time.Time
	Amount decimal.Decimal
	Count  int
}

// CategoryTotal is the spending of one expense category.
type CategoryTotal struct {
	CategoryID int64           `json:"category_id"`
	Name       string          `json:"name"`
	Color      string          `json:"color"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
}

// DayPoint is one day of the financial evolution.
type DayPoint struct {
	Day      time.Time       `json:"day"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Profit   decimal.Decimal `json:"profit"`
}

// Summary holds the headline figures formatted for display.
type Summary struct {
	Income   string `json:"income"`
	Expenses string `json:"expenses"`
	Profit   string `json:"profit"`
	Margin   string `json:"margin"`
	Invoices string `json:"invoices"`
}

// Financial is the income versus expenses report of a business-day range.
type Financial struct {
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	Income       decimal.Decimal `json:"income"`
	Expenses     decimal.Decimal `json:"expenses"`
	Profit       decimal.Decimal `json:"profit"`
	MarginPct    decimal.Decimal `json:"margin_pct"`
	InvoiceCount int             `json:"invoice_count"`
	ExpenseCount int             `json:"expense_count"`
	ByCategory   []CategoryTotal `json:"by_category"`
	Daily        []DayPoint      `json:"daily"`
	Summary      Summary         `json:"summary"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// Dashboard is the live snapshot of the current business day.
type Dashboard struct {
	Day              time.Time       `json:"day"`
	Sales            decimal.Decimal `json:"sales"`
	InvoiceCount     int             `json:"invoice_count"`
	Expenses         decimal.Decimal `json:"expenses"`
	OpenTables       int             `json:"open_tables"`
	PendingKitchen   int             `json:"pending_kitchen"`
	ActiveDeliveries int             `json:"active_deliveries"`
	SalesLabel       string          `json:"sales_label"`
}
