package expenses

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus tracks whether an expense has been settled with the provider.
type PaymentStatus string

const (
	StatusPaid    PaymentStatus = "pagado"
	StatusPending PaymentStatus = "pendiente"
	StatusOverdue PaymentStatus = "vencido"
)

// IsValid reports whether s is a known payment status.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case StatusPaid, StatusPending, StatusOverdue:
		return true
	}
	return false
}

// Payment methods accepted for expenses.
const (
	MethodCash     = "efectivo"
	MethodCard     = "tarjeta"
	MethodTransfer = "transferencia"
)

func validMethod(m string) bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer:
		return true
	}
	return false
}

// Category groups expenses for reporting and budgeting.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Active      bool   `json:"active"`
}

// Provider is a supplier expenses can be attributed to.
type Provider struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	TaxID   string `json:"tax_id"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
	Active  bool   `json:"active"`
}

// Expense is an outgoing payment or a payable owed to a provider.
type Expense struct {
	ID            int64           `json:"id"`
	SpentAt       time.Time       `json:"spent_at"`
	Concept       string          `json:"concept"`
	Amount        decimal.Decimal `json:"amount"`
	CategoryID    int64           `json:"category_id"`
	CategoryName  string          `json:"category_name,omitempty"`
	CategoryColor string          `json:"category_color,omitempty"`
	ProviderID    *int64          `json:"provider_id,omitempty"`
	ProviderName  string          `json:"provider_name,omitempty"`
	UserID        *int64          `json:"user_id,omitempty"`
	PaymentMethod string          `json:"payment_method"`
	InvoiceNumber string          `json:"invoice_number"`
	Notes         string          `json:"notes"`
	Approved      bool            `json:"approved"`
	ApprovedAt    *time.Time      `json:"approved_at,omitempty"`
	ApprovedBy    *int64          `json:"approved_by,omitempty"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
}

// IsOverdue reports whether a pending expense is past its due date on today.
func (e Expense) IsOverdue(today time.Time) bool {
	return e.PaymentStatus == StatusPending && e.DueDate != nil && e.DueDate.Before(today)
}

// CategoryTotal aggregates expenses of one category.
type CategoryTotal struct {
	CategoryID int64           `json:"category_id"`
	Name       string          `json:"name"`
	Color      string          `json:"color"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
}

// Listing is a filtered expense list with its totals.
type Listing struct {
	From       time.Time       `json:"from"`
	To         time.Time       `json:"to"`
	Expenses   []Expense       `json:"expenses"`
	Total      decimal.Decimal `json:"total"`
	ByCategory []CategoryTotal `json:"by_category"`
}

// Filter narrows expense listings. Zero dates mean the current business day.
type Filter struct {
	From       time.Time
	To         time.Time
	CategoryID *int64
}

// ProviderBalance is what is owed to one provider.
type ProviderBalance struct {
	ProviderID *int64          `json:"provider_id,omitempty"`
	Name       string          `json:"name"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
}

// PayableFilter narrows the payables view. An empty status shows pending and overdue.
type PayableFilter struct {
	Status     PaymentStatus
	ProviderID *int64
}

// Payables summarises unpaid expenses.
type Payables struct {
	Expenses     []Expense         `json:"expenses"`
	TotalPending decimal.Decimal   `json:"total_pending"`
	TotalOverdue decimal.Decimal   `json:"total_overdue"`
	Total        decimal.Decimal   `json:"total"`
	ByProvider   []ProviderBalance `json:"by_provider"`
	Swept        int64             `json:"swept"`
}

// BudgetStatus is the consumption band of a budget.
type BudgetStatus string

const (
	BudgetNormal   BudgetStatus = "normal"
	BudgetAlerting BudgetStatus = "alerta"
	BudgetExceeded BudgetStatus = "excedido"
)

// PeriodMonthly is the only budget period.
const PeriodMonthly = "mensual"

// DefaultAlertPct is used when a budget is created without an alert threshold.
const DefaultAlertPct = 80

// Budget caps spending of a category for one month.
type Budget struct {
	ID            int64           `json:"id"`
	CategoryID    int64           `json:"category_id"`
	CategoryName  string          `json:"category_name,omitempty"`
	CategoryColor string          `json:"category_color,omitempty"`
	Limit         decimal.Decimal `json:"limit"`
	Period        string          `json:"period"`
	Month         int             `json:"month"`
	Year          int             `json:"year"`
	Active        bool            `json:"active"`
	AlertPct      int             `json:"alert_pct"`
	CreatedAt     time.Time       `json:"created_at"`
}

// BudgetUsage is a budget with its consumption for the month.
type BudgetUsage struct {
	Budget
	Consumed   decimal.Decimal `json:"consumed"`
	Percentage decimal.Decimal `json:"percentage"`
	Available  decimal.Decimal `json:"available"`
	Status     BudgetStatus    `json:"status"`
}

// BudgetOverview is the monthly budget board.
type BudgetOverview struct {
	Month          int             `json:"month"`
	Year           int             `json:"year"`
	Budgets        []BudgetUsage   `json:"budgets"`
	TotalLimit     decimal.Decimal `json:"total_limit"`
	TotalConsumed  decimal.Decimal `json:"total_consumed"`
	TotalAvailable decimal.Decimal `json:"total_available"`
	Alerts         int             `json:"alerts"`
	Exceeded       int             `json:"exceeded"`
}

// BudgetAlert is raised when an expense pushes a budget past its threshold.
type BudgetAlert struct {
	BudgetID     int64           `json:"budget_id"`
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Month        int             `json:"month"`
	Year         int             `json:"year"`
	Limit        decimal.Decimal `json:"limit"`
	Consumed     decimal.Decimal `json:"consumed"`
	Percentage   decimal.Decimal `json:"percentage"`
	Status       BudgetStatus    `json:"status"`
	Message      string          `json:"message"`
}

// Recorded is the outcome of recording an expense.
type Recorded struct {
	Expense Expense      `json:"expense"`
	Alert   *BudgetAlert `json:"alert,omitempty"`
}

// CopyResult reports a budget rollover.
type CopyResult struct {
	Month  int `json:"month"`
	Year   int `json:"year"`
	Copied int `json:"copied"`
}

// StaffMeal is a menu item consumed by staff, valued at cost.
type StaffMeal struct {
	ID         int64           `json:"id"`
	MenuItemID int64           `json:"menu_item_id"`
	ItemName   string          `json:"item_name"`
	Quantity   int             `json:"quantity"`
	Cost       decimal.Decimal `json:"cost"`
	ConsumedAt time.Time       `json:"consumed_at"`
	UserID     *int64          `json:"user_id,omitempty"`
	Username   string          `json:"username,omitempty"`
	Notes      string          `json:"notes"`
}

// StaffMealDay lists a business day of staff meals.
type StaffMealDay struct {
	Day       time.Time       `json:"day"`
	Meals     []StaffMeal     `json:"meals"`
	TotalCost decimal.Decimal `json:"total_cost"`
	Count     int             `json:"count"`
}

// ExpenseRequest creates or edits an expense.
type ExpenseRequest struct {
	SpentAt       *time.Time      `json:"spent_at"`
	Concept       string          `json:"concept" validate:"max=200"`
	Amount        decimal.Decimal `json:"amount"`
	CategoryID    int64           `json:"category_id" validate:"required,gt=0"`
	ProviderID    *int64          `json:"provider_id" validate:"omitempty,gt=0"`
	PaymentMethod string          `json:"payment_method"`
	InvoiceNumber string          `json:"invoice_number" validate:"max=60"`
	Notes         string          `json:"notes" validate:"max=500"`
	PaymentStatus PaymentStatus   `json:"payment_status" validate:"omitempty,oneof=pagado pendiente"`
	DueDate       *time.Time      `json:"due_date"`
}

// DueDateRequest sets the due date of a payable.
type DueDateRequest struct {
	DueDate time.Time `json:"due_date" validate:"required"`
}

// CategoryRequest creates or edits an expense category.
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=300"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
}

// ProviderRequest creates or edits a provider.
type ProviderRequest struct {
	Name    string `json:"name" validate:"required,max=150"`
	TaxID   string `json:"tax_id" validate:"max=30"`
	Phone   string `json:"phone" validate:"max=30"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address" validate:"max=200"`
	Notes   string `json:"notes" validate:"max=500"`
}

// BudgetRequest creates a budget.
type BudgetRequest struct {
	CategoryID int64           `json:"category_id" validate:"required,gt=0"`
	Limit      decimal.Decimal `json:"limit"`
	Month      int             `json:"month" validate:"required,min=1,max=12"`
	Year       int             `json:"year" validate:"required,min=2000,max=2100"`
	AlertPct   int             `json:"alert_pct" validate:"omitempty,min=1,max=100"`
}

// BudgetUpdateRequest edits the limit and threshold of a budget.
type BudgetUpdateRequest struct {
	Limit    decimal.Decimal `json:"limit"`
	AlertPct int             `json:"alert_pct" validate:"omitempty,min=1,max=100"`
}

// StaffMealRequest records a staff meal. Cost defaults to quantity times the menu price.
type StaffMealRequest struct {
	MenuItemID int64            `json:"menu_item_id" validate:"required,gt=0"`
	Quantity   int              `json:"quantity"`
	Cost       *decimal.Decimal `json:"cost"`
	UserID     *int64           `json:"user_id" validate:"omitempty,gt=0"`
	Notes      string           `json:"notes" validate:"max=300"`
}
