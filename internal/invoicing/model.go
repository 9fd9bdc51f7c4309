// Package invoicing settles dine-in sessions and deliveries into numbered
// invoices and tracks what customers still owe.
package invoicing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/settings"
)

// PaymentStatus tracks settlement of an invoice.
type PaymentStatus string

const (
	StatusPaid    PaymentStatus = "pagada"
	StatusPending PaymentStatus = "pendiente"
	StatusOverdue PaymentStatus = "vencida"
)

// IsValid checks if the status is known.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case StatusPaid, StatusPending, StatusOverdue:
		return true
	default:
		return false
	}
}

// IsOpen reports whether money is still owed.
func (s PaymentStatus) IsOpen() bool {
	return s == StatusPending || s == StatusOverdue
}

// PaymentMethod is how the customer paid.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "efectivo"
	MethodCard     PaymentMethod = "tarjeta"
	MethodTransfer PaymentMethod = "transferencia"
	MethodMixed    PaymentMethod = "mixto"
)

// IsValid checks if the method is known.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer, MethodMixed:
		return true
	default:
		return false
	}
}

// Breakdown splits a mixed payment.
type Breakdown struct {
	Cash     decimal.Decimal `json:"efectivo"`
	Card     decimal.Decimal `json:"tarjeta"`
	Transfer decimal.Decimal `json:"transferencia"`
}

// Sum adds the three parts.
func (b Breakdown) Sum() decimal.Decimal {
	return b.Cash.Add(b.Card).Add(b.Transfer)
}

// Invoice is the settlement record of a session or a delivery.
type Invoice struct {
	ID               int64           `json:"id"`
	Number           string          `json:"number"`
	SessionID        *int64          `json:"session_id,omitempty"`
	DeliveryID       *int64          `json:"delivery_id,omitempty"`
	IssuedAt         time.Time       `json:"issued_at"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Tax              decimal.Decimal `json:"tax"`
	Tip              decimal.Decimal `json:"tip"`
	Total            decimal.Decimal `json:"total"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	Breakdown        *Breakdown      `json:"payment_breakdown,omitempty"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	DueDate          *time.Time      `json:"due_date,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	Outstanding      decimal.Decimal `json:"outstanding"`
	CustomerName     string          `json:"customer_name"`
	CustomerDocument string          `json:"customer_document"`
	Notes            string          `json:"notes"`
	CreatedBy        *int64          `json:"created_by,omitempty"`
}

// Origin names what the invoice settles.
func (i Invoice) Origin() string {
	if i.DeliveryID != nil {
		return "delivery"
	}
	return "session"
}

// AmountPaid is what has been collected so far.
func (i Invoice) AmountPaid() decimal.Decimal {
	return i.Total.Sub(i.Outstanding)
}

// Detail is an invoice with the restaurant profile to print on it.
type Detail struct {
	Invoice    Invoice          `json:"invoice"`
	Restaurant settings.Profile `json:"restaurant"`
}

// DeliverySnapshot is the part of a delivery that invoicing reads.
type DeliverySnapshot struct {
	ID            int64
	Subtotal      decimal.Decimal
	Fee           decimal.Decimal
	PaymentMethod PaymentMethod
	CustomerName  string
	Cancelled     bool
	InvoiceID     *int64
}

// SessionInvoiceRequest settles a dine-in session.
type SessionInvoiceRequest struct {
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	Breakdown        *Breakdown      `json:"payment_breakdown,omitempty"`
	Tip              decimal.Decimal `json:"tip"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	DueDate          string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	CustomerName     string          `json:"customer_name" validate:"max=150"`
	CustomerDocument string          `json:"customer_document" validate:"max=50"`
	Notes            string          `json:"notes" validate:"max=500"`
}

// DeliveryInvoiceRequest settles a delivery.
type DeliveryInvoiceRequest struct {
	Tip           decimal.Decimal `json:"tip"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	DueDate       string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Notes         string          `json:"notes" validate:"max=500"`
}

// UpdateRequest edits an issued invoice.
type UpdateRequest struct {
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	Breakdown        *Breakdown      `json:"payment_breakdown,omitempty"`
	Tip              decimal.Decimal `json:"tip"`
	DueDate          string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	CustomerName     string          `json:"customer_name" validate:"max=150"`
	CustomerDocument string          `json:"customer_document" validate:"max=50"`
	Notes            string          `json:"notes" validate:"max=500"`
}

// PaymentRequest records money received. A zero amount settles the balance.
type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// CustomerBalance groups open invoices by customer name.
type CustomerBalance struct {
	Customer string          `json:"customer"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// Receivables is the accounts receivable view.
type Receivables struct {
	Invoices     []Invoice         `json:"invoices"`
	TotalPending decimal.Decimal   `json:"total_pending"`
	TotalOverdue decimal.Decimal   `json:"total_overdue"`
	Total        decimal.Decimal   `json:"total"`
	ByCustomer   []CustomerBalance `json:"by_customer"`
	Summary      string            `json:"summary"`
}
