// Package dining runs the dine-in floor: table sessions, order lines and the
// kitchen and waiter feeds built on them.
package dining

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/shared"
)

// OrderState is the kitchen state of an order line.
type OrderState string

const (
	StatePending   OrderState = "pendiente"
	StatePreparing OrderState = "preparando"
	StateReady     OrderState = "listo"
	StateDelivered OrderState = "entregado"
)

var stateRank = map[OrderState]int{
	StatePending:   0,
	StatePreparing: 1,
	StateReady:     2,
	StateDelivered: 3,
}

// IsValid checks if the state is known.
func (s OrderState) IsValid() bool {
	_, ok := stateRank[s]
	return ok
}

// CanAdvanceTo reports whether next lies strictly ahead of s.
func (s OrderState) CanAdvanceTo(next OrderState) bool {
	from, ok := stateRank[s]
	if !ok {
		return false
	}
	to, ok := stateRank[next]
	return ok && to > from
}

// Session is one continuous occupancy of a table.
type Session struct {
	ID          int64           `json:"id"`
	TableID     int64           `json:"table_id"`
	TableNumber int             `json:"table_number"`
	StartedAt   time.Time       `json:"started_at"`
	EndedAt     *time.Time      `json:"ended_at,omitempty"`
	Total       decimal.Decimal `json:"total"`
	Active      bool            `json:"active"`
}

// Order is a single product line of a session.
type Order struct {
	ID                 int64           `json:"id"`
	SessionID          int64           `json:"session_id"`
	TableID            int64           `json:"table_id"`
	MenuItemID         *int64          `json:"menu_item_id,omitempty"`
	ProductName        string          `json:"product_name"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	Notes              string          `json:"notes"`
	State              OrderState      `json:"state"`
	Paid               bool            `json:"paid"`
	CreatedBy          *int64          `json:"created_by,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	StateUpdatedAt     time.Time       `json:"state_updated_at"`
	StateUpdatedByRole shared.Role     `json:"state_updated_by_role"`
}

// Total is quantity × unit price, always recomputed.
func (o Order) Total() decimal.Decimal {
	return o.UnitPrice.Mul(decimal.NewFromInt(int64(o.Quantity)))
}

// SumOrders adds the line totals of orders.
func SumOrders(orders []Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.Total())
	}
	return total
}

// OrderView adds the derived line total for JSON output.
type OrderView struct {
	Order
	LineTotal decimal.Decimal `json:"total"`
}

// Views converts orders to their JSON shape.
func Views(orders []Order) []OrderView {
	out := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, OrderView{Order: o, LineTotal: o.Total()})
	}
	return out
}

// Summary is a session with its orders and recomputed subtotal.
type Summary struct {
	Session  Session         `json:"session"`
	Orders   []OrderView     `json:"orders"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// KitchenOrder is an order line on the kitchen screen.
type KitchenOrder struct {
	Order
	TableNumber int `json:"table_number"`
}

// KitchenQueue lists open kitchen work of the current business day.
type KitchenQueue struct {
	Orders    []KitchenOrder `json:"orders"`
	Pending   int            `json:"pending"`
	Preparing int            `json:"preparing"`
}

// Notification reports an order that became ready.
type Notification struct {
	OrderID       int64       `json:"order_id"`
	TableNumber   int         `json:"table_number"`
	ProductName   string      `json:"product_name"`
	Quantity      int         `json:"quantity"`
	UpdatedAt     time.Time   `json:"updated_at"`
	UpdatedByRole shared.Role `json:"-"`
}

// HistoryEntry is a closed session of a business day.
type HistoryEntry struct {
	Session       Session `json:"session"`
	OrderCount    int     `json:"order_count"`
	InvoiceID     *int64  `json:"invoice_id,omitempty"`
	InvoiceNumber *string `json:"invoice_number,omitempty"`
}

// History aggregates closed sessions of a business day.
type History struct {
	Day              time.Time       `json:"day"`
	Sessions         []HistoryEntry  `json:"sessions"`
	Total            decimal.Decimal `json:"total"`
	TotalInvoiced    decimal.Decimal `json:"total_invoiced"`
	TotalNotInvoiced decimal.Decimal `json:"total_not_invoiced"`
}

// OrderLineRequest describes one line of a new order.
type OrderLineRequest struct {
	MenuItemID  *int64          `json:"menu_item_id,omitempty"`
	ProductName string          `json:"product_name" validate:"max=150"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Notes       string          `json:"notes" validate:"max=500"`
}

// PlaceOrderRequest adds lines to a table's active session.
type PlaceOrderRequest struct {
	TableID int64              `json:"table_id" validate:"required,gt=0"`
	Items   []OrderLineRequest `json:"items" validate:"required,min=1,dive"`
}

// PlaceOrderResult is the session that received the new lines.
type PlaceOrderResult struct {
	Session Session     `json:"session"`
	Orders  []OrderView `json:"orders"`
}

// StateRequest asks for an order state transition.
type StateRequest struct {
	State OrderState `json:"state" validate:"required"`
}

// PaidRequest sets the paid flag of an order.
type PaidRequest struct {
	Paid bool `json:"paid"`
}

// CloseRequest closes a session with a frozen total.
type CloseRequest struct {
	Total decimal.Decimal `json:"total"`
}
