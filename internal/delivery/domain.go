// Package delivery runs off-premise orders: intake, kitchen preparation,
// dispatch with a courier and the delivery zones that price the trip.
package delivery

import (
	"time"

	"github.com/shopspring/decimal"
)

// State is the lifecycle of a delivery.
type State string

const (
	StatePending   State = "pendiente"
	StatePreparing State = "preparando"
	StateReady     State = "listo"
	StateEnRoute   State = "en_camino"
	StateDelivered State = "entregado"
	StateCancelled State = "cancelado"
)

var stateRank = map[State]int{
	StatePending:   0,
	StatePreparing: 1,
	StateReady:     2,
	StateEnRoute:   3,
	StateDelivered: 4,
}

// IsValid checks if the state is known.
func (s State) IsValid() bool {
	_, ok := stateRank[s]
	return ok || s == StateCancelled
}

// IsTerminal reports whether no further change is possible.
func (s State) IsTerminal() bool {
	return s == StateDelivered || s == StateCancelled
}

// CanAdvanceTo reports whether next lies strictly ahead of s on the delivery path.
// Cancellation is not part of the path.
func (s State) CanAdvanceTo(next State) bool {
	from, ok := stateRank[s]
	if !ok {
		return false
	}
	to, ok := stateRank[next]
	return ok && to > from
}

// CanCancel reports whether the delivery may still be cancelled.
func (s State) CanCancel() bool {
	return !s.IsTerminal()
}

// KitchenState tracks preparation of a single delivery item.
type KitchenState string

const (
	KitchenPending   KitchenState = "pendiente"
	KitchenPreparing KitchenState = "preparando"
	KitchenReady     KitchenState = "listo"
)

// IsValid checks if the kitchen state is known.
func (k KitchenState) IsValid() bool {
	switch k {
	case KitchenPending, KitchenPreparing, KitchenReady:
		return true
	default:
		return false
	}
}

// Payment methods accepted on a delivery.
const (
	MethodCash     = "efectivo"
	MethodCard     = "tarjeta"
	MethodTransfer = "transferencia"
	MethodMixed    = "mixto"
)

func validMethod(m string) bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer, MethodMixed:
		return true
	default:
		return false
	}
}

// Delivery is an off-premise order.
type Delivery struct {
	ID                   int64           `json:"id"`
	CustomerName         string          `json:"customer_name"`
	CustomerPhone        string          `json:"customer_phone"`
	CustomerAddress      string          `json:"customer_address"`
	CustomerNeighborhood string          `json:"customer_neighborhood"`
	CustomerReferences   string          `json:"customer_references"`
	OrderedAt            time.Time       `json:"ordered_at"`
	EstimatedAt          *time.Time      `json:"estimated_at,omitempty"`
	DeliveredAt          *time.Time      `json:"delivered_at,omitempty"`
	State                State           `json:"state"`
	Subtotal             decimal.Decimal `json:"subtotal"`
	Fee                  decimal.Decimal `json:"delivery_fee"`
	Tip                  decimal.Decimal `json:"tip"`
	Total                decimal.Decimal `json:"total"`
	PaymentMethod        string          `json:"payment_method"`
	Paid                 bool            `json:"paid"`
	TakenBy              *int64          `json:"taken_by,omitempty"`
	CourierID            *int64          `json:"courier_id,omitempty"`
	CourierName          string          `json:"courier_name"`
	InvoiceID            *int64          `json:"invoice_id,omitempty"`
	Notes                string          `json:"notes"`
	CancelReason         string          `json:"cancel_reason,omitempty"`
	StateUpdatedAt       time.Time       `json:"state_updated_at"`
	Items                []Item          `json:"items"`
}

// Recompute derives subtotal from the items and total from subtotal, fee and tip.
func (d *Delivery) Recompute() {
	subtotal := decimal.Zero
	for _, it := range d.Items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	d.Subtotal = subtotal
	d.Total = subtotal.Add(d.Fee).Add(d.Tip)
}

// AllItemsReady reports whether the kitchen finished every item.
func (d Delivery) AllItemsReady() bool {
	if len(d.Items) == 0 {
		return false
	}
	for _, it := range d.Items {
		if it.KitchenState != KitchenReady {
			return false
		}
	}
	return true
}

// Item is a line of a delivery.
type Item struct {
	ID           int64           `json:"id"`
	DeliveryID   int64           `json:"delivery_id"`
	MenuItemID   *int64          `json:"menu_item_id,omitempty"`
	ProductName  string          `json:"product_name"`
	Quantity     int64           `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Notes        string          `json:"notes"`
	KitchenState KitchenState    `json:"kitchen_state"`
}

// LineTotal is quantity times unit price.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// View decorates a delivery with the figures the dispatch screens show.
type View struct {
	Delivery
	Elapsed string `json:"elapsed"`
	Late    bool   `json:"late"`
	Color   string `json:"color"`
}

// Courier delivers orders.
type Courier struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Plate       string `json:"plate"`
	VehicleType string `json:"vehicle_type"`
	Active      bool   `json:"active"`
}

// Zone prices deliveries to a set of neighborhoods.
type Zone struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Neighborhoods string          `json:"neighborhoods"`
	Fee           decimal.Decimal `json:"fee"`
	ETAMinutes    int             `json:"eta_minutes"`
	Active        bool            `json:"active"`
	Order         int             `json:"order"`
}

// Quote is the fee and estimated time for a neighborhood.
type Quote struct {
	Matched    bool            `json:"matched"`
	Zone       string          `json:"zone,omitempty"`
	Fee        decimal.Decimal `json:"fee"`
	ETAMinutes int             `json:"eta_minutes"`
}

// Filter narrows a delivery listing.
type Filter struct {
	Day   time.Time
	State State
}

// ItemRequest is a delivery line. A menu item reference fixes name and price.
type ItemRequest struct {
	MenuItemID  *int64          `json:"menu_item_id,omitempty"`
	ProductName string          `json:"product_name" validate:"max=200"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Notes       string          `json:"notes" validate:"max=500"`
}

// CreateRequest takes a new delivery order.
type CreateRequest struct {
	CustomerName         string           `json:"customer_name" validate:"required,max=200"`
	CustomerPhone        string           `json:"customer_phone" validate:"required,max=50"`
	CustomerAddress      string           `json:"customer_address" validate:"required,max=300"`
	CustomerNeighborhood string           `json:"customer_neighborhood" validate:"max=100"`
	CustomerReferences   string           `json:"customer_references" validate:"max=500"`
	Fee                  *decimal.Decimal `json:"delivery_fee,omitempty"`
	Tip                  decimal.Decimal  `json:"tip"`
	PaymentMethod        string           `json:"payment_method"`
	CourierID            *int64           `json:"courier_id,omitempty"`
	Notes                string           `json:"notes" validate:"max=1000"`
	Items                []ItemRequest    `json:"items" validate:"required,min=1,dive"`
}

// UpdateRequest edits customer data and charges of a delivery.
type UpdateRequest struct {
	CustomerName         string          `json:"customer_name" validate:"required,max=200"`
	CustomerPhone        string          `json:"customer_phone" validate:"required,max=50"`
	CustomerAddress      string          `json:"customer_address" validate:"required,max=300"`
	CustomerNeighborhood string          `json:"customer_neighborhood" validate:"max=100"`
	CustomerReferences   string          `json:"customer_references" validate:"max=500"`
	Fee                  decimal.Decimal `json:"delivery_fee"`
	Tip                  decimal.Decimal `json:"tip"`
	PaymentMethod        string          `json:"payment_method"`
	Notes                string          `json:"notes" validate:"max=1000"`
}

// TransitionRequest moves a delivery forward, optionally assigning a courier.
type TransitionRequest struct {
	State     State  `json:"state" validate:"required"`
	CourierID *int64 `json:"courier_id,omitempty"`
}

// CancelRequest cancels a delivery.
type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// CourierAssignment sets the courier of a delivery.
type CourierAssignment struct {
	CourierID int64 `json:"courier_id" validate:"required,gt=0"`
}

// ItemStateRequest sets the kitchen state of an item.
type ItemStateRequest struct {
	State KitchenState `json:"state" validate:"required"`
}

// ItemStateResult reports an item update and whether it promoted its delivery.
type ItemStateResult struct {
	Item     Item     `json:"item"`
	Delivery Delivery `json:"delivery"`
	Promoted bool     `json:"promoted"`
}

// CourierRequest creates or replaces a courier.
type CourierRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Phone       string `json:"phone" validate:"max=50"`
	Plate       string `json:"plate" validate:"max=20"`
	VehicleType string `json:"vehicle_type" validate:"omitempty,oneof=moto bicicleta carro"`
}

// ZoneRequest creates or replaces a zone.
type ZoneRequest struct {
	Name          string          `json:"name" validate:"required,max=100"`
	Neighborhoods string          `json:"neighborhoods" validate:"max=2000"`
	Fee           decimal.Decimal `json:"fee"`
	ETAMinutes    int             `json:"eta_minutes" validate:"gte=0,lte=600"`
	Order         int             `json:"order" validate:"gte=0"`
}

// QuoteRequest asks for the fee of a neighborhood.
type QuoteRequest struct {
	Neighborhood string `json:"neighborhood" validate:"max=100"`
}
