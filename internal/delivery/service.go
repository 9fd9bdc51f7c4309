package delivery

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/menu"
	"github.com/comanda-pos/comanda/internal/shared"
)

// MenuCatalog resolves menu items referenced by delivery lines.
type MenuCatalog interface {
	Item(ctx context.Context, id int64) (menu.Item, error)
}

// EnRouteNotice is what the customer is told when the order leaves.
type EnRouteNotice struct {
	DeliveryID    int64
	CustomerName  string
	CustomerPhone string
	CourierName   string
	EstimatedAt   *time.Time
}

// Notifier hands customer notifications to the background worker.
type Notifier interface {
	CustomerEnRoute(ctx context.Context, n EnRouteNotice) error
}

// Recorder receives delivery counters.
type Recorder interface {
	DeliveryTransition(state string)
}

// Config carries the delivery parameters.
type Config struct {
	DefaultFee decimal.Decimal
	DefaultETA int
	LateAfter  time.Duration
	CutoffHour int
	Location   *time.Location
}

// Service is the delivery lifecycle manager.
type Service struct {
	repo     Repository
	catalog  MenuCatalog
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
	notifier Notifier
	metrics  Recorder
}

// NewService constructs a Service.
func NewService(repo Repository, catalog MenuCatalog, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultETA <= 0 {
		cfg.DefaultETA = 30
	}
	if cfg.LateAfter <= 0 {
		cfg.LateAfter = DefaultLateAfter
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Service{repo: repo, catalog: catalog, cfg: cfg, logger: logger, now: time.Now}
}

// SetNotifier sets the customer notifier.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// SetMetrics sets the counters recorder.
func (s *Service) SetMetrics(m Recorder) { s.metrics = m }

func (s *Service) resolveItems(ctx context.Context, reqs []ItemRequest) ([]Item, error) {
	if len(reqs) == 0 {
		return nil, ErrNoItems
	}
	out := make([]Item, 0, len(reqs))
	for _, r := range reqs {
		if r.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		it := Item{
			MenuItemID:   r.MenuItemID,
			ProductName:  strings.TrimSpace(r.ProductName),
			Quantity:     r.Quantity,
			UnitPrice:    r.UnitPrice,
			Notes:        strings.TrimSpace(r.Notes),
			KitchenState: KitchenPending,
		}
		if r.MenuItemID != nil && s.catalog != nil {
			m, err := s.catalog.Item(ctx, *r.MenuItemID)
			if err != nil {
				return nil, err
			}
			if !m.Available {
				return nil, ErrItemUnavailable
			}
			it.ProductName = m.Name
			it.UnitPrice = m.Price
		}
		if it.ProductName == "" {
			return nil, ErrProductRequired
		}
		if it.UnitPrice.IsNegative() {
			return nil, ErrNegativePrice
		}
		out = append(out, it)
	}
	return out, nil
}

func normalizeMethod(m string) (string, error) {
	m = strings.ToLower(strings.TrimSpace(m))
	if m == "" {
		return MethodCash, nil
	}
	if !validMethod(m) {
		return "", ErrInvalidMethod
	}
	return m, nil
}

func (s *Service) checkCourier(ctx context.Context, id int64) (Courier, error) {
	c, err := s.repo.GetCourier(ctx, id)
	if err != nil {
		return Courier{}, err
	}
	if !c.Active {
		return Courier{}, ErrCourierInactive
	}
	return c, nil
}

// Create takes a new delivery. The fee comes from the request or, when omitted,
// from the zone of the customer's neighborhood.
func (s *Service) Create(ctx context.Context, actor shared.Actor, req CreateRequest) (Delivery, error) {
	items, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		return Delivery{}, err
	}
	method, err := normalizeMethod(req.PaymentMethod)
	if err != nil {
		return Delivery{}, err
	}
	if req.Tip.IsNegative() || (req.Fee != nil && req.Fee.IsNegative()) {
		return Delivery{}, ErrNegativeAmount
	}
	d := Delivery{
		CustomerName:         strings.TrimSpace(req.CustomerName),
		CustomerPhone:        strings.TrimSpace(req.CustomerPhone),
		CustomerAddress:      strings.TrimSpace(req.CustomerAddress),
		CustomerNeighborhood: strings.TrimSpace(req.CustomerNeighborhood),
		CustomerReferences:   strings.TrimSpace(req.CustomerReferences),
		State:                StatePending,
		Tip:                  req.Tip,
		PaymentMethod:        method,
		Notes:                strings.TrimSpace(req.Notes),
		Items:                items,
	}
	if d.CustomerName == "" || d.CustomerPhone == "" || d.CustomerAddress == "" {
		return Delivery{}, ErrCustomerRequired
	}
	if req.CourierID != nil {
		c, err := s.checkCourier(ctx, *req.CourierID)
		if err != nil {
			return Delivery{}, err
		}
		d.CourierID, d.CourierName = &c.ID, c.Name
	}

	quote, err := s.QuoteFee(ctx, d.CustomerNeighborhood)
	if err != nil {
		return Delivery{}, err
	}
	d.Fee = quote.Fee
	if req.Fee != nil {
		d.Fee = *req.Fee
	}
	d.Recompute()

	now := s.now()
	eta := now.Add(time.Duration(quote.ETAMinutes) * time.Minute)
	d.OrderedAt, d.StateUpdatedAt, d.EstimatedAt = now, now, &eta
	if actor.UserID != 0 {
		id := actor.UserID
		d.TakenBy = &id
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.Insert(ctx, d)
		if err != nil {
			return err
		}
		d.ID = id
		for i := range d.Items {
			d.Items[i].DeliveryID = id
			if d.Items[i].ID, err = tx.InsertItem(ctx, d.Items[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Delivery{}, err
	}
	s.record(StatePending)
	s.logger.Info("delivery created",
		slog.Int64("delivery_id", d.ID),
		slog.Int("items", len(d.Items)),
		slog.String("total", d.Total.StringFixed(2)))
	return d, nil
}

// Update edits customer data and charges, recomputing the total. Delivered orders
// stay editable for administrators only; cancelled ones are frozen.
func (s *Service) Update(ctx context.Context, actor shared.Actor, id int64, req UpdateRequest) (Delivery, error) {
	method, err := normalizeMethod(req.PaymentMethod)
	if err != nil {
		return Delivery{}, err
	}
	if req.Fee.IsNegative() || req.Tip.IsNegative() {
		return Delivery{}, ErrNegativeAmount
	}
	var d Delivery
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		d, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch {
		case d.State == StateCancelled:
			return ErrCancelled
		case d.State == StateDelivered && actor.Role != shared.RoleAdmin:
			return ErrEditDelivered
		}
		d.CustomerName = strings.TrimSpace(req.CustomerName)
		d.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
		d.CustomerAddress = strings.TrimSpace(req.CustomerAddress)
		d.CustomerNeighborhood = strings.TrimSpace(req.CustomerNeighborhood)
		d.CustomerReferences = strings.TrimSpace(req.CustomerReferences)
		if d.CustomerName == "" || d.CustomerPhone == "" || d.CustomerAddress == "" {
			return ErrCustomerRequired
		}
		d.Fee = req.Fee
		d.Tip = req.Tip
		d.PaymentMethod = method
		d.Notes = strings.TrimSpace(req.Notes)
		d.Recompute()
		return tx.Update(ctx, d)
	})
	if err != nil {
		return Delivery{}, err
	}
	s.logger.Info("delivery updated", slog.Int64("delivery_id", id), slog.String("total", d.Total.StringFixed(2)))
	return d, nil
}

// Transition moves a delivery forward on its path and optionally assigns a
// courier. Delivering stamps the delivery time and marks it paid; leaving for the
// customer queues an SMS.
func (s *Service) Transition(ctx context.Context, id int64, next State, courierID *int64) (Delivery, error) {
	if next == StateCancelled {
		return Delivery{}, ErrCancelViaCancel
	}
	if !next.IsValid() {
		return Delivery{}, ErrUnknownState
	}
	var courier *Courier
	if courierID != nil {
		c, err := s.checkCourier(ctx, *courierID)
		if err != nil {
			return Delivery{}, err
		}
		courier = &c
	}

	var d Delivery
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		d, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if d.State == StateCancelled {
			return ErrCancelled
		}
		if !d.State.CanAdvanceTo(next) {
			return ErrInvalidTransition
		}
		now := s.now()
		d.State = next
		d.StateUpdatedAt = now
		if next == StateDelivered {
			d.DeliveredAt = &now
			d.Paid = true
		}
		if courier != nil {
			d.CourierID, d.CourierName = &courier.ID, courier.Name
		}
		return tx.Update(ctx, d)
	})
	if err != nil {
		return Delivery{}, err
	}
	s.record(next)
	s.logger.Info("delivery state changed", slog.Int64("delivery_id", id), slog.String("state", string(next)))
	if next == StateEnRoute {
		s.notifyEnRoute(ctx, d)
	}
	return d, nil
}

func (s *Service) notifyEnRoute(ctx context.Context, d Delivery) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.CustomerEnRoute(ctx, EnRouteNotice{
		DeliveryID:    d.ID,
		CustomerName:  d.CustomerName,
		CustomerPhone: d.CustomerPhone,
		CourierName:   d.CourierName,
		EstimatedAt:   d.EstimatedAt,
	})
	if err != nil {
		s.logger.Warn("queue customer notification", slog.Int64("delivery_id", d.ID), slog.Any("error", err))
	}
}

func (s *Service) record(state State) {
	if s.metrics != nil {
		s.metrics.DeliveryTransition(string(state))
	}
}

// Cancel ends a delivery that has not been delivered. A reason is required and
// cancellation is final.
func (s *Service) Cancel(ctx context.Context, id int64, reason string) (Delivery, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Delivery{}, ErrReasonRequired
	}
	var d Delivery
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		d, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch d.State {
		case StateDelivered:
			return ErrAlreadyDelivered
		case StateCancelled:
			return ErrCancelled
		}
		d.State = StateCancelled
		d.CancelReason = reason
		d.StateUpdatedAt = s.now()
		return tx.Update(ctx, d)
	})
	if err != nil {
		return Delivery{}, err
	}
	s.record(StateCancelled)
	s.logger.Warn("delivery cancelled", slog.Int64("delivery_id", id), slog.String("reason", reason))
	return d, nil
}

// AssignCourier sets the courier independently of the delivery state.
func (s *Service) AssignCourier(ctx context.Context, id, courierID int64) (Delivery, error) {
	c, err := s.checkCourier(ctx, courierID)
	if err != nil {
		return Delivery{}, err
	}
	var d Delivery
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		d, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		d.CourierID, d.CourierName = &c.ID, c.Name
		return tx.Update(ctx, d)
	})
	if err != nil {
		return Delivery{}, err
	}
	s.logger.Info("courier assigned", slog.Int64("delivery_id", id), slog.Int64("courier_id", courierID))
	return d, nil
}

// SetItemKitchenState records kitchen progress on one item. When the last item
// becomes ready while the delivery is preparing, the delivery moves to ready.
func (s *Service) SetItemKitchenState(ctx context.Context, itemID int64, state KitchenState) (ItemStateResult, error) {
	if !state.IsValid() {
		return ItemStateResult{}, ErrUnknownKitchen
	}
	var res ItemStateResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		it, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		d, err := tx.GetForUpdate(ctx, it.DeliveryID)
		if err != nil {
			return err
		}
		if d.State.IsTerminal() {
			if d.State == StateCancelled {
				return ErrCancelled
			}
			return ErrAlreadyDelivered
		}
		if err := tx.UpdateItemState(ctx, itemID, state); err != nil {
			return err
		}
		it.KitchenState = state
		for i := range d.Items {
			if d.Items[i].ID == itemID {
				d.Items[i].KitchenState = state
			}
		}
		if state == KitchenReady && d.State == StatePreparing && d.AllItemsReady() {
			d.State = StateReady
			d.StateUpdatedAt = s.now()
			if err := tx.Update(ctx, d); err != nil {
				return err
			}
			res.Promoted = true
		}
		res.Item, res.Delivery = it, d
		return nil
	})
	if err != nil {
		return ItemStateResult{}, err
	}
	if res.Promoted {
		s.record(StateReady)
		s.logger.Info("delivery ready", slog.Int64("delivery_id", res.Delivery.ID))
	}
	return res, nil
}

// Get returns a delivery with its derived figures.
func (s *Service) Get(ctx context.Context, id int64) (View, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	return s.view(d, s.now()), nil
}

func (s *Service) view(d Delivery, now time.Time) View {
	return View{
		Delivery: d,
		Elapsed:  Elapsed(d, now),
		Late:     lateAfter(d, now, s.cfg.LateAfter),
		Color:    StateColor(d.State),
	}
}

func (s *Service) views(list []Delivery) []View {
	now := s.now()
	out := make([]View, 0, len(list))
	for _, d := range list {
		out = append(out, s.view(d, now))
	}
	return out
}

func (s *Service) businessDay(day time.Time) shared.Window {
	if day.IsZero() {
		return shared.BusinessDay(s.now().In(s.cfg.Location), s.cfg.CutoffHour)
	}
	return shared.DateRange(day, day, s.cfg.CutoffHour)
}

// List returns the deliveries of a business day, optionally of one state.
func (s *Service) List(ctx context.Context, f Filter) ([]View, error) {
	var states []State
	if f.State != "" {
		if !f.State.IsValid() {
			return nil, ErrUnknownState
		}
		states = []State{f.State}
	}
	list, err := s.repo.List(ctx, s.businessDay(f.Day), states)
	if err != nil {
		return nil, err
	}
	return s.views(list), nil
}

// Active returns today's deliveries still on their way to the customer.
func (s *Service) Active(ctx context.Context) ([]View, error) {
	list, err := s.repo.List(ctx, s.businessDay(time.Time{}), []State{StatePending, StatePreparing, StateReady, StateEnRoute})
	if err != nil {
		return nil, err
	}
	return s.views(list), nil
}

// KitchenBoard returns today's deliveries the kitchen still has to prepare.
func (s *Service) KitchenBoard(ctx context.Context) ([]View, error) {
	list, err := s.repo.List(ctx, s.businessDay(time.Time{}), []State{StatePending, StatePreparing, StateReady})
	if err != nil {
		return nil, err
	}
	return s.views(list), nil
}
