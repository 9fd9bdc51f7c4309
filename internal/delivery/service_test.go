package delivery

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comanda-pos/comanda/internal/menu"
	"github.com/comanda-pos/comanda/internal/shared"
)

type mockRepository struct {
	mu         sync.Mutex
	deliveries map[int64]Delivery
	couriers   map[int64]Courier
	zones      map[int64]Zone
	nextID     int64
	nextItemID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		deliveries: map[int64]Delivery{},
		couriers:   map[int64]Courier{},
		zones:      map[int64]Zone{},
	}
}

func clone(d Delivery) Delivery {
	d.Items = append([]Item(nil), d.Items...)
	return d
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make(map[int64]Delivery, len(m.deliveries))
	for id, d := range m.deliveries {
		snapshot[id] = clone(d)
	}
	if err := fn(ctx, m); err != nil {
		m.deliveries = snapshot
		return err
	}
	return nil
}

func (m *mockRepository) Get(_ context.Context, id int64) (Delivery, error) {
	d, ok := m.deliveries[id]
	if !ok {
		return Delivery{}, ErrNotFound
	}
	return clone(d), nil
}

func (m *mockRepository) List(_ context.Context, window shared.Window, states []State) ([]Delivery, error) {
	var out []Delivery
	for _, d := range m.deliveries {
		if !window.Contains(d.OrderedAt) {
			continue
		}
		match := len(states) == 0
		for _, s := range states {
			match = match || d.State == s
		}
		if match {
			out = append(out, clone(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRepository) ListCouriers(_ context.Context, activeOnly bool) ([]Courier, error) {
	var out []Courier
	for _, c := range m.couriers {
		if c.Active || !activeOnly {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockRepository) GetCourier(_ context.Context, id int64) (Courier, error) {
	c, ok := m.couriers[id]
	if !ok {
		return Courier{}, ErrCourierNotFound
	}
	return c, nil
}

func (m *mockRepository) InsertCourier(_ context.Context, c Courier) (int64, error) {
	c.ID = int64(len(m.couriers) + 1)
	m.couriers[c.ID] = c
	return c.ID, nil
}

func (m *mockRepository) UpdateCourier(_ context.Context, c Courier) error {
	m.couriers[c.ID] = c
	return nil
}

func (m *mockRepository) ListZones(_ context.Context, activeOnly bool) ([]Zone, error) {
	var out []Zone
	for _, z := range m.zones {
		if z.Active || !activeOnly {
			out = append(out, z)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (m *mockRepository) GetZone(_ context.Context, id int64) (Zone, error) {
	z, ok := m.zones[id]
	if !ok {
		return Zone{}, ErrZoneNotFound
	}
	return z, nil
}

func (m *mockRepository) InsertZone(_ context.Context, z Zone) (int64, error) {
	z.ID = int64(len(m.zones) + 1)
	m.zones[z.ID] = z
	return z.ID, nil
}

func (m *mockRepository) UpdateZone(_ context.Context, z Zone) error {
	m.zones[z.ID] = z
	return nil
}

func (m *mockRepository) Insert(_ context.Context, d Delivery) (int64, error) {
	m.nextID++
	d.ID = m.nextID
	d.Items = nil
	m.deliveries[d.ID] = d
	return d.ID, nil
}

func (m *mockRepository) InsertItem(_ context.Context, it Item) (int64, error) {
	m.nextItemID++
	it.ID = m.nextItemID
	d := m.deliveries[it.DeliveryID]
	d.Items = append(d.Items, it)
	m.deliveries[it.DeliveryID] = d
	return it.ID, nil
}

func (m *mockRepository) GetForUpdate(ctx context.Context, id int64) (Delivery, error) {
	return m.Get(ctx, id)
}

func (m *mockRepository) Update(_ context.Context, d Delivery) error {
	if _, ok := m.deliveries[d.ID]; !ok {
		return ErrNotFound
	}
	m.deliveries[d.ID] = clone(d)
	return nil
}

func (m *mockRepository) GetItem(_ context.Context, itemID int64) (Item, error) {
	for _, d := range m.deliveries {
		for _, it := range d.Items {
			if it.ID == itemID {
				return it, nil
			}
		}
	}
	return Item{}, ErrItemNotFound
}

func (m *mockRepository) UpdateItemState(_ context.Context, itemID int64, state KitchenState) error {
	for id, d := range m.deliveries {
		for i := range d.Items {
			if d.Items[i].ID == itemID {
				d.Items[i].KitchenState = state
				m.deliveries[id] = d
				return nil
			}
		}
	}
	return ErrItemNotFound
}

type stubCatalog map[int64]menu.Item

func (c stubCatalog) Item(_ context.Context, id int64) (menu.Item, error) {
	it, ok := c[id]
	if !ok {
		return menu.Item{}, errors.New("menu item not found")
	}
	return it, nil
}

type recordingNotifier struct{ notices []EnRouteNotice }

func (n *recordingNotifier) CustomerEnRoute(_ context.Context, notice EnRouteNotice) error {
	n.notices = append(n.notices, notice)
	return nil
}

type countingRecorder map[string]int

func (c countingRecorder) DeliveryTransition(state string) { c[state]++ }

var (
	waiter    = shared.Actor{UserID: 4, Username: "luis", Role: shared.RoleWaiter}
	admin     = shared.Actor{UserID: 1, Username: "admin", Role: shared.RoleAdmin}
	testClock = time.Date(2025, 3, 14, 20, 0, 0, 0, time.UTC)
)

type fixture struct {
	repo     *mockRepository
	svc      *Service
	notifier *recordingNotifier
	metrics  countingRecorder
	clock    *time.Time
}

func newFixture() *fixture {
	repo := newMockRepository()
	catalog := stubCatalog{
		1: {ID: 1, Name: "Hamburguesa", Price: decimal.NewFromInt(18000), Available: true},
		2: {ID: 2, Name: "Limonada", Price: decimal.NewFromInt(6000), Available: true},
		3: {ID: 3, Name: "Postre agotado", Price: decimal.NewFromInt(9000), Available: false},
	}
	f := &fixture{repo: repo, notifier: &recordingNotifier{}, metrics: countingRecorder{}}
	clock := testClock
	f.clock = &clock
	f.svc = NewService(repo, catalog, Config{
		DefaultFee: decimal.NewFromInt(3000),
		DefaultETA: 30,
		CutoffHour: 3,
		Location:   time.UTC,
	}, nil)
	f.svc.now = func() time.Time { return *f.clock }
	f.svc.SetNotifier(f.notifier)
	f.svc.SetMetrics(f.metrics)
	repo.zones[1] = Zone{ID: 1, Name: "Norte", Neighborhoods: "Cedritos, Usaquén", Fee: decimal.NewFromInt(5000), ETAMinutes: 40, Active: true}
	repo.zones[2] = Zone{ID: 2, Name: "Cerrada", Neighborhoods: "Chapinero", Fee: decimal.NewFromInt(9000), Active: false}
	repo.couriers[1] = Courier{ID: 1, Name: "Pedro", Active: true}
	repo.couriers[2] = Courier{ID: 2, Name: "Inactivo", Active: false}
	return f
}

func id64(v int64) *int64 { return &v }

func baseRequest(items ...ItemRequest) CreateRequest {
	return CreateRequest{
		CustomerName:    "Carlos",
		CustomerPhone:   "+573001112233",
		CustomerAddress: "Calle 1 # 2-3",
		Items:           items,
	}
}

func (f *fixture) create(t *testing.T, req CreateRequest) Delivery {
	t.Helper()
	d, err := f.svc.Create(context.Background(), waiter, req)
	require.NoError(t, err)
	return d
}

func TestCreateComputesTotals(t *testing.T) {
	f := newFixture()
	fee := decimal.NewFromInt(3)
	req := baseRequest(
		ItemRequest{ProductName: "Sopa", Quantity: 2, UnitPrice: decimal.NewFromInt(5)},
		ItemRequest{ProductName: "Pan", Quantity: 1, UnitPrice: decimal.NewFromInt(10)},
	)
	req.Fee = &fee
	req.Tip = decimal.NewFromInt(2)

	d := f.create(t, req)
	assert.True(t, decimal.NewFromInt(20).Equal(d.Subtotal))
	assert.True(t, decimal.NewFromInt(3).Equal(d.Fee))
	assert.True(t, decimal.NewFromInt(25).Equal(d.Total))
	assert.Equal(t, StatePending, d.State)
	assert.Equal(t, MethodCash, d.PaymentMethod)
	require.NotNil(t, d.TakenBy)
	assert.Equal(t, waiter.UserID, *d.TakenBy)
	require.Len(t, d.Items, 2)
	for _, it := range d.Items {
		assert.Equal(t, KitchenPending, it.KitchenState)
		assert.Equal(t, d.ID, it.DeliveryID)
	}
	require.NotNil(t, d.EstimatedAt)
	assert.Equal(t, testClock.Add(30*time.Minute), *d.EstimatedAt)
	assert.Equal(t, 1, f.metrics["pendiente"])
}

func TestCreateUsesZoneFeeAndMenuPrices(t *testing.T) {
	f := newFixture()
	req := baseRequest(ItemRequest{MenuItemID: id64(1), ProductName: "ignored", Quantity: 2, UnitPrice: decimal.NewFromInt(1)})
	req.CustomerNeighborhood = "cedritos"

	d := f.create(t, req)
	assert.Equal(t, "Hamburguesa", d.Items[0].ProductName)
	assert.True(t, decimal.NewFromInt(36000).Equal(d.Subtotal))
	assert.True(t, decimal.NewFromInt(5000).Equal(d.Fee))
	assert.True(t, decimal.NewFromInt(41000).Equal(d.Total))
	assert.Equal(t, testClock.Add(40*time.Minute), *d.EstimatedAt)

	req.CustomerNeighborhood = "Chapinero"
	d = f.create(t, req)
	assert.True(t, decimal.NewFromInt(3000).Equal(d.Fee), "inactive zones are ignored")
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	negative := decimal.NewFromInt(-1)

	cases := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"no items", baseRequest(), ErrNoItems},
		{"zero quantity", baseRequest(ItemRequest{ProductName: "x", Quantity: 0}), ErrInvalidQuantity},
		{"negative price", baseRequest(ItemRequest{ProductName: "x", Quantity: 1, UnitPrice: negative}), ErrNegativePrice},
		{"missing name", baseRequest(ItemRequest{Quantity: 1}), ErrProductRequired},
		{"unavailable", baseRequest(ItemRequest{MenuItemID: id64(3), Quantity: 1}), ErrItemUnavailable},
		{"bad method", func() CreateRequest {
			r := baseRequest(ItemRequest{ProductName: "x", Quantity: 1})
			r.PaymentMethod = "bitcoin"
			return r
		}(), ErrInvalidMethod},
		{"negative fee", func() CreateRequest {
			r := baseRequest(ItemRequest{ProductName: "x", Quantity: 1})
			r.Fee = &negative
			return r
		}(), ErrNegativeAmount},
		{"inactive courier", func() CreateRequest {
			r := baseRequest(ItemRequest{ProductName: "x", Quantity: 1})
			r.CourierID = id64(2)
			return r
		}(), ErrCourierInactive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, waiter, tc.req)
			require.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}
	assert.Empty(t, f.repo.deliveries)
}

func TestTransitionForwardOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := f.create(t, baseRequest(ItemRequest{ProductName: "Sopa", Quantity: 1, UnitPrice: decimal.NewFromInt(5)}))

	path := []State{StatePreparing, StateReady, StateEnRoute}
	for _, next := range path {
		*f.clock = f.clock.Add(5 * time.Minute)
		got, err := f.svc.Transition(ctx, d.ID, next, nil)
		require.NoError(t, err)
		assert.Equal(t, next, got.State)
		assert.Equal(t, *f.clock, got.StateUpdatedAt)
	}

	_, err := f.svc.Transition(ctx, d.ID, StatePreparing, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.Transition(ctx, d.ID, StateEnRoute, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.Transition(ctx, d.ID, "volando", nil)
	assert.ErrorIs(t, err, ErrUnknownState)
	_, err = f.svc.Transition(ctx, d.ID, StateCancelled, nil)
	assert.ErrorIs(t, err, ErrCancelViaCancel)
	assert.Equal(t, StateEnRoute, f.repo.deliveries[d.ID].State)
}

func TestDeliveredStampsTimeAndPaid(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := f.create(t, baseRequest(ItemRequest{ProductName: "Sopa", Quantity: 1, UnitPrice: decimal.NewFromInt(5)}))
	assert.False(t, d.Paid)

	*f.clock = f.clock.Add(35 * time.Minute)
	got, err := f.svc.Transition(ctx, d.ID, StateDelivered, id64(1))
	require.NoError(t, err)
	assert.True(t, got.Paid)
	require.NotNil(t, got.DeliveredAt)
	assert.Equal(t, *f.clock, *got.DeliveredAt)
	assert.Equal(t, "Pedro", got.CourierName)

	_, err = f.svc.Cancel(ctx, d.ID, "cliente no contesta")
	assert.ErrorIs(t, err, ErrAlreadyDelivered)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestEnRouteQueuesCustomerNotice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := f.create(t, baseRequest(ItemRequest{ProductName: "Sopa", Quantity: 1, UnitPrice: decimal.NewFromInt(5)}))

	_, err := f.svc.Transition(ctx, d.ID, StateReady, nil)
	require.NoError(t, err)
	assert.Empty(t, f.notifier.notices)

	_, err = f.svc.Transition(ctx, d.ID, StateEnRoute, id64(1))
	require.NoError(t, err)
	require.Len(t, f.notifier.notices, 1)
	n := f.notifier.notices[0]
	assert.Equal(t, d.ID, n.DeliveryID)
	assert.Equal(t, "+573001112233", n.CustomerPhone)
	assert.Equal(t, "Pedro", n.CourierName)
	assert.Equal(t, 1, f.metrics["en_camino"])
}

func TestCancelRules(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := f.create(t, baseRequest(ItemRequest{ProductName: "Sopa", Quantity: 1, UnitPrice: decimal.NewFromInt(5)}))

	_, err := f.svc.Cancel(ctx, d.ID, "   ")
	assert.ErrorIs(t, err, ErrReasonRequired)

	got, err := f.svc.Cancel(ctx, d.ID, "cliente canceló")
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, got.State)
	assert.Equal(t, "cliente canceló", got.CancelReason)

	_, err = f.svc.Cancel(ctx, d.ID, "otra vez")
	assert.ErrorIs(t, err, ErrCancelled)
	_, err = f.svc.Transition(ctx, d.ID, StatePreparing, nil)
	assert.ErrorIs(t, err, ErrCancelled)
	_, err = f.svc.Update(ctx, admin, d.ID, UpdateRequest{CustomerName: "a", CustomerPhone: "b", CustomerAddress: "c"})
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestUpdateRecomputesTotal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := f.create(t, baseRequest(ItemRequest{ProductName: "Sopa", Quantity: 2, UnitPrice: decimal.NewFromInt(5)}))

	req := UpdateRequest{
		CustomerName:    "Carlos R.",
		CustomerPhone:   "+573001112233",
		CustomerAddress: "Calle 9",
		Fee:             decimal.NewFromInt(4),
		Tip:             decimal.NewFromInt(1),
		PaymentMethod:   MethodCard,
	}
	got, err := f.svc.Update(ctx, waiter, d.ID, req)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(15).Equal(got.Total))
	assert.Equal(t, MethodCard, got.PaymentMethod)
	assert.Equal(t, "Calle 9", f.repo.deliveries[d.ID].CustomerAddress)

	_, err = f.svc.Transition(ctx, d.ID, StateDelivered, nil)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, waiter, d.ID, req)
	assert.ErrorIs(t, err, shared.ErrPermission)
	req.Tip = decimal.NewFromInt(3)
	got, err = f.svc.Update(ctx, admin, d.ID, req)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(17).Equal(got.Total))
}

func TestItemsAutoPromoteDelivery(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := f.create(t, baseRequest(
		ItemRequest{ProductName: "A", Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
		ItemRequest{ProductName: "B", Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
		ItemRequest{ProductName: "C", Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
	))
	_, err := f.svc.Transition(ctx, d.ID, StatePreparing, nil)
	require.NoError(t, err)

	for i, it := range d.Items {
		res, err := f.svc.SetItemKitchenState(ctx, it.ID, KitchenReady)
		require.NoError(t, err)
		last := i == len(d.Items)-1
		assert.Equal(t, last, res.Promoted, "item %d", i)
		if last {
			assert.Equal(t, StateReady, res.Delivery.State)
		} else {
			assert.Equal(t, StatePreparing, f.repo.deliveries[d.ID].State)
		}
	}
	assert.Equal(t, StateReady, f.repo.deliveries[d.ID].State)
	assert.Equal(t, 1, f.metrics["listo"])
}

func TestItemsDoNotPromotePendingDelivery(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := f.create(t, baseRequest(ItemRequest{ProductName: "A", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}))

	res, err := f.svc.SetItemKitchenState(ctx, d.Items[0].ID, KitchenReady)
	require.NoError(t, err)
	assert.False(t, res.Promoted)
	assert.Equal(t, StatePending, f.repo.deliveries[d.ID].State)

	_, err = f.svc.SetItemKitchenState(ctx, d.Items[0].ID, "quemado")
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = f.svc.SetItemKitchenState(ctx, 999, KitchenReady)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAssignCourier(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := f.create(t, baseRequest(ItemRequest{ProductName: "A", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}))

	got, err := f.svc.AssignCourier(ctx, d.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, got.CourierID)
	assert.Equal(t, int64(1), *got.CourierID)
	assert.Equal(t, StatePending, got.State)

	_, err = f.svc.AssignCourier(ctx, d.ID, 2)
	assert.ErrorIs(t, err, ErrCourierInactive)
	_, err = f.svc.AssignCourier(ctx, d.ID, 77)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestActiveAndKitchenBoard(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	item := ItemRequest{ProductName: "A", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}

	*f.clock = testClock.AddDate(0, 0, -1)
	f.create(t, baseRequest(item))
	*f.clock = testClock
	pending := f.create(t, baseRequest(item))
	enRoute := f.create(t, baseRequest(item))
	done := f.create(t, baseRequest(item))
	_, err := f.svc.Transition(ctx, enRoute.ID, StateEnRoute, nil)
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, done.ID, StateDelivered, nil)
	require.NoError(t, err)

	*f.clock = testClock.Add(50 * time.Minute)
	active, err := f.svc.Active(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, pending.ID, active[0].ID)
	assert.True(t, active[0].Late)
	assert.Equal(t, "50 min", active[0].Elapsed)
	assert.Equal(t, "#ffc107", active[0].Color)

	board, err := f.svc.KitchenBoard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, pending.ID, board[0].ID)

	all, err := f.svc.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	_, err = f.svc.List(ctx, Filter{State: "raro"})
	assert.ErrorIs(t, err, ErrUnknownState)
}

func TestQuoteFee(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	q, err := f.svc.QuoteFee(ctx, "  USAQUÉN ")
	require.NoError(t, err)
	assert.True(t, q.Matched)
	assert.Equal(t, "Norte", q.Zone)
	assert.True(t, decimal.NewFromInt(5000).Equal(q.Fee))
	assert.Equal(t, 40, q.ETAMinutes)

	q, err = f.svc.QuoteFee(ctx, "Suba")
	require.NoError(t, err)
	assert.False(t, q.Matched)
	assert.True(t, decimal.NewFromInt(3000).Equal(q.Fee))
	assert.Equal(t, 30, q.ETAMinutes)
}

func TestZonesAndCouriersAdmin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	z, err := f.svc.CreateZone(ctx, ZoneRequest{Name: "Sur", Neighborhoods: " Bosa ,Kennedy,, ", Fee: decimal.NewFromInt(4000)})
	require.NoError(t, err)
	assert.Equal(t, "Bosa, Kennedy", z.Neighborhoods)
	assert.Equal(t, 30, z.ETAMinutes)
	assert.True(t, z.Active)

	_, err = f.svc.CreateZone(ctx, ZoneRequest{Name: "Mal", Fee: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, shared.ErrValidation)

	z, err = f.svc.ToggleZone(ctx, z.ID)
	require.NoError(t, err)
	assert.False(t, z.Active)
	q, err := f.svc.QuoteFee(ctx, "bosa")
	require.NoError(t, err)
	assert.False(t, q.Matched)

	c, err := f.svc.CreateCourier(ctx, CourierRequest{Name: " Ana ", Plate: "abc12d"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", c.Name)
	assert.Equal(t, "ABC12D", c.Plate)
	assert.Equal(t, "moto", c.VehicleType)

	c, err = f.svc.UpdateCourier(ctx, c.ID, CourierRequest{Name: "Ana María", VehicleType: "bicicleta"})
	require.NoError(t, err)
	assert.True(t, c.Active)
	c, err = f.svc.ToggleCourier(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, c.Active)

	_, err = f.svc.ToggleCourier(ctx, 404)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
