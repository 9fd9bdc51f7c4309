package expenses

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
	expenses   map[int64]Expense
	categories map[int64]Category
	providers  map[int64]Provider
	budgets    map[int64]Budget
	meals      []StaffMeal
	nextID     int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		expenses: map[int64]Expense{},
		categories: map[int64]Category{
			1: {ID: 1, Name: "Ingredientes", Color: "#28a745", Active: true},
			2: {ID: 2, Name: "Marketing", Color: "#e83e8c", Active: true},
			3: {ID: 3, Name: "Viejo", Color: "#6c757d", Active: false},
		},
		providers: map[int64]Provider{
			1: {ID: 1, Name: "Distribuidora Andina", Active: true},
			2: {ID: 2, Name: "Lácteos Sur", Active: false},
		},
		budgets: map[int64]Budget{},
		nextID:  100,
	}
}

func (m *mockRepository) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make(map[int64]Budget, len(m.budgets))
	for k, v := range m.budgets {
		snapshot[k] = v
	}
	if err := fn(ctx, m); err != nil {
		m.budgets = snapshot
		return err
	}
	return nil
}

func (m *mockRepository) GetExpense(_ context.Context, id int64) (Expense, error) {
	e, ok := m.expenses[id]
	if !ok {
		return Expense{}, ErrNotFound
	}
	return e, nil
}

func (m *mockRepository) ListExpenses(_ context.Context, window shared.Window, categoryID *int64) ([]Expense, error) {
	var out []Expense
	for _, e := range m.expenses {
		if !window.Contains(e.SpentAt) {
			continue
		}
		if categoryID != nil && e.CategoryID != *categoryID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRepository) InsertExpense(_ context.Context, e Expense) (int64, error) {
	e.ID = m.id()
	m.expenses[e.ID] = e
	return e.ID, nil
}

func (m *mockRepository) UpdateExpense(_ context.Context, e Expense) error {
	if _, ok := m.expenses[e.ID]; !ok {
		return ErrNotFound
	}
	m.expenses[e.ID] = e
	return nil
}

func (m *mockRepository) DeleteExpense(_ context.Context, id int64) error {
	if _, ok := m.expenses[id]; !ok {
		return ErrNotFound
	}
	delete(m.expenses, id)
	return nil
}

func (m *mockRepository) ListUnpaid(_ context.Context, statuses []PaymentStatus, providerID *int64) ([]Expense, error) {
	var out []Expense
	for _, e := range m.expenses {
		match := false
		for _, s := range statuses {
			match = match || e.PaymentStatus == s
		}
		if !match {
			continue
		}
		if providerID != nil && (e.ProviderID == nil || *e.ProviderID != *providerID) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRepository) SweepOverdue(_ context.Context, today time.Time) (int64, error) {
	var n int64
	for id, e := range m.expenses {
		if e.IsOverdue(today) {
			e.PaymentStatus = StatusOverdue
			m.expenses[id] = e
			n++
		}
	}
	return n, nil
}

func (m *mockRepository) Consumption(_ context.Context, window shared.Window, categoryID *int64) (map[int64]decimal.Decimal, error) {
	out := map[int64]decimal.Decimal{}
	for _, e := range m.expenses {
		if !window.Contains(e.SpentAt) {
			continue
		}
		if categoryID != nil && e.CategoryID != *categoryID {
			continue
		}
		out[e.CategoryID] = out[e.CategoryID].Add(e.Amount)
	}
	return out, nil
}

func (m *mockRepository) ListCategories(_ context.Context, activeOnly bool) ([]Category, error) {
	var out []Category
	for _, c := range m.categories {
		if activeOnly && !c.Active {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockRepository) GetCategory(_ context.Context, id int64) (Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return Category{}, ErrCategoryNotFound
	}
	return c, nil
}

func (m *mockRepository) InsertCategory(_ context.Context, c Category) (int64, error) {
	c.ID = m.id()
	m.categories[c.ID] = c
	return c.ID, nil
}

func (m *mockRepository) UpdateCategory(_ context.Context, c Category) error {
	m.categories[c.ID] = c
	return nil
}

func (m *mockRepository) ListProviders(_ context.Context, activeOnly bool) ([]Provider, error) {
	var out []Provider
	for _, p := range m.providers {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRepository) GetProvider(_ context.Context, id int64) (Provider, error) {
	p, ok := m.providers[id]
	if !ok {
		return Provider{}, ErrProviderNotFound
	}
	return p, nil
}

func (m *mockRepository) InsertProvider(_ context.Context, p Provider) (int64, error) {
	p.ID = m.id()
	m.providers[p.ID] = p
	return p.ID, nil
}

func (m *mockRepository) UpdateProvider(_ context.Context, p Provider) error {
	m.providers[p.ID] = p
	return nil
}

func (m *mockRepository) GetBudget(_ context.Context, id int64) (Budget, error) {
	b, ok := m.budgets[id]
	if !ok {
		return Budget{}, ErrBudgetNotFound
	}
	return b, nil
}

func (m *mockRepository) ActiveBudget(_ context.Context, categoryID int64, month, year int) (*Budget, error) {
	for _, b := range m.budgets {
		if b.Active && b.CategoryID == categoryID && b.Month == month && b.Year == year {
			return &b, nil
		}
	}
	return nil, nil
}

func (m *mockRepository) ListBudgets(_ context.Context, month, year int) ([]Budget, error) {
	var out []Budget
	for _, b := range m.budgets {
		if b.Active && b.Month == month && b.Year == year {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRepository) InsertBudget(_ context.Context, b Budget) (int64, error) {
	for _, existing := range m.budgets {
		if existing.Active && existing.CategoryID == b.CategoryID && existing.Month == b.Month && existing.Year == b.Year {
			return 0, ErrBudgetExists
		}
	}
	b.ID = m.id()
	b.Active = true
	m.budgets[b.ID] = b
	return b.ID, nil
}

func (m *mockRepository) UpdateBudget(_ context.Context, b Budget) error {
	if _, ok := m.budgets[b.ID]; !ok {
		return ErrBudgetNotFound
	}
	m.budgets[b.ID] = b
	return nil
}

func (m *mockRepository) InsertStaffMeal(_ context.Context, meal StaffMeal) (int64, error) {
	meal.ID = m.id()
	m.meals = append(m.meals, meal)
	return meal.ID, nil
}

func (m *mockRepository) ListStaffMeals(_ context.Context, window shared.Window) ([]StaffMeal, error) {
	var out []StaffMeal
	for _, meal := range m.meals {
		if window.Contains(meal.ConsumedAt) {
			out = append(out, meal)
		}
	}
	return out, nil
}

type stubCatalog map[int64]menu.Item

func (c stubCatalog) Item(_ context.Context, id int64) (menu.Item, error) {
	it, ok := c[id]
	if !ok {
		return menu.Item{}, errors.New("menu item not found")
	}
	return it, nil
}

type recordingQueue struct {
	alerts []BudgetAlert
	err    error
}

func (q *recordingQueue) BudgetAlert(_ context.Context, a BudgetAlert) error {
	q.alerts = append(q.alerts, a)
	return q.err
}

type countingRecorder struct {
	statuses []string
}

func (r *countingRecorder) BudgetAlert(status string) { r.statuses = append(r.statuses, status) }

type countingBumper struct {
	bumps int
}

func (b *countingBumper) Bump(context.Context) error {
	b.bumps++
	return nil
}

var testClock = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

var (
	admin  = shared.Actor{UserID: 1, Username: "admin", Role: shared.RoleAdmin}
	waiter = shared.Actor{UserID: 2, Username: "carlos", Role: shared.RoleWaiter}
	other  = shared.Actor{UserID: 3, Username: "lucia", Role: shared.RoleWaiter}
)

type fixture struct {
	svc     *Service
	repo    *mockRepository
	queue   *recordingQueue
	metrics *countingRecorder
	cache   *countingBumper
}

func newFixture() fixture {
	repo := newMockRepository()
	catalog := stubCatalog{
		1: {ID: 1, Name: "Bandeja paisa", Price: decimal.NewFromInt(28000), Available: true},
		2: {ID: 2, Name: "Limonada", Price: decimal.NewFromInt(6000), Available: true},
	}
	svc := NewService(repo, catalog, Config{CutoffHour: 3, Location: time.UTC}, nil)
	svc.now = func() time.Time { return testClock }
	f := fixture{svc: svc, repo: repo, queue: &recordingQueue{}, metrics: &countingRecorder{}, cache: &countingBumper{}}
	svc.SetAlertQueue(f.queue)
	svc.SetMetrics(f.metrics)
	svc.SetCache(f.cache)
	return f
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func expenseReq(concept string, amount int64, category int64) ExpenseRequest {
	return ExpenseRequest{Concept: concept, Amount: dec(amount), CategoryID: category}
}

func TestRecordExpenseBudgetAlertAtThreshold(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.CreateBudget(ctx, BudgetRequest{CategoryID: 1, Limit: dec(2_000_000), Month: 3, Year: 2025})
	require.NoError(t, err)

	rec, err := f.svc.RecordExpense(ctx, waiter, expenseReq("Carnes semana 1", 1_500_000, 1))
	require.NoError(t, err)
	assert.Nil(t, rec.Alert, "75% of the budget is below the threshold")
	assert.Empty(t, f.queue.alerts)
	assert.Empty(t, f.metrics.statuses)

	rec, err = f.svc.RecordExpense(ctx, waiter, expenseReq("Verduras", 200_000, 1))
	require.NoError(t, err)
	require.NotNil(t, rec.Alert)
	assert.Equal(t, BudgetAlerting, rec.Alert.Status)
	assert.True(t, rec.Alert.Percentage.Equal(dec(85)))
	assert.True(t, rec.Alert.Consumed.Equal(dec(1_700_000)))
	assert.Equal(t, "Ingredientes", rec.Alert.CategoryName)
	require.Len(t, f.queue.alerts, 1)
	assert.Equal(t, []string{"alerta"}, f.metrics.statuses)

	rec, err = f.svc.RecordExpense(ctx, waiter, expenseReq("Carnes semana 2", 400_000, 1))
	require.NoError(t, err)
	require.NotNil(t, rec.Alert)
	assert.Equal(t, BudgetExceeded, rec.Alert.Status)
	assert.Equal(t, []string{"alerta", "excedido"}, f.metrics.statuses)
	assert.Len(t, f.repo.expenses, 3, "alerts never block the expense")
}

func TestRecordExpenseBudgetScopedToCategoryAndMonth(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.CreateBudget(ctx, BudgetRequest{CategoryID: 1, Limit: dec(100_000), Month: 3, Year: 2025})
	require.NoError(t, err)

	rec, err := f.svc.RecordExpense(ctx, admin, expenseReq("Volantes", 500_000, 2))
	require.NoError(t, err)
	assert.Nil(t, rec.Alert)

	april := time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC)
	req := expenseReq("Pedido abril", 500_000, 1)
	req.SpentAt = &april
	rec, err = f.svc.RecordExpense(ctx, admin, req)
	require.NoError(t, err)
	assert.Nil(t, rec.Alert)
	assert.Empty(t, f.queue.alerts)
}

func TestRecordExpenseAlertQueueFailureDoesNotFail(t *testing.T) {
	f := newFixture()
	f.queue.err = errors.New("redis down")
	ctx := context.Background()
	_, err := f.svc.CreateBudget(ctx, BudgetRequest{CategoryID: 1, Limit: dec(1000), Month: 3, Year: 2025, AlertPct: 50})
	require.NoError(t, err)

	rec, err := f.svc.RecordExpense(ctx, admin, expenseReq("Aceite", 600, 1))
	require.NoError(t, err)
	require.NotNil(t, rec.Alert)
	assert.NotZero(t, rec.Expense.ID)
}

func TestRecordExpenseValidation(t *testing.T) {
	inactiveProvider := int64(2)
	cases := []struct {
		name string
		req  ExpenseRequest
		want error
	}{
		{"empty concept", expenseReq("  ", 1000, 1), ErrConceptRequired},
		{"zero amount", expenseReq("Gas", 0, 1), ErrInvalidAmount},
		{"negative amount", expenseReq("Gas", -10, 1), ErrInvalidAmount},
		{"inactive category", expenseReq("Gas", 10, 3), ErrCategoryInactive},
		{"unknown category", expenseReq("Gas", 10, 99), ErrCategoryNotFound},
		{"bad method", ExpenseRequest{Concept: "Gas", Amount: dec(10), CategoryID: 1, PaymentMethod: "bitcoin"}, ErrInvalidMethod},
		{"overdue at creation", ExpenseRequest{Concept: "Gas", Amount: dec(10), CategoryID: 1, PaymentStatus: StatusOverdue}, ErrInvalidStatus},
		{"inactive provider", ExpenseRequest{Concept: "Gas", Amount: dec(10), CategoryID: 1, ProviderID: &inactiveProvider}, ErrProviderInactive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.RecordExpense(context.Background(), waiter, tc.req)
			require.ErrorIs(t, err, tc.want)
			assert.Empty(t, f.repo.expenses)
			assert.Zero(t, f.cache.bumps)
		})
	}
	_, err := newFixture().svc.RecordExpense(context.Background(), waiter, expenseReq("", 0, 1))
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordExpensePaymentStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	paid, err := f.svc.RecordExpense(ctx, waiter, expenseReq("Hielo", 12000, 1))
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Expense.PaymentStatus)
	require.NotNil(t, paid.Expense.PaidAt)
	assert.Equal(t, testClock, *paid.Expense.PaidAt)
	assert.Equal(t, MethodCash, paid.Expense.PaymentMethod)
	require.NotNil(t, paid.Expense.UserID)
	assert.Equal(t, waiter.UserID, *paid.Expense.UserID)

	noDue := expenseReq("Factura gas", 90000, 1)
	noDue.PaymentStatus = StatusPending
	pending, err := f.svc.RecordExpense(ctx, waiter, noDue)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, pending.Expense.PaymentStatus)
	assert.Nil(t, pending.Expense.DueDate)
	assert.Nil(t, pending.Expense.PaidAt)

	due := time.Date(2025, 3, 30, 17, 45, 0, 0, time.UTC)
	withDue := expenseReq("Factura carnes", 450000, 1)
	withDue.PaymentStatus = StatusPending
	withDue.DueDate = &due
	rec, err := f.svc.RecordExpense(ctx, waiter, withDue)
	require.NoError(t, err)
	require.NotNil(t, rec.Expense.DueDate)
	assert.Equal(t, time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC), *rec.Expense.DueDate)
	assert.Equal(t, 3, f.cache.bumps)
}

func TestUpdateExpenseOwnerOrAdmin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rec, err := f.svc.RecordExpense(ctx, waiter, expenseReq("Servilletas", 30000, 1))
	require.NoError(t, err)
	id := rec.Expense.ID

	_, err = f.svc.UpdateExpense(ctx, other, id, expenseReq("Servilletas", 35000, 1))
	require.ErrorIs(t, err, ErrNotOwner)
	require.ErrorIs(t, err, shared.ErrPermission)
	assert.True(t, f.repo.expenses[id].Amount.Equal(dec(30000)))

	out, err := f.svc.UpdateExpense(ctx, waiter, id, expenseReq("Servilletas grandes", 35000, 2))
	require.NoError(t, err)
	assert.Equal(t, "Servilletas grandes", out.Expense.Concept)
	assert.Equal(t, "Marketing", out.Expense.CategoryName)

	out, err = f.svc.UpdateExpense(ctx, admin, id, expenseReq("Servilletas grandes", 40000, 2))
	require.NoError(t, err)
	assert.True(t, out.Expense.Amount.Equal(dec(40000)))
	assert.Equal(t, StatusPaid, out.Expense.PaymentStatus)
	assert.Equal(t, 3, f.cache.bumps)

	_, err = f.svc.UpdateExpense(ctx, admin, id, expenseReq("", 40000, 2))
	assert.ErrorIs(t, err, ErrConceptRequired)
}

type recordingAudit struct{ entries []shared.AuditLog }

func (r *recordingAudit) Record(_ context.Context, e shared.AuditLog) error {
	r.entries = append(r.entries, e)
	return nil
}

func TestDeleteExpenseIsPermanent(t *testing.T) {
	f := newFixture()
	trail := &recordingAudit{}
	f.svc.SetAudit(trail)
	ctx := context.Background()
	rec, err := f.svc.RecordExpense(ctx, waiter, expenseReq("Detergente", 15000, 1))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteExpense(ctx, admin, rec.Expense.ID))
	assert.Empty(t, f.repo.expenses)
	assert.Equal(t, 2, f.cache.bumps)
	require.Len(t, trail.entries, 1)
	assert.Equal(t, "expense", trail.entries[0].Entity)
	assert.Equal(t, admin.UserID, trail.entries[0].ActorID)
	assert.Equal(t, "15000.00", trail.entries[0].Meta["amount"])
	assert.ErrorIs(t, f.svc.DeleteExpense(ctx, admin, rec.Expense.ID), shared.ErrNotFound)
}

func TestApproveExpense(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rec, err := f.svc.RecordExpense(ctx, waiter, expenseReq("Arreglo nevera", 250000, 1))
	require.NoError(t, err)

	e, err := f.svc.ApproveExpense(ctx, admin, rec.Expense.ID)
	require.NoError(t, err)
	assert.True(t, e.Approved)
	require.NotNil(t, e.ApprovedBy)
	assert.Equal(t, admin.UserID, *e.ApprovedBy)

	_, err = f.svc.ApproveExpense(ctx, admin, rec.Expense.ID)
	assert.ErrorIs(t, err, ErrAlreadyApproved)
}

func seedPayable(repo *mockRepository, amount int64, provider *int64, status PaymentStatus, due *time.Time) int64 {
	id := repo.id()
	e := Expense{
		ID: id, SpentAt: testClock.AddDate(0, 0, -20), Concept: "Compra", Amount: dec(amount),
		CategoryID: 1, CategoryName: "Ingredientes", ProviderID: provider,
		PaymentMethod: MethodTransfer, PaymentStatus: status, DueDate: due,
	}
	if provider != nil {
		e.ProviderName = repo.providers[*provider].Name
	}
	repo.expenses[id] = e
	return id
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestPayablesSweepAndTotals(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	andina := int64(1)
	late := seedPayable(f.repo, 300000, &andina, StatusPending, day(2025, 3, 10))
	soon := seedPayable(f.repo, 120000, &andina, StatusPending, day(2025, 3, 20))
	dueToday := seedPayable(f.repo, 50000, nil, StatusPending, day(2025, 3, 14))
	seedPayable(f.repo, 80000, nil, StatusPending, nil)
	seedPayable(f.repo, 999999, &andina, StatusPaid, day(2025, 3, 1))

	p, err := f.svc.Payables(ctx, PayableFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, p.Swept)
	assert.Equal(t, StatusOverdue, f.repo.expenses[late].PaymentStatus)
	assert.Equal(t, StatusPending, f.repo.expenses[soon].PaymentStatus)
	assert.Equal(t, StatusPending, f.repo.expenses[dueToday].PaymentStatus)

	assert.Len(t, p.Expenses, 4)
	assert.True(t, p.TotalOverdue.Equal(dec(300000)))
	assert.True(t, p.TotalPending.Equal(dec(250000)))
	assert.True(t, p.Total.Equal(dec(550000)))
	require.Len(t, p.ByProvider, 2)
	assert.Equal(t, "Distribuidora Andina", p.ByProvider[0].Name)
	assert.True(t, p.ByProvider[0].Total.Equal(dec(420000)))
	assert.Equal(t, 2, p.ByProvider[0].Count)
	assert.Equal(t, "Sin proveedor", p.ByProvider[1].Name)

	again, err := f.svc.Payables(ctx, PayableFilter{})
	require.NoError(t, err)
	assert.Zero(t, again.Swept)

	overdue, err := f.svc.Payables(ctx, PayableFilter{Status: StatusOverdue})
	require.NoError(t, err)
	require.Len(t, overdue.Expenses, 1)
	assert.Equal(t, late, overdue.Expenses[0].ID)

	byProvider, err := f.svc.Payables(ctx, PayableFilter{Status: "todos", ProviderID: &andina})
	require.NoError(t, err)
	assert.Len(t, byProvider.Expenses, 2)

	_, err = f.svc.Payables(ctx, PayableFilter{Status: "perdida"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestMarkExpensePaidAndDueDate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := seedPayable(f.repo, 300000, nil, StatusOverdue, day(2025, 3, 1))

	e, err := f.svc.SetDueDate(ctx, id, time.Date(2025, 3, 25, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, e.PaymentStatus)
	assert.Equal(t, *day(2025, 3, 25), *e.DueDate)

	e, err = f.svc.SetDueDate(ctx, id, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, StatusOverdue, e.PaymentStatus)

	_, err = f.svc.SetDueDate(ctx, id, time.Time{})
	assert.ErrorIs(t, err, ErrDueDateRequired)

	e, err = f.svc.MarkExpensePaid(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, e.PaymentStatus)
	require.NotNil(t, e.PaidAt)
	assert.Equal(t, testClock, *e.PaidAt)

	_, err = f.svc.MarkExpensePaid(ctx, id)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	_, err = f.svc.SetDueDate(ctx, id, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestListUsesBusinessDayAndGroupsByCategory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	at := func(d, h int) *time.Time {
		t := time.Date(2025, 3, d, h, 0, 0, 0, time.UTC)
		return &t
	}
	add := func(concept string, amount, category int64, when *time.Time) {
		req := expenseReq(concept, amount, category)
		req.SpentAt = when
		_, err := f.svc.RecordExpense(ctx, admin, req)
		require.NoError(t, err)
	}
	add("Carnes", 100000, 1, at(13, 18))
	add("Hielo madrugada", 20000, 1, at(14, 1))
	add("Pauta redes", 150000, 2, at(13, 12))
	add("Pedido hoy", 70000, 1, at(14, 9))

	day13 := time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)
	out, err := f.svc.List(ctx, Filter{From: day13, To: day13})
	require.NoError(t, err)
	assert.Len(t, out.Expenses, 3, "01:00 on the 14th belongs to the 13th")
	assert.True(t, out.Total.Equal(dec(270000)))
	require.Len(t, out.ByCategory, 2)
	assert.Equal(t, "Marketing", out.ByCategory[0].Name)
	assert.True(t, out.ByCategory[1].Total.Equal(dec(120000)))
	assert.Equal(t, 2, out.ByCategory[1].Count)

	today, err := f.svc.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, today.Expenses, 1)
	assert.Equal(t, "Pedido hoy", today.Expenses[0].Concept)

	marketing := int64(2)
	filtered, err := f.svc.List(ctx, Filter{From: day13, To: day13.AddDate(0, 0, 1), CategoryID: &marketing})
	require.NoError(t, err)
	assert.Len(t, filtered.Expenses, 1)
}

func TestBudgetLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	b, err := f.svc.CreateBudget(ctx, BudgetRequest{CategoryID: 1, Limit: dec(1_000_000), Month: 3, Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, DefaultAlertPct, b.AlertPct)
	assert.Equal(t, PeriodMonthly, b.Period)

	_, err = f.svc.CreateBudget(ctx, BudgetRequest{CategoryID: 1, Limit: dec(5), Month: 3, Year: 2025})
	require.ErrorIs(t, err, ErrBudgetExists)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = f.svc.CreateBudget(ctx, BudgetRequest{CategoryID: 2, Limit: decimal.Zero, Month: 3, Year: 2025})
	assert.ErrorIs(t, err, ErrInvalidLimit)
	_, err = f.svc.CreateBudget(ctx, BudgetRequest{CategoryID: 2, Limit: dec(10), Month: 13, Year: 2025})
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	_, err = f.svc.CreateBudget(ctx, BudgetRequest{CategoryID: 2, Limit: dec(10), Month: 3, Year: 2025, AlertPct: 120})
	assert.ErrorIs(t, err, ErrInvalidAlertPct)

	updated, err := f.svc.UpdateBudget(ctx, b.ID, BudgetUpdateRequest{Limit: dec(1_500_000), AlertPct: 90})
	require.NoError(t, err)
	assert.True(t, updated.Limit.Equal(dec(1_500_000)))
	assert.Equal(t, 90, updated.AlertPct)

	require.NoError(t, f.svc.DeactivateBudget(ctx, b.ID))
	assert.ErrorIs(t, f.svc.DeactivateBudget(ctx, b.ID), ErrBudgetInactive)
	_, err = f.svc.UpdateBudget(ctx, b.ID, BudgetUpdateRequest{Limit: dec(1)})
	assert.ErrorIs(t, err, ErrBudgetInactive)

	_, err = f.svc.CreateBudget(ctx, BudgetRequest{CategoryID: 1, Limit: dec(800_000), Month: 3, Year: 2025})
	assert.NoError(t, err, "a deactivated budget frees the month")
}

func TestBudgetOverview(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.CreateBudget(ctx, BudgetRequest{CategoryID: 1, Limit: dec(1_000_000), Month: 3, Year: 2025})
	require.NoError(t, err)
	_, err = f.svc.CreateBudget(ctx, BudgetRequest{CategoryID: 2, Limit: dec(200_000), Month: 3, Year: 2025})
	require.NoError(t, err)
	_, err = f.svc.CreateBudget(ctx, BudgetRequest{CategoryID: 1, Limit: dec(1), Month: 4, Year: 2025})
	require.NoError(t, err)

	_, err = f.svc.RecordExpense(ctx, admin, expenseReq("Carnes", 850_000, 1))
	require.NoError(t, err)
	_, err = f.svc.RecordExpense(ctx, admin, expenseReq("Pauta", 250_000, 2))
	require.NoError(t, err)

	o, err := f.svc.BudgetOverview(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, o.Month)
	assert.Equal(t, 2025, o.Year)
	require.Len(t, o.Budgets, 2)
	assert.True(t, o.TotalLimit.Equal(dec(1_200_000)))
	assert.True(t, o.TotalConsumed.Equal(dec(1_100_000)))
	assert.True(t, o.TotalAvailable.Equal(dec(100_000)))
	assert.Equal(t, 1, o.Alerts)
	assert.Equal(t, 1, o.Exceeded)

	var marketing BudgetUsage
	for _, u := range o.Budgets {
		if u.CategoryID == 2 {
			marketing = u
		}
	}
	assert.Equal(t, BudgetExceeded, marketing.Status)
	assert.True(t, marketing.Available.Equal(dec(-50_000)))
	assert.True(t, marketing.Percentage.Equal(dec(125)))

	april, err := f.svc.BudgetOverview(ctx, 4, 2025)
	require.NoError(t, err)
	require.Len(t, april.Budgets, 1)
	assert.Equal(t, BudgetNormal, april.Budgets[0].Status)
}

func TestCopyBudgetsToNextMonth(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.CopyBudgetsToNextMonth(ctx)
	require.ErrorIs(t, err, ErrNothingToCopy)

	_, err = f.svc.CreateBudget(ctx, BudgetRequest{CategoryID: 1, Limit: dec(1_000_000), Month: 3, Year: 2025, AlertPct: 70})
	require.NoError(t, err)
	_, err = f.svc.CreateBudget(ctx, BudgetRequest{CategoryID: 2, Limit: dec(200_000), Month: 3, Year: 2025})
	require.NoError(t, err)

	res, err := f.svc.CopyBudgetsToNextMonth(ctx)
	require.NoError(t, err)
	assert.Equal(t, CopyResult{Month: 4, Year: 2025, Copied: 2}, res)

	april, err := f.repo.ListBudgets(ctx, 4, 2025)
	require.NoError(t, err)
	require.Len(t, april, 2)
	assert.Equal(t, 70, april[0].AlertPct)

	_, err = f.svc.CopyBudgetsToNextMonth(ctx)
	assert.ErrorIs(t, err, ErrTargetHasBudgets)
	assert.Len(t, f.repo.budgets, 4)
}

func TestCopyBudgetsAcrossYearEnd(t *testing.T) {
	f := newFixture()
	f.svc.now = func() time.Time { return time.Date(2025, 12, 28, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	_, err := f.svc.CreateBudget(ctx, BudgetRequest{CategoryID: 1, Limit: dec(10), Month: 12, Year: 2025})
	require.NoError(t, err)

	res, err := f.svc.CopyBudgetsToNextMonth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Month)
	assert.Equal(t, 2026, res.Year)
}

func TestStaffMeals(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	m, err := f.svc.RecordStaffMeal(ctx, waiter, StaffMealRequest{MenuItemID: 1, Quantity: 2})
	require.NoError(t, err)
	assert.True(t, m.Cost.Equal(dec(56000)))
	assert.Equal(t, "Bandeja paisa", m.ItemName)
	require.NotNil(t, m.UserID)
	assert.Equal(t, waiter.UserID, *m.UserID)

	cost := dec(2500)
	_, err = f.svc.RecordStaffMeal(ctx, waiter, StaffMealRequest{MenuItemID: 2, Quantity: 1, Cost: &cost, Notes: " turno noche "})
	require.NoError(t, err)

	_, err = f.svc.RecordStaffMeal(ctx, waiter, StaffMealRequest{MenuItemID: 2, Quantity: 0})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	negative := dec(-1)
	_, err = f.svc.RecordStaffMeal(ctx, waiter, StaffMealRequest{MenuItemID: 2, Quantity: 1, Cost: &negative})
	assert.ErrorIs(t, err, ErrNegativeCost)

	list, err := f.svc.StaffMeals(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Count)
	assert.True(t, list.TotalCost.Equal(dec(58500)))
	assert.Equal(t, "turno noche", list.Meals[1].Notes)

	yesterday, err := f.svc.StaffMeals(ctx, time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, yesterday.Count)
}

func TestCategoriesAndProviders(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	active, err := f.svc.Categories(ctx, false)
	require.NoError(t, err)
	assert.Len(t, active, 2)
	all, err := f.svc.Categories(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	c, err := f.svc.CreateCategory(ctx, CategoryRequest{Name: " Transporte "})
	require.NoError(t, err)
	assert.Equal(t, "Transporte", c.Name)
	assert.Equal(t, defaultCategoryColor, c.Color)
	c, err = f.svc.ToggleCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, c.Active)
	_, err = f.svc.UpdateCategory(ctx, c.ID, CategoryRequest{Name: ""})
	assert.ErrorIs(t, err, ErrNameRequired)

	p, err := f.svc.CreateProvider(ctx, ProviderRequest{Name: "Frigorífico Central", Email: "Ventas@Frigo.CO"})
	require.NoError(t, err)
	assert.True(t, p.Active)
	assert.Equal(t, "ventas@frigo.co", p.Email)
	p, err = f.svc.UpdateProvider(ctx, p.ID, ProviderRequest{Name: "Frigorífico Central SAS", TaxID: "900123456"})
	require.NoError(t, err)
	assert.Equal(t, "900123456", p.TaxID)
	p, err = f.svc.ToggleProvider(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, p.Active)

	providers, err := f.svc.Providers(ctx, false)
	require.NoError(t, err)
	assert.Len(t, providers, 1)
	_, err = f.svc.ToggleProvider(ctx, 999)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
