package tables

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comanda-pos/comanda/internal/shared"
)

type mockRepository struct {
	tables    map[int64]Table
	withOrder map[int64]bool
	nextID    int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{tables: map[int64]Table{}, withOrder: map[int64]bool{}}
}

func (m *mockRepository) List(_ context.Context, activeOnly bool) ([]Overview, error) {
	var out []Overview
	for _, t := range m.tables {
		if activeOnly && !t.Active {
			continue
		}
		out = append(out, Overview{Table: t})
	}
	return out, nil
}

func (m *mockRepository) Get(_ context.Context, id int64) (Table, error) {
	t, ok := m.tables[id]
	if !ok {
		return Table{}, ErrNotFound
	}
	return t, nil
}

func (m *mockRepository) Create(_ context.Context, t Table) (Table, error) {
	for _, existing := range m.tables {
		if existing.Number == t.Number {
			return Table{}, ErrDuplicateNumber
		}
	}
	m.nextID++
	t.ID = m.nextID
	t.Active = true
	m.tables[t.ID] = t
	return t, nil
}

func (m *mockRepository) SetActive(_ context.Context, id int64, active bool) error {
	t := m.tables[id]
	t.Active = active
	m.tables[id] = t
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id int64) error {
	delete(m.tables, id)
	return nil
}

func (m *mockRepository) HasOrders(_ context.Context, id int64) (bool, error) {
	return m.withOrder[id], nil
}

func TestCreateValidatesInput(t *testing.T) {
	svc := NewService(newMockRepository(), nil)

	_, err := svc.Create(context.Background(), CreateRequest{Number: 0, Capacity: 4})
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.Create(context.Background(), CreateRequest{Number: 1, Capacity: 0})
	assert.ErrorIs(t, err, shared.ErrValidation)

	created, err := svc.Create(context.Background(), CreateRequest{Number: 3, Capacity: 4})
	require.NoError(t, err)
	assert.True(t, created.Active)

	_, err = svc.Create(context.Background(), CreateRequest{Number: 3, Capacity: 2})
	assert.ErrorIs(t, err, ErrDuplicateNumber)
}

func TestToggleAndListActiveOnly(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	a, _ := svc.Create(context.Background(), CreateRequest{Number: 1, Capacity: 2})
	_, _ = svc.Create(context.Background(), CreateRequest{Number: 2, Capacity: 2})

	toggled, err := svc.ToggleActive(context.Background(), a.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Active)

	active, _ := svc.List(context.Background(), true)
	assert.Len(t, active, 1)
	all, _ := svc.List(context.Background(), false)
	assert.Len(t, all, 2)
}

func TestDeleteRefusesTablesWithOrders(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	used, _ := svc.Create(context.Background(), CreateRequest{Number: 1, Capacity: 2})
	fresh, _ := svc.Create(context.Background(), CreateRequest{Number: 2, Capacity: 2})
	repo.withOrder[used.ID] = true

	assert.ErrorIs(t, svc.Delete(context.Background(), used.ID), shared.ErrInvalidState)
	require.NoError(t, svc.Delete(context.Background(), fresh.ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), fresh.ID), shared.ErrNotFound)
}
