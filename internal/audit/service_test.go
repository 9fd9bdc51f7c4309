package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comanda-pos/comanda/internal/shared"
)

type fakeRepository struct {
	entries     []Entry
	lastFilters Filters
	lastLimit   int
	lastOffset  int
	err         error
}

func (f *fakeRepository) Timeline(_ context.Context, filters Filters, limit, offset int) ([]Entry, error) {
	f.lastFilters, f.lastLimit, f.lastOffset = filters, limit, offset
	if f.err != nil {
		return nil, f.err
	}
	out := f.entries
	if offset < len(out) {
		out = out[offset:]
	} else {
		out = nil
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var auditNow = time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)

func newTestService(repo Repository) *Service {
	svc := NewService(repo)
	svc.now = func() time.Time { return auditNow }
	return svc
}

func entries(n int) []Entry {
	out := make([]Entry, n)
	for i := range out {
		out[i] = Entry{ID: int64(n - i), Action: "delete", Entity: "invoice", EntityID: "1", At: auditNow.Add(-time.Duration(i) * time.Hour)}
	}
	return out
}

func TestTimelineDefaultsToLastWeek(t *testing.T) {
	repo := &fakeRepository{entries: entries(3)}
	page, err := newTestService(repo).Timeline(context.Background(), Filters{}, shared.PageRequest{})
	require.NoError(t, err)

	assert.Equal(t, auditNow, repo.lastFilters.To)
	assert.Equal(t, auditNow.Add(-7*24*time.Hour), repo.lastFilters.From)
	assert.Len(t, page.Entries, 3)
	assert.Equal(t, 1, page.Page)
	assert.False(t, page.HasNext)
}

func TestTimelinePaging(t *testing.T) {
	repo := &fakeRepository{entries: entries(5)}
	svc := newTestService(repo)

	first, err := svc.Timeline(context.Background(), Filters{}, shared.PageRequest{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, first.Entries, 2)
	assert.True(t, first.HasNext)
	assert.Equal(t, 3, repo.lastLimit)

	last, err := svc.Timeline(context.Background(), Filters{}, shared.PageRequest{Page: 3, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, repo.lastOffset)
	assert.Len(t, last.Entries, 1)
	assert.False(t, last.HasNext)
}

func TestTimelineRejectsBadRange(t *testing.T) {
	svc := newTestService(&fakeRepository{})
	_, err := svc.Timeline(context.Background(), Filters{From: auditNow, To: auditNow.Add(-time.Hour)}, shared.PageRequest{})
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Export(context.Background(), Filters{From: auditNow.AddDate(0, -6, 0), To: auditNow})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestExportIsUnpaged(t *testing.T) {
	repo := &fakeRepository{entries: entries(120)}
	out, err := newTestService(repo).Export(context.Background(), Filters{Entity: "expense"})
	require.NoError(t, err)
	assert.Len(t, out, 120)
	assert.Equal(t, 0, repo.lastLimit)
	assert.Equal(t, "expense", repo.lastFilters.Entity)

	repo.err = errors.New("db gone")
	_, err = newTestService(repo).Export(context.Background(), Filters{})
	assert.EqualError(t, err, "db gone")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	bogota := time.FixedZone("COT", -5*3600)
	err := writeCSV(&buf, []Entry{
		{At: auditNow, Actor: "admin", Action: "delete", Entity: "invoice", EntityID: "42"},
	}, bogota)
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"fecha", "usuario", "accion", "entidad", "id"}, records[0])
	assert.Equal(t, []string{"2025-03-14 13:00:00", "admin", "delete", "invoice", "42"}, records[1])
}
