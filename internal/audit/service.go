package audit

import (
	"context"
	"time"

	"github.com/comanda-pos/comanda/internal/shared"
)

// Service serves the audit timeline.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// normalize fills a default window of the last seven days and rejects wide ranges.
func (s *Service) normalize(f Filters) (Filters, error) {
	if f.To.IsZero() {
		f.To = s.now()
	}
	if f.From.IsZero() {
		f.From = f.To.Add(-defaultRange)
	}
	if !f.From.Before(f.To) || f.To.Sub(f.From) > maxRange {
		return Filters{}, ErrInvalidRange
	}
	return f, nil
}

// Timeline returns one page of audit entries, newest first.
func (s *Service) Timeline(ctx context.Context, f Filters, page shared.PageRequest) (Page, error) {
	f, err := s.normalize(f)
	if err != nil {
		return Page{}, err
	}
	if page.Page <= 0 {
		page.Page = 1
	}
	if page.PerPage <= 0 {
		page.PerPage = 50
	}
	entries, err := s.repo.Timeline(ctx, f, page.PerPage+1, page.Offset())
	if err != nil {
		return Page{}, err
	}
	hasNext := len(entries) > page.PerPage
	if hasNext {
		entries = entries[:page.PerPage]
	}
	return Page{Entries: entries, Page: page.Page, PerPage: page.PerPage, HasNext: hasNext}, nil
}

// Export returns every entry matching the filters.
func (s *Service) Export(ctx context.Context, f Filters) ([]Entry, error) {
	f, err := s.normalize(f)
	if err != nil {
		return nil, err
	}
	return s.repo.Timeline(ctx, f, 0, 0)
}
