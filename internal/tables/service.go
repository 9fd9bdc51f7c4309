package tables

import (
	"context"
	"log/slog"
)

// Service provides table management rules.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// List returns tables with their occupancy, optionally only active ones.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]Overview, error) {
	return s.repo.List(ctx, activeOnly)
}

// Get returns one table.
func (s *Service) Get(ctx context.Context, id int64) (Table, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new table.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Table, error) {
	if req.Number <= 0 {
		return Table{}, ErrInvalidNumber
	}
	if req.Capacity <= 0 {
		return Table{}, ErrInvalidCapacity
	}
	t, err := s.repo.Create(ctx, Table{Number: req.Number, Capacity: req.Capacity})
	if err != nil {
		return Table{}, err
	}
	s.logger.Info("table created", slog.Int64("table_id", t.ID), slog.Int("number", t.Number))
	return t, nil
}

// ToggleActive flips the active flag and returns the new table state.
func (s *Service) ToggleActive(ctx context.Context, id int64) (Table, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return Table{}, err
	}
	t.Active = !t.Active
	if err := s.repo.SetActive(ctx, id, t.Active); err != nil {
		return Table{}, err
	}
	return t, nil
}

// Delete removes a table that never had orders.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	used, err := s.repo.HasOrders(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return ErrHasHistory
	}
	return s.repo.Delete(ctx, id)
}
