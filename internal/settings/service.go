package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/shared"
)

// ErrInvalidVAT rejects VAT percentages outside 0-100.
var ErrInvalidVAT = fmt.Errorf("%w: vat_pct must be between 0 and 100", shared.ErrValidation)

// Service serves the profile from an in-process copy that Update invalidates.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	cached *Profile
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Get returns the profile, loading it once.
func (s *Service) Get(ctx context.Context) (Profile, error) {
	s.mu.RLock()
	if s.cached != nil {
		p := *s.cached
		s.mu.RUnlock()
		return p, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return *s.cached, nil
	}
	p, err := s.repo.Load(ctx)
	if err != nil {
		return Profile{}, err
	}
	s.cached = &p
	return p, nil
}

// Update stores new profile values and drops the cached copy.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (Profile, error) {
	if req.VATPct.IsNegative() || req.VATPct.GreaterThan(decimal.NewFromInt(100)) {
		return Profile{}, ErrInvalidVAT
	}
	p := Profile{
		Name:           strings.TrimSpace(req.Name),
		TaxID:          strings.TrimSpace(req.TaxID),
		Address:        strings.TrimSpace(req.Address),
		City:           strings.TrimSpace(req.City),
		Phone:          strings.TrimSpace(req.Phone),
		Email:          strings.TrimSpace(req.Email),
		Regime:         strings.TrimSpace(req.Regime),
		DianResolution: strings.TrimSpace(req.DianResolution),
		InvoiceRange:   strings.TrimSpace(req.InvoiceRange),
		VATPct:         req.VATPct,
		LogoURL:        strings.TrimSpace(req.LogoURL),
		UpdatedAt:      s.now(),
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return Profile{}, err
	}
	s.Invalidate()
	s.logger.Info("restaurant profile updated", slog.String("name", p.Name))
	return p, nil
}

// Invalidate forces the next Get to reload from the store.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}
