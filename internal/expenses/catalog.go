package expenses

import (
	"context"
	"strings"
)

const defaultCategoryColor = "#6c757d"

// Categories lists expense categories.
func (s *Service) Categories(ctx context.Context, includeInactive bool) ([]Category, error) {
	return s.repo.ListCategories(ctx, !includeInactive)
}

// CreateCategory adds an active category.
func (s *Service) CreateCategory(ctx context.Context, req CategoryRequest) (Category, error) {
	c := Category{Active: true}
	if err := applyCategory(&c, req); err != nil {
		return Category{}, err
	}
	id, err := s.repo.InsertCategory(ctx, c)
	if err != nil {
		return Category{}, err
	}
	c.ID = id
	return c, nil
}

// UpdateCategory edits a category.
func (s *Service) UpdateCategory(ctx context.Context, id int64, req CategoryRequest) (Category, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return Category{}, err
	}
	if err := applyCategory(&c, req); err != nil {
		return Category{}, err
	}
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return Category{}, err
	}
	return c, nil
}

// ToggleCategory flips the active flag of a category.
func (s *Service) ToggleCategory(ctx context.Context, id int64) (Category, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return Category{}, err
	}
	c.Active = !c.Active
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return Category{}, err
	}
	return c, nil
}

func applyCategory(c *Category, req CategoryRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return ErrNameRequired
	}
	c.Name = name
	c.Description = strings.TrimSpace(req.Description)
	c.Color = strings.TrimSpace(req.Color)
	if c.Color == "" {
		c.Color = defaultCategoryColor
	}
	return nil
}

// Providers lists providers.
func (s *Service) Providers(ctx context.Context, includeInactive bool) ([]Provider, error) {
	return s.repo.ListProviders(ctx, !includeInactive)
}

// GetProvider returns one provider.
func (s *Service) GetProvider(ctx context.Context, id int64) (Provider, error) {
	return s.repo.GetProvider(ctx, id)
}

// CreateProvider registers an active provider.
func (s *Service) CreateProvider(ctx context.Context, req ProviderRequest) (Provider, error) {
	p := Provider{Active: true}
	if err := applyProvider(&p, req); err != nil {
		return Provider{}, err
	}
	id, err := s.repo.InsertProvider(ctx, p)
	if err != nil {
		return Provider{}, err
	}
	p.ID = id
	return p, nil
}

// UpdateProvider edits a provider.
func (s *Service) UpdateProvider(ctx context.Context, id int64, req ProviderRequest) (Provider, error) {
	p, err := s.repo.GetProvider(ctx, id)
	if err != nil {
		return Provider{}, err
	}
	if err := applyProvider(&p, req); err != nil {
		return Provider{}, err
	}
	if err := s.repo.UpdateProvider(ctx, p); err != nil {
		return Provider{}, err
	}
	return p, nil
}

// ToggleProvider flips the active flag of a provider.
func (s *Service) ToggleProvider(ctx context.Context, id int64) (Provider, error) {
	p, err := s.repo.GetProvider(ctx, id)
	if err != nil {
		return Provider{}, err
	}
	p.Active = !p.Active
	if err := s.repo.UpdateProvider(ctx, p); err != nil {
		return Provider{}, err
	}
	return p, nil
}

func applyProvider(p *Provider, req ProviderRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return ErrNameRequired
	}
	p.Name = name
	p.TaxID = strings.TrimSpace(req.TaxID)
	p.Phone = strings.TrimSpace(req.Phone)
	p.Email = strings.ToLower(strings.TrimSpace(req.Email))
	p.Address = strings.TrimSpace(req.Address)
	p.Notes = strings.TrimSpace(req.Notes)
	return nil
}
