package menu

import (
	"context"
	"strings"
)

// Service implements menu management.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Categories lists categories in display order.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreateCategory adds a category.
func (s *Service) CreateCategory(ctx context.Context, req CategoryRequest) (Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Category{}, ErrNameRequired
	}
	return s.repo.CreateCategory(ctx, Category{Name: name, Order: req.Order})
}

// DeleteCategory removes an empty category.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	n, err := s.repo.CountItems(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrCategoryInUse
	}
	return s.repo.DeleteCategory(ctx, id)
}

// Items lists every item, including unavailable ones.
func (s *Service) Items(ctx context.Context) ([]Item, error) {
	return s.repo.ListItems(ctx, false)
}

// Item returns a single item.
func (s *Service) Item(ctx context.Context, id int64) (Item, error) {
	return s.repo.GetItem(ctx, id)
}

func (s *Service) buildItem(ctx context.Context, req ItemRequest) (Item, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Item{}, ErrNameRequired
	}
	if req.Price.IsNegative() {
		return Item{}, ErrNegativePrice
	}
	ok, err := s.repo.CategoryExists(ctx, req.CategoryID)
	if err != nil {
		return Item{}, err
	}
	if !ok {
		return Item{}, ErrCategoryNotFound
	}
	available := true
	if req.Available != nil {
		available = *req.Available
	}
	return Item{
		CategoryID:  req.CategoryID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Available:   available,
		ImageURL:    strings.TrimSpace(req.ImageURL),
		Order:       req.Order,
	}, nil
}

// CreateItem adds an item to a category.
func (s *Service) CreateItem(ctx context.Context, req ItemRequest) (Item, error) {
	it, err := s.buildItem(ctx, req)
	if err != nil {
		return Item{}, err
	}
	return s.repo.CreateItem(ctx, it)
}

// UpdateItem replaces an item's editable fields.
func (s *Service) UpdateItem(ctx context.Context, id int64, req ItemRequest) (Item, error) {
	if _, err := s.repo.GetItem(ctx, id); err != nil {
		return Item{}, err
	}
	it, err := s.buildItem(ctx, req)
	if err != nil {
		return Item{}, err
	}
	it.ID = id
	if err := s.repo.UpdateItem(ctx, it); err != nil {
		return Item{}, err
	}
	return it, nil
}

// ToggleAvailable flips availability and returns the updated item.
func (s *Service) ToggleAvailable(ctx context.Context, id int64) (Item, error) {
	it, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return Item{}, err
	}
	it.Available = !it.Available
	if err := s.repo.SetAvailable(ctx, id, it.Available); err != nil {
		return Item{}, err
	}
	return it, nil
}

// DeleteItem removes an item. Past orders keep their copied name and price.
func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	return s.repo.DeleteItem(ctx, id)
}

// PublicMenu returns available items grouped by category, skipping empty categories.
func (s *Service) PublicMenu(ctx context.Context) ([]Section, error) {
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, true)
	if err != nil {
		return nil, err
	}
	byCat := make(map[int64][]Item, len(cats))
	for _, it := range items {
		byCat[it.CategoryID] = append(byCat[it.CategoryID], it)
	}
	out := make([]Section, 0, len(cats))
	for _, c := range cats {
		if len(byCat[c.ID]) == 0 {
			continue
		}
		out = append(out, Section{Category: c, Items: byCat[c.ID]})
	}
	return out, nil
}
