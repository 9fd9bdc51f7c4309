package expenses

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/shared"
)

// RecordStaffMeal logs menu items consumed by staff. Without an explicit cost the
// meal is valued at quantity times the menu price.
func (s *Service) RecordStaffMeal(ctx context.Context, actor shared.Actor, req StaffMealRequest) (StaffMeal, error) {
	if req.Quantity <= 0 {
		return StaffMeal{}, ErrInvalidQuantity
	}
	item, err := s.catalog.Item(ctx, req.MenuItemID)
	if err != nil {
		return StaffMeal{}, err
	}
	cost := item.Price.Mul(decimal.NewFromInt(int64(req.Quantity)))
	if req.Cost != nil {
		if req.Cost.IsNegative() {
			return StaffMeal{}, ErrNegativeCost
		}
		cost = *req.Cost
	}
	m := StaffMeal{
		MenuItemID: item.ID,
		ItemName:   item.Name,
		Quantity:   req.Quantity,
		Cost:       cost,
		ConsumedAt: s.now(),
		UserID:     req.UserID,
		Notes:      strings.TrimSpace(req.Notes),
	}
	if m.UserID == nil && actor.UserID != 0 {
		uid := actor.UserID
		m.UserID = &uid
		m.Username = actor.Username
	}
	id, err := s.repo.InsertStaffMeal(ctx, m)
	if err != nil {
		return StaffMeal{}, err
	}
	m.ID = id
	s.logger.Info("staff meal recorded",
		slog.Int64("staff_meal_id", id),
		slog.String("item", m.ItemName),
		slog.Int("quantity", m.Quantity))
	return m, nil
}

// StaffMeals lists the staff meals of the business day containing day. A zero day
// means the current business day.
func (s *Service) StaffMeals(ctx context.Context, day time.Time) (StaffMealDay, error) {
	window := shared.BusinessDay(s.localNow(), s.cfg.CutoffHour)
	if !day.IsZero() {
		window = shared.DateRange(day, day, s.cfg.CutoffHour)
	}
	meals, err := s.repo.ListStaffMeals(ctx, window)
	if err != nil {
		return StaffMealDay{}, err
	}
	out := StaffMealDay{Day: shared.Today(window.Start), Meals: meals, TotalCost: decimal.Zero, Count: len(meals)}
	for _, m := range meals {
		out.TotalCost = out.TotalCost.Add(m.Cost)
	}
	return out, nil
}
