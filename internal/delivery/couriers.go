package delivery

import (
	"context"
	"log/slog"
	"strings"
)

// Couriers lists couriers by name.
func (s *Service) Couriers(ctx context.Context, activeOnly bool) ([]Courier, error) {
	return s.repo.ListCouriers(ctx, activeOnly)
}

func courierFrom(req CourierRequest) Courier {
	vehicle := strings.TrimSpace(req.VehicleType)
	if vehicle == "" {
		vehicle = "moto"
	}
	return Courier{
		Name:        strings.TrimSpace(req.Name),
		Phone:       strings.TrimSpace(req.Phone),
		Plate:       strings.ToUpper(strings.TrimSpace(req.Plate)),
		VehicleType: vehicle,
	}
}

// CreateCourier registers an active courier.
func (s *Service) CreateCourier(ctx context.Context, req CourierRequest) (Courier, error) {
	c := courierFrom(req)
	c.Active = true
	id, err := s.repo.InsertCourier(ctx, c)
	if err != nil {
		return Courier{}, err
	}
	c.ID = id
	s.logger.Info("courier created", slog.Int64("courier_id", id), slog.String("name", c.Name))
	return c, nil
}

// UpdateCourier replaces courier data, keeping the active flag.
func (s *Service) UpdateCourier(ctx context.Context, id int64, req CourierRequest) (Courier, error) {
	current, err := s.repo.GetCourier(ctx, id)
	if err != nil {
		return Courier{}, err
	}
	c := courierFrom(req)
	c.ID, c.Active = id, current.Active
	if err := s.repo.UpdateCourier(ctx, c); err != nil {
		return Courier{}, err
	}
	return c, nil
}

// ToggleCourier flips the active flag.
func (s *Service) ToggleCourier(ctx context.Context, id int64) (Courier, error) {
	c, err := s.repo.GetCourier(ctx, id)
	if err != nil {
		return Courier{}, err
	}
	c.Active = !c.Active
	if err := s.repo.UpdateCourier(ctx, c); err != nil {
		return Courier{}, err
	}
	s.logger.Info("courier toggled", slog.Int64("courier_id", id), slog.Bool("active", c.Active))
	return c, nil
}
