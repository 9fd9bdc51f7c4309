package delivery

import (
	"context"
	"log/slog"
	"strings"
)

// SplitNeighborhoods turns a comma separated list into trimmed names.
func SplitNeighborhoods(raw string) []string {
	var out []string
	for _, n := range strings.Split(raw, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// QuoteFee finds the active zone that lists the neighborhood, ignoring case. With
// no match the configured default fee and ETA apply.
func (s *Service) QuoteFee(ctx context.Context, neighborhood string) (Quote, error) {
	def := Quote{Fee: s.cfg.DefaultFee, ETAMinutes: s.cfg.DefaultETA}
	neighborhood = strings.TrimSpace(neighborhood)
	if neighborhood == "" {
		return def, nil
	}
	zones, err := s.repo.ListZones(ctx, true)
	if err != nil {
		return Quote{}, err
	}
	for _, z := range zones {
		for _, n := range SplitNeighborhoods(z.Neighborhoods) {
			if strings.EqualFold(n, neighborhood) {
				eta := z.ETAMinutes
				if eta <= 0 {
					eta = s.cfg.DefaultETA
				}
				return Quote{Matched: true, Zone: z.Name, Fee: z.Fee, ETAMinutes: eta}, nil
			}
		}
	}
	return def, nil
}

// Zones lists delivery zones in display order.
func (s *Service) Zones(ctx context.Context, activeOnly bool) ([]Zone, error) {
	return s.repo.ListZones(ctx, activeOnly)
}

func (s *Service) zoneFrom(req ZoneRequest) (Zone, error) {
	if req.Fee.IsNegative() {
		return Zone{}, ErrNegativeAmount
	}
	eta := req.ETAMinutes
	if eta == 0 {
		eta = s.cfg.DefaultETA
	}
	return Zone{
		Name:          strings.TrimSpace(req.Name),
		Neighborhoods: strings.Join(SplitNeighborhoods(req.Neighborhoods), ", "),
		Fee:           req.Fee,
		ETAMinutes:    eta,
		Order:         req.Order,
	}, nil
}

// CreateZone adds an active zone.
func (s *Service) CreateZone(ctx context.Context, req ZoneRequest) (Zone, error) {
	z, err := s.zoneFrom(req)
	if err != nil {
		return Zone{}, err
	}
	z.Active = true
	if z.ID, err = s.repo.InsertZone(ctx, z); err != nil {
		return Zone{}, err
	}
	s.logger.Info("delivery zone created", slog.Int64("zone_id", z.ID), slog.String("name", z.Name))
	return z, nil
}

// UpdateZone replaces a zone, keeping its active flag.
func (s *Service) UpdateZone(ctx context.Context, id int64, req ZoneRequest) (Zone, error) {
	current, err := s.repo.GetZone(ctx, id)
	if err != nil {
		return Zone{}, err
	}
	z, err := s.zoneFrom(req)
	if err != nil {
		return Zone{}, err
	}
	z.ID, z.Active = id, current.Active
	if err := s.repo.UpdateZone(ctx, z); err != nil {
		return Zone{}, err
	}
	return z, nil
}

// ToggleZone flips the active flag.
func (s *Service) ToggleZone(ctx context.Context, id int64) (Zone, error) {
	z, err := s.repo.GetZone(ctx, id)
	if err != nil {
		return Zone{}, err
	}
	z.Active = !z.Active
	if err := s.repo.UpdateZone(ctx, z); err != nil {
		return Zone{}, err
	}
	s.logger.Info("delivery zone toggled", slog.Int64("zone_id", id), slog.Bool("active", z.Active))
	return z, nil
}
