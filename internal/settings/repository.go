package settings

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository loads and stores the profile row.
type Repository interface {
	Load(ctx context.Context) (Profile, error)
	Save(ctx context.Context, p Profile) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Load returns the profile, inserting the default row on first use.
func (r *repository) Load(ctx context.Context) (Profile, error) {
	if _, err := r.pool.Exec(ctx, `INSERT INTO restaurant_profile (id) VALUES (1) ON CONFLICT (id) DO NOTHING`); err != nil {
		return Profile{}, err
	}
	var p Profile
	err := r.pool.QueryRow(ctx, `
		SELECT name, tax_id, address, city, phone, email, regime, dian_resolution,
		       invoice_range, vat_pct, logo_url, updated_at
		FROM restaurant_profile WHERE id = 1`).Scan(
		&p.Name, &p.TaxID, &p.Address, &p.City, &p.Phone, &p.Email, &p.Regime,
		&p.DianResolution, &p.InvoiceRange, &p.VATPct, &p.LogoURL, &p.UpdatedAt)
	return p, err
}

func (r *repository) Save(ctx context.Context, p Profile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO restaurant_profile (id, name, tax_id, address, city, phone, email, regime,
		                                dian_resolution, invoice_range, vat_pct, logo_url, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, tax_id = EXCLUDED.tax_id, address = EXCLUDED.address,
			city = EXCLUDED.city, phone = EXCLUDED.phone, email = EXCLUDED.email,
			regime = EXCLUDED.regime, dian_resolution = EXCLUDED.dian_resolution,
			invoice_range = EXCLUDED.invoice_range, vat_pct = EXCLUDED.vat_pct,
			logo_url = EXCLUDED.logo_url, updated_at = EXCLUDED.updated_at`,
		p.Name, p.TaxID, p.Address, p.City, p.Phone, p.Email, p.Regime,
		p.DianResolution, p.InvoiceRange, p.VATPct, p.LogoURL, p.UpdatedAt)
	return err
}
