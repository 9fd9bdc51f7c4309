package delivery

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/platform/db"
	"github.com/comanda-pos/comanda/internal/shared"
)

// Repository provides persistence for deliveries, couriers and zones.
type Repository interface {
	Get(ctx context.Context, id int64) (Delivery, error)
	List(ctx context.Context, window shared.Window, states []State) ([]Delivery, error)

	ListCouriers(ctx context.Context, activeOnly bool) ([]Courier, error)
	GetCourier(ctx context.Context, id int64) (Courier, error)
	InsertCourier(ctx context.Context, c Courier) (int64, error)
	UpdateCourier(ctx context.Context, c Courier) error

	ListZones(ctx context.Context, activeOnly bool) ([]Zone, error)
	GetZone(ctx context.Context, id int64) (Zone, error)
	InsertZone(ctx context.Context, z Zone) (int64, error)
	UpdateZone(ctx context.Context, z Zone) error

	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	Insert(ctx context.Context, d Delivery) (int64, error)
	InsertItem(ctx context.Context, it Item) (int64, error)
	GetForUpdate(ctx context.Context, id int64) (Delivery, error)
	Update(ctx context.Context, d Delivery) error
	GetItem(ctx context.Context, itemID int64) (Item, error)
	UpdateItemState(ctx context.Context, itemID int64, state KitchenState) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// WithTx wraps fn in a read-committed transaction. Writers lock the delivery row
// first, so statements after the lock see what the previous holder committed.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxLevel(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const deliveryColumns = `d.id, d.customer_name, d.customer_phone, d.customer_address,
	d.customer_neighborhood, d.customer_references, d.ordered_at, d.estimated_at,
	d.delivered_at, d.state, d.subtotal, d.delivery_fee, d.tip, d.total, d.payment_method,
	d.paid, d.taken_by, d.courier_id, COALESCE(c.name, ''), d.invoice_id, d.notes,
	d.cancel_reason, d.state_updated_at`

const deliveryFrom = ` FROM deliveries d LEFT JOIN couriers c ON c.id = d.courier_id`

func scanDelivery(row pgx.Row) (Delivery, error) {
	var d Delivery
	err := row.Scan(&d.ID, &d.CustomerName, &d.CustomerPhone, &d.CustomerAddress,
		&d.CustomerNeighborhood, &d.CustomerReferences, &d.OrderedAt, &d.EstimatedAt,
		&d.DeliveredAt, &d.State, &d.Subtotal, &d.Fee, &d.Tip, &d.Total, &d.PaymentMethod,
		&d.Paid, &d.TakenBy, &d.CourierID, &d.CourierName, &d.InvoiceID, &d.Notes,
		&d.CancelReason, &d.StateUpdatedAt)
	return d, err
}

const itemColumns = `id, delivery_id, menu_item_id, product_name, quantity, unit_price, notes, kitchen_state`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.DeliveryID, &it.MenuItemID, &it.ProductName, &it.Quantity,
		&it.UnitPrice, &it.Notes, &it.KitchenState)
	return it, err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getDelivery(ctx context.Context, q querier, id int64, lock bool) (Delivery, error) {
	sql := `SELECT ` + deliveryColumns + deliveryFrom + ` WHERE d.id = $1`
	if lock {
		sql += ` FOR UPDATE OF d`
	}
	d, err := scanDelivery(q.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Delivery{}, ErrNotFound
	}
	if err != nil {
		return Delivery{}, err
	}
	items, err := loadItems(ctx, q, []int64{id})
	if err != nil {
		return Delivery{}, err
	}
	d.Items = items[id]
	if d.Items == nil {
		d.Items = []Item{}
	}
	return d, nil
}

func loadItems(ctx context.Context, q querier, ids []int64) (map[int64][]Item, error) {
	out := make(map[int64][]Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := q.Query(ctx, `SELECT `+itemColumns+` FROM delivery_items
		WHERE delivery_id = ANY($1) ORDER BY delivery_id, id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out[it.DeliveryID] = append(out[it.DeliveryID], it)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Delivery, error) {
	return getDelivery(ctx, r.pool, id, false)
}

// List returns deliveries ordered in window, oldest first, with their items.
// An empty states slice matches every state.
func (r *repository) List(ctx context.Context, window shared.Window, states []State) ([]Delivery, error) {
	filter := make([]string, 0, len(states))
	for _, s := range states {
		filter = append(filter, string(s))
	}
	rows, err := r.pool.Query(ctx, `SELECT `+deliveryColumns+deliveryFrom+`
		WHERE d.ordered_at >= $1 AND d.ordered_at < $2
		  AND (cardinality($3::text[]) = 0 OR d.state = ANY($3))
		ORDER BY d.ordered_at, d.id`, window.Start, window.End, filter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out []Delivery
		ids []int64
	)
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
		ids = append(ids, d.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	items, err := loadItems(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
		if out[i].Items == nil {
			out[i].Items = []Item{}
		}
	}
	return out, nil
}

const courierColumns = `id, name, phone, plate, vehicle_type, active`

func scanCourier(row pgx.Row) (Courier, error) {
	var c Courier
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Plate, &c.VehicleType, &c.Active)
	return c, err
}

func (r *repository) ListCouriers(ctx context.Context, activeOnly bool) ([]Courier, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+courierColumns+` FROM couriers
		WHERE active OR NOT $1 ORDER BY name`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Courier
	for rows.Next() {
		c, err := scanCourier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) GetCourier(ctx context.Context, id int64) (Courier, error) {
	c, err := scanCourier(r.pool.QueryRow(ctx, `SELECT `+courierColumns+` FROM couriers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Courier{}, ErrCourierNotFound
	}
	return c, err
}

func (r *repository) InsertCourier(ctx context.Context, c Courier) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO couriers (name, phone, plate, vehicle_type, active)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		c.Name, c.Phone, c.Plate, c.VehicleType, c.Active).Scan(&id)
	return id, err
}

func (r *repository) UpdateCourier(ctx context.Context, c Courier) error {
	tag, err := r.pool.Exec(ctx, `UPDATE couriers
		SET name = $2, phone = $3, plate = $4, vehicle_type = $5, active = $6
		WHERE id = $1`, c.ID, c.Name, c.Phone, c.Plate, c.VehicleType, c.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCourierNotFound
	}
	return nil
}

const zoneColumns = `id, name, neighborhoods, fee, eta_minutes, active, sort_order`

func scanZone(row pgx.Row) (Zone, error) {
	var z Zone
	err := row.Scan(&z.ID, &z.Name, &z.Neighborhoods, &z.Fee, &z.ETAMinutes, &z.Active, &z.Order)
	return z, err
}

func (r *repository) ListZones(ctx context.Context, activeOnly bool) ([]Zone, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+zoneColumns+` FROM delivery_zones
		WHERE active OR NOT $1 ORDER BY sort_order, id`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

func (r *repository) GetZone(ctx context.Context, id int64) (Zone, error) {
	z, err := scanZone(r.pool.QueryRow(ctx, `SELECT `+zoneColumns+` FROM delivery_zones WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Zone{}, ErrZoneNotFound
	}
	return z, err
}

func (r *repository) InsertZone(ctx context.Context, z Zone) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO delivery_zones (name, neighborhoods, fee, eta_minutes, active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		z.Name, z.Neighborhoods, z.Fee, z.ETAMinutes, z.Active, z.Order).Scan(&id)
	return id, err
}

func (r *repository) UpdateZone(ctx context.Context, z Zone) error {
	tag, err := r.pool.Exec(ctx, `UPDATE delivery_zones
		SET name = $2, neighborhoods = $3, fee = $4, eta_minutes = $5, active = $6, sort_order = $7
		WHERE id = $1`, z.ID, z.Name, z.Neighborhoods, z.Fee, z.ETAMinutes, z.Active, z.Order)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrZoneNotFound
	}
	return nil
}

type txRepository struct {
	tx pgx.Tx
}

func (t *txRepository) Insert(ctx context.Context, d Delivery) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO deliveries (
			customer_name, customer_phone, customer_address, customer_neighborhood,
			customer_references, ordered_at, estimated_at, state, subtotal, delivery_fee,
			tip, total, payment_method, paid, taken_by, courier_id, notes, state_updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`,
		d.CustomerName, d.CustomerPhone, d.CustomerAddress, d.CustomerNeighborhood,
		d.CustomerReferences, d.OrderedAt, d.EstimatedAt, d.State, d.Subtotal, d.Fee,
		d.Tip, d.Total, d.PaymentMethod, d.Paid, d.TakenBy, d.CourierID, d.Notes, d.StateUpdatedAt,
	).Scan(&id)
	return id, err
}

func (t *txRepository) InsertItem(ctx context.Context, it Item) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO delivery_items (delivery_id, menu_item_id, product_name, quantity, unit_price, notes, kitchen_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		it.DeliveryID, it.MenuItemID, it.ProductName, it.Quantity, it.UnitPrice, it.Notes, it.KitchenState,
	).Scan(&id)
	return id, err
}

func (t *txRepository) GetForUpdate(ctx context.Context, id int64) (Delivery, error) {
	return getDelivery(ctx, t.tx, id, true)
}

// Update writes every mutable column of d. The invoice link is owned by invoicing
// and left alone.
func (t *txRepository) Update(ctx context.Context, d Delivery) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE deliveries SET
			customer_name = $2, customer_phone = $3, customer_address = $4,
			customer_neighborhood = $5, customer_references = $6, estimated_at = $7,
			delivered_at = $8, state = $9, subtotal = $10, delivery_fee = $11, tip = $12,
			total = $13, payment_method = $14, paid = $15, courier_id = $16, notes = $17,
			cancel_reason = $18, state_updated_at = $19
		WHERE id = $1`,
		d.ID, d.CustomerName, d.CustomerPhone, d.CustomerAddress,
		d.CustomerNeighborhood, d.CustomerReferences, d.EstimatedAt,
		d.DeliveredAt, d.State, d.Subtotal, d.Fee, d.Tip,
		d.Total, d.PaymentMethod, d.Paid, d.CourierID, d.Notes,
		d.CancelReason, d.StateUpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) GetItem(ctx context.Context, itemID int64) (Item, error) {
	it, err := scanItem(t.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM delivery_items
		WHERE id = $1 FOR UPDATE`, itemID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	return it, err
}

func (t *txRepository) UpdateItemState(ctx context.Context, itemID int64, state KitchenState) error {
	tag, err := t.tx.Exec(ctx, `UPDATE delivery_items SET kitchen_state = $2 WHERE id = $1`, itemID, state)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

