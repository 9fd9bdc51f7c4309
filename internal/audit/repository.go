package audit

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads audit_log.
type Repository interface {
	Timeline(ctx context.Context, f Filters, limit, offset int) ([]Entry, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const timelineQuery = `
SELECT a.id, a.occurred_at, a.actor_id, COALESCE(u.username, ''), a.action, a.entity, a.entity_id, a.meta
FROM audit_log a
LEFT JOIN users u ON u.id = a.actor_id
WHERE a.occurred_at >= $1 AND a.occurred_at < $2
  AND ($3 = '' OR u.username = $3)
  AND ($4 = '' OR a.entity = $4)
  AND ($5 = '' OR a.action = $5)
ORDER BY a.occurred_at DESC, a.id DESC`

func (r *repository) Timeline(ctx context.Context, f Filters, limit, offset int) ([]Entry, error) {
	query := timelineQuery
	args := []any{f.From, f.To, strings.TrimSpace(f.Actor), strings.TrimSpace(f.Entity), strings.TrimSpace(f.Action)}
	if limit > 0 {
		query += ` LIMIT $6 OFFSET $7`
		args = append(args, limit, offset)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var (
			e    Entry
			meta []byte
		)
		if err := row.Scan(&e.ID, &e.At, &e.ActorID, &e.Actor, &e.Action, &e.Entity, &e.EntityID, &meta); err != nil {
			return Entry{}, err
		}
		if len(meta) > 0 && string(meta) != "null" {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return Entry{}, err
			}
		}
		return e, nil
	})
}
