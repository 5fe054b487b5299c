package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/refuel-athletics/gelstore/internal/domain/cart"
)

var _ cart.Persistence = (*CartRepository)(nil)

// CartRepository stores one JSONB cart snapshot per session.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Load returns the stored items for sessionID.
func (r *CartRepository) Load(ctx context.Context, sessionID string) ([]cart.LineItem, bool, error) {
	var items []cart.LineItem
	err := r.pool.QueryRow(ctx,
		`SELECT items FROM carts WHERE session_id = $1`, sessionID,
	).Scan(&items)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "load cart %s", sessionID)
	}
	return items, true, nil
}

// Save upserts the snapshot. The last write wins.
func (r *CartRepository) Save(ctx context.Context, sessionID string, items []cart.LineItem) error {
	if items == nil {
		items = []cart.LineItem{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO carts (session_id, items, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (session_id) DO UPDATE
		SET items = EXCLUDED.items, updated_at = EXCLUDED.updated_at`,
		sessionID, items,
	)
	if err != nil {
		return errors.Wrapf(err, "save cart %s", sessionID)
	}
	return nil
}
