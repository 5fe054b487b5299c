package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/refuel-athletics/gelstore/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

const orderColumns = `reference, payment_ref, user_id, session_id, items, shipping,
	subtotal, shipping_cost, tax, total, amount_minor, currency, status, created_at`

// OrderRepository implements order.Repository backed by PostgreSQL. The
// unique payment_ref column makes Create idempotent per payment.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts o. When an order for the same payment already exists the
// insert is skipped and the existing reference is returned.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) (string, bool, error) {
	var ref string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (payment_ref) DO NOTHING
		RETURNING reference`,
		o.Reference, o.PaymentRef, o.UserID, o.SessionID, o.Items, o.Shipping,
		o.Subtotal, o.ShippingCost, o.Tax, o.Total, o.AmountMinor, o.Currency,
		string(o.Status), o.CreatedAt,
	).Scan(&ref)
	switch {
	case err == nil:
		return ref, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Conflict on payment_ref.
	default:
		return "", false, errors.Wrapf(err, "insert order %s", o.Reference)
	}

	if err := r.pool.QueryRow(ctx,
		`SELECT reference FROM orders WHERE payment_ref = $1`, o.PaymentRef,
	).Scan(&ref); err != nil {
		return "", false, errors.Wrapf(err, "find order for payment %s", o.PaymentRef)
	}
	return ref, false, nil
}

// FindByPaymentRef returns order.ErrNotFound when no order has paymentRef.
func (r *OrderRepository) FindByPaymentRef(ctx context.Context, paymentRef string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_ref = $1`, paymentRef)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find order for payment %s", paymentRef)
	}
	return o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate orders")
	}
	return orders, nil
}

// Each calls fn for every order created in [from, to), oldest first.
func (r *OrderRepository) Each(ctx context.Context, from, to time.Time, fn func(*order.Order) error) error {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at`, from, to)
	if err != nil {
		return errors.Wrap(err, "query orders")
	}
	defer rows.Close()

	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return errors.Wrap(err, "scan order")
		}
		if err := fn(o); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterate orders")
	}
	return nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o      order.Order
		status string
	)
	if err := row.Scan(
		&o.Reference, &o.PaymentRef, &o.UserID, &o.SessionID, &o.Items, &o.Shipping,
		&o.Subtotal, &o.ShippingCost, &o.Tax, &o.Total, &o.AmountMinor, &o.Currency,
		&status, &o.CreatedAt,
	); err != nil {
		return nil, err
	}
	o.Status = order.Status(status)
	return &o, nil
}
