//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/refuel-athletics/gelstore/internal/domain/cart"
	"github.com/refuel-athletics/gelstore/internal/domain/formula"
	"github.com/refuel-athletics/gelstore/internal/domain/order"
)

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("gelstore"),
		tcpostgres.WithUsername("gelstore"),
		tcpostgres.WithPassword("gelstore"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %s", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	// Idempotent.
	require.NoError(t, RunMigrations(ctx, pool))
	return pool
}

func newOrder(ref, paymentRef string, createdAt time.Time) *order.Order {
	return &order.Order{
		Reference: ref,
		UserID:    "u-1",
		SessionID: "user:u-1",
		Items: []order.Item{{
			ID: "gel-1", Name: "Custom Gel Powder (10 pouches)",
			Price: decimal.RequireFromString("3.84"), Quantity: 10,
		}},
		Shipping:     order.Shipping{FirstName: "Ana", LastName: "Ruiz", City: "Boulder", State: "CO", Tier: "standard"},
		Subtotal:     decimal.RequireFromString("38.40"),
		ShippingCost: decimal.RequireFromString("6.99"),
		Tax:          decimal.RequireFromString("3.07"),
		Total:        decimal.RequireFromString("48.46"),
		AmountMinor:  4846,
		Currency:     "usd",
		Status:       order.StatusPaid,
		PaymentRef:   paymentRef,
		CreatedAt:    createdAt,
	}
}

func TestPostgres(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()

	t.Run("orders", func(t *testing.T) {
		repo := NewOrderRepository(pool)
		t0 := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

		ref, created, err := repo.Create(ctx, newOrder("ORD-AAAAAAAA", "pi_1", t0))
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "ORD-AAAAAAAA", ref)

		ref, created, err = repo.Create(ctx, newOrder("ORD-BBBBBBBB", "pi_1", t0))
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "ORD-AAAAAAAA", ref)

		_, _, err = repo.Create(ctx, newOrder("ORD-CCCCCCCC", "pi_2", t0.Add(time.Hour)))
		require.NoError(t, err)

		got, err := repo.FindByPaymentRef(ctx, "pi_1")
		require.NoError(t, err)
		assert.Equal(t, "ORD-AAAAAAAA", got.Reference)
		assert.True(t, decimal.RequireFromString("48.46").Equal(got.Total))
		assert.Equal(t, int64(4846), got.AmountMinor)
		require.Len(t, got.Items, 1)
		assert.Equal(t, 10, got.Items[0].Quantity)
		assert.Equal(t, "Boulder", got.Shipping.City)
		require.NoError(t, got.Validate())

		_, err = repo.FindByPaymentRef(ctx, "pi_missing")
		require.ErrorIs(t, err, order.ErrNotFound)

		list, err := repo.ListByUser(ctx, "u-1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "ORD-CCCCCCCC", list[0].Reference)

		var seen []string
		err = repo.Each(ctx, t0, t0.Add(24*time.Hour), func(o *order.Order) error {
			seen = append(seen, o.Reference)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"ORD-AAAAAAAA", "ORD-CCCCCCCC"}, seen)
	})

	t.Run("ledger over postgres", func(t *testing.T) {
		ledger := order.NewLedger(NewOrderRepository(pool), nil)
		o := newOrder("", "pi_ledger", time.Now().UTC())
		ref1, err := ledger.CreateOrder(ctx, o)
		require.NoError(t, err)

		again := newOrder("", "pi_ledger", time.Now().UTC())
		ref2, err := order.NewLedger(NewOrderRepository(pool), nil).CreateOrder(ctx, again)
		require.NoError(t, err)
		assert.Equal(t, ref1, ref2)
	})

	t.Run("carts", func(t *testing.T) {
		repo := NewCartRepository(pool)

		_, found, err := repo.Load(ctx, "user:u-1")
		require.NoError(t, err)
		assert.False(t, found)

		items := []cart.LineItem{{ID: "gel-1", Name: "Gel", Price: decimal.RequireFromString("18.80"), Qty: 2}}
		require.NoError(t, repo.Save(ctx, "user:u-1", items))
		items[0].Qty = 3
		require.NoError(t, repo.Save(ctx, "user:u-1", items))

		got, found, err := repo.Load(ctx, "user:u-1")
		require.NoError(t, err)
		assert.True(t, found)
		require.Len(t, got, 1)
		assert.Equal(t, 3, got[0].Qty)
		assert.True(t, decimal.RequireFromString("18.80").Equal(got[0].Price))

		require.NoError(t, repo.Save(ctx, "user:u-1", nil))
		got, found, err = repo.Load(ctx, "user:u-1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Empty(t, got)
	})

	t.Run("formulas", func(t *testing.T) {
		repo := NewFormulaRepository(pool)
		lib := formula.NewLibrary(repo)

		var last *formula.Saved
		for i := 0; i < formula.MaxSavedPerUser+2; i++ {
			p := formula.DefaultParameters()
			p.CarbsG = 20 + i
			f, err := lib.Save(ctx, "u-2", p, i%2 == 0)
			require.NoError(t, err)
			last = f
			time.Sleep(time.Millisecond)
		}

		list, err := lib.List(ctx, "u-2")
		require.NoError(t, err)
		require.Len(t, list, formula.MaxSavedPerUser)
		assert.Equal(t, last.ID, list[0].ID)
		assert.Equal(t, last.Parameters.CarbsG, list[0].Parameters.CarbsG)
		assert.True(t, last.Parameters.FructoseRatio.Equal(list[0].Parameters.FructoseRatio))

		require.NoError(t, lib.Delete(ctx, "u-2", last.ID))
		require.ErrorIs(t, lib.Delete(ctx, "u-2", last.ID), formula.ErrNotFound)
	})
}
