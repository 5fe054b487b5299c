package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refuel-athletics/gelstore/internal/domain/cart"
	"github.com/refuel-athletics/gelstore/internal/domain/formula"
	"github.com/refuel-athletics/gelstore/internal/domain/order"
)

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	r := NewOrderRepository()
	t0 := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	ref, created, err := r.Create(ctx, &order.Order{Reference: "ORD-1", PaymentRef: "pi_1", UserID: "u-1", CreatedAt: t0})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "ORD-1", ref)

	ref, created, err = r.Create(ctx, &order.Order{Reference: "ORD-2", PaymentRef: "pi_1", UserID: "u-1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "ORD-1", ref)

	_, _, err = r.Create(ctx, &order.Order{Reference: "ORD-3", PaymentRef: "pi_3", UserID: "u-1", CreatedAt: t0.Add(time.Hour)})
	require.NoError(t, err)

	list, err := r.ListByUser(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ORD-3", list[0].Reference)

	_, err = r.FindByPaymentRef(ctx, "pi_missing")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestCartRepository(t *testing.T) {
	ctx := context.Background()
	r := NewCartRepository()

	_, found, err := r.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.False(t, found)

	items := []cart.LineItem{{ID: "gel-1", Price: decimal.RequireFromString("1.88"), Qty: 1}}
	require.NoError(t, r.Save(ctx, "s-1", items))
	items[0].Qty = 9

	got, found, err := r.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, got[0].Qty)
}

func TestFormulaRepository_WithLibrary(t *testing.T) {
	ctx := context.Background()
	lib := formula.NewLibrary(NewFormulaRepository())

	var ids []string
	for i := 0; i < formula.MaxSavedPerUser+3; i++ {
		f, err := lib.Save(ctx, "u-1", formula.DefaultParameters(), false)
		require.NoError(t, err)
		ids = append(ids, f.ID)
	}

	list, err := lib.List(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, list, formula.MaxSavedPerUser)
	assert.Equal(t, ids[len(ids)-1], list[0].ID)

	require.NoError(t, lib.Delete(ctx, "u-1", list[0].ID))
	require.ErrorIs(t, lib.Delete(ctx, "u-1", list[0].ID), formula.ErrNotFound)
}
