package cart

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refuel-athletics/gelstore/internal/domain/formula"
)

func TestNewGelItem(t *testing.T) {
	it, err := NewGelItem(formula.DefaultParameters(), DefaultPouches)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(it.ID, "gel-"))
	assert.Equal(t, "Custom Gel Powder (10 pouches)", it.Name)
	assert.Equal(t, 1, it.Qty)
	assert.True(t, decimal.RequireFromString("18.80").Equal(it.Price), it.Price.String())
	assert.Equal(t, "30g carbs · 250mg sodium · Neutral · $1.88/pouch", it.Subtitle)
}

func TestNewGelItem_CaffeineInSubtitle(t *testing.T) {
	p := formula.DefaultParameters()
	p.CaffeineMg = 50
	it, err := NewGelItem(p, 5)
	require.NoError(t, err)
	assert.Contains(t, it.Subtitle, "50mg caffeine")
	assert.Equal(t, "Custom Gel Powder (5 pouches)", it.Name)
}

func TestNewGelItem_UniqueIDs(t *testing.T) {
	a, err := NewGelItem(formula.DefaultParameters(), 10)
	require.NoError(t, err)
	b, err := NewGelItem(formula.DefaultParameters(), 10)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNewGelItem_Invalid(t *testing.T) {
	_, err := NewGelItem(formula.DefaultParameters(), 0)
	require.ErrorIs(t, err, ErrInvalidItem)
	_, err = NewGelItem(formula.DefaultParameters(), MaxPouches+1)
	require.ErrorIs(t, err, ErrInvalidItem)
	_, err = NewGelItem(formula.DefaultParameters(), 1e17)
	require.ErrorIs(t, err, ErrInvalidItem)

	it, err := NewGelItem(formula.DefaultParameters(), MaxPouches)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("188.00").Equal(it.Price), it.Price.String())

	p := formula.DefaultParameters()
	p.CarbsG = 500
	_, err = NewGelItem(p, 10)
	require.ErrorIs(t, err, formula.ErrInvalidParameters)
}
