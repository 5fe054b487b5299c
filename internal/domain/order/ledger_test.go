package order

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	mu        sync.Mutex
	byPayment map[string]Order
	creates   int
	finds     int
	createErr error
	findErr   error
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{byPayment: map[string]Order{}}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return "", false, m.createErr
	}
	if existing, ok := m.byPayment[o.PaymentRef]; ok {
		return existing.Reference, false, nil
	}
	m.byPayment[o.PaymentRef] = *o
	return o.Reference, true, nil
}

func (m *mockOrderRepo) FindByPaymentRef(_ context.Context, paymentRef string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finds++
	if m.findErr != nil {
		return nil, m.findErr
	}
	o, ok := m.byPayment[paymentRef]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.byPayment {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

// --- Helpers ---

func newTestOrder(paymentRef string) *Order {
	return &Order{
		UserID: "u1",
		Items: []Item{{
			ID:       "gel-1",
			Name:     "Custom Gel Powder (10 pouches)",
			Price:    decimal.RequireFromString("38.40"),
			Quantity: 1,
		}},
		Subtotal:     decimal.RequireFromString("38.40"),
		ShippingCost: decimal.RequireFromString("6.99"),
		Tax:          decimal.RequireFromString("3.07"),
		Total:        decimal.RequireFromString("48.46"),
		AmountMinor:  4846,
		Currency:     "usd",
		PaymentRef:   paymentRef,
	}
}

// --- Tests ---

func TestNewReference(t *testing.T) {
	re := regexp.MustCompile(`^ORD-[0-9A-Z]{8}$`)
	seen := map[string]bool{}
	for range 200 {
		ref := NewReference()
		require.Regexp(t, re, ref)
		seen[ref] = true
	}
	assert.Greater(t, len(seen), 195)
}

func TestOrder_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Order)
		wantErr error
	}{
		{name: "valid", mutate: func(*Order) {}},
		{name: "no items", mutate: func(o *Order) { o.Items = nil }, wantErr: ErrEmptyItems},
		{name: "zero quantity", mutate: func(o *Order) { o.Items[0].Quantity = 0 }, wantErr: ErrInvalidQuantity},
		{name: "no payment", mutate: func(o *Order) { o.PaymentRef = "" }, wantErr: ErrMissingPayment},
		{name: "amount mismatch", mutate: func(o *Order) { o.AmountMinor = 4847 }, wantErr: ErrAmountMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrder("pi_1")
			tt.mutate(o)
			err := o.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLedger_CreateOrderFillsDefaults(t *testing.T) {
	repo := newMockOrderRepo()
	l := NewLedger(repo, nil)
	fixed := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	o := newTestOrder("pi_1")
	ref, err := l.CreateOrder(context.Background(), o)
	require.NoError(t, err)

	assert.Equal(t, o.Reference, ref)
	assert.Regexp(t, `^ORD-`, ref)
	assert.Equal(t, StatusPaid, o.Status)
	assert.Equal(t, fixed, o.CreatedAt)
	assert.Equal(t, 1, repo.creates)
	// New payment: bloom miss, no lookup.
	assert.Zero(t, repo.finds)
}

func TestLedger_CreateOrderIsIdempotentPerPayment(t *testing.T) {
	repo := newMockOrderRepo()
	l := NewLedger(repo, nil)

	first, err := l.CreateOrder(context.Background(), newTestOrder("pi_1"))
	require.NoError(t, err)

	second, err := l.CreateOrder(context.Background(), newTestOrder("pi_1"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.creates)
	assert.Equal(t, 1, repo.finds)
	assert.Len(t, repo.byPayment, 1)
}

func TestLedger_CreateOrderAcrossProcesses(t *testing.T) {
	repo := newMockOrderRepo()
	first, err := NewLedger(repo, nil).CreateOrder(context.Background(), newTestOrder("pi_1"))
	require.NoError(t, err)

	// A fresh ledger has an empty filter and relies on the repository.
	second, err := NewLedger(repo, nil).CreateOrder(context.Background(), newTestOrder("pi_1"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, repo.byPayment, 1)
}

func TestLedger_CreateOrderRejectsInvalid(t *testing.T) {
	repo := newMockOrderRepo()
	l := NewLedger(repo, nil)

	o := newTestOrder("pi_1")
	o.AmountMinor = 100
	_, err := l.CreateOrder(context.Background(), o)
	require.ErrorIs(t, err, ErrAmountMismatch)
	assert.Zero(t, repo.creates)
}

func TestLedger_CreateOrderRepoError(t *testing.T) {
	repo := newMockOrderRepo()
	repo.createErr = errors.New("connection reset")
	l := NewLedger(repo, nil)

	_, err := l.CreateOrder(context.Background(), newTestOrder("pi_1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")

	// The failed payment was not marked seen; a retry inserts.
	repo.createErr = nil
	ref, err := l.CreateOrder(context.Background(), newTestOrder("pi_1"))
	require.NoError(t, err)
	assert.NotEmpty(t, ref)
	assert.Zero(t, repo.finds)
}

func TestLedger_ListByUser(t *testing.T) {
	repo := newMockOrderRepo()
	l := NewLedger(repo, nil)
	_, err := l.CreateOrder(context.Background(), newTestOrder("pi_1"))
	require.NoError(t, err)

	orders, err := l.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 1, orders[0].ItemCount())

	orders, err = l.ListByUser(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, orders)
}
