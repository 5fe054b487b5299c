// Package memory provides process-local stores for development and tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/refuel-athletics/gelstore/internal/domain/cart"
	"github.com/refuel-athletics/gelstore/internal/domain/formula"
	"github.com/refuel-athletics/gelstore/internal/domain/order"
)

var (
	_ order.Repository   = (*OrderRepository)(nil)
	_ cart.Persistence   = (*CartRepository)(nil)
	_ formula.Repository = (*FormulaRepository)(nil)
)

// OrderRepository keeps orders in a map keyed by payment reference.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]order.Order
}

// NewOrderRepository creates an empty OrderRepository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]order.Order)}
}

func (r *OrderRepository) Create(_ context.Context, o *order.Order) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.orders[o.PaymentRef]; ok {
		return existing.Reference, false, nil
	}
	cp := *o
	cp.Items = slices.Clone(o.Items)
	r.orders[o.PaymentRef] = cp
	return o.Reference, true, nil
}

func (r *OrderRepository) FindByPaymentRef(_ context.Context, paymentRef string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[paymentRef]
	if !ok {
		return nil, order.ErrNotFound
	}
	o.Items = slices.Clone(o.Items)
	return &o, nil
}

func (r *OrderRepository) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []order.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			o.Items = slices.Clone(o.Items)
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b order.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// CartRepository keeps cart snapshots in a map keyed by session.
type CartRepository struct {
	mu    sync.RWMutex
	carts map[string][]cart.LineItem
}

// NewCartRepository creates an empty CartRepository.
func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string][]cart.LineItem)}
}

func (r *CartRepository) Load(_ context.Context, sessionID string) ([]cart.LineItem, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items, ok := r.carts[sessionID]
	return slices.Clone(items), ok, nil
}

func (r *CartRepository) Save(_ context.Context, sessionID string, items []cart.LineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[sessionID] = slices.Clone(items)
	return nil
}

// FormulaRepository keeps saved formulas per user, newest first.
type FormulaRepository struct {
	mu     sync.Mutex
	byUser map[string][]formula.Saved
}

// NewFormulaRepository creates an empty FormulaRepository.
func NewFormulaRepository() *FormulaRepository {
	return &FormulaRepository{byUser: make(map[string][]formula.Saved)}
}

func (r *FormulaRepository) Save(_ context.Context, f *formula.Saved) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[f.UserID] = append([]formula.Saved{*f}, r.byUser[f.UserID]...)
	return nil
}

func (r *FormulaRepository) ListByUser(_ context.Context, userID string) ([]formula.Saved, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.byUser[userID]), nil
}

func (r *FormulaRepository) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.byUser[userID]
	i := slices.IndexFunc(list, func(f formula.Saved) bool { return f.ID == id })
	if i < 0 {
		return formula.ErrNotFound
	}
	r.byUser[userID] = slices.Delete(list, i, i+1)
	return nil
}

func (r *FormulaRepository) Trim(_ context.Context, userID string, keep int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if list := r.byUser[userID]; len(list) > keep {
		r.byUser[userID] = list[:keep]
	}
	return nil
}
