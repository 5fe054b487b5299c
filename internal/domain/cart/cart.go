// Package cart holds the shopper's line items and keeps a remote copy in
// sync with a debounced write-through.
package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// MaxQuantity bounds the quantity of a single line item.
const MaxQuantity = 99

var (
	// ErrInvalidItem is returned for a line item without an ID or with a
	// quantity outside 1..MaxQuantity.
	ErrInvalidItem = errors.New("invalid line item")
	// ErrItemNotFound is returned when a quantity update targets a missing item.
	ErrItemNotFound = errors.New("item not found in cart")
)

// LineItem is one priced, quantified entry in the cart.
type LineItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Emoji    string          `json:"emoji"`
	Price    decimal.Decimal `json:"price"`
	Qty      int             `json:"qty"`
	Subtitle string          `json:"subtitle,omitempty"`
}

// LineTotal is price × qty.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Qty)))
}

func (li LineItem) validate() error {
	if li.ID == "" {
		return errors.Wrap(ErrInvalidItem, "id required")
	}
	if li.Qty <= 0 || li.Qty > MaxQuantity {
		return errors.Wrapf(ErrInvalidItem, "quantity %d outside 1..%d for item %s", li.Qty, MaxQuantity, li.ID)
	}
	if li.Price.IsNegative() {
		return errors.Wrapf(ErrInvalidItem, "negative price for item %s", li.ID)
	}
	return nil
}

// Snapshot is a consistent read of the cart: items plus derived totals.
type Snapshot struct {
	Items     []LineItem
	Subtotal  decimal.Decimal
	ItemCount int
}

// NewSnapshot copies items and derives totals from them.
func NewSnapshot(items []LineItem) Snapshot {
	s := Snapshot{Items: cloneItems(items), Subtotal: decimal.Zero}
	for _, it := range items {
		s.Subtotal = s.Subtotal.Add(it.LineTotal())
		s.ItemCount += it.Qty
	}
	return s
}

// Empty reports whether the snapshot has no items.
func (s Snapshot) Empty() bool {
	return len(s.Items) == 0
}

// Persistence stores cart snapshots remotely, keyed by session ID.
// Save is an upsert; the last write wins.
type Persistence interface {
	// Load returns found=false when no snapshot exists for the session.
	Load(ctx context.Context, sessionID string) (items []LineItem, found bool, err error)
	Save(ctx context.Context, sessionID string, items []LineItem) error
}

func cloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
