// Package order records confirmed purchases.
package order

import (
	"context"
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sentinel errors for order recording.
var (
	ErrEmptyItems      = errors.New("items required")
	ErrAmountMismatch  = errors.New("charged amount does not match order total")
	ErrMissingPayment  = errors.New("payment reference required")
	ErrNotFound        = errors.New("order not found")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// Status of a recorded order.
type Status string

// StatusPaid is assigned when the charge was confirmed by the gateway.
const StatusPaid Status = "paid"

// Item is a snapshot of one cart line at confirmation time.
type Item struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Emoji    string          `json:"emoji,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Subtitle string          `json:"subtitle,omitempty"`
}

// LineTotal is price × quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Shipping is the delivery address and tier the order ships with.
type Shipping struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Tier      string `json:"tier"`
	TierLabel string `json:"tier_label"`
	TierETA   string `json:"tier_eta,omitempty"`
}

// FullName joins first and last name.
func (s Shipping) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Order is a confirmed purchase. Amounts are the ones locked at checkout and
// match the charge exactly: AmountMinor == round(Total × 100).
type Order struct {
	Reference    string
	UserID       string
	SessionID    string
	Items        []Item
	Shipping     Shipping
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
	AmountMinor  int64
	Currency     string
	Status       Status
	PaymentRef   string
	CreatedAt    time.Time
}

// ItemCount is the total quantity across items.
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// Validate checks the invariants every recorded order must hold.
func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return ErrEmptyItems
	}
	for _, it := range o.Items {
		if it.Quantity <= 0 {
			return errors.Wrapf(ErrInvalidQuantity, "item %s", it.ID)
		}
	}
	if o.PaymentRef == "" {
		return ErrMissingPayment
	}
	if want := o.Total.Shift(2).Round(0).IntPart(); want != o.AmountMinor {
		return errors.Wrapf(ErrAmountMismatch, "total %s is %d minor units, charged %d",
			o.Total.StringFixed(2), want, o.AmountMinor)
	}
	return nil
}

// Sink records a confirmed order and returns its reference. Implementations
// are idempotent on PaymentRef: recording the same payment twice returns the
// reference of the first order.
type Sink interface {
	CreateOrder(ctx context.Context, o *Order) (string, error)
}

// Notifier sends the shopper a confirmation for a recorded order.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, reference, email string, o *Order) error
}

// History lists a user's past orders, newest first.
type History interface {
	ListByUser(ctx context.Context, userID string) ([]Order, error)
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create inserts o unless an order with the same PaymentRef exists.
	// It returns the reference of the stored order and whether it was
	// inserted by this call.
	Create(ctx context.Context, o *Order) (reference string, created bool, err error)
	FindByPaymentRef(ctx context.Context, paymentRef string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
}

const referenceLen = 8

// referenceSpace is 36^8.
const referenceSpace = 2821109907456

// NewReference returns an order reference of the form ORD-XXXXXXXX, eight
// uppercase base36 characters.
func NewReference() string {
	id := uuid.New()
	v := binary.BigEndian.Uint64(id[:8]) % referenceSpace
	s := strings.ToUpper(strconv.FormatUint(v, 36))
	if pad := referenceLen - len(s); pad > 0 {
		s = strings.Repeat("0", pad) + s
	}
	return "ORD-" + s
}
