package checkout

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/refuel-athletics/gelstore/internal/domain/cart"
	"github.com/refuel-athletics/gelstore/internal/domain/order"
)

// Pricing holds the checkout money rules.
type Pricing struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	// MinimumCharge and MaximumCharge bound the total the gateway accepts.
	MinimumCharge decimal.Decimal
	MaximumCharge decimal.Decimal
	Currency      string
}

// DefaultPricing is 8% tax, free shipping from $50 and charges between
// $0.50 and $999,999.99 in US dollars.
func DefaultPricing() Pricing {
	return Pricing{
		TaxRate:               decimal.RequireFromString("0.08"),
		FreeShippingThreshold: decimal.NewFromInt(50),
		MinimumCharge:         decimal.RequireFromString("0.50"),
		MaximumCharge:         decimal.RequireFromString("999999.99"),
		Currency:              "usd",
	}
}

// checkCharge reports a total the gateway would refuse.
func (p Pricing) checkCharge(q Quote) error {
	switch {
	case q.Total.LessThan(p.MinimumCharge):
		return errors.Wrapf(ErrAmountTooSmall, "total %s, minimum %s",
			q.Total.StringFixed(2), p.MinimumCharge.StringFixed(2))
	case q.Total.GreaterThan(p.MaximumCharge):
		return errors.Wrapf(ErrAmountTooLarge, "total %s, maximum %s",
			q.Total.StringFixed(2), p.MaximumCharge.StringFixed(2))
	}
	if _, err := MinorUnits(q.Total); err != nil {
		return err
	}
	return nil
}

// Quote is the authoritative, locked total of a checkout. Once an
// authorization is created for AmountMinor the quote never changes, even if
// the cart does. AmountMinor is zero when Total has no int64 cent value.
type Quote struct {
	Items        []cart.LineItem
	ItemCount    int
	Tier         Tier
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
	AmountMinor  int64
	Currency     string
}

// FreeShipping reports whether the threshold waived the shipping rate.
func (q Quote) FreeShipping() bool {
	return q.ShippingCost.IsZero()
}

// Quote prices a cart snapshot for the given tier. Tax is rounded to cents
// before it is added, so Total is the sum of the displayed amounts and
// AmountMinor is a single rounding of Total.
func (p Pricing) Quote(snap cart.Snapshot, tier Tier) Quote {
	subtotal := snap.Subtotal.Round(2)
	shipping := tier.Rate()
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(p.TaxRate).Round(2)
	total := subtotal.Add(tax).Add(shipping)
	minor, _ := MinorUnits(total)

	return Quote{
		Items:        snap.Items,
		ItemCount:    snap.ItemCount,
		Tier:         tier,
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Tax:          tax,
		Total:        total,
		AmountMinor:  minor,
		Currency:     p.Currency,
	}
}

// MinorUnits converts a dollar amount to cents with one half-up rounding.
// Amounts whose cents do not fit in an int64 are rejected with
// ErrAmountTooLarge.
func MinorUnits(amount decimal.Decimal) (int64, error) {
	cents := amount.Shift(2).Round(0)
	if !cents.BigInt().IsInt64() {
		return 0, errors.Wrapf(ErrAmountTooLarge, "%s has no int64 cent value", amount)
	}
	return cents.IntPart(), nil
}

func (q Quote) orderItems() []order.Item {
	items := make([]order.Item, len(q.Items))
	for i, it := range q.Items {
		items[i] = order.Item{
			ID:       it.ID,
			Name:     it.Name,
			Emoji:    it.Emoji,
			Price:    it.Price,
			Quantity: it.Qty,
			Subtitle: it.Subtitle,
		}
	}
	return items
}
