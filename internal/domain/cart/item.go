package cart

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/refuel-athletics/gelstore/internal/domain/formula"
)

const (
	// DefaultPouches is the pack size preselected on the product card.
	DefaultPouches = 10
	// MaxPouches is the largest pack that can be ordered as one item.
	MaxPouches = 100
)

// NewGelItem prices a custom gel pack of n pouches and returns it as a
// single line item. The recipe is snapshotted into the name and subtitle;
// changing the recipe later means adding a new item.
func NewGelItem(p formula.Parameters, pouches int) (LineItem, error) {
	if pouches <= 0 || pouches > MaxPouches {
		return LineItem{}, errors.Wrapf(ErrInvalidItem, "pouches %d outside 1..%d", pouches, MaxPouches)
	}
	if err := p.Validate(); err != nil {
		return LineItem{}, err
	}
	q := formula.Price(p)

	return LineItem{
		ID:       "gel-" + uuid.NewString(),
		Name:     fmt.Sprintf("Custom Gel Powder (%d pouches)", pouches),
		Emoji:    p.Flavor.Emoji(),
		Price:    q.PackPrice(pouches),
		Qty:      1,
		Subtitle: gelSubtitle(p, q),
	}, nil
}

func gelSubtitle(p formula.Parameters, q formula.Quote) string {
	parts := []string{
		fmt.Sprintf("%dg carbs", p.CarbsG),
		fmt.Sprintf("%dmg sodium", p.SodiumMg),
	}
	if p.CaffeineMg > 0 {
		parts = append(parts, fmt.Sprintf("%dmg caffeine", p.CaffeineMg))
	}
	parts = append(parts, p.Flavor.ShortLabel(), "$"+q.UnitPrice.StringFixed(2)+"/pouch")
	return strings.Join(parts, " · ")
}
