// Package formula models the adjustable gel recipe and prices it.
package formula

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Flavor identifies one of the fixed gel flavors.
type Flavor string

const (
	FlavorTropicalMango      Flavor = "tropical-mango"
	FlavorStrawberryLemonade Flavor = "strawberry-lemonade"
	FlavorOrangeCitrus       Flavor = "orange-citrus"
	FlavorWatermelonMint     Flavor = "watermelon-mint"
	// FlavorNeutral is the unflavored option and carries no surcharge.
	FlavorNeutral Flavor = "neutral"
)

type flavorInfo struct {
	flavor Flavor
	label  string
	emoji  string
}

// flavors is kept in display order.
var flavors = []flavorInfo{
	{FlavorTropicalMango, "Tropical Mango", "🥭"},
	{FlavorStrawberryLemonade, "Strawberry Lemonade", "🍓"},
	{FlavorOrangeCitrus, "Orange Citrus", "🍊"},
	{FlavorWatermelonMint, "Watermelon Mint", "🍉"},
	{FlavorNeutral, "Neutral / Unflavored", "💧"},
}

func lookupFlavor(f Flavor) (flavorInfo, bool) {
	for _, info := range flavors {
		if info.flavor == f {
			return info, true
		}
	}
	return flavorInfo{}, false
}

// Flavors returns every known flavor in display order.
func Flavors() []Flavor {
	out := make([]Flavor, len(flavors))
	for i, info := range flavors {
		out[i] = info.flavor
	}
	return out
}

// FlavorFromLabel resolves a human-readable label such as "Orange Citrus".
func FlavorFromLabel(label string) (Flavor, bool) {
	for _, info := range flavors {
		if strings.EqualFold(info.label, strings.TrimSpace(label)) {
			return info.flavor, true
		}
	}
	return "", false
}

// Valid reports whether f is one of the known flavors.
func (f Flavor) Valid() bool {
	_, ok := lookupFlavor(f)
	return ok
}

// Label returns the display label, e.g. "Neutral / Unflavored".
func (f Flavor) Label() string {
	if info, ok := lookupFlavor(f); ok {
		return info.label
	}
	return string(f)
}

// ShortLabel is the first word of the label ("Tropical", "Neutral").
func (f Flavor) ShortLabel() string {
	label := f.Label()
	if i := strings.IndexByte(label, ' '); i > 0 {
		return label[:i]
	}
	return label
}

// Emoji returns the icon tag used for line items of this flavor.
func (f Flavor) Emoji() string {
	if info, ok := lookupFlavor(f); ok {
		return info.emoji
	}
	return "💧"
}

// Slider ranges offered to shoppers. Validate rejects anything outside them.
const (
	MinCarbsG      = 15
	MaxCarbsG      = 90
	MaxSodiumMg    = 600
	MaxPotassiumMg = 300
	MaxMagnesiumMg = 80
	MaxCaffeineMg  = 150
	MinThickness   = 1
	MaxThickness   = 5
)

var (
	minFructoseRatio = decimal.RequireFromString("0.10")
	maxFructoseRatio = decimal.RequireFromString("0.50")
)

// ErrInvalidParameters is wrapped by every Validate failure.
var ErrInvalidParameters = errors.New("invalid formula parameters")

// Parameters is a complete gel recipe. It is a value type: copies never
// alias, so a recipe attached to a line item cannot be edited in place.
type Parameters struct {
	CarbsG        int
	FructoseRatio decimal.Decimal
	SodiumMg      int
	PotassiumMg   int
	MagnesiumMg   int
	CaffeineMg    int
	Thickness     int
	Flavor        Flavor
}

// DefaultParameters mirrors the initial slider positions.
func DefaultParameters() Parameters {
	return Parameters{
		CarbsG:        30,
		FructoseRatio: decimal.RequireFromString("0.35"),
		SodiumMg:      250,
		PotassiumMg:   100,
		MagnesiumMg:   20,
		CaffeineMg:    0,
		Thickness:     3,
		Flavor:        FlavorNeutral,
	}
}

// Validate reports a recipe outside the slider ranges, a thickness outside
// 1..5 or an unknown flavor. Pricing such a recipe is a precondition
// violation.
func (p Parameters) Validate() error {
	switch {
	case p.CarbsG < MinCarbsG || p.CarbsG > MaxCarbsG:
		return errors.Wrapf(ErrInvalidParameters, "carbs %dg outside %d..%d", p.CarbsG, MinCarbsG, MaxCarbsG)
	case p.FructoseRatio.LessThan(minFructoseRatio) || p.FructoseRatio.GreaterThan(maxFructoseRatio):
		return errors.Wrapf(ErrInvalidParameters, "fructose ratio %s outside %s..%s",
			p.FructoseRatio, minFructoseRatio, maxFructoseRatio)
	case p.SodiumMg < 0 || p.SodiumMg > MaxSodiumMg:
		return errors.Wrapf(ErrInvalidParameters, "sodium %dmg outside 0..%d", p.SodiumMg, MaxSodiumMg)
	case p.PotassiumMg < 0 || p.PotassiumMg > MaxPotassiumMg:
		return errors.Wrapf(ErrInvalidParameters, "potassium %dmg outside 0..%d", p.PotassiumMg, MaxPotassiumMg)
	case p.MagnesiumMg < 0 || p.MagnesiumMg > MaxMagnesiumMg:
		return errors.Wrapf(ErrInvalidParameters, "magnesium %dmg outside 0..%d", p.MagnesiumMg, MaxMagnesiumMg)
	case p.CaffeineMg < 0 || p.CaffeineMg > MaxCaffeineMg:
		return errors.Wrapf(ErrInvalidParameters, "caffeine %dmg outside 0..%d", p.CaffeineMg, MaxCaffeineMg)
	case p.Thickness < MinThickness || p.Thickness > MaxThickness:
		return errors.Wrapf(ErrInvalidParameters, "thickness %d outside %d..%d", p.Thickness, MinThickness, MaxThickness)
	case !p.Flavor.Valid():
		return errors.Wrapf(ErrInvalidParameters, "unknown flavor %q", p.Flavor)
	}
	return nil
}

// Clamp pins every field to the slider range and replaces an unknown flavor
// with the neutral one.
func (p Parameters) Clamp() Parameters {
	p.CarbsG = clampInt(p.CarbsG, MinCarbsG, MaxCarbsG)
	switch {
	case p.FructoseRatio.LessThan(minFructoseRatio):
		p.FructoseRatio = minFructoseRatio
	case p.FructoseRatio.GreaterThan(maxFructoseRatio):
		p.FructoseRatio = maxFructoseRatio
	}
	p.SodiumMg = clampInt(p.SodiumMg, 0, MaxSodiumMg)
	p.PotassiumMg = clampInt(p.PotassiumMg, 0, MaxPotassiumMg)
	p.MagnesiumMg = clampInt(p.MagnesiumMg, 0, MaxMagnesiumMg)
	p.CaffeineMg = clampInt(p.CaffeineMg, 0, MaxCaffeineMg)
	p.Thickness = clampInt(p.Thickness, MinThickness, MaxThickness)
	if !p.Flavor.Valid() {
		p.Flavor = FlavorNeutral
	}
	return p
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

var thicknessLabels = [...]string{"", "Liquid", "Thin", "Standard", "Thick", "Extra Thick"}

// ThicknessLabel names the consistency level.
func (p Parameters) ThicknessLabel() string {
	if p.Thickness >= MinThickness && p.Thickness <= MaxThickness {
		return thicknessLabels[p.Thickness]
	}
	return "Standard"
}

// Name is the short recipe name used for saved formulas,
// e.g. "Tropical · 45g carbs · 75mg caffeine".
func (p Parameters) Name() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s · %dg carbs", p.Flavor.ShortLabel(), p.CarbsG)
	if p.CaffeineMg > 0 {
		fmt.Fprintf(&b, " · %dmg caffeine", p.CaffeineMg)
	}
	return b.String()
}
