package formula

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Ingredient costs in dollars.
var (
	basePrice          = decimal.RequireFromString("1.20")
	maltodextrinPerG   = decimal.RequireFromString("0.008")
	fructosePerG       = decimal.RequireFromString("0.016")
	sodiumPerMg        = decimal.RequireFromString("0.0005")
	potassiumPerMg     = decimal.RequireFromString("0.001")
	magnesiumPerMg     = decimal.RequireFromString("0.002")
	caffeinePerMg      = decimal.RequireFromString("0.008")
	flavorSurcharge    = decimal.RequireFromString("0.10")
	thicknessPerLevel  = decimal.RequireFromString("0.04")
	cent               = decimal.New(1, -2)
	componentPrecision = int32(3)
	currencyPrecision  = int32(2)
)

// Component identifies one line of the cost breakdown.
type Component string

const (
	ComponentBase         Component = "base"
	ComponentCarbs        Component = "carbs"
	ComponentElectrolytes Component = "electrolytes"
	ComponentCaffeine     Component = "caffeine"
	ComponentFlavoring    Component = "flavoring"
	ComponentConsistency  Component = "consistency"
)

// BreakdownEntry is one itemized cost. Cost is the 3-decimal amount that
// feeds the unit price; Display is the cent amount shown to the shopper.
// Display amounts across a Quote always add up to UnitPrice.
type BreakdownEntry struct {
	Component Component
	Label     string
	Cost      decimal.Decimal
	Display   decimal.Decimal
}

// Quote is the result of pricing one pouch.
type Quote struct {
	UnitPrice     decimal.Decimal
	Breakdown     []BreakdownEntry
	MaltodextrinG int
	FructoseG     int
}

// Price computes the per-pouch price of p. It is deterministic and reads no
// clock or global state. Inputs are assumed to satisfy Validate; use
// MustPrice where a violation should stop the program.
func Price(p Parameters) Quote {
	carbs := decimal.NewFromInt(int64(p.CarbsG))
	maltoG := carbs.Mul(decimal.NewFromInt(1).Sub(p.FructoseRatio)).Round(0)
	fructoseG := carbs.Mul(p.FructoseRatio).Round(0)

	carbCost := maltoG.Mul(maltodextrinPerG).Add(fructoseG.Mul(fructosePerG)).Round(componentPrecision)
	electrolyteCost := mg(p.SodiumMg).Mul(sodiumPerMg).
		Add(mg(p.PotassiumMg).Mul(potassiumPerMg)).
		Add(mg(p.MagnesiumMg).Mul(magnesiumPerMg)).
		Round(componentPrecision)
	caffeineCost := mg(p.CaffeineMg).Mul(caffeinePerMg).Round(componentPrecision)
	flavorCost := decimal.Zero
	if p.Flavor != FlavorNeutral {
		flavorCost = flavorSurcharge
	}
	thicknessCost := decimal.NewFromInt(int64(p.Thickness - 1)).Mul(thicknessPerLevel).Round(componentPrecision)

	entries := []BreakdownEntry{
		{Component: ComponentBase, Label: "Base", Cost: basePrice},
		{Component: ComponentCarbs, Label: fmt.Sprintf("Carbs (%dg)", p.CarbsG), Cost: carbCost},
		{Component: ComponentElectrolytes, Label: "Electrolytes", Cost: electrolyteCost},
	}
	if caffeineCost.IsPositive() {
		entries = append(entries, BreakdownEntry{
			Component: ComponentCaffeine,
			Label:     fmt.Sprintf("Caffeine (%dmg)", p.CaffeineMg),
			Cost:      caffeineCost,
		})
	}
	if flavorCost.IsPositive() {
		entries = append(entries, BreakdownEntry{Component: ComponentFlavoring, Label: "Flavoring", Cost: flavorCost})
	}
	if thicknessCost.IsPositive() {
		entries = append(entries, BreakdownEntry{Component: ComponentConsistency, Label: "Consistency", Cost: thicknessCost})
	}

	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Cost)
	}
	unit := sum.Round(currencyPrecision)
	allocateDisplay(entries, unit)

	return Quote{
		UnitPrice:     unit,
		Breakdown:     entries,
		MaltodextrinG: int(maltoG.IntPart()),
		FructoseG:     int(fructoseG.IntPart()),
	}
}

// MustPrice validates p and panics on a precondition violation.
func MustPrice(p Parameters) Quote {
	if err := p.Validate(); err != nil {
		panic(err)
	}
	return Price(p)
}

// PackPrice is the price of n pouches, rounded to cents.
func (q Quote) PackPrice(n int) decimal.Decimal {
	return q.UnitPrice.Mul(decimal.NewFromInt(int64(n))).Round(currencyPrecision)
}

func mg(v int) decimal.Decimal {
	return decimal.NewFromInt(int64(v))
}

// allocateDisplay floors every cost to cents and hands the leftover cents
// to the entries with the largest truncated remainder, earliest first.
func allocateDisplay(entries []BreakdownEntry, total decimal.Decimal) {
	floored := decimal.Zero
	order := make([]int, len(entries))
	for i := range entries {
		entries[i].Display = entries[i].Cost.Truncate(currencyPrecision)
		floored = floored.Add(entries[i].Display)
		order[i] = i
	}

	leftover := total.Sub(floored).Div(cent).IntPart()
	if leftover <= 0 {
		return
	}

	sort.SliceStable(order, func(a, b int) bool {
		ra := entries[order[a]].Cost.Sub(entries[order[a]].Display)
		rb := entries[order[b]].Cost.Sub(entries[order[b]].Display)
		return ra.GreaterThan(rb)
	})
	for i := 0; i < int(leftover) && i < len(order); i++ {
		idx := order[i]
		entries[idx].Display = entries[idx].Display.Add(cent)
	}
}
