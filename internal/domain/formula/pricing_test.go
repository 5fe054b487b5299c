package formula

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func sumDisplay(q Quote) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range q.Breakdown {
		sum = sum.Add(e.Display)
	}
	return sum
}

func TestPrice_Defaults(t *testing.T) {
	q := Price(DefaultParameters())

	// 1.20 base + 0.336 carbs (20g malto, 11g fructose) + 0.265 electrolytes + 0.08 consistency.
	assert.True(t, d("1.88").Equal(q.UnitPrice), "unit price %s", q.UnitPrice)
	assert.Equal(t, 20, q.MaltodextrinG)
	assert.Equal(t, 11, q.FructoseG)

	require.Len(t, q.Breakdown, 4)
	assert.Equal(t, ComponentBase, q.Breakdown[0].Component)
	assert.True(t, d("0.336").Equal(q.Breakdown[1].Cost))
	assert.Equal(t, "Carbs (30g)", q.Breakdown[1].Label)
	assert.True(t, d("0.265").Equal(q.Breakdown[2].Cost))
	assert.True(t, d("0.08").Equal(q.Breakdown[3].Cost))
	assert.True(t, q.UnitPrice.Equal(sumDisplay(q)))
}

func TestPrice_BreakdownConditionalEntries(t *testing.T) {
	p := DefaultParameters()
	p.Thickness = 1
	q := Price(p)
	for _, e := range q.Breakdown {
		assert.NotEqual(t, ComponentCaffeine, e.Component)
		assert.NotEqual(t, ComponentFlavoring, e.Component)
		assert.NotEqual(t, ComponentConsistency, e.Component)
	}

	p.CaffeineMg = 75
	p.Flavor = FlavorTropicalMango
	p.Thickness = 5
	q = Price(p)
	components := make([]Component, 0, len(q.Breakdown))
	for _, e := range q.Breakdown {
		components = append(components, e.Component)
	}
	assert.Equal(t, []Component{
		ComponentBase, ComponentCarbs, ComponentElectrolytes,
		ComponentCaffeine, ComponentFlavoring, ComponentConsistency,
	}, components)
	assert.Equal(t, "Caffeine (75mg)", q.Breakdown[3].Label)
}

func TestPrice_RaceDayFormula(t *testing.T) {
	p := Parameters{
		CarbsG:        60,
		FructoseRatio: d("0.5"),
		SodiumMg:      550,
		PotassiumMg:   100,
		MagnesiumMg:   20,
		CaffeineMg:    75,
		Thickness:     5,
		Flavor:        FlavorWatermelonMint,
	}
	q := Price(p)

	// carbs 30*0.008 + 30*0.016 = 0.72; electrolytes 0.275 + 0.1 + 0.04 = 0.415;
	// caffeine 0.6; flavor 0.10; thickness 0.16 => 3.195 => 3.20
	assert.True(t, d("3.20").Equal(q.UnitPrice), "unit price %s", q.UnitPrice)
	assert.True(t, q.UnitPrice.Equal(sumDisplay(q)))
}

func TestPrice_Deterministic(t *testing.T) {
	p := MapQuiz(Answers{QuestionDuration: "2–3 hours", QuestionGut: "Very Sensitive"})
	first := Price(p)
	for range 50 {
		again := Price(p)
		require.True(t, first.UnitPrice.Equal(again.UnitPrice))
		require.Len(t, again.Breakdown, len(first.Breakdown))
		for i := range first.Breakdown {
			require.True(t, first.Breakdown[i].Display.Equal(again.Breakdown[i].Display))
		}
	}
}

func TestPrice_DisplaySumsToUnitPriceAcrossRanges(t *testing.T) {
	ratios := []string{"0.10", "0.15", "0.25", "0.35", "0.45", "0.50"}
	for carbs := MinCarbsG; carbs <= MaxCarbsG; carbs += 5 {
		for _, r := range ratios {
			for sodium := 0; sodium <= MaxSodiumMg; sodium += 75 {
				for caffeine := 0; caffeine <= MaxCaffeineMg; caffeine += 25 {
					for thickness := MinThickness; thickness <= MaxThickness; thickness++ {
						p := Parameters{
							CarbsG:        carbs,
							FructoseRatio: d(r),
							SodiumMg:      sodium,
							PotassiumMg:   sodium / 3,
							MagnesiumMg:   (thickness * 15) % (MaxMagnesiumMg + 1),
							CaffeineMg:    caffeine,
							Thickness:     thickness,
							Flavor:        Flavors()[thickness%len(Flavors())],
						}
						q := Price(p)
						require.True(t, q.UnitPrice.Equal(sumDisplay(q)),
							"params %+v: unit %s display sum %s", p, q.UnitPrice, sumDisplay(q))
						require.Equal(t, int32(-2), q.UnitPrice.Round(2).Exponent())
					}
				}
			}
		}
	}
}

func TestPackPrice(t *testing.T) {
	q := Price(DefaultParameters())
	assert.True(t, d("18.80").Equal(q.PackPrice(10)))
	assert.True(t, d("1.88").Equal(q.PackPrice(1)))
}

func TestMustPrice_PanicsOnInvalid(t *testing.T) {
	p := DefaultParameters()
	p.Thickness = 9
	assert.Panics(t, func() { MustPrice(p) })

	assert.NotPanics(t, func() { MustPrice(DefaultParameters()) })
}

func TestParameters_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Parameters)
		ok     bool
	}{
		{name: "defaults", mutate: func(*Parameters) {}, ok: true},
		{name: "negative carbs", mutate: func(p *Parameters) { p.CarbsG = -1 }},
		{name: "fructose above one", mutate: func(p *Parameters) { p.FructoseRatio = d("1.01") }},
		{name: "fructose negative", mutate: func(p *Parameters) { p.FructoseRatio = d("-0.1") }},
		{name: "negative sodium", mutate: func(p *Parameters) { p.SodiumMg = -5 }},
		{name: "negative caffeine", mutate: func(p *Parameters) { p.CaffeineMg = -25 }},
		{name: "thickness zero", mutate: func(p *Parameters) { p.Thickness = 0 }},
		{name: "unknown flavor", mutate: func(p *Parameters) { p.Flavor = "bacon" }},
		{name: "carbs below slider", mutate: func(p *Parameters) { p.CarbsG = MinCarbsG - 1 }},
		{name: "carbs above slider", mutate: func(p *Parameters) { p.CarbsG = 500 }},
		{name: "fructose below slider", mutate: func(p *Parameters) { p.FructoseRatio = d("0.05") }},
		{name: "sodium above slider", mutate: func(p *Parameters) { p.SodiumMg = MaxSodiumMg + 1 }},
		{name: "potassium above slider", mutate: func(p *Parameters) { p.PotassiumMg = MaxPotassiumMg + 1 }},
		{name: "magnesium above slider", mutate: func(p *Parameters) { p.MagnesiumMg = MaxMagnesiumMg + 1 }},
		{name: "caffeine above slider", mutate: func(p *Parameters) { p.CaffeineMg = MaxCaffeineMg + 1 }},
		{name: "carbs at max", mutate: func(p *Parameters) { p.CarbsG = MaxCarbsG }, ok: true},
		{name: "fructose at max", mutate: func(p *Parameters) { p.FructoseRatio = d("0.50") }, ok: true},
		{name: "caffeine at max", mutate: func(p *Parameters) { p.CaffeineMg = MaxCaffeineMg }, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParameters()
			tt.mutate(&p)
			err := p.Validate()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidParameters)
		})
	}
}

func TestParameters_Clamp(t *testing.T) {
	p := Parameters{
		CarbsG:        200,
		FructoseRatio: d("0.9"),
		SodiumMg:      -10,
		PotassiumMg:   1000,
		MagnesiumMg:   81,
		CaffeineMg:    151,
		Thickness:     0,
		Flavor:        "unknown",
	}.Clamp()

	assert.Equal(t, MaxCarbsG, p.CarbsG)
	assert.True(t, d("0.50").Equal(p.FructoseRatio))
	assert.Equal(t, 0, p.SodiumMg)
	assert.Equal(t, MaxPotassiumMg, p.PotassiumMg)
	assert.Equal(t, MaxMagnesiumMg, p.MagnesiumMg)
	assert.Equal(t, MaxCaffeineMg, p.CaffeineMg)
	assert.Equal(t, MinThickness, p.Thickness)
	assert.Equal(t, FlavorNeutral, p.Flavor)
	require.NoError(t, p.Validate())
}

func TestFlavorLabels(t *testing.T) {
	f, ok := FlavorFromLabel("strawberry lemonade")
	require.True(t, ok)
	assert.Equal(t, FlavorStrawberryLemonade, f)
	assert.Equal(t, "Strawberry", f.ShortLabel())
	assert.Equal(t, "🍓", f.Emoji())

	_, ok = FlavorFromLabel("Pickle")
	assert.False(t, ok)

	assert.Equal(t, "Neutral", FlavorNeutral.ShortLabel())
	assert.Equal(t, "Neutral · 30g carbs", DefaultParameters().Name())
}
