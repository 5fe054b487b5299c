package main

import (
	"fmt"
	"io"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/refuel-athletics/gelstore/internal/domain/cart"
	"github.com/refuel-athletics/gelstore/internal/domain/formula"
)

type recipeFlags struct {
	carbs     int
	fructose  string
	sodium    int
	potassium int
	magnesium int
	caffeine  int
	thickness int
	flavor    string
	pouches   int
}

func (f *recipeFlags) register(cmd *cobra.Command) {
	d := formula.DefaultParameters()
	fs := cmd.Flags()
	fs.IntVar(&f.carbs, "carbs", d.CarbsG, "carbohydrates per pouch in grams")
	fs.StringVar(&f.fructose, "fructose-ratio", d.FructoseRatio.String(), "fructose share of the carbohydrates")
	fs.IntVar(&f.sodium, "sodium", d.SodiumMg, "sodium in mg")
	fs.IntVar(&f.potassium, "potassium", d.PotassiumMg, "potassium in mg")
	fs.IntVar(&f.magnesium, "magnesium", d.MagnesiumMg, "magnesium in mg")
	fs.IntVar(&f.caffeine, "caffeine", d.CaffeineMg, "caffeine in mg")
	fs.IntVar(&f.thickness, "thickness", d.Thickness, "consistency from 1 (liquid) to 5 (extra thick)")
	fs.StringVar(&f.flavor, "flavor", string(d.Flavor), "flavor id")
	fs.IntVar(&f.pouches, "pouches", 10, "pouches per pack")
}

func (f *recipeFlags) parameters() (formula.Parameters, error) {
	ratio, err := decimal.NewFromString(f.fructose)
	if err != nil {
		return formula.Parameters{}, errors.Wrap(err, "parse fructose ratio")
	}
	p := formula.Parameters{
		CarbsG:        f.carbs,
		FructoseRatio: ratio,
		SodiumMg:      f.sodium,
		PotassiumMg:   f.potassium,
		MagnesiumMg:   f.magnesium,
		CaffeineMg:    f.caffeine,
		Thickness:     f.thickness,
		Flavor:        formula.Flavor(f.flavor),
	}
	if err := p.Validate(); err != nil {
		return formula.Parameters{}, err
	}
	return p, nil
}

func newPriceCmd() *cobra.Command {
	var f recipeFlags
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Print the per-pouch cost breakdown and pack price of a recipe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := f.parameters()
			if err != nil {
				return err
			}
			if f.pouches <= 0 || f.pouches > cart.MaxPouches {
				return errors.Errorf("pouches %d outside 1..%d", f.pouches, cart.MaxPouches)
			}
			printQuote(cmd.OutOrStdout(), p, f.pouches)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func printQuote(w io.Writer, p formula.Parameters, pouches int) {
	q := formula.Price(p)
	fmt.Fprintf(w, "%s %s\n", p.Flavor.Emoji(), p.Name())
	fmt.Fprintf(w, "  %dg maltodextrin, %dg fructose, %s consistency\n",
		q.MaltodextrinG, q.FructoseG, p.ThicknessLabel())
	for _, e := range q.Breakdown {
		fmt.Fprintf(w, "  %-20s $%s\n", e.Label, e.Display.StringFixed(2))
	}
	fmt.Fprintf(w, "  %-20s $%s\n", "Per pouch", q.UnitPrice.StringFixed(2))
	fmt.Fprintf(w, "  %-20s $%s\n", fmt.Sprintf("Pack of %d", pouches), q.PackPrice(pouches).StringFixed(2))
}
