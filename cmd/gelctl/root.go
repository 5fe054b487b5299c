package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gelctl",
		Short:         "Operator tooling for the gel storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newPriceCmd(),
		newQuizCmd(),
		newExportOrdersCmd(),
	)
	return root
}
