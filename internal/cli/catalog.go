package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kweller/nutrisolve/internal/chem"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the fertilizer reference catalog",
	}
	cmd.AddCommand(newCatalogListCmd(), newCatalogShowCmd())
	return cmd
}

func newCatalogListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all fertilizers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return renderCatalogList(cmd, state.catalog.All())
		},
	}
}

func newCatalogShowCmd() *cobra.Command {
	var grams float64
	cmd := &cobra.Command{
		Use:   "show <fertilizer-id>",
		Short: "Show one fertilizer's composition and per-dose contribution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, ok := state.catalog.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown fertilizer %q", args[0])
			}
			contribution := chem.ContributionPerGram(f, 1).Scale(grams)
			balance := chem.IonBalance(state.catalog, map[string]float64{f.ID: grams}, 1)
			return renderCatalogShow(cmd, f, grams, contribution, balance)
		},
	}
	cmd.Flags().Float64Var(&grams, "grams", 1, "dose [g/L] for the contribution display")
	return cmd
}
