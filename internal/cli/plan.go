package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kweller/nutrisolve/internal/chem"
	"github.com/kweller/nutrisolve/internal/optimizer"
	"github.com/kweller/nutrisolve/internal/planner"
)

//nolint:funlen // Flag wiring is repetitive but clearer kept together.
func newPlanCmd() *cobra.Command {
	var (
		targetFlags     []string
		basisFlag       string
		concentration   float64
		stockConc       float64
		maxDosing       float64
		ratioTolerance  float64
		separateMg      bool
		baselineEC      float64
		fertilizersFlag []string
		strategyFlag    string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan shared concentrated stock tanks for several targets",
		Long: "plan finds a 2-4 tank stock solution set whose per-target dosing volumes\n" +
			"approximate each target's ratio and EC. Tank assignment keeps calcium\n" +
			"sources away from sulfate, phosphate and silicate sources; the tank count\n" +
			"escalates only when a smaller count cannot serve every target.",
		Example: `  nutrisolve plan \
      --target "veg=3:1:2:2:0.5@1.6" \
      --target "bloom=2:1.5:3:2:0.7@2.0" \
      --concentration 150`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if len(targetFlags) == 0 {
				return fmt.Errorf("at least one --target is required")
			}
			basis, err := optimizer.ParseBasis(basisFlag)
			if err != nil {
				return err
			}

			targets := make([]planner.TargetSpec, 0, len(targetFlags))
			for _, flag := range targetFlags {
				spec, parseErr := parseTargetSpec(flag, concentration)
				if parseErr != nil {
					return parseErr
				}
				targets = append(targets, spec)
			}

			candidates, err := resolveCandidates(fertilizersFlag)
			if err != nil {
				return err
			}

			if stockConc <= 0 {
				stockConc = state.cfg.Solver.StockConcentration
			}
			if maxDosing <= 0 {
				maxDosing = state.cfg.Solver.MaxDosingML
			}
			if ratioTolerance <= 0 {
				ratioTolerance = state.cfg.Solver.RatioTolerance
			}
			if strategyFlag == "" {
				strategyFlag = state.cfg.Solver.Strategy
			}
			ecOpts := chem.DefaultECOptions()
			ecOpts.IonicStrengthK = state.cfg.Solver.IonicStrengthK

			p := planner.New(state.catalog, optimizer.New(nil))
			plan, err := p.Plan(ctx, targets, candidates, planner.Options{
				Basis:              basis,
				StockConcentration: stockConc,
				MaxDosingML:        maxDosing,
				RatioTolerance:     ratioTolerance,
				SeparateMgTank:     separateMg,
				BaselineEC:         baselineEC,
				EC:                 ecOpts,
				Optimizer: optimizer.Options{
					Tolerance: state.cfg.Solver.Tolerance,
					EC:        ecOpts,
					Strategy:  optimizer.Strategy(strategyFlag),
				},
			})
			if err != nil {
				return err
			}

			return renderPlan(cmd, plan)
		},
	}

	cmd.Flags().StringArrayVar(&targetFlags, "target", nil, `target spec "name=N:P:K:Ca:Mg[@EC]" (repeatable)`)
	cmd.Flags().StringVar(&basisFlag, "basis", "elemental", "P/K basis: elemental or oxide")
	cmd.Flags().Float64Var(&concentration, "concentration", 100, "ppm assigned to the smallest ratio component")
	cmd.Flags().Float64Var(&stockConc, "stock-concentration", 0, "requested stock strength (× final solution)")
	cmd.Flags().Float64Var(&maxDosing, "max-dosing", 0, "total dosing volume cap [mL per L]")
	cmd.Flags().Float64Var(&ratioTolerance, "ratio-tolerance", 0, "dosing shape tolerance (default from config)")
	cmd.Flags().BoolVar(&separateMg, "separate-mg", false, "route pure magnesium sources to a 4th tank")
	cmd.Flags().Float64Var(&baselineEC, "baseline-ec", 0, "source water conductivity [mS/cm]")
	cmd.Flags().StringSliceVar(&fertilizersFlag, "fertilizers", nil, "candidate fertilizer ids (default: whole catalog)")
	cmd.Flags().StringVar(&strategyFlag, "strategy", "", "solving strategy: auto, milp or nnls")
	return cmd
}
