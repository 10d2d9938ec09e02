package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kweller/nutrisolve/internal/chem"
	"github.com/kweller/nutrisolve/internal/optimizer"
)

//nolint:funlen // Flag wiring is repetitive but clearer kept together.
func newSolveCmd() *cobra.Command {
	var (
		ratioFlag       string
		ppmFlag         string
		basisFlag       string
		concentration   float64
		siPPM           float64
		targetEC        float64
		temperature     float64
		tolerance       float64
		fertilizersFlag []string
		acidMax         float64
		strategyFlag    string
		volumeL         float64
	)

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Compute a fertilizer formula for one nutrient target",
		Example: `  # 3:1:2:2:0.5 N:P:K:Ca:Mg ratio at 150 ppm basis, four common salts
  nutrisolve solve --ratio "N=3,P=1,K=2,Ca=2,Mg=0.5" --concentration 150 \
      --fertilizers calcium-nitrate,mkp,potassium-nitrate,magnesium-sulfate

  # absolute ppm profile with an EC target, oxide basis
  nutrisolve solve --ppm "N=210,P=60,K=300,Ca=180,Mg=50" --basis oxide --ec 2.1`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			basis, err := optimizer.ParseBasis(basisFlag)
			if err != nil {
				return err
			}

			var target optimizer.Target
			switch {
			case ratioFlag != "" && ppmFlag != "":
				return fmt.Errorf("--ratio and --ppm are mutually exclusive")
			case ratioFlag != "":
				ratio, parseErr := parseElementMap(ratioFlag)
				if parseErr != nil {
					return parseErr
				}
				target = optimizer.RatioTarget{Ratio: ratio, ConcentrationBasis: concentration, SiPPM: siPPM}
			case ppmFlag != "":
				ppm, parseErr := parseElementMap(ppmFlag)
				if parseErr != nil {
					return parseErr
				}
				if siPPM > 0 {
					ppm[optimizer.ElementSi] = siPPM
				}
				target = optimizer.AbsoluteTarget{PPM: ppm}
			default:
				return fmt.Errorf("one of --ratio or --ppm is required")
			}

			candidates, err := resolveCandidates(fertilizersFlag)
			if err != nil {
				return err
			}

			if tolerance <= 0 {
				tolerance = state.cfg.Solver.Tolerance
			}
			if strategyFlag == "" {
				strategyFlag = state.cfg.Solver.Strategy
			}
			ecOpts := chem.DefaultECOptions()
			ecOpts.IonicStrengthK = state.cfg.Solver.IonicStrengthK
			if temperature > 0 {
				ecOpts.TemperatureC = temperature
			}

			engine := optimizer.New(nil)
			result, err := engine.Optimize(ctx, target, candidates, optimizer.Options{
				Basis:     basis,
				Tolerance: tolerance,
				TargetEC:  targetEC,
				EC:        ecOpts,
				AcidMaxGL: acidMax,
				Strategy:  optimizer.Strategy(strategyFlag),
			})
			if err != nil {
				return err
			}

			return renderSolveResult(cmd, result, volumeL)
		},
	}

	cmd.Flags().StringVar(&ratioFlag, "ratio", "", `target ratio, e.g. "N=3,P=1,K=2,Ca=2,Mg=0.5"`)
	cmd.Flags().StringVar(&ppmFlag, "ppm", "", `absolute ppm target, e.g. "N=150,P=50,K=200"`)
	cmd.Flags().StringVar(&basisFlag, "basis", "elemental", "P/K basis: elemental or oxide")
	cmd.Flags().Float64Var(&concentration, "concentration", 100, "ppm assigned to the smallest ratio component")
	cmd.Flags().Float64Var(&siPPM, "si", 0, "absolute silicon target [ppm]")
	cmd.Flags().Float64Var(&targetEC, "ec", 0, "target conductivity [mS/cm]")
	cmd.Flags().Float64Var(&temperature, "temp", 0, "solution temperature [°C] for the EC model")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0, "relative nutrient band (default from config)")
	cmd.Flags().StringSliceVar(&fertilizersFlag, "fertilizers", nil, "candidate fertilizer ids (default: whole catalog)")
	cmd.Flags().Float64Var(&acidMax, "acid-max", 0, "dose cap activating the acid fertilizer preference [g/L]")
	cmd.Flags().StringVar(&strategyFlag, "strategy", "", "solving strategy: auto, milp or nnls")
	cmd.Flags().Float64Var(&volumeL, "volume", 1, "final solution volume [L] for total-mass display")
	return cmd
}

// resolveCandidates maps --fertilizers ids to catalog entries, defaulting to
// the full catalog.
func resolveCandidates(ids []string) ([]chem.Fertilizer, error) {
	if len(ids) == 0 {
		return state.catalog.All(), nil
	}
	return state.catalog.Select(ids)
}
