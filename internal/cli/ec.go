package cli

import (
	"github.com/spf13/cobra"

	"github.com/kweller/nutrisolve/internal/chem"
)

func newECCmd() *cobra.Command {
	var (
		ppmFlag      string
		temperature  float64
		correctionK  float64
		noCorrection bool
	)

	cmd := &cobra.Command{
		Use:   "ec",
		Short: "Estimate solution conductivity for a ppm profile",
		Example: `  nutrisolve ec --ppm "N_NO3=150,N_NH4=10,P=50,K=200,Ca=160,Mg=45,S=60"
  nutrisolve ec --ppm "K=200,N_NO3=150" --temp 20`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, err := parseNutrientMap(ppmFlag)
			if err != nil {
				return err
			}

			opts := chem.DefaultECOptions()
			opts.IonicStrengthK = state.cfg.Solver.IonicStrengthK
			if correctionK > 0 {
				opts.IonicStrengthK = correctionK
			}
			if noCorrection {
				opts.ApplyIonicStrengthCorrection = false
			}
			if temperature > 0 {
				opts.TemperatureC = temperature
			}

			result := chem.EstimateProfileEC(profile, opts)
			return renderEC(cmd, result, opts)
		},
	}

	cmd.Flags().StringVar(&ppmFlag, "ppm", "", `nutrient profile, e.g. "N_NO3=150,K=200,Ca=160"`)
	cmd.Flags().Float64Var(&temperature, "temp", 0, "solution temperature [°C]")
	cmd.Flags().Float64Var(&correctionK, "k", 0, "ionic strength correction constant (default from config)")
	cmd.Flags().BoolVar(&noCorrection, "no-correction", false, "disable the ionic strength correction")
	_ = cmd.MarkFlagRequired("ppm")
	return cmd
}
