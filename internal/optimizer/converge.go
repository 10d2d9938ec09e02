package optimizer

import (
	"context"
	"math"

	"github.com/kweller/nutrisolve/internal/chem"
	"github.com/kweller/nutrisolve/internal/logging"
	"github.com/kweller/nutrisolve/internal/solver"
)

// Convergence loop bounds. Both loops are bounded fixed-point iterations on
// solver.IterateUntil, never unbounded retries.
const (
	maxECIterations   = 5
	maxSiIterations   = 5
	ecConvergence     = 0.01 // accept within 1% of target EC
	siTargetCapFactor = 5    // adjusted Si ask never exceeds 5× the original
)

// converge applies the EC scaling loop and, for MILP results with an
// absolute Si target, the outer Si re-solve loop. The formula inside result
// is replaced; achieved values are recomputed by the caller afterwards.
func converge(ctx context.Context, result *Result, candidates []candidate, target map[Element]float64, siAbsolute bool, milpSolve func(map[Element]float64) (Formula, error), opts Options) {
	if opts.TargetEC <= 0 && !siAbsolute {
		return
	}

	if !siAbsolute || milpSolve == nil {
		if opts.TargetEC > 0 {
			result.Formula, result.ECIterations = ecConvergeLoop(candidates, result.Formula, opts)
		}
		return
	}

	// Si outer loop: the EC rescale disturbs Si just as much as every other
	// nutrient, so the whole model is re-solved with an adjusted Si ask and
	// the best (lowest Si error) rescaled formula seen is kept.
	log := logging.FromContext(ctx)
	originalSi := target[ElementSi]
	adjustedSi := originalSi
	best := result.Formula
	bestErr := math.Inf(1)
	totalECIters := 0

	iters, _, _ := solver.IterateUntil(maxSiIterations, func(i int) (bool, error) {
		formula := result.Formula
		if i > 0 {
			adjusted := make(map[Element]float64, len(target))
			for el, v := range target {
				adjusted[el] = v
			}
			adjusted[ElementSi] = adjustedSi
			resolved, err := milpSolve(adjusted)
			if err != nil {
				// Keep the best formula found so far; solver hiccups inside
				// the adjustment loop are absorbed, not escalated.
				return true, nil
			}
			formula = resolved
		}

		if opts.TargetEC > 0 {
			var ecIters int
			formula, ecIters = ecConvergeLoop(candidates, formula, opts)
			totalECIters += ecIters
		}

		achievedSi := achieved(candidates, formula)[ElementSi]
		siErr := math.Abs(achievedSi-originalSi) / originalSi
		if siErr < bestErr {
			best, bestErr = formula, siErr
		}
		if siErr <= opts.Tolerance {
			return true, nil
		}
		if achievedSi > 0 {
			adjustedSi = math.Min(adjustedSi*originalSi/achievedSi, originalSi*siTargetCapFactor)
		} else {
			adjustedSi = math.Min(adjustedSi*2, originalSi*siTargetCapFactor)
		}
		return false, nil
	})

	result.Formula = best
	result.SiIterations = iters
	result.ECIterations = totalECIters
	log.Debug().
		Str("component", "optimizer").
		Int("si_iterations", iters).
		Float64("si_error", bestErr).
		Msg("silicon adjustment loop finished")
}

// ecConvergeLoop scales the whole formula toward the target EC. The ionic
// strength correction makes EC sub-linear in concentration, so a single
// proportional rescale undershoots; the loop repeats the rescale until the
// estimate lands within 1% of target.
func ecConvergeLoop(candidates []candidate, formula Formula, opts Options) (Formula, int) {
	current := formula
	iters, _, _ := solver.IterateUntil(maxECIterations, func(int) (bool, error) {
		est := chem.EstimateProfileEC(formulaProfile(candidates, current), opts.EC).EC
		if est <= 0 {
			return true, nil
		}
		ratio := opts.TargetEC / est
		if math.Abs(1-ratio) <= ecConvergence {
			return true, nil
		}
		current = current.Scale(ratio)
		return false, nil
	})
	return current, iters
}
