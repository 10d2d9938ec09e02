package planner

import (
	"fmt"
	"math"

	"github.com/kweller/nutrisolve/internal/chem"
	"github.com/kweller/nutrisolve/internal/optimizer"
	"github.com/kweller/nutrisolve/internal/solver"
)

// Dosing solver constants. Phase 1 searches tank volume ratios only; phase 2
// scales all volumes uniformly to hit EC. Scaling a single tank instead
// would corrupt the ratio phase 1 just matched.
const (
	gridMin            = 0.02
	gridMax            = 50.0
	gridStep           = 1.5 // geometric progression factor for 2-tank grids
	coarseGridStep     = 2.2 // coarser progression for nested 3/4-tank grids
	refineRounds       = 10
	maxECIterations    = 5
	ecPhaseConvergence = 0.01
	ecPhaseTolerance   = 0.05 // warn when EC lands >5% off after scaling
	volumeWarnFrac     = 0.8
)

var refineFactors = []float64{0.9, 1.1, 0.7, 1.3}

// tankVectors are a tank's per-mL-per-L dosing contributions: the elemental
// ppm view for ratio matching and the full nutrient profile for the EC
// model.
type tankVectors struct {
	label    string
	elements map[optimizer.Element]float64
	profile  chem.Profile
}

// buildTankVectors precomputes what 1 mL of each stock tank per liter of
// final solution contributes.
func buildTankVectors(catalog *chem.Catalog, tanks []Tank) []tankVectors {
	out := make([]tankVectors, len(tanks))
	for i, tank := range tanks {
		vec := tankVectors{
			label:    tank.Label,
			elements: make(map[optimizer.Element]float64),
			profile:  make(chem.Profile),
		}
		for id, stockGL := range tank.Fertilizers {
			f, ok := catalog.Get(id)
			if !ok {
				continue
			}
			// stockGL g/L of stock → stockGL/1000 g per mL of stock; dosing
			// 1 mL into 1 L final solution dissolves that mass per liter.
			gramsPerML := stockGL / 1000
			contrib := chem.ContributionPerGram(f, 1)
			vec.profile.Add(contrib.Scale(gramsPerML))
			for el, nutrient := range elementBuckets {
				if ppm := contrib[nutrient]; ppm > 0 {
					vec.elements[el] += ppm * gramsPerML
				}
			}
		}
		out[i] = vec
	}
	return out
}

// dosedProfile returns the elemental ppm achieved by dosing ml[i] of each
// tank per liter.
func dosedProfile(vectors []tankVectors, ml []float64) map[optimizer.Element]float64 {
	out := make(map[optimizer.Element]float64)
	for i, vec := range vectors {
		for el, ppm := range vec.elements {
			out[el] += ppm * ml[i]
		}
	}
	return out
}

func dosedChemProfile(vectors []tankVectors, ml []float64) chem.Profile {
	out := make(chem.Profile)
	for i, vec := range vectors {
		out.Add(vec.profile.Scale(ml[i]))
	}
	return out
}

// ratioError scores how far the achieved profile's shape is from the target
// shape: both vectors are normalized over the positive-target elements and
// compared by sum of squared differences.
func ratioError(target, achievedPPM map[optimizer.Element]float64) float64 {
	var targetSum, achievedSum float64
	for el, want := range target {
		if want > 0 {
			targetSum += want
			achievedSum += achievedPPM[el]
		}
	}
	if targetSum == 0 {
		return 0
	}
	if achievedSum == 0 {
		return math.Inf(1)
	}
	var sse float64
	for el, want := range target {
		if want <= 0 {
			continue
		}
		diff := achievedPPM[el]/achievedSum - want/targetSum
		sse += diff * diff
	}
	return sse
}

// maxRatioDeviation is the worst per-element relative deviation of the
// achieved shape from the target shape, used for the 15% feasibility gate.
func maxRatioDeviation(target, achievedPPM map[optimizer.Element]float64) float64 {
	var targetSum, achievedSum float64
	for el, want := range target {
		if want > 0 {
			targetSum += want
			achievedSum += achievedPPM[el]
		}
	}
	if targetSum == 0 || achievedSum == 0 {
		return math.Inf(1)
	}
	worst := 0.0
	for el, want := range target {
		if want <= 0 {
			continue
		}
		wantShare := want / targetSum
		gotShare := achievedPPM[el] / achievedSum
		if dev := math.Abs(gotShare-wantShare) / wantShare; dev > worst {
			worst = dev
		}
	}
	return worst
}

// geometricGrid returns the multiplier progression for phase 1.
func geometricGrid(step float64) []float64 {
	var grid []float64
	for v := gridMin; v <= gridMax; v *= step {
		grid = append(grid, v)
	}
	return grid
}

// searchRatios is phase 1: tank A is pinned to 1 mL/L and the other tanks'
// multipliers are grid searched (nested for 3 and 4 tanks), then locally
// refined by coordinate descent.
func searchRatios(vectors []tankVectors, target map[optimizer.Element]float64) []float64 {
	n := len(vectors)
	best := make([]float64, n)
	best[0] = 1
	for i := 1; i < n; i++ {
		best[i] = 1
	}
	bestErr := ratioError(target, dosedProfile(vectors, best))

	step := gridStep
	if n > 2 {
		step = coarseGridStep
	}
	grid := geometricGrid(step)

	trial := make([]float64, n)
	trial[0] = 1
	var walk func(tank int)
	walk = func(tank int) {
		if tank == n {
			if err := ratioError(target, dosedProfile(vectors, trial)); err < bestErr {
				bestErr = err
				copy(best, trial)
			}
			return
		}
		for _, v := range grid {
			trial[tank] = v
			walk(tank + 1)
		}
	}
	walk(1)

	// Local coordinate descent around the grid winner.
	for round := 0; round < refineRounds; round++ {
		improved := false
		for tank := 1; tank < n; tank++ {
			for _, factor := range refineFactors {
				candidate := append([]float64(nil), best...)
				candidate[tank] *= factor
				if err := ratioError(target, dosedProfile(vectors, candidate)); err < bestErr {
					bestErr = err
					best = candidate
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

// dosingOptions carries the per-run knobs the dosing solver needs.
type dosingOptions struct {
	ratioTolerance float64
	maxDosingML    float64
	baselineEC     float64
	ec             chem.ECOptions
}

// solveDosing produces the dosing instruction for one target against the
// scaled tanks: phase 1 matches the nutrient ratio, phase 2 scales all tank
// volumes uniformly onto the EC target.
func solveDosing(vectors []tankVectors, spec TargetSpec, target map[optimizer.Element]float64, opts dosingOptions) DosingInstruction {
	instruction := DosingInstruction{TargetName: spec.Name, TankML: make(map[string]float64)}

	ml := searchRatios(vectors, target)

	if spec.TargetEC > 0 {
		if spec.TargetEC <= opts.baselineEC {
			instruction.Issues = append(instruction.Issues, Issue{
				Level:   LevelError,
				Code:    CodeECUnachievable,
				Message: fmt.Sprintf("target EC %.2f is at or below the %.2f baseline", spec.TargetEC, opts.baselineEC),
			})
		} else {
			// The EC model is sub-linear in concentration, so one uniform
			// rescale undershoots; repeat the rescale a few rounds.
			_, _, _ = solver.IterateUntil(maxECIterations, func(int) (bool, error) {
				current := chem.EstimateProfileEC(dosedChemProfile(vectors, ml), opts.ec).EC
				if current <= 0 {
					return true, nil
				}
				scale := (spec.TargetEC - opts.baselineEC) / current
				if math.Abs(1-scale) <= ecPhaseConvergence {
					return true, nil
				}
				for i := range ml {
					ml[i] *= scale
				}
				return false, nil
			})
		}
	} else {
		// No EC ask: scale to the least-squares best absolute fit of the
		// target ppm while keeping the matched ratio.
		achievedPPM := dosedProfile(vectors, ml)
		var num, den float64
		for el, want := range target {
			if want > 0 {
				num += achievedPPM[el] * want
				den += achievedPPM[el] * achievedPPM[el]
			}
		}
		if den > 0 {
			scale := num / den
			for i := range ml {
				ml[i] *= scale
			}
		}
	}

	achievedPPM := dosedProfile(vectors, ml)
	ec := chem.EstimateProfileEC(dosedChemProfile(vectors, ml), opts.ec)
	instruction.Achieved = achievedPPM
	instruction.AchievedEC = ec.EC + opts.baselineEC

	total := 0.0
	for i, vec := range vectors {
		instruction.TankML[vec.label] = ml[i]
		total += ml[i]
	}

	if dev := maxRatioDeviation(target, achievedPPM); dev > opts.ratioTolerance {
		instruction.Issues = append(instruction.Issues, Issue{
			Level:   LevelError,
			Code:    CodeRatioMismatch,
			Message: fmt.Sprintf("achieved ratio deviates %.0f%% from target (tolerance %.0f%%)", dev*100, opts.ratioTolerance*100),
			Details: map[string]interface{}{"deviation": dev},
		})
	}
	if spec.TargetEC > 0 && !hasError(instruction.Issues) {
		if off := math.Abs(instruction.AchievedEC-spec.TargetEC) / spec.TargetEC; off > ecPhaseTolerance {
			instruction.Issues = append(instruction.Issues, Issue{
				Level:   LevelWarning,
				Code:    CodeECOffTarget,
				Message: fmt.Sprintf("achieved EC %.2f is %.0f%% off the %.2f target", instruction.AchievedEC, off*100, spec.TargetEC),
			})
		}
	}
	if opts.maxDosingML > 0 {
		switch {
		case total > opts.maxDosingML:
			instruction.Issues = append(instruction.Issues, Issue{
				Level:   LevelError,
				Code:    CodeDosingVolumeLimit,
				Message: fmt.Sprintf("total dosing %.1f mL/L exceeds the %.1f mL/L limit", total, opts.maxDosingML),
				Details: map[string]interface{}{"total_ml": total},
			})
		case total > volumeWarnFrac*opts.maxDosingML:
			instruction.Issues = append(instruction.Issues, Issue{
				Level:   LevelWarning,
				Code:    CodeDosingVolumeHigh,
				Message: fmt.Sprintf("total dosing %.1f mL/L is over %.0f%% of the %.1f mL/L limit", total, volumeWarnFrac*100, opts.maxDosingML),
			})
		}
	}
	return instruction
}
