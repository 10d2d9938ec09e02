package optimizer

import (
	"context"
	"fmt"

	"github.com/kweller/nutrisolve/internal/logging"
	"github.com/kweller/nutrisolve/internal/solver"
)

// MILP model constants. BIG_M links dose variables to their binary "used"
// indicators; the slack penalties price deviation from the target band.
const (
	bigM                   = 10000.0
	targetedSlackPenalty   = 100.0
	incidentalSlackPenalty = 50.0
	siSlackPenalty         = 10000.0
	acidPriorityWeight     = 0.01
	acidFillPenalty        = 10000.0
)

// solveMILP builds the mixed-integer model for one target vector, hands it
// to the backend, and extracts the dose vector. Model construction is the
// engine's job; the simplex/branch-and-bound work happens entirely inside
// the backend.
func solveMILP(ctx context.Context, backend solver.Backend, candidates []candidate, target map[Element]float64, siAbsolute bool, opts Options) (Formula, error) {
	model := &solver.Model{}

	// Dose and indicator variables per candidate.
	doseVar := make([]int, len(candidates))
	for i, c := range candidates {
		upper := bigM
		priority := c.fert.EffectivePriority()
		if c.fert.Acid && opts.AcidMaxGL > 0 {
			upper = opts.AcidMaxGL
			priority = acidPriorityWeight
		}
		doseVar[i] = model.AddVariable("x_"+c.fert.ID, 0, upper, 0)
		used := model.AddBinary("y_"+c.fert.ID, priority)

		// x ≤ BIG_M·y so the objective can price fertilizer count.
		model.AddLe("link_"+c.fert.ID, map[int]float64{doseVar[i]: 1, used: -bigM}, 0)
	}

	// Per-element band constraints with slack pairs.
	for _, el := range TrackedElements {
		coeffs := make(map[int]float64)
		for i, c := range candidates {
			if ppm := c.contrib[el]; ppm > 0 {
				coeffs[doseVar[i]] = ppm
			}
		}

		want := target[el]
		if want <= 0 {
			// Zero-target nutrients get a ceiling of 0; the slack absorbs
			// whatever incidental contribution the chosen salts carry.
			if len(coeffs) == 0 {
				continue
			}
			over := model.AddVariable(fmt.Sprintf("over_%s", el), 0, solver.Inf(), incidentalSlackPenalty)
			coeffs[over] = -1
			model.AddLe(fmt.Sprintf("cap_%s", el), coeffs, 0)
			continue
		}

		penalty := targetedSlackPenalty
		if el == ElementSi && siAbsolute {
			// Si is an absolute ask outside the ratio normalization; with
			// only the standard penalty the solver starves it entirely.
			penalty = siSlackPenalty
		}
		under := model.AddVariable(fmt.Sprintf("under_%s", el), 0, solver.Inf(), penalty)
		over := model.AddVariable(fmt.Sprintf("over_%s", el), 0, solver.Inf(), penalty)

		lo := cloneCoeffs(coeffs)
		lo[under] = 1
		model.AddGe(fmt.Sprintf("band_lo_%s", el), lo, want*(1-opts.Tolerance))

		hi := cloneCoeffs(coeffs)
		hi[over] = -1
		model.AddLe(fmt.Sprintf("band_hi_%s", el), hi, want*(1+opts.Tolerance))
	}

	// Acid fill-to-limit: under-using the acid source is penalized so the
	// solver prefers acidifying P/K mass over alternative salts.
	for i, c := range candidates {
		if c.fert.Acid && opts.AcidMaxGL > 0 {
			fill := model.AddVariable("fill_"+c.fert.ID, 0, solver.Inf(), acidFillPenalty)
			model.AddEq("acid_fill_"+c.fert.ID, map[int]float64{doseVar[i]: 1, fill: 1}, opts.AcidMaxGL)
		}
	}

	sol, err := backend.Solve(ctx, model)
	if err != nil {
		return nil, err
	}

	formula := make(Formula, len(candidates))
	for i, c := range candidates {
		if grams := sol.Value(doseVar[i]); grams >= doseFloor {
			formula[c.fert.ID] = grams
		}
	}

	logging.FromContext(ctx).Debug().
		Str("component", "optimizer").
		Str("strategy", "milp").
		Int("model_vars", len(model.Variables)).
		Int("model_constraints", len(model.Constraints)).
		Float64("objective", sol.Objective).
		Int("fertilizers", len(formula)).
		Msg("milp model solved")
	return formula, nil
}

func cloneCoeffs(coeffs map[int]float64) map[int]float64 {
	out := make(map[int]float64, len(coeffs)+1)
	for k, v := range coeffs {
		out[k] = v
	}
	return out
}
