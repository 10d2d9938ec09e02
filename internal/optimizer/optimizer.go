package optimizer

import (
	"context"
	"errors"
	"time"

	"github.com/kweller/nutrisolve/internal/chem"
	"github.com/kweller/nutrisolve/internal/logging"
	"github.com/kweller/nutrisolve/internal/solver"
)

// Strategy selects the solving path.
type Strategy string

// Strategies. Auto prefers MILP and falls back to NNLS when no backend is
// available.
const (
	StrategyAuto Strategy = "auto"
	StrategyMILP Strategy = "milp"
	StrategyNNLS Strategy = "nnls"
)

// DefaultTolerance is the relative band each targeted nutrient must land in.
const DefaultTolerance = 0.01

// Options tunes a single optimization.
type Options struct {
	// Basis controls P/K interpretation of the target.
	Basis Basis
	// Tolerance is the relative deviation band (default 0.01).
	Tolerance float64
	// TargetEC, when positive, triggers the EC convergence loop [mS/cm].
	TargetEC float64
	// EC are the conductivity model settings used during EC convergence.
	EC chem.ECOptions
	// AcidMaxGL caps the dose of an acid-flagged candidate and activates
	// the fill-to-limit preference for it. Zero disables both.
	AcidMaxGL float64
	// Strategy selects the solving path (default auto).
	Strategy Strategy
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.Tolerance <= 0 {
		out.Tolerance = DefaultTolerance
	}
	if out.Strategy == "" {
		out.Strategy = StrategyAuto
	}
	if !out.EC.ApplyIonicStrengthCorrection && out.EC.IonicStrengthK == 0 && out.EC.TemperatureC == 0 {
		out.EC = chem.DefaultECOptions()
	}
	return out
}

// Engine is the formula optimizer. A zero backend means the shared HiGHS
// backend is resolved lazily on first use; an injected backend (tests, or a
// caller-owned solver handle) is used as-is.
type Engine struct {
	backend solver.Backend
}

// New creates an Engine. backend may be nil to use the process-wide default.
func New(backend solver.Backend) *Engine {
	return &Engine{backend: backend}
}

// candidate pairs a fertilizer with its cached per-gram elemental
// contribution [ppm/(g/L)].
type candidate struct {
	fert    chem.Fertilizer
	contrib map[Element]float64
}

// Optimize finds a minimal-count dose combination approximating target
// within tolerance. An empty candidate set yields an empty formula with a
// zero achieved profile rather than an error. Identical inputs always
// produce identical results.
func (e *Engine) Optimize(ctx context.Context, target Target, fertilizers []chem.Fertilizer, opts Options) (*Result, error) {
	log := logging.FromContext(ctx)
	start := time.Now()
	opts = (&opts).withDefaults()

	resolved, siAbsolute, err := target.Resolve(opts.Basis)
	if err != nil {
		return nil, err
	}

	if len(fertilizers) == 0 {
		return &Result{Formula: Formula{}, Achieved: zeroAchieved()}, nil
	}

	candidates := make([]candidate, 0, len(fertilizers))
	for _, f := range fertilizers {
		candidates = append(candidates, candidate{fert: f, contrib: elementContribution(f)})
	}

	log.Debug().
		Str("component", "optimizer").
		Str("operation", "optimize").
		Int("candidates", len(candidates)).
		Str("strategy", string(opts.Strategy)).
		Float64("tolerance", opts.Tolerance).
		Msg("starting formula optimization")

	var (
		formula      Formula
		strategyUsed string
		milpSolve    func(adjusted map[Element]float64) (Formula, error)
	)

	switch opts.Strategy {
	case StrategyNNLS:
		formula, strategyUsed = solveNNLSChain(ctx, candidates, resolved, opts.Tolerance)
	default:
		backend := e.backend
		if backend == nil {
			backend, err = solver.Default(ctx)
		}
		if err != nil {
			if opts.Strategy == StrategyMILP {
				return nil, err
			}
			log.Warn().
				Str("component", "optimizer").
				Err(err).
				Msg("milp backend unavailable, falling back to nnls strategy chain")
			formula, strategyUsed = solveNNLSChain(ctx, candidates, resolved, opts.Tolerance)
			break
		}
		milpSolve = func(adjusted map[Element]float64) (Formula, error) {
			return solveMILP(ctx, backend, candidates, adjusted, siAbsolute, opts)
		}
		formula, err = milpSolve(resolved)
		if err != nil {
			if opts.Strategy == StrategyMILP || !errors.Is(err, solver.ErrNoSolution) {
				return nil, err
			}
			log.Warn().
				Str("component", "optimizer").
				Err(err).
				Msg("milp produced no solution, falling back to nnls strategy chain")
			formula, strategyUsed = solveNNLSChain(ctx, candidates, resolved, opts.Tolerance)
			milpSolve = nil
		} else {
			strategyUsed = "milp"
		}
	}

	result := &Result{Formula: formula.clean(), Strategy: strategyUsed}
	converge(ctx, result, candidates, resolved, siAbsolute, milpSolve, opts)
	result.Achieved = achieved(candidates, result.Formula)
	if opts.TargetEC > 0 {
		result.EC = chem.EstimateProfileEC(formulaProfile(candidates, result.Formula), opts.EC).EC
	}

	log.Info().
		Str("component", "optimizer").
		Str("operation", "optimize").
		Str("strategy", result.Strategy).
		Int("fertilizers", len(result.Formula)).
		Float64("ec", result.EC).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("formula optimization complete")
	return result, nil
}

// elementContribution projects a fertilizer's per-gram ppm profile onto the
// tracked elements.
func elementContribution(f chem.Fertilizer) map[Element]float64 {
	profile := chem.ContributionPerGram(f, 1)
	out := make(map[Element]float64, len(TrackedElements))
	for _, el := range TrackedElements {
		if ppm := profile[elementNutrient[el]]; ppm > 0 {
			out[el] = ppm
		}
	}
	return out
}

// achieved recomputes the per-element ppm produced by formula.
func achieved(candidates []candidate, formula Formula) map[Element]float64 {
	out := zeroAchieved()
	for _, c := range candidates {
		grams := formula[c.fert.ID]
		if grams <= 0 {
			continue
		}
		for el, ppm := range c.contrib {
			out[el] += ppm * grams
		}
	}
	return out
}

// formulaProfile recomputes the full nutrient profile (speciated N included)
// produced by formula, for the EC model.
func formulaProfile(candidates []candidate, formula Formula) chem.Profile {
	total := make(chem.Profile)
	for _, c := range candidates {
		grams := formula[c.fert.ID]
		if grams <= 0 {
			continue
		}
		total.Add(chem.ContributionPerGram(c.fert, 1).Scale(grams))
	}
	return total
}

func zeroAchieved() map[Element]float64 {
	out := make(map[Element]float64, len(TrackedElements))
	for _, el := range TrackedElements {
		out[el] = 0
	}
	return out
}

// WithinTolerance reports whether achieved meets every positive target
// within the relative tolerance band.
func WithinTolerance(target, achieved map[Element]float64, tolerance float64) bool {
	for el, want := range target {
		if want <= 0 {
			continue
		}
		got := achieved[el]
		if got < want*(1-tolerance) || got > want*(1+tolerance) {
			return false
		}
	}
	return true
}
