package planner

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kweller/nutrisolve/internal/chem"
	"github.com/kweller/nutrisolve/internal/logging"
	"github.com/kweller/nutrisolve/internal/optimizer"
	"github.com/kweller/nutrisolve/internal/solver"
)

// Progressive-K bounds and candidate filtering thresholds.
const (
	minTankCount = 2
	maxTankCount = 4
	// Candidate filtering kicks in (K≥3) when targets disagree on N:P by
	// more than 2× or on P:K by more than 1.5×.
	npSpreadLimit = 2.0
	pkSpreadLimit = 1.5
)

// Default planner knobs.
const (
	DefaultStockConcentration = 100.0
	DefaultMaxDosingML        = 20.0
	DefaultRatioTolerance     = 0.15
)

// ErrNoTargets is returned when Plan is called without targets.
var ErrNoTargets = errors.New("planner: no targets given")

// Options tunes plan construction.
type Options struct {
	// Basis controls P/K interpretation of all targets.
	Basis optimizer.Basis
	// StockConcentration is the requested stock strength (× final
	// solution); solubility may cap it lower. Default 100×.
	StockConcentration float64
	// MaxDosingML limits the total per-liter dosing volume. Default 20.
	MaxDosingML float64
	// RatioTolerance is the dosing shape tolerance (default 0.15 — far
	// looser than the optimizer's band: the shared stocks must stretch
	// across all targets).
	RatioTolerance float64
	// SeparateMgTank routes pure magnesium sources to a 4th tank.
	SeparateMgTank bool
	// BaselineEC is the source water conductivity [mS/cm].
	BaselineEC float64
	// EC are the conductivity model settings.
	EC chem.ECOptions
	// Optimizer is passed through to the base recipe solve.
	Optimizer optimizer.Options
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.StockConcentration <= 0 {
		out.StockConcentration = DefaultStockConcentration
	}
	if out.MaxDosingML <= 0 {
		out.MaxDosingML = DefaultMaxDosingML
	}
	if out.RatioTolerance <= 0 {
		out.RatioTolerance = DefaultRatioTolerance
	}
	if !out.EC.ApplyIonicStrengthCorrection && out.EC.IonicStrengthK == 0 && out.EC.TemperatureC == 0 {
		out.EC = chem.DefaultECOptions()
	}
	out.Optimizer.Basis = out.Basis
	return out
}

// Planner builds stock plans on top of the formula optimizer.
type Planner struct {
	catalog *chem.Catalog
	engine  *optimizer.Engine
	entropy *rand.Rand
}

// New creates a Planner. The engine is re-invoked once per tank-count
// attempt to produce the base recipe.
func New(catalog *chem.Catalog, engine *optimizer.Engine) *Planner {
	return &Planner{
		catalog: catalog,
		engine:  engine,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Plan finds the smallest tank count K ∈ {2,3,4} whose shared stocks serve
// every target, escalating only when a smaller K yields an error-level
// issue. When even K=4 fails, the K=4 plan is returned with Feasible=false
// alongside its issues; err is reserved for configuration problems.
func (p *Planner) Plan(ctx context.Context, targets []TargetSpec, candidates []chem.Fertilizer, opts Options) (*StockPlan, error) {
	log := logging.FromContext(ctx)
	start := time.Now()
	opts = (&opts).withDefaults()

	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	resolved := make([]map[optimizer.Element]float64, len(targets))
	for i, spec := range targets {
		ppm, _, err := spec.Target.Resolve(opts.Basis)
		if err != nil {
			return nil, err
		}
		resolved[i] = ppm
	}

	var plan *StockPlan
	_, converged, err := solver.IterateUntil(maxTankCount-minTankCount+1, func(i int) (bool, error) {
		k := minTankCount + i
		attempt, attemptErr := p.attempt(ctx, k, targets, resolved, candidates, opts)
		if attemptErr != nil {
			return false, attemptErr
		}
		plan = attempt
		if attempt.Feasible {
			return true, nil
		}
		log.Debug().
			Str("component", "planner").
			Int("tank_count", k).
			Int("issues", len(attempt.allIssues())).
			Msg("tank count infeasible, escalating")
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("component", "planner").
		Str("operation", "plan").
		Str("plan_id", plan.ID).
		Int("tank_count", plan.TankCount).
		Bool("feasible", converged).
		Int("targets", len(targets)).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("stock plan complete")
	return plan, nil
}

// attempt builds one plan at a fixed tank count.
func (p *Planner) attempt(ctx context.Context, k int, targets []TargetSpec, resolved []map[optimizer.Element]float64, candidates []chem.Fertilizer, opts Options) (*StockPlan, error) {
	repIdx := representativeTarget(resolved)
	filtered := filterCandidates(k, candidates, resolved)

	optOpts := opts.Optimizer
	optOpts.TargetEC = targets[repIdx].TargetEC
	base, err := p.engine.Optimize(ctx, targets[repIdx].Target, filtered, optOpts)
	if err != nil {
		return nil, err
	}

	plan := &StockPlan{
		ID:          ulid.MustNew(ulid.Timestamp(time.Now()), p.entropy).String(),
		TankCount:   k,
		BaseFormula: base.Formula,
	}

	tanks := assignTanks(p.catalog, base.Formula, k, opts.SeparateMgTank)
	concentration, ok, issues := capConcentration(p.catalog, tanks, opts.StockConcentration)
	plan.Issues = append(plan.Issues, issues...)
	plan.Concentration = concentration
	if !ok {
		plan.Tanks = tanks
		plan.Feasible = false
		return plan, nil
	}
	plan.Issues = append(plan.Issues, fillTanks(p.catalog, tanks, concentration)...)
	plan.Tanks = tanks

	vectors := buildTankVectors(p.catalog, tanks)
	dosingOpts := dosingOptions{
		ratioTolerance: opts.RatioTolerance,
		maxDosingML:    opts.MaxDosingML,
		baselineEC:     opts.BaselineEC,
		ec:             opts.EC,
	}
	for i, spec := range targets {
		plan.Dosing = append(plan.Dosing, solveDosing(vectors, spec, resolved[i], dosingOpts))
	}

	plan.Feasible = !hasError(plan.allIssues())
	return plan, nil
}

// representativeTarget picks the target whose N:P ratio sits closest to the
// median N:P across targets: a median-balanced base recipe stretches toward
// both N-heavy and P-heavy targets, where the extremes cannot.
func representativeTarget(resolved []map[optimizer.Element]float64) int {
	ratios := make([]float64, len(resolved))
	for i, target := range resolved {
		ratios[i] = safeRatio(target[optimizer.ElementN], target[optimizer.ElementP])
	}

	sorted := append([]float64(nil), ratios...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}

	best, bestDist := 0, -1.0
	for i, r := range ratios {
		dist := r - median
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

// filterCandidates removes nutrient-coupling fertilizers when the targets
// disagree strongly on N:P or P:K ratios (K≥3 only): a pure P source lets
// per-target dosing vary the ratio where a combined N-P source cannot. The
// filter reverts when it would strip every source of a required nutrient.
func filterCandidates(k int, candidates []chem.Fertilizer, resolved []map[optimizer.Element]float64) []chem.Fertilizer {
	if k < 3 || len(resolved) < 2 {
		return candidates
	}

	npSpread := ratioSpread(resolved, optimizer.ElementN, optimizer.ElementP)
	pkSpread := ratioSpread(resolved, optimizer.ElementP, optimizer.ElementK)
	dropNP := npSpread > npSpreadLimit
	dropPK := pkSpread > pkSpreadLimit
	if !dropNP && !dropPK {
		return candidates
	}

	var kept []chem.Fertilizer
	for _, f := range candidates {
		contrib := chem.ContributionPerGram(f, 1)
		couplesNP := contrib[chem.NutrientNTotal] > 0 && contrib[chem.NutrientP] > 0
		couplesPK := contrib[chem.NutrientP] > 0 && contrib[chem.NutrientK] > 0
		if (dropNP && couplesNP) || (dropPK && couplesPK) {
			continue
		}
		kept = append(kept, f)
	}

	// Revert when filtering starved a required nutrient.
	for _, target := range resolved {
		for el, want := range target {
			if want <= 0 {
				continue
			}
			covered := false
			for _, f := range kept {
				if chem.ContributionPerGram(f, 1)[elementBuckets[el]] > 0 {
					covered = true
					break
				}
			}
			if !covered {
				return candidates
			}
		}
	}
	return kept
}

// ratioSpread is the max/min spread of num:den across targets, ignoring
// targets lacking either element.
func ratioSpread(resolved []map[optimizer.Element]float64, num, den optimizer.Element) float64 {
	lo, hi := 0.0, 0.0
	for _, target := range resolved {
		if target[num] <= 0 || target[den] <= 0 {
			continue
		}
		r := target[num] / target[den]
		if lo == 0 || r < lo {
			lo = r
		}
		if r > hi {
			hi = r
		}
	}
	if lo == 0 {
		return 1
	}
	return hi / lo
}

func safeRatio(num, den float64) float64 {
	if den <= 0 {
		if num <= 0 {
			return 0
		}
		return 1e6
	}
	return num / den
}
