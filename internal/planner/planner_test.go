package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kweller/nutrisolve/internal/chem"
	"github.com/kweller/nutrisolve/internal/optimizer"
)

func nnlsOptions() Options {
	// 100× stocks put a full-strength dose right at 20 mL/L, so the default
	// limit is raised to keep these plans out of the volume gate.
	return Options{
		MaxDosingML: 40,
		Optimizer:   optimizer.Options{Strategy: optimizer.StrategyNNLS},
	}
}

func TestPlan(t *testing.T) {
	ctx := context.Background()
	catalog := chem.Builtin()

	candidates, err := catalog.Select([]string{
		"calcium-nitrate", "potassium-nitrate", "mkp", "magnesium-sulfate", "ammonium-nitrate",
	})
	require.NoError(t, err)

	ratio := optimizer.RatioTarget{
		Ratio: map[optimizer.Element]float64{
			optimizer.ElementN: 3, optimizer.ElementP: 1, optimizer.ElementK: 2,
			optimizer.ElementCa: 2, optimizer.ElementMg: 1,
		},
		ConcentrationBasis: 50,
	}

	t.Run("compatible targets stay at two tanks", func(t *testing.T) {
		p := New(catalog, optimizer.New(nil))
		plan, err := p.Plan(ctx, []TargetSpec{
			{Name: "veg", Target: ratio},
			{Name: "clone", Target: ratio},
		}, candidates, nnlsOptions())
		require.NoError(t, err)

		assert.True(t, plan.Feasible, "issues: %v", plan.allIssues())
		assert.Equal(t, 2, plan.TankCount)
		assert.Len(t, plan.Tanks, 2)
		assert.Len(t, plan.Dosing, 2)
		assert.NotEmpty(t, plan.ID)
		assert.GreaterOrEqual(t, plan.Concentration, minPracticalConcentration)
	})

	t.Run("tanks never mix calcium with precipitating classes", func(t *testing.T) {
		p := New(catalog, optimizer.New(nil))
		plan, err := p.Plan(ctx, []TargetSpec{{Name: "veg", Target: ratio}}, candidates, nnlsOptions())
		require.NoError(t, err)

		for _, tank := range plan.Tanks {
			hasCalcium, hasIncompatible := false, false
			for id := range tank.Fertilizers {
				f, ok := catalog.Get(id)
				require.True(t, ok)
				switch f.Compat {
				case chem.CompatCalcium:
					hasCalcium = true
				case chem.CompatSulfate, chem.CompatPhosphate, chem.CompatSilicate:
					hasIncompatible = true
				}
			}
			assert.False(t, hasCalcium && hasIncompatible, "tank %s", tank.Label)
		}
	})

	t.Run("no targets is an error", func(t *testing.T) {
		p := New(catalog, optimizer.New(nil))
		_, err := p.Plan(ctx, nil, candidates, nnlsOptions())
		assert.ErrorIs(t, err, ErrNoTargets)
	})

	t.Run("exhausted escalation returns the infeasible four-tank plan", func(t *testing.T) {
		lowSol, err := chem.NewCatalog([]chem.Fertilizer{
			{ID: "sludge", Pct: map[chem.Nutrient]float64{chem.NutrientK: 10}, SolubilityGL: 15},
		})
		require.NoError(t, err)

		p := New(lowSol, optimizer.New(nil))
		plan, err := p.Plan(ctx, []TargetSpec{{
			Name:   "thirsty",
			Target: optimizer.AbsoluteTarget{PPM: map[optimizer.Element]float64{optimizer.ElementK: 300}},
		}}, lowSol.All(), nnlsOptions())
		require.NoError(t, err)

		assert.False(t, plan.Feasible)
		assert.Equal(t, maxTankCount, plan.TankCount)
		codes := make([]string, 0, len(plan.allIssues()))
		for _, issue := range plan.allIssues() {
			codes = append(codes, issue.Code)
		}
		assert.Contains(t, codes, CodeStockTooDilute)
	})

	t.Run("invalid target propagates", func(t *testing.T) {
		p := New(catalog, optimizer.New(nil))
		_, err := p.Plan(ctx, []TargetSpec{{
			Name:   "empty",
			Target: optimizer.AbsoluteTarget{PPM: map[optimizer.Element]float64{}},
		}}, candidates, nnlsOptions())
		assert.ErrorIs(t, err, optimizer.ErrEmptyTarget)
	})
}

func TestRepresentativeTarget(t *testing.T) {
	resolved := []map[optimizer.Element]float64{
		{optimizer.ElementN: 100, optimizer.ElementP: 100}, // N:P = 1
		{optimizer.ElementN: 200, optimizer.ElementP: 100}, // N:P = 2
		{optimizer.ElementN: 500, optimizer.ElementP: 50},  // N:P = 10
	}
	assert.Equal(t, 1, representativeTarget(resolved), "middle ratio is the median")
}

func TestFilterCandidates(t *testing.T) {
	catalog := chem.Builtin()
	ferts, err := catalog.Select([]string{"calcium-nitrate", "mkp", "map"})
	require.NoError(t, err)

	// N:P disagrees 6× across targets; P:K is identical so only the N-P
	// coupling filter fires.
	divergent := []map[optimizer.Element]float64{
		{optimizer.ElementN: 300, optimizer.ElementP: 50, optimizer.ElementK: 100},
		{optimizer.ElementN: 100, optimizer.ElementP: 100, optimizer.ElementK: 200},
	}

	t.Run("drops N-P coupling sources at three tanks", func(t *testing.T) {
		kept := filterCandidates(3, ferts, divergent)

		ids := make([]string, 0, len(kept))
		for _, f := range kept {
			ids = append(ids, f.ID)
		}
		assert.NotContains(t, ids, "map", "MAP couples N and P")
		assert.Contains(t, ids, "calcium-nitrate")
		assert.Contains(t, ids, "mkp")
	})

	t.Run("no filtering below three tanks", func(t *testing.T) {
		kept := filterCandidates(2, ferts, divergent)
		assert.Len(t, kept, len(ferts))
	})

	t.Run("no filtering when targets agree", func(t *testing.T) {
		aligned := []map[optimizer.Element]float64{
			{optimizer.ElementN: 300, optimizer.ElementP: 100},
			{optimizer.ElementN: 310, optimizer.ElementP: 100},
		}
		kept := filterCandidates(3, ferts, aligned)
		assert.Len(t, kept, len(ferts))
	})

	t.Run("reverts when filtering starves a nutrient", func(t *testing.T) {
		onlyMAP, err := catalog.Select([]string{"map"})
		require.NoError(t, err)

		kept := filterCandidates(3, onlyMAP, divergent)
		assert.Len(t, kept, 1, "dropping the only N and P source must revert")
	})
}
