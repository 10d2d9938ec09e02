package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kweller/nutrisolve/internal/chem"
	"github.com/kweller/nutrisolve/internal/optimizer"
)

func tankFor(t *testing.T, tanks []Tank, id string) *Tank {
	t.Helper()
	for i := range tanks {
		if _, ok := tanks[i].Fertilizers[id]; ok {
			return &tanks[i]
		}
	}
	t.Fatalf("fertilizer %s not assigned to any tank", id)
	return nil
}

func TestAssignTanks(t *testing.T) {
	catalog := chem.Builtin()

	formula := optimizer.Formula{
		"calcium-nitrate":    1.0,
		"mkp":                0.5,
		"magnesium-sulfate":  0.8,
		"potassium-sulfate":  0.6,
		"potassium-silicate": 0.3,
	}

	t.Run("two tanks split calcium from the rest", func(t *testing.T) {
		tanks := assignTanks(catalog, formula, 2, false)
		require.Len(t, tanks, 2)

		assert.Equal(t, "A", tankFor(t, tanks, "calcium-nitrate").Label)
		for _, id := range []string{"mkp", "magnesium-sulfate", "potassium-sulfate", "potassium-silicate"} {
			assert.Equal(t, "B", tankFor(t, tanks, id).Label, id)
		}
	})

	t.Run("three tanks peel potassium-dominant sulfates into C", func(t *testing.T) {
		tanks := assignTanks(catalog, formula, 3, false)

		assert.Equal(t, "A", tankFor(t, tanks, "calcium-nitrate").Label)
		assert.Equal(t, "B", tankFor(t, tanks, "mkp").Label)
		assert.Equal(t, "B", tankFor(t, tanks, "magnesium-sulfate").Label, "sulfur-dominant sulfate stays in B")
		assert.Equal(t, "C", tankFor(t, tanks, "potassium-sulfate").Label)
		assert.Equal(t, "C", tankFor(t, tanks, "potassium-silicate").Label, "silicate goes to the highest tank")
	})

	t.Run("four tanks with magnesium split", func(t *testing.T) {
		mgCatalog, err := chem.NewCatalog([]chem.Fertilizer{
			{ID: "cal-nit", Pct: map[chem.Nutrient]float64{chem.NutrientCa: 19}, Compat: chem.CompatCalcium},
			{ID: "mag-chelate", Pct: map[chem.Nutrient]float64{chem.NutrientMg: 9}, Compat: chem.CompatNeutral},
		})
		require.NoError(t, err)

		tanks := assignTanks(mgCatalog, optimizer.Formula{"cal-nit": 1, "mag-chelate": 1}, 4, true)
		assert.Equal(t, "A", tankFor(t, tanks, "cal-nit").Label)
		assert.Equal(t, "D", tankFor(t, tanks, "mag-chelate").Label)
	})

	t.Run("calcium never shares with sulfate, phosphate or silicate", func(t *testing.T) {
		for k := 2; k <= 4; k++ {
			tanks := assignTanks(catalog, formula, k, false)
			for _, tank := range tanks {
				hasCalcium := false
				hasIncompatible := false
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
				assert.False(t, hasCalcium && hasIncompatible, "tank %s at k=%d mixes calcium with precipitating classes", tank.Label, k)
			}
		}
	})
}

func TestCapConcentration(t *testing.T) {
	catalog := chem.Builtin()

	t.Run("request stands when solubility allows", func(t *testing.T) {
		tanks := assignTanks(catalog, optimizer.Formula{"calcium-nitrate": 1.0}, 2, false)
		conc, ok, issues := capConcentration(catalog, tanks, 100)
		assert.True(t, ok)
		assert.Empty(t, issues)
		assert.InDelta(t, 100, conc, 1e-9)
	})

	t.Run("limiting salt caps the strength", func(t *testing.T) {
		// 0.8 × 1200 g/L ÷ 12 g/L base = 80×.
		tanks := assignTanks(catalog, optimizer.Formula{"calcium-nitrate": 12.0}, 2, false)
		conc, ok, _ := capConcentration(catalog, tanks, 100)
		assert.True(t, ok)
		assert.InDelta(t, 80, conc, 1e-9)
	})

	t.Run("cap under the practicality floor is an error", func(t *testing.T) {
		lowSol, err := chem.NewCatalog([]chem.Fertilizer{
			{ID: "sludge", Pct: map[chem.Nutrient]float64{chem.NutrientK: 10}, SolubilityGL: 15},
		})
		require.NoError(t, err)

		tanks := assignTanks(lowSol, optimizer.Formula{"sludge": 3.0}, 2, false)
		_, ok, issues := capConcentration(lowSol, tanks, 100)
		assert.False(t, ok)
		require.Len(t, issues, 1)
		assert.Equal(t, LevelError, issues[0].Level)
		assert.Equal(t, CodeStockTooDilute, issues[0].Code)
	})
}

func TestFillTanks(t *testing.T) {
	catalog := chem.Builtin()

	t.Run("doses scale to stock strength", func(t *testing.T) {
		tanks := assignTanks(catalog, optimizer.Formula{"calcium-nitrate": 1.5}, 2, false)
		issues := fillTanks(catalog, tanks, 100)
		assert.Empty(t, issues)

		tank := tankFor(t, tanks, "calcium-nitrate")
		assert.InDelta(t, 150, tank.Fertilizers["calcium-nitrate"], 1e-9)
		assert.InDelta(t, 150.0/1200, tank.SolubilityUse["calcium-nitrate"], 1e-9)
	})

	t.Run("exceeding solubility is an error", func(t *testing.T) {
		tanks := assignTanks(catalog, optimizer.Formula{"potassium-sulfate": 2.0}, 2, false)
		issues := fillTanks(catalog, tanks, 100)

		// 200 g/L stock against a 111 g/L limit.
		require.Len(t, issues, 1)
		assert.Equal(t, CodeSolubilityExceeded, issues[0].Code)
		assert.Equal(t, LevelError, issues[0].Level)
	})
}
