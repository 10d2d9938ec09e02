package chem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinCatalog(t *testing.T) {
	catalog := Builtin()

	t.Run("every entry validates", func(t *testing.T) {
		for _, f := range catalog.All() {
			assert.NoError(t, f.Validate(), f.ID)
		}
	})

	t.Run("lookup by id and alias is case-insensitive", func(t *testing.T) {
		for _, key := range []string{"calcium-nitrate", "calcinit", "CALCINIT", "CaNO3"} {
			f, ok := catalog.Get(key)
			require.True(t, ok, key)
			assert.Equal(t, "calcium-nitrate", f.ID)
		}
	})

	t.Run("all is sorted by id", func(t *testing.T) {
		all := catalog.All()
		for i := 1; i < len(all); i++ {
			assert.Less(t, all[i-1].ID, all[i].ID)
		}
	})

	t.Run("select fails on unknown id", func(t *testing.T) {
		_, err := catalog.Select([]string{"mkp", "unobtainium"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unobtainium")
	})
}

func TestNewCatalog(t *testing.T) {
	t.Run("duplicate alias rejected", func(t *testing.T) {
		_, err := NewCatalog([]Fertilizer{
			{ID: "a", Pct: map[Nutrient]float64{NutrientK: 10}, Aliases: []string{"shared"}},
			{ID: "b", Pct: map[Nutrient]float64{NutrientK: 10}, Aliases: []string{"SHARED"}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("invalid entry rejected", func(t *testing.T) {
		_, err := NewCatalog([]Fertilizer{
			{ID: "bad", Pct: map[Nutrient]float64{"Kryptonite": 10}},
		})
		require.Error(t, err)
	})
}

func TestLoadCatalog(t *testing.T) {
	writeCatalog := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	t.Run("user entries merge over built-ins", func(t *testing.T) {
		path := writeCatalog(t, `
fertilizers:
  - id: calcium-nitrate
    name: Custom calcium nitrate
    pct:
      N_NO3: 15.5
      Ca: 19.0
  - id: my-blend
    name: House blend
    pct:
      K2O: 30.0
      S: 10.0
`)
		catalog, err := LoadCatalog(path)
		require.NoError(t, err)

		custom, ok := catalog.Get("calcium-nitrate")
		require.True(t, ok)
		assert.Equal(t, "Custom calcium nitrate", custom.Name)
		assert.InDelta(t, 15.5, custom.Pct[NutrientNNO3], 1e-9)

		_, ok = catalog.Get("my-blend")
		assert.True(t, ok)

		// Untouched built-ins survive the merge.
		_, ok = catalog.Get("mkp")
		assert.True(t, ok)
	})

	t.Run("replace discards built-ins", func(t *testing.T) {
		path := writeCatalog(t, `
replace: true
fertilizers:
  - id: only-salt
    name: Only salt
    pct:
      K: 20.0
`)
		catalog, err := LoadCatalog(path)
		require.NoError(t, err)
		assert.Equal(t, 1, catalog.Len())
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml errors", func(t *testing.T) {
		path := writeCatalog(t, "fertilizers: [not: {valid")
		_, err := LoadCatalog(path)
		assert.Error(t, err)
	})
}

func TestFertilizerDefaults(t *testing.T) {
	f := Fertilizer{ID: "x", Pct: map[Nutrient]float64{NutrientK: 10}}
	assert.InDelta(t, DefaultSolubilityGL, f.EffectiveSolubility(), 1e-9)
	assert.InDelta(t, 1.0, f.EffectivePriority(), 1e-9)

	f.SolubilityGL = 500
	f.Priority = 0.5
	assert.InDelta(t, 500, f.EffectiveSolubility(), 1e-9)
	assert.InDelta(t, 0.5, f.EffectivePriority(), 1e-9)
}
