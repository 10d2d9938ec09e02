package chem

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the immutable fertilizer reference table. It is loaded once at
// process start (built-in data, optionally extended from a YAML file) and
// never mutated afterwards.
type Catalog struct {
	fertilizers []Fertilizer
	byID        map[string]int
}

// NewCatalog validates entries and builds the id/alias index. Duplicate ids
// or aliases are rejected.
func NewCatalog(fertilizers []Fertilizer) (*Catalog, error) {
	c := &Catalog{
		fertilizers: make([]Fertilizer, 0, len(fertilizers)),
		byID:        make(map[string]int, len(fertilizers)),
	}
	for _, f := range fertilizers {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		idx := len(c.fertilizers)
		for _, key := range append([]string{f.ID}, f.Aliases...) {
			key = strings.ToLower(key)
			if _, exists := c.byID[key]; exists {
				return nil, fmt.Errorf("catalog: duplicate fertilizer id or alias %q", key)
			}
			c.byID[key] = idx
		}
		c.fertilizers = append(c.fertilizers, f)
	}
	return c, nil
}

// Get looks up a fertilizer by id or alias (case-insensitive).
func (c *Catalog) Get(id string) (Fertilizer, bool) {
	idx, ok := c.byID[strings.ToLower(id)]
	if !ok {
		return Fertilizer{}, false
	}
	return c.fertilizers[idx], true
}

// All returns every entry sorted by id.
func (c *Catalog) All() []Fertilizer {
	out := make([]Fertilizer, len(c.fertilizers))
	copy(out, c.fertilizers)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len reports the number of distinct fertilizers.
func (c *Catalog) Len() int { return len(c.fertilizers) }

// Select resolves a list of ids/aliases to fertilizers, failing on the first
// unknown id.
func (c *Catalog) Select(ids []string) ([]Fertilizer, error) {
	out := make([]Fertilizer, 0, len(ids))
	for _, id := range ids {
		f, ok := c.Get(id)
		if !ok {
			return nil, fmt.Errorf("catalog: unknown fertilizer %q", id)
		}
		out = append(out, f)
	}
	return out, nil
}

// catalogFile is the YAML document shape for user catalogs.
type catalogFile struct {
	// Replace, when true, discards the built-in catalog instead of
	// extending it.
	Replace     bool         `yaml:"replace"`
	Fertilizers []Fertilizer `yaml:"fertilizers"`
}

// LoadCatalog reads a user catalog file and merges it over the built-in
// table. User entries with an id matching a built-in entry replace it.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: reading %s: %w", path, err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("catalog: parsing %s: %w", path, err)
	}

	var merged []Fertilizer
	if !file.Replace {
		overridden := make(map[string]bool, len(file.Fertilizers))
		for _, f := range file.Fertilizers {
			overridden[strings.ToLower(f.ID)] = true
		}
		for _, f := range builtinFertilizers {
			if !overridden[strings.ToLower(f.ID)] {
				merged = append(merged, f)
			}
		}
	}
	merged = append(merged, file.Fertilizers...)
	return NewCatalog(merged)
}

// Builtin returns the built-in catalog. The data set covers the common
// water-soluble salts used in hydroponic fertigation; compositions are
// manufacturer label values.
func Builtin() *Catalog {
	c, err := NewCatalog(builtinFertilizers)
	if err != nil {
		// The built-in table is validated by tests; reaching this is a bug.
		panic(err)
	}
	return c
}

var builtinFertilizers = []Fertilizer{
	{
		ID: "calcium-nitrate", Name: "Calcium nitrate (Calcinit)",
		Pct:          map[Nutrient]float64{NutrientNNO3: 14.4, NutrientNNH4: 1.1, NutrientCa: 19.0},
		SolubilityGL: 1200, Compat: CompatCalcium,
		Aliases: []string{"calcinit", "CaNO3"},
		Dissociation: &Dissociation{MolarMass: 236.15, Ions: []IonCount{
			{Ion: IonCa, Count: 1, Charge: 2},
			{Ion: IonNO3, Count: 2, Charge: -1},
		}},
	},
	{
		ID: "potassium-nitrate", Name: "Potassium nitrate",
		Pct:          map[Nutrient]float64{NutrientNNO3: 13.7, NutrientK2O: 46.3},
		SolubilityGL: 316, Compat: CompatNeutral,
		Aliases: []string{"KNO3", "saltpeter"},
		Dissociation: &Dissociation{MolarMass: 101.10, Ions: []IonCount{
			{Ion: IonK, Count: 1, Charge: 1},
			{Ion: IonNO3, Count: 1, Charge: -1},
		}},
	},
	{
		ID: "mkp", Name: "Monopotassium phosphate (MKP)",
		Pct:          map[Nutrient]float64{NutrientP2O5: 52.0, NutrientK2O: 34.0},
		SolubilityGL: 230, Compat: CompatPhosphate,
		Aliases: []string{"KH2PO4", "monopotassium-phosphate"},
		Dissociation: &Dissociation{MolarMass: 136.09, Ions: []IonCount{
			{Ion: IonK, Count: 1, Charge: 1},
			{Ion: IonH2PO4, Count: 1, Charge: -1},
		}},
	},
	{
		ID: "map", Name: "Monoammonium phosphate (MAP)",
		Pct:          map[Nutrient]float64{NutrientNNH4: 12.0, NutrientP2O5: 61.0},
		SolubilityGL: 380, Compat: CompatPhosphate,
		Aliases: []string{"NH4H2PO4", "monoammonium-phosphate"},
		Dissociation: &Dissociation{MolarMass: 115.03, Ions: []IonCount{
			{Ion: IonNH4, Count: 1, Charge: 1},
			{Ion: IonH2PO4, Count: 1, Charge: -1},
		}},
	},
	{
		ID: "magnesium-sulfate", Name: "Magnesium sulfate (Epsom salt)",
		Pct:          map[Nutrient]float64{NutrientMg: 9.86, NutrientS: 13.0},
		SolubilityGL: 710, Compat: CompatSulfate,
		Aliases: []string{"epsom", "MgSO4"},
		Dissociation: &Dissociation{MolarMass: 246.47, Ions: []IonCount{
			{Ion: IonMg, Count: 1, Charge: 2},
			{Ion: IonSO4, Count: 1, Charge: -2},
		}},
	},
	{
		ID: "magnesium-nitrate", Name: "Magnesium nitrate",
		Pct:          map[Nutrient]float64{NutrientNNO3: 10.9, NutrientMgO: 15.7},
		SolubilityGL: 700, Compat: CompatNeutral,
		Aliases: []string{"MgNO3"},
		Dissociation: &Dissociation{MolarMass: 256.41, Ions: []IonCount{
			{Ion: IonMg, Count: 1, Charge: 2},
			{Ion: IonNO3, Count: 2, Charge: -1},
		}},
	},
	{
		ID: "potassium-sulfate", Name: "Potassium sulfate (SOP)",
		Pct:          map[Nutrient]float64{NutrientK2O: 52.0, NutrientS: 18.0},
		SolubilityGL: 111, Compat: CompatSulfate,
		Aliases: []string{"K2SO4", "sop"},
		Dissociation: &Dissociation{MolarMass: 174.26, Ions: []IonCount{
			{Ion: IonK, Count: 2, Charge: 1},
			{Ion: IonSO4, Count: 1, Charge: -2},
		}},
	},
	{
		ID: "ammonium-nitrate", Name: "Ammonium nitrate",
		Pct:          map[Nutrient]float64{NutrientNNO3: 17.0, NutrientNNH4: 17.0},
		SolubilityGL: 1900, Compat: CompatNeutral,
		Aliases: []string{"NH4NO3"},
		Dissociation: &Dissociation{MolarMass: 80.04, Ions: []IonCount{
			{Ion: IonNH4, Count: 1, Charge: 1},
			{Ion: IonNO3, Count: 1, Charge: -1},
		}},
	},
	{
		ID: "ammonium-sulfate", Name: "Ammonium sulfate",
		Pct:          map[Nutrient]float64{NutrientNNH4: 21.0, NutrientS: 24.0},
		SolubilityGL: 750, Compat: CompatSulfate,
		Aliases: []string{"(NH4)2SO4"},
		Dissociation: &Dissociation{MolarMass: 132.14, Ions: []IonCount{
			{Ion: IonNH4, Count: 2, Charge: 1},
			{Ion: IonSO4, Count: 1, Charge: -2},
		}},
	},
	{
		ID: "urea", Name: "Urea",
		Pct:          map[Nutrient]float64{NutrientNUrea: 46.0},
		SolubilityGL: 1080, Compat: CompatNeutral,
		// Urea is nonionic in solution: no dissociation entry, and no EC
		// contribution until nitrification.
	},
	{
		ID: "calcium-chloride", Name: "Calcium chloride",
		Pct:          map[Nutrient]float64{NutrientCa: 36.1, NutrientCl: 63.9},
		SolubilityGL: 745, Compat: CompatCalcium,
		Aliases: []string{"CaCl2"},
		Dissociation: &Dissociation{MolarMass: 110.98, Ions: []IonCount{
			{Ion: IonCa, Count: 1, Charge: 2},
			{Ion: IonCl, Count: 2, Charge: -1},
		}},
	},
	{
		ID: "potassium-chloride", Name: "Potassium chloride (MOP)",
		Pct:          map[Nutrient]float64{NutrientK2O: 60.0, NutrientCl: 47.0},
		SolubilityGL: 344, Compat: CompatNeutral,
		Aliases: []string{"KCl", "mop"},
		Dissociation: &Dissociation{MolarMass: 74.55, Ions: []IonCount{
			{Ion: IonK, Count: 1, Charge: 1},
			{Ion: IonCl, Count: 1, Charge: -1},
		}},
	},
	{
		ID: "potassium-silicate", Name: "Potassium silicate",
		Pct:          map[Nutrient]float64{NutrientK2O: 12.5, NutrientSiO2: 26.5},
		SolubilityGL: 400, Compat: CompatSilicate,
		Aliases: []string{"K2SiO3", "agsil"},
	},
	{
		ID: "pekacid", Name: "PeKacid 0-60-20",
		Pct:          map[Nutrient]float64{NutrientP2O5: 60.0, NutrientK2O: 20.0},
		SolubilityGL: 670, Compat: CompatPhosphate, Acid: true,
	},
	{
		ID: "iron-chelate", Name: "Iron chelate (EDTA 13%)",
		Pct:          map[Nutrient]float64{NutrientFe: 13.0},
		SolubilityGL: 140, Compat: CompatNeutral,
		Aliases: []string{"Fe-EDTA"},
	},
	{
		ID: "manganese-sulfate", Name: "Manganese sulfate",
		Pct:          map[Nutrient]float64{NutrientMn: 31.0, NutrientS: 18.0},
		SolubilityGL: 520, Compat: CompatSulfate,
		Aliases: []string{"MnSO4"},
		Dissociation: &Dissociation{MolarMass: 169.02, Ions: []IonCount{
			{Ion: IonMn, Count: 1, Charge: 2},
			{Ion: IonSO4, Count: 1, Charge: -2},
		}},
	},
	{
		ID: "zinc-sulfate", Name: "Zinc sulfate",
		Pct:          map[Nutrient]float64{NutrientZn: 22.0, NutrientS: 11.0},
		SolubilityGL: 580, Compat: CompatSulfate,
		Aliases: []string{"ZnSO4"},
		Dissociation: &Dissociation{MolarMass: 287.56, Ions: []IonCount{
			{Ion: IonZn, Count: 1, Charge: 2},
			{Ion: IonSO4, Count: 1, Charge: -2},
		}},
	},
	{
		ID: "copper-sulfate", Name: "Copper sulfate",
		Pct:          map[Nutrient]float64{NutrientCu: 25.0, NutrientS: 12.8},
		SolubilityGL: 320, Compat: CompatSulfate,
		Aliases: []string{"CuSO4"},
		Dissociation: &Dissociation{MolarMass: 249.69, Ions: []IonCount{
			{Ion: IonCu, Count: 1, Charge: 2},
			{Ion: IonSO4, Count: 1, Charge: -2},
		}},
	},
	{
		ID: "borax", Name: "Borax (sodium tetraborate)",
		Pct:          map[Nutrient]float64{NutrientB: 11.3, NutrientNa: 12.1},
		SolubilityGL: 50, Compat: CompatNeutral,
	},
	{
		ID: "sodium-molybdate", Name: "Sodium molybdate",
		Pct:          map[Nutrient]float64{NutrientMo: 39.0, NutrientNa: 18.0},
		SolubilityGL: 560, Compat: CompatNeutral,
		Aliases: []string{"Na2MoO4"},
	},
}
