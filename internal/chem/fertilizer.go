// Package chem holds the fertilizer reference catalog and the pure chemistry
// calculations built on it: per-gram nutrient contributions, solution EC
// estimation, and ionic charge balance. Everything in this package is a pure
// function of its inputs plus fixed physical constants.
package chem

import (
	"fmt"
	"sort"
)

// Nutrient is a nutrient key as it appears on a fertilizer label. Keys cover
// speciated nitrogen forms, oxide and elemental macronutrient bases, and
// micronutrients.
type Nutrient string

// Nutrient keys recognized in fertilizer compositions.
const (
	NutrientNTotal Nutrient = "N_total"
	NutrientNNO3   Nutrient = "N_NO3"
	NutrientNNH4   Nutrient = "N_NH4"
	NutrientNUrea  Nutrient = "N_Urea"
	NutrientP      Nutrient = "P"
	NutrientP2O5   Nutrient = "P2O5"
	NutrientK      Nutrient = "K"
	NutrientK2O    Nutrient = "K2O"
	NutrientCa     Nutrient = "Ca"
	NutrientCaO    Nutrient = "CaO"
	NutrientMg     Nutrient = "Mg"
	NutrientMgO    Nutrient = "MgO"
	NutrientS      Nutrient = "S"
	NutrientSO3    Nutrient = "SO3"
	NutrientSi     Nutrient = "Si"
	NutrientSiO2   Nutrient = "SiO2"
	NutrientSiOH4  Nutrient = "SiOH4"
	NutrientB      Nutrient = "B"
	NutrientFe     Nutrient = "Fe"
	NutrientMn     Nutrient = "Mn"
	NutrientZn     Nutrient = "Zn"
	NutrientCu     Nutrient = "Cu"
	NutrientMo     Nutrient = "Mo"
	NutrientNa     Nutrient = "Na"
	NutrientCl     Nutrient = "Cl"
	NutrientCo     Nutrient = "Co"
	NutrientNi     Nutrient = "Ni"
)

// validNutrients is the closed set of accepted composition keys.
var validNutrients = map[Nutrient]bool{
	NutrientNTotal: true, NutrientNNO3: true, NutrientNNH4: true, NutrientNUrea: true,
	NutrientP: true, NutrientP2O5: true, NutrientK: true, NutrientK2O: true,
	NutrientCa: true, NutrientCaO: true, NutrientMg: true, NutrientMgO: true,
	NutrientS: true, NutrientSO3: true, NutrientSi: true, NutrientSiO2: true,
	NutrientSiOH4: true, NutrientB: true, NutrientFe: true, NutrientMn: true,
	NutrientZn: true, NutrientCu: true, NutrientMo: true, NutrientNa: true,
	NutrientCl: true, NutrientCo: true, NutrientNi: true,
}

// CompatClass tags a fertilizer by its dominant incompatibility behavior in
// concentrated stock solutions. Calcium sources precipitate with sulfate,
// phosphate and silicate sources and must never share a tank with them.
type CompatClass string

// Compatibility classes used for stock tank assignment.
const (
	CompatCalcium   CompatClass = "calcium"
	CompatPhosphate CompatClass = "phosphate"
	CompatSulfate   CompatClass = "sulfate"
	CompatSilicate  CompatClass = "silicate"
	CompatNeutral   CompatClass = "neutral"
)

// DefaultSolubilityGL is the conservative solubility assumed for catalog
// entries that do not declare one [g/L at 20 °C].
const DefaultSolubilityGL = 200.0

// IonCount is one dissociation product of a fertilizer formula unit.
type IonCount struct {
	Ion    Ion     `yaml:"ion"`
	Count  float64 `yaml:"count"`
	Charge int     `yaml:"charge"`
}

// Dissociation describes how a fertilizer dissolves: its formula-unit molar
// mass and the ions released per unit. Used by the charge-balance diagnostic.
type Dissociation struct {
	MolarMass float64    `yaml:"molar_mass"`
	Ions      []IonCount `yaml:"ions"`
}

// Fertilizer is an immutable catalog entry for one commercial salt.
type Fertilizer struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// Pct maps nutrient key to weight percent as declared on the label.
	Pct map[Nutrient]float64 `yaml:"pct"`
	// SolubilityGL is the maximum dissolvable mass per liter of water at
	// reference temperature. Zero means "unspecified": DefaultSolubilityGL
	// applies.
	SolubilityGL float64 `yaml:"solubility_g_l,omitempty"`
	// Priority is the solver preference weight; lower is preferred. Zero
	// means default (1.0).
	Priority float64 `yaml:"priority,omitempty"`
	// Compat drives stock tank assignment.
	Compat CompatClass `yaml:"compat,omitempty"`
	// Acid marks acidifying sources (e.g. monopotassium phosphate blends
	// sold as pH-down fertilizer) that the optimizer prefers up to a
	// caller-supplied dose limit.
	Acid bool `yaml:"acid,omitempty"`
	// Dissociation is optional; entries without it are skipped by the
	// charge-balance diagnostic.
	Dissociation *Dissociation `yaml:"dissociation,omitempty"`
	Aliases      []string      `yaml:"aliases,omitempty"`
}

// EffectiveSolubility returns the declared solubility or the conservative
// default when unspecified.
func (f *Fertilizer) EffectiveSolubility() float64 {
	if f.SolubilityGL > 0 {
		return f.SolubilityGL
	}
	return DefaultSolubilityGL
}

// EffectivePriority returns the solver preference weight, defaulting to 1.
func (f *Fertilizer) EffectivePriority() float64 {
	if f.Priority > 0 {
		return f.Priority
	}
	return 1.0
}

// Validate checks a catalog entry for structural problems: missing id,
// unknown nutrient keys, percentages outside (0, 100], negative solubility.
func (f *Fertilizer) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("fertilizer %q: missing id", f.Name)
	}
	if len(f.Pct) == 0 {
		return fmt.Errorf("fertilizer %s: empty composition", f.ID)
	}
	for key, pct := range f.Pct {
		if !validNutrients[key] {
			return fmt.Errorf("fertilizer %s: unknown nutrient key %q", f.ID, key)
		}
		if pct <= 0 || pct > 100 {
			return fmt.Errorf("fertilizer %s: %s percentage %.4g out of range (0, 100]", f.ID, key, pct)
		}
	}
	if f.SolubilityGL < 0 {
		return fmt.Errorf("fertilizer %s: negative solubility", f.ID)
	}
	switch f.Compat {
	case "", CompatCalcium, CompatPhosphate, CompatSulfate, CompatSilicate, CompatNeutral:
	default:
		return fmt.Errorf("fertilizer %s: unknown compatibility class %q", f.ID, f.Compat)
	}
	return nil
}

// Profile is a per-nutrient concentration vector in ppm (mg/L).
type Profile map[Nutrient]float64

// Add accumulates other into p.
func (p Profile) Add(other Profile) {
	for key, ppm := range other {
		p[key] += ppm
	}
}

// Scale multiplies every entry by factor, returning a new Profile.
func (p Profile) Scale(factor float64) Profile {
	out := make(Profile, len(p))
	for key, ppm := range p {
		out[key] = ppm * factor
	}
	return out
}

// Nutrients returns the profile's keys sorted for deterministic output.
func (p Profile) Nutrients() []Nutrient {
	keys := make([]Nutrient, 0, len(p))
	for key := range p {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
