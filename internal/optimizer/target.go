// Package optimizer implements the fertilizer formula solver: given a
// nutrient target and a candidate set it finds a minimal-count dose
// combination, via a MILP model when a backend is available and a
// NNLS-with-pruning strategy chain otherwise, then converges the result onto
// an optional EC or absolute-Si target.
package optimizer

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kweller/nutrisolve/internal/chem"
)

// Element is one of the macro nutrients the optimizer tracks.
type Element string

// Tracked elements.
const (
	ElementN  Element = "N"
	ElementP  Element = "P"
	ElementK  Element = "K"
	ElementCa Element = "Ca"
	ElementMg Element = "Mg"
	ElementS  Element = "S"
	ElementSi Element = "Si"
)

// TrackedElements lists the solver's nutrient dimensions in display order.
var TrackedElements = []Element{ElementN, ElementP, ElementK, ElementCa, ElementMg, ElementS, ElementSi}

// elementNutrient maps tracked elements onto the elemental contribution
// buckets produced by chem.ContributionPerGram.
var elementNutrient = map[Element]chem.Nutrient{
	ElementN:  chem.NutrientNTotal,
	ElementP:  chem.NutrientP,
	ElementK:  chem.NutrientK,
	ElementCa: chem.NutrientCa,
	ElementMg: chem.NutrientMg,
	ElementS:  chem.NutrientS,
	ElementSi: chem.NutrientSi,
}

// Basis selects how caller-supplied P and K figures are interpreted.
type Basis int

// Bases.
const (
	// BasisElemental reads P and K as elemental ppm.
	BasisElemental Basis = iota
	// BasisOxide reads P as P2O5 and K as K2O (agricultural convention).
	BasisOxide
)

// String implements fmt.Stringer.
func (b Basis) String() string {
	if b == BasisOxide {
		return "oxide"
	}
	return "elemental"
}

// ParseBasis converts a flag value to a Basis.
func ParseBasis(s string) (Basis, error) {
	switch s {
	case "", "elemental":
		return BasisElemental, nil
	case "oxide":
		return BasisOxide, nil
	default:
		return BasisElemental, fmt.Errorf("unknown basis %q (want elemental or oxide)", s)
	}
}

// ErrEmptyTarget is returned when a target has no positive component.
var ErrEmptyTarget = errors.New("target has no positive nutrient component")

// Target is the tagged target specification: exactly RatioTarget or
// AbsoluteTarget. Resolve converts it to absolute elemental ppm once at the
// optimizer boundary; downstream code never branches on target kind again.
type Target interface {
	// Resolve returns absolute per-element ppm targets on the elemental
	// basis, plus whether Si was given as an absolute (never
	// ratio-normalized) target.
	Resolve(basis Basis) (map[Element]float64, bool, error)
}

// RatioTarget is a dimensionless nutrient ratio over N:P:K:Ca:Mg:S. It is
// normalized to its minimum non-zero component and scaled so that component
// reaches ConcentrationBasis ppm. Si, when wanted, is always an absolute ppm
// ask and sits outside the ratio.
type RatioTarget struct {
	Ratio map[Element]float64
	// ConcentrationBasis is the ppm assigned to the smallest non-zero ratio
	// component.
	ConcentrationBasis float64
	// SiPPM is an optional absolute silicon target.
	SiPPM float64
}

// Resolve implements Target.
func (t RatioTarget) Resolve(basis Basis) (map[Element]float64, bool, error) {
	minRatio := 0.0
	for el, v := range t.Ratio {
		if el == ElementSi {
			return nil, false, errors.New("silicon cannot be a ratio component; use the absolute Si target")
		}
		if v < 0 {
			return nil, false, fmt.Errorf("negative ratio component %s", el)
		}
		if v > 0 && (minRatio == 0 || v < minRatio) {
			minRatio = v
		}
	}
	if minRatio == 0 {
		return nil, false, ErrEmptyTarget
	}
	scale := t.ConcentrationBasis
	if scale <= 0 {
		scale = 100
	}

	out := make(map[Element]float64, len(t.Ratio)+1)
	for el, v := range t.Ratio {
		if v > 0 {
			out[el] = v / minRatio * scale
		}
	}
	applyBasis(out, basis)
	if t.SiPPM > 0 {
		out[ElementSi] = t.SiPPM
	}
	return out, t.SiPPM > 0, nil
}

// AbsoluteTarget is a per-element ppm profile.
type AbsoluteTarget struct {
	PPM map[Element]float64
}

// Resolve implements Target.
func (t AbsoluteTarget) Resolve(basis Basis) (map[Element]float64, bool, error) {
	out := make(map[Element]float64, len(t.PPM))
	positive := false
	for el, v := range t.PPM {
		if v < 0 {
			return nil, false, fmt.Errorf("negative target for %s", el)
		}
		if v > 0 {
			out[el] = v
			positive = true
		}
	}
	if !positive {
		return nil, false, ErrEmptyTarget
	}
	applyBasis(out, basis)
	return out, out[ElementSi] > 0, nil
}

// applyBasis folds oxide-basis P/K figures down to elemental ppm in place.
func applyBasis(target map[Element]float64, basis Basis) {
	if basis != BasisOxide {
		return
	}
	if v, ok := target[ElementP]; ok {
		target[ElementP] = v * chem.P2O5ToP
	}
	if v, ok := target[ElementK]; ok {
		target[ElementK] = v * chem.K2OToK
	}
}

// sortedElements returns target keys in TrackedElements order for
// deterministic model construction and output.
func sortedElements(target map[Element]float64) []Element {
	order := make(map[Element]int, len(TrackedElements))
	for i, el := range TrackedElements {
		order[el] = i
	}
	keys := make([]Element, 0, len(target))
	for el := range target {
		keys = append(keys, el)
	}
	sort.Slice(keys, func(i, j int) bool { return order[keys[i]] < order[keys[j]] })
	return keys
}
