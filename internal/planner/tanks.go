package planner

import (
	"fmt"

	"github.com/kweller/nutrisolve/internal/chem"
	"github.com/kweller/nutrisolve/internal/optimizer"
)

// Stock concentration practicality floor: a shared stock below 10× final
// strength defeats the point of concentrates.
const minPracticalConcentration = 10.0

// solubilityHeadroom caps stock strength at 80% of the limiting
// fertilizer's solubility.
const solubilityHeadroom = 0.8

var tankLabels = []string{"A", "B", "C", "D"}

// assignTanks distributes the base formula's fertilizers over k tanks by
// compatibility class:
//
//	calcium   → A (never with sulfate/phosphate/silicate)
//	phosphate → B
//	sulfate   → C when k≥3 and the salt is potassium dominant, else B
//	silicate  → the highest tank
//	neutral   → C when k≥3 and potassium dominant, else B
//	pure Mg   → D when the Mg split is requested and k = 4
func assignTanks(catalog *chem.Catalog, formula optimizer.Formula, k int, separateMg bool) []Tank {
	tanks := make([]Tank, k)
	for i := range tanks {
		tanks[i] = Tank{
			Label:         tankLabels[i],
			Fertilizers:   make(map[string]float64),
			SolubilityUse: make(map[string]float64),
		}
	}
	highest := k - 1

	for _, id := range formula.IDs() {
		f, ok := catalog.Get(id)
		if !ok {
			continue
		}
		idx := 1 // tank B default
		switch f.Compat {
		case chem.CompatCalcium:
			idx = 0
		case chem.CompatPhosphate:
			idx = 1
		case chem.CompatSulfate:
			if k >= 3 && potassiumDominant(f) {
				idx = 2
			}
		case chem.CompatSilicate:
			idx = highest
		default:
			if separateMg && k == 4 && magnesiumDominant(f) {
				idx = 3
			} else if k >= 3 && potassiumDominant(f) {
				idx = 2
			}
		}
		tanks[idx].Fertilizers[id] = formula[id]
	}
	return tanks
}

// potassiumDominant reports whether K is the salt's largest elemental
// contribution.
func potassiumDominant(f chem.Fertilizer) bool {
	return dominantElement(f) == optimizer.ElementK
}

// magnesiumDominant reports whether Mg leads the salt's contribution.
func magnesiumDominant(f chem.Fertilizer) bool {
	return dominantElement(f) == optimizer.ElementMg
}

// elementBuckets maps tracked elements to their elemental contribution keys.
var elementBuckets = map[optimizer.Element]chem.Nutrient{
	optimizer.ElementN:  chem.NutrientNTotal,
	optimizer.ElementP:  chem.NutrientP,
	optimizer.ElementK:  chem.NutrientK,
	optimizer.ElementCa: chem.NutrientCa,
	optimizer.ElementMg: chem.NutrientMg,
	optimizer.ElementS:  chem.NutrientS,
	optimizer.ElementSi: chem.NutrientSi,
}

func dominantElement(f chem.Fertilizer) optimizer.Element {
	profile := chem.ContributionPerGram(f, 1)
	var best optimizer.Element
	bestPPM := 0.0
	for _, el := range optimizer.TrackedElements {
		if ppm := profile[elementBuckets[el]]; ppm > bestPPM {
			best, bestPPM = el, ppm
		}
	}
	return best
}

// capConcentration finds the highest safe stock strength: per fertilizer,
// 80% of solubility divided by its base dose, minimized over every tank and
// against the requested concentration. A second return of false means the
// safe strength fell under the practicality floor and this tank count is
// infeasible.
func capConcentration(catalog *chem.Catalog, tanks []Tank, requested float64) (float64, bool, []Issue) {
	var issues []Issue
	concentration := requested

	for _, tank := range tanks {
		for id, baseGL := range tank.Fertilizers {
			if baseGL <= 0 {
				continue
			}
			f, ok := catalog.Get(id)
			if !ok {
				continue
			}
			maxConc := solubilityHeadroom * f.EffectiveSolubility() / baseGL
			if maxConc < concentration {
				concentration = maxConc
			}
		}
	}

	if concentration < minPracticalConcentration {
		issues = append(issues, Issue{
			Level: LevelError,
			Code:  CodeStockTooDilute,
			Message: fmt.Sprintf("solubility limits cap the stock at %.1f×, below the %.0f× practicality floor",
				concentration, minPracticalConcentration),
			Details: map[string]interface{}{"max_concentration": concentration},
		})
		return concentration, false, issues
	}
	return concentration, true, issues
}

// fillTanks scales base doses to stock strength and records solubility
// utilization. Exceeding a limit at the chosen strength is an error; the
// capping step makes this unreachable unless the caller forces a
// concentration.
func fillTanks(catalog *chem.Catalog, tanks []Tank, concentration float64) []Issue {
	var issues []Issue
	for i := range tanks {
		for id, baseGL := range tanks[i].Fertilizers {
			stockGL := baseGL * concentration
			tanks[i].Fertilizers[id] = stockGL

			f, ok := catalog.Get(id)
			if !ok {
				continue
			}
			use := stockGL / f.EffectiveSolubility()
			tanks[i].SolubilityUse[id] = use
			if use > 1 {
				issues = append(issues, Issue{
					Level: LevelError,
					Code:  CodeSolubilityExceeded,
					Message: fmt.Sprintf("tank %s: %s needs %.1f g/L but only %.1f g/L dissolves",
						tanks[i].Label, id, stockGL, f.EffectiveSolubility()),
					Details: map[string]interface{}{"tank": tanks[i].Label, "fertilizer": id},
				})
			}
		}
	}
	return issues
}
