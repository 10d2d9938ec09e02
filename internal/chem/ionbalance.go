package chem

import "math"

// BalanceStatus classifies the charge-balance error of a dose vector.
type BalanceStatus string

// Imbalance thresholds are fixed: the balance is a coarse sanity check on
// the declared dissociation data, not a solver constraint.
const (
	BalanceOK         BalanceStatus = "balanced"   // ≤10%
	BalanceCaution    BalanceStatus = "caution"    // ≤20%
	BalanceImbalanced BalanceStatus = "imbalanced" // >20%
)

// BalanceResult reports cation/anion totals in meq/L and the relative
// imbalance between them.
type BalanceResult struct {
	TotalCations float64         `json:"total_cations_meq_l"`
	TotalAnions  float64         `json:"total_anions_meq_l"`
	ImbalancePct float64         `json:"imbalance_pct"`
	Status       BalanceStatus   `json:"status"`
	PerIon       map[Ion]float64 `json:"per_ion_meq_l"`
	// Skipped lists dosed fertilizers without dissociation data; their
	// charge contribution is unknown and excluded from the totals.
	Skipped []string `json:"skipped,omitempty"`
}

// IonBalance computes the ionic charge balance of a dose vector (fertilizer
// id → grams) dissolved in volumeL liters. For each fertilizer with declared
// dissociation stoichiometry, moles = grams/molarMass and each ion adds
// moles·count·|charge|·1000/volume meq/L to its charge-sign total.
func IonBalance(catalog *Catalog, doses map[string]float64, volumeL float64) BalanceResult {
	if volumeL <= 0 {
		volumeL = 1
	}
	res := BalanceResult{PerIon: make(map[Ion]float64)}

	for id, grams := range doses {
		if grams <= 0 {
			continue
		}
		f, ok := catalog.Get(id)
		if !ok || f.Dissociation == nil || f.Dissociation.MolarMass <= 0 {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		moles := grams / f.Dissociation.MolarMass
		for _, ic := range f.Dissociation.Ions {
			meq := moles * ic.Count * math.Abs(float64(ic.Charge)) * 1000 / volumeL
			res.PerIon[ic.Ion] += meq
			if ic.Charge > 0 {
				res.TotalCations += meq
			} else {
				res.TotalAnions += meq
			}
		}
	}

	avg := (res.TotalCations + res.TotalAnions) / 2
	if avg > 0 {
		res.ImbalancePct = math.Abs(res.TotalCations-res.TotalAnions) / avg * 100
	}
	switch {
	case res.ImbalancePct <= 10:
		res.Status = BalanceOK
	case res.ImbalancePct <= 20:
		res.Status = BalanceCaution
	default:
		res.Status = BalanceImbalanced
	}
	return res
}
