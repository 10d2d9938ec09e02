package optimizer

import "sort"

// doseFloor is the mass below which a formula entry is treated as absent.
const doseFloor = 1e-4

// Formula maps fertilizer id to grams per liter of final solution.
type Formula map[string]float64

// IDs returns the formula's fertilizer ids sorted for deterministic output.
func (f Formula) IDs() []string {
	ids := make([]string, 0, len(f))
	for id := range f {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Scale multiplies every dose by factor, returning a new Formula. Entries
// falling below the dose floor are dropped.
func (f Formula) Scale(factor float64) Formula {
	out := make(Formula, len(f))
	for id, grams := range f {
		if scaled := grams * factor; scaled >= doseFloor {
			out[id] = scaled
		}
	}
	return out
}

// clean drops sub-floor entries in place and returns f.
func (f Formula) clean() Formula {
	for id, grams := range f {
		if grams < doseFloor {
			delete(f, id)
		}
	}
	return f
}

// Result is a completed optimization.
type Result struct {
	// Formula is the dose vector, grams per liter of final solution.
	Formula Formula `json:"formula"`
	// Achieved is the full ppm profile produced by Formula, recomputed from
	// the contribution calculator (never the solver's own bookkeeping).
	Achieved map[Element]float64 `json:"achieved"`
	// EC is the estimated conductivity of the achieved solution [mS/cm],
	// 0 when no EC was requested.
	EC float64 `json:"ec,omitempty"`
	// Strategy names the solving path taken: "milp", "subset-search" or
	// "nnls-prune".
	Strategy string `json:"strategy"`
	// ECIterations counts EC convergence loop rounds.
	ECIterations int `json:"ec_iterations,omitempty"`
	// SiIterations counts outer Si adjustment rounds.
	SiIterations int `json:"si_iterations,omitempty"`
}
