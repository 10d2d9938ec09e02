package chem

// ppmPerPctGram converts a label weight percent into ppm for 1 g dissolved in
// 1 L: a 1% fraction of 1 g is 10 mg, i.e. 10 mg/L.
const ppmPerPctGram = 10.0

// ContributionPerGram returns the ppm contributed by dissolving one gram of f
// in volumeL liters of water, per nutrient key.
//
// Three label conventions are normalized here:
//   - Speciated nitrogen wins: when a label declares N_NO3 and/or N_NH4 (or
//     N_Urea), a redundant N_total entry is ignored, and the speciated forms
//     are summed back into the N_total bucket. Double counting either way is
//     impossible.
//   - Oxide entries (P2O5, K2O, CaO, MgO, SO3, SiO2, SiOH4) are converted to
//     their elemental equivalent and folded into the element bucket. The
//     oxide ppm itself is kept alongside for oxide-basis display.
//   - Everything else (micronutrients, Na, Cl) passes through verbatim.
func ContributionPerGram(f Fertilizer, volumeL float64) Profile {
	if volumeL <= 0 {
		volumeL = 1
	}

	speciatedN := f.Pct[NutrientNNO3] > 0 || f.Pct[NutrientNNH4] > 0 || f.Pct[NutrientNUrea] > 0

	out := make(Profile, len(f.Pct)+4)
	for key, pct := range f.Pct {
		ppm := pct * ppmPerPctGram / volumeL

		if key == NutrientNTotal && speciatedN {
			continue
		}

		out[key] += ppm
		switch key {
		case NutrientNNO3, NutrientNNH4, NutrientNUrea:
			out[NutrientNTotal] += ppm
		default:
			if conv, ok := OxideConversions[key]; ok {
				out[conv.Element] += ppm * conv.Factor
			}
		}
	}
	return out
}

// FormulaProfile computes the full ppm profile produced by a dose vector
// (fertilizer id → grams) dissolved in volumeL liters, using catalog for
// composition lookups. Unknown ids are skipped.
func FormulaProfile(catalog *Catalog, doses map[string]float64, volumeL float64) Profile {
	total := make(Profile)
	for id, grams := range doses {
		if grams <= 0 {
			continue
		}
		f, ok := catalog.Get(id)
		if !ok {
			continue
		}
		total.Add(ContributionPerGram(f, volumeL).Scale(grams))
	}
	return total
}
