package chem

import "math"

// DefaultIonicStrengthK is the empirical damping constant in the
// EC = raw/(1+k·√I) correction. The value is an empirical fit, kept
// configurable rather than derived.
const DefaultIonicStrengthK = 0.5

// ECOptions tunes the conductivity model.
type ECOptions struct {
	// ApplyIonicStrengthCorrection dampens the infinite-dilution estimate at
	// realistic concentrations. On by default via DefaultECOptions.
	ApplyIonicStrengthCorrection bool
	// IonicStrengthK is the damping constant k (default 0.5).
	IonicStrengthK float64
	// TemperatureC adjusts conductivity by ~+2%/°C away from 25 °C.
	TemperatureC float64
}

// DefaultECOptions returns the standard model settings: correction on,
// k = 0.5, 25 °C.
func DefaultECOptions() ECOptions {
	return ECOptions{
		ApplyIonicStrengthCorrection: true,
		IonicStrengthK:               DefaultIonicStrengthK,
		TemperatureC:                 25,
	}
}

// ECResult carries the estimated conductivity and its intermediates.
type ECResult struct {
	// EC is the corrected conductivity at 25 °C [mS/cm].
	EC float64 `json:"ec"`
	// ECAtTemp is EC adjusted to TemperatureC [mS/cm].
	ECAtTemp float64 `json:"ec_at_temp"`
	// RawEC is the uncorrected infinite-dilution sum [mS/cm].
	RawEC float64 `json:"raw_ec"`
	// IonicStrength is I = ½·Σ(cᵢ·zᵢ²) [mol/L].
	IonicStrength float64 `json:"ionic_strength"`
	// Contributions is each ion's share of RawEC [mS/cm].
	Contributions map[Ion]float64 `json:"contributions"`
}

// EstimateEC predicts solution conductivity from ionic concentrations
// [mmol/L] using a sum-of-limiting-conductivities model with an ionic
// strength damping term and a linear temperature coefficient.
//
// This is a predictive model, not a measurement: the ppm→ion mapping feeding
// it does not enforce charge balance.
func EstimateEC(ionsMmolL map[Ion]float64, opts ECOptions) ECResult {
	res := ECResult{Contributions: make(map[Ion]float64, len(ionsMmolL))}

	for ion, mmol := range ionsMmolL {
		if mmol <= 0 {
			continue
		}
		lambda, ok := IonicMolarConductivity[ion]
		if !ok {
			continue
		}
		// λ [S·cm²/mol] · c [mmol/L] · 1e-3 → mS/cm
		contrib := 0.001 * lambda * mmol
		res.Contributions[ion] = contrib
		res.RawEC += contrib

		z := float64(IonCharges[ion])
		res.IonicStrength += 0.5 * (mmol / 1000) * z * z
	}

	res.EC = res.RawEC
	if opts.ApplyIonicStrengthCorrection {
		k := opts.IonicStrengthK
		if k <= 0 {
			k = DefaultIonicStrengthK
		}
		res.EC = res.RawEC / (1 + k*math.Sqrt(res.IonicStrength))
	}

	tempC := opts.TemperatureC
	if tempC == 0 {
		tempC = 25
	}
	res.ECAtTemp = res.EC * (1 + 0.02*(tempC-25))
	return res
}

// ProfileToIons maps a ppm nutrient profile to ionic concentrations
// [mmol/L]. Only nutrients with a tracked carrier ion contribute; generic
// N_total is ignored in favor of the speciated forms, and urea nitrogen is
// nonionic so it carries no conductivity.
func ProfileToIons(profile Profile) map[Ion]float64 {
	ions := make(map[Ion]float64)
	for nutrient, ppm := range profile {
		if ppm <= 0 {
			continue
		}
		src, ok := ionSources[nutrient]
		if !ok {
			continue
		}
		ions[src.Ion] += ppm / src.MolarMass
	}
	return ions
}

// EstimateProfileEC is the common composition of ProfileToIons and
// EstimateEC.
func EstimateProfileEC(profile Profile, opts ECOptions) ECResult {
	return EstimateEC(ProfileToIons(profile), opts)
}
