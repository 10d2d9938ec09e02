package chem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateEC(t *testing.T) {
	t.Run("single salt matches hand calculation", func(t *testing.T) {
		// 10 mmol/L KNO3: raw EC = 0.001·(73.48+71.42)·10 = 1.449 mS/cm,
		// I = ½·(0.010·1 + 0.010·1) = 0.010 mol/L.
		ions := map[Ion]float64{IonK: 10, IonNO3: 10}

		res := EstimateEC(ions, DefaultECOptions())
		assert.InDelta(t, 1.449, res.RawEC, 1e-6)
		assert.InDelta(t, 0.010, res.IonicStrength, 1e-9)
		assert.InDelta(t, 1.449/1.05, res.EC, 1e-4, "corrected by 1+0.5·√0.01")
	})

	t.Run("divalent ions weigh quadratically in ionic strength", func(t *testing.T) {
		res := EstimateEC(map[Ion]float64{IonCa: 5, IonSO4: 5}, DefaultECOptions())
		// I = ½·(0.005·4 + 0.005·4) = 0.020
		assert.InDelta(t, 0.020, res.IonicStrength, 1e-9)
	})

	t.Run("raw EC is additive, corrected EC is sublinear", func(t *testing.T) {
		base := map[Ion]float64{IonK: 10, IonNO3: 10}
		double := map[Ion]float64{IonK: 20, IonNO3: 20}

		lo := EstimateEC(base, DefaultECOptions())
		hi := EstimateEC(double, DefaultECOptions())
		assert.InDelta(t, 2*lo.RawEC, hi.RawEC, 1e-9)
		assert.Greater(t, hi.EC, lo.EC)
		assert.Less(t, hi.EC, 2*lo.EC)
	})

	t.Run("correction can be disabled", func(t *testing.T) {
		opts := ECOptions{ApplyIonicStrengthCorrection: false, TemperatureC: 25}
		res := EstimateEC(map[Ion]float64{IonK: 10, IonNO3: 10}, opts)
		assert.InDelta(t, res.RawEC, res.EC, 1e-12)
	})

	t.Run("temperature coefficient", func(t *testing.T) {
		opts := DefaultECOptions()
		opts.TemperatureC = 30
		res := EstimateEC(map[Ion]float64{IonK: 10, IonNO3: 10}, opts)
		assert.InDelta(t, res.EC*1.10, res.ECAtTemp, 1e-9)
	})

	t.Run("unknown ions and nonpositive concentrations are ignored", func(t *testing.T) {
		res := EstimateEC(map[Ion]float64{IonK: 0, IonNO3: -2}, DefaultECOptions())
		assert.Zero(t, res.RawEC)
		assert.Empty(t, res.Contributions)
	})
}

func TestProfileToIons(t *testing.T) {
	t.Run("nitrate nitrogen maps by nitrogen molar mass", func(t *testing.T) {
		ions := ProfileToIons(Profile{NutrientNNO3: 140.067})
		assert.InDelta(t, 10.0, ions[IonNO3], 1e-3)
	})

	t.Run("urea nitrogen is nonionic", func(t *testing.T) {
		ions := ProfileToIons(Profile{NutrientNUrea: 460, NutrientNTotal: 460})
		assert.Empty(t, ions)
	})

	t.Run("generic total nitrogen carries no ion", func(t *testing.T) {
		ions := ProfileToIons(Profile{NutrientNTotal: 155})
		assert.Empty(t, ions)
	})
}

func TestEstimateProfileEC(t *testing.T) {
	catalog := Builtin()
	f, ok := catalog.Get("potassium-nitrate")
	require.True(t, ok)

	// 1 g/L KNO3 ≈ 0.75 mS/cm measured; the model should land in the same
	// regime.
	res := EstimateProfileEC(ContributionPerGram(f, 1), DefaultECOptions())
	assert.Greater(t, res.EC, 0.5)
	assert.Less(t, res.EC, 1.5)
}
