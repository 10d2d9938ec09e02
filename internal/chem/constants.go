package chem

// Physical constants used throughout the engine. All values are fixed
// reference data at 25 °C; nothing here is derived at runtime.

// Molar masses [grams per mole].
const (
	mwN  = 14.0067
	mwP  = 30.9738
	mwK  = 39.0983
	mwCa = 40.078
	mwMg = 24.305
	mwS  = 32.065
	mwSi = 28.0855
	mwNa = 22.9898
	mwCl = 35.453
	mwFe = 55.845
	mwMn = 54.938
	mwZn = 65.38
	mwCu = 63.546
	mwO  = 15.9994
	mwH  = 1.00794
)

// Stoichiometric oxide-to-element mass fractions. The P2O5 factor matches the
// agricultural convention value 0.43646 rather than the four-decimal exact
// ratio so that published fertilizer analyses round-trip.
const (
	P2O5ToP   = 0.43646
	K2OToK    = 0.83016
	CaOToCa   = 0.71469
	MgOToMg   = 0.60311
	SO3ToS    = 0.40050
	SiO2ToSi  = 0.46744
	SiOH4ToSi = mwSi / (mwSi + 4*mwO + 4*mwH) // H4SiO4
)

// OxideConversions maps an oxide nutrient key to its elemental key and the
// mass fraction applied when folding the oxide percentage into the element.
var OxideConversions = map[Nutrient]struct {
	Element Nutrient
	Factor  float64
}{
	NutrientP2O5:  {NutrientP, P2O5ToP},
	NutrientK2O:   {NutrientK, K2OToK},
	NutrientCaO:   {NutrientCa, CaOToCa},
	NutrientMgO:   {NutrientMg, MgOToMg},
	NutrientSO3:   {NutrientS, SO3ToS},
	NutrientSiO2:  {NutrientSi, SiO2ToSi},
	NutrientSiOH4: {NutrientSi, SiOH4ToSi},
}

// Ion identifies a dissolved ionic species.
type Ion string

// Ions tracked by the EC and charge-balance models.
const (
	IonNO3   Ion = "NO3-"
	IonNH4   Ion = "NH4+"
	IonH2PO4 Ion = "H2PO4-"
	IonK     Ion = "K+"
	IonCa    Ion = "Ca2+"
	IonMg    Ion = "Mg2+"
	IonSO4   Ion = "SO4-2"
	IonNa    Ion = "Na+"
	IonCl    Ion = "Cl-"
	IonFe    Ion = "Fe2+"
	IonMn    Ion = "Mn2+"
	IonZn    Ion = "Zn2+"
	IonCu    Ion = "Cu2+"
)

// IonicMolarConductivity holds limiting molar conductivities at infinite
// dilution, 25 °C [S·cm²/mol]. Divalent ions carry the full per-mole value
// (2× the equivalent conductivity).
var IonicMolarConductivity = map[Ion]float64{
	IonNO3:   71.42,
	IonNH4:   73.5,
	IonH2PO4: 33.0,
	IonK:     73.48,
	IonCa:    119.0,
	IonMg:    106.0,
	IonSO4:   160.0,
	IonNa:    50.08,
	IonCl:    76.31,
	IonFe:    108.0,
	IonMn:    107.0,
	IonZn:    105.6,
	IonCu:    107.2,
}

// IonCharges maps each tracked ion to its signed charge number.
var IonCharges = map[Ion]int{
	IonNO3:   -1,
	IonNH4:   1,
	IonH2PO4: -1,
	IonK:     1,
	IonCa:    2,
	IonMg:    2,
	IonSO4:   -2,
	IonNa:    1,
	IonCl:    -1,
	IonFe:    2,
	IonMn:    2,
	IonZn:    2,
	IonCu:    2,
}

// ionSources maps a ppm nutrient key (elemental basis) to the ion it is
// carried by in solution and the molar mass used for the ppm→mmol/L
// conversion. The mapping is predictive, not a charge-balanced speciation:
// e.g. all dissolved P is treated as H2PO4- regardless of pH.
var ionSources = map[Nutrient]struct {
	Ion       Ion
	MolarMass float64
}{
	NutrientNNO3: {IonNO3, mwN},
	NutrientNNH4: {IonNH4, mwN},
	NutrientP:    {IonH2PO4, mwP},
	NutrientK:    {IonK, mwK},
	NutrientCa:   {IonCa, mwCa},
	NutrientMg:   {IonMg, mwMg},
	NutrientS:    {IonSO4, mwS},
	NutrientNa:   {IonNa, mwNa},
	NutrientCl:   {IonCl, mwCl},
	NutrientFe:   {IonFe, mwFe},
	NutrientMn:   {IonMn, mwMn},
	NutrientZn:   {IonZn, mwZn},
	NutrientCu:   {IonCu, mwCu},
}
