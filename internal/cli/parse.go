package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kweller/nutrisolve/internal/chem"
	"github.com/kweller/nutrisolve/internal/optimizer"
	"github.com/kweller/nutrisolve/internal/planner"
)

// parseElementMap parses "N=3,P=1,K=2" into an element map.
func parseElementMap(s string) (map[optimizer.Element]float64, error) {
	out := make(map[optimizer.Element]float64)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, val, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("malformed entry %q (want ELEMENT=VALUE)", pair)
		}
		el := optimizer.Element(strings.TrimSpace(key))
		if !validElement(el) {
			return nil, fmt.Errorf("unknown element %q (want one of N, P, K, Ca, Mg, S, Si)", key)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("bad value for %s: %w", key, err)
		}
		out[el] = f
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty nutrient specification %q", s)
	}
	return out, nil
}

func validElement(el optimizer.Element) bool {
	for _, known := range optimizer.TrackedElements {
		if el == known {
			return true
		}
	}
	return false
}

// parseNutrientMap parses "N_NO3=100,K=200" into a ppm profile using raw
// catalog nutrient keys (for the ec command, which needs speciated N).
func parseNutrientMap(s string) (chem.Profile, error) {
	out := make(chem.Profile)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, val, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("malformed entry %q (want NUTRIENT=PPM)", pair)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("bad value for %s: %w", key, err)
		}
		out[chem.Nutrient(strings.TrimSpace(key))] = f
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty profile %q", s)
	}
	return out, nil
}

// ratioOrder is the positional element order in plan target flags.
var ratioOrder = []optimizer.Element{
	optimizer.ElementN, optimizer.ElementP, optimizer.ElementK,
	optimizer.ElementCa, optimizer.ElementMg, optimizer.ElementS,
}

// parseTargetSpec parses one --target flag of the form
// "name=N:P:K:Ca:Mg[:S][@EC]", e.g. "veg=3:1:2:2:0.5@1.6".
func parseTargetSpec(s string, concentrationBasis float64) (planner.TargetSpec, error) {
	name, rest, found := strings.Cut(s, "=")
	if !found || name == "" {
		return planner.TargetSpec{}, fmt.Errorf("malformed target %q (want name=N:P:K:Ca:Mg[@EC])", s)
	}

	var targetEC float64
	if ratioPart, ecPart, hasEC := strings.Cut(rest, "@"); hasEC {
		rest = ratioPart
		ec, err := strconv.ParseFloat(strings.TrimSpace(ecPart), 64)
		if err != nil {
			return planner.TargetSpec{}, fmt.Errorf("target %s: bad EC: %w", name, err)
		}
		targetEC = ec
	}

	parts := strings.Split(rest, ":")
	if len(parts) < 2 || len(parts) > len(ratioOrder) {
		return planner.TargetSpec{}, fmt.Errorf("target %s: want 2..%d ratio components, got %d", name, len(ratioOrder), len(parts))
	}
	ratio := make(map[optimizer.Element]float64, len(parts))
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return planner.TargetSpec{}, fmt.Errorf("target %s: bad %s component: %w", name, ratioOrder[i], err)
		}
		if f > 0 {
			ratio[ratioOrder[i]] = f
		}
	}

	return planner.TargetSpec{
		Name:     name,
		Target:   optimizer.RatioTarget{Ratio: ratio, ConcentrationBasis: concentrationBasis},
		TargetEC: targetEC,
	}, nil
}
