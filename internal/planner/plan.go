// Package planner builds multi-tank concentrated stock solution plans: it
// distributes a base fertilizer recipe into chemically compatible tanks and
// finds per-target dosing volumes so several different ratio/EC targets can
// be served from one shared set of stocks. Tank count escalates 2→3→4 until
// every target is jointly feasible ("Progressive-K").
package planner

import (
	"sort"

	"github.com/kweller/nutrisolve/internal/optimizer"
)

// IssueLevel grades a feasibility finding.
type IssueLevel string

// Issue levels. Errors make the owning plan/target infeasible and drive tank
// count escalation; warnings are advisory.
const (
	LevelError   IssueLevel = "error"
	LevelWarning IssueLevel = "warning"
)

// Issue codes.
const (
	CodeSolubilityExceeded = "solubility_exceeded"
	CodeStockTooDilute     = "stock_too_dilute"
	CodeRatioMismatch      = "ratio_mismatch"
	CodeECUnachievable     = "ec_unachievable"
	CodeECOffTarget        = "ec_off_target"
	CodeDosingVolumeHigh   = "dosing_volume_high"
	CodeDosingVolumeLimit  = "dosing_volume_exceeded"
)

// Issue is one feasibility finding from plan construction or dosing.
type Issue struct {
	Level   IssueLevel             `json:"level"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func hasError(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Level == LevelError {
			return true
		}
	}
	return false
}

// TargetSpec is one independent dilution target served by the shared stocks.
type TargetSpec struct {
	// Name labels the target in output ("veg", "bloom week 3", ...).
	Name string
	// Target is the nutrient ratio or absolute profile.
	Target optimizer.Target
	// TargetEC is the wanted conductivity after dilution [mS/cm]; 0 skips
	// the EC phase for this target.
	TargetEC float64
}

// Tank is one concentrated stock container.
type Tank struct {
	// Label is "A".."D". Assignment is compatibility driven: calcium
	// sources never share a tank with sulfate/phosphate/silicate sources.
	Label string `json:"label"`
	// Fertilizers maps fertilizer id to grams per liter of stock.
	Fertilizers map[string]float64 `json:"fertilizers"`
	// SolubilityUse maps fertilizer id to the fraction of its solubility
	// limit consumed at stock strength (1.0 = at the limit).
	SolubilityUse map[string]float64 `json:"solubility_use"`
}

// FertilizerIDs returns the tank's fertilizer ids in sorted order.
func (t *Tank) FertilizerIDs() []string {
	ids := make([]string, 0, len(t.Fertilizers))
	for id := range t.Fertilizers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DosingInstruction is the per-target dilution recipe against a plan's
// tanks.
type DosingInstruction struct {
	TargetName string `json:"target"`
	// TankML maps tank label to milliliters of stock per liter of final
	// solution.
	TankML map[string]float64 `json:"tank_ml_per_l"`
	// Achieved is the resulting elemental ppm profile.
	Achieved map[optimizer.Element]float64 `json:"achieved"`
	// AchievedEC is the estimated conductivity of the final solution.
	AchievedEC float64 `json:"achieved_ec"`
	Issues     []Issue `json:"issues,omitempty"`
}

// StockPlan is a complete multi-tank plan.
type StockPlan struct {
	// ID is a ULID assigned at construction so plans can be referenced in
	// logs and output.
	ID string `json:"id"`
	// TankCount is the K that produced this plan (2..4).
	TankCount int `json:"tank_count"`
	// Concentration is the stock strength actually used (× final solution).
	Concentration float64 `json:"concentration"`
	Tanks         []Tank  `json:"tanks"`
	// BaseFormula is the optimizer recipe the tanks were built from,
	// grams per liter of final solution.
	BaseFormula optimizer.Formula `json:"base_formula"`
	// Dosing holds one instruction per requested target, in input order.
	Dosing []DosingInstruction `json:"dosing"`
	// Feasible is true when no error-level issue exists anywhere in the
	// plan.
	Feasible bool `json:"feasible"`
	// Issues are plan-level findings (tank construction, solubility).
	Issues []Issue `json:"issues,omitempty"`
}

// allIssues flattens plan and dosing issues.
func (p *StockPlan) allIssues() []Issue {
	out := append([]Issue(nil), p.Issues...)
	for _, d := range p.Dosing {
		out = append(out, d.Issues...)
	}
	return out
}
