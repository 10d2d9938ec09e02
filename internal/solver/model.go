// Package solver owns the boundary to numerical solving: an engine-level
// linear model representation, the HiGHS MILP backend that solves it, a
// projected-gradient NNLS routine for the fallback path, and a shared
// bounded fixed-point iteration helper.
package solver

import (
	"context"
	"errors"
	"math"
)

// Inf is the unbounded variable/constraint bound.
func Inf() float64 { return math.Inf(1) }

// Sentinel errors for the solving boundary.
var (
	// ErrBackendUnavailable means no MILP backend could be initialized.
	// Callers choose between failing and the NNLS fallback strategy.
	ErrBackendUnavailable = errors.New("milp backend unavailable")
	// ErrNoSolution means the backend ran but found no usable primal
	// solution (infeasible or unbounded model).
	ErrNoSolution = errors.New("no solution found")
)

// Variable is one column of the model.
type Variable struct {
	Name    string
	Lower   float64
	Upper   float64
	Cost    float64 // objective coefficient (minimize sense)
	Integer bool
}

// Constraint is one row: Lower ≤ Σ Coeffs[i]·xᵢ ≤ Upper.
type Constraint struct {
	Name   string
	Coeffs map[int]float64
	Lower  float64
	Upper  float64
}

// Model is a mixed-integer linear program in minimize sense. It is built by
// the optimizer and handed to a Backend; the model itself never solves.
type Model struct {
	Variables   []Variable
	Constraints []Constraint
}

// AddVariable appends a continuous variable and returns its column index.
func (m *Model) AddVariable(name string, lower, upper, cost float64) int {
	m.Variables = append(m.Variables, Variable{Name: name, Lower: lower, Upper: upper, Cost: cost})
	return len(m.Variables) - 1
}

// AddBinary appends a 0/1 integer variable and returns its column index.
func (m *Model) AddBinary(name string, cost float64) int {
	m.Variables = append(m.Variables, Variable{Name: name, Lower: 0, Upper: 1, Cost: cost, Integer: true})
	return len(m.Variables) - 1
}

// AddConstraint appends a two-sided row.
func (m *Model) AddConstraint(name string, coeffs map[int]float64, lower, upper float64) {
	m.Constraints = append(m.Constraints, Constraint{Name: name, Coeffs: coeffs, Lower: lower, Upper: upper})
}

// AddLe appends Σ coeffs·x ≤ rhs.
func (m *Model) AddLe(name string, coeffs map[int]float64, rhs float64) {
	m.AddConstraint(name, coeffs, math.Inf(-1), rhs)
}

// AddGe appends Σ coeffs·x ≥ rhs.
func (m *Model) AddGe(name string, coeffs map[int]float64, rhs float64) {
	m.AddConstraint(name, coeffs, rhs, math.Inf(1))
}

// AddEq appends Σ coeffs·x = rhs.
func (m *Model) AddEq(name string, coeffs map[int]float64, rhs float64) {
	m.AddConstraint(name, coeffs, rhs, rhs)
}

// Solution is a primal solution returned by a Backend.
type Solution struct {
	Values    []float64
	Objective float64
}

// Value returns the primal value of column idx, or 0 when out of range.
func (s *Solution) Value(idx int) float64 {
	if s == nil || idx < 0 || idx >= len(s.Values) {
		return 0
	}
	return s.Values[idx]
}

// Backend solves models. Implementations must be safe for concurrent use;
// each Solve call is independent and fully replaces any prior attempt.
type Backend interface {
	// Name identifies the backend in logs and results.
	Name() string
	// Solve runs the model to optimality. It returns ErrNoSolution when the
	// model is infeasible or unbounded.
	Solve(ctx context.Context, model *Model) (*Solution, error)
}
