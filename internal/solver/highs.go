package solver

import (
	"context"
	"fmt"
	"sync"

	highs "github.com/bartolsthoorn/gohighs/highs"
	"golang.org/x/sync/singleflight"

	"github.com/kweller/nutrisolve/internal/logging"
)

// HighsBackend solves models with the HiGHS simplex/branch-and-bound solver.
// Construction probes the native library once; a process keeps at most one
// backend instance.
type HighsBackend struct{}

// NewHighsBackend probes the HiGHS native library and returns a backend, or
// ErrBackendUnavailable when the library cannot be loaded.
func NewHighsBackend() (*HighsBackend, error) {
	probe, err := highs.NewSolver()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	probe.Close()
	return &HighsBackend{}, nil
}

// Name implements Backend.
func (b *HighsBackend) Name() string { return "highs" }

// Solve implements Backend by translating the engine model into a HiGHS
// model and extracting the primal column values.
func (b *HighsBackend) Solve(ctx context.Context, model *Model) (*Solution, error) {
	log := logging.FromContext(ctx)

	hm := highs.Model{}
	hasInteger := false
	for _, v := range model.Variables {
		hm.ColCosts = append(hm.ColCosts, v.Cost)
		hm.ColLower = append(hm.ColLower, v.Lower)
		hm.ColUpper = append(hm.ColUpper, v.Upper)
		if v.Integer {
			hasInteger = true
			hm.VarTypes = append(hm.VarTypes, highs.VarTypeInteger)
		} else {
			hm.VarTypes = append(hm.VarTypes, highs.VarTypeContinuous)
		}
	}
	if !hasInteger {
		hm.VarTypes = nil
	}
	for _, c := range model.Constraints {
		cols := make([]int, 0, len(c.Coeffs))
		vals := make([]float64, 0, len(c.Coeffs))
		for col, val := range c.Coeffs {
			cols = append(cols, col)
			vals = append(vals, val)
		}
		hm.AddSparseRow(c.Lower, cols, vals, c.Upper)
	}

	log.Debug().
		Str("component", "solver").
		Str("backend", b.Name()).
		Int("variables", len(model.Variables)).
		Int("constraints", len(model.Constraints)).
		Bool("mip", hasInteger).
		Msg("solving model")

	sol, err := hm.Solve(highs.WithOutput(false))
	if err != nil {
		return nil, fmt.Errorf("highs solve: %w", err)
	}
	if sol.Status != highs.ModelStatusOptimal {
		return nil, fmt.Errorf("%w: highs status %v", ErrNoSolution, sol.Status)
	}

	values := make([]float64, len(model.Variables))
	copy(values, sol.ColValue)
	return &Solution{Values: values, Objective: sol.Objective}, nil
}

// Shared default backend. Initialization is memoized process-wide: at most
// one instance exists and concurrent first callers share a single in-flight
// probe (singleflight).
var (
	defaultMu      sync.RWMutex
	defaultBackend Backend
	defaultErr     error
	defaultInit    bool
	initGroup      singleflight.Group
)

// Default returns the shared HiGHS backend, initializing it on first use.
// The result (backend or ErrBackendUnavailable) is cached for the process
// lifetime.
func Default(ctx context.Context) (Backend, error) {
	defaultMu.RLock()
	if defaultInit {
		b, err := defaultBackend, defaultErr
		defaultMu.RUnlock()
		return b, err
	}
	defaultMu.RUnlock()

	_, err, _ := initGroup.Do("default-backend", func() (interface{}, error) {
		backend, initErr := NewHighsBackend()
		defaultMu.Lock()
		defer defaultMu.Unlock()
		if initErr != nil {
			defaultBackend, defaultErr = nil, initErr
			logging.FromContext(ctx).Warn().
				Str("component", "solver").
				Err(initErr).
				Msg("milp backend initialization failed")
		} else {
			defaultBackend, defaultErr = backend, nil
		}
		defaultInit = true
		return nil, initErr
	})

	defaultMu.RLock()
	defer defaultMu.RUnlock()
	if err != nil {
		return nil, defaultErr
	}
	return defaultBackend, nil
}

// ResetDefault clears the memoized backend. Test hook.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultBackend, defaultErr, defaultInit = nil, nil, false
}
