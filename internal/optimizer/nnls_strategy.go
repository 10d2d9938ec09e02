package optimizer

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kweller/nutrisolve/internal/logging"
	"github.com/kweller/nutrisolve/internal/solver"
)

// exhaustiveLimit is the candidate-set size up to which subsets are searched
// directly instead of pruning a full NNLS solution.
const (
	exhaustiveLimit = 8
	maxSubsetSize   = 4
)

// nnlsSystem is the scaled least-squares view of one optimization: rows are
// elements with a positive target (scaled to relative error space), columns
// are candidates.
type nnlsSystem struct {
	elements []Element
	rowScale []float64
	a        *mat.Dense
	b        []float64
}

func buildSystem(candidates []candidate, target map[Element]float64) *nnlsSystem {
	sys := &nnlsSystem{}
	for _, el := range sortedElements(target) {
		if target[el] > 0 {
			sys.elements = append(sys.elements, el)
		}
	}
	rows, cols := len(sys.elements), len(candidates)
	if rows == 0 || cols == 0 {
		return sys
	}
	sys.a = mat.NewDense(rows, cols, nil)
	sys.b = make([]float64, rows)
	sys.rowScale = make([]float64, rows)
	for r, el := range sys.elements {
		scale := math.Max(target[el], 1)
		sys.rowScale[r] = scale
		sys.b[r] = target[el] / scale
		for c := range candidates {
			sys.a.Set(r, c, candidates[c].contrib[el]/scale)
		}
	}
	return sys
}

// subsetColumns builds the reduced system over the given candidate indices.
func (s *nnlsSystem) subsetColumns(cols []int) *mat.Dense {
	rows := len(s.elements)
	sub := mat.NewDense(rows, len(cols), nil)
	for r := 0; r < rows; r++ {
		for j, c := range cols {
			sub.Set(r, j, s.a.At(r, c))
		}
	}
	return sub
}

// nnlsSolution is one strategy outcome: a dose vector over the full
// candidate list plus its scaled residual.
type nnlsSolution struct {
	doses    []float64
	residual float64
	strategy string
}

// solveNNLSChain runs the ordered fallback chain: exhaustive subset search
// (small candidate sets only) → greedy NNLS with pruning → the unpruned NNLS
// solution. The first strategy to produce a solution wins; the final rung
// always produces one.
func solveNNLSChain(ctx context.Context, candidates []candidate, target map[Element]float64, tolerance float64) (Formula, string) {
	log := logging.FromContext(ctx)
	sys := buildSystem(candidates, target)
	if len(sys.elements) == 0 {
		return Formula{}, "nnls-prune"
	}

	strategies := []func() *nnlsSolution{
		func() *nnlsSolution { return subsetSearch(sys, candidates, target, tolerance) },
		func() *nnlsSolution { return greedyPrune(sys, candidates, target, tolerance) },
		func() *nnlsSolution { return fullSolve(sys) },
	}

	var solution *nnlsSolution
	for _, strategy := range strategies {
		if solution = strategy(); solution != nil {
			break
		}
	}

	formula := make(Formula, len(candidates))
	for i, c := range candidates {
		if solution.doses[i] >= doseFloor {
			formula[c.fert.ID] = solution.doses[i]
		}
	}
	log.Debug().
		Str("component", "optimizer").
		Str("strategy", solution.strategy).
		Float64("residual", solution.residual).
		Int("fertilizers", len(formula)).
		Msg("nnls strategy chain complete")
	return formula, solution.strategy
}

// subsetSearch exhaustively tries candidate subsets of size 1..4, smallest
// first, and returns the lowest-residual feasible subset of the smallest
// feasible size. Only used for small candidate sets; nil when the set is too
// large or nothing feasible exists.
func subsetSearch(sys *nnlsSystem, candidates []candidate, target map[Element]float64, tolerance float64) *nnlsSolution {
	if len(candidates) > exhaustiveLimit {
		return nil
	}

	opts := solver.DefaultNNLSOptions()
	for size := 1; size <= maxSubsetSize && size <= len(candidates); size++ {
		var best *nnlsSolution
		forEachSubset(len(candidates), size, func(cols []int) {
			sub := sys.subsetColumns(cols)
			res := solver.NNLS(sub, sys.b, opts)

			doses := make([]float64, len(candidates))
			for j, c := range cols {
				doses[c] = res.X[j]
			}
			if !WithinTolerance(target, dosesAchieved(candidates, doses), tolerance) {
				return
			}
			if best == nil || res.Residual < best.residual {
				best = &nnlsSolution{doses: doses, residual: res.Residual, strategy: "subset-search"}
			}
		})
		if best != nil {
			return best
		}
	}
	return nil
}

// greedyPrune solves the full system, then repeatedly tries dropping each
// active fertilizer and re-solving; a drop is kept when the reduced solution
// still meets every positive target within tolerance. Fewer active
// fertilizers win; ties go to the lower residual. Returns nil only when even
// the full solve misses tolerance.
func greedyPrune(sys *nnlsSystem, candidates []candidate, target map[Element]float64, tolerance float64) *nnlsSolution {
	opts := solver.DefaultNNLSOptions()
	full := solver.NNLS(sys.a, sys.b, opts)
	doses := append([]float64(nil), full.X...)
	residual := full.Residual
	if !WithinTolerance(target, dosesAchieved(candidates, doses), tolerance) {
		return nil
	}

	active := func(x []float64) []int {
		var idx []int
		for i, v := range x {
			if v >= doseFloor {
				idx = append(idx, i)
			}
		}
		return idx
	}

	for {
		improved := false
		var bestDoses []float64
		bestResidual := math.Inf(1)

		for _, drop := range active(doses) {
			cols := make([]int, 0, len(doses))
			for _, i := range active(doses) {
				if i != drop {
					cols = append(cols, i)
				}
			}
			if len(cols) == 0 {
				continue
			}
			sub := sys.subsetColumns(cols)
			res := solver.NNLS(sub, sys.b, opts)
			reduced := make([]float64, len(candidates))
			for j, c := range cols {
				reduced[c] = res.X[j]
			}
			if !WithinTolerance(target, dosesAchieved(candidates, reduced), tolerance) {
				continue
			}
			if res.Residual < bestResidual {
				bestDoses, bestResidual = reduced, res.Residual
			}
		}

		if bestDoses != nil {
			doses, residual = bestDoses, bestResidual
			improved = true
		}
		if !improved {
			break
		}
	}
	return &nnlsSolution{doses: doses, residual: residual, strategy: "nnls-prune"}
}

// fullSolve is the terminal rung: the unpruned NNLS solution over every
// candidate, returned regardless of tolerance.
func fullSolve(sys *nnlsSystem) *nnlsSolution {
	res := solver.NNLS(sys.a, sys.b, solver.DefaultNNLSOptions())
	return &nnlsSolution{doses: res.X, residual: res.Residual, strategy: "nnls-prune"}
}

// dosesAchieved maps a dense dose vector to the achieved element profile.
func dosesAchieved(candidates []candidate, doses []float64) map[Element]float64 {
	out := make(map[Element]float64)
	for i, c := range candidates {
		if doses[i] <= 0 {
			continue
		}
		for el, ppm := range c.contrib {
			out[el] += ppm * doses[i]
		}
	}
	return out
}

// forEachSubset invokes fn for every size-k subset of {0..n-1}.
func forEachSubset(n, k int, fn func(cols []int)) {
	cols := make([]int, k)
	var recurse func(start, depth int)
	recurse = func(start, depth int) {
		if depth == k {
			fn(cols)
			return
		}
		for i := start; i <= n-(k-depth); i++ {
			cols[depth] = i
			recurse(i+1, depth+1)
		}
	}
	recurse(0, 0)
}
