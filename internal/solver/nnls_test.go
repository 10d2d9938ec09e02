package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNNLS(t *testing.T) {
	t.Run("identity system recovers b", func(t *testing.T) {
		a := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
		res := NNLS(a, []float64{3, 5}, DefaultNNLSOptions())

		assert.InDelta(t, 3, res.X[0], 0.05)
		assert.InDelta(t, 5, res.X[1], 0.05)
		assert.Less(t, res.Residual, 0.1)
	})

	t.Run("negative component clamps to zero", func(t *testing.T) {
		a := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
		res := NNLS(a, []float64{4, -3}, DefaultNNLSOptions())

		assert.InDelta(t, 4, res.X[0], 0.05)
		assert.InDelta(t, 0, res.X[1], 1e-9)
	})

	t.Run("coupled system", func(t *testing.T) {
		// x0 + x1 = 5, x1 = 2 → x = (3, 2)
		a := mat.NewDense(2, 2, []float64{1, 1, 0, 1})
		res := NNLS(a, []float64{5, 2}, DefaultNNLSOptions())

		assert.InDelta(t, 3, res.X[0], 0.05)
		assert.InDelta(t, 2, res.X[1], 0.05)
	})

	t.Run("step size is scale-free", func(t *testing.T) {
		// Same geometry three orders of magnitude apart must converge
		// identically thanks to spectral normalization.
		a := mat.NewDense(2, 2, []float64{1000, 0, 0, 1000})
		res := NNLS(a, []float64{3000, 5000}, DefaultNNLSOptions())

		assert.InDelta(t, 3, res.X[0], 0.05)
		assert.InDelta(t, 5, res.X[1], 0.05)
	})

	t.Run("overdetermined system finds least squares point", func(t *testing.T) {
		// Rows: x = 1, x = 3 → least squares x = 2.
		a := mat.NewDense(2, 1, []float64{1, 1})
		res := NNLS(a, []float64{1, 3}, DefaultNNLSOptions())

		assert.InDelta(t, 2, res.X[0], 0.05)
	})

	t.Run("empty system", func(t *testing.T) {
		a := mat.NewDense(1, 1, []float64{0})
		res := NNLS(a, []float64{0}, DefaultNNLSOptions())
		assert.Len(t, res.X, 1)
	})
}

func TestPowerIterATA(t *testing.T) {
	// For diag(3, 1), the largest eigenvalue of AᵀA is 9.
	a := mat.NewDense(2, 2, []float64{3, 0, 0, 1})
	assert.InDelta(t, 9, powerIterATA(a, 50), 1e-6)
}
