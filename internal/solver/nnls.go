package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// NNLS default parameters. The learning-rate schedule keeps its published
// 2:1:0.5 decay shape; the absolute step size is normalized by the spectral
// radius of AᵀA so the fixed schedule is scale-free across problems.
const (
	nnlsDefaultIterations = 1500
	nnlsDefaultL2         = 1e-4
	nnlsBaseLR            = 0.0006
	nnlsMidLR             = 0.0003  // from 50% of iterations
	nnlsLateLR            = 0.00015 // from 80% of iterations
)

// NNLSOptions tunes the projected-gradient solve.
type NNLSOptions struct {
	MaxIterations int
	// L2 regularization on x discourages spurious mass.
	L2 float64
}

// DefaultNNLSOptions returns the fixed production schedule.
func DefaultNNLSOptions() NNLSOptions {
	return NNLSOptions{MaxIterations: nnlsDefaultIterations, L2: nnlsDefaultL2}
}

// NNLSResult is the best iterate found and its residual.
type NNLSResult struct {
	X        []float64
	Residual float64 // ‖Ax−b‖ in the scaled system
}

// NNLS solves min ‖Ax−b‖² + λ‖x‖² subject to x ≥ 0 by projected gradient
// descent with a three-phase decaying learning rate. Descent is not
// guaranteed monotone, so the best iterate seen is tracked and returned
// rather than the final one. Numerical non-convergence is absorbed here:
// the caller always receives the best point found.
func NNLS(a *mat.Dense, b []float64, opts NNLSOptions) NNLSResult {
	rows, cols := a.Dims()
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = nnlsDefaultIterations
	}
	if opts.L2 <= 0 {
		opts.L2 = nnlsDefaultL2
	}

	x := make([]float64, cols)
	if rows == 0 || cols == 0 {
		return NNLSResult{X: x}
	}

	bVec := mat.NewVecDense(rows, append([]float64(nil), b...))

	// Spectral radius of AᵀA via power iteration; bounds the stable step.
	lipschitz := powerIterATA(a, 50)
	if lipschitz <= 0 {
		lipschitz = 1
	}
	stepScale := 1 / (2*lipschitz + opts.L2)

	xVec := mat.NewVecDense(cols, x)
	resid := mat.NewVecDense(rows, nil)
	grad := mat.NewVecDense(cols, nil)

	best := NNLSResult{X: append([]float64(nil), x...), Residual: math.Inf(1)}

	for iter := 0; iter < opts.MaxIterations; iter++ {
		lr := nnlsBaseLR
		switch {
		case iter >= opts.MaxIterations*8/10:
			lr = nnlsLateLR
		case iter >= opts.MaxIterations/2:
			lr = nnlsMidLR
		}
		step := lr / nnlsBaseLR * stepScale

		// resid = Ax − b
		resid.MulVec(a, xVec)
		resid.SubVec(resid, bVec)

		norm := mat.Norm(resid, 2)
		if norm < best.Residual {
			best.Residual = norm
			copy(best.X, xVec.RawVector().Data)
		}

		// grad = 2Aᵀ·resid + 2λx
		grad.MulVec(a.T(), resid)
		for i := 0; i < cols; i++ {
			g := 2*grad.AtVec(i) + 2*opts.L2*xVec.AtVec(i)
			v := xVec.AtVec(i) - step*g
			if v < 0 {
				v = 0
			}
			xVec.SetVec(i, v)
		}
	}

	resid.MulVec(a, xVec)
	resid.SubVec(resid, bVec)
	if norm := mat.Norm(resid, 2); norm < best.Residual {
		best.Residual = norm
		copy(best.X, xVec.RawVector().Data)
	}
	return best
}

// powerIterATA estimates the largest eigenvalue of AᵀA.
func powerIterATA(a *mat.Dense, iters int) float64 {
	_, cols := a.Dims()
	v := make([]float64, cols)
	for i := range v {
		v[i] = 1
	}
	vec := mat.NewVecDense(cols, v)
	tmpRows := mat.NewVecDense(a.RawMatrix().Rows, nil)
	next := mat.NewVecDense(cols, nil)

	var eig float64
	for i := 0; i < iters; i++ {
		tmpRows.MulVec(a, vec)
		next.MulVec(a.T(), tmpRows)
		eig = mat.Norm(next, 2)
		if eig == 0 {
			return 0
		}
		next.ScaleVec(1/eig, next)
		vec.CopyVec(next)
	}
	return eig
}
