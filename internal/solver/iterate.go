package solver

// StepFunc performs one iteration of a bounded fixed-point loop. It returns
// done=true when the loop has converged; a non-nil error aborts the loop.
type StepFunc func(iteration int) (done bool, err error)

// IterateUntil runs step at most maxIters times, stopping early on
// convergence. It returns the number of iterations executed and whether the
// loop converged. This helper backs every bounded retry loop in the engine:
// EC rescaling, Si target adjustment, and tank-count escalation.
func IterateUntil(maxIters int, step StepFunc) (iterations int, converged bool, err error) {
	for i := 0; i < maxIters; i++ {
		done, stepErr := step(i)
		if stepErr != nil {
			return i + 1, false, stepErr
		}
		if done {
			return i + 1, true, nil
		}
	}
	return maxIters, false, nil
}
