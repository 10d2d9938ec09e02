package solver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIterateUntil(t *testing.T) {
	t.Run("stops on convergence", func(t *testing.T) {
		iters, converged, err := IterateUntil(10, func(i int) (bool, error) {
			return i == 2, nil
		})
		require.NoError(t, err)
		assert.True(t, converged)
		assert.Equal(t, 3, iters)
	})

	t.Run("exhausts the budget without convergence", func(t *testing.T) {
		iters, converged, err := IterateUntil(5, func(int) (bool, error) {
			return false, nil
		})
		require.NoError(t, err)
		assert.False(t, converged)
		assert.Equal(t, 5, iters)
	})

	t.Run("error aborts immediately", func(t *testing.T) {
		boom := errors.New("boom")
		iters, converged, err := IterateUntil(10, func(i int) (bool, error) {
			if i == 1 {
				return false, boom
			}
			return false, nil
		})
		require.ErrorIs(t, err, boom)
		assert.False(t, converged)
		assert.Equal(t, 2, iters)
	})

	t.Run("zero budget runs nothing", func(t *testing.T) {
		iters, converged, err := IterateUntil(0, func(int) (bool, error) {
			t.Fatal("step must not run")
			return false, nil
		})
		require.NoError(t, err)
		assert.False(t, converged)
		assert.Zero(t, iters)
	})
}
