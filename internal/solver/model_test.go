package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelBuilding(t *testing.T) {
	t.Run("variables get sequential column indexes", func(t *testing.T) {
		var m Model
		x := m.AddVariable("x", 0, 10, 1.5)
		y := m.AddBinary("y", 0)

		assert.Equal(t, 0, x)
		assert.Equal(t, 1, y)
		require.Len(t, m.Variables, 2)
		assert.False(t, m.Variables[x].Integer)
		assert.True(t, m.Variables[y].Integer)
		assert.InDelta(t, 1, m.Variables[y].Upper, 1e-12)
	})

	t.Run("one-sided rows carry infinite bounds", func(t *testing.T) {
		var m Model
		x := m.AddVariable("x", 0, Inf(), 0)

		m.AddLe("cap", map[int]float64{x: 1}, 5)
		m.AddGe("floor", map[int]float64{x: 1}, 1)
		m.AddEq("pin", map[int]float64{x: 1}, 3)
		require.Len(t, m.Constraints, 3)

		assert.True(t, math.IsInf(m.Constraints[0].Lower, -1))
		assert.InDelta(t, 5, m.Constraints[0].Upper, 1e-12)
		assert.InDelta(t, 1, m.Constraints[1].Lower, 1e-12)
		assert.True(t, math.IsInf(m.Constraints[1].Upper, 1))
		assert.InDelta(t, 3, m.Constraints[2].Lower, 1e-12)
		assert.InDelta(t, 3, m.Constraints[2].Upper, 1e-12)
	})
}

func TestSolutionValue(t *testing.T) {
	sol := &Solution{Values: []float64{1.5, 2.5}}

	assert.InDelta(t, 1.5, sol.Value(0), 1e-12)
	assert.InDelta(t, 2.5, sol.Value(1), 1e-12)
	assert.Zero(t, sol.Value(2), "out of range reads as zero")
	assert.Zero(t, sol.Value(-1))

	var nilSol *Solution
	assert.Zero(t, nilSol.Value(0))
}
