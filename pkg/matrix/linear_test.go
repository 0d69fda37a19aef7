package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearSystemRealSolve(t *testing.T) {
	ls, err := NewLinearSystem(2, false)
	require.NoError(t, err)

	// [4 1; 1 3] x = [1, 2]
	ls.Add(0, 0, 4)
	ls.Add(0, 1, 1)
	ls.Add(1, 0, 1)
	ls.Add(1, 1, 3)
	ls.AddRHS(0, 1)
	ls.AddRHS(1, 2)

	require.NoError(t, ls.Solve())
	x := ls.Solution()
	require.Len(t, x, 2)
	assert.InDelta(t, 1.0/11.0, x[0], 1e-12)
	assert.InDelta(t, 7.0/11.0, x[1], 1e-12)
}

func TestLinearSystemAccumulates(t *testing.T) {
	ls, err := NewLinearSystem(1, false)
	require.NoError(t, err)

	ls.Add(0, 0, 1)
	ls.Add(0, 0, 1)
	ls.AddRHS(0, 3)
	ls.AddRHS(0, 3)

	require.NoError(t, ls.Solve())
	assert.InDelta(t, 3.0, ls.Solution()[0], 1e-12)
}

func TestLinearSystemComplexSolve(t *testing.T) {
	ls, err := NewLinearSystem(2, true)
	require.NoError(t, err)

	// diagonal system: (2+1i) x0 = 1, (0-3i) x1 = 3i
	ls.AddComplex(0, 0, complex(2, 1))
	ls.AddComplex(1, 1, complex(0, -3))
	ls.AddComplexRHS(0, complex(1, 0))
	ls.AddComplexRHS(1, complex(0, 3))

	require.NoError(t, ls.Solve())
	x := ls.ComplexSolution()
	require.Len(t, x, 2)

	x0 := complex(1, 0) / complex(2, 1)
	assert.InDelta(t, real(x0), real(x[0]), 1e-12)
	assert.InDelta(t, imag(x0), imag(x[0]), 1e-12)
	assert.InDelta(t, -1.0, real(x[1]), 1e-12)
	assert.InDelta(t, 0.0, imag(x[1]), 1e-12)
}

func TestLinearSystemClear(t *testing.T) {
	ls, err := NewLinearSystem(1, false)
	require.NoError(t, err)

	ls.Add(0, 0, 5)
	ls.AddRHS(0, 5)
	ls.Clear()

	ls.Add(0, 0, 2)
	ls.AddRHS(0, 4)
	require.NoError(t, ls.Solve())
	assert.InDelta(t, 2.0, ls.Solution()[0], 1e-12)
}

func TestLinearSystemBoundsPanic(t *testing.T) {
	ls, err := NewLinearSystem(2, false)
	require.NoError(t, err)

	assert.Panics(t, func() { ls.Add(2, 0, 1) })
	assert.Panics(t, func() { ls.AddRHS(-1, 1) })
}
