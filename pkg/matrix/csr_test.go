package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCOOSumsDuplicates(t *testing.T) {
	coo := NewCOO(2, 2)
	coo.Add(0, 0, 1+1i)
	coo.Add(0, 0, 2)
	coo.Add(1, 0, -1)
	m := coo.ToCSR()

	assert.Equal(t, 3+1i, m.At(0, 0))
	assert.Equal(t, -1+0i, m.At(1, 0))
	assert.Equal(t, 0+0i, m.At(1, 1))
	assert.Equal(t, 2, m.Nnz())
}

func TestCOODropsExactZeroSums(t *testing.T) {
	coo := NewCOO(1, 1)
	coo.Add(0, 0, 2+3i)
	coo.Add(0, 0, -2-3i)
	m := coo.ToCSR()
	assert.Equal(t, 0, m.Nnz())
	assert.Equal(t, 0+0i, m.At(0, 0))
}

func TestCSRMulVec(t *testing.T) {
	coo := NewCOO(2, 3)
	coo.Add(0, 0, 1)
	coo.Add(0, 2, 2i)
	coo.Add(1, 1, -1)
	m := coo.ToCSR()

	y := m.MulVec([]complex128{1, 2, 3})
	require.Len(t, y, 2)
	assert.Equal(t, 1+6i, y[0])
	assert.Equal(t, -2+0i, y[1])
}

func TestCSRTransposeMulVec(t *testing.T) {
	// device-to-bus scatter: two devices on bus 1
	coo := NewCOO(2, 3)
	coo.Add(0, 1, 1)
	coo.Add(1, 1, 1)
	c := coo.ToCSR()

	bus := c.TransposeMulVec([]complex128{3 + 1i, 4})
	assert.Equal(t, []complex128{0, 7 + 1i, 0}, bus)
}

func TestCSRTransposeMul(t *testing.T) {
	// Cf' * Yf for a single branch 0->1: yff lands at (0,0), yft at (0,1)
	cf := NewCOO(1, 2)
	cf.Add(0, 0, 1)
	yf := NewCOO(1, 2)
	yf.Add(0, 0, 5-2i)
	yf.Add(0, 1, -5+2i)

	m := cf.ToCSR().TransposeMul(yf.ToCSR())
	assert.Equal(t, 5-2i, m.At(0, 0))
	assert.Equal(t, -5+2i, m.At(0, 1))
	assert.Equal(t, 0+0i, m.At(1, 0))
}

func TestCSRAddAndDiag(t *testing.T) {
	a := NewCOO(2, 2)
	a.Add(0, 1, 1)
	sum := a.ToCSR().Add(Diag([]complex128{2, 3i}))

	assert.Equal(t, 2+0i, sum.At(0, 0))
	assert.Equal(t, 1+0i, sum.At(0, 1))
	assert.Equal(t, 3i, sum.At(1, 1))
}

func TestCSRRowSums(t *testing.T) {
	coo := NewCOO(2, 2)
	coo.Add(0, 0, 4)
	coo.Add(0, 1, -4)
	coo.Add(1, 1, 1i)
	s := coo.ToCSR().RowSums()
	assert.Equal(t, []complex128{0, 1i}, s)
}

func TestCSRSubmatrix(t *testing.T) {
	coo := NewCOO(3, 3)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			coo.Add(i, j, complex(float64(10*i+j), 0))
		}
	}
	m := coo.ToCSR()

	sub := m.Submatrix([]int{2, 0}, []int{2, 0})
	assert.Equal(t, 22+0i, sub.At(0, 0))
	assert.Equal(t, 20+0i, sub.At(0, 1))
	assert.Equal(t, 2+0i, sub.At(1, 0))

	// the submatrix is a copy, not a view
	m.Data[0] = 999
	assert.Equal(t, 22+0i, sub.At(0, 0))
}

func TestCSRDense(t *testing.T) {
	coo := NewCOO(2, 2)
	coo.Add(1, 0, 7)
	d := coo.ToCSR().Dense()
	assert.Equal(t, [][]complex128{{0, 0}, {7, 0}}, d)
}

func TestIdentity(t *testing.T) {
	m := Identity(3)
	assert.Equal(t, 3, m.Nnz())
	for i := 0; i < 3; i++ {
		assert.Equal(t, 1+0i, m.At(i, i))
	}
}
