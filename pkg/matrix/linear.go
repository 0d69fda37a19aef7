package matrix

import (
	"fmt"

	"github.com/edp1096/sparse"
)

// LinearSystem wraps the sparse LU engine for the A·x = b solves inside
// the iterative methods: the Newton-Raphson Jacobian step (real) and
// current-injection solves against Ybus (complex).
type LinearSystem struct {
	Size      int
	matrix    *sparse.Matrix
	rhs       []float64
	rhsImag   []float64
	solution  []float64
	isComplex bool
	config    *sparse.Configuration
}

func NewLinearSystem(size int, isComplex bool) (*LinearSystem, error) {
	config := &sparse.Configuration{
		Real:                    true,
		Complex:                 isComplex,
		SeparatedComplexVectors: false,
		Expandable:              true,
		Translate:               false,
		ModifiedNodal:           true,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %v", err)
	}

	vectorSize := size + 1 // 1-based indexing inside the engine
	if isComplex {
		vectorSize *= 2
	}

	return &LinearSystem{
		Size:      size,
		matrix:    mat,
		rhs:       make([]float64, vectorSize),
		rhsImag:   make([]float64, 1),
		isComplex: isComplex,
		config:    config,
	}, nil
}

// Add accumulates a real coefficient at 0-based (i, j).
func (m *LinearSystem) Add(i, j int, value float64) {
	if i < 0 || j < 0 || i >= m.Size || j >= m.Size {
		panic(fmt.Sprintf("linear system: index out of bounds (i=%d, j=%d, size=%d)", i, j, m.Size))
	}
	m.matrix.GetElement(int64(i+1), int64(j+1)).Real += value
}

// AddComplex accumulates a complex coefficient at 0-based (i, j).
func (m *LinearSystem) AddComplex(i, j int, v complex128) {
	if i < 0 || j < 0 || i >= m.Size || j >= m.Size {
		panic(fmt.Sprintf("linear system: index out of bounds (i=%d, j=%d, size=%d)", i, j, m.Size))
	}
	element := m.matrix.GetElement(int64(i+1), int64(j+1))
	element.Real += real(v)
	element.Imag += imag(v)
}

func (m *LinearSystem) AddRHS(i int, value float64) {
	if i < 0 || i >= m.Size {
		panic(fmt.Sprintf("linear system: rhs index out of bounds (i=%d, size=%d)", i, m.Size))
	}
	m.rhs[i+1] += value
}

func (m *LinearSystem) AddComplexRHS(i int, v complex128) {
	if i < 0 || i >= m.Size {
		panic(fmt.Sprintf("linear system: rhs index out of bounds (i=%d, size=%d)", i, m.Size))
	}
	m.rhs[2*(i+1)] += real(v)
	m.rhs[2*(i+1)+1] += imag(v)
}

func (m *LinearSystem) Clear() {
	m.matrix.Clear()
	for i := range m.rhs {
		m.rhs[i] = 0
	}
}

// Solve factors and solves the accumulated system.
func (m *LinearSystem) Solve() error {
	err := m.matrix.Factor()
	if err != nil {
		return fmt.Errorf("matrix factorization failed: %v", err)
	}

	if m.isComplex {
		m.solution, _, err = m.matrix.SolveComplex(m.rhs, m.rhsImag)
	} else {
		m.solution, err = m.matrix.Solve(m.rhs)
	}
	if err != nil {
		return fmt.Errorf("matrix solve failed: %v", err)
	}
	return nil
}

// Solution returns the real solution vector, 0-based.
func (m *LinearSystem) Solution() []float64 {
	x := make([]float64, m.Size)
	for i := 0; i < m.Size; i++ {
		x[i] = m.solution[i+1]
	}
	return x
}

// ComplexSolution returns the complex solution vector, 0-based.
func (m *LinearSystem) ComplexSolution() []complex128 {
	x := make([]complex128, m.Size)
	for i := 0; i < m.Size; i++ {
		x[i] = complex(m.solution[2*(i+1)], m.solution[2*(i+1)+1])
	}
	return x
}
