package matrix

import (
	"fmt"
	"sort"
)

// COO is a coordinate-format accumulator used to build sparse matrices.
// Duplicate coordinates are summed on conversion, which is exactly what
// admittance stamping needs.
type COO struct {
	nrows int
	ncols int
	rows  []int
	cols  []int
	data  []complex128
}

func NewCOO(nrows, ncols int) *COO {
	return &COO{nrows: nrows, ncols: ncols}
}

func (c *COO) Add(i, j int, v complex128) {
	if i < 0 || i >= c.nrows || j < 0 || j >= c.ncols {
		panic(fmt.Sprintf("coo: index out of bounds (i=%d, j=%d, shape=%dx%d)", i, j, c.nrows, c.ncols))
	}
	if v == 0 {
		return
	}
	c.rows = append(c.rows, i)
	c.cols = append(c.cols, j)
	c.data = append(c.data, v)
}

// ToCSR compresses the accumulated triplets, summing duplicates.
// Entries that sum to exact zero are dropped.
func (c *COO) ToCSR() *CSR {
	type key struct{ i, j int }
	sums := make(map[key]complex128, len(c.data))
	for k := range c.data {
		sums[key{c.rows[k], c.cols[k]}] += c.data[k]
	}

	perRow := make([][]int, c.nrows) // column indices per row
	vals := make(map[key]complex128, len(sums))
	for kk, v := range sums {
		if v == 0 {
			continue
		}
		perRow[kk.i] = append(perRow[kk.i], kk.j)
		vals[kk] = v
	}

	m := &CSR{
		Nrows:  c.nrows,
		Ncols:  c.ncols,
		RowPtr: make([]int, c.nrows+1),
	}
	for i := 0; i < c.nrows; i++ {
		cols := perRow[i]
		sort.Ints(cols)
		m.RowPtr[i+1] = m.RowPtr[i] + len(cols)
		for _, j := range cols {
			m.ColIdx = append(m.ColIdx, j)
			m.Data = append(m.Data, vals[key{i, j}])
		}
	}
	return m
}

// CSR is a compressed sparse row complex matrix. Row i's entries live in
// ColIdx/Data[RowPtr[i]:RowPtr[i+1]] with ascending column indices.
type CSR struct {
	Nrows  int
	Ncols  int
	RowPtr []int
	ColIdx []int
	Data   []complex128
}

// Zeros returns an empty matrix of the given shape.
func Zeros(nrows, ncols int) *CSR {
	return &CSR{Nrows: nrows, Ncols: ncols, RowPtr: make([]int, nrows+1)}
}

// Identity returns the n x n identity.
func Identity(n int) *CSR {
	coo := NewCOO(n, n)
	for i := 0; i < n; i++ {
		coo.Add(i, i, 1)
	}
	return coo.ToCSR()
}

// Diag builds a diagonal matrix from a vector.
func Diag(d []complex128) *CSR {
	coo := NewCOO(len(d), len(d))
	for i, v := range d {
		coo.Add(i, i, v)
	}
	return coo.ToCSR()
}

func (m *CSR) Nnz() int { return len(m.Data) }

// At returns the entry at (i, j), zero if not stored.
func (m *CSR) At(i, j int) complex128 {
	lo, hi := m.RowPtr[i], m.RowPtr[i+1]
	k := lo + sort.SearchInts(m.ColIdx[lo:hi], j)
	if k < hi && m.ColIdx[k] == j {
		return m.Data[k]
	}
	return 0
}

// MulVec computes m · x.
func (m *CSR) MulVec(x []complex128) []complex128 {
	if len(x) != m.Ncols {
		panic(fmt.Sprintf("csr: vector length %d does not match %d columns", len(x), m.Ncols))
	}
	y := make([]complex128, m.Nrows)
	for i := 0; i < m.Nrows; i++ {
		var s complex128
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			s += m.Data[k] * x[m.ColIdx[k]]
		}
		y[i] = s
	}
	return y
}

// TransposeMulVec computes mᵀ · x. Used to scatter per-device vectors
// through a device-to-bus connectivity matrix onto buses.
func (m *CSR) TransposeMulVec(x []complex128) []complex128 {
	if len(x) != m.Nrows {
		panic(fmt.Sprintf("csr: vector length %d does not match %d rows", len(x), m.Nrows))
	}
	y := make([]complex128, m.Ncols)
	for i := 0; i < m.Nrows; i++ {
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			y[m.ColIdx[k]] += m.Data[k] * x[i]
		}
	}
	return y
}

// TransposeMul computes mᵀ · b.
func (m *CSR) TransposeMul(b *CSR) *CSR {
	if m.Nrows != b.Nrows {
		panic(fmt.Sprintf("csr: inner dimensions %d and %d do not match", m.Nrows, b.Nrows))
	}
	coo := NewCOO(m.Ncols, b.Ncols)
	for r := 0; r < m.Nrows; r++ {
		for ka := m.RowPtr[r]; ka < m.RowPtr[r+1]; ka++ {
			i, va := m.ColIdx[ka], m.Data[ka]
			for kb := b.RowPtr[r]; kb < b.RowPtr[r+1]; kb++ {
				coo.Add(i, b.ColIdx[kb], va*b.Data[kb])
			}
		}
	}
	return coo.ToCSR()
}

// Add returns m + b.
func (m *CSR) Add(b *CSR) *CSR {
	if m.Nrows != b.Nrows || m.Ncols != b.Ncols {
		panic(fmt.Sprintf("csr: shape %dx%d does not match %dx%d", m.Nrows, m.Ncols, b.Nrows, b.Ncols))
	}
	coo := NewCOO(m.Nrows, m.Ncols)
	for i := 0; i < m.Nrows; i++ {
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			coo.Add(i, m.ColIdx[k], m.Data[k])
		}
		for k := b.RowPtr[i]; k < b.RowPtr[i+1]; k++ {
			coo.Add(i, b.ColIdx[k], b.Data[k])
		}
	}
	return coo.ToCSR()
}

// RowSums returns m · 1.
func (m *CSR) RowSums() []complex128 {
	ones := make([]complex128, m.Ncols)
	for i := range ones {
		ones[i] = 1
	}
	return m.MulVec(ones)
}

// Submatrix extracts m[rows, cols] as a new matrix. Index slices may be
// any subset in any order; the result is an independent copy.
func (m *CSR) Submatrix(rows, cols []int) *CSR {
	colMap := make(map[int]int, len(cols))
	for newJ, j := range cols {
		colMap[j] = newJ
	}
	coo := NewCOO(len(rows), len(cols))
	for newI, i := range rows {
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			if newJ, ok := colMap[m.ColIdx[k]]; ok {
				coo.Add(newI, newJ, m.Data[k])
			}
		}
	}
	return coo.ToCSR()
}

// Dense expands to a row-major dense matrix. Test and debug helper.
func (m *CSR) Dense() [][]complex128 {
	d := make([][]complex128, m.Nrows)
	for i := range d {
		d[i] = make([]complex128, m.Ncols)
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			d[i][m.ColIdx[k]] = m.Data[k]
		}
	}
	return d
}
