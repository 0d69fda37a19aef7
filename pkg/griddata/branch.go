package griddata

import (
	"fmt"

	"github.com/edp1096/toy-powerflow/pkg/matrix"
)

type BranchKind int

const (
	Line BranchKind = iota
	Transformer
	SwitchBranch
)

// BranchData holds the branch-like devices (lines, transformers and
// switches) in one unified array set. Transformers use TapModule and
// TapAngle; lines keep them at 1 and 0.
type BranchData struct {
	Nbr   int
	Nbus  int
	Ntime int

	Names  []string
	Kinds  []BranchKind
	F      []int // from-bus index
	T      []int // to-bus index
	Active [][]bool

	R []float64 // series resistance (p.u.)
	X []float64 // series reactance (p.u.)
	G []float64 // shunt conductance (p.u.)
	B []float64 // total shunt susceptance (p.u.)

	TapModule []float64
	TapAngle  []float64 // radians

	Rates [][]float64 // thermal rating (MVA)

	// Cf/Ct hold the full from/to incidence. Active state masks the
	// admittance, not the incidence structure.
	Cf *matrix.CSR
	Ct *matrix.CSR
}

func NewBranchData(nbr, nbus, ntime int) *BranchData {
	b := &BranchData{
		Nbr:       nbr,
		Nbus:      nbus,
		Ntime:     ntime,
		Names:     make([]string, nbr),
		Kinds:     make([]BranchKind, nbr),
		F:         make([]int, nbr),
		T:         make([]int, nbr),
		Active:    boolProfile(nbr, ntime, true),
		R:         make([]float64, nbr),
		X:         make([]float64, nbr),
		G:         make([]float64, nbr),
		B:         make([]float64, nbr),
		TapModule: make([]float64, nbr),
		TapAngle:  make([]float64, nbr),
		Rates:     floatProfile(nbr, ntime),
	}
	for i := range b.TapModule {
		b.TapModule[i] = 1.0
	}
	return b
}

func (b *BranchData) Check() error {
	for k := 0; k < b.Nbr; k++ {
		if b.F[k] < 0 || b.F[k] >= b.Nbus {
			return fmt.Errorf("branch %s: from-bus index %d out of range [0, %d)", b.Names[k], b.F[k], b.Nbus)
		}
		if b.T[k] < 0 || b.T[k] >= b.Nbus {
			return fmt.Errorf("branch %s: to-bus index %d out of range [0, %d)", b.Names[k], b.T[k], b.Nbus)
		}
		if b.R[k] < 0 || b.X[k] < 0 {
			return fmt.Errorf("branch %s: negative impedance (R=%g, X=%g)", b.Names[k], b.R[k], b.X[k])
		}
		if b.R[k] == 0 && b.X[k] == 0 {
			// 1/(R+jX) would stamp Inf into the admittance matrix
			return fmt.Errorf("branch %s: zero series impedance; ideal switches need a small X", b.Names[k])
		}
		for t := 0; t < b.Ntime; t++ {
			if b.Rates[k][t] < 0 {
				return fmt.Errorf("branch %s: negative rating %g", b.Names[k], b.Rates[k][t])
			}
		}
	}
	return nil
}

// BuildConnectivity assembles the from/to incidence matrices.
func (b *BranchData) BuildConnectivity() {
	cooF := matrix.NewCOO(b.Nbr, b.Nbus)
	cooT := matrix.NewCOO(b.Nbr, b.Nbus)
	for k := 0; k < b.Nbr; k++ {
		cooF.Add(k, b.F[k], 1)
		cooT.Add(k, b.T[k], 1)
	}
	b.Cf = cooF.ToCSR()
	b.Ct = cooT.ToCSR()
}

// GetIsland returns the indices of branches with both terminals inside
// the bus set, ascending.
func (b *BranchData) GetIsland(busIdx []int) []int {
	set := busSet(busIdx)
	idx := make([]int, 0)
	for k := 0; k < b.Nbr; k++ {
		_, fIn := set[b.F[k]]
		_, tIn := set[b.T[k]]
		if fIn && tIn {
			idx = append(idx, k)
		}
	}
	return idx
}

// Slice extracts the given branches with terminals renumbered to the
// island-local bus ordering. Connectivity is rebuilt for the new shape.
func (b *BranchData) Slice(brIdx, busIdx []int) *BranchData {
	nb := &BranchData{
		Nbr:       len(brIdx),
		Nbus:      len(busIdx),
		Ntime:     b.Ntime,
		Names:     sliceVec(b.Names, brIdx),
		Kinds:     sliceVec(b.Kinds, brIdx),
		F:         remapBuses(sliceVec(b.F, brIdx), busIdx),
		T:         remapBuses(sliceVec(b.T, brIdx), busIdx),
		Active:    sliceRows(b.Active, brIdx),
		R:         sliceVec(b.R, brIdx),
		X:         sliceVec(b.X, brIdx),
		G:         sliceVec(b.G, brIdx),
		B:         sliceVec(b.B, brIdx),
		TapModule: sliceVec(b.TapModule, brIdx),
		TapAngle:  sliceVec(b.TapAngle, brIdx),
		Rates:     sliceRows(b.Rates, brIdx),
	}
	nb.BuildConnectivity()
	return nb
}
