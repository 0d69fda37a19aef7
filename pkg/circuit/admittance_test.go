package circuit

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-powerflow/pkg/griddata"
)

// ringGrid builds a 5-bus network: bus 0 carries the slack generator
// and hangs off a single spur branch, buses 1..4 form a ring.
//
//	branch 0: 0-1 (the only path to bus 0)
//	branch 1: 1-2
//	branch 2: 2-3
//	branch 3: 3-4
//	branch 4: 4-1
func ringGrid() *NumericalCircuit {
	nc := New(Counts{Nbus: 5, Nbranch: 5, Nload: 4, Ngen: 1}, 100, 1)

	type ln struct {
		f, t    int
		r, x, b float64
	}
	lines := []ln{
		{0, 1, 0.05, 0.11, 0.02},
		{1, 2, 0.04, 0.09, 0.02},
		{2, 3, 0.06, 0.13, 0.03},
		{3, 4, 0.04, 0.09, 0.02},
		{4, 1, 0.03, 0.08, 0.02},
	}
	for k, l := range lines {
		nc.Branch.Names[k] = "line"
		nc.Branch.F[k] = l.f
		nc.Branch.T[k] = l.t
		nc.Branch.R[k] = l.r
		nc.Branch.X[k] = l.x
		nc.Branch.B[k] = l.b
		nc.Branch.Rates[k][0] = 50
	}

	for k := 0; k < 4; k++ {
		nc.Load.Bus[k] = k + 1
		nc.Load.S[k][0] = complex(40, 20)
	}

	nc.Gen.Bus[0] = 0
	nc.Gen.IsSlack[0] = true
	return nc
}

func TestAssembleLineClosedForm(t *testing.T) {
	nc := New(Counts{Nbus: 2, Nbranch: 1}, 100, 1)
	nc.Branch.F[0] = 0
	nc.Branch.T[0] = 1
	nc.Branch.R[0] = 0.05
	nc.Branch.X[0] = 0.11
	nc.Branch.B[0] = 0.02
	require.NoError(t, nc.Consolidate())

	ys := 1 / complex(0.05, 0.11)
	ysh := complex(0, 0.01)

	adm := nc.Adm
	assert.InDelta(t, 0, cmplx.Abs(adm.Yf.At(0, 0)-(ys+ysh)), 1e-14)
	assert.InDelta(t, 0, cmplx.Abs(adm.Yf.At(0, 1)-(-ys)), 1e-14)
	assert.InDelta(t, 0, cmplx.Abs(adm.Yt.At(0, 0)-(-ys)), 1e-14)
	assert.InDelta(t, 0, cmplx.Abs(adm.Yt.At(0, 1)-(ys+ysh)), 1e-14)

	assert.InDelta(t, 0, cmplx.Abs(adm.Ybus.At(0, 0)-(ys+ysh)), 1e-14)
	assert.InDelta(t, 0, cmplx.Abs(adm.Ybus.At(0, 1)-(-ys)), 1e-14)

	// Yseries drops the shunt terms
	assert.InDelta(t, 0, cmplx.Abs(adm.Yseries.At(0, 0)-ys), 1e-14)
	assert.InDelta(t, 0, cmplx.Abs(adm.Yshunt[0]-ysh), 1e-14)
}

func TestAssembleTransformerTap(t *testing.T) {
	nc := New(Counts{Nbus: 2, Nbranch: 1}, 100, 1)
	nc.Branch.Kinds[0] = griddata.Transformer
	nc.Branch.F[0] = 0
	nc.Branch.T[0] = 1
	nc.Branch.R[0] = 0.01
	nc.Branch.X[0] = 0.05
	nc.Branch.B[0] = 0.04
	nc.Branch.TapModule[0] = 1.05
	require.NoError(t, nc.Consolidate())

	ys := 1 / complex(0.01, 0.05)
	ysh := complex(0, 0.02)

	adm := nc.Adm
	assert.InDelta(t, 0, cmplx.Abs(adm.Yf.At(0, 0)-(ys+ysh)/complex(1.05*1.05, 0)), 1e-14)
	assert.InDelta(t, 0, cmplx.Abs(adm.Yf.At(0, 1)-(-ys/complex(1.05, 0))), 1e-14)
	assert.InDelta(t, 0, cmplx.Abs(adm.Yt.At(0, 0)-(-ys/complex(1.05, 0))), 1e-14)
	assert.InDelta(t, 0, cmplx.Abs(adm.Yt.At(0, 1)-(ys+ysh)), 1e-14)
}

func TestAssembleTapShiftBreaksSymmetry(t *testing.T) {
	nc := New(Counts{Nbus: 2, Nbranch: 1}, 100, 1)
	nc.Branch.F[0] = 0
	nc.Branch.T[0] = 1
	nc.Branch.R[0] = 0.01
	nc.Branch.X[0] = 0.05
	nc.Branch.TapModule[0] = 1.0
	nc.Branch.TapAngle[0] = 0.1
	require.NoError(t, nc.Consolidate())

	// with a phase shift, Ybus[f,t] = -ys/conj(tap) != -ys/tap = Ybus[t,f]
	assert.Greater(t, nc.Adm.MaxOffDiagonalAsymmetry(), 1e-6)
}

func TestInactiveBranchContributesExactZero(t *testing.T) {
	withInactive := ringGrid()
	withInactive.Branch.Active[2][0] = false
	require.NoError(t, withInactive.Consolidate())

	// the deactivated branch row is structurally empty
	for j := 0; j < 5; j++ {
		assert.Equal(t, 0+0i, withInactive.Adm.Yf.At(2, j))
		assert.Equal(t, 0+0i, withInactive.Adm.Yt.At(2, j))
	}

	// Ybus equals the matrix of the network without that branch at all
	without := New(Counts{Nbus: 5, Nbranch: 4, Nload: 4, Ngen: 1}, 100, 1)
	src := ringGrid()
	kk := 0
	for k := 0; k < 5; k++ {
		if k == 2 {
			continue
		}
		without.Branch.F[kk] = src.Branch.F[k]
		without.Branch.T[kk] = src.Branch.T[k]
		without.Branch.R[kk] = src.Branch.R[k]
		without.Branch.X[kk] = src.Branch.X[k]
		without.Branch.B[kk] = src.Branch.B[k]
		without.Branch.Rates[kk][0] = 50
		kk++
	}
	for k := 0; k < 4; k++ {
		without.Load.Bus[k] = k + 1
		without.Load.S[k][0] = complex(40, 20)
	}
	without.Gen.Bus[0] = 0
	without.Gen.IsSlack[0] = true
	require.NoError(t, without.Consolidate())

	assert.Equal(t, without.Adm.Ybus.Dense(), withInactive.Adm.Ybus.Dense())
}

func TestPassiveNetworkSymmetryAndRowSums(t *testing.T) {
	nc := ringGrid()
	require.NoError(t, nc.Consolidate())

	assert.Less(t, nc.Adm.MaxOffDiagonalAsymmetry(), 1e-12)

	// row sums: series terms cancel, what remains is the shunt vector
	sums := nc.Adm.Ybus.RowSums()
	require.Len(t, sums, 5)
	for i := range sums {
		assert.InDelta(t, 0, cmplx.Abs(sums[i]-nc.Adm.Yshunt[i]), 1e-12, "bus %d", i)
	}
}

func TestDeactivatingRingBranchKeepsOneIsland(t *testing.T) {
	nc := ringGrid()
	nc.Branch.Active[2][0] = false // ring branch 2-3, not a bridge
	require.NoError(t, nc.Consolidate())

	islands := nc.SplitIntoIslands()
	require.Len(t, islands, 1)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, islands[0])
}

func TestDeactivatingBridgeSplitsTwoIslands(t *testing.T) {
	nc := ringGrid()
	nc.Branch.Active[0][0] = false // the only branch reaching bus 0
	require.NoError(t, nc.Consolidate())

	islands := nc.SplitIntoIslands()
	require.Len(t, islands, 2)
	assert.Equal(t, []int{0}, islands[0])
	assert.Equal(t, []int{1, 2, 3, 4}, islands[1])
}
