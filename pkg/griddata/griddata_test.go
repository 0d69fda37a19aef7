package griddata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusTypeString(t *testing.T) {
	assert.Equal(t, "PQ", PQ.String())
	assert.Equal(t, "PV", PV.String())
	assert.Equal(t, "Slack", Slack.String())
	assert.Equal(t, "Unknown", BusType(0).String())
}

func TestBusDataDefaults(t *testing.T) {
	b := NewBusData(3, 1)
	require.NoError(t, b.Check())
	for i := 0; i < 3; i++ {
		assert.Equal(t, 0.9, b.Vmin[i])
		assert.Equal(t, 1.1, b.Vmax[i])
		assert.Equal(t, PQ, b.Types[i])
		assert.True(t, b.Active[i][0])
	}
}

func TestBranchCheckErrors(t *testing.T) {
	b := NewBranchData(1, 2, 1)
	b.Names[0] = "br1"
	b.T[0] = 5
	err := b.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "to-bus index 5 out of range")

	b.T[0] = 1
	b.R[0] = -0.1
	err = b.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative impedance")

	b.R[0] = 0
	b.X[0] = 0
	err = b.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zero series impedance")

	b.R[0] = 0.1
	b.Rates[0][0] = -10
	err = b.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative rating")
}

func TestBranchConnectivity(t *testing.T) {
	b := NewBranchData(2, 3, 1)
	b.F[0], b.T[0] = 0, 1
	b.F[1], b.T[1] = 1, 2
	b.BuildConnectivity()

	assert.Equal(t, complex(1, 0), b.Cf.At(0, 0))
	assert.Equal(t, complex(1, 0), b.Ct.At(0, 1))
	assert.Equal(t, complex(1, 0), b.Cf.At(1, 1))
	assert.Equal(t, complex(1, 0), b.Ct.At(1, 2))
	assert.Equal(t, complex128(0), b.Cf.At(0, 2))
}

func TestBranchSliceRenumbers(t *testing.T) {
	b := NewBranchData(3, 4, 1)
	b.F[0], b.T[0] = 0, 1
	b.F[1], b.T[1] = 1, 3
	b.F[2], b.T[2] = 2, 3
	b.R[1] = 0.07

	idx := b.GetIsland([]int{1, 3})
	assert.Equal(t, []int{1}, idx)

	s := b.Slice(idx, []int{1, 3})
	assert.Equal(t, 1, s.Nbr)
	assert.Equal(t, 0, s.F[0])
	assert.Equal(t, 1, s.T[0])
	assert.Equal(t, 0.07, s.R[0])
	require.NotNil(t, s.Cf)
}

func TestGeneratorDefaultsAndLimits(t *testing.T) {
	g := NewGeneratorData(1, 2, 1)
	assert.Equal(t, 1.0, g.Vset[0][0])
	assert.True(t, g.Controllable[0])
	require.NoError(t, g.Check())

	g.Qmin[0], g.Qmax[0] = 5, -5
	require.Error(t, g.Check())
}

func TestBatterySocBounds(t *testing.T) {
	b := NewBatteryData(1, 2, 1)
	require.NoError(t, b.Check())

	b.SocMin[0], b.SocMax[0] = 0.8, 0.2
	err := b.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SoC bounds")

	b.SocMin[0], b.SocMax[0] = 0.2, 0.8
	b.Enom[0] = -1
	require.Error(t, b.Check())
}

func TestHvdcLossFactorRange(t *testing.T) {
	h := NewHvdcData(1, 3, 1)
	h.T[0] = 1
	require.NoError(t, h.Check())

	h.LossFactor[0] = 1.5
	err := h.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loss factor")
}

func TestHvdcIslandNeedsBothConverters(t *testing.T) {
	h := NewHvdcData(2, 4, 1)
	h.F[0], h.T[0] = 0, 1
	h.F[1], h.T[1] = 1, 3

	assert.Equal(t, []int{0}, h.GetIsland([]int{0, 1, 2}))
	assert.Empty(t, h.GetIsland([]int{0, 3}))
}

func TestHvdcSignedConnectivity(t *testing.T) {
	h := NewHvdcData(1, 3, 1)
	h.F[0], h.T[0] = 0, 2
	h.BuildConnectivity()

	assert.Equal(t, complex(-1, 0), h.C.At(0, 0))
	assert.Equal(t, complex(1, 0), h.C.At(0, 2))
}

func TestLoadSliceIsDeepCopy(t *testing.T) {
	d := NewLoadData(2, 3, 2)
	d.Bus[0], d.Bus[1] = 0, 2
	d.S[1][0] = complex(30, 10)
	d.S[1][1] = complex(35, 12)

	s := d.Slice([]int{1}, []int{2})
	assert.Equal(t, complex(30, 10), s.S[0][0])
	assert.Equal(t, complex(35, 12), s.S[0][1])
	assert.Equal(t, 0, s.Bus[0])

	s.S[0][0] = 0
	assert.Equal(t, complex(30, 10), d.S[1][0])
}

func TestRemapBuses(t *testing.T) {
	assert.Equal(t, []int{1, 0, 2}, remapBuses([]int{3, 1, 5}, []int{1, 3, 5}))
}
