package griddata

import (
	"fmt"

	"github.com/edp1096/toy-powerflow/pkg/matrix"
)

// HvdcData holds the HVDC links. A link is not an admittance branch: it
// withdraws Pset at the from side and injects it (minus losses) at the
// to side, and its converters may control voltage or provide the angle
// reference of their AC island.
type HvdcData struct {
	Nhvdc int
	Nbus  int
	Ntime int

	Names  []string
	F      []int
	T      []int
	Active [][]bool

	Pset       [][]float64 // scheduled power from F to T (MW)
	LossFactor []float64   // fraction of Pset lost in conversion

	VsetF [][]float64 // converter voltage setpoints (p.u.), 0 = uncontrolled
	VsetT [][]float64

	RefF []bool // converter provides the island angle reference
	RefT []bool

	C *matrix.CSR // signed two-sided incidence (-1 at F, +1 at T)
}

func NewHvdcData(nhvdc, nbus, ntime int) *HvdcData {
	return &HvdcData{
		Nhvdc:      nhvdc,
		Nbus:       nbus,
		Ntime:      ntime,
		Names:      make([]string, nhvdc),
		F:          make([]int, nhvdc),
		T:          make([]int, nhvdc),
		Active:     boolProfile(nhvdc, ntime, true),
		Pset:       floatProfile(nhvdc, ntime),
		LossFactor: make([]float64, nhvdc),
		VsetF:      floatProfile(nhvdc, ntime),
		VsetT:      floatProfile(nhvdc, ntime),
		RefF:       make([]bool, nhvdc),
		RefT:       make([]bool, nhvdc),
	}
}

func (d *HvdcData) Check() error {
	for k := 0; k < d.Nhvdc; k++ {
		if d.F[k] < 0 || d.F[k] >= d.Nbus {
			return fmt.Errorf("hvdc %s: from-bus index %d out of range [0, %d)", d.Names[k], d.F[k], d.Nbus)
		}
		if d.T[k] < 0 || d.T[k] >= d.Nbus {
			return fmt.Errorf("hvdc %s: to-bus index %d out of range [0, %d)", d.Names[k], d.T[k], d.Nbus)
		}
		if d.LossFactor[k] < 0 || d.LossFactor[k] > 1 {
			return fmt.Errorf("hvdc %s: loss factor %g outside [0, 1]", d.Names[k], d.LossFactor[k])
		}
	}
	return nil
}

func (d *HvdcData) BuildConnectivity() {
	d.C = twoSidedConnectivity(d.F, d.T, d.Nbus, -1, 1)
}

// GetIsland keeps only links with both converters inside the bus set.
// A link crossing an island boundary is electrically a separate DC
// system, so it never couples islands here.
func (d *HvdcData) GetIsland(busIdx []int) []int {
	set := busSet(busIdx)
	idx := make([]int, 0)
	for k := 0; k < d.Nhvdc; k++ {
		_, fIn := set[d.F[k]]
		_, tIn := set[d.T[k]]
		if fIn && tIn {
			idx = append(idx, k)
		}
	}
	return idx
}

func (d *HvdcData) Slice(devIdx, busIdx []int) *HvdcData {
	nd := &HvdcData{
		Nhvdc:      len(devIdx),
		Nbus:       len(busIdx),
		Ntime:      d.Ntime,
		Names:      sliceVec(d.Names, devIdx),
		F:          remapBuses(sliceVec(d.F, devIdx), busIdx),
		T:          remapBuses(sliceVec(d.T, devIdx), busIdx),
		Active:     sliceRows(d.Active, devIdx),
		Pset:       sliceRows(d.Pset, devIdx),
		LossFactor: sliceVec(d.LossFactor, devIdx),
		VsetF:      sliceRows(d.VsetF, devIdx),
		VsetT:      sliceRows(d.VsetT, devIdx),
		RefF:       sliceVec(d.RefF, devIdx),
		RefT:       sliceVec(d.RefT, devIdx),
	}
	nd.BuildConnectivity()
	return nd
}
