package griddata

import (
	"fmt"

	"github.com/edp1096/toy-powerflow/pkg/matrix"
)

// ShuntData holds the standalone shunt devices. Their admittance folds
// into the bus shunt vector at consolidation time.
type ShuntData struct {
	Nshunt int
	Nbus   int
	Ntime  int

	Names  []string
	Bus    []int
	Active [][]bool

	Admittance [][]complex128 // G + jB in MVA at nominal voltage

	C *matrix.CSR
}

func NewShuntData(nshunt, nbus, ntime int) *ShuntData {
	return &ShuntData{
		Nshunt:     nshunt,
		Nbus:       nbus,
		Ntime:      ntime,
		Names:      make([]string, nshunt),
		Bus:        make([]int, nshunt),
		Active:     boolProfile(nshunt, ntime, true),
		Admittance: complexProfile(nshunt, ntime),
	}
}

func (d *ShuntData) Check() error {
	for k := 0; k < d.Nshunt; k++ {
		if d.Bus[k] < 0 || d.Bus[k] >= d.Nbus {
			return fmt.Errorf("shunt %s: bus index %d out of range [0, %d)", d.Names[k], d.Bus[k], d.Nbus)
		}
	}
	return nil
}

func (d *ShuntData) BuildConnectivity() {
	d.C = singleBusConnectivity(d.Bus, d.Nbus)
}

func (d *ShuntData) GetIsland(busIdx []int) []int {
	set := busSet(busIdx)
	idx := make([]int, 0)
	for k := 0; k < d.Nshunt; k++ {
		if _, ok := set[d.Bus[k]]; ok {
			idx = append(idx, k)
		}
	}
	return idx
}

func (d *ShuntData) Slice(devIdx, busIdx []int) *ShuntData {
	nd := &ShuntData{
		Nshunt:     len(devIdx),
		Nbus:       len(busIdx),
		Ntime:      d.Ntime,
		Names:      sliceVec(d.Names, devIdx),
		Bus:        remapBuses(sliceVec(d.Bus, devIdx), busIdx),
		Active:     sliceRows(d.Active, devIdx),
		Admittance: sliceRows(d.Admittance, devIdx),
	}
	nd.BuildConnectivity()
	return nd
}
