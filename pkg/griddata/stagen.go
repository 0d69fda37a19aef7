package griddata

import (
	"fmt"

	"github.com/edp1096/toy-powerflow/pkg/matrix"
)

// StaticGeneratorData holds fixed-power injections with no voltage
// control (wind/PV aggregates and the like).
type StaticGeneratorData struct {
	Nstagen int
	Nbus    int
	Ntime   int

	Names  []string
	Bus    []int
	Active [][]bool

	S [][]complex128 // MVA

	C *matrix.CSR
}

func NewStaticGeneratorData(nstagen, nbus, ntime int) *StaticGeneratorData {
	return &StaticGeneratorData{
		Nstagen: nstagen,
		Nbus:    nbus,
		Ntime:   ntime,
		Names:   make([]string, nstagen),
		Bus:     make([]int, nstagen),
		Active:  boolProfile(nstagen, ntime, true),
		S:       complexProfile(nstagen, ntime),
	}
}

func (d *StaticGeneratorData) Check() error {
	for k := 0; k < d.Nstagen; k++ {
		if d.Bus[k] < 0 || d.Bus[k] >= d.Nbus {
			return fmt.Errorf("static generator %s: bus index %d out of range [0, %d)", d.Names[k], d.Bus[k], d.Nbus)
		}
	}
	return nil
}

func (d *StaticGeneratorData) BuildConnectivity() {
	d.C = singleBusConnectivity(d.Bus, d.Nbus)
}

func (d *StaticGeneratorData) GetIsland(busIdx []int) []int {
	set := busSet(busIdx)
	idx := make([]int, 0)
	for k := 0; k < d.Nstagen; k++ {
		if _, ok := set[d.Bus[k]]; ok {
			idx = append(idx, k)
		}
	}
	return idx
}

func (d *StaticGeneratorData) Slice(devIdx, busIdx []int) *StaticGeneratorData {
	nd := &StaticGeneratorData{
		Nstagen: len(devIdx),
		Nbus:    len(busIdx),
		Ntime:   d.Ntime,
		Names:   sliceVec(d.Names, devIdx),
		Bus:     remapBuses(sliceVec(d.Bus, devIdx), busIdx),
		Active:  sliceRows(d.Active, devIdx),
		S:       sliceRows(d.S, devIdx),
	}
	nd.BuildConnectivity()
	return nd
}
