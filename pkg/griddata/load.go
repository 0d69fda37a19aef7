package griddata

import (
	"fmt"

	"github.com/edp1096/toy-powerflow/pkg/matrix"
)

// LoadData holds the loads with the full ZIP model: constant power S,
// constant current I and constant admittance Y parts, all as profiles.
type LoadData struct {
	Nload int
	Nbus  int
	Ntime int

	Names  []string
	Bus    []int
	Active [][]bool

	S [][]complex128 // MVA at nominal voltage
	I [][]complex128 // current part, MVA at nominal voltage
	Y [][]complex128 // admittance part, MVA at nominal voltage

	C *matrix.CSR
}

func NewLoadData(nload, nbus, ntime int) *LoadData {
	return &LoadData{
		Nload:  nload,
		Nbus:   nbus,
		Ntime:  ntime,
		Names:  make([]string, nload),
		Bus:    make([]int, nload),
		Active: boolProfile(nload, ntime, true),
		S:      complexProfile(nload, ntime),
		I:      complexProfile(nload, ntime),
		Y:      complexProfile(nload, ntime),
	}
}

func (d *LoadData) Check() error {
	for k := 0; k < d.Nload; k++ {
		if d.Bus[k] < 0 || d.Bus[k] >= d.Nbus {
			return fmt.Errorf("load %s: bus index %d out of range [0, %d)", d.Names[k], d.Bus[k], d.Nbus)
		}
	}
	return nil
}

func (d *LoadData) BuildConnectivity() {
	d.C = singleBusConnectivity(d.Bus, d.Nbus)
}

func (d *LoadData) GetIsland(busIdx []int) []int {
	set := busSet(busIdx)
	idx := make([]int, 0)
	for k := 0; k < d.Nload; k++ {
		if _, ok := set[d.Bus[k]]; ok {
			idx = append(idx, k)
		}
	}
	return idx
}

func (d *LoadData) Slice(devIdx, busIdx []int) *LoadData {
	nd := &LoadData{
		Nload:  len(devIdx),
		Nbus:   len(busIdx),
		Ntime:  d.Ntime,
		Names:  sliceVec(d.Names, devIdx),
		Bus:    remapBuses(sliceVec(d.Bus, devIdx), busIdx),
		Active: sliceRows(d.Active, devIdx),
		S:      sliceRows(d.S, devIdx),
		I:      sliceRows(d.I, devIdx),
		Y:      sliceRows(d.Y, devIdx),
	}
	nd.BuildConnectivity()
	return nd
}
