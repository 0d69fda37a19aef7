package griddata

import (
	"fmt"

	"github.com/edp1096/toy-powerflow/pkg/matrix"
)

// VscData holds the voltage source converters. Like HVDC links they are
// linear two-bus injections, not admittance branches.
type VscData struct {
	Nvsc  int
	Nbus  int
	Ntime int

	Names  []string
	F      []int
	T      []int
	Active [][]bool

	Pset [][]float64 // MW from F to T
	Qset [][]float64 // MVAr injected at the T side

	C *matrix.CSR
}

func NewVscData(nvsc, nbus, ntime int) *VscData {
	return &VscData{
		Nvsc:   nvsc,
		Nbus:   nbus,
		Ntime:  ntime,
		Names:  make([]string, nvsc),
		F:      make([]int, nvsc),
		T:      make([]int, nvsc),
		Active: boolProfile(nvsc, ntime, true),
		Pset:   floatProfile(nvsc, ntime),
		Qset:   floatProfile(nvsc, ntime),
	}
}

func (d *VscData) Check() error {
	for k := 0; k < d.Nvsc; k++ {
		if d.F[k] < 0 || d.F[k] >= d.Nbus {
			return fmt.Errorf("vsc %s: from-bus index %d out of range [0, %d)", d.Names[k], d.F[k], d.Nbus)
		}
		if d.T[k] < 0 || d.T[k] >= d.Nbus {
			return fmt.Errorf("vsc %s: to-bus index %d out of range [0, %d)", d.Names[k], d.T[k], d.Nbus)
		}
	}
	return nil
}

func (d *VscData) BuildConnectivity() {
	d.C = twoSidedConnectivity(d.F, d.T, d.Nbus, -1, 1)
}

func (d *VscData) GetIsland(busIdx []int) []int {
	set := busSet(busIdx)
	idx := make([]int, 0)
	for k := 0; k < d.Nvsc; k++ {
		_, fIn := set[d.F[k]]
		_, tIn := set[d.T[k]]
		if fIn && tIn {
			idx = append(idx, k)
		}
	}
	return idx
}

func (d *VscData) Slice(devIdx, busIdx []int) *VscData {
	nd := &VscData{
		Nvsc:   len(devIdx),
		Nbus:   len(busIdx),
		Ntime:  d.Ntime,
		Names:  sliceVec(d.Names, devIdx),
		F:      remapBuses(sliceVec(d.F, devIdx), busIdx),
		T:      remapBuses(sliceVec(d.T, devIdx), busIdx),
		Active: sliceRows(d.Active, devIdx),
		Pset:   sliceRows(d.Pset, devIdx),
		Qset:   sliceRows(d.Qset, devIdx),
	}
	nd.BuildConnectivity()
	return nd
}

// UpfcData holds the unified power flow controllers, modelled the same
// way as the converters: a scheduled series power transfer plus a shunt
// reactive injection.
type UpfcData struct {
	Nupfc int
	Nbus  int
	Ntime int

	Names  []string
	F      []int
	T      []int
	Active [][]bool

	Pset [][]float64
	Qset [][]float64

	C *matrix.CSR
}

func NewUpfcData(nupfc, nbus, ntime int) *UpfcData {
	return &UpfcData{
		Nupfc:  nupfc,
		Nbus:   nbus,
		Ntime:  ntime,
		Names:  make([]string, nupfc),
		F:      make([]int, nupfc),
		T:      make([]int, nupfc),
		Active: boolProfile(nupfc, ntime, true),
		Pset:   floatProfile(nupfc, ntime),
		Qset:   floatProfile(nupfc, ntime),
	}
}

func (d *UpfcData) Check() error {
	for k := 0; k < d.Nupfc; k++ {
		if d.F[k] < 0 || d.F[k] >= d.Nbus {
			return fmt.Errorf("upfc %s: from-bus index %d out of range [0, %d)", d.Names[k], d.F[k], d.Nbus)
		}
		if d.T[k] < 0 || d.T[k] >= d.Nbus {
			return fmt.Errorf("upfc %s: to-bus index %d out of range [0, %d)", d.Names[k], d.T[k], d.Nbus)
		}
	}
	return nil
}

func (d *UpfcData) BuildConnectivity() {
	d.C = twoSidedConnectivity(d.F, d.T, d.Nbus, -1, 1)
}

func (d *UpfcData) GetIsland(busIdx []int) []int {
	set := busSet(busIdx)
	idx := make([]int, 0)
	for k := 0; k < d.Nupfc; k++ {
		_, fIn := set[d.F[k]]
		_, tIn := set[d.T[k]]
		if fIn && tIn {
			idx = append(idx, k)
		}
	}
	return idx
}

func (d *UpfcData) Slice(devIdx, busIdx []int) *UpfcData {
	nd := &UpfcData{
		Nupfc:  len(devIdx),
		Nbus:   len(busIdx),
		Ntime:  d.Ntime,
		Names:  sliceVec(d.Names, devIdx),
		F:      remapBuses(sliceVec(d.F, devIdx), busIdx),
		T:      remapBuses(sliceVec(d.T, devIdx), busIdx),
		Active: sliceRows(d.Active, devIdx),
		Pset:   sliceRows(d.Pset, devIdx),
		Qset:   sliceRows(d.Qset, devIdx),
	}
	nd.BuildConnectivity()
	return nd
}
