package griddata

import (
	"fmt"

	"github.com/edp1096/toy-powerflow/pkg/matrix"
)

// BatteryData is the generator array set extended with the storage
// limits. For power flow a battery behaves exactly like a generator;
// the energy fields matter to scheduling layers above this one.
type BatteryData struct {
	Nbatt int
	Nbus  int
	Ntime int

	Names  []string
	Bus    []int
	Active [][]bool

	P    [][]float64 // MW, negative while charging
	Vset [][]float64

	Controllable []bool
	Dispatchable []bool

	Qmin []float64
	Qmax []float64

	Enom   []float64 // energy capacity (MWh)
	SocMin []float64
	SocMax []float64

	C *matrix.CSR
}

func NewBatteryData(nbatt, nbus, ntime int) *BatteryData {
	d := &BatteryData{
		Nbatt:        nbatt,
		Nbus:         nbus,
		Ntime:        ntime,
		Names:        make([]string, nbatt),
		Bus:          make([]int, nbatt),
		Active:       boolProfile(nbatt, ntime, true),
		P:            floatProfile(nbatt, ntime),
		Vset:         floatProfile(nbatt, ntime),
		Controllable: make([]bool, nbatt),
		Dispatchable: make([]bool, nbatt),
		Qmin:         make([]float64, nbatt),
		Qmax:         make([]float64, nbatt),
		Enom:         make([]float64, nbatt),
		SocMin:       make([]float64, nbatt),
		SocMax:       make([]float64, nbatt),
	}
	for k := 0; k < nbatt; k++ {
		for t := 0; t < ntime; t++ {
			d.Vset[k][t] = 1.0
		}
		d.Qmin[k] = -9999
		d.Qmax[k] = 9999
		d.SocMax[k] = 1.0
	}
	return d
}

func (d *BatteryData) Check() error {
	for k := 0; k < d.Nbatt; k++ {
		if d.Bus[k] < 0 || d.Bus[k] >= d.Nbus {
			return fmt.Errorf("battery %s: bus index %d out of range [0, %d)", d.Names[k], d.Bus[k], d.Nbus)
		}
		if d.SocMin[k] > d.SocMax[k] {
			return fmt.Errorf("battery %s: SoC bounds inverted (%g > %g)", d.Names[k], d.SocMin[k], d.SocMax[k])
		}
		if d.Enom[k] < 0 {
			return fmt.Errorf("battery %s: negative energy capacity %g", d.Names[k], d.Enom[k])
		}
	}
	return nil
}

func (d *BatteryData) BuildConnectivity() {
	d.C = singleBusConnectivity(d.Bus, d.Nbus)
}

func (d *BatteryData) GetIsland(busIdx []int) []int {
	set := busSet(busIdx)
	idx := make([]int, 0)
	for k := 0; k < d.Nbatt; k++ {
		if _, ok := set[d.Bus[k]]; ok {
			idx = append(idx, k)
		}
	}
	return idx
}

func (d *BatteryData) Slice(devIdx, busIdx []int) *BatteryData {
	nd := &BatteryData{
		Nbatt:        len(devIdx),
		Nbus:         len(busIdx),
		Ntime:        d.Ntime,
		Names:        sliceVec(d.Names, devIdx),
		Bus:          remapBuses(sliceVec(d.Bus, devIdx), busIdx),
		Active:       sliceRows(d.Active, devIdx),
		P:            sliceRows(d.P, devIdx),
		Vset:         sliceRows(d.Vset, devIdx),
		Controllable: sliceVec(d.Controllable, devIdx),
		Dispatchable: sliceVec(d.Dispatchable, devIdx),
		Qmin:         sliceVec(d.Qmin, devIdx),
		Qmax:         sliceVec(d.Qmax, devIdx),
		Enom:         sliceVec(d.Enom, devIdx),
		SocMin:       sliceVec(d.SocMin, devIdx),
		SocMax:       sliceVec(d.SocMax, devIdx),
	}
	nd.BuildConnectivity()
	return nd
}
