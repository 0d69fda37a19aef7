package griddata

import (
	"fmt"

	"github.com/edp1096/toy-powerflow/pkg/matrix"
)

// GeneratorData holds the controllable generators. A voltage-controlled
// generator makes its bus PV; a slack-designated one makes it the
// island reference.
type GeneratorData struct {
	Ngen  int
	Nbus  int
	Ntime int

	Names  []string
	Bus    []int
	Active [][]bool

	P    [][]float64 // active power setpoint (MW)
	Vset [][]float64 // voltage setpoint (p.u.)

	Controllable []bool // voltage control enabled (PV behaviour)
	Dispatchable []bool
	IsSlack      []bool

	Qmin []float64 // MVAr
	Qmax []float64

	C *matrix.CSR
}

func NewGeneratorData(ngen, nbus, ntime int) *GeneratorData {
	d := &GeneratorData{
		Ngen:         ngen,
		Nbus:         nbus,
		Ntime:        ntime,
		Names:        make([]string, ngen),
		Bus:          make([]int, ngen),
		Active:       boolProfile(ngen, ntime, true),
		P:            floatProfile(ngen, ntime),
		Vset:         floatProfile(ngen, ntime),
		Controllable: make([]bool, ngen),
		Dispatchable: make([]bool, ngen),
		IsSlack:      make([]bool, ngen),
		Qmin:         make([]float64, ngen),
		Qmax:         make([]float64, ngen),
	}
	for k := 0; k < ngen; k++ {
		for t := 0; t < ntime; t++ {
			d.Vset[k][t] = 1.0
		}
		d.Controllable[k] = true
		d.Qmin[k] = -9999
		d.Qmax[k] = 9999
	}
	return d
}

func (d *GeneratorData) Check() error {
	for k := 0; k < d.Ngen; k++ {
		if d.Bus[k] < 0 || d.Bus[k] >= d.Nbus {
			return fmt.Errorf("generator %s: bus index %d out of range [0, %d)", d.Names[k], d.Bus[k], d.Nbus)
		}
		if d.Qmin[k] > d.Qmax[k] {
			return fmt.Errorf("generator %s: Qmin %g above Qmax %g", d.Names[k], d.Qmin[k], d.Qmax[k])
		}
	}
	return nil
}

func (d *GeneratorData) BuildConnectivity() {
	d.C = singleBusConnectivity(d.Bus, d.Nbus)
}

func (d *GeneratorData) GetIsland(busIdx []int) []int {
	set := busSet(busIdx)
	idx := make([]int, 0)
	for k := 0; k < d.Ngen; k++ {
		if _, ok := set[d.Bus[k]]; ok {
			idx = append(idx, k)
		}
	}
	return idx
}

func (d *GeneratorData) Slice(devIdx, busIdx []int) *GeneratorData {
	nd := &GeneratorData{
		Ngen:         len(devIdx),
		Nbus:         len(busIdx),
		Ntime:        d.Ntime,
		Names:        sliceVec(d.Names, devIdx),
		Bus:          remapBuses(sliceVec(d.Bus, devIdx), busIdx),
		Active:       sliceRows(d.Active, devIdx),
		P:            sliceRows(d.P, devIdx),
		Vset:         sliceRows(d.Vset, devIdx),
		Controllable: sliceVec(d.Controllable, devIdx),
		Dispatchable: sliceVec(d.Dispatchable, devIdx),
		IsSlack:      sliceVec(d.IsSlack, devIdx),
		Qmin:         sliceVec(d.Qmin, devIdx),
		Qmax:         sliceVec(d.Qmax, devIdx),
	}
	nd.BuildConnectivity()
	return nd
}
