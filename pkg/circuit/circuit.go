package circuit

import (
	"fmt"

	"github.com/edp1096/toy-powerflow/internal/consts"
	"github.com/edp1096/toy-powerflow/pkg/griddata"
	"github.com/edp1096/toy-powerflow/pkg/topology"
)

// Counts declares how many devices of each class a circuit holds. The
// arrays are allocated once at construction and filled by the caller.
type Counts struct {
	Nbus    int
	Nbranch int
	Nload   int
	Ngen    int
	Nbatt   int
	Nshunt  int
	Nstagen int
	Nhvdc   int
	Nvsc    int
	Nupfc   int
}

// NumericalCircuit is the consolidated array-based snapshot (or time
// stack) of a network, ready for solving. It owns the admittance model
// once Consolidate has run, and can be sliced into island circuits that
// keep back-references to the original numbering.
type NumericalCircuit struct {
	Counts
	Ntime int
	Sbase float64

	Bus     *griddata.BusData
	Branch  *griddata.BranchData
	Load    *griddata.LoadData
	Gen     *griddata.GeneratorData
	Batt    *griddata.BatteryData
	Shunt   *griddata.ShuntData
	Stagen  *griddata.StaticGeneratorData
	Hvdc    *griddata.HvdcData
	Vsc     *griddata.VscData
	Upfc    *griddata.UpfcData

	Adm *AdmittanceMatrices

	// Back-references to the root circuit's numbering. Identity for a
	// circuit built from scratch; composed flat at slice time so merge
	// lookups stay one hop deep no matter how often slicing nests.
	OriginalBusIdx    []int
	OriginalBranchIdx []int
	OriginalLoadIdx   []int
	OriginalGenIdx    []int
	OriginalBattIdx   []int
	OriginalShuntIdx  []int
	OriginalStagenIdx []int
	OriginalHvdcIdx   []int
	OriginalVscIdx    []int
	OriginalUpfcIdx   []int

	consolidated bool
}

func New(c Counts, sbase float64, ntime int) *NumericalCircuit {
	if sbase <= 0 {
		sbase = consts.DefaultSbase
	}
	if ntime < 1 {
		ntime = 1
	}
	nc := &NumericalCircuit{
		Counts: c,
		Ntime:  ntime,
		Sbase:  sbase,
		Bus:    griddata.NewBusData(c.Nbus, ntime),
		Branch: griddata.NewBranchData(c.Nbranch, c.Nbus, ntime),
		Load:   griddata.NewLoadData(c.Nload, c.Nbus, ntime),
		Gen:    griddata.NewGeneratorData(c.Ngen, c.Nbus, ntime),
		Batt:   griddata.NewBatteryData(c.Nbatt, c.Nbus, ntime),
		Shunt:  griddata.NewShuntData(c.Nshunt, c.Nbus, ntime),
		Stagen: griddata.NewStaticGeneratorData(c.Nstagen, c.Nbus, ntime),
		Hvdc:   griddata.NewHvdcData(c.Nhvdc, c.Nbus, ntime),
		Vsc:    griddata.NewVscData(c.Nvsc, c.Nbus, ntime),
		Upfc:   griddata.NewUpfcData(c.Nupfc, c.Nbus, ntime),
	}
	nc.OriginalBusIdx = identity(c.Nbus)
	nc.OriginalBranchIdx = identity(c.Nbranch)
	nc.OriginalLoadIdx = identity(c.Nload)
	nc.OriginalGenIdx = identity(c.Ngen)
	nc.OriginalBattIdx = identity(c.Nbatt)
	nc.OriginalShuntIdx = identity(c.Nshunt)
	nc.OriginalStagenIdx = identity(c.Nstagen)
	nc.OriginalHvdcIdx = identity(c.Nhvdc)
	nc.OriginalVscIdx = identity(c.Nvsc)
	nc.OriginalUpfcIdx = identity(c.Nupfc)
	return nc
}

func identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// Check validates every device class against the declared counts and
// bus range. Any failure here is a configuration error and aborts the
// pipeline before any numeric work.
func (nc *NumericalCircuit) Check() error {
	checks := []func() error{
		nc.Bus.Check, nc.Branch.Check, nc.Load.Check, nc.Gen.Check, nc.Batt.Check,
		nc.Shunt.Check, nc.Stagen.Check, nc.Hvdc.Check, nc.Vsc.Check, nc.Upfc.Check,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return fmt.Errorf("circuit check failed: %v", err)
		}
	}
	return nil
}

// Consolidate validates the data, builds every device-to-bus
// connectivity matrix, derives the bus classification and assembles the
// admittance model. It must run before Compile or Islands.
func (nc *NumericalCircuit) Consolidate() error {
	if err := nc.Check(); err != nil {
		return err
	}

	nc.Branch.BuildConnectivity()
	nc.Load.BuildConnectivity()
	nc.Gen.BuildConnectivity()
	nc.Batt.BuildConnectivity()
	nc.Shunt.BuildConnectivity()
	nc.Stagen.BuildConnectivity()
	nc.Hvdc.BuildConnectivity()
	nc.Vsc.BuildConnectivity()
	nc.Upfc.BuildConnectivity()

	nc.ComputeBusTypes(0)
	nc.Adm = AssembleAdmittances(nc.Branch, nc.Shunt, nc.Sbase, 0)

	nc.consolidated = true
	return nil
}

func (nc *NumericalCircuit) Consolidated() bool { return nc.consolidated }

// activeEdges builds the topology edge list at time t. Branches connect
// buses; active HVDC links do NOT couple their terminals electrically
// for AC island purposes, matching their injection-only model.
func (nc *NumericalCircuit) activeEdges(t int) []topology.Edge {
	edges := make([]topology.Edge, nc.Nbranch)
	for k := 0; k < nc.Nbranch; k++ {
		edges[k] = topology.Edge{From: nc.Branch.F[k], To: nc.Branch.T[k], Active: nc.Branch.Active[k][t]}
	}
	return edges
}

// SplitIntoIslands finds the electrically independent bus groups under
// the active branches at time t=0.
func (nc *NumericalCircuit) SplitIntoIslands() [][]int {
	return topology.FindIslands(nc.Nbus, nc.activeEdges(0))
}

// Island slices the circuit down to the given buses. The result is an
// independent copy with composed original indices, consolidated and
// ready to compile.
func (nc *NumericalCircuit) Island(busIdx []int) (*NumericalCircuit, error) {
	brIdx := nc.Branch.GetIsland(busIdx)
	loadIdx := nc.Load.GetIsland(busIdx)
	genIdx := nc.Gen.GetIsland(busIdx)
	battIdx := nc.Batt.GetIsland(busIdx)
	shuntIdx := nc.Shunt.GetIsland(busIdx)
	stagenIdx := nc.Stagen.GetIsland(busIdx)
	hvdcIdx := nc.Hvdc.GetIsland(busIdx)
	vscIdx := nc.Vsc.GetIsland(busIdx)
	upfcIdx := nc.Upfc.GetIsland(busIdx)

	child := &NumericalCircuit{
		Counts: Counts{
			Nbus:    len(busIdx),
			Nbranch: len(brIdx),
			Nload:   len(loadIdx),
			Ngen:    len(genIdx),
			Nbatt:   len(battIdx),
			Nshunt:  len(shuntIdx),
			Nstagen: len(stagenIdx),
			Nhvdc:   len(hvdcIdx),
			Nvsc:    len(vscIdx),
			Nupfc:   len(upfcIdx),
		},
		Ntime: nc.Ntime,
		Sbase: nc.Sbase,

		Bus:    nc.Bus.Slice(busIdx),
		Branch: nc.Branch.Slice(brIdx, busIdx),
		Load:   nc.Load.Slice(loadIdx, busIdx),
		Gen:    nc.Gen.Slice(genIdx, busIdx),
		Batt:   nc.Batt.Slice(battIdx, busIdx),
		Shunt:  nc.Shunt.Slice(shuntIdx, busIdx),
		Stagen: nc.Stagen.Slice(stagenIdx, busIdx),
		Hvdc:   nc.Hvdc.Slice(hvdcIdx, busIdx),
		Vsc:    nc.Vsc.Slice(vscIdx, busIdx),
		Upfc:   nc.Upfc.Slice(upfcIdx, busIdx),

		OriginalBusIdx:    compose(nc.OriginalBusIdx, busIdx),
		OriginalBranchIdx: compose(nc.OriginalBranchIdx, brIdx),
		OriginalLoadIdx:   compose(nc.OriginalLoadIdx, loadIdx),
		OriginalGenIdx:    compose(nc.OriginalGenIdx, genIdx),
		OriginalBattIdx:   compose(nc.OriginalBattIdx, battIdx),
		OriginalShuntIdx:  compose(nc.OriginalShuntIdx, shuntIdx),
		OriginalStagenIdx: compose(nc.OriginalStagenIdx, stagenIdx),
		OriginalHvdcIdx:   compose(nc.OriginalHvdcIdx, hvdcIdx),
		OriginalVscIdx:    compose(nc.OriginalVscIdx, vscIdx),
		OriginalUpfcIdx:   compose(nc.OriginalUpfcIdx, upfcIdx),
	}

	if err := child.Consolidate(); err != nil {
		return nil, fmt.Errorf("consolidating island: %v", err)
	}
	return child, nil
}

// Islands splits and slices in one call.
func (nc *NumericalCircuit) Islands() ([]*NumericalCircuit, error) {
	groups := nc.SplitIntoIslands()
	out := make([]*NumericalCircuit, len(groups))
	for i, busIdx := range groups {
		island, err := nc.Island(busIdx)
		if err != nil {
			return nil, err
		}
		out[i] = island
	}
	return out, nil
}

// compose flattens a child-to-parent mapping against the parent's own
// root mapping, keeping every back-reference a single lookup deep.
func compose(parentToRoot, childToParent []int) []int {
	out := make([]int, len(childToParent))
	for k, p := range childToParent {
		out[k] = parentToRoot[p]
	}
	return out
}
