package driver

import (
	"github.com/google/uuid"

	"github.com/edp1096/toy-powerflow/pkg/griddata"
	"github.com/edp1096/toy-powerflow/pkg/util"
)

// PowerFlowResults is shaped like the original full network: every bus
// and branch of the pre-split circuit has a slot, filled island by
// island through the original-index back references. Buses of islands
// that could not be solved stay at their initial state.
type PowerFlowResults struct {
	RunID uuid.UUID

	NBus    int
	NBranch int

	Voltage  []complex128 // p.u.
	Sbus     []complex128 // MVA
	BusTypes []griddata.BusType

	Sf      []complex128 // MVA, from side
	St      []complex128 // MVA, to side
	Losses  []complex128 // MVA
	Loading []float64    // fraction of rating

	Converged bool
	Reports   []ConvergenceReport
	Logger    *util.Logger
}

func NewPowerFlowResults(nbus, nbranch int) *PowerFlowResults {
	r := &PowerFlowResults{
		RunID:    uuid.New(),
		NBus:     nbus,
		NBranch:  nbranch,
		Voltage:  make([]complex128, nbus),
		Sbus:     make([]complex128, nbus),
		BusTypes: make([]griddata.BusType, nbus),
		Sf:       make([]complex128, nbranch),
		St:       make([]complex128, nbranch),
		Losses:   make([]complex128, nbranch),
		Loading:  make([]float64, nbranch),
		Logger:   util.NewLogger(),
	}
	for i := range r.Voltage {
		r.Voltage[i] = 1
	}
	for i := range r.BusTypes {
		r.BusTypes[i] = griddata.PQ
	}
	return r
}

// islandResults is one island's slice of outputs before merging.
type islandResults struct {
	busIdx    []int // original bus indices
	branchIdx []int // original branch indices

	voltage []complex128
	sbus    []complex128
	types   []griddata.BusType

	sf      []complex128
	st      []complex128
	losses  []complex128
	loading []float64
}

// merge scatters an island's arrays into the full-network slots. The
// islands are disjoint by construction, so each slot is written at most
// once across a whole run.
func (r *PowerFlowResults) merge(ir *islandResults) {
	for k, orig := range ir.busIdx {
		r.Voltage[orig] = ir.voltage[k]
		r.Sbus[orig] = ir.sbus[k]
		r.BusTypes[orig] = ir.types[k]
	}
	for k, orig := range ir.branchIdx {
		r.Sf[orig] = ir.sf[k]
		r.St[orig] = ir.st[k]
		r.Losses[orig] = ir.losses[k]
		r.Loading[orig] = ir.loading[k]
	}
}

// TimeSeriesResults stacks one PowerFlowResults row per time step.
type TimeSeriesResults struct {
	RunID uuid.UUID

	NBus    int
	NBranch int
	Start   int
	End     int

	Voltage [][]complex128 // [step][bus]
	Sf      [][]complex128 // [step][branch]
	Losses  [][]complex128
	Loading [][]float64

	Converged bool
	Reports   [][]ConvergenceReport
	Logger    *util.Logger
}

func NewTimeSeriesResults(nbus, nbranch, start, end int) *TimeSeriesResults {
	n := end - start
	r := &TimeSeriesResults{
		RunID:     uuid.New(),
		NBus:      nbus,
		NBranch:   nbranch,
		Start:     start,
		End:       end,
		Voltage:   make([][]complex128, n),
		Sf:        make([][]complex128, n),
		Losses:    make([][]complex128, n),
		Loading:   make([][]float64, n),
		Converged: true,
		Reports:   make([][]ConvergenceReport, n),
		Logger:    util.NewLogger(),
	}
	return r
}
