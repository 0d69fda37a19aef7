package driver

import (
	"fmt"
	"sync/atomic"

	"github.com/edp1096/toy-powerflow/pkg/circuit"
	"github.com/edp1096/toy-powerflow/pkg/solver"
	"github.com/edp1096/toy-powerflow/pkg/util"
)

// StateEstimationDriver runs weighted-least-squares estimation per
// island. Measurements reference the original full-network numbering
// and are routed to the island that owns each bus or branch.
type StateEstimationDriver struct {
	circuit      *circuit.NumericalCircuit
	options      solver.Options
	measurements *solver.MeasurementSet

	Progress ProgressFunc

	Results *PowerFlowResults
	Logger  *util.Logger

	cancelled atomic.Bool
}

func NewStateEstimationDriver(nc *circuit.NumericalCircuit, meas *solver.MeasurementSet, opts solver.Options) *StateEstimationDriver {
	return &StateEstimationDriver{
		circuit:      nc,
		options:      opts,
		measurements: meas,
		Logger:       util.NewLogger(),
	}
}

func (d *StateEstimationDriver) Cancel() { d.cancelled.Store(true) }

func (d *StateEstimationDriver) Run() error {
	nc := d.circuit
	if !nc.Consolidated() {
		if err := nc.Consolidate(); err != nil {
			return fmt.Errorf("state estimation: %v", err)
		}
	}

	islands, err := nc.Islands()
	if err != nil {
		return fmt.Errorf("state estimation: %v", err)
	}

	d.Results = NewPowerFlowResults(nc.Nbus, nc.Nbranch)
	d.Results.Converged = true

	for id, island := range islands {
		if d.cancelled.Load() {
			d.Results.Reports = append(d.Results.Reports,
				ConvergenceReport{IslandID: id, NBuses: island.Nbus, State: Unsolved})
			continue
		}

		rep := ConvergenceReport{IslandID: id, NBuses: island.Nbus, State: Solving}

		in, err := island.Compile(0)
		if err != nil {
			return fmt.Errorf("state estimation: %v", err)
		}

		if !in.HasSlack() {
			rep.State = NoSlack
			d.Logger.AddInfo("island has no slack bus, not estimated", fmt.Sprintf("island %d", id), "")
			d.Results.Reports = append(d.Results.Reports, rep)
			continue
		}
		rep.HasSlack = true

		meas := islandMeasurements(d.measurements, in)
		sol, err := solver.EstimateState(in, meas, d.options)
		if err != nil {
			rep.State = NotConverged
			d.Logger.AddError("island estimation failed", fmt.Sprintf("island %d", id), err.Error())
			d.Results.Reports = append(d.Results.Reports, rep)
			d.Results.Converged = false
			continue
		}

		rep.Converged = sol.Converged
		rep.Iterations = sol.Iterations
		rep.Error = sol.Error
		rep.Elapsed = sol.Elapsed
		if sol.Converged {
			rep.State = Converged
		} else {
			rep.State = NotConverged
			d.Results.Converged = false
		}
		d.Results.Reports = append(d.Results.Reports, rep)
		d.Results.merge(postProcess(island, in, sol))

		if d.Progress != nil {
			d.Progress(float64(id+1)/float64(len(islands)), fmt.Sprintf("island %d/%d", id+1, len(islands)))
		}
	}

	d.Results.Logger.Append(d.Logger)
	return nil
}

// islandMeasurements filters the full-network measurement set down to
// one island and renumbers the indices to island-local values.
func islandMeasurements(all *solver.MeasurementSet, in *circuit.SolveInput) *solver.MeasurementSet {
	busLocal := make(map[int]int, len(in.OriginalBusIdx))
	for local, orig := range in.OriginalBusIdx {
		busLocal[orig] = local
	}
	brLocal := make(map[int]int, len(in.OriginalBranchIdx))
	for local, orig := range in.OriginalBranchIdx {
		brLocal[orig] = local
	}

	out := &solver.MeasurementSet{}
	for _, m := range all.Measurements {
		switch m.Type {
		case solver.PFlow, solver.QFlow, solver.IFlow:
			if local, ok := brLocal[m.Index]; ok {
				out.Add(m.Type, local, m.Value, m.Sigma)
			}
		default:
			if local, ok := busLocal[m.Index]; ok {
				out.Add(m.Type, local, m.Value, m.Sigma)
			}
		}
	}
	return out
}
