package driver

import (
	"fmt"
	"sync/atomic"

	"github.com/edp1096/toy-powerflow/pkg/circuit"
	"github.com/edp1096/toy-powerflow/pkg/solver"
	"github.com/edp1096/toy-powerflow/pkg/util"
)

// TimeSeriesDriver sweeps the power flow over the time steps
// [Start, End). Topology is taken as static across the range: islands
// are split once and their admittance matrices are reused for every
// step, only the injections and setpoints move.
type TimeSeriesDriver struct {
	circuit *circuit.NumericalCircuit
	options solver.Options

	Start int
	End   int

	Parallel bool
	Progress ProgressFunc

	Results *TimeSeriesResults
	Logger  *util.Logger

	cancelled atomic.Bool
}

func NewTimeSeriesDriver(nc *circuit.NumericalCircuit, opts solver.Options, start, end int) *TimeSeriesDriver {
	if end <= 0 || end > nc.Ntime {
		end = nc.Ntime
	}
	if start < 0 {
		start = 0
	}
	return &TimeSeriesDriver{
		circuit: nc,
		options: opts,
		Start:   start,
		End:     end,
		Logger:  util.NewLogger(),
	}
}

// Cancel requests a cooperative stop, observed between time steps.
func (d *TimeSeriesDriver) Cancel() { d.cancelled.Store(true) }

func (d *TimeSeriesDriver) Run() error {
	nc := d.circuit
	if d.Start >= d.End {
		return fmt.Errorf("time series: empty range [%d, %d)", d.Start, d.End)
	}
	if !nc.Consolidated() {
		if err := nc.Consolidate(); err != nil {
			return fmt.Errorf("time series: %v", err)
		}
	}

	islands, err := nc.Islands()
	if err != nil {
		return fmt.Errorf("time series: %v", err)
	}

	d.Results = NewTimeSeriesResults(nc.Nbus, nc.Nbranch, d.Start, d.End)
	steps := d.End - d.Start

	for t := d.Start; t < d.End; t++ {
		if d.cancelled.Load() {
			d.Logger.AddInfo("time series cancelled", "", fmt.Sprintf("at step %d", t))
			d.Results.Converged = false
			break
		}

		step := NewPowerFlowResults(nc.Nbus, nc.Nbranch)
		ok := solveAllIslands(islands, t, d.options, d.Parallel, d.cancelled.Load, nil, step)
		if !ok {
			d.Results.Converged = false
		}

		row := t - d.Start
		d.Results.Voltage[row] = step.Voltage
		d.Results.Sf[row] = step.Sf
		d.Results.Losses[row] = step.Losses
		d.Results.Loading[row] = step.Loading
		d.Results.Reports[row] = step.Reports

		if d.Progress != nil {
			d.Progress(float64(row+1)/float64(steps), fmt.Sprintf("step %d/%d", row+1, steps))
		}
	}

	d.Results.Logger.Append(d.Logger)
	return nil
}
