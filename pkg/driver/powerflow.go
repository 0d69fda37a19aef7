package driver

import (
	"fmt"
	"math/cmplx"
	"sync"
	"sync/atomic"

	"github.com/edp1096/toy-powerflow/pkg/circuit"
	"github.com/edp1096/toy-powerflow/pkg/griddata"
	"github.com/edp1096/toy-powerflow/pkg/solver"
	"github.com/edp1096/toy-powerflow/pkg/util"
)

// ProgressFunc receives advisory progress updates. It may be nil.
type ProgressFunc func(fraction float64, text string)

// PowerFlowDriver orchestrates a full-network power flow: split into
// islands, solve each island that has a reference, and merge the
// island results back onto the original numbering.
type PowerFlowDriver struct {
	circuit *circuit.NumericalCircuit
	options solver.Options

	// Parallel solves islands on independent goroutines. Island inputs
	// are copies, not views, so no locking is needed until the single
	// threaded merge.
	Parallel bool
	Progress ProgressFunc

	Results *PowerFlowResults
	Logger  *util.Logger

	cancelled atomic.Bool
}

func NewPowerFlowDriver(nc *circuit.NumericalCircuit, opts solver.Options) *PowerFlowDriver {
	return &PowerFlowDriver{
		circuit: nc,
		options: opts,
		Logger:  util.NewLogger(),
	}
}

// Cancel requests a cooperative stop. The flag is observed between
// islands; an in-progress island solve runs to completion.
func (d *PowerFlowDriver) Cancel() { d.cancelled.Store(true) }

func (d *PowerFlowDriver) emit(fraction float64, text string) {
	if d.Progress != nil {
		d.Progress(fraction, text)
	}
}

// Run executes the snapshot power flow at time step 0.
func (d *PowerFlowDriver) Run() error {
	nc := d.circuit
	if !nc.Consolidated() {
		if err := nc.Consolidate(); err != nil {
			return fmt.Errorf("power flow: %v", err)
		}
	}

	islands, err := nc.Islands()
	if err != nil {
		return fmt.Errorf("power flow: %v", err)
	}

	d.Results = NewPowerFlowResults(nc.Nbus, nc.Nbranch)
	d.Results.Converged = solveAllIslands(islands, 0, d.options, d.Parallel,
		d.cancelled.Load, d.emit, d.Results)
	d.Results.Logger.Append(d.Logger)
	return nil
}

// solveAllIslands runs one time step over pre-sliced islands and
// merges into res. Returns the aggregate convergence: every island
// that had a slack bus converged. No-slack islands are reported but do
// not count as failures.
func solveAllIslands(islands []*circuit.NumericalCircuit, t int, opts solver.Options,
	parallel bool, cancelled func() bool, emit ProgressFunc, res *PowerFlowResults) bool {

	n := len(islands)
	reports := make([]ConvergenceReport, n)
	partials := make([]*islandResults, n)
	loggers := make([]*util.Logger, n)

	// every goroutine writes only its own slots; res is untouched until
	// the single-threaded merge below
	solveOne := func(id int) {
		reports[id].State = Solving
		lg := util.NewLogger()
		rep, ir := solveIsland(id, islands[id], t, opts, lg)
		reports[id] = rep
		partials[id] = ir
		loggers[id] = lg
	}

	if parallel {
		var wg sync.WaitGroup
		var mu sync.Mutex
		done := 0
		for id := 0; id < n; id++ {
			if cancelled() {
				reports[id] = ConvergenceReport{IslandID: id, NBuses: islands[id].Nbus, State: Unsolved}
				continue
			}
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				solveOne(id)
				if emit != nil {
					mu.Lock()
					done++
					emit(float64(done)/float64(n), fmt.Sprintf("island %d/%d", done, n))
					mu.Unlock()
				}
			}(id)
		}
		wg.Wait()
	} else {
		for id := 0; id < n; id++ {
			if cancelled() {
				reports[id] = ConvergenceReport{IslandID: id, NBuses: islands[id].Nbus, State: Unsolved}
				continue
			}
			solveOne(id)
			if emit != nil {
				emit(float64(id+1)/float64(n), fmt.Sprintf("island %d/%d", id+1, n))
			}
		}
	}

	// single-threaded disjoint scatter
	converged := true
	for id := 0; id < n; id++ {
		if partials[id] != nil {
			res.merge(partials[id])
		}
		res.Logger.Append(loggers[id])
		res.Reports = append(res.Reports, reports[id])
		if reports[id].HasSlack && reports[id].State != Converged {
			converged = false
		}
	}
	return converged
}

// solveIsland runs one island through the solver collaborator and
// post-processes its branch flows. Islands without a reference bus are
// reported NoSlack and left unsolved.
func solveIsland(id int, island *circuit.NumericalCircuit, t int, opts solver.Options,
	logger *util.Logger) (ConvergenceReport, *islandResults) {

	rep := ConvergenceReport{IslandID: id, NBuses: island.Nbus, State: Solving}

	in, err := island.Compile(t)
	if err != nil {
		logger.AddError("island compile failed", fmt.Sprintf("island %d", id), err.Error())
		rep.State = NotConverged
		return rep, nil
	}

	if !in.HasSlack() {
		logger.AddInfo("island has no slack bus, not solved", fmt.Sprintf("island %d", id),
			fmt.Sprintf("%d buses", island.Nbus))
		rep.State = NoSlack
		return rep, nil
	}
	rep.HasSlack = true

	sol, err := solver.Solve(in, opts)
	if err != nil {
		logger.AddError("island solve failed", fmt.Sprintf("island %d", id), err.Error())
		rep.State = NotConverged
		return rep, nil
	}

	rep.Method = sol.Method
	rep.Converged = sol.Converged
	rep.Iterations = sol.Iterations
	rep.Error = sol.Error
	rep.Elapsed = sol.Elapsed
	if sol.Converged {
		rep.State = Converged
	} else {
		rep.State = NotConverged
		logger.AddWarning("island did not converge", fmt.Sprintf("island %d", id),
			fmt.Sprintf("error=%g after %d iterations", sol.Error, sol.Iterations))
	}

	return rep, postProcess(island, in, sol)
}

// postProcess computes branch powers, losses and loading from the
// solved voltages, in MVA. Unconverged islands still report their last
// iterate so the caller can inspect how far the solve got.
func postProcess(island *circuit.NumericalCircuit, in *circuit.SolveInput, sol *solver.Solution) *islandResults {
	sb := complex(island.Sbase, 0)

	ifl := in.Yf.MulVec(sol.V)
	itl := in.Yt.MulVec(sol.V)

	sf := make([]complex128, in.Nbr)
	st := make([]complex128, in.Nbr)
	losses := make([]complex128, in.Nbr)
	loading := make([]float64, in.Nbr)
	for k := 0; k < in.Nbr; k++ {
		sf[k] = sol.V[in.F[k]] * cmplx.Conj(ifl[k]) * sb
		st[k] = sol.V[in.T[k]] * cmplx.Conj(itl[k]) * sb
		losses[k] = sf[k] + st[k]
		if in.BranchRates[k] > 0 {
			loading[k] = cmplx.Abs(sf[k]) / in.BranchRates[k]
		}
	}

	sbus := make([]complex128, in.Nbus)
	for i := 0; i < in.Nbus; i++ {
		sbus[i] = sol.Scalc[i] * sb
	}

	return &islandResults{
		busIdx:    in.OriginalBusIdx,
		branchIdx: in.OriginalBranchIdx,
		voltage:   sol.V,
		sbus:      sbus,
		types:     append([]griddata.BusType(nil), island.Bus.Types...),
		sf:        sf,
		st:        st,
		losses:    losses,
		loading:   loading,
	}
}
