package driver

import (
	"time"

	"github.com/edp1096/toy-powerflow/pkg/solver"
)

// IslandState is the lifecycle of one island inside a run. NoSlack and
// NotConverged are terminal-with-report: they never abort the rest of
// the run.
type IslandState int

const (
	Unsolved IslandState = iota
	Solving
	Converged
	NotConverged
	NoSlack
)

func (s IslandState) String() string {
	switch s {
	case Unsolved:
		return "Unsolved"
	case Solving:
		return "Solving"
	case Converged:
		return "Converged"
	case NotConverged:
		return "NotConverged"
	case NoSlack:
		return "NoSlack"
	default:
		return "Unknown"
	}
}

// ConvergenceReport is the per-island outcome record.
type ConvergenceReport struct {
	IslandID   int
	NBuses     int
	HasSlack   bool
	State      IslandState
	Method     solver.SolverType
	Converged  bool
	Iterations int
	Error      float64
	Elapsed    time.Duration
}
