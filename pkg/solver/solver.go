package solver

import (
	"fmt"
	"math"
	"math/cmplx"
	"time"

	"github.com/edp1096/toy-powerflow/internal/consts"
	"github.com/edp1096/toy-powerflow/pkg/circuit"
)

type SolverType int

const (
	NewtonRaphson SolverType = iota
	GaussSeidel
	LinearAC
	DCApproximation
)

func (t SolverType) String() string {
	switch t {
	case NewtonRaphson:
		return "Newton-Raphson"
	case GaussSeidel:
		return "Gauss-Seidel"
	case LinearAC:
		return "Linear AC"
	case DCApproximation:
		return "DC approximation"
	default:
		return "Unknown"
	}
}

// Options configures one solve. It is passed by value so concurrent
// solves can never observe each other's settings.
type Options struct {
	Type                  SolverType
	Tolerance             float64
	MaxIter               int
	ControlQ              bool // enforce reactive limits with PV->PQ switching
	RetryWithOtherMethods bool
}

func DefaultOptions() Options {
	return Options{
		Type:      NewtonRaphson,
		Tolerance: consts.DefaultTol,
		MaxIter:   consts.DefaultIters,
	}
}

// Solution is what a solver hands back: the voltages (last iterate if
// not converged), the convergence flag and the final mismatch norm.
type Solution struct {
	V          []complex128
	Scalc      []complex128
	Converged  bool
	Iterations int
	Error      float64
	Elapsed    time.Duration
	Method     SolverType
}

// Solver is the collaborator boundary: anything that can take an
// island's compiled input and produce voltages.
type Solver interface {
	Name() string
	Solve(in *circuit.SolveInput, opts Options) (*Solution, error)
}

// Get returns the solver implementation for the requested type.
func Get(t SolverType) (Solver, error) {
	switch t {
	case NewtonRaphson:
		return &newtonRaphson{}, nil
	case GaussSeidel:
		return &gaussSeidel{}, nil
	case LinearAC:
		return &linearAC{}, nil
	case DCApproximation:
		return &dcApproximation{}, nil
	default:
		return nil, fmt.Errorf("unknown solver type %d", int(t))
	}
}

// Solve dispatches the configured solver. With RetryWithOtherMethods it
// falls back through the remaining iterative methods until one
// converges; the best attempt is returned either way. One-shot
// approximations never enter the fallback chain: they report success
// regardless of mismatch, which would mask a genuinely diverging island.
func Solve(in *circuit.SolveInput, opts Options) (*Solution, error) {
	if sol, done := trivialSolution(in, opts); done {
		return sol, nil
	}

	order := []SolverType{opts.Type}
	if opts.RetryWithOtherMethods {
		for _, t := range []SolverType{NewtonRaphson, GaussSeidel} {
			if t != opts.Type {
				order = append(order, t)
			}
		}
	}

	var best *Solution
	for _, t := range order {
		sv, err := Get(t)
		if err != nil {
			return nil, err
		}
		sol, err := sv.Solve(in, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", sv.Name(), err)
		}
		sol.Method = t
		if sol.Converged {
			return sol, nil
		}
		if best == nil || sol.Error < best.Error {
			best = sol
		}
	}
	return best, nil
}

// trivialSolution short-circuits islands with nothing to iterate on: a
// slack-only island is converged by definition at its setpoint voltage.
func trivialSolution(in *circuit.SolveInput, opts Options) (*Solution, bool) {
	if len(in.Pqpv) > 0 {
		return nil, false
	}
	v := append([]complex128(nil), in.V0...)
	return &Solution{
		V:         v,
		Scalc:     computePower(in, v),
		Converged: true,
		Method:    opts.Type,
	}, true
}

// computePower evaluates S = V conj(Ybus V) at the given voltage.
func computePower(in *circuit.SolveInput, v []complex128) []complex128 {
	i := in.Ybus.MulVec(v)
	s := make([]complex128, len(v))
	for k := range v {
		s[k] = v[k] * cmplx.Conj(i[k])
	}
	return s
}

// specifiedPower evaluates the ZIP-corrected scheduled injections at
// the present voltage magnitude. sbus may differ from in.Sbus when
// reactive control has pinned a bus to a limit.
func specifiedPower(in *circuit.SolveInput, sbus, v []complex128) []complex128 {
	s := make([]complex128, len(v))
	for k := range v {
		vm := cmplx.Abs(v[k])
		s[k] = sbus[k] + in.Ibus[k]*complex(vm, 0) + in.Yload[k]*complex(vm*vm, 0)
	}
	return s
}

// mismatchNorm is the infinity norm of the power mismatch restricted to
// the rows that constrain the solve: P at PV and PQ buses, Q at PQ.
func mismatchNorm(scalc, sspec []complex128, pqpv, pq []int) float64 {
	worst := 0.0
	for _, i := range pqpv {
		if d := math.Abs(real(scalc[i]) - real(sspec[i])); d > worst {
			worst = d
		}
	}
	for _, i := range pq {
		if d := math.Abs(imag(scalc[i]) - imag(sspec[i])); d > worst {
			worst = d
		}
	}
	return worst
}
