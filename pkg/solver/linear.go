package solver

import (
	"math/cmplx"
	"time"

	"github.com/edp1096/toy-powerflow/pkg/circuit"
	"github.com/edp1096/toy-powerflow/pkg/matrix"
)

// linearAC solves the current-injection linearization in one shot:
// the scheduled powers become currents at the initial voltage and the
// reduced complex system is solved directly. Non-iterative, so it is
// reported converged with its residual mismatch on record.
type linearAC struct{}

func (s *linearAC) Name() string { return "Linear AC" }

func (s *linearAC) Solve(in *circuit.SolveInput, opts Options) (*Solution, error) {
	start := time.Now()

	v := append([]complex128(nil), in.V0...)
	red := in.Pqpv
	pos := make(map[int]int, len(red))
	for k, i := range red {
		pos[i] = k
	}

	ls, err := matrix.NewLinearSystem(len(red), true)
	if err != nil {
		return nil, err
	}

	for _, i := range red {
		row := pos[i]
		var slackFeed complex128
		for k := in.Ybus.RowPtr[i]; k < in.Ybus.RowPtr[i+1]; k++ {
			j := in.Ybus.ColIdx[k]
			if col, ok := pos[j]; ok {
				ls.AddComplex(row, col, in.Ybus.Data[k])
			} else {
				slackFeed += in.Ybus.Data[k] * v[j] // fixed slack voltage
			}
		}
		vm := cmplx.Abs(v[i])
		sspec := in.Sbus[i] + in.Ibus[i]*complex(vm, 0) + in.Yload[i]*complex(vm*vm, 0)
		ls.AddComplexRHS(row, cmplx.Conj(sspec/v[i])-slackFeed)
	}

	if err := ls.Solve(); err != nil {
		scalc := computePower(in, v)
		sspec := specifiedPower(in, in.Sbus, v)
		return &Solution{
			V: v, Scalc: scalc, Converged: false,
			Error:   mismatchNorm(scalc, sspec, in.Pqpv, in.PQ),
			Elapsed: time.Since(start), Method: LinearAC,
		}, nil
	}

	x := ls.ComplexSolution()
	for k, i := range red {
		v[i] = x[k]
	}

	scalc := computePower(in, v)
	sspec := specifiedPower(in, in.Sbus, v)
	return &Solution{
		V: v, Scalc: scalc, Converged: true, Iterations: 1,
		Error:   mismatchNorm(scalc, sspec, in.Pqpv, in.PQ),
		Elapsed: time.Since(start), Method: LinearAC,
	}, nil
}

// dcApproximation is the classic lossless angle-only method over the
// series susceptances.
type dcApproximation struct{}

func (s *dcApproximation) Name() string { return "DC approximation" }

func (s *dcApproximation) Solve(in *circuit.SolveInput, opts Options) (*Solution, error) {
	start := time.Now()

	red := in.Pqpv
	pos := make(map[int]int, len(red))
	for k, i := range red {
		pos[i] = k
	}

	ls, err := matrix.NewLinearSystem(len(red), false)
	if err != nil {
		return nil, err
	}

	for _, i := range red {
		row := pos[i]
		for k := in.Yseries.RowPtr[i]; k < in.Yseries.RowPtr[i+1]; k++ {
			j := in.Yseries.ColIdx[k]
			if col, ok := pos[j]; ok {
				ls.Add(row, col, -imag(in.Yseries.Data[k]))
			}
		}
		ls.AddRHS(row, real(in.Sbus[i])+real(in.Ibus[i]))
	}

	v := append([]complex128(nil), in.V0...)
	if err := ls.Solve(); err == nil {
		theta := ls.Solution()
		for k, i := range red {
			v[i] = cmplx.Rect(cmplx.Abs(in.V0[i]), theta[k])
		}
	}

	scalc := computePower(in, v)
	sspec := specifiedPower(in, in.Sbus, v)
	return &Solution{
		V: v, Scalc: scalc, Converged: true, Iterations: 1,
		Error:   mismatchNorm(scalc, sspec, in.Pqpv, in.PQ),
		Elapsed: time.Since(start), Method: DCApproximation,
	}, nil
}
