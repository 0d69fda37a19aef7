package solver

import (
	"math/cmplx"
	"time"

	"github.com/edp1096/toy-powerflow/internal/consts"
	"github.com/edp1096/toy-powerflow/pkg/circuit"
)

// gaussSeidel is the classic per-bus sweep. Slow but nearly assumption
// free, which makes it the fallback when Newton's basin is missed.
type gaussSeidel struct{}

func (s *gaussSeidel) Name() string { return "Gauss-Seidel" }

func (s *gaussSeidel) Solve(in *circuit.SolveInput, opts Options) (*Solution, error) {
	start := time.Now()

	v := append([]complex128(nil), in.V0...)
	maxIter := opts.MaxIter
	if maxIter < consts.GaussIters {
		maxIter = consts.GaussIters
	}

	isPV := make(map[int]bool, len(in.PV))
	for _, i := range in.PV {
		isPV[i] = true
	}
	vsetPV := make(map[int]float64, len(in.PV))
	for _, i := range in.PV {
		vsetPV[i] = cmplx.Abs(in.V0[i])
	}

	var errNorm float64
	iterations := 0
	for iter := 0; iter < maxIter; iter++ {
		iterations = iter + 1

		for _, i := range in.Pqpv {
			var sum complex128
			var yii complex128
			for k := in.Ybus.RowPtr[i]; k < in.Ybus.RowPtr[i+1]; k++ {
				j := in.Ybus.ColIdx[k]
				if j == i {
					yii = in.Ybus.Data[k]
				} else {
					sum += in.Ybus.Data[k] * v[j]
				}
			}
			if yii == 0 {
				continue // isolated bus row, nothing to update
			}

			vm := cmplx.Abs(v[i])
			si := in.Sbus[i] + in.Ibus[i]*complex(vm, 0) + in.Yload[i]*complex(vm*vm, 0)
			if isPV[i] {
				q := imag(v[i] * cmplx.Conj(sum+yii*v[i]))
				si = complex(real(si), q)
			}

			vNew := (cmplx.Conj(si/v[i]) - sum) / yii
			if isPV[i] {
				// hold the controlled magnitude, keep the new angle
				vNew = cmplx.Rect(vsetPV[i], cmplx.Phase(vNew))
			}
			v[i] = vNew
		}

		scalc := computePower(in, v)
		sspec := specifiedPower(in, in.Sbus, v)
		errNorm = mismatchNorm(scalc, sspec, in.Pqpv, in.PQ)
		if errNorm < opts.Tolerance {
			return &Solution{
				V: v, Scalc: scalc, Converged: true,
				Iterations: iterations, Error: errNorm,
				Elapsed: time.Since(start), Method: GaussSeidel,
			}, nil
		}
	}

	scalc := computePower(in, v)
	return &Solution{
		V: v, Scalc: scalc, Converged: false,
		Iterations: iterations, Error: errNorm,
		Elapsed: time.Since(start), Method: GaussSeidel,
	}, nil
}
