package solver

import (
	"math"
	"math/cmplx"
	"sort"
	"time"

	"github.com/edp1096/toy-powerflow/pkg/circuit"
	"github.com/edp1096/toy-powerflow/pkg/matrix"
)

// newtonRaphson is the full Newton-Raphson power flow in polar form
// with a sparse LU Jacobian step and optional reactive-limit control.
type newtonRaphson struct{}

func (s *newtonRaphson) Name() string { return "Newton-Raphson" }

func (s *newtonRaphson) Solve(in *circuit.SolveInput, opts Options) (*Solution, error) {
	start := time.Now()

	v := append([]complex128(nil), in.V0...)
	sbus := append([]complex128(nil), in.Sbus...)
	pv := append([]int(nil), in.PV...)
	pq := append([]int(nil), in.PQ...)

	outer := 1
	if opts.ControlQ {
		outer = 4 // PV->PQ switching passes
	}

	var sol *Solution
	var err error
	for pass := 0; pass < outer; pass++ {
		pqpv := union(pv, pq)
		sol, err = s.iterate(in, sbus, v, pv, pq, pqpv, opts)
		if err != nil {
			return nil, err
		}
		if !sol.Converged || !opts.ControlQ {
			break
		}

		// reactive limit check at the buses still held as PV
		kept := pv[:0]
		switched := false
		for _, i := range pv {
			q := imag(sol.Scalc[i])
			switch {
			case q > in.Qmax[i]:
				sbus[i] = complex(real(sbus[i]), in.Qmax[i])
				pq = append(pq, i)
				switched = true
			case q < in.Qmin[i]:
				sbus[i] = complex(real(sbus[i]), in.Qmin[i])
				pq = append(pq, i)
				switched = true
			default:
				kept = append(kept, i)
			}
		}
		pv = kept
		if !switched {
			break
		}
		sort.Ints(pq)
		v = sol.V
	}

	sol.Elapsed = time.Since(start)
	sol.Method = NewtonRaphson
	return sol, nil
}

func (s *newtonRaphson) iterate(in *circuit.SolveInput, sbus, v0 []complex128, pv, pq, pqpv []int, opts Options) (*Solution, error) {
	n := len(v0)
	v := append([]complex128(nil), v0...)

	// unknown positions: theta over pqpv, then Vm over pq
	posTheta := make(map[int]int, len(pqpv))
	for k, i := range pqpv {
		posTheta[i] = k
	}
	posVm := make(map[int]int, len(pq))
	for k, i := range pq {
		posVm[i] = len(pqpv) + k
	}
	size := len(pqpv) + len(pq)

	scalc := computePower(in, v)
	sspec := specifiedPower(in, sbus, v)
	errNorm := mismatchNorm(scalc, sspec, pqpv, pq)
	if errNorm < opts.Tolerance {
		return &Solution{V: v, Scalc: scalc, Converged: true, Error: errNorm}, nil
	}

	iterations := 0
	for iter := 0; iter < opts.MaxIter; iter++ {
		iterations = iter + 1

		ls, err := matrix.NewLinearSystem(size, false)
		if err != nil {
			return nil, err
		}

		vm := make([]float64, n)
		va := make([]float64, n)
		for i := range v {
			vm[i] = cmplx.Abs(v[i])
			va[i] = cmplx.Phase(v[i])
		}

		// Jacobian in polar form, stamped row by row from Ybus
		for _, i := range pqpv {
			pRow := posTheta[i]
			qRow, hasQ := posVm[i]
			pi := real(scalc[i])
			qi := imag(scalc[i])

			for k := in.Ybus.RowPtr[i]; k < in.Ybus.RowPtr[i+1]; k++ {
				j := in.Ybus.ColIdx[k]
				g := real(in.Ybus.Data[k])
				b := imag(in.Ybus.Data[k])

				if j == i {
					ls.Add(pRow, pRow, -qi-b*vm[i]*vm[i]) // dP/dtheta_i
					if col, ok := posVm[i]; ok {
						ls.Add(pRow, col, pi/vm[i]+g*vm[i]) // dP/dVm_i
					}
					if hasQ {
						ls.Add(qRow, pRow, pi-g*vm[i]*vm[i]) // dQ/dtheta_i
						if col, ok := posVm[i]; ok {
							ls.Add(qRow, col, qi/vm[i]-b*vm[i]) // dQ/dVm_i
						}
					}
					continue
				}

				tij := va[i] - va[j]
				sin, cos := math.Sin(tij), math.Cos(tij)

				if col, ok := posTheta[j]; ok {
					ls.Add(pRow, col, vm[i]*vm[j]*(g*sin-b*cos))
					if hasQ {
						ls.Add(qRow, col, -vm[i]*vm[j]*(g*cos+b*sin))
					}
				}
				if col, ok := posVm[j]; ok {
					ls.Add(pRow, col, vm[i]*(g*cos+b*sin))
					if hasQ {
						ls.Add(qRow, col, vm[i]*(g*sin-b*cos))
					}
				}
			}

			ls.AddRHS(pRow, real(sspec[i])-pi)
			if hasQ {
				ls.AddRHS(qRow, imag(sspec[i])-qi)
			}
		}

		if err := ls.Solve(); err != nil {
			// singular Jacobian: report the last iterate, unconverged
			return &Solution{V: v, Scalc: scalc, Converged: false, Iterations: iterations, Error: errNorm}, nil
		}
		dx := ls.Solution()

		for _, i := range pqpv {
			va[i] += dx[posTheta[i]]
		}
		for _, i := range pq {
			vm[i] += dx[posVm[i]]
		}
		for i := range v {
			v[i] = cmplx.Rect(vm[i], va[i])
		}

		scalc = computePower(in, v)
		sspec = specifiedPower(in, sbus, v)
		errNorm = mismatchNorm(scalc, sspec, pqpv, pq)
		if errNorm < opts.Tolerance {
			return &Solution{V: v, Scalc: scalc, Converged: true, Iterations: iterations, Error: errNorm}, nil
		}
	}

	return &Solution{V: v, Scalc: scalc, Converged: false, Iterations: iterations, Error: errNorm}, nil
}

// union merges two disjoint index sets, ascending.
func union(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	sort.Ints(out)
	return out
}
