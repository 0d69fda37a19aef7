package solver

import (
	"fmt"
	"math"
	"math/cmplx"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/edp1096/toy-powerflow/pkg/circuit"
)

type MeasurementType int

const (
	PInjection MeasurementType = iota
	QInjection
	PFlow
	QFlow
	IFlow
	VoltageModule
)

// Measurement is one telemetered value: a bus injection, a branch flow
// at the from side, or a bus voltage magnitude. Index is a bus index
// for injection/voltage types and a branch index for flow types.
type Measurement struct {
	Type  MeasurementType
	Index int
	Value float64 // p.u.
	Sigma float64 // standard deviation
}

// MeasurementSet is the input of the weighted-least-squares estimator.
type MeasurementSet struct {
	Measurements []Measurement
}

func (m *MeasurementSet) Add(t MeasurementType, index int, value, sigma float64) {
	m.Measurements = append(m.Measurements, Measurement{Type: t, Index: index, Value: value, Sigma: sigma})
}

// Consolidate returns the measurement vector and its sigmas.
func (m *MeasurementSet) Consolidate() (z, sigma []float64) {
	z = make([]float64, len(m.Measurements))
	sigma = make([]float64, len(m.Measurements))
	for k, ms := range m.Measurements {
		z[k] = ms.Value
		sigma[k] = ms.Sigma
	}
	return z, sigma
}

func (m *MeasurementSet) check(in *circuit.SolveInput) error {
	for _, ms := range m.Measurements {
		switch ms.Type {
		case PFlow, QFlow, IFlow:
			if ms.Index < 0 || ms.Index >= in.Nbr {
				return fmt.Errorf("measurement: branch index %d out of range [0, %d)", ms.Index, in.Nbr)
			}
		default:
			if ms.Index < 0 || ms.Index >= in.Nbus {
				return fmt.Errorf("measurement: bus index %d out of range [0, %d)", ms.Index, in.Nbus)
			}
		}
		if ms.Sigma <= 0 {
			return fmt.Errorf("measurement: sigma must be positive, got %g", ms.Sigma)
		}
	}
	return nil
}

// EstimateState runs a Gauss-Newton weighted-least-squares estimation
// on one island. State variables are the angles at non-slack buses and
// the magnitudes at every bus; the Jacobian is built by forward
// differences and the normal equations are solved densely.
func EstimateState(in *circuit.SolveInput, meas *MeasurementSet, opts Options) (*Solution, error) {
	start := time.Now()

	if err := meas.check(in); err != nil {
		return nil, err
	}
	if len(meas.Measurements) == 0 {
		return nil, fmt.Errorf("state estimation needs at least one measurement")
	}

	nState := len(in.Pqpv) + in.Nbus
	z, sigma := meas.Consolidate()
	nz := len(z)
	if nz < nState {
		return nil, fmt.Errorf("state estimation is underdetermined: %d measurements for %d states", nz, nState)
	}

	w := make([]float64, nz)
	for k := range w {
		w[k] = 1 / (sigma[k] * sigma[k])
	}

	va := make([]float64, in.Nbus)
	vm := make([]float64, in.Nbus)
	for i, v := range in.V0 {
		va[i] = cmplx.Phase(v)
		vm[i] = cmplx.Abs(v)
	}

	const eps = 1e-7
	var errNorm float64
	iterations := 0
	converged := false

	for iter := 0; iter < opts.MaxIter; iter++ {
		iterations = iter + 1

		h0 := measurementModel(in, meas, va, vm)
		r := mat.NewVecDense(nz, nil)
		for k := 0; k < nz; k++ {
			r.SetVec(k, z[k]-h0[k])
		}

		jac := mat.NewDense(nz, nState, nil)
		for s := 0; s < nState; s++ {
			vaP := append([]float64(nil), va...)
			vmP := append([]float64(nil), vm...)
			if s < len(in.Pqpv) {
				vaP[in.Pqpv[s]] += eps
			} else {
				vmP[s-len(in.Pqpv)] += eps
			}
			hP := measurementModel(in, meas, vaP, vmP)
			for k := 0; k < nz; k++ {
				jac.Set(k, s, (hP[k]-h0[k])/eps)
			}
		}

		// normal equations: (H' W H) dx = H' W r
		wh := mat.NewDense(nz, nState, nil)
		wr := mat.NewVecDense(nz, nil)
		for k := 0; k < nz; k++ {
			for s := 0; s < nState; s++ {
				wh.Set(k, s, w[k]*jac.At(k, s))
			}
			wr.SetVec(k, w[k]*r.AtVec(k))
		}
		var gain mat.Dense
		gain.Mul(jac.T(), wh)
		var rhs mat.VecDense
		rhs.MulVec(jac.T(), wr)

		var dx mat.VecDense
		if err := dx.SolveVec(&gain, &rhs); err != nil {
			break // singular gain matrix, report last iterate
		}

		errNorm = 0
		for s := 0; s < nState; s++ {
			d := dx.AtVec(s)
			if math.Abs(d) > errNorm {
				errNorm = math.Abs(d)
			}
			if s < len(in.Pqpv) {
				va[in.Pqpv[s]] += d
			} else {
				vm[s-len(in.Pqpv)] += d
			}
		}

		if errNorm < opts.Tolerance {
			converged = true
			break
		}
	}

	v := make([]complex128, in.Nbus)
	for i := range v {
		v[i] = cmplx.Rect(vm[i], va[i])
	}

	return &Solution{
		V:          v,
		Scalc:      computePower(in, v),
		Converged:  converged,
		Iterations: iterations,
		Error:      errNorm,
		Elapsed:    time.Since(start),
		Method:     NewtonRaphson,
	}, nil
}

// measurementModel evaluates every measurement function at the given
// polar state.
func measurementModel(in *circuit.SolveInput, meas *MeasurementSet, va, vm []float64) []float64 {
	v := make([]complex128, in.Nbus)
	for i := range v {
		v[i] = cmplx.Rect(vm[i], va[i])
	}
	ibus := in.Ybus.MulVec(v)
	iflow := in.Yf.MulVec(v)

	h := make([]float64, len(meas.Measurements))
	for k, ms := range meas.Measurements {
		switch ms.Type {
		case PInjection:
			h[k] = real(v[ms.Index] * cmplx.Conj(ibus[ms.Index]))
		case QInjection:
			h[k] = imag(v[ms.Index] * cmplx.Conj(ibus[ms.Index]))
		case PFlow:
			h[k] = real(v[in.F[ms.Index]] * cmplx.Conj(iflow[ms.Index]))
		case QFlow:
			h[k] = imag(v[in.F[ms.Index]] * cmplx.Conj(iflow[ms.Index]))
		case IFlow:
			h[k] = cmplx.Abs(iflow[ms.Index])
		case VoltageModule:
			h[k] = vm[ms.Index]
		}
	}
	return h
}
