package solver

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-powerflow/pkg/circuit"
)

// lynnGrid is the 5-bus tutorial network: a slack generator on bus 0
// and four loaded buses meshed by seven lines.
func lynnGrid(t *testing.T) *circuit.NumericalCircuit {
	t.Helper()

	nc := circuit.New(circuit.Counts{Nbus: 5, Nbranch: 7, Nload: 4, Ngen: 1}, 100, 1)

	type ln struct {
		f, t    int
		r, x, b float64
	}
	lines := []ln{
		{0, 1, 0.05, 0.11, 0.02},
		{0, 2, 0.05, 0.11, 0.02},
		{0, 4, 0.03, 0.08, 0.02},
		{1, 2, 0.04, 0.09, 0.02},
		{1, 4, 0.04, 0.09, 0.02},
		{2, 3, 0.06, 0.13, 0.03},
		{3, 4, 0.04, 0.09, 0.02},
	}
	for k, l := range lines {
		nc.Branch.F[k] = l.f
		nc.Branch.T[k] = l.t
		nc.Branch.R[k] = l.r
		nc.Branch.X[k] = l.x
		nc.Branch.B[k] = l.b
		nc.Branch.Rates[k][0] = 100
	}

	loads := []complex128{complex(40, 20), complex(25, 15), complex(40, 20), complex(50, 20)}
	for k, s := range loads {
		nc.Load.Bus[k] = k + 1
		nc.Load.S[k][0] = s
	}

	nc.Gen.IsSlack[0] = true

	require.NoError(t, nc.Consolidate())
	return nc
}

func lynnInput(t *testing.T) *circuit.SolveInput {
	t.Helper()
	in, err := lynnGrid(t).Compile(0)
	require.NoError(t, err)
	return in
}

func TestNewtonRaphsonConverges(t *testing.T) {
	in := lynnInput(t)
	opts := DefaultOptions()

	sol, err := Solve(in, opts)
	require.NoError(t, err)

	assert.True(t, sol.Converged)
	assert.Equal(t, NewtonRaphson, sol.Method)
	assert.Less(t, sol.Error, opts.Tolerance)
	assert.Greater(t, sol.Iterations, 0)
	assert.LessOrEqual(t, sol.Iterations, opts.MaxIter)

	// slack holds its setpoint, load buses sag below it
	assert.InDelta(t, 1.0, cmplx.Abs(sol.V[0]), 1e-9)
	assert.InDelta(t, 0, cmplx.Phase(sol.V[0]), 1e-9)
	for i := 1; i < 5; i++ {
		vm := cmplx.Abs(sol.V[i])
		assert.Greater(t, vm, 0.85, "bus %d", i)
		assert.Less(t, vm, 1.0, "bus %d", i)
	}

	// the converged voltage satisfies the mismatch equations
	scalc := computePower(in, sol.V)
	sspec := specifiedPower(in, in.Sbus, sol.V)
	assert.Less(t, mismatchNorm(scalc, sspec, in.Pqpv, in.PQ), opts.Tolerance)
}

func TestGaussSeidelMatchesNewton(t *testing.T) {
	in := lynnInput(t)

	nrOpts := DefaultOptions()
	nr, err := Solve(in, nrOpts)
	require.NoError(t, err)
	require.True(t, nr.Converged)

	gsOpts := DefaultOptions()
	gsOpts.Type = GaussSeidel
	gs, err := Solve(in, gsOpts)
	require.NoError(t, err)
	require.True(t, gs.Converged)
	assert.Equal(t, GaussSeidel, gs.Method)

	for i := range nr.V {
		assert.InDelta(t, 0, cmplx.Abs(nr.V[i]-gs.V[i]), 1e-4, "bus %d", i)
	}
}

func TestLinearACApproximatesNewton(t *testing.T) {
	in := lynnInput(t)

	nr, err := Solve(in, DefaultOptions())
	require.NoError(t, err)
	require.True(t, nr.Converged)

	opts := DefaultOptions()
	opts.Type = LinearAC
	lin, err := Solve(in, opts)
	require.NoError(t, err)

	// one-shot method: always reports done, with the residual as Error
	assert.True(t, lin.Converged)
	assert.Equal(t, LinearAC, lin.Method)
	for i := range nr.V {
		assert.InDelta(t, 0, cmplx.Abs(nr.V[i]-lin.V[i]), 0.05, "bus %d", i)
	}
}

func TestDCApproximationAngles(t *testing.T) {
	in := lynnInput(t)

	nr, err := Solve(in, DefaultOptions())
	require.NoError(t, err)
	require.True(t, nr.Converged)

	opts := DefaultOptions()
	opts.Type = DCApproximation
	dc, err := Solve(in, opts)
	require.NoError(t, err)
	require.True(t, dc.Converged)

	for i := range dc.V {
		// magnitudes stay flat, angles track the full solution loosely
		assert.InDelta(t, 1.0, cmplx.Abs(dc.V[i]), 1e-9, "bus %d", i)
		assert.InDelta(t, cmplx.Phase(nr.V[i]), cmplx.Phase(dc.V[i]), 0.05, "bus %d", i)
	}
}

func TestTrivialSlackOnlyIsland(t *testing.T) {
	nc := circuit.New(circuit.Counts{Nbus: 1, Ngen: 1}, 100, 1)
	nc.Gen.IsSlack[0] = true
	nc.Gen.Vset[0][0] = 1.03
	require.NoError(t, nc.Consolidate())
	in, err := nc.Compile(0)
	require.NoError(t, err)
	require.Empty(t, in.Pqpv)

	sol, err := Solve(in, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, sol.Converged)
	assert.Equal(t, 0, sol.Iterations)
	assert.Equal(t, complex(1.03, 0), sol.V[0])
}

func TestReactiveLimitEnforcement(t *testing.T) {
	src := lynnGrid(t)

	// same network with a second, voltage-controlled machine at bus 2
	// whose reactive ceiling is far below what holding 1.05 p.u. needs
	nc := circuit.New(circuit.Counts{Nbus: 5, Nbranch: 7, Nload: 4, Ngen: 2}, 100, 1)
	for k := 0; k < 7; k++ {
		nc.Branch.F[k] = src.Branch.F[k]
		nc.Branch.T[k] = src.Branch.T[k]
		nc.Branch.R[k] = src.Branch.R[k]
		nc.Branch.X[k] = src.Branch.X[k]
		nc.Branch.B[k] = src.Branch.B[k]
		nc.Branch.Rates[k][0] = 100
	}
	for k := 0; k < 4; k++ {
		nc.Load.Bus[k] = src.Load.Bus[k]
		nc.Load.S[k][0] = src.Load.S[k][0]
	}
	nc.Gen.IsSlack[0] = true
	nc.Gen.Bus[1] = 2
	nc.Gen.Vset[1][0] = 1.05
	nc.Gen.Qmin[1] = -1
	nc.Gen.Qmax[1] = 1
	require.NoError(t, nc.Consolidate())

	in, err := nc.Compile(0)
	require.NoError(t, err)
	require.Equal(t, []int{2}, in.PV)

	opts := DefaultOptions()
	opts.ControlQ = true
	sol, err := Solve(in, opts)
	require.NoError(t, err)
	require.True(t, sol.Converged)

	// the limited machine cannot hold its setpoint
	assert.Less(t, cmplx.Abs(sol.V[2]), 1.05)

	unlimited := DefaultOptions()
	free, err := Solve(in, unlimited)
	require.NoError(t, err)
	require.True(t, free.Converged)
	assert.InDelta(t, 1.05, cmplx.Abs(free.V[2]), 1e-6)
}

func TestGetUnknownSolverType(t *testing.T) {
	_, err := Get(SolverType(99))
	require.Error(t, err)
}

func TestRetryFallbackReturnsBestAttempt(t *testing.T) {
	in := lynnInput(t)

	opts := DefaultOptions()
	opts.Type = NewtonRaphson
	opts.MaxIter = 1 // starve NR so the fallback chain engages
	opts.RetryWithOtherMethods = true

	sol, err := Solve(in, opts)
	require.NoError(t, err)
	require.NotNil(t, sol)
	// Gauss-Seidel ignores the starved iteration cap and converges
	assert.True(t, sol.Converged)
	assert.Equal(t, GaussSeidel, sol.Method)
}

func TestRetryNeverAcceptsApproximation(t *testing.T) {
	// a load far beyond the line's transfer capability: no operating
	// point exists, so every iterative method must fail and the retry
	// chain must not paper over it with a one-shot approximation
	nc := circuit.New(circuit.Counts{Nbus: 2, Nbranch: 1, Nload: 1, Ngen: 1}, 100, 1)
	nc.Branch.F[0], nc.Branch.T[0] = 0, 1
	nc.Branch.R[0], nc.Branch.X[0] = 0.05, 0.2
	nc.Branch.Rates[0][0] = 100
	nc.Load.Bus[0] = 1
	nc.Load.S[0][0] = complex(5000, 2000)
	nc.Gen.IsSlack[0] = true
	require.NoError(t, nc.Consolidate())
	in, err := nc.Compile(0)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.RetryWithOtherMethods = true

	sol, err := Solve(in, opts)
	require.NoError(t, err)
	require.NotNil(t, sol)
	assert.False(t, sol.Converged)
	assert.False(t, sol.Error < opts.Tolerance)
	assert.NotEqual(t, LinearAC, sol.Method)
	assert.NotEqual(t, DCApproximation, sol.Method)
}

func TestEstimateStateRecoversVoltage(t *testing.T) {
	in := lynnInput(t)

	nr, err := Solve(in, DefaultOptions())
	require.NoError(t, err)
	require.True(t, nr.Converged)

	meas := &MeasurementSet{}
	for i := 0; i < in.Nbus; i++ {
		meas.Add(PInjection, i, real(nr.Scalc[i]), 0.001)
		meas.Add(QInjection, i, imag(nr.Scalc[i]), 0.001)
		meas.Add(VoltageModule, i, cmplx.Abs(nr.V[i]), 0.001)
	}
	meas.Add(PFlow, 0, real(nr.V[in.F[0]]*cmplx.Conj(in.Yf.MulVec(nr.V)[0])), 0.001)

	opts := DefaultOptions()
	opts.MaxIter = 40
	sol, err := EstimateState(in, meas, opts)
	require.NoError(t, err)
	require.True(t, sol.Converged)

	for i := range nr.V {
		assert.InDelta(t, cmplx.Abs(nr.V[i]), cmplx.Abs(sol.V[i]), 1e-4, "bus %d", i)
		assert.InDelta(t, cmplx.Phase(nr.V[i]), cmplx.Phase(sol.V[i]), 1e-4, "bus %d", i)
	}
}

func TestEstimateStateUnderdetermined(t *testing.T) {
	in := lynnInput(t)

	meas := &MeasurementSet{}
	meas.Add(VoltageModule, 0, 1.0, 0.01)
	_, err := EstimateState(in, meas, DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "underdetermined")
}

func TestMeasurementValidation(t *testing.T) {
	in := lynnInput(t)

	bad := &MeasurementSet{}
	bad.Add(PFlow, 42, 0.1, 0.01)
	_, err := EstimateState(in, bad, DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	zeroSigma := &MeasurementSet{}
	for i := 0; i < 20; i++ {
		zeroSigma.Add(VoltageModule, i%in.Nbus, 1.0, 0)
	}
	_, err = EstimateState(in, zeroSigma, DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sigma")
}

func TestMismatchNormRestriction(t *testing.T) {
	scalc := []complex128{complex(1, 5), complex(0.5, 0.2)}
	sspec := []complex128{complex(1, 0), complex(0.4, 0.2)}

	// bus 0 is PV: its Q error must not count
	norm := mismatchNorm(scalc, sspec, []int{0, 1}, []int{1})
	assert.InDelta(t, 0.1, norm, 1e-12)
	assert.False(t, math.IsNaN(norm))
}
