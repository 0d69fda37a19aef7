package circuit

import (
	"fmt"
	"sort"

	"github.com/edp1096/toy-powerflow/internal/consts"
	"github.com/edp1096/toy-powerflow/pkg/griddata"
	"github.com/edp1096/toy-powerflow/pkg/matrix"
)

// SolveInput is the per-island view handed to a solver: the admittance
// model, the injection vectors, the bus classification and the initial
// voltage guess. All slices are independent copies of circuit state.
type SolveInput struct {
	Nbus int
	Nbr  int

	Ybus    *matrix.CSR
	Yf      *matrix.CSR
	Yt      *matrix.CSR
	Yseries *matrix.CSR
	Yshunt  []complex128

	Sbus  []complex128 // scheduled power injections (p.u.)
	Ibus  []complex128 // constant-current injections (p.u.)
	Yload []complex128 // constant-admittance load parts (p.u.)

	V0 []complex128

	Qmin []float64 // aggregated per-bus reactive limits (p.u.)
	Qmax []float64

	Slack []int
	PV    []int
	PQ    []int
	Pqpv  []int

	F []int
	T []int

	BranchRates []float64 // MVA

	OriginalBusIdx    []int
	OriginalBranchIdx []int
}

// HasSlack reports whether the island carries a usable reference.
func (in *SolveInput) HasSlack() bool { return len(in.Slack) > 0 }

// ComputeBusTypes derives the control classification at time t: slack
// where an active slack generator or HVDC reference converter sits, PV
// where an active voltage-controlled generator or battery sits, PQ
// otherwise. The result lands in Bus.Types.
func (nc *NumericalCircuit) ComputeBusTypes(t int) {
	for i := 0; i < nc.Nbus; i++ {
		nc.Bus.Types[i] = griddata.PQ
	}

	for k := 0; k < nc.Ngen; k++ {
		if !nc.Gen.Active[k][t] {
			continue
		}
		b := nc.Gen.Bus[k]
		if nc.Gen.IsSlack[k] {
			nc.Bus.Types[b] = griddata.Slack
		} else if nc.Gen.Controllable[k] && nc.Bus.Types[b] != griddata.Slack {
			nc.Bus.Types[b] = griddata.PV
		}
	}

	for k := 0; k < nc.Nbatt; k++ {
		if !nc.Batt.Active[k][t] {
			continue
		}
		b := nc.Batt.Bus[k]
		if nc.Batt.Controllable[k] && nc.Bus.Types[b] != griddata.Slack {
			nc.Bus.Types[b] = griddata.PV
		}
	}

	for k := 0; k < nc.Nhvdc; k++ {
		if !nc.Hvdc.Active[k][t] {
			continue
		}
		if nc.Hvdc.RefF[k] {
			nc.Bus.Types[nc.Hvdc.F[k]] = griddata.Slack
		}
		if nc.Hvdc.RefT[k] {
			nc.Bus.Types[nc.Hvdc.T[k]] = griddata.Slack
		}
		if nc.Hvdc.VsetF[k][t] > 0 && nc.Bus.Types[nc.Hvdc.F[k]] == griddata.PQ {
			nc.Bus.Types[nc.Hvdc.F[k]] = griddata.PV
		}
		if nc.Hvdc.VsetT[k][t] > 0 && nc.Bus.Types[nc.Hvdc.T[k]] == griddata.PQ {
			nc.Bus.Types[nc.Hvdc.T[k]] = griddata.PV
		}
	}
}

// ClassifyBuses splits the bus indices by control type. The three sets
// partition [0, Nbus) and pqpv is the sorted union of pv and pq.
func (nc *NumericalCircuit) ClassifyBuses() (slack, pv, pq, pqpv []int) {
	slack = make([]int, 0)
	pv = make([]int, 0)
	pq = make([]int, 0)
	for i := 0; i < nc.Nbus; i++ {
		switch nc.Bus.Types[i] {
		case griddata.Slack:
			slack = append(slack, i)
		case griddata.PV:
			pv = append(pv, i)
		default:
			pq = append(pq, i)
		}
	}
	pqpv = make([]int, 0, len(pv)+len(pq))
	pqpv = append(pqpv, pv...)
	pqpv = append(pqpv, pq...)
	sort.Ints(pqpv)
	return slack, pv, pq, pqpv
}

// V0 builds the initial voltage guess at time t: flat start seeded with
// the setpoints of active voltage-controlling devices.
func (nc *NumericalCircuit) V0(t int) []complex128 {
	v := make([]complex128, nc.Nbus)
	for i := range v {
		v[i] = complex(consts.FlatVoltage, 0)
	}
	for k := 0; k < nc.Ngen; k++ {
		if nc.Gen.Active[k][t] && nc.Gen.Controllable[k] && nc.Gen.Vset[k][t] > 0 {
			v[nc.Gen.Bus[k]] = complex(nc.Gen.Vset[k][t], 0)
		}
	}
	for k := 0; k < nc.Nbatt; k++ {
		if nc.Batt.Active[k][t] && nc.Batt.Controllable[k] && nc.Batt.Vset[k][t] > 0 {
			v[nc.Batt.Bus[k]] = complex(nc.Batt.Vset[k][t], 0)
		}
	}
	for k := 0; k < nc.Nhvdc; k++ {
		if !nc.Hvdc.Active[k][t] {
			continue
		}
		if nc.Hvdc.VsetF[k][t] > 0 {
			v[nc.Hvdc.F[k]] = complex(nc.Hvdc.VsetF[k][t], 0)
		}
		if nc.Hvdc.VsetT[k][t] > 0 {
			v[nc.Hvdc.T[k]] = complex(nc.Hvdc.VsetT[k][t], 0)
		}
	}
	return v
}

// ComputeInjections builds the per-unit bus vectors at time t: the
// scheduled complex power Sbus, the constant-current part Ibus and the
// constant-admittance load part Yload. Loads withdraw, generation
// injects; device vectors scatter to buses through the connectivity
// matrices.
func (nc *NumericalCircuit) ComputeInjections(t int) (sbus, ibus, yload []complex128) {
	inv := complex(1/nc.Sbase, 0)

	// loads (ZIP)
	sdev := make([]complex128, nc.Nload)
	idev := make([]complex128, nc.Nload)
	ydev := make([]complex128, nc.Nload)
	for k := 0; k < nc.Nload; k++ {
		if nc.Load.Active[k][t] {
			sdev[k] = -nc.Load.S[k][t] * inv
			idev[k] = -nc.Load.I[k][t] * inv
			ydev[k] = -nc.Load.Y[k][t] * inv
		}
	}
	sbus = nc.Load.C.TransposeMulVec(sdev)
	ibus = nc.Load.C.TransposeMulVec(idev)
	yload = nc.Load.C.TransposeMulVec(ydev)

	// static generators
	gdev := make([]complex128, nc.Nstagen)
	for k := 0; k < nc.Nstagen; k++ {
		if nc.Stagen.Active[k][t] {
			gdev[k] = nc.Stagen.S[k][t] * inv
		}
	}
	add(sbus, nc.Stagen.C.TransposeMulVec(gdev))

	// generators and batteries inject scheduled P; Q on PV buses is a
	// solver outcome, not an input
	pdev := make([]complex128, nc.Ngen)
	for k := 0; k < nc.Ngen; k++ {
		if nc.Gen.Active[k][t] {
			pdev[k] = complex(nc.Gen.P[k][t], 0) * inv
		}
	}
	add(sbus, nc.Gen.C.TransposeMulVec(pdev))

	bdev := make([]complex128, nc.Nbatt)
	for k := 0; k < nc.Nbatt; k++ {
		if nc.Batt.Active[k][t] {
			bdev[k] = complex(nc.Batt.P[k][t], 0) * inv
		}
	}
	add(sbus, nc.Batt.C.TransposeMulVec(bdev))

	// HVDC links: -P at the sending side, +P at the receiving side via
	// the signed incidence, then conversion losses off the receiver
	hdev := make([]complex128, nc.Nhvdc)
	for k := 0; k < nc.Nhvdc; k++ {
		if nc.Hvdc.Active[k][t] {
			hdev[k] = complex(nc.Hvdc.Pset[k][t], 0) * inv
		}
	}
	add(sbus, nc.Hvdc.C.TransposeMulVec(hdev))
	for k := 0; k < nc.Nhvdc; k++ {
		if nc.Hvdc.Active[k][t] {
			sbus[nc.Hvdc.T[k]] -= complex(nc.Hvdc.LossFactor[k]*nc.Hvdc.Pset[k][t]/nc.Sbase, 0)
		}
	}

	// VSC and UPFC: series P through the signed incidence, shunt Q at
	// the controlled side
	vdev := make([]complex128, nc.Nvsc)
	for k := 0; k < nc.Nvsc; k++ {
		if nc.Vsc.Active[k][t] {
			vdev[k] = complex(nc.Vsc.Pset[k][t], 0) * inv
		}
	}
	add(sbus, nc.Vsc.C.TransposeMulVec(vdev))
	for k := 0; k < nc.Nvsc; k++ {
		if nc.Vsc.Active[k][t] {
			sbus[nc.Vsc.T[k]] += complex(0, nc.Vsc.Qset[k][t]/nc.Sbase)
		}
	}

	udev := make([]complex128, nc.Nupfc)
	for k := 0; k < nc.Nupfc; k++ {
		if nc.Upfc.Active[k][t] {
			udev[k] = complex(nc.Upfc.Pset[k][t], 0) * inv
		}
	}
	add(sbus, nc.Upfc.C.TransposeMulVec(udev))
	for k := 0; k < nc.Nupfc; k++ {
		if nc.Upfc.Active[k][t] {
			sbus[nc.Upfc.T[k]] += complex(0, nc.Upfc.Qset[k][t]/nc.Sbase)
		}
	}

	return sbus, ibus, yload
}

func add(dst, src []complex128) {
	for i := range dst {
		dst[i] += src[i]
	}
}

// busQLimits aggregates generator and battery reactive limits onto
// their buses, in per unit.
func (nc *NumericalCircuit) busQLimits(t int) (qmin, qmax []float64) {
	qmin = make([]float64, nc.Nbus)
	qmax = make([]float64, nc.Nbus)
	for k := 0; k < nc.Ngen; k++ {
		if nc.Gen.Active[k][t] {
			qmin[nc.Gen.Bus[k]] += nc.Gen.Qmin[k] / nc.Sbase
			qmax[nc.Gen.Bus[k]] += nc.Gen.Qmax[k] / nc.Sbase
		}
	}
	for k := 0; k < nc.Nbatt; k++ {
		if nc.Batt.Active[k][t] {
			qmin[nc.Batt.Bus[k]] += nc.Batt.Qmin[k] / nc.Sbase
			qmax[nc.Batt.Bus[k]] += nc.Batt.Qmax[k] / nc.Sbase
		}
	}
	return qmin, qmax
}

// Compile produces the solver input for time step t. The circuit must
// be consolidated first.
func (nc *NumericalCircuit) Compile(t int) (*SolveInput, error) {
	if !nc.consolidated {
		return nil, fmt.Errorf("circuit must be consolidated before compiling")
	}
	if t < 0 || t >= nc.Ntime {
		return nil, fmt.Errorf("time index %d out of range [0, %d)", t, nc.Ntime)
	}

	nc.ComputeBusTypes(t)
	slack, pv, pq, pqpv := nc.ClassifyBuses()
	sbus, ibus, yload := nc.ComputeInjections(t)
	qmin, qmax := nc.busQLimits(t)

	rates := make([]float64, nc.Nbranch)
	for k := 0; k < nc.Nbranch; k++ {
		rates[k] = nc.Branch.Rates[k][t]
	}

	return &SolveInput{
		Nbus:              nc.Nbus,
		Nbr:               nc.Nbranch,
		Ybus:              nc.Adm.Ybus,
		Yf:                nc.Adm.Yf,
		Yt:                nc.Adm.Yt,
		Yseries:           nc.Adm.Yseries,
		Yshunt:            append([]complex128(nil), nc.Adm.Yshunt...),
		Sbus:              sbus,
		Ibus:              ibus,
		Yload:             yload,
		V0:                nc.V0(t),
		Qmin:              qmin,
		Qmax:              qmax,
		Slack:             slack,
		PV:                pv,
		PQ:                pq,
		Pqpv:              pqpv,
		F:                 append([]int(nil), nc.Branch.F...),
		T:                 append([]int(nil), nc.Branch.T...),
		BranchRates:       rates,
		OriginalBusIdx:    append([]int(nil), nc.OriginalBusIdx...),
		OriginalBranchIdx: append([]int(nil), nc.OriginalBranchIdx...),
	}, nil
}
