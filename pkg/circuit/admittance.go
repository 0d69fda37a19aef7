package circuit

import (
	"math/cmplx"

	"github.com/edp1096/toy-powerflow/pkg/griddata"
	"github.com/edp1096/toy-powerflow/pkg/matrix"
)

// AdmittanceMatrices is the assembled sparse model of the passive grid:
// the bus admittance matrix, the branch from/to matrices, the series
// part used by embedding methods, and the aggregated bus shunt vector.
type AdmittanceMatrices struct {
	Ybus    *matrix.CSR
	Yf      *matrix.CSR
	Yt      *matrix.CSR
	Yseries *matrix.CSR
	Yshunt  []complex128
}

// branchTerms are the four two-port admittances of one branch under the
// pi model with the tap on the from side.
type branchTerms struct {
	yff, yft, ytf, ytt complex128
}

// twoPort evaluates the pi model for one branch at time t. An inactive
// branch yields exact zeros so it cannot leak admittance.
func twoPort(br *griddata.BranchData, k, t int, series bool) branchTerms {
	if !br.Active[k][t] {
		return branchTerms{}
	}

	ys := 1 / complex(br.R[k], br.X[k])
	ysh := complex(br.G[k]/2, br.B[k]/2)
	if series {
		ysh = 0
	}

	m := br.TapModule[k]
	tap := cmplx.Rect(m, br.TapAngle[k])

	return branchTerms{
		yff: (ys + ysh) / complex(m*m, 0),
		yft: -ys / cmplx.Conj(tap),
		ytf: -ys / tap,
		ytt: ys + ysh,
	}
}

// AssembleAdmittances builds Ybus, Yf, Yt, Yseries and Yshunt from the
// branch parameters and the standalone shunt devices at time index t.
//
//	Ybus = Cf' * Yf + Ct' * Yt + diag(shunt devices)
//
// Shunt device powers are given in MVA at nominal voltage and divide by
// sbase into per unit.
func AssembleAdmittances(br *griddata.BranchData, sh *griddata.ShuntData, sbase float64, t int) *AdmittanceMatrices {
	if br.Cf == nil || br.Ct == nil {
		br.BuildConnectivity()
	}

	cooF := matrix.NewCOO(br.Nbr, br.Nbus)
	cooT := matrix.NewCOO(br.Nbr, br.Nbus)
	cooFs := matrix.NewCOO(br.Nbr, br.Nbus)
	cooTs := matrix.NewCOO(br.Nbr, br.Nbus)
	yshunt := make([]complex128, br.Nbus)

	for k := 0; k < br.Nbr; k++ {
		f, to := br.F[k], br.T[k]

		full := twoPort(br, k, t, false)
		cooF.Add(k, f, full.yff)
		cooF.Add(k, to, full.yft)
		cooT.Add(k, f, full.ytf)
		cooT.Add(k, to, full.ytt)

		ser := twoPort(br, k, t, true)
		cooFs.Add(k, f, ser.yff)
		cooFs.Add(k, to, ser.yft)
		cooTs.Add(k, f, ser.ytf)
		cooTs.Add(k, to, ser.ytt)

		if br.Active[k][t] {
			ysh := complex(br.G[k]/2, br.B[k]/2)
			m := br.TapModule[k]
			yshunt[f] += ysh / complex(m*m, 0)
			yshunt[to] += ysh
		}
	}

	yf := cooF.ToCSR()
	yt := cooT.ToCSR()
	yfs := cooFs.ToCSR()
	yts := cooTs.ToCSR()

	shuntBus := make([]complex128, br.Nbus)
	for k := 0; k < sh.Nshunt; k++ {
		if sh.Active[k][t] {
			shuntBus[sh.Bus[k]] += sh.Admittance[k][t] / complex(sbase, 0)
		}
	}
	for i := range shuntBus {
		yshunt[i] += shuntBus[i]
	}

	ybus := br.Cf.TransposeMul(yf).Add(br.Ct.TransposeMul(yt)).Add(matrix.Diag(shuntBus))
	yseries := br.Cf.TransposeMul(yfs).Add(br.Ct.TransposeMul(yts))

	return &AdmittanceMatrices{
		Ybus:    ybus,
		Yf:      yf,
		Yt:      yt,
		Yseries: yseries,
		Yshunt:  yshunt,
	}
}

// MaxOffDiagonalAsymmetry returns the largest |Ybus[i,j] - Ybus[j,i]|.
// For a passive network this must be numerically zero.
func (a *AdmittanceMatrices) MaxOffDiagonalAsymmetry() float64 {
	worst := 0.0
	for i := 0; i < a.Ybus.Nrows; i++ {
		for k := a.Ybus.RowPtr[i]; k < a.Ybus.RowPtr[i+1]; k++ {
			j := a.Ybus.ColIdx[k]
			if j <= i {
				continue
			}
			d := cmplx.Abs(a.Ybus.Data[k] - a.Ybus.At(j, i))
			if d > worst {
				worst = d
			}
		}
	}
	return worst
}
