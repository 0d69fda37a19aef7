package griddata

import "github.com/edp1096/toy-powerflow/pkg/matrix"

// singleBusConnectivity builds the (ndev x nbus) incidence of devices
// attached to one bus each, weight 1.
func singleBusConnectivity(bus []int, nbus int) *matrix.CSR {
	coo := matrix.NewCOO(len(bus), nbus)
	for k, b := range bus {
		coo.Add(k, b, 1)
	}
	return coo.ToCSR()
}

// twoSidedConnectivity builds the (ndev x nbus) incidence of two-bus
// injection devices, with separate weights for the from and to sides.
// HVDC-style links use -1/+1 so a scatter of the setpoint vector yields
// the sending-end withdrawal and receiving-end injection in one pass.
func twoSidedConnectivity(f, t []int, nbus int, wf, wt float64) *matrix.CSR {
	coo := matrix.NewCOO(len(f), nbus)
	for k := range f {
		coo.Add(k, f[k], complex(wf, 0))
		coo.Add(k, t[k], complex(wt, 0))
	}
	return coo.ToCSR()
}
