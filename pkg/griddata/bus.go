package griddata

import "fmt"

// BusType is the control-type classification of a bus. The values match
// the usual power-flow convention (PQ=1, PV=2, slack=3).
type BusType int

const (
	PQ    BusType = 1
	PV    BusType = 2
	Slack BusType = 3
)

func (t BusType) String() string {
	switch t {
	case PQ:
		return "PQ"
	case PV:
		return "PV"
	case Slack:
		return "Slack"
	default:
		return "Unknown"
	}
}

// BusData holds the per-bus arrays. Types is derived from the attached
// devices at consolidation time, never set by hand.
type BusData struct {
	Nbus  int
	Ntime int

	Names  []string
	Active [][]bool
	Vnom   []float64 // nominal voltage (kV)
	Vmin   []float64 // voltage limits (p.u.)
	Vmax   []float64

	Types []BusType
}

func NewBusData(nbus, ntime int) *BusData {
	b := &BusData{
		Nbus:   nbus,
		Ntime:  ntime,
		Names:  make([]string, nbus),
		Active: boolProfile(nbus, ntime, true),
		Vnom:   make([]float64, nbus),
		Vmin:   make([]float64, nbus),
		Vmax:   make([]float64, nbus),
		Types:  make([]BusType, nbus),
	}
	for i := 0; i < nbus; i++ {
		b.Vmin[i] = 0.9
		b.Vmax[i] = 1.1
		b.Types[i] = PQ
	}
	return b
}

func (b *BusData) Check() error {
	for _, arr := range [][]float64{b.Vnom, b.Vmin, b.Vmax} {
		if len(arr) != b.Nbus {
			return fmt.Errorf("bus data: array length %d does not match %d buses", len(arr), b.Nbus)
		}
	}
	if len(b.Names) != b.Nbus || len(b.Active) != b.Nbus || len(b.Types) != b.Nbus {
		return fmt.Errorf("bus data: array lengths do not match %d buses", b.Nbus)
	}
	return nil
}

// Slice extracts the buses in busIdx as an independent copy.
func (b *BusData) Slice(busIdx []int) *BusData {
	return &BusData{
		Nbus:   len(busIdx),
		Ntime:  b.Ntime,
		Names:  sliceVec(b.Names, busIdx),
		Active: sliceRows(b.Active, busIdx),
		Vnom:   sliceVec(b.Vnom, busIdx),
		Vmin:   sliceVec(b.Vmin, busIdx),
		Vmax:   sliceVec(b.Vmax, busIdx),
		Types:  sliceVec(b.Types, busIdx),
	}
}
