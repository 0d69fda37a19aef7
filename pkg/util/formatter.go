package util

import (
	"fmt"
	"math"
	"math/cmplx"
)

// FormatPolar renders a complex voltage as magnitude and angle in degrees.
func FormatPolar(v complex128) string {
	mag := cmplx.Abs(v)
	ang := cmplx.Phase(v) * 180 / math.Pi
	return fmt.Sprintf("%8.5f<%7.3fdeg", mag, ang)
}

// FormatPower renders a complex power in MVA with explicit P/Q parts.
func FormatPower(s complex128) string {
	return fmt.Sprintf("%8.3f MW %+8.3f MVAr", real(s), imag(s))
}

func FormatPerUnit(value float64) string {
	absValue := math.Abs(value)
	switch {
	case absValue >= 1e-3 || absValue == 0:
		return fmt.Sprintf("%.6f pu", value)
	default:
		return fmt.Sprintf("%.3e pu", value)
	}
}

// FormatPercent renders a loading ratio as a percentage.
func FormatPercent(ratio float64) string {
	return fmt.Sprintf("%6.2f %%", ratio*100)
}
