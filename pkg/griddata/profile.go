package griddata

// Device attributes that vary in time are stored as device-major
// profiles: one row per device, ntime columns. Snapshot circuits use
// ntime = 1.

func boolProfile(n, ntime int, fill bool) [][]bool {
	p := make([][]bool, n)
	for i := range p {
		p[i] = make([]bool, ntime)
		if fill {
			for t := range p[i] {
				p[i][t] = true
			}
		}
	}
	return p
}

func floatProfile(n, ntime int) [][]float64 {
	p := make([][]float64, n)
	for i := range p {
		p[i] = make([]float64, ntime)
	}
	return p
}

func complexProfile(n, ntime int) [][]complex128 {
	p := make([][]complex128, n)
	for i := range p {
		p[i] = make([]complex128, ntime)
	}
	return p
}

// sliceRows copies the selected profile rows into a new profile. The
// rows are deep copies so an island can never alias its parent.
func sliceRows[T any](rows [][]T, idx []int) [][]T {
	out := make([][]T, len(idx))
	for k, i := range idx {
		row := make([]T, len(rows[i]))
		copy(row, rows[i])
		out[k] = row
	}
	return out
}

func sliceVec[T any](v []T, idx []int) []T {
	out := make([]T, len(idx))
	for k, i := range idx {
		out[k] = v[i]
	}
	return out
}

// remapBuses translates parent bus indices to island-local ones.
// Devices must already be filtered to the island, so every lookup hits.
func remapBuses(bus []int, busIdx []int) []int {
	m := make(map[int]int, len(busIdx))
	for local, original := range busIdx {
		m[original] = local
	}
	out := make([]int, len(bus))
	for k, b := range bus {
		out[k] = m[b]
	}
	return out
}

// inSet reports which of the given buses belong to the bus set.
func busSet(busIdx []int) map[int]struct{} {
	s := make(map[int]struct{}, len(busIdx))
	for _, b := range busIdx {
		s[b] = struct{}{}
	}
	return s
}
