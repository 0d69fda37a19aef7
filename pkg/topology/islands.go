package topology

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Edge is a candidate connection between two buses. Inactive edges do
// not join buses even though they remain in the branch arrays.
type Edge struct {
	From   int
	To     int
	Active bool
}

// FindIslands partitions buses 0..nbus-1 into connected components over
// the active edges. Buses with no active edge form singleton islands.
// Islands come out sorted by their smallest bus index and each island's
// buses are ascending, so repeated calls on the same input produce
// byte-identical slicing downstream.
func FindIslands(nbus int, edges []Edge) [][]int {
	g := simple.NewUndirectedGraph()
	for i := 0; i < nbus; i++ {
		g.AddNode(simple.Node(i))
	}
	for _, e := range edges {
		if !e.Active {
			continue
		}
		if e.From < 0 || e.From >= nbus || e.To < 0 || e.To >= nbus {
			continue
		}
		if e.From == e.To {
			// a bus is trivially connected to itself; SetEdge rejects loops
			continue
		}
		g.SetEdge(simple.Edge{F: simple.Node(e.From), T: simple.Node(e.To)})
	}

	comps := topo.ConnectedComponents(g)
	islands := make([][]int, 0, len(comps))
	for _, comp := range comps {
		buses := make([]int, 0, len(comp))
		for _, n := range comp {
			buses = append(buses, int(n.ID()))
		}
		sort.Ints(buses)
		islands = append(islands, buses)
	}
	sort.Slice(islands, func(i, j int) bool { return islands[i][0] < islands[j][0] })

	return islands
}
