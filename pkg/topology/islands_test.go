package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindIslandsSingleComponent(t *testing.T) {
	edges := []Edge{
		{From: 0, To: 1, Active: true},
		{From: 1, To: 2, Active: true},
		{From: 2, To: 3, Active: true},
		{From: 3, To: 4, Active: true},
	}
	islands := FindIslands(5, edges)
	require.Len(t, islands, 1)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, islands[0])
}

func TestFindIslandsInactiveEdgesDoNotConnect(t *testing.T) {
	edges := []Edge{
		{From: 0, To: 1, Active: true},
		{From: 1, To: 2, Active: false},
		{From: 2, To: 3, Active: true},
	}
	islands := FindIslands(4, edges)
	require.Len(t, islands, 2)
	assert.Equal(t, []int{0, 1}, islands[0])
	assert.Equal(t, []int{2, 3}, islands[1])
}

func TestFindIslandsSingletons(t *testing.T) {
	islands := FindIslands(3, nil)
	require.Len(t, islands, 3)
	for i, isl := range islands {
		assert.Equal(t, []int{i}, isl)
	}
}

func TestFindIslandsPartitionProperty(t *testing.T) {
	edges := []Edge{
		{From: 0, To: 1, Active: true},
		{From: 2, To: 3, Active: true},
		{From: 4, To: 5, Active: true},
		{From: 1, To: 4, Active: true},
		{From: 6, To: 6, Active: true}, // self loop keeps 6 a singleton set
	}
	islands := FindIslands(8, edges)

	seen := make(map[int]int)
	for _, isl := range islands {
		for _, b := range isl {
			seen[b]++
		}
	}
	require.Len(t, seen, 8, "every bus appears")
	for b, count := range seen {
		assert.Equal(t, 1, count, "bus %d appears exactly once", b)
	}
}

func TestFindIslandsDeterministicOrdering(t *testing.T) {
	edges := []Edge{
		{From: 5, To: 4, Active: true},
		{From: 1, To: 0, Active: true},
		{From: 3, To: 2, Active: true},
	}
	first := FindIslands(6, edges)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, FindIslands(6, edges))
	}
	// islands sorted by smallest member, members ascending
	require.Len(t, first, 3)
	assert.Equal(t, []int{0, 1}, first[0])
	assert.Equal(t, []int{2, 3}, first[1])
	assert.Equal(t, []int{4, 5}, first[2])
}

func TestFindIslandsIgnoresOutOfRangeEdges(t *testing.T) {
	edges := []Edge{
		{From: 0, To: 9, Active: true},
		{From: -1, To: 1, Active: true},
	}
	islands := FindIslands(2, edges)
	require.Len(t, islands, 2)
}
