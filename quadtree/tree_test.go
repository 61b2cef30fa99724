package quadtree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newSplitTree returns a 100x100 tree with a subdivided root.
func newSplitTree(t *testing.T) (*CNQuadtree[string, int], [4]Index) {
	tree := New("root", Bounds[int]{0, 0, 100, 100})

	children, err := tree.Subdivide(tree.Root(), [4]string{"nw", "ne", "sw", "se"})
	require.NoError(t, err)
	return tree, children
}

func TestNeighbors(t *testing.T) {
	tree, children := newSplitTree(t)

	t.Run("absent for an invalid index", func(t *testing.T) {
		_, ok := Neighbors[string, int](tree, Index{slot: 42, gen: 7}, West)
		require.False(t, ok)
	})

	t.Run("empty for a border node", func(t *testing.T) {
		neighbors, ok := Neighbors[string, int](tree, children[NorthWest], West)
		require.True(t, ok)
		require.Empty(t, neighbors)

		neighbors, ok = Neighbors[string, int](tree, children[NorthWest], North)
		require.True(t, ok)
		require.Empty(t, neighbors)
	})

	t.Run("sibling neighbors", func(t *testing.T) {
		neighbors, ok := Neighbors[string, int](tree, children[NorthWest], East)
		require.True(t, ok)
		require.Equal(t, []Index{children[NorthEast]}, neighbors)

		neighbors, ok = Neighbors[string, int](tree, children[NorthWest], South)
		require.True(t, ok)
		require.Equal(t, []Index{children[SouthWest]}, neighbors)
	})

	t.Run("deeper neighbors are returned in border order", func(t *testing.T) {
		grandchildren, err := tree.Subdivide(children[NorthWest], [4]string{"nw.nw", "nw.ne", "nw.sw", "nw.se"})
		require.NoError(t, err)

		// The walk along NE's west border starts at the top and runs
		// south.
		neighbors, ok := Neighbors[string, int](tree, children[NorthEast], West)
		require.True(t, ok)
		require.Equal(t, []Index{grandchildren[NorthEast], grandchildren[SouthEast]}, neighbors)

		// SW sees NW's two southern grandchildren, west to east.
		neighbors, ok = Neighbors[string, int](tree, children[SouthWest], North)
		require.True(t, ok)
		require.Equal(t, []Index{grandchildren[SouthWest], grandchildren[SouthEast]}, neighbors)

		// A grandchild sees its coarser uncle as a single neighbor.
		neighbors, ok = Neighbors[string, int](tree, grandchildren[SouthEast], East)
		require.True(t, ok)
		require.Equal(t, []Index{children[NorthEast]}, neighbors)
	})
}

func TestLocationAmongSiblings(t *testing.T) {
	tree, children := newSplitTree(t)

	for i, child := range children {
		location, ok := LocationAmongSiblings[string, int](tree, child)
		require.True(t, ok)
		require.Equal(t, Location(i), location)
	}

	t.Run("absent for the root", func(t *testing.T) {
		_, ok := LocationAmongSiblings[string, int](tree, tree.Root())
		require.False(t, ok)
	})

	t.Run("absent for an invalid index", func(t *testing.T) {
		_, ok := LocationAmongSiblings[string, int](tree, Index{slot: 42, gen: 7})
		require.False(t, ok)
	})
}

func TestMapChildren(t *testing.T) {
	tree, children := newSplitTree(t)

	items, ok := MapChildren(tree, tree.Root(), func(n Node[string, int]) string {
		return *n.Item()
	})
	require.True(t, ok)
	require.Equal(t, [4]string{"nw", "ne", "sw", "se"}, items)

	t.Run("absent for a leaf", func(t *testing.T) {
		_, ok := MapChildren(tree, children[NorthWest], func(n Node[string, int]) string {
			return *n.Item()
		})
		require.False(t, ok)
	})
}

func TestMapNeighbors(t *testing.T) {
	tree, children := newSplitTree(t)

	_, err := tree.Subdivide(children[NorthWest], [4]string{"nw.nw", "nw.ne", "nw.sw", "nw.se"})
	require.NoError(t, err)

	items, ok := MapNeighbors(tree, children[NorthEast], West, func(n Node[string, int]) string {
		return *n.Item()
	})
	require.True(t, ok)
	require.Equal(t, []string{"nw.ne", "nw.se"}, items)

	t.Run("empty for a border node", func(t *testing.T) {
		items, ok := MapNeighbors(tree, children[NorthEast], East, func(n Node[string, int]) string {
			return *n.Item()
		})
		require.True(t, ok)
		require.Empty(t, items)
	})
}

func TestFindCardinalNeighbor(t *testing.T) {
	tree, children := newSplitTree(t)

	grandchildren, err := tree.Subdivide(children[NorthWest], [4]string{"nw.nw", "nw.ne", "nw.sw", "nw.se"})
	require.NoError(t, err)

	t.Run("neighbor above the child depth serves both children", func(t *testing.T) {
		// NW's east neighbor NE is parent sized and spans the whole
		// border.
		found := FindCardinalNeighbor[string, int](tree, 2, East, children[NorthEast])
		require.Equal(t, children[NorthEast], found)
	})

	t.Run("same sized neighbor yields the node past the midpoint", func(t *testing.T) {
		// Splitting NE: the inherited west neighbor is NW's NE
		// grandchild; the SW child's true neighbor is the grandchild one
		// step south.
		found := FindCardinalNeighbor[string, int](tree, 2, West, grandchildren[NorthEast])
		require.Equal(t, grandchildren[SouthEast], found)
	})

	t.Run("deeper neighbors are accumulated until the carry tops out", func(t *testing.T) {
		// Split NW's eastern grandchildren so NE's west border is tiled
		// by four depth-3 leaves.
		top, err := tree.Subdivide(grandchildren[NorthEast], [4]string{"a", "b", "c", "d"})
		require.NoError(t, err)
		bottom, err := tree.Subdivide(grandchildren[SouthEast], [4]string{"e", "f", "g", "h"})
		require.NoError(t, err)

		// Walking from the top, the two depth-3 slivers cover exactly
		// half the border; the answer is the first leaf of the bottom
		// half.
		found := FindCardinalNeighbor[string, int](tree, 2, West, top[NorthEast])
		require.Equal(t, bottom[NorthEast], found)
	})

	t.Run("absent when the inherited index is invalid", func(t *testing.T) {
		found := FindCardinalNeighbor[string, int](tree, 2, West, NoIndex)
		require.Equal(t, NoIndex, found)
	})
}
