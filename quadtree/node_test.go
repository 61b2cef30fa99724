package quadtree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoundsQuadrant(t *testing.T) {
	bounds := Bounds[int]{0, 0, 100, 100}

	require.Equal(t, Bounds[int]{0, 0, 50, 50}, bounds.Quadrant(NorthWest))
	require.Equal(t, Bounds[int]{50, 0, 100, 50}, bounds.Quadrant(NorthEast))
	require.Equal(t, Bounds[int]{0, 50, 50, 100}, bounds.Quadrant(SouthWest))
	require.Equal(t, Bounds[int]{50, 50, 100, 100}, bounds.Quadrant(SouthEast))
}

func TestBoundsContainsPoint(t *testing.T) {
	bounds := Bounds[int]{0, 0, 100, 100}

	t.Run("inside", func(t *testing.T) {
		require.True(t, bounds.ContainsPoint(0, 0))
		require.True(t, bounds.ContainsPoint(99, 99))
		require.True(t, bounds.ContainsPoint(50, 1))
	})

	t.Run("intervals are half open", func(t *testing.T) {
		require.False(t, bounds.ContainsPoint(100, 50))
		require.False(t, bounds.ContainsPoint(50, 100))
		require.False(t, bounds.ContainsPoint(100, 100))
	})

	t.Run("outside", func(t *testing.T) {
		require.False(t, bounds.ContainsPoint(-1, 50))
		require.False(t, bounds.ContainsPoint(50, -1))
		require.False(t, bounds.ContainsPoint(101, 101))
	})
}

func TestBoundsIntersects(t *testing.T) {
	bounds := Bounds[int]{0, 0, 50, 50}

	require.True(t, bounds.Intersects(Bounds[int]{25, 25, 75, 75}))
	require.True(t, bounds.Intersects(Bounds[int]{0, 0, 50, 50}))
	require.False(t, bounds.Intersects(Bounds[int]{50, 0, 100, 50}), "touching edges do not intersect")
	require.False(t, bounds.Intersects(Bounds[int]{60, 60, 70, 70}))
}

func TestCNNode(t *testing.T) {
	tree := New("root", Bounds[int]{0, 0, 100, 100})

	root, ok := tree.Node(tree.Root())
	require.True(t, ok)

	t.Run("root is a parentless leaf at depth zero", func(t *testing.T) {
		require.False(t, root.HasParent())
		require.True(t, root.IsLeaf())
		require.False(t, root.HasChildren())
		require.Equal(t, 0, root.Depth())
		require.Equal(t, [4]Index{}, root.NeighborIndexes())

		_, ok := root.ParentIndex()
		require.False(t, ok)
		_, ok = root.ChildrenIndex()
		require.False(t, ok)
		_, ok = root.ChildIndex(NorthWest)
		require.False(t, ok)
	})

	t.Run("item access", func(t *testing.T) {
		require.Equal(t, "root", *root.Item())

		root.SetItem("renamed")
		require.Equal(t, "renamed", *root.Item())

		*root.Item() = "root"
		require.Equal(t, "root", *root.Item())
	})

	t.Run("equality is bounds equality", func(t *testing.T) {
		other := newCNNode("other", 3, Bounds[int]{0, 0, 100, 100}, NoIndex)
		require.True(t, root.Equal(&other))

		shifted := newCNNode("shifted", 0, Bounds[int]{0, 0, 100, 101}, NoIndex)
		require.False(t, root.Equal(&shifted))
		require.False(t, root.Equal(nil))
	})
}

func TestIndexText(t *testing.T) {
	tree := New("root", Bounds[int]{0, 0, 100, 100})
	root := tree.Root()

	parsed, err := ParseIndex(root.String())
	require.NoError(t, err)
	require.Equal(t, root, parsed)

	t.Run("round trips through text", func(t *testing.T) {
		text, err := root.MarshalText()
		require.NoError(t, err)

		var decoded Index
		require.NoError(t, decoded.UnmarshalText(text))
		require.Equal(t, root, decoded)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		for _, s := range []string{"", "12", "a.1", "1.b", "-1.2"} {
			_, err := ParseIndex(s)
			require.Error(t, err, s)
		}
	})
}

func TestCNNodeTakeItem(t *testing.T) {
	node := newCNNode("payload", 0, Bounds[int]{0, 0, 10, 10}, NoIndex)

	require.Equal(t, "payload", node.TakeItem())
	require.Equal(t, "", *node.Item())
}
