package quadtree

// Error types returned by Tree.Subdivide, inspectable with
// errors.Type/errors.IsType from go-tooling.
const (
	ErrTypeInvalidIndex      = "quadtree_invalid_index"
	ErrTypeAlreadySubdivided = "quadtree_already_subdivided"
)

// Tree is the contract a region quadtree implementation exposes. The
// generic algorithms in this package (Neighbors, LocationAmongSiblings,
// FindCardinalNeighbor, ...) operate on any implementation of it.
//
// Implementations are not safe for concurrent use. Callers must address
// nodes through indices: node references obtained from Node must not be
// retained across a call that mutates the tree.
type Tree[T any, S Unit] interface {
	// Node resolves an index to its live node. The returned node is
	// backed by tree storage; mutations through it are visible to the
	// tree.
	Node(index Index) (Node[T, S], bool)

	// Root returns the root node's index.
	Root() Index

	// Subdivide splits a leaf into four children in NW, NE, SW, SE
	// order, carrying the given payloads. It fails with
	// ErrTypeInvalidIndex or ErrTypeAlreadySubdivided; both are detected
	// before any mutation, so a failed call leaves the tree and the
	// caller's payloads untouched.
	Subdivide(index Index, items [4]T) ([4]Index, error)

	// PopChildren is the exact inverse of Subdivide. It removes the four
	// children of a node whose children are all leaves and returns their
	// payloads in NW, NE, SW, SE order. It reports false, mutating
	// nothing, when the index is invalid, the node is a leaf, or any
	// child is itself subdivided.
	PopChildren(index Index) ([4]T, bool)

	// PointLocate returns the leaf containing the point, or false if the
	// point lies outside the root bounds.
	PointLocate(x, y S) (Index, bool)

	// RegionLocate returns every leaf whose bounds intersect the query
	// rectangle, or false if the rectangle does not intersect the root
	// bounds.
	RegionLocate(region Bounds[S]) ([]Index, bool)
}

// Neighbors returns the ordered list of nodes bordering a node in the
// given direction. The result is absent iff the index does not resolve,
// and empty iff the node borders the edge of the root region.
//
// The walk starts at the node's stored neighbor slot and advances with
// NextNeighbor pointers, so its cost is proportional to the number of
// returned neighbors; no ancestors are visited.
func Neighbors[T any, S Unit](t Tree[T, S], index Index, direction Cardinality) ([]Index, bool) {
	node, ok := t.Node(index)
	if !ok {
		return nil, false
	}

	first, ok := node.NeighborIndex(direction)
	if !ok {
		return []Index{}, true
	}
	current, ok := t.Node(first)
	if !ok {
		return nil, false
	}

	// A neighbor deeper by k levels means up to 2^k nodes along the
	// border.
	capacity := 1
	if current.Depth() > node.Depth() {
		capacity = 1 << (current.Depth() - node.Depth())
	}

	neighbors := make([]Index, 0, capacity)
	neighbors = append(neighbors, first)

	for {
		next, ok := current.NeighborIndex(direction.NextNeighbor())
		if !ok {
			break
		}
		nextNode, ok := t.Node(next)
		if !ok {
			break
		}
		// A node of the same size or larger cannot be a further border
		// neighbor: the remaining border is already covered.
		if nextNode.Depth() <= node.Depth() {
			break
		}
		back, ok := nextNode.NeighborIndex(direction.Opposite())
		if !ok {
			break
		}
		backNode, ok := t.Node(back)
		if !ok {
			break
		}
		if !node.Equal(backNode) {
			break
		}

		neighbors = append(neighbors, next)
		current = nextNode
	}

	return neighbors, true
}

// LocationAmongSiblings returns which of the parent's four quadrant
// slots holds the node. Absent for the root.
func LocationAmongSiblings[T any, S Unit](t Tree[T, S], index Index) (Location, bool) {
	node, ok := t.Node(index)
	if !ok {
		return 0, false
	}
	parentIndex, ok := node.ParentIndex()
	if !ok {
		return 0, false
	}
	parent, ok := t.Node(parentIndex)
	if !ok {
		return 0, false
	}
	children, ok := parent.ChildrenIndex()
	if !ok {
		return 0, false
	}

	for i, child := range children {
		childNode, ok := t.Node(child)
		if ok && node.Equal(childNode) {
			return Location(i), true
		}
	}
	return 0, false
}

// MapChildren applies f to the four children of a node and returns the
// results in NW, NE, SW, SE order. Absent when the index does not
// resolve or the node is a leaf.
func MapChildren[T any, S Unit, O any](t Tree[T, S], index Index, f func(Node[T, S]) O) ([4]O, bool) {
	var out [4]O

	node, ok := t.Node(index)
	if !ok {
		return out, false
	}
	children, ok := node.ChildrenIndex()
	if !ok {
		return out, false
	}

	for i, child := range children {
		childNode, ok := t.Node(child)
		if !ok {
			return out, false
		}
		out[i] = f(childNode)
	}
	return out, true
}

// MapNeighbors applies f to each node bordering the given node in the
// given direction, in border order.
func MapNeighbors[T any, S Unit, O any](t Tree[T, S], index Index, direction Cardinality, f func(Node[T, S]) O) ([]O, bool) {
	neighbors, ok := Neighbors(t, index, direction)
	if !ok {
		return nil, false
	}

	out := make([]O, 0, len(neighbors))
	for _, neighbor := range neighbors {
		node, ok := t.Node(neighbor)
		if !ok {
			return nil, false
		}
		out = append(out, f(node))
	}
	return out, true
}

// FindCardinalNeighbor resolves the external neighbor of the split child
// that cannot directly inherit its parent's pointer, starting from the
// inherited neighbor. The true neighbor may be deeper than the inherited
// one, so the border is walked with NextNeighbor steps while a binary
// counter over relative depths accumulates the width covered so far.
// Once the carry reaches relative depth zero, exactly one child width of
// border has been covered and the node one step further is the answer.
//
// A neighbor above the child's depth spans the whole parent border and
// serves both children; it is returned as is. NoIndex is returned when
// the walk falls off the tiled region.
func FindCardinalNeighbor[T any, S Unit](t Tree[T, S], childDepth int, direction Cardinality, inherited Index) Index {
	current, ok := t.Node(inherited)
	if !ok {
		return NoIndex
	}
	if current.Depth() < childDepth {
		return inherited
	}

	counters := []int{0}
	for {
		rel := current.Depth() - childDepth
		if rel < 0 {
			rel = 0
		}
		if rel >= len(counters) {
			counters = append(counters, make([]int, rel+1-len(counters))...)
		}
		counters[rel]++

		for i := len(counters) - 1; i > 0; i-- {
			if counters[i] >= 2 {
				counters[i] = 0
				counters[i-1]++
			}
		}
		if counters[0] != 0 {
			break
		}

		next, ok := current.NeighborIndex(direction.NextNeighbor())
		if !ok {
			return NoIndex
		}
		current, ok = t.Node(next)
		if !ok {
			return NoIndex
		}
	}

	found, ok := current.NeighborIndex(direction.NextNeighbor())
	if !ok {
		return NoIndex
	}
	return found
}
