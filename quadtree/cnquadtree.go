package quadtree

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// CNQuadtree is an arena-backed cardinal-neighbor quadtree. Every leaf
// keeps direct pointers to its four cardinal neighbors, so neighbor
// queries never walk up and back down the tree; Subdivide and
// PopChildren rewire those pointers locally as the structure changes.
//
// All nodes are owned by the arena and addressed with stable Index
// handles. The tree is not safe for concurrent use.
type CNQuadtree[T any, S Unit] struct {
	slots []slot[T, S]
	free  []uint32
	root  Index

	// Live node count per depth. Used to derive the current maximum
	// depth for point location.
	depths []int
	count  int
}

type slot[T any, S Unit] struct {
	node CNNode[T, S]
	gen  uint32
	live bool
}

// New returns a tree holding a single root leaf with the given payload
// and bounds.
func New[T any, S Unit](item T, bounds Bounds[S]) *CNQuadtree[T, S] {
	t := &CNQuadtree[T, S]{
		depths: []int{1},
	}
	t.root = t.insert(newCNNode(item, 0, bounds, NoIndex))
	return t
}

func (t *CNQuadtree[T, S]) insert(n CNNode[T, S]) Index {
	t.count++

	if k := len(t.free); k > 0 {
		s := t.free[k-1]
		t.free = t.free[:k-1]
		t.slots[s].node = n
		t.slots[s].live = true
		return Index{slot: s, gen: t.slots[s].gen}
	}

	t.slots = append(t.slots, slot[T, S]{node: n, gen: 1, live: true})
	return Index{slot: uint32(len(t.slots) - 1), gen: 1}
}

// remove frees a slot and bumps its generation so stale handles can no
// longer resolve.
func (t *CNQuadtree[T, S]) remove(index Index) (CNNode[T, S], bool) {
	n := t.nodeAt(index)
	if n == nil {
		return CNNode[T, S]{}, false
	}

	removed := *n
	t.slots[index.slot].node = CNNode[T, S]{}
	t.slots[index.slot].live = false
	t.slots[index.slot].gen++
	t.free = append(t.free, index.slot)
	t.count--
	return removed, true
}

// nodeAt resolves an index to arena storage. The returned pointer is
// invalidated by any later insertion.
func (t *CNQuadtree[T, S]) nodeAt(index Index) *CNNode[T, S] {
	if int(index.slot) >= len(t.slots) {
		return nil
	}
	s := &t.slots[index.slot]
	if !s.live || s.gen != index.gen {
		return nil
	}
	return &s.node
}

// Node implements Tree.
func (t *CNQuadtree[T, S]) Node(index Index) (Node[T, S], bool) {
	n := t.nodeAt(index)
	if n == nil {
		return nil, false
	}
	return n, true
}

// Root implements Tree.
func (t *CNQuadtree[T, S]) Root() Index {
	return t.root
}

// Len returns the number of live nodes, internal nodes included.
func (t *CNQuadtree[T, S]) Len() int {
	return t.count
}

// MaxDepth returns the deepest depth with a non-zero live population.
func (t *CNQuadtree[T, S]) MaxDepth() int {
	max := 0
	for depth, population := range t.depths {
		if population > 0 {
			max = depth
		}
	}
	return max
}

// DepthPopulation returns the live node count per depth.
func (t *CNQuadtree[T, S]) DepthPopulation() []int {
	population := make([]int, len(t.depths))
	copy(population, t.depths)
	return population
}

// Subdivide implements Tree. It splits a leaf into four children
// carrying the given payloads and returns their indices in NW, NE, SW,
// SE order. The failure modes, ErrTypeInvalidIndex and
// ErrTypeAlreadySubdivided, are both detected before any mutation.
func (t *CNQuadtree[T, S]) Subdivide(index Index, items [4]T) ([4]Index, error) {
	var none [4]Index

	node := t.nodeAt(index)
	if node == nil {
		return none, errors.New("node index is invalid").
			WithType(ErrTypeInvalidIndex)
	}
	if node.HasChildren() {
		return none, errors.New("node is already subdivided").
			WithType(ErrTypeAlreadySubdivided)
	}

	bounds := node.Bounds()
	childDepth := node.Depth() + 1

	// Collect the node's frontier neighbor lists before any mutation;
	// once split it stops being a frontier node.
	var borderNeighbors [4][]Index
	for c := West; c <= South; c++ {
		borderNeighbors[c], _ = Neighbors[T, S](t, index, c)
	}

	// Each border is fronted by two children. The child whose corner
	// coincides with the stored pointer's end of the border inherits the
	// pointer directly; the other child's true neighbor may be deeper
	// and is resolved with the cross-level walk.
	var direct, looked [4]Index
	for c := West; c <= South; c++ {
		if len(borderNeighbors[c]) == 0 {
			continue
		}
		inherited := borderNeighbors[c][0]
		direct[c] = inherited
		looked[c] = FindCardinalNeighbor[T, S](t, childDepth, c, inherited)
	}

	nw := t.insert(newCNNode(items[NorthWest], childDepth, bounds.Quadrant(NorthWest), index))
	ne := t.insert(newCNNode(items[NorthEast], childDepth, bounds.Quadrant(NorthEast), index))
	sw := t.insert(newCNNode(items[SouthWest], childDepth, bounds.Quadrant(SouthWest), index))
	se := t.insert(newCNNode(items[SouthEast], childDepth, bounds.Quadrant(SouthEast), index))

	// Two sibling slots and two external slots per child. NW and SE sit
	// at the stored-pointer end of the borders they front.
	t.nodeAt(nw).SetNeighbors([4]Index{direct[West], direct[North], ne, sw})
	t.nodeAt(ne).SetNeighbors([4]Index{nw, looked[North], looked[East], se})
	t.nodeAt(sw).SetNeighbors([4]Index{looked[West], nw, se, looked[South]})
	t.nodeAt(se).SetNeighbors([4]Index{sw, ne, direct[East], direct[South]})

	t.repointBorder(borderNeighbors[West], index, nw, sw, looked[West], West)
	t.repointBorder(borderNeighbors[North], index, nw, ne, looked[North], North)
	t.repointBorder(borderNeighbors[East], index, se, ne, looked[East], East)
	t.repointBorder(borderNeighbors[South], index, se, sw, looked[South], South)

	// Demote the split node to an internal node. Re-fetch it: the
	// insertions above may have relocated the arena.
	node = t.nodeAt(index)
	node.SetNeighbors([4]Index{})
	node.SetChildren([4]Index{nw, ne, sw, se})

	if len(t.depths) <= childDepth {
		t.depths = append(t.depths, make([]int, childDepth+1-len(t.depths))...)
	}
	t.depths[childDepth] += 4

	return [4]Index{nw, ne, sw, se}, nil
}

// repointBorder redirects the back pointers of the collected border
// neighbors to whichever new child now fronts them. Neighbors up to the
// cross-level lookup result front the direct-inherit child; the lookup
// result and everything past it front the looked-up child. A neighbor
// whose back pointer does not resolve to the split node (possible only
// when it is larger than the split node) is left untouched.
func (t *CNQuadtree[T, S]) repointBorder(neighbors []Index, parent, directChild, lookedChild, lookupResult Index, direction Cardinality) {
	back := direction.Opposite()
	target := directChild

	for _, neighbor := range neighbors {
		if !lookupResult.IsNone() && neighbor == lookupResult {
			target = lookedChild
		}

		n := t.nodeAt(neighbor)
		if n == nil {
			continue
		}
		if current, ok := n.NeighborIndex(back); ok && current == parent {
			n.SetNeighbor(back, target)
		}
	}
}

// PopChildren implements Tree. It is the exact inverse of Subdivide:
// legal only when all four children are leaves, it removes them,
// restores the node to leaf state and recomputes its neighbor pointers.
func (t *CNQuadtree[T, S]) PopChildren(index Index) ([4]T, bool) {
	var items [4]T

	node := t.nodeAt(index)
	if node == nil || !node.HasChildren() {
		return items, false
	}
	children, _ := node.ChildrenIndex()
	for _, child := range children {
		c := t.nodeAt(child)
		if c == nil || c.HasChildren() {
			return items, false
		}
	}

	// The pair of children fronting each border, ordered from the
	// stored-pointer end of that border.
	pairs := [4][2]Index{
		West:  {children[NorthWest], children[SouthWest]},
		North: {children[NorthWest], children[NorthEast]},
		East:  {children[SouthEast], children[NorthEast]},
		South: {children[SouthEast], children[SouthWest]},
	}

	var restored [4]Index
	for c := West; c <= South; c++ {
		first, _ := Neighbors[T, S](t, pairs[c][0], c)
		second, _ := Neighbors[T, S](t, pairs[c][1], c)
		merged := append(first, second...)

		back := c.Opposite()
		for _, neighbor := range merged {
			n := t.nodeAt(neighbor)
			if n == nil {
				continue
			}
			if current, ok := n.NeighborIndex(back); ok &&
				(current == pairs[c][0] || current == pairs[c][1]) {
				n.SetNeighbor(back, index)
			}
		}

		// Once coarsened the node has at most one neighbor per
		// direction: the first along the border.
		if len(merged) > 0 {
			restored[c] = merged[0]
		}
	}

	node.SetNeighbors(restored)
	node.ClearChildren()
	t.depths[node.Depth()+1] -= 4

	for i, child := range children {
		removed, _ := t.remove(child)
		items[i] = removed.TakeItem()
	}
	return items, true
}

// PointLocate implements Tree. The point's fractional offset inside the
// root bounds is scaled to a locational code sized by the current
// maximum depth, then one bit per axis selects the quadrant at each
// level. The float64 ratio is a documented precision boundary for very
// deep trees or very large coordinate magnitudes.
func (t *CNQuadtree[T, S]) PointLocate(x, y S) (Index, bool) {
	index := t.root
	node := t.nodeAt(index)
	if !node.ContainsPoint(x, y) {
		return NoIndex, false
	}
	if !node.HasChildren() {
		return index, true
	}

	bounds := node.Bounds()
	fx := float64(x-bounds.MinX) / float64(bounds.MaxX-bounds.MinX)
	fy := float64(y-bounds.MinY) / float64(bounds.MaxY-bounds.MinY)

	maxDepth := t.MaxDepth()
	xCode := uint64(math.Ldexp(fx, maxDepth))
	yCode := uint64(math.Ldexp(fy, maxDepth))

	for level := maxDepth - 1; node.HasChildren(); level-- {
		xBit := (xCode >> uint(level)) & 1
		yBit := (yCode >> uint(level)) & 1
		children, _ := node.ChildrenIndex()
		index = children[xBit+2*yBit]
		node = t.nodeAt(index)
	}
	return index, true
}

// RegionLocate implements Tree. It returns the indices of all leaves
// whose bounds intersect the half-open query rectangle, pruning whole
// subtrees whose bounds miss it. Absent iff the rectangle does not
// intersect the root bounds.
func (t *CNQuadtree[T, S]) RegionLocate(region Bounds[S]) ([]Index, bool) {
	if !t.nodeAt(t.root).Bounds().Intersects(region) {
		return nil, false
	}

	var leaves []Index
	t.collectLeaves(t.root, region, &leaves)
	return leaves, true
}

func (t *CNQuadtree[T, S]) collectLeaves(index Index, region Bounds[S], out *[]Index) {
	node := t.nodeAt(index)
	if node == nil || !node.Bounds().Intersects(region) {
		return
	}
	if !node.HasChildren() {
		*out = append(*out, index)
		return
	}

	children, _ := node.ChildrenIndex()
	for _, child := range children {
		t.collectLeaves(child, region, out)
	}
}
