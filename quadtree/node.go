package quadtree

import (
	"strconv"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Index is a stable handle to a node inside a tree's arena. A slot is
// paired with a generation counter so a handle kept across a removal can
// never resolve to a node that later reuses the slot.
type Index struct {
	slot uint32
	gen  uint32
}

// NoIndex is the zero Index. It marks an absent parent, child or
// neighbor slot and never resolves to a live node.
var NoIndex Index

// IsNone reports whether the index is the absent marker.
func (i Index) IsNone() bool {
	return i == NoIndex
}

// String returns the "slot.generation" form of the index, the stable
// textual handle used by callers that address nodes across a transport.
func (i Index) String() string {
	return strconv.FormatUint(uint64(i.slot), 10) + "." + strconv.FormatUint(uint64(i.gen), 10)
}

// MarshalText implements encoding.TextMarshaler.
func (i Index) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Index) UnmarshalText(text []byte) error {
	parsed, err := ParseIndex(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// ParseIndex converts the "slot.generation" form back to an Index. The
// result still has to be resolved against a tree; parsing performs no
// liveness check.
func ParseIndex(s string) (Index, error) {
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return NoIndex, errors.New("index is not in slot.generation form").
			WithTag("index", s)
	}

	slot, err := strconv.ParseUint(s[:dot], 10, 32)
	if err != nil {
		return NoIndex, errors.New("index has an invalid slot").
			WithTag("index", s).
			Wrap(err)
	}
	gen, err := strconv.ParseUint(s[dot+1:], 10, 32)
	if err != nil {
		return NoIndex, errors.New("index has an invalid generation").
			WithTag("index", s).
			Wrap(err)
	}

	return Index{slot: uint32(slot), gen: uint32(gen)}, nil
}

// Node is the capability contract a quadtree node exposes to the generic
// tree algorithms. Only leaf nodes carry meaningful neighbor slots; the
// slots of a subdivided node are always cleared.
type Node[T any, S Unit] interface {
	// ParentIndex returns the node's parent. Absent only for the root.
	ParentIndex() (Index, bool)
	HasParent() bool

	// ChildrenIndex returns the node's four children in NorthWest,
	// NorthEast, SouthWest, SouthEast order. A node has either exactly
	// four children or none.
	ChildrenIndex() ([4]Index, bool)
	// ChildIndex returns the child at the given location.
	ChildIndex(l Location) (Index, bool)
	HasChildren() bool
	IsLeaf() bool

	// Item returns a reference to the node's payload.
	Item() *T
	// SetItem replaces the node's payload.
	SetItem(item T)

	// Depth returns the node's depth relative to the root (depth 0).
	Depth() int

	// NeighborIndexes returns the four cardinal neighbor slots in West,
	// North, East, South order. A slot is NoIndex when the node borders
	// the edge of the root region in that direction.
	NeighborIndexes() [4]Index
	// NeighborIndex returns the neighbor slot for one direction.
	NeighborIndex(c Cardinality) (Index, bool)
	HasNeighbor(c Cardinality) bool
	// SetNeighbor sets one neighbor slot. NoIndex clears it.
	SetNeighbor(c Cardinality, neighbor Index)
	// SetNeighbors replaces all four neighbor slots at once.
	SetNeighbors(neighbors [4]Index)

	// SetChildren attaches four children in NW, NE, SW, SE order.
	SetChildren(children [4]Index)
	// ClearChildren detaches all children, making the node a leaf again.
	ClearChildren()

	Bounds() Bounds[S]
	// ContainsPoint tests point membership with half-open intervals on
	// both axes.
	ContainsPoint(x, y S) bool

	// Equal reports whether two nodes denote the same region. Bounds
	// equality is sufficient: the tiling invariants guarantee no two
	// live nodes share bounds.
	Equal(other Node[T, S]) bool
}

// CNNode is the concrete cardinal-neighbor node record stored in a
// tree's arena.
type CNNode[T any, S Unit] struct {
	item        T
	depth       int
	bounds      Bounds[S]
	parent      Index
	neighbors   [4]Index
	children    [4]Index
	hasChildren bool
}

func newCNNode[T any, S Unit](item T, depth int, bounds Bounds[S], parent Index) CNNode[T, S] {
	return CNNode[T, S]{
		item:   item,
		depth:  depth,
		bounds: bounds,
		parent: parent,
	}
}

func (n *CNNode[T, S]) ParentIndex() (Index, bool) {
	return n.parent, !n.parent.IsNone()
}

func (n *CNNode[T, S]) HasParent() bool {
	return !n.parent.IsNone()
}

func (n *CNNode[T, S]) ChildrenIndex() ([4]Index, bool) {
	return n.children, n.hasChildren
}

func (n *CNNode[T, S]) ChildIndex(l Location) (Index, bool) {
	if !n.hasChildren {
		return NoIndex, false
	}
	return n.children[l], true
}

func (n *CNNode[T, S]) HasChildren() bool {
	return n.hasChildren
}

func (n *CNNode[T, S]) IsLeaf() bool {
	return !n.hasChildren
}

func (n *CNNode[T, S]) Item() *T {
	return &n.item
}

func (n *CNNode[T, S]) SetItem(item T) {
	n.item = item
}

// TakeItem consumes the node's payload. It must only be used once the
// node is fully detached: no children and no neighbor slot referring to
// it.
func (n *CNNode[T, S]) TakeItem() T {
	var zero T
	item := n.item
	n.item = zero
	return item
}

func (n *CNNode[T, S]) Depth() int {
	return n.depth
}

func (n *CNNode[T, S]) NeighborIndexes() [4]Index {
	return n.neighbors
}

func (n *CNNode[T, S]) NeighborIndex(c Cardinality) (Index, bool) {
	return n.neighbors[c], !n.neighbors[c].IsNone()
}

func (n *CNNode[T, S]) HasNeighbor(c Cardinality) bool {
	return !n.neighbors[c].IsNone()
}

func (n *CNNode[T, S]) SetNeighbor(c Cardinality, neighbor Index) {
	n.neighbors[c] = neighbor
}

func (n *CNNode[T, S]) SetNeighbors(neighbors [4]Index) {
	n.neighbors = neighbors
}

func (n *CNNode[T, S]) SetChildren(children [4]Index) {
	n.children = children
	n.hasChildren = true
}

func (n *CNNode[T, S]) ClearChildren() {
	n.children = [4]Index{}
	n.hasChildren = false
}

func (n *CNNode[T, S]) Bounds() Bounds[S] {
	return n.bounds
}

func (n *CNNode[T, S]) ContainsPoint(x, y S) bool {
	return n.bounds.ContainsPoint(x, y)
}

func (n *CNNode[T, S]) Equal(other Node[T, S]) bool {
	return other != nil && n.bounds == other.Bounds()
}
