package models

import (
	"time"

	"github.com/donmai-me/cnquadtree/quadtree"
	"github.com/segmentio/encoding/json"
)

// Payload is the opaque per-node payload carried by served trees. The
// server stores and returns it verbatim.
type Payload = json.RawMessage

// Tree is the tree instantiation served by the store.
type Tree = quadtree.CNQuadtree[Payload, float64]

// Rect is the wire form of a node's bounds.
type Rect struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

func RectFromBounds(b quadtree.Bounds[float64]) Rect {
	return Rect{MinX: b.MinX, MinY: b.MinY, MaxX: b.MaxX, MaxY: b.MaxY}
}

func (r Rect) Bounds() quadtree.Bounds[float64] {
	return quadtree.Bounds[float64]{MinX: r.MinX, MinY: r.MinY, MaxX: r.MaxX, MaxY: r.MaxY}
}

// Valid reports whether the rectangle has a positive area.
func (r Rect) Valid() bool {
	return r.MaxX > r.MinX && r.MaxY > r.MinY
}

// TreeInfo is the wire summary of a live tree.
type TreeInfo struct {
	ID        string         `json:"id"`
	Root      quadtree.Index `json:"root"`
	Bounds    Rect           `json:"bounds"`
	NodeCount int            `json:"node_count"`
	MaxDepth  int            `json:"max_depth"`
	CreatedAt time.Time      `json:"created_at"`
}

// NodeView is the wire snapshot of a single node. Children are listed in
// north west, north east, south west, south east order. Neighbors are
// keyed by direction and only present on leaves, for the directions
// where the node does not border the edge of the root region.
type NodeView struct {
	Index     quadtree.Index            `json:"index"`
	Depth     int                       `json:"depth"`
	Leaf      bool                      `json:"leaf"`
	Bounds    Rect                      `json:"bounds"`
	Item      Payload                   `json:"item,omitempty"`
	Parent    *quadtree.Index           `json:"parent,omitempty"`
	Children  []quadtree.Index          `json:"children,omitempty"`
	Neighbors map[string]quadtree.Index `json:"neighbors,omitempty"`
}

// Tree event operations.
const (
	TreeEventSubdivide   = "subdivide"
	TreeEventPopChildren = "pop_children"
)

// TreeEvent describes a structural change to a tree. It is streamed to
// the tree's watchers.
type TreeEvent struct {
	TreeID   string           `json:"tree_id"`
	Op       string           `json:"op"`
	Index    quadtree.Index   `json:"index"`
	Children []quadtree.Index `json:"children,omitempty"`
}
