package models

import (
	"sort"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/donmai-me/cnquadtree/quadtree"
	"github.com/google/uuid"
)

// Error types returned by the store and tree handles, inspectable with
// errors.IsType from go-tooling.
const (
	ErrTypeTreeNotFound = "tree_not_found"
	ErrTypeNodeNotFound = "node_not_found"
	ErrTypeNotPoppable  = "node_not_poppable"
	ErrTypeNoSiblings   = "node_has_no_siblings"
	ErrTypeOutOfBounds  = "out_of_bounds"
)

// watcherQueueSize is the per-watcher event buffer. A watcher that falls
// further behind loses events rather than blocking tree operations.
const watcherQueueSize = 32

// TreeStore holds the live trees served by the server, keyed by id.
//
// The zero value is ready to use.
type TreeStore struct {
	mutex sync.RWMutex
	trees map[string]*TreeHandle
}

// New creates a tree covering the given bounds, with the given root
// payload, and registers it under a fresh id.
func (s *TreeStore) New(bounds quadtree.Bounds[float64], item Payload) *TreeHandle {
	handle := &TreeHandle{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		tree:      quadtree.New(item, bounds),
		watchers:  make(map[uint32]chan TreeEvent),
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.trees == nil {
		s.trees = make(map[string]*TreeHandle)
	}
	s.trees[handle.ID] = handle

	instrumentIncreaseTreeGauge()
	instrumentCountTree()
	return handle
}

func (s *TreeStore) Get(id string) (*TreeHandle, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	handle, ok := s.trees[id]
	return handle, ok
}

// Remove unregisters a tree and closes its watchers. It reports whether
// the tree existed.
func (s *TreeStore) Remove(id string) bool {
	s.mutex.Lock()
	handle, ok := s.trees[id]
	delete(s.trees, id)
	s.mutex.Unlock()

	if !ok {
		return false
	}

	handle.closeWatchers()
	instrumentDecreaseTreeGauge()
	return true
}

// List returns the summaries of all live trees, oldest first.
func (s *TreeStore) List() []TreeInfo {
	s.mutex.RLock()
	handles := make([]*TreeHandle, 0, len(s.trees))
	for _, handle := range s.trees {
		handles = append(handles, handle)
	}
	s.mutex.RUnlock()

	sort.Slice(handles, func(i, j int) bool {
		if handles[i].CreatedAt.Equal(handles[j].CreatedAt) {
			return handles[i].ID < handles[j].ID
		}
		return handles[i].CreatedAt.Before(handles[j].CreatedAt)
	})

	infos := make([]TreeInfo, 0, len(handles))
	for _, handle := range handles {
		infos = append(infos, handle.Info())
	}
	return infos
}

func (s *TreeStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.trees)
}

// TreeHandle pairs a tree with the lock that serializes access to it and
// with the watchers streaming its structural changes. Trees are not safe
// for concurrent use on their own, so every operation goes through the
// handle.
type TreeHandle struct {
	ID        string
	CreatedAt time.Time

	mutex sync.Mutex
	tree  *Tree

	watcherMutex sync.Mutex
	watcherIDs   SequentialIDGenerator
	watchers     map[uint32]chan TreeEvent
	watchersDone bool
}

func (h *TreeHandle) Info() TreeInfo {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	root, _ := h.tree.Node(h.tree.Root())
	return TreeInfo{
		ID:        h.ID,
		Root:      h.tree.Root(),
		Bounds:    RectFromBounds(root.Bounds()),
		NodeCount: h.tree.Len(),
		MaxDepth:  h.tree.MaxDepth(),
		CreatedAt: h.CreatedAt,
	}
}

// Root returns the root node's index.
func (h *TreeHandle) Root() quadtree.Index {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return h.tree.Root()
}

// NodeView returns the wire snapshot of a node.
func (h *TreeHandle) NodeView(index quadtree.Index) (NodeView, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	node, ok := h.tree.Node(index)
	if !ok {
		return NodeView{}, errors.New("node not found").
			WithType(ErrTypeNodeNotFound).
			WithTag("tree_id", h.ID).
			WithTag("node", index)
	}

	view := NodeView{
		Index:  index,
		Depth:  node.Depth(),
		Leaf:   node.IsLeaf(),
		Bounds: RectFromBounds(node.Bounds()),
		Item:   *node.Item(),
	}

	if parent, ok := node.ParentIndex(); ok {
		view.Parent = &parent
	}
	if children, ok := node.ChildrenIndex(); ok {
		view.Children = children[:]
	}
	if node.IsLeaf() {
		neighbors := make(map[string]quadtree.Index)
		for _, direction := range []quadtree.Cardinality{quadtree.West, quadtree.North, quadtree.East, quadtree.South} {
			if neighbor, ok := node.NeighborIndex(direction); ok {
				neighbors[direction.String()] = neighbor
			}
		}
		if len(neighbors) != 0 {
			view.Neighbors = neighbors
		}
	}
	return view, nil
}

// Subdivide splits a leaf into four children carrying the given payloads
// and notifies the tree's watchers.
func (h *TreeHandle) Subdivide(index quadtree.Index, items [4]Payload) ([4]quadtree.Index, error) {
	h.mutex.Lock()
	children, err := h.tree.Subdivide(index, items)
	h.mutex.Unlock()

	if err != nil {
		return children, err
	}

	instrumentCountTreeOp(TreeEventSubdivide)
	h.notify(TreeEvent{
		TreeID:   h.ID,
		Op:       TreeEventSubdivide,
		Index:    index,
		Children: children[:],
	})
	return children, nil
}

// PopChildren removes the four leaf children of a node, returns their
// payloads and notifies the tree's watchers.
func (h *TreeHandle) PopChildren(index quadtree.Index) ([4]Payload, error) {
	h.mutex.Lock()
	_, found := h.tree.Node(index)
	items, ok := h.tree.PopChildren(index)
	h.mutex.Unlock()

	if !found {
		return items, errors.New("node not found").
			WithType(ErrTypeNodeNotFound).
			WithTag("tree_id", h.ID).
			WithTag("node", index)
	}
	if !ok {
		return items, errors.New("node children cannot be popped").
			WithType(ErrTypeNotPoppable).
			WithTag("tree_id", h.ID).
			WithTag("node", index)
	}

	instrumentCountTreeOp(TreeEventPopChildren)
	h.notify(TreeEvent{
		TreeID: h.ID,
		Op:     TreeEventPopChildren,
		Index:  index,
	})
	return items, nil
}

// Neighbors returns the ordered border neighbors of a node in one
// direction.
func (h *TreeHandle) Neighbors(index quadtree.Index, direction quadtree.Cardinality) ([]quadtree.Index, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	neighbors, ok := quadtree.Neighbors[Payload, float64](h.tree, index, direction)
	if !ok {
		return nil, errors.New("node not found").
			WithType(ErrTypeNodeNotFound).
			WithTag("tree_id", h.ID).
			WithTag("node", index)
	}
	return neighbors, nil
}

// SiblingLocation returns which of its parent's quadrants the node
// occupies.
func (h *TreeHandle) SiblingLocation(index quadtree.Index) (quadtree.Location, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.tree.Node(index); !ok {
		return 0, errors.New("node not found").
			WithType(ErrTypeNodeNotFound).
			WithTag("tree_id", h.ID).
			WithTag("node", index)
	}

	location, ok := quadtree.LocationAmongSiblings[Payload, float64](h.tree, index)
	if !ok {
		return 0, errors.New("node has no siblings").
			WithType(ErrTypeNoSiblings).
			WithTag("tree_id", h.ID).
			WithTag("node", index)
	}
	return location, nil
}

// PointLocate returns the leaf containing the point.
func (h *TreeHandle) PointLocate(x, y float64) (quadtree.Index, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	index, ok := h.tree.PointLocate(x, y)
	if !ok {
		return quadtree.NoIndex, errors.New("point is outside the tree bounds").
			WithType(ErrTypeOutOfBounds).
			WithTag("tree_id", h.ID).
			WithTag("x", x).
			WithTag("y", y)
	}
	return index, nil
}

// RegionLocate returns every leaf intersecting the query rectangle.
func (h *TreeHandle) RegionLocate(region quadtree.Bounds[float64]) ([]quadtree.Index, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	leaves, ok := h.tree.RegionLocate(region)
	if !ok {
		return nil, errors.New("region does not intersect the tree bounds").
			WithType(ErrTypeOutOfBounds).
			WithTag("tree_id", h.ID)
	}
	return leaves, nil
}

// DepthPopulation returns the number of live nodes per depth, indexed by
// depth.
func (h *TreeHandle) DepthPopulation() []int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return h.tree.DepthPopulation()
}

// Watch registers a watcher and returns its id and event channel. The
// channel is closed when the watcher is removed or the tree is removed
// from its store.
func (h *TreeHandle) Watch() (uint32, <-chan TreeEvent) {
	h.watcherMutex.Lock()
	defer h.watcherMutex.Unlock()

	ch := make(chan TreeEvent, watcherQueueSize)
	if h.watchersDone {
		close(ch)
		return 0, ch
	}

	id := h.watcherIDs.New()
	if h.watchers == nil {
		h.watchers = make(map[uint32]chan TreeEvent)
	}
	h.watchers[id] = ch

	instrumentIncreaseWatcherGauge()
	return id, ch
}

// Unwatch removes a watcher and closes its channel. The id may be handed
// to a later watcher.
func (h *TreeHandle) Unwatch(id uint32) {
	h.watcherMutex.Lock()
	defer h.watcherMutex.Unlock()

	ch, ok := h.watchers[id]
	if !ok {
		return
	}
	delete(h.watchers, id)
	h.watcherIDs.Reuse(id)
	close(ch)

	instrumentDecreaseWatcherGauge()
}

func (h *TreeHandle) WatcherCount() int {
	h.watcherMutex.Lock()
	defer h.watcherMutex.Unlock()

	return len(h.watchers)
}

func (h *TreeHandle) notify(e TreeEvent) {
	h.watcherMutex.Lock()
	defer h.watcherMutex.Unlock()

	for _, ch := range h.watchers {
		select {
		case ch <- e:
		default:
		}
	}
}

func (h *TreeHandle) closeWatchers() {
	h.watcherMutex.Lock()
	defer h.watcherMutex.Unlock()

	h.watchersDone = true
	for id, ch := range h.watchers {
		delete(h.watchers, id)
		close(ch)
		instrumentDecreaseWatcherGauge()
	}
}
