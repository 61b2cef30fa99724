package models

import "sync"

// SequentialIDGenerator hands out uint32 ids starting at 1. Ids given
// back with Reuse are handed out again, most recently returned first,
// before a fresh id is minted.
type SequentialIDGenerator struct {
	mutex     sync.Mutex
	currentID uint32
	reusable  []uint32
}

func (g *SequentialIDGenerator) New() uint32 {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if n := len(g.reusable); n != 0 {
		id := g.reusable[n-1]
		g.reusable = g.reusable[:n-1]
		return id
	}

	g.currentID++
	return g.currentID
}

// Reuse marks the given id as available again. The caller must not hold
// on to the id afterwards.
func (g *SequentialIDGenerator) Reuse(id uint32) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.reusable = append(g.reusable, id)
}
