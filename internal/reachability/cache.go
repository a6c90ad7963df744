package reachability

import "sync/atomic"

// generationCounter is a lock-free logical clock. Invalidate bumps it;
// recompute does not read it back, and staleness is decided by the
// engine's own dirty flag.
type generationCounter struct {
	value atomic.Uint64
}

func (g *generationCounter) bump() uint64 {
	return g.value.Add(1)
}

func (g *generationCounter) current() uint64 {
	return g.value.Load()
}
