package isosurface

// ReconcileStats reports what one Reconcile call did.
type ReconcileStats struct {
	// Kept counts chunks whose coordinate stayed in the grid.
	Kept int

	// Created counts chunks allocated for new coordinates.
	Created int

	// Revived counts recycled chunks reassigned to new coordinates.
	Revived int

	// Recycled counts chunks whose coordinate left the grid.
	Recycled int
}

// Lattice maps grid coordinates to chunks. Chunks keep their identity for
// as long as their coordinate stays requested, so per-chunk resources held
// elsewhere (device meshes, collision shapes) are not recreated needlessly.
//
// A Lattice is not safe for concurrent use. It must be fully reconciled
// before chunks are triangulated in parallel.
type Lattice struct {
	chunks map[Coord]*Chunk
	order  []*Chunk
	pool   []*Chunk

	// OnRecycle, if set, is called for every chunk leaving the grid after
	// it has been cleared.
	OnRecycle func(*Chunk)
}

// NewLattice returns an empty lattice.
func NewLattice() *Lattice {
	return &Lattice{chunks: make(map[Coord]*Chunk)}
}

// Reconcile makes the lattice hold exactly the requested coordinates.
// Existing chunks with a requested coordinate are kept; missing
// coordinates get a pooled chunk or a new one; every other chunk is
// recycled into the pool. Duplicate coordinates are collapsed.
func (l *Lattice) Reconcile(requested []Coord) ReconcileStats {
	var stats ReconcileStats
	next := make(map[Coord]*Chunk, len(requested))
	order := make([]*Chunk, 0, len(requested))

	for _, c := range requested {
		if _, dup := next[c]; dup {
			continue
		}
		ch, ok := l.chunks[c]
		switch {
		case ok:
			stats.Kept++
		case len(l.pool) > 0:
			ch = l.pool[len(l.pool)-1]
			l.pool = l.pool[:len(l.pool)-1]
			ch.coord = c
			stats.Revived++
		default:
			ch = NewChunk(c)
			stats.Created++
		}
		next[c] = ch
		order = append(order, ch)
	}

	for _, ch := range l.order {
		if _, ok := next[ch.coord]; ok {
			continue
		}
		ch.Recycle()
		l.pool = append(l.pool, ch)
		stats.Recycled++
		if l.OnRecycle != nil {
			l.OnRecycle(ch)
		}
	}

	l.chunks = next
	l.order = order
	return stats
}

// Chunks returns the active chunks in request order.
func (l *Lattice) Chunks() []*Chunk {
	return append([]*Chunk(nil), l.order...)
}

// Chunk returns the chunk at c, if any.
func (l *Lattice) Chunk(c Coord) (*Chunk, bool) {
	ch, ok := l.chunks[c]
	return ch, ok
}

// Coords returns the active coordinates in request order.
func (l *Lattice) Coords() []Coord {
	coords := make([]Coord, len(l.order))
	for i, ch := range l.order {
		coords[i] = ch.coord
	}
	return coords
}

// Len returns the number of active chunks.
func (l *Lattice) Len() int { return len(l.order) }

// Pooled returns the number of recycled chunks awaiting reuse.
func (l *Lattice) Pooled() int { return len(l.pool) }

// Clear recycles every chunk and empties the pool.
func (l *Lattice) Clear() {
	for _, ch := range l.order {
		ch.Recycle()
		if l.OnRecycle != nil {
			l.OnRecycle(ch)
		}
	}
	l.chunks = make(map[Coord]*Chunk)
	l.order = nil
	l.pool = nil
}
