package systems

import "github.com/mlange-42/ark/ecs"

// Neighbor holds a nearby agent with precomputed spatial data.
// This avoids recomputing deltas and distances in the steering rules.
type Neighbor struct {
	E          ecs.Entity
	DX, DY, DZ float32 // Delta from query origin
	DistSq     float32 // Squared distance (avoid sqrt in hot path)
}

// NeighborBuffer is a reusable list of query results. Buffers are checked
// out of a NeighborPool immediately before a query and returned immediately
// after the results are consumed.
type NeighborBuffer struct {
	items []Neighbor
}

// Reset empties the buffer without releasing backing storage.
func (b *NeighborBuffer) Reset() {
	b.items = b.items[:0]
}

// Add appends a neighbor.
func (b *NeighborBuffer) Add(n Neighbor) {
	b.items = append(b.items, n)
}

// Len returns the number of neighbors held.
func (b *NeighborBuffer) Len() int {
	return len(b.items)
}

// Items returns the underlying slice. Valid only until the buffer is
// returned to its pool.
func (b *NeighborBuffer) Items() []Neighbor {
	return b.items
}

// NeighborPool recycles NeighborBuffers so queries allocate nothing in
// steady state. Contract: exactly one Return per Get, no use after Return.
type NeighborPool struct {
	free       []*NeighborBuffer
	initialCap int
}

// NewNeighborPool creates a pool whose fresh buffers hold initialCap
// neighbors before growing.
func NewNeighborPool(initialCap int) *NeighborPool {
	if initialCap < 1 {
		initialCap = 16
	}
	return &NeighborPool{initialCap: initialCap}
}

// Get returns a cleared buffer, constructing one if the pool is empty.
func (p *NeighborPool) Get() *NeighborBuffer {
	if n := len(p.free); n > 0 {
		b := p.free[n-1]
		p.free = p.free[:n-1]
		return b
	}
	return &NeighborBuffer{items: make([]Neighbor, 0, p.initialCap)}
}

// Return clears the buffer and pushes it back for reuse.
func (p *NeighborPool) Return(b *NeighborBuffer) {
	b.Reset()
	p.free = append(p.free, b)
}

// FreeCount returns the number of idle buffers held by the pool.
func (p *NeighborPool) FreeCount() int {
	return len(p.free)
}

// CellList is a grow-on-demand agent list backing one grid cell.
type CellList struct {
	items []ecs.Entity
}

// Reset empties the list without releasing backing storage.
func (l *CellList) Reset() {
	l.items = l.items[:0]
}

// Add appends an entity.
func (l *CellList) Add(e ecs.Entity) {
	l.items = append(l.items, e)
}

// Contains reports whether e is already in the list.
func (l *CellList) Contains(e ecs.Entity) bool {
	for _, x := range l.items {
		if x == e {
			return true
		}
	}
	return false
}

// Len returns the number of entities held.
func (l *CellList) Len() int {
	return len(l.items)
}

// Cap returns the allocated capacity.
func (l *CellList) Cap() int {
	return cap(l.items)
}

// Items returns the underlying slice.
func (l *CellList) Items() []ecs.Entity {
	return l.items
}

// Regrow replaces the backing array with freshly sized storage of the
// given capacity, copying all current contents. Never drops entities.
func (l *CellList) Regrow(capacity int) {
	if capacity < len(l.items) {
		capacity = len(l.items)
	}
	fresh := make([]ecs.Entity, len(l.items), capacity)
	copy(fresh, l.items)
	l.items = fresh
}

// CellListPool recycles per-cell agent lists. The grid seeds every bucket
// from this pool at construction and draws from it on capacity changes.
type CellListPool struct {
	free     []*CellList
	capacity int
}

// NewCellListPool creates a pool whose fresh lists hold capacity entities
// before growing.
func NewCellListPool(capacity int) *CellListPool {
	if capacity < 1 {
		capacity = 8
	}
	return &CellListPool{capacity: capacity}
}

// Get returns a cleared list, constructing one if the pool is empty.
func (p *CellListPool) Get() *CellList {
	if n := len(p.free); n > 0 {
		l := p.free[n-1]
		p.free = p.free[:n-1]
		return l
	}
	return &CellList{items: make([]ecs.Entity, 0, p.capacity)}
}

// Return clears the list and pushes it back for reuse.
func (p *CellListPool) Return(l *CellList) {
	l.Reset()
	p.free = append(p.free, l)
}

// SetCapacity changes the capacity used for newly constructed lists.
// Non-positive values are ignored.
func (p *CellListPool) SetCapacity(capacity int) {
	if capacity > 0 {
		p.capacity = capacity
	}
}

// Capacity returns the capacity used for newly constructed lists.
func (p *CellListPool) Capacity() int {
	return p.capacity
}

// CellCoord is an integer cell coordinate in the grid.
type CellCoord struct {
	X, Y, Z int
}

// CoordBuffer is a reusable list of occupied-cell coordinates used by
// diagnostics sampling.
type CoordBuffer struct {
	items []CellCoord
}

// Reset empties the buffer without releasing backing storage.
func (b *CoordBuffer) Reset() {
	b.items = b.items[:0]
}

// Add appends a coordinate.
func (b *CoordBuffer) Add(c CellCoord) {
	b.items = append(b.items, c)
}

// Len returns the number of coordinates held.
func (b *CoordBuffer) Len() int {
	return len(b.items)
}

// Items returns the underlying slice. Valid only until the buffer is
// returned to its pool.
func (b *CoordBuffer) Items() []CellCoord {
	return b.items
}

// CoordPool recycles CoordBuffers.
type CoordPool struct {
	free       []*CoordBuffer
	initialCap int
}

// NewCoordPool creates a pool whose fresh buffers hold initialCap
// coordinates before growing.
func NewCoordPool(initialCap int) *CoordPool {
	if initialCap < 1 {
		initialCap = 64
	}
	return &CoordPool{initialCap: initialCap}
}

// Get returns a cleared buffer, constructing one if the pool is empty.
func (p *CoordPool) Get() *CoordBuffer {
	if n := len(p.free); n > 0 {
		b := p.free[n-1]
		p.free = p.free[:n-1]
		return b
	}
	return &CoordBuffer{items: make([]CellCoord, 0, p.initialCap)}
}

// Return clears the buffer and pushes it back for reuse.
func (p *CoordPool) Return(b *CoordBuffer) {
	b.Reset()
	p.free = append(p.free, b)
}
