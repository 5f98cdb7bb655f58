package systems

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/shoal/components"
)

// GridOptions configures bucket sizing and adaptive capacity management.
type GridOptions struct {
	InitialCapacity int  // per-cell capacity buckets are seeded with
	Adaptive        bool // recompute optimal capacity from occupancy stats
	MinCapacity     int  // lower clamp for adaptive capacity
	MaxCapacity     int  // upper clamp for adaptive capacity
	CapacitySlack   int  // fixed headroom added to the optimal estimate
}

// SpatialGrid buckets agents into uniform 3D cells over a bounded volume,
// turning O(n^2) proximity scans into near-local queries. The grid is
// rebuilt (Clear + full reinsert) once per refresh cycle rather than
// incrementally maintained.
type SpatialGrid struct {
	cellSize   float32
	min, max   Vec3
	nx, ny, nz int
	total      int

	cells []*CellList
	pool  *CellListPool
	opts  GridOptions

	capacity      int   // current per-cell capacity
	expansions    int64 // buckets grown past their allocated capacity
	historicalMax int   // largest occupancy ever observed in one cell
}

// NewSpatialGrid creates a grid over [min, max] with the given cell size.
// Fails fast on a non-positive cell size or a degenerate (zero-extent)
// axis rather than producing a divide-by-zero grid.
func NewSpatialGrid(cellSize float32, min, max Vec3, opts GridOptions) (*SpatialGrid, error) {
	if cellSize <= 0 {
		return nil, fmt.Errorf("spatial grid: cell size must be positive, got %v", cellSize)
	}
	ext := max.Sub(min)
	if ext.X <= 0 || ext.Y <= 0 || ext.Z <= 0 {
		return nil, fmt.Errorf("spatial grid: degenerate world bounds, extent %v x %v x %v", ext.X, ext.Y, ext.Z)
	}
	if opts.InitialCapacity < 1 {
		opts.InitialCapacity = 8
	}
	if opts.MinCapacity < 1 {
		opts.MinCapacity = 1
	}
	if opts.MaxCapacity < opts.MinCapacity {
		opts.MaxCapacity = opts.MinCapacity
	}

	g := &SpatialGrid{
		cellSize: cellSize,
		min:      min,
		max:      max,
		nx:       ceilDiv(ext.X, cellSize),
		ny:       ceilDiv(ext.Y, cellSize),
		nz:       ceilDiv(ext.Z, cellSize),
		pool:     NewCellListPool(opts.InitialCapacity),
		opts:     opts,
		capacity: opts.InitialCapacity,
	}
	g.total = g.nx * g.ny * g.nz

	// Allocate the flat bucket array once, each bucket seeded from the pool.
	g.cells = make([]*CellList, g.total)
	for i := range g.cells {
		g.cells[i] = g.pool.Get()
	}

	return g, nil
}

// Dims returns the per-axis cell counts.
func (g *SpatialGrid) Dims() (nx, ny, nz int) {
	return g.nx, g.ny, g.nz
}

// TotalCells returns the flat bucket count nx*ny*nz.
func (g *SpatialGrid) TotalCells() int {
	return g.total
}

// Capacity returns the current per-cell capacity target.
func (g *SpatialGrid) Capacity() int {
	return g.capacity
}

// Adaptive reports whether adaptive capacity management is enabled.
func (g *SpatialGrid) Adaptive() bool {
	return g.opts.Adaptive
}

// Clear empties every bucket without releasing the backing storage.
func (g *SpatialGrid) Clear() {
	for _, c := range g.cells {
		c.Reset()
	}
}

// cellCoord maps a position to integer cell coordinates. The mapping is
// half-open: a position exactly on a cell boundary belongs to the higher
// cell, so every in-bounds position maps to exactly one cell.
func (g *SpatialGrid) cellCoord(x, y, z float32) (cx, cy, cz int) {
	cx = int(floorf((x - g.min.X) / g.cellSize))
	cy = int(floorf((y - g.min.Y) / g.cellSize))
	cz = int(floorf((z - g.min.Z) / g.cellSize))
	return cx, cy, cz
}

// inBounds reports whether the cell coordinate is inside [0, dim) on all axes.
func (g *SpatialGrid) inBounds(cx, cy, cz int) bool {
	return cx >= 0 && cx < g.nx && cy >= 0 && cy < g.ny && cz >= 0 && cz < g.nz
}

// flatIndex returns the flat bucket index for an in-bounds coordinate.
func (g *SpatialGrid) flatIndex(cx, cy, cz int) int {
	return (cz*g.ny+cy)*g.nx + cx
}

// Insert adds an agent at the given position. A position that maps outside
// the grid on any axis is silently dropped for this rebuild; the agent
// simply contributes no neighbors until it re-enters the volume. Returns
// false when the insert was dropped or the agent was already present.
func (g *SpatialGrid) Insert(e ecs.Entity, x, y, z float32) bool {
	cx, cy, cz := g.cellCoord(x, y, z)
	if !g.inBounds(cx, cy, cz) {
		return false
	}

	cell := g.cells[g.flatIndex(cx, cy, cz)]
	if cell.Contains(e) {
		return false
	}
	if cell.Len() == cell.Cap() {
		g.expansions++
	}
	cell.Add(e)
	if cell.Len() > g.historicalMax {
		g.historicalMax = cell.Len()
	}
	return true
}

// QueryNeighborsInto finds live agents within radius of the origin,
// excluding the querying agent itself. The output buffer is cleared first.
// Distances are compared squared; no square root is taken on this path.
// A zero or negative radius yields an empty result.
func (g *SpatialGrid) QueryNeighborsInto(
	dst *NeighborBuffer,
	x, y, z, radius float32,
	exclude ecs.Entity,
	posMap *ecs.Map1[components.Position],
	boidMap *ecs.Map1[components.Boid],
) {
	dst.Reset()
	if radius <= 0 {
		return
	}

	ccx, ccy, ccz := g.cellCoord(x, y, z)
	cellRadius := ceilDiv(radius, g.cellSize)

	x0 := clampInt(ccx-cellRadius, 0, g.nx-1)
	x1 := clampInt(ccx+cellRadius, 0, g.nx-1)
	y0 := clampInt(ccy-cellRadius, 0, g.ny-1)
	y1 := clampInt(ccy+cellRadius, 0, g.ny-1)
	z0 := clampInt(ccz-cellRadius, 0, g.nz-1)
	z1 := clampInt(ccz+cellRadius, 0, g.nz-1)

	radiusSq := radius * radius

	for cz := z0; cz <= z1; cz++ {
		for cy := y0; cy <= y1; cy++ {
			base := (cz*g.ny + cy) * g.nx
			for cx := x0; cx <= x1; cx++ {
				for _, e := range g.cells[base+cx].Items() {
					if e == exclude {
						continue
					}
					// Removal can interleave with a pending query; filter
					// dead agents defensively instead of erroring.
					boid := boidMap.Get(e)
					if boid == nil || !boid.Alive {
						continue
					}
					pos := posMap.Get(e)
					if pos == nil {
						continue
					}

					dx := pos.X - x
					dy := pos.Y - y
					dz := pos.Z - z
					distSq := dx*dx + dy*dy + dz*dz
					if distSq <= radiusSq {
						dst.Add(Neighbor{E: e, DX: dx, DY: dy, DZ: dz, DistSq: distSq})
					}
				}
			}
		}
	}
}

// OccupiedCells appends the coordinates of every non-empty cell to dst.
// The buffer is cleared first.
func (g *SpatialGrid) OccupiedCells(dst *CoordBuffer) {
	dst.Reset()
	for cz := 0; cz < g.nz; cz++ {
		for cy := 0; cy < g.ny; cy++ {
			base := (cz*g.ny + cy) * g.nx
			for cx := 0; cx < g.nx; cx++ {
				if g.cells[base+cx].Len() > 0 {
					dst.Add(CellCoord{X: cx, Y: cy, Z: cz})
				}
			}
		}
	}
}

// OptimalCapacity estimates a per-cell capacity from current occupancy:
// mean * 1.5 + stddev + slack over occupied cells, clamped to the
// configured band. Returns the current capacity when the grid is empty.
func (g *SpatialGrid) OptimalCapacity() int {
	occ := make([]float64, 0, 256)
	for _, c := range g.cells {
		if c.Len() > 0 {
			occ = append(occ, float64(c.Len()))
		}
	}
	if len(occ) == 0 {
		return g.capacity
	}

	mean := stat.Mean(occ, nil)
	std := 0.0
	if len(occ) > 1 {
		std = stat.StdDev(occ, nil)
	}

	optimal := int(mean*1.5+std) + g.opts.CapacitySlack
	return clampInt(optimal, g.opts.MinCapacity, g.opts.MaxCapacity)
}

// ApplyCapacity resizes every bucket to the given capacity, copying all
// existing contents into freshly sized storage. Never destructive: a
// non-positive capacity is rejected and the previous capacity retained.
func (g *SpatialGrid) ApplyCapacity(capacity int) error {
	if capacity <= 0 {
		return fmt.Errorf("spatial grid: capacity must be positive, got %d", capacity)
	}
	for _, c := range g.cells {
		c.Regrow(capacity)
	}
	g.capacity = capacity
	g.pool.SetCapacity(capacity)
	return nil
}

// GridSnapshot is a point-in-time diagnostic view of grid occupancy and
// capacity behavior. Consumed by telemetry; not required for correctness.
type GridSnapshot struct {
	TotalCells    int
	ActiveCells   int
	Agents        int
	Capacity      int
	MeanOccupancy float64 // over occupied cells
	MaxOccupancy  int
	HistoricalMax int
	Expansions    int64
	Utilization   float64 // mean occupancy / capacity
}

// Snapshot returns current occupancy and capacity diagnostics.
func (g *SpatialGrid) Snapshot() GridSnapshot {
	s := GridSnapshot{
		TotalCells:    g.total,
		Capacity:      g.capacity,
		HistoricalMax: g.historicalMax,
		Expansions:    g.expansions,
	}

	sum := 0
	for _, c := range g.cells {
		n := c.Len()
		if n == 0 {
			continue
		}
		s.ActiveCells++
		sum += n
		if n > s.MaxOccupancy {
			s.MaxOccupancy = n
		}
	}
	s.Agents = sum
	if s.ActiveCells > 0 {
		s.MeanOccupancy = float64(sum) / float64(s.ActiveCells)
	}
	if g.capacity > 0 {
		s.Utilization = s.MeanOccupancy / float64(g.capacity)
	}
	return s
}
