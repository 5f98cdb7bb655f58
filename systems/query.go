package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/components"
)

// NeighborQuery answers "who is near me" for one agent. The two
// implementations must return the same agent set for the same snapshot;
// only the result ordering may differ. The active implementation is
// swappable at runtime and takes effect on the next scheduled refresh.
type NeighborQuery interface {
	// QueryNeighbors clears dst and fills it with live agents within
	// radius of the origin, excluding the querying agent.
	QueryNeighbors(dst *NeighborBuffer, x, y, z, radius float32, exclude ecs.Entity)

	// Name identifies the strategy in config and telemetry.
	Name() string
}

// Strategy names accepted by config and Sim.SetQueryStrategy.
const (
	StrategyGrid       = "grid"
	StrategyBruteForce = "brute"
)

// GridQuery resolves neighbor queries against the spatial grid. The grid
// must have been rebuilt for the current refresh cycle.
type GridQuery struct {
	grid    *SpatialGrid
	posMap  *ecs.Map1[components.Position]
	boidMap *ecs.Map1[components.Boid]
}

// NewGridQuery creates a grid-backed query strategy.
func NewGridQuery(grid *SpatialGrid, w *ecs.World) *GridQuery {
	return &GridQuery{
		grid:    grid,
		posMap:  ecs.NewMap1[components.Position](w),
		boidMap: ecs.NewMap1[components.Boid](w),
	}
}

// QueryNeighbors implements NeighborQuery.
func (q *GridQuery) QueryNeighbors(dst *NeighborBuffer, x, y, z, radius float32, exclude ecs.Entity) {
	q.grid.QueryNeighborsInto(dst, x, y, z, radius, exclude, q.posMap, q.boidMap)
}

// Name implements NeighborQuery.
func (q *GridQuery) Name() string {
	return StrategyGrid
}

// BruteForceQuery scans every positioned agent. O(n) per query; kept as
// the reference implementation the grid is validated against, and as a
// fallback for tiny populations where the grid rebuild dominates.
type BruteForceQuery struct {
	filter *ecs.Filter2[components.Position, components.Boid]
}

// NewBruteForceQuery creates an exhaustive-scan query strategy.
func NewBruteForceQuery(w *ecs.World) *BruteForceQuery {
	return &BruteForceQuery{
		filter: ecs.NewFilter2[components.Position, components.Boid](w),
	}
}

// QueryNeighbors implements NeighborQuery.
func (q *BruteForceQuery) QueryNeighbors(dst *NeighborBuffer, x, y, z, radius float32, exclude ecs.Entity) {
	dst.Reset()
	if radius <= 0 {
		return
	}
	radiusSq := radius * radius

	query := q.filter.Query()
	for query.Next() {
		e := query.Entity()
		if e == exclude {
			continue
		}
		pos, boid := query.Get()
		if !boid.Alive {
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

// Name implements NeighborQuery.
func (q *BruteForceQuery) Name() string {
	return StrategyBruteForce
}
