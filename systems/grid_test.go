package systems

import (
	"math"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/components"
)

// gridFixture bundles an ECS world with the component mappers the grid
// query path needs.
type gridFixture struct {
	world   *ecs.World
	mapper  *ecs.Map2[components.Position, components.Boid]
	posMap  *ecs.Map1[components.Position]
	boidMap *ecs.Map1[components.Boid]
}

func newGridFixture() *gridFixture {
	world := ecs.NewWorld()
	return &gridFixture{
		world:   world,
		mapper:  ecs.NewMap2[components.Position, components.Boid](world),
		posMap:  ecs.NewMap1[components.Position](world),
		boidMap: ecs.NewMap1[components.Boid](world),
	}
}

func (f *gridFixture) spawn(x, y, z float32, alive bool) ecs.Entity {
	pos := components.Position{X: x, Y: y, Z: z}
	boid := components.Boid{Alive: alive}
	return f.mapper.NewEntity(&pos, &boid)
}

func TestNewSpatialGridValidation(t *testing.T) {
	min := Vec3{-100, -100, -100}
	max := Vec3{100, 100, 100}

	tests := []struct {
		name     string
		cellSize float32
		min, max Vec3
		wantErr  bool
	}{
		{"valid", 10, min, max, false},
		{"zero cell size", 0, min, max, true},
		{"negative cell size", -5, min, max, true},
		{"zero extent x", 10, Vec3{0, -100, -100}, Vec3{0, 100, 100}, true},
		{"zero extent y", 10, Vec3{-100, 0, -100}, Vec3{100, 0, 100}, true},
		{"inverted bounds", 10, max, min, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSpatialGrid(tt.cellSize, tt.min, tt.max, GridOptions{})
			if (err != nil) != tt.wantErr {
				t.Errorf("NewSpatialGrid() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGridDims(t *testing.T) {
	tests := []struct {
		name       string
		cellSize   float32
		min, max   Vec3
		wantX      int
		wantY      int
		wantZ      int
	}{
		{"exact fit", 10, Vec3{-200, -200, -200}, Vec3{200, 200, 200}, 40, 40, 40},
		{"partial cell rounds up", 10, Vec3{0, 0, 0}, Vec3{95, 95, 95}, 10, 10, 10},
		{"asymmetric volume", 5, Vec3{0, 0, 0}, Vec3{50, 20, 10}, 10, 4, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewSpatialGrid(tt.cellSize, tt.min, tt.max, GridOptions{})
			if err != nil {
				t.Fatalf("NewSpatialGrid() error = %v", err)
			}
			nx, ny, nz := g.Dims()
			if nx != tt.wantX || ny != tt.wantY || nz != tt.wantZ {
				t.Errorf("Dims() = %d,%d,%d, want %d,%d,%d", nx, ny, nz, tt.wantX, tt.wantY, tt.wantZ)
			}
			if g.TotalCells() != tt.wantX*tt.wantY*tt.wantZ {
				t.Errorf("TotalCells() = %d, want %d", g.TotalCells(), tt.wantX*tt.wantY*tt.wantZ)
			}
		})
	}
}

func TestInsertOutOfBoundsDropped(t *testing.T) {
	f := newGridFixture()
	g, err := NewSpatialGrid(10, Vec3{-50, -50, -50}, Vec3{50, 50, 50}, GridOptions{})
	if err != nil {
		t.Fatalf("NewSpatialGrid() error = %v", err)
	}

	e := f.spawn(60, 0, 0, true)
	if g.Insert(e, 60, 0, 0) {
		t.Error("expected out-of-bounds insert to be dropped")
	}
	if g.Insert(e, 0, -51, 0) {
		t.Error("expected out-of-bounds insert to be dropped on y")
	}

	snap := g.Snapshot()
	if snap.Agents != 0 {
		t.Errorf("expected empty grid after dropped inserts, got %d agents", snap.Agents)
	}
}

func TestInsertDuplicateRejected(t *testing.T) {
	f := newGridFixture()
	g, _ := NewSpatialGrid(10, Vec3{-50, -50, -50}, Vec3{50, 50, 50}, GridOptions{})

	e := f.spawn(0, 0, 0, true)
	if !g.Insert(e, 0, 0, 0) {
		t.Fatal("first insert should succeed")
	}
	if g.Insert(e, 0, 0, 0) {
		t.Error("duplicate insert into the same cell should be rejected")
	}
	if g.Snapshot().Agents != 1 {
		t.Errorf("expected 1 agent, got %d", g.Snapshot().Agents)
	}
}

func TestQueryNeighborsDistances(t *testing.T) {
	f := newGridFixture()
	g, _ := NewSpatialGrid(10, Vec3{-50, -50, -50}, Vec3{50, 50, 50}, GridOptions{})

	origin := f.spawn(0, 0, 0, true)
	near := f.spawn(3, 4, 0, true)   // dist 5
	edge := f.spawn(0, 0, 10, true)  // dist 10, exactly on radius
	far := f.spawn(20, 0, 0, true)   // dist 20, outside

	for _, e := range []ecs.Entity{origin, near, edge, far} {
		pos := f.posMap.Get(e)
		g.Insert(e, pos.X, pos.Y, pos.Z)
	}

	buf := &NeighborBuffer{}
	g.QueryNeighborsInto(buf, 0, 0, 0, 10, origin, f.posMap, f.boidMap)

	if buf.Len() != 2 {
		t.Fatalf("expected 2 neighbors, got %d", buf.Len())
	}

	found := map[ecs.Entity]Neighbor{}
	for _, n := range buf.Items() {
		found[n.E] = n
	}

	n, ok := found[near]
	if !ok {
		t.Fatal("expected near agent in results")
	}
	if math.Abs(float64(n.DistSq-25)) > 0.001 {
		t.Errorf("near DistSq = %v, want 25", n.DistSq)
	}
	if n.DX != 3 || n.DY != 4 || n.DZ != 0 {
		t.Errorf("near delta = %v,%v,%v, want 3,4,0", n.DX, n.DY, n.DZ)
	}

	// Boundary case: exactly on the radius is included.
	if _, ok := found[edge]; !ok {
		t.Error("expected agent at exact radius in results")
	}
	if _, ok := found[far]; ok {
		t.Error("agent outside radius should not be in results")
	}
}

func TestQueryExcludesSelfAndDead(t *testing.T) {
	f := newGridFixture()
	g, _ := NewSpatialGrid(10, Vec3{-50, -50, -50}, Vec3{50, 50, 50}, GridOptions{})

	origin := f.spawn(0, 0, 0, true)
	dead := f.spawn(1, 0, 0, false)
	alive := f.spawn(2, 0, 0, true)

	g.Insert(origin, 0, 0, 0)
	g.Insert(dead, 1, 0, 0)
	g.Insert(alive, 2, 0, 0)

	buf := &NeighborBuffer{}
	g.QueryNeighborsInto(buf, 0, 0, 0, 10, origin, f.posMap, f.boidMap)

	if buf.Len() != 1 {
		t.Fatalf("expected 1 neighbor, got %d", buf.Len())
	}
	if buf.Items()[0].E != alive {
		t.Error("expected only the live non-self agent in results")
	}
}

func TestQueryZeroRadius(t *testing.T) {
	f := newGridFixture()
	g, _ := NewSpatialGrid(10, Vec3{-50, -50, -50}, Vec3{50, 50, 50}, GridOptions{})

	origin := f.spawn(0, 0, 0, true)
	other := f.spawn(1, 0, 0, true)
	g.Insert(origin, 0, 0, 0)
	g.Insert(other, 1, 0, 0)

	buf := &NeighborBuffer{}
	buf.Add(Neighbor{}) // stale content must be cleared

	g.QueryNeighborsInto(buf, 0, 0, 0, 0, origin, f.posMap, f.boidMap)
	if buf.Len() != 0 {
		t.Errorf("zero radius should yield empty result, got %d", buf.Len())
	}
}

func TestQueryRadiusSpanningCells(t *testing.T) {
	f := newGridFixture()
	g, _ := NewSpatialGrid(10, Vec3{-50, -50, -50}, Vec3{50, 50, 50}, GridOptions{})

	// Neighbor in a different cell but within the radius; the cell
	// neighborhood must extend past the immediate 3x3x3 block.
	origin := f.spawn(0, 0, 0, true)
	twoAway := f.spawn(25, 0, 0, true)
	g.Insert(origin, 0, 0, 0)
	g.Insert(twoAway, 25, 0, 0)

	buf := &NeighborBuffer{}
	g.QueryNeighborsInto(buf, 0, 0, 0, 30, origin, f.posMap, f.boidMap)

	if buf.Len() != 1 {
		t.Fatalf("expected neighbor two cells away, got %d results", buf.Len())
	}
}

func TestClearRetainsStorage(t *testing.T) {
	f := newGridFixture()
	g, _ := NewSpatialGrid(10, Vec3{-50, -50, -50}, Vec3{50, 50, 50}, GridOptions{InitialCapacity: 4})

	e := f.spawn(0, 0, 0, true)
	g.Insert(e, 0, 0, 0)

	g.Clear()
	if g.Snapshot().Agents != 0 {
		t.Error("expected empty grid after Clear")
	}

	// Idempotent: a second Clear on an empty grid is a no-op.
	g.Clear()
	if g.Snapshot().Agents != 0 {
		t.Error("expected empty grid after repeated Clear")
	}

	// Reinsertion works after clearing.
	if !g.Insert(e, 0, 0, 0) {
		t.Error("expected insert to succeed after Clear")
	}
}

func TestExpansionsAndHistoricalMax(t *testing.T) {
	f := newGridFixture()
	g, _ := NewSpatialGrid(10, Vec3{-50, -50, -50}, Vec3{50, 50, 50}, GridOptions{
		InitialCapacity: 2,
		MinCapacity:     1,
		MaxCapacity:     64,
	})

	// Four agents in the same cell with capacity 2: the third and fourth
	// inserts grow past allocation.
	for i := 0; i < 4; i++ {
		e := f.spawn(1, 1, 1, true)
		if !g.Insert(e, 1, 1, 1) {
			t.Fatalf("insert %d should succeed", i)
		}
	}

	snap := g.Snapshot()
	if snap.Expansions == 0 {
		t.Error("expected expansions to be counted when a bucket overflows")
	}
	if snap.HistoricalMax != 4 {
		t.Errorf("HistoricalMax = %d, want 4", snap.HistoricalMax)
	}
	if snap.MaxOccupancy != 4 {
		t.Errorf("MaxOccupancy = %d, want 4", snap.MaxOccupancy)
	}

	// Historical max survives a Clear; current occupancy does not.
	g.Clear()
	snap = g.Snapshot()
	if snap.HistoricalMax != 4 {
		t.Errorf("HistoricalMax after Clear = %d, want 4", snap.HistoricalMax)
	}
	if snap.MaxOccupancy != 0 {
		t.Errorf("MaxOccupancy after Clear = %d, want 0", snap.MaxOccupancy)
	}
}

func TestApplyCapacityNeverDropsAgents(t *testing.T) {
	f := newGridFixture()
	g, _ := NewSpatialGrid(10, Vec3{-50, -50, -50}, Vec3{50, 50, 50}, GridOptions{InitialCapacity: 8})

	entities := make([]ecs.Entity, 0, 6)
	for i := 0; i < 6; i++ {
		e := f.spawn(1, 1, 1, true)
		g.Insert(e, 1, 1, 1)
		entities = append(entities, e)
	}

	// Shrinking below the current occupancy must keep every agent.
	if err := g.ApplyCapacity(2); err != nil {
		t.Fatalf("ApplyCapacity() error = %v", err)
	}
	if g.Capacity() != 2 {
		t.Errorf("Capacity() = %d, want 2", g.Capacity())
	}

	buf := &NeighborBuffer{}
	g.QueryNeighborsInto(buf, 0, 0, 0, 10, ecs.Entity{}, f.posMap, f.boidMap)
	if buf.Len() != len(entities) {
		t.Errorf("expected %d agents after capacity change, got %d", len(entities), buf.Len())
	}
}

func TestApplyCapacityRejectsNonPositive(t *testing.T) {
	g, _ := NewSpatialGrid(10, Vec3{-50, -50, -50}, Vec3{50, 50, 50}, GridOptions{InitialCapacity: 8})

	if err := g.ApplyCapacity(0); err == nil {
		t.Error("expected error for zero capacity")
	}
	if err := g.ApplyCapacity(-4); err == nil {
		t.Error("expected error for negative capacity")
	}
	if g.Capacity() != 8 {
		t.Errorf("capacity changed after rejected update: %d", g.Capacity())
	}
}

func TestOptimalCapacity(t *testing.T) {
	f := newGridFixture()
	g, _ := NewSpatialGrid(10, Vec3{-50, -50, -50}, Vec3{50, 50, 50}, GridOptions{
		InitialCapacity: 8,
		MinCapacity:     4,
		MaxCapacity:     64,
		CapacitySlack:   2,
	})

	// Empty grid: keep the current capacity.
	if got := g.OptimalCapacity(); got != 8 {
		t.Errorf("OptimalCapacity() on empty grid = %d, want current capacity 8", got)
	}

	// Uniform occupancy of 4 across two cells: mean 4, stddev 0,
	// optimal = int(4*1.5) + 2 = 8.
	for i := 0; i < 4; i++ {
		g.Insert(f.spawn(1, 1, 1, true), 1, 1, 1)
		g.Insert(f.spawn(21, 1, 1, true), 21, 1, 1)
	}
	if got := g.OptimalCapacity(); got != 8 {
		t.Errorf("OptimalCapacity() = %d, want 8", got)
	}
}

func TestOptimalCapacityClamped(t *testing.T) {
	f := newGridFixture()
	g, _ := NewSpatialGrid(10, Vec3{-50, -50, -50}, Vec3{50, 50, 50}, GridOptions{
		InitialCapacity: 8,
		MinCapacity:     4,
		MaxCapacity:     16,
		CapacitySlack:   2,
	})

	// One very crowded cell pushes the estimate past the upper clamp.
	for i := 0; i < 40; i++ {
		g.Insert(f.spawn(1, 1, 1, true), 1, 1, 1)
	}
	if got := g.OptimalCapacity(); got != 16 {
		t.Errorf("OptimalCapacity() = %d, want upper clamp 16", got)
	}

	// A single sparse agent pulls the estimate below the lower clamp.
	g.Clear()
	g.Insert(f.spawn(1, 1, 1, true), 1, 1, 1)
	if got := g.OptimalCapacity(); got < 4 {
		t.Errorf("OptimalCapacity() = %d, below lower clamp 4", got)
	}
}

func TestOccupiedCells(t *testing.T) {
	f := newGridFixture()
	g, _ := NewSpatialGrid(10, Vec3{-50, -50, -50}, Vec3{50, 50, 50}, GridOptions{})

	g.Insert(f.spawn(1, 1, 1, true), 1, 1, 1)
	g.Insert(f.spawn(2, 2, 2, true), 2, 2, 2) // same cell
	g.Insert(f.spawn(-45, -45, -45, true), -45, -45, -45)

	buf := &CoordBuffer{}
	g.OccupiedCells(buf)
	if buf.Len() != 2 {
		t.Errorf("expected 2 occupied cells, got %d", buf.Len())
	}
}

func TestSnapshotUtilization(t *testing.T) {
	f := newGridFixture()
	g, _ := NewSpatialGrid(10, Vec3{-50, -50, -50}, Vec3{50, 50, 50}, GridOptions{InitialCapacity: 8})

	for i := 0; i < 4; i++ {
		g.Insert(f.spawn(1, 1, 1, true), 1, 1, 1)
	}

	snap := g.Snapshot()
	if snap.ActiveCells != 1 {
		t.Errorf("ActiveCells = %d, want 1", snap.ActiveCells)
	}
	if math.Abs(snap.MeanOccupancy-4) > 0.001 {
		t.Errorf("MeanOccupancy = %v, want 4", snap.MeanOccupancy)
	}
	if math.Abs(snap.Utilization-0.5) > 0.001 {
		t.Errorf("Utilization = %v, want 0.5", snap.Utilization)
	}
}
