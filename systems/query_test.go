package systems

import (
	"math/rand"
	"testing"

	"github.com/mlange-42/ark/ecs"
)

func TestBruteForceQueryBasics(t *testing.T) {
	f := newGridFixture()
	q := NewBruteForceQuery(f.world)

	origin := f.spawn(0, 0, 0, true)
	near := f.spawn(3, 4, 0, true)
	dead := f.spawn(1, 1, 0, false)
	far := f.spawn(0, 50, 0, true)

	buf := &NeighborBuffer{}
	q.QueryNeighbors(buf, 0, 0, 0, 10, origin)

	if buf.Len() != 1 {
		t.Fatalf("expected 1 neighbor, got %d", buf.Len())
	}
	got := buf.Items()[0]
	if got.E != near {
		t.Error("expected the near live agent")
	}
	if got.E == dead || got.E == far {
		t.Error("dead or distant agents must be filtered")
	}
	if got.DistSq != 25 {
		t.Errorf("DistSq = %v, want 25", got.DistSq)
	}
}

func TestBruteForceQueryZeroRadius(t *testing.T) {
	f := newGridFixture()
	q := NewBruteForceQuery(f.world)

	origin := f.spawn(0, 0, 0, true)
	f.spawn(1, 0, 0, true)

	buf := &NeighborBuffer{}
	buf.Add(Neighbor{})

	q.QueryNeighbors(buf, 0, 0, 0, 0, origin)
	if buf.Len() != 0 {
		t.Errorf("zero radius should yield empty result, got %d", buf.Len())
	}
}

func TestQueryStrategyNames(t *testing.T) {
	f := newGridFixture()
	grid, _ := NewSpatialGrid(10, Vec3{-50, -50, -50}, Vec3{50, 50, 50}, GridOptions{})

	var q NeighborQuery = NewGridQuery(grid, f.world)
	if q.Name() != StrategyGrid {
		t.Errorf("grid query Name() = %q, want %q", q.Name(), StrategyGrid)
	}
	q = NewBruteForceQuery(f.world)
	if q.Name() != StrategyBruteForce {
		t.Errorf("brute query Name() = %q, want %q", q.Name(), StrategyBruteForce)
	}
}

// TestThreeAgentNeighborhood runs the same three-agent setup through both
// strategies: only the agent one unit away falls inside a radius of 5.
func TestThreeAgentNeighborhood(t *testing.T) {
	f := newGridFixture()
	grid, err := NewSpatialGrid(5, Vec3{-20, -20, -20}, Vec3{20, 20, 20}, GridOptions{})
	if err != nil {
		t.Fatalf("NewSpatialGrid() error = %v", err)
	}

	a := f.spawn(0, 0, 0, true)
	b := f.spawn(1, 0, 0, true)
	c := f.spawn(10, 10, 10, true)
	for _, e := range []ecs.Entity{a, b, c} {
		pos := f.posMap.Get(e)
		grid.Insert(e, pos.X, pos.Y, pos.Z)
	}

	queries := []NeighborQuery{
		NewBruteForceQuery(f.world),
		NewGridQuery(grid, f.world),
	}
	for _, q := range queries {
		t.Run(q.Name(), func(t *testing.T) {
			buf := &NeighborBuffer{}
			q.QueryNeighbors(buf, 0, 0, 0, 5, a)

			if buf.Len() != 1 {
				t.Fatalf("expected exactly 1 neighbor, got %d", buf.Len())
			}
			if buf.Items()[0].E != b {
				t.Error("expected the agent one unit away")
			}
		})
	}
}

// TestGridBruteEquivalence verifies the two strategies return the same
// agent set (ordering may differ) for randomized positions.
func TestGridBruteEquivalence(t *testing.T) {
	f := newGridFixture()
	grid, err := NewSpatialGrid(10, Vec3{-50, -50, -50}, Vec3{50, 50, 50}, GridOptions{InitialCapacity: 8})
	if err != nil {
		t.Fatalf("NewSpatialGrid() error = %v", err)
	}

	gridQ := NewGridQuery(grid, f.world)
	bruteQ := NewBruteForceQuery(f.world)

	rng := rand.New(rand.NewSource(42))
	entities := make([]ecs.Entity, 0, 200)
	for i := 0; i < 200; i++ {
		x := rng.Float32()*90 - 45
		y := rng.Float32()*90 - 45
		z := rng.Float32()*90 - 45
		e := f.spawn(x, y, z, true)
		entities = append(entities, e)
		grid.Insert(e, x, y, z)
	}

	gridBuf := &NeighborBuffer{}
	bruteBuf := &NeighborBuffer{}

	for _, origin := range entities[:20] {
		pos := f.posMap.Get(origin)

		for _, radius := range []float32{5, 12, 25} {
			gridQ.QueryNeighbors(gridBuf, pos.X, pos.Y, pos.Z, radius, origin)
			bruteQ.QueryNeighbors(bruteBuf, pos.X, pos.Y, pos.Z, radius, origin)

			if gridBuf.Len() != bruteBuf.Len() {
				t.Fatalf("radius %v: grid found %d, brute found %d",
					radius, gridBuf.Len(), bruteBuf.Len())
			}

			want := map[ecs.Entity]float32{}
			for _, n := range bruteBuf.Items() {
				want[n.E] = n.DistSq
			}
			for _, n := range gridBuf.Items() {
				distSq, ok := want[n.E]
				if !ok {
					t.Fatalf("radius %v: grid returned agent missing from brute force", radius)
				}
				if distSq != n.DistSq {
					t.Errorf("radius %v: DistSq mismatch grid=%v brute=%v", radius, n.DistSq, distSq)
				}
			}
		}
	}
}
