package sim

import (
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/components"
)

func TestAgentRegistry(t *testing.T) {
	r := NewAgentRegistry()

	if r.Count() != 0 {
		t.Errorf("Count() = %d on empty registry, want 0", r.Count())
	}
	if _, ok := r.Entity(1); ok {
		t.Error("Entity() on empty registry should report not found")
	}

	world := ecs.NewWorld()
	mapper := ecs.NewMap1[components.Position](world)
	pos := components.Position{}
	e := mapper.NewEntity(&pos)

	r.Register(7, e)
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
	got, ok := r.Entity(7)
	if !ok || got != e {
		t.Error("registered entity not found")
	}

	r.Deregister(7)
	if r.Count() != 0 {
		t.Errorf("Count() = %d after deregister, want 0", r.Count())
	}
	if _, ok := r.Entity(7); ok {
		t.Error("deregistered agent still resolvable")
	}

	// Deregistering an unknown ID is a no-op.
	r.Deregister(42)
}
