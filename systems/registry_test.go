package systems

import (
	"testing"

	"github.com/pthm-cable/shoal/telemetry"
)

func TestSystemRegistryDefaults(t *testing.T) {
	reg := NewSystemRegistry()

	// Every perf phase must have registry metadata so log output and the
	// perf tracker stay in sync.
	phases := []string{
		telemetry.PhaseSpatialGrid,
		telemetry.PhaseCapacity,
		telemetry.PhaseNeighborRefresh,
		telemetry.PhaseIntegration,
		telemetry.PhaseCleanup,
		telemetry.PhaseTelemetry,
	}

	for _, id := range phases {
		if _, ok := reg.Get(id); !ok {
			t.Errorf("phase %q missing from registry", id)
		}
	}

	if len(reg.All()) != len(phases) {
		t.Errorf("registry holds %d systems, want %d", len(reg.All()), len(phases))
	}
}

func TestSystemRegistryGetName(t *testing.T) {
	reg := NewSystemRegistry()

	if got := reg.GetName("spatial_grid"); got != "Spatial Grid" {
		t.Errorf("GetName(spatial_grid) = %q, want %q", got, "Spatial Grid")
	}
	// Unknown IDs fall back to the ID itself.
	if got := reg.GetName("nonexistent"); got != "nonexistent" {
		t.Errorf("GetName fallback = %q, want the ID back", got)
	}
}
