package systems

// SystemInfo describes a simulation system for logging and diagnostics.
type SystemInfo struct {
	ID          string // Internal identifier (used for perf tracking)
	Name        string // Display name
	Description string // What this system does
	Category    string // Grouping (e.g., "core", "behavior")
}

// SystemRegistry holds metadata about all systems.
// This centralizes system naming so log output and the perf tracker stay
// in sync.
type SystemRegistry struct {
	systems []SystemInfo
	byID    map[string]SystemInfo
}

// NewSystemRegistry creates a registry with all known systems.
func NewSystemRegistry() *SystemRegistry {
	reg := &SystemRegistry{
		byID: make(map[string]SystemInfo),
	}
	reg.registerDefaults()
	return reg
}

// registerDefaults adds all known systems to the registry.
// Update this when adding new systems.
func (r *SystemRegistry) registerDefaults() {
	r.Register(SystemInfo{ID: "spatial_grid", Name: "Spatial Grid", Description: "Rebuilds the neighbor lookup grid", Category: "core"})
	r.Register(SystemInfo{ID: "capacity", Name: "Capacity", Description: "Adapts per-cell bucket capacity", Category: "core"})
	r.Register(SystemInfo{ID: "neighbor_refresh", Name: "Neighbor Refresh", Description: "Queries neighbors and recomputes steering", Category: "behavior"})
	r.Register(SystemInfo{ID: "integration", Name: "Integration", Description: "Applies accelerations and advances positions", Category: "physics"})
	r.Register(SystemInfo{ID: "cleanup", Name: "Cleanup", Description: "Removes despawned agents", Category: "core"})
	r.Register(SystemInfo{ID: "telemetry", Name: "Telemetry", Description: "Flushes window stats and perf samples", Category: "internal"})
}

// Register adds a system to the registry.
func (r *SystemRegistry) Register(info SystemInfo) {
	r.systems = append(r.systems, info)
	r.byID[info.ID] = info
}

// Get returns system info by ID.
func (r *SystemRegistry) Get(id string) (SystemInfo, bool) {
	info, ok := r.byID[id]
	return info, ok
}

// GetName returns the display name for a system ID.
// Falls back to the ID itself if not found.
func (r *SystemRegistry) GetName(id string) string {
	if info, ok := r.byID[id]; ok {
		return info.Name
	}
	return id
}

// All returns all registered systems in registration order.
func (r *SystemRegistry) All() []SystemInfo {
	return r.systems
}
