// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Physics    PhysicsConfig    `yaml:"physics"`
	World      WorldConfig      `yaml:"world"`
	Grid       GridConfig       `yaml:"grid"`
	Query      QueryConfig      `yaml:"query"`
	Flocking   FlockingConfig   `yaml:"flocking"`
	Boundary   BoundaryConfig   `yaml:"boundary"`
	Avoidance  AvoidanceConfig  `yaml:"avoidance"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Population PopulationConfig `yaml:"population"`
	Obstacles  []ObstacleConfig `yaml:"obstacles"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// PhysicsConfig holds simulation stepping parameters.
type PhysicsConfig struct {
	DT float64 `yaml:"dt"` // seconds per tick
}

// WorldConfig holds the bounded simulation volume.
type WorldConfig struct {
	MinX float64 `yaml:"min_x"`
	MinY float64 `yaml:"min_y"`
	MinZ float64 `yaml:"min_z"`
	MaxX float64 `yaml:"max_x"`
	MaxY float64 `yaml:"max_y"`
	MaxZ float64 `yaml:"max_z"`

	SpawnMargin float64 `yaml:"spawn_margin"` // inset of the spawn volume from the faces
}

// GridConfig holds spatial grid parameters.
type GridConfig struct {
	CellSize               float64 `yaml:"cell_size"`
	InitialCapacity        int     `yaml:"initial_capacity"`         // per-cell bucket capacity at construction
	AdaptiveCapacity       bool    `yaml:"adaptive_capacity"`        // recompute capacity from occupancy stats
	MinCapacity            int     `yaml:"min_capacity"`             // adaptive clamp band
	MaxCapacity            int     `yaml:"max_capacity"`             // adaptive clamp band
	CapacitySlack          int     `yaml:"capacity_slack"`           // fixed headroom added to the estimate
	CapacityUpdateInterval float64 `yaml:"capacity_update_interval"` // seconds between capacity recomputations
}

// QueryConfig selects the neighbor query strategy.
type QueryConfig struct {
	Strategy string `yaml:"strategy"` // "grid" or "brute"
}

// FlockingConfig holds the per-agent behavior defaults cached on spawn.
type FlockingConfig struct {
	DetectionRadius  float64 `yaml:"detection_radius"`
	SeparationRadius float64 `yaml:"separation_radius"`
	MaxSpeed         float64 `yaml:"max_speed"`
	MaxForce         float64 `yaml:"max_force"`

	SeparationWeight float64 `yaml:"separation_weight"`
	AlignmentWeight  float64 `yaml:"alignment_weight"`
	CohesionWeight   float64 `yaml:"cohesion_weight"`
	AvoidanceWeight  float64 `yaml:"avoidance_weight"`
	BoundaryWeight   float64 `yaml:"boundary_weight"`

	HeadingDeadzone float64 `yaml:"heading_deadzone"` // min speed before reorienting
}

// BoundaryConfig holds boundary containment parameters.
type BoundaryConfig struct {
	Mode string  `yaml:"mode"` // "proportional" or "fixed"
	Gain float64 `yaml:"gain"` // proportional restoring gain
	Push float64 `yaml:"push"` // fixed-mode push magnitude
}

// AvoidanceConfig holds obstacle probe parameters.
type AvoidanceConfig struct {
	ProbeDistance float64 `yaml:"probe_distance"`
	ProbeOffset   float64 `yaml:"probe_offset"` // lateral tilt of the offset probes
}

// SchedulerConfig holds neighbor-refresh throttling parameters.
type SchedulerConfig struct {
	Mode            string  `yaml:"mode"` // "fixed" or "adaptive"
	Frequency       float64 `yaml:"frequency"`
	MinFrequency    float64 `yaml:"min_frequency"`
	MaxFrequency    float64 `yaml:"max_frequency"`
	AdaptInterval   float64 `yaml:"adapt_interval"`
	ReferenceAgents int     `yaml:"reference_agents"`
	TargetNeighbors float64 `yaml:"target_neighbors"`
}

// PopulationConfig holds initial spawn parameters.
type PopulationConfig struct {
	Initial      int     `yaml:"initial"`
	InitialSpeed float64 `yaml:"initial_speed"` // magnitude of the randomized spawn velocity
}

// ObstacleConfig defines one static sphere obstacle.
type ObstacleConfig struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Z      float64 `yaml:"z"`
	Radius float64 `yaml:"radius"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32           float32 // Physics.DT as float32
	TickRate       float32 // ticks per second, 1/DT
	WorldMin       [3]float32
	WorldMax       [3]float32
	NeighborBufCap int // initial neighbor buffer capacity estimate
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults
// if path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Compute derived values
	cfg.computeDerived()

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)
	if c.Physics.DT > 0 {
		c.Derived.TickRate = float32(1.0 / c.Physics.DT)
	}
	c.Derived.WorldMin = [3]float32{float32(c.World.MinX), float32(c.World.MinY), float32(c.World.MinZ)}
	c.Derived.WorldMax = [3]float32{float32(c.World.MaxX), float32(c.World.MaxY), float32(c.World.MaxZ)}

	// Size neighbor buffers for the adaptive scheduler's target
	// neighborhood with headroom, so steady-state queries don't grow them.
	c.Derived.NeighborBufCap = int(c.Scheduler.TargetNeighbors * 2)
	if c.Derived.NeighborBufCap < 16 {
		c.Derived.NeighborBufCap = 16
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
