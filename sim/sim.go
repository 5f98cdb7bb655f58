// Package sim owns the simulation world: the agent set, the spatial grid,
// the query strategy, and the tick loop that drives them in fixed order.
package sim

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/systems"
	"github.com/pthm-cable/shoal/telemetry"
)

// Options configures a simulation run.
type Options struct {
	Seed           int64
	LogStats       bool
	StatsWindowSec float64
	OutputDir      string
}

// Sim holds the complete simulation state. Single-threaded: one Step call
// performs grid rebuild, neighbor refresh, steering, and integration in
// fixed order with no parallel mutation.
type Sim struct {
	cfg  *config.Config
	rng  *rand.Rand
	seed int64

	world *ecs.World

	// Entity mappers - the 5 components every agent carries
	agentMapper *ecs.Map5[
		components.Position,
		components.Velocity,
		components.Acceleration,
		components.Heading,
		components.Boid,
	]
	agentFilter *ecs.Filter5[
		components.Position,
		components.Velocity,
		components.Acceleration,
		components.Heading,
		components.Boid,
	]

	// Individual component mappers for lookups
	posMap  *ecs.Map1[components.Position]
	velMap  *ecs.Map1[components.Velocity]
	boidMap *ecs.Map1[components.Boid]

	registry *AgentRegistry

	// Spatial index and query strategies
	grid         *systems.SpatialGrid
	gridQuery    *systems.GridQuery
	bruteQuery   *systems.BruteForceQuery
	activeQuery  systems.NeighborQuery
	pendingQuery systems.NeighborQuery // swap takes effect on next refresh

	flock     *systems.FlockingSystem
	scheduler *systems.UpdateScheduler
	obstacles *systems.ObstacleSet

	neighborPool *systems.NeighborPool
	coordPool    *systems.CoordPool

	sysRegistry *systems.SystemRegistry

	// Telemetry
	collector     *telemetry.Collector
	perfCollector *telemetry.PerfCollector
	outputManager *telemetry.OutputManager
	logStats      bool

	// State
	tick               int32
	simTime            float64
	nextID             uint32
	aliveCount         int
	removedCount       int
	lastCapacityUpdate float64

	worldMin, worldMax systems.Vec3
}

// New builds a simulation from the global config and the given options.
func New(opts Options) (*Sim, error) {
	cfg := config.Cfg()

	world := ecs.NewWorld()

	s := &Sim{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(opts.Seed)),
		seed:  opts.Seed,
		world: world,
		agentMapper: ecs.NewMap5[
			components.Position,
			components.Velocity,
			components.Acceleration,
			components.Heading,
			components.Boid,
		](world),
		agentFilter: ecs.NewFilter5[
			components.Position,
			components.Velocity,
			components.Acceleration,
			components.Heading,
			components.Boid,
		](world),
		posMap:      ecs.NewMap1[components.Position](world),
		velMap:      ecs.NewMap1[components.Velocity](world),
		boidMap:     ecs.NewMap1[components.Boid](world),
		registry:    NewAgentRegistry(),
		sysRegistry: systems.NewSystemRegistry(),
		logStats:    opts.LogStats,
		worldMin:    systems.Vec3{X: cfg.Derived.WorldMin[0], Y: cfg.Derived.WorldMin[1], Z: cfg.Derived.WorldMin[2]},
		worldMax:    systems.Vec3{X: cfg.Derived.WorldMax[0], Y: cfg.Derived.WorldMax[1], Z: cfg.Derived.WorldMax[2]},
	}

	// Spatial grid
	grid, err := systems.NewSpatialGrid(
		float32(cfg.Grid.CellSize),
		s.worldMin, s.worldMax,
		systems.GridOptions{
			InitialCapacity: cfg.Grid.InitialCapacity,
			Adaptive:        cfg.Grid.AdaptiveCapacity,
			MinCapacity:     cfg.Grid.MinCapacity,
			MaxCapacity:     cfg.Grid.MaxCapacity,
			CapacitySlack:   cfg.Grid.CapacitySlack,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("building spatial grid: %w", err)
	}
	s.grid = grid

	// Query strategies; both stay constructed so a swap is just a
	// reference change.
	s.gridQuery = systems.NewGridQuery(grid, world)
	s.bruteQuery = systems.NewBruteForceQuery(world)
	switch cfg.Query.Strategy {
	case systems.StrategyBruteForce:
		s.activeQuery = s.bruteQuery
	case systems.StrategyGrid, "":
		s.activeQuery = s.gridQuery
	default:
		return nil, fmt.Errorf("unknown query strategy %q", cfg.Query.Strategy)
	}

	// Obstacles
	spheres := make([]systems.SphereObstacle, len(cfg.Obstacles))
	for i, o := range cfg.Obstacles {
		spheres[i] = systems.SphereObstacle{
			Center: systems.Vec3{X: float32(o.X), Y: float32(o.Y), Z: float32(o.Z)},
			Radius: float32(o.Radius),
		}
	}
	s.obstacles = systems.NewObstacleSet(spheres)

	// Flocking behavior
	s.flock = systems.NewFlockingSystem(world, s.worldMin, s.worldMax, s.obstacles, systems.FlockingOptions{
		BoundaryMode:    cfg.Boundary.Mode,
		BoundaryPush:    float32(cfg.Boundary.Push),
		ProbeDistance:   float32(cfg.Avoidance.ProbeDistance),
		ProbeOffset:     float32(cfg.Avoidance.ProbeOffset),
		HeadingDeadzone: float32(cfg.Flocking.HeadingDeadzone),
	})

	// Refresh scheduler
	s.scheduler, err = systems.NewUpdateScheduler(systems.SchedulerOptions{
		Mode:            cfg.Scheduler.Mode,
		Frequency:       float32(cfg.Scheduler.Frequency),
		MinFrequency:    float32(cfg.Scheduler.MinFrequency),
		MaxFrequency:    float32(cfg.Scheduler.MaxFrequency),
		AdaptInterval:   cfg.Scheduler.AdaptInterval,
		ReferenceAgents: cfg.Scheduler.ReferenceAgents,
		TargetNeighbors: cfg.Scheduler.TargetNeighbors,
	})
	if err != nil {
		return nil, fmt.Errorf("building scheduler: %w", err)
	}

	// Pools
	s.neighborPool = systems.NewNeighborPool(cfg.Derived.NeighborBufCap)
	s.coordPool = systems.NewCoordPool(256)

	// Telemetry
	statsWindow := opts.StatsWindowSec
	if statsWindow <= 0 {
		statsWindow = cfg.Telemetry.StatsWindow
	}
	s.collector = telemetry.NewCollector(statsWindow, cfg.Derived.DT32)
	s.perfCollector = telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)

	s.outputManager, err = telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("building output manager: %w", err)
	}
	if err := s.outputManager.WriteConfig(cfg); err != nil {
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	for _, info := range s.sysRegistry.All() {
		slog.Debug("system registered", "id", info.ID, "name", info.Name, "category", info.Category)
	}

	s.spawnInitialPopulation()

	return s, nil
}

// Tick returns the current simulation tick.
func (s *Sim) Tick() int32 {
	return s.tick
}

// SimTime returns the elapsed simulation time in seconds.
func (s *Sim) SimTime() float64 {
	return s.simTime
}

// AgentCount returns the number of live agents.
func (s *Sim) AgentCount() int {
	return s.aliveCount
}

// Grid returns the spatial index for inspection.
func (s *Sim) Grid() *systems.SpatialGrid {
	return s.grid
}

// QueryStrategy returns the name of the active neighbor query strategy.
func (s *Sim) QueryStrategy() string {
	return s.activeQuery.Name()
}

// SetQueryStrategy swaps the neighbor query strategy. The swap takes
// effect on the next scheduled refresh, not mid-cycle.
func (s *Sim) SetQueryStrategy(name string) error {
	switch name {
	case systems.StrategyGrid:
		s.pendingQuery = s.gridQuery
	case systems.StrategyBruteForce:
		s.pendingQuery = s.bruteQuery
	default:
		return fmt.Errorf("unknown query strategy %q", name)
	}
	slog.Info("query strategy scheduled", "strategy", name)
	return nil
}

// AgentState returns an agent's current position and velocity for
// external consumers. Returns false for unknown or removed agents.
func (s *Sim) AgentState(id uint32) (pos, vel systems.Vec3, ok bool) {
	e, found := s.registry.Entity(id)
	if !found {
		return systems.Vec3{}, systems.Vec3{}, false
	}
	p := s.posMap.Get(e)
	v := s.velMap.Get(e)
	if p == nil || v == nil {
		return systems.Vec3{}, systems.Vec3{}, false
	}
	return systems.Vec3{X: p.X, Y: p.Y, Z: p.Z}, systems.Vec3{X: v.X, Y: v.Y, Z: v.Z}, true
}

// OccupiedCellCount samples the number of non-empty grid cells using a
// pooled coordinate buffer. Diagnostic only.
func (s *Sim) OccupiedCellCount() int {
	buf := s.coordPool.Get()
	s.grid.OccupiedCells(buf)
	n := buf.Len()
	s.coordPool.Return(buf)
	return n
}

// Close releases output resources.
func (s *Sim) Close() error {
	return s.outputManager.Close()
}
