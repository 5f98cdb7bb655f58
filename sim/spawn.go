package sim

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/components"
)

// spawnInitialPopulation creates the starting agents inside the spawn
// volume (world bounds inset by the configured margin).
func (s *Sim) spawnInitialPopulation() {
	cfg := s.cfg
	margin := float32(cfg.World.SpawnMargin)

	lo := s.worldMin
	hi := s.worldMax
	lo.X += margin
	lo.Y += margin
	lo.Z += margin
	hi.X -= margin
	hi.Y -= margin
	hi.Z -= margin

	for i := 0; i < cfg.Population.Initial; i++ {
		x := lo.X + s.rng.Float32()*(hi.X-lo.X)
		y := lo.Y + s.rng.Float32()*(hi.Y-lo.Y)
		z := lo.Z + s.rng.Float32()*(hi.Z-lo.Z)
		s.SpawnAgent(x, y, z)
	}
}

// SpawnAgent creates one agent at the given position with a randomized
// orientation and registers it. Returns the new agent's ID.
func (s *Sim) SpawnAgent(x, y, z float32) uint32 {
	cfg := s.cfg

	id := s.nextID
	s.nextID++

	hx, hy, hz := s.randomUnitVector()
	speed := float32(cfg.Population.InitialSpeed)

	pos := components.Position{X: x, Y: y, Z: z}
	vel := components.Velocity{X: hx * speed, Y: hy * speed, Z: hz * speed}
	acc := components.Acceleration{}
	heading := components.Heading{X: hx, Y: hy, Z: hz}
	boid := components.Boid{
		ID:    id,
		Alive: true,

		DetectionRadius:  float32(cfg.Flocking.DetectionRadius),
		SeparationRadius: float32(cfg.Flocking.SeparationRadius),
		MaxSpeed:         float32(cfg.Flocking.MaxSpeed),
		MaxForce:         float32(cfg.Flocking.MaxForce),

		SeparationWeight: float32(cfg.Flocking.SeparationWeight),
		AlignmentWeight:  float32(cfg.Flocking.AlignmentWeight),
		CohesionWeight:   float32(cfg.Flocking.CohesionWeight),
		AvoidanceWeight:  float32(cfg.Flocking.AvoidanceWeight),
		BoundaryWeight:   float32(cfg.Flocking.BoundaryWeight),

		BoundaryGain: float32(cfg.Boundary.Gain),
	}

	entity := s.agentMapper.NewEntity(&pos, &vel, &acc, &heading, &boid)
	s.registry.Register(id, entity)
	s.aliveCount++

	return id
}

// Despawn marks an agent dead. The entity is removed and deregistered in
// the next cleanup phase; until then queries filter it defensively.
func (s *Sim) Despawn(id uint32) bool {
	e, ok := s.registry.Entity(id)
	if !ok {
		return false
	}
	boid := s.boidMap.Get(e)
	if boid == nil || !boid.Alive {
		return false
	}
	boid.Alive = false
	return true
}

// cleanupDead removes dead agents and deregisters them.
func (s *Sim) cleanupDead() {
	// First pass: collect dead entities (must complete before modifying)
	type deadInfo struct {
		entity ecs.Entity
		id     uint32
	}
	var toRemove []deadInfo

	query := s.agentFilter.Query()
	for query.Next() {
		entity := query.Entity()
		_, _, _, _, boid := query.Get()

		if !boid.Alive {
			toRemove = append(toRemove, deadInfo{entity: entity, id: boid.ID})
		}
	}

	// Second pass: remove entities (query iteration complete)
	for _, dead := range toRemove {
		s.agentMapper.Remove(dead.entity)
		s.registry.Deregister(dead.id)
		s.aliveCount--
		s.removedCount++
	}
}

// randomUnitVector returns a direction uniformly distributed on the sphere.
func (s *Sim) randomUnitVector() (x, y, z float32) {
	z = s.rng.Float32()*2 - 1
	theta := s.rng.Float64() * 2 * math.Pi
	r := float32(math.Sqrt(float64(1 - z*z)))
	x = r * float32(math.Cos(theta))
	y = r * float32(math.Sin(theta))
	return x, y, z
}
