package sim

import (
	"log/slog"

	"github.com/pthm-cable/shoal/systems"
	"github.com/pthm-cable/shoal/telemetry"
)

// Step runs a single simulation tick in fixed order: optional grid
// rebuild, neighbor refresh when the scheduler interval has elapsed,
// per-agent integration every tick, cleanup, telemetry.
func (s *Sim) Step() {
	s.perfCollector.StartTick()

	refresh := s.scheduler.ShouldRefresh(s.simTime)
	if refresh && s.pendingQuery != nil {
		s.activeQuery = s.pendingQuery
		s.pendingQuery = nil
		slog.Info("query strategy active", "strategy", s.activeQuery.Name())
	}

	// 1. Rebuild the spatial index when a grid-backed refresh is due.
	s.perfCollector.StartPhase(telemetry.PhaseSpatialGrid)
	if refresh && s.activeQuery == s.gridQuery {
		s.rebuildGrid()
	}

	// 2. Adaptive per-cell capacity management.
	s.perfCollector.StartPhase(telemetry.PhaseCapacity)
	if refresh && s.grid.Adaptive() &&
		s.simTime-s.lastCapacityUpdate >= s.cfg.Grid.CapacityUpdateInterval {
		s.updateCapacity()
	}

	// 3. Refresh neighbor lists and recompute steering, or reuse the
	// last acceleration when throttled.
	s.perfCollector.StartPhase(telemetry.PhaseNeighborRefresh)
	if refresh {
		s.refreshSteering()
		s.collector.RecordRefreshTick()
	} else {
		s.collector.RecordSkippedTick()
	}

	// 4. Integrate motion every tick regardless of throttling.
	s.perfCollector.StartPhase(telemetry.PhaseIntegration)
	s.integrate()

	// 5. Remove despawned agents.
	s.perfCollector.StartPhase(telemetry.PhaseCleanup)
	s.cleanupDead()

	// 6. Adapt the refresh frequency and flush telemetry windows.
	s.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	s.scheduler.Adapt(s.simTime, s.aliveCount, s.collector.MeanNeighbors())
	s.flushTelemetry()

	s.perfCollector.EndTick()

	s.tick++
	s.simTime += float64(s.cfg.Derived.DT32)
}

// rebuildGrid clears and fully reinserts live agents. Rebuilding instead
// of incrementally maintaining the grid keeps it correct under
// fast-moving agents.
func (s *Sim) rebuildGrid() {
	s.grid.Clear()

	query := s.agentFilter.Query()
	for query.Next() {
		entity := query.Entity()
		pos, _, _, _, boid := query.Get()

		if !boid.Alive {
			continue
		}
		if s.grid.Insert(entity, pos.X, pos.Y, pos.Z) {
			s.collector.RecordInsert()
		} else {
			s.collector.RecordDroppedInsert()
		}
	}
}

// updateCapacity recomputes the optimal per-cell capacity and applies it
// when it differs from the current one.
func (s *Sim) updateCapacity() {
	s.lastCapacityUpdate = s.simTime

	optimal := s.grid.OptimalCapacity()
	if optimal == s.grid.Capacity() {
		return
	}
	if err := s.grid.ApplyCapacity(optimal); err != nil {
		slog.Error("capacity update rejected", "error", err)
		return
	}
	slog.Debug("grid capacity updated", "capacity", optimal)
}

// refreshSteering queries neighbors and recomputes each agent's steering
// acceleration. Neighbor buffers follow strict stack discipline: checked
// out and returned within this loop body, never retained across ticks.
func (s *Sim) refreshSteering() {
	query := s.agentFilter.Query()
	for query.Next() {
		entity := query.Entity()
		pos, vel, acc, heading, boid := query.Get()

		if !boid.Alive {
			continue
		}

		buf := s.neighborPool.Get()
		s.activeQuery.QueryNeighbors(buf, pos.X, pos.Y, pos.Z, boid.DetectionRadius, entity)
		s.collector.RecordQuery(buf.Len())

		steer := s.flock.Steer(
			boid,
			systems.Vec3{X: pos.X, Y: pos.Y, Z: pos.Z},
			systems.Vec3{X: vel.X, Y: vel.Y, Z: vel.Z},
			systems.Vec3{X: heading.X, Y: heading.Y, Z: heading.Z},
			buf,
		)
		s.neighborPool.Return(buf)

		acc.X, acc.Y, acc.Z = steer.X, steer.Y, steer.Z
	}
}

// integrate advances every live agent by one tick.
func (s *Sim) integrate() {
	dt := s.cfg.Derived.DT32

	query := s.agentFilter.Query()
	for query.Next() {
		pos, vel, acc, heading, boid := query.Get()

		if !boid.Alive {
			continue
		}
		s.flock.Integrate(pos, vel, acc, heading, boid, dt)
	}
}
