package sim

import (
	"log/slog"
	"math"

	"github.com/pthm-cable/shoal/systems"
	"github.com/pthm-cable/shoal/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and writes
// the window out.
func (s *Sim) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	speeds := s.sampleSpeeds()
	grid := toGridSample(s.grid.Snapshot())

	stats := s.collector.Flush(
		s.tick,
		s.aliveCount,
		grid,
		float64(s.scheduler.Frequency()),
		s.scheduler.SavingsRatio(s.cfg.Derived.TickRate),
		speeds,
	)
	perfStats := s.perfCollector.Stats()

	// Log stats if enabled (console output)
	if s.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	// Write to CSV if output manager is enabled
	if s.outputManager != nil {
		if err := s.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := s.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
}

// sampleSpeeds collects live agent speeds for percentile calculation.
func (s *Sim) sampleSpeeds() []float64 {
	speeds := make([]float64, 0, s.aliveCount)

	query := s.agentFilter.Query()
	for query.Next() {
		_, vel, _, _, boid := query.Get()

		if !boid.Alive {
			continue
		}
		speeds = append(speeds, math.Sqrt(float64(vel.X*vel.X+vel.Y*vel.Y+vel.Z*vel.Z)))
	}

	return speeds
}

// toGridSample converts the grid's diagnostic snapshot to the telemetry view.
func toGridSample(snap systems.GridSnapshot) telemetry.GridSample {
	return telemetry.GridSample{
		ActiveCells:         snap.ActiveCells,
		Capacity:            snap.Capacity,
		CapacityUtilization: snap.Utilization,
		OccupancyMax:        snap.MaxOccupancy,
		OccupancyHistorical: snap.HistoricalMax,
		Expansions:          snap.Expansions,
	}
}
