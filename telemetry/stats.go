package telemetry

import (
	"log/slog"
	"sort"
)

// WindowStats holds aggregated simulation statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population at window end
	Agents int `csv:"agents"`

	// Grid activity during the window
	Inserts        int64 `csv:"inserts"`
	DroppedInserts int64 `csv:"dropped_inserts"`
	Queries        int64 `csv:"queries"`

	// Neighborhood density
	MeanNeighbors float64 `csv:"mean_neighbors"`

	// Refresh throttling
	RefreshTicks    int     `csv:"refresh_ticks"`
	SkippedTicks    int     `csv:"skipped_ticks"`
	RefreshHz       float64 `csv:"refresh_hz"`
	ThrottleSavings float64 `csv:"throttle_savings"`

	// Grid occupancy snapshot at window end
	ActiveCells         int     `csv:"active_cells"`
	CellCapacity        int     `csv:"cell_capacity"`
	CapacityUtilization float64 `csv:"capacity_utilization"`
	OccupancyMax        int     `csv:"occupancy_max"`
	OccupancyHistorical int     `csv:"occupancy_historical_max"`
	Expansions          int64   `csv:"expansions"`

	// Speed distribution (sampled at window end)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeSpeedStats calculates mean and percentiles from speed samples.
func ComputeSpeedStats(values []float64) (mean, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("agents", s.Agents),
		slog.Int64("inserts", s.Inserts),
		slog.Int64("dropped_inserts", s.DroppedInserts),
		slog.Int64("queries", s.Queries),
		slog.Float64("mean_neighbors", s.MeanNeighbors),
		slog.Int("refresh_ticks", s.RefreshTicks),
		slog.Int("skipped_ticks", s.SkippedTicks),
		slog.Float64("refresh_hz", s.RefreshHz),
		slog.Float64("throttle_savings", s.ThrottleSavings),
		slog.Int("active_cells", s.ActiveCells),
		slog.Int("cell_capacity", s.CellCapacity),
		slog.Float64("capacity_utilization", s.CapacityUtilization),
		slog.Int("occupancy_max", s.OccupancyMax),
		slog.Int("occupancy_historical_max", s.OccupancyHistorical),
		slog.Int64("expansions", s.Expansions),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_p10", s.SpeedP10),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"agents", s.Agents,
		"inserts", s.Inserts,
		"dropped_inserts", s.DroppedInserts,
		"queries", s.Queries,
		"mean_neighbors", s.MeanNeighbors,
		"refresh_ticks", s.RefreshTicks,
		"skipped_ticks", s.SkippedTicks,
		"refresh_hz", s.RefreshHz,
		"throttle_savings", s.ThrottleSavings,
		"active_cells", s.ActiveCells,
		"cell_capacity", s.CellCapacity,
		"capacity_utilization", s.CapacityUtilization,
		"occupancy_max", s.OccupancyMax,
		"occupancy_historical_max", s.OccupancyHistorical,
		"expansions", s.Expansions,
		"speed_mean", s.SpeedMean,
		"speed_p10", s.SpeedP10,
		"speed_p50", s.SpeedP50,
		"speed_p90", s.SpeedP90,
	)
}
