// Package telemetry accumulates diagnostic counters and timing samples for
// the simulation. Everything here is observational: the simulation is
// correct with telemetry disabled.
package telemetry

// GridSample is the grid occupancy snapshot handed to Flush. Mirrors the
// grid's diagnostic view without importing the systems package.
type GridSample struct {
	ActiveCells         int
	Capacity            int
	CapacityUtilization float64
	OccupancyMax        int
	OccupancyHistorical int
	Expansions          int64
}

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float32

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	inserts        int64
	droppedInserts int64
	queries        int64
	neighborSum    int64
	refreshTicks   int
	skippedTicks   int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec float64, dt float32) *Collector {
	ticksPerWindow := int32(windowDurationSec / float64(dt))
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		windowStartTick:     0,
	}
}

// RecordInsert records a successful grid insertion.
func (c *Collector) RecordInsert() {
	c.inserts++
}

// RecordDroppedInsert records an insertion dropped for being out of bounds.
func (c *Collector) RecordDroppedInsert() {
	c.droppedInserts++
}

// RecordQuery records one neighbor query and the number of results it
// produced. The running sum yields the mean neighbor count fed back into
// the adaptive scheduler.
func (c *Collector) RecordQuery(neighbors int) {
	c.queries++
	c.neighborSum += int64(neighbors)
}

// RecordRefreshTick records a tick on which the neighbor lists were refreshed.
func (c *Collector) RecordRefreshTick() {
	c.refreshTicks++
}

// RecordSkippedTick records a tick on which refresh was throttled away.
func (c *Collector) RecordSkippedTick() {
	c.skippedTicks++
}

// MeanNeighbors returns the mean neighbor count over the current window.
func (c *Collector) MeanNeighbors() float64 {
	if c.queries == 0 {
		return 0
	}
	return float64(c.neighborSum) / float64(c.queries)
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(
	currentTick int32,
	agents int,
	grid GridSample,
	refreshHz float64,
	throttleSavings float64,
	speeds []float64,
) WindowStats {
	speedMean, p10, p50, p90 := ComputeSpeedStats(speeds)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * float64(c.dt),

		Agents: agents,

		Inserts:        c.inserts,
		DroppedInserts: c.droppedInserts,
		Queries:        c.queries,
		MeanNeighbors:  c.MeanNeighbors(),

		RefreshTicks:    c.refreshTicks,
		SkippedTicks:    c.skippedTicks,
		RefreshHz:       refreshHz,
		ThrottleSavings: throttleSavings,

		ActiveCells:         grid.ActiveCells,
		CellCapacity:        grid.Capacity,
		CapacityUtilization: grid.CapacityUtilization,
		OccupancyMax:        grid.OccupancyMax,
		OccupancyHistorical: grid.OccupancyHistorical,
		Expansions:          grid.Expansions,

		SpeedMean: speedMean,
		SpeedP10:  p10,
		SpeedP50:  p50,
		SpeedP90:  p90,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.inserts = 0
	c.droppedInserts = 0
	c.queries = 0
	c.neighborSum = 0
	c.refreshTicks = 0
	c.skippedTicks = 0

	return stats
}
