package telemetry

import (
	"math"
	"testing"
)

func TestCollectorShouldFlush(t *testing.T) {
	// 5 second window at dt=1/60: 300 ticks per window.
	c := NewCollector(5.0, 1.0/60.0)

	if c.ShouldFlush(100) {
		t.Error("should not flush mid-window")
	}
	if !c.ShouldFlush(300) {
		t.Error("should flush at the window boundary")
	}
	if !c.ShouldFlush(400) {
		t.Error("should flush past the window boundary")
	}
}

func TestCollectorMinimumWindow(t *testing.T) {
	// A window shorter than one tick still flushes every tick.
	c := NewCollector(0.001, 1.0/60.0)
	if !c.ShouldFlush(1) {
		t.Error("sub-tick window should flush every tick")
	}
}

func TestCollectorMeanNeighbors(t *testing.T) {
	c := NewCollector(5.0, 1.0/60.0)

	if c.MeanNeighbors() != 0 {
		t.Error("mean neighbors with no queries should be 0")
	}

	c.RecordQuery(10)
	c.RecordQuery(20)
	c.RecordQuery(6)

	if math.Abs(c.MeanNeighbors()-12) > 0.001 {
		t.Errorf("MeanNeighbors() = %v, want 12", c.MeanNeighbors())
	}
}

func TestCollectorFlushAndReset(t *testing.T) {
	c := NewCollector(5.0, 1.0/60.0)

	c.RecordInsert()
	c.RecordInsert()
	c.RecordDroppedInsert()
	c.RecordQuery(8)
	c.RecordRefreshTick()
	c.RecordSkippedTick()
	c.RecordSkippedTick()

	grid := GridSample{
		ActiveCells:         12,
		Capacity:            8,
		CapacityUtilization: 0.5,
		OccupancyMax:        6,
		OccupancyHistorical: 9,
		Expansions:          1,
	}
	speeds := []float64{10, 20, 30}

	stats := c.Flush(300, 42, grid, 20, 0.66, speeds)

	if stats.WindowStartTick != 0 || stats.WindowEndTick != 300 {
		t.Errorf("window = [%d, %d], want [0, 300]", stats.WindowStartTick, stats.WindowEndTick)
	}
	if stats.Agents != 42 {
		t.Errorf("Agents = %d, want 42", stats.Agents)
	}
	if stats.Inserts != 2 || stats.DroppedInserts != 1 || stats.Queries != 1 {
		t.Errorf("counters = %d/%d/%d, want 2/1/1", stats.Inserts, stats.DroppedInserts, stats.Queries)
	}
	if stats.RefreshTicks != 1 || stats.SkippedTicks != 2 {
		t.Errorf("refresh/skipped = %d/%d, want 1/2", stats.RefreshTicks, stats.SkippedTicks)
	}
	if stats.ActiveCells != 12 || stats.CellCapacity != 8 || stats.Expansions != 1 {
		t.Error("grid sample not carried through to stats")
	}
	if math.Abs(stats.SpeedMean-20) > 0.001 {
		t.Errorf("SpeedMean = %v, want 20", stats.SpeedMean)
	}
	if math.Abs(stats.SimTimeSec-5.0) > 0.01 {
		t.Errorf("SimTimeSec = %v, want ~5.0", stats.SimTimeSec)
	}

	// Counters reset; the next window starts where this one ended.
	if c.MeanNeighbors() != 0 {
		t.Error("counters should reset after Flush")
	}
	if c.ShouldFlush(400) {
		t.Error("new window should not flush 100 ticks in")
	}

	next := c.Flush(600, 42, grid, 20, 0.66, nil)
	if next.WindowStartTick != 300 {
		t.Errorf("next WindowStartTick = %d, want 300", next.WindowStartTick)
	}
	if next.Inserts != 0 {
		t.Errorf("next window inherited %d inserts", next.Inserts)
	}
}
