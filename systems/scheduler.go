package systems

import "fmt"

// Scheduler modes.
const (
	SchedulerFixed    = "fixed"
	SchedulerAdaptive = "adaptive"
)

// SchedulerOptions configures the neighbor-refresh scheduler.
type SchedulerOptions struct {
	Mode            string  // SchedulerFixed or SchedulerAdaptive
	Frequency       float32 // base refresh frequency in Hz
	MinFrequency    float32 // adaptive lower clamp; must stay positive
	MaxFrequency    float32 // adaptive upper clamp
	AdaptInterval   float64 // seconds between adaptive recomputations
	ReferenceAgents int     // population at which adaptive starts scaling down
	TargetNeighbors float64 // mean neighborhood size the adaptive mode aims for
}

// UpdateScheduler throttles neighbor-list refresh below the full tick
// rate. Between refreshes the last computed acceleration is reused while
// integration still runs every tick. Adaptive mode lowers the frequency
// for dense populations and crowded neighborhoods, and raises it again
// when the flock spreads out.
type UpdateScheduler struct {
	opts SchedulerOptions

	frequency   float32
	lastRefresh float64
	lastAdapt   float64
	started     bool
}

// NewUpdateScheduler validates the options and creates a scheduler.
// The frequency band must have a strictly positive floor so the derived
// interval stays finite.
func NewUpdateScheduler(opts SchedulerOptions) (*UpdateScheduler, error) {
	if opts.Mode == "" {
		opts.Mode = SchedulerFixed
	}
	if opts.Mode != SchedulerFixed && opts.Mode != SchedulerAdaptive {
		return nil, fmt.Errorf("scheduler: unknown mode %q", opts.Mode)
	}
	if opts.Frequency <= 0 {
		return nil, fmt.Errorf("scheduler: frequency must be positive, got %v", opts.Frequency)
	}
	if opts.Mode == SchedulerAdaptive {
		if opts.MinFrequency <= 0 {
			return nil, fmt.Errorf("scheduler: min frequency must be positive, got %v", opts.MinFrequency)
		}
		if opts.MaxFrequency < opts.MinFrequency {
			return nil, fmt.Errorf("scheduler: max frequency %v below min %v", opts.MaxFrequency, opts.MinFrequency)
		}
		if opts.AdaptInterval <= 0 {
			opts.AdaptInterval = 1.0
		}
		if opts.ReferenceAgents < 1 {
			opts.ReferenceAgents = 1
		}
		if opts.TargetNeighbors <= 0 {
			opts.TargetNeighbors = 8
		}
	}
	return &UpdateScheduler{
		opts:      opts,
		frequency: opts.Frequency,
	}, nil
}

// Mode returns the configured scheduler mode.
func (s *UpdateScheduler) Mode() string {
	return s.opts.Mode
}

// Frequency returns the current refresh frequency in Hz.
func (s *UpdateScheduler) Frequency() float32 {
	return s.frequency
}

// Interval returns the current refresh interval 1/frequency in seconds.
func (s *UpdateScheduler) Interval() float32 {
	return 1 / s.frequency
}

// ShouldRefresh reports whether a refresh cycle is due at the given
// simulation time and, if so, marks it as taken. The first call always
// refreshes.
func (s *UpdateScheduler) ShouldRefresh(now float64) bool {
	if !s.started {
		s.started = true
		s.lastRefresh = now
		s.lastAdapt = now
		return true
	}
	if now-s.lastRefresh >= float64(s.Interval()) {
		s.lastRefresh = now
		return true
	}
	return false
}

// Adapt recomputes the refresh frequency from the observed population and
// mean neighbor count. No-op in fixed mode or before the adapt interval
// has elapsed.
func (s *UpdateScheduler) Adapt(now float64, agentCount int, meanNeighbors float64) {
	if s.opts.Mode != SchedulerAdaptive {
		return
	}
	if now-s.lastAdapt < s.opts.AdaptInterval {
		return
	}
	s.lastAdapt = now

	f := float64(s.opts.Frequency)

	// Denser populations refresh less often.
	if agentCount > s.opts.ReferenceAgents {
		f *= float64(s.opts.ReferenceAgents) / float64(agentCount)
	}

	// Crowded neighborhoods lower the frequency further; sparse ones
	// raise it. The raise factor is capped so an empty neighborhood
	// cannot blow the frequency out of the clamp band's reach.
	if meanNeighbors > 0 {
		crowd := s.opts.TargetNeighbors / meanNeighbors
		if crowd > 2 {
			crowd = 2
		}
		f *= crowd
	}

	s.frequency = clampFloat(float32(f), s.opts.MinFrequency, s.opts.MaxFrequency)
}

// SavingsRatio estimates the fraction of neighbor-refresh work avoided by
// throttling, relative to refreshing every tick at the given tick rate.
func (s *UpdateScheduler) SavingsRatio(tickRate float32) float64 {
	if tickRate <= 0 || s.frequency >= tickRate {
		return 0
	}
	return float64(1 - s.frequency/tickRate)
}
