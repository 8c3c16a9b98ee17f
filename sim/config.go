package sim

import (
	"fmt"
	"time"

	"github.com/review-impact/impact-sim/sim/trace"
)

// Config groups the knobs of one simulation run.
type Config struct {
	ReviewDuration    time.Duration // fixed time per review (default 5m)
	ReviewersPerQueue int           // reviewers staffed in every queue (default 1)
	PriorityOrder     PriorityOrder // rule evaluation order (default ascending)
	// MaxEvents bounds the number of events the loop may process. Exceeding it ends
	// the run with a NonConvergenceError.
	MaxEvents int
	// Horizon bounds how long one lifecycle may keep moving after its enqueue; 0 disables the bound.
	Horizon    time.Duration
	TraceLevel trace.TraceLevel
}

// DefaultConfig returns the configuration used when no overrides are given.
func DefaultConfig() Config {
	return Config{
		ReviewDuration:    DefaultReviewDuration,
		ReviewersPerQueue: 1,
		PriorityOrder:     PriorityAscending,
		MaxEvents:         1_000_000,
		Horizon:           30 * 24 * time.Hour,
		TraceLevel:        trace.TraceLevelNone,
	}
}

// Validate checks the configuration for values the simulator cannot run with.
func (c Config) Validate() error {
	if c.ReviewDuration <= 0 {
		return fmt.Errorf("review duration must be positive, got %s", c.ReviewDuration)
	}
	if c.ReviewersPerQueue < 1 {
		return fmt.Errorf("reviewers per queue must be >= 1, got %d", c.ReviewersPerQueue)
	}
	if !IsValidPriorityOrder(string(c.PriorityOrder)) {
		return fmt.Errorf("unknown priority order %q", c.PriorityOrder)
	}
	if c.MaxEvents < 1 {
		return fmt.Errorf("max events must be >= 1, got %d", c.MaxEvents)
	}
	if c.Horizon < 0 {
		return fmt.Errorf("horizon must not be negative, got %s", c.Horizon)
	}
	if !trace.IsValidTraceLevel(string(c.TraceLevel)) {
		return fmt.Errorf("unknown trace level %q", c.TraceLevel)
	}
	return nil
}
