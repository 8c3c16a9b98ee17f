// Package trace provides decision-trace recording for simulation runs.
// It has no dependencies on sim/ and stores pure data types.
package trace

import "time"

// Outcome is the result of processing one scheduled event.
type Outcome string

const (
	OutcomeDropped     Outcome = "dropped"     // target queue unknown
	OutcomeRescheduled Outcome = "rescheduled" // every reviewer busy
	OutcomeRouted      Outcome = "routed"      // reviewed in the wrong queue
	OutcomeVerdict     Outcome = "verdict"     // reviewed in the correct queue
)

// DecisionRecord captures a single processor transition.
type DecisionRecord struct {
	LifecycleID string
	Clock       time.Time // time the event was due
	SignalKind  string    // "enqueue" or "routing"
	Queue       string    // queue the event targeted
	Outcome     Outcome
	Reviewer    int       // reviewer index; -1 when no reviewer was involved
	NextTime    time.Time // reschedule time, or the emitted signal's create time
	NextQueue   string    // routing destination; empty otherwise
}
