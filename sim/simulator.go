// sim/simulator.go
package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/review-impact/impact-sim/sim/trace"
)

// ErrNotConverged is wrapped by NonConvergenceError.
var ErrNotConverged = errors.New("simulation did not converge")

// NonConvergenceError reports a run stopped by its event or horizon budget while
// events were still pending.
type NonConvergenceError struct {
	Events  int       // events processed before stopping
	Pending int       // events still queued
	Clock   time.Time // simulated time reached
	Reason  string
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("%v after %d events at %s (%d pending): %s",
		ErrNotConverged, e.Events, e.Clock.Format(time.RFC3339), e.Pending, e.Reason)
}

func (e *NonConvergenceError) Unwrap() error { return ErrNotConverged }

// SimulationOutput holds the signals produced by one simulation run.
type SimulationOutput struct {
	EnqueueSignals []EnqueueSignal
	RoutingSignals []RoutingSignal
	VerdictSignals []VerdictSignal

	Change        ChangeResult
	SkippedVideos int       // incoming signals with no video or no matching rule
	Events        int       // events processed by the loop
	Clock         time.Time // simulated time of the last processed event
	Trace         *trace.SimulationTrace
}

// Simulator replays enqueue traffic under a proposed rule set.
// The baseline snapshot is never modified; each Simulate call works on a clone.
type Simulator struct {
	cfg      Config
	baseline *Snapshot
}

// NewSimulator creates a Simulator over a loaded baseline snapshot.
func NewSimulator(baseline *Snapshot, cfg Config) (*Simulator, error) {
	if baseline == nil {
		return nil, errors.New("baseline snapshot is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}
	return &Simulator{cfg: cfg, baseline: baseline}, nil
}

// Baseline returns the snapshot the simulator was created with.
func (s *Simulator) Baseline() *Snapshot {
	return s.baseline
}

// Simulate applies req to a working copy of the baseline, derives one enqueue per
// incoming signal whose video matches a rule, and runs the event loop to completion.
//
// Returns an error wrapping ErrInvalidChangeRequest for malformed requests, and a
// *NonConvergenceError when the event or horizon budget runs out.
func (s *Simulator) Simulate(enqueueSignals []EnqueueSignal, req ChangeRequest) (*SimulationOutput, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	working := s.baseline.Clone()
	change := applyChange(working, req)
	for _, f := range change.UnmatchedRemovals {
		logrus.Warnf("Remove change matched no enqueue rule with features %v", f)
	}
	for i := range working.Queues {
		working.Queues[i].Staff(s.cfg.ReviewersPerQueue, s.cfg.ReviewDuration)
	}

	queues := working.queueIndex()
	videos := working.videoIndex()
	events := NewEventQueue()
	tr := trace.NewSimulationTrace(trace.TraceConfig{Level: s.cfg.TraceLevel})
	proc := NewProcessor(queues, latestVerdicts(working.VerdictSignals), events, tr)

	out := &SimulationOutput{Change: change, Trace: tr}
	for _, src := range enqueueSignals {
		video, ok := videos[src.VideoID]
		if !ok {
			logrus.Warnf("Enqueue signal %s references unknown video %q, skipping", src.LifecycleID, src.VideoID)
			out.SkippedVideos++
			continue
		}
		rule, ok := MatchRule(video.Features, working.Rules, s.cfg.PriorityOrder)
		if !ok {
			logrus.Debugf("No enqueue rule matches video %s, skipping", video.ID)
			out.SkippedVideos++
			continue
		}
		if _, ok := queues[rule.QueueID]; !ok {
			logrus.Warnf("Enqueue rule %s targets unknown queue %q, skipping video %s", rule.ID, rule.QueueID, video.ID)
			out.SkippedVideos++
			continue
		}

		if video.LifecycleID == "" {
			video.LifecycleID = src.LifecycleID
		}
		seeded := EnqueueSignal{
			LifecycleID: src.LifecycleID,
			CreateTime:  src.CreateTime,
			QueueMatch:  rule.QueueID,
			VideoID:     video.ID,
		}
		out.EnqueueSignals = append(out.EnqueueSignals, seeded)
		proc.Seed(seeded)
	}

	logrus.Infof("Simulating %d enqueues (%d skipped), change %s: +%d/-%d rules",
		len(out.EnqueueSignals), out.SkippedVideos, change.Kind, change.RulesAdded, change.RulesRemoved)

	if err := s.run(events, proc, out); err != nil {
		return nil, err
	}
	out.RoutingSignals = proc.Routings
	out.VerdictSignals = proc.Verdicts
	logrus.Infof("[%s] Simulation ended after %d events: %d routings, %d verdicts",
		out.Clock.Format(time.RFC3339), out.Events, len(out.RoutingSignals), len(out.VerdictSignals))
	return out, nil
}

// run drives proc until no event is pending or a budget is exhausted.
// The horizon is measured per lifecycle from its seeded enqueue, so a long history of
// independent lifecycles never exhausts it.
func (s *Simulator) run(events *EventQueue, proc *Processor, out *SimulationOutput) error {
	for !events.Empty() {
		if out.Events >= s.cfg.MaxEvents {
			return &NonConvergenceError{Events: out.Events, Pending: events.Len(), Clock: out.Clock,
				Reason: fmt.Sprintf("event budget of %d exhausted", s.cfg.MaxEvents)}
		}
		ev, _ := events.PopNext()
		lifecycle := ev.Signal.Lifecycle()
		if origin, ok := proc.Origin(lifecycle); ok && s.cfg.Horizon > 0 && ev.At.After(origin.Add(s.cfg.Horizon)) {
			return &NonConvergenceError{Events: out.Events, Pending: events.Len() + 1, Clock: out.Clock,
				Reason: fmt.Sprintf("lifecycle %s is still moving at %s, past the %s horizon from its enqueue at %s",
					lifecycle, ev.At.Format(time.RFC3339), s.cfg.Horizon, origin.Format(time.RFC3339))}
		}
		out.Clock = ev.At
		logrus.Tracef("[%s] Executing %s event for %s", ev.At.Format(time.RFC3339), SignalKind(ev.Signal), lifecycle)
		proc.Process(ev)
		out.Events++
	}
	return nil
}
