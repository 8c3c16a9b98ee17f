package sim

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/review-impact/impact-sim/sim/trace"
)

// Processor is the per-event state machine of the simulation.
//
// For each event it either reschedules (no reviewer free), or has a reviewer review
// the video. A review in the queue of the lifecycle's recorded verdict settles it with
// a terminal VerdictSignal; a review anywhere else emits a RoutingSignal toward that
// queue, which is scheduled as a new event.
type Processor struct {
	queues   map[string]*EntityQueue
	verdicts map[string]VerdictSignal // latest recorded verdict per lifecycle
	anchors  map[string]time.Time     // lifecycle → time it entered its current queue
	origins  map[string]time.Time     // lifecycle → time it was seeded
	events   *EventQueue
	trace    *trace.SimulationTrace

	Routings []RoutingSignal
	Verdicts []VerdictSignal
}

// NewProcessor creates a Processor over the given queues and recorded verdicts.
// queues are mutated as reviewers take work; pass a working copy.
func NewProcessor(queues map[string]*EntityQueue, verdicts map[string]VerdictSignal, events *EventQueue, tr *trace.SimulationTrace) *Processor {
	return &Processor{
		queues:   queues,
		verdicts: verdicts,
		anchors:  make(map[string]time.Time),
		origins:  make(map[string]time.Time),
		events:   events,
		trace:    tr,
	}
}

// Seed schedules an enqueue signal as the start of a lifecycle.
func (p *Processor) Seed(s EnqueueSignal) {
	p.anchors[s.LifecycleID] = s.CreateTime
	if _, ok := p.origins[s.LifecycleID]; !ok {
		p.origins[s.LifecycleID] = s.CreateTime
	}
	p.events.Schedule(s)
}

// Origin returns the time the lifecycle was first seeded.
func (p *Processor) Origin(lifecycle string) (time.Time, bool) {
	t, ok := p.origins[lifecycle]
	return t, ok
}

// Process consumes one event and returns the transition it caused.
func (p *Processor) Process(ev Event) trace.Outcome {
	lifecycle := ev.Signal.Lifecycle()
	queueID := ev.Signal.TargetQueue()
	rec := trace.DecisionRecord{
		LifecycleID: lifecycle,
		Clock:       ev.At,
		SignalKind:  SignalKind(ev.Signal),
		Queue:       queueID,
		Reviewer:    -1,
	}

	q, ok := p.queues[queueID]
	if !ok || len(q.Reviewers) == 0 {
		logrus.Warnf("Dropping %s event for lifecycle %s: queue %q unknown or unstaffed", rec.SignalKind, lifecycle, queueID)
		rec.Outcome = trace.OutcomeDropped
		p.trace.Record(rec)
		return rec.Outcome
	}

	idx, ok := q.FindAvailableReviewer(ev.At)
	if !ok {
		next := q.NextAvailableTime()
		p.events.Reschedule(ev, next)
		logrus.Debugf("Queue %s busy at %s, lifecycle %s retries at %s", queueID, ev.At.Format(time.RFC3339), lifecycle, next.Format(time.RFC3339))
		rec.Outcome = trace.OutcomeRescheduled
		rec.NextTime = next
		p.trace.Record(rec)
		return rec.Outcome
	}

	done := q.Assign(idx, ev.At)
	rec.Reviewer = idx
	rec.NextTime = done

	prior, ok := p.verdicts[lifecycle]
	if !ok {
		// No recorded verdict: the current queue is assumed to be the right one.
		prior = VerdictSignal{LifecycleID: lifecycle, QueueID: queueID}
	}

	if prior.QueueID == queueID {
		v := VerdictSignal{
			LifecycleID: lifecycle,
			CreateTime:  done,
			QueueID:     queueID,
			SLAMinutes:  wholeMinutes(done.Sub(p.anchors[lifecycle])),
		}
		p.Verdicts = append(p.Verdicts, v)
		logrus.Debugf("Verdict for lifecycle %s in %s at %s", lifecycle, queueID, done.Format(time.RFC3339))
		rec.Outcome = trace.OutcomeVerdict
		p.trace.Record(rec)
		return rec.Outcome
	}

	r := RoutingSignal{
		LifecycleID: lifecycle,
		CreateTime:  done,
		FromQueue:   queueID,
		ToQueue:     prior.QueueID,
	}
	p.Routings = append(p.Routings, r)
	p.anchors[lifecycle] = done
	p.events.Schedule(r)
	logrus.Debugf("Routing lifecycle %s from %s to %s at %s", lifecycle, queueID, prior.QueueID, done.Format(time.RFC3339))
	rec.Outcome = trace.OutcomeRouted
	rec.NextQueue = prior.QueueID
	p.trace.Record(rec)
	return rec.Outcome
}
