package impact

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/review-impact/impact-sim/sim"
	"github.com/review-impact/impact-sim/sim/trace"
)

// Analyze loads a baseline from ds and evaluates req against it.
func Analyze(ctx context.Context, ds sim.DataSource, req sim.ChangeRequest, cfg sim.Config) Report {
	baseline, err := sim.LoadSnapshot(ctx, ds)
	if err != nil {
		logrus.Errorf("Loading baseline failed: %v", err)
		return ErrorReport(req, StatusLoadFailed, err)
	}
	return Evaluate(baseline, req, cfg)
}

// Evaluate simulates req over the baseline's enqueue history and compares each
// queue's historical SLA with the projected one. The baseline is not modified.
// Queues are listed worst first by Headroom; ties keep baseline order.
func Evaluate(baseline *sim.Snapshot, req sim.ChangeRequest, cfg sim.Config) Report {
	simulator, err := sim.NewSimulator(baseline, cfg)
	if err != nil {
		return ErrorReport(req, StatusInvalidConfig, err)
	}

	out, err := simulator.Simulate(baseline.EnqueueSignals, req)
	if err != nil {
		var nc *sim.NonConvergenceError
		switch {
		case errors.Is(err, sim.ErrInvalidChangeRequest):
			logrus.Warnf("Rejected change request %s: %v", req.IssueID, err)
			return ErrorReport(req, StatusInvalidRequest, err)
		case errors.As(err, &nc):
			logrus.Warnf("Change request %s did not converge: %v", req.IssueID, err)
			return ErrorReport(req, StatusNotConverged, err)
		default:
			return ErrorReport(req, StatusInvalidConfig, err)
		}
	}

	report := Report{
		Request:         req,
		Status:          StatusOK,
		Change:          out.Change,
		SimulatedEvents: out.Events,
		SkippedVideos:   out.SkippedVideos,
		GeneratedAt:     time.Now().UTC(),
		Warnings:        warnings(out.Change),
	}
	if out.Trace != nil && out.Trace.Config.Enabled() {
		report.Trace = trace.Summarize(out.Trace)
	}

	previous := sim.AverageSLAByQueue(baseline.EnqueueSignals, baseline.RoutingSignals, baseline.VerdictSignals)
	projected := sim.AverageSLAByQueue(out.EnqueueSignals, out.RoutingSignals, out.VerdictSignals)
	prevVolume := volumePerHour(baseline.EnqueueSignals, baseline.RoutingSignals)
	projVolume := volumePerHour(out.EnqueueSignals, out.RoutingSignals)

	report.Queues = make([]QueueImpact, 0, len(baseline.Queues))
	for _, q := range baseline.Queues {
		report.Queues = append(report.Queues, QueueImpact{
			QueueID:                q.ID,
			QueueName:              q.Name,
			DesiredSLAMinutes:      q.DesiredSLAMinutes,
			PreviousSLAMinutes:     previous[q.ID].MeanMinutes,
			ProjectedSLAMinutes:    projected[q.ID].MeanMinutes,
			PreviousVerdicts:       previous[q.ID].Verdicts,
			ProjectedVerdicts:      projected[q.ID].Verdicts,
			PreviousP90Minutes:     previous[q.ID].P90Minutes,
			ProjectedP90Minutes:    projected[q.ID].P90Minutes,
			PreviousVolumePerHour:  prevVolume[q.ID],
			ProjectedVolumePerHour: projVolume[q.ID],
		})
	}
	slices.SortStableFunc(report.Queues, func(a, b QueueImpact) int {
		return cmp.Compare(a.Headroom(), b.Headroom())
	})
	logrus.Infof("Impact of change request %s: %d queues, %d events simulated", req.IssueID, len(report.Queues), out.Events)
	return report
}

func warnings(change sim.ChangeResult) []string {
	var w []string
	for _, f := range change.UnmatchedRemovals {
		w = append(w, fmt.Sprintf("remove matched no enqueue rule with features %v", f))
	}
	if change.Deferred {
		w = append(w, fmt.Sprintf("%s changes are not simulated; projected SLA reflects the current rules", change.Kind))
	}
	return w
}

// volumePerHour counts videos entering each queue, by enqueue or routing, per hour
// of the enqueue span. Spans shorter than an hour count as one hour.
func volumePerHour(enqueue []sim.EnqueueSignal, routing []sim.RoutingSignal) map[string]float64 {
	counts := make(map[string]int)
	var first, last time.Time
	for i, e := range enqueue {
		counts[e.QueueMatch]++
		if i == 0 || e.CreateTime.Before(first) {
			first = e.CreateTime
		}
		if i == 0 || e.CreateTime.After(last) {
			last = e.CreateTime
		}
	}
	for _, r := range routing {
		counts[r.ToQueue]++
	}
	hours := max(last.Sub(first).Hours(), 1)
	volume := make(map[string]float64, len(counts))
	for q, n := range counts {
		volume[q] = float64(n) / hours
	}
	return volume
}
