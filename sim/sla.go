package sim

import (
	"math"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
)

// SLAStat is the turnaround summary of one queue.
type SLAStat struct {
	Verdicts    int     // verdicts that contributed to the mean
	MeanMinutes float64 // arithmetic mean of whole-minute SLAs; 0 with no verdicts
	P90Minutes  float64 // 90th percentile, linearly interpolated
}

// AverageSLAByQueue reduces a signal set to a per-queue average turnaround time.
//
// A verdict's SLA runs from its lifecycle's anchor to the verdict, floored to whole
// minutes. The anchor is the latest routing signal of the lifecycle, or the first
// enqueue signal if it was never routed. Verdicts whose lifecycle has neither are
// left out of the mean.
func AverageSLAByQueue(enqueue []EnqueueSignal, routing []RoutingSignal, verdicts []VerdictSignal) map[string]SLAStat {
	anchors := make(map[string]time.Time, len(enqueue))
	for _, e := range enqueue {
		if _, seen := anchors[e.LifecycleID]; !seen {
			anchors[e.LifecycleID] = e.CreateTime
		}
	}
	latestRoute := make(map[string]time.Time, len(routing))
	for _, r := range routing {
		if prev, ok := latestRoute[r.LifecycleID]; !ok || r.CreateTime.After(prev) {
			latestRoute[r.LifecycleID] = r.CreateTime
		}
	}
	for lifecycle, t := range latestRoute {
		anchors[lifecycle] = t
	}

	samples := make(map[string][]int64)
	for _, v := range verdicts {
		anchor, ok := anchors[v.LifecycleID]
		if !ok {
			logrus.Debugf("Verdict for lifecycle %s in %s has no enqueue or routing anchor, ignored", v.LifecycleID, v.QueueID)
			continue
		}
		samples[v.QueueID] = append(samples[v.QueueID], wholeMinutes(v.CreateTime.Sub(anchor)))
	}

	stats := make(map[string]SLAStat, len(samples))
	for q, minutes := range samples {
		slices.Sort(minutes)
		var sum int64
		for _, m := range minutes {
			sum += m
		}
		stats[q] = SLAStat{
			Verdicts:    len(minutes),
			MeanMinutes: float64(sum) / float64(len(minutes)),
			P90Minutes:  percentile(minutes, 90),
		}
	}
	return stats
}

// percentile returns the p-th percentile of sorted data, interpolating between
// the two nearest ranks.
func percentile(sorted []int64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	rank := p / 100.0 * float64(n-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return float64(sorted[lower])
	}
	return float64(sorted[lower]) + float64(sorted[upper]-sorted[lower])*(rank-float64(lower))
}

// ComputeAverageSLA returns the mean SLA in minutes of the verdicts issued in queueID,
// or 0 when there are none.
func ComputeAverageSLA(queueID string, enqueue []EnqueueSignal, routing []RoutingSignal, verdicts []VerdictSignal) float64 {
	var own []VerdictSignal
	for _, v := range verdicts {
		if v.QueueID == queueID {
			own = append(own, v)
		}
	}
	return AverageSLAByQueue(enqueue, routing, own)[queueID].MeanMinutes
}
