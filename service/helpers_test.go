package service

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/review-impact/impact-sim/sim"
	"github.com/review-impact/impact-sim/store"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// newTestAnalyzer serves a two-queue baseline whose Q1 history averages 30 minutes.
func newTestAnalyzer(metrics *Metrics) *Analyzer {
	snap := &sim.Snapshot{
		Queues: []sim.EntityQueue{
			{ID: "Q1", Name: "General", DesiredSLAMinutes: 10},
			{ID: "Q2", Name: "Specialist", DesiredSLAMinutes: 60},
		},
		Rules: []sim.EnqueueRule{{ID: "r1", QueueID: "Q1", Priority: 10, Features: sim.Features{"f1"}}},
		Videos: []sim.Video{
			{ID: "V1", Features: sim.Features{"f1"}},
			{ID: "V2", Features: sim.Features{"f1", "f2"}},
		},
		EnqueueSignals: []sim.EnqueueSignal{
			{LifecycleID: "a", CreateTime: t0, QueueMatch: "Q1", VideoID: "V1"},
			{LifecycleID: "b", CreateTime: t0, QueueMatch: "Q1", VideoID: "V2"},
		},
		VerdictSignals: []sim.VerdictSignal{
			{LifecycleID: "a", CreateTime: t0.Add(20 * time.Minute), QueueID: "Q1", SLAMinutes: 20},
			{LifecycleID: "b", CreateTime: t0.Add(40 * time.Minute), QueueID: "Q1", SLAMinutes: 40},
		},
	}
	return NewAnalyzer(store.NewFixture(snap), sim.DefaultConfig(), metrics)
}

func addRule(queue string, features ...string) sim.ChangeRequest {
	return sim.ChangeRequest{IssueID: "CR-7", EnqueueRules: &sim.EnqueueRuleChanges{Changes: []sim.EnqueueRuleChange{
		{Method: sim.MethodAdd, QueueID: queue, Priority: 1, Features: features},
	}}}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}
