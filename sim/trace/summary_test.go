package trace

import "testing"

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN summarized
	summary := Summarize(st)

	// THEN all counts are zero
	if summary.TotalDecisions != 0 {
		t.Errorf("expected 0 total decisions, got %d", summary.TotalDecisions)
	}
	if summary.Verdicts != 0 || summary.Routings != 0 || summary.Reschedules != 0 {
		t.Error("expected 0 verdicts, routings and reschedules")
	}
	if len(summary.QueueVerdicts) != 0 {
		t.Error("expected empty verdict distribution")
	}
}

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	summary := Summarize(nil)
	if summary.TotalDecisions != 0 || summary.QueueVerdicts == nil {
		t.Errorf("unexpected summary for nil trace: %+v", summary)
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN a trace where lc_1 waits twice, is routed, then settles in q2
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})
	st.Record(DecisionRecord{LifecycleID: "lc_1", Queue: "q1", Outcome: OutcomeRescheduled})
	st.Record(DecisionRecord{LifecycleID: "lc_1", Queue: "q1", Outcome: OutcomeRescheduled})
	st.Record(DecisionRecord{LifecycleID: "lc_1", Queue: "q1", Outcome: OutcomeRouted, NextQueue: "q2"})
	st.Record(DecisionRecord{LifecycleID: "lc_1", Queue: "q2", Outcome: OutcomeVerdict})
	st.Record(DecisionRecord{LifecycleID: "lc_2", Queue: "q2", Outcome: OutcomeRescheduled})
	st.Record(DecisionRecord{LifecycleID: "lc_2", Queue: "q2", Outcome: OutcomeVerdict})
	st.Record(DecisionRecord{LifecycleID: "lc_3", Queue: "gone", Outcome: OutcomeDropped})

	// WHEN summarized
	summary := Summarize(st)

	// THEN counts match
	if summary.TotalDecisions != 7 {
		t.Errorf("expected 7 total decisions, got %d", summary.TotalDecisions)
	}
	if summary.Verdicts != 2 {
		t.Errorf("expected 2 verdicts, got %d", summary.Verdicts)
	}
	if summary.Routings != 1 {
		t.Errorf("expected 1 routing, got %d", summary.Routings)
	}
	if summary.Reschedules != 3 {
		t.Errorf("expected 3 reschedules, got %d", summary.Reschedules)
	}
	if summary.Dropped != 1 {
		t.Errorf("expected 1 dropped, got %d", summary.Dropped)
	}
	if summary.MaxRetries != 2 {
		t.Errorf("expected max retries 2, got %d", summary.MaxRetries)
	}
	if summary.QueueVerdicts["q2"] != 2 {
		t.Errorf("expected 2 verdicts in q2, got %d", summary.QueueVerdicts["q2"])
	}
	if summary.RoutesBySource["q1"] != 1 {
		t.Errorf("expected 1 route from q1, got %d", summary.RoutesBySource["q1"])
	}
}
