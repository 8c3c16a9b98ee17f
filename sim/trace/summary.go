package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions int            `json:"total_decisions"`
	Verdicts       int            `json:"verdicts"`
	Routings       int            `json:"routings"`
	Reschedules    int            `json:"reschedules"`
	Dropped        int            `json:"dropped"`
	MaxRetries     int            `json:"max_retries"`      // most reschedules seen by a single lifecycle
	QueueVerdicts  map[string]int `json:"queue_verdicts"`   // queue ID → verdicts issued there
	RoutesBySource map[string]int `json:"routes_by_source"` // source queue ID → routing decisions made there
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		QueueVerdicts:  make(map[string]int),
		RoutesBySource: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	retries := make(map[string]int)
	summary.TotalDecisions = len(st.Decisions)
	for _, d := range st.Decisions {
		switch d.Outcome {
		case OutcomeVerdict:
			summary.Verdicts++
			summary.QueueVerdicts[d.Queue]++
		case OutcomeRouted:
			summary.Routings++
			summary.RoutesBySource[d.Queue]++
		case OutcomeRescheduled:
			summary.Reschedules++
			retries[d.LifecycleID]++
			summary.MaxRetries = max(summary.MaxRetries, retries[d.LifecycleID])
		case OutcomeDropped:
			summary.Dropped++
		}
	}
	return summary
}
