package impact

import (
	"time"

	"github.com/review-impact/impact-sim/sim"
	"github.com/review-impact/impact-sim/sim/trace"
)

// Status classifies the outcome of an impact analysis.
type Status string

const (
	StatusOK             Status = "ok"
	StatusInvalidRequest Status = "invalid_request" // malformed change request
	StatusInvalidConfig  Status = "invalid_config"  // simulation knobs rejected
	StatusNotConverged   Status = "not_converged"   // event or horizon budget exhausted
	StatusLoadFailed     Status = "load_failed"     // data source unavailable
)

// QueueImpact compares one queue's historical and projected turnaround.
type QueueImpact struct {
	QueueID             string  `json:"queue_id"`
	QueueName           string  `json:"queue_name,omitempty"`
	DesiredSLAMinutes   int64   `json:"desired_sla_min"`
	PreviousSLAMinutes  float64 `json:"previous_sla_min"`
	ProjectedSLAMinutes float64 `json:"projected_sla_min"`
	PreviousVerdicts    int     `json:"previous_verdicts"`
	ProjectedVerdicts   int     `json:"projected_verdicts"`
	PreviousP90Minutes  float64 `json:"previous_p90_min"`
	ProjectedP90Minutes float64 `json:"projected_p90_min"`

	// Videos entering the queue per hour of traffic, by enqueue or routing.
	PreviousVolumePerHour  float64 `json:"previous_volume_per_hour"`
	ProjectedVolumePerHour float64 `json:"projected_volume_per_hour"`
}

// DeltaMinutes is the projected minus the previous SLA.
func (q QueueImpact) DeltaMinutes() float64 {
	return q.ProjectedSLAMinutes - q.PreviousSLAMinutes
}

// Headroom is how far the projected SLA sits under the desired SLA plus how much it
// improved on the previous one. Queues pushed past their target or slowed down the
// most score lowest.
func (q QueueImpact) Headroom() float64 {
	return (float64(q.DesiredSLAMinutes) - q.ProjectedSLAMinutes) + (q.PreviousSLAMinutes - q.ProjectedSLAMinutes)
}

// MeetsDesired reports whether the projected SLA is within the queue's target.
// A queue without a target always meets it.
func (q QueueImpact) MeetsDesired() bool {
	return q.DesiredSLAMinutes <= 0 || q.ProjectedSLAMinutes <= float64(q.DesiredSLAMinutes)
}

// Report is the answer to one change request.
type Report struct {
	RequestID string            `json:"request_id,omitempty"`
	Request   sim.ChangeRequest `json:"request"`
	Status    Status            `json:"status"`
	Error     string            `json:"error,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`

	Change          sim.ChangeResult `json:"change"`
	Queues          []QueueImpact    `json:"queues"`
	SimulatedEvents int              `json:"simulated_events"`
	SkippedVideos   int              `json:"skipped_videos"`
	GeneratedAt     time.Time        `json:"generated_at"`

	// Trace is set only when the run collected decisions.
	Trace *trace.TraceSummary `json:"trace,omitempty"`
}

// OK reports whether the analysis produced queue data.
func (r Report) OK() bool {
	return r.Status == StatusOK
}

// Queue returns the impact entry for id.
func (r Report) Queue(id string) (QueueImpact, bool) {
	for _, q := range r.Queues {
		if q.QueueID == id {
			return q, true
		}
	}
	return QueueImpact{}, false
}

// ErrorReport builds a report carrying only the request and a failure.
func ErrorReport(req sim.ChangeRequest, status Status, err error) Report {
	r := Report{Request: req, Status: status, Queues: []QueueImpact{}, GeneratedAt: time.Now().UTC()}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
