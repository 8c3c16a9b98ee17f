package sim

import (
	"fmt"
	"math"
	"time"
)

// Signal is one record in a video's journey through review.
// It is a closed sum type: the only implementations are EnqueueSignal, RoutingSignal
// and VerdictSignal. Consumers match it with a type switch.
type Signal interface {
	// Lifecycle returns the identifier shared by every signal of one journey.
	Lifecycle() string
	// Timestamp returns the signal's create time, the authoritative time for ordering.
	Timestamp() time.Time
	// TargetQueue returns the queue the signal places the video in.
	TargetQueue() string

	signal()
}

// EnqueueSignal records a video entering its first queue.
type EnqueueSignal struct {
	LifecycleID string    `yaml:"lifecycle_id" json:"lifecycle_id"`
	CreateTime  time.Time `yaml:"create_time" json:"create_time"`
	QueueMatch  string    `yaml:"queue_match" json:"queue_match"`
	VideoID     string    `yaml:"video_id" json:"video_id"`
}

// RoutingSignal records a video reviewed in the wrong queue and sent to another one.
type RoutingSignal struct {
	LifecycleID string    `yaml:"lifecycle_id" json:"lifecycle_id"`
	CreateTime  time.Time `yaml:"create_time" json:"create_time"`
	FromQueue   string    `yaml:"from_queue" json:"from_queue"`
	ToQueue     string    `yaml:"to_queue" json:"to_queue"`
}

// VerdictSignal records the terminal review of a video in its correct queue.
type VerdictSignal struct {
	LifecycleID string    `yaml:"lifecycle_id" json:"lifecycle_id"`
	CreateTime  time.Time `yaml:"create_time" json:"create_time"`
	QueueID     string    `yaml:"queue_id" json:"queue_id"`
	SLAMinutes  int64     `yaml:"sla_min" json:"sla_min"`
}

func (s EnqueueSignal) Lifecycle() string    { return s.LifecycleID }
func (s EnqueueSignal) Timestamp() time.Time { return s.CreateTime }
func (s EnqueueSignal) TargetQueue() string  { return s.QueueMatch }
func (EnqueueSignal) signal()                {}

func (s RoutingSignal) Lifecycle() string    { return s.LifecycleID }
func (s RoutingSignal) Timestamp() time.Time { return s.CreateTime }
func (s RoutingSignal) TargetQueue() string  { return s.ToQueue }
func (RoutingSignal) signal()                {}

func (s VerdictSignal) Lifecycle() string    { return s.LifecycleID }
func (s VerdictSignal) Timestamp() time.Time { return s.CreateTime }
func (s VerdictSignal) TargetQueue() string  { return s.QueueID }
func (VerdictSignal) signal()                {}

// SignalKind names the variant of a Signal, for logs and traces.
func SignalKind(s Signal) string {
	switch s.(type) {
	case EnqueueSignal:
		return "enqueue"
	case RoutingSignal:
		return "routing"
	case VerdictSignal:
		return "verdict"
	default:
		panic(fmt.Sprintf("unhandled signal type %T", s))
	}
}

// wholeMinutes floors a duration to whole minutes.
func wholeMinutes(d time.Duration) int64 {
	return int64(math.Floor(d.Minutes()))
}
