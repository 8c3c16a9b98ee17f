package sim

import "time"

// DefaultReviewDuration is the fixed time every review takes unless configured otherwise.
const DefaultReviewDuration = 5 * time.Minute

// Reviewer models one human reviewer attached to a queue.
// Every review takes exactly AverageDuration; there is no variance.
type Reviewer struct {
	AverageDuration time.Duration
	reviewing       bool
	startedAt       time.Time
}

// NewReviewer creates an idle reviewer. A non-positive duration falls back to
// DefaultReviewDuration.
func NewReviewer(avg time.Duration) Reviewer {
	if avg <= 0 {
		avg = DefaultReviewDuration
	}
	return Reviewer{AverageDuration: avg}
}

// NotBusyTime returns the moment the current review finishes.
// An idle reviewer returns the zero time.
func (r *Reviewer) NotBusyTime() time.Time {
	if !r.reviewing {
		return time.Time{}
	}
	return r.startedAt.Add(r.AverageDuration)
}

// IsBusy reports whether the reviewer is still reviewing at now.
func (r *Reviewer) IsBusy(now time.Time) bool {
	if !r.reviewing {
		return false
	}
	return r.NotBusyTime().After(now)
}

// StartReview marks the reviewer busy from at and returns when the review completes.
func (r *Reviewer) StartReview(at time.Time) time.Time {
	r.reviewing = true
	r.startedAt = at
	return r.NotBusyTime()
}
