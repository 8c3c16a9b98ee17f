// Implements EntityQueue, a review queue and the pool of reviewers it owns exclusively.

package sim

import (
	"fmt"
	"slices"
	"time"
)

// EntityQueue is a review queue. Reviewers belong to exactly one queue.
type EntityQueue struct {
	ID                string   `yaml:"id" json:"id"`
	Name              string   `yaml:"name" json:"name"`
	DesiredSLAMinutes int64    `yaml:"desired_sla_min" json:"desired_sla_min"`
	Owners            []string `yaml:"owners,omitempty" json:"owners,omitempty"`
	PossibleRoutes    []string `yaml:"possible_routes,omitempty" json:"possible_routes,omitempty"`

	Reviewers []Reviewer `yaml:"-" json:"-"`

	// nextAvailable is the earliest not-busy time over all reviewers, recorded by the
	// last FindAvailableReviewer call that found everyone busy.
	nextAvailable time.Time
}

// Staff replaces the reviewer pool with n idle reviewers of the given duration.
// n < 1 staffs a single reviewer.
func (q *EntityQueue) Staff(n int, avg time.Duration) {
	n = max(n, 1)
	q.Reviewers = make([]Reviewer, n)
	for i := range q.Reviewers {
		q.Reviewers[i] = NewReviewer(avg)
	}
	q.nextAvailable = time.Time{}
}

// FindAvailableReviewer returns the index of the first reviewer not busy at now.
// When every reviewer is busy it returns false and records the minimum not-busy time,
// readable through NextAvailableTime. An empty pool never has a reviewer available.
func (q *EntityQueue) FindAvailableReviewer(now time.Time) (int, bool) {
	var next time.Time
	for i := range q.Reviewers {
		r := &q.Reviewers[i]
		if !r.IsBusy(now) {
			return i, true
		}
		if t := r.NotBusyTime(); next.IsZero() || t.Before(next) {
			next = t
		}
	}
	q.nextAvailable = next
	return -1, false
}

// NextAvailableTime returns the time recorded by the last unsuccessful FindAvailableReviewer.
func (q *EntityQueue) NextAvailableTime() time.Time {
	return q.nextAvailable
}

// Assign starts a review on reviewer idx at the given time and returns its completion time.
func (q *EntityQueue) Assign(idx int, at time.Time) time.Time {
	if idx < 0 || idx >= len(q.Reviewers) {
		panic(fmt.Sprintf("Assign: reviewer index %d out of range for queue %s with %d reviewers", idx, q.ID, len(q.Reviewers)))
	}
	return q.Reviewers[idx].StartReview(at)
}

// Clone returns a deep copy of the queue, including reviewer state.
func (q EntityQueue) Clone() EntityQueue {
	q.Owners = slices.Clone(q.Owners)
	q.PossibleRoutes = slices.Clone(q.PossibleRoutes)
	q.Reviewers = slices.Clone(q.Reviewers)
	return q
}
