package sim

import (
	"container/heap"
	"time"
)

// Event is a scheduled signal waiting for a reviewer.
// At starts as the signal's create time and moves forward each time the event is
// rescheduled; the signal itself is never modified.
type Event struct {
	Signal Signal    // EnqueueSignal or RoutingSignal
	At     time.Time // time the event is due
	Seq    int64     // insertion sequence, deterministic tie-breaker
}

// eventHeap is a min-heap ordered by (At, Seq).
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if !h[i].At.Equal(h[j].At) {
		return h[i].At.Before(h[j].At)
	}
	return h[i].Seq < h[j].Seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// EventQueue orders pending events by due time. Events due at the same instant pop
// in the order they were first scheduled; a rescheduled event keeps its original
// sequence number, so a retry is never overtaken by work that arrived after it.
type EventQueue struct {
	events  eventHeap
	nextSeq int64
}

// NewEventQueue creates an empty EventQueue.
func NewEventQueue() *EventQueue {
	return &EventQueue{events: make(eventHeap, 0)}
}

// Schedule pushes a new event for s, due at s.Timestamp().
func (q *EventQueue) Schedule(s Signal) Event {
	ev := Event{Signal: s, At: s.Timestamp(), Seq: q.nextSeq}
	q.nextSeq++
	heap.Push(&q.events, ev)
	return ev
}

// Reschedule pushes ev back with a new due time, preserving its sequence number.
func (q *EventQueue) Reschedule(ev Event, at time.Time) {
	ev.At = at
	heap.Push(&q.events, ev)
}

// PopNext removes and returns the earliest event. ok is false when the queue is empty.
func (q *EventQueue) PopNext() (ev Event, ok bool) {
	if len(q.events) == 0 {
		return Event{}, false
	}
	return heap.Pop(&q.events).(Event), true
}

// Peek returns the earliest event without removing it.
func (q *EventQueue) Peek() (Event, bool) {
	if len(q.events) == 0 {
		return Event{}, false
	}
	return q.events[0], true
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int { return len(q.events) }

// Empty reports whether no events are pending.
func (q *EventQueue) Empty() bool { return len(q.events) == 0 }
