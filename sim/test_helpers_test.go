package sim

import "time"

// t0 anchors every test timeline.
var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return t0.Add(time.Duration(minutes) * time.Minute)
}

// twoQueueSnapshot builds queues Q1 and Q2, a rule sending "f1" videos to Q1, and the
// given videos. Each video i is enqueued at t0 under lifecycle "lc-<id>".
func twoQueueSnapshot(videos ...Video) *Snapshot {
	s := &Snapshot{
		Queues: []EntityQueue{
			{ID: "Q1", Name: "General", DesiredSLAMinutes: 30},
			{ID: "Q2", Name: "Specialist", DesiredSLAMinutes: 60},
		},
		Rules: []EnqueueRule{
			{ID: "r1", QueueID: "Q1", Priority: 10, Features: Features{"f1"}},
		},
		Videos: videos,
	}
	for _, v := range videos {
		s.EnqueueSignals = append(s.EnqueueSignals, EnqueueSignal{
			LifecycleID: "lc-" + v.ID, CreateTime: t0, QueueMatch: "Q1", VideoID: v.ID,
		})
	}
	return s
}

func noopChange() ChangeRequest {
	return ChangeRequest{QueueInfo: &QueueInfoChange{Method: MethodAdd, QueueID: "Q1"}}
}
