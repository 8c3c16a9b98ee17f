package sim

import (
	"context"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
)

// DataSource supplies the baseline entities of the review pipeline.
// Each call returns the full current set of one entity type; callers treat the
// results as read-only. Implementations are opened by their constructor and must
// be released with Close.
type DataSource interface {
	GetAllQueues(ctx context.Context) ([]EntityQueue, error)
	GetAllEnqueueRules(ctx context.Context) ([]EnqueueRule, error)
	GetAllVideos(ctx context.Context) ([]Video, error)
	GetAllEnqueueSignals(ctx context.Context) ([]EnqueueSignal, error)
	GetAllRoutingSignals(ctx context.Context) ([]RoutingSignal, error)
	GetAllVerdictSignals(ctx context.Context) ([]VerdictSignal, error)
	Close() error
}

// SnapshotReader is implemented by data sources that can read every entity type
// at once. LoadSnapshot prefers it, so a source can return one consistent view
// instead of six independent reads.
type SnapshotReader interface {
	ReadSnapshot(ctx context.Context) (*Snapshot, error)
}

// Snapshot is an in-memory copy of every baseline entity, loaded once per run.
type Snapshot struct {
	Queues         []EntityQueue   `yaml:"queues" json:"queues"`
	Rules          []EnqueueRule   `yaml:"enqueue_rules" json:"enqueue_rules"`
	Videos         []Video         `yaml:"videos" json:"videos"`
	EnqueueSignals []EnqueueSignal `yaml:"enqueue_signals" json:"enqueue_signals"`
	RoutingSignals []RoutingSignal `yaml:"routing_signals" json:"routing_signals"`
	VerdictSignals []VerdictSignal `yaml:"verdict_signals" json:"verdict_signals"`
}

// LoadSnapshot reads every entity type from ds, through ReadSnapshot when ds is a
// SnapshotReader and otherwise one getter at a time.
func LoadSnapshot(ctx context.Context, ds DataSource) (*Snapshot, error) {
	if r, ok := ds.(SnapshotReader); ok {
		s, err := r.ReadSnapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		logLoaded(s)
		return s, nil
	}

	var (
		s   Snapshot
		err error
	)
	if s.Queues, err = ds.GetAllQueues(ctx); err != nil {
		return nil, fmt.Errorf("load queues: %w", err)
	}
	if s.Rules, err = ds.GetAllEnqueueRules(ctx); err != nil {
		return nil, fmt.Errorf("load enqueue rules: %w", err)
	}
	if s.Videos, err = ds.GetAllVideos(ctx); err != nil {
		return nil, fmt.Errorf("load videos: %w", err)
	}
	if s.EnqueueSignals, err = ds.GetAllEnqueueSignals(ctx); err != nil {
		return nil, fmt.Errorf("load enqueue signals: %w", err)
	}
	if s.RoutingSignals, err = ds.GetAllRoutingSignals(ctx); err != nil {
		return nil, fmt.Errorf("load routing signals: %w", err)
	}
	if s.VerdictSignals, err = ds.GetAllVerdictSignals(ctx); err != nil {
		return nil, fmt.Errorf("load verdict signals: %w", err)
	}
	logLoaded(&s)
	return &s, nil
}

func logLoaded(s *Snapshot) {
	logrus.Infof("Loaded snapshot: %d queues, %d rules, %d videos, %d enqueue / %d routing / %d verdict signals",
		len(s.Queues), len(s.Rules), len(s.Videos), len(s.EnqueueSignals), len(s.RoutingSignals), len(s.VerdictSignals))
}

// Clone returns a deep copy. Mutating the clone's queues, rules or videos never
// affects s. Signals are plain values and are copied slice-wise.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Queues:         make([]EntityQueue, len(s.Queues)),
		Rules:          make([]EnqueueRule, len(s.Rules)),
		Videos:         make([]Video, len(s.Videos)),
		EnqueueSignals: slices.Clone(s.EnqueueSignals),
		RoutingSignals: slices.Clone(s.RoutingSignals),
		VerdictSignals: slices.Clone(s.VerdictSignals),
	}
	for i, q := range s.Queues {
		c.Queues[i] = q.Clone()
	}
	for i, r := range s.Rules {
		c.Rules[i] = r.Clone()
	}
	for i, v := range s.Videos {
		c.Videos[i] = v.Clone()
	}
	return c
}

// queueIndex maps queue IDs to positions in s.Queues.
func (s *Snapshot) queueIndex() map[string]*EntityQueue {
	m := make(map[string]*EntityQueue, len(s.Queues))
	for i := range s.Queues {
		m[s.Queues[i].ID] = &s.Queues[i]
	}
	return m
}

// videoIndex maps video IDs to positions in s.Videos.
func (s *Snapshot) videoIndex() map[string]*Video {
	m := make(map[string]*Video, len(s.Videos))
	for i := range s.Videos {
		m[s.Videos[i].ID] = &s.Videos[i]
	}
	return m
}

// latestVerdicts returns the most recent verdict per lifecycle. Ties keep the later
// entry in the slice.
func latestVerdicts(verdicts []VerdictSignal) map[string]VerdictSignal {
	m := make(map[string]VerdictSignal, len(verdicts))
	for _, v := range verdicts {
		if prev, ok := m[v.LifecycleID]; ok && prev.CreateTime.After(v.CreateTime) {
			continue
		}
		m[v.LifecycleID] = v
	}
	return m
}
