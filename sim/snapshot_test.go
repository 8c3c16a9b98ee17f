package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	snap     *Snapshot
	queueErr error
}

func (s *stubSource) GetAllQueues(context.Context) ([]EntityQueue, error) {
	return s.snap.Queues, s.queueErr
}
func (s *stubSource) GetAllEnqueueRules(context.Context) ([]EnqueueRule, error) {
	return s.snap.Rules, nil
}
func (s *stubSource) GetAllVideos(context.Context) ([]Video, error) { return s.snap.Videos, nil }
func (s *stubSource) GetAllEnqueueSignals(context.Context) ([]EnqueueSignal, error) {
	return s.snap.EnqueueSignals, nil
}
func (s *stubSource) GetAllRoutingSignals(context.Context) ([]RoutingSignal, error) {
	return s.snap.RoutingSignals, nil
}
func (s *stubSource) GetAllVerdictSignals(context.Context) ([]VerdictSignal, error) {
	return s.snap.VerdictSignals, nil
}
func (s *stubSource) Close() error { return nil }

func TestLoadSnapshot(t *testing.T) {
	want := twoQueueSnapshot(Video{ID: "V1", Features: Features{"f1"}})

	got, err := LoadSnapshot(context.Background(), &stubSource{snap: want})

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadSnapshot_WrapsSourceError(t *testing.T) {
	boom := errors.New("connection reset")

	_, err := LoadSnapshot(context.Background(), &stubSource{snap: &Snapshot{}, queueErr: boom})

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "load queues")
}

// readerSource answers ReadSnapshot while its getters fail.
type readerSource struct {
	stubSource
	readErr error
}

func (r *readerSource) ReadSnapshot(context.Context) (*Snapshot, error) {
	if r.readErr != nil {
		return nil, r.readErr
	}
	return r.snap.Clone(), nil
}

func TestLoadSnapshot_PrefersSnapshotReader(t *testing.T) {
	// GIVEN a source whose per-entity getters would fail
	want := twoQueueSnapshot(Video{ID: "V1", Features: Features{"f1"}})
	src := &readerSource{stubSource: stubSource{snap: want, queueErr: errors.New("getter called")}}

	// WHEN loaded
	got, err := LoadSnapshot(context.Background(), src)

	// THEN the whole snapshot came from ReadSnapshot
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// AND its failures are wrapped
	boom := errors.New("serialization failure")
	src.readErr = boom
	_, err = LoadSnapshot(context.Background(), src)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "load snapshot")
}

func TestSnapshot_Clone_DeepCopiesMutableEntities(t *testing.T) {
	s := twoQueueSnapshot(Video{ID: "V1", Features: Features{"f1"}})
	c := s.Clone()

	c.Rules[0].Features[0] = "changed"
	c.Videos[0].Features[0] = "changed"
	c.Videos[0].LifecycleID = "assigned"
	c.Queues[0].Name = "changed"
	c.EnqueueSignals[0].QueueMatch = "changed"

	assert.Equal(t, Features{"f1"}, s.Rules[0].Features)
	assert.Equal(t, Features{"f1"}, s.Videos[0].Features)
	assert.Empty(t, s.Videos[0].LifecycleID)
	assert.Equal(t, "General", s.Queues[0].Name)
	assert.Equal(t, "Q1", s.EnqueueSignals[0].QueueMatch)
}

func TestLatestVerdicts_KeepsMostRecent(t *testing.T) {
	m := latestVerdicts([]VerdictSignal{
		{LifecycleID: "a", CreateTime: at(10), QueueID: "Q2"},
		{LifecycleID: "a", CreateTime: at(5), QueueID: "Q1"},
		{LifecycleID: "b", CreateTime: at(1), QueueID: "Q1"},
	})
	assert.Equal(t, "Q2", m["a"].QueueID)
	assert.Equal(t, "Q1", m["b"].QueueID)
}
