package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/review-impact/impact-sim/sim"
)

// Fixture is a sim.DataSource over an in-memory snapshot, usually read from a
// YAML file. Every getter returns a copy, so callers cannot alter the fixture.
type Fixture struct {
	snap *sim.Snapshot
}

// NewFixture wraps an existing snapshot.
func NewFixture(snap *sim.Snapshot) *Fixture {
	return &Fixture{snap: snap.Clone()}
}

// LoadFixture reads a snapshot from a YAML file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var snap sim.Snapshot
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&snap); err != nil {
		return nil, fmt.Errorf("parsing fixture %s: %w", path, err)
	}
	return &Fixture{snap: &snap}, nil
}

// WriteFixture writes snap to path as YAML.
func WriteFixture(path string, snap *sim.Snapshot) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encoding fixture: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding fixture: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	return nil
}

// Close is a no-op.
func (f *Fixture) Close() error { return nil }

// ReadSnapshot returns a copy of the whole fixture in one pass.
func (f *Fixture) ReadSnapshot(context.Context) (*sim.Snapshot, error) {
	return f.snap.Clone(), nil
}

func (f *Fixture) GetAllQueues(context.Context) ([]sim.EntityQueue, error) {
	return cloneEach(f.snap.Queues, sim.EntityQueue.Clone), nil
}

func (f *Fixture) GetAllEnqueueRules(context.Context) ([]sim.EnqueueRule, error) {
	return cloneEach(f.snap.Rules, sim.EnqueueRule.Clone), nil
}

func (f *Fixture) GetAllVideos(context.Context) ([]sim.Video, error) {
	return cloneEach(f.snap.Videos, sim.Video.Clone), nil
}

func (f *Fixture) GetAllEnqueueSignals(context.Context) ([]sim.EnqueueSignal, error) {
	return slices.Clone(f.snap.EnqueueSignals), nil
}

func (f *Fixture) GetAllRoutingSignals(context.Context) ([]sim.RoutingSignal, error) {
	return slices.Clone(f.snap.RoutingSignals), nil
}

func (f *Fixture) GetAllVerdictSignals(context.Context) ([]sim.VerdictSignal, error) {
	return slices.Clone(f.snap.VerdictSignals), nil
}

// cloneEach deep-copies one entity slice, preserving nil.
func cloneEach[T any](in []T, clone func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = clone(v)
	}
	return out
}
