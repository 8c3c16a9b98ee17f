// Package testutil provides shared test infrastructure for the impact simulator.
// It holds the golden impact scenarios and assertion helpers used by sim/ test packages.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/review-impact/impact-sim/sim"
)

// GoldenDataset represents the structure of testdata/golden_impact.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one baseline, one change request and the expected impact.
type GoldenTestCase struct {
	Name              string            `json:"name"`
	ReviewersPerQueue int               `json:"reviewers_per_queue"`
	ReviewMinutes     int               `json:"review_minutes"`
	Snapshot          sim.Snapshot      `json:"snapshot"`
	Request           sim.ChangeRequest `json:"request"`
	Expected          GoldenImpact      `json:"expected"`
}

// Config returns the simulation config of the case: defaults with the case's
// staffing overrides.
func (c GoldenTestCase) Config() sim.Config {
	cfg := sim.DefaultConfig()
	if c.ReviewersPerQueue > 0 {
		cfg.ReviewersPerQueue = c.ReviewersPerQueue
	}
	if c.ReviewMinutes > 0 {
		cfg.ReviewDuration = time.Duration(c.ReviewMinutes) * time.Minute
	}
	return cfg
}

// GoldenImpact is the expected report of a golden case.
type GoldenImpact struct {
	Status          string        `json:"status"`
	SimulatedEvents int           `json:"simulated_events"`
	SkippedVideos   int           `json:"skipped_videos"`
	Queues          []GoldenQueue `json:"queues"`
}

// GoldenQueue is the expected impact on one queue.
type GoldenQueue struct {
	QueueID             string  `json:"queue_id"`
	PreviousSLAMinutes  float64 `json:"previous_sla_min"`
	ProjectedSLAMinutes float64 `json:"projected_sla_min"`
	ProjectedVerdicts   int     `json:"projected_verdicts"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to repo root testdata/
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "golden_impact.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}
	if len(dataset.Tests) == 0 {
		t.Fatal("Golden dataset has no test cases")
	}
	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
