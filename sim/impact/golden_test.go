package impact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/review-impact/impact-sim/sim/internal/testutil"
)

// TestEvaluate_GoldenDataset pins the projected SLA of hand-checked scenarios.
func TestEvaluate_GoldenDataset(t *testing.T) {
	dataset := testutil.LoadGoldenDataset(t)

	for _, tc := range dataset.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			// GIVEN the case's baseline and staffing
			base := tc.Snapshot

			// WHEN its change request is evaluated
			report := Evaluate(&base, tc.Request, tc.Config())

			// THEN status, counters and per-queue SLA match the golden values
			require.Equal(t, Status(tc.Expected.Status), report.Status, report.Error)
			assert.Equal(t, tc.Expected.SimulatedEvents, report.SimulatedEvents, "simulated events")
			assert.Equal(t, tc.Expected.SkippedVideos, report.SkippedVideos, "skipped videos")
			require.Len(t, report.Queues, len(tc.Expected.Queues))
			for _, want := range tc.Expected.Queues {
				got, ok := report.Queue(want.QueueID)
				require.True(t, ok, "queue %s missing", want.QueueID)
				testutil.AssertFloat64Equal(t, want.QueueID+" previous SLA", want.PreviousSLAMinutes, got.PreviousSLAMinutes, 1e-9)
				testutil.AssertFloat64Equal(t, want.QueueID+" projected SLA", want.ProjectedSLAMinutes, got.ProjectedSLAMinutes, 1e-9)
				assert.Equal(t, want.ProjectedVerdicts, got.ProjectedVerdicts, "%s projected verdicts", want.QueueID)
			}
		})
	}
}
