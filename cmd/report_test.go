package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/review-impact/impact-sim/sim"
	"github.com/review-impact/impact-sim/sim/impact"
	"github.com/review-impact/impact-sim/sim/trace"
)

func sampleReport() impact.Report {
	return impact.Report{
		Request: sim.ChangeRequest{IssueID: "CR-3"},
		Status:  impact.StatusOK,
		Change:  sim.ChangeResult{Kind: sim.KindEnqueueRules, RulesAdded: 1},
		Queues: []impact.QueueImpact{
			{QueueID: "Q1", QueueName: "General", DesiredSLAMinutes: 10, PreviousSLAMinutes: 30, ProjectedSLAMinutes: 7.5, PreviousVerdicts: 2, ProjectedVerdicts: 2},
			{QueueID: "Q2", QueueName: "Specialist", DesiredSLAMinutes: 60},
		},
		SimulatedEvents: 3,
		Warnings:        []string{"remove matched no enqueue rule with features [f9]"},
		Trace:           &trace.TraceSummary{TotalDecisions: 3, Verdicts: 2, Reschedules: 1, RoutesBySource: map[string]int{"Q2": 1}},
	}
}

func TestRenderReport_Table(t *testing.T) {
	out := renderReport(sampleReport())

	assert.Contains(t, out, "CR-3")
	assert.Contains(t, out, "General")
	assert.Contains(t, out, "30.0")
	assert.Contains(t, out, "7.5")
	assert.Contains(t, out, "-22.5")
	assert.Contains(t, out, "features [f9]")
	assert.Contains(t, out, "routed out of Q2: 1")
}

func TestRenderReport_Failure(t *testing.T) {
	r := impact.ErrorReport(sim.ChangeRequest{IssueID: "CR-4"}, impact.StatusLoadFailed, errors.New("database unreachable"))

	out := renderReport(r)

	assert.Contains(t, out, "load_failed")
	assert.Contains(t, out, "database unreachable")
	assert.NotContains(t, out, "QUEUE")
}

func TestWriteReport_JSON(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, writeReport(&buf, sampleReport(), "json"))

	var decoded impact.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, impact.StatusOK, decoded.Status)
	require.Len(t, decoded.Queues, 2)
	assert.Equal(t, 7.5, decoded.Queues[0].ProjectedSLAMinutes)
}

func TestWriteReport_UnknownFormat(t *testing.T) {
	assert.Error(t, writeReport(&bytes.Buffer{}, sampleReport(), "xml"))
}
