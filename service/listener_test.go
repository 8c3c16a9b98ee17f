package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/review-impact/impact-sim/sim/impact"
)

func fastConfig() ListenerConfig {
	return ListenerConfig{PollTimeout: time.Second, RetryDelay: 10 * time.Millisecond}
}

func TestListener_ProcessOne_PublishesReport(t *testing.T) {
	// GIVEN a submitted change request
	ctx := context.Background()
	_, client := newTestRedis(t)
	metrics := NewMetrics()
	l := NewListener(client, newTestAnalyzer(metrics), metrics, fastConfig())
	id, err := Submit(ctx, client, "", addRule("Q2", "f9"))
	require.NoError(t, err)

	// WHEN the listener handles one message
	handled, err := l.ProcessOne(ctx)

	// THEN one report with the same id is published on the report list
	require.NoError(t, err)
	assert.True(t, handled)
	env, err := AwaitReport(ctx, client, "", time.Second)
	require.NoError(t, err)
	assert.Equal(t, id, env.RequestID)
	assert.Equal(t, id, env.Report.RequestID)
	assert.Equal(t, impact.StatusOK, env.Report.Status)
	assert.Equal(t, "CR-7", env.Report.Request.IssueID)
	q1, ok := env.Report.Queue("Q1")
	require.True(t, ok)
	assert.Equal(t, 30.0, q1.PreviousSLAMinutes)
	assert.Equal(t, 7.5, q1.ProjectedSLAMinutes)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Requests.WithLabelValues(SourceBus)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Reports.WithLabelValues(string(impact.StatusOK))))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.SimulatedEvents))
}

func TestListener_ProcessOne_MalformedPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantID  string // empty: a generated id is expected
	}{
		{name: "not json", payload: "{not json"},
		{name: "missing request", payload: `{"request_id":"req-1"}`, wantID: "req-1"},
		{name: "request of wrong type", payload: `{"request_id":"req-2","request":"add a rule"}`, wantID: "req-2"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// GIVEN a payload that is not a valid envelope
			ctx := context.Background()
			mr, client := newTestRedis(t)
			l := NewListener(client, newTestAnalyzer(nil), nil, fastConfig())
			_, err := mr.Lpush(DefaultRequestList, tc.payload)
			require.NoError(t, err)

			// WHEN it is processed
			handled, err := l.ProcessOne(ctx)

			// THEN an invalid_request report is published instead of failing
			require.NoError(t, err)
			assert.True(t, handled)
			env, err := AwaitReport(ctx, client, "", time.Second)
			require.NoError(t, err)
			assert.Equal(t, impact.StatusInvalidRequest, env.Report.Status)
			assert.NotEmpty(t, env.Report.Error)
			assert.NotNil(t, env.Report.Queues)
			if tc.wantID != "" {
				assert.Equal(t, tc.wantID, env.RequestID)
			} else {
				assert.NotEmpty(t, env.RequestID)
			}
		})
	}
}

func TestListener_ProcessOne_InvalidChangeRequest(t *testing.T) {
	// GIVEN a well-formed envelope carrying a request with no variant set
	ctx := context.Background()
	mr, client := newTestRedis(t)
	l := NewListener(client, newTestAnalyzer(nil), nil, fastConfig())
	_, err := mr.Lpush(DefaultRequestList, `{"request_id":"req-3","request":{"issue_id":"CR-9"}}`)
	require.NoError(t, err)

	// WHEN it is processed
	_, err = l.ProcessOne(ctx)
	require.NoError(t, err)

	// THEN the report echoes the request and explains the rejection
	env, err := AwaitReport(ctx, client, "", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "req-3", env.RequestID)
	assert.Equal(t, impact.StatusInvalidRequest, env.Report.Status)
	assert.Equal(t, "CR-9", env.Report.Request.IssueID)
}

func TestListener_ProcessOne_EmptyList(t *testing.T) {
	// GIVEN no pending requests
	_, client := newTestRedis(t)
	l := NewListener(client, newTestAnalyzer(nil), nil, fastConfig())

	// WHEN the listener polls
	handled, err := l.ProcessOne(context.Background())

	// THEN it times out quietly
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestListener_ProcessOne_RedisDown(t *testing.T) {
	// GIVEN a Redis server that went away
	mr, client := newTestRedis(t)
	l := NewListener(client, newTestAnalyzer(nil), nil, fastConfig())
	mr.Close()

	// WHEN the listener polls
	handled, err := l.ProcessOne(context.Background())

	// THEN the failure is returned to the caller
	assert.Error(t, err)
	assert.False(t, handled)
}

func TestListener_Run_AnswersUntilCancelled(t *testing.T) {
	// GIVEN a running listener
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, client := newTestRedis(t)
	l := NewListener(client, newTestAnalyzer(nil), nil, fastConfig())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	// WHEN two requests are submitted
	first, err := Submit(ctx, client, "", addRule("Q2", "f9"))
	require.NoError(t, err)
	second, err := Submit(ctx, client, "", addRule("Q2", "f2"))
	require.NoError(t, err)

	// THEN both are answered in order
	for _, want := range []string{first, second} {
		env, err := AwaitReport(ctx, client, "", 5*time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, env.RequestID)
		assert.Equal(t, impact.StatusOK, env.Report.Status)
	}

	// AND cancelling stops the loop without error
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop after cancellation")
	}
}

func TestSubmit_EnvelopeShape(t *testing.T) {
	// GIVEN a change request
	ctx := context.Background()
	mr, client := newTestRedis(t)

	// WHEN it is submitted to a custom list
	id, err := Submit(ctx, client, "custom:requests", addRule("Q1", "f1"))
	require.NoError(t, err)

	// THEN the list holds one envelope with the id and the request
	items, err := mr.List("custom:requests")
	require.NoError(t, err)
	require.Len(t, items, 1)
	var env RequestEnvelope
	require.NoError(t, json.Unmarshal([]byte(items[0]), &env))
	assert.Equal(t, id, env.RequestID)
	require.NotNil(t, env.Request.EnqueueRules)
	assert.Equal(t, "Q1", env.Request.EnqueueRules.Changes[0].QueueID)
}

func TestListener_ProcessOne_RepliesOnPrivateLists(t *testing.T) {
	// GIVEN two clients each waiting on their own reply list
	ctx := context.Background()
	mr, client := newTestRedis(t)
	l := NewListener(client, newTestAnalyzer(nil), nil, fastConfig())
	otherID, otherReply, err := SubmitForReply(ctx, client, "", "", addRule("Q2", "f9"))
	require.NoError(t, err)
	mineID, mineReply, err := SubmitForReply(ctx, client, "", "", addRule("Q2", "f2"))
	require.NoError(t, err)
	assert.Equal(t, ReplyList(DefaultReportList, mineID), mineReply)

	// WHEN both requests are answered
	for i := 0; i < 2; i++ {
		handled, err := l.ProcessOne(ctx)
		require.NoError(t, err)
		require.True(t, handled)
	}

	// THEN reading my report leaves the other client's report in place
	env, err := AwaitReport(ctx, client, mineReply, time.Second)
	require.NoError(t, err)
	assert.Equal(t, mineID, env.RequestID)

	pending, err := mr.List(otherReply)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	var other ReportEnvelope
	require.NoError(t, json.Unmarshal([]byte(pending[0]), &other))
	assert.Equal(t, otherID, other.RequestID)

	// AND nothing went to the shared list, and unread replies expire
	assert.False(t, mr.Exists(DefaultReportList))
	assert.Positive(t, mr.TTL(otherReply))
}

func TestListener_ProcessOne_KeepsRequestUntilPublished(t *testing.T) {
	// GIVEN a request whose reply list cannot take a report
	ctx := context.Background()
	mr, client := newTestRedis(t)
	l := NewListener(client, newTestAnalyzer(nil), nil, fastConfig())
	_, replyList, err := SubmitForReply(ctx, client, "", "", addRule("Q2", "f9"))
	require.NoError(t, err)
	require.NoError(t, mr.Set(replyList, "not a list"))

	// WHEN the listener takes it
	handled, err := l.ProcessOne(ctx)

	// THEN the failure is returned and the request waits on the processing list
	require.Error(t, err)
	assert.True(t, handled)
	assert.False(t, mr.Exists(DefaultRequestList))
	processing, err := mr.List(DefaultRequestList + processingSuffix)
	require.NoError(t, err)
	assert.Len(t, processing, 1)

	// AND once requeued it is answered and acknowledged
	n, err := l.Requeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	mr.Del(replyList)
	_, err = l.ProcessOne(ctx)
	require.NoError(t, err)
	assert.False(t, mr.Exists(DefaultRequestList+processingSuffix))
	env, err := AwaitReport(ctx, client, replyList, time.Second)
	require.NoError(t, err)
	assert.Equal(t, impact.StatusOK, env.Report.Status)
}

func TestListener_Run_RequeuesUnansweredRequests(t *testing.T) {
	// GIVEN a request left on the processing list by a previous listener
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mr, client := newTestRedis(t)
	_, err := mr.Lpush(DefaultRequestList+processingSuffix, `{"request_id":"orphan","request":{"queue_info":{"method":"Add","queue":"Q1"}}}`)
	require.NoError(t, err)
	l := NewListener(client, newTestAnalyzer(nil), nil, fastConfig())

	// WHEN the listener starts
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	// THEN the orphaned request is answered
	env, err := AwaitReport(ctx, client, "", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "orphan", env.RequestID)
	assert.Equal(t, impact.StatusOK, env.Report.Status)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop after cancellation")
	}
}
