package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/review-impact/impact-sim/sim"
	"github.com/review-impact/impact-sim/sim/impact"
)

const (
	DefaultRequestList = "impact:requests"
	DefaultReportList  = "impact:reports"

	// processingSuffix names the list holding requests taken but not yet answered.
	processingSuffix = ":processing"
	// replyTTL bounds how long an unread private reply list lives.
	replyTTL = time.Hour
)

// RequestEnvelope is the message pushed onto the request list. When ReplyTo is set
// the report goes to that list instead of the shared report list.
type RequestEnvelope struct {
	RequestID string            `json:"request_id"`
	ReplyTo   string            `json:"reply_to,omitempty"`
	Request   sim.ChangeRequest `json:"request"`
}

// ReplyList is the private list a report for requestID is published on.
func ReplyList(reportList, requestID string) string {
	if reportList == "" {
		reportList = DefaultReportList
	}
	return reportList + ":" + requestID
}

// ReportEnvelope is the message pushed onto the report list.
type ReportEnvelope struct {
	RequestID string        `json:"request_id"`
	Report    impact.Report `json:"report"`
}

// ListenerConfig names the Redis lists a Listener works on. ProcessingList holds
// taken requests until their report is published and defaults to RequestList + ":processing".
type ListenerConfig struct {
	RequestList    string        `yaml:"request_list"`
	ReportList     string        `yaml:"report_list"`
	ProcessingList string        `yaml:"processing_list"`
	PollTimeout    time.Duration `yaml:"poll_timeout"` // BRPOPLPUSH timeout; go-redis rounds it up to 1s
	RetryDelay     time.Duration `yaml:"retry_delay"`  // pause after a Redis failure
}

// DefaultListenerConfig returns the lists and timeouts used when none are configured.
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		RequestList: DefaultRequestList,
		ReportList:  DefaultReportList,
		PollTimeout: 5 * time.Second,
		RetryDelay:  time.Second,
	}
}

// Listener takes change requests from a Redis list, analyzes them and pushes one
// report per request onto the report list, or the request's own reply list.
//
// Producers LPUSH and the listener pops from the right, so requests are served in
// arrival order. A taken request sits on the processing list until its report is
// published; requests left there by a crashed or failed listener are requeued.
// Listeners sharing a request list each need their own processing list.
type Listener struct {
	client   *redis.Client
	analyzer *Analyzer
	metrics  *Metrics
	cfg      ListenerConfig
}

// NewListener builds a Listener. Empty config fields take their defaults.
func NewListener(client *redis.Client, analyzer *Analyzer, metrics *Metrics, cfg ListenerConfig) *Listener {
	def := DefaultListenerConfig()
	if cfg.RequestList == "" {
		cfg.RequestList = def.RequestList
	}
	if cfg.ReportList == "" {
		cfg.ReportList = def.ReportList
	}
	if cfg.ProcessingList == "" {
		cfg.ProcessingList = cfg.RequestList + processingSuffix
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = def.PollTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	return &Listener{client: client, analyzer: analyzer, metrics: metrics, cfg: cfg}
}

// Run processes requests until ctx is cancelled. Redis failures are logged and
// retried; Run only returns on cancellation.
func (l *Listener) Run(ctx context.Context) error {
	logrus.Infof("Listening for change requests on %s, reporting to %s", l.cfg.RequestList, l.cfg.ReportList)
	requeue := true
	for {
		if ctx.Err() != nil {
			return nil
		}
		var err error
		if requeue {
			var n int
			if n, err = l.Requeue(ctx); err == nil {
				requeue = false
				if n > 0 {
					logrus.Warnf("Requeued %d unanswered requests from %s", n, l.cfg.ProcessingList)
				}
			}
		}
		if err == nil {
			_, err = l.ProcessOne(ctx)
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		if l.metrics != nil {
			l.metrics.BusErrors.Inc()
		}
		logrus.Errorf("Request bus: %v", err)
		requeue = true
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.cfg.RetryDelay):
		}
	}
}

// ProcessOne waits up to the poll timeout for one request and answers it.
// It reports whether a request was taken. The request stays on the processing list
// when the report cannot be published.
func (l *Listener) ProcessOne(ctx context.Context) (bool, error) {
	payload, err := l.client.BRPopLPush(ctx, l.cfg.RequestList, l.cfg.ProcessingList, l.cfg.PollTimeout).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("take request: %w", err)
	}

	env, replyTo := l.handle(ctx, payload)
	if replyTo == "" {
		replyTo = l.cfg.ReportList
	}
	if err := l.publish(ctx, replyTo, env); err != nil {
		return true, err
	}
	if err := l.client.LRem(ctx, l.cfg.ProcessingList, 1, payload).Err(); err != nil {
		return true, fmt.Errorf("acknowledge request %s: %w", env.RequestID, err)
	}
	return true, nil
}

// Requeue moves every request left on the processing list back to the front of the
// request list, oldest first, and returns how many it moved.
func (l *Listener) Requeue(ctx context.Context) (int, error) {
	n := 0
	for {
		err := l.client.LMove(ctx, l.cfg.ProcessingList, l.cfg.RequestList, "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("requeue from %s: %w", l.cfg.ProcessingList, err)
		}
		n++
	}
}

// handle decodes one payload and analyzes it. A payload that is not a valid
// envelope still yields a report, carrying whatever request id could be read.
// The second result is the envelope's reply list, if any.
func (l *Listener) handle(ctx context.Context, payload string) (ReportEnvelope, string) {
	var raw struct {
		RequestID string          `json:"request_id"`
		ReplyTo   string          `json:"reply_to"`
		Request   json.RawMessage `json:"request"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		id := uuid.NewString()
		logrus.Warnf("Malformed request envelope, answering as %s: %v", id, err)
		return ReportEnvelope{RequestID: id, Report: l.analyzer.Reject(SourceBus, id, fmt.Errorf("decode envelope: %w", err))}, ""
	}
	if raw.RequestID == "" {
		raw.RequestID = uuid.NewString()
	}

	var req sim.ChangeRequest
	if len(raw.Request) == 0 {
		err := errors.New("envelope carries no request")
		return ReportEnvelope{RequestID: raw.RequestID, Report: l.analyzer.Reject(SourceBus, raw.RequestID, err)}, raw.ReplyTo
	}
	if err := json.Unmarshal(raw.Request, &req); err != nil {
		logrus.Warnf("Malformed change request %s: %v", raw.RequestID, err)
		return ReportEnvelope{RequestID: raw.RequestID, Report: l.analyzer.Reject(SourceBus, raw.RequestID, fmt.Errorf("decode request: %w", err))}, raw.ReplyTo
	}
	return ReportEnvelope{RequestID: raw.RequestID, Report: l.analyzer.Analyze(ctx, SourceBus, raw.RequestID, req)}, raw.ReplyTo
}

func (l *Listener) publish(ctx context.Context, list string, env ReportEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", env.RequestID, err)
	}
	pipe := l.client.TxPipeline()
	pipe.RPush(ctx, list, data)
	if list != l.cfg.ReportList {
		pipe.Expire(ctx, list, replyTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push report %s: %w", env.RequestID, err)
	}
	logrus.Debugf("Published report %s (%s) to %s", env.RequestID, env.Report.Status, list)
	return nil
}

// Submit pushes req onto list under a new request id and returns the id. Its report
// is published on the listener's shared report list.
func Submit(ctx context.Context, client *redis.Client, list string, req sim.ChangeRequest) (string, error) {
	env := RequestEnvelope{RequestID: uuid.NewString(), Request: req}
	return env.RequestID, push(ctx, client, list, env)
}

// SubmitForReply pushes req like Submit but asks for the report on a private list
// derived from reportList. It returns the request id and that list.
func SubmitForReply(ctx context.Context, client *redis.Client, list, reportList string, req sim.ChangeRequest) (string, string, error) {
	id := uuid.NewString()
	env := RequestEnvelope{RequestID: id, ReplyTo: ReplyList(reportList, id), Request: req}
	return id, env.ReplyTo, push(ctx, client, list, env)
}

func push(ctx context.Context, client *redis.Client, list string, env RequestEnvelope) error {
	if list == "" {
		list = DefaultRequestList
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if err := client.LPush(ctx, list, data).Err(); err != nil {
		return fmt.Errorf("push request: %w", err)
	}
	return nil
}

// AwaitReport pops the next report from list, waiting up to timeout.
func AwaitReport(ctx context.Context, client *redis.Client, list string, timeout time.Duration) (ReportEnvelope, error) {
	if list == "" {
		list = DefaultReportList
	}
	res, err := client.BLPop(ctx, timeout, list).Result()
	if err != nil {
		return ReportEnvelope{}, fmt.Errorf("pop report: %w", err)
	}
	var env ReportEnvelope
	if err := json.Unmarshal([]byte(res[1]), &env); err != nil {
		return ReportEnvelope{}, fmt.Errorf("decode report: %w", err)
	}
	return env, nil
}
