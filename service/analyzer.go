package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/review-impact/impact-sim/sim"
	"github.com/review-impact/impact-sim/sim/impact"
)

// Analyzer answers change requests against a data source.
// It is safe for concurrent use when the data source is.
type Analyzer struct {
	ds      sim.DataSource
	cfg     sim.Config
	metrics *Metrics
}

// NewAnalyzer returns an Analyzer. metrics may be nil.
func NewAnalyzer(ds sim.DataSource, cfg sim.Config, metrics *Metrics) *Analyzer {
	return &Analyzer{ds: ds, cfg: cfg, metrics: metrics}
}

// Analyze evaluates req against a freshly loaded baseline.
func (a *Analyzer) Analyze(ctx context.Context, source, requestID string, req sim.ChangeRequest) impact.Report {
	start := time.Now()
	report := impact.Analyze(ctx, a.ds, req, a.cfg)
	report.RequestID = requestID
	a.finish(source, report, start)
	return report
}

// Reject produces the report for a request that could not be decoded.
func (a *Analyzer) Reject(source, requestID string, err error) impact.Report {
	report := impact.ErrorReport(sim.ChangeRequest{}, impact.StatusInvalidRequest, err)
	report.RequestID = requestID
	a.finish(source, report, time.Now())
	return report
}

func (a *Analyzer) finish(source string, report impact.Report, start time.Time) {
	elapsed := time.Since(start)
	if a.metrics != nil {
		a.metrics.observe(source, report, elapsed)
	}
	logrus.Infof("Request %s via %s: %s in %s", report.RequestID, source, report.Status, elapsed.Round(time.Millisecond))
}
