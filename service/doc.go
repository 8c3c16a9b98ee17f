// Package service exposes impact analysis to other systems.
//
// Change requests arrive either on a Redis list (see Listener) or over HTTP (see
// Server). Both paths run through the same Analyzer, which loads a fresh baseline
// from the configured data source for every request and records Prometheus
// metrics. Bad input never stops the service: it is answered with an
// error-annotated report.
package service
