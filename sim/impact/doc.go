// Package impact turns one simulation run into a per-queue report: the SLA each
// queue achieved historically next to the SLA the simulation projects under a
// proposed change.
//
// Failures never escape as errors. Evaluate and Analyze always return a Report,
// and a failed run is a Report with a non-ok Status, an Error message and no
// queue data.
package impact
