// Package store provides the baseline data sources the simulator loads from: a
// YAML fixture file for local runs and tests, and PostgreSQL for shared history.
package store
