// Package sim provides the discrete-event impact simulator for the review pipeline.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - signal.go: the Signal sum type (Enqueue, Routing, Verdict) that every event carries
//   - event.go: the EventQueue that orders pending signals by time, then insertion sequence
//   - processor.go: the per-event state machine (reschedule, route, or settle with a verdict)
//   - simulator.go: snapshot cloning, change application, seeding and the event loop
//
// # Architecture
//
// The sim package owns the entity model and the algorithms; collaborators live in
// sibling packages:
//   - sim/impact/: baseline vs projected SLA per queue for one change request
//   - sim/trace/: optional decision trace of processor transitions
//   - sim/workload/: deterministic synthetic historical traffic
//   - store/: DataSource implementations (YAML fixture, PostgreSQL)
//   - service/: Redis listener, HTTP API and metrics around impact analysis
//
// # Key Interfaces
//
//   - DataSource: read-only access to queues, rules, videos and historical signals
//   - Signal: sealed sum type, exhaustively matched with a type switch
//
// A simulation run is single-threaded and run-to-completion. Every run works on its
// own Snapshot clone, so runs for different requests never share mutable state.
package sim
