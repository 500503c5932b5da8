// Package store provides the SQLite-backed event journal for traced runs.
//
// The journal is append-only:
//   - runs: one row per traced run, with the tracer configuration it used
//     and a completion flag set once every frame closed
//   - events: the lifecycle events of a run, keyed by (run_id, seq)
//
// # Ordering
//
// Events are read back ORDER BY seq ASC. seq comes from the recorder's
// logical clock, so replay never depends on wall-clock time.
//
// # Integrity
//
// Each event is stored as canonical JSON next to its content hash
// (ir.EventHash). Reads recompute the hash and reject rows that do not
// match.
//
// Produced grids are never stored; they are rebuilt from the events.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Events must belong to a known run
package store
