// Package ir provides the serialisable representation shared by every other
// qtrace package: trace events, tracer configuration, the exported grid
// shape, and RFC 8785 canonical JSON for content hashing.
//
// This package contains types and pure functions only. All other internal
// packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere; coordinates, qubit ids and seq are integers
//   - All JSON and YAML tags use snake_case
//   - Logical clocks (seq) only, never wall-clock timestamps
package ir
