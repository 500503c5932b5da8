// Package circuit implements the gate grid: a sparse, auto-resizing
// two-dimensional matrix of gate placements with named rows.
//
// Columns are time steps, rows are qubits. Every mutation restores the grid
// invariants through Shrink:
//   - no column is entirely empty, unless the grid is the empty 1x1 grid
//   - height is one plus the highest row that is named or holds a gate
//   - every column is exactly height cells tall, and there are height names
//
// Placement never overwrites. Adding a gate to an occupied cell inserts a new
// column at that position and shifts the existing columns right.
//
// A Grid is not safe for concurrent use. The tracer owns each grid while its
// operation is on the call stack and freezes it once the operation ends.
package circuit
