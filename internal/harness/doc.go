// Package harness runs tracer scenarios as executable contract tests.
//
// A scenario is a YAML file holding an event script, an optional tracer
// configuration and assertions over the grids the script produces. Each run
// journals its events into a fresh in-memory store, replays the journal and
// checks that the replayed grids equal the live ones, so every scenario also
// exercises record and replay.
//
// # Scenario Format
//
//	name: bell_pair
//	description: "H then CNOT on a tagged register"
//	config: ../config/intrinsics.cue   # optional, relative to the scenario
//	run_id: test-run-bell              # optional, fixed for golden files
//	events:
//	  - {kind: start, operation: Test.Main}
//	  - {kind: allocate, qubits: [0, 1]}
//	  - {kind: tag, label: q}
//	  - {kind: start, operation: Microsoft.Quantum.Intrinsic.H, qubits: [0]}
//	  - {kind: end, operation: Microsoft.Quantum.Intrinsic.H}
//	  - {kind: end, operation: Test.Main}
//	assertions:
//	  - type: grid_size
//	    operation: Test.Main
//	    width: 1
//	    height: 1
//
// A tracer block may be given inline instead of a CUE file:
//
//	tracer:
//	  skip_intrinsics: true
//
// # Assertion Types
//
//   - grid_count: the operation owns exactly count grids
//   - grid_size: width and height of one invocation's grid
//   - row_names: row names top to bottom, "" for an unnamed row
//   - gate_at: the cell at (x, y) holds gate with arg_index and array
//   - cell_empty: the cell at (x, y) is empty
//   - gate_count: number of occupied cells in one invocation's grid
//   - operation_order: operations own grids in this order
//   - stale_ends: the run tolerated exactly count stale ends
//
// A scenario that expects the run to fail names the error code with
// expect_error, e.g. ALLOCATION_UNDERFLOW or OUT_OF_RANGE.
//
// # Deterministic Testing
//
// Scenarios run with a resettable logical clock (testutil.DeterministicClock)
// and a fixed run id (testutil.FixedRunID), so the journaled events and the
// golden snapshot are byte-identical across runs.
package harness
