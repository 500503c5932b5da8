// Package tracer builds gate grids from the lifecycle events of a traced
// quantum program.
//
// An execution engine drives a Tracer through the Listener interface:
// OnOperationStart and OnOperationEnd nest strictly LIFO, OnAllocate
// announces a batch of fresh qubit ids. Instrumented program code names
// those batches through the Tagger interface, pairing each Tag with the
// oldest untagged allocation (strict FIFO).
//
// SINGLE-THREADED MODEL:
//
// One engine drives one Tracer for the lifetime of one run. Events are
// delivered sequentially and never overlap, so the Tracer holds no locks.
// Grids returned by Grids are safe to read once Result reports the run
// complete.
//
// PLACEMENT:
//
// Every start places one cell per touched qubit in the nearest enclosing
// open grid, all in one new column at the grid's width. Operations matching the skip list are placed but
// never get a grid of their own; gates they invoke land in the enclosing
// grid.
//
// FINALISATION:
//
// At the matching end, unnamed gate-free rows are dropped, the remaining
// rows are sorted by name and the grid is frozen.
//
// Events can be journaled with Recorder and rebuilt later with Replay;
// replaying the same events always produces equal grids.
package tracer
