package tracer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/qtrace/internal/ir"
)

// Journal persists the events of a run. Implemented by *store.Store.
type Journal interface {
	WriteEvent(ctx context.Context, runID string, ev ir.Event) error
}

// Recorder is a Sink that journals every event before forwarding it.
//
// Each event is stamped with the next seq of the recorder's clock. An event
// that cannot be journaled is not forwarded; the write error aborts the run.
//
// The Listener callbacks carry no context, so the recorder holds the one
// it was created with for its journal writes.
type Recorder struct {
	ctx     context.Context
	journal Journal
	runID   string
	clock   Sequencer
	next    Sink
}

// NewRecorder creates a recorder writing into run runID and forwarding to
// next.
func NewRecorder(ctx context.Context, journal Journal, runID string, next Sink) *Recorder {
	return NewRecorderWithClock(ctx, journal, runID, next, NewClock())
}

// NewRecorderWithClock creates a recorder with a pre-configured clock.
// Used to append to a run that already holds events, or to stamp seqs
// from a resettable test clock.
func NewRecorderWithClock(ctx context.Context, journal Journal, runID string, next Sink, clock Sequencer) *Recorder {
	return &Recorder{
		ctx:     ctx,
		journal: journal,
		runID:   runID,
		clock:   clock,
		next:    next,
	}
}

// RunID returns the run the recorder writes into.
func (r *Recorder) RunID() string {
	return r.runID
}

// OnOperationStart implements Listener.
func (r *Recorder) OnOperationStart(name string, args []ir.Argument) error {
	ev := ir.Event{Kind: ir.EventStart, Operation: name, Args: cloneArgs(args)}
	if err := r.record(ev); err != nil {
		return err
	}
	return r.next.OnOperationStart(name, args)
}

// OnOperationEnd implements Listener.
func (r *Recorder) OnOperationEnd(name string) error {
	if err := r.record(ir.EndEvent(name)); err != nil {
		return err
	}
	return r.next.OnOperationEnd(name)
}

// OnAllocate implements Listener.
func (r *Recorder) OnAllocate(ids []int) error {
	if err := r.record(ir.AllocateEvent(slices.Clone(ids)...)); err != nil {
		return err
	}
	return r.next.OnAllocate(ids)
}

// Tag implements Tagger.
func (r *Recorder) Tag(label string) error {
	if err := r.record(ir.TagEvent(label)); err != nil {
		return err
	}
	return r.next.Tag(label)
}

func (r *Recorder) record(ev ir.Event) error {
	ev.Seq = r.clock.Next()
	if err := r.journal.WriteEvent(r.ctx, r.runID, ev); err != nil {
		slog.Error("journal write failed",
			"run_id", r.runID,
			"seq", ev.Seq,
			"kind", ev.Kind,
			"error", err,
		)
		return fmt.Errorf("record %s seq=%d: %w", ev.Kind, ev.Seq, err)
	}
	return nil
}

func cloneArgs(args []ir.Argument) []ir.Argument {
	out := make([]ir.Argument, len(args))
	for i, a := range args {
		out[i] = ir.Argument{Qubits: slices.Clone(a.Qubits), Array: a.Array}
	}
	return out
}
