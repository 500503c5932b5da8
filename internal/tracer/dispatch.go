package tracer

import (
	"fmt"

	"github.com/roach88/qtrace/internal/ir"
)

// Dispatch routes one event to the sink callback for its kind.
func Dispatch(s Sink, ev ir.Event) error {
	switch ev.Kind {
	case ir.EventStart:
		return s.OnOperationStart(ev.Operation, ev.Arguments())
	case ir.EventEnd:
		return s.OnOperationEnd(ev.Operation)
	case ir.EventAllocate:
		return s.OnAllocate(ev.Qubits)
	case ir.EventTag:
		return s.Tag(ev.Label)
	default:
		return NewUnknownEventError(string(ev.Kind))
	}
}

// Replay builds a fresh tracer from events, delivered in slice order.
//
// Replay stops at the first invalid event or tracer error and returns it
// together with the tracer as far as it got. A nil error does not mean the
// run is complete; call Result on the returned tracer for that.
//
// Replaying the same events with the same options always produces equal
// grids.
func Replay(events []ir.Event, opts ...Option) (*Tracer, error) {
	t := New(opts...)
	for i, ev := range events {
		if err := ev.Validate(); err != nil {
			return t, fmt.Errorf("event %d (seq=%d): %w", i, ev.Seq, err)
		}
		if err := Dispatch(t, ev); err != nil {
			return t, fmt.Errorf("event %d (seq=%d, kind=%s): %w", i, ev.Seq, ev.Kind, err)
		}
	}
	return t, nil
}
