package tracer

import "github.com/roach88/qtrace/internal/ir"

// Listener receives operation lifecycle events from an execution engine.
//
// Calls are strictly sequential. OnOperationStart and OnOperationEnd nest
// LIFO. A returned error aborts the traced run; the engine must stop
// delivering events for it.
type Listener interface {
	// OnOperationStart is called before an operation body runs. args holds
	// the qubit-carrying arguments in declaration order.
	OnOperationStart(name string, args []ir.Argument) error

	// OnOperationEnd is called after the operation body returns.
	OnOperationEnd(name string) error

	// OnAllocate is called once per allocation with the fresh qubit ids.
	OnAllocate(ids []int) error
}

// Tagger receives the naming calls issued by instrumented program code.
// Each Tag names the oldest allocation not yet tagged.
type Tagger interface {
	Tag(label string) error
}

// Sink is a Listener that also accepts tag calls. *Tracer and *Recorder are
// sinks.
type Sink interface {
	Listener
	Tagger
}

// ScalarArgs converts qubit ids into one scalar argument per id, the shape of
// the common start(name, qubitIds) call.
func ScalarArgs(qubits ...int) []ir.Argument {
	args := make([]ir.Argument, len(qubits))
	for i, q := range qubits {
		args[i] = ir.Argument{Qubits: []int{q}}
	}
	return args
}
