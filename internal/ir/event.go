package ir

import (
	"fmt"
)

// EventKind distinguishes the four lifecycle events a traced run produces.
type EventKind string

const (
	// EventStart marks an operation invocation beginning.
	EventStart EventKind = "start"
	// EventEnd marks the matching operation invocation returning.
	EventEnd EventKind = "end"
	// EventAllocate marks a batch of qubits being allocated.
	EventAllocate EventKind = "allocate"
	// EventTag is issued by instrumented program code to name the oldest
	// untagged allocation.
	EventTag EventKind = "tag"
)

// Argument is one qubit-carrying argument of an operation invocation.
// Array marks a register-typed argument; its cells are exempt from
// cascading deletion.
type Argument struct {
	Qubits []int `json:"qubits" yaml:"qubits"`
	Array  bool  `json:"array,omitempty" yaml:"array,omitempty"`
}

// Event is one entry of a traced run, as delivered by the execution engine
// or recorded in the journal.
//
// Only the fields relevant to Kind are set:
//   - start: Operation plus Qubits (one scalar argument per id) or Args
//   - end: Operation
//   - allocate: Qubits
//   - tag: Label
type Event struct {
	Seq       int64      `json:"seq,omitempty" yaml:"seq,omitempty"`
	Kind      EventKind  `json:"kind" yaml:"kind"`
	Operation string     `json:"operation,omitempty" yaml:"operation,omitempty"`
	Qubits    []int      `json:"qubits,omitempty" yaml:"qubits,omitempty"`
	Args      []Argument `json:"args,omitempty" yaml:"args,omitempty"`
	Label     string     `json:"label,omitempty" yaml:"label,omitempty"`
}

// Arguments returns the qubit arguments of a start event. Qubits is shorthand
// for one scalar argument per id; when Args is set it takes precedence.
func (e Event) Arguments() []Argument {
	if len(e.Args) > 0 {
		return e.Args
	}
	args := make([]Argument, len(e.Qubits))
	for i, q := range e.Qubits {
		args[i] = Argument{Qubits: []int{q}}
	}
	return args
}

// Validate checks that the fields required by the event kind are present.
func (e Event) Validate() error {
	switch e.Kind {
	case EventStart:
		if e.Operation == "" {
			return fmt.Errorf("start event requires operation")
		}
		if len(e.Qubits) > 0 && len(e.Args) > 0 {
			return fmt.Errorf("start event %s: qubits and args are mutually exclusive", e.Operation)
		}
	case EventEnd:
		if e.Operation == "" {
			return fmt.Errorf("end event requires operation")
		}
	case EventAllocate:
		for _, q := range e.Qubits {
			if q < 0 {
				return fmt.Errorf("allocate event: negative qubit id %d", q)
			}
		}
	case EventTag:
		if e.Label == "" {
			return fmt.Errorf("tag event requires label")
		}
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return nil
}

// CanonicalMap converts the event to a map for canonical JSON serialization.
// Unset fields are omitted so the encoding does not depend on the shorthand
// used to build the event.
func (e Event) CanonicalMap() map[string]any {
	m := map[string]any{
		"kind": string(e.Kind),
		"seq":  e.Seq,
	}
	if e.Operation != "" {
		m["operation"] = e.Operation
	}
	if e.Label != "" {
		m["label"] = e.Label
	}
	switch e.Kind {
	case EventStart:
		args := make([]any, 0, len(e.Arguments()))
		for _, a := range e.Arguments() {
			arg := map[string]any{"qubits": a.Qubits}
			if a.Array {
				arg["array"] = true
			}
			args = append(args, arg)
		}
		m["args"] = args
	case EventAllocate:
		qubits := e.Qubits
		if qubits == nil {
			qubits = []int{}
		}
		m["qubits"] = qubits
	}
	return m
}

// StartEvent builds a start event with one scalar argument per qubit id.
func StartEvent(operation string, qubits ...int) Event {
	return Event{Kind: EventStart, Operation: operation, Qubits: qubits}
}

// EndEvent builds an end event.
func EndEvent(operation string) Event {
	return Event{Kind: EventEnd, Operation: operation}
}

// AllocateEvent builds an allocate event.
func AllocateEvent(qubits ...int) Event {
	return Event{Kind: EventAllocate, Qubits: qubits}
}

// TagEvent builds a tag event.
func TagEvent(label string) Event {
	return Event{Kind: EventTag, Label: label}
}
