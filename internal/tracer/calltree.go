package tracer

import (
	"iter"
	"slices"

	"github.com/roach88/qtrace/internal/ir"
)

// CallID indexes a call in its CallTree. Root calls have Parent NoCall.
type CallID int

// NoCall is the parent of root calls.
const NoCall CallID = -1

// Call is one recorded operation invocation.
type Call struct {
	ID        CallID
	Operation string
	Parent    CallID
	Children  []CallID
	Args      []ir.Argument

	// Depth is 0 for root calls.
	Depth int

	// GridIndex is the position of this call's grid in the operation's grid
	// list, or -1 when the operation was skipped.
	GridIndex int

	// Closed is set once the matching end arrived.
	Closed bool
}

// CallTree records every invocation of a run. Calls live in one slice and
// refer to each other by index; the tree holds no pointers between calls.
type CallTree struct {
	calls []Call
}

func (t *CallTree) open(operation string, parent CallID, args []ir.Argument, gridIndex int) CallID {
	id := CallID(len(t.calls))
	depth := 0
	if parent != NoCall {
		depth = t.calls[parent].Depth + 1
		t.calls[parent].Children = append(t.calls[parent].Children, id)
	}
	t.calls = append(t.calls, Call{
		ID:        id,
		Operation: operation,
		Parent:    parent,
		Args:      slices.Clone(args),
		Depth:     depth,
		GridIndex: gridIndex,
	})
	return id
}

func (t *CallTree) close(id CallID) {
	t.calls[id].Closed = true
}

// Len returns the number of recorded calls.
func (t *CallTree) Len() int {
	return len(t.calls)
}

// Get returns the call with the given id.
func (t *CallTree) Get(id CallID) (Call, bool) {
	if id < 0 || int(id) >= len(t.calls) {
		return Call{}, false
	}
	c := t.calls[id]
	c.Children = slices.Clone(c.Children)
	return c, true
}

// Roots returns the ids of calls without a parent, in invocation order.
func (t *CallTree) Roots() []CallID {
	var roots []CallID
	for _, c := range t.calls {
		if c.Parent == NoCall {
			roots = append(roots, c.ID)
		}
	}
	return roots
}

// Path returns the operation names from the root down to id.
func (t *CallTree) Path(id CallID) []string {
	var path []string
	for id != NoCall && int(id) < len(t.calls) {
		path = append(path, t.calls[id].Operation)
		id = t.calls[id].Parent
	}
	slices.Reverse(path)
	return path
}

// All yields every call in invocation order, which is also a depth-first
// pre-order walk of the tree.
func (t *CallTree) All() iter.Seq[Call] {
	return func(yield func(Call) bool) {
		for _, c := range t.calls {
			if !yield(c) {
				return
			}
		}
	}
}
