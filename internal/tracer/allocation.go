package tracer

import (
	"fmt"
	"maps"
	"slices"
)

// AllocationTracker pairs allocation events with tag calls and remembers the
// resulting qubit names.
//
// Allocations queue in arrival order; each Tag consumes exactly the oldest
// pending entry. A single-id entry is named label, a multi-id entry is named
// label[0], label[1], ... in id order of the entry.
type AllocationTracker struct {
	pending [][]int
	names   map[int]string
}

// NewAllocationTracker creates an empty tracker.
func NewAllocationTracker() *AllocationTracker {
	return &AllocationTracker{
		pending: make([][]int, 0, 8),
		names:   make(map[int]string),
	}
}

// Allocate enqueues ids as one entry. The slice is copied.
func (a *AllocationTracker) Allocate(ids []int) {
	a.pending = append(a.pending, slices.Clone(ids))
}

// Tag dequeues the oldest pending entry, names its ids after label and
// returns them. An empty queue yields an ErrCodeAllocationUnderflow error and
// leaves the names untouched.
func (a *AllocationTracker) Tag(label string) ([]int, error) {
	if len(a.pending) == 0 {
		return nil, NewUnderflowError(label)
	}

	ids := a.pending[0]
	// Clear the slot so the backing array does not pin the entry.
	a.pending[0] = nil
	if len(a.pending) == 1 {
		a.pending = a.pending[:0]
	} else {
		a.pending = a.pending[1:]
	}

	if len(ids) == 1 {
		a.names[ids[0]] = label
		return ids, nil
	}
	for i, id := range ids {
		a.names[id] = fmt.Sprintf("%s[%d]", label, i)
	}
	return ids, nil
}

// Name returns the name assigned to qubit id.
func (a *AllocationTracker) Name(id int) (string, bool) {
	name, ok := a.names[id]
	return name, ok
}

// Names returns a copy of every assigned name.
func (a *AllocationTracker) Names() map[int]string {
	return maps.Clone(a.names)
}

// Pending returns the number of allocations still awaiting a tag.
func (a *AllocationTracker) Pending() int {
	return len(a.pending)
}
