package circuit

import (
	"fmt"
	"strings"
)

// Gate identifies one placed instruction. A multi-qubit operation occupies
// one cell per qubit argument; the cells share Name and Namespace and differ
// in ArgIndex.
//
// Gate is a value type; the grid stores copies.
type Gate struct {
	Name      string
	Namespace string
	ArgIndex  int

	// IsArgArray marks a cell that belongs to a register-typed argument.
	// Such cells are never removed by cascade.
	IsArgArray bool
}

// NewGate builds a gate from a qualified operation name, splitting it at the
// last dot: "Microsoft.Quantum.Intrinsic.H" has namespace
// "Microsoft.Quantum.Intrinsic" and name "H". A name without a dot has an
// empty namespace.
func NewGate(qualified string, argIndex int, isArgArray bool) Gate {
	ns, name := "", qualified
	if i := strings.LastIndex(qualified, "."); i >= 0 {
		ns, name = qualified[:i], qualified[i+1:]
	}
	return Gate{
		Name:       name,
		Namespace:  ns,
		ArgIndex:   argIndex,
		IsArgArray: isArgArray,
	}
}

// FullName returns Namespace + "." + Name.
func (g Gate) FullName() string {
	if g.Namespace == "" {
		return g.Name
	}
	return g.Namespace + "." + g.Name
}

// SameOperation reports whether g and other are markers of the same
// operation argument: name, namespace and argument index match and neither
// is part of a register argument.
func (g Gate) SameOperation(other Gate) bool {
	if g.IsArgArray || other.IsArgArray {
		return false
	}
	return g.Name == other.Name &&
		g.Namespace == other.Namespace &&
		g.ArgIndex == other.ArgIndex
}

func (g Gate) String() string {
	if g.IsArgArray {
		return fmt.Sprintf("%s[%d*]", g.FullName(), g.ArgIndex)
	}
	return fmt.Sprintf("%s[%d]", g.FullName(), g.ArgIndex)
}
