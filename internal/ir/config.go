package ir

// DefaultIntrinsicNamespaces lists the namespaces holding built-in
// instructions. Operations in these namespaces are leaves of the call tree.
var DefaultIntrinsicNamespaces = []string{"Microsoft.Quantum.Intrinsic"}

// DefaultTagOperation is the instrumentation operation that issues tag calls.
// It never owns a grid.
const DefaultTagOperation = "Microsoft.Quantum.Diagnostics.Tag"

// TracerConfig controls which operations get their own grid.
//
// An operation that matches the skip list is still placed as a gate in its
// caller's grid; it only does not receive a grid of its own, and gates it
// invokes land in the nearest enclosing grid.
type TracerConfig struct {
	// SkipOperations are exact qualified operation names. DefaultTagOperation
	// is skipped whether or not it is listed.
	SkipOperations []string `json:"skip_operations,omitempty" yaml:"skip_operations,omitempty"`

	// SkipNamespaces are namespace prefixes; "A.B" matches "A.B.Op" and
	// "A.B.C.Op" but not "A.BC.Op".
	SkipNamespaces []string `json:"skip_namespaces,omitempty" yaml:"skip_namespaces,omitempty"`

	// SkipIntrinsics adds IntrinsicNamespaces to the skip list.
	SkipIntrinsics bool `json:"skip_intrinsics,omitempty" yaml:"skip_intrinsics,omitempty"`

	// IntrinsicNamespaces overrides DefaultIntrinsicNamespaces when non-empty.
	IntrinsicNamespaces []string `json:"intrinsic_namespaces,omitempty" yaml:"intrinsic_namespaces,omitempty"`
}

// DefaultTracerConfig returns the configuration used when none is supplied:
// only the tag instrumentation operation is skipped.
func DefaultTracerConfig() TracerConfig {
	return TracerConfig{
		SkipOperations: []string{DefaultTagOperation},
	}
}

// Intrinsics returns the effective intrinsic namespaces.
func (c TracerConfig) Intrinsics() []string {
	if len(c.IntrinsicNamespaces) > 0 {
		return c.IntrinsicNamespaces
	}
	return DefaultIntrinsicNamespaces
}

// CanonicalMap converts the configuration to a map for canonical JSON.
func (c TracerConfig) CanonicalMap() map[string]any {
	nonNil := func(s []string) []string {
		if s == nil {
			return []string{}
		}
		return s
	}
	return map[string]any{
		"skip_operations":      nonNil(c.SkipOperations),
		"skip_namespaces":      nonNil(c.SkipNamespaces),
		"skip_intrinsics":      c.SkipIntrinsics,
		"intrinsic_namespaces": c.Intrinsics(),
	}
}
