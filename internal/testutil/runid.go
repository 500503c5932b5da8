package testutil

// DefaultRunID is used when a scenario does not name its run.
const DefaultRunID = "test-run-default"

// FixedRunID hands out the same run id on every call. It satisfies
// tracer.RunIDGenerator.
//
// Unlike tracer.FixedGenerator, which walks a list and panics when it runs
// out, FixedRunID never exhausts: a scenario run twice journals under the
// same id, which keeps golden snapshots byte-identical.
//
// Thread-safety: stateless after construction.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a generator for id, or DefaultRunID when id is empty.
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = DefaultRunID
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed id.
func (g *FixedRunID) Generate() string {
	return g.id
}
