package harness

import (
	"errors"

	"github.com/roach88/qtrace/internal/circuit"
	"github.com/roach88/qtrace/internal/ir"
	"github.com/roach88/qtrace/internal/tracer"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success: the run behaved as expected and
	// every assertion held.
	Pass bool `json:"pass"`

	// RunID is the journal run the scenario recorded into.
	RunID string `json:"run_id"`

	// Operations lists the operations owning grids, in first-grid order.
	Operations []string `json:"operations"`

	// Grids holds the exported grids per operation, in invocation order.
	Grids map[string][]ir.GridExport `json:"grids"`

	// Stats are the tracer's event counters.
	Stats tracer.Stats `json:"stats"`

	// Events are the journaled events, with their seqs.
	Events []ir.Event `json:"events"`

	// ErrorCode is the code of the error that aborted the run, if any.
	ErrorCode string `json:"error_code,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Operations: []string{},
		Grids:      make(map[string][]ir.GridExport),
		Events:     []ir.Event{},
		Errors:     []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Grid returns the export of one invocation's grid.
func (r *Result) Grid(operation string, invocation int) (ir.GridExport, bool) {
	grids := r.Grids[operation]
	if invocation < 0 || invocation >= len(grids) {
		return ir.GridExport{}, false
	}
	return grids[invocation], true
}

// Fallback code for errors that carry none.
const codeUncategorized = "ERROR"

// ErrorCode extracts the code of a tracer or grid error. It returns "" for
// nil and codeUncategorized for any other error.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var te *tracer.TraceError
	if errors.As(err, &te) {
		return string(te.Code)
	}
	var ge *circuit.GridError
	if errors.As(err, &ge) {
		return string(ge.Code)
	}
	return codeUncategorized
}
