package cli

import (
	"fmt"

	"github.com/roach88/qtrace/internal/ir"
	"github.com/roach88/qtrace/internal/tracer"
)

// GridReport is one finished grid of an operation.
type GridReport struct {
	Invocation int           `json:"invocation"`
	Hash       string        `json:"hash"`
	Grid       ir.GridExport `json:"grid"`
}

// OperationReport holds every grid an operation produced, in invocation order.
type OperationReport struct {
	Name  string       `json:"name"`
	Grids []GridReport `json:"grids"`
}

// TraceReport is the output of trace and replay.
type TraceReport struct {
	RunID         string             `json:"run_id,omitempty"`
	Label         string             `json:"label,omitempty"`
	ConfigHash    string             `json:"config_hash"`
	Complete      bool               `json:"complete"`
	Deterministic *bool              `json:"deterministic,omitempty"` // replay only
	ErrorCode     string             `json:"error_code,omitempty"`
	Error         string             `json:"error,omitempty"`
	Stats         tracer.Stats       `json:"stats"`
	Metrics       map[string]float64 `json:"metrics,omitempty"` // --metrics only
	Operations    []OperationReport  `json:"operations"`
}

// attachMetrics copies t's gathered counters into the report.
func attachMetrics(report *TraceReport, t *tracer.Tracer) error {
	m, err := t.Metrics()
	if err != nil {
		return fmt.Errorf("collecting metrics: %w", err)
	}
	report.Metrics = m
	return nil
}

// buildOperations exports every grid of t, operations in first-grid order.
func buildOperations(t *tracer.Tracer) []OperationReport {
	grids := t.Grids()
	ops := make([]OperationReport, 0, len(grids))
	for _, name := range t.Operations() {
		op := OperationReport{Name: name, Grids: make([]GridReport, len(grids[name]))}
		for i, g := range grids[name] {
			op.Grids[i] = GridReport{Invocation: i, Hash: g.Hash(), Grid: g.Export()}
		}
		ops = append(ops, op)
	}
	return ops
}

// sameGrids reports whether a and b hold equal grids for the same operations.
func sameGrids(a, b *tracer.Tracer) bool {
	ga, gb := a.Grids(), b.Grids()
	if len(ga) != len(gb) {
		return false
	}
	for name, want := range ga {
		got, ok := gb[name]
		if !ok || len(want) != len(got) {
			return false
		}
		for i := range want {
			if !want[i].Equal(got[i]) {
				return false
			}
		}
	}
	return true
}
