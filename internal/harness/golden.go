package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/qtrace/internal/ir"
)

// GoldenDir is where golden snapshots live, relative to the test's package.
const GoldenDir = "testdata/golden"

// GridSnapshot captures the grids and journal of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type GridSnapshot struct {
	ScenarioName string
	RunID        string
	ErrorCode    string
	Operations   []string
	Grids        map[string][]ir.GridExport
	Events       []ir.Event
}

// NewGridSnapshot builds the snapshot of a result.
func NewGridSnapshot(scenarioName string, result *Result) GridSnapshot {
	return GridSnapshot{
		ScenarioName: scenarioName,
		RunID:        result.RunID,
		ErrorCode:    result.ErrorCode,
		Operations:   result.Operations,
		Grids:        result.Grids,
		Events:       result.Events,
	}
}

// toCanonicalMap converts a GridSnapshot to a map[string]any for canonical
// JSON serialization. Operations keep first-grid order.
func (s GridSnapshot) toCanonicalMap() map[string]any {
	ops := make([]any, len(s.Operations))
	for i, name := range s.Operations {
		grids := make([]any, len(s.Grids[name]))
		for j, g := range s.Grids[name] {
			grids[j] = g.CanonicalMap()
		}
		ops[i] = map[string]any{
			"name":  name,
			"grids": grids,
		}
	}

	events := make([]any, len(s.Events))
	for i, ev := range s.Events {
		events[i] = ev.CanonicalMap()
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"run_id":        s.RunID,
		"operations":    ops,
		"events":        events,
	}
	if s.ErrorCode != "" {
		result["error_code"] = s.ErrorCode
	}
	return result
}

// MarshalCanonical returns the snapshot as canonical JSON.
func (s GridSnapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewGridSnapshot(scenarioName, result).MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
