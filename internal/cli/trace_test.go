package cli

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qtrace/internal/ir"
	"github.com/roach88/qtrace/internal/tracer"
)

func operationNames(ops []OperationReport) []string {
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.Name
	}
	return names
}

func TestTraceText(t *testing.T) {
	out, err := execute(t, "trace", script("bell.yaml"), "--config", config("intrinsics.cue"))
	require.NoError(t, err)

	assert.Contains(t, out, "Label: bell")
	assert.Contains(t, out, "Status: complete")
	assert.Contains(t, out, "Test.Main [0] 2x2")
	assert.Contains(t, out, "  q[0] | H CNOT\n")
	assert.Contains(t, out, "  q[1] | . CNOT:1\n")
	assert.Contains(t, out, "Gates placed: 3")
	assert.NotContains(t, out, "Microsoft.Quantum.Intrinsic.H [0]")
}

func TestTraceJSONDefaultConfig(t *testing.T) {
	out, err := execute(t, "--format", "json", "trace", script("bell.yaml"))
	require.NoError(t, err)

	resp := decode[TraceReport](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.RunID, "no run id without --db")

	report := resp.Data
	assert.True(t, report.Complete)
	assert.Empty(t, report.ErrorCode)
	assert.Equal(t, []string{
		"Test.Main",
		"Microsoft.Quantum.Intrinsic.H",
		"Microsoft.Quantum.Intrinsic.CNOT",
	}, operationNames(report.Operations))

	main := report.Operations[0].Grids[0]
	assert.Equal(t, 2, main.Grid.Width)
	assert.Equal(t, 2, main.Grid.Height)
	assert.Equal(t, []string{"q[0]", "q[1]"}, main.Grid.RowNames())
	assert.NotEmpty(t, main.Hash)

	wantHash, err := ir.ConfigHash(ir.DefaultTracerConfig())
	require.NoError(t, err)
	assert.Equal(t, wantHash, report.ConfigHash)

	assert.Equal(t, tracer.Stats{Starts: 3, Ends: 3, Allocations: 1, Tags: 1, GatesPlaced: 3}, report.Stats)
}

func TestTraceMetrics(t *testing.T) {
	out, err := execute(t, "--format", "json", "trace", script("bell.yaml"), "--metrics")
	require.NoError(t, err)

	metrics := decode[TraceReport](t, out).Data.Metrics
	assert.Equal(t, 3.0, metrics["qtrace_tracer_operations_total"])
	assert.Equal(t, 3.0, metrics["qtrace_tracer_gates_placed_total"])
	assert.Equal(t, 0.0, metrics["qtrace_tracer_stale_ends_total"])
	assert.Equal(t, 0.0, metrics["qtrace_grid_collisions_total"])
	assert.Contains(t, metrics, "qtrace_grid_cascade_removals_total")

	plain, err := execute(t, "--format", "json", "trace", script("bell.yaml"))
	require.NoError(t, err)
	assert.Nil(t, decode[TraceReport](t, plain).Data.Metrics, "metrics are opt-in")
}

func TestTraceMetricsText(t *testing.T) {
	out, err := execute(t, "trace", script("bell.yaml"), "--config", config("intrinsics.cue"), "--metrics")
	require.NoError(t, err)

	assert.Contains(t, out, "=== Metrics ===")
	assert.Contains(t, out, "  qtrace_tracer_operations_skipped_total 2\n")
	assert.Contains(t, out, "  qtrace_tracer_operations_total 1\n")
}

func TestTraceFailures(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		wantCode string
	}{
		{"allocation underflow", "underflow.yaml", string(tracer.ErrCodeAllocationUnderflow)},
		{"frames left open", "open.yaml", string(tracer.ErrCodeRunIncomplete)},
		{"invalid events", "invalid.yaml", "E210"},
		{"unknown field", "unknown_field.yaml", ErrCodeScriptInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "--format", "json", "trace", script(tt.script))
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			resp := decode[any](t, out)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestTraceIncompleteKeepsPartialGrids(t *testing.T) {
	out, err := execute(t, "--format", "json", "trace", script("open.yaml"))
	require.Error(t, err)

	report := decode[TraceReport](t, out).Data
	assert.False(t, report.Complete)
	assert.Equal(t, string(tracer.ErrCodeRunIncomplete), report.ErrorCode)
	assert.Contains(t, operationNames(report.Operations), "Test.Main")
}

func TestTraceCommandErrors(t *testing.T) {
	t.Run("missing script", func(t *testing.T) {
		_, err := execute(t, "trace", script("missing.yaml"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := execute(t, "trace", script("bell.yaml"), "--config", config("unused.cue"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("no script argument", func(t *testing.T) {
		_, err := execute(t, "trace")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "accepts 1 arg")
	})
}

func TestTraceRecordsRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "qtrace.db")

	out, err := execute(t, "--format", "json", "trace", script("bell.yaml"), "--db", db, "--label", "nightly")
	require.NoError(t, err)

	resp := decode[TraceReport](t, out)
	assert.Equal(t, resp.RunID, resp.Data.RunID)
	assert.Equal(t, "nightly", resp.Data.Label)

	id, err := uuid.Parse(resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestDeliverStopsAtFirstError(t *testing.T) {
	tr := tracer.New()
	err := deliver(tr, []ir.Event{
		ir.TagEvent("early"),
		ir.StartEvent("Test.Main"),
	})
	require.Error(t, err)
	assert.True(t, tracer.IsAllocationUnderflow(err))
	assert.Contains(t, err.Error(), "event 0 (tag)")
	assert.Equal(t, 0, tr.Stats().Starts)
}
