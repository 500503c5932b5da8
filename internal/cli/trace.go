package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qtrace/internal/compiler"
	"github.com/roach88/qtrace/internal/harness"
	"github.com/roach88/qtrace/internal/ir"
	"github.com/roach88/qtrace/internal/store"
	"github.com/roach88/qtrace/internal/tracer"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Config   string // optional CUE tracer config
	Database string // optional journal
	Label    string // overrides the script label
	Metrics  bool   // include tracer and grid counters in the report

	runIDs tracer.RunIDGenerator
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts, runIDs: tracer.UUIDv7Generator{}}

	cmd := &cobra.Command{
		Use:   "trace <script>",
		Short: "Build circuit grids from an event script",
		Long: `Deliver the events of a YAML event script to a fresh tracer and print
the grid of every operation invocation.

With --db, every event is journaled first and the run can be replayed
later. A run whose tracer aborted, or that ends with operations still
open, is left incomplete in the journal.

Exit codes:
  0 - Run completed
  1 - Invalid script, or the tracer aborted the run
  2 - Command error (file not found, invalid config, database error)

Examples:
  qtrace trace bell.yaml
  qtrace trace bell.yaml --config tracer.cue
  qtrace trace bell.yaml --db ./qtrace.db --label nightly
  qtrace trace bell.yaml --metrics
  qtrace trace bell.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "CUE tracer config (file or directory)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal the run into this SQLite database")
	cmd.Flags().StringVar(&opts.Label, "label", "", "run label (defaults to the script label)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "report tracer and grid counters")

	return cmd
}

func runTrace(opts *TraceOptions, scriptPath string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	script, err := LoadScript(scriptPath)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Code == ErrCodeScriptInvalid {
			return formatter.Fail(ExitFailure, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, err)
	}
	if errs := compiler.Validate(script.Events); len(errs) > 0 {
		return outputValidationErrors(formatter, "script", errs)
	}

	cfg := ir.DefaultTracerConfig()
	if opts.Config != "" {
		loaded, err := LoadConfig(opts.Config)
		if err != nil {
			return outputCompileError(formatter, err)
		}
		if errs := compiler.Validate(&loaded.Config); len(errs) > 0 {
			return outputCompileValidationErrors(formatter, errs)
		}
		cfg = loaded.Config
	}

	configHash, err := ir.ConfigHash(cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("hashing config: %v", err), nil)
	}

	label := script.Label
	if opts.Label != "" {
		label = opts.Label
	}

	t := tracer.New(tracer.WithConfig(cfg))
	var sink tracer.Sink = t

	var (
		st    *store.Store
		runID string
	)
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("failed to open database: %v", err), nil)
		}
		defer st.Close()

		runID = opts.runIDs.Generate()
		if err := st.CreateRun(ctx, runID, label, cfg); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("failed to create run: %v", err), nil)
		}
		sink = tracer.NewRecorder(ctx, st, runID, t)
		formatter.VerboseLog("Recording run %s into %s", runID, opts.Database)
	}

	runErr := deliver(sink, script.Events)
	if runErr == nil {
		_, runErr = t.Result()
	}

	if runErr == nil && st != nil {
		if err := st.MarkRunComplete(ctx, runID); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("failed to complete run: %v", err), nil)
		}
	}

	report := TraceReport{
		RunID:      runID,
		Label:      label,
		ConfigHash: configHash,
		Complete:   runErr == nil,
		Stats:      t.Stats(),
		Operations: buildOperations(t),
	}
	if runErr != nil {
		report.ErrorCode = harness.ErrorCode(runErr)
		report.Error = runErr.Error()
	}
	if opts.Metrics {
		if err := attachMetrics(&report, t); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeTraceFailed, err.Error(), nil)
		}
	}

	return outputTraceReport(formatter, report, true)
}

// deliver dispatches events in order and stops at the first error.
func deliver(sink tracer.Sink, events []ir.Event) error {
	for i, ev := range events {
		if err := tracer.Dispatch(sink, ev); err != nil {
			return fmt.Errorf("event %d (%s): %w", i, ev.Kind, err)
		}
	}
	return nil
}

// outputTraceReport outputs a trace or replay report. With failOnError, a
// report carrying an error code fails with exit code 1 after it has been
// written.
func outputTraceReport(formatter *OutputFormatter, report TraceReport, failOnError bool) error {
	failed := failOnError && report.ErrorCode != ""
	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: report, RunID: report.RunID}
		if failed {
			response.Status = "error"
			response.Error = &CLIError{Code: report.ErrorCode, Message: report.Error}
		}
		if err := formatter.JSON(response); err != nil {
			return err
		}
	} else {
		renderReport(formatter.Writer, report)
	}

	if failed {
		return NewExitError(ExitFailure, report.Error)
	}
	return nil
}
