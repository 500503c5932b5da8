package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/qtrace/internal/compiler"
	"github.com/roach88/qtrace/internal/harness"
	"github.com/roach88/qtrace/internal/ir"
	"github.com/roach88/qtrace/internal/store"
	"github.com/roach88/qtrace/internal/tracer"
)

// Replay error codes.
const (
	ErrCodeConfigMismatch = "E304" // --config hash differs from the run's
	ErrCodeRunIncomplete  = "E305" // run not marked complete and --partial not set
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - defaults to the latest run
	Config   string // optional - must hash to the run's config
	Partial  bool
	Metrics  bool // include the first replay's counters in the report
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild a journaled run and verify determinism",
		Long: `Rebuild the grids of a journaled run from its events.

The events are replayed twice into fresh tracers configured with the
config stored in the run; both replays must produce equal grids.

A run that was never marked complete is refused unless --partial is set;
its grids are a partial picture of an aborted execution.

Exit codes:
  0 - Replay is deterministic
  1 - Replays differ, config mismatch, or incomplete run without --partial
  2 - Command error (database not found, unknown run, etc.)

Examples:
  qtrace replay --db ./qtrace.db
  qtrace replay --db ./qtrace.db --run 0190f1c4-...
  qtrace replay --db ./qtrace.db --config tracer.cue
  qtrace replay --db ./qtrace.db --partial --format json
  qtrace replay --db ./qtrace.db --metrics`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to replay (default: latest run)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "CUE tracer config expected to match the run's")
	cmd.Flags().BoolVar(&opts.Partial, "partial", false, "allow replaying a run that never completed")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "report tracer and grid counters of the replay")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, err.Error(), nil)
	}
	defer st.Close()

	run, err := selectRun(ctx, st, opts.RunID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, err.Error(), nil)
	}
	formatter.VerboseLog("Replaying run %s (complete=%t, last_seq=%d)", run.ID, run.Complete, run.LastSeq)

	if opts.Config != "" {
		if err := checkConfigMatches(opts.Config, run); err != nil {
			var loadErr *LoadError
			if errors.As(err, &loadErr) {
				return outputCompileError(formatter, err)
			}
			return formatter.Fail(ExitFailure, ErrCodeConfigMismatch, err.Error(), nil)
		}
	}

	_, events, err := st.ReplayRun(ctx, run.ID, opts.Partial)
	if errors.Is(err, store.ErrRunIncomplete) {
		return formatter.Fail(ExitFailure, ErrCodeRunIncomplete,
			fmt.Sprintf("run %s is incomplete (use --partial to replay it anyway)", run.ID), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, err.Error(), nil)
	}

	first, firstErr := replayOnce(events, run.Config)
	second, secondErr := replayOnce(events, run.Config)
	deterministic := sameGrids(first, second) &&
		harness.ErrorCode(firstErr) == harness.ErrorCode(secondErr)

	report := TraceReport{
		RunID:         run.ID,
		Label:         run.Label,
		ConfigHash:    run.ConfigHash,
		Complete:      run.Complete,
		Deterministic: &deterministic,
		Stats:         first.Stats(),
		Operations:    buildOperations(first),
	}
	if firstErr != nil {
		report.ErrorCode = harness.ErrorCode(firstErr)
		report.Error = firstErr.Error()
	}
	if opts.Metrics {
		if err := attachMetrics(&report, first); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeTraceFailed, err.Error(), nil)
		}
	}

	if !deterministic {
		if formatter.Format == "json" {
			if err := formatter.JSON(CLIResponse{
				Status: "error",
				Data:   report,
				RunID:  run.ID,
				Error:  &CLIError{Code: ErrCodeNotDeterministic, Message: "determinism verification failed"},
			}); err != nil {
				return err
			}
		} else {
			renderReport(formatter.Writer, report)
			fmt.Fprintln(formatter.Writer, "✗ Determinism verification failed")
		}
		return NewExitError(ExitFailure, "determinism verification failed")
	}

	// An aborted run replays to the same error; only a complete run that
	// no longer replays cleanly fails.
	if err := outputTraceReport(formatter, report, run.Complete); err != nil {
		return err
	}
	if formatter.Format != "json" {
		fmt.Fprintln(formatter.Writer, "✓ Replay verified deterministic")
	}
	return nil
}

// replayOnce rebuilds a tracer from events and reports the error that
// stopped it, including RUN_INCOMPLETE for frames left open.
func replayOnce(events []ir.Event, cfg ir.TracerConfig) (*tracer.Tracer, error) {
	t, err := tracer.Replay(events, tracer.WithConfig(cfg))
	if err == nil {
		_, err = t.Result()
	}
	return t, err
}

// openExistingStore opens a journal that must already exist; store.Open
// would otherwise create an empty one.
func openExistingStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database not found: %s", path)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}

// selectRun reads run id, or the latest run when id is empty.
func selectRun(ctx context.Context, st *store.Store, id string) (store.Run, error) {
	if id == "" {
		run, err := st.LatestRun(ctx)
		if err != nil {
			return store.Run{}, fmt.Errorf("no run to replay: %w", err)
		}
		return run, nil
	}
	run, err := st.ReadRun(ctx, id)
	if err != nil {
		return store.Run{}, fmt.Errorf("run %s: %w", id, err)
	}
	return run, nil
}

// checkConfigMatches loads and validates the config at path and compares
// its hash with the one stored in run.
func checkConfigMatches(path string, run store.Run) error {
	loaded, err := LoadConfig(path)
	if err != nil {
		return err
	}
	if errs := compiler.Validate(&loaded.Config); len(errs) > 0 {
		return &LoadError{Code: errs[0].Code, Message: errs[0].Error()}
	}
	hash, err := ir.ConfigHash(loaded.Config)
	if err != nil {
		return err
	}
	if hash != run.ConfigHash {
		return fmt.Errorf("config %s hashes to %s, run %s was traced with %s",
			path, shortHash(hash), run.ID, shortHash(run.ConfigHash))
	}
	return nil
}
