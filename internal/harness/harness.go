package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/qtrace/internal/ir"
	"github.com/roach88/qtrace/internal/store"
	"github.com/roach88/qtrace/internal/testutil"
	"github.com/roach88/qtrace/internal/tracer"
)

// Harness is the scenario execution engine.
// It runs scenarios with a deterministic clock and a fixed run id.
type Harness struct {
	store  *store.Store
	clock  *testutil.DeterministicClock
	runIDs tracer.RunIDGenerator
	config ir.TracerConfig
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Resolve and validate the tracer configuration
//  2. Create a fresh in-memory journal and a run in it
//  3. Deliver every event through a Recorder into a new tracer
//  4. Mark the run complete if it finished with no frame open
//  5. Replay the journal and compare the replayed grids with the live ones
//  6. Evaluate the expected error and the assertions
//
// An error is returned only when the scenario could not be executed at
// all; failures of the traced run itself are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	cfg, err := scenario.TracerConfig()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		clock:  testutil.NewDeterministicClock(),
		runIDs: testutil.NewFixedRunID(scenario.RunID),
		config: cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	ctx := context.Background()
	result := NewResult()

	live, runErr, err := h.execute(ctx, scenario, result)
	if err != nil {
		return nil, fmt.Errorf("failed to execute events: %w", err)
	}

	if err := h.verifyReplay(ctx, live, result); err != nil {
		return nil, fmt.Errorf("failed to replay journal: %w", err)
	}

	checkExpectedError(scenario.ExpectError, runErr, result)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// execute journals and traces the scenario's events. runErr is the error
// that aborted the traced run; err is an infrastructure failure.
func (h *Harness) execute(ctx context.Context, scenario *Scenario, result *Result) (live *tracer.Tracer, runErr, err error) {
	runID := h.runIDs.Generate()
	if err := h.store.CreateRun(ctx, runID, scenario.Name, h.config); err != nil {
		return nil, nil, err
	}
	result.RunID = runID

	live = tracer.New(tracer.WithConfig(h.config))
	rec := tracer.NewRecorderWithClock(ctx, h.store, runID, live, h.clock)

	for i, ev := range scenario.Events {
		if err := tracer.Dispatch(rec, ev); err != nil {
			runErr = fmt.Errorf("event %d (%s %s%s): %w", i, ev.Kind, ev.Operation, ev.Label, err)
			break
		}
		h.logger.Debug("event delivered",
			"index", i,
			"kind", ev.Kind,
			"operation", ev.Operation,
			"seq", h.clock.Current(),
		)
	}

	if runErr == nil {
		if _, err := live.Result(); err != nil {
			runErr = err
		} else if err := h.store.MarkRunComplete(ctx, runID); err != nil {
			return nil, nil, err
		}
	}

	result.Operations = live.Operations()
	for name, grids := range live.Grids() {
		exports := make([]ir.GridExport, len(grids))
		for i, g := range grids {
			exports[i] = g.Export()
		}
		result.Grids[name] = exports
	}
	result.Stats = live.Stats()
	result.ErrorCode = ErrorCode(runErr)

	h.logger.Info("scenario executed",
		"scenario", scenario.Name,
		"run_id", runID,
		"events", len(scenario.Events),
		"error_code", result.ErrorCode,
	)
	return live, runErr, nil
}

// verifyReplay rebuilds the run from the journal and reports every grid that
// differs from the live tracer's. A run that finished cleanly must replay
// without partial mode; an aborted one must abort the same way.
func (h *Harness) verifyReplay(ctx context.Context, live *tracer.Tracer, result *Result) error {
	allowPartial := result.ErrorCode != ""
	_, events, err := h.store.ReplayRun(ctx, result.RunID, allowPartial)
	if err != nil {
		return err
	}
	result.Events = events

	replayed, replayErr := tracer.Replay(events, tracer.WithConfig(h.config))
	if replayErr == nil {
		_, replayErr = replayed.Result()
	}
	if code := ErrorCode(replayErr); code != result.ErrorCode {
		result.AddError(fmt.Sprintf("replay ended with %q, live run with %q", code, result.ErrorCode))
	}

	want := live.Grids()
	got := replayed.Grids()
	for _, name := range live.Operations() {
		if len(want[name]) != len(got[name]) {
			result.AddError(fmt.Sprintf("replay of %s produced %d grids, live run %d",
				name, len(got[name]), len(want[name])))
			continue
		}
		for i := range want[name] {
			if !want[name][i].Equal(got[name][i]) {
				result.AddError(fmt.Sprintf("replay of %s[%d] differs: live %s, replayed %s",
					name, i, want[name][i].Hash(), got[name][i].Hash()))
			}
		}
	}
	return nil
}

// checkExpectedError compares the run outcome with the scenario's
// expectation.
func checkExpectedError(expected string, runErr error, result *Result) {
	switch {
	case expected == "" && runErr != nil:
		result.AddError(fmt.Sprintf("run failed unexpectedly: %v", runErr))
	case expected != "" && runErr == nil:
		result.AddError(fmt.Sprintf("expected run to fail with %s, but it succeeded", expected))
	case expected != "" && result.ErrorCode != expected:
		result.AddError(fmt.Sprintf("expected error %s, got %s: %v", expected, result.ErrorCode, runErr))
	}
}
