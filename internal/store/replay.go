package store

import (
	"context"
	"fmt"

	"github.com/roach88/qtrace/internal/ir"
)

// ReplayRun returns a run and its events for rebuilding the grids.
//
// A run that was never marked complete is refused with ErrRunIncomplete
// unless allowPartial is set: its grids would be a partial picture of an
// aborted execution.
func (s *Store) ReplayRun(ctx context.Context, runID string, allowPartial bool) (Run, []ir.Event, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return Run{}, nil, err
	}
	if !run.Complete && !allowPartial {
		return run, nil, fmt.Errorf("replay run %s: %w", runID, ErrRunIncomplete)
	}

	events, err := s.ReadRunEvents(ctx, runID)
	if err != nil {
		return run, nil, fmt.Errorf("replay run %s: %w", runID, err)
	}
	return run, events, nil
}

// FindIncompleteRuns returns the runs never marked complete, ordered by id.
// These are runs whose engine aborted, or whose recording was interrupted.
func (s *Store) FindIncompleteRuns(ctx context.Context) ([]Run, error) {
	runs, err := s.queryRuns(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE complete = 0
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("find incomplete runs: %w", err)
	}
	return runs, nil
}

// CountEvents returns the number of events recorded for a run.
func (s *Store) CountEvents(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
