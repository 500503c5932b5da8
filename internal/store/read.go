package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/qtrace/internal/ir"
)

// Run describes one journaled run.
type Run struct {
	ID            string          `json:"id"`
	Label         string          `json:"label,omitempty"`
	Config        ir.TracerConfig `json:"config"`
	ConfigHash    string          `json:"config_hash"`
	TracerVersion string          `json:"tracer_version"`
	IRVersion     string          `json:"ir_version"`
	Complete      bool            `json:"complete"`
	LastSeq       int64           `json:"last_seq"`
}

const runColumns = `id, label, config, config_hash, tracer_version, ir_version, complete, last_seq`

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		configJSON string
	)
	err := row.Scan(
		&run.ID,
		&run.Label,
		&configJSON,
		&run.ConfigHash,
		&run.TracerVersion,
		&run.IRVersion,
		&run.Complete,
		&run.LastSeq,
	)
	if err != nil {
		return Run{}, err
	}
	cfg, err := unmarshalConfig(configJSON)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	run.Config = cfg
	return run, nil
}

// ReadRun retrieves a single run by id.
// Returns ErrRunNotFound if the id is unknown.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns every run ordered by id. Run ids are UUIDv7, so this is
// creation order.
//
// Returns an empty slice (not nil) if the journal holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	return s.queryRuns(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id COLLATE BINARY ASC`)
}

// LatestRun returns the run with the greatest id.
// Returns ErrRunNotFound if the journal holds no runs.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id COLLATE BINARY DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("latest run: %w", ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRunEvents returns the events of a run ordered by seq ASC.
//
// Returns an empty slice (not nil) for a run without events, and
// ErrCorruptEvent if a stored payload no longer matches its hash.
func (s *Store) ReadRunEvents(ctx context.Context, runID string) ([]ir.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload, event_hash
		FROM events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []ir.Event{}
	for rows.Next() {
		var payload, hash string
		if err := rows.Scan(&payload, &hash); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev, err := unmarshalEvent(payload, hash)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
