package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/qtrace/internal/ir"
)

// CreateRun registers a new run with the configuration it is traced under.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - creating the same run
// twice is silently ignored.
func (s *Store) CreateRun(ctx context.Context, id, label string, cfg ir.TracerConfig) error {
	configJSON, err := marshalConfig(cfg)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	configHash, err := ir.ConfigHash(cfg)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, label, config, config_hash, tracer_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		label,
		configJSON,
		configHash,
		ir.TracerVersion,
		ir.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}

	return nil
}

// WriteEvent appends an event to a run.
//
// Uses ON CONFLICT(run_id, seq) DO NOTHING for idempotency - rewriting a seq
// keeps the first event. Writing into an unknown run returns
// ErrRunNotFound; writing into a completed run returns ErrRunClosed.
func (s *Store) WriteEvent(ctx context.Context, runID string, ev ir.Event) error {
	if ev.Seq <= 0 {
		return fmt.Errorf("write event: seq must be positive, got %d", ev.Seq)
	}
	payload, hash, err := marshalEvent(ev)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write event: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var complete bool
	err = tx.QueryRowContext(ctx, `SELECT complete FROM runs WHERE id = ?`, runID).Scan(&complete)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("write event: run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if complete {
		return fmt.Errorf("write event: run %s: %w", runID, ErrRunClosed)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events
		(run_id, seq, kind, payload, event_hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		runID,
		ev.Seq,
		string(ev.Kind),
		payload,
		hash,
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE runs SET last_seq = MAX(last_seq, ?) WHERE id = ?
	`, ev.Seq, runID)
	if err != nil {
		return fmt.Errorf("write event: update last seq: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write event: commit: %w", err)
	}
	return nil
}

// MarkRunComplete records that every frame of the run closed. Only complete
// runs are replayed without the partial flag.
func (s *Store) MarkRunComplete(ctx context.Context, runID string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE runs SET complete = 1 WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("mark run complete: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark run complete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark run complete: run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}
