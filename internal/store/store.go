package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migrations upgrade journals created by older builds. Entry i moves a
// database from user_version i to i+1. A fresh database starts at version 0
// and runs all of them; every statement must be idempotent.
var migrations = []migration{
	{
		name: "index runs by completion for incomplete-run scans",
		stmt: `CREATE INDEX IF NOT EXISTS idx_runs_complete ON runs(complete, id)`,
	},
}

// currentSchemaVersion is the user_version of a fully migrated journal.
var currentSchemaVersion = len(migrations)

type migration struct {
	name string
	stmt string
}

// pragmas configure every connection: WAL for reads during a recording,
// NORMAL sync, a 5s busy timeout and foreign keys so events cannot outlive
// their run.
var pragmas = []struct {
	name  string
	value string
}{
	{"journal_mode", "WAL"},
	{"synchronous", "NORMAL"},
	{"busy_timeout", "5000"},
	{"foreign_keys", "ON"},
}

var (
	// ErrRunNotFound is returned when a run id is unknown.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunIncomplete is returned when a run without a completion mark is
	// requested for full replay.
	ErrRunIncomplete = errors.New("run incomplete")

	// ErrRunClosed is returned when writing into a completed run.
	ErrRunClosed = errors.New("run already complete")

	// ErrCorruptEvent is returned when a stored event no longer matches its
	// hash.
	ErrCorruptEvent = errors.New("event hash mismatch")
)

// Store is the durable journal of traced runs: one row per run, one row per
// delivered event.
//
// All access goes through a single connection, so writes are serialised
// and ":memory:" journals stay on one database.
type Store struct {
	db *sql.DB
}

// Open opens the journal at path, creating and migrating it as needed.
// Opening an up-to-date journal changes nothing.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepare(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// prepare connects, configures and migrates db.
func prepare(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	for _, p := range pragmas {
		stmt := fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute %q: %w", stmt, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return migrate(db)
}

// migrate applies every migration past the journal's user_version and
// stamps the new version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version >= currentSchemaVersion {
		return nil
	}

	for i := version; i < currentSchemaVersion; i++ {
		m := migrations[i]
		if _, err := db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate to v%d (%s): %w", i+1, m.name, err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// pragma returns the current value of a pragma as text.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to query %s: %w", name, err)
	}
	return value, nil
}
