package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/qtrace/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with the default configuration.
func createTestRun(t *testing.T, s *Store, id string) {
	t.Helper()
	if err := s.CreateRun(context.Background(), id, "test", ir.DefaultTracerConfig()); err != nil {
		t.Fatalf("CreateRun(%s) failed: %v", id, err)
	}
}

// writeTestEvents stamps events with seq 1..n and writes them to run id.
func writeTestEvents(t *testing.T, s *Store, id string, events ...ir.Event) {
	t.Helper()
	for i, ev := range events {
		ev.Seq = int64(i + 1)
		if err := s.WriteEvent(context.Background(), id, ev); err != nil {
			t.Fatalf("WriteEvent(seq=%d) failed: %v", ev.Seq, err)
		}
	}
}
