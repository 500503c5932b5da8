package tracer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qtrace/internal/ir"
)

// memJournal collects written events per run.
type memJournal struct {
	events map[string][]ir.Event
	failAt int64
}

func newMemJournal() *memJournal {
	return &memJournal{events: make(map[string][]ir.Event)}
}

func (j *memJournal) WriteEvent(_ context.Context, runID string, ev ir.Event) error {
	if j.failAt != 0 && ev.Seq == j.failAt {
		return errors.New("disk full")
	}
	j.events[runID] = append(j.events[runID], ev)
	return nil
}

func TestRecorder_JournalsAndForwards(t *testing.T) {
	j := newMemJournal()
	tr := New(intrinsicsSkipped())
	rec := NewRecorder(context.Background(), j, "run-1", tr)

	for _, ev := range bellEvents() {
		require.NoError(t, Dispatch(rec, ev))
	}

	recorded := j.events["run-1"]
	require.Len(t, recorded, len(bellEvents()))
	for i, ev := range recorded {
		assert.Equal(t, int64(i+1), ev.Seq, "seq is dense and starts at 1")
	}
	assert.Equal(t, ir.EventAllocate, recorded[0].Kind)
	assert.Equal(t, []int{0, 1}, recorded[0].Qubits)
	assert.Equal(t, "q", recorded[1].Label)

	live := onlyGrid(t, tr, opMain)
	replayed, err := Replay(recorded, intrinsicsSkipped())
	require.NoError(t, err)
	assert.True(t, live.Equal(onlyGrid(t, replayed, opMain)), "journal replays to an equal grid")
}

func TestRecorder_RecordedStartHashesLikeShorthand(t *testing.T) {
	j := newMemJournal()
	rec := NewRecorder(context.Background(), j, "run", New())

	require.NoError(t, rec.OnOperationStart(opOp, ScalarArgs(3, 4)))

	recorded := j.events["run"][0]
	shorthand := ir.StartEvent(opOp, 3, 4)
	shorthand.Seq = recorded.Seq

	a, err := ir.EventHash(recorded)
	require.NoError(t, err)
	b, err := ir.EventHash(shorthand)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRecorder_WriteFailureIsNotForwarded(t *testing.T) {
	j := newMemJournal()
	j.failAt = 2
	tr := New()
	rec := NewRecorder(context.Background(), j, "run", tr)

	require.NoError(t, rec.OnOperationStart(opMain, nil))
	err := rec.OnOperationEnd(opMain)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, tr.Depth(), "end never reached the tracer")
}

func TestRecorder_ResumesFromClock(t *testing.T) {
	j := newMemJournal()
	rec := NewRecorderWithClock(context.Background(), j, "run", New(), NewClockAt(10))

	require.NoError(t, rec.OnAllocate([]int{0}))
	assert.Equal(t, int64(11), j.events["run"][0].Seq)
	assert.Equal(t, "run", rec.RunID())
}
