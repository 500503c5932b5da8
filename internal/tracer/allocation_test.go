package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocationTracker_FIFO(t *testing.T) {
	a := NewAllocationTracker()
	a.Allocate([]int{0, 1})
	a.Allocate([]int{5})
	require.Equal(t, 2, a.Pending())

	ids, err := a.Tag("reg")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, ids)

	ids, err = a.Tag("anc")
	require.NoError(t, err)
	assert.Equal(t, []int{5}, ids)
	assert.Equal(t, 0, a.Pending())

	assert.Equal(t, map[int]string{0: "reg[0]", 1: "reg[1]", 5: "anc"}, a.Names())
}

func TestAllocationTracker_IndexFollowsEntryOrder(t *testing.T) {
	a := NewAllocationTracker()
	a.Allocate([]int{9, 3, 4})

	_, err := a.Tag("qs")
	require.NoError(t, err)

	name, ok := a.Name(9)
	require.True(t, ok)
	assert.Equal(t, "qs[0]", name)
	name, _ = a.Name(3)
	assert.Equal(t, "qs[1]", name)
}

func TestAllocationTracker_Underflow(t *testing.T) {
	a := NewAllocationTracker()

	_, err := a.Tag("qs")
	require.Error(t, err)
	assert.True(t, IsAllocationUnderflow(err))
	assert.Contains(t, err.Error(), `"qs"`)
	assert.Empty(t, a.Names())
}

func TestAllocationTracker_CopiesInput(t *testing.T) {
	a := NewAllocationTracker()
	ids := []int{1, 2}
	a.Allocate(ids)
	ids[0] = 99

	got, err := a.Tag("r")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)
}

func TestAllocationTracker_RetagOverwrites(t *testing.T) {
	a := NewAllocationTracker()
	a.Allocate([]int{0})
	a.Allocate([]int{0})

	_, err := a.Tag("first")
	require.NoError(t, err)
	_, err = a.Tag("second")
	require.NoError(t, err)

	name, _ := a.Name(0)
	assert.Equal(t, "second", name, "a released and reallocated id takes the newest name")
}

func TestAllocationTracker_EmptyAllocation(t *testing.T) {
	a := NewAllocationTracker()
	a.Allocate(nil)

	ids, err := a.Tag("nothing")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, a.Names())
}
