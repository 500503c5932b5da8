package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qtrace/internal/circuit"
	"github.com/roach88/qtrace/internal/ir"
)

const (
	opMain = "Test.Main"
	opOp   = "Test.Op"
	opH    = "Microsoft.Quantum.Intrinsic.H"
	opCNOT = "Microsoft.Quantum.Intrinsic.CNOT"
)

func intrinsicsSkipped() Option {
	return WithConfig(ir.TracerConfig{SkipIntrinsics: true})
}

func onlyGrid(t *testing.T, tr *Tracer, name string) *circuit.Grid {
	t.Helper()
	grids, err := tr.Result()
	require.NoError(t, err)
	require.Len(t, grids[name], 1, "grids for %s", name)
	return grids[name][0]
}

func TestTracer_ChildStartedTwiceLandsInOneRow(t *testing.T) {
	tr := New()

	require.NoError(t, tr.Start(opMain))
	require.NoError(t, tr.Start(opOp, 0))
	require.NoError(t, tr.End(opOp))
	require.NoError(t, tr.Start(opOp, 0))
	require.NoError(t, tr.End(opOp))
	require.NoError(t, tr.End(opMain))

	g := onlyGrid(t, tr, opMain)
	// The qubit was never tagged, so finalisation leaves its row unnamed but
	// keeps it because it holds gates.
	assert.Equal(t, 2, g.Width())
	assert.Equal(t, 1, g.Height())
	for x := 0; x < 2; x++ {
		gate, ok := g.At(x, 0)
		require.True(t, ok)
		assert.Equal(t, "Op", gate.Name)
		assert.Equal(t, "Test", gate.Namespace)
	}

	grids, _ := tr.Result()
	assert.Len(t, grids[opOp], 2, "one grid per invocation, never merged")
}

func TestTracer_SkippedChildStartedTwiceWithoutEnd(t *testing.T) {
	tr := New(intrinsicsSkipped())

	require.NoError(t, tr.Start(opMain))
	require.NoError(t, tr.Start(opH, 0))
	require.NoError(t, tr.Start(opH, 0))

	grids := tr.Grids()
	require.Len(t, grids[opMain], 1)
	g := grids[opMain][0]
	assert.Equal(t, 2, g.Width())
	assert.Equal(t, 1, g.Height())
	_, ok := g.At(0, 0)
	assert.True(t, ok)
	_, ok = g.At(1, 0)
	assert.True(t, ok)
	assert.NotContains(t, grids, opH)
}

func TestTracer_TaggedRegisterSingleGate(t *testing.T) {
	tr := New(intrinsicsSkipped())

	require.NoError(t, tr.Start(opMain))
	require.NoError(t, tr.Allocate(0, 1, 2, 3, 4))
	require.NoError(t, tr.Tag("qs"))
	require.NoError(t, tr.Start(opH, 2))
	require.NoError(t, tr.End(opH))
	require.NoError(t, tr.End(opMain))

	g := onlyGrid(t, tr, opMain)
	assert.Equal(t, 1, g.Height())
	assert.Equal(t, []string{"qs[2]"}, g.Export().RowNames())
	gate, ok := g.At(0, 0)
	require.True(t, ok)
	assert.Equal(t, "H", gate.Name)
}

func TestTracer_SingleQubitTagUsesPlainLabel(t *testing.T) {
	tr := New(intrinsicsSkipped())

	require.NoError(t, tr.Allocate(7))
	require.NoError(t, tr.Tag("anc"))
	require.NoError(t, tr.Start(opMain))
	require.NoError(t, tr.Start(opH, 7))
	require.NoError(t, tr.End(opH))
	require.NoError(t, tr.End(opMain))

	name, ok := tr.QubitName(7)
	require.True(t, ok)
	assert.Equal(t, "anc", name)
	assert.Equal(t, []string{"anc"}, onlyGrid(t, tr, opMain).Export().RowNames())
}

func TestTracer_MultiQubitGateSharesColumn(t *testing.T) {
	tr := New(intrinsicsSkipped())

	require.NoError(t, tr.Start(opMain))
	require.NoError(t, tr.Start(opH, 0))
	require.NoError(t, tr.End(opH))
	require.NoError(t, tr.Start(opCNOT, 0, 1))
	require.NoError(t, tr.End(opCNOT))
	require.NoError(t, tr.End(opMain))

	g := onlyGrid(t, tr, opMain)
	assert.Equal(t, 2, g.Width())
	control, ok := g.At(1, 0)
	require.True(t, ok)
	target, ok := g.At(1, 1)
	require.True(t, ok)
	assert.Equal(t, 0, control.ArgIndex)
	assert.Equal(t, 1, target.ArgIndex)
	assert.Equal(t, "CNOT", control.Name)
	_, ok = g.At(0, 1)
	assert.False(t, ok)
}

func TestTracer_DisjointGatesStillAppendColumns(t *testing.T) {
	tr := New(intrinsicsSkipped())

	require.NoError(t, tr.Start(opMain))
	require.NoError(t, tr.Start(opH, 0))
	require.NoError(t, tr.End(opH))
	require.NoError(t, tr.Start(opH, 1))
	require.NoError(t, tr.End(opH))

	g := tr.Grids()[opMain][0]
	assert.Equal(t, 2, g.Width(), "placement starts at the grid width")
	_, ok := g.At(1, 1)
	assert.True(t, ok)
}

func TestTracer_RegisterArgument(t *testing.T) {
	tr := New(intrinsicsSkipped())

	require.NoError(t, tr.Start(opMain))
	require.NoError(t, tr.OnOperationStart(opOp, []ir.Argument{
		{Qubits: []int{0}},
		{Qubits: []int{1, 2}, Array: true},
	}))
	require.NoError(t, tr.End(opOp))
	require.NoError(t, tr.End(opMain))

	g := onlyGrid(t, tr, opMain)
	require.Equal(t, 3, g.Height())
	for row, want := range []circuit.Gate{
		{Name: "Op", Namespace: "Test", ArgIndex: 0},
		{Name: "Op", Namespace: "Test", ArgIndex: 1, IsArgArray: true},
		{Name: "Op", Namespace: "Test", ArgIndex: 1, IsArgArray: true},
	} {
		got, ok := g.At(0, row)
		require.True(t, ok, "row %d", row)
		assert.Equal(t, want, got)
	}
}

func TestTracer_NestedGatesLandInNearestGrid(t *testing.T) {
	tr := New(intrinsicsSkipped())

	require.NoError(t, tr.Start(opMain))
	require.NoError(t, tr.Start(opOp, 0, 1))
	require.NoError(t, tr.Start(opH, 1))
	require.NoError(t, tr.End(opH))
	require.NoError(t, tr.End(opOp))
	require.NoError(t, tr.End(opMain))

	grids, err := tr.Result()
	require.NoError(t, err)

	main := grids[opMain][0]
	assert.Equal(t, 2, main.Count(), "Op drawn once per qubit in Main")

	op := grids[opOp][0]
	assert.Equal(t, 1, op.Count())
	assert.Equal(t, 1, op.Height(), "unused row 0 trimmed at end")
	gate, ok := op.At(0, 0)
	require.True(t, ok)
	assert.Equal(t, "H", gate.Name)
}

func TestTracer_SkippedOperationForwardsToEnclosingGrid(t *testing.T) {
	tr := New(WithConfig(ir.TracerConfig{SkipOperations: []string{opOp}, SkipIntrinsics: true}))

	require.NoError(t, tr.Start(opMain))
	require.NoError(t, tr.Start(opOp, 0))
	require.NoError(t, tr.Start(opH, 0))
	require.NoError(t, tr.End(opH))
	require.NoError(t, tr.End(opOp))
	require.NoError(t, tr.End(opMain))

	grids, err := tr.Result()
	require.NoError(t, err)
	assert.NotContains(t, grids, opOp)

	var names []string
	for p := range grids[opMain][0].Gates() {
		names = append(names, p.Gate.Name)
	}
	assert.Equal(t, []string{"Op", "H"}, names)
	assert.Equal(t, 2, tr.Stats().Skipped, "H and Op are both skipped")
}

func TestTracer_FinalisationSortsAndFreezes(t *testing.T) {
	tr := New(intrinsicsSkipped())

	require.NoError(t, tr.Allocate(0))
	require.NoError(t, tr.Allocate(1))
	require.NoError(t, tr.Tag("q[2]"))
	require.NoError(t, tr.Tag("q[10]"))

	require.NoError(t, tr.Start(opMain))
	require.NoError(t, tr.Start(opH, 0))
	require.NoError(t, tr.End(opH))
	require.NoError(t, tr.Start(opH, 1))
	require.NoError(t, tr.End(opH))
	require.NoError(t, tr.End(opMain))

	g := onlyGrid(t, tr, opMain)
	assert.Equal(t, []string{"q[10]", "q[2]"}, g.Export().RowNames(), "plain string order")
	assert.True(t, g.Frozen())
	assert.True(t, circuit.IsFrozen(g.AddGate(0, 0, circuit.Gate{Name: "X"})))

	gate, _ := g.At(1, 0)
	assert.Equal(t, "H", gate.Name, "q[10] row carries the second gate")
}

func TestTracer_GridCreatedEvenWithoutGates(t *testing.T) {
	tr := New()

	require.NoError(t, tr.Start(opMain))
	require.NoError(t, tr.End(opMain))

	g := onlyGrid(t, tr, opMain)
	assert.Equal(t, 1, g.Width())
	assert.Equal(t, 1, g.Height())
	assert.Equal(t, 0, g.Count())
}

func TestTracer_StaleEndIsTolerated(t *testing.T) {
	tr := New()

	require.NoError(t, tr.End(opMain), "end on empty stack")

	require.NoError(t, tr.Start(opMain))
	require.NoError(t, tr.End(opOp), "end not matching the open frame")
	assert.Equal(t, 1, tr.Depth(), "mismatched end does not pop")

	require.NoError(t, tr.End(opMain))
	assert.Equal(t, 0, tr.Depth())
	assert.Equal(t, 2, tr.Stats().StaleEnds)
	assert.Equal(t, 1, tr.Stats().Ends)
}

func TestTracer_TagUnderflowIsFatal(t *testing.T) {
	tr := New()

	err := tr.Tag("qs")
	require.Error(t, err)
	assert.True(t, IsAllocationUnderflow(err))

	require.NoError(t, tr.Allocate(0))
	require.NoError(t, tr.Tag("a"))
	assert.True(t, IsAllocationUnderflow(tr.Tag("b")), "one tag per allocation")
}

func TestTracer_ResultIncompleteWhileFramesOpen(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Start(opMain))
	require.NoError(t, tr.Start(opOp, 0))

	grids, err := tr.Result()
	require.Error(t, err)
	assert.Nil(t, grids)
	assert.True(t, IsRunIncomplete(err))
	assert.Contains(t, err.Error(), "Test.Main > Test.Op")

	require.NoError(t, tr.End(opOp))
	require.NoError(t, tr.End(opMain))
	_, err = tr.Result()
	assert.NoError(t, err)
}

func TestTracer_NegativeQubitAbortsRun(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Start(opMain))

	err := tr.Start(opOp, -1)
	require.Error(t, err)
	assert.True(t, circuit.IsOutOfRange(err))
	assert.Contains(t, err.Error(), "start Test.Op")
}

func TestTracer_OperationsInFirstSeenOrder(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Start("B"))
	require.NoError(t, tr.Start("A"))
	require.NoError(t, tr.End("A"))
	require.NoError(t, tr.Start("A"))
	require.NoError(t, tr.End("A"))
	require.NoError(t, tr.End("B"))

	assert.Equal(t, []string{"B", "A"}, tr.Operations())
}

func TestTracer_CallTree(t *testing.T) {
	tr := New(intrinsicsSkipped())
	require.NoError(t, tr.Start(opMain))
	require.NoError(t, tr.Start(opOp, 0))
	require.NoError(t, tr.Start(opH, 0))
	require.NoError(t, tr.End(opH))
	require.NoError(t, tr.End(opOp))
	require.NoError(t, tr.Start(opOp, 1))

	calls := tr.Calls()
	require.Equal(t, 4, calls.Len())
	assert.Equal(t, []CallID{0}, calls.Roots())

	main, _ := calls.Get(0)
	assert.Equal(t, []CallID{1, 3}, main.Children)
	assert.Equal(t, 0, main.GridIndex)

	h, _ := calls.Get(2)
	assert.Equal(t, 2, h.Depth)
	assert.Equal(t, -1, h.GridIndex, "skipped call owns no grid")
	assert.True(t, h.Closed)
	assert.Equal(t, []string{opMain, opOp, opH}, calls.Path(2))

	second, _ := calls.Get(3)
	assert.Equal(t, 1, second.GridIndex, "second grid of Op")
	assert.False(t, second.Closed)
}

func TestTracer_Stats(t *testing.T) {
	tr := New(intrinsicsSkipped())
	require.NoError(t, tr.Allocate(0, 1))
	require.NoError(t, tr.Tag("q"))
	require.NoError(t, tr.Start(opMain))
	require.NoError(t, tr.Start(opCNOT, 0, 1))
	require.NoError(t, tr.End(opCNOT))
	require.NoError(t, tr.End(opMain))

	assert.Equal(t, Stats{
		Starts:      2,
		Ends:        2,
		Skipped:     1,
		Allocations: 1,
		Tags:        1,
		GatesPlaced: 2,
	}, tr.Stats())
}

func TestTracer_NamesAreNFC(t *testing.T) {
	decomposed := "Test.Cafe\u0301"
	composed := "Test.Caf\u00e9"
	tr := New()

	require.NoError(t, tr.Allocate(0))
	require.NoError(t, tr.Tag("qe\u0301"))
	require.NoError(t, tr.Start(opMain))
	require.NoError(t, tr.Start(decomposed, 0))
	require.NoError(t, tr.End(composed), "end matches across normal forms")
	require.NoError(t, tr.End(opMain))

	grids, err := tr.Result()
	require.NoError(t, err)
	assert.Contains(t, grids, composed)
	assert.NotContains(t, grids, decomposed)
	assert.Equal(t, []string{"q\u00e9"}, grids[opMain][0].Export().RowNames())
}

func TestTracer_SkipListMatchesAcrossNormalForms(t *testing.T) {
	tr := New(WithConfig(ir.TracerConfig{SkipOperations: []string{"Test.Caf\u00e9"}}))

	require.NoError(t, tr.Start(opMain))
	require.NoError(t, tr.Start("Test.Cafe\u0301", 0))

	assert.NotContains(t, tr.Grids(), "Test.Caf\u00e9")
	assert.Equal(t, 1, tr.Stats().Skipped)
}

func TestTracer_TagOperationNeverOwnsGrid(t *testing.T) {
	tr := New(WithConfig(ir.TracerConfig{SkipOperations: []string{"Lib.Helper"}}))

	require.NoError(t, tr.Start(opMain))
	require.NoError(t, tr.Start(ir.DefaultTagOperation))
	require.NoError(t, tr.End(ir.DefaultTagOperation))
	require.NoError(t, tr.End(opMain))

	grids, err := tr.Result()
	require.NoError(t, err)
	assert.NotContains(t, grids, ir.DefaultTagOperation)
	assert.Equal(t, []string{opMain}, tr.Operations())
}
