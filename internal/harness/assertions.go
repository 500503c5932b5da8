package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/qtrace/internal/circuit"
	"github.com/roach88/qtrace/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Grid     *ir.GridExport
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Grid != nil {
		fmt.Fprintf(&buf, "\nGrid (%dx%d):\n", e.Grid.Width, e.Grid.Height)
		for _, row := range e.Grid.Rows {
			name := "-"
			if row.Name != nil {
				name = *row.Name
			}
			fmt.Fprintf(&buf, "  %-8s", name)
			for _, c := range row.Cells {
				if c == nil {
					buf.WriteString(" .")
					continue
				}
				fmt.Fprintf(&buf, " %s", c.Name)
			}
			buf.WriteString("\n")
		}
	}

	return buf.String()
}

// lookupGrid resolves the grid an assertion addresses.
func lookupGrid(result *Result, a Assertion) (ir.GridExport, error) {
	g, ok := result.Grid(a.Operation, a.Invocation)
	if !ok {
		return ir.GridExport{}, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("grid %s[%d]", a.Operation, a.Invocation),
			Actual:   fmt.Sprintf("%d grids for %s", len(result.Grids[a.Operation]), a.Operation),
		}
	}
	return g, nil
}

// assertGridCount checks how many grids an operation owns.
func assertGridCount(result *Result, a Assertion) error {
	if n := len(result.Grids[a.Operation]); n != a.Count {
		return &AssertionError{
			Type:     AssertGridCount,
			Expected: fmt.Sprintf("%d grids for %s", a.Count, a.Operation),
			Actual:   fmt.Sprintf("%d grids", n),
		}
	}
	return nil
}

// assertGridSize checks an invocation's grid bounds.
func assertGridSize(result *Result, a Assertion) error {
	g, err := lookupGrid(result, a)
	if err != nil {
		return err
	}
	if g.Width != a.Width || g.Height != a.Height {
		return &AssertionError{
			Type:     AssertGridSize,
			Expected: fmt.Sprintf("%dx%d", a.Width, a.Height),
			Actual:   fmt.Sprintf("%dx%d", g.Width, g.Height),
			Grid:     &g,
		}
	}
	return nil
}

// assertRowNames checks the row names top to bottom.
func assertRowNames(result *Result, a Assertion) error {
	g, err := lookupGrid(result, a)
	if err != nil {
		return err
	}
	if names := g.RowNames(); !slices.Equal(names, a.Names) {
		return &AssertionError{
			Type:     AssertRowNames,
			Expected: fmt.Sprintf("%q", a.Names),
			Actual:   fmt.Sprintf("%q", names),
			Grid:     &g,
		}
	}
	return nil
}

// cellAt returns the cell at (x, y), nil when empty or outside the grid.
func cellAt(g ir.GridExport, x, y int) *ir.CellExport {
	if y < 0 || y >= len(g.Rows) || x < 0 || x >= len(g.Rows[y].Cells) {
		return nil
	}
	return g.Rows[y].Cells[x]
}

// assertGateAt checks the gate marker in one cell.
func assertGateAt(result *Result, a Assertion) error {
	g, err := lookupGrid(result, a)
	if err != nil {
		return err
	}

	want := circuit.NewGate(a.Gate, a.ArgIndex, a.Array)
	c := cellAt(g, a.X, a.Y)
	if c == nil {
		return &AssertionError{
			Type:     AssertGateAt,
			Expected: fmt.Sprintf("%s at (%d, %d)", want, a.X, a.Y),
			Actual:   "empty cell",
			Grid:     &g,
		}
	}

	got := circuit.Gate{Name: c.Name, Namespace: c.Namespace, ArgIndex: c.ArgIndex, IsArgArray: c.IsArgArray}
	if got != want {
		return &AssertionError{
			Type:     AssertGateAt,
			Expected: fmt.Sprintf("%s at (%d, %d)", want, a.X, a.Y),
			Actual:   got.String(),
			Grid:     &g,
		}
	}
	return nil
}

// assertCellEmpty checks that a cell holds no gate.
func assertCellEmpty(result *Result, a Assertion) error {
	g, err := lookupGrid(result, a)
	if err != nil {
		return err
	}
	if c := cellAt(g, a.X, a.Y); c != nil {
		return &AssertionError{
			Type:     AssertCellEmpty,
			Expected: fmt.Sprintf("empty cell at (%d, %d)", a.X, a.Y),
			Actual:   c.Namespace + "." + c.Name,
			Grid:     &g,
		}
	}
	return nil
}

// assertGateCount checks the number of occupied cells in a grid.
func assertGateCount(result *Result, a Assertion) error {
	g, err := lookupGrid(result, a)
	if err != nil {
		return err
	}
	n := 0
	for _, row := range g.Rows {
		for _, c := range row.Cells {
			if c != nil {
				n++
			}
		}
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertGateCount,
			Expected: fmt.Sprintf("%d gates", a.Count),
			Actual:   fmt.Sprintf("%d gates", n),
			Grid:     &g,
		}
	}
	return nil
}

// assertOperationOrder checks the listed operations own grids in this
// relative order. Other operations may appear in between.
func assertOperationOrder(result *Result, a Assertion) error {
	last := -1
	for _, op := range a.Operations {
		pos := slices.Index(result.Operations, op)
		if pos < 0 {
			return &AssertionError{
				Type:     AssertOperationOrder,
				Expected: fmt.Sprintf("all operations present: %v", a.Operations),
				Actual:   fmt.Sprintf("missing operation: %s (have %v)", op, result.Operations),
			}
		}
		if pos <= last {
			return &AssertionError{
				Type:     AssertOperationOrder,
				Expected: fmt.Sprintf("operations in order: %v", a.Operations),
				Actual:   fmt.Sprintf("%v", result.Operations),
			}
		}
		last = pos
	}
	return nil
}

// assertStaleEnds checks how many stale ends the run tolerated.
func assertStaleEnds(result *Result, a Assertion) error {
	if result.Stats.StaleEnds != a.Count {
		return &AssertionError{
			Type:     AssertStaleEnds,
			Expected: fmt.Sprintf("%d stale ends", a.Count),
			Actual:   fmt.Sprintf("%d stale ends", result.Stats.StaleEnds),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertGridCount:
			err = assertGridCount(result, a)
		case AssertGridSize:
			err = assertGridSize(result, a)
		case AssertRowNames:
			err = assertRowNames(result, a)
		case AssertGateAt:
			err = assertGateAt(result, a)
		case AssertCellEmpty:
			err = assertCellEmpty(result, a)
		case AssertGateCount:
			err = assertGateCount(result, a)
		case AssertOperationOrder:
			err = assertOperationOrder(result, a)
		case AssertStaleEnds:
			err = assertStaleEnds(result, a)
		default:
			err = fmt.Errorf("unknown assertion type: %s", a.Type)
		}

		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}

	return errs
}
