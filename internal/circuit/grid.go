package circuit

import (
	"cmp"
	"iter"
	"slices"

	"github.com/roach88/qtrace/internal/ir"
)

// Placement is one occupied cell as yielded by Grid.Gates.
type Placement struct {
	Gate Gate
	X    int
	Y    int
}

// Grid is a sparse matrix of optional gates indexed [column][row], with one
// optional name per row.
//
// The zero value is not usable; create grids with New.
type Grid struct {
	cols    [][]*Gate
	names   []*string
	frozen  bool
	metrics *Metrics
}

// Option configures a Grid.
type Option func(*Grid)

// WithMetrics counts the grid's collisions, cascade removals and compacted
// columns in m.
func WithMetrics(m *Metrics) Option {
	return func(g *Grid) {
		g.metrics = m
	}
}

// New returns the canonical empty grid: one column, one unnamed row.
func New(opts ...Option) *Grid {
	g := &Grid{
		cols:  [][]*Gate{make([]*Gate, 1)},
		names: make([]*string, 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Width returns the number of columns.
func (g *Grid) Width() int {
	return len(g.cols)
}

// Height returns the number of rows.
func (g *Grid) Height() int {
	return len(g.names)
}

// At returns the gate at (x, y). ok is false for an empty cell or
// coordinates outside the grid.
func (g *Grid) At(x, y int) (gate Gate, ok bool) {
	if x < 0 || y < 0 || x >= g.Width() || y >= g.Height() {
		return Gate{}, false
	}
	if c := g.cols[x][y]; c != nil {
		return *c, true
	}
	return Gate{}, false
}

// Name returns the name of row y. ok is false for an unnamed row or a row
// outside the grid.
func (g *Grid) Name(y int) (name string, ok bool) {
	if y < 0 || y >= g.Height() || g.names[y] == nil {
		return "", false
	}
	return *g.names[y], true
}

// Expand grows the grid so that (x, y) is inside it. New cells are empty and
// new rows are unnamed. Expand does not compact; callers that need the
// invariants restored call Shrink.
func (g *Grid) Expand(x, y int) error {
	if g.frozen {
		return g.errorf(ErrCodeFrozen, "Expand", x, y)
	}
	if x < 0 || y < 0 {
		return g.errorf(ErrCodeOutOfRange, "Expand", x, y)
	}
	g.expand(x, y)
	return nil
}

func (g *Grid) expand(x, y int) {
	height := max(g.Height(), y+1)
	for len(g.names) < height {
		g.names = append(g.names, nil)
	}
	for i := range g.cols {
		g.cols[i] = growColumn(g.cols[i], height)
	}
	for len(g.cols) <= x {
		g.cols = append(g.cols, make([]*Gate, height))
	}
}

func growColumn(col []*Gate, height int) []*Gate {
	if len(col) >= height {
		return col
	}
	return append(col, make([]*Gate, height-len(col))...)
}

// AddGate places gate at (x, y), expanding the grid when (x, y) lies outside
// it. If the cell is occupied, a new empty column is inserted at x and every
// column from x onward shifts one position right, so the previous occupant
// ends up at (x+1, y). The grid is shrunk afterwards.
func (g *Grid) AddGate(x, y int, gate Gate) error {
	if g.frozen {
		return g.errorf(ErrCodeFrozen, "AddGate", x, y)
	}
	if x < 0 || y < 0 {
		return g.errorf(ErrCodeOutOfRange, "AddGate", x, y)
	}

	g.expand(x, y)
	if g.cols[x][y] != nil {
		g.cols = slices.Insert(g.cols, x, make([]*Gate, g.Height()))
		g.metrics.collision()
	}

	placed := gate
	g.cols[x][y] = &placed
	g.Shrink()
	return nil
}

// AppendGate places gate in row y of a new column after the current last
// column. Equivalent to AddGate(g.Width(), y, gate).
func (g *Grid) AppendGate(y int, gate Gate) error {
	return g.AddGate(g.Width(), y, gate)
}

// RemoveAt clears the cell at (x, y) and returns the gate it held.
//
// Unless the removed gate belongs to a register argument, every other cell
// holding the same operation argument is cleared as well: the markers that
// together drew one multi-qubit gate disappear together. The grid is shrunk
// afterwards.
func (g *Grid) RemoveAt(x, y int) (Gate, error) {
	return g.removeAt("RemoveAt", x, y, false)
}

// removeAt implements RemoveAt. With moving set, no cascade and no shrink
// take place; the caller re-adds the gate immediately.
func (g *Grid) removeAt(op string, x, y int, moving bool) (Gate, error) {
	if g.frozen {
		return Gate{}, g.errorf(ErrCodeFrozen, op, x, y)
	}
	if x < 0 || y < 0 || x >= g.Width() || y >= g.Height() {
		return Gate{}, g.errorf(ErrCodeOutOfRange, op, x, y)
	}
	cell := g.cols[x][y]
	if cell == nil {
		return Gate{}, g.errorf(ErrCodeNotFound, op, x, y)
	}

	removed := *cell
	g.cols[x][y] = nil
	if moving {
		return removed, nil
	}

	if !removed.IsArgArray {
		for _, col := range g.cols {
			for row, c := range col {
				if c != nil && c.SameOperation(removed) {
					col[row] = nil
					g.metrics.cascadeRemoval()
				}
			}
		}
	}
	g.Shrink()
	return removed, nil
}

// MoveGate moves the gate at (xFrom, yFrom) to (xTo, yTo). The source cell
// is cleared without cascade; the gate is then added at the destination with
// the usual collision handling, expansion and shrink.
func (g *Grid) MoveGate(xFrom, yFrom, xTo, yTo int) error {
	if xTo < 0 || yTo < 0 {
		return g.errorf(ErrCodeOutOfRange, "MoveGate", xTo, yTo)
	}
	gate, err := g.removeAt("MoveGate", xFrom, yFrom, true)
	if err != nil {
		return err
	}
	return g.AddGate(xTo, yTo, gate)
}

// SetName names row y, expanding the grid when y lies below it.
func (g *Grid) SetName(y int, name string) error {
	if g.frozen {
		return g.errorf(ErrCodeFrozen, "SetName", 0, y)
	}
	if y < 0 {
		return g.errorf(ErrCodeOutOfRange, "SetName", 0, y)
	}
	g.expand(0, y)
	g.names[y] = &name
	g.Shrink()
	return nil
}

// Shrink restores the grid invariants: entirely empty columns are dropped
// and trailing rows that are unnamed and gate-free are truncated. Shrink is
// idempotent.
func (g *Grid) Shrink() {
	before := len(g.cols)
	g.cols = slices.DeleteFunc(g.cols, columnEmpty)
	g.metrics.columnsCompacted(before - len(g.cols))

	top := -1
	for y := range g.names {
		if g.names[y] != nil || g.rowHasGate(y) {
			top = y
		}
	}
	height := max(top+1, 1)

	if len(g.cols) == 0 {
		g.cols = [][]*Gate{make([]*Gate, height)}
	}
	g.names = g.names[:height]
	for i := range g.cols {
		g.cols[i] = g.cols[i][:height]
	}
}

func columnEmpty(col []*Gate) bool {
	for _, c := range col {
		if c != nil {
			return false
		}
	}
	return true
}

func (g *Grid) rowHasGate(y int) bool {
	for _, col := range g.cols {
		if y < len(col) && col[y] != nil {
			return true
		}
	}
	return false
}

// TrimUnnamed drops every row that is unnamed and holds no gate, wherever it
// is, and shifts the remaining rows up. A grid left without rows keeps one
// unnamed row.
func (g *Grid) TrimUnnamed() error {
	if g.frozen {
		return g.errorf(ErrCodeFrozen, "TrimUnnamed", 0, 0)
	}
	keep := make([]int, 0, g.Height())
	for y := range g.names {
		if g.names[y] != nil || g.rowHasGate(y) {
			keep = append(keep, y)
		}
	}
	g.permuteRows(keep)
	return nil
}

// SortRowsByName reorders rows by ascending name using plain string order,
// so "q[10]" sorts before "q[2]". Unnamed rows follow the named ones and
// keep their relative order.
func (g *Grid) SortRowsByName() error {
	if g.frozen {
		return g.errorf(ErrCodeFrozen, "SortRowsByName", 0, 0)
	}
	order := make([]int, g.Height())
	for y := range order {
		order[y] = y
	}
	slices.SortStableFunc(order, func(a, b int) int {
		na, nb := g.names[a], g.names[b]
		switch {
		case na == nil && nb == nil:
			return 0
		case na == nil:
			return 1
		case nb == nil:
			return -1
		}
		return cmp.Compare(*na, *nb)
	})
	g.permuteRows(order)
	return nil
}

// permuteRows rebuilds every column and the names so that new row i is old
// row order[i]. Rows missing from order are dropped.
func (g *Grid) permuteRows(order []int) {
	if len(order) == 0 {
		g.names = make([]*string, 1)
		for i := range g.cols {
			g.cols[i] = make([]*Gate, 1)
		}
		g.Shrink()
		return
	}

	names := make([]*string, len(order))
	for i, y := range order {
		names[i] = g.names[y]
	}
	g.names = names
	for x, col := range g.cols {
		rows := make([]*Gate, len(order))
		for i, y := range order {
			rows[i] = col[y]
		}
		g.cols[x] = rows
	}
	g.Shrink()
}

// Freeze marks the grid finished. Every later mutation fails with
// ErrCodeFrozen.
func (g *Grid) Freeze() {
	g.frozen = true
}

// Frozen reports whether the grid is finished.
func (g *Grid) Frozen() bool {
	return g.frozen
}

// Gates yields every occupied cell in row-major order: all columns of row 0,
// then row 1, and so on. The sequence is lazy and can be iterated again.
func (g *Grid) Gates() iter.Seq[Placement] {
	return func(yield func(Placement) bool) {
		for y := 0; y < g.Height(); y++ {
			for x := 0; x < g.Width(); x++ {
				c := g.cols[x][y]
				if c == nil {
					continue
				}
				if !yield(Placement{Gate: *c, X: x, Y: y}) {
					return
				}
			}
		}
	}
}

// Count returns the number of occupied cells.
func (g *Grid) Count() int {
	n := 0
	for range g.Gates() {
		n++
	}
	return n
}

// Equal reports whether g and other have the same height and, row by row,
// the same gates in the same columns. Row names are not compared.
func (g *Grid) Equal(other *Grid) bool {
	if g == nil || other == nil {
		return g == other
	}
	if g.Height() != other.Height() {
		return false
	}
	return slices.Equal(slices.Collect(g.Gates()), slices.Collect(other.Gates()))
}

// Hash returns a content hash over exactly the fields Equal compares, so
// equal grids hash equally.
func (g *Grid) Hash() string {
	placements := make([]any, 0)
	for p := range g.Gates() {
		placements = append(placements, map[string]any{
			"x":            p.X,
			"y":            p.Y,
			"name":         p.Gate.Name,
			"namespace":    p.Gate.Namespace,
			"arg_index":    p.Gate.ArgIndex,
			"is_arg_array": p.Gate.IsArgArray,
		})
	}
	return ir.MustContentHash(ir.DomainGrid, map[string]any{
		"height":     g.Height(),
		"placements": placements,
	})
}

// Clone returns an unfrozen deep copy that shares g's metrics.
func (g *Grid) Clone() *Grid {
	c := &Grid{
		cols:    make([][]*Gate, len(g.cols)),
		names:   slices.Clone(g.names),
		metrics: g.metrics,
	}
	for x, col := range g.cols {
		c.cols[x] = make([]*Gate, len(col))
		for y, cell := range col {
			if cell != nil {
				copied := *cell
				c.cols[x][y] = &copied
			}
		}
	}
	return c
}

// Export returns the row-major boundary representation of the grid.
func (g *Grid) Export() ir.GridExport {
	out := ir.GridExport{
		Width:  g.Width(),
		Height: g.Height(),
		Rows:   make([]ir.RowExport, g.Height()),
	}
	for y := range out.Rows {
		row := ir.RowExport{Cells: make([]*ir.CellExport, g.Width())}
		if n := g.names[y]; n != nil {
			name := *n
			row.Name = &name
		}
		for x := range row.Cells {
			if c := g.cols[x][y]; c != nil {
				row.Cells[x] = &ir.CellExport{
					Name:       c.Name,
					Namespace:  c.Namespace,
					ArgIndex:   c.ArgIndex,
					IsArgArray: c.IsArgArray,
				}
			}
		}
		out.Rows[y] = row
	}
	return out
}
