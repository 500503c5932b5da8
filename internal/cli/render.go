package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/roach88/qtrace/internal/ir"
)

var (
	rowNameColor = color.New(color.FgCyan)
	gateColor    = color.New(color.FgYellow)
	headerColor  = color.New(color.Bold)
)

const (
	unnamedRow = "-"
	emptyCell  = "."
)

// cellLabel is the text drawn for one gate: its short name, with the argument
// index when it is not the first and a "*" for register arguments.
func cellLabel(c *ir.CellExport) string {
	if c == nil {
		return emptyCell
	}
	label := c.Name
	if c.ArgIndex > 0 {
		label = fmt.Sprintf("%s:%d", label, c.ArgIndex)
	}
	if c.IsArgArray {
		label += "*"
	}
	return label
}

// renderGrid draws g as text, one line per row, columns aligned by display
// width. Padding is computed on the plain text before color is applied.
func renderGrid(w io.Writer, g ir.GridExport) {
	nameWidth := runewidth.StringWidth(unnamedRow)
	for _, r := range g.Rows {
		if r.Name != nil {
			nameWidth = max(nameWidth, runewidth.StringWidth(*r.Name))
		}
	}

	colWidths := make([]int, g.Width)
	for x := range colWidths {
		colWidths[x] = runewidth.StringWidth(emptyCell)
		for _, r := range g.Rows {
			if x < len(r.Cells) {
				colWidths[x] = max(colWidths[x], runewidth.StringWidth(cellLabel(r.Cells[x])))
			}
		}
	}

	for _, r := range g.Rows {
		var b strings.Builder
		name := unnamedRow
		if r.Name != nil {
			name = *r.Name
		}
		b.WriteString("  ")
		b.WriteString(rowNameColor.Sprint(runewidth.FillRight(name, nameWidth)))
		b.WriteString(" |")
		for x, width := range colWidths {
			var c *ir.CellExport
			if x < len(r.Cells) {
				c = r.Cells[x]
			}
			text := runewidth.FillRight(cellLabel(c), width)
			b.WriteByte(' ')
			if c != nil {
				b.WriteString(gateColor.Sprint(text))
			} else {
				b.WriteString(text)
			}
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
}

// renderOperations draws every grid of every operation.
func renderOperations(w io.Writer, ops []OperationReport) {
	if len(ops) == 0 {
		fmt.Fprintln(w, "  (no grids)")
		return
	}
	for _, op := range ops {
		for _, g := range op.Grids {
			fmt.Fprintf(w, "%s [%d] %dx%d %s\n",
				headerColor.Sprint(op.Name), g.Invocation, g.Grid.Width, g.Grid.Height, shortHash(g.Hash))
			renderGrid(w, g.Grid)
			fmt.Fprintln(w)
		}
	}
}

// shortHash trims a domain-prefixed hash for display.
func shortHash(h string) string {
	if i := strings.LastIndexByte(h, ':'); i >= 0 {
		h = h[i+1:]
	}
	if len(h) > 12 {
		h = h[:12]
	}
	return h
}

// renderReport draws a trace or replay report.
func renderReport(w io.Writer, report TraceReport) {
	if report.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", report.RunID)
	}
	if report.Label != "" {
		fmt.Fprintf(w, "Label: %s\n", report.Label)
	}
	fmt.Fprintf(w, "Config: %s\n", shortHash(report.ConfigHash))
	status := "complete"
	if !report.Complete {
		status = "incomplete"
	}
	fmt.Fprintf(w, "Status: %s\n", status)
	if report.ErrorCode != "" {
		fmt.Fprintf(w, "Error: %s\n", report.Error)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Grids ===")
	renderOperations(w, report.Operations)

	s := report.Stats
	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Starts:       %d\n", s.Starts)
	fmt.Fprintf(w, "  Ends:         %d\n", s.Ends)
	fmt.Fprintf(w, "  Stale ends:   %d\n", s.StaleEnds)
	fmt.Fprintf(w, "  Skipped:      %d\n", s.Skipped)
	fmt.Fprintf(w, "  Allocations:  %d\n", s.Allocations)
	fmt.Fprintf(w, "  Tags:         %d\n", s.Tags)
	fmt.Fprintf(w, "  Gates placed: %d\n", s.GatesPlaced)

	if len(report.Metrics) > 0 {
		fmt.Fprintln(w, "=== Metrics ===")
		for _, name := range slices.Sorted(maps.Keys(report.Metrics)) {
			fmt.Fprintf(w, "  %s %g\n", name, report.Metrics[name])
		}
	}
}
