package ir

// CellExport is one occupied grid cell at the serializer boundary.
type CellExport struct {
	Name       string `json:"name"`
	Namespace  string `json:"namespace"`
	ArgIndex   int    `json:"arg_index"`
	IsArgArray bool   `json:"is_arg_array"`
}

// RowExport is one qubit row. Name is nil for a row that was never named;
// Cells has one entry per column, nil for an empty cell.
type RowExport struct {
	Name  *string       `json:"name"`
	Cells []*CellExport `json:"cells"`
}

// GridExport is the row-major representation of a finished grid handed to
// an external serializer.
type GridExport struct {
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Rows   []RowExport `json:"rows"`
}

// CanonicalMap converts the export to a map for canonical JSON. Canonical
// JSON has no null, so an unnamed row omits "name" and an empty cell is {}.
func (g GridExport) CanonicalMap() map[string]any {
	rows := make([]any, len(g.Rows))
	for i, r := range g.Rows {
		cells := make([]any, len(r.Cells))
		for j, c := range r.Cells {
			if c == nil {
				cells[j] = map[string]any{}
				continue
			}
			cells[j] = map[string]any{
				"name":         c.Name,
				"namespace":    c.Namespace,
				"arg_index":    c.ArgIndex,
				"is_arg_array": c.IsArgArray,
			}
		}
		row := map[string]any{"cells": cells}
		if r.Name != nil {
			row["name"] = *r.Name
		}
		rows[i] = row
	}
	return map[string]any{
		"width":  g.Width,
		"height": g.Height,
		"rows":   rows,
	}
}

// RowNames returns the row names, with "" for unnamed rows.
func (g GridExport) RowNames() []string {
	names := make([]string, len(g.Rows))
	for i, r := range g.Rows {
		if r.Name != nil {
			names[i] = *r.Name
		}
	}
	return names
}
