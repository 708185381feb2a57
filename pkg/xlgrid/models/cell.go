// Package models defines the JSON snapshot of a workbook.
package models

// CellRow represents a single row of cells with optional hyperlinks and
// formulas.
type CellRow struct {
	// R is the row index (1-based).
	R int `json:"r"`
	// Height is the row height in points, omitted for the default height.
	Height float64 `json:"height,omitempty"`
	// Hidden reports a zero-height row.
	Hidden bool `json:"hidden,omitempty"`
	// OutlineLevel is the grouping depth of the row.
	OutlineLevel int `json:"outline_level,omitempty"`
	// C maps column index (string) to cell value.
	C map[string]any `json:"c"`
	// Formulas maps column index to formula text (optional).
	Formulas map[string]string `json:"formulas,omitempty"`
	// Links maps column index to hyperlink target (optional).
	Links map[string]string `json:"links,omitempty"`
}
