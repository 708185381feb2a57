package models

// SheetData represents the structured content of a single sheet.
type SheetData struct {
	// Name is the sheet name.
	Name string `json:"name"`
	// Visibility is "visible", "hidden" or "very_hidden".
	Visibility string `json:"visibility"`
	// Rows contains the rows that hold cells, in ascending order.
	Rows []CellRow `json:"rows,omitempty"`
	// Columns contains the columns with non-default attributes.
	Columns []Column `json:"columns,omitempty"`
	// MergedRegions lists merged ranges in A1 form.
	MergedRegions []string `json:"merged_regions,omitempty"`
	// ArrayFormulas lists the ranges of array formulas.
	ArrayFormulas []string `json:"array_formulas,omitempty"`
	// PrintAreas contains user-defined print areas.
	PrintAreas []PrintArea `json:"print_areas,omitempty"`
	// Freeze is the top-left cell of the scrolling pane, empty when no
	// pane is frozen.
	Freeze string `json:"freeze,omitempty"`
	// Protected reports sheet protection.
	Protected bool `json:"protected,omitempty"`
	// Comments maps cell references to note texts.
	Comments map[string]string `json:"comments,omitempty"`
}

// Column holds the attributes of one column.
type Column struct {
	// C is the column index (1-based).
	C int `json:"c"`
	// Width is in characters; zero means the sheet default.
	Width        float64 `json:"width,omitempty"`
	Hidden       bool    `json:"hidden,omitempty"`
	OutlineLevel int     `json:"outline_level,omitempty"`
}
