package models

// WorkbookData is a JSON snapshot of a workbook.
type WorkbookData struct {
	// BookName is the workbook file name (no path).
	BookName string `json:"book_name"`
	// Format is "xls" or "xlsx".
	Format string `json:"format"`
	// Date1904 reports the 1904 date system.
	Date1904 bool `json:"date1904,omitempty"`
	// ActiveSheet is the zero-based index of the selected tab.
	ActiveSheet int `json:"active_sheet"`
	// Sheets lists the sheets in tab order.
	Sheets []SheetData `json:"sheets"`
	// Names lists the defined names.
	Names []DefinedName `json:"names,omitempty"`
	// Properties holds the non-empty document properties.
	Properties map[string]string `json:"properties,omitempty"`
}

// DefinedName is one named formula.
type DefinedName struct {
	Name     string `json:"name"`
	RefersTo string `json:"refers_to"`
	// Sheet is the sheet the name is local to; empty for workbook names.
	Sheet  string `json:"sheet,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
}
