// Package cellref provides zero-based cell references, rectangular ranges and
// the grid limits of each spreadsheet file format.
package cellref

import "github.com/xuri/excelize/v2"

// Version describes the grid limits of one spreadsheet file format.
type Version struct {
	// Name is a short label used in error messages.
	Name string
	// MaxRows is the number of addressable rows.
	MaxRows int
	// MaxColumns is the number of addressable columns.
	MaxColumns int
	// MaxCellStyles is the largest number of cell formats the format stores.
	MaxCellStyles int
	// MaxTextLength is the longest string a cell may hold.
	MaxTextLength int
	// MaxColumnWidth is the widest column in character units.
	MaxColumnWidth int
	// MaxOutlineLevel is the deepest row or column group.
	MaxOutlineLevel int
}

var (
	// Excel97 holds the limits of the BIFF8 binary format.
	Excel97 = Version{
		Name:            "BIFF8",
		MaxRows:         65536,
		MaxColumns:      256,
		MaxCellStyles:   4030,
		MaxTextLength:   32767,
		MaxColumnWidth:  255,
		MaxOutlineLevel: 7,
	}
	// Excel2007 holds the limits of the OOXML format.
	Excel2007 = Version{
		Name:            "OOXML",
		MaxRows:         excelize.TotalRows,
		MaxColumns:      excelize.MaxColumns,
		MaxCellStyles:   64000,
		MaxTextLength:   excelize.TotalCellChars,
		MaxColumnWidth:  excelize.MaxColumnWidth,
		MaxOutlineLevel: 7,
	}
)

// LastRowIndex returns the zero-based index of the last addressable row.
func (v Version) LastRowIndex() int {
	return v.MaxRows - 1
}

// LastColumnIndex returns the zero-based index of the last addressable column.
func (v Version) LastColumnIndex() int {
	return v.MaxColumns - 1
}

// ValidRow reports whether row is addressable.
func (v Version) ValidRow(row int) bool {
	return row >= 0 && row < v.MaxRows
}

// ValidColumn reports whether col is addressable.
func (v Version) ValidColumn(col int) bool {
	return col >= 0 && col < v.MaxColumns
}
