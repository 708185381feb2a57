// Package xssf holds the element tree of OOXML worksheet parts: the rows,
// cells and formulas of sheetData plus the sheet-level elements the grid
// needs, and a reader for the raw parts of an xlsx package.
package xssf

import (
	"encoding/xml"
	"sort"

	"github.com/xuri/excelize/v2"
)

// Cell types of the t attribute.
const (
	TypeNumber       = "n"
	TypeSharedString = "s"
	TypeBool         = "b"
	TypeError        = "e"
	TypeFormulaStr   = "str"
	TypeInlineString = "inlineStr"
	TypeDate         = "d"
)

// Formula types of the f element.
const (
	FormulaNormal = "normal"
	FormulaArray  = "array"
	FormulaShared = "shared"
)

// SheetData maps the sheetData element. Rows are kept sorted by R.
type SheetData struct {
	XMLName xml.Name `xml:"sheetData"`
	Rows    []*Row   `xml:"row"`
}

// Row maps the row element. R is one-based as in the XML.
type Row struct {
	R            int     `xml:"r,attr,omitempty"`
	Spans        string  `xml:"spans,attr,omitempty"`
	S            int     `xml:"s,attr,omitempty"`
	CustomFormat bool    `xml:"customFormat,attr,omitempty"`
	Ht           float64 `xml:"ht,attr,omitempty"`
	Hidden       bool    `xml:"hidden,attr,omitempty"`
	CustomHeight bool    `xml:"customHeight,attr,omitempty"`
	OutlineLevel uint8   `xml:"outlineLevel,attr,omitempty"`
	Collapsed    bool    `xml:"collapsed,attr,omitempty"`
	C            []*C    `xml:"c"`
}

// C maps the c element.
type C struct {
	R  string `xml:"r,attr,omitempty"`
	S  int    `xml:"s,attr,omitempty"`
	T  string `xml:"t,attr,omitempty"`
	F  *F     `xml:"f,omitempty"`
	V  string `xml:"v,omitempty"`
	IS *IS    `xml:"is,omitempty"`

	col int
}

// F maps the f element.
type F struct {
	Content string `xml:",chardata"`
	T       string `xml:"t,attr,omitempty"`
	Ref     string `xml:"ref,attr,omitempty"`
	Si      *int   `xml:"si,attr"`
}

// IS maps an inline string; rich runs are flattened.
type IS struct {
	T string `xml:"t,omitempty"`
	R []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

// Text returns the plain text of an inline string.
func (is *IS) Text() string {
	if is == nil {
		return ""
	}
	text := is.T
	for _, r := range is.R {
		text += r.T
	}
	return text
}

// search returns the position of row r (one-based) and whether it exists.
func (d *SheetData) search(r int) (int, bool) {
	i := sort.Search(len(d.Rows), func(i int) bool { return d.Rows[i].R >= r })
	return i, i < len(d.Rows) && d.Rows[i].R == r
}

// Row returns the row element with one-based index r, or nil.
func (d *SheetData) Row(r int) *Row {
	if i, ok := d.search(r); ok {
		return d.Rows[i]
	}
	return nil
}

// Insert adds row at its sorted position, replacing any row with the same
// index. Rows past the current last row are appended without a search.
func (d *SheetData) Insert(row *Row) {
	if n := len(d.Rows); n == 0 || d.Rows[n-1].R < row.R {
		d.Rows = append(d.Rows, row)
		return
	}
	i, ok := d.search(row.R)
	if ok {
		d.Rows[i] = row
		return
	}
	d.Rows = append(d.Rows, nil)
	copy(d.Rows[i+1:], d.Rows[i:])
	d.Rows[i] = row
}

// Remove drops the row with one-based index r.
func (d *SheetData) Remove(r int) {
	if i, ok := d.search(r); ok {
		d.Rows = append(d.Rows[:i], d.Rows[i+1:]...)
	}
}

// Normalize assigns missing row and cell positions and sorts both levels.
// Producers may omit r attributes; positions then follow document order.
func (d *SheetData) Normalize() error {
	next := 1
	for _, row := range d.Rows {
		if row.R == 0 {
			row.R = next
		}
		next = row.R + 1
		col := 0
		for _, c := range row.C {
			if c.R == "" {
				c.col = col
			} else {
				x, _, err := excelize.CellNameToCoordinates(c.R)
				if err != nil {
					return err
				}
				c.col = x - 1
			}
			col = c.col + 1
		}
		sort.SliceStable(row.C, func(i, j int) bool { return row.C[i].col < row.C[j].col })
		row.Renumber()
	}
	sort.SliceStable(d.Rows, func(i, j int) bool { return d.Rows[i].R < d.Rows[j].R })
	return nil
}

// Col returns the zero-based column of the cell.
func (c *C) Col() int { return c.col }

// NewCell returns an empty cell element at zero-based column col.
func NewCell(col int) *C {
	return &C{col: col}
}

// Renumber rewrites the r attribute of every cell after the row moved.
func (row *Row) Renumber() {
	for _, c := range row.C {
		c.R, _ = excelize.CoordinatesToCellName(c.col+1, row.R)
	}
}

func (row *Row) searchCell(col int) (int, bool) {
	i := sort.Search(len(row.C), func(i int) bool { return row.C[i].col >= col })
	return i, i < len(row.C) && row.C[i].col == col
}

// Cell returns the cell at zero-based column col, or nil.
func (row *Row) Cell(col int) *C {
	if i, ok := row.searchCell(col); ok {
		return row.C[i]
	}
	return nil
}

// InsertCell places c at its sorted position, replacing a cell in the same
// column.
func (row *Row) InsertCell(c *C) {
	c.R, _ = excelize.CoordinatesToCellName(c.col+1, row.R)
	if n := len(row.C); n == 0 || row.C[n-1].col < c.col {
		row.C = append(row.C, c)
		return
	}
	i, ok := row.searchCell(c.col)
	if ok {
		row.C[i] = c
		return
	}
	row.C = append(row.C, nil)
	copy(row.C[i+1:], row.C[i:])
	row.C[i] = c
}

// RemoveCell drops the cell at zero-based column col.
func (row *Row) RemoveCell(col int) {
	if i, ok := row.searchCell(col); ok {
		row.C = append(row.C[:i], row.C[i+1:]...)
	}
}

// MoveCell re-keys c to column col within the row.
func (row *Row) MoveCell(c *C, col int) {
	row.RemoveCell(c.col)
	c.col = col
	row.InsertCell(c)
}
