package cellref

import (
	"fmt"
	"strings"
)

// Range is an inclusive rectangle of cells with zero-based bounds.
type Range struct {
	FirstRow int
	LastRow  int
	FirstCol int
	LastCol  int
}

// NewRange returns a range with its corners normalised.
func NewRange(firstRow, lastRow, firstCol, lastCol int) Range {
	if firstRow > lastRow {
		firstRow, lastRow = lastRow, firstRow
	}
	if firstCol > lastCol {
		firstCol, lastCol = lastCol, firstCol
	}
	return Range{FirstRow: firstRow, LastRow: lastRow, FirstCol: firstCol, LastCol: lastCol}
}

// ParseRange parses "A1:C3" or a single cell "B2". Absolute markers are ignored.
func ParseRange(s string) (Range, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) > 2 || parts[0] == "" {
		return Range{}, fmt.Errorf("%w %q", ErrInvalidReference, s)
	}
	first, err := ParseCellRef(parts[0])
	if err != nil {
		return Range{}, err
	}
	last := first
	if len(parts) == 2 {
		if last, err = ParseCellRef(parts[1]); err != nil {
			return Range{}, err
		}
	}
	return NewRange(first.Row, last.Row, first.Col, last.Col), nil
}

// MustRange is ParseRange for literals known to be valid.
func MustRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

// String formats the range in A1 notation; single cells omit the colon.
func (r Range) String() string {
	first := CellRef{Row: r.FirstRow, Col: r.FirstCol}.String()
	if r.IsSingleCell() {
		return first
	}
	return first + ":" + CellRef{Row: r.LastRow, Col: r.LastCol}.String()
}

// AbsString formats the range with every component anchored.
func (r Range) AbsString() string {
	first := CellRef{Row: r.FirstRow, Col: r.FirstCol, RowAbs: true, ColAbs: true}.String()
	if r.IsSingleCell() {
		return first
	}
	return first + ":" + CellRef{Row: r.LastRow, Col: r.LastCol, RowAbs: true, ColAbs: true}.String()
}

// IsSingleCell reports whether the range covers exactly one cell.
func (r Range) IsSingleCell() bool {
	return r.FirstRow == r.LastRow && r.FirstCol == r.LastCol
}

// NumCells returns the number of cells covered.
func (r Range) NumCells() int {
	return (r.LastRow - r.FirstRow + 1) * (r.LastCol - r.FirstCol + 1)
}

// Contains reports whether the cell at (row, col) lies inside the range.
func (r Range) Contains(row, col int) bool {
	return row >= r.FirstRow && row <= r.LastRow && col >= r.FirstCol && col <= r.LastCol
}

// ContainsRow reports whether row lies within the row span.
func (r Range) ContainsRow(row int) bool {
	return row >= r.FirstRow && row <= r.LastRow
}

// ContainsColumn reports whether col lies within the column span.
func (r Range) ContainsColumn(col int) bool {
	return col >= r.FirstCol && col <= r.LastCol
}

// Intersects reports whether two ranges share at least one cell.
func (r Range) Intersects(o Range) bool {
	return r.FirstRow <= o.LastRow && o.FirstRow <= r.LastRow &&
		r.FirstCol <= o.LastCol && o.FirstCol <= r.LastCol
}

// Validate checks the range against the limits of v.
func (r Range) Validate(v Version) error {
	if r.FirstRow < 0 || r.FirstCol < 0 {
		return fmt.Errorf("%w: negative bound in %v", ErrInvalidReference, r)
	}
	if r.LastRow > v.LastRowIndex() {
		return fmt.Errorf("%w: row %d exceeds %s limit %d", ErrInvalidReference, r.LastRow+1, v.Name, v.MaxRows)
	}
	if r.LastCol > v.LastColumnIndex() {
		return fmt.Errorf("%w: column %d exceeds %s limit %d", ErrInvalidReference, r.LastCol+1, v.Name, v.MaxColumns)
	}
	return nil
}
