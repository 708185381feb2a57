package cellref

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrInvalidReference indicates a malformed A1 reference.
var ErrInvalidReference = errors.New("invalid cell reference")

// CellRef is a zero-based cell address with optional absolute markers.
type CellRef struct {
	// Row is the zero-based row index.
	Row int
	// Col is the zero-based column index.
	Col int
	// RowAbs marks a $-anchored row.
	RowAbs bool
	// ColAbs marks a $-anchored column.
	ColAbs bool
}

// ParseCellRef parses an A1 style reference such as "B7" or "$C$3".
func ParseCellRef(s string) (CellRef, error) {
	var ref CellRef
	name := strings.TrimSpace(s)
	if strings.HasPrefix(name, "$") {
		ref.ColAbs = true
		name = name[1:]
	}
	if i := strings.IndexByte(name, '$'); i > 0 {
		ref.RowAbs = true
		name = name[:i] + name[i+1:]
	}
	col, row, err := excelize.CellNameToCoordinates(name)
	if err != nil {
		return CellRef{}, fmt.Errorf("%w %q: %v", ErrInvalidReference, s, err)
	}
	ref.Row, ref.Col = row-1, col-1
	return ref, nil
}

// MustCellRef is ParseCellRef for literals known to be valid.
func MustCellRef(s string) CellRef {
	ref, err := ParseCellRef(s)
	if err != nil {
		panic(err)
	}
	return ref
}

// String formats the reference in A1 notation.
func (r CellRef) String() string {
	col, err := excelize.ColumnNumberToName(r.Col + 1)
	if err != nil {
		return "#REF!"
	}
	var b strings.Builder
	if r.ColAbs {
		b.WriteByte('$')
	}
	b.WriteString(col)
	if r.RowAbs {
		b.WriteByte('$')
	}
	fmt.Fprintf(&b, "%d", r.Row+1)
	return b.String()
}

// ColumnName converts a zero-based column index to letters.
func ColumnName(col int) string {
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return ""
	}
	return name
}

// ColumnIndex converts column letters to a zero-based index.
func ColumnIndex(name string) (int, error) {
	col, err := excelize.ColumnNameToNumber(name)
	if err != nil {
		return -1, fmt.Errorf("%w %q: %v", ErrInvalidReference, name, err)
	}
	return col - 1, nil
}
