package formula

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/cellref"
)

// Ref is a parsed cell, area, whole-row or whole-column reference operand.
// Indices are zero-based; a component that is not present is -1.
type Ref struct {
	// Sheet is the qualifying sheet name, empty for local references.
	Sheet string
	Row1  int
	Col1  int
	Row2  int
	Col2  int
	// AbsRow1, AbsCol1, AbsRow2 and AbsCol2 mark $-anchored components.
	AbsRow1 bool
	AbsCol1 bool
	AbsRow2 bool
	AbsCol2 bool
	// Area is set for two-part references such as A1:B2, A:A or 1:3.
	Area bool
}

// WholeColumns reports whether the reference spans entire columns (A:C).
func (r Ref) WholeColumns() bool { return r.Row1 < 0 }

// WholeRows reports whether the reference spans entire rows (1:3).
func (r Ref) WholeRows() bool { return r.Col1 < 0 }

type refPart struct {
	row, col       int
	absRow, absCol bool
}

// parsePart parses "$A$1", "A", "$3" and friends. Column letters are limited
// to the widest supported grid.
func parsePart(s string) (refPart, bool) {
	p := refPart{row: -1, col: -1}
	i := 0
	if i < len(s) && s[i] == '$' {
		p.absCol = true
		i++
	}
	j := i
	for j < len(s) && isLetter(s[j]) {
		j++
	}
	if j > i {
		if j-i > 3 {
			return p, false
		}
		col, err := cellref.ColumnIndex(s[i:j])
		if err != nil {
			return p, false
		}
		p.col = col
	} else if p.absCol {
		// "$3": the marker belonged to the row.
		p.absCol, p.absRow = false, true
	}
	i = j
	if i < len(s) && s[i] == '$' {
		if p.col < 0 {
			return p, false
		}
		p.absRow = true
		i++
	}
	if i < len(s) {
		digits := s[i:]
		for k := 0; k < len(digits); k++ {
			if digits[k] < '0' || digits[k] > '9' {
				return p, false
			}
		}
		row, err := strconv.Atoi(digits)
		if err != nil || row < 1 || row > cellref.Excel2007.MaxRows {
			return p, false
		}
		p.row = row - 1
	} else if p.absRow && p.col >= 0 {
		return p, false
	}
	if p.row < 0 && p.col < 0 {
		return p, false
	}
	return p, true
}

func isLetter(c byte) bool {
	return ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z')
}

// ParseRef parses a range operand as produced by the tokenizer. Defined names,
// external references and structured references are reported as not a Ref.
func ParseRef(operand string) (Ref, bool) {
	if strings.ContainsAny(operand, "[]") {
		return Ref{}, false
	}
	var ref Ref
	body := operand
	if i := strings.LastIndexByte(operand, '!'); i >= 0 {
		ref.Sheet = strings.Trim(operand[:i], "'")
		body = operand[i+1:]
		if ref.Sheet == "" {
			return Ref{}, false
		}
	}
	parts := strings.Split(body, ":")
	if len(parts) > 2 {
		return Ref{}, false
	}
	first, ok := parsePart(parts[0])
	if !ok {
		return Ref{}, false
	}
	if len(parts) == 1 {
		if first.row < 0 || first.col < 0 {
			return Ref{}, false
		}
		ref.Row1, ref.Col1, ref.AbsRow1, ref.AbsCol1 = first.row, first.col, first.absRow, first.absCol
		ref.Row2, ref.Col2, ref.AbsRow2, ref.AbsCol2 = first.row, first.col, first.absRow, first.absCol
		return ref, true
	}
	// Sheet1!A1:Sheet1!B2 is tolerated when both sheets agree.
	second := parts[1]
	if i := strings.LastIndexByte(second, '!'); i >= 0 {
		if !strings.EqualFold(strings.Trim(second[:i], "'"), ref.Sheet) {
			return Ref{}, false
		}
		second = second[i+1:]
	}
	last, ok := parsePart(second)
	if !ok {
		return Ref{}, false
	}
	if (first.row < 0) != (last.row < 0) || (first.col < 0) != (last.col < 0) {
		return Ref{}, false
	}
	ref.Area = true
	ref.Row1, ref.Col1, ref.AbsRow1, ref.AbsCol1 = first.row, first.col, first.absRow, first.absCol
	ref.Row2, ref.Col2, ref.AbsRow2, ref.AbsCol2 = last.row, last.col, last.absRow, last.absCol
	return ref, true
}

// String renders the reference in A1 notation, quoting the sheet name when
// needed.
func (r Ref) String() string {
	var b strings.Builder
	if r.Sheet != "" {
		b.WriteString(QuoteSheetName(r.Sheet))
		b.WriteByte('!')
	}
	writePart(&b, r.Row1, r.Col1, r.AbsRow1, r.AbsCol1)
	if r.Area {
		b.WriteByte(':')
		writePart(&b, r.Row2, r.Col2, r.AbsRow2, r.AbsCol2)
	}
	return b.String()
}

func writePart(b *strings.Builder, row, col int, absRow, absCol bool) {
	if col >= 0 {
		if absCol {
			b.WriteByte('$')
		}
		b.WriteString(cellref.ColumnName(col))
	}
	if row >= 0 {
		if absRow {
			b.WriteByte('$')
		}
		b.WriteString(strconv.Itoa(row + 1))
	}
}

// RefError renders the #REF! replacement for r, keeping its sheet qualifier.
func (r Ref) RefError() string {
	if r.Sheet != "" {
		return QuoteSheetName(r.Sheet) + "!#REF!"
	}
	return "#REF!"
}

// QuoteSheetName encloses a sheet name in single quotes when it contains
// anything other than letters, digits, '.' and '_'.
func QuoteSheetName(name string) string {
	if strings.IndexFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '_' && r != '.'
	}) != -1 || looksLikeCell(name) {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

// looksLikeCell catches names such as "A1" or "R2" that would be misread as
// references when unquoted.
func looksLikeCell(name string) bool {
	p, ok := parsePart(name)
	return ok && p.row >= 0 && p.col >= 0
}

// SplitSheet separates an optional sheet qualifier from an operand.
func SplitSheet(operand string) (sheet, rest string) {
	if i := strings.Index(operand, "!#"); i >= 0 {
		return strings.Trim(operand[:i], "'"), operand[i+1:]
	}
	if i := strings.LastIndexByte(operand, '!'); i >= 0 {
		return strings.Trim(operand[:i], "'"), operand[i+1:]
	}
	return "", operand
}
