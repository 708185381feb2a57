package xlgrid

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/biff"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/cellref"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/formula"
)

// ErrorValue is an error literal such as "#DIV/0!" used as a cached formula
// result.
type ErrorValue string

// Cell is one cell of a row. Cells returned by different lookups alias the
// same record.
type Cell struct {
	row   *Row
	store cellStore
}

// Row returns the row holding the cell, nil once the cell was removed.
func (c *Cell) Row() *Row { return c.row }

// Sheet returns the sheet holding the cell.
func (c *Cell) Sheet() *Sheet {
	if c.row == nil {
		return nil
	}
	return c.row.sheet
}

// RowIndex returns the zero-based row of the cell.
func (c *Cell) RowIndex() int {
	if c.row == nil {
		return -1
	}
	return c.row.RowNum()
}

// ColumnIndex returns the zero-based column of the cell.
func (c *Cell) ColumnIndex() int { return c.store.column() }

// Address returns the A1 reference of the cell.
func (c *Cell) Address() cellref.CellRef {
	return cellref.CellRef{Row: c.RowIndex(), Col: c.ColumnIndex()}
}

func (c *Cell) sheetName() string {
	if sh := c.Sheet(); sh != nil {
		return sh.name
	}
	return ""
}

// Type returns the kind of value the cell holds.
func (c *Cell) Type() CellType {
	return c.store.value().Type
}

// CachedFormulaResultType returns the kind of the last result of a formula
// cell, CellBlank for other cells.
func (c *Cell) CachedFormulaResultType() CellType {
	v := c.store.value()
	if v.Type != CellFormula {
		return CellBlank
	}
	return v.Cached
}

// valueOf returns the effective scalar: the value itself, or the cached
// result of a formula.
func (c *Cell) valueOf() cellValue {
	v := c.store.value()
	if v.Type == CellFormula {
		v.Type = v.Cached
	}
	return v
}

// NumericValue returns the number held by a numeric cell or cached by a
// formula; 0 otherwise.
func (c *Cell) NumericValue() float64 {
	if v := c.valueOf(); v.Type == CellNumeric {
		return v.Num
	}
	return 0
}

// StringValue returns the text held by a string cell or cached by a
// formula; "" otherwise.
func (c *Cell) StringValue() string {
	if v := c.valueOf(); v.Type == CellString {
		return v.Str
	}
	return ""
}

// BoolValue returns the value of a boolean cell or cached boolean result.
func (c *Cell) BoolValue() bool {
	v := c.valueOf()
	return v.Type == CellBoolean && v.Bool
}

// ErrorValue returns the error literal of an error cell or cached error
// result.
func (c *Cell) ErrorValue() string {
	if v := c.valueOf(); v.Type == CellError {
		return v.Err
	}
	return ""
}

// Text renders the value, or the cached formula result, as plain text
// without applying the number format.
func (c *Cell) Text() string {
	v := c.valueOf()
	switch v.Type {
	case CellNumeric:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case CellString:
		return v.Str
	case CellBoolean:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case CellError:
		return v.Err
	}
	return ""
}

// Formula returns the formula text without '=', or "" for other cells.
// Members of an array formula return the array formula; dependents of a
// shared formula return the master formula moved to their position.
func (c *Cell) Formula() string {
	v := c.store.value()
	if v.Type != CellFormula {
		return ""
	}
	if v.Formula != "" {
		return v.Formula
	}
	sh := c.Sheet()
	if sh == nil {
		return ""
	}
	row, col := c.RowIndex(), c.ColumnIndex()
	if a := sh.arrayAt(row, col); a != nil {
		return a.formula
	}
	if g := sh.sharedAt(row, col); g != nil {
		return sh.resolveShared(g, row, col)
	}
	return ""
}

// IsPartOfArrayFormulaGroup reports whether the cell lies in the range of
// an array formula.
func (c *Cell) IsPartOfArrayFormulaGroup() bool {
	sh := c.Sheet()
	return sh != nil && sh.arrayAt(c.RowIndex(), c.ColumnIndex()) != nil
}

// ArrayFormulaRange returns the range of the array formula covering the
// cell.
func (c *Cell) ArrayFormulaRange() (cellref.Range, bool) {
	if sh := c.Sheet(); sh != nil {
		if a := sh.arrayAt(c.RowIndex(), c.ColumnIndex()); a != nil {
			return a.rng, true
		}
	}
	return cellref.Range{}, false
}

// IsSharedFormulaDependent reports whether the formula of the cell comes
// from the master of a shared formula.
func (c *Cell) IsSharedFormulaDependent() bool {
	sh := c.Sheet()
	if sh == nil {
		return false
	}
	v := c.store.value()
	return v.Type == CellFormula && v.Formula == "" && sh.sharedAt(c.RowIndex(), c.ColumnIndex()) != nil &&
		sh.arrayAt(c.RowIndex(), c.ColumnIndex()) == nil
}

// checkEditable fails for a removed cell and for any cell of a multi-cell
// array formula.
func (c *Cell) checkEditable(op string) error {
	sh := c.Sheet()
	if sh == nil {
		return newOpError("", op, ErrArgument, "cell was removed from its sheet")
	}
	if a := sh.multiArrayAt(c.RowIndex(), c.ColumnIndex()); a != nil {
		return newOpError(sh.name, op, ErrArrayFormula, "cell %s is part of array formula %s", c.Address(), a.rng)
	}
	return nil
}

// prepareEdit validates an edit of the value and detaches the cell from
// shared structures: a shared formula it is master of is expanded and a
// single-cell array formula it holds is dropped.
func (c *Cell) prepareEdit(op string) error {
	if err := c.checkEditable(op); err != nil {
		return err
	}
	sh := c.Sheet()
	row, col := c.RowIndex(), c.ColumnIndex()
	sh.releaseCell(row, col)
	if a := sh.arrayAt(row, col); a != nil {
		sh.removeArray(a)
	}
	return nil
}

// SetNumericValue stores a number.
func (c *Cell) SetNumericValue(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return newOpError(c.sheetName(), "setCellValue", ErrArgument, "%v is not storable", v)
	}
	if err := c.prepareEdit("setCellValue"); err != nil {
		return err
	}
	c.store.setValue(cellValue{Type: CellNumeric, Num: v})
	return nil
}

// SetStringValue stores text through the shared string table.
func (c *Cell) SetStringValue(s string) error {
	if sh := c.Sheet(); sh != nil {
		if limit := sh.wb.version.MaxTextLength; len([]rune(s)) > limit {
			return newOpError(sh.name, "setCellValue", ErrArgument, "text of %d characters exceeds %d", len([]rune(s)), limit)
		}
	}
	if err := c.prepareEdit("setCellValue"); err != nil {
		return err
	}
	c.store.setValue(cellValue{Type: CellString, Str: s})
	return nil
}

// SetBoolValue stores a boolean.
func (c *Cell) SetBoolValue(b bool) error {
	if err := c.prepareEdit("setCellValue"); err != nil {
		return err
	}
	c.store.setValue(cellValue{Type: CellBoolean, Bool: b})
	return nil
}

func checkErrorLiteral(op, sheet, code string) error {
	if _, ok := biff.ErrorCode(code); !ok {
		return newOpError(sheet, op, ErrArgument, "unknown error literal %q", code)
	}
	return nil
}

// SetErrorValue stores an error literal such as "#N/A".
func (c *Cell) SetErrorValue(code string) error {
	if err := checkErrorLiteral("setCellValue", c.sheetName(), code); err != nil {
		return err
	}
	if err := c.prepareEdit("setCellValue"); err != nil {
		return err
	}
	c.store.setValue(cellValue{Type: CellError, Err: code})
	return nil
}

// SetBlank clears the value and keeps the style.
func (c *Cell) SetBlank() error {
	if err := c.prepareEdit("setBlank"); err != nil {
		return err
	}
	c.store.setValue(cellValue{Type: CellBlank})
	return nil
}

// SetFormula stores a formula; a leading '=' is dropped. The cached result
// of a previous formula is kept, other values are replaced by 0.
func (c *Cell) SetFormula(f string) error {
	sh := c.Sheet()
	if sh == nil {
		return newOpError("", "setFormula", ErrArgument, "cell was removed from its sheet")
	}
	text, err := normalizeFormula(sh.wb.parser, f)
	if err != nil {
		return &OperationError{Sheet: sh.name, Op: "setFormula", Err: err}
	}
	if err := c.prepareEdit("setFormula"); err != nil {
		return err
	}
	v := c.store.value()
	if v.Type != CellFormula {
		v = cellValue{Cached: CellNumeric}
	}
	v.Type, v.Formula = CellFormula, text
	c.store.setValue(v)
	return nil
}

func normalizeFormula(p formula.Parser, f string) (string, error) {
	f = strings.TrimPrefix(strings.TrimSpace(f), "=")
	if f == "" {
		return "", fmt.Errorf("%w: empty formula", ErrArgument)
	}
	text, err := formula.Normalize(p, f)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrArgument, err)
	}
	return text, nil
}

// SetCachedFormulaResult records the last result of a formula cell. v is a
// float64, int, string, bool or ErrorValue. Members of an array formula
// accept it like any formula cell.
func (c *Cell) SetCachedFormulaResult(v any) error {
	cur := c.store.value()
	if cur.Type != CellFormula {
		return newOpError(c.sheetName(), "setCachedFormulaResult", ErrArgument, "cell %s holds no formula", c.Address())
	}
	cur.Num, cur.Str, cur.Bool, cur.Err = 0, "", false, ""
	switch x := v.(type) {
	case float64:
		cur.Cached, cur.Num = CellNumeric, x
	case int:
		cur.Cached, cur.Num = CellNumeric, float64(x)
	case string:
		cur.Cached, cur.Str = CellString, x
	case bool:
		cur.Cached, cur.Bool = CellBoolean, x
	case ErrorValue:
		if err := checkErrorLiteral("setCachedFormulaResult", c.sheetName(), string(x)); err != nil {
			return err
		}
		cur.Cached, cur.Err = CellError, string(x)
	default:
		return newOpError(c.sheetName(), "setCachedFormulaResult", ErrArgument, "unsupported result type %T", v)
	}
	c.store.setValue(cur)
	return nil
}

// Style returns the style of the cell.
func (c *Cell) Style() *CellStyle {
	wb := c.workbook()
	if wb == nil {
		return nil
	}
	return &CellStyle{wb: wb, index: c.store.style()}
}

// SetStyle points the cell at s; nil selects the workbook default. Styles
// of array formula members may change since formatting does not split the
// array.
func (c *Cell) SetStyle(s *CellStyle) error {
	wb := c.workbook()
	if wb == nil {
		return newOpError("", "setCellStyle", ErrArgument, "cell was removed from its sheet")
	}
	if s == nil {
		c.store.setStyle(wb.styles.defaultStyle)
		return nil
	}
	if err := wb.checkCellStyle("setCellStyle", s); err != nil {
		return err
	}
	c.store.setStyle(s.index)
	return nil
}

func (c *Cell) workbook() *Workbook {
	if sh := c.Sheet(); sh != nil {
		return sh.wb
	}
	return nil
}

// Hyperlink returns the link anchored at the cell, or nil.
func (c *Cell) Hyperlink() *Hyperlink {
	if sh := c.Sheet(); sh != nil {
		return sh.Hyperlink(c.RowIndex(), c.ColumnIndex())
	}
	return nil
}

// Comment returns the comment anchored at the cell, or nil.
func (c *Cell) Comment() *Comment {
	if sh := c.Sheet(); sh != nil {
		return sh.Comment(c.RowIndex(), c.ColumnIndex())
	}
	return nil
}
