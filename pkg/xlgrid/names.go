package xlgrid

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/cellref"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/formula"
)

// BuiltinPrefix marks the names Excel reserves, such as _xlnm.Print_Area.
const BuiltinPrefix = "_xlnm."

// Built-in names.
const (
	NamePrintArea      = BuiltinPrefix + "Print_Area"
	NamePrintTitles    = BuiltinPrefix + "Print_Titles"
	NameFilterDatabase = BuiltinPrefix + "_FilterDatabase"
)

// ScopeWorkbook is the sheet index of names visible from every sheet.
const ScopeWorkbook = -1

// DefinedName is a named formula. Sheet is the zero-based index of the
// sheet the name is local to, ScopeWorkbook for global names. RefersTo has
// no leading '=' and qualifies every reference with its sheet.
type DefinedName struct {
	Name     string
	RefersTo string
	Sheet    int
	Hidden   bool
	Comment  string
}

// IsBuiltin reports whether the name is one of the reserved _xlnm names.
func (n *DefinedName) IsBuiltin() bool {
	return strings.HasPrefix(n.Name, BuiltinPrefix)
}

// validName checks the syntax of a user defined name.
func validName(name string) error {
	if name == "" || len([]rune(name)) > 255 {
		return fmt.Errorf("%w: name %q must have 1..255 characters", ErrArgument, name)
	}
	for i, r := range name {
		switch {
		case unicode.IsLetter(r), r == '_', r == '\\':
		case i > 0 && (unicode.IsDigit(r) || r == '.' || r == '?'):
		default:
			return fmt.Errorf("%w: name %q has invalid character %q", ErrArgument, name, r)
		}
	}
	if _, err := cellref.ParseCellRef(name); err == nil {
		return fmt.Errorf("%w: name %q looks like a cell reference", ErrArgument, name)
	}
	if u := strings.ToUpper(name); u == "R" || u == "C" {
		return fmt.Errorf("%w: name %q is reserved", ErrArgument, name)
	}
	return nil
}

// CreateName defines name in scope, a sheet index or ScopeWorkbook. It
// fails with ErrArgument on invalid syntax, an unknown scope or a name
// already defined in the same scope.
func (wb *Workbook) CreateName(name, refersTo string, scope int) (*DefinedName, error) {
	const op = "createName"
	if !strings.HasPrefix(name, BuiltinPrefix) {
		if err := validName(name); err != nil {
			return nil, &OperationError{Op: op, Err: err}
		}
	}
	return wb.defineName(op, name, refersTo, scope)
}

func (wb *Workbook) defineName(op, name, refersTo string, scope int) (*DefinedName, error) {
	if scope != ScopeWorkbook && (scope < 0 || scope >= len(wb.sheets)) {
		return nil, newOpError("", op, ErrArgument, "scope %d is not a sheet", scope)
	}
	if wb.Name(name, scope) != nil {
		return nil, newOpError("", op, ErrArgument, "name %q exists", name)
	}
	text, err := normalizeFormula(wb.parser, refersTo)
	if err != nil {
		return nil, &OperationError{Op: op, Err: err}
	}
	n := &DefinedName{Name: name, RefersTo: text, Sheet: scope, Hidden: name == NameFilterDatabase}
	wb.names = append(wb.names, n)
	return n, nil
}

// Name returns the name defined in scope, compared case-insensitively.
func (wb *Workbook) Name(name string, scope int) *DefinedName {
	for _, n := range wb.names {
		if n.Sheet == scope && strings.EqualFold(n.Name, name) {
			return n
		}
	}
	return nil
}

// Names returns every defined name in definition order.
func (wb *Workbook) Names() []*DefinedName {
	return append([]*DefinedName(nil), wb.names...)
}

// RemoveName deletes n.
func (wb *Workbook) RemoveName(n *DefinedName) error {
	for i, x := range wb.names {
		if x == n {
			wb.names = append(wb.names[:i], wb.names[i+1:]...)
			return nil
		}
	}
	return newOpError("", "removeName", ErrNotFound, "name %q", nameOf(n))
}

func nameOf(n *DefinedName) string {
	if n == nil {
		return ""
	}
	return n.Name
}

// setBuiltin replaces the built-in name of a sheet.
func (wb *Workbook) setBuiltin(op, name string, sheet int, refersTo string) error {
	if wb.SheetAt(sheet) == nil {
		return newOpError("", op, ErrNotFound, "sheet %d", sheet)
	}
	if old := wb.Name(name, sheet); old != nil {
		_ = wb.RemoveName(old)
	}
	_, err := wb.defineName(op, name, refersTo, sheet)
	return err
}

// SetPrintArea sets the print area of the sheet at index sheet.
func (wb *Workbook) SetPrintArea(sheet int, rng cellref.Range) error {
	sh := wb.SheetAt(sheet)
	if sh == nil {
		return newOpError("", "setPrintArea", ErrNotFound, "sheet %d", sheet)
	}
	if err := sh.checkRange("setPrintArea", rng); err != nil {
		return err
	}
	return wb.setBuiltin("setPrintArea", NamePrintArea, sheet, formula.QuoteSheetName(sh.name)+"!"+rng.AbsString())
}

// PrintArea returns the print area of the sheet at index sheet, "" when
// none is set.
func (wb *Workbook) PrintArea(sheet int) string {
	if n := wb.Name(NamePrintArea, sheet); n != nil {
		return n.RefersTo
	}
	return ""
}

// RemovePrintArea clears the print area of the sheet at index sheet.
func (wb *Workbook) RemovePrintArea(sheet int) {
	if n := wb.Name(NamePrintArea, sheet); n != nil {
		_ = wb.RemoveName(n)
	}
}

// SetRepeatingRows makes rows first..last print on every page of the
// sheet at index sheet.
func (wb *Workbook) SetRepeatingRows(sheet, first, last int) error {
	sh := wb.SheetAt(sheet)
	if sh == nil {
		return newOpError("", "setRepeatingRows", ErrNotFound, "sheet %d", sheet)
	}
	if first > last {
		first, last = last, first
	}
	if err := sh.checkRow("setRepeatingRows", first); err != nil {
		return err
	}
	if err := sh.checkRow("setRepeatingRows", last); err != nil {
		return err
	}
	ref := fmt.Sprintf("%s!$%d:$%d", formula.QuoteSheetName(sh.name), first+1, last+1)
	return wb.setBuiltin("setRepeatingRows", NamePrintTitles, sheet, ref)
}

// RepeatingRows returns the print titles of the sheet at index sheet.
func (wb *Workbook) RepeatingRows(sheet int) string {
	if n := wb.Name(NamePrintTitles, sheet); n != nil {
		return n.RefersTo
	}
	return ""
}
