package xlgrid

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/biff"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/cellref"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/formula"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/xssf"
)

// Format is the file format a workbook is stored in.
type Format int

const (
	// FormatBIFF8 is the binary .xls format.
	FormatBIFF8 Format = iota + 1
	// FormatOOXML is the zipped XML .xlsx format.
	FormatOOXML
)

func (f Format) String() string {
	switch f {
	case FormatBIFF8:
		return "xls"
	case FormatOOXML:
		return "xlsx"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Version returns the grid limits of the format.
func (f Format) Version() cellref.Version {
	if f == FormatBIFF8 {
		return cellref.Excel97
	}
	return cellref.Excel2007
}

// DocumentProperties are the summary properties of a workbook.
type DocumentProperties struct {
	Title          string `json:"title,omitempty"`
	Subject        string `json:"subject,omitempty"`
	Author         string `json:"author,omitempty"`
	Keywords       string `json:"keywords,omitempty"`
	Description    string `json:"description,omitempty"`
	LastModifiedBy string `json:"last_modified_by,omitempty"`
	Category       string `json:"category,omitempty"`
}

// Workbook is an ordered set of sheets sharing one style table, one shared
// string table and one set of defined names. A Workbook is not safe for
// concurrent use.
type Workbook struct {
	format   Format
	version  cellref.Version
	opts     Options
	log      *logrus.Logger
	parser   formula.Parser
	sheets   []*Sheet
	styles   *styleTable
	strings  *SharedStringTable
	names    []*DefinedName
	props    DocumentProperties
	date1904 bool
	active   int
}

// NewWorkbook returns an empty workbook of the given format.
func NewWorkbook(format Format, opts Options) (*Workbook, error) {
	wb, err := newWorkbook(format, opts)
	if err != nil {
		return nil, err
	}
	font := fontRecord{Name: wb.opts.DefaultFontName, Height: wb.opts.DefaultFontHeight, Color: ColorFontAutomatic, Family: 2}
	switch format {
	case FormatBIFF8:
		wb.styles.store = newHSSFStyles()
		// BIFF8 readers expect at least four FONT records
		wb.styles.fonts = []fontRecord{font, font, font, font}
		wb.styles.normal, wb.styles.defaultStyle = 0, 15
		wb.styles.names[0] = "Normal"
	default:
		wb.styles.store = newXSSFStyles()
		wb.styles.fonts = []fontRecord{font}
		wb.styles.normal, wb.styles.defaultStyle = -1, 0
	}
	return wb, nil
}

func newWorkbook(format Format, opts Options) (*Workbook, error) {
	if format != FormatBIFF8 && format != FormatOOXML {
		return nil, newOpError("", "newWorkbook", ErrArgument, "unknown format %d", int(format))
	}
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Workbook{
		format:  format,
		version: format.Version(),
		opts:    opts,
		log:     opts.logger(),
		parser:  opts.parser(),
		styles: &styleTable{
			formats: newFormatTable(),
			names:   map[int]string{},
		},
		strings: newSharedStringTable(nil),
	}, nil
}

// Format returns the file format of the workbook.
func (wb *Workbook) Format() Format { return wb.format }

// Version returns the grid limits of the workbook's format.
func (wb *Workbook) Version() cellref.Version { return wb.version }

// SharedStrings returns the shared string table.
func (wb *Workbook) SharedStrings() *SharedStringTable { return wb.strings }

// Properties returns the document properties for reading and editing.
func (wb *Workbook) Properties() *DocumentProperties { return &wb.props }

// Date1904 reports whether serial dates count from 1904.
func (wb *Workbook) Date1904() bool { return wb.date1904 }

// SetDate1904 selects the 1904 date system.
func (wb *Workbook) SetDate1904(v bool) { wb.date1904 = v }

// NumSheets returns the number of sheets.
func (wb *Workbook) NumSheets() int { return len(wb.sheets) }

// Sheets returns the sheets in tab order.
func (wb *Workbook) Sheets() []*Sheet {
	return append([]*Sheet(nil), wb.sheets...)
}

// SheetAt returns the sheet at tab position i, or nil.
func (wb *Workbook) SheetAt(i int) *Sheet {
	if i < 0 || i >= len(wb.sheets) {
		return nil
	}
	return wb.sheets[i]
}

// Sheet returns the sheet called name, compared case-insensitively, or nil.
func (wb *Workbook) Sheet(name string) *Sheet {
	if i := wb.SheetIndex(name); i >= 0 {
		return wb.sheets[i]
	}
	return nil
}

// SheetIndex returns the tab position of the sheet called name, or -1.
func (wb *Workbook) SheetIndex(name string) int {
	for i, sh := range wb.sheets {
		if strings.EqualFold(sh.name, name) {
			return i
		}
	}
	return -1
}

func (wb *Workbook) indexOf(sh *Sheet) int {
	for i, s := range wb.sheets {
		if s == sh {
			return i
		}
	}
	return -1
}

// ActiveSheet returns the tab position of the selected sheet.
func (wb *Workbook) ActiveSheet() int { return wb.active }

// SetActiveSheet selects the sheet at tab position i.
func (wb *Workbook) SetActiveSheet(i int) error {
	if i < 0 || i >= len(wb.sheets) {
		return newOpError("", "setActiveSheet", ErrNotFound, "sheet %d", i)
	}
	wb.active = i
	return nil
}

// validateSheetName checks name against the rules both formats share.
func (wb *Workbook) validateSheetName(name string, self *Sheet) error {
	if n := len([]rune(name)); n == 0 || n > 31 {
		return fmt.Errorf("%w: sheet name %q must have 1..31 characters", ErrArgument, name)
	}
	if strings.ContainsAny(name, `[]:*?/\`) {
		return fmt.Errorf("%w: sheet name %q contains one of []:*?/\\", ErrArgument, name)
	}
	if strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'") {
		return fmt.Errorf("%w: sheet name %q starts or ends with an apostrophe", ErrArgument, name)
	}
	if other := wb.Sheet(name); other != nil && other != self {
		return fmt.Errorf("%w: sheet %q exists", ErrArgument, name)
	}
	return nil
}

// CreateSheet appends an empty sheet called name.
func (wb *Workbook) CreateSheet(name string) (*Sheet, error) {
	if err := wb.validateSheetName(name, nil); err != nil {
		return nil, &OperationError{Sheet: name, Op: "createSheet", Err: err}
	}
	sh := wb.newSheet(name)
	wb.sheets = append(wb.sheets, sh)
	wb.log.WithFields(logrus.Fields{"sheet": name, "format": wb.format}).Debug("sheet created")
	return sh, nil
}

// newSheet builds a sheet backed by the store of the workbook's format.
func (wb *Workbook) newSheet(name string) *Sheet {
	sh := &Sheet{
		wb:               wb,
		name:             name,
		merged:           newMergedTable(),
		cols:             map[int]*colInfo{},
		setup:            defaultPrintSetup(),
		defaultRowHeight: 255,
		defaultColWidth:  8,
		rowSumsBelow:     true,
		colSumsRight:     true,
	}
	switch wb.format {
	case FormatBIFF8:
		bs := biff.NewSheet(name)
		sh.store = &hssfSheet{sh: bs, sst: wb.strings, defaultXF: uint16(wb.styles.defaultStyle)}
	default:
		sh.defaultRowHeight = 300
		sh.store = &xssfSheet{data: &xssf.SheetData{}, sst: wb.strings}
	}
	return sh
}

// RemoveSheetAt deletes the sheet at tab position i. References to it in
// the remaining formulas and names become #REF!; names local to it are
// deleted.
func (wb *Workbook) RemoveSheetAt(i int) error {
	if i < 0 || i >= len(wb.sheets) {
		return newOpError("", "removeSheet", ErrNotFound, "sheet %d", i)
	}
	name := wb.sheets[i].name
	wb.sheets = append(wb.sheets[:i], wb.sheets[i+1:]...)
	names := wb.names[:0]
	for _, n := range wb.names {
		switch {
		case n.Sheet == i:
			continue
		case n.Sheet > i:
			n.Sheet--
		}
		names = append(names, n)
	}
	wb.names = names
	if wb.active >= len(wb.sheets) {
		wb.active = max(len(wb.sheets)-1, 0)
	}
	wb.rewriteFormulas("removeSheet", func(f, _ string) (string, bool, error) {
		return formula.InvalidateSheet(wb.parser, f, name)
	})
	return nil
}

// SetSheetName renames the sheet at tab position i and rewrites every
// reference qualified with the old name.
func (wb *Workbook) SetSheetName(i int, name string) error {
	sh := wb.SheetAt(i)
	if sh == nil {
		return newOpError("", "setSheetName", ErrNotFound, "sheet %d", i)
	}
	if err := wb.validateSheetName(name, sh); err != nil {
		return &OperationError{Sheet: sh.name, Op: "setSheetName", Err: err}
	}
	old := sh.name
	sh.name = name
	if hs, ok := sh.store.(*hssfSheet); ok {
		hs.sh.Name = name
	}
	wb.rewriteFormulas("setSheetName", func(f, _ string) (string, bool, error) {
		return formula.RenameSheet(wb.parser, f, old, name)
	})
	return nil
}

// cloneName returns a free name derived from base: "Data (2)", "Data (3)".
func (wb *Workbook) cloneName(base string) string {
	for n := 2; ; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		stem := []rune(base)
		if len(stem)+len(suffix) > 31 {
			stem = stem[:31-len(suffix)]
		}
		if name := string(stem) + suffix; wb.Sheet(name) == nil {
			return name
		}
	}
}

// rewriteFormulas applies fn to every formula text of the workbook: formula
// cells, array formulas and defined names. host is the sheet a cell
// formula lives on, empty for names. Formulas fn cannot tokenize are kept
// and logged.
func (wb *Workbook) rewriteFormulas(op string, fn func(f, host string) (string, bool, error)) {
	warn := func(sheet, where, f string, err error) {
		wb.log.WithFields(logrus.Fields{"op": op, "sheet": sheet, "at": where, "formula": f}).WithError(err).Warn("formula left unchanged")
	}
	for _, sh := range wb.sheets {
		for _, row := range sh.rows {
			for _, c := range row.cells {
				v := c.store.value()
				if v.Type != CellFormula || v.Formula == "" {
					continue
				}
				out, changed, err := fn(v.Formula, sh.name)
				if err != nil {
					warn(sh.name, c.Address().String(), v.Formula, err)
					continue
				}
				if changed {
					v.Formula = out
					c.store.setValue(v)
				}
			}
		}
		for _, a := range sh.arrays {
			out, changed, err := fn(a.formula, sh.name)
			if err != nil {
				warn(sh.name, a.rng.String(), a.formula, err)
				continue
			}
			if changed {
				a.formula = out
			}
		}
	}
	for _, n := range wb.names {
		out, changed, err := fn(n.RefersTo, "")
		if err != nil {
			warn("", n.Name, n.RefersTo, err)
			continue
		}
		if changed {
			n.RefersTo = out
		}
	}
}
