package xlgrid

import (
	"sort"

	"github.com/xuri/nfp"
)

// builtinFormats are the number formats every workbook knows without a
// FORMAT record or numFmt element.
var builtinFormats = map[int]string{
	0:  "General",
	1:  "0",
	2:  "0.00",
	3:  "#,##0",
	4:  "#,##0.00",
	5:  `"$"#,##0_);("$"#,##0)`,
	6:  `"$"#,##0_);[Red]("$"#,##0)`,
	7:  `"$"#,##0.00_);("$"#,##0.00)`,
	8:  `"$"#,##0.00_);[Red]("$"#,##0.00)`,
	9:  "0%",
	10: "0.00%",
	11: "0.00E+00",
	12: "# ?/?",
	13: "# ??/??",
	14: "m/d/yy",
	15: "d-mmm-yy",
	16: "d-mmm",
	17: "mmm-yy",
	18: "h:mm AM/PM",
	19: "h:mm:ss AM/PM",
	20: "h:mm",
	21: "h:mm:ss",
	22: "m/d/yy h:mm",
	37: "#,##0_);(#,##0)",
	38: "#,##0_);[Red](#,##0)",
	39: "#,##0.00_);(#,##0.00)",
	40: "#,##0.00_);[Red](#,##0.00)",
	41: `_(* #,##0_);_(* (#,##0);_(* "-"_);_(@_)`,
	42: `_("$"* #,##0_);_("$"* (#,##0);_("$"* "-"_);_(@_)`,
	43: `_(* #,##0.00_);_(* (#,##0.00);_(* "-"??_);_(@_)`,
	44: `_("$"* #,##0.00_);_("$"* (#,##0.00);_("$"* "-"??_);_(@_)`,
	45: "mm:ss",
	46: "[h]:mm:ss",
	47: "mm:ss.0",
	48: "##0.0E+0",
	49: "@",
}

// firstCustomFormat is the first id given to user number formats.
const firstCustomFormat = 164

// formatTable holds the number formats of a workbook. Ids 0..49 are
// built in; custom codes get ids from 164 on.
type formatTable struct {
	custom map[int]string
	next   int
}

func newFormatTable() *formatTable {
	return &formatTable{custom: map[int]string{}, next: firstCustomFormat}
}

// code returns the format code of id. Reserved built-in ids render as
// General.
func (t *formatTable) code(id int) (string, bool) {
	if code, ok := builtinFormats[id]; ok {
		return code, true
	}
	if id > 0 && id < firstCustomFormat {
		if _, ok := t.custom[id]; !ok {
			return "General", id < 50
		}
	}
	code, ok := t.custom[id]
	return code, ok
}

// put registers code under id, as read from a file.
func (t *formatTable) put(id int, code string) {
	t.custom[id] = code
	if id >= t.next {
		t.next = id + 1
	}
}

// add returns the id of code, registering it when it is new.
func (t *formatTable) add(code string) int {
	for id, c := range builtinFormats {
		if c == code {
			return id
		}
	}
	for _, id := range t.customIDs() {
		if t.custom[id] == code {
			return id
		}
	}
	id := t.next
	t.put(id, code)
	return id
}

// customIDs returns the custom ids in ascending order.
func (t *formatTable) customIDs() []int {
	ids := make([]int, 0, len(t.custom))
	for id := range t.custom {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func isDateFormat(id int, code string) bool {
	switch {
	case id >= 14 && id <= 22, id >= 45 && id <= 47:
		return true
	case id < firstCustomFormat:
		if _, ok := builtinFormats[id]; ok {
			return false
		}
	}
	ps := nfp.NumberFormatParser()
	for _, section := range ps.Parse(code) {
		for _, tok := range section.Items {
			if tok.TType == nfp.TokenTypeDateTimes || tok.TType == nfp.TokenTypeElapsedDateTimes {
				return true
			}
		}
	}
	return false
}

// styleTable is the workbook-wide formatting state: the format-specific
// cell format store plus fonts, number formats and the palette.
type styleTable struct {
	store   styleStore
	fonts   []fontRecord
	formats *formatTable
	// names holds the names of named styles by slot.
	names   map[int]string
	palette palette
	// normal is the slot of the Normal named style, -1 when the format
	// keeps named styles out of the table.
	normal int
	// defaultStyle is the slot cells without a style use.
	defaultStyle int
}

// resolve returns slot i with the groups it inherits filled in.
func (t *styleTable) resolve(i int) cellFormat {
	f := t.store.get(i)
	if f.IsStyle || f.Used == usedAll || f.Parent < 0 || f.Parent >= t.store.len() || f.Parent == i {
		return f
	}
	return f.inherit(t.store.get(f.Parent))
}

func (t *styleTable) font(i int) fontRecord {
	if i < 0 || i >= len(t.fonts) {
		return t.fonts[0]
	}
	return t.fonts[i]
}

// findOrAddFont returns the slot holding rec, appending it when missing.
func (t *styleTable) findOrAddFont(rec fontRecord) (int, error) {
	for i, f := range t.fonts {
		if f == rec {
			return i, nil
		}
	}
	if len(t.fonts) >= 0x7FFF {
		return 0, newOpError("", "addFont", ErrArgument, "font table is full")
	}
	t.fonts = append(t.fonts, rec)
	return len(t.fonts) - 1, nil
}

// newFormat returns the template of a new cell format.
func (t *styleTable) newFormat() cellFormat {
	f := defaultCellFormat()
	f.Parent = t.normal
	return f
}

// CreateCellStyle allocates a new cell format slot with default formatting.
func (wb *Workbook) CreateCellStyle() (*CellStyle, error) {
	f := wb.styles.resolve(wb.styles.defaultStyle)
	f.IsStyle, f.Parent, f.Used = false, wb.styles.normal, usedAll
	return wb.addStyle(f, "createCellStyle")
}

func (wb *Workbook) addStyle(f cellFormat, op string) (*CellStyle, error) {
	if wb.styles.store.len() >= wb.version.MaxCellStyles {
		return nil, newOpError("", op, ErrArgument, "style table holds the %s maximum of %d formats", wb.version.Name, wb.version.MaxCellStyles)
	}
	idx, err := wb.styles.store.add(f)
	if err != nil {
		return nil, &OperationError{Op: op, Err: err}
	}
	return &CellStyle{wb: wb, index: idx}, nil
}

// CreateNamedStyle allocates a named style that cell formats can inherit
// from with SetParent.
func (wb *Workbook) CreateNamedStyle(name string) (*CellStyle, error) {
	if name == "" {
		return nil, newOpError("", "createNamedStyle", ErrArgument, "empty style name")
	}
	for _, n := range wb.styles.names {
		if n == name {
			return nil, newOpError("", "createNamedStyle", ErrArgument, "style %q exists", name)
		}
	}
	f := wb.styles.resolve(wb.styles.defaultStyle)
	f.IsStyle, f.Parent, f.Used = true, -1, usedAll
	s, err := wb.addStyle(f, "createNamedStyle")
	if err != nil {
		return nil, err
	}
	wb.styles.names[s.index] = name
	return s, nil
}

// NamedStyle returns the named style called name.
func (wb *Workbook) NamedStyle(name string) (*CellStyle, error) {
	for idx, n := range wb.styles.names {
		if n == name {
			return &CellStyle{wb: wb, index: idx}, nil
		}
	}
	return nil, newOpError("", "namedStyle", ErrNotFound, "style %q", name)
}

// CellStyleAt returns a handle to slot i of the style table.
func (wb *Workbook) CellStyleAt(i int) (*CellStyle, error) {
	if i < 0 || i >= wb.styles.store.len() {
		return nil, newOpError("", "cellStyleAt", ErrNotFound, "style %d", i)
	}
	return &CellStyle{wb: wb, index: i}, nil
}

// NumCellStyles returns the size of the style table.
func (wb *Workbook) NumCellStyles() int {
	return wb.styles.store.len()
}

// DefaultCellStyle returns the style of cells without explicit formatting.
func (wb *Workbook) DefaultCellStyle() *CellStyle {
	return &CellStyle{wb: wb, index: wb.styles.defaultStyle}
}

// DataFormat returns the id of a number format code, registering the code
// when the workbook does not know it yet.
func (wb *Workbook) DataFormat(code string) int {
	return wb.styles.formats.add(code)
}

// DataFormatCode returns the code of number format id.
func (wb *Workbook) DataFormatCode(id int) (string, bool) {
	return wb.styles.formats.code(id)
}
