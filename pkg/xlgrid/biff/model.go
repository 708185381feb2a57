package biff

// Book is the decoded content of a BIFF8 workbook stream. Cell data stays in
// record shape so that callers can edit it in place and write it back.
type Book struct {
	Codepage uint16
	Date1904 bool
	// ActiveSheet is the zero-based index of the selected tab.
	ActiveSheet int
	Fonts       []Font
	Formats     []Format
	XFs         []XF
	Styles      []Style
	// Palette holds custom colours for indices 8..63 as 0xRRGGBB, when the
	// workbook overrides the default palette.
	Palette []uint32
	Names   []Name
	SST     []string
	Sheets  []*Sheet
	// Properties carries SummaryInformation values such as Title or Author.
	Properties map[string]string
}

// Font is a FONT record.
type Font struct {
	Height     uint16
	Italic     bool
	Strike     bool
	Color      uint16
	Weight     uint16
	Escapement uint16
	Underline  uint8
	Family     uint8
	Charset    uint8
	Name       string
}

// Format is a custom number format.
type Format struct {
	Index uint16
	Code  string
}

// XF is an extended format record describing a cell or named style.
type XF struct {
	Font    uint16
	Format  uint16
	Locked  bool
	Hidden  bool
	IsStyle bool
	// Parent is the style XF this cell XF inherits from (0xFFF for styles).
	Parent   uint16
	HAlign   uint8
	Wrap     bool
	VAlign   uint8
	Rotation uint8
	Indent   uint8
	Shrink   bool
	// Used holds the six fAtr* bits (number, font, alignment, border,
	// pattern, protection) in the low bits.
	Used        uint8
	Left        uint8
	Right       uint8
	Top         uint8
	Bottom      uint8
	LeftColor   uint16
	RightColor  uint16
	TopColor    uint16
	BottomColor uint16
	Pattern     uint8
	FgColor     uint16
	BgColor     uint16
}

// Style is a STYLE record naming a style XF.
type Style struct {
	XF      uint16
	Builtin bool
	BuiltID uint8
	Level   uint8
	Name    string
}

// Name is a NAME record with its formula decoded to text.
type Name struct {
	Name    string
	Hidden  bool
	Builtin bool
	// Sheet is the one-based sheet the name is local to, 0 for workbook scope.
	Sheet   int
	Formula string
}

// Built-in name codes stored in place of the text of built-in names.
const (
	BuiltinPrintArea   = 0x06
	BuiltinPrintTitles = 0x07
	BuiltinFilter      = 0x0D
)

var builtinNames = map[byte]string{
	0x00: "Consolidate_Area",
	0x01: "Auto_Open",
	0x02: "Auto_Close",
	0x03: "Extract",
	0x04: "Database",
	0x05: "Criteria",
	0x06: "Print_Area",
	0x07: "Print_Titles",
	0x08: "Recorder",
	0x09: "Data_Form",
	0x0A: "Auto_Activate",
	0x0B: "Auto_Deactivate",
	0x0C: "Sheet_Title",
	0x0D: "_FilterDatabase",
}

// BuiltinName returns the text of a built-in name code.
func BuiltinName(code byte) string {
	return builtinNames[code]
}

// BuiltinCode returns the code of a built-in name text.
func BuiltinCode(name string) (byte, bool) {
	for code, s := range builtinNames {
		if s == name {
			return code, true
		}
	}
	return 0, false
}

// Sheet is one worksheet substream.
type Sheet struct {
	Name string
	// Visibility is 0 visible, 1 hidden, 2 very hidden.
	Visibility       uint8
	Selected         bool
	DefaultRowHeight uint16
	DefaultColWidth  uint16
	Rows             []*Row
	Cols             []ColInfo
	Merged           []Area
	Arrays           []ArrayFormula
	Links            []Hyperlink
	RowBreaks        []uint16
	ColBreaks        []uint16
	Setup            PageSetup
	Protected        bool
	Password         uint16
	// FreezeRow and FreezeCol give the frozen pane split, zero when unfrozen.
	FreezeRow    uint16
	FreezeCol    uint16
	RowSumsBelow bool
	ColSumsRight bool
	// HasComments is set when NOTE records were skipped while reading.
	HasComments bool
}

// Area is a rectangular cell range with inclusive bounds.
type Area struct {
	FirstRow, LastRow uint16
	FirstCol, LastCol uint16
}

// Contains reports whether the cell lies inside the area.
func (a Area) Contains(row, col int) bool {
	return int(a.FirstRow) <= row && row <= int(a.LastRow) && int(a.FirstCol) <= col && col <= int(a.LastCol)
}

// Row is a ROW record and the cells stored in it, ordered by column.
type Row struct {
	Index        int
	Height       uint16
	CustomHeight bool
	Hidden       bool
	Collapsed    bool
	OutlineLevel uint8
	Formatted    bool
	XF           uint16
	Cells        []*Cell
}

// CellKind is the record type a cell is written as.
type CellKind uint8

const (
	CellBlank CellKind = iota
	CellNumber
	CellString
	CellBool
	CellError
	CellFormula
)

// Cell holds one cell record. String cells refer to the shared string table.
type Cell struct {
	Col  int
	XF   uint16
	Kind CellKind
	Num  float64
	// SST is the shared string index of string cells.
	SST  int
	Bool bool
	Err  byte
	// Formula is the formula text without '='. Cells covered by an array
	// formula keep it empty and are written as references to the array.
	Formula string
	// Cached holds the last computed value of formula cells.
	Cached     CellKind
	CachedText string
}

// ColInfo is a COLINFO record.
type ColInfo struct {
	First, Last  uint16
	Width        uint16
	XF           uint16
	Hidden       bool
	OutlineLevel uint8
	Collapsed    bool
}

// ArrayFormula is an ARRAY record.
type ArrayFormula struct {
	Area    Area
	Formula string
}

// Hyperlink is an HLINK record pointing at a URL.
type Hyperlink struct {
	Area Area
	URL  string
}

// PageSetup collects the print-related sheet records.
type PageSetup struct {
	PaperSize   uint16
	Scale       uint16
	FitWidth    uint16
	FitHeight   uint16
	FitToPage   bool
	Landscape   bool
	LeftMargin  float64
	RightMargin float64
	TopMargin   float64
	BotMargin   float64
	HeaderMar   float64
	FooterMar   float64
}

// DefaultPageSetup returns the margins and scale Excel writes for new sheets.
func DefaultPageSetup() PageSetup {
	return PageSetup{
		PaperSize:   1,
		Scale:       100,
		FitWidth:    1,
		FitHeight:   1,
		LeftMargin:  0.75,
		RightMargin: 0.75,
		TopMargin:   1,
		BotMargin:   1,
		HeaderMar:   0.5,
		FooterMar:   0.5,
	}
}

// NewSheet returns an empty sheet with default settings.
func NewSheet(name string) *Sheet {
	return &Sheet{
		Name:             name,
		DefaultRowHeight: 255,
		DefaultColWidth:  8,
		Setup:            DefaultPageSetup(),
		RowSumsBelow:     true,
		ColSumsRight:     true,
	}
}
