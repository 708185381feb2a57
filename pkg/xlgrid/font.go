package xlgrid

// Underline is the underline style of a font.
type Underline int

const (
	UnderlineNone Underline = iota
	UnderlineSingle
	UnderlineDouble
	UnderlineSingleAccounting
	UnderlineDoubleAccounting
)

// Escapement is the vertical offset of a font.
type Escapement int

const (
	EscapementNone Escapement = iota
	EscapementSuper
	EscapementSub
)

// fontRecord is one slot of the font table. Height is in twips.
type fontRecord struct {
	Name       string
	Height     int
	Bold       bool
	Italic     bool
	Strike     bool
	Underline  Underline
	Escapement Escapement
	Color      int
	Family     int
	Charset    int
}

// Font is a handle to one slot of the workbook font table. Like CellStyle,
// setters change the slot and therefore every style pointing at it.
type Font struct {
	wb    *Workbook
	index int
}

// Index returns the slot of the font in the font table.
func (f *Font) Index() int { return f.index }

func (f *Font) rec() *fontRecord {
	return &f.wb.styles.fonts[f.index]
}

// Name returns the typeface name.
func (f *Font) Name() string { return f.rec().Name }

// SetName sets the typeface name.
func (f *Font) SetName(name string) { f.rec().Name = name }

// Height returns the size in twips.
func (f *Font) Height() int { return f.rec().Height }

// SetHeight sets the size in twips.
func (f *Font) SetHeight(twips int) error {
	if twips < 20 || twips > 8191 {
		return newOpError("", "setFontHeight", ErrArgument, "font height %d twips out of 20..8191", twips)
	}
	f.rec().Height = twips
	return nil
}

// HeightInPoints returns the size in points.
func (f *Font) HeightInPoints() float64 { return float64(f.rec().Height) / 20 }

// Bold reports a bold weight.
func (f *Font) Bold() bool { return f.rec().Bold }

// SetBold sets the weight.
func (f *Font) SetBold(v bool) { f.rec().Bold = v }

// Italic reports an italic face.
func (f *Font) Italic() bool { return f.rec().Italic }

// SetItalic sets the italic flag.
func (f *Font) SetItalic(v bool) { f.rec().Italic = v }

// Strike reports strikethrough.
func (f *Font) Strike() bool { return f.rec().Strike }

// SetStrike sets strikethrough.
func (f *Font) SetStrike(v bool) { f.rec().Strike = v }

// Underline returns the underline style.
func (f *Font) Underline() Underline { return f.rec().Underline }

// SetUnderline sets the underline style.
func (f *Font) SetUnderline(u Underline) { f.rec().Underline = u }

// Escapement returns the superscript or subscript offset.
func (f *Font) Escapement() Escapement { return f.rec().Escapement }

// SetEscapement sets the superscript or subscript offset.
func (f *Font) SetEscapement(e Escapement) { f.rec().Escapement = e }

// Color returns the palette index of the font colour.
func (f *Font) Color() int { return f.rec().Color }

// SetColor sets the palette index of the font colour; ColorFontAutomatic
// selects the automatic colour.
func (f *Font) SetColor(idx int) { f.rec().Color = idx }

// CreateFont appends a copy of the default font to the font table.
func (wb *Workbook) CreateFont() *Font {
	wb.styles.fonts = append(wb.styles.fonts, wb.styles.fonts[0])
	return &Font{wb: wb, index: len(wb.styles.fonts) - 1}
}

// FontAt returns the font in slot i.
func (wb *Workbook) FontAt(i int) (*Font, error) {
	if i < 0 || i >= len(wb.styles.fonts) {
		return nil, newOpError("", "fontAt", ErrNotFound, "font %d", i)
	}
	return &Font{wb: wb, index: i}, nil
}

// NumFonts returns the size of the font table.
func (wb *Workbook) NumFonts() int {
	return len(wb.styles.fonts)
}
