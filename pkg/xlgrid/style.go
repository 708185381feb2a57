package xlgrid

import (
	"fmt"
)

// BorderStyle is the line style of one cell edge.
type BorderStyle int

const (
	BorderNone BorderStyle = iota
	BorderThin
	BorderMedium
	BorderDashed
	BorderDotted
	BorderThick
	BorderDouble
	BorderHair
	BorderMediumDashed
	BorderDashDot
	BorderMediumDashDot
	BorderDashDotDot
	BorderMediumDashDotDot
	BorderSlantedDashDot
)

// FillPattern is the pattern of a cell background.
type FillPattern int

const (
	FillNone FillPattern = iota
	FillSolid
	FillFineDots
	FillAltBars
	FillSparseDots
	FillThickHorzBands
	FillThickVertBands
	FillThickBackwardDiag
	FillThickForwardDiag
	FillBigSpots
	FillBricks
	FillThinHorzBands
	FillThinVertBands
	FillThinBackwardDiag
	FillThinForwardDiag
	FillSquares
	FillDiamonds
	FillLessDots
	FillLeastDots
)

// HorizontalAlignment is the horizontal placement of cell content.
type HorizontalAlignment int

const (
	HAlignGeneral HorizontalAlignment = iota
	HAlignLeft
	HAlignCenter
	HAlignRight
	HAlignFill
	HAlignJustify
	HAlignCenterSelection
	HAlignDistributed
)

// VerticalAlignment is the vertical placement of cell content.
type VerticalAlignment int

const (
	VAlignTop VerticalAlignment = iota
	VAlignCenter
	VAlignBottom
	VAlignJustify
	VAlignDistributed
)

// RotationVertical is the rotation value of vertically stacked text.
const RotationVertical = 0xFF

// Border groups the four edges of a cell and their colours.
type Border struct {
	Left, Right, Top, Bottom                     BorderStyle
	LeftColor, RightColor, TopColor, BottomColor int
}

// Fill is the background of a cell. Colours are palette indices.
type Fill struct {
	Pattern    FillPattern
	Foreground int
	Background int
}

// Alignment groups the placement attributes of a cell format. Rotation is
// set separately with SetRotation.
type Alignment struct {
	Horizontal  HorizontalAlignment
	Vertical    VerticalAlignment
	Wrap        bool
	Indent      int
	ShrinkToFit bool
}

// Protection holds the cell protection flags, effective on protected sheets.
type Protection struct {
	Locked bool
	Hidden bool
}

// Attribute groups of a cell format. A cell format inherits every group it
// does not set from its parent style.
const (
	usedNumFmt uint8 = 1 << iota
	usedFont
	usedAlignment
	usedBorder
	usedFill
	usedProtection

	usedAll = usedNumFmt | usedFont | usedAlignment | usedBorder | usedFill | usedProtection
)

// cellFormat is one slot of the style table. Rotation is in logical degrees
// (-90..90, or RotationVertical).
type cellFormat struct {
	Font       int
	NumFmt     int
	Alignment  Alignment
	Rotation   int
	Border     Border
	Fill       Fill
	Protection Protection
	IsStyle    bool
	// Parent is the named style a cell format inherits from, -1 for none.
	Parent int
	Used   uint8
}

func defaultCellFormat() cellFormat {
	return cellFormat{
		Alignment:  Alignment{Vertical: VAlignBottom},
		Border:     Border{LeftColor: ColorAutomatic, RightColor: ColorAutomatic, TopColor: ColorAutomatic, BottomColor: ColorAutomatic},
		Fill:       Fill{Foreground: ColorAutomatic, Background: ColorAutomatic + 1},
		Protection: Protection{Locked: true},
		Parent:     0,
		Used:       usedAll,
	}
}

// inherit copies the groups f does not set from parent.
func (f cellFormat) inherit(parent cellFormat) cellFormat {
	if f.Used&usedNumFmt == 0 {
		f.NumFmt = parent.NumFmt
	}
	if f.Used&usedFont == 0 {
		f.Font = parent.Font
	}
	if f.Used&usedAlignment == 0 {
		f.Alignment, f.Rotation = parent.Alignment, parent.Rotation
	}
	if f.Used&usedBorder == 0 {
		f.Border = parent.Border
	}
	if f.Used&usedFill == 0 {
		f.Fill = parent.Fill
	}
	if f.Used&usedProtection == 0 {
		f.Protection = parent.Protection
	}
	return f
}

// validRotation reports whether deg is a storable rotation.
func validRotation(deg int) bool {
	return (deg >= -90 && deg <= 90) || deg == RotationVertical
}

// CellStyle is a handle to one slot of the workbook style table. Handles with
// the same index alias each other: a setter called through one is seen by
// every cell using that index.
type CellStyle struct {
	wb    *Workbook
	index int
}

// Index returns the slot of the style in the style table.
func (s *CellStyle) Index() int {
	return s.index
}

// Workbook returns the workbook owning the style table.
func (s *CellStyle) Workbook() *Workbook {
	return s.wb
}

func (s *CellStyle) raw() cellFormat {
	return s.wb.styles.store.get(s.index)
}

// resolved returns the slot with inherited groups filled in.
func (s *CellStyle) resolved() cellFormat {
	return s.wb.styles.resolve(s.index)
}

// update applies fn to the slot and marks group as set here.
func (s *CellStyle) update(group uint8, fn func(*cellFormat)) error {
	f := s.resolved()
	raw := s.raw()
	f.IsStyle, f.Parent, f.Used = raw.IsStyle, raw.Parent, raw.Used|group
	fn(&f)
	if err := s.wb.styles.store.set(s.index, f); err != nil {
		return &OperationError{Op: "setStyle", Err: err}
	}
	return nil
}

// Border returns the cell edges.
func (s *CellStyle) Border() Border {
	return s.resolved().Border
}

// SetBorder replaces all four edges and their colours.
func (s *CellStyle) SetBorder(b Border) error {
	for _, edge := range []BorderStyle{b.Left, b.Right, b.Top, b.Bottom} {
		if edge < BorderNone || edge > BorderSlantedDashDot {
			return newOpError("", "setBorder", ErrArgument, "border style %d", edge)
		}
	}
	return s.update(usedBorder, func(f *cellFormat) { f.Border = b })
}

// Fill returns the background pattern and colours.
func (s *CellStyle) Fill() Fill {
	return s.resolved().Fill
}

// SetFill replaces pattern and colours.
func (s *CellStyle) SetFill(fill Fill) error {
	if fill.Pattern < FillNone || fill.Pattern > FillLeastDots {
		return newOpError("", "setFill", ErrArgument, "fill pattern %d", fill.Pattern)
	}
	return s.update(usedFill, func(f *cellFormat) { f.Fill = fill })
}

// SetFillPattern changes only the pattern.
func (s *CellStyle) SetFillPattern(p FillPattern) error {
	fill := s.Fill()
	fill.Pattern = p
	return s.SetFill(fill)
}

// SetFillForeground changes the pattern colour.
func (s *CellStyle) SetFillForeground(color int) error {
	fill := s.Fill()
	fill.Foreground = color
	return s.SetFill(fill)
}

// SetFillBackground changes the colour behind the pattern.
func (s *CellStyle) SetFillBackground(color int) error {
	fill := s.Fill()
	fill.Background = color
	return s.SetFill(fill)
}

// Alignment returns the placement attributes.
func (s *CellStyle) Alignment() Alignment {
	return s.resolved().Alignment
}

// SetAlignment replaces the placement attributes.
func (s *CellStyle) SetAlignment(a Alignment) error {
	if a.Indent < 0 || a.Indent > 15 {
		return newOpError("", "setAlignment", ErrArgument, "indent %d out of 0..15", a.Indent)
	}
	return s.update(usedAlignment, func(f *cellFormat) { f.Alignment = a })
}

// Rotation returns the text angle in degrees (-90..90) or RotationVertical.
func (s *CellStyle) Rotation() int {
	return s.resolved().Rotation
}

// SetRotation sets the text angle. Accepted values are -90..90 and
// RotationVertical.
func (s *CellStyle) SetRotation(deg int) error {
	if !validRotation(deg) {
		return newOpError("", "setRotation", ErrArgument, "rotation %d not in -90..90 or %d", deg, RotationVertical)
	}
	return s.update(usedAlignment, func(f *cellFormat) { f.Rotation = deg })
}

// Protection returns the protection flags.
func (s *CellStyle) Protection() Protection {
	return s.resolved().Protection
}

// SetProtection replaces the protection flags.
func (s *CellStyle) SetProtection(p Protection) error {
	return s.update(usedProtection, func(f *cellFormat) { f.Protection = p })
}

// Font returns a handle to the font of the style.
func (s *CellStyle) Font() *Font {
	return &Font{wb: s.wb, index: s.resolved().Font}
}

// SetFont points the style at font, which must belong to the same workbook.
func (s *CellStyle) SetFont(font *Font) error {
	if font == nil || font.wb != s.wb {
		return newOpError("", "setFont", ErrArgument, "font belongs to another workbook")
	}
	return s.update(usedFont, func(f *cellFormat) { f.Font = font.index })
}

// DataFormat returns the number format id.
func (s *CellStyle) DataFormat() int {
	return s.resolved().NumFmt
}

// SetDataFormat sets the number format id; see Workbook.DataFormat.
func (s *CellStyle) SetDataFormat(id int) error {
	if _, ok := s.wb.styles.formats.code(id); !ok {
		return newOpError("", "setDataFormat", ErrNotFound, "number format %d", id)
	}
	return s.update(usedNumFmt, func(f *cellFormat) { f.NumFmt = id })
}

// DataFormatString returns the number format code.
func (s *CellStyle) DataFormatString() string {
	code, _ := s.wb.styles.formats.code(s.DataFormat())
	return code
}

// IsDateFormat reports whether the number format renders dates or times.
func (s *CellStyle) IsDateFormat() bool {
	return isDateFormat(s.DataFormat(), s.DataFormatString())
}

// IsNamedStyle reports whether the slot is a named style rather than a cell
// format.
func (s *CellStyle) IsNamedStyle() bool {
	return s.raw().IsStyle
}

// Name returns the name of a named style.
func (s *CellStyle) Name() string {
	return s.wb.styles.names[s.index]
}

// Parent returns the named style a cell format inherits from, or nil.
func (s *CellStyle) Parent() *CellStyle {
	raw := s.raw()
	if raw.IsStyle || raw.Parent < 0 {
		return nil
	}
	return &CellStyle{wb: s.wb, index: raw.Parent}
}

// SetParent makes the cell format inherit from the named style parent. All
// attribute groups are inherited until set again on this style.
func (s *CellStyle) SetParent(parent *CellStyle) error {
	if parent == nil || parent.wb != s.wb {
		return newOpError("", "setParent", ErrArgument, "parent belongs to another workbook")
	}
	if !parent.IsNamedStyle() {
		return newOpError("", "setParent", ErrArgument, "style %d is not a named style", parent.index)
	}
	f := s.raw()
	if f.IsStyle {
		return newOpError("", "setParent", ErrArgument, "named styles have no parent")
	}
	f.Parent, f.Used = parent.index, 0
	if err := s.wb.styles.store.set(s.index, f); err != nil {
		return &OperationError{Op: "setParent", Err: err}
	}
	return nil
}

// Equal reports whether both styles resolve to the same formatting. Styles
// of different workbooks compare their fonts and number formats by content.
func (s *CellStyle) Equal(o *CellStyle) bool {
	if o == nil {
		return false
	}
	a, b := s.resolved(), o.resolved()
	if s.wb != o.wb {
		if s.wb.styles.font(a.Font) != o.wb.styles.font(b.Font) {
			return false
		}
		if s.DataFormatString() != o.DataFormatString() {
			return false
		}
		a.Font, b.Font = 0, 0
		a.NumFmt, b.NumFmt = 0, 0
	}
	return a.comparable() == b.comparable()
}

// comparable strips the inheritance bookkeeping from a resolved format.
func (f cellFormat) comparable() cellFormat {
	f.IsStyle, f.Parent, f.Used = false, 0, 0
	return f
}

// CloneStyleFrom copies the resolved formatting of src into this slot. The
// slots stay independent afterwards. When src belongs to another workbook its
// font and number format are looked up by content in this workbook and added
// when missing.
func (s *CellStyle) CloneStyleFrom(src *CellStyle) error {
	if src == nil {
		return newOpError("", "cloneStyleFrom", ErrArgument, "nil source style")
	}
	f := src.resolved()
	raw := s.raw()
	f.IsStyle, f.Parent, f.Used = raw.IsStyle, raw.Parent, usedAll
	if src.wb != s.wb {
		font, err := s.wb.styles.findOrAddFont(src.wb.styles.font(f.Font))
		if err != nil {
			return &OperationError{Op: "cloneStyleFrom", Err: err}
		}
		f.Font = font
		code, _ := src.wb.styles.formats.code(f.NumFmt)
		f.NumFmt = s.wb.styles.formats.add(code)
	}
	if err := s.wb.styles.store.set(s.index, f); err != nil {
		return &OperationError{Op: "cloneStyleFrom", Err: fmt.Errorf("%w", err)}
	}
	return nil
}
