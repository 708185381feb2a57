package biff

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/cellref"
)

// EncodeError reports a cell whose content could not be encoded.
type EncodeError struct {
	Sheet    string
	Row, Col int
	Err      error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("%s!%s: %v", e.Sheet, cellref.CellRef{Row: e.Row, Col: e.Col}.String(), e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Encode serialises a Book into a BIFF8 workbook stream.
func Encode(book *Book) ([]byte, error) {
	e := &bookEncoder{book: book}
	sheets := make([][]byte, len(book.Sheets))
	for i, sh := range book.Sheets {
		data, err := e.sheet(sh)
		if err != nil {
			return nil, err
		}
		sheets[i] = data
	}
	w := NewWriter()
	defer w.Release()
	patches, err := e.globals(w)
	if err != nil {
		return nil, err
	}
	offset := w.Len()
	for i, data := range sheets {
		w.PatchUint32(patches[i], uint32(offset))
		offset += len(data)
	}
	out := w.Bytes()
	for _, data := range sheets {
		out = append(out, data...)
	}
	return out, nil
}

type bookEncoder struct {
	book *Book
}

func (e *bookEncoder) context(row, col int) *FormulaContext {
	return &FormulaContext{
		Row: row,
		Col: col,
		SheetIndex: func(name string) (int, bool) {
			for i, sh := range e.book.Sheets {
				if strings.EqualFold(sh.Name, name) {
					return i, true
				}
			}
			return 0, false
		},
		NameIndex: func(name string) (int, bool) {
			for i, n := range e.book.Names {
				if strings.EqualFold(n.Name, name) {
					return i + 1, true
				}
			}
			return 0, false
		},
	}
}

func bof(kind uint16) []byte {
	b := &builder{}
	b.u16(biff8Version)
	b.u16(kind)
	b.u16(0x0DBB)
	b.u16(0x07CC)
	b.u32(0)
	b.u32(0x06)
	return b.b
}

func u16rec(v uint16) []byte {
	b := &builder{}
	b.u16(v)
	return b.b
}

func (e *bookEncoder) globals(w *Writer) ([]int, error) {
	book := e.book
	w.Write(SidBOF, bof(bofGlobals))
	w.Write(SidCodepage, u16rec(1200))

	win := &builder{}
	win.u16(0x0168)
	win.u16(0x001E)
	win.u16(0x4A38)
	win.u16(0x2AF8)
	win.u16(0x0038)
	win.u16(uint16(book.ActiveSheet))
	win.u16(0)
	win.u16(1)
	win.u16(0x0258)
	w.Write(SidWindow1, win.b)

	date := uint16(0)
	if book.Date1904 {
		date = 1
	}
	w.Write(SidDateMode, u16rec(date))

	for _, f := range book.Fonts {
		w.Write(SidFont, encodeFont(f))
	}
	for _, f := range book.Formats {
		b := &builder{}
		b.u16(f.Index)
		appendString(b, f.Code, 2)
		w.Write(SidFormat, b.b)
	}
	for _, x := range book.XFs {
		w.Write(SidXF, encodeXF(x))
	}
	styles := book.Styles
	if len(styles) == 0 {
		styles = []Style{{XF: 0, Builtin: true, BuiltID: 0, Level: 0xFF}}
	}
	for _, s := range styles {
		b := &builder{}
		if s.Builtin {
			b.u16(s.XF&0x0FFF | 0x8000)
			b.u8(s.BuiltID)
			b.u8(s.Level)
		} else {
			b.u16(s.XF & 0x0FFF)
			appendString(b, s.Name, 2)
		}
		w.Write(SidStyle, b.b)
	}
	if len(book.Palette) > 0 {
		b := &builder{}
		b.u16(uint16(len(book.Palette)))
		for _, rgb := range book.Palette {
			b.u8(byte(rgb >> 16))
			b.u8(byte(rgb >> 8))
			b.u8(byte(rgb))
			b.u8(0)
		}
		w.Write(SidPalette, b.b)
	}

	patches := make([]int, len(book.Sheets))
	for i, sh := range book.Sheets {
		b := &builder{}
		b.u32(0)
		b.u8(sh.Visibility)
		b.u8(0)
		appendString(b, sh.Name, 1)
		patches[i] = w.Len() + 4
		w.Write(SidBoundSheet, b.b)
	}

	if len(book.Sheets) > 0 {
		sb := &builder{}
		sb.u16(uint16(len(book.Sheets)))
		sb.u16(0x0401)
		w.Write(SidSupBook, sb.b)
		es := &builder{}
		es.u16(uint16(len(book.Sheets)))
		for i := range book.Sheets {
			es.u16(0)
			es.u16(uint16(i))
			es.u16(uint16(i))
		}
		w.Write(SidExternSheet, es.b)
	}

	for _, n := range book.Names {
		data, err := e.name(n)
		if err != nil {
			return nil, fmt.Errorf("name %q: %w", n.Name, err)
		}
		w.Write(SidName, data)
	}

	total := 0
	for _, sh := range book.Sheets {
		for _, r := range sh.Rows {
			for _, c := range r.Cells {
				if c.Kind == CellString {
					total++
				}
			}
		}
	}
	w.WriteChunks(SidSST, EncodeSST(book.SST, total))
	w.Write(SidEOF, nil)
	return patches, nil
}

func encodeFont(f Font) []byte {
	b := &builder{}
	b.u16(f.Height)
	var grbit uint16
	if f.Italic {
		grbit |= 0x02
	}
	if f.Strike {
		grbit |= 0x08
	}
	b.u16(grbit)
	b.u16(f.Color)
	b.u16(f.Weight)
	b.u16(f.Escapement)
	b.u8(f.Underline)
	b.u8(f.Family)
	b.u8(f.Charset)
	b.u8(0)
	appendString(b, f.Name, 1)
	return b.b
}

func encodeXF(x XF) []byte {
	b := &builder{}
	b.u16(x.Font)
	b.u16(x.Format)
	var prot uint16
	if x.Locked {
		prot |= 0x01
	}
	if x.Hidden {
		prot |= 0x02
	}
	if x.IsStyle {
		prot |= 0x04
	}
	prot |= (x.Parent & 0x0FFF) << 4
	b.u16(prot)
	align := x.HAlign&0x07 | (x.VAlign&0x07)<<4
	if x.Wrap {
		align |= 0x08
	}
	b.u8(align)
	b.u8(x.Rotation)
	ind := x.Indent & 0x0F
	if x.Shrink {
		ind |= 0x10
	}
	b.u8(ind)
	b.u8(x.Used << 2)
	b.u32(uint32(x.Left&0x0F) | uint32(x.Right&0x0F)<<4 | uint32(x.Top&0x0F)<<8 | uint32(x.Bottom&0x0F)<<12 |
		uint32(x.LeftColor&0x7F)<<16 | uint32(x.RightColor&0x7F)<<23)
	b.u32(uint32(x.TopColor&0x7F) | uint32(x.BottomColor&0x7F)<<7 | uint32(x.Pattern&0x3F)<<26)
	b.u16(x.FgColor&0x7F | (x.BgColor&0x7F)<<7)
	return b.b
}

func (e *bookEncoder) name(n Name) ([]byte, error) {
	var rgce, extra []byte
	if n.Formula != "" {
		ctx := e.context(0, 0)
		ctx.Reference = true
		var err error
		if rgce, extra, err = EncodeFormula(n.Formula, ctx); err != nil {
			return nil, err
		}
	}
	b := &builder{}
	var grbit uint16
	if n.Hidden {
		grbit |= 0x01
	}
	var text []byte
	var high bool
	cch := 0
	if code, ok := BuiltinCode(n.Name); ok && n.Builtin {
		grbit |= 0x20
		text, cch = []byte{code}, 1
	} else {
		text, high, cch = encodeChars(n.Name)
	}
	b.u16(grbit)
	b.u8(0)
	b.u8(byte(cch))
	b.u16(uint16(len(rgce)))
	b.u16(0)
	b.u16(uint16(n.Sheet))
	b.zero(4)
	if high {
		b.u8(0x01)
	} else {
		b.u8(0x00)
	}
	b.raw(text)
	b.raw(rgce)
	b.raw(extra)
	return b.b, nil
}

func (e *bookEncoder) sheet(sh *Sheet) ([]byte, error) {
	w := NewWriter()
	defer w.Release()
	w.Write(SidBOF, bof(bofWorksheet))

	var rowLevel, colLevel uint8
	for _, r := range sh.Rows {
		rowLevel = max(rowLevel, r.OutlineLevel)
	}
	for _, c := range sh.Cols {
		colLevel = max(colLevel, c.OutlineLevel)
	}
	guts := &builder{}
	guts.u16(0)
	guts.u16(0)
	guts.u16(uint16(levelCount(rowLevel)))
	guts.u16(uint16(levelCount(colLevel)))
	w.Write(SidGuts, guts.b)

	drh := &builder{}
	drh.u16(0)
	drh.u16(sh.DefaultRowHeight)
	w.Write(SidDefaultRowHeight, drh.b)

	wsbool := uint16(0x0401)
	if sh.RowSumsBelow {
		wsbool |= 0x0040
	}
	if sh.ColSumsRight {
		wsbool |= 0x0080
	}
	if sh.Setup.FitToPage {
		wsbool |= 0x0100
	}
	w.Write(SidWSBool, u16rec(wsbool))

	if len(sh.RowBreaks) > 0 {
		b := &builder{}
		b.u16(uint16(len(sh.RowBreaks)))
		for _, r := range sh.RowBreaks {
			b.u16(r)
			b.u16(0)
			b.u16(uint16(cellref.Excel97.LastColumnIndex()))
		}
		w.Write(SidHorizontalBreaks, b.b)
	}
	if len(sh.ColBreaks) > 0 {
		b := &builder{}
		b.u16(uint16(len(sh.ColBreaks)))
		for _, c := range sh.ColBreaks {
			b.u16(c)
			b.u16(0)
			b.u16(uint16(cellref.Excel97.LastRowIndex()))
		}
		w.Write(SidVerticalBreaks, b.b)
	}

	ps := sh.Setup
	for _, m := range []struct {
		sid uint16
		v   float64
	}{
		{SidLeftMargin, ps.LeftMargin},
		{SidRightMargin, ps.RightMargin},
		{SidTopMargin, ps.TopMargin},
		{SidBottomMargin, ps.BotMargin},
	} {
		b := &builder{}
		b.f64(m.v)
		w.Write(m.sid, b.b)
	}
	setup := &builder{}
	setup.u16(ps.PaperSize)
	setup.u16(ps.Scale)
	setup.u16(1)
	setup.u16(ps.FitWidth)
	setup.u16(ps.FitHeight)
	grbit := uint16(0x02)
	if ps.Landscape {
		grbit = 0
	}
	setup.u16(grbit)
	setup.u16(600)
	setup.u16(600)
	setup.f64(ps.HeaderMar)
	setup.f64(ps.FooterMar)
	setup.u16(1)
	w.Write(SidSetup, setup.b)

	if sh.Protected {
		w.Write(SidProtect, u16rec(1))
		w.Write(SidPassword, u16rec(sh.Password))
	}
	w.Write(SidDefColWidth, u16rec(sh.DefaultColWidth))

	for _, c := range sh.Cols {
		b := &builder{}
		b.u16(c.First)
		b.u16(c.Last)
		b.u16(c.Width)
		b.u16(c.XF)
		var g uint16
		if c.Hidden {
			g |= 0x01
		}
		g |= uint16(c.OutlineLevel&0x07) << 8
		if c.Collapsed {
			g |= 0x1000
		}
		b.u16(g)
		b.u16(0)
		w.Write(SidColInfo, b.b)
	}

	w.Write(SidDimensions, dimensions(sh))

	for start := 0; start < len(sh.Rows); start += 32 {
		block := sh.Rows[start:min(start+32, len(sh.Rows))]
		for _, r := range block {
			w.Write(SidRow, encodeRow(r))
		}
		for _, r := range block {
			for _, c := range r.Cells {
				if err := e.cell(w, sh, r.Index, c); err != nil {
					return nil, &EncodeError{Sheet: sh.Name, Row: r.Index, Col: c.Col, Err: err}
				}
			}
		}
	}

	win := &builder{}
	wg := uint16(0x06B6)
	if sh.Selected {
		wg |= 0x0600
	} else {
		wg &^= 0x0600
	}
	if sh.FreezeRow > 0 || sh.FreezeCol > 0 {
		wg |= 0x0008 | 0x0100
	}
	win.u16(wg)
	win.u16(0)
	win.u16(0)
	win.u16(0x40)
	win.u16(0)
	win.u16(0)
	win.u16(0)
	win.u16(0)
	win.u16(0)
	w.Write(SidWindow2, win.b)

	if sh.FreezeRow > 0 || sh.FreezeCol > 0 {
		b := &builder{}
		b.u16(sh.FreezeCol)
		b.u16(sh.FreezeRow)
		b.u16(sh.FreezeRow)
		b.u16(sh.FreezeCol)
		switch {
		case sh.FreezeRow > 0 && sh.FreezeCol > 0:
			b.u8(0)
		case sh.FreezeRow > 0:
			b.u8(2)
		default:
			b.u8(1)
		}
		b.u8(0)
		w.Write(SidPane, b.b)
	}

	for start := 0; start < len(sh.Merged); start += 1027 {
		chunk := sh.Merged[start:min(start+1027, len(sh.Merged))]
		b := &builder{}
		b.u16(uint16(len(chunk)))
		for _, a := range chunk {
			b.u16(a.FirstRow)
			b.u16(a.LastRow)
			b.u16(a.FirstCol)
			b.u16(a.LastCol)
		}
		w.Write(SidMergedCells, b.b)
	}

	for _, l := range sh.Links {
		w.Write(SidHLink, encodeHLink(l))
	}
	w.Write(SidEOF, nil)
	return w.Bytes(), nil
}

func levelCount(level uint8) uint8 {
	if level == 0 {
		return 0
	}
	return level + 1
}

func dimensions(sh *Sheet) []byte {
	b := &builder{}
	if len(sh.Rows) == 0 {
		b.zero(14)
		return b.b
	}
	firstCol, lastCol := -1, -1
	for _, r := range sh.Rows {
		if len(r.Cells) == 0 {
			continue
		}
		if firstCol < 0 || r.Cells[0].Col < firstCol {
			firstCol = r.Cells[0].Col
		}
		lastCol = max(lastCol, r.Cells[len(r.Cells)-1].Col)
	}
	if firstCol < 0 {
		firstCol, lastCol = 0, -1
	}
	b.u32(uint32(sh.Rows[0].Index))
	b.u32(uint32(sh.Rows[len(sh.Rows)-1].Index + 1))
	b.u16(uint16(firstCol))
	b.u16(uint16(lastCol + 1))
	b.u16(0)
	return b.b
}

func encodeRow(r *Row) []byte {
	b := &builder{}
	b.u16(uint16(r.Index))
	first, last := 0, 0
	if n := len(r.Cells); n > 0 {
		first, last = r.Cells[0].Col, r.Cells[n-1].Col+1
	}
	b.u16(uint16(first))
	b.u16(uint16(last))
	b.u16(r.Height & 0x7FFF)
	b.u16(0)
	b.u16(0)
	grbit := uint32(r.OutlineLevel&0x07) | 0x100
	if r.Collapsed {
		grbit |= 0x10
	}
	if r.Hidden {
		grbit |= 0x20
	}
	if r.CustomHeight {
		grbit |= 0x40
	}
	xf := uint32(0x0F)
	if r.Formatted {
		grbit |= 0x80
		xf = uint32(r.XF)
	}
	grbit |= (xf & 0x0FFF) << 16
	b.u32(grbit)
	return b.b
}

func cellHeader(row int, c *Cell) *builder {
	b := &builder{}
	b.u16(uint16(row))
	b.u16(uint16(c.Col))
	b.u16(c.XF)
	return b
}

func (e *bookEncoder) cell(w *Writer, sh *Sheet, row int, c *Cell) error {
	b := cellHeader(row, c)
	switch c.Kind {
	case CellBlank:
		w.Write(SidBlank, b.b)
	case CellNumber:
		b.f64(c.Num)
		w.Write(SidNumber, b.b)
	case CellString:
		b.u32(uint32(c.SST))
		w.Write(SidLabelSST, b.b)
	case CellBool, CellError:
		if c.Kind == CellBool {
			v := byte(0)
			if c.Bool {
				v = 1
			}
			b.u8(v)
			b.u8(0)
		} else {
			b.u8(c.Err)
			b.u8(1)
		}
		w.Write(SidBoolErr, b.b)
	case CellFormula:
		return e.formula(w, sh, row, c, b)
	}
	return nil
}

func (e *bookEncoder) formula(w *Writer, sh *Sheet, row int, c *Cell, b *builder) error {
	var (
		rgce, extra []byte
		owner       *ArrayFormula
	)
	for i := range sh.Arrays {
		a := &sh.Arrays[i]
		if a.Area.Contains(row, c.Col) {
			ex := &builder{}
			ex.u8(0x01)
			ex.u16(a.Area.FirstRow)
			ex.u16(a.Area.FirstCol)
			rgce = ex.b
			if int(a.Area.FirstRow) == row && int(a.Area.FirstCol) == c.Col {
				owner = a
			}
			break
		}
	}
	if rgce == nil {
		var err error
		if rgce, extra, err = EncodeFormula(c.Formula, e.context(row, c.Col)); err != nil {
			return err
		}
	}
	var stringResult bool
	switch c.Cached {
	case CellString:
		if c.CachedText == "" {
			b.raw([]byte{3, 0, 0, 0, 0, 0, 0xFF, 0xFF})
		} else {
			b.raw([]byte{0, 0, 0, 0, 0, 0, 0xFF, 0xFF})
			stringResult = true
		}
	case CellBool:
		v := byte(0)
		if c.Bool {
			v = 1
		}
		b.raw([]byte{1, 0, v, 0, 0, 0, 0xFF, 0xFF})
	case CellError:
		b.raw([]byte{2, 0, c.Err, 0, 0, 0, 0xFF, 0xFF})
	default:
		b.f64(c.Num)
	}
	b.u16(0x0001)
	b.u32(0)
	b.u16(uint16(len(rgce)))
	b.raw(rgce)
	b.raw(extra)
	w.Write(SidFormula, b.b)

	if owner != nil {
		ctx := e.context(row, c.Col)
		ctx.Array = true
		arr, arrExtra, err := EncodeFormula(owner.Formula, ctx)
		if err != nil {
			return err
		}
		ab := &builder{}
		ab.u16(owner.Area.FirstRow)
		ab.u16(owner.Area.LastRow)
		ab.u8(byte(owner.Area.FirstCol))
		ab.u8(byte(owner.Area.LastCol))
		ab.u16(0x0001)
		ab.u32(0)
		ab.u16(uint16(len(arr)))
		ab.raw(arr)
		ab.raw(arrExtra)
		w.Write(SidArray, ab.b)
	}
	if stringResult {
		sb := &builder{}
		appendString(sb, c.CachedText, 2)
		w.Write(SidString, sb.b)
	}
	return nil
}

func encodeHLink(l Hyperlink) []byte {
	b := &builder{}
	b.u16(l.Area.FirstRow)
	b.u16(l.Area.LastRow)
	b.u16(l.Area.FirstCol)
	b.u16(l.Area.LastCol)
	b.raw(stdLinkCLSID)
	b.u32(2)
	b.u32(0x03)
	b.raw(urlMoniker)
	units := utf16.Encode([]rune(l.URL))
	b.u32(uint32((len(units) + 1) * 2))
	for _, u := range units {
		b.u16(u)
	}
	b.u16(0)
	return b.b
}
