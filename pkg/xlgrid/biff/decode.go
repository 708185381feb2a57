package biff

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"unicode/utf16"
)

var (
	// ErrVersion indicates a stream older than BIFF8.
	ErrVersion = errors.New("only BIFF8 workbooks are supported")
	// ErrEncrypted indicates a password-protected workbook stream.
	ErrEncrypted = errors.New("encrypted workbooks are not supported")
)

const sidFilePass uint16 = 0x002F

type boundSheet struct {
	offset     uint32
	visibility uint8
	kind       uint8
	name       string
}

type xti struct {
	book, first, last uint16
}

type rawName struct {
	name  Name
	rgce  []byte
	extra []byte
}

type decoder struct {
	r       *Reader
	book    *Book
	bounds  []boundSheet
	books   []bool // SUPBOOK entries, true for the internal one
	xtis    []xti
	names   []rawName
	sheetOf map[int]string
}

// Decode parses a BIFF8 workbook stream.
func Decode(stream []byte) (*Book, error) {
	d := &decoder{r: NewReader(stream), book: &Book{Codepage: 1200}, sheetOf: map[int]string{}}
	if err := d.globals(); err != nil {
		return nil, err
	}
	for i, bs := range d.bounds {
		d.sheetOf[i] = bs.name
	}
	for _, bs := range d.bounds {
		if bs.kind != 0 {
			continue
		}
		if err := d.r.Seek(int(bs.offset)); err != nil {
			return nil, err
		}
		sh := NewSheet(bs.name)
		sh.Visibility = bs.visibility
		if err := d.sheet(sh); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", bs.name, err)
		}
		d.book.Sheets = append(d.book.Sheets, sh)
	}
	if d.book.ActiveSheet >= len(d.book.Sheets) {
		d.book.ActiveSheet = 0
	}
	ctx := d.context(0, 0)
	for _, rn := range d.names {
		n := rn.name
		if len(rn.rgce) > 0 {
			text, err := DecodeFormula(rn.rgce, rn.extra, ctx)
			if err != nil {
				// names using unsupported tokens keep an error formula
				text = "#REF!"
			}
			n.Formula = text
		}
		d.book.Names = append(d.book.Names, n)
	}
	return d.book, nil
}

func (d *decoder) context(row, col int) *FormulaContext {
	return &FormulaContext{
		Row: row,
		Col: col,
		SheetName: func(ixti int) (string, bool) {
			if ixti < 0 || ixti >= len(d.xtis) {
				return "", false
			}
			x := d.xtis[ixti]
			if int(x.book) >= len(d.books) || !d.books[x.book] || x.first != x.last {
				return "", false
			}
			name, ok := d.sheetOf[int(x.first)]
			return name, ok
		},
		NameText: func(index int) (string, bool) {
			if index < 1 || index > len(d.names) {
				return "", false
			}
			return d.names[index-1].name.Name, true
		},
	}
}

func (d *decoder) globals() error {
	first := true
	for {
		rec, err := d.r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		c := &cursor{b: rec.Data}
		if first {
			if rec.Sid != SidBOF {
				return &RecordError{Sid: rec.Sid, Offset: rec.Offset, Err: errors.New("stream does not start with BOF")}
			}
			if c.u16() != biff8Version {
				return ErrVersion
			}
			first = false
			continue
		}
		switch rec.Sid {
		case SidEOF:
			return nil
		case sidFilePass:
			return ErrEncrypted
		case SidCodepage:
			d.book.Codepage = c.u16()
		case SidDateMode:
			d.book.Date1904 = c.u16() == 1
		case SidWindow1:
			c.skip(10)
			d.book.ActiveSheet = int(c.u16())
		case SidFont:
			d.book.Fonts = append(d.book.Fonts, decodeFont(c))
		case SidFormat:
			idx := c.u16()
			d.book.Formats = append(d.book.Formats, Format{Index: idx, Code: readString(c, 2)})
		case SidXF:
			d.book.XFs = append(d.book.XFs, decodeXF(c))
		case SidStyle:
			d.book.Styles = append(d.book.Styles, decodeStyle(c))
		case SidPalette:
			n := int(c.u16())
			d.book.Palette = make([]uint32, 0, n)
			for i := 0; i < n; i++ {
				r, g, b := c.u8(), c.u8(), c.u8()
				c.skip(1)
				d.book.Palette = append(d.book.Palette, uint32(r)<<16|uint32(g)<<8|uint32(b))
			}
		case SidBoundSheet:
			bs := boundSheet{offset: c.u32(), visibility: c.u8() & 0x03, kind: c.u8()}
			bs.name = readString(c, 1)
			d.bounds = append(d.bounds, bs)
		case SidSupBook:
			c.u16()
			d.books = append(d.books, c.u16() == 0x0401)
		case SidExternSheet:
			c = &cursor{b: rec.Joined()}
			n := int(c.u16())
			for i := 0; i < n; i++ {
				d.xtis = append(d.xtis, xti{book: c.u16(), first: c.u16(), last: c.u16()})
			}
		case SidName:
			d.names = append(d.names, decodeName(&cursor{b: rec.Joined()}))
		case SidSST:
			sst, err := DecodeSST(rec)
			if err != nil {
				return err
			}
			d.book.SST = sst
		}
		if c.err != nil {
			return &RecordError{Sid: rec.Sid, Offset: rec.Offset, Err: c.err}
		}
	}
}

func decodeFont(c *cursor) Font {
	f := Font{Height: c.u16()}
	grbit := c.u16()
	f.Italic = grbit&0x02 != 0
	f.Strike = grbit&0x08 != 0
	f.Color = c.u16()
	f.Weight = c.u16()
	f.Escapement = c.u16()
	f.Underline = c.u8()
	f.Family = c.u8()
	f.Charset = c.u8()
	c.skip(1)
	f.Name = readString(c, 1)
	return f
}

func decodeXF(c *cursor) XF {
	x := XF{Font: c.u16(), Format: c.u16()}
	prot := c.u16()
	x.Locked = prot&0x01 != 0
	x.Hidden = prot&0x02 != 0
	x.IsStyle = prot&0x04 != 0
	x.Parent = prot >> 4
	align := c.u8()
	x.HAlign = align & 0x07
	x.Wrap = align&0x08 != 0
	x.VAlign = (align >> 4) & 0x07
	x.Rotation = c.u8()
	ind := c.u8()
	x.Indent = ind & 0x0F
	x.Shrink = ind&0x10 != 0
	x.Used = c.u8() >> 2
	b1 := c.u32()
	x.Left = uint8(b1 & 0x0F)
	x.Right = uint8(b1 >> 4 & 0x0F)
	x.Top = uint8(b1 >> 8 & 0x0F)
	x.Bottom = uint8(b1 >> 12 & 0x0F)
	x.LeftColor = uint16(b1 >> 16 & 0x7F)
	x.RightColor = uint16(b1 >> 23 & 0x7F)
	b2 := c.u32()
	x.TopColor = uint16(b2 & 0x7F)
	x.BottomColor = uint16(b2 >> 7 & 0x7F)
	x.Pattern = uint8(b2 >> 26 & 0x3F)
	fill := c.u16()
	x.FgColor = fill & 0x7F
	x.BgColor = fill >> 7 & 0x7F
	return x
}

func decodeStyle(c *cursor) Style {
	v := c.u16()
	s := Style{XF: v & 0x0FFF, Builtin: v&0x8000 != 0}
	if s.Builtin {
		s.BuiltID = c.u8()
		s.Level = c.u8()
		return s
	}
	s.Name = readString(c, 2)
	return s
}

func decodeName(c *cursor) rawName {
	grbit := c.u16()
	c.skip(1)
	cch := int(c.u8())
	cce := int(c.u16())
	c.skip(2)
	itab := int(c.u16())
	c.skip(4)
	n := Name{Hidden: grbit&0x01 != 0, Builtin: grbit&0x20 != 0, Sheet: itab}
	text := readStringBody(c, cch)
	if n.Builtin && len(text) > 0 {
		text = BuiltinName(text[0])
	}
	n.Name = text
	rn := rawName{name: n}
	if cce > 0 {
		rn.rgce = append([]byte(nil), c.bytes(min(cce, c.remaining()))...)
		rn.extra = append([]byte(nil), c.bytes(c.remaining())...)
	}
	return rn
}

// pending formula cells whose tokens point at an array or shared formula
type expCell struct {
	row      int
	cell     *Cell
	hostRow  int
	hostCol  int
	resolved bool
}

type sharedFormula struct {
	area  Area
	rgce  []byte
	extra []byte
}

type sheetDecoder struct {
	*decoder
	sh      *Sheet
	rows    map[int]*Row
	exps    []*expCell
	shared  []sharedFormula
	lastFml *Cell
}

func (d *decoder) sheet(sh *Sheet) error {
	s := &sheetDecoder{decoder: d, sh: sh, rows: map[int]*Row{}}
	rec, err := d.r.Next()
	if err != nil {
		return err
	}
	if rec.Sid != SidBOF {
		return &RecordError{Sid: rec.Sid, Offset: rec.Offset, Err: errors.New("sheet does not start with BOF")}
	}
	depth := 0
	for {
		rec, err := d.r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if rec.Sid == SidBOF {
			depth++
			continue
		}
		if rec.Sid == SidEOF {
			if depth == 0 {
				break
			}
			depth--
			continue
		}
		if depth > 0 {
			continue
		}
		if err := s.record(rec); err != nil {
			return err
		}
	}
	s.finish()
	return nil
}

func (s *sheetDecoder) row(idx int) *Row {
	r, ok := s.rows[idx]
	if !ok {
		r = &Row{Index: idx, Height: s.sh.DefaultRowHeight}
		s.rows[idx] = r
	}
	return r
}

func (s *sheetDecoder) put(row int, cell *Cell) {
	r := s.row(row)
	r.Cells = append(r.Cells, cell)
}

func (s *sheetDecoder) record(rec Record) error {
	c := &cursor{b: rec.Data}
	sh := s.sh
	switch rec.Sid {
	case SidString, SidArray, SidSharedFormula:
	default:
		s.lastFml = nil
	}
	switch rec.Sid {
	case SidDefaultRowHeight:
		c.u16()
		sh.DefaultRowHeight = c.u16()
	case SidDefColWidth:
		sh.DefaultColWidth = c.u16()
	case SidWSBool:
		v := c.u16()
		sh.RowSumsBelow = v&0x0040 != 0
		sh.ColSumsRight = v&0x0080 != 0
		sh.Setup.FitToPage = v&0x0100 != 0
	case SidLeftMargin:
		sh.Setup.LeftMargin = c.f64()
	case SidRightMargin:
		sh.Setup.RightMargin = c.f64()
	case SidTopMargin:
		sh.Setup.TopMargin = c.f64()
	case SidBottomMargin:
		sh.Setup.BotMargin = c.f64()
	case SidSetup:
		sh.Setup.PaperSize = c.u16()
		sh.Setup.Scale = c.u16()
		c.u16()
		sh.Setup.FitWidth = c.u16()
		sh.Setup.FitHeight = c.u16()
		grbit := c.u16()
		if grbit&0x04 == 0 {
			sh.Setup.Landscape = grbit&0x02 == 0
		}
		c.skip(4)
		sh.Setup.HeaderMar = c.f64()
		sh.Setup.FooterMar = c.f64()
	case SidProtect:
		sh.Protected = c.u16() != 0
	case SidPassword:
		sh.Password = c.u16()
	case SidHorizontalBreaks:
		n := int(c.u16())
		for i := 0; i < n; i++ {
			sh.RowBreaks = append(sh.RowBreaks, c.u16())
			c.skip(4)
		}
	case SidVerticalBreaks:
		n := int(c.u16())
		for i := 0; i < n; i++ {
			sh.ColBreaks = append(sh.ColBreaks, c.u16())
			c.skip(4)
		}
	case SidColInfo:
		ci := ColInfo{First: c.u16(), Last: c.u16(), Width: c.u16(), XF: c.u16()}
		grbit := c.u16()
		ci.Hidden = grbit&0x01 != 0
		ci.OutlineLevel = uint8(grbit >> 8 & 0x07)
		ci.Collapsed = grbit&0x1000 != 0
		sh.Cols = append(sh.Cols, ci)
	case SidRow:
		r := s.row(int(c.u16()))
		c.skip(4)
		h := c.u16()
		c.skip(4)
		grbit := c.u32()
		r.Height = h & 0x7FFF
		r.OutlineLevel = uint8(grbit & 0x07)
		r.Collapsed = grbit&0x10 != 0
		r.Hidden = grbit&0x20 != 0
		r.CustomHeight = grbit&0x40 != 0
		r.Formatted = grbit&0x80 != 0
		if r.Formatted {
			r.XF = uint16(grbit >> 16 & 0x0FFF)
		}
	case SidNumber:
		row, col, xf := int(c.u16()), int(c.u16()), c.u16()
		s.put(row, &Cell{Col: col, XF: xf, Kind: CellNumber, Num: c.f64()})
	case SidRK:
		row, col, xf := int(c.u16()), int(c.u16()), c.u16()
		s.put(row, &Cell{Col: col, XF: xf, Kind: CellNumber, Num: decodeRK(c.u32())})
	case SidMulRK:
		row, col := int(c.u16()), int(c.u16())
		for c.remaining() >= 8 {
			xf := c.u16()
			s.put(row, &Cell{Col: col, XF: xf, Kind: CellNumber, Num: decodeRK(c.u32())})
			col++
		}
	case SidBlank:
		row, col, xf := int(c.u16()), int(c.u16()), c.u16()
		s.put(row, &Cell{Col: col, XF: xf, Kind: CellBlank})
	case SidMulBlank:
		row, col := int(c.u16()), int(c.u16())
		for c.remaining() >= 4 {
			s.put(row, &Cell{Col: col, XF: c.u16(), Kind: CellBlank})
			col++
		}
	case SidLabelSST:
		row, col, xf := int(c.u16()), int(c.u16()), c.u16()
		s.put(row, &Cell{Col: col, XF: xf, Kind: CellString, SST: int(c.u32())})
	case SidLabel:
		row, col, xf := int(c.u16()), int(c.u16()), c.u16()
		s.book.SST = append(s.book.SST, readString(c, 2))
		s.put(row, &Cell{Col: col, XF: xf, Kind: CellString, SST: len(s.book.SST) - 1})
	case SidBoolErr:
		row, col, xf := int(c.u16()), int(c.u16()), c.u16()
		v, isErr := c.u8(), c.u8()
		cell := &Cell{Col: col, XF: xf, Kind: CellBool, Bool: v != 0}
		if isErr != 0 {
			cell.Kind, cell.Bool, cell.Err = CellError, false, v
		}
		s.put(row, cell)
	case SidFormula:
		return s.formula(rec)
	case SidString:
		if s.lastFml != nil {
			s.lastFml.CachedText = readString(&cursor{b: rec.Joined()}, 2)
			s.lastFml = nil
		}
	case SidArray:
		c = &cursor{b: rec.Joined()}
		a := Area{FirstRow: c.u16(), LastRow: c.u16(), FirstCol: uint16(c.u8()), LastCol: uint16(c.u8())}
		c.skip(6)
		cce := int(c.u16())
		rgce := c.bytes(cce)
		extra := c.bytes(c.remaining())
		if c.err != nil {
			return &RecordError{Sid: rec.Sid, Offset: rec.Offset, Err: c.err}
		}
		text, err := DecodeFormula(rgce, extra, s.context(int(a.FirstRow), int(a.FirstCol)))
		if err != nil {
			return &RecordError{Sid: rec.Sid, Offset: rec.Offset, Err: err}
		}
		s.sh.Arrays = append(s.sh.Arrays, ArrayFormula{Area: a, Formula: text})
	case SidSharedFormula:
		c = &cursor{b: rec.Joined()}
		a := Area{FirstRow: c.u16(), LastRow: c.u16(), FirstCol: uint16(c.u8()), LastCol: uint16(c.u8())}
		c.skip(2)
		cce := int(c.u16())
		rgce := c.bytes(cce)
		extra := c.bytes(c.remaining())
		if c.err != nil {
			return &RecordError{Sid: rec.Sid, Offset: rec.Offset, Err: c.err}
		}
		s.shared = append(s.shared, sharedFormula{
			area:  a,
			rgce:  append([]byte(nil), rgce...),
			extra: append([]byte(nil), extra...),
		})
	case SidMergedCells:
		n := int(c.u16())
		for i := 0; i < n; i++ {
			sh.Merged = append(sh.Merged, Area{FirstRow: c.u16(), LastRow: c.u16(), FirstCol: c.u16(), LastCol: c.u16()})
		}
	case SidHLink:
		if link, ok := decodeHLink(rec.Joined()); ok {
			sh.Links = append(sh.Links, link)
		}
	case SidWindow2:
		grbit := c.u16()
		sh.Selected = grbit&0x0200 != 0
	case SidPane:
		x, y := c.u16(), c.u16()
		sh.FreezeCol, sh.FreezeRow = x, y
	case SidNote:
		sh.HasComments = true
	}
	if c.err != nil {
		return &RecordError{Sid: rec.Sid, Offset: rec.Offset, Err: c.err}
	}
	return nil
}

func (s *sheetDecoder) formula(rec Record) error {
	c := &cursor{b: rec.Joined()}
	row, col, xf := int(c.u16()), int(c.u16()), c.u16()
	val := c.bytes(8)
	c.skip(6)
	cce := int(c.u16())
	rgce := c.bytes(cce)
	extra := c.bytes(c.remaining())
	if c.err != nil {
		return &RecordError{Sid: rec.Sid, Offset: rec.Offset, Err: c.err}
	}
	cell := &Cell{Col: col, XF: xf, Kind: CellFormula}
	if val[6] == 0xFF && val[7] == 0xFF {
		switch val[0] {
		case 0:
			cell.Cached = CellString
			s.lastFml = cell
		case 1:
			cell.Cached, cell.Bool = CellBool, val[2] != 0
		case 2:
			cell.Cached, cell.Err = CellError, val[2]
		case 3:
			cell.Cached = CellString
		}
	} else {
		cell.Cached = CellNumber
		cell.Num = (&cursor{b: val}).f64()
	}
	s.put(row, cell)
	if hr, hc, ok := ExpReference(rgce); ok {
		s.exps = append(s.exps, &expCell{row: row, cell: cell, hostRow: hr, hostCol: hc})
		return nil
	}
	text, err := DecodeFormula(rgce, extra, s.context(row, col))
	if err != nil {
		return &RecordError{Sid: rec.Sid, Offset: rec.Offset, Err: err}
	}
	cell.Formula = text
	return nil
}

func (s *sheetDecoder) finish() {
	for _, e := range s.exps {
		for _, a := range s.sh.Arrays {
			if int(a.Area.FirstRow) == e.hostRow && int(a.Area.FirstCol) == e.hostCol && a.Area.Contains(e.row, e.cell.Col) {
				e.resolved = true
				break
			}
		}
		if e.resolved {
			continue
		}
		for _, sf := range s.shared {
			if int(sf.area.FirstRow) == e.hostRow && int(sf.area.FirstCol) == e.hostCol && sf.area.Contains(e.row, e.cell.Col) {
				if text, err := DecodeFormula(sf.rgce, sf.extra, s.context(e.row, e.cell.Col)); err == nil {
					e.cell.Formula = text
					e.resolved = true
				}
				break
			}
		}
		if !e.resolved {
			// dangling reference: keep the cached value as a constant
			e.cell.Kind = e.cell.Cached
			if e.cell.Kind == CellString {
				s.book.SST = append(s.book.SST, e.cell.CachedText)
				e.cell.SST = len(s.book.SST) - 1
			}
		}
	}
	idx := make([]int, 0, len(s.rows))
	for i := range s.rows {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	for _, i := range idx {
		r := s.rows[i]
		sort.SliceStable(r.Cells, func(a, b int) bool { return r.Cells[a].Col < r.Cells[b].Col })
		s.sh.Rows = append(s.sh.Rows, r)
	}
}

func decodeRK(rk uint32) float64 {
	var v float64
	if rk&0x02 != 0 {
		v = float64(int32(rk) >> 2)
	} else {
		v = math.Float64frombits(uint64(rk&0xFFFFFFFC) << 32)
	}
	if rk&0x01 != 0 {
		v /= 100
	}
	return v
}

var (
	stdLinkCLSID = []byte{0xD0, 0xC9, 0xEA, 0x79, 0xF9, 0xBA, 0xCE, 0x11, 0x8C, 0x82, 0x00, 0xAA, 0x00, 0x4B, 0xA9, 0x0B}
	urlMoniker   = []byte{0xE0, 0xC9, 0xEA, 0x79, 0xF9, 0xBA, 0xCE, 0x11, 0x8C, 0x82, 0x00, 0xAA, 0x00, 0x4B, 0xA9, 0x0B}
)

// decodeHLink reads URL hyperlinks. File and in-document links are skipped.
func decodeHLink(b []byte) (Hyperlink, bool) {
	c := &cursor{b: b}
	link := Hyperlink{Area: Area{FirstRow: c.u16(), LastRow: c.u16(), FirstCol: c.u16(), LastCol: c.u16()}}
	c.skip(16)
	c.skip(4)
	flags := c.u32()
	readUTF16 := func() string {
		n := int(c.u32())
		raw := c.bytes(n * 2)
		return utf16String(raw)
	}
	if flags&0x10 != 0 {
		readUTF16()
	}
	if flags&0x80 != 0 {
		readUTF16()
	}
	if flags&0x01 == 0 || flags&0x100 != 0 {
		return link, false
	}
	if !bytes.Equal(c.bytes(16), urlMoniker) {
		return link, false
	}
	n := int(c.u32())
	link.URL = utf16String(c.bytes(n))
	return link, c.err == nil && link.URL != ""
}

func utf16String(raw []byte) string {
	units := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		u := uint16(raw[i]) | uint16(raw[i+1])<<8
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}
