package xlgrid

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/biff"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/cellref"
)

// builtinStyles are the ids of the STYLE records Excel knows by number.
// RowLevel_n and ColLevel_n (ids 1 and 2) carry the level separately.
var builtinStyles = map[uint8]string{
	0: "Normal",
	3: "Comma",
	4: "Currency",
	5: "Percent",
	6: "Comma [0]",
	7: "Currency [0]",
	8: "Hyperlink",
	9: "Followed Hyperlink",
}

func builtinStyleName(id, level uint8) string {
	switch id {
	case 1:
		return "RowLevel_" + strconv.Itoa(int(level)+1)
	case 2:
		return "ColLevel_" + strconv.Itoa(int(level)+1)
	}
	if name, ok := builtinStyles[id]; ok {
		return name
	}
	return "Style " + strconv.Itoa(int(id))
}

func builtinStyleRecord(xf int, name string) (biff.Style, bool) {
	for id, n := range builtinStyles {
		if n == name {
			return biff.Style{XF: uint16(xf), Builtin: true, BuiltID: id, Level: 0xFF}, true
		}
	}
	for id, prefix := range map[uint8]string{1: "RowLevel_", 2: "ColLevel_"} {
		if rest, ok := strings.CutPrefix(name, prefix); ok {
			if level, err := strconv.Atoi(rest); err == nil && level >= 1 && level <= maxOutlineLevel {
				return biff.Style{XF: uint16(xf), Builtin: true, BuiltID: id, Level: uint8(level - 1)}, true
			}
		}
	}
	return biff.Style{}, false
}

var biffUnderlines = map[uint8]Underline{
	0x00: UnderlineNone,
	0x01: UnderlineSingle,
	0x02: UnderlineDouble,
	0x21: UnderlineSingleAccounting,
	0x22: UnderlineDoubleAccounting,
}

func fontFromBIFF(f biff.Font) fontRecord {
	return fontRecord{
		Name:       f.Name,
		Height:     int(f.Height),
		Bold:       f.Weight >= 700,
		Italic:     f.Italic,
		Strike:     f.Strike,
		Underline:  biffUnderlines[f.Underline],
		Escapement: Escapement(f.Escapement),
		Color:      int(f.Color),
		Family:     int(f.Family),
		Charset:    int(f.Charset),
	}
}

func fontToBIFF(f fontRecord) biff.Font {
	out := biff.Font{
		Height:     uint16(f.Height),
		Italic:     f.Italic,
		Strike:     f.Strike,
		Color:      uint16(f.Color),
		Weight:     400,
		Escapement: uint16(f.Escapement),
		Family:     uint8(f.Family),
		Charset:    uint8(f.Charset),
		Name:       f.Name,
	}
	if f.Bold {
		out.Weight = 700
	}
	for code, u := range biffUnderlines {
		if u == f.Underline {
			out.Underline = code
		}
	}
	return out
}

func areaRange(a biff.Area) cellref.Range {
	return cellref.NewRange(int(a.FirstRow), int(a.LastRow), int(a.FirstCol), int(a.LastCol))
}

func rangeArea(r cellref.Range) biff.Area {
	return biff.Area{FirstRow: uint16(r.FirstRow), LastRow: uint16(r.LastRow), FirstCol: uint16(r.FirstCol), LastCol: uint16(r.LastCol)}
}

func loadHSSF(data []byte, opts Options) (*Workbook, error) {
	stream, props, err := biff.ReadContainer(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	book, err := biff.Decode(stream)
	if err != nil {
		return nil, fmt.Errorf("decode workbook stream: %w", err)
	}
	wb, err := newWorkbook(FormatBIFF8, opts)
	if err != nil {
		return nil, err
	}
	wb.date1904 = book.Date1904
	wb.active = book.ActiveSheet
	wb.strings = newSharedStringTable(book.SST)
	wb.loadHSSFStyles(book)

	for _, bs := range book.Sheets {
		sh := wb.newSheet(bs.Name)
		sh.loadHSSF(bs)
		wb.sheets = append(wb.sheets, sh)
	}
	for _, n := range book.Names {
		name := n.Name
		if n.Builtin {
			name = BuiltinPrefix + name
		}
		wb.names = append(wb.names, &DefinedName{Name: name, RefersTo: n.Formula, Sheet: n.Sheet - 1, Hidden: n.Hidden})
	}
	wb.props = DocumentProperties{
		Title:          props["Title"],
		Subject:        props["Subject"],
		Author:         props["Author"],
		Keywords:       props["Keywords"],
		Description:    props["Comments"],
		LastModifiedBy: props["LastAuthor"],
	}
	return wb, nil
}

// loadHSSFStyles fills the style table from the FONT, FORMAT, XF, STYLE and
// PALETTE records.
func (wb *Workbook) loadHSSFStyles(book *biff.Book) {
	st := wb.styles
	for i, f := range book.Fonts {
		if i == 4 {
			continue
		}
		st.fonts = append(st.fonts, fontFromBIFF(f))
	}
	if len(st.fonts) == 0 {
		st.fonts = []fontRecord{{Name: wb.opts.DefaultFontName, Height: wb.opts.DefaultFontHeight, Color: ColorFontAutomatic, Family: 2}}
	}
	for _, f := range book.Formats {
		st.formats.put(int(f.Index), f.Code)
	}
	st.palette.custom = slices.Clone(book.Palette)
	if len(book.XFs) == 0 {
		st.store = newHSSFStyles()
	} else {
		st.store = &hssfStyles{xfs: slices.Clone(book.XFs)}
	}
	st.normal = 0
	st.defaultStyle = 0
	for i := range st.store.len() {
		if !st.store.get(i).IsStyle {
			st.defaultStyle = i
			break
		}
	}
	if st.store.len() > 15 && !st.store.get(15).IsStyle {
		st.defaultStyle = 15
	}
	for _, s := range book.Styles {
		if int(s.XF) >= st.store.len() {
			continue
		}
		name := s.Name
		if s.Builtin {
			name = builtinStyleName(s.BuiltID, s.Level)
		}
		st.names[int(s.XF)] = name
	}
	if _, ok := st.names[0]; !ok {
		st.names[0] = "Normal"
	}
}

// loadHSSF takes over the records of a decoded sheet.
func (sh *Sheet) loadHSSF(bs *biff.Sheet) {
	hs := sh.store.(*hssfSheet)
	hs.sh = bs
	hs.defaultXF = uint16(sh.wb.styles.defaultStyle)
	for _, rs := range hs.rows() {
		row := sh.attachRow(rs)
		for _, cs := range rs.cells() {
			row.attachCell(cs)
		}
	}

	sh.visibility = Visibility(bs.Visibility)
	sh.defaultRowHeight = int(bs.DefaultRowHeight)
	sh.defaultColWidth = int(bs.DefaultColWidth)
	lastCol := sh.wb.version.LastColumnIndex()
	for _, ci := range bs.Cols {
		info := colInfo{Width: int(ci.Width), Hidden: ci.Hidden, OutlineLevel: int(ci.OutlineLevel), Collapsed: ci.Collapsed, Style: int(ci.XF)}
		if ci.XF == hs.defaultXF {
			info.Style = -1
		}
		for c := int(ci.First); c <= int(ci.Last) && c <= lastCol; c++ {
			sh.setCol(c, info)
		}
	}
	for _, a := range bs.Merged {
		sh.merged.add(areaRange(a))
	}
	for _, a := range bs.Arrays {
		sh.arrays = append(sh.arrays, &arrayFormula{rng: areaRange(a.Area), formula: a.Formula})
	}
	for _, l := range bs.Links {
		sh.links = append(sh.links, &Hyperlink{Range: areaRange(l.Area), URL: l.URL})
	}
	for _, r := range bs.RowBreaks {
		if r > 0 {
			sh.rowBreaks = addBreak(sh.rowBreaks, int(r)-1)
		}
	}
	for _, c := range bs.ColBreaks {
		if c > 0 {
			sh.colBreaks = addBreak(sh.colBreaks, int(c)-1)
		}
	}
	*sh.setup = PrintSetup{
		PaperSize:    int(bs.Setup.PaperSize),
		Scale:        int(bs.Setup.Scale),
		FitWidth:     int(bs.Setup.FitWidth),
		FitHeight:    int(bs.Setup.FitHeight),
		FitToPage:    bs.Setup.FitToPage,
		Landscape:    bs.Setup.Landscape,
		LeftMargin:   bs.Setup.LeftMargin,
		RightMargin:  bs.Setup.RightMargin,
		TopMargin:    bs.Setup.TopMargin,
		BottomMargin: bs.Setup.BotMargin,
		HeaderMargin: bs.Setup.HeaderMar,
		FooterMargin: bs.Setup.FooterMar,
	}
	sh.protected, sh.passwordHash = bs.Protected, bs.Password
	sh.freezeRow, sh.freezeCol = int(bs.FreezeRow), int(bs.FreezeCol)
	sh.rowSumsBelow, sh.colSumsRight = bs.RowSumsBelow, bs.ColSumsRight
	if bs.HasComments {
		sh.wb.log.WithField("sheet", sh.name).Warn("cell notes are not read from BIFF8 files and were dropped")
		bs.HasComments = false
	}
}

func (wb *Workbook) writeHSSF(w io.Writer) error {
	book, err := wb.hssfBook()
	if err != nil {
		return err
	}
	stream, err := biff.Encode(book)
	if errors.Is(err, biff.ErrUnsupportedFormula) {
		// formulas BIFF8 cannot store, e.g. functions added after Excel 2003
		return fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	if err != nil {
		return err
	}
	return biff.WriteContainer(w, stream)
}

// hssfBook assembles the records of the workbook. Sheet records are copies;
// the live rows are shared and left untouched.
func (wb *Workbook) hssfBook() (*biff.Book, error) {
	st := wb.styles
	hs, ok := st.store.(*hssfStyles)
	if !ok {
		return nil, fmt.Errorf("%w: style table is not BIFF8", ErrUnsupported)
	}
	book := &biff.Book{
		Codepage:    1200,
		Date1904:    wb.date1904,
		ActiveSheet: wb.active,
		XFs:         slices.Clone(hs.xfs),
		Palette:     slices.Clone(st.palette.custom),
	}
	for i, f := range st.fonts {
		if i == 4 {
			// stored font 4 does not exist; readers skip the record
			book.Fonts = append(book.Fonts, fontToBIFF(st.fonts[0]))
		}
		book.Fonts = append(book.Fonts, fontToBIFF(f))
	}
	for len(book.Fonts) < 4 {
		book.Fonts = append(book.Fonts, fontToBIFF(st.fonts[0]))
	}
	for _, id := range st.formats.customIDs() {
		book.Formats = append(book.Formats, biff.Format{Index: uint16(id), Code: st.formats.custom[id]})
	}
	slots := make([]int, 0, len(st.names))
	for idx := range st.names {
		slots = append(slots, idx)
	}
	slices.Sort(slots)
	for _, idx := range slots {
		if s, ok := builtinStyleRecord(idx, st.names[idx]); ok {
			book.Styles = append(book.Styles, s)
			continue
		}
		book.Styles = append(book.Styles, biff.Style{XF: uint16(idx), Name: st.names[idx]})
	}

	for i, sh := range wb.sheets {
		book.Sheets = append(book.Sheets, sh.hssfRecord(i == wb.active))
	}
	for _, n := range wb.names {
		bn := biff.Name{Name: n.Name, Hidden: n.Hidden, Sheet: n.Sheet + 1, Formula: n.RefersTo}
		if rest, ok := strings.CutPrefix(n.Name, BuiltinPrefix); ok {
			bn.Name, bn.Builtin = rest, true
		}
		book.Names = append(book.Names, bn)
	}
	// taken last: cells without a usable formula may add their cached text
	book.SST = wb.strings.Strings()
	return book, nil
}

// hssfRecord returns a copy of the sheet record with the sheet state
// written back.
func (sh *Sheet) hssfRecord(selected bool) *biff.Sheet {
	src := sh.store.(*hssfSheet).sh
	out := *src
	out.Name = sh.name
	out.Visibility = uint8(sh.visibility)
	out.Selected = selected
	out.DefaultRowHeight = uint16(sh.defaultRowHeight)
	out.DefaultColWidth = uint16(sh.defaultColWidth)
	out.Rows = sh.hssfRows(src.Rows)
	out.Cols = sh.hssfCols()
	out.Merged = nil
	for _, rng := range sh.MergedRegions() {
		out.Merged = append(out.Merged, rangeArea(rng))
	}
	out.Arrays = nil
	for _, a := range sh.arrays {
		out.Arrays = append(out.Arrays, biff.ArrayFormula{Area: rangeArea(a.rng), Formula: a.formula})
	}
	out.Links = nil
	for _, l := range sh.links {
		if l.URL == "" {
			sh.wb.log.WithFields(logrus.Fields{"sheet": sh.name, "at": l.Range.String(), "location": l.Location}).
				Warn("hyperlink to a location is not written to BIFF8")
			continue
		}
		out.Links = append(out.Links, biff.Hyperlink{Area: rangeArea(l.Range), URL: l.URL})
	}
	out.RowBreaks = breakRecords(sh.rowBreaks)
	out.ColBreaks = breakRecords(sh.colBreaks)
	ps := sh.setup
	out.Setup = biff.PageSetup{
		PaperSize:   uint16(ps.PaperSize),
		Scale:       uint16(ps.Scale),
		FitWidth:    uint16(ps.FitWidth),
		FitHeight:   uint16(ps.FitHeight),
		FitToPage:   ps.FitToPage,
		Landscape:   ps.Landscape,
		LeftMargin:  ps.LeftMargin,
		RightMargin: ps.RightMargin,
		TopMargin:   ps.TopMargin,
		BotMargin:   ps.BottomMargin,
		HeaderMar:   ps.HeaderMargin,
		FooterMar:   ps.FooterMargin,
	}
	out.Protected, out.Password = sh.protected, sh.passwordHash
	out.FreezeRow, out.FreezeCol = uint16(sh.freezeRow), uint16(sh.freezeCol)
	out.RowSumsBelow, out.ColSumsRight = sh.rowSumsBelow, sh.colSumsRight
	out.HasComments = false
	if len(sh.comments) > 0 {
		sh.wb.log.WithFields(logrus.Fields{"sheet": sh.name, "comments": len(sh.comments)}).Warn("comments are not written to BIFF8")
	}
	return &out
}

// breakRecords converts rows followed by a break into the first row after
// each break, as the break records store them.
func breakRecords(breaks []int) []uint16 {
	out := make([]uint16, 0, len(breaks))
	for _, b := range breaks {
		out = append(out, uint16(b+1))
	}
	return out
}

// hssfRows returns the row records to encode. Shared formula dependents get
// their translated text and formula cells that lost their text fall back to
// their cached value; both are written from copies.
func (sh *Sheet) hssfRows(rows []*biff.Row) []*biff.Row {
	resolved := map[*biff.Cell]string{}
	for _, g := range sh.shared {
		for _, cl := range sh.dependents(g) {
			resolved[cl.store.(*hssfCell).c] = sh.resolveShared(g, cl.RowIndex(), cl.ColumnIndex())
		}
	}
	out := make([]*biff.Row, len(rows))
	for i, r := range rows {
		out[i] = r
		for j, c := range r.Cells {
			if c.Kind != biff.CellFormula || c.Formula != "" || sh.arrayAt(r.Index, c.Col) != nil {
				continue
			}
			if out[i] == r {
				cp := *r
				cp.Cells = slices.Clone(r.Cells)
				out[i] = &cp
			}
			cc := *c
			if text := resolved[c]; text != "" {
				cc.Formula = text
			} else {
				sh.wb.log.WithFields(logrus.Fields{"sheet": sh.name, "at": cellref.CellRef{Row: r.Index, Col: c.Col}.String()}).
					Warn("formula cell without text written as its cached value")
				cc.Kind = c.Cached
				if cc.Kind == biff.CellString {
					cc.SST = sh.wb.strings.Add(c.CachedText)
				}
			}
			out[i].Cells[j] = &cc
		}
	}
	return out
}

// hssfCols packs the column attributes into COLINFO runs.
func (sh *Sheet) hssfCols() []biff.ColInfo {
	var out []biff.ColInfo
	for _, c := range sh.columns() {
		ci := sh.cols[c]
		rec := biff.ColInfo{
			First:        uint16(c),
			Last:         uint16(c),
			Width:        uint16(sh.ColumnWidth(c)),
			XF:           uint16(sh.wb.styles.defaultStyle),
			Hidden:       ci.Hidden,
			OutlineLevel: uint8(ci.OutlineLevel),
			Collapsed:    ci.Collapsed,
		}
		if ci.Style >= 0 {
			rec.XF = uint16(ci.Style)
		}
		if n := len(out); n > 0 {
			prev := out[n-1]
			if int(prev.Last)+1 == c && prev.Width == rec.Width && prev.XF == rec.XF && prev.Hidden == rec.Hidden &&
				prev.OutlineLevel == rec.OutlineLevel && prev.Collapsed == rec.Collapsed {
				out[n-1].Last = uint16(c)
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}
