package xlgrid

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/cellref"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/xssf"
	"github.com/xuri/excelize/v2"
)

var (
	xlsxHorizontal = []string{"general", "left", "center", "right", "fill", "justify", "centerContinuous", "distributed"}
	xlsxVertical   = []string{"top", "center", "bottom", "justify", "distributed"}
	xlsxUnderlines = map[string]Underline{
		"single":           UnderlineSingle,
		"double":           UnderlineDouble,
		"singleAccounting": UnderlineSingleAccounting,
		"doubleAccounting": UnderlineDoubleAccounting,
	}
	xlsxEscapements = map[string]Escapement{"superscript": EscapementSuper, "subscript": EscapementSub}
)

func loadXSSF(data []byte, opts Options) (*Workbook, error) {
	pkg, err := xssf.ReadPackage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	defer f.Close()

	wb, err := newWorkbook(FormatOOXML, opts)
	if err != nil {
		return nil, err
	}
	wb.date1904 = pkg.Date1904
	wb.strings = newSharedStringTable(pkg.SharedStrings)
	if err := wb.loadXSSFStyles(f); err != nil {
		return nil, err
	}
	for _, part := range pkg.Sheets {
		sh := wb.newSheet(part.Name)
		if err := sh.loadXSSF(f, part); err != nil {
			return nil, &OperationError{Sheet: part.Name, Op: "open", Err: err}
		}
		wb.sheets = append(wb.sheets, sh)
	}
	if i := wb.SheetIndex(f.GetSheetName(f.GetActiveSheetIndex())); i >= 0 {
		wb.active = i
	}
	for _, dn := range f.GetDefinedName() {
		scope := ScopeWorkbook
		if dn.Scope != "Workbook" {
			if scope = wb.SheetIndex(dn.Scope); scope < 0 {
				continue
			}
		}
		wb.names = append(wb.names, &DefinedName{
			Name:     dn.Name,
			RefersTo: strings.TrimPrefix(dn.RefersTo, "="),
			Sheet:    scope,
			Hidden:   dn.Name == NameFilterDatabase,
			Comment:  dn.Comment,
		})
	}
	if props, err := f.GetDocProps(); err == nil {
		wb.props = DocumentProperties{
			Title:          props.Title,
			Subject:        props.Subject,
			Author:         props.Creator,
			Keywords:       props.Keywords,
			Description:    props.Description,
			LastModifiedBy: props.LastModifiedBy,
			Category:       props.Category,
		}
	}
	return wb, nil
}

// loadXSSFStyles reads cellXfs into neutral cell formats. Named styles are
// flattened into the cell formats that use them.
func (wb *Workbook) loadXSSFStyles(f *excelize.File) error {
	st := wb.styles
	store := &xssfStyles{}
	for i := 0; ; i++ {
		s, err := f.GetStyle(i)
		if err != nil {
			break
		}
		cf, err := wb.formatFromExcelize(s)
		if err != nil {
			return fmt.Errorf("style %d: %w", i, err)
		}
		store.formats = append(store.formats, cf)
	}
	if len(st.fonts) == 0 {
		st.fonts = []fontRecord{{Name: wb.opts.DefaultFontName, Height: wb.opts.DefaultFontHeight, Color: ColorFontAutomatic, Family: 2}}
	}
	st.store = store
	if store.len() == 0 {
		st.store = newXSSFStyles()
	}
	st.normal, st.defaultStyle = -1, 0
	return nil
}

func (wb *Workbook) formatFromExcelize(s *excelize.Style) (cellFormat, error) {
	st := wb.styles
	cf := defaultCellFormat()
	cf.Parent = -1

	if s.Font != nil {
		idx, err := st.findOrAddFont(wb.fontFromExcelize(s.Font))
		if err != nil {
			return cf, err
		}
		cf.Font = idx
	}
	switch {
	case s.CustomNumFmt != nil:
		cf.NumFmt = st.formats.add(*s.CustomNumFmt)
	default:
		cf.NumFmt = s.NumFmt
	}
	if a := s.Alignment; a != nil {
		if i := slices.Index(xlsxHorizontal, a.Horizontal); i >= 0 {
			cf.Alignment.Horizontal = HorizontalAlignment(i)
		}
		if i := slices.Index(xlsxVertical, a.Vertical); i >= 0 {
			cf.Alignment.Vertical = VerticalAlignment(i)
		}
		cf.Alignment.Wrap = a.WrapText
		cf.Alignment.Indent = a.Indent
		cf.Alignment.ShrinkToFit = a.ShrinkToFit
		if a.TextRotation >= 0 && a.TextRotation <= 0xFF {
			cf.Rotation = decodeRotation(uint8(a.TextRotation))
		}
	}
	for _, b := range s.Border {
		style, color := BorderStyle(b.Style), st.colorFromHex(b.Color)
		switch b.Type {
		case "left":
			cf.Border.Left, cf.Border.LeftColor = style, color
		case "right":
			cf.Border.Right, cf.Border.RightColor = style, color
		case "top":
			cf.Border.Top, cf.Border.TopColor = style, color
		case "bottom":
			cf.Border.Bottom, cf.Border.BottomColor = style, color
		}
	}
	if s.Fill.Type == "pattern" && s.Fill.Pattern > 0 && s.Fill.Pattern <= int(FillLeastDots) {
		cf.Fill.Pattern = FillPattern(s.Fill.Pattern)
		if len(s.Fill.Color) > 0 {
			cf.Fill.Foreground = st.colorFromHex(s.Fill.Color[0])
		}
	}
	if p := s.Protection; p != nil {
		cf.Protection = Protection{Locked: p.Locked, Hidden: p.Hidden}
	}
	return cf, nil
}

func (t *styleTable) colorFromHex(hex string) int {
	if hex == "" {
		return ColorAutomatic
	}
	return t.palette.Nearest(hex)
}

func (wb *Workbook) fontFromExcelize(f *excelize.Font) fontRecord {
	rec := fontRecord{
		Name:       f.Family,
		Height:     int(math.Round(f.Size * 20)),
		Bold:       f.Bold,
		Italic:     f.Italic,
		Strike:     f.Strike,
		Underline:  xlsxUnderlines[f.Underline],
		Escapement: xlsxEscapements[f.VertAlign],
		Color:      ColorFontAutomatic,
		Family:     2,
	}
	if rec.Name == "" {
		rec.Name = wb.opts.DefaultFontName
	}
	if rec.Height == 0 {
		rec.Height = wb.opts.DefaultFontHeight
	}
	if f.Charset != nil {
		rec.Charset = *f.Charset
	}
	switch {
	case f.Color != "":
		rec.Color = wb.styles.palette.Nearest(f.Color)
	case f.ColorTheme != nil:
	case f.ColorIndexed > 0 && f.ColorIndexed < 8:
		rec.Color = f.ColorIndexed + 8
	case f.ColorIndexed >= 8 && f.ColorIndexed < ColorAutomatic:
		rec.Color = f.ColorIndexed
	}
	return rec
}

func (wb *Workbook) fontToExcelize(rec fontRecord) *excelize.Font {
	out := &excelize.Font{
		Bold:   rec.Bold,
		Italic: rec.Italic,
		Family: rec.Name,
		Size:   float64(rec.Height) / 20,
		Strike: rec.Strike,
		Color:  wb.styles.palette.Hex(rec.Color),
	}
	if out.Color == "" {
		out.ColorIndexed = ColorAutomatic
	}
	for name, u := range xlsxUnderlines {
		if u == rec.Underline {
			out.Underline = name
		}
	}
	for name, e := range xlsxEscapements {
		if e == rec.Escapement {
			out.VertAlign = name
		}
	}
	if rec.Charset != 0 {
		charset := rec.Charset
		out.Charset = &charset
	}
	return out
}

func (wb *Workbook) styleToExcelize(cf cellFormat) *excelize.Style {
	st := wb.styles
	rot, _ := encodeRotation(cf.Rotation)
	s := &excelize.Style{
		Font: wb.fontToExcelize(st.font(cf.Font)),
		Alignment: &excelize.Alignment{
			Horizontal:   xlsxHorizontal[cf.Alignment.Horizontal],
			Vertical:     xlsxVertical[cf.Alignment.Vertical],
			WrapText:     cf.Alignment.Wrap,
			Indent:       cf.Alignment.Indent,
			ShrinkToFit:  cf.Alignment.ShrinkToFit,
			TextRotation: int(rot),
		},
		Protection: &excelize.Protection{Locked: cf.Protection.Locked, Hidden: cf.Protection.Hidden},
	}
	for _, edge := range []struct {
		name  string
		style BorderStyle
		color int
	}{
		{"left", cf.Border.Left, cf.Border.LeftColor},
		{"right", cf.Border.Right, cf.Border.RightColor},
		{"top", cf.Border.Top, cf.Border.TopColor},
		{"bottom", cf.Border.Bottom, cf.Border.BottomColor},
	} {
		if edge.style != BorderNone {
			s.Border = append(s.Border, excelize.Border{Type: edge.name, Style: int(edge.style), Color: st.palette.Hex(edge.color)})
		}
	}
	if cf.Fill.Pattern != FillNone {
		s.Fill = excelize.Fill{Type: "pattern", Pattern: int(cf.Fill.Pattern)}
		if hex := st.palette.Hex(cf.Fill.Foreground); hex != "" {
			s.Fill.Color = []string{hex}
		}
	}
	if _, ok := builtinFormats[cf.NumFmt]; ok {
		s.NumFmt = cf.NumFmt
	} else if code, ok := st.formats.code(cf.NumFmt); ok && code != "" {
		s.CustomNumFmt = &code
	}
	return s
}

// loadXSSF takes over the decoded worksheet part; views, page layout and
// comments are read through excelize.
func (sh *Sheet) loadXSSF(f *excelize.File, part xssf.SheetPart) error {
	ws := part.Worksheet
	xs := sh.store.(*xssfSheet)
	xs.data = &ws.SheetData
	sh.loadXSSFFormulas()
	for _, rs := range xs.rows() {
		row := sh.attachRow(rs)
		for _, cs := range rs.cells() {
			row.attachCell(cs)
		}
	}
	sh.fillArrayMembers()

	switch part.State {
	case "hidden":
		sh.visibility = SheetHidden
	case "veryHidden":
		sh.visibility = SheetVeryHidden
	}
	if p := ws.SheetFormatPr; p != nil {
		if p.DefaultRowHeight > 0 {
			sh.defaultRowHeight = int(math.Round(p.DefaultRowHeight * 20))
		}
		if p.DefaultColWidth > 0 {
			sh.defaultColWidth = int(math.Round(p.DefaultColWidth))
		}
	}
	if ws.Cols != nil {
		lastCol := sh.wb.version.LastColumnIndex()
		for _, c := range ws.Cols.Col {
			info := colInfo{Width: -1, Hidden: c.Hidden, OutlineLevel: int(c.OutlineLevel), Collapsed: c.Collapsed, Style: -1}
			if c.CustomWidth || c.Width > 0 {
				info.Width = int(math.Round(c.Width * 256))
			}
			if c.Style > 0 && c.Style < sh.wb.styles.store.len() {
				info.Style = c.Style
			}
			for col := c.Min - 1; col < c.Max && col <= lastCol; col++ {
				if col >= 0 && !info.isDefault() {
					sh.setCol(col, info)
				}
			}
		}
	}
	if ws.MergeCells != nil {
		for _, mc := range ws.MergeCells.Cells {
			rng, err := cellref.ParseRange(mc.Ref)
			if err != nil {
				return fmt.Errorf("merged region %q: %w", mc.Ref, err)
			}
			sh.merged.add(rng)
		}
	}
	if ws.Hyperlinks != nil {
		for _, l := range ws.Hyperlinks.Links {
			rng, err := cellref.ParseRange(l.Ref)
			if err != nil {
				return fmt.Errorf("hyperlink %q: %w", l.Ref, err)
			}
			link := &Hyperlink{Range: rng, Location: l.Location}
			if l.RID != "" {
				link.URL = part.Links[l.RID]
			}
			if link.URL == "" && link.Location == "" {
				continue
			}
			sh.links = append(sh.links, link)
		}
	}
	if ws.RowBreaks != nil {
		for _, b := range ws.RowBreaks.Brk {
			if b.ID > 0 {
				sh.rowBreaks = addBreak(sh.rowBreaks, b.ID-1)
			}
		}
	}
	if ws.ColBreaks != nil {
		for _, b := range ws.ColBreaks.Brk {
			if b.ID > 0 {
				sh.colBreaks = addBreak(sh.colBreaks, b.ID-1)
			}
		}
	}
	if p := ws.SheetProtection; p != nil && p.Sheet {
		sh.protected = true
		if h, err := strconv.ParseUint(p.Password, 16, 16); err == nil {
			sh.passwordHash = uint16(h)
		}
	}
	if pr := ws.SheetPr; pr != nil {
		if o := pr.OutlinePr; o != nil {
			if o.SummaryBelow != nil {
				sh.rowSumsBelow = *o.SummaryBelow
			}
			if o.SummaryRight != nil {
				sh.colSumsRight = *o.SummaryRight
			}
		}
		if pr.PageSetUpPr != nil {
			sh.setup.FitToPage = pr.PageSetUpPr.FitToPage
		}
	}
	return sh.loadXSSFExtras(f)
}

// loadXSSFFormulas moves array and shared formula text out of the cells:
// array owners and shared dependents keep an empty f element and the
// sheet resolves their text.
func (sh *Sheet) loadXSSFFormulas() {
	xs := sh.store.(*xssfSheet)
	groups := map[int]*sharedFormula{}
	var dependents []*xssf.C
	for _, row := range xs.data.Rows {
		for _, c := range row.C {
			if c.F == nil {
				continue
			}
			f := c.F
			switch f.T {
			case xssf.FormulaArray:
				rng, err := cellref.ParseRange(f.Ref)
				if err != nil {
					rng = cellref.NewRange(row.R-1, row.R-1, c.Col(), c.Col())
				}
				sh.arrays = append(sh.arrays, &arrayFormula{rng: rng, formula: f.Content})
				c.F = &xssf.F{}
			case xssf.FormulaShared:
				if f.Si == nil {
					c.F = &xssf.F{Content: f.Content}
					continue
				}
				if f.Ref != "" && f.Content != "" {
					rng, err := cellref.ParseRange(f.Ref)
					if err == nil && !rng.IsSingleCell() {
						groups[*f.Si] = &sharedFormula{row: row.R - 1, col: c.Col(), rng: rng}
					}
					c.F = &xssf.F{Content: f.Content}
					continue
				}
				c.F = &xssf.F{Si: f.Si}
				dependents = append(dependents, c)
			case "", xssf.FormulaNormal:
				c.F = &xssf.F{Content: f.Content}
			default:
				// data tables keep their cached results only
				c.F = nil
			}
		}
	}
	for _, si := range slices.Sorted(maps.Keys(groups)) {
		sh.shared = append(sh.shared, groups[si])
	}
	for _, c := range dependents {
		if groups[*c.F.Si] == nil {
			c.F = nil
			continue
		}
		c.F = &xssf.F{}
	}
}

// fillArrayMembers creates the cells of array ranges a producer left out.
func (sh *Sheet) fillArrayMembers() {
	for _, a := range sh.arrays {
		for r := a.rng.FirstRow; r <= a.rng.LastRow; r++ {
			row := sh.ensureRow(r)
			for c := a.rng.FirstCol; c <= a.rng.LastCol; c++ {
				cell := row.Cell(c)
				if cell == nil {
					cell = row.attachCell(row.store.insertCell(c))
					cell.store.setStyle(sh.wb.styles.defaultStyle)
				}
				if cell.store.value().Type != CellFormula {
					v := cell.store.value()
					cached := v.Type
					v.Type, v.Formula, v.Cached = CellFormula, "", cached
					cell.store.setValue(v)
				}
			}
		}
	}
}

// loadXSSFExtras reads the parts of a sheet excelize maps for us.
func (sh *Sheet) loadXSSFExtras(f *excelize.File) error {
	comments, err := f.GetComments(sh.name)
	if err != nil {
		return fmt.Errorf("comments: %w", err)
	}
	for _, cm := range comments {
		ref, err := cellref.ParseCellRef(cm.Cell)
		if err != nil {
			continue
		}
		text := cm.Text
		for _, run := range cm.Paragraph {
			text += run.Text
		}
		sh.comments = append(sh.comments, &Comment{Row: ref.Row, Col: ref.Col, Author: cm.Author, Text: text})
	}
	if panes, err := f.GetPanes(sh.name); err == nil && panes.Freeze {
		sh.freezeRow, sh.freezeCol = panes.YSplit, panes.XSplit
	}
	if layout, err := f.GetPageLayout(sh.name); err == nil {
		if layout.Size != nil {
			sh.setup.PaperSize = *layout.Size
		}
		if layout.Orientation != nil {
			sh.setup.Landscape = *layout.Orientation == "landscape"
		}
		if layout.AdjustTo != nil && *layout.AdjustTo >= 10 && *layout.AdjustTo <= 400 {
			sh.setup.Scale = int(*layout.AdjustTo)
		}
		if layout.FitToWidth != nil {
			sh.setup.FitWidth = *layout.FitToWidth
		}
		if layout.FitToHeight != nil {
			sh.setup.FitHeight = *layout.FitToHeight
		}
	}
	if m, err := f.GetPageMargins(sh.name); err == nil {
		for _, p := range []struct {
			src *float64
			dst *float64
		}{
			{m.Left, &sh.setup.LeftMargin},
			{m.Right, &sh.setup.RightMargin},
			{m.Top, &sh.setup.TopMargin},
			{m.Bottom, &sh.setup.BottomMargin},
			{m.Header, &sh.setup.HeaderMargin},
			{m.Footer, &sh.setup.FooterMargin},
		} {
			if p.src != nil {
				*p.dst = *p.src
			}
		}
	}
	return nil
}

// writeXSSF lets excelize lay out the package (styles, views, page setup,
// comments, names and properties) and then replaces the sheet data and the
// shared strings with the workbook's own.
func (wb *Workbook) writeXSSF(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()
	first := f.GetSheetName(0)
	for i, sh := range wb.sheets {
		var err error
		if i == 0 {
			err = f.SetSheetName(first, sh.name)
		} else {
			_, err = f.NewSheet(sh.name)
		}
		if err != nil {
			return fmt.Errorf("sheet %q: %w", sh.name, err)
		}
	}
	ids, err := wb.excelizeStyles(f)
	if err != nil {
		return err
	}
	f.SetActiveSheet(wb.active)
	for _, sh := range wb.sheets {
		if err := sh.writeXSSF(f, ids); err != nil {
			return &OperationError{Sheet: sh.name, Op: "write", Err: err}
		}
	}
	for _, n := range wb.names {
		dn := &excelize.DefinedName{Name: n.Name, RefersTo: n.RefersTo, Comment: n.Comment}
		if sh := wb.SheetAt(n.Sheet); sh != nil {
			dn.Scope = sh.name
		}
		if err := f.SetDefinedName(dn); err != nil {
			wb.log.WithFields(logrus.Fields{"name": n.Name}).WithError(err).Warn("defined name not written")
			continue
		}
		if n.Hidden && n.Name != NameFilterDatabase {
			wb.log.WithField("name", n.Name).Debug("hidden flag of defined name not written")
		}
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:          wb.props.Title,
		Subject:        wb.props.Subject,
		Creator:        wb.props.Author,
		Keywords:       wb.props.Keywords,
		Description:    wb.props.Description,
		LastModifiedBy: wb.props.LastModifiedBy,
		Category:       wb.props.Category,
	}); err != nil {
		return err
	}
	date1904 := wb.date1904
	if err := f.SetWorkbookProps(&excelize.WorkbookPropsOptions{Date1904: &date1904}); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return err
	}
	data := make(map[string]*xssf.SheetData, len(wb.sheets))
	for _, sh := range wb.sheets {
		data[sh.name] = sh.xssfSheetData(ids)
	}
	out, err := xssf.PatchPackage(buf.Bytes(), data, wb.strings.Strings())
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// excelizeStyles registers every cell format and returns the cellXfs index
// of each slot.
func (wb *Workbook) excelizeStyles(f *excelize.File) ([]int, error) {
	st := wb.styles
	ids := make([]int, st.store.len())
	for i := range ids {
		cf := st.resolve(i)
		if cf.IsStyle {
			continue
		}
		id, err := f.NewStyle(wb.styleToExcelize(cf))
		if err != nil {
			return nil, fmt.Errorf("style %d: %w", i, err)
		}
		ids[i] = id
	}
	return ids, nil
}

func styleID(ids []int, slot int) int {
	if slot < 0 || slot >= len(ids) {
		return 0
	}
	return ids[slot]
}

// writeXSSF hands the sheet-level structures to excelize.
func (sh *Sheet) writeXSSF(f *excelize.File, ids []int) error {
	name := sh.name
	if sh.visibility != SheetVisible {
		if err := f.SetSheetVisible(name, false, sh.visibility == SheetVeryHidden); err != nil {
			return err
		}
	}
	for _, c := range sh.columns() {
		ci := sh.col(c)
		col := cellref.ColumnName(c)
		if ci.Width >= 0 {
			if err := f.SetColWidth(name, col, col, float64(ci.Width)/256); err != nil {
				return err
			}
		}
		if ci.Hidden {
			if err := f.SetColVisible(name, col, false); err != nil {
				return err
			}
		}
		if ci.OutlineLevel > 0 {
			if err := f.SetColOutlineLevel(name, col, uint8(ci.OutlineLevel)); err != nil {
				return err
			}
		}
		if ci.Style >= 0 {
			if err := f.SetColStyle(name, col, styleID(ids, ci.Style)); err != nil {
				return err
			}
		}
	}
	for _, rng := range sh.MergedRegions() {
		tl := cellref.CellRef{Row: rng.FirstRow, Col: rng.FirstCol}.String()
		br := cellref.CellRef{Row: rng.LastRow, Col: rng.LastCol}.String()
		if err := f.MergeCell(name, tl, br); err != nil {
			return err
		}
	}
	for _, l := range sh.links {
		cell := cellref.CellRef{Row: l.Range.FirstRow, Col: l.Range.FirstCol}.String()
		var err error
		if l.URL != "" {
			err = f.SetCellHyperLink(name, cell, l.URL, "External")
		} else {
			err = f.SetCellHyperLink(name, cell, l.Location, "Location")
		}
		if err != nil {
			return err
		}
	}
	for _, cm := range sh.comments {
		cell := cellref.CellRef{Row: cm.Row, Col: cm.Col}.String()
		if err := f.AddComment(name, excelize.Comment{Author: cm.Author, Cell: cell, Text: cm.Text}); err != nil {
			return err
		}
	}
	for _, r := range sh.rowBreaks {
		if err := f.InsertPageBreak(name, cellref.CellRef{Row: r + 1, Col: 0}.String()); err != nil {
			return err
		}
	}
	for _, c := range sh.colBreaks {
		if err := f.InsertPageBreak(name, cellref.CellRef{Row: 0, Col: c + 1}.String()); err != nil {
			return err
		}
	}
	if sh.freezeRow > 0 || sh.freezeCol > 0 {
		pane := "bottomRight"
		switch {
		case sh.freezeCol == 0:
			pane = "bottomLeft"
		case sh.freezeRow == 0:
			pane = "topRight"
		}
		if err := f.SetPanes(name, &excelize.Panes{
			Freeze:      true,
			XSplit:      sh.freezeCol,
			YSplit:      sh.freezeRow,
			TopLeftCell: cellref.CellRef{Row: sh.freezeRow, Col: sh.freezeCol}.String(),
			ActivePane:  pane,
		}); err != nil {
			return err
		}
	}
	ps := *sh.setup
	orientation := "portrait"
	if ps.Landscape {
		orientation = "landscape"
	}
	layout := &excelize.PageLayoutOptions{Orientation: &orientation, FitToWidth: &ps.FitWidth, FitToHeight: &ps.FitHeight}
	if ps.PaperSize > 0 {
		layout.Size = &ps.PaperSize
	}
	if ps.Scale >= 10 && ps.Scale <= 400 {
		scale := uint(ps.Scale)
		layout.AdjustTo = &scale
	}
	if err := f.SetPageLayout(name, layout); err != nil {
		return err
	}
	if err := f.SetPageMargins(name, &excelize.PageLayoutMarginsOptions{
		Left: &ps.LeftMargin, Right: &ps.RightMargin, Top: &ps.TopMargin,
		Bottom: &ps.BottomMargin, Header: &ps.HeaderMargin, Footer: &ps.FooterMargin,
	}); err != nil {
		return err
	}
	rowHeight := float64(sh.defaultRowHeight) / 20
	colWidth := float64(sh.defaultColWidth)
	if err := f.SetSheetProps(name, &excelize.SheetPropsOptions{
		FitToPage:           &ps.FitToPage,
		OutlineSummaryBelow: &sh.rowSumsBelow,
		OutlineSummaryRight: &sh.colSumsRight,
		DefaultRowHeight:    &rowHeight,
		DefaultColWidth:     &colWidth,
	}); err != nil {
		return err
	}
	if sh.protected {
		if sh.password == "" && sh.passwordHash != 0 {
			sh.wb.log.WithField("sheet", name).Warn("sheet protection written without its password hash")
		}
		if err := f.ProtectSheet(name, &excelize.SheetProtectionOptions{
			Password:            sh.password,
			SelectLockedCells:   true,
			SelectUnlockedCells: true,
		}); err != nil {
			return err
		}
	}
	return nil
}

// xssfSheetData returns a copy of the sheet data ready to be written: style
// slots become cellXfs indices and array and shared formulas get their
// f attributes back.
func (sh *Sheet) xssfSheetData(ids []int) *xssf.SheetData {
	src := sh.store.(*xssfSheet).data
	groups := make(map[*sharedFormula]int, len(sh.shared))
	for i, g := range sh.shared {
		groups[g] = i
	}
	out := &xssf.SheetData{Rows: make([]*xssf.Row, 0, len(src.Rows))}
	for _, r := range src.Rows {
		row := *r
		row.Spans = ""
		if row.CustomFormat {
			row.S = styleID(ids, row.S)
		}
		row.C = make([]*xssf.C, 0, len(r.C))
		for _, c := range r.C {
			cc := *c
			cc.S = styleID(ids, c.S)
			if c.F != nil {
				cc.F = sh.xssfFormula(r.R-1, c.Col(), c.F.Content, groups)
			}
			row.C = append(row.C, &cc)
		}
		out.Rows = append(out.Rows, &row)
	}
	return out
}

func (sh *Sheet) xssfFormula(row, col int, text string, groups map[*sharedFormula]int) *xssf.F {
	if a := sh.arrayAt(row, col); a != nil {
		if a.rng.FirstRow != row || a.rng.FirstCol != col {
			return nil
		}
		return &xssf.F{T: xssf.FormulaArray, Ref: a.rng.String(), Content: a.formula}
	}
	if text != "" {
		if g := sh.sharedMasterAt(row, col); g != nil {
			si := groups[g]
			return &xssf.F{T: xssf.FormulaShared, Ref: g.rng.String(), Si: &si, Content: text}
		}
		return &xssf.F{Content: text}
	}
	if g := sh.sharedAt(row, col); g != nil {
		si := groups[g]
		return &xssf.F{T: xssf.FormulaShared, Si: &si}
	}
	sh.wb.log.WithFields(logrus.Fields{"sheet": sh.name, "cell": cellref.CellRef{Row: row, Col: col}.String()}).
		Debug("formula cell without text written as its cached value")
	return nil
}
