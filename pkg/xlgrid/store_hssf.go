package xlgrid

import (
	"fmt"
	"sort"

	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/biff"
)

// hssfSheet keeps the rows of a BIFF8 sheet as ROW records sorted by index,
// each holding its cell records sorted by column.
type hssfSheet struct {
	sh  *biff.Sheet
	sst *SharedStringTable
	// defaultXF is given to new cell records.
	defaultXF uint16
}

func (s *hssfSheet) search(idx int) (int, bool) {
	i := sort.Search(len(s.sh.Rows), func(i int) bool { return s.sh.Rows[i].Index >= idx })
	return i, i < len(s.sh.Rows) && s.sh.Rows[i].Index == idx
}

func (s *hssfSheet) place(r *biff.Row) {
	i, ok := s.search(r.Index)
	if ok {
		s.sh.Rows[i] = r
		return
	}
	s.sh.Rows = append(s.sh.Rows, nil)
	copy(s.sh.Rows[i+1:], s.sh.Rows[i:])
	s.sh.Rows[i] = r
}

func (s *hssfSheet) insertRow(idx int) rowStore {
	r := &biff.Row{Index: idx, Height: s.sh.DefaultRowHeight}
	s.place(r)
	return &hssfRow{sheet: s, r: r}
}

func (s *hssfSheet) deleteRow(idx int) {
	if i, ok := s.search(idx); ok {
		s.sh.Rows = append(s.sh.Rows[:i], s.sh.Rows[i+1:]...)
	}
}

func (s *hssfSheet) moveRow(r rowStore, to int) {
	hr := r.(*hssfRow)
	s.deleteRow(hr.r.Index)
	hr.r.Index = to
	s.place(hr.r)
}

func (s *hssfSheet) rowCount() int {
	return len(s.sh.Rows)
}

func (s *hssfSheet) rows() []rowStore {
	out := make([]rowStore, len(s.sh.Rows))
	for i, r := range s.sh.Rows {
		out[i] = &hssfRow{sheet: s, r: r}
	}
	return out
}

type hssfRow struct {
	sheet *hssfSheet
	r     *biff.Row
}

func (r *hssfRow) index() int { return r.r.Index }

func (r *hssfRow) attrs() rowAttrs {
	a := rowAttrs{
		Height:       -1,
		Hidden:       r.r.Hidden,
		Collapsed:    r.r.Collapsed,
		OutlineLevel: int(r.r.OutlineLevel),
		Style:        -1,
	}
	if r.r.CustomHeight {
		a.Height = int(r.r.Height)
	}
	if r.r.Formatted {
		a.Style = int(r.r.XF)
	}
	return a
}

func (r *hssfRow) setAttrs(a rowAttrs) {
	if a.Height < 0 {
		r.r.Height, r.r.CustomHeight = r.sheet.sh.DefaultRowHeight, false
	} else {
		r.r.Height, r.r.CustomHeight = uint16(a.Height), true
	}
	r.r.Hidden = a.Hidden
	r.r.Collapsed = a.Collapsed
	r.r.OutlineLevel = uint8(a.OutlineLevel)
	if a.Style < 0 {
		r.r.Formatted, r.r.XF = false, 0
	} else {
		r.r.Formatted, r.r.XF = true, uint16(a.Style)
	}
}

func (r *hssfRow) searchCell(col int) (int, bool) {
	cells := r.r.Cells
	i := sort.Search(len(cells), func(i int) bool { return cells[i].Col >= col })
	return i, i < len(cells) && cells[i].Col == col
}

func (r *hssfRow) insertCell(col int) cellStore {
	c := &biff.Cell{Col: col, XF: r.sheet.defaultXF}
	i, ok := r.searchCell(col)
	if ok {
		r.r.Cells[i] = c
	} else {
		r.r.Cells = append(r.r.Cells, nil)
		copy(r.r.Cells[i+1:], r.r.Cells[i:])
		r.r.Cells[i] = c
	}
	return &hssfCell{sheet: r.sheet, c: c}
}

func (r *hssfRow) deleteCell(col int) {
	if i, ok := r.searchCell(col); ok {
		r.r.Cells = append(r.r.Cells[:i], r.r.Cells[i+1:]...)
	}
}

func (r *hssfRow) cellCount() int {
	return len(r.r.Cells)
}

func (r *hssfRow) cells() []cellStore {
	out := make([]cellStore, len(r.r.Cells))
	for i, c := range r.r.Cells {
		out[i] = &hssfCell{sheet: r.sheet, c: c}
	}
	return out
}

type hssfCell struct {
	sheet *hssfSheet
	c     *biff.Cell
}

func (c *hssfCell) column() int { return c.c.Col }

var hssfCellTypes = map[biff.CellKind]CellType{
	biff.CellBlank:   CellBlank,
	biff.CellNumber:  CellNumeric,
	biff.CellString:  CellString,
	biff.CellBool:    CellBoolean,
	biff.CellError:   CellError,
	biff.CellFormula: CellFormula,
}

func hssfKind(t CellType) biff.CellKind {
	for k, v := range hssfCellTypes {
		if v == t {
			return k
		}
	}
	return biff.CellBlank
}

func (c *hssfCell) value() cellValue {
	v := cellValue{Type: hssfCellTypes[c.c.Kind]}
	switch c.c.Kind {
	case biff.CellNumber:
		v.Num = c.c.Num
	case biff.CellString:
		v.Str = c.sheet.sst.String(c.c.SST)
	case biff.CellBool:
		v.Bool = c.c.Bool
	case biff.CellError:
		v.Err = biff.ErrorText(c.c.Err)
	case biff.CellFormula:
		v.Formula = c.c.Formula
		v.Cached = hssfCellTypes[c.c.Cached]
		v.Num, v.Bool, v.Str = c.c.Num, c.c.Bool, c.c.CachedText
		if c.c.Cached == biff.CellError {
			v.Err = biff.ErrorText(c.c.Err)
		}
	}
	return v
}

func (c *hssfCell) setValue(v cellValue) {
	cell := c.c
	cell.Kind = hssfKind(v.Type)
	cell.Num, cell.SST, cell.Bool, cell.Err = 0, 0, false, 0
	cell.Formula, cell.Cached, cell.CachedText = "", biff.CellBlank, ""
	switch v.Type {
	case CellNumeric:
		cell.Num = v.Num
	case CellString:
		cell.SST = c.sheet.sst.Add(v.Str)
	case CellBoolean:
		cell.Bool = v.Bool
	case CellError:
		cell.Err, _ = biff.ErrorCode(v.Err)
	case CellFormula:
		cell.Formula = v.Formula
		cell.Cached = hssfKind(v.Cached)
		switch v.Cached {
		case CellNumeric:
			cell.Num = v.Num
		case CellString:
			cell.CachedText = v.Str
		case CellBoolean:
			cell.Bool = v.Bool
		case CellError:
			cell.Err, _ = biff.ErrorCode(v.Err)
		default:
			cell.Cached = biff.CellNumber
		}
	}
}

func (c *hssfCell) style() int { return int(c.c.XF) }

func (c *hssfCell) setStyle(i int) { c.c.XF = uint16(i) }

// encodeRotation converts degrees to the BIFF8 trot field: 0..90 are kept,
// -90..-1 are stored as 90-v, 0xFF stays the vertical text marker.
func encodeRotation(deg int) (uint8, error) {
	switch {
	case deg >= 0 && deg <= 90, deg == RotationVertical:
		return uint8(deg), nil
	case deg >= -90 && deg < 0:
		return uint8(90 - deg), nil
	}
	return 0, fmt.Errorf("%w: rotation %d not in -90..90 or %d", ErrArgument, deg, RotationVertical)
}

// decodeRotation is the inverse of encodeRotation.
func decodeRotation(v uint8) int {
	switch {
	case v == RotationVertical:
		return RotationVertical
	case v > 90 && v <= 180:
		return 90 - int(v)
	}
	return int(v)
}

// reconcileFill keeps the BIFF8 pairing of automatic colours: an automatic
// foreground pins the background to the index after it, and a foreground
// moved away from automatic releases that pin.
func reconcileFill(f *Fill) {
	switch {
	case f.Foreground == ColorAutomatic:
		f.Background = ColorAutomatic + 1
	case f.Background == ColorAutomatic+1:
		f.Background = ColorAutomatic
	}
}

// hssfStyles stores cell formats as XF records. Font 4 does not exist in
// BIFF8, so font indices from 4 on are stored one higher.
type hssfStyles struct {
	xfs []biff.XF
}

func hssfFont(logical int) uint16 {
	if logical >= 4 {
		return uint16(logical + 1)
	}
	return uint16(logical)
}

func logicalFont(stored uint16) int {
	if stored > 4 {
		return int(stored) - 1
	}
	if stored == 4 {
		return 0
	}
	return int(stored)
}

func (s *hssfStyles) len() int { return len(s.xfs) }

func (s *hssfStyles) get(i int) cellFormat {
	x := s.xfs[i]
	f := cellFormat{
		Font:   logicalFont(x.Font),
		NumFmt: int(x.Format),
		Alignment: Alignment{
			Horizontal:  HorizontalAlignment(x.HAlign),
			Vertical:    VerticalAlignment(x.VAlign),
			Wrap:        x.Wrap,
			Indent:      int(x.Indent),
			ShrinkToFit: x.Shrink,
		},
		Rotation: decodeRotation(x.Rotation),
		Border: Border{
			Left: BorderStyle(x.Left), Right: BorderStyle(x.Right),
			Top: BorderStyle(x.Top), Bottom: BorderStyle(x.Bottom),
			LeftColor: int(x.LeftColor), RightColor: int(x.RightColor),
			TopColor: int(x.TopColor), BottomColor: int(x.BottomColor),
		},
		Fill:       Fill{Pattern: FillPattern(x.Pattern), Foreground: int(x.FgColor), Background: int(x.BgColor)},
		Protection: Protection{Locked: x.Locked, Hidden: x.Hidden},
		IsStyle:    x.IsStyle,
		Parent:     int(x.Parent),
		Used:       x.Used & usedAll,
	}
	if x.IsStyle {
		f.Parent, f.Used = -1, usedAll
	}
	return f
}

func (s *hssfStyles) encode(f cellFormat) (biff.XF, error) {
	rot, err := encodeRotation(f.Rotation)
	if err != nil {
		return biff.XF{}, err
	}
	reconcileFill(&f.Fill)
	x := biff.XF{
		Font:        hssfFont(f.Font),
		Format:      uint16(f.NumFmt),
		Locked:      f.Protection.Locked,
		Hidden:      f.Protection.Hidden,
		IsStyle:     f.IsStyle,
		HAlign:      uint8(f.Alignment.Horizontal),
		Wrap:        f.Alignment.Wrap,
		VAlign:      uint8(f.Alignment.Vertical),
		Rotation:    rot,
		Indent:      uint8(f.Alignment.Indent),
		Shrink:      f.Alignment.ShrinkToFit,
		Left:        uint8(f.Border.Left),
		Right:       uint8(f.Border.Right),
		Top:         uint8(f.Border.Top),
		Bottom:      uint8(f.Border.Bottom),
		LeftColor:   uint16(f.Border.LeftColor),
		RightColor:  uint16(f.Border.RightColor),
		TopColor:    uint16(f.Border.TopColor),
		BottomColor: uint16(f.Border.BottomColor),
		Pattern:     uint8(f.Fill.Pattern),
		FgColor:     uint16(f.Fill.Foreground),
		BgColor:     uint16(f.Fill.Background),
	}
	switch {
	case f.IsStyle:
		// in style XFs a clear bit marks a valid attribute group
		x.Parent, x.Used = 0xFFF, 0
	default:
		x.Parent, x.Used = uint16(max(f.Parent, 0)), f.Used
	}
	return x, nil
}

func (s *hssfStyles) set(i int, f cellFormat) error {
	x, err := s.encode(f)
	if err != nil {
		return err
	}
	s.xfs[i] = x
	return nil
}

func (s *hssfStyles) add(f cellFormat) (int, error) {
	x, err := s.encode(f)
	if err != nil {
		return 0, err
	}
	s.xfs = append(s.xfs, x)
	return len(s.xfs) - 1, nil
}

// newHSSFStyles returns the XF table of a new BIFF8 workbook: fifteen style
// XFs, the first being Normal, and the default cell XF at 15.
func newHSSFStyles() *hssfStyles {
	s := &hssfStyles{}
	base := defaultCellFormat()
	base.IsStyle, base.Parent = true, -1
	for i := 0; i < 15; i++ {
		_, _ = s.add(base)
	}
	cell := defaultCellFormat()
	cell.Parent, cell.Used = 0, 0
	_, _ = s.add(cell)
	return s
}
