package xlgrid

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/xssf"
)

// xssfSheet keeps the rows of an OOXML sheet as the sheetData element tree.
// Row elements carry one-based r attributes.
type xssfSheet struct {
	data *xssf.SheetData
	sst  *SharedStringTable
}

func (s *xssfSheet) insertRow(idx int) rowStore {
	r := &xssf.Row{R: idx + 1}
	s.data.Insert(r)
	return &xssfRow{sheet: s, r: r}
}

func (s *xssfSheet) deleteRow(idx int) {
	s.data.Remove(idx + 1)
}

func (s *xssfSheet) moveRow(r rowStore, to int) {
	xr := r.(*xssfRow).r
	s.data.Remove(xr.R)
	xr.R = to + 1
	xr.Renumber()
	s.data.Insert(xr)
}

func (s *xssfSheet) rowCount() int {
	return len(s.data.Rows)
}

func (s *xssfSheet) rows() []rowStore {
	out := make([]rowStore, len(s.data.Rows))
	for i, r := range s.data.Rows {
		out[i] = &xssfRow{sheet: s, r: r}
	}
	return out
}

type xssfRow struct {
	sheet *xssfSheet
	r     *xssf.Row
}

func (r *xssfRow) index() int { return r.r.R - 1 }

func (r *xssfRow) attrs() rowAttrs {
	a := rowAttrs{
		Height:       -1,
		Hidden:       r.r.Hidden,
		Collapsed:    r.r.Collapsed,
		OutlineLevel: int(r.r.OutlineLevel),
		Style:        -1,
	}
	if r.r.CustomHeight || r.r.Ht > 0 {
		a.Height = int(math.Round(r.r.Ht * 20))
	}
	if r.r.CustomFormat {
		a.Style = r.r.S
	}
	return a
}

func (r *xssfRow) setAttrs(a rowAttrs) {
	if a.Height < 0 {
		r.r.Ht, r.r.CustomHeight = 0, false
	} else {
		r.r.Ht, r.r.CustomHeight = float64(a.Height)/20, true
	}
	r.r.Hidden = a.Hidden
	r.r.Collapsed = a.Collapsed
	r.r.OutlineLevel = uint8(a.OutlineLevel)
	if a.Style < 0 {
		r.r.S, r.r.CustomFormat = 0, false
	} else {
		r.r.S, r.r.CustomFormat = a.Style, true
	}
}

func (r *xssfRow) insertCell(col int) cellStore {
	c := xssf.NewCell(col)
	r.r.InsertCell(c)
	return &xssfCell{sheet: r.sheet, c: c}
}

func (r *xssfRow) deleteCell(col int) {
	r.r.RemoveCell(col)
}

func (r *xssfRow) cellCount() int {
	return len(r.r.C)
}

func (r *xssfRow) cells() []cellStore {
	out := make([]cellStore, len(r.r.C))
	for i, c := range r.r.C {
		out[i] = &xssfCell{sheet: r.sheet, c: c}
	}
	return out
}

type xssfCell struct {
	sheet *xssfSheet
	c     *xssf.C
}

func (c *xssfCell) column() int { return c.c.Col() }

// scalar decodes the t and v attributes.
func (c *xssfCell) scalar() cellValue {
	switch c.c.T {
	case xssf.TypeSharedString:
		idx, _ := strconv.Atoi(c.c.V)
		return cellValue{Type: CellString, Str: c.sheet.sst.String(idx)}
	case xssf.TypeInlineString:
		return cellValue{Type: CellString, Str: c.c.IS.Text()}
	case xssf.TypeFormulaStr, xssf.TypeDate:
		return cellValue{Type: CellString, Str: c.c.V}
	case xssf.TypeBool:
		return cellValue{Type: CellBoolean, Bool: c.c.V == "1" || c.c.V == "true"}
	case xssf.TypeError:
		return cellValue{Type: CellError, Err: c.c.V}
	}
	if c.c.V == "" {
		return cellValue{Type: CellBlank}
	}
	num, err := strconv.ParseFloat(c.c.V, 64)
	if err != nil {
		return cellValue{Type: CellString, Str: c.c.V}
	}
	return cellValue{Type: CellNumeric, Num: num}
}

func (c *xssfCell) value() cellValue {
	v := c.scalar()
	if c.c.F == nil {
		return v
	}
	cached := v.Type
	if cached == CellBlank {
		cached = CellNumeric
	}
	v.Type, v.Formula, v.Cached = CellFormula, c.c.F.Content, cached
	return v
}

func (c *xssfCell) setScalar(v cellValue, t CellType) {
	switch t {
	case CellNumeric:
		c.c.V = strconv.FormatFloat(v.Num, 'g', -1, 64)
	case CellString:
		c.c.T = xssf.TypeSharedString
		c.c.V = strconv.Itoa(c.sheet.sst.Add(v.Str))
	case CellBoolean:
		c.c.T, c.c.V = xssf.TypeBool, "0"
		if v.Bool {
			c.c.V = "1"
		}
	case CellError:
		c.c.T, c.c.V = xssf.TypeError, v.Err
	}
}

func (c *xssfCell) setValue(v cellValue) {
	c.c.T, c.c.V, c.c.F, c.c.IS = "", "", nil, nil
	if v.Type != CellFormula {
		c.setScalar(v, v.Type)
		return
	}
	// an empty f element marks array members and shared dependents
	c.c.F = &xssf.F{Content: v.Formula}
	cached := v.Cached
	if cached == CellBlank {
		cached = CellNumeric
	}
	c.setScalar(v, cached)
	if cached == CellString {
		// formula results are stored inline, not in the shared table
		c.c.T, c.c.V = xssf.TypeFormulaStr, v.Str
	}
}

func (c *xssfCell) style() int { return c.c.S }

func (c *xssfCell) setStyle(i int) { c.c.S = i }

// xssfStyles keeps cell formats in neutral form; they become cellXfs
// entries when the workbook is written.
type xssfStyles struct {
	formats []cellFormat
}

func (s *xssfStyles) len() int { return len(s.formats) }

func (s *xssfStyles) get(i int) cellFormat { return s.formats[i] }

func (s *xssfStyles) check(f cellFormat) error {
	if !validRotation(f.Rotation) {
		return fmt.Errorf("%w: rotation %d not in -90..90 or %d", ErrArgument, f.Rotation, RotationVertical)
	}
	return nil
}

func (s *xssfStyles) set(i int, f cellFormat) error {
	if err := s.check(f); err != nil {
		return err
	}
	s.formats[i] = f
	return nil
}

func (s *xssfStyles) add(f cellFormat) (int, error) {
	if err := s.check(f); err != nil {
		return 0, err
	}
	s.formats = append(s.formats, f)
	return len(s.formats) - 1, nil
}

// newXSSFStyles returns the table of a new OOXML workbook: the default cell
// format at slot 0.
func newXSSFStyles() *xssfStyles {
	f := defaultCellFormat()
	f.Parent = -1
	return &xssfStyles{formats: []cellFormat{f}}
}
