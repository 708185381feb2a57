package xlgrid

import (
	"sort"
)

// Row is one row of a sheet: a sparse set of cells sorted by column plus
// the row record attributes.
type Row struct {
	sheet *Sheet
	store rowStore
	cells []*Cell
}

// RowNum returns the zero-based row index.
func (r *Row) RowNum() int { return r.store.index() }

// Sheet returns the sheet holding the row, nil once the row was removed.
func (r *Row) Sheet() *Sheet { return r.sheet }

func (r *Row) searchCell(col int) (int, bool) {
	i := sort.Search(len(r.cells), func(i int) bool { return r.cells[i].ColumnIndex() >= col })
	return i, i < len(r.cells) && r.cells[i].ColumnIndex() == col
}

// Cell returns the cell in column col, or nil.
func (r *Row) Cell(col int) *Cell {
	if p, ok := r.searchCell(col); ok {
		return r.cells[p]
	}
	return nil
}

// Cells returns the cells in ascending column order.
func (r *Row) Cells() []*Cell {
	return append([]*Cell(nil), r.cells...)
}

// PhysicalNumberOfCells returns the number of cells present.
func (r *Row) PhysicalNumberOfCells() int { return len(r.cells) }

// FirstCellNum returns the lowest column present, -1 for an empty row.
func (r *Row) FirstCellNum() int {
	if len(r.cells) == 0 {
		return -1
	}
	return r.cells[0].ColumnIndex()
}

// LastCellNum returns the highest column present, -1 for an empty row.
func (r *Row) LastCellNum() int {
	if len(r.cells) == 0 {
		return -1
	}
	return r.cells[len(r.cells)-1].ColumnIndex()
}

// CreateCell creates a blank cell in column col, replacing any cell there.
// The new cell takes the column style, else the row style, else the
// workbook default.
func (r *Row) CreateCell(col int) (*Cell, error) {
	sh := r.sheet
	if sh == nil {
		return nil, newOpError("", "createCell", ErrArgument, "row was removed from its sheet")
	}
	if err := sh.checkColumn("createCell", col); err != nil {
		return nil, err
	}
	if old := r.Cell(col); old != nil {
		if err := old.checkEditable("createCell"); err != nil {
			return nil, err
		}
		sh.releaseCell(r.RowNum(), col)
	}
	c := r.attachCell(r.store.insertCell(col))
	style := sh.wb.styles.defaultStyle
	if cs := sh.col(col).Style; cs >= 0 {
		style = cs
	} else if rs := r.store.attrs().Style; rs >= 0 {
		style = rs
	}
	c.store.setStyle(style)
	return c, nil
}

func (r *Row) attachCell(cs cellStore) *Cell {
	c := &Cell{row: r, store: cs}
	p, ok := r.searchCell(cs.column())
	if ok {
		r.cells[p] = c
		return c
	}
	r.cells = append(r.cells, nil)
	copy(r.cells[p+1:], r.cells[p:])
	r.cells[p] = c
	return c
}

// ensureCell returns the cell in column col, creating it when absent.
func (r *Row) ensureCell(col int) *Cell {
	if c := r.Cell(col); c != nil {
		return c
	}
	c, _ := r.CreateCell(col)
	return c
}

// RemoveCell deletes c from the row. It fails with ErrArgument when c is
// not in this row and with ErrArrayFormula when c is part of a multi-cell
// array formula.
func (r *Row) RemoveCell(c *Cell) error {
	if c == nil || c.row != r || r.Cell(c.ColumnIndex()) != c {
		return newOpError(r.sheetName(), "removeCell", ErrArgument, "cell does not belong to this row")
	}
	if err := c.checkEditable("removeCell"); err != nil {
		return err
	}
	r.dropCell(c)
	return nil
}

func (r *Row) dropCell(c *Cell) {
	col := c.ColumnIndex()
	if r.sheet != nil {
		r.sheet.releaseCell(r.RowNum(), col)
		if a := r.sheet.arrayAt(r.RowNum(), col); a != nil {
			r.sheet.removeArray(a)
		}
	}
	r.store.deleteCell(col)
	if p, ok := r.searchCell(col); ok {
		r.cells = append(r.cells[:p], r.cells[p+1:]...)
	}
	c.row = nil
}

// moveCellTo re-keys c to column col of this row, which must be free.
func (r *Row) moveCellTo(c *Cell, col int) {
	v, style := c.store.value(), c.store.style()
	r.store.deleteCell(c.ColumnIndex())
	if p, ok := r.searchCell(c.ColumnIndex()); ok {
		r.cells = append(r.cells[:p], r.cells[p+1:]...)
	}
	nc := r.store.insertCell(col)
	nc.setValue(v)
	nc.setStyle(style)
	c.store = nc
	p, _ := r.searchCell(col)
	r.cells = append(r.cells, nil)
	copy(r.cells[p+1:], r.cells[p:])
	r.cells[p] = c
}

func (r *Row) sheetName() string {
	if r.sheet == nil {
		return ""
	}
	return r.sheet.name
}

// checkRemovable fails when a cell of the row belongs to a multi-cell array
// formula.
func (r *Row) checkRemovable(op string) error {
	for _, c := range r.cells {
		if err := c.checkEditable(op); err != nil {
			return err
		}
	}
	return nil
}

// Height returns the row height in twips, -1 when the row uses the sheet
// default.
func (r *Row) Height() int { return r.store.attrs().Height }

// HeightInPoints returns the effective height in points.
func (r *Row) HeightInPoints() float64 {
	h := r.Height()
	if h < 0 && r.sheet != nil {
		h = r.sheet.defaultRowHeight
	}
	return float64(h) / 20
}

// SetHeight sets the height in twips; -1 restores the sheet default.
func (r *Row) SetHeight(twips int) error {
	if twips < -1 || twips > 8192 {
		return newOpError(r.sheetName(), "setRowHeight", ErrArgument, "height %d twips outside 0..8192", twips)
	}
	a := r.store.attrs()
	a.Height = twips
	r.store.setAttrs(a)
	return nil
}

// ZeroHeight reports whether the row is hidden.
func (r *Row) ZeroHeight() bool { return r.store.attrs().Hidden }

// SetZeroHeight hides or shows the row.
func (r *Row) SetZeroHeight(hidden bool) {
	a := r.store.attrs()
	a.Hidden = hidden
	r.store.setAttrs(a)
}

// OutlineLevel returns the group depth of the row.
func (r *Row) OutlineLevel() int { return r.store.attrs().OutlineLevel }

// Collapsed reports whether the row carries the collapsed marker of the
// group ending just above it.
func (r *Row) Collapsed() bool { return r.store.attrs().Collapsed }

// IsFormatted reports whether the row has a row style.
func (r *Row) IsFormatted() bool { return r.store.attrs().Style >= 0 }

// RowStyle returns the row style, or nil when the row uses default
// formatting.
func (r *Row) RowStyle() *CellStyle {
	if s := r.store.attrs().Style; s >= 0 && r.sheet != nil {
		return &CellStyle{wb: r.sheet.wb, index: s}
	}
	return nil
}

// SetRowStyle sets the style of the row; nil clears it.
func (r *Row) SetRowStyle(s *CellStyle) error {
	if r.sheet == nil {
		return newOpError("", "setRowStyle", ErrArgument, "row was removed from its sheet")
	}
	a := r.store.attrs()
	a.Style = -1
	if s != nil {
		if err := r.sheet.wb.checkCellStyle("setRowStyle", s); err != nil {
			return err
		}
		a.Style = s.index
	}
	r.store.setAttrs(a)
	return nil
}

func (r *Row) updateAttrs(fn func(*rowAttrs)) {
	a := r.store.attrs()
	fn(&a)
	r.store.setAttrs(a)
}
