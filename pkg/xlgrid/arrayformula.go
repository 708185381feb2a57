package xlgrid

import (
	"github.com/sirupsen/logrus"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/cellref"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/formula"
)

// arrayFormula is one array formula: a single formula whose result spills
// over rng. Every cell of rng is a formula cell with empty text.
type arrayFormula struct {
	rng     cellref.Range
	formula string
}

// sharedFormula is a group of formula cells that reuse the text of the
// master cell, each moved by its offset from the master. The master keeps
// the text; dependents store empty formulas. rng never starts before the
// master.
type sharedFormula struct {
	row, col int
	rng      cellref.Range
}

// SetArrayFormula fills rng with an array formula and returns its cells in
// row-major order. Cells already in rng lose their values but keep their
// styles. It fails with ErrArrayFormula when rng overlaps another multi-cell
// array formula.
func (sh *Sheet) SetArrayFormula(f string, rng cellref.Range) ([]*Cell, error) {
	const op = "setArrayFormula"
	if err := sh.checkRange(op, rng); err != nil {
		return nil, err
	}
	text, err := normalizeFormula(sh.wb.parser, f)
	if err != nil {
		return nil, &OperationError{Sheet: sh.name, Op: op, Err: err}
	}
	if err := sh.checkArrayOverlap(op, rng); err != nil {
		return nil, err
	}
	sh.expandSharedIn(rng)
	for _, a := range sh.arraysIn(rng) {
		sh.removeArray(a)
	}

	cells := make([]*Cell, 0, rng.NumCells())
	for r := rng.FirstRow; r <= rng.LastRow; r++ {
		row := sh.ensureRow(r)
		for c := rng.FirstCol; c <= rng.LastCol; c++ {
			cell := row.ensureCell(c)
			cell.store.setValue(cellValue{Type: CellFormula, Cached: CellNumeric})
			cells = append(cells, cell)
		}
	}
	sh.arrays = append(sh.arrays, &arrayFormula{rng: rng, formula: text})
	return cells, nil
}

// RemoveArrayFormula clears the array formula that cell belongs to and
// returns the cells of its range, now blank.
func (sh *Sheet) RemoveArrayFormula(cell *Cell) ([]*Cell, error) {
	const op = "removeArrayFormula"
	if cell == nil || cell.Sheet() != sh {
		return nil, newOpError(sh.name, op, ErrArgument, "cell does not belong to this sheet")
	}
	a := sh.arrayAt(cell.RowIndex(), cell.ColumnIndex())
	if a == nil {
		return nil, newOpError(sh.name, op, ErrArgument, "cell %s is not part of an array formula", cell.Address())
	}
	sh.removeArray(a)
	var cells []*Cell
	for r := a.rng.FirstRow; r <= a.rng.LastRow; r++ {
		row := sh.Row(r)
		if row == nil {
			continue
		}
		for c := a.rng.FirstCol; c <= a.rng.LastCol; c++ {
			if cl := row.Cell(c); cl != nil {
				cl.store.setValue(cellValue{Type: CellBlank})
				cells = append(cells, cl)
			}
		}
	}
	return cells, nil
}

// ArrayFormulas returns the ranges of the array formulas of the sheet.
func (sh *Sheet) ArrayFormulas() []cellref.Range {
	out := make([]cellref.Range, len(sh.arrays))
	for i, a := range sh.arrays {
		out[i] = a.rng
	}
	return out
}

// checkArrayOverlap fails when rng shares a cell with a multi-cell array
// formula.
func (sh *Sheet) checkArrayOverlap(op string, rng cellref.Range) error {
	for _, a := range sh.arrays {
		if !a.rng.IsSingleCell() && a.rng.Intersects(rng) {
			return newOpError(sh.name, op, ErrArrayFormula, "%s overlaps array formula %s", rng, a.rng)
		}
	}
	return nil
}

// arraysIn returns the array formulas intersecting rng.
func (sh *Sheet) arraysIn(rng cellref.Range) []*arrayFormula {
	var out []*arrayFormula
	for _, a := range sh.arrays {
		if a.rng.Intersects(rng) {
			out = append(out, a)
		}
	}
	return out
}

// removeArray drops a from the registry. Its cells keep their formula type
// with empty text until the caller overwrites them.
func (sh *Sheet) removeArray(a *arrayFormula) {
	for i, x := range sh.arrays {
		if x == a {
			sh.arrays = append(sh.arrays[:i], sh.arrays[i+1:]...)
			return
		}
	}
}

// SetSharedFormula fills rng with a shared formula whose master is the
// top-left cell. Dependents read the master formula moved by their offset.
func (sh *Sheet) SetSharedFormula(f string, rng cellref.Range) error {
	const op = "setSharedFormula"
	if err := sh.checkRange(op, rng); err != nil {
		return err
	}
	text, err := normalizeFormula(sh.wb.parser, f)
	if err != nil {
		return &OperationError{Sheet: sh.name, Op: op, Err: err}
	}
	if err := sh.checkArrayOverlap(op, rng); err != nil {
		return err
	}
	sh.expandSharedIn(rng)
	for _, a := range sh.arraysIn(rng) {
		sh.removeArray(a)
	}
	for r := rng.FirstRow; r <= rng.LastRow; r++ {
		row := sh.ensureRow(r)
		for c := rng.FirstCol; c <= rng.LastCol; c++ {
			v := cellValue{Type: CellFormula, Cached: CellNumeric}
			if r == rng.FirstRow && c == rng.FirstCol {
				v.Formula = text
			}
			row.ensureCell(c).store.setValue(v)
		}
	}
	if !rng.IsSingleCell() {
		sh.shared = append(sh.shared, &sharedFormula{row: rng.FirstRow, col: rng.FirstCol, rng: rng})
	}
	return nil
}

// sharedAt returns the shared formula group covering (row, col), or nil.
func (sh *Sheet) sharedAt(row, col int) *sharedFormula {
	for _, g := range sh.shared {
		if g.rng.Contains(row, col) {
			return g
		}
	}
	return nil
}

// sharedMasterAt returns the group whose master is (row, col), or nil.
func (sh *Sheet) sharedMasterAt(row, col int) *sharedFormula {
	for _, g := range sh.shared {
		if g.row == row && g.col == col {
			return g
		}
	}
	return nil
}

// masterFormula returns the text held by the master cell of g.
func (sh *Sheet) masterFormula(g *sharedFormula) string {
	if c := sh.Cell(g.row, g.col); c != nil {
		return c.store.value().Formula
	}
	return ""
}

// resolveShared returns the formula of the dependent at (row, col).
func (sh *Sheet) resolveShared(g *sharedFormula, row, col int) string {
	master := sh.masterFormula(g)
	if master == "" {
		return ""
	}
	v := sh.wb.version
	out, err := formula.Translate(sh.wb.parser, master, row-g.row, col-g.col, v.LastRowIndex(), v.LastColumnIndex())
	if err != nil {
		sh.wb.log.WithFields(logrus.Fields{"sheet": sh.name, "master": cellref.CellRef{Row: g.row, Col: g.col}.String()}).
			WithError(err).Warn("shared formula not translated")
		return master
	}
	return out
}

// dependents lists the cells of g that take their text from the master.
func (sh *Sheet) dependents(g *sharedFormula) []*Cell {
	var out []*Cell
	for r := g.rng.FirstRow; r <= g.rng.LastRow; r++ {
		row := sh.Row(r)
		if row == nil {
			continue
		}
		for c := g.rng.FirstCol; c <= g.rng.LastCol; c++ {
			if r == g.row && c == g.col {
				continue
			}
			cl := row.Cell(c)
			if cl == nil || sh.arrayAt(r, c) != nil {
				continue
			}
			if v := cl.store.value(); v.Type == CellFormula && v.Formula == "" {
				out = append(out, cl)
			}
		}
	}
	return out
}

// expandShared gives every dependent of g its own formula text and drops
// the group.
func (sh *Sheet) expandShared(g *sharedFormula) {
	for _, cl := range sh.dependents(g) {
		v := cl.store.value()
		v.Formula = sh.resolveShared(g, cl.RowIndex(), cl.ColumnIndex())
		cl.store.setValue(v)
	}
	for i, x := range sh.shared {
		if x == g {
			sh.shared = append(sh.shared[:i], sh.shared[i+1:]...)
			break
		}
	}
}

// expandSharedIn expands every group intersecting rng.
func (sh *Sheet) expandSharedIn(rng cellref.Range) {
	for _, g := range append([]*sharedFormula(nil), sh.shared...) {
		if g.rng.Intersects(rng) {
			sh.expandShared(g)
		}
	}
}

// expandAllShared turns every shared group of the sheet into plain
// formulas.
func (sh *Sheet) expandAllShared() {
	for len(sh.shared) > 0 {
		sh.expandShared(sh.shared[0])
	}
}
