package xlgrid

import (
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/cellref"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/formula"
)

// ShiftOptions tunes ShiftRows. The zero value moves cells only: row
// heights stay where they are and comments keep their anchors.
type ShiftOptions struct {
	// CopyRowHeight makes moved rows carry their height to the destination.
	CopyRowHeight bool
	// ResetOriginalRowHeight restores the default height at the source
	// rows instead of leaving their height behind.
	ResetOriginalRowHeight bool
	// MoveComments moves comments anchored in the band with their rows.
	MoveComments bool
}

// band describes one shift: indices first..last on axis move by n and
// must stay within 0..max.
type band struct {
	axis        formula.Axis
	first, last int
	n           int
	max         int
}

func (b band) inSource(i int) bool { return b.first <= i && i <= b.last }

func (b band) inDest(i int) bool { return b.first+b.n <= i && i <= b.last+b.n }

// cleared reports whether index i is overwritten without being moved.
func (b band) cleared(i int) bool { return b.inDest(i) && !b.inSource(i) }

func (b band) fits(i int) bool { return 0 <= i && i <= b.max }

func (b band) span(r cellref.Range) (int, int) {
	if b.axis == formula.Columns {
		return r.FirstCol, r.LastCol
	}
	return r.FirstRow, r.LastRow
}

func (b band) within(r cellref.Range) bool {
	lo, hi := b.span(r)
	return b.inSource(lo) && b.inSource(hi)
}

func (b band) touches(r cellref.Range) bool {
	lo, hi := b.span(r)
	return hi >= b.first && lo <= b.last
}

func (b band) touchesDest(r cellref.Range) bool {
	lo, hi := b.span(r)
	return hi >= b.first+b.n && lo <= b.last+b.n
}

// move returns r moved along the axis; false when it leaves the grid.
func (b band) move(r cellref.Range) (cellref.Range, bool) {
	lo, hi := b.span(r)
	lo, hi = lo+b.n, hi+b.n
	if b.axis == formula.Columns {
		r.FirstCol, r.LastCol = lo, hi
	} else {
		r.FirstRow, r.LastRow = lo, hi
	}
	return r, b.fits(lo) && b.fits(hi)
}

// clip bounds r to the grid along the axis.
func (b band) clip(r cellref.Range) (cellref.Range, bool) {
	lo, hi := b.span(r)
	lo, hi = max(lo, 0), min(hi, b.max)
	if lo > hi {
		return r, false
	}
	if b.axis == formula.Columns {
		r.FirstCol, r.LastCol = lo, hi
	} else {
		r.FirstRow, r.LastRow = lo, hi
	}
	return r, true
}

func (b band) shifter(sheet string, p formula.Parser) *formula.Shifter {
	return &formula.Shifter{Sheet: sheet, Axis: b.axis, First: b.first, Last: b.last, Amount: b.n, Max: b.max, Parser: p}
}

func (b band) unit() string {
	if b.axis == formula.Columns {
		return "column"
	}
	return "row"
}

// ShiftRows moves rows start..end by n, down when n is positive. Rows
// overwritten at the destination are cleared first. Merged regions, array
// formulas, page breaks, hyperlinks and, with MoveComments, comments follow
// the rows; references in every formula and defined name of the workbook
// are rewritten and those left pointing outside the grid become #REF!.
//
// The whole shift is rejected before anything changes when it would split
// a multi-cell array formula, or, under the fail overflow policy, when a
// row would leave the grid.
func (sh *Sheet) ShiftRows(start, end, n int, opts ShiftOptions) error {
	const op = "shiftRows"
	if err := sh.checkRow(op, start); err != nil {
		return err
	}
	if err := sh.checkRow(op, end); err != nil {
		return err
	}
	if start > end {
		return newOpError(sh.name, op, ErrArgument, "start row %d after end row %d", start, end)
	}
	if n == 0 {
		return nil
	}
	b := band{axis: formula.Rows, first: start, last: end, n: n, max: sh.wb.version.LastRowIndex()}
	if err := sh.checkShiftArrays(op, b); err != nil {
		return err
	}
	var moving []*Row
	for _, r := range sh.rows {
		if b.inSource(r.RowNum()) {
			moving = append(moving, r)
		}
	}
	if err := sh.checkOverflow(op, b, len(moving), func(i int) int { return moving[i].RowNum() }); err != nil {
		return err
	}
	sh.wb.expandSharedForShift(sh, b)

	for _, r := range sh.Rows() {
		if b.cleared(r.RowNum()) {
			sh.dropRow(r)
		}
	}
	if n > 0 {
		// walk away from the overlap so no source is overwritten unread
		slices.Reverse(moving)
	}
	for _, r := range moving {
		from := r.RowNum()
		to := from + n
		if !b.fits(to) {
			sh.wb.log.WithFields(logrus.Fields{"sheet": sh.name, "row": from, "to": to}).Warn("row discarded by shift")
			sh.dropRow(r)
			continue
		}
		height := r.Height()
		replaced := -1
		if old := sh.Row(to); old != nil {
			replaced = old.Height()
			sh.dropRow(old)
		}
		sh.moveRowTo(r, to)
		if !opts.CopyRowHeight {
			r.updateAttrs(func(a *rowAttrs) { a.Height = replaced })
		}
		if !opts.ResetOriginalRowHeight && height >= 0 && sh.Row(from) == nil {
			left := sh.attachRow(sh.store.insertRow(from))
			left.updateAttrs(func(a *rowAttrs) { a.Height = height })
		}
	}
	sh.shiftStructures(b, opts.MoveComments)
	sh.wb.rewriteFormulas(op, b.shifter(sh.name, sh.wb.parser).Shift)
	sh.wb.log.WithFields(logrus.Fields{"sheet": sh.name, "first": start, "last": end, "by": n}).Debug("rows shifted")
	return nil
}

// ShiftColumns moves columns start..end by n, right when n is positive,
// with the same rules as ShiftRows. Column widths and styles move with
// their columns; comments always follow their cells.
func (sh *Sheet) ShiftColumns(start, end, n int) error {
	const op = "shiftColumns"
	if err := sh.checkColumn(op, start); err != nil {
		return err
	}
	if err := sh.checkColumn(op, end); err != nil {
		return err
	}
	if start > end {
		return newOpError(sh.name, op, ErrArgument, "start column %d after end column %d", start, end)
	}
	if n == 0 {
		return nil
	}
	b := band{axis: formula.Columns, first: start, last: end, n: n, max: sh.wb.version.LastColumnIndex()}
	if err := sh.checkShiftArrays(op, b); err != nil {
		return err
	}
	var moving []*Cell
	for _, r := range sh.rows {
		for _, c := range r.cells {
			if b.inSource(c.ColumnIndex()) {
				moving = append(moving, c)
			}
		}
	}
	if err := sh.checkOverflow(op, b, len(moving), func(i int) int { return moving[i].ColumnIndex() }); err != nil {
		return err
	}
	sh.wb.expandSharedForShift(sh, b)

	for _, r := range sh.rows {
		for _, c := range r.Cells() {
			if b.cleared(c.ColumnIndex()) {
				r.dropCell(c)
			}
		}
		var cells []*Cell
		for _, c := range r.cells {
			if b.inSource(c.ColumnIndex()) {
				cells = append(cells, c)
			}
		}
		if n > 0 {
			slices.Reverse(cells)
		}
		for _, c := range cells {
			from := c.ColumnIndex()
			to := from + n
			if !b.fits(to) {
				sh.wb.log.WithFields(logrus.Fields{"sheet": sh.name, "row": r.RowNum(), "column": from, "to": to}).Warn("cell discarded by shift")
				r.dropCell(c)
				continue
			}
			if old := r.Cell(to); old != nil {
				r.dropCell(old)
			}
			r.moveCellTo(c, to)
		}
	}

	cols := make(map[int]*colInfo, len(sh.cols))
	for c, ci := range sh.cols {
		if !b.inSource(c) && !b.cleared(c) {
			cols[c] = ci
		}
	}
	for c, ci := range sh.cols {
		if to := c + n; b.inSource(c) && b.fits(to) {
			cols[to] = ci
		}
	}
	sh.cols = cols

	sh.shiftStructures(b, true)
	sh.wb.rewriteFormulas(op, b.shifter(sh.name, sh.wb.parser).Shift)
	sh.wb.log.WithFields(logrus.Fields{"sheet": sh.name, "first": start, "last": end, "by": n}).Debug("columns shifted")
	return nil
}

// checkShiftArrays rejects a shift that would move part of a multi-cell
// array formula or overwrite one.
func (sh *Sheet) checkShiftArrays(op string, b band) error {
	for _, a := range sh.arrays {
		if a.rng.IsSingleCell() || b.within(a.rng) {
			continue
		}
		if b.touches(a.rng) || b.touchesDest(a.rng) {
			return newOpError(sh.name, op, ErrArrayFormula, "shift would split array formula %s", a.rng)
		}
	}
	return nil
}

// checkOverflow applies the overflow policy to the count indices moved.
func (sh *Sheet) checkOverflow(op string, b band, count int, index func(int) int) error {
	if sh.wb.opts.ShiftOverflow != OverflowFail {
		return nil
	}
	for i := 0; i < count; i++ {
		if from := index(i); !b.fits(from + b.n) {
			return newOpError(sh.name, op, ErrArgument, "%s %d would move to %d, outside 0..%d", b.unit(), from, from+b.n, b.max)
		}
	}
	return nil
}

// shiftStructures moves the sheet structures anchored in the band and
// drops those overwritten at the destination.
func (sh *Sheet) shiftStructures(b band, moveComments bool) {
	sh.shiftMerged(b)
	sh.shiftArrays(b)

	links := sh.links[:0]
	for _, l := range sh.links {
		lo, _ := b.span(l.Range)
		switch {
		case b.within(l.Range):
			var ok bool
			if l.Range, ok = b.move(l.Range); !ok {
				continue
			}
		case b.cleared(lo):
			continue
		}
		links = append(links, l)
	}
	sh.links = links

	comments := sh.comments[:0]
	for _, cm := range sh.comments {
		at := cellref.NewRange(cm.Row, cm.Row, cm.Col, cm.Col)
		lo, _ := b.span(at)
		switch {
		case moveComments && b.inSource(lo):
			moved, ok := b.move(at)
			if !ok {
				continue
			}
			cm.Row, cm.Col = moved.FirstRow, moved.FirstCol
		case b.cleared(lo):
			continue
		}
		comments = append(comments, cm)
	}
	sh.comments = comments

	if b.axis == formula.Columns {
		sh.colBreaks = shiftBreaks(sh.colBreaks, b)
	} else {
		sh.rowBreaks = shiftBreaks(sh.rowBreaks, b)
	}
}

// shiftMerged moves regions inside the band, keeping their handles, and
// removes regions the moved ones land on.
func (sh *Sheet) shiftMerged(b band) {
	var landed []cellref.Range
	moved := map[RegionID]bool{}
	for _, id := range slices.Clone(sh.merged.order) {
		rng := sh.merged.byID[id]
		if !b.within(rng) {
			continue
		}
		dst, ok := b.move(rng)
		if !ok {
			sh.merged.remove(id)
			continue
		}
		sh.merged.byID[id] = dst
		moved[id] = true
		landed = append(landed, dst)
	}
	for _, id := range slices.Clone(sh.merged.order) {
		if moved[id] {
			continue
		}
		rng := sh.merged.byID[id]
		lo, hi := b.span(rng)
		overwritten := b.cleared(lo) && b.cleared(hi)
		for _, m := range landed {
			if m.Intersects(rng) {
				overwritten = true
			}
		}
		if overwritten {
			sh.merged.remove(id)
		}
	}
}

// shiftArrays moves array formulas inside the band. An array that would
// leave the grid is dropped and its remaining cells blanked.
func (sh *Sheet) shiftArrays(b band) {
	for _, a := range slices.Clone(sh.arrays) {
		if !b.within(a.rng) {
			continue
		}
		moved, ok := b.move(a.rng)
		if ok {
			a.rng = moved
			continue
		}
		sh.removeArray(a)
		if rest, ok := b.clip(moved); ok {
			sh.blankRange(rest)
		}
	}
}

// blankRange clears the values of the cells present in rng.
func (sh *Sheet) blankRange(rng cellref.Range) {
	for _, r := range sh.rows {
		if !rng.ContainsRow(r.RowNum()) {
			continue
		}
		for _, c := range r.cells {
			if rng.ContainsColumn(c.ColumnIndex()) {
				c.store.setValue(cellValue{Type: CellBlank})
			}
		}
	}
}

func shiftBreaks(list []int, b band) []int {
	var out []int
	for _, at := range list {
		switch {
		case b.inSource(at):
			if to := at + b.n; b.fits(to) {
				out = addBreak(out, to)
			}
		case b.cleared(at):
		default:
			out = addBreak(out, at)
		}
	}
	return out
}

// expandSharedForShift expands the shared formula groups a shift of target
// would touch: groups lying in the moved or overwritten band, and groups
// whose formulas refer to the band.
func (wb *Workbook) expandSharedForShift(target *Sheet, b band) {
	s := b.shifter(target.name, wb.parser)
	for _, sh := range wb.sheets {
		for _, g := range slices.Clone(sh.shared) {
			if sh == target && (b.touches(g.rng) || b.touchesDest(g.rng)) {
				sh.expandShared(g)
				continue
			}
			if sh.sharedShiftChanges(g, s) {
				sh.expandShared(g)
			}
		}
	}
}

func (sh *Sheet) sharedShiftChanges(g *sharedFormula, s *formula.Shifter) bool {
	if _, changed, _ := s.Shift(sh.masterFormula(g), sh.name); changed {
		return true
	}
	for _, c := range sh.dependents(g) {
		if _, changed, _ := s.Shift(sh.resolveShared(g, c.RowIndex(), c.ColumnIndex()), sh.name); changed {
			return true
		}
	}
	return false
}
