package xlgrid

// outline exposes the outline attributes of rows or columns by index.
type outline struct {
	name         string
	max          int
	level        func(i int) int
	setLevel     func(i, level int)
	setHidden    func(i int, hidden bool)
	collapsed    func(i int) bool
	setCollapsed func(i int, collapsed bool)
}

const maxOutlineLevel = 7

func (sh *Sheet) rowOutline() outline {
	row := func(i int) *Row { return sh.ensureRow(i) }
	return outline{
		name: "row",
		max:  sh.wb.version.LastRowIndex(),
		level: func(i int) int {
			if r := sh.Row(i); r != nil {
				return r.OutlineLevel()
			}
			return 0
		},
		setLevel: func(i, l int) { row(i).updateAttrs(func(a *rowAttrs) { a.OutlineLevel = l }) },
		setHidden: func(i int, h bool) {
			if r := sh.Row(i); r != nil {
				r.SetZeroHeight(h)
			}
		},
		collapsed: func(i int) bool {
			r := sh.Row(i)
			return r != nil && r.Collapsed()
		},
		setCollapsed: func(i int, c bool) {
			if r := sh.Row(i); r != nil || c {
				row(i).updateAttrs(func(a *rowAttrs) { a.Collapsed = c })
			}
		},
	}
}

func (sh *Sheet) columnOutline() outline {
	update := func(i int, fn func(*colInfo)) {
		ci := sh.col(i)
		fn(&ci)
		sh.setCol(i, ci)
	}
	return outline{
		name:         "column",
		max:          sh.wb.version.LastColumnIndex(),
		level:        func(i int) int { return sh.col(i).OutlineLevel },
		setLevel:     func(i, l int) { update(i, func(ci *colInfo) { ci.OutlineLevel = l }) },
		setHidden:    func(i int, h bool) { update(i, func(ci *colInfo) { ci.Hidden = h }) },
		collapsed:    func(i int) bool { return sh.col(i).Collapsed },
		setCollapsed: func(i int, c bool) { update(i, func(ci *colInfo) { ci.Collapsed = c }) },
	}
}

// group adds delta to the level of from..to, clamped to 0..7.
func (o outline) group(from, to, delta int) {
	if from > to {
		from, to = to, from
	}
	for i := from; i <= to; i++ {
		l := min(max(o.level(i)+delta, 0), maxOutlineLevel)
		if l != o.level(i) {
			o.setLevel(i, l)
		}
	}
}

// bounds returns the run of indices around i whose level is at least
// level.
func (o outline) bounds(i, level int) (start, end int) {
	start, end = i, i
	for start > 0 && o.level(start-1) >= level {
		start--
	}
	for end < o.max && o.level(end+1) >= level {
		end++
	}
	return start, end
}

// hiddenByParent reports whether a collapsed enclosing group hides the run
// start..end of the given level.
func (o outline) hiddenByParent(start, end, level int) bool {
	for d := level - 1; d >= 1; d-- {
		_, e := o.bounds(start, d)
		if e < o.max && o.collapsed(e+1) {
			return true
		}
	}
	return false
}

// collapse hides the group containing i and marks the index after it.
func (o outline) collapse(i int) {
	level := o.level(i)
	start, end := o.bounds(i, level)
	for j := start; j <= end; j++ {
		o.setHidden(j, true)
	}
	if end < o.max {
		o.setCollapsed(end+1, true)
	}
}

// expand shows the group containing i. Indices inside nested groups that
// are still collapsed stay hidden, and nothing is shown while an enclosing
// group is collapsed.
func (o outline) expand(i int) {
	level := o.level(i)
	start, end := o.bounds(i, level)
	if end < o.max {
		o.setCollapsed(end+1, false)
	}
	if o.hiddenByParent(start, end, level) {
		return
	}
	// closed[d] tells whether the run at depth >= d that holds the current
	// index is followed by a collapsed marker.
	var closed [maxOutlineLevel + 1]bool
	next := 0
	if end < o.max {
		next = o.level(end + 1)
	}
	for j := end; j >= start; j-- {
		l := o.level(j)
		for d := next + 1; d <= l; d++ {
			closed[d] = j < o.max && o.collapsed(j+1)
		}
		hidden := false
		for d := level + 1; d <= l; d++ {
			hidden = hidden || closed[d]
		}
		o.setHidden(j, hidden)
		next = l
	}
}

// GroupRows adds one outline level to rows from..to, creating absent rows.
// Levels stop at 7.
func (sh *Sheet) GroupRows(from, to int) error {
	if err := sh.checkRow("groupRows", from); err != nil {
		return err
	}
	if err := sh.checkRow("groupRows", to); err != nil {
		return err
	}
	sh.rowOutline().group(from, to, 1)
	return nil
}

// UngroupRows removes one outline level from rows from..to.
func (sh *Sheet) UngroupRows(from, to int) error {
	if err := sh.checkRow("ungroupRows", from); err != nil {
		return err
	}
	if err := sh.checkRow("ungroupRows", to); err != nil {
		return err
	}
	if from > to {
		from, to = to, from
	}
	o := sh.rowOutline()
	for _, r := range sh.Rows() {
		if i := r.RowNum(); i >= from && i <= to && r.OutlineLevel() > 0 {
			o.setLevel(i, r.OutlineLevel()-1)
		}
	}
	return nil
}

// SetRowGroupCollapsed collapses or expands the row group containing row.
// The collapsed marker goes on the row right after the group.
func (sh *Sheet) SetRowGroupCollapsed(row int, collapse bool) error {
	const op = "setRowGroupCollapsed"
	if err := sh.checkRow(op, row); err != nil {
		return err
	}
	o := sh.rowOutline()
	if o.level(row) == 0 {
		return newOpError(sh.name, op, ErrArgument, "row %d is not grouped", row)
	}
	if collapse {
		o.collapse(row)
	} else {
		o.expand(row)
	}
	return nil
}

// GroupColumns adds one outline level to columns from..to.
func (sh *Sheet) GroupColumns(from, to int) error {
	if err := sh.checkColumn("groupColumns", from); err != nil {
		return err
	}
	if err := sh.checkColumn("groupColumns", to); err != nil {
		return err
	}
	sh.columnOutline().group(from, to, 1)
	return nil
}

// UngroupColumns removes one outline level from columns from..to.
func (sh *Sheet) UngroupColumns(from, to int) error {
	if err := sh.checkColumn("ungroupColumns", from); err != nil {
		return err
	}
	if err := sh.checkColumn("ungroupColumns", to); err != nil {
		return err
	}
	sh.columnOutline().group(from, to, -1)
	return nil
}

// SetColumnGroupCollapsed collapses or expands the column group containing
// col.
func (sh *Sheet) SetColumnGroupCollapsed(col int, collapse bool) error {
	const op = "setColumnGroupCollapsed"
	if err := sh.checkColumn(op, col); err != nil {
		return err
	}
	o := sh.columnOutline()
	if o.level(col) == 0 {
		return newOpError(sh.name, op, ErrArgument, "column %d is not grouped", col)
	}
	if collapse {
		o.collapse(col)
	} else {
		o.expand(col)
	}
	return nil
}

// ColumnOutlineLevel returns the group depth of column c.
func (sh *Sheet) ColumnOutlineLevel(c int) int { return sh.col(c).OutlineLevel }

// ColumnCollapsed reports whether column c carries a collapsed marker.
func (sh *Sheet) ColumnCollapsed(c int) bool { return sh.col(c).Collapsed }

// MaxOutlineLevels returns the deepest row and column levels, which size
// the outline gutters.
func (sh *Sheet) MaxOutlineLevels() (rows, cols int) {
	for _, r := range sh.rows {
		rows = max(rows, r.OutlineLevel())
	}
	for _, ci := range sh.cols {
		cols = max(cols, ci.OutlineLevel)
	}
	return rows, cols
}

// RowSumsBelow reports whether summary rows sit below their details.
func (sh *Sheet) RowSumsBelow() bool { return sh.rowSumsBelow }

// SetRowSumsBelow places summary rows below (true) or above their details.
func (sh *Sheet) SetRowSumsBelow(v bool) { sh.rowSumsBelow = v }

// ColumnSumsRight reports whether summary columns sit right of their
// details.
func (sh *Sheet) ColumnSumsRight() bool { return sh.colSumsRight }

// SetColumnSumsRight places summary columns right (true) or left of their
// details.
func (sh *Sheet) SetColumnSumsRight(v bool) { sh.colSumsRight = v }
