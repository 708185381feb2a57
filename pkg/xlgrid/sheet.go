package xlgrid

import (
	"fmt"
	"sort"

	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/cellref"
)

// Visibility is the tab state of a sheet.
type Visibility int

const (
	SheetVisible Visibility = iota
	SheetHidden
	SheetVeryHidden
)

// colInfo holds the attributes of one column. Width is in 1/256 of a
// character, -1 for the sheet default.
type colInfo struct {
	Width        int
	Hidden       bool
	OutlineLevel int
	Collapsed    bool
	Style        int
}

func defaultColInfo() colInfo {
	return colInfo{Width: -1, Style: -1}
}

func (c colInfo) isDefault() bool {
	return c == defaultColInfo()
}

// Sheet is one worksheet: a sparse grid of rows plus the structures laid
// over it. Rows are kept sorted by index.
type Sheet struct {
	wb         *Workbook
	name       string
	visibility Visibility
	store      sheetStore
	rows       []*Row

	merged   *mergedTable
	arrays   []*arrayFormula
	shared   []*sharedFormula
	cols     map[int]*colInfo
	links    []*Hyperlink
	comments []*Comment

	rowBreaks []int
	colBreaks []int
	freezeRow int
	freezeCol int
	protected bool
	// password is kept in clear only when set through Protect; loaded
	// sheets carry the hash alone.
	password     string
	passwordHash uint16
	setup        *PrintSetup

	// defaultRowHeight is in twips, defaultColWidth in characters.
	defaultRowHeight int
	defaultColWidth  int
	rowSumsBelow     bool
	colSumsRight     bool
}

// Name returns the sheet name.
func (sh *Sheet) Name() string { return sh.name }

// Workbook returns the workbook holding the sheet.
func (sh *Sheet) Workbook() *Workbook { return sh.wb }

// Visibility returns the tab state.
func (sh *Sheet) Visibility() Visibility { return sh.visibility }

// SetVisibility hides or shows the sheet tab.
func (sh *Sheet) SetVisibility(v Visibility) error {
	if v < SheetVisible || v > SheetVeryHidden {
		return newOpError(sh.name, "setVisibility", ErrArgument, "visibility %d", v)
	}
	sh.visibility = v
	return nil
}

func (sh *Sheet) searchRow(idx int) (int, bool) {
	i := sort.Search(len(sh.rows), func(i int) bool { return sh.rows[i].RowNum() >= idx })
	return i, i < len(sh.rows) && sh.rows[i].RowNum() == idx
}

// Row returns the row at index i, or nil when the sheet has no such row.
func (sh *Sheet) Row(i int) *Row {
	if p, ok := sh.searchRow(i); ok {
		return sh.rows[p]
	}
	return nil
}

// Cell returns the cell at (row, col), or nil.
func (sh *Sheet) Cell(row, col int) *Cell {
	if r := sh.Row(row); r != nil {
		return r.Cell(col)
	}
	return nil
}

// Rows returns the rows in ascending index order.
func (sh *Sheet) Rows() []*Row {
	return append([]*Row(nil), sh.rows...)
}

// PhysicalNumberOfRows returns the number of rows present.
func (sh *Sheet) PhysicalNumberOfRows() int { return len(sh.rows) }

// FirstRowNum returns the lowest row index present, 0 for an empty sheet.
func (sh *Sheet) FirstRowNum() int {
	if len(sh.rows) == 0 {
		return 0
	}
	return sh.rows[0].RowNum()
}

// LastRowNum returns the highest row index present, 0 for an empty sheet.
func (sh *Sheet) LastRowNum() int {
	if len(sh.rows) == 0 {
		return 0
	}
	return sh.rows[len(sh.rows)-1].RowNum()
}

func (sh *Sheet) checkRow(op string, i int) error {
	if !sh.wb.version.ValidRow(i) {
		return newOpError(sh.name, op, ErrArgument, "row %d outside 0..%d (%s)", i, sh.wb.version.LastRowIndex(), sh.wb.version.Name)
	}
	return nil
}

func (sh *Sheet) checkColumn(op string, c int) error {
	if !sh.wb.version.ValidColumn(c) {
		return newOpError(sh.name, op, ErrArgument, "column %d outside 0..%d (%s)", c, sh.wb.version.LastColumnIndex(), sh.wb.version.Name)
	}
	return nil
}

// CreateRow creates an empty row at index i. An existing row at i is
// replaced and its cells are dropped; it fails with ErrArrayFormula when one
// of them belongs to a multi-cell array formula.
func (sh *Sheet) CreateRow(i int) (*Row, error) {
	if err := sh.checkRow("createRow", i); err != nil {
		return nil, err
	}
	if old := sh.Row(i); old != nil {
		if err := old.checkRemovable("createRow"); err != nil {
			return nil, err
		}
		sh.dropRow(old)
	}
	return sh.attachRow(sh.store.insertRow(i)), nil
}

// attachRow wraps a row record and inserts it into the sorted row list.
func (sh *Sheet) attachRow(rs rowStore) *Row {
	row := &Row{sheet: sh, store: rs}
	p, ok := sh.searchRow(rs.index())
	if ok {
		sh.rows[p] = row
		return row
	}
	sh.rows = append(sh.rows, nil)
	copy(sh.rows[p+1:], sh.rows[p:])
	sh.rows[p] = row
	return row
}

// ensureRow returns row i, creating it when absent.
func (sh *Sheet) ensureRow(i int) *Row {
	if r := sh.Row(i); r != nil {
		return r
	}
	return sh.attachRow(sh.store.insertRow(i))
}

// RemoveRow deletes row r and its cells. It fails with ErrArgument when r
// does not belong to the sheet and with ErrArrayFormula, before anything
// changes, when a cell of r is part of a multi-cell array formula.
func (sh *Sheet) RemoveRow(r *Row) error {
	if !sh.owns(r) {
		return newOpError(sh.name, "removeRow", ErrArgument, "row does not belong to this sheet")
	}
	if err := r.checkRemovable("removeRow"); err != nil {
		return err
	}
	sh.dropRow(r)
	return nil
}

func (sh *Sheet) owns(r *Row) bool {
	return r != nil && r.sheet == sh && sh.Row(r.RowNum()) == r
}

// dropRow removes the cells of r, then the row record, then the row.
func (sh *Sheet) dropRow(r *Row) {
	idx := r.RowNum()
	for _, c := range r.cells {
		sh.releaseCell(idx, c.ColumnIndex())
		if a := sh.arrayAt(idx, c.ColumnIndex()); a != nil && a.rng.IsSingleCell() {
			sh.removeArray(a)
		}
		r.store.deleteCell(c.ColumnIndex())
		c.row = nil
	}
	r.cells = nil
	sh.store.deleteRow(idx)
	if p, ok := sh.searchRow(idx); ok {
		sh.rows = append(sh.rows[:p], sh.rows[p+1:]...)
	}
	r.sheet = nil
}

// releaseCell runs before the cell at (row, col) disappears: a shared
// formula whose master it is becomes plain formulas.
func (sh *Sheet) releaseCell(row, col int) {
	if g := sh.sharedMasterAt(row, col); g != nil {
		sh.expandShared(g)
	}
}

// moveRowTo re-keys r to index to, which must be free.
func (sh *Sheet) moveRowTo(r *Row, to int) {
	from := r.RowNum()
	if p, ok := sh.searchRow(from); ok {
		sh.rows = append(sh.rows[:p], sh.rows[p+1:]...)
	}
	sh.store.moveRow(r.store, to)
	p, _ := sh.searchRow(to)
	sh.rows = append(sh.rows, nil)
	copy(sh.rows[p+1:], sh.rows[p:])
	sh.rows[p] = r
}

// arrayAt returns the array formula covering (row, col), or nil.
func (sh *Sheet) arrayAt(row, col int) *arrayFormula {
	for _, a := range sh.arrays {
		if a.rng.Contains(row, col) {
			return a
		}
	}
	return nil
}

// multiArrayAt returns the multi-cell array formula covering (row, col).
func (sh *Sheet) multiArrayAt(row, col int) *arrayFormula {
	if a := sh.arrayAt(row, col); a != nil && !a.rng.IsSingleCell() {
		return a
	}
	return nil
}

func (sh *Sheet) col(c int) colInfo {
	if ci, ok := sh.cols[c]; ok {
		return *ci
	}
	return defaultColInfo()
}

func (sh *Sheet) setCol(c int, ci colInfo) {
	if ci.isDefault() {
		delete(sh.cols, c)
		return
	}
	sh.cols[c] = &ci
}

// columns returns the indices with column attributes in ascending order.
func (sh *Sheet) columns() []int {
	out := make([]int, 0, len(sh.cols))
	for c := range sh.cols {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// ColumnWidth returns the width of column c in 1/256 of a character.
func (sh *Sheet) ColumnWidth(c int) int {
	if w := sh.col(c).Width; w >= 0 {
		return w
	}
	return sh.defaultColWidth * 256
}

// SetColumnWidth sets the width of column c in 1/256 of a character.
func (sh *Sheet) SetColumnWidth(c, width int) error {
	if err := sh.checkColumn("setColumnWidth", c); err != nil {
		return err
	}
	if limit := sh.wb.version.MaxColumnWidth * 256; width < 0 || width > limit {
		return newOpError(sh.name, "setColumnWidth", ErrArgument, "width %d outside 0..%d", width, limit)
	}
	ci := sh.col(c)
	ci.Width = width
	sh.setCol(c, ci)
	return nil
}

// ColumnHidden reports whether column c is hidden.
func (sh *Sheet) ColumnHidden(c int) bool { return sh.col(c).Hidden }

// SetColumnHidden hides or shows column c.
func (sh *Sheet) SetColumnHidden(c int, hidden bool) error {
	if err := sh.checkColumn("setColumnHidden", c); err != nil {
		return err
	}
	ci := sh.col(c)
	ci.Hidden = hidden
	sh.setCol(c, ci)
	return nil
}

// ColumnStyle returns the default style of column c, or nil.
func (sh *Sheet) ColumnStyle(c int) *CellStyle {
	if s := sh.col(c).Style; s >= 0 {
		return &CellStyle{wb: sh.wb, index: s}
	}
	return nil
}

// SetColumnStyle sets the style new cells of column c start with; nil
// clears it.
func (sh *Sheet) SetColumnStyle(c int, s *CellStyle) error {
	if err := sh.checkColumn("setColumnStyle", c); err != nil {
		return err
	}
	idx := -1
	if s != nil {
		if err := sh.wb.checkCellStyle("setColumnStyle", s); err != nil {
			return err
		}
		idx = s.index
	}
	ci := sh.col(c)
	ci.Style = idx
	sh.setCol(c, ci)
	return nil
}

// DefaultRowHeight returns the height of rows without a custom height, in
// twips.
func (sh *Sheet) DefaultRowHeight() int { return sh.defaultRowHeight }

// SetDefaultRowHeight sets the default row height in twips.
func (sh *Sheet) SetDefaultRowHeight(twips int) error {
	if twips <= 0 || twips > 8192 {
		return newOpError(sh.name, "setDefaultRowHeight", ErrArgument, "height %d twips", twips)
	}
	sh.defaultRowHeight = twips
	if hs, ok := sh.store.(*hssfSheet); ok {
		hs.sh.DefaultRowHeight = uint16(twips)
	}
	return nil
}

// DefaultColumnWidth returns the default column width in characters.
func (sh *Sheet) DefaultColumnWidth() int { return sh.defaultColWidth }

// SetDefaultColumnWidth sets the default column width in characters.
func (sh *Sheet) SetDefaultColumnWidth(chars int) error {
	if chars < 0 || chars > sh.wb.version.MaxColumnWidth {
		return newOpError(sh.name, "setDefaultColumnWidth", ErrArgument, "width %d", chars)
	}
	sh.defaultColWidth = chars
	return nil
}

// checkRange validates a range against the grid limits of the workbook.
func (sh *Sheet) checkRange(op string, rng cellref.Range) error {
	if err := rng.Validate(sh.wb.version); err != nil {
		return &OperationError{Sheet: sh.name, Op: op, Err: fmt.Errorf("%w: %w", ErrArgument, err)}
	}
	return nil
}

// checkCellStyle rejects styles of other workbooks and named styles.
func (wb *Workbook) checkCellStyle(op string, s *CellStyle) error {
	if s.wb != wb {
		return newOpError("", op, ErrArgument, "style belongs to another workbook")
	}
	if s.index < 0 || s.index >= wb.styles.store.len() {
		return newOpError("", op, ErrNotFound, "style %d", s.index)
	}
	if s.IsNamedStyle() {
		return newOpError("", op, ErrArgument, "named style %d cannot format cells", s.index)
	}
	return nil
}
