package xlgrid

// CellType is the kind of value a cell holds.
type CellType int

const (
	CellBlank CellType = iota
	CellNumeric
	CellString
	CellBoolean
	CellError
	CellFormula
)

var cellTypeNames = [...]string{"blank", "numeric", "string", "boolean", "error", "formula"}

func (t CellType) String() string {
	if t < 0 || int(t) >= len(cellTypeNames) {
		return "unknown"
	}
	return cellTypeNames[t]
}

// cellValue is the format-neutral content of a cell. Formula cells carry
// their last result in the value fields selected by Cached. Members of an
// array formula and dependents of a shared formula keep Formula empty; the
// sheet resolves their text.
type cellValue struct {
	Type    CellType
	Num     float64
	Str     string
	Bool    bool
	Err     string
	Formula string
	Cached  CellType
}

// rowAttrs are the row record attributes the grid edits.
type rowAttrs struct {
	// Height in twips, -1 for the sheet default.
	Height       int
	Hidden       bool
	Collapsed    bool
	OutlineLevel int
	// Style is the row format, -1 when the row uses default formatting.
	Style int
}

func defaultRowAttrs() rowAttrs {
	return rowAttrs{Height: -1, Style: -1}
}

// sheetStore is the low-level row collection of one sheet: a sorted record
// list for BIFF8, a sorted row element list for OOXML. Both keep their rows
// in ascending index order at all times.
type sheetStore interface {
	// insertRow creates an empty row record at idx, replacing any record
	// with that index.
	insertRow(idx int) rowStore
	// deleteRow drops the record of row idx.
	deleteRow(idx int)
	// moveRow re-keys r to index to; the slot must be free.
	moveRow(r rowStore, to int)
	// rowCount is the number of row records.
	rowCount() int
	// rows lists the row records in ascending order.
	rows() []rowStore
}

// rowStore is one row record and its cell records.
type rowStore interface {
	index() int
	attrs() rowAttrs
	setAttrs(rowAttrs)
	// insertCell creates an empty cell record at col, replacing any record
	// in that column.
	insertCell(col int) cellStore
	deleteCell(col int)
	cellCount() int
	// cells lists the cell records in ascending column order.
	cells() []cellStore
}

// cellStore is one cell record.
type cellStore interface {
	column() int
	value() cellValue
	setValue(cellValue)
	style() int
	setStyle(int)
}

// styleStore is the table of cell formats. Indices are stable; the table
// only grows.
type styleStore interface {
	len() int
	get(i int) cellFormat
	// set replaces record i, enforcing the format's encoding rules.
	set(i int, f cellFormat) error
	add(f cellFormat) (int, error)
}
