package xlgrid

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/cellref"
)

// PrintSetup holds the page layout of a sheet. Margins are in inches.
type PrintSetup struct {
	PaperSize    int     `json:"paper_size" validate:"min=0,max=118"`
	Scale        int     `json:"scale" validate:"min=10,max=400"`
	FitWidth     int     `json:"fit_width" validate:"min=0,max=32767"`
	FitHeight    int     `json:"fit_height" validate:"min=0,max=32767"`
	FitToPage    bool    `json:"fit_to_page"`
	Landscape    bool    `json:"landscape"`
	LeftMargin   float64 `json:"left_margin" validate:"min=0,max=49"`
	RightMargin  float64 `json:"right_margin" validate:"min=0,max=49"`
	TopMargin    float64 `json:"top_margin" validate:"min=0,max=49"`
	BottomMargin float64 `json:"bottom_margin" validate:"min=0,max=49"`
	HeaderMargin float64 `json:"header_margin" validate:"min=0,max=49"`
	FooterMargin float64 `json:"footer_margin" validate:"min=0,max=49"`
}

func defaultPrintSetup() *PrintSetup {
	return &PrintSetup{
		PaperSize:    1,
		Scale:        100,
		FitWidth:     1,
		FitHeight:    1,
		LeftMargin:   0.75,
		RightMargin:  0.75,
		TopMargin:    1,
		BottomMargin: 1,
		HeaderMargin: 0.5,
		FooterMargin: 0.5,
	}
}

// PrintSetup returns a copy of the page layout.
func (sh *Sheet) PrintSetup() PrintSetup { return *sh.setup }

// SetPrintSetup replaces the page layout after checking its ranges.
func (sh *Sheet) SetPrintSetup(ps PrintSetup) error {
	if err := validate.Struct(ps); err != nil {
		return &OperationError{Sheet: sh.name, Op: "setPrintSetup", Err: fmt.Errorf("%w: %v", ErrArgument, err)}
	}
	*sh.setup = ps
	return nil
}

// addBreak inserts at into the sorted break list.
func addBreak(list []int, at int) []int {
	p, ok := slices.BinarySearch(list, at)
	if ok {
		return list
	}
	return slices.Insert(list, p, at)
}

func removeBreak(list []int, at int) []int {
	if p, ok := slices.BinarySearch(list, at); ok {
		return slices.Delete(list, p, p+1)
	}
	return list
}

// SetRowBreak places a manual page break below row.
func (sh *Sheet) SetRowBreak(row int) error {
	if err := sh.checkRow("setRowBreak", row); err != nil {
		return err
	}
	sh.rowBreaks = addBreak(sh.rowBreaks, row)
	return nil
}

// RemoveRowBreak drops the page break below row.
func (sh *Sheet) RemoveRowBreak(row int) { sh.rowBreaks = removeBreak(sh.rowBreaks, row) }

// IsRowBroken reports whether a page break sits below row.
func (sh *Sheet) IsRowBroken(row int) bool {
	_, ok := slices.BinarySearch(sh.rowBreaks, row)
	return ok
}

// RowBreaks returns the rows followed by a page break, ascending.
func (sh *Sheet) RowBreaks() []int { return slices.Clone(sh.rowBreaks) }

// SetColumnBreak places a manual page break right of col.
func (sh *Sheet) SetColumnBreak(col int) error {
	if err := sh.checkColumn("setColumnBreak", col); err != nil {
		return err
	}
	sh.colBreaks = addBreak(sh.colBreaks, col)
	return nil
}

// RemoveColumnBreak drops the page break right of col.
func (sh *Sheet) RemoveColumnBreak(col int) { sh.colBreaks = removeBreak(sh.colBreaks, col) }

// IsColumnBroken reports whether a page break sits right of col.
func (sh *Sheet) IsColumnBroken(col int) bool {
	_, ok := slices.BinarySearch(sh.colBreaks, col)
	return ok
}

// ColumnBreaks returns the columns followed by a page break, ascending.
func (sh *Sheet) ColumnBreaks() []int { return slices.Clone(sh.colBreaks) }

// CreateFreezePane freezes the first cols columns and rows rows. Zero for
// both removes the pane.
func (sh *Sheet) CreateFreezePane(cols, rows int) error {
	if cols < 0 || rows < 0 || (cols > 0 && sh.checkColumn("createFreezePane", cols-1) != nil) || (rows > 0 && sh.checkRow("createFreezePane", rows-1) != nil) {
		return newOpError(sh.name, "createFreezePane", ErrArgument, "split %d columns, %d rows", cols, rows)
	}
	sh.freezeCol, sh.freezeRow = cols, rows
	return nil
}

// FreezePane returns the number of frozen columns and rows.
func (sh *Sheet) FreezePane() (cols, rows int) { return sh.freezeCol, sh.freezeRow }

// Protect enables sheet protection; an empty password protects without one.
func (sh *Sheet) Protect(password string) {
	sh.protected = true
	sh.password = password
	sh.passwordHash = 0
	if password != "" {
		sh.passwordHash = passwordVerifier(password)
	}
}

// Unprotect removes sheet protection.
func (sh *Sheet) Unprotect() {
	sh.protected, sh.password, sh.passwordHash = false, "", 0
}

// IsProtected reports whether the sheet is protected.
func (sh *Sheet) IsProtected() bool { return sh.protected }

// PasswordHash returns the 16-bit verifier of the protection password, 0
// when there is none.
func (sh *Sheet) PasswordHash() uint16 { return sh.passwordHash }

// passwordVerifier computes the legacy XOR verifier both formats store for
// sheet protection passwords.
func passwordVerifier(password string) uint16 {
	b := []byte(password)
	rotate := func(v uint16) uint16 { return ((v >> 14) & 1) | ((v << 1) & 0x7FFF) }
	var v uint16
	for i := len(b) - 1; i >= 0; i-- {
		v = rotate(v) ^ uint16(b[i])
	}
	return rotate(v) ^ uint16(len(b)) ^ 0xCE4B
}

// Hyperlink links a range of cells to a URL or to a location inside the
// workbook such as "Sheet2!A1".
type Hyperlink struct {
	Range    cellref.Range
	URL      string
	Location string
}

// SetHyperlink anchors a link at (row, col), replacing a link there. target
// is a URL, or a location when it starts with '#'.
func (sh *Sheet) SetHyperlink(row, col int, target string) (*Hyperlink, error) {
	const op = "setHyperlink"
	if err := sh.checkRow(op, row); err != nil {
		return nil, err
	}
	if err := sh.checkColumn(op, col); err != nil {
		return nil, err
	}
	if strings.TrimSpace(target) == "" {
		return nil, newOpError(sh.name, op, ErrArgument, "empty hyperlink target")
	}
	sh.RemoveHyperlink(row, col)
	link := &Hyperlink{Range: cellref.NewRange(row, row, col, col)}
	if loc, ok := strings.CutPrefix(target, "#"); ok {
		link.Location = loc
	} else {
		link.URL = target
	}
	sh.links = append(sh.links, link)
	return link, nil
}

// Hyperlink returns the link whose range starts at (row, col), or nil.
func (sh *Sheet) Hyperlink(row, col int) *Hyperlink {
	for _, l := range sh.links {
		if l.Range.FirstRow == row && l.Range.FirstCol == col {
			return l
		}
	}
	return nil
}

// Hyperlinks returns the links of the sheet.
func (sh *Sheet) Hyperlinks() []*Hyperlink {
	return slices.Clone(sh.links)
}

// RemoveHyperlink drops the link anchored at (row, col).
func (sh *Sheet) RemoveHyperlink(row, col int) {
	sh.links = slices.DeleteFunc(sh.links, func(l *Hyperlink) bool {
		return l.Range.FirstRow == row && l.Range.FirstCol == col
	})
}

// Comment is a note attached to one cell.
type Comment struct {
	Row    int
	Col    int
	Author string
	Text   string
}

// SetComment attaches a note to (row, col), replacing one there. BIFF8
// workbooks fail with ErrUnsupported since notes live in drawing records.
func (sh *Sheet) SetComment(row, col int, author, text string) (*Comment, error) {
	const op = "setComment"
	if sh.wb.format == FormatBIFF8 {
		return nil, newOpError(sh.name, op, ErrUnsupported, "comments need drawing records")
	}
	if err := sh.checkRow(op, row); err != nil {
		return nil, err
	}
	if err := sh.checkColumn(op, col); err != nil {
		return nil, err
	}
	sh.RemoveComment(row, col)
	cm := &Comment{Row: row, Col: col, Author: author, Text: text}
	sh.comments = append(sh.comments, cm)
	return cm, nil
}

// Comment returns the note at (row, col), or nil.
func (sh *Sheet) Comment(row, col int) *Comment {
	for _, cm := range sh.comments {
		if cm.Row == row && cm.Col == col {
			return cm
		}
	}
	return nil
}

// Comments returns the notes of the sheet.
func (sh *Sheet) Comments() []*Comment { return slices.Clone(sh.comments) }

// RemoveComment drops the note at (row, col).
func (sh *Sheet) RemoveComment(row, col int) {
	sh.comments = slices.DeleteFunc(sh.comments, func(cm *Comment) bool {
		return cm.Row == row && cm.Col == col
	})
}
