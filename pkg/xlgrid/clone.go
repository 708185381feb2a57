package xlgrid

import (
	"github.com/sirupsen/logrus"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/formula"
)

// CloneSheet appends a copy of the sheet at tab position i named like
// "Data (2)". Cells share the styles of the source; merged regions keep
// their handles; built-in names local to the source, such as the print
// area, are copied to the new sheet.
func (wb *Workbook) CloneSheet(i int) (*Sheet, error) {
	const op = "cloneSheet"
	src := wb.SheetAt(i)
	if src == nil {
		return nil, newOpError("", op, ErrNotFound, "sheet %d", i)
	}
	name := wb.cloneName(src.name)
	dst := wb.newSheet(name)

	if err := dst.copyFrom(src, func(slot int) int { return slot }); err != nil {
		return nil, err
	}
	wb.sheets = append(wb.sheets, dst)

	idx := len(wb.sheets) - 1
	for _, n := range wb.Names() {
		if n.Sheet != i || !n.IsBuiltin() {
			continue
		}
		refersTo, _, err := formula.RenameSheet(wb.parser, n.RefersTo, src.name, name)
		if err != nil {
			wb.log.WithFields(logrus.Fields{"sheet": name, "name": n.Name}).WithError(err).Warn("name not copied")
			continue
		}
		wb.names = append(wb.names, &DefinedName{Name: n.Name, RefersTo: refersTo, Sheet: idx, Hidden: n.Hidden, Comment: n.Comment})
	}
	wb.log.WithFields(logrus.Fields{"sheet": src.name, "clone": name}).Debug("sheet cloned")
	return dst, nil
}
