package xlgrid

import (
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/tiendc/go-deepcopy"
)

// ConvertTo returns a copy of the workbook in another format. Cell formats
// are copied slot by slot, fonts and number formats deduplicated in the
// target. It fails with ErrArgument when a sheet uses rows or columns the
// target format cannot address.
func (wb *Workbook) ConvertTo(format Format) (*Workbook, error) {
	const op = "convert"
	out, err := NewWorkbook(format, wb.opts)
	if err != nil {
		return nil, err
	}
	out.log = wb.log
	out.date1904 = wb.date1904
	out.props = wb.props
	out.styles.palette.custom = slices.Clone(wb.styles.palette.custom)

	slots, err := out.importStyles(wb)
	if err != nil {
		return nil, err
	}
	style := func(i int) int {
		if i < 0 || i >= len(slots) {
			return out.styles.defaultStyle
		}
		return slots[i]
	}
	for _, src := range wb.sheets {
		if src.LastRowNum() > out.version.LastRowIndex() {
			return nil, newOpError(src.name, op, ErrArgument, "row %d is beyond the %s limit", src.LastRowNum(), out.version.Name)
		}
		dst := out.newSheet(src.name)
		if err := dst.copyFrom(src, style); err != nil {
			return nil, err
		}
		out.sheets = append(out.sheets, dst)
	}
	for _, n := range wb.names {
		cp := *n
		out.names = append(out.names, &cp)
	}
	out.active = wb.active
	wb.log.WithFields(logrus.Fields{"from": wb.format, "to": format, "sheets": len(out.sheets)}).Debug("workbook converted")
	return out, nil
}

// importStyles copies every cell format of src and returns the target slot
// of each source slot. Named styles collapse onto the default format.
func (wb *Workbook) importStyles(src *Workbook) ([]int, error) {
	slots := make([]int, src.styles.store.len())
	for i := range slots {
		f := src.styles.store.get(i)
		switch {
		case f.IsStyle:
			slots[i] = wb.styles.defaultStyle
			continue
		case i == src.styles.defaultStyle:
			if err := wb.DefaultCellStyle().CloneStyleFrom(&CellStyle{wb: src, index: i}); err != nil {
				return nil, err
			}
			slots[i] = wb.styles.defaultStyle
			continue
		}
		dst, err := wb.CreateCellStyle()
		if err != nil {
			return nil, err
		}
		if err := dst.CloneStyleFrom(&CellStyle{wb: src, index: i}); err != nil {
			return nil, err
		}
		slots[i] = dst.index
	}
	return slots, nil
}

// copyFrom fills an empty sheet with the rows, cells and sheet-level
// structures of src. style maps the style slots of src to slots of the
// receiving workbook.
func (sh *Sheet) copyFrom(src *Sheet, style func(int) int) error {
	const op = "copySheet"
	for _, r := range src.rows {
		if err := sh.checkRow(op, r.RowNum()); err != nil {
			return err
		}
		nr := sh.attachRow(sh.store.insertRow(r.RowNum()))
		attrs := r.store.attrs()
		if attrs.Style >= 0 {
			attrs.Style = style(attrs.Style)
		}
		nr.store.setAttrs(attrs)
		for _, c := range r.cells {
			if err := sh.checkColumn(op, c.ColumnIndex()); err != nil {
				return err
			}
			cs := nr.store.insertCell(c.ColumnIndex())
			cs.setValue(c.store.value())
			cs.setStyle(style(c.store.style()))
			nr.attachCell(cs)
		}
	}

	sh.visibility = src.visibility
	sh.merged = src.merged.clone()
	sh.rowBreaks = slices.Clone(src.rowBreaks)
	sh.colBreaks = slices.Clone(src.colBreaks)
	sh.freezeRow, sh.freezeCol = src.freezeRow, src.freezeCol
	sh.protected, sh.password, sh.passwordHash = src.protected, src.password, src.passwordHash
	sh.defaultRowHeight, sh.defaultColWidth = src.defaultRowHeight, src.defaultColWidth
	sh.rowSumsBelow, sh.colSumsRight = src.rowSumsBelow, src.colSumsRight
	if hs, ok := sh.store.(*hssfSheet); ok {
		hs.sh.DefaultRowHeight = uint16(src.defaultRowHeight)
	}
	for _, copyPair := range []struct{ dst, src any }{
		{&sh.cols, &src.cols},
		{&sh.arrays, &src.arrays},
		{&sh.shared, &src.shared},
		{&sh.links, &src.links},
		{&sh.comments, &src.comments},
		{sh.setup, src.setup},
	} {
		if err := deepcopy.Copy(copyPair.dst, copyPair.src); err != nil {
			return &OperationError{Sheet: src.name, Op: op, Err: err}
		}
	}
	if sh.cols == nil {
		sh.cols = map[int]*colInfo{}
	}
	for _, ci := range sh.cols {
		if ci.Style >= 0 {
			ci.Style = style(ci.Style)
		}
	}
	if sh.wb.format == FormatBIFF8 && len(sh.comments) > 0 {
		sh.wb.log.WithFields(logrus.Fields{"sheet": sh.name, "comments": len(sh.comments)}).Warn("cell notes dropped, BIFF8 stores them as drawings")
		sh.comments = nil
	}
	return nil
}
