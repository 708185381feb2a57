package xlgrid

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/cellref"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/models"
)

var visibilityNames = map[Visibility]string{
	SheetVisible:    "visible",
	SheetHidden:     "hidden",
	SheetVeryHidden: "very_hidden",
}

// Snapshot returns the content of the workbook as JSON-ready data. Cells
// hold their value or cached formula result; blank cells are left out.
func (wb *Workbook) Snapshot(bookName string) *models.WorkbookData {
	out := &models.WorkbookData{
		BookName:    bookName,
		Format:      wb.format.String(),
		Date1904:    wb.date1904,
		ActiveSheet: wb.active,
		Sheets:      make([]models.SheetData, 0, len(wb.sheets)),
	}
	for i, sh := range wb.sheets {
		data := sh.snapshot()
		if area := wb.PrintArea(i); area != "" {
			data.PrintAreas = parsePrintAreas(area)
		}
		out.Sheets = append(out.Sheets, data)
	}
	for _, n := range wb.names {
		dn := models.DefinedName{Name: n.Name, RefersTo: n.RefersTo, Hidden: n.Hidden}
		if sh := wb.SheetAt(n.Sheet); sh != nil {
			dn.Sheet = sh.name
		}
		out.Names = append(out.Names, dn)
	}
	props := map[string]string{
		"title":            wb.props.Title,
		"subject":          wb.props.Subject,
		"author":           wb.props.Author,
		"keywords":         wb.props.Keywords,
		"description":      wb.props.Description,
		"last_modified_by": wb.props.LastModifiedBy,
		"category":         wb.props.Category,
	}
	for k, v := range props {
		if v == "" {
			delete(props, k)
		}
	}
	if len(props) > 0 {
		out.Properties = props
	}
	return out
}

func (sh *Sheet) snapshot() models.SheetData {
	data := models.SheetData{Name: sh.name, Visibility: visibilityNames[sh.visibility], Protected: sh.protected}
	links := map[int]map[string]string{}
	for _, l := range sh.links {
		target := l.URL
		if target == "" {
			target = "#" + l.Location
		}
		if links[l.Range.FirstRow] == nil {
			links[l.Range.FirstRow] = map[string]string{}
		}
		links[l.Range.FirstRow][strconv.Itoa(l.Range.FirstCol+1)] = target
	}
	for _, r := range sh.rows {
		row := models.CellRow{R: r.RowNum() + 1, C: map[string]any{}, Hidden: r.ZeroHeight(), OutlineLevel: r.OutlineLevel()}
		if h := r.Height(); h >= 0 {
			row.Height = float64(h) / 20
		}
		for _, c := range r.cells {
			key := strconv.Itoa(c.ColumnIndex() + 1)
			if v := jsonValue(c.valueOf()); v != nil {
				row.C[key] = v
			}
			if f := c.Formula(); f != "" {
				if row.Formulas == nil {
					row.Formulas = map[string]string{}
				}
				row.Formulas[key] = f
			}
		}
		row.Links = links[r.RowNum()]
		delete(links, r.RowNum())
		if len(row.C) > 0 || len(row.Formulas) > 0 || len(row.Links) > 0 {
			data.Rows = append(data.Rows, row)
		}
	}
	// links on rows that hold no cells
	for r, l := range links {
		data.Rows = append(data.Rows, models.CellRow{R: r + 1, C: map[string]any{}, Links: l})
	}
	slices.SortFunc(data.Rows, func(a, b models.CellRow) int { return a.R - b.R })
	for _, c := range sh.columns() {
		ci := sh.col(c)
		col := models.Column{C: c + 1, Hidden: ci.Hidden, OutlineLevel: ci.OutlineLevel}
		if ci.Width >= 0 {
			col.Width = float64(ci.Width) / 256
		}
		data.Columns = append(data.Columns, col)
	}
	for _, rng := range sh.MergedRegions() {
		data.MergedRegions = append(data.MergedRegions, rng.String())
	}
	for _, rng := range sh.ArrayFormulas() {
		data.ArrayFormulas = append(data.ArrayFormulas, rng.String())
	}
	if sh.freezeRow > 0 || sh.freezeCol > 0 {
		data.Freeze = cellref.CellRef{Row: sh.freezeRow, Col: sh.freezeCol}.String()
	}
	for _, cm := range sh.comments {
		if data.Comments == nil {
			data.Comments = map[string]string{}
		}
		data.Comments[cellref.CellRef{Row: cm.Row, Col: cm.Col}.String()] = cm.Text
	}
	return data
}

// jsonValue returns integers as int64 so that they print without exponent.
func jsonValue(v cellValue) any {
	switch v.Type {
	case CellNumeric:
		if v.Num == math.Trunc(v.Num) && math.Abs(v.Num) < 1<<53 {
			return int64(v.Num)
		}
		return v.Num
	case CellString:
		return v.Str
	case CellBoolean:
		return v.Bool
	case CellError:
		return v.Err
	}
	return nil
}

// parsePrintAreas reads the areas of a print area formula such as
// 'Sheet 1'!$A$1:$D$10,'Sheet 1'!$F$1:$G$4.
func parsePrintAreas(ref string) []models.PrintArea {
	var areas []models.PrintArea
	for _, part := range strings.Split(ref, ",") {
		part = strings.TrimSpace(part)
		if idx := strings.LastIndex(part, "!"); idx >= 0 {
			part = part[idx+1:]
		}
		rng, err := cellref.ParseRange(part)
		if err != nil {
			continue
		}
		areas = append(areas, models.PrintArea{
			R1: rng.FirstRow + 1,
			C1: rng.FirstCol + 1,
			R2: rng.LastRow + 1,
			C2: rng.LastCol + 1,
		})
	}
	return areas
}
