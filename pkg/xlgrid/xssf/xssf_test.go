package xssf

import (
	"encoding/xml"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func rowNums(d *SheetData) []int {
	var out []int
	for _, r := range d.Rows {
		out = append(out, r.R)
	}
	return out
}

func TestSheetDataInsertKeepsOrder(t *testing.T) {
	var d SheetData
	d.Insert(&Row{R: 3})
	d.Insert(&Row{R: 10})
	d.Insert(&Row{R: 1})
	d.Insert(&Row{R: 5})
	assert.Equal(t, []int{1, 3, 5, 10}, rowNums(&d))

	replacement := &Row{R: 5, Hidden: true}
	d.Insert(replacement)
	assert.Equal(t, []int{1, 3, 5, 10}, rowNums(&d))
	assert.Same(t, replacement, d.Row(5))

	d.Remove(3)
	d.Remove(42)
	assert.Equal(t, []int{1, 5, 10}, rowNums(&d))
	assert.Nil(t, d.Row(3))
}

func TestRowCells(t *testing.T) {
	row := &Row{R: 4}
	row.InsertCell(NewCell(2))
	row.InsertCell(NewCell(0))
	row.InsertCell(NewCell(5))
	require.Len(t, row.C, 3)
	assert.Equal(t, "A4", row.C[0].R)
	assert.Equal(t, "C4", row.C[1].R)
	assert.Equal(t, "F4", row.C[2].R)

	row.MoveCell(row.Cell(0), 7)
	assert.Nil(t, row.Cell(0))
	assert.Equal(t, "H4", row.Cell(7).R)

	row.R = 9
	row.Renumber()
	assert.Equal(t, "C9", row.Cell(2).R)

	row.RemoveCell(2)
	assert.Nil(t, row.Cell(2))
	assert.Len(t, row.C, 2)
}

func TestParseWorksheet(t *testing.T) {
	doc := `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"
 xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheetPr><outlinePr summaryBelow="0"/></sheetPr>
<sheetFormatPr defaultRowHeight="15" outlineLevelRow="2"/>
<cols><col min="2" max="3" width="20.5" customWidth="1" hidden="1"/></cols>
<sheetData>
<row r="1"><c r="A1"><f t="shared" ref="A1:A3" si="0">B1*2</f><v>4</v></c></row>
<row r="2"><c r="B2" t="s"><v>0</v></c><c r="A2"><v>1.5</v></c></row>
<row><c><v>7</v></c><c t="inlineStr"><is><r><t>ab</t></r><r><t>c</t></r></is></c></row>
</sheetData>
<sheetProtection sheet="1"/>
<mergeCells count="1"><mergeCell ref="A5:B6"/></mergeCells>
<hyperlinks><hyperlink ref="B2" r:id="rId1"/></hyperlinks>
<rowBreaks count="1"><brk id="4" man="1"/></rowBreaks>
</worksheet>`
	ws, err := ParseWorksheet([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, rowNums(&ws.SheetData))
	row2 := ws.SheetData.Row(2)
	require.NotNil(t, row2)
	assert.Equal(t, 0, row2.C[0].Col())
	assert.Equal(t, "1.5", row2.C[0].V)
	assert.Equal(t, TypeSharedString, row2.C[1].T)

	f := ws.SheetData.Row(1).Cell(0).F
	require.NotNil(t, f)
	assert.Equal(t, FormulaShared, f.T)
	assert.Equal(t, "A1:A3", f.Ref)
	require.NotNil(t, f.Si)
	assert.Equal(t, 0, *f.Si)
	assert.Equal(t, "B1*2", f.Content)

	row3 := ws.SheetData.Row(3)
	require.Len(t, row3.C, 2)
	assert.Equal(t, "B3", row3.C[1].R)
	assert.Equal(t, "abc", row3.C[1].IS.Text())

	require.NotNil(t, ws.SheetPr.OutlinePr.SummaryBelow)
	assert.False(t, *ws.SheetPr.OutlinePr.SummaryBelow)
	assert.Equal(t, uint8(2), ws.SheetFormatPr.OutlineLevelRow)
	assert.Equal(t, 20.5, ws.Cols.Col[0].Width)
	assert.True(t, ws.SheetProtection.Sheet)
	assert.Equal(t, "A5:B6", ws.MergeCells.Cells[0].Ref)
	assert.Equal(t, "rId1", ws.Hyperlinks.Links[0].RID)
	assert.Equal(t, 4, ws.RowBreaks.Brk[0].ID)
}

func TestSheetDataMarshal(t *testing.T) {
	var d SheetData
	row := &Row{R: 1}
	d.Insert(row)
	c := NewCell(1)
	c.T, c.V = TypeBool, "1"
	row.InsertCell(c)

	out, err := xml.Marshal(&d)
	require.NoError(t, err)
	assert.Equal(t, `<sheetData><row r="1"><c r="B1" t="b"><v>1</v></c></row></sheetData>`, string(out))
}

func TestReadPackage(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellStr("Sheet1", "A1", "hello"))
	require.NoError(t, f.SetCellInt("Sheet1", "B3", 42))
	_, err := f.NewSheet("Data")
	require.NoError(t, err)
	require.NoError(t, f.SetCellStr("Data", "C2", "world"))
	require.NoError(t, f.SetCellFormula("Data", "D2", "LEN(C2)"))
	require.NoError(t, f.SetCellHyperLink("Data", "C2", "https://example.com", "External"))
	require.NoError(t, f.SetSheetVisible("Data", false))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	pkg, err := ReadPackage(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, pkg.Sheets, 2)
	assert.Equal(t, "Sheet1", pkg.Sheets[0].Name)
	assert.Equal(t, "Data", pkg.Sheets[1].Name)
	assert.Equal(t, "hidden", pkg.Sheets[1].State)
	assert.ElementsMatch(t, []string{"hello", "world"}, pkg.SharedStrings)

	a1 := pkg.Sheets[0].Worksheet.SheetData.Row(1).Cell(0)
	require.NotNil(t, a1)
	assert.Equal(t, TypeSharedString, a1.T)
	idx, err := strconv.Atoi(a1.V)
	require.NoError(t, err)
	assert.Equal(t, "hello", pkg.SharedStrings[idx])

	data := pkg.Sheets[1]
	d2 := data.Worksheet.SheetData.Row(2).Cell(3)
	require.NotNil(t, d2)
	require.NotNil(t, d2.F)
	assert.Equal(t, "LEN(C2)", d2.F.Content)
	require.NotNil(t, data.Worksheet.Hyperlinks)
	link := data.Worksheet.Hyperlinks.Links[0]
	assert.Equal(t, "C2", link.Ref)
	assert.Equal(t, "https://example.com", data.Links[link.RID])
}

func TestReadPackageRejectsNonZip(t *testing.T) {
	_, err := ReadPackage([]byte("not a zip"))
	assert.Error(t, err)
}
