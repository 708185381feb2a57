package biff

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/formula"
)

func TestSSTRoundTripAcrossContinue(t *testing.T) {
	strs := []string{
		"short",
		strings.Repeat("x", 10000),
		strings.Repeat("日本語", 3000),
		"",
		"tail",
	}
	w := NewWriter()
	defer w.Release()
	w.WriteChunks(SidSST, EncodeSST(strs, 7))

	r := NewReader(w.Bytes())
	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, SidSST, rec.Sid)
	assert.NotEmpty(t, rec.Continues)

	got, err := DecodeSST(rec)
	require.NoError(t, err)
	assert.Equal(t, strs, got)
}

func TestWriterSplitsLongRecords(t *testing.T) {
	w := NewWriter()
	defer w.Release()
	w.Write(SidName, make([]byte, MaxRecordData+10))

	r := NewReader(w.Bytes())
	rec, err := r.Next()
	require.NoError(t, err)
	assert.Len(t, rec.Data, MaxRecordData)
	require.Len(t, rec.Continues, 1)
	assert.Len(t, rec.Joined(), MaxRecordData+10)
}

func testContext() *FormulaContext {
	sheets := []string{"Sheet1", "Sheet2", "My Data"}
	names := []string{"Rate"}
	return &FormulaContext{
		SheetName: func(i int) (string, bool) {
			if i < 0 || i >= len(sheets) {
				return "", false
			}
			return sheets[i], true
		},
		SheetIndex: func(name string) (int, bool) {
			for i, s := range sheets {
				if strings.EqualFold(s, name) {
					return i, true
				}
			}
			return 0, false
		},
		NameText: func(i int) (string, bool) {
			if i < 1 || i > len(names) {
				return "", false
			}
			return names[i-1], true
		},
		NameIndex: func(name string) (int, bool) {
			for i, n := range names {
				if strings.EqualFold(n, name) {
					return i + 1, true
				}
			}
			return 0, false
		},
	}
}

func TestFormulaRoundTrip(t *testing.T) {
	formulas := []string{
		"SUM(A1:B2)*2",
		`IF(A1>0,"yes","no")`,
		"Sheet2!$A$1+1",
		"'My Data'!B3:C$4",
		"-A1^2",
		"(A1+B1)/2",
		"SUM(A:A)",
		"SUM($2:$3)",
		"ROUND(1.5,0)",
		"50%",
		"Rate*A1",
		"Sheet2!#REF!+1",
		"#DIV/0!",
		`"日本"&A1`,
		"TRUE<>FALSE",
		"VLOOKUP(A1,Sheet2!A1:B10,2,FALSE)",
		"NOW()",
		"SUM({1,2;3,4})",
		`{1,-2.5;"a",TRUE}`,
		`INDEX({"x","y"},2)`,
		"{#N/A,FALSE}",
	}
	ctx := testContext()
	for _, f := range formulas {
		rgce, extra, err := EncodeFormula(f, ctx)
		require.NoError(t, err, f)
		got, err := DecodeFormula(rgce, extra, ctx)
		require.NoError(t, err, f)
		assert.Equal(t, f, got)
	}
}

func TestEncodeFormulaErrors(t *testing.T) {
	ctx := testContext()
	_, _, err := EncodeFormula("{1,2;3}", ctx)
	assert.ErrorIs(t, err, formula.ErrSyntax)

	_, _, err = EncodeFormula("{A1,2}", ctx)
	assert.ErrorIs(t, err, ErrUnsupportedFormula)

	_, _, err = EncodeFormula("NoSuchSheet!A1", ctx)
	assert.ErrorIs(t, err, ErrUnsupportedFormula)

	_, _, err = EncodeFormula("A70000", ctx)
	assert.ErrorIs(t, err, ErrUnsupportedFormula)

	_, _, err = EncodeFormula("MADEUPFN(1)", ctx)
	assert.ErrorIs(t, err, ErrUnsupportedFormula)

	rgce, extra, err := EncodeFormula("Unknown+1", ctx)
	require.NoError(t, err)
	assert.Empty(t, extra)
	got, err := DecodeFormula(rgce, extra, ctx)
	require.NoError(t, err)
	assert.Equal(t, "#NAME?+1", got)
}

func TestDecodeSharedFormulaRelative(t *testing.T) {
	// tRefN with row offset -1 and column offset 0, both relative
	rgce := []byte{0x4C, 0xFF, 0xFF, 0x00, 0xC0}
	got, err := DecodeFormula(rgce, nil, &FormulaContext{Row: 4, Col: 2})
	require.NoError(t, err)
	assert.Equal(t, "C4", got)
}

func TestArrayConstantLayout(t *testing.T) {
	rgce, extra, err := EncodeFormula(`{1;"ab"}`, testContext())
	require.NoError(t, err)
	// tArray followed by seven reserved bytes
	require.Len(t, rgce, 8)
	assert.Equal(t, byte(0x40), rgce[0])

	want := []byte{0x00, 0x01, 0x00, 0x01}
	want = append(want, 0, 0, 0, 0, 0, 0, 0xF0, 0x3F)
	want = append(want, 0x02, 0x02, 0x00, 0x00, 'a', 'b')
	assert.Equal(t, want, extra)

	_, err = DecodeFormula(rgce, extra[:5], testContext())
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestExpReference(t *testing.T) {
	row, col, ok := ExpReference([]byte{0x01, 0x02, 0x00, 0x03, 0x00})
	require.True(t, ok)
	assert.Equal(t, 2, row)
	assert.Equal(t, 3, col)

	_, _, ok = ExpReference([]byte{0x1E, 0x01, 0x00})
	assert.False(t, ok)
}

func TestDecodeRK(t *testing.T) {
	assert.Equal(t, 123.0, decodeRK(123<<2|0x02))
	assert.InDelta(t, 123.45, decodeRK(12345<<2|0x03), 1e-9)
	neg := int32(-5)
	assert.Equal(t, -5.0, decodeRK(uint32(neg<<2)|0x02))
}

func sampleBook() *Book {
	sh := NewSheet("Sheet1")
	sh.Selected = true
	sh.Rows = []*Row{
		{Index: 0, Height: 255, Cells: []*Cell{
			{Col: 0, XF: 15, Kind: CellNumber, Num: 1.5},
			{Col: 1, XF: 15, Kind: CellString, SST: 0},
			{Col: 2, XF: 15, Kind: CellBool, Bool: true},
		}},
		{Index: 2, Height: 400, CustomHeight: true, OutlineLevel: 1, Cells: []*Cell{
			{Col: 0, XF: 15, Kind: CellFormula, Formula: "SUM(A1:A2)", Cached: CellNumber, Num: 3},
			{Col: 1, XF: 15, Kind: CellFormula, Formula: "Sheet2!A1", Cached: CellString, CachedText: "x"},
			{Col: 2, XF: 15, Kind: CellError, Err: 0x07},
		}},
		{Index: 4, Height: 255, Cells: []*Cell{
			{Col: 0, XF: 15, Kind: CellFormula, Cached: CellNumber, Num: 2},
			{Col: 1, XF: 15, Kind: CellFormula, Cached: CellNumber, Num: 4},
		}},
		{Index: 5, Height: 255, Cells: []*Cell{
			{Col: 0, XF: 15, Kind: CellFormula, Cached: CellNumber},
			{Col: 1, XF: 15, Kind: CellFormula, Cached: CellNumber},
		}},
	}
	sh.Arrays = []ArrayFormula{{Area: Area{FirstRow: 4, LastRow: 5, FirstCol: 0, LastCol: 1}, Formula: "A1:B2*2"}}
	sh.Merged = []Area{{FirstRow: 0, LastRow: 0, FirstCol: 3, LastCol: 4}}
	sh.Links = []Hyperlink{{Area: Area{FirstRow: 0, LastRow: 0, FirstCol: 1, LastCol: 1}, URL: "https://example.com/"}}
	sh.Cols = []ColInfo{{First: 1, Last: 2, Width: 4000, XF: 15, OutlineLevel: 1, Hidden: true}}
	sh.FreezeRow = 1
	sh.RowBreaks = []uint16{10}

	other := NewSheet("Sheet2")
	other.Visibility = 1
	return &Book{
		Fonts:  []Font{{Height: 200, Weight: 400, Color: 0x7FFF, Name: "Arial"}},
		XFs:    []XF{{IsStyle: true, Parent: 0xFFF}},
		SST:    []string{"hello"},
		Sheets: []*Sheet{sh, other},
		Names: []Name{
			{Name: "Rate", Formula: "Sheet1!$A$1"},
			{Name: "Print_Area", Builtin: true, Sheet: 1, Formula: "Sheet1!$A$1:$C$3"},
		},
	}
}

func TestBookRoundTrip(t *testing.T) {
	stream, err := Encode(sampleBook())
	require.NoError(t, err)

	book, err := Decode(stream)
	require.NoError(t, err)
	require.Len(t, book.Sheets, 2)
	assert.Equal(t, []string{"hello"}, book.SST)
	assert.Equal(t, "Arial", book.Fonts[0].Name)

	sh := book.Sheets[0]
	assert.Equal(t, "Sheet1", sh.Name)
	assert.True(t, sh.Selected)
	require.Len(t, sh.Rows, 4)
	assert.Equal(t, []int{0, 2, 4, 5}, []int{sh.Rows[0].Index, sh.Rows[1].Index, sh.Rows[2].Index, sh.Rows[3].Index})

	r0 := sh.Rows[0]
	assert.Equal(t, 1.5, r0.Cells[0].Num)
	assert.Equal(t, CellString, r0.Cells[1].Kind)
	assert.True(t, r0.Cells[2].Bool)

	r2 := sh.Rows[1]
	assert.Equal(t, uint16(400), r2.Height)
	assert.True(t, r2.CustomHeight)
	assert.Equal(t, uint8(1), r2.OutlineLevel)
	assert.Equal(t, "SUM(A1:A2)", r2.Cells[0].Formula)
	assert.Equal(t, 3.0, r2.Cells[0].Num)
	assert.Equal(t, "Sheet2!A1", r2.Cells[1].Formula)
	assert.Equal(t, "x", r2.Cells[1].CachedText)
	assert.Equal(t, CellError, r2.Cells[2].Kind)
	assert.Equal(t, byte(0x07), r2.Cells[2].Err)

	require.Len(t, sh.Arrays, 1)
	assert.Equal(t, "A1:B2*2", sh.Arrays[0].Formula)
	assert.Equal(t, Area{FirstRow: 4, LastRow: 5, FirstCol: 0, LastCol: 1}, sh.Arrays[0].Area)
	assert.Empty(t, sh.Rows[2].Cells[0].Formula)
	assert.Equal(t, CellFormula, sh.Rows[3].Cells[1].Kind)

	assert.Equal(t, []Area{{FirstRow: 0, LastRow: 0, FirstCol: 3, LastCol: 4}}, sh.Merged)
	require.Len(t, sh.Links, 1)
	assert.Equal(t, "https://example.com/", sh.Links[0].URL)
	require.Len(t, sh.Cols, 1)
	assert.True(t, sh.Cols[0].Hidden)
	assert.Equal(t, uint8(1), sh.Cols[0].OutlineLevel)
	assert.Equal(t, uint16(1), sh.FreezeRow)
	assert.Equal(t, []uint16{10}, sh.RowBreaks)

	assert.Equal(t, uint8(1), book.Sheets[1].Visibility)

	require.Len(t, book.Names, 2)
	assert.Equal(t, "Sheet1!$A$1", book.Names[0].Formula)
	assert.Equal(t, "Print_Area", book.Names[1].Name)
	assert.True(t, book.Names[1].Builtin)
	assert.Equal(t, 1, book.Names[1].Sheet)
	assert.Equal(t, "Sheet1!$A$1:$C$3", book.Names[1].Formula)
}

func TestEncodeReportsCell(t *testing.T) {
	book := sampleBook()
	book.Sheets[0].Rows[1].Cells[0].Formula = "MADEUPFN(1)"
	_, err := Encode(book)
	var cellErr *EncodeError
	require.ErrorAs(t, err, &cellErr)
	assert.Equal(t, "Sheet1", cellErr.Sheet)
	assert.Equal(t, 2, cellErr.Row)
	assert.ErrorIs(t, err, ErrUnsupportedFormula)
}

func TestContainerRoundTrip(t *testing.T) {
	stream, err := Encode(sampleBook())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteContainer(&buf, stream))
	assert.Zero(t, buf.Len()%sectorSize)

	got, props, err := ReadContainer(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Empty(t, props)
	require.GreaterOrEqual(t, len(got), len(stream))
	assert.Equal(t, stream, got[:len(stream)])

	book, err := Decode(got)
	require.NoError(t, err)
	assert.Len(t, book.Sheets, 2)
}

func TestDecodeRejectsOldVersions(t *testing.T) {
	w := NewWriter()
	defer w.Release()
	b := &builder{}
	b.u16(0x0500)
	b.u16(bofGlobals)
	w.Write(SidBOF, b.b)
	_, err := Decode(w.Bytes())
	assert.ErrorIs(t, err, ErrVersion)
}
