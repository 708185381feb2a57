package xlgrid

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/biff"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/cellref"
)

// roundTrip writes wb and reads it back.
func roundTrip(t *testing.T, wb *Workbook) *Workbook {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))
	logger, _ := test.NewNullLogger()
	opts := DefaultOptions()
	opts.Logger = logger
	out, err := OpenReader(&buf, opts)
	require.NoError(t, err)
	return out
}

// buildSample fills a workbook with one of each kind of content both
// formats store.
func buildSample(t *testing.T, format Format) *Workbook {
	t.Helper()
	wb, _ := newTestWorkbook(t, format)
	sh := wb.SheetAt(0)

	title := setCell(t, sh, 0, 0, "Quarterly")
	setCell(t, sh, 0, 1, 3.5)
	setCell(t, sh, 0, 2, true)
	f := setCell(t, sh, 0, 3, nil)
	require.NoError(t, f.SetFormula("B1*2"))
	require.NoError(t, f.SetCachedFormulaResult(7.0))
	setCell(t, sh, 1, 0, "Quarterly")
	require.NoError(t, sh.Row(0).SetHeight(400))
	require.NoError(t, sh.SetColumnWidth(1, 4000))

	font := wb.CreateFont()
	font.SetBold(true)
	style, err := wb.CreateCellStyle()
	require.NoError(t, err)
	require.NoError(t, style.SetFont(font))
	require.NoError(t, style.SetRotation(-45))
	require.NoError(t, style.SetFill(Fill{Pattern: FillSolid, Foreground: 10, Background: ColorAutomatic}))
	require.NoError(t, title.SetStyle(style))

	_, err = sh.AddMergedRegion(cellref.MustRange("A3:B3"))
	require.NoError(t, err)
	cells, err := sh.SetArrayFormula("A5:A6*2", cellref.MustRange("E1:E2"))
	require.NoError(t, err)
	require.NoError(t, cells[0].SetCachedFormulaResult(0.0))
	_, err = wb.CreateName("Rate", "Sheet1!$B$1", ScopeWorkbook)
	require.NoError(t, err)
	require.NoError(t, wb.SetPrintArea(0, cellref.MustRange("A1:E6")))
	require.NoError(t, sh.CreateFreezePane(0, 1))
	require.NoError(t, sh.SetRowBreak(9))
	_, err = sh.SetHyperlink(5, 0, "https://example.com/")
	require.NoError(t, err)

	hidden, err := wb.CreateSheet("Hidden")
	require.NoError(t, err)
	require.NoError(t, hidden.SetVisibility(SheetHidden))
	setCell(t, hidden, 0, 0, 1)
	wb.Properties().Title = "Sample"
	return wb
}

func TestRoundTrip(t *testing.T) {
	for _, format := range bothFormats {
		t.Run(format.String(), func(t *testing.T) {
			wb := roundTrip(t, buildSample(t, format))
			assert.Equal(t, format, wb.Format())
			require.Equal(t, 2, wb.NumSheets())
			sh := wb.SheetAt(0)
			assert.Equal(t, "Sheet1", sh.Name())

			assert.Equal(t, "Quarterly", sh.Cell(0, 0).StringValue())
			assert.Equal(t, 3.5, sh.Cell(0, 1).NumericValue())
			assert.True(t, sh.Cell(0, 2).BoolValue())
			assert.Equal(t, "B1*2", sh.Cell(0, 3).Formula())
			assert.Equal(t, 7.0, sh.Cell(0, 3).NumericValue())
			assert.Equal(t, "Quarterly", sh.Cell(1, 0).StringValue())
			assert.Equal(t, 400, sh.Row(0).Height())
			assert.Equal(t, 4000, sh.ColumnWidth(1))

			style := sh.Cell(0, 0).Style()
			assert.True(t, style.Font().Bold())
			assert.Equal(t, -45, style.Rotation())
			assert.Equal(t, FillSolid, style.Fill().Pattern)
			assert.Equal(t, 10, style.Fill().Foreground)
			assert.False(t, sh.Cell(0, 1).Style().Font().Bold())

			assert.Equal(t, []cellref.Range{cellref.MustRange("A3:B3")}, sh.MergedRegions())
			assert.Equal(t, []cellref.Range{cellref.MustRange("E1:E2")}, sh.ArrayFormulas())
			assert.Equal(t, "A5:A6*2", sh.Cell(1, 4).Formula())
			assert.True(t, sh.Cell(1, 4).IsPartOfArrayFormulaGroup())

			require.NotNil(t, wb.Name("Rate", ScopeWorkbook))
			assert.Equal(t, "Sheet1!$B$1", wb.Name("Rate", ScopeWorkbook).RefersTo)
			assert.Equal(t, "Sheet1!$A$1:$E$6", wb.PrintArea(0))
			cols, rows := sh.FreezePane()
			assert.Equal(t, 0, cols)
			assert.Equal(t, 1, rows)
			assert.Equal(t, []int{9}, sh.RowBreaks())
			require.NotNil(t, sh.Hyperlink(5, 0))
			assert.Equal(t, "https://example.com/", sh.Hyperlink(5, 0).URL)

			assert.Equal(t, SheetHidden, wb.SheetAt(1).Visibility())
			assert.Equal(t, 1.0, wb.SheetAt(1).Cell(0, 0).NumericValue())
			if format == FormatOOXML {
				// BIFF8 files are written without a summary information stream
				assert.Equal(t, "Sample", wb.Properties().Title)
			}
		})
	}
}

func TestRoundTripTwice(t *testing.T) {
	for _, format := range bothFormats {
		once := roundTrip(t, buildSample(t, format))
		twice := roundTrip(t, once)
		a, b := once.Snapshot("book"), twice.Snapshot("book")
		assert.Equal(t, a, b, format)
	}
}

func TestRoundTripComments(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatOOXML)
	_, err := wb.SheetAt(0).SetComment(2, 1, "ann", "look here")
	require.NoError(t, err)

	out := roundTrip(t, wb)
	cm := out.SheetAt(0).Comment(2, 1)
	require.NotNil(t, cm)
	assert.Equal(t, "ann", cm.Author)
	assert.Equal(t, "look here", cm.Text)
}

func TestRoundTripSharedFormula(t *testing.T) {
	for _, format := range bothFormats {
		wb, _ := newTestWorkbook(t, format)
		sh := wb.SheetAt(0)
		require.NoError(t, sh.SetSharedFormula("A1+1", cellref.MustRange("B1:B3")))

		out := roundTrip(t, wb).SheetAt(0)
		assert.Equal(t, "A1+1", out.Cell(0, 1).Formula(), format)
		assert.Equal(t, "A3+1", out.Cell(2, 1).Formula(), format)
	}
}

func TestDetectFormat(t *testing.T) {
	f, err := DetectFormat([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0})
	require.NoError(t, err)
	assert.Equal(t, FormatBIFF8, f)

	f, err = DetectFormat([]byte("PK\x03\x04rest"))
	require.NoError(t, err)
	assert.Equal(t, FormatOOXML, f)

	_, err = DetectFormat([]byte("<html>"))
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = OpenReader(strings.NewReader("not a workbook"), DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidFormat)
	_, err = OpenReader(strings.NewReader("PK\x03\x04 truncated"), DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestSaveAndOpen(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatBIFF8)
	setCell(t, wb.SheetAt(0), 0, 0, "saved")
	dir := t.TempDir()

	require.NoError(t, wb.Save(filepath.Join(dir, "book")))
	path := filepath.Join(dir, "book.xls")
	_, err := os.Stat(path)
	require.NoError(t, err, "the extension of the format is added")

	out, err := Open(path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "saved", out.SheetAt(0).Cell(0, 0).StringValue())

	_, err = Open(filepath.Join(dir, "missing.xlsx"), DefaultOptions())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteEmptyWorkbook(t *testing.T) {
	wb, err := NewWorkbook(FormatOOXML, DefaultOptions())
	require.NoError(t, err)
	assert.ErrorIs(t, wb.Write(&bytes.Buffer{}), ErrArgument)
}

func TestWriteFormulaBIFF8CannotStore(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatBIFF8)
	f := setCell(t, wb.SheetAt(0), 0, 0, nil)
	require.NoError(t, f.SetFormula("IFERROR(1/0,0)"))

	err := wb.Write(&bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.ErrorIs(t, err, biff.ErrUnsupportedFormula)
	var encErr *biff.EncodeError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "Sheet1", encErr.Sheet)
}

func TestRoundTripArrayConstant(t *testing.T) {
	for _, format := range bothFormats {
		wb, _ := newTestWorkbook(t, format)
		sh := wb.SheetAt(0)
		f := setCell(t, sh, 0, 0, nil)
		require.NoError(t, f.SetFormula(`SUM({1,2;3,4})`))
		g := setCell(t, sh, 1, 0, nil)
		require.NoError(t, g.SetFormula(`INDEX({"a","b"},2)&B1`))

		out := roundTrip(t, wb).SheetAt(0)
		assert.Equal(t, "SUM({1,2;3,4})", out.Cell(0, 0).Formula(), format)
		assert.Equal(t, `INDEX({"a","b"},2)&B1`, out.Cell(1, 0).Formula(), format)
	}
}
