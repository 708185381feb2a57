package xlgrid

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/cellref"
)

// fixedMeasurer gives every rune the same advance; bold text is wider.
type fixedMeasurer struct{}

func (fixedMeasurer) Width(f TextFont, text string) float64 {
	w := 7.0
	if f.Bold {
		w = 8
	}
	return w * float64(utf8.RuneCountInString(text))
}

func newMeasuredWorkbook(t *testing.T, format Format) *Workbook {
	t.Helper()
	wb, _ := newTestWorkbook(t, format)
	wb.opts.Measurer = fixedMeasurer{}
	return wb
}

func TestAutoSizeColumn(t *testing.T) {
	for _, format := range bothFormats {
		wb := newMeasuredWorkbook(t, format)
		sh := wb.SheetAt(0)
		setCell(t, sh, 0, 0, "Hello")
		setCell(t, sh, 1, 0, "Hi")

		require.NoError(t, sh.AutoSizeColumn(0, false))
		// 5 characters of the default width plus one character of padding
		assert.Equal(t, 6*256, sh.ColumnWidth(0), format)

		require.NoError(t, sh.AutoSizeColumn(0, false))
		assert.Equal(t, 6*256, sh.ColumnWidth(0), "auto-sizing is idempotent")
	}
}

func TestAutoSizeColumnClamps(t *testing.T) {
	wb := newMeasuredWorkbook(t, FormatBIFF8)
	sh := wb.SheetAt(0)
	long := make([]rune, 400)
	for i := range long {
		long[i] = 'x'
	}
	setCell(t, sh, 0, 2, string(long))

	require.NoError(t, sh.AutoSizeColumn(2, false))
	assert.Equal(t, 255*256, sh.ColumnWidth(2))
}

func TestAutoSizeColumnKeepsEmptyColumns(t *testing.T) {
	wb := newMeasuredWorkbook(t, FormatOOXML)
	sh := wb.SheetAt(0)
	require.NoError(t, sh.SetColumnWidth(4, 1000))
	setCell(t, sh, 0, 4, nil)

	require.NoError(t, sh.AutoSizeColumn(4, false))
	assert.Equal(t, 1000, sh.ColumnWidth(4))
	assert.ErrorIs(t, sh.AutoSizeColumn(-1, false), ErrArgument)
}

func TestAutoSizeColumnMergedCells(t *testing.T) {
	wb := newMeasuredWorkbook(t, FormatOOXML)
	sh := wb.SheetAt(0)
	setCell(t, sh, 0, 0, "abc")
	setCell(t, sh, 1, 0, "merged across two")
	_, err := sh.AddMergedRegion(cellref.MustRange("A2:B2"))
	require.NoError(t, err)

	require.NoError(t, sh.AutoSizeColumn(0, false))
	assert.Equal(t, 4*256, sh.ColumnWidth(0), "merged cells are skipped")

	require.NoError(t, sh.AutoSizeColumn(0, true))
	// 17 characters shared by two columns
	assert.Equal(t, int((17.0/2+1)*256), sh.ColumnWidth(0))
}

func TestAutoSizeColumnFonts(t *testing.T) {
	wb := newMeasuredWorkbook(t, FormatOOXML)
	sh := wb.SheetAt(0)
	c := setCell(t, sh, 0, 0, "abcd")

	font := wb.CreateFont()
	font.SetBold(true)
	style, err := wb.CreateCellStyle()
	require.NoError(t, err)
	require.NoError(t, style.SetFont(font))
	require.NoError(t, c.SetStyle(style))

	require.NoError(t, sh.AutoSizeColumn(0, false))
	// four bold characters measured in regular character widths
	chars := 32.0 / 7
	assert.Equal(t, int((chars+1)*256), sh.ColumnWidth(0))
}

func TestDefaultMeasurer(t *testing.T) {
	m := defaultMeasurer()
	regular := m.Width(TextFont{Name: "Arial", Points: 10}, "0000")
	bold := m.Width(TextFont{Name: "Arial", Points: 10, Bold: true}, "0000")
	assert.Greater(t, regular, 0.0)
	assert.GreaterOrEqual(t, bold, regular)
	assert.InDelta(t, 2*regular, m.Width(TextFont{Name: "Arial", Points: 20}, "0000"), 1)
}
