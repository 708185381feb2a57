package xlgrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowLifecycle(t *testing.T) {
	for _, format := range bothFormats {
		wb, _ := newTestWorkbook(t, format)
		sh := wb.SheetAt(0)
		assert.Equal(t, 0, sh.FirstRowNum())
		assert.Equal(t, 0, sh.LastRowNum())

		_, err := sh.CreateRow(0)
		require.NoError(t, err)
		r5, err := sh.CreateRow(5)
		require.NoError(t, err)
		assert.Equal(t, 0, sh.FirstRowNum(), format)
		assert.Equal(t, 5, sh.LastRowNum(), format)
		assert.Equal(t, 2, sh.PhysicalNumberOfRows())

		require.NoError(t, sh.RemoveRow(r5))
		assert.Equal(t, 0, sh.LastRowNum(), format)
		assert.Nil(t, sh.Row(5))
		assert.ErrorIs(t, sh.RemoveRow(r5), ErrArgument, "a removed row no longer belongs to the sheet")
	}
}

func TestRowsStaySorted(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatOOXML)
	sh := wb.SheetAt(0)
	for _, i := range []int{9, 2, 40, 0, 7} {
		_, err := sh.CreateRow(i)
		require.NoError(t, err)
	}
	var got []int
	for _, r := range sh.Rows() {
		got = append(got, r.RowNum())
	}
	assert.Equal(t, []int{0, 2, 7, 9, 40}, got)
}

func TestCreateRowReplacesRow(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatBIFF8)
	sh := wb.SheetAt(0)
	old := setCell(t, sh, 3, 1, "kept?")
	require.NoError(t, old.Row().SetHeight(400))

	r, err := sh.CreateRow(3)
	require.NoError(t, err)
	assert.Equal(t, 0, r.PhysicalNumberOfCells())
	assert.Equal(t, -1, r.Height())
	assert.Nil(t, old.Sheet(), "cells of the replaced row are detached")
}

func TestRowLimits(t *testing.T) {
	hssf, _ := newTestWorkbook(t, FormatBIFF8)
	_, err := hssf.SheetAt(0).CreateRow(65536)
	assert.ErrorIs(t, err, ErrArgument)
	_, err = hssf.SheetAt(0).CreateRow(-1)
	assert.ErrorIs(t, err, ErrArgument)
	r, err := hssf.SheetAt(0).CreateRow(65535)
	require.NoError(t, err)
	_, err = r.CreateCell(256)
	assert.ErrorIs(t, err, ErrArgument)

	xssf, _ := newTestWorkbook(t, FormatOOXML)
	r, err = xssf.SheetAt(0).CreateRow(1048575)
	require.NoError(t, err)
	_, err = r.CreateCell(16383)
	assert.NoError(t, err)
	_, err = r.CreateCell(16384)
	assert.ErrorIs(t, err, ErrArgument)
}

func TestRemoveRowFromOtherSheet(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatOOXML)
	other, err := wb.CreateSheet("Other")
	require.NoError(t, err)
	r, err := other.CreateRow(1)
	require.NoError(t, err)
	assert.ErrorIs(t, wb.SheetAt(0).RemoveRow(r), ErrArgument)
	assert.Same(t, r, other.Row(1))
}

func TestCellValues(t *testing.T) {
	for _, format := range bothFormats {
		wb, _ := newTestWorkbook(t, format)
		sh := wb.SheetAt(0)

		num := setCell(t, sh, 0, 0, 2.5)
		assert.Equal(t, CellNumeric, num.Type())
		assert.Equal(t, 2.5, num.NumericValue())
		assert.Equal(t, "2.5", num.Text())

		str := setCell(t, sh, 0, 1, "hello")
		assert.Equal(t, CellString, str.Type())
		assert.Equal(t, "hello", str.StringValue())

		b := setCell(t, sh, 0, 2, true)
		assert.Equal(t, "TRUE", b.Text())

		e := setCell(t, sh, 0, 3, nil)
		require.NoError(t, e.SetErrorValue("#DIV/0!"))
		assert.Equal(t, CellError, e.Type())
		assert.ErrorIs(t, e.SetErrorValue("#OOPS"), ErrArgument)

		f := setCell(t, sh, 1, 0, nil)
		require.NoError(t, f.SetFormula("=A1*2"))
		assert.Equal(t, CellFormula, f.Type())
		assert.Equal(t, "A1*2", f.Formula())
		require.NoError(t, f.SetCachedFormulaResult(5.0))
		assert.Equal(t, CellNumeric, f.CachedFormulaResultType())
		assert.Equal(t, "5", f.Text())
		assert.ErrorIs(t, num.SetCachedFormulaResult(1), ErrArgument)
		assert.ErrorIs(t, f.SetFormula("  "), ErrArgument)

		require.NoError(t, str.SetBlank())
		assert.Equal(t, CellBlank, str.Type())
		assert.Equal(t, "", str.Text())

		r := sh.Row(0)
		assert.Equal(t, 0, r.FirstCellNum())
		assert.Equal(t, 3, r.LastCellNum())
		require.NoError(t, r.RemoveCell(b))
		assert.Nil(t, r.Cell(2))
		assert.ErrorIs(t, r.RemoveCell(b), ErrArgument)
	}
}

func TestColumnAttributes(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatBIFF8)
	sh := wb.SheetAt(0)
	assert.Equal(t, 8*256, sh.ColumnWidth(3))

	require.NoError(t, sh.SetColumnWidth(3, 20*256))
	assert.Equal(t, 20*256, sh.ColumnWidth(3))
	assert.ErrorIs(t, sh.SetColumnWidth(3, 256*256), ErrArgument)

	require.NoError(t, sh.SetColumnHidden(3, true))
	assert.True(t, sh.ColumnHidden(3))

	style, err := wb.CreateCellStyle()
	require.NoError(t, err)
	require.NoError(t, style.SetAlignment(Alignment{Horizontal: HAlignCenter}))
	require.NoError(t, sh.SetColumnStyle(3, style))
	c := setCell(t, sh, 0, 3, "centered")
	assert.Equal(t, style.Index(), c.Style().Index(), "new cells take the column style")
}
