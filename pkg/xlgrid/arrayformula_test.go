package xlgrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/cellref"
)

func TestArrayFormulaBlocksRowRemoval(t *testing.T) {
	for _, format := range bothFormats {
		wb, _ := newTestWorkbook(t, format)
		sh := wb.SheetAt(0)
		cells, err := sh.SetArrayFormula("=A1:A2*B1:C1", cellref.MustRange("B2:C3"))
		require.NoError(t, err)
		require.Len(t, cells, 4)

		err = sh.RemoveRow(sh.Row(1))
		assert.ErrorIs(t, err, ErrArrayFormula, format)
		assert.NotNil(t, sh.Row(1), "nothing changes on failure")
		assert.Equal(t, 4, len(sh.Row(1).Cells())+len(sh.Row(2).Cells()))

		_, err = sh.CreateRow(2)
		assert.ErrorIs(t, err, ErrArrayFormula)
		assert.ErrorIs(t, sh.Row(1).RemoveCell(cells[0]), ErrArrayFormula)
		assert.ErrorIs(t, cells[3].SetNumericValue(1), ErrArrayFormula)
	}
}

func TestArrayFormulaMembers(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatOOXML)
	sh := wb.SheetAt(0)
	cells, err := sh.SetArrayFormula("SUM(A1:A3*B1:B3)", cellref.MustRange("D1:D2"))
	require.NoError(t, err)

	for _, c := range cells {
		assert.Equal(t, CellFormula, c.Type())
		assert.Equal(t, "SUM(A1:A3*B1:B3)", c.Formula())
		assert.True(t, c.IsPartOfArrayFormulaGroup())
		rng, ok := c.ArrayFormulaRange()
		require.True(t, ok)
		assert.Equal(t, "D1:D2", rng.String())
	}
	require.NoError(t, cells[1].SetCachedFormulaResult(3.0))
	assert.Equal(t, 3.0, cells[1].NumericValue())

	_, err = sh.SetArrayFormula("1", cellref.MustRange("C2:E2"))
	assert.ErrorIs(t, err, ErrArrayFormula)
	_, err = sh.AddMergedRegion(cellref.MustRange("D2:E3"))
	assert.ErrorIs(t, err, ErrArrayFormula)

	blank, err := sh.RemoveArrayFormula(cells[1])
	require.NoError(t, err)
	assert.Len(t, blank, 2)
	assert.Equal(t, CellBlank, cells[0].Type())
	assert.False(t, cells[0].IsPartOfArrayFormulaGroup())
	assert.Empty(t, sh.ArrayFormulas())
	assert.NoError(t, sh.RemoveRow(sh.Row(1)))

	_, err = sh.RemoveArrayFormula(cells[0])
	assert.ErrorIs(t, err, ErrArgument)
}

func TestSingleCellArrayFormula(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatBIFF8)
	sh := wb.SheetAt(0)
	cells, err := sh.SetArrayFormula("MAX(A1:A9)", cellref.MustRange("C3"))
	require.NoError(t, err)
	require.Len(t, cells, 1)

	require.NoError(t, cells[0].SetNumericValue(4), "single-cell arrays are replaced by edits")
	assert.Empty(t, sh.ArrayFormulas())
	assert.Equal(t, CellNumeric, cells[0].Type())
}

func TestSharedFormula(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatOOXML)
	sh := wb.SheetAt(0)
	require.NoError(t, sh.SetSharedFormula("A1*$B$1", cellref.MustRange("C1:C3")))

	assert.Equal(t, "A1*$B$1", sh.Cell(0, 2).Formula())
	assert.Equal(t, "A3*$B$1", sh.Cell(2, 2).Formula())
	assert.True(t, sh.Cell(1, 2).IsSharedFormulaDependent())
	assert.False(t, sh.Cell(0, 2).IsSharedFormulaDependent())

	// editing the master spreads its text to the dependents first
	require.NoError(t, sh.Cell(0, 2).SetNumericValue(0))
	assert.Equal(t, "A2*$B$1", sh.Cell(1, 2).Formula())
	assert.False(t, sh.Cell(1, 2).IsSharedFormulaDependent())
}
