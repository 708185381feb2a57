package xlgrid

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/cellref"
)

func TestShiftRowsMovesCellsAndReferences(t *testing.T) {
	for _, format := range bothFormats {
		wb, _ := newTestWorkbook(t, format)
		sh := wb.SheetAt(0)
		other, err := wb.CreateSheet("Other")
		require.NoError(t, err)

		setCell(t, sh, 6, 0, 42)
		setCell(t, sh, 12, 0, "overwritten")
		local := setCell(t, sh, 0, 0, nil)
		require.NoError(t, local.SetFormula("A7*2"))
		remote := setCell(t, other, 0, 0, nil)
		require.NoError(t, remote.SetFormula("Sheet1!A7+Sheet1!A13+Sheet1!A2"))
		name, err := wb.CreateName("Answer", "Sheet1!$A$7", ScopeWorkbook)
		require.NoError(t, err)

		require.NoError(t, sh.ShiftRows(5, 10, 3, ShiftOptions{}))

		assert.Nil(t, sh.Row(6), format)
		require.NotNil(t, sh.Cell(9, 0))
		assert.Equal(t, 42.0, sh.Cell(9, 0).NumericValue())
		assert.Nil(t, sh.Cell(12, 0), "rows the band lands on are cleared")

		assert.Equal(t, "A10*2", local.Formula(), format)
		assert.Equal(t, "Sheet1!A10+Sheet1!#REF!+Sheet1!A2", remote.Formula(), format)
		assert.Equal(t, "Sheet1!$A$10", name.RefersTo)
	}
}

func TestShiftRowsUp(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatOOXML)
	sh := wb.SheetAt(0)
	setCell(t, sh, 4, 1, "x")
	f := setCell(t, sh, 20, 0, nil)
	require.NoError(t, f.SetFormula("SUM(B3:B5)"))

	require.NoError(t, sh.ShiftRows(4, 4, -2, ShiftOptions{}))
	assert.Equal(t, "x", sh.Cell(2, 1).StringValue())
	assert.Equal(t, "SUM(B3:B4)", f.Formula())
}

func TestShiftRowsHeights(t *testing.T) {
	tests := []struct {
		name   string
		opts   ShiftOptions
		moved  int
		source int // -2 when no row is left behind
	}{
		{"cells only", ShiftOptions{}, -1, 500},
		{"copy height", ShiftOptions{CopyRowHeight: true}, 500, 500},
		{"copy and reset", ShiftOptions{CopyRowHeight: true, ResetOriginalRowHeight: true}, 500, -2},
		{"reset only", ShiftOptions{ResetOriginalRowHeight: true}, -1, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb, _ := newTestWorkbook(t, FormatBIFF8)
			sh := wb.SheetAt(0)
			c := setCell(t, sh, 6, 0, 1)
			require.NoError(t, c.Row().SetHeight(500))

			require.NoError(t, sh.ShiftRows(5, 10, 3, tt.opts))
			require.NotNil(t, sh.Row(9))
			assert.Equal(t, tt.moved, sh.Row(9).Height())
			if tt.source == -2 {
				assert.Nil(t, sh.Row(6))
				return
			}
			require.NotNil(t, sh.Row(6))
			assert.Equal(t, tt.source, sh.Row(6).Height())
			assert.Equal(t, 0, sh.Row(6).PhysicalNumberOfCells())
		})
	}
}

func TestShiftRowsOverflow(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatBIFF8)
	sh := wb.SheetAt(0)
	setCell(t, sh, 65534, 0, "edge")
	setCell(t, sh, 65530, 0, "fits")

	err := sh.ShiftRows(65530, 65535, 3, ShiftOptions{})
	assert.ErrorIs(t, err, ErrArgument)
	assert.Equal(t, "edge", sh.Cell(65534, 0).StringValue(), "rejected shifts change nothing")

	opts := DefaultOptions()
	opts.ShiftOverflow = OverflowDiscard
	logger, hook := test.NewNullLogger()
	opts.Logger = logger
	wb, err = NewWorkbook(FormatBIFF8, opts)
	require.NoError(t, err)
	sh, err = wb.CreateSheet("Sheet1")
	require.NoError(t, err)
	setCell(t, sh, 65534, 0, "edge")
	setCell(t, sh, 65530, 0, "fits")

	require.NoError(t, sh.ShiftRows(65530, 65535, 3, ShiftOptions{}))
	assert.Equal(t, "fits", sh.Cell(65533, 0).StringValue())
	assert.Nil(t, sh.Row(65534))
	assert.Equal(t, 65533, sh.LastRowNum())
	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "row discarded by shift" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestShiftRowsStructures(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatOOXML)
	sh := wb.SheetAt(0)
	id, err := sh.AddMergedRegion(cellref.MustRange("A7:B7"))
	require.NoError(t, err)
	doomed, err := sh.AddMergedRegion(cellref.MustRange("A12:C12"))
	require.NoError(t, err)
	kept, err := sh.AddMergedRegion(cellref.MustRange("A1:A2"))
	require.NoError(t, err)
	_, err = sh.SetHyperlink(6, 0, "https://example.com")
	require.NoError(t, err)
	_, err = sh.SetComment(6, 1, "me", "note")
	require.NoError(t, err)
	require.NoError(t, sh.SetRowBreak(7))

	require.NoError(t, sh.ShiftRows(5, 10, 3, ShiftOptions{MoveComments: true}))

	rng, err := sh.MergedRegion(id)
	require.NoError(t, err)
	assert.Equal(t, "A10:B10", rng.String(), "handles survive the shift")
	_, err = sh.MergedRegion(doomed)
	assert.ErrorIs(t, err, ErrNotFound)
	rng, err = sh.MergedRegion(kept)
	require.NoError(t, err)
	assert.Equal(t, "A1:A2", rng.String())

	assert.NotNil(t, sh.Hyperlink(9, 0))
	assert.Nil(t, sh.Hyperlink(6, 0))
	assert.NotNil(t, sh.Comment(9, 1))
	assert.Equal(t, []int{10}, sh.RowBreaks())
}

func TestShiftRowsKeepsCommentsByDefault(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatOOXML)
	sh := wb.SheetAt(0)
	_, err := sh.SetComment(6, 0, "me", "stays")
	require.NoError(t, err)
	require.NoError(t, sh.ShiftRows(5, 7, 1, ShiftOptions{}))
	assert.NotNil(t, sh.Comment(6, 0))
}

func TestShiftRowsRejectsSplittingArray(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatOOXML)
	sh := wb.SheetAt(0)
	_, err := sh.SetArrayFormula("A20:A21*2", cellref.MustRange("C2:C3"))
	require.NoError(t, err)

	assert.ErrorIs(t, sh.ShiftRows(2, 5, 1, ShiftOptions{}), ErrArrayFormula)
	assert.ErrorIs(t, sh.ShiftRows(0, 0, 2, ShiftOptions{}), ErrArrayFormula, "landing on an array is a split too")

	require.NoError(t, sh.ShiftRows(1, 2, 4, ShiftOptions{}))
	assert.Equal(t, []cellref.Range{cellref.MustRange("C6:C7")}, sh.ArrayFormulas())
	assert.Equal(t, "A20:A21*2", sh.Cell(5, 2).Formula())
}

func TestShiftColumns(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatOOXML)
	sh := wb.SheetAt(0)
	setCell(t, sh, 0, 1, "b")
	require.NoError(t, sh.SetColumnWidth(1, 3000))
	f := setCell(t, sh, 1, 0, nil)
	require.NoError(t, f.SetFormula("B1&C1"))

	require.NoError(t, sh.ShiftColumns(1, 1, 2))
	assert.Nil(t, sh.Cell(0, 1))
	assert.Equal(t, "b", sh.Cell(0, 3).StringValue())
	assert.Equal(t, 3000, sh.ColumnWidth(3))
	assert.Equal(t, "D1&C1", f.Formula())

	assert.ErrorIs(t, sh.ShiftColumns(3, 1, 1), ErrArgument)
	assert.ErrorIs(t, sh.ShiftColumns(3, 3, -5), ErrArgument)
}

func TestShiftMergedRegionsOutOfBand(t *testing.T) {
	tests := []struct {
		name  string
		merge string
		shift func(sh *Sheet) error
		want  string
	}{
		{"down past the band", "A1:B2", func(sh *Sheet) error { return sh.ShiftRows(0, 1, 10, ShiftOptions{}) }, "A11:B12"},
		{"up past the band", "B6:C7", func(sh *Sheet) error { return sh.ShiftRows(5, 9, -4, ShiftOptions{}) }, "B2:C3"},
		{"right past the band", "B1:B2", func(sh *Sheet) error { return sh.ShiftColumns(1, 1, 5) }, "G1:G2"},
	}
	for _, format := range bothFormats {
		for _, tt := range tests {
			t.Run(format.String()+"/"+tt.name, func(t *testing.T) {
				wb, _ := newTestWorkbook(t, format)
				sh := wb.SheetAt(0)
				id, err := sh.AddMergedRegion(cellref.MustRange(tt.merge))
				require.NoError(t, err)

				require.NoError(t, tt.shift(sh))
				require.Equal(t, 1, sh.NumMergedRegions())
				rng, err := sh.MergedRegion(id)
				require.NoError(t, err)
				assert.Equal(t, tt.want, rng.String())

				out := roundTrip(t, wb).SheetAt(0)
				assert.Equal(t, []cellref.Range{cellref.MustRange(tt.want)}, out.MergedRegions())
			})
		}
	}
}

func TestShiftRowsReferencesLeavingGrid(t *testing.T) {
	tests := []struct {
		format Format
		policy ShiftOverflow
		ref    string
		first  int
	}{
		{FormatBIFF8, OverflowFail, "A65535", 65530},
		{FormatBIFF8, OverflowDiscard, "A65535", 65530},
		{FormatOOXML, OverflowFail, "A1048575", 1048570},
		{FormatOOXML, OverflowDiscard, "A1048575", 1048570},
	}
	for _, tt := range tests {
		t.Run(tt.format.String()+"/"+string(tt.policy), func(t *testing.T) {
			opts := DefaultOptions()
			opts.ShiftOverflow = tt.policy
			logger, _ := test.NewNullLogger()
			opts.Logger = logger
			wb, err := NewWorkbook(tt.format, opts)
			require.NoError(t, err)
			sh, err := wb.CreateSheet("Sheet1")
			require.NoError(t, err)
			other, err := wb.CreateSheet("Other")
			require.NoError(t, err)

			local := setCell(t, sh, 0, 0, nil)
			require.NoError(t, local.SetFormula(tt.ref+"+1"))
			remote := setCell(t, other, 0, 0, nil)
			require.NoError(t, remote.SetFormula("Sheet1!"+tt.ref+"*2"))
			name, err := wb.CreateName("Edge", "Sheet1!$A$"+tt.ref[1:], ScopeWorkbook)
			require.NoError(t, err)

			// the band holds no cells, so only references leave the grid
			require.NoError(t, sh.ShiftRows(tt.first, tt.first+4, 3, ShiftOptions{}))
			assert.Equal(t, "#REF!+1", local.Formula())
			assert.Equal(t, "Sheet1!#REF!*2", remote.Formula())
			assert.Equal(t, "Sheet1!#REF!", name.RefersTo)

			out := roundTrip(t, wb)
			assert.Equal(t, "#REF!+1", out.SheetAt(0).Cell(0, 0).Formula())
			assert.Equal(t, "Sheet1!#REF!*2", out.SheetAt(1).Cell(0, 0).Formula())
		})
	}
}
