package xlgrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hiddenRows(sh *Sheet) []int {
	var out []int
	for _, r := range sh.Rows() {
		if r.ZeroHeight() {
			out = append(out, r.RowNum())
		}
	}
	return out
}

func TestRowGroupCollapseExpand(t *testing.T) {
	for _, format := range bothFormats {
		wb, _ := newTestWorkbook(t, format)
		sh := wb.SheetAt(0)
		require.NoError(t, sh.GroupRows(1, 3))
		for i := 1; i <= 3; i++ {
			require.NotNil(t, sh.Row(i), "grouping creates absent rows")
			assert.Equal(t, 1, sh.Row(i).OutlineLevel())
		}

		require.NoError(t, sh.SetRowGroupCollapsed(2, true))
		assert.Equal(t, []int{1, 2, 3}, hiddenRows(sh), format)
		require.NotNil(t, sh.Row(4))
		assert.True(t, sh.Row(4).Collapsed(), "the marker sits after the group")

		require.NoError(t, sh.SetRowGroupCollapsed(1, false))
		assert.Empty(t, hiddenRows(sh))
		assert.False(t, sh.Row(4).Collapsed())

		assert.ErrorIs(t, sh.SetRowGroupCollapsed(8, true), ErrArgument)
	}
}

func TestNestedRowGroups(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatOOXML)
	sh := wb.SheetAt(0)
	require.NoError(t, sh.GroupRows(1, 6))
	require.NoError(t, sh.GroupRows(2, 3))
	rows, _ := sh.MaxOutlineLevels()
	assert.Equal(t, 2, rows)

	require.NoError(t, sh.SetRowGroupCollapsed(2, true))
	assert.Equal(t, []int{2, 3}, hiddenRows(sh))

	require.NoError(t, sh.SetRowGroupCollapsed(1, true))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, hiddenRows(sh))

	// expanding the outer group leaves the collapsed inner group closed
	require.NoError(t, sh.SetRowGroupCollapsed(1, false))
	assert.Equal(t, []int{2, 3}, hiddenRows(sh))

	// the inner group cannot open while its parent is collapsed
	require.NoError(t, sh.SetRowGroupCollapsed(1, true))
	require.NoError(t, sh.SetRowGroupCollapsed(2, false))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, hiddenRows(sh))
	require.NoError(t, sh.SetRowGroupCollapsed(5, false))
	assert.Empty(t, hiddenRows(sh))
}

func TestGroupLevelsClamp(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatBIFF8)
	sh := wb.SheetAt(0)
	for range 9 {
		require.NoError(t, sh.GroupRows(0, 0))
	}
	assert.Equal(t, 7, sh.Row(0).OutlineLevel())

	require.NoError(t, sh.UngroupRows(0, 0))
	assert.Equal(t, 6, sh.Row(0).OutlineLevel())
	assert.ErrorIs(t, sh.GroupRows(0, 70000), ErrArgument)
}

func TestColumnGroups(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatOOXML)
	sh := wb.SheetAt(0)
	require.NoError(t, sh.GroupColumns(2, 4))
	assert.Equal(t, 1, sh.ColumnOutlineLevel(3))

	require.NoError(t, sh.SetColumnGroupCollapsed(3, true))
	for c := 2; c <= 4; c++ {
		assert.True(t, sh.ColumnHidden(c), c)
	}
	assert.True(t, sh.ColumnCollapsed(5))

	require.NoError(t, sh.SetColumnGroupCollapsed(2, false))
	assert.False(t, sh.ColumnHidden(3))
	assert.False(t, sh.ColumnCollapsed(5))

	require.NoError(t, sh.UngroupColumns(2, 4))
	assert.Equal(t, 0, sh.ColumnOutlineLevel(3))
	assert.ErrorIs(t, sh.SetColumnGroupCollapsed(3, true), ErrArgument)
}
