package xlgrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/cellref"
)

func TestMergedRegions(t *testing.T) {
	for _, format := range bothFormats {
		wb, _ := newTestWorkbook(t, format)
		sh := wb.SheetAt(0)

		first, err := sh.AddMergedRegion(cellref.MustRange("A1:B1"))
		require.NoError(t, err)
		_, err = sh.AddMergedRegion(cellref.MustRange("B1:C1"))
		assert.ErrorIs(t, err, ErrArgument, format)
		_, err = sh.AddMergedRegion(cellref.MustRange("D4"))
		assert.ErrorIs(t, err, ErrArgument, "single cells cannot be merged")

		second, err := sh.AddMergedRegion(cellref.MustRange("A3:C5"))
		require.NoError(t, err)
		third, err := sh.AddMergedRegion(cellref.MustRange("E1:E9"))
		require.NoError(t, err)
		assert.Equal(t, 3, sh.NumMergedRegions())
		assert.Equal(t, []RegionID{first, second, third}, sh.MergedRegionIDs())

		require.NoError(t, sh.RemoveMergedRegion(second))
		rng, err := sh.MergedRegion(third)
		require.NoError(t, err, "handles stay valid after a removal")
		assert.Equal(t, "E1:E9", rng.String())
		id, rng, err := sh.MergedRegionAt(1)
		require.NoError(t, err)
		assert.Equal(t, third, id)
		assert.Equal(t, "E1:E9", rng.String())

		assert.ErrorIs(t, sh.RemoveMergedRegion(second), ErrNotFound)
		_, err = sh.MergedRegion(second)
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, sh.RemoveMergedRegionAt(0))
		assert.Equal(t, []cellref.Range{cellref.MustRange("E1:E9")}, sh.MergedRegions())
		assert.ErrorIs(t, sh.RemoveMergedRegionAt(4), ErrNotFound)
	}
}

func TestMergedRegionLimits(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatBIFF8)
	_, err := wb.SheetAt(0).AddMergedRegion(cellref.NewRange(0, 0, 0, 256))
	assert.ErrorIs(t, err, ErrArgument)
}

func TestCloneSheetKeepsRegionHandles(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatOOXML)
	sh := wb.SheetAt(0)
	id, err := sh.AddMergedRegion(cellref.MustRange("B2:C3"))
	require.NoError(t, err)

	clone, err := wb.CloneSheet(0)
	require.NoError(t, err)
	rng, err := clone.MergedRegion(id)
	require.NoError(t, err)
	assert.Equal(t, "B2:C3", rng.String())

	require.NoError(t, clone.RemoveMergedRegion(id))
	_, err = sh.MergedRegion(id)
	assert.NoError(t, err, "the source keeps its regions")
}
