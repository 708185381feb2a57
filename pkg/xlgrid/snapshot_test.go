package xlgrid

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/models"
)

func TestSnapshot(t *testing.T) {
	wb := buildSample(t, FormatOOXML)
	sh := wb.SheetAt(0)
	_, err := sh.SetHyperlink(5, 1, "#Hidden!A1")
	require.NoError(t, err)
	_, err = sh.SetComment(1, 0, "ann", "repeated")
	require.NoError(t, err)

	data := wb.Snapshot("sample.xlsx")
	assert.Equal(t, "sample.xlsx", data.BookName)
	assert.Equal(t, "xlsx", data.Format)
	assert.Equal(t, map[string]string{"title": "Sample"}, data.Properties)
	require.Len(t, data.Sheets, 2)

	first := data.Sheets[0]
	assert.Equal(t, "Sheet1", first.Name)
	assert.Equal(t, "visible", first.Visibility)
	assert.Equal(t, "hidden", data.Sheets[1].Visibility)

	require.NotEmpty(t, first.Rows)
	top := first.Rows[0]
	assert.Equal(t, 1, top.R, "rows are one-based")
	assert.Equal(t, 20.0, top.Height)
	assert.Equal(t, "Quarterly", top.C["1"])
	assert.Equal(t, 3.5, top.C["2"])
	assert.Equal(t, true, top.C["3"])
	assert.Equal(t, int64(7), top.C["4"], "whole numbers are integers")
	assert.Equal(t, "B1*2", top.Formulas["4"])

	var links models.CellRow
	for _, r := range first.Rows {
		if r.R == 6 {
			links = r
		}
	}
	assert.Equal(t, map[string]string{"1": "https://example.com/", "2": "#Hidden!A1"}, links.Links)

	assert.Equal(t, []string{"A3:B3"}, first.MergedRegions)
	assert.Equal(t, []string{"E1:E2"}, first.ArrayFormulas)
	assert.Equal(t, []models.PrintArea{{R1: 1, C1: 1, R2: 6, C2: 5}}, first.PrintAreas)
	assert.Equal(t, "A2", first.Freeze)
	assert.Equal(t, map[string]string{"A2": "repeated"}, first.Comments)
	require.NotEmpty(t, first.Columns)
	assert.Equal(t, 2, first.Columns[0].C)
	assert.InDelta(t, 4000.0/256, first.Columns[0].Width, 1e-9)

	require.Len(t, data.Names, 2)
	assert.Equal(t, "Rate", data.Names[0].Name)
	assert.Empty(t, data.Names[0].Sheet)

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"r":1`)
}

func TestParsePrintAreas(t *testing.T) {
	areas := parsePrintAreas("'Sheet 1'!$A$1:$D$10,'Sheet 1'!$F$1:$G$4, bad")
	assert.Equal(t, []models.PrintArea{
		{R1: 1, C1: 1, R2: 10, C2: 4},
		{R1: 1, C1: 6, R2: 4, C2: 7},
	}, areas)
}
