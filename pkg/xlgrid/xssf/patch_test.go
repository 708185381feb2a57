package xssf

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildPackage(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellInt("Sheet1", "A1", 1))
	_, err := f.NewSheet("Keep")
	require.NoError(t, err)
	require.NoError(t, f.SetCellInt("Keep", "B2", 7))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestPatchPackage(t *testing.T) {
	var d SheetData
	row := &Row{R: 3}
	d.Insert(row)
	c := NewCell(2)
	c.T, c.V = TypeSharedString, "1"
	row.InsertCell(c)

	out, err := PatchPackage(buildPackage(t), map[string]*SheetData{"Sheet1": &d}, []string{"unused", "patched"})
	require.NoError(t, err)

	pkg, err := ReadPackage(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"unused", "patched"}, pkg.SharedStrings)
	require.Len(t, pkg.Sheets, 2)

	patched := pkg.Sheets[0].Worksheet.SheetData
	assert.Nil(t, patched.Row(1), "the old rows are replaced")
	c3 := patched.Row(3).Cell(2)
	require.NotNil(t, c3)
	assert.Equal(t, "patched", pkg.SharedStrings[1])
	assert.Equal(t, "1", c3.V)

	kept := pkg.Sheets[1].Worksheet.SheetData.Row(2).Cell(1)
	require.NotNil(t, kept, "sheets not named are left alone")
	assert.Equal(t, "7", kept.V)

	// the result still opens in a regular reader
	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Sheet1", "C3")
	require.NoError(t, err)
	assert.Equal(t, "patched", v)
}

func TestPatchPackageWithoutStrings(t *testing.T) {
	data := buildPackage(t)
	out, err := PatchPackage(data, nil, nil)
	require.NoError(t, err)

	r, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)
	for _, f := range r.File {
		assert.NotEqual(t, "xl/sharedStrings.xml", f.Name, "no string part is added for an empty table")
	}
	pkg, err := ReadPackage(out)
	require.NoError(t, err)
	assert.Equal(t, "1", pkg.Sheets[0].Worksheet.SheetData.Row(1).Cell(0).V)
}

func TestPatchPackageRejectsNonZip(t *testing.T) {
	_, err := PatchPackage([]byte("nope"), nil, nil)
	assert.Error(t, err)
}

func TestFreeRelID(t *testing.T) {
	assert.Equal(t, "rId1", freeRelID(nil))
	assert.Equal(t, "rId5", freeRelID([]Relationship{{ID: "rId2"}, {ID: "rId4"}, {ID: "custom"}}))
}

func TestEncodeSharedStrings(t *testing.T) {
	got := string(encodeSharedStrings([]string{"a<b"}))
	assert.Contains(t, got, `count="1" uniqueCount="1"`)
	assert.Contains(t, got, `<si><t xml:space="preserve">a&lt;b</t></si>`)
}
