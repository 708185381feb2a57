package xlgrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/cellref"
)

func TestCreateName(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatOOXML)

	n, err := wb.CreateName("Rate", "=Sheet1!$B$1", ScopeWorkbook)
	require.NoError(t, err)
	assert.Equal(t, "Sheet1!$B$1", n.RefersTo)
	assert.Same(t, n, wb.Name("RATE", ScopeWorkbook))
	assert.Nil(t, wb.Name("Rate", 0), "scopes are separate")

	local, err := wb.CreateName("Rate", "Sheet1!$C$1", 0)
	require.NoError(t, err)
	assert.Same(t, local, wb.Name("rate", 0))

	_, err = wb.CreateName("rate", "1", ScopeWorkbook)
	assert.ErrorIs(t, err, ErrArgument)
	for _, bad := range []string{"", "1st", "A1", "R", "has space", "XFD1048576"} {
		_, err := wb.CreateName(bad, "1", ScopeWorkbook)
		assert.ErrorIs(t, err, ErrArgument, bad)
	}
	_, err = wb.CreateName("Other", "1", 3)
	assert.ErrorIs(t, err, ErrArgument)

	require.NoError(t, wb.RemoveName(n))
	assert.Nil(t, wb.Name("Rate", ScopeWorkbook))
	assert.Len(t, wb.Names(), 1)
}

func TestPrintArea(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatBIFF8)
	_, err := wb.CreateSheet("My Sheet")
	require.NoError(t, err)

	require.NoError(t, wb.SetPrintArea(1, cellref.MustRange("A1:D10")))
	assert.Equal(t, "'My Sheet'!$A$1:$D$10", wb.PrintArea(1))
	assert.Equal(t, "", wb.PrintArea(0))

	require.NoError(t, wb.SetPrintArea(1, cellref.MustRange("B2:C3")))
	assert.Equal(t, "'My Sheet'!$B$2:$C$3", wb.PrintArea(1))
	assert.Len(t, wb.Names(), 1, "setting a print area replaces the old one")
	assert.True(t, wb.Names()[0].IsBuiltin())

	require.NoError(t, wb.SetRepeatingRows(1, 2, 0))
	assert.Equal(t, "'My Sheet'!$1:$3", wb.RepeatingRows(1))

	wb.RemovePrintArea(1)
	assert.Equal(t, "", wb.PrintArea(1))
	assert.ErrorIs(t, wb.SetPrintArea(5, cellref.MustRange("A1")), ErrNotFound)
}

func TestPageSetup(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatOOXML)
	sh := wb.SheetAt(0)

	require.NoError(t, sh.SetRowBreak(9))
	require.NoError(t, sh.SetRowBreak(4))
	require.NoError(t, sh.SetRowBreak(9))
	assert.Equal(t, []int{4, 9}, sh.RowBreaks())
	assert.True(t, sh.IsRowBroken(4))
	sh.RemoveRowBreak(4)
	assert.False(t, sh.IsRowBroken(4))

	require.NoError(t, sh.SetColumnBreak(3))
	assert.Equal(t, []int{3}, sh.ColumnBreaks())

	require.NoError(t, sh.CreateFreezePane(1, 2))
	cols, rows := sh.FreezePane()
	assert.Equal(t, 1, cols)
	assert.Equal(t, 2, rows)

	sh.Protect("secret")
	assert.True(t, sh.IsProtected())
	assert.NotZero(t, sh.PasswordHash())
	sh.Unprotect()
	assert.False(t, sh.IsProtected())
}

func TestPasswordVerifier(t *testing.T) {
	// values as written by Excel for these passwords
	assert.Equal(t, uint16(0xCBEB), passwordVerifier("test"))
	assert.Equal(t, uint16(0x83AF), passwordVerifier("password"))
}

func TestHyperlinksAndComments(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatOOXML)
	sh := wb.SheetAt(0)

	link, err := sh.SetHyperlink(0, 0, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", link.URL)
	local, err := sh.SetHyperlink(1, 0, "#Sheet1!C3")
	require.NoError(t, err)
	assert.Equal(t, "Sheet1!C3", local.Location)
	assert.Len(t, sh.Hyperlinks(), 2)

	_, err = sh.SetHyperlink(0, 0, "https://example.org")
	require.NoError(t, err)
	assert.Len(t, sh.Hyperlinks(), 2, "a new link replaces the one at the same cell")
	_, err = sh.SetHyperlink(0, 1, " ")
	assert.ErrorIs(t, err, ErrArgument)

	cm, err := sh.SetComment(2, 2, "ann", "check this")
	require.NoError(t, err)
	assert.Same(t, cm, sh.Comment(2, 2))
	sh.RemoveComment(2, 2)
	assert.Empty(t, sh.Comments())

	hssf, _ := newTestWorkbook(t, FormatBIFF8)
	_, err = hssf.SheetAt(0).SetComment(0, 0, "ann", "note")
	assert.ErrorIs(t, err, ErrUnsupported)
}
