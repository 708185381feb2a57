package xlgrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStyleAliasing(t *testing.T) {
	for _, format := range bothFormats {
		wb, _ := newTestWorkbook(t, format)
		sh := wb.SheetAt(0)
		a := setCell(t, sh, 0, 0, "a")
		b := setCell(t, sh, 0, 1, "b")

		style, err := wb.CreateCellStyle()
		require.NoError(t, err)
		require.NoError(t, a.SetStyle(style))
		require.NoError(t, b.SetStyle(style))

		require.NoError(t, a.Style().SetFillPattern(FillSolid))
		assert.Equal(t, FillSolid, b.Style().Fill().Pattern, "%s: both cells share one slot", format)

		clone, err := wb.CreateCellStyle()
		require.NoError(t, err)
		require.NoError(t, clone.CloneStyleFrom(b.Style()))
		require.NoError(t, b.SetStyle(clone))
		assert.True(t, a.Style().Equal(b.Style()))

		require.NoError(t, b.Style().SetAlignment(Alignment{Wrap: true}))
		assert.False(t, a.Style().Alignment().Wrap, "%s: clone breaks the alias", format)
		assert.False(t, a.Style().Equal(b.Style()))
	}
}

func TestCloneStyleAcrossWorkbooks(t *testing.T) {
	src, _ := newTestWorkbook(t, FormatOOXML)
	dst, _ := newTestWorkbook(t, FormatBIFF8)

	font := src.CreateFont()
	font.SetName("Courier New")
	require.NoError(t, font.SetHeight(240))
	font.SetBold(true)
	style, err := src.CreateCellStyle()
	require.NoError(t, err)
	require.NoError(t, style.SetFont(font))
	require.NoError(t, style.SetDataFormat(src.DataFormat("0.000%")))

	fonts := dst.NumFonts()
	copy1, err := dst.CreateCellStyle()
	require.NoError(t, err)
	require.NoError(t, copy1.CloneStyleFrom(style))
	assert.Equal(t, "Courier New", copy1.Font().Name())
	assert.True(t, copy1.Font().Bold())
	assert.Equal(t, "0.000%", copy1.DataFormatString())
	assert.True(t, copy1.Equal(style))
	assert.Equal(t, fonts+1, dst.NumFonts())

	copy2, err := dst.CreateCellStyle()
	require.NoError(t, err)
	require.NoError(t, copy2.CloneStyleFrom(style))
	assert.Equal(t, copy1.Font().Index(), copy2.Font().Index(), "fonts are deduplicated by content")
	assert.Equal(t, copy1.DataFormat(), copy2.DataFormat(), "formats are deduplicated by code")
	assert.Equal(t, fonts+1, dst.NumFonts())

	assert.ErrorIs(t, copy2.CloneStyleFrom(nil), ErrArgument)
}

func TestRotation(t *testing.T) {
	for _, format := range bothFormats {
		wb, _ := newTestWorkbook(t, format)
		style, err := wb.CreateCellStyle()
		require.NoError(t, err)
		for _, deg := range []int{-90, -45, 0, 30, 90, RotationVertical} {
			require.NoError(t, style.SetRotation(deg), deg)
			assert.Equal(t, deg, style.Rotation(), "%s: %d", format, deg)
		}
		for _, bad := range []int{-91, 91, 180, 254} {
			assert.ErrorIs(t, style.SetRotation(bad), ErrArgument, bad)
		}
	}
}

func TestRotationEncoding(t *testing.T) {
	tests := []struct {
		deg int
		raw uint8
	}{
		{0, 0},
		{45, 45},
		{90, 90},
		{-1, 91},
		{-45, 135},
		{-90, 180},
		{RotationVertical, 0xFF},
	}
	for _, tt := range tests {
		raw, err := encodeRotation(tt.deg)
		require.NoError(t, err, tt.deg)
		assert.Equal(t, tt.raw, raw, tt.deg)
		assert.Equal(t, tt.deg, decodeRotation(raw), tt.deg)
	}
	_, err := encodeRotation(91)
	assert.ErrorIs(t, err, ErrArgument)
}

func TestReconcileFill(t *testing.T) {
	tests := []struct {
		in, out Fill
	}{
		{
			Fill{Pattern: FillSolid, Foreground: ColorAutomatic, Background: 10},
			Fill{Pattern: FillSolid, Foreground: ColorAutomatic, Background: ColorAutomatic + 1},
		},
		{
			Fill{Pattern: FillSolid, Foreground: 10, Background: ColorAutomatic + 1},
			Fill{Pattern: FillSolid, Foreground: 10, Background: ColorAutomatic},
		},
		{
			Fill{Pattern: FillSolid, Foreground: 10, Background: 12},
			Fill{Pattern: FillSolid, Foreground: 10, Background: 12},
		},
	}
	for _, tt := range tests {
		f := tt.in
		reconcileFill(&f)
		assert.Equal(t, tt.out, f)
	}
}

func TestFillSurvivesBIFF8Store(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatBIFF8)
	style, err := wb.CreateCellStyle()
	require.NoError(t, err)

	require.NoError(t, style.SetFill(Fill{Pattern: FillSolid, Foreground: ColorAutomatic, Background: 10}))
	assert.Equal(t, ColorAutomatic+1, style.Fill().Background)

	require.NoError(t, style.SetFillForeground(10))
	assert.Equal(t, ColorAutomatic, style.Fill().Background)
}

func TestStyleSetterValidation(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatOOXML)
	style, err := wb.CreateCellStyle()
	require.NoError(t, err)

	assert.ErrorIs(t, style.SetAlignment(Alignment{Indent: 16}), ErrArgument)
	assert.ErrorIs(t, style.SetBorder(Border{Left: BorderStyle(99)}), ErrArgument)
	assert.ErrorIs(t, style.SetFill(Fill{Pattern: FillPattern(-1)}), ErrArgument)

	require.NoError(t, style.SetBorder(Border{Left: BorderThin, LeftColor: 10}))
	assert.Equal(t, BorderThin, style.Border().Left)
	require.NoError(t, style.SetProtection(Protection{Locked: false, Hidden: true}))
	assert.True(t, style.Protection().Hidden)
}

func TestNamedStyleInheritance(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatBIFF8)
	heading, err := wb.CreateNamedStyle("Heading")
	require.NoError(t, err)
	require.NoError(t, heading.SetAlignment(Alignment{Horizontal: HAlignCenter}))
	assert.True(t, heading.IsNamedStyle())
	assert.Equal(t, "Heading", heading.Name())

	_, err = wb.CreateNamedStyle("Heading")
	assert.ErrorIs(t, err, ErrArgument)

	style, err := wb.CreateCellStyle()
	require.NoError(t, err)
	require.NoError(t, style.SetParent(heading))
	assert.Equal(t, HAlignCenter, style.Alignment().Horizontal)
	assert.Equal(t, heading.Index(), style.Parent().Index())

	found, err := wb.NamedStyle("Heading")
	require.NoError(t, err)
	assert.Equal(t, heading.Index(), found.Index())
	_, err = wb.NamedStyle("Missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDataFormats(t *testing.T) {
	wb, _ := newTestWorkbook(t, FormatOOXML)
	assert.Equal(t, 14, wb.DataFormat("m/d/yy"), "builtin codes keep their id")
	custom := wb.DataFormat("yyyy-mm-dd hh:mm")
	assert.GreaterOrEqual(t, custom, 164)
	assert.Equal(t, custom, wb.DataFormat("yyyy-mm-dd hh:mm"))

	style, err := wb.CreateCellStyle()
	require.NoError(t, err)
	require.NoError(t, style.SetDataFormat(custom))
	assert.True(t, style.IsDateFormat())
	assert.Equal(t, "yyyy-mm-dd hh:mm", style.DataFormatString())
}
