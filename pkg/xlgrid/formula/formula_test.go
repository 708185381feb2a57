package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"=A1+1", "A1+1"},
		{"SUM(A1:B2)", "SUM(A1:B2)"},
		{`IF(A1>0,"a""b",B1)`, `IF(A1>0,"a""b",B1)`},
		{"{1,2;3,4}", "{1,2;3,4}"},
		{"SUM({1,2},3)", "SUM({1,2},3)"},
		{"'My Sheet'!A1*2", "'My Sheet'!A1*2"},
		{"Sheet1!#REF!+1", "Sheet1!#REF!+1"},
		{"-A1%", "-A1%"},
	}
	p := EFPParser{}
	for _, tt := range tests {
		got, err := Normalize(p, tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, got, tt.input)
	}

	_, err := Normalize(p, "")
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		input    string
		expected Ref
	}{
		{"A7", Ref{Row1: 6, Col1: 0, Row2: 6, Col2: 0}},
		{"$B$2:C$3", Ref{Row1: 1, Col1: 1, Row2: 2, Col2: 2, AbsRow1: true, AbsCol1: true, AbsRow2: true, Area: true}},
		{"Data!A:A", Ref{Sheet: "Data", Row1: -1, Col1: 0, Row2: -1, Col2: 0, Area: true}},
		{"$1:$3", Ref{Row1: 0, Col1: -1, Row2: 2, Col2: -1, AbsRow1: true, AbsRow2: true, Area: true}},
		{"'My Sheet'!D4", Ref{Sheet: "My Sheet", Row1: 3, Col1: 3, Row2: 3, Col2: 3}},
	}
	for _, tt := range tests {
		ref, ok := ParseRef(tt.input)
		require.True(t, ok, tt.input)
		assert.Equal(t, tt.expected, ref, tt.input)
	}

	for _, name := range []string{"Rate", "SUM", "A", "A1:B", "[1]Sheet1!A1", "Tax_2024"} {
		_, ok := ParseRef(name)
		assert.False(t, ok, name)
	}
}

func TestRefString(t *testing.T) {
	ref, ok := ParseRef("'My Sheet'!$A$1:B2")
	require.True(t, ok)
	assert.Equal(t, "'My Sheet'!$A$1:B2", ref.String())
	assert.Equal(t, "'My Sheet'!#REF!", ref.RefError())

	ref, ok = ParseRef("A:C")
	require.True(t, ok)
	assert.Equal(t, "A:C", ref.String())
}

func TestQuoteSheetName(t *testing.T) {
	assert.Equal(t, "Sheet1", QuoteSheetName("Sheet1"))
	assert.Equal(t, "'My Sheet'", QuoteSheetName("My Sheet"))
	assert.Equal(t, "'Bob''s'", QuoteSheetName("Bob's"))
	assert.Equal(t, "'A1'", QuoteSheetName("A1"))
}

func TestShifterMovesBand(t *testing.T) {
	s := &Shifter{Sheet: "Sheet1", Axis: Rows, First: 4, Last: 9, Amount: 3, Max: 65535}

	got, changed, err := s.Shift("A7*2", "Sheet1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "A10*2", got)

	got, changed, err = s.Shift("A2+A20", "Sheet1")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "A2+A20", got)

	// rows 11..13 are overwritten by the band
	got, _, err = s.Shift("B8+B12+B14", "Sheet1")
	require.NoError(t, err)
	assert.Equal(t, "B11+#REF!+B14", got)
}

func TestShifterSheetScope(t *testing.T) {
	s := &Shifter{Sheet: "Data", Axis: Rows, First: 0, Last: 10, Amount: 2, Max: 1048575}

	got, changed, err := s.Shift("A1+Data!A1", "Other")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "A1+Data!A3", got)

	got, _, err = s.Shift("SUM(data!A1:A5)", "")
	require.NoError(t, err)
	assert.Equal(t, "SUM(data!A3:A7)", got)

	got, changed, err = s.Shift("A1", "")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "A1", got)
}

func TestShifterOutOfBounds(t *testing.T) {
	s := &Shifter{Sheet: "S", Axis: Rows, First: 65530, Last: 65535, Amount: 5, Max: 65535}
	got, _, err := s.Shift("A65533+A65531", "S")
	require.NoError(t, err)
	assert.Equal(t, "#REF!+A65536", got)

	up := &Shifter{Sheet: "S", Axis: Rows, First: 2, Last: 4, Amount: -5, Max: 65535}
	got, _, err = up.Shift("S!C4", "")
	require.NoError(t, err)
	assert.Equal(t, "S!#REF!", got)
}

func TestShifterAreas(t *testing.T) {
	tests := []struct {
		first, last, amount int
		input, expected     string
	}{
		// band encloses the area
		{4, 9, 3, "SUM(A5:A10)", "SUM(A8:A13)"},
		// band holds the last row, moving down expands
		{4, 9, 3, "SUM(A1:A6)", "SUM(A1:A9)"},
		// band holds the first row, moving up expands
		{4, 9, -2, "SUM(A6:A20)", "SUM(A4:A20)"},
		// destination overwrites the whole area
		{0, 1, 5, "SUM(A6:A7)", "SUM(#REF!)"},
		// destination clips the top of the area
		{0, 2, 2, "SUM(A4:A10)", "SUM(A6:A10)"},
		// whole columns are untouched by row shifts
		{0, 5, 2, "SUM(A:A)", "SUM(A:A)"},
		// whole rows move with the band
		{0, 5, 2, "SUM(2:3)", "SUM(4:5)"},
	}
	for _, tt := range tests {
		s := &Shifter{Sheet: "S", Axis: Rows, First: tt.first, Last: tt.last, Amount: tt.amount, Max: 1048575}
		got, _, err := s.Shift(tt.input, "S")
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, got, tt.input)
	}
}

func TestShifterColumns(t *testing.T) {
	s := &Shifter{Sheet: "S", Axis: Columns, First: 1, Last: 2, Amount: 2, Max: 16383}
	got, _, err := s.Shift("B1+C5+A1+SUM(1:1)", "S")
	require.NoError(t, err)
	assert.Equal(t, "D1+E5+A1+SUM(1:1)", got)
}

func TestTranslate(t *testing.T) {
	got, err := Translate(nil, "A1+$B$1+C$2", 2, 1, 65535, 255)
	require.NoError(t, err)
	assert.Equal(t, "B3+$B$1+D$2", got)

	got, err = Translate(nil, "A1*2", -1, 0, 65535, 255)
	require.NoError(t, err)
	assert.Equal(t, "#REF!*2", got)
}

func TestRenameAndInvalidateSheet(t *testing.T) {
	got, changed, err := RenameSheet(nil, "Old!A1+'Old'!B2:C3+A1", "Old", "New Name")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "'New Name'!A1+'New Name'!B2:C3+A1", got)

	got, changed, err = InvalidateSheet(nil, "SUM(Gone!A1:A3)+Kept!A1", "Gone")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "SUM(#REF!)+Kept!A1", got)
}

func TestReferences(t *testing.T) {
	refs, err := References(nil, "SUM(A1:B2)+Rate*Sheet2!C3")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "A1:B2", refs[0].String())
	assert.Equal(t, "Sheet2!C3", refs[1].String())
}
