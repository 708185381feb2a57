package xlgrid

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOptions(t *testing.T) {
	opts, err := DecodeOptions(strings.NewReader(`
shift_overflow: discard
auto_size_merged_cells: true
default_font_name: Calibri
default_font_height: 220
log_level: debug
`))
	require.NoError(t, err)
	assert.Equal(t, OverflowDiscard, opts.ShiftOverflow)
	assert.True(t, opts.AutoSizeMergedCells)
	assert.Equal(t, "Calibri", opts.DefaultFontName)
	assert.Equal(t, 220, opts.DefaultFontHeight)
	assert.Equal(t, "debug", opts.LogLevel)
}

func TestDecodeOptionsDefaults(t *testing.T) {
	opts, err := DecodeOptions(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), opts)

	opts, err = DecodeOptions(strings.NewReader("default_font_name: Verdana\n"))
	require.NoError(t, err)
	assert.Equal(t, "Verdana", opts.DefaultFontName)
	assert.Equal(t, OverflowFail, opts.ShiftOverflow, "missing keys keep their defaults")
}

func TestDecodeOptionsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"overflow policy", "shift_overflow: wrap\n"},
		{"font height", "default_font_height: 5\n"},
		{"font name", "default_font_name: \"\"\n"},
		{"log level", "log_level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeOptions(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, ErrArgument)
		})
	}

	_, err := DecodeOptions(strings.NewReader("shift_overflow: [1, 2"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode options")
}

func TestLoadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xlgrid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shift_overflow: discard\n"), 0o600))

	opts, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, OverflowDiscard, opts.ShiftOverflow)

	_, err = LoadOptions(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOptionsWithDefaults(t *testing.T) {
	opts := Options{DefaultFontHeight: 240}.withDefaults()
	assert.Equal(t, OverflowFail, opts.ShiftOverflow)
	assert.Equal(t, "Arial", opts.DefaultFontName)
	assert.Equal(t, 240, opts.DefaultFontHeight)
	assert.NoError(t, opts.Validate())

	wb, err := NewWorkbook(FormatOOXML, Options{ShiftOverflow: "sideways"})
	assert.Nil(t, wb)
	assert.ErrorIs(t, err, ErrArgument)
}
