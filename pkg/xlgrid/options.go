// Package xlgrid provides one object model of workbooks, sheets, rows, cells
// and styles over two file formats: the BIFF8 binary format (.xls) and the
// OOXML format (.xlsx).
//
// Styles and fonts are handles into workbook-wide tables. Two cells that use
// the same CellStyle share one table slot, so a setter called through either
// handle changes both cells; CloneStyleFrom copies the formatting into a
// separate slot.
package xlgrid

import (
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/formula"
	"gopkg.in/yaml.v3"
)

// ShiftOverflow selects what ShiftRows and ShiftColumns do with rows or
// columns that would be pushed past the edge of the sheet.
type ShiftOverflow string

const (
	// OverflowFail rejects the whole shift before anything moves.
	OverflowFail ShiftOverflow = "fail"
	// OverflowDiscard drops the rows or columns that leave the sheet and
	// logs a warning for each.
	OverflowDiscard ShiftOverflow = "discard"
)

// Options configures workbook behaviour.
type Options struct {
	// ShiftOverflow is the policy for rows shifted past the last row.
	ShiftOverflow ShiftOverflow `yaml:"shift_overflow" validate:"oneof=fail discard"`
	// AutoSizeMergedCells makes AutoSizeColumn count cells inside merged
	// regions by default.
	AutoSizeMergedCells bool `yaml:"auto_size_merged_cells"`
	// DefaultFontName is the font of the default style of new workbooks.
	DefaultFontName string `yaml:"default_font_name" validate:"required,max=31"`
	// DefaultFontHeight is the default font size in twips (1/20 point).
	DefaultFontHeight int `yaml:"default_font_height" validate:"min=20,max=8191"`
	// LogLevel is a logrus level name used when Logger is nil.
	LogLevel string `yaml:"log_level" validate:"oneof=panic fatal error warn warning info debug trace"`

	// Logger receives diagnostics. If nil, a stderr logger at LogLevel.
	Logger *logrus.Logger `yaml:"-" validate:"-"`
	// Measurer renders text widths for AutoSizeColumn. If nil, Go fonts.
	Measurer TextMeasurer `yaml:"-" validate:"-"`
	// FormulaParser tokenizes formulas. If nil, formula.EFPParser.
	FormulaParser formula.Parser `yaml:"-" validate:"-"`
}

// DefaultOptions returns the default workbook options.
func DefaultOptions() Options {
	return Options{
		ShiftOverflow:     OverflowFail,
		DefaultFontName:   "Arial",
		DefaultFontHeight: 200,
		LogLevel:          "warn",
	}
}

// LoadOptions reads options from a YAML file. Keys missing from the file keep
// their default values.
func LoadOptions(path string) (Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return Options{}, err
	}
	defer f.Close()
	return DecodeOptions(f)
}

// DecodeOptions reads YAML options from r and validates them.
func DecodeOptions(r io.Reader) (Options, error) {
	opts := DefaultOptions()
	if err := yaml.NewDecoder(r).Decode(&opts); err != nil && err != io.EOF {
		return Options{}, fmt.Errorf("decode options: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

var validate = validator.New()

// Validate checks the option values.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: option %s failed on %q", ErrArgument, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrArgument, err)
	}
	return nil
}

// logger returns the configured logger or builds one from LogLevel.
func (o Options) logger() *logrus.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	l := logrus.New()
	l.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(o.LogLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	l.SetLevel(level)
	return l
}

func (o Options) parser() formula.Parser {
	if o.FormulaParser != nil {
		return o.FormulaParser
	}
	return formula.EFPParser{}
}

func (o Options) measurer() TextMeasurer {
	if o.Measurer != nil {
		return o.Measurer
	}
	return defaultMeasurer()
}

// withDefaults fills zero values so that a literal Options{} behaves like
// DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ShiftOverflow == "" {
		o.ShiftOverflow = d.ShiftOverflow
	}
	if o.DefaultFontName == "" {
		o.DefaultFontName = d.DefaultFontName
	}
	if o.DefaultFontHeight == 0 {
		o.DefaultFontHeight = d.DefaultFontHeight
	}
	if o.LogLevel == "" {
		o.LogLevel = d.LogLevel
	}
	return o
}
