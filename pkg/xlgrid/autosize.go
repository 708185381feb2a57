package xlgrid

import (
	"math"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// TextFont describes the font a string is rendered in.
type TextFont struct {
	Name   string
	Points float64
	Bold   bool
	Italic bool
}

// TextMeasurer renders strings for AutoSizeColumn.
type TextMeasurer interface {
	// Width returns the advance width of text in pixels at 72 dpi.
	Width(f TextFont, text string) float64
}

// goMeasurer measures with the Go font family whatever font name is asked
// for; widths track the metrics of proportional sans-serif faces closely
// enough for column sizing.
type goMeasurer struct {
	mu    sync.Mutex
	fonts [4]*opentype.Font
	faces map[TextFont]font.Face
}

var (
	sharedMeasurer     *goMeasurer
	sharedMeasurerOnce sync.Once
)

func defaultMeasurer() TextMeasurer {
	sharedMeasurerOnce.Do(func() {
		m := &goMeasurer{faces: map[TextFont]font.Face{}}
		for i, ttf := range [][]byte{goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF} {
			f, err := opentype.Parse(ttf)
			if err != nil {
				panic(err)
			}
			m.fonts[i] = f
		}
		sharedMeasurer = m
	})
	return sharedMeasurer
}

func (m *goMeasurer) face(f TextFont) (font.Face, error) {
	f.Name = ""
	if face, ok := m.faces[f]; ok {
		return face, nil
	}
	variant := 0
	if f.Bold {
		variant |= 1
	}
	if f.Italic {
		variant |= 2
	}
	face, err := opentype.NewFace(m.fonts[variant], &opentype.FaceOptions{Size: f.Points, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, err
	}
	m.faces[f] = face
	return face, nil
}

func (m *goMeasurer) Width(f TextFont, text string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	face, err := m.face(f)
	if err != nil {
		return 0
	}
	return fixedToFloat(font.MeasureString(face, text))
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

// AutoSizeColumn sets the width of column col to fit its widest cell.
// Cells inside merged regions count only when useMergedCells is set, and
// then share their width across the merged columns. The result is in
// 1/256 character units, clamped to 255 characters; a column with nothing
// to measure keeps its width.
func (sh *Sheet) AutoSizeColumn(col int, useMergedCells bool) error {
	const op = "autoSizeColumn"
	if err := sh.checkColumn(op, col); err != nil {
		return err
	}
	m := sh.wb.opts.measurer()
	def := sh.wb.styles.font(sh.wb.styles.resolve(sh.wb.styles.defaultStyle).Font)
	charWidth := m.Width(textFont(def), "0")
	if charWidth <= 0 {
		return newOpError(sh.name, op, ErrArgument, "measurer returned no width for the default font")
	}

	widest := -1.0
	for _, r := range sh.rows {
		c := r.Cell(col)
		if c == nil {
			continue
		}
		span := 1
		if rng, ok := sh.mergedRegionAt(r.RowNum(), col); ok {
			if !useMergedCells {
				continue
			}
			if rng.FirstRow != r.RowNum() || rng.FirstCol != col {
				// merged cells show the content of the top-left cell only
				continue
			}
			span = rng.LastCol - rng.FirstCol + 1
		}
		text := sh.displayText(c)
		if text == "" {
			continue
		}
		cf := sh.wb.styles.resolve(c.store.style())
		tf := textFont(sh.wb.styles.font(cf.Font))
		width := 0.0
		for _, line := range strings.Split(text, "\n") {
			width = max(width, m.Width(tf, line))
		}
		if rot := cf.Rotation; rot != 0 && rot != RotationVertical {
			rad := float64(rot) * math.Pi / 180
			width = math.Abs(width*math.Cos(rad)) + math.Abs(tf.Points*math.Sin(rad))
		}
		width += float64(cf.Alignment.Indent) * 3 * charWidth
		widest = max(widest, width/float64(span)/charWidth+1)
	}
	if widest < 0 {
		return nil
	}
	units := int(widest * 256)
	if limit := sh.wb.version.MaxColumnWidth * 256; units > limit {
		units = limit
	}
	ci := sh.col(col)
	ci.Width = units
	sh.setCol(col, ci)
	return nil
}

func textFont(rec fontRecord) TextFont {
	return TextFont{Name: rec.Name, Points: float64(rec.Height) / 20, Bold: rec.Bold, Italic: rec.Italic}
}

// displayText approximates the rendered text of c. Numbers are measured
// unformatted except for dates, which are measured by their format code.
func (sh *Sheet) displayText(c *Cell) string {
	text := c.Text()
	v := c.valueOf()
	if v.Type != CellNumeric {
		return text
	}
	f := sh.wb.styles.resolve(c.store.style())
	code, _ := sh.wb.styles.formats.code(f.NumFmt)
	if isDateFormat(f.NumFmt, code) {
		return strings.NewReplacer(`"`, "", `\`, "", "[", "", "]", "").Replace(code)
	}
	return text
}
