package xlgrid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Palette indices with a fixed meaning.
const (
	// ColorBlack is the first entry of the default palette.
	ColorBlack = 8
	// ColorAutomatic is the system foreground colour.
	ColorAutomatic = 64
	// ColorFontAutomatic is the automatic colour of fonts.
	ColorFontAutomatic = 0x7FFF
)

// palette maps colour indices 8..63 to RGB values. Indices 0..7 repeat
// the first eight entries; 64 and 65 are the system colours.
type palette struct {
	custom []uint32
}

func parseRGB(hex string) (uint32, bool) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) == 8 {
		hex = hex[2:]
	}
	if len(hex) != 6 {
		return 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	return uint32(v), err == nil
}

// RGB returns the colour of idx as 0xRRGGBB.
func (p *palette) RGB(idx int) (uint32, bool) {
	if idx >= 8 && idx-8 < len(p.custom) {
		return p.custom[idx-8], true
	}
	if idx < 0 || idx >= len(excelize.IndexedColorMapping) {
		return 0, false
	}
	return parseRGB(excelize.IndexedColorMapping[idx])
}

// Hex returns the colour of idx as RRGGBB, or "" for system colours.
func (p *palette) Hex(idx int) string {
	if idx >= ColorAutomatic {
		return ""
	}
	rgb, ok := p.RGB(idx)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%06X", rgb)
}

// Nearest returns the palette index in 8..63 closest to hex. Unreadable
// values map to ColorAutomatic.
func (p *palette) Nearest(hex string) int {
	want, ok := parseRGB(hex)
	if !ok {
		return ColorAutomatic
	}
	best, bestDist := ColorAutomatic, -1
	for idx := 8; idx < ColorAutomatic; idx++ {
		rgb, _ := p.RGB(idx)
		dist := colorDistance(want, rgb)
		if bestDist < 0 || dist < bestDist {
			best, bestDist = idx, dist
		}
		if dist == 0 {
			break
		}
	}
	return best
}

func colorDistance(a, b uint32) int {
	dr := int(a>>16&0xFF) - int(b>>16&0xFF)
	dg := int(a>>8&0xFF) - int(b>>8&0xFF)
	db := int(a&0xFF) - int(b&0xFF)
	return dr*dr + dg*dg + db*db
}
