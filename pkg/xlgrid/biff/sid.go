// Package biff reads and writes the BIFF8 record streams stored in legacy
// binary workbooks, and the OLE2 compound file that carries them.
package biff

// Record identifiers (sids) used by the reader and writer.
const (
	SidFormula           uint16 = 0x0006
	SidEOF               uint16 = 0x000A
	SidProtect           uint16 = 0x0012
	SidPassword          uint16 = 0x0013
	SidExternSheet       uint16 = 0x0017
	SidName              uint16 = 0x0018
	SidNote              uint16 = 0x001C
	SidDateMode          uint16 = 0x0022
	SidLeftMargin        uint16 = 0x0026
	SidRightMargin       uint16 = 0x0027
	SidTopMargin         uint16 = 0x0028
	SidBottomMargin      uint16 = 0x0029
	SidVerticalBreaks    uint16 = 0x001A
	SidHorizontalBreaks  uint16 = 0x001B
	SidFont              uint16 = 0x0031
	SidContinue          uint16 = 0x003C
	SidWindow1           uint16 = 0x003D
	SidPane              uint16 = 0x0041
	SidCodepage          uint16 = 0x0042
	SidDefColWidth       uint16 = 0x0055
	SidWSBool            uint16 = 0x0081
	SidGuts              uint16 = 0x0080
	SidBoundSheet        uint16 = 0x0085
	SidPalette           uint16 = 0x0092
	SidSetup             uint16 = 0x00A1
	SidMulRK             uint16 = 0x00BD
	SidMulBlank          uint16 = 0x00BE
	SidMergedCells       uint16 = 0x00E5
	SidXF                uint16 = 0x00E0
	SidSST               uint16 = 0x00FC
	SidLabelSST          uint16 = 0x00FD
	SidExtSST            uint16 = 0x00FF
	SidSupBook           uint16 = 0x01AE
	SidHLink             uint16 = 0x01B8
	SidDimensions        uint16 = 0x0200
	SidBlank             uint16 = 0x0201
	SidNumber            uint16 = 0x0203
	SidLabel             uint16 = 0x0204
	SidBoolErr           uint16 = 0x0205
	SidString            uint16 = 0x0207
	SidRow               uint16 = 0x0208
	SidArray             uint16 = 0x0221
	SidDefaultRowHeight  uint16 = 0x0225
	SidWindow2           uint16 = 0x023E
	SidRK                uint16 = 0x027E
	SidStyle             uint16 = 0x0293
	SidFormat            uint16 = 0x041E
	SidSharedFormula     uint16 = 0x04BC
	SidBOF               uint16 = 0x0809
	SidColInfo           uint16 = 0x007D
	SidUnsupportedMarker uint16 = 0xFFFF
)

// BOF substream types.
const (
	bofGlobals   uint16 = 0x0005
	bofWorksheet uint16 = 0x0010
	bofChart     uint16 = 0x0020
	biff8Version uint16 = 0x0600
)

// MaxRecordData is the largest payload a single record may carry before the
// rest spills into CONTINUE records.
const MaxRecordData = 8224

// Error codes stored in BOOLERR records and tErr tokens.
var errorCodes = map[byte]string{
	0x00: "#NULL!",
	0x07: "#DIV/0!",
	0x0F: "#VALUE!",
	0x17: "#REF!",
	0x1D: "#NAME?",
	0x24: "#NUM!",
	0x2A: "#N/A",
}

// ErrorText returns the display text of a BIFF error code.
func ErrorText(code byte) string {
	if s, ok := errorCodes[code]; ok {
		return s
	}
	return "#N/A"
}

// ErrorCode returns the BIFF error code of a display text such as "#DIV/0!".
func ErrorCode(text string) (byte, bool) {
	for code, s := range errorCodes {
		if s == text {
			return code, true
		}
	}
	return 0, false
}
