package xssf

import "encoding/xml"

// Worksheet maps the parts of a worksheet document the grid reads directly.
// Views, page layout, comments and styles are left to excelize.
type Worksheet struct {
	XMLName         xml.Name         `xml:"worksheet"`
	SheetPr         *SheetPr         `xml:"sheetPr"`
	SheetFormatPr   *SheetFormatPr   `xml:"sheetFormatPr"`
	Cols            *Cols            `xml:"cols"`
	SheetData       SheetData        `xml:"sheetData"`
	SheetProtection *SheetProtection `xml:"sheetProtection"`
	MergeCells      *MergeCells      `xml:"mergeCells"`
	Hyperlinks      *Hyperlinks      `xml:"hyperlinks"`
	RowBreaks       *Breaks          `xml:"rowBreaks"`
	ColBreaks       *Breaks          `xml:"colBreaks"`
}

// SheetPr maps sheetPr.
type SheetPr struct {
	OutlinePr *struct {
		SummaryBelow *bool `xml:"summaryBelow,attr"`
		SummaryRight *bool `xml:"summaryRight,attr"`
	} `xml:"outlinePr"`
	PageSetUpPr *struct {
		FitToPage bool `xml:"fitToPage,attr"`
	} `xml:"pageSetUpPr"`
}

// SheetFormatPr maps sheetFormatPr.
type SheetFormatPr struct {
	DefaultColWidth  float64 `xml:"defaultColWidth,attr,omitempty"`
	DefaultRowHeight float64 `xml:"defaultRowHeight,attr"`
	OutlineLevelRow  uint8   `xml:"outlineLevelRow,attr,omitempty"`
	OutlineLevelCol  uint8   `xml:"outlineLevelCol,attr,omitempty"`
}

// Cols maps cols.
type Cols struct {
	Col []Col `xml:"col"`
}

// Col maps a col element; Min and Max are one-based.
type Col struct {
	Min          int     `xml:"min,attr"`
	Max          int     `xml:"max,attr"`
	Width        float64 `xml:"width,attr,omitempty"`
	Style        int     `xml:"style,attr,omitempty"`
	Hidden       bool    `xml:"hidden,attr,omitempty"`
	CustomWidth  bool    `xml:"customWidth,attr,omitempty"`
	OutlineLevel uint8   `xml:"outlineLevel,attr,omitempty"`
	Collapsed    bool    `xml:"collapsed,attr,omitempty"`
}

// SheetProtection maps sheetProtection.
type SheetProtection struct {
	Sheet    bool   `xml:"sheet,attr"`
	Password string `xml:"password,attr,omitempty"`
}

// MergeCells maps mergeCells.
type MergeCells struct {
	Cells []struct {
		Ref string `xml:"ref,attr"`
	} `xml:"mergeCell"`
}

// Hyperlinks maps hyperlinks.
type Hyperlinks struct {
	Links []Hyperlink `xml:"hyperlink"`
}

// Hyperlink maps a hyperlink; external targets live in the sheet
// relationships under RID.
type Hyperlink struct {
	Ref      string `xml:"ref,attr"`
	RID      string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr,omitempty"`
	Location string `xml:"location,attr,omitempty"`
	Display  string `xml:"display,attr,omitempty"`
}

// Breaks maps rowBreaks and colBreaks. A break with ID n sits after the
// n-th (one-based) row or column.
type Breaks struct {
	Brk []struct {
		ID  int  `xml:"id,attr"`
		Man bool `xml:"man,attr"`
	} `xml:"brk"`
}

// ParseWorksheet decodes a worksheet part and normalises its sheet data.
func ParseWorksheet(data []byte) (*Worksheet, error) {
	var ws Worksheet
	if err := xml.Unmarshal(data, &ws); err != nil {
		return nil, err
	}
	if err := ws.SheetData.Normalize(); err != nil {
		return nil, err
	}
	return &ws, nil
}
