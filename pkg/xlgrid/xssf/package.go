package xssf

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrMissingPart indicates a package without a required part.
var ErrMissingPart = errors.New("missing package part")

// Package is the raw view of an xlsx package: sheet order, shared strings
// and the worksheet parts.
type Package struct {
	// Sheets lists the worksheets in workbook order.
	Sheets []SheetPart
	// SharedStrings is the shared string table in index order.
	SharedStrings []string
	// Date1904 reports the 1904 date system.
	Date1904 bool
}

// SheetPart is one worksheet of the package.
type SheetPart struct {
	// Name is the sheet name.
	Name string
	// Path is the part name inside the zip.
	Path string
	// State is "", "hidden" or "veryHidden".
	State string
	// Worksheet is the decoded part.
	Worksheet *Worksheet
	// Links maps hyperlink relationship ids to their targets.
	Links map[string]string
}

// Relationship maps one entry of a .rels part.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// sheetRef is one sheet entry of the workbook part with its resolved path.
type sheetRef struct {
	name  string
	state string
	path  string
	// grid is false for chart sheets and dialog sheets.
	grid bool
}

// workbookPart is the sheet list, relationships and date system of an xlsx
// package.
type workbookPart struct {
	sheets   []sheetRef
	rels     []Relationship
	date1904 bool
}

func readWorkbookPart(r *zip.Reader) (*workbookPart, error) {
	wbXML, err := readZipFile(r, "xl/workbook.xml")
	if err != nil {
		return nil, err
	}
	if wbXML == nil {
		return nil, fmt.Errorf("%w: xl/workbook.xml", ErrMissingPart)
	}
	var wb struct {
		WorkbookPr *struct {
			Date1904 bool `xml:"date1904,attr"`
		} `xml:"workbookPr"`
		Sheets []struct {
			Name  string `xml:"name,attr"`
			State string `xml:"state,attr"`
			RID   string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
		} `xml:"sheets>sheet"`
	}
	if err := xml.Unmarshal(wbXML, &wb); err != nil {
		return nil, fmt.Errorf("decode workbook.xml: %w", err)
	}
	relsXML, err := readZipFile(r, "xl/_rels/workbook.xml.rels")
	if err != nil {
		return nil, err
	}
	rels, err := parseRels(relsXML)
	if err != nil {
		return nil, fmt.Errorf("decode workbook relationships: %w", err)
	}
	part := &workbookPart{rels: rels, date1904: wb.WorkbookPr != nil && wb.WorkbookPr.Date1904}
	byID := make(map[string]Relationship, len(rels))
	for _, rel := range rels {
		byID[rel.ID] = rel
	}
	for _, sh := range wb.Sheets {
		ref := sheetRef{name: sh.Name, state: sh.State}
		if rel, ok := byID[sh.RID]; ok {
			ref.path = resolveRelativePath(rel.Target, "xl")
			ref.grid = strings.Contains(strings.ToLower(rel.Type), "worksheet")
		}
		part.sheets = append(part.sheets, ref)
	}
	return part, nil
}

// sharedStringsPath returns the part name of the shared string table, "" when
// the package has none.
func (p *workbookPart) sharedStringsPath() string {
	for _, rel := range p.rels {
		if strings.HasSuffix(rel.Type, "/sharedStrings") {
			return resolveRelativePath(rel.Target, "xl")
		}
	}
	return ""
}

// ReadPackage decodes the raw parts of an xlsx file held in data.
func ReadPackage(data []byte) (*Package, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	wb, err := readWorkbookPart(r)
	if err != nil {
		return nil, err
	}
	pkg := &Package{Date1904: wb.date1904}
	if sstPath := wb.sharedStringsPath(); sstPath != "" {
		sstXML, err := readZipFile(r, sstPath)
		if err != nil {
			return nil, err
		}
		if pkg.SharedStrings, err = parseSharedStrings(sstXML); err != nil {
			return nil, fmt.Errorf("decode shared strings: %w", err)
		}
	}
	for _, sh := range wb.sheets {
		if !sh.grid {
			// chart sheets and dialog sheets carry no grid
			continue
		}
		part := SheetPart{Name: sh.name, State: sh.state, Path: sh.path}
		wsXML, err := readZipFile(r, part.Path)
		if err != nil {
			return nil, err
		}
		if wsXML == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingPart, part.Path)
		}
		if part.Worksheet, err = ParseWorksheet(wsXML); err != nil {
			return nil, fmt.Errorf("decode %s: %w", part.Path, err)
		}
		if part.Links, err = readLinks(r, part.Path); err != nil {
			return nil, err
		}
		pkg.Sheets = append(pkg.Sheets, part)
	}
	return pkg, nil
}

// readLinks returns the hyperlink targets of a worksheet's relationships.
func readLinks(r *zip.Reader, sheetPath string) (map[string]string, error) {
	dir, file := path.Split(sheetPath)
	relsXML, err := readZipFile(r, dir+"_rels/"+file+".rels")
	if err != nil || relsXML == nil {
		return nil, err
	}
	rels, err := parseRels(relsXML)
	if err != nil {
		return nil, fmt.Errorf("decode %s relationships: %w", sheetPath, err)
	}
	links := map[string]string{}
	for _, rel := range rels {
		if strings.HasSuffix(rel.Type, "/hyperlink") {
			links[rel.ID] = rel.Target
		}
	}
	return links, nil
}

func parseRels(data []byte) ([]Relationship, error) {
	if data == nil {
		return nil, nil
	}
	var rels struct {
		Rels []Relationship `xml:"Relationship"`
	}
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, err
	}
	return rels.Rels, nil
}

// parseSharedStrings walks the si elements; rich runs are concatenated and
// phonetic runs skipped.
func parseSharedStrings(data []byte) ([]string, error) {
	var (
		out      []string
		text     strings.Builder
		inSI     bool
		inT      bool
		phonetic int
	)
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "si":
				inSI = true
				text.Reset()
			case "rPh":
				phonetic++
			case "t":
				inT = inSI && phonetic == 0
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "si":
				inSI = false
				out = append(out, text.String())
			case "rPh":
				phonetic--
			case "t":
				inT = false
			}
		case xml.CharData:
			if inT {
				text.Write(t)
			}
		}
	}
}

func readZipFile(r *zip.Reader, name string) ([]byte, error) {
	for _, f := range r.File {
		if strings.EqualFold(f.Name, name) {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, nil
}

func resolveRelativePath(target, baseDir string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(baseDir + "/" + target)
}
