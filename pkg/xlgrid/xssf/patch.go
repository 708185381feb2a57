package xssf

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

const (
	relTypeSharedStrings = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/sharedStrings"
	contentTypeSST       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml"
	mainNamespace        = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
)

var sheetDataElement = regexp.MustCompile(`(?s)<sheetData\s*/>|<sheetData\b[^>]*>.*?</sheetData>`)

// PatchPackage rewrites an xlsx package written by another producer: the
// sheetData element of every worksheet named in sheets is replaced, and the
// shared string part is replaced by sst, added to the package when missing.
func PatchPackage(data []byte, sheets map[string]*SheetData, sst []string) ([]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	wb, err := readWorkbookPart(r)
	if err != nil {
		return nil, err
	}
	replace := map[string][]byte{}
	for _, sh := range wb.sheets {
		sd, ok := sheets[sh.name]
		if !ok || !sh.grid {
			continue
		}
		out, err := xml.Marshal(sd)
		if err != nil {
			return nil, fmt.Errorf("encode sheet data of %q: %w", sh.name, err)
		}
		replace[strings.ToLower(sh.path)] = out
	}

	sstPath := wb.sharedStringsPath()
	addSST := sstPath == "" && len(sst) > 0
	if addSST {
		sstPath = "xl/sharedStrings.xml"
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range r.File {
		content, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		name := strings.ToLower(f.Name)
		switch {
		case replace[name] != nil:
			sd := replace[name]
			if !sheetDataElement.Match(content) {
				return nil, fmt.Errorf("%w: sheetData in %s", ErrMissingPart, f.Name)
			}
			content = sheetDataElement.ReplaceAllLiteral(content, sd)
		case sstPath != "" && name == strings.ToLower(sstPath):
			content = encodeSharedStrings(sst)
		case addSST && name == "[content_types].xml":
			content = insertBefore(content, "</Types>",
				fmt.Sprintf(`<Override PartName="/%s" ContentType="%s"/>`, sstPath, contentTypeSST))
		case addSST && name == "xl/_rels/workbook.xml.rels":
			content = insertBefore(content, "</Relationships>",
				fmt.Sprintf(`<Relationship Id="%s" Type="%s" Target="sharedStrings.xml"/>`, freeRelID(wb.rels), relTypeSharedStrings))
		}
		if err := writeEntry(zw, f.Name, content); err != nil {
			return nil, err
		}
	}
	if addSST {
		if err := writeEntry(zw, sstPath, encodeSharedStrings(sst)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func writeEntry(zw *zip.Writer, name string, content []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}

func insertBefore(content []byte, closing, element string) []byte {
	i := bytes.LastIndex(content, []byte(closing))
	if i < 0 {
		return content
	}
	out := make([]byte, 0, len(content)+len(element))
	out = append(out, content[:i]...)
	out = append(out, element...)
	return append(out, content[i:]...)
}

// freeRelID returns an rId not used by rels.
func freeRelID(rels []Relationship) string {
	next := 1
	for _, rel := range rels {
		if n, err := strconv.Atoi(strings.TrimPrefix(rel.ID, "rId")); err == nil && n >= next {
			next = n + 1
		}
	}
	return "rId" + strconv.Itoa(next)
}

func encodeSharedStrings(sst []string) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	fmt.Fprintf(&b, `<sst xmlns="%s" count="%d" uniqueCount="%d">`, mainNamespace, len(sst), len(sst))
	for _, s := range sst {
		b.WriteString(`<si><t xml:space="preserve">`)
		_ = xml.EscapeText(&b, []byte(s))
		b.WriteString(`</t></si>`)
	}
	b.WriteString(`</sst>`)
	return b.Bytes()
}
