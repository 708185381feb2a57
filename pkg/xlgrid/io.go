package xlgrid

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	zipMagic = []byte("PK\x03\x04")
)

// DetectFormat tells the container format of a file from its first bytes.
func DetectFormat(head []byte) (Format, error) {
	switch {
	case bytes.HasPrefix(head, oleMagic):
		return FormatBIFF8, nil
	case bytes.HasPrefix(head, zipMagic):
		return FormatOOXML, nil
	}
	return 0, ErrInvalidFormat
}

// Open reads the workbook stored at path.
func Open(path string, opts Options) (*Workbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	wb, err := openBytes(data, opts)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	return wb, nil
}

// OpenReader reads a workbook from r.
func OpenReader(r io.Reader, opts Options) (*Workbook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return openBytes(data, opts)
}

func openBytes(data []byte, opts Options) (*Workbook, error) {
	format, err := DetectFormat(data)
	if err != nil {
		return nil, err
	}
	var wb *Workbook
	switch format {
	case FormatBIFF8:
		wb, err = loadHSSF(data, opts)
	default:
		wb, err = loadXSSF(data, opts)
	}
	if err != nil {
		return nil, err
	}
	wb.log.WithFields(logrus.Fields{"format": format, "sheets": len(wb.sheets), "styles": wb.styles.store.len()}).Debug("workbook loaded")
	return wb, nil
}

// Write encodes the workbook in its format and writes it to w.
func (wb *Workbook) Write(w io.Writer) error {
	if len(wb.sheets) == 0 {
		return newOpError("", "write", ErrArgument, "workbook has no sheets")
	}
	var err error
	switch wb.format {
	case FormatBIFF8:
		err = wb.writeHSSF(w)
	default:
		err = wb.writeXSSF(w)
	}
	if err != nil {
		return &OperationError{Op: "write", Err: err}
	}
	wb.log.WithFields(logrus.Fields{"format": wb.format, "sheets": len(wb.sheets)}).Debug("workbook written")
	return nil
}

// Save writes the workbook to path. A path without extension gets the one
// of the workbook's format.
func (wb *Workbook) Save(path string) error {
	if filepath.Ext(path) == "" {
		path += "." + wb.format.String()
	} else if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."); ext != wb.format.String() {
		wb.log.WithFields(logrus.Fields{"path": path, "format": wb.format}).Warn("file extension does not match the workbook format")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := wb.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
