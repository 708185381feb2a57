package biff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"
	"github.com/richardlehane/msoleps"
)

// ErrNoWorkbook indicates an OLE2 file without a Workbook stream.
var ErrNoWorkbook = errors.New("compound file has no Workbook stream")

// ReadContainer extracts the workbook stream and the SummaryInformation
// properties from an OLE2 compound file.
func ReadContainer(ra io.ReaderAt) ([]byte, map[string]string, error) {
	doc, err := mscfb.New(ra)
	if err != nil {
		return nil, nil, fmt.Errorf("open compound file: %w", err)
	}
	var stream []byte
	props := map[string]string{}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		switch {
		case entry.Name == "Workbook" || (entry.Name == "Book" && stream == nil):
			buf := make([]byte, entry.Size)
			if _, err := io.ReadFull(entry, buf); err != nil {
				return nil, nil, fmt.Errorf("read %s stream: %w", entry.Name, err)
			}
			stream = buf
		case msoleps.IsMSOLEPS(entry.Initial) && entry.Name == "SummaryInformation":
			ps, err := msoleps.NewFrom(entry)
			if err != nil {
				// properties are optional; an unreadable set is skipped
				continue
			}
			for _, p := range ps.Property {
				if s := p.String(); s != "" {
					props[p.Name] = s
				}
			}
		}
	}
	if stream == nil {
		return nil, nil, ErrNoWorkbook
	}
	return stream, props, nil
}

const (
	sectorSize   = 512
	entriesPer   = sectorSize / 128
	fatPerSector = sectorSize / 4
	minStream    = 4096

	secFree       uint32 = 0xFFFFFFFF
	secEndOfChain uint32 = 0xFFFFFFFE
	secFAT        uint32 = 0xFFFFFFFD
	noSibling     uint32 = 0xFFFFFFFF
)

// WriteContainer wraps a workbook stream in a version 3 compound file with a
// single Workbook stream. Streams shorter than the mini-stream cutoff are
// zero padded so that no mini FAT is needed.
func WriteContainer(w io.Writer, stream []byte) error {
	if len(stream) < minStream {
		stream = append(stream, make([]byte, minStream-len(stream))...)
	}
	dataSectors := (len(stream) + sectorSize - 1) / sectorSize
	fatSectors := 1
	for fatSectors*fatPerSector < dataSectors+1+fatSectors {
		fatSectors++
	}
	if fatSectors > 109 {
		return fmt.Errorf("workbook stream of %d bytes needs DIFAT sectors", len(stream))
	}
	dirSector := uint32(dataSectors)
	firstFAT := dirSector + 1

	var hdr bytes.Buffer
	le := func(v any) { _ = binary.Write(&hdr, binary.LittleEndian, v) }
	le(uint64(0xE11AB1A1E011CFD0))
	le([16]byte{})
	le(uint16(0x003E))
	le(uint16(0x0003))
	le(uint16(0xFFFE))
	le(uint16(0x0009))
	le(uint16(0x0006))
	le([6]byte{})
	le(uint32(0))
	le(uint32(fatSectors))
	le(dirSector)
	le(uint32(0))
	le(uint32(minStream))
	le(secEndOfChain)
	le(uint32(0))
	le(secEndOfChain)
	le(uint32(0))
	for i := 0; i < 109; i++ {
		if i < fatSectors {
			le(firstFAT + uint32(i))
		} else {
			le(secFree)
		}
	}
	if _, err := w.Write(hdr.Bytes()); err != nil {
		return err
	}

	padded := make([]byte, dataSectors*sectorSize)
	copy(padded, stream)
	if _, err := w.Write(padded); err != nil {
		return err
	}

	dir := make([]byte, sectorSize)
	writeDirEntry(dir[0:], "Root Entry", 5, 1, secEndOfChain, 0)
	writeDirEntry(dir[128:], "Workbook", 2, noSibling, 0, len(stream))
	for i := 2; i < entriesPer; i++ {
		writeDirEntry(dir[i*128:], "", 0, noSibling, 0, 0)
	}
	if _, err := w.Write(dir); err != nil {
		return err
	}

	fat := make([]byte, fatSectors*sectorSize)
	for i := 0; i < fatSectors*fatPerSector; i++ {
		next := secFree
		switch {
		case i < dataSectors-1:
			next = uint32(i + 1)
		case i == dataSectors-1, i == int(dirSector):
			next = secEndOfChain
		case i >= int(firstFAT) && i < int(firstFAT)+fatSectors:
			next = secFAT
		}
		binary.LittleEndian.PutUint32(fat[i*4:], next)
	}
	_, err := w.Write(fat)
	return err
}

func writeDirEntry(b []byte, name string, kind byte, child, start uint32, size int) {
	units := utf16.Encode([]rune(name))
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[i*2:], u)
	}
	if name != "" {
		binary.LittleEndian.PutUint16(b[64:], uint16((len(units)+1)*2))
	}
	b[66] = kind
	b[67] = 1
	binary.LittleEndian.PutUint32(b[68:], noSibling)
	binary.LittleEndian.PutUint32(b[72:], noSibling)
	binary.LittleEndian.PutUint32(b[76:], child)
	binary.LittleEndian.PutUint32(b[116:], start)
	binary.LittleEndian.PutUint32(b[120:], uint32(size))
}
