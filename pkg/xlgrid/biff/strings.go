package biff

import (
	"errors"
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	latin1  = charmap.ISO8859_1
	utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
)

// decodeChars converts compressed (Latin-1) or UTF-16LE character bytes.
func decodeChars(b []byte, high bool) (string, error) {
	var enc encoding.Encoding = latin1
	if high {
		enc = utf16le
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// encodeChars picks the compressed form when every character fits in Latin-1.
// cch counts UTF-16 code units as BIFF does.
func encodeChars(s string) (data []byte, high bool, cch int) {
	if b, err := latin1.NewEncoder().Bytes([]byte(s)); err == nil {
		return b, false, len(b)
	}
	b, _ := utf16le.NewEncoder().Bytes([]byte(s))
	return b, true, len(b) / 2
}

// readString reads an XLUnicodeString (lenSize 2) or ShortXLUnicodeString
// (lenSize 1) contained in a single record.
func readString(c *cursor, lenSize int) string {
	var cch int
	if lenSize == 1 {
		cch = int(c.u8())
	} else {
		cch = int(c.u16())
	}
	return readStringBody(c, cch)
}

// readStringBody reads the flags byte and characters following a length.
func readStringBody(c *cursor, cch int) string {
	flags := c.u8()
	var runs, ext int
	if flags&0x08 != 0 {
		runs = int(c.u16())
	}
	if flags&0x04 != 0 {
		ext = int(c.u32())
	}
	size := 1
	if flags&0x01 != 0 {
		size = 2
	}
	raw := c.bytes(cch * size)
	c.skip(runs*4 + ext)
	if c.err != nil {
		return ""
	}
	s, err := decodeChars(raw, size == 2)
	if err != nil {
		c.err = err
	}
	return s
}

func appendString(b *builder, s string, lenSize int) {
	data, high, cch := encodeChars(s)
	if lenSize == 1 {
		if cch > 255 {
			data, cch = truncateChars(data, high, 255)
		}
		b.u8(byte(cch))
	} else {
		b.u16(uint16(cch))
	}
	if high {
		b.u8(0x01)
	} else {
		b.u8(0x00)
	}
	b.raw(data)
}

func truncateChars(data []byte, high bool, n int) ([]byte, int) {
	if high {
		return data[:n*2], n
	}
	return data[:n], n
}

var errSSTCorrupt = errors.New("shared string table overruns its records")

// sstReader walks string data that may be split across CONTINUE records.
type sstReader struct {
	chunks [][]byte
	ci     int
	pos    int
}

func (r *sstReader) avail() int {
	return len(r.chunks[r.ci]) - r.pos
}

func (r *sstReader) nextChunk() bool {
	if r.ci+1 >= len(r.chunks) {
		return false
	}
	r.ci++
	r.pos = 0
	return true
}

func (r *sstReader) read(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for n > 0 {
		if r.avail() == 0 && !r.nextChunk() {
			return nil, errSSTCorrupt
		}
		k := min(n, r.avail())
		out = append(out, r.chunks[r.ci][r.pos:r.pos+k]...)
		r.pos += k
		n -= k
	}
	return out, nil
}

func (r *sstReader) readString() (string, error) {
	hdr, err := r.read(3)
	if err != nil {
		return "", err
	}
	cch := int(hdr[0]) | int(hdr[1])<<8
	flags := hdr[2]
	var runs, ext int
	if flags&0x08 != 0 {
		b, err := r.read(2)
		if err != nil {
			return "", err
		}
		runs = int(b[0]) | int(b[1])<<8
	}
	if flags&0x04 != 0 {
		b, err := r.read(4)
		if err != nil {
			return "", err
		}
		ext = int(b[0]) | int(b[1])<<8 | int(b[2])<<16 | int(b[3])<<24
	}
	high := flags&0x01 != 0
	var out []byte
	for remaining := cch; remaining > 0; {
		if r.avail() == 0 {
			// a continued string restates its width in the first byte
			if !r.nextChunk() {
				return "", errSSTCorrupt
			}
			high = r.chunks[r.ci][0]&0x01 != 0
			r.pos = 1
		}
		size := 1
		if high {
			size = 2
		}
		n := min(remaining, r.avail()/size)
		if n == 0 {
			return "", errSSTCorrupt
		}
		part := r.chunks[r.ci][r.pos : r.pos+n*size]
		r.pos += n * size
		s, err := decodeChars(part, high)
		if err != nil {
			return "", err
		}
		out = append(out, s...)
		remaining -= n
	}
	if _, err := r.read(runs*4 + ext); err != nil {
		return "", err
	}
	return string(out), nil
}

// DecodeSST parses an SST record and its continuations.
func DecodeSST(rec Record) ([]string, error) {
	if len(rec.Data) < 8 {
		return nil, &RecordError{Sid: rec.Sid, Offset: rec.Offset, Err: ErrTruncated}
	}
	c := &cursor{b: rec.Data}
	c.u32()
	unique := int(c.u32())
	r := &sstReader{chunks: append([][]byte{rec.Data}, rec.Continues...), pos: 8}
	out := make([]string, 0, unique)
	for i := 0; i < unique; i++ {
		s, err := r.readString()
		if err != nil {
			return nil, &RecordError{Sid: rec.Sid, Offset: rec.Offset, Err: fmt.Errorf("string %d: %w", i, err)}
		}
		out = append(out, s)
	}
	return out, nil
}

// EncodeSST lays out the shared strings in record-sized chunks. A string
// header is never split; character data continues in the next chunk behind
// a fresh flags byte.
func EncodeSST(strs []string, total int) [][]byte {
	var chunks [][]byte
	cur := &builder{}
	cur.u32(uint32(total))
	cur.u32(uint32(len(strs)))
	flush := func() {
		chunks = append(chunks, cur.b)
		cur = &builder{}
	}
	for _, s := range strs {
		data, high, cch := encodeChars(s)
		size := 1
		var flag byte
		if high {
			size, flag = 2, 0x01
		}
		if MaxRecordData-len(cur.b) < 3+size {
			flush()
		}
		cur.u16(uint16(cch))
		cur.u8(flag)
		for rest := data; len(rest) > 0; {
			space := (MaxRecordData - len(cur.b)) / size * size
			if space == 0 {
				flush()
				cur.u8(flag)
				continue
			}
			n := min(space, len(rest))
			cur.raw(rest[:n])
			rest = rest[n:]
		}
	}
	flush()
	return chunks
}
