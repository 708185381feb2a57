package biff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/valyala/bytebufferpool"
)

// ErrTruncated indicates a record shorter than its layout requires.
var ErrTruncated = errors.New("truncated record")

// RecordError reports a malformed record with its position in the stream.
type RecordError struct {
	Sid    uint16
	Offset int
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("biff record 0x%04X at offset %d: %v", e.Sid, e.Offset, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Record is one BIFF record with any CONTINUE records that followed it.
type Record struct {
	Sid       uint16
	Offset    int
	Data      []byte
	Continues [][]byte
}

// Joined returns the payload with all continuations appended.
func (r Record) Joined() []byte {
	if len(r.Continues) == 0 {
		return r.Data
	}
	out := append([]byte(nil), r.Data...)
	for _, c := range r.Continues {
		out = append(out, c...)
	}
	return out
}

// Reader iterates over the records of a BIFF stream.
type Reader struct {
	buf []byte
	pos int
}

// NewReader returns a Reader over a complete workbook stream.
func NewReader(stream []byte) *Reader {
	return &Reader{buf: stream}
}

// Seek moves to an absolute stream offset, as given by BOUNDSHEET records.
func (r *Reader) Seek(offset int) error {
	if offset < 0 || offset > len(r.buf) {
		return fmt.Errorf("seek to %d outside stream of %d bytes", offset, len(r.buf))
	}
	r.pos = offset
	return nil
}

// Offset returns the position of the next record.
func (r *Reader) Offset() int {
	return r.pos
}

func (r *Reader) header(at int) (uint16, int, bool) {
	if at+4 > len(r.buf) {
		return 0, 0, false
	}
	return binary.LittleEndian.Uint16(r.buf[at:]), int(binary.LittleEndian.Uint16(r.buf[at+2:])), true
}

// Next returns the next record, or io.EOF at the end of the stream.
func (r *Reader) Next() (Record, error) {
	sid, size, ok := r.header(r.pos)
	if !ok {
		return Record{}, io.EOF
	}
	rec := Record{Sid: sid, Offset: r.pos}
	start := r.pos + 4
	if start+size > len(r.buf) {
		return Record{}, &RecordError{Sid: sid, Offset: r.pos, Err: ErrTruncated}
	}
	rec.Data = r.buf[start : start+size]
	r.pos = start + size
	for {
		csid, csize, ok := r.header(r.pos)
		if !ok || csid != SidContinue {
			break
		}
		cstart := r.pos + 4
		if cstart+csize > len(r.buf) {
			return Record{}, &RecordError{Sid: csid, Offset: r.pos, Err: ErrTruncated}
		}
		rec.Continues = append(rec.Continues, r.buf[cstart:cstart+csize])
		r.pos = cstart + csize
	}
	return rec, nil
}

// Writer accumulates records into a pooled buffer.
type Writer struct {
	buf *bytebufferpool.ByteBuffer
}

// NewWriter returns an empty Writer. Call Release when done.
func NewWriter() *Writer {
	return &Writer{buf: bytebufferpool.Get()}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Write appends a record, splitting payloads over MaxRecordData into
// CONTINUE records.
func (w *Writer) Write(sid uint16, data []byte) {
	first := data
	if len(first) > MaxRecordData {
		first = data[:MaxRecordData]
	}
	w.writeRaw(sid, first)
	for rest := data[len(first):]; len(rest) > 0; {
		n := min(len(rest), MaxRecordData)
		w.writeRaw(SidContinue, rest[:n])
		rest = rest[n:]
	}
}

// WriteChunks appends a record whose continuation boundaries were chosen by
// the caller, as SST requires.
func (w *Writer) WriteChunks(sid uint16, chunks [][]byte) {
	for i, c := range chunks {
		if i == 0 {
			w.writeRaw(sid, c)
			continue
		}
		w.writeRaw(SidContinue, c)
	}
}

func (w *Writer) writeRaw(sid uint16, data []byte) {
	var hdr [4]byte
	binary.LittleEndian.PutUint16(hdr[0:], sid)
	binary.LittleEndian.PutUint16(hdr[2:], uint16(len(data)))
	_, _ = w.buf.Write(hdr[:])
	_, _ = w.buf.Write(data)
}

// PatchUint32 overwrites four bytes at an absolute offset.
func (w *Writer) PatchUint32(offset int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf.B[offset:], v)
}

// Bytes returns a copy of the written stream.
func (w *Writer) Bytes() []byte {
	return append([]byte(nil), w.buf.B...)
}

// Release returns the buffer to the pool.
func (w *Writer) Release() {
	if w.buf != nil {
		bytebufferpool.Put(w.buf)
		w.buf = nil
	}
}

// field helpers over little-endian payloads

type cursor struct {
	b   []byte
	pos int
	err error
}

func (c *cursor) need(n int) bool {
	if c.err != nil {
		return false
	}
	if c.pos+n > len(c.b) {
		c.err = ErrTruncated
		return false
	}
	return true
}

func (c *cursor) u8() byte {
	if !c.need(1) {
		return 0
	}
	v := c.b[c.pos]
	c.pos++
	return v
}

func (c *cursor) u16() uint16 {
	if !c.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(c.b[c.pos:])
	c.pos += 2
	return v
}

func (c *cursor) u32() uint32 {
	if !c.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(c.b[c.pos:])
	c.pos += 4
	return v
}

func (c *cursor) f64() float64 {
	if !c.need(8) {
		return 0
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(c.b[c.pos:]))
	c.pos += 8
	return v
}

func (c *cursor) bytes(n int) []byte {
	if !c.need(n) {
		return nil
	}
	v := c.b[c.pos : c.pos+n]
	c.pos += n
	return v
}

func (c *cursor) skip(n int) {
	if c.need(n) {
		c.pos += n
	}
}

func (c *cursor) remaining() int {
	return len(c.b) - c.pos
}

type builder struct {
	b []byte
}

func (b *builder) u8(v byte) { b.b = append(b.b, v) }

func (b *builder) u16(v uint16) { b.b = binary.LittleEndian.AppendUint16(b.b, v) }

func (b *builder) u32(v uint32) { b.b = binary.LittleEndian.AppendUint32(b.b, v) }

func (b *builder) f64(v float64) { b.b = binary.LittleEndian.AppendUint64(b.b, math.Float64bits(v)) }

func (b *builder) raw(p []byte) { b.b = append(b.b, p...) }

func (b *builder) zero(n int) { b.b = append(b.b, make([]byte, n)...) }
