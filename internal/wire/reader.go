// Package wire provides a cursor over little-endian binary payloads.
//
// All of the on-disk formats in this module are little-endian and are
// parsed from fully buffered byte slices, so the cursor reads directly
// from a slice and records the first short read as a sticky error
// instead of returning an error from every accessor.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
)

// ErrShort reports a read past the end of the payload.
var ErrShort = errors.New("wire: unexpected end of data")

// Reader is a sticky-error cursor over a byte slice. After the first
// failed read every subsequent accessor returns the zero value, so
// callers can batch reads and check Err once per record.
type Reader struct {
	buf []byte
	off int
	err error
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Err returns the first error encountered, or nil.
func (r *Reader) Err() error { return r.err }

// Offset returns the current read position.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	if r.err != nil {
		return 0
	}
	return len(r.buf) - r.off
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf)-r.off < n {
		r.err = ErrShort
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

// Skip advances the cursor n bytes without interpreting them.
func (r *Reader) Skip(n int) {
	r.take(n)
}

// Bytes returns the next n bytes. The slice aliases the underlying
// payload; callers that retain it must copy.
func (r *Reader) Bytes(n int) []byte {
	return r.take(n)
}

func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) I32() int32 {
	return int32(r.U32())
}

func (r *Reader) F32() float32 {
	return math.Float32frombits(r.U32())
}

// CString reads bytes up to and including the next NUL and returns the
// string without the terminator. Missing terminator is a short read.
func (r *Reader) CString() string {
	if r.err != nil {
		return ""
	}
	i := bytes.IndexByte(r.buf[r.off:], 0)
	if i < 0 {
		r.err = ErrShort
		return ""
	}
	s := string(r.buf[r.off : r.off+i])
	r.off += i + 1
	return s
}

// FixedString reads an n-byte field and trims it at the first NUL.
func (r *Reader) FixedString(n int) string {
	b := r.take(n)
	if b == nil {
		return ""
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
