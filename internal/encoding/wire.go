package encoding

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrTruncated = errors.New("wire: truncated field")

// Reader decodes the wire protocol's fixed-width and length-prefixed
// primitives from a byte slice, tracking its own cursor. It never
// retains a reference past the caller-provided slice.
type Reader struct {
	buf []byte
	off int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining reports how many bytes are left to read.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// AtEOF reports whether the cursor has consumed the entire buffer.
func (r *Reader) AtEOF() bool {
	return r.off >= len(r.buf)
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, ErrTruncated
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) Uint8() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) Uint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *Reader) Uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// FixedBytes reads exactly n bytes.
func (r *Reader) FixedBytes(n int) ([]byte, error) {
	return r.take(n)
}

// LengthPrefixedBytes reads a u32-BE length followed by that many bytes.
func (r *Reader) LengthPrefixedBytes() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	return r.take(int(n))
}

// OptionalTrailingSignature reads exactly 96 bytes if and only if the
// buffer has exactly 96 bytes remaining; returns (nil, false, nil) at
// EOF, and an error if 1-95 bytes remain (per spec.md §6/§8: a Sign
// request's trailing auth signature is absent-by-EOF, not tag-prefixed).
func (r *Reader) OptionalTrailingSignature() ([]byte, bool, error) {
	switch rem := r.Remaining(); {
	case rem == 0:
		return nil, false, nil
	case rem == 96:
		b, _ := r.take(96)
		return b, true, nil
	default:
		return nil, false, fmt.Errorf("%w: %d trailing bytes, expected 0 or 96", ErrTruncated, rem)
	}
}

// Writer accumulates a response body using the same primitive widths
// as Reader.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) Uint8(v byte) *Writer {
	w.buf = append(w.buf, v)
	return w
}

func (w *Writer) Uint16(v uint16) *Writer {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

func (w *Writer) Uint32(v uint32) *Writer {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

func (w *Writer) FixedBytes(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

func (w *Writer) LengthPrefixedBytes(b []byte) *Writer {
	w.Uint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
	return w
}
