// mocap-recorder - record motion capture streams from NatNet servers
//  Copyright (C) 2026, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package natnet

import (
	"bytes"
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Reader is a cursor over an immutable NatNet payload. Every read
// either consumes exactly the width of the field or fails without
// moving the cursor.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader positioned at the start of buf. The
// buffer must not be modified while the Reader is in use.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, truncated(r.off, n, r.Remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Skip discards n bytes.
func (r *Reader) Skip(n int) error {
	_, err := r.take(n)
	return err
}

// Int16 reads a little-endian signed 16-bit integer.
func (r *Reader) Int16() (int16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(b)), nil
}

// Int32 reads a little-endian signed 32-bit integer.
func (r *Reader) Int32() (int32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// Int64 reads a little-endian signed 64-bit integer.
func (r *Reader) Int64() (int64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// Float32 reads a little-endian IEEE-754 single.
func (r *Reader) Float32() (float32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

// Float64 reads a little-endian IEEE-754 double.
func (r *Reader) Float64() (float64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// CString reads a NUL-terminated UTF-8 string and consumes the
// terminator.
func (r *Reader) CString() (string, error) {
	idx := bytes.IndexByte(r.buf[r.off:], 0)
	if idx < 0 {
		return "", errors.Wrapf(ErrUnterminatedString, "at offset %d", r.off)
	}
	b := r.buf[r.off : r.off+idx]
	if !utf8.Valid(b) {
		return "", errors.Wrapf(ErrInvalidText, "at offset %d", r.off)
	}
	r.off += idx + 1
	return string(b), nil
}

// Count reads a 32-bit element count. Negative counts are rejected.
func (r *Reader) Count() (int, error) {
	start := r.off
	n, err := r.Int32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		r.off = start
		return 0, errors.Wrapf(ErrInvalidCount, "%d at offset %d", n, start)
	}
	return int(n), nil
}

// readFixedArray consumes exactly n*width bytes, calling decodeOne once
// per element in order. The whole span is bounds checked before any
// element is decoded so a bad count can't force a large allocation.
func readFixedArray[T any](r *Reader, n, width int, decodeOne func(*Reader) (T, error)) ([]T, error) {
	if n > r.Remaining()/width {
		return nil, truncated(r.off, n*width, r.Remaining())
	}
	out := make([]T, n)
	for i := range out {
		v, err := decodeOne(r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// readArray decodes n variable-width elements. minWidth is the smallest
// encoding of one element and only bounds the initial allocation.
func readArray[T any](r *Reader, n, minWidth int, decodeOne func(*Reader) (T, error)) ([]T, error) {
	if n > r.Remaining()/minWidth {
		return nil, truncated(r.off, n*minWidth, r.Remaining())
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		v, err := decodeOne(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func readFloat32(r *Reader) (float32, error) {
	return r.Float32()
}

func readCString(r *Reader) (string, error) {
	return r.CString()
}
