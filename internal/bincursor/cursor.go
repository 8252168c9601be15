// Package bincursor implements a bounds-checked little-endian reader over a
// byte slice.
package bincursor

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pg9182/srcvpk/diag"
)

// MaxCString is the maximum number of bytes CString will consume.
const MaxCString = 1000

// Cursor reads little-endian values from a byte slice. Failed reads do not
// advance the position.
type Cursor struct {
	b   []byte
	off int
}

// New creates a new Cursor positioned at the start of b.
func New(b []byte) *Cursor {
	return &Cursor{b: b}
}

// Len returns the length of the underlying data.
func (c *Cursor) Len() int { return len(c.b) }

// Pos returns the current absolute offset.
func (c *Cursor) Pos() int { return c.off }

// Remaining returns the number of bytes after the current position.
func (c *Cursor) Remaining() int { return len(c.b) - c.off }

// Data returns the underlying data.
func (c *Cursor) Data() []byte { return c.b }

// Fits checks whether n bytes starting at the absolute offset off are in
// range. Negative values never fit.
func (c *Cursor) Fits(off, n int64) bool {
	return off >= 0 && n >= 0 && off <= int64(len(c.b)) && n <= int64(len(c.b))-off
}

// Seek moves to an absolute offset. Seeking to the end is allowed.
func (c *Cursor) Seek(off int64) error {
	if off < 0 || off > int64(len(c.b)) {
		return fmt.Errorf("seek to %d (len %d): %w", off, len(c.b), diag.ErrUnexpectedEndOfData)
	}
	c.off = int(off)
	return nil
}

// Skip advances n bytes.
func (c *Cursor) Skip(n int) error {
	if _, err := c.take(n); err != nil {
		return err
	}
	return nil
}

func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 || n > len(c.b)-c.off {
		return nil, fmt.Errorf("read %d bytes at %d (len %d): %w", n, c.off, len(c.b), diag.ErrUnexpectedEndOfData)
	}
	b := c.b[c.off : c.off+n]
	c.off += n
	return b, nil
}

func (c *Cursor) U8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Cursor) U16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *Cursor) U32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *Cursor) U64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (c *Cursor) I16() (int16, error) {
	v, err := c.U16()
	return int16(v), err
}

func (c *Cursor) I32() (int32, error) {
	v, err := c.U32()
	return int32(v), err
}

func (c *Cursor) F32() (float32, error) {
	v, err := c.U32()
	return math.Float32frombits(v), err
}

// U16s reads n consecutive uint16 values.
func (c *Cursor) U16s(n int) ([]uint16, error) {
	if n < 0 || n > (len(c.b)-c.off)/2 {
		return nil, fmt.Errorf("read %d u16 at %d (len %d): %w", n, c.off, len(c.b), diag.ErrUnexpectedEndOfData)
	}
	v := make([]uint16, n)
	for i := range v {
		v[i] = binary.LittleEndian.Uint16(c.b[c.off+i*2:])
	}
	c.off += n * 2
	return v, nil
}

// I32s reads n consecutive int32 values.
func (c *Cursor) I32s(n int) ([]int32, error) {
	if n < 0 || n > (len(c.b)-c.off)/4 {
		return nil, fmt.Errorf("read %d i32 at %d (len %d): %w", n, c.off, len(c.b), diag.ErrUnexpectedEndOfData)
	}
	v := make([]int32, n)
	for i := range v {
		v[i] = int32(binary.LittleEndian.Uint32(c.b[c.off+i*4:]))
	}
	c.off += n * 4
	return v, nil
}

// F32s reads n consecutive float32 values.
func (c *Cursor) F32s(n int) ([]float32, error) {
	if n < 0 || n > (len(c.b)-c.off)/4 {
		return nil, fmt.Errorf("read %d f32 at %d (len %d): %w", n, c.off, len(c.b), diag.ErrUnexpectedEndOfData)
	}
	v := make([]float32, n)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(c.b[c.off+i*4:]))
	}
	c.off += n * 4
	return v, nil
}

// Bytes reads a copy of the next n bytes.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	b, err := c.take(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

// CString reads a null-terminated string, stopping early at the absolute
// offset maxOffset (if non-negative), at the end of the data, or after
// MaxCString bytes. The terminator is consumed if found.
func (c *Cursor) CString(maxOffset int) string {
	end := len(c.b)
	if maxOffset >= 0 && maxOffset < end {
		end = maxOffset
	}
	if lim := c.off + MaxCString; lim < end {
		end = lim
	}
	start := c.off
	for c.off < end {
		if c.b[c.off] == 0 {
			s := string(c.b[start:c.off])
			c.off++
			return s
		}
		c.off++
	}
	return string(c.b[start:c.off])
}

// CStringAt reads a null-terminated string at an absolute offset without
// moving the cursor. It fails if off is out of range.
func (c *Cursor) CStringAt(off int64, maxOffset int) (string, error) {
	if off < 0 || off >= int64(len(c.b)) {
		return "", fmt.Errorf("read string at %d (len %d): %w", off, len(c.b), diag.ErrUnexpectedEndOfData)
	}
	pos := c.off
	c.off = int(off)
	s := c.CString(maxOffset)
	c.off = pos
	return s, nil
}
