package bincursor

import (
	"errors"
	"strings"
	"testing"

	"github.com/pg9182/srcvpk/diag"
)

func TestCursorReads(t *testing.T) {
	c := New([]byte{
		0x01,
		0x34, 0x12,
		0x78, 0x56, 0x34, 0x12,
		0x00, 0x00, 0x80, 0x3F, // 1.0
		0xFF, 0xFF, 0xFF, 0xFF,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	})
	if v, err := c.U8(); err != nil || v != 1 {
		t.Errorf("U8: got %d, %v", v, err)
	}
	if v, err := c.U16(); err != nil || v != 0x1234 {
		t.Errorf("U16: got %x, %v", v, err)
	}
	if v, err := c.U32(); err != nil || v != 0x12345678 {
		t.Errorf("U32: got %x, %v", v, err)
	}
	if v, err := c.F32(); err != nil || v != 1 {
		t.Errorf("F32: got %f, %v", v, err)
	}
	if v, err := c.I32(); err != nil || v != -1 {
		t.Errorf("I32: got %d, %v", v, err)
	}
	if v, err := c.U64(); err != nil || v != 0x0102030405060708 {
		t.Errorf("U64: got %x, %v", v, err)
	}
	if c.Remaining() != 0 {
		t.Errorf("expected no remaining bytes, got %d", c.Remaining())
	}
	if _, err := c.U8(); !errors.Is(err, diag.ErrUnexpectedEndOfData) {
		t.Errorf("expected ErrUnexpectedEndOfData, got %v", err)
	}
}

func TestCursorFailedReadDoesNotAdvance(t *testing.T) {
	c := New([]byte{1, 2, 3})
	if _, err := c.U32(); err == nil {
		t.Fatalf("expected error")
	}
	if c.Pos() != 0 {
		t.Errorf("position moved to %d", c.Pos())
	}
	if err := c.Seek(4); err == nil {
		t.Errorf("expected seek past end to fail")
	}
	if err := c.Seek(3); err != nil {
		t.Errorf("seek to end: %v", err)
	}
}

func TestCursorFits(t *testing.T) {
	c := New(make([]byte, 16))
	for _, x := range []struct {
		Off, N int64
		Fits   bool
	}{
		{0, 16, true},
		{0, 17, false},
		{16, 0, true},
		{15, 1, true},
		{15, 2, false},
		{-1, 1, false},
		{1, -1, false},
		{1 << 62, 1 << 62, false},
	} {
		if v := c.Fits(x.Off, x.N); v != x.Fits {
			t.Errorf("Fits(%d, %d) = %t, expected %t", x.Off, x.N, v, x.Fits)
		}
	}
}

func TestCursorCString(t *testing.T) {
	c := New([]byte("abc\x00\xFFdef\x00ghi"))
	if s := c.CString(-1); s != "abc" {
		t.Errorf("got %q", s)
	}
	if s := c.CString(-1); s != "\xFFdef" {
		t.Errorf("got %q", s)
	}
	if s := c.CString(-1); s != "ghi" {
		t.Errorf("unterminated: got %q", s)
	}

	c = New([]byte("abcdef\x00"))
	if s := c.CString(3); s != "abc" || c.Pos() != 3 {
		t.Errorf("max offset: got %q at %d", s, c.Pos())
	}

	c = New([]byte(strings.Repeat("x", MaxCString*2)))
	if s := c.CString(-1); len(s) != MaxCString {
		t.Errorf("expected string capped at %d, got %d", MaxCString, len(s))
	}

	c = New([]byte("\x00name\x00"))
	if s, err := c.CStringAt(1, -1); err != nil || s != "name" || c.Pos() != 0 {
		t.Errorf("CStringAt: got %q, %v at %d", s, err, c.Pos())
	}
	if _, err := c.CStringAt(6, -1); err == nil {
		t.Errorf("expected CStringAt past end to fail")
	}
}

func TestCursorSlices(t *testing.T) {
	c := New([]byte{1, 0, 2, 0, 3, 0, 0xFF})
	if v, err := c.U16s(3); err != nil || len(v) != 3 || v[2] != 3 {
		t.Errorf("U16s: got %v, %v", v, err)
	}
	if _, err := c.U16s(1); err == nil {
		t.Errorf("expected U16s past end to fail")
	}
	if b, err := c.Bytes(1); err != nil || b[0] != 0xFF {
		t.Errorf("Bytes: got %v, %v", b, err)
	}
}
