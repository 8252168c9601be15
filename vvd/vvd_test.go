package vvd

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/pg9182/srcvpk/diag"
)

// buildVVD builds a VVD with n raw vertices, where vertex i has Position.X = i.
func buildVVD(n int, lod0 int32, fixups []Fixup) []byte {
	fixupOff := int32(HeaderSize)
	vertexOff := fixupOff + int32(len(fixups))*FixupSize

	var b bytes.Buffer
	w := func(v ...interface{}) {
		for _, x := range v {
			binary.Write(&b, binary.LittleEndian, x)
		}
	}
	b.WriteString(Magic)
	w(int32(4), int32(1234), int32(1))
	lods := [MaxLODs]int32{lod0}
	w(lods)
	w(int32(len(fixups)), fixupOff, vertexOff, int32(0))
	w(fixups)
	for i := 0; i < n; i++ {
		w([3]float32{1, 0, 0}, [3]uint8{uint8(i), 0, 0}, uint8(1))
		w([3]float32{float32(i), 0, 0}, [3]float32{0, 0, 1}, [2]float32{0.25, 0.75})
	}
	return b.Bytes()
}

func positions(vs []Vertex) []int {
	var r []int
	for _, v := range vs {
		r = append(r, int(v.Position[0]))
	}
	return r
}

func TestReadFixups(t *testing.T) {
	var dc diag.Collector
	f, err := Read(buildVVD(60, 60, []Fixup{{0, 10, 5}, {1, 50, 3}, {0, 0, 2}}), "a.vvd", &dc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(dc.Records()) != 0 {
		t.Errorf("unexpected diagnostics: %s", dc.String())
	}
	exp := []int{10, 11, 12, 13, 14, 0, 1}
	if act := positions(f.Vertices); len(act) != 7 || !equal(act, exp) {
		t.Errorf("expected lod 0 vertices %v, got %v", exp, act)
	}
	v := f.Vertices[0]
	if v.BoneCount != 1 || v.Bones[0] != 10 || v.Weights[0] != 1 || v.Normal[2] != 1 || v.UV != [2]float32{0.25, 0.75} {
		t.Errorf("unexpected vertex %+v", v)
	}
}

func TestReadNoFixups(t *testing.T) {
	f, err := Read(buildVVD(8, 5, nil), "a.vvd", nil)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if exp, act := []int{0, 1, 2, 3, 4}, positions(f.Vertices); !equal(act, exp) {
		t.Errorf("expected %v, got %v", exp, act)
	}
	if f.Header.LODs != 1 || f.Header.Checksum != 1234 || f.Header.Version != 4 {
		t.Errorf("unexpected header %+v", f.Header)
	}
}

func TestReadBounds(t *testing.T) {
	for _, tc := range []struct {
		name   string
		data   []byte
		fixups int
	}{
		{"pool past end", buildVVD(10, 10, []Fixup{{0, 5, 10}}), 1},
		{"fixup table past end", buildVVD(2, 2, []Fixup{{0, 0, 1}, {0, 1, 1}})[:HeaderSize+FixupSize], 0},
		{"lod count past end", buildVVD(3, 4, nil), 0},
	} {
		var dc diag.Collector
		f, err := Read(tc.data, tc.name, &dc)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
			continue
		}
		if len(f.Vertices) != 0 {
			t.Errorf("%s: expected no vertices, got %d", tc.name, len(f.Vertices))
		}
		if len(f.Fixups) != tc.fixups {
			t.Errorf("%s: expected %d fixups, got %d", tc.name, tc.fixups, len(f.Fixups))
		}
		if f.Header.LODs != 1 {
			t.Errorf("%s: expected header to be populated", tc.name)
		}
		if dc.Count(diag.Warning) != 1 || !dc.Has(diag.ErrTruncatedData) {
			t.Errorf("%s: expected a truncated data warning, got %s", tc.name, dc.String())
		}
	}
	if _, err := Read(make([]byte, HeaderSize-1), "short.vvd", nil); err == nil {
		t.Errorf("expected error for short header")
	}
}

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
