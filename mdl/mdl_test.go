package mdl

import (
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pg9182/srcvpk/diag"
)

type testBuf []byte

func (b *testBuf) alloc(n int) int {
	at := len(*b)
	*b = append(*b, make([]byte, n)...)
	return at
}

func (b *testBuf) i32(at int, v int) {
	binary.LittleEndian.PutUint32((*b)[at:], uint32(int32(v)))
}

func (b *testBuf) f32(at int, v ...float32) {
	for i, x := range v {
		binary.LittleEndian.PutUint32((*b)[at+i*4:], math.Float32bits(x))
	}
}

func (b *testBuf) str(s string) int {
	at := len(*b)
	*b = append(*b, s...)
	*b = append(*b, 0)
	return at
}

// buildMDL builds a model with two bones, two textures, one cdtexture dir,
// and one body part with two models (two meshes and one mesh). Mesh records
// are laid out meshStride bytes apart.
func buildMDL(meshStride int, materials [3]int) []byte {
	b := make(testBuf, 0, 4096)
	b.alloc(HeaderSize)
	copy(b, Magic)
	b.i32(4, 48)
	b.i32(8, 0x1234)
	copy(b[12:], "props/crate.mdl")
	b.f32(104, -1, -2, -3, 1, 2, 3)

	bones := b.alloc(2 * BoneSize)
	b.i32(156, 2)
	b.i32(160, bones)
	textures := b.alloc(2 * TextureSize)
	b.i32(204, 2)
	b.i32(208, textures)
	cd := b.alloc(4)
	b.i32(212, 1)
	b.i32(216, cd)
	bp := b.alloc(BodyPartSize)
	b.i32(232, 1)
	b.i32(236, bp)
	models := b.alloc(2 * int(ModelStrides[0]))
	meshes0 := b.alloc(2 * meshStride)
	meshes1 := b.alloc(meshStride)

	// bones
	b.i32(bones+4, -1)
	b.f32(bones+32, 1, 2, 3)
	b.f32(bones+44, 0, 0, 0, 1)
	b.i32(bones+BoneSize+4, 0)
	b.f32(bones+BoneSize+32, 0, 0, 5)
	b.f32(bones+BoneSize+44, 0, 0, float32(math.Sqrt2/2), float32(math.Sqrt2/2))

	// meshes, with the unused fields filled with implausible indices
	for i := meshes0; i < len(b); i++ {
		b[i] = 0xFF
	}
	for i, me := range []int{meshes0, meshes0 + meshStride, meshes1} {
		b.i32(me, materials[i])
		b.i32(me+4, -100000)
	}

	// models
	for i, me := range []int{meshes0, meshes1} {
		m := models + i*int(ModelStrides[0])
		copy(b[m:], []string{"crate_a", "crate_b"}[i])
		b.i32(m+72, 2-i)
		b.i32(m+76, me-m)
	}
	b.i32(bp+4, 2)
	b.i32(bp+8, 0)
	b.i32(bp+12, models-bp)

	// strings
	b.i32(bones, b.str("root")-bones)
	b.i32(bones+BoneSize, b.str("lid")-(bones+BoneSize))
	b.i32(textures, b.str("metal")-textures)
	b.i32(textures+TextureSize, b.str("props/wood")-(textures+TextureSize))
	b.i32(cd, b.str("models/props/"))
	b.i32(bp, b.str("body")-bp)
	return b
}

func TestRead(t *testing.T) {
	var dc diag.Collector
	f, err := Read(buildMDL(116, [3]int{1, 0, 1}), "crate.mdl", &dc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if f.Header.Version != 48 || f.Header.Checksum != 0x1234 || f.Header.Name != "props/crate.mdl" {
		t.Errorf("unexpected header %+v", f.Header)
	}
	if f.Header.HullMin != (mgl32.Vec3{-1, -2, -3}) || f.Header.HullMax != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("unexpected hull %v %v", f.Header.HullMin, f.Header.HullMax)
	}

	bones := f.Bones()
	if len(bones) != 2 {
		t.Fatalf("expected 2 bones, got %d", len(bones))
	}
	if b := bones[0]; b.Name != "root" || b.Parent != -1 || b.Position != (mgl32.Vec3{1, 2, 3}) || b.Rotation != mgl32.QuatIdent() {
		t.Errorf("unexpected bone %+v", b)
	}
	if b := bones[1]; b.Name != "lid" || b.Parent != 0 || b.Rotation.V[2] != float32(math.Sqrt2/2) {
		t.Errorf("unexpected bone %+v", b)
	}

	if exp, act := []string{"metal", "props/wood"}, f.TextureNames(); !reflect.DeepEqual(exp, act) {
		t.Errorf("expected textures %q, got %q", exp, act)
	}
	if exp, act := []string{"models/props/"}, f.TextureDirs(); !reflect.DeepEqual(exp, act) {
		t.Errorf("expected texture dirs %q, got %q", exp, act)
	}
	if exp, act := []BodyPart{{Name: "body", Models: []string{"crate_a", "crate_b"}}}, f.BodyParts(); !reflect.DeepEqual(exp, act) {
		t.Errorf("expected body parts %+v, got %+v", exp, act)
	}
	if len(dc.Records()) != 0 {
		t.Errorf("unexpected diagnostics: %s", dc.String())
	}
}

func TestMeshMaterialIndex(t *testing.T) {
	for _, tc := range []struct {
		name       string
		meshStride int
		materials  [3]int
		exp        [3]int
	}{
		{"common", 116, [3]int{1, 0, 1}, [3]int{1, 0, 1}},
		{"short mesh", 112, [3]int{1, 0, 1}, [3]int{1, 0, 1}},
		{"long mesh", 120, [3]int{0, 1, 1}, [3]int{0, 1, 1}},
		{"implausible", 116, [3]int{5000, -1, 999}, [3]int{-1, -1, 999}},
	} {
		f, err := Read(buildMDL(tc.meshStride, tc.materials), "crate.mdl", nil)
		if err != nil {
			t.Fatalf("%s: read: %v", tc.name, err)
		}
		for i, p := range [][3]int{{0, 0, 0}, {0, 0, 1}, {0, 1, 0}} {
			if act := f.MeshMaterialIndex(p[0], p[1], p[2]); act != tc.exp[i] {
				t.Errorf("%s: mesh %v: expected %d, got %d", tc.name, p, tc.exp[i], act)
			}
		}
	}

	f, _ := Read(buildMDL(116, [3]int{1, 0, 1}), "crate.mdl", nil)
	for _, p := range [][3]int{{1, 0, 0}, {0, 2, 0}, {-1, 0, 0}, {0, 0, -1}} {
		if act := f.MeshMaterialIndex(p[0], p[1], p[2]); act != -1 {
			t.Errorf("mesh %v: expected -1, got %d", p, act)
		}
	}
}

func TestReadTruncated(t *testing.T) {
	b := buildMDL(116, [3]int{1, 0, 1})
	binary.LittleEndian.PutUint32(b[156:], 1000)
	binary.LittleEndian.PutUint32(b[204:], 1000)

	var dc diag.Collector
	f, err := Read(b, "crate.mdl", &dc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n := len(f.Bones()); n == 0 || n >= 1000 {
		t.Errorf("expected the bones that fit, got %d", n)
	}
	if n := len(f.TextureNames()); n == 0 || n >= 1000 {
		t.Errorf("expected the textures that fit, got %d", n)
	}
	if dc.Count(diag.Warning) != 2 || !dc.Has(diag.ErrTruncatedData) {
		t.Errorf("expected two truncated data warnings, got %s", dc.String())
	}

	if _, err := Read(b[:HeaderSize-1], "crate.mdl", nil); !errors.Is(err, diag.ErrTruncatedData) {
		t.Errorf("expected truncated data, got %v", err)
	}
	copy(b, MagicCompressed)
	if _, err := Read(b, "crate.mdl", nil); !errors.Is(err, diag.ErrMalformedHeader) {
		t.Errorf("expected malformed header, got %v", err)
	}
}
