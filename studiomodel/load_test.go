package studiomodel

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io/fs"
	"math"
	"testing"
	"testing/fstest"

	"github.com/pg9182/srcvpk/diag"
	"github.com/pg9182/srcvpk/material"
	"github.com/pg9182/srcvpk/mdl"
	"github.com/pg9182/srcvpk/vtf"
	"github.com/pg9182/srcvpk/vtx"
	"github.com/pg9182/srcvpk/vvd"
)

type buf []byte

func (b *buf) alloc(n int) int {
	at := len(*b)
	*b = append(*b, make([]byte, n)...)
	return at
}

func (b *buf) i32(at, v int) {
	binary.LittleEndian.PutUint32((*b)[at:], uint32(int32(v)))
}

func (b *buf) u16(at int, v uint16) {
	binary.LittleEndian.PutUint16((*b)[at:], v)
}

func (b *buf) f32(at int, v ...float32) {
	for i, x := range v {
		binary.LittleEndian.PutUint32((*b)[at+i*4:], math.Float32bits(x))
	}
}

func (b *buf) str(s string) int {
	at := len(*b)
	*b = append(*b, s...)
	*b = append(*b, 0)
	return at
}

// testMDL has one bone, one material ("crate") and one body part ("body")
// with a model with one mesh ("crate") and an empty model ("off").
func testMDL() []byte {
	b := make(buf, 0, 2048)
	b.alloc(mdl.HeaderSize)
	copy(b, mdl.Magic)
	b.i32(4, 48)

	bone := b.alloc(mdl.BoneSize)
	b.i32(156, 1)
	b.i32(160, bone)
	b.i32(bone+4, -1)
	b.f32(bone+44, 0, 0, 0, 1)

	tex := b.alloc(mdl.TextureSize)
	b.i32(204, 1)
	b.i32(208, tex)
	cd := b.alloc(4)
	b.i32(212, 1)
	b.i32(216, cd)

	bp := b.alloc(mdl.BodyPartSize)
	b.i32(232, 1)
	b.i32(236, bp)
	models := b.alloc(2 * int(mdl.ModelStrides[0]))
	mesh := b.alloc(int(mdl.MeshStrides[0]))
	b.i32(bp+4, 2)
	b.i32(bp+12, models-bp)
	copy(b[models:], "crate")
	b.i32(models+72, 1)
	b.i32(models+76, mesh-models)
	copy(b[models+int(mdl.ModelStrides[0]):], "off")
	b.i32(mesh, 0)

	b.i32(bone, b.str("root")-bone)
	b.i32(tex, b.str("crate")-tex)
	b.i32(cd, b.str("models/shared/"))
	b.i32(bp, b.str("body")-bp)
	return b
}

// testVVD has a unit quad.
func testVVD() []byte {
	b := make(buf, 0, 512)
	b.alloc(vvd.HeaderSize)
	copy(b, vvd.Magic)
	b.i32(12, 1)
	b.i32(16, 4)
	b.i32(56, vvd.HeaderSize)
	b.i32(60, 0)
	for i, c := range [][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}} {
		v := b.alloc(vvd.VertexSize)
		b.f32(v, 0.5, 0.5, 0)
		b[v+12], b[v+13], b[v+15] = 0, byte(i%2), 2
		b.f32(v+16, c[0], c[1], 0, 0, 0, 1, c[0], c[1])
	}
	b.i32(52, 0)
	return b
}

// testVTX has one body part with a model with one mesh (two triangles) and a
// model with no meshes.
func testVTX() []byte {
	b := make(buf, 0, 512)
	b.alloc(vtx.HeaderSize)
	b.i32(0, vtx.Version)
	bp := b.alloc(vtx.BodyPartSize)
	b.i32(28, 1)
	b.i32(32, bp)
	models := b.alloc(2 * vtx.ModelSize)
	b.i32(bp, 2)
	b.i32(bp+4, models-bp)
	for i := 0; i < 2; i++ {
		m := models + i*vtx.ModelSize
		lod := b.alloc(vtx.LODSize)
		b.i32(m, 1)
		b.i32(m+4, lod-m)
		meshes := b.alloc((1 - i) * vtx.MeshSize)
		b.i32(lod, 1-i)
		b.i32(lod+4, meshes-lod)
		if i != 0 {
			continue
		}
		sg := b.alloc(vtx.StripGroupSize)
		b.i32(meshes, 1)
		b.i32(meshes+4, sg-meshes)
		verts := b.alloc(4 * vtx.VertexSize)
		for j := 0; j < 4; j++ {
			b.u16(verts+j*vtx.VertexSize+4, uint16(j))
		}
		idx := b.alloc(6 * vtx.IndexSize)
		for j, x := range []uint16{0, 1, 2, 0, 2, 3} {
			b.u16(idx+j*vtx.IndexSize, x)
		}
		b.i32(sg, 4)
		b.i32(sg+4, verts-sg)
		b.i32(sg+8, 6)
		b.i32(sg+12, idx-sg)
		b.i32(sg+20, 0)
	}
	return b
}

// testVTF is a 1x1 RGBA8888 texture.
func testVTF() []byte {
	b := make(buf, 0, 128)
	b.alloc(80)
	copy(b, vtf.Magic)
	b.i32(4, 7)
	b.i32(8, 2)
	b.i32(12, 80)
	b.u16(16, 1)
	b.u16(18, 1)
	b.u16(24, 1)
	b.i32(52, int(vtf.FormatRGBA8888))
	b[56] = 1
	b.i32(57, int(vtf.FormatNone))
	b.u16(63, 1)
	b = append(b, 10, 20, 30, 255)
	return b
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"models/props/crate.mdl":                    {Data: testMDL()},
		"models/props/crate.vvd":                    {Data: testVVD()},
		"models/props/crate.dx90.vtx":               {Data: testVTX()},
		"materials/models/shared/crate.vmt":         {Data: []byte("VertexLitGeneric { $basetexture models/shared/crate_diffuse }")},
		"materials/models/shared/crate_diffuse.vtf": {Data: testVTF()},
	}
}

func TestLoad(t *testing.T) {
	var dc diag.Collector
	m, err := Load(testFS(), "Models\\Props\\Crate.mdl", Options{Diag: &dc, LoadTextures: true})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Placeholder {
		t.Fatalf("unexpected placeholder: %s", dc.String())
	}
	if len(dc.Records()) != 0 {
		t.Errorf("unexpected diagnostics: %s", dc.String())
	}

	if len(m.Meshes) != 2 {
		t.Fatalf("expected a mesh and a placeholder, got %d meshes", len(m.Meshes))
	}
	mesh := m.Meshes[0]
	if mesh.Empty || mesh.Triangles() != 2 || len(mesh.Vertices) != 4 || mesh.Material != "crate" || mesh.MaterialIndex != 0 {
		t.Errorf("unexpected mesh %v", mesh)
	}
	for _, v := range mesh.Vertices {
		if s := int(v.BoneWeights[0]) + int(v.BoneWeights[1]) + int(v.BoneWeights[2]) + int(v.BoneWeights[3]); s != 255 {
			t.Errorf("weights %v sum to %d", v.BoneWeights, s)
		}
	}
	if !m.Meshes[1].Empty {
		t.Errorf("expected placeholder for the empty choice")
	}
	if len(m.BodyGroups) != 1 || m.BodyGroups[0].Name != "body" || len(m.BodyGroups[0].Choices) != 2 ||
		m.BodyGroups[0].Choices[0].Name != "crate" || m.BodyGroups[0].Choices[1].Name != "off" ||
		m.BodyGroups[0].Choices[1].Meshes[0] != 1 {
		t.Errorf("unexpected body groups %+v", m.BodyGroups)
	}
	if len(m.Bones) != 1 || m.Bones[0].Name != "root" || m.Bones[0].Parent != -1 {
		t.Errorf("unexpected bones %+v", m.Bones)
	}
	if m.Max[0] != 1 || m.Max[1] != 1 || m.Min[0] != 0 {
		t.Errorf("unexpected bounds %v %v", m.Min, m.Max)
	}

	if len(m.Materials) != 1 {
		t.Fatalf("expected one material, got %d", len(m.Materials))
	}
	mt := m.Materials[0]
	if mt.Path != "materials/models/shared/crate.vmt" || mt.BaseTexture != "materials/models/shared/crate_diffuse.vtf" {
		t.Errorf("unexpected material %+v", mt)
	}
	if mt.Texture == nil || mt.Texture.Fallback || !bytes.Equal(mt.Texture.Pix, []byte{10, 20, 30, 255}) {
		t.Errorf("unexpected texture %+v", mt.Texture)
	}
}

func TestLoadCompanions(t *testing.T) {
	fsys := testFS()
	fsys["models/props/crate.vtx"] = fsys["models/props/crate.dx90.vtx"]
	delete(fsys, "models/props/crate.dx90.vtx")

	var dc diag.Collector
	m, err := Load(fsys, "models/props/crate.mdl", Options{
		Diag: &dc,
		MaterialParser: func(b []byte) (*material.Material, error) {
			return &material.Material{Params: map[string]string{"$basetexture": "custom"}}, nil
		},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Placeholder {
		t.Fatalf("unexpected placeholder: %s", dc.String())
	}
	if n := dc.Count(diag.Absent); n != 3 || len(dc.Records()) != 3 {
		t.Errorf("expected three missing vtx variants, got %s", dc.String())
	}
	if mt := m.Materials[0]; mt.BaseTexture != "materials/custom.vtf" || mt.Texture != nil {
		t.Errorf("unexpected material %+v", mt)
	}
}

func TestLoadPlaceholder(t *testing.T) {
	for _, tc := range []struct {
		name   string
		modify func(fstest.MapFS)
		err    error
	}{
		{"missing vvd", func(fsys fstest.MapFS) {
			delete(fsys, "models/props/crate.vvd")
		}, diag.ErrMissingCompanionFile},
		{"missing vtx", func(fsys fstest.MapFS) {
			delete(fsys, "models/props/crate.dx90.vtx")
		}, diag.ErrMissingCompanionFile},
		{"compressed", func(fsys fstest.MapFS) {
			b := testMDL()
			copy(b, mdl.MagicCompressed)
			fsys["models/props/crate.mdl"] = &fstest.MapFile{Data: b}
		}, diag.ErrUnsupportedFormat},
		{"bad magic", func(fsys fstest.MapFS) {
			fsys["models/props/crate.mdl"] = &fstest.MapFile{Data: make([]byte, mdl.HeaderSize)}
		}, diag.ErrMalformedHeader},
		{"no triangles", func(fsys fstest.MapFS) {
			fsys["models/props/crate.vvd"] = &fstest.MapFile{Data: testVVD()[:vvd.HeaderSize]}
		}, diag.ErrTruncatedData},
	} {
		fsys := testFS()
		tc.modify(fsys)

		var dc diag.Collector
		m, err := Load(fsys, "models/props/crate.mdl", Options{Diag: &dc})
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
			continue
		}
		if !m.Placeholder || len(m.Meshes) != 1 || m.Meshes[0].Triangles() != 2 || len(m.BodyGroups) != 1 {
			t.Errorf("%s: expected quad placeholder, got %+v", tc.name, m)
		}
		if dc.Count(diag.Degraded) != 1 || !dc.Has(tc.err) {
			t.Errorf("%s: expected degraded diagnostic wrapping %v, got %s", tc.name, tc.err, dc.String())
		}
	}

	_, err := Load(testFS(), "models/props/nope.mdl", Options{})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not exist error, got %v", err)
	}
}
