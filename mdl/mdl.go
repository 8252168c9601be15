// Package mdl reads the parts of studio model headers (.mdl) needed to
// assemble a static or skinned mesh: bones, textures, body parts and the
// material index of each mesh.
package mdl

import (
	"bytes"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pg9182/srcvpk/diag"
	"github.com/pg9182/srcvpk/internal/bincursor"
)

// Magics.
const (
	Magic           = "IDST"
	MagicCompressed = "MDLZ"
)

// Record sizes.
const (
	HeaderSize   = 240
	BoneSize     = 216
	TextureSize  = 64
	BodyPartSize = 16
)

// Candidate record strides for the model and mesh records, which differ
// between format revisions. The first is the common one.
var (
	ModelStrides = []int64{148, 144, 152}
	MeshStrides  = []int64{116, 112, 120}
)

// MaxMaterials bounds plausible mesh material indices.
const MaxMaterials = 1000

// Header is the studio model header.
type Header struct {
	ID            [4]byte
	Version       int32
	Checksum      int32
	Name          string
	Length        int32
	EyePosition   mgl32.Vec3
	IllumPosition mgl32.Vec3
	HullMin       mgl32.Vec3
	HullMax       mgl32.Vec3
	ViewMin       mgl32.Vec3
	ViewMax       mgl32.Vec3
	Flags         int32

	Bones          int32
	BoneIndex      int32
	Textures       int32
	TextureIndex   int32
	CDTextures     int32
	CDTextureIndex int32
	BodyParts      int32
	BodyPartIndex  int32
}

// File is a parsed MDL header. The tables are read on demand. It is not safe
// for concurrent use.
type File struct {
	Header Header

	c      *bincursor.Cursor
	source string
	dc     *diag.Collector
}

// Read parses the header of an uncompressed MDL.
func Read(data []byte, source string, dc *diag.Collector) (*File, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("read mdl header: %d bytes: %w", len(data), diag.ErrTruncatedData)
	}
	if string(data[:4]) != Magic {
		return nil, fmt.Errorf("read mdl header: bad magic %q: %w", data[:4], diag.ErrMalformedHeader)
	}
	f := &File{
		c:      bincursor.New(data),
		source: source,
		dc:     dc,
	}
	h := &f.Header
	c := f.c
	copy(h.ID[:], data[:4])
	c.Skip(4)
	h.Version, _ = c.I32()
	h.Checksum, _ = c.I32()
	name, _ := c.Bytes(64)
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	h.Name = string(name)
	h.Length, _ = c.I32()
	for _, v := range []*mgl32.Vec3{&h.EyePosition, &h.IllumPosition, &h.HullMin, &h.HullMax, &h.ViewMin, &h.ViewMax} {
		*v = f.vec3()
	}
	h.Flags, _ = c.I32()
	h.Bones, _ = c.I32()
	h.BoneIndex, _ = c.I32()
	c.Seek(204)
	h.Textures, _ = c.I32()
	h.TextureIndex, _ = c.I32()
	h.CDTextures, _ = c.I32()
	h.CDTextureIndex, _ = c.I32()
	c.Seek(232)
	h.BodyParts, _ = c.I32()
	h.BodyPartIndex, _ = c.I32()
	return f, nil
}

func (f *File) vec3() mgl32.Vec3 {
	v, _ := f.c.F32s(3)
	if len(v) != 3 {
		return mgl32.Vec3{}
	}
	return mgl32.Vec3{v[0], v[1], v[2]}
}

// table checks that n records of the provided size starting at off fit. If
// they don't, it returns how many do and records a warning.
func (f *File) table(what string, off, n int32, size int64) int {
	if n <= 0 {
		return 0
	}
	for i := int64(0); i < int64(n); i++ {
		if !f.c.Fits(int64(off)+i*size, size) {
			f.dc.Warnf(f.source, "%s %d of %d at %d: %w", what, i, n, int64(off)+i*size, diag.ErrTruncatedData)
			return int(i)
		}
	}
	return int(n)
}

// str reads a string at a relative offset from a record.
func (f *File) str(rec int64, off int32) string {
	s, _ := f.c.CStringAt(rec+int64(off), -1)
	return s
}

// Bone is a bone in its parent's space.
type Bone struct {
	Name     string
	Parent   int32 // -1 if none
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

// Bones reads the bone table, stopping at the first one which doesn't fit.
func (f *File) Bones() []Bone {
	n := f.table("bone", f.Header.BoneIndex, f.Header.Bones, BoneSize)
	bs := make([]Bone, n)
	for i := range bs {
		rec := int64(f.Header.BoneIndex) + int64(i)*BoneSize
		f.c.Seek(rec)
		nameOff, _ := f.c.I32()
		bs[i].Parent, _ = f.c.I32()
		f.c.Skip(6 * 4)
		bs[i].Position = f.vec3()
		q, _ := f.c.F32s(4)
		bs[i].Rotation = mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}
		if bs[i].Name = f.str(rec, nameOff); nameOff == 0 || bs[i].Name == "" {
			bs[i].Name = fmt.Sprintf("bone%d", i)
		}
	}
	return bs
}

// TextureNames reads the material names, stopping at the first record which
// doesn't fit.
func (f *File) TextureNames() []string {
	n := f.table("texture", f.Header.TextureIndex, f.Header.Textures, TextureSize)
	ns := make([]string, n)
	for i := range ns {
		rec := int64(f.Header.TextureIndex) + int64(i)*TextureSize
		f.c.Seek(rec)
		nameOff, _ := f.c.I32()
		ns[i] = f.str(rec, nameOff)
	}
	return ns
}

// TextureDirs reads the material search directories.
func (f *File) TextureDirs() []string {
	n := f.table("cdtexture", f.Header.CDTextureIndex, f.Header.CDTextures, 4)
	ds := make([]string, 0, n)
	for i := 0; i < n; i++ {
		f.c.Seek(int64(f.Header.CDTextureIndex) + int64(i)*4)
		off, _ := f.c.I32()
		if s := f.str(0, off); s != "" {
			ds = append(ds, s)
		}
	}
	return ds
}

// BodyPart is a body group and the names of its choices.
type BodyPart struct {
	Name   string
	Base   int32
	Models []string
}

// BodyParts reads the body part table and the names of the models in each.
// Model names are read using the first candidate model stride.
func (f *File) BodyParts() []BodyPart {
	n := f.table("bodypart", f.Header.BodyPartIndex, f.Header.BodyParts, BodyPartSize)
	bps := make([]BodyPart, n)
	for i := range bps {
		rec := int64(f.Header.BodyPartIndex) + int64(i)*BodyPartSize
		f.c.Seek(rec)
		nameOff, _ := f.c.I32()
		models, _ := f.c.I32()
		bps[i].Base, _ = f.c.I32()
		modelOff, _ := f.c.I32()
		bps[i].Name = f.str(rec, nameOff)

		m := f.table("model", int32(rec+int64(modelOff)), models, ModelStrides[0])
		for j := 0; j < m; j++ {
			at := rec + int64(modelOff) + int64(j)*ModelStrides[0]
			name, _ := f.c.CStringAt(at, int(at)+64)
			bps[i].Models = append(bps[i].Models, name)
		}
	}
	return bps
}

// MeshMaterialIndex finds the material index of mesh me of model m of body
// part bp by trying each candidate model and mesh stride until one yields a
// plausible index. It returns -1 if none do.
func (f *File) MeshMaterialIndex(bp, m, me int) int {
	if bp < 0 || bp >= int(f.Header.BodyParts) || m < 0 || me < 0 {
		return -1
	}
	rec := int64(f.Header.BodyPartIndex) + int64(bp)*BodyPartSize
	if !f.c.Fits(rec, BodyPartSize) {
		return -1
	}
	f.c.Seek(rec + 4)
	models, _ := f.c.I32()
	f.c.Skip(4)
	modelOff, _ := f.c.I32()
	if m >= int(models) {
		return -1
	}
	for _, ms := range ModelStrides {
		model := rec + int64(modelOff) + int64(m)*ms
		if !f.c.Fits(model, 80) {
			continue
		}
		f.c.Seek(model + 76)
		meshOff, _ := f.c.I32()
		for _, mes := range MeshStrides {
			mesh := model + int64(meshOff) + int64(me)*mes
			if !f.c.Fits(mesh, 4) {
				continue
			}
			f.c.Seek(mesh)
			if idx, _ := f.c.I32(); idx >= 0 && idx < MaxMaterials {
				return int(idx)
			}
		}
	}
	return -1
}
