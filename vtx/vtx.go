// Package vtx reads the optimized strip hierarchy of studio models (.vtx).
//
// The hierarchy is body part -> model -> LOD -> mesh -> strip group. Every
// link is a count and an offset relative to the start of the record holding
// it. All links are bounds-checked before being followed; a bad link is
// treated as having no children and is recorded as a warning.
package vtx

import (
	"fmt"

	"github.com/pg9182/srcvpk/diag"
	"github.com/pg9182/srcvpk/internal/bincursor"
)

// Version is the only known VTX version.
const Version = 7

// Record sizes.
const (
	HeaderSize     = 36
	BodyPartSize   = 8
	ModelSize      = 8
	LODSize        = 12
	MeshSize       = 9
	StripGroupSize = 25
	VertexSize     = 9
	StripSize      = 27
	IndexSize      = 2
)

// origMeshVertexOffset is the position of the original mesh vertex index in
// a strip group vertex.
const origMeshVertexOffset = 4

// Header is the fixed VTX header.
type Header struct {
	Version                  int32
	VertCacheSize            int32
	MaxBonesPerStrip         uint16
	MaxBonesPerTri           uint16
	MaxBonesPerVert          int32
	Checksum                 int32
	LODs                     int32
	MaterialReplacementIndex int32
	BodyParts                int32
	BodyPartOffset           int32
}

// File is a parsed VTX header along with the data needed to walk the
// hierarchy lazily. It is not safe for concurrent use.
type File struct {
	Header Header

	c      *bincursor.Cursor
	source string
	dc     *diag.Collector
}

// Read parses the header of a VTX. Problems found while walking the
// hierarchy later are recorded in dc under source.
func Read(data []byte, source string, dc *diag.Collector) (*File, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("read vtx header: %d bytes: %w", len(data), diag.ErrTruncatedData)
	}
	f := &File{
		c:      bincursor.New(data),
		source: source,
		dc:     dc,
	}
	h := &f.Header
	h.Version, _ = f.c.I32()
	h.VertCacheSize, _ = f.c.I32()
	h.MaxBonesPerStrip, _ = f.c.U16()
	h.MaxBonesPerTri, _ = f.c.U16()
	h.MaxBonesPerVert, _ = f.c.I32()
	h.Checksum, _ = f.c.I32()
	h.LODs, _ = f.c.I32()
	h.MaterialReplacementIndex, _ = f.c.I32()
	h.BodyParts, _ = f.c.I32()
	h.BodyPartOffset, _ = f.c.I32()
	if h.Version != Version {
		dc.Warnf(source, "unexpected vtx version %d", h.Version)
	}
	return f, nil
}

// link is a count/offset pair.
type link struct {
	what   string
	count  int32
	offset int64 // absolute
	stride int64
}

// at returns the absolute position of child i.
func (l link) at(i int) int64 {
	return l.offset + int64(i)*l.stride
}

// link reads the count/offset pair at rec+field, which links to records of
// the provided stride. If the pair or the children don't fit, a warning is
// recorded and a link with no children is returned.
func (f *File) link(what string, rec, field, stride int64) link {
	l := link{what: what, stride: stride}
	if !f.c.Fits(rec+field, 8) {
		f.dc.Warnf(f.source, "%s link at %d: %w", what, rec+field, diag.ErrTruncatedData)
		return l
	}
	f.c.Seek(rec + field)
	n, _ := f.c.I32()
	off, _ := f.c.I32()
	if n < 0 || !f.c.Fits(rec+int64(off), int64(n)*stride) {
		f.dc.Warnf(f.source, "%d %s at %d+%d: %w", n, what, rec, off, diag.ErrTruncatedData)
		return l
	}
	l.count, l.offset = n, rec+int64(off)
	return l
}

func (f *File) bodyParts() link {
	return f.link("body parts", 0, 28, BodyPartSize)
}

func (f *File) models(bp int64) link {
	return f.link("models", bp, 0, ModelSize)
}

func (f *File) lods(m int64) link {
	return f.link("lods", m, 0, LODSize)
}

func (f *File) meshes(lod int64) link {
	return f.link("meshes", lod, 0, MeshSize)
}

func (f *File) stripGroups(me int64) link {
	return f.link("strip groups", me, 0, StripGroupSize)
}

func (f *File) sgVertices(sg int64) link {
	return f.link("vertices", sg, 0, VertexSize)
}

func (f *File) sgIndices(sg int64) link {
	return f.link("indices", sg, 8, IndexSize)
}

func (f *File) sgStrips(sg int64) link {
	return f.link("strips", sg, 16, StripSize)
}

// Summary contains aggregate counts for the whole hierarchy.
type Summary struct {
	BodyParts   int
	Models      int
	LODs        int
	Meshes      int
	StripGroups int
	Strips      int
	Indices     int
	Vertices    int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d bodyparts, %d models, %d lods, %d meshes, %d strip groups, %d strips, %d indices, %d vertices",
		s.BodyParts, s.Models, s.LODs, s.Meshes, s.StripGroups, s.Strips, s.Indices, s.Vertices)
}

// Summary walks the entire hierarchy.
func (f *File) Summary() (s Summary) {
	bps := f.bodyParts()
	for bp := 0; bp < int(bps.count); bp++ {
		s.BodyParts++
		ms := f.models(bps.at(bp))
		for m := 0; m < int(ms.count); m++ {
			s.Models++
			lods := f.lods(ms.at(m))
			for lod := 0; lod < int(lods.count); lod++ {
				s.LODs++
				mes := f.meshes(lods.at(lod))
				for me := 0; me < int(mes.count); me++ {
					s.Meshes++
					sgs := f.stripGroups(mes.at(me))
					for sg := 0; sg < int(sgs.count); sg++ {
						s.StripGroups++
						s.Vertices += int(f.sgVertices(sgs.at(sg)).count)
						s.Indices += int(f.sgIndices(sgs.at(sg)).count)
						s.Strips += int(f.sgStrips(sgs.at(sg)).count)
					}
				}
			}
		}
	}
	return
}

// Layout returns the number of meshes at LOD 0 of each model of each body
// part.
func (f *File) Layout() [][]int {
	bps := f.bodyParts()
	r := make([][]int, bps.count)
	for bp := range r {
		ms := f.models(bps.at(bp))
		r[bp] = make([]int, ms.count)
		for m := range r[bp] {
			if lods := f.lods(ms.at(m)); lods.count > 0 {
				r[bp][m] = int(f.meshes(lods.at(0)).count)
			}
		}
	}
	return r
}

// mesh returns the position of a mesh record.
func (f *File) mesh(bp, m, lod, me int) (int64, bool) {
	at := func(l link, i int) (int64, bool) {
		if i < 0 || i >= int(l.count) {
			f.dc.Warnf(f.source, "%s %d out of range (%d): %w", l.what, i, l.count, diag.ErrTruncatedData)
			return 0, false
		}
		return l.at(i), true
	}
	pos, ok := at(f.bodyParts(), bp)
	if ok {
		pos, ok = at(f.models(pos), m)
	}
	if ok {
		pos, ok = at(f.lods(pos), lod)
	}
	if ok {
		pos, ok = at(f.meshes(pos), me)
	}
	return pos, ok
}

// MeshVertexIndices returns, for each render index of a mesh, the original
// mesh vertex index it refers to. On error, the indices resolved so far are
// returned.
func (f *File) MeshVertexIndices(bp, m, lod, me int) []uint16 {
	pos, ok := f.mesh(bp, m, lod, me)
	if !ok {
		return nil
	}
	var r []uint16
	sgs := f.stripGroups(pos)
	for sg := 0; sg < int(sgs.count); sg++ {
		vs := f.sgVertices(sgs.at(sg))
		is := f.sgIndices(sgs.at(sg))
		for i := 0; i < int(is.count); i++ {
			f.c.Seek(is.at(i))
			idx, _ := f.c.U16()
			if int32(idx) >= vs.count {
				f.dc.Warnf(f.source, "mesh %d/%d/%d/%d: strip group %d: index %d: vertex %d out of range (%d): %w", bp, m, lod, me, sg, i, idx, vs.count, diag.ErrTruncatedData)
				return r
			}
			f.c.Seek(vs.at(int(idx)) + origMeshVertexOffset)
			v, _ := f.c.U16()
			r = append(r, v)
		}
	}
	return r
}
