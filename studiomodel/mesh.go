package studiomodel

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pg9182/srcvpk/diag"
	"github.com/pg9182/srcvpk/vvd"
)

// Vertex is a skinned vertex. BoneWeights always sums to 255.
type Vertex struct {
	Position    mgl32.Vec3
	Normal      mgl32.Vec3
	Tangent     mgl32.Vec3
	TexCoord    mgl32.Vec2
	BoneIndices [4]uint8
	BoneWeights [4]uint8
}

// placeholderTangent is used since tangents aren't reconstructed.
var placeholderTangent = mgl32.Vec3{1, 0, 0}

// Mesh is a triangle list using a single material.
type Mesh struct {
	BodyPart, Model, Index int

	MaterialIndex int    // -1 if unknown
	Material      string // material name, if known

	Vertices []Vertex
	Indices  []uint32 // triangles
	Min, Max mgl32.Vec3

	// Empty is set for the degenerate placeholder emitted for choices
	// without any triangles.
	Empty bool
}

// Triangles returns the number of triangles.
func (m *Mesh) Triangles() int {
	return len(m.Indices) / 3
}

// PackWeights converts the bones and weights of a raw vertex into four
// bone indices and four weights summing to exactly 255. The rounding
// remainder goes to the heaviest bone.
func PackWeights(v vvd.Vertex) (idx, w [4]uint8) {
	n := min(int(v.BoneCount), 3)
	var total float32
	for i := 0; i < n; i++ {
		idx[i] = v.Bones[i]
		total += math32.Max(v.Weights[i], 0)
	}
	if n == 0 || !(total > 0) || math32.IsInf(total, 0) {
		idx, w = [4]uint8{v.Bones[0]}, [4]uint8{255}
		return
	}
	var sum, dom int
	for i := 0; i < n; i++ {
		x := int(math32.Floor(math32.Max(v.Weights[i], 0) / total * 255))
		w[i] = uint8(x)
		sum += x
		if v.Weights[i] > v.Weights[dom] {
			dom = i
		}
	}
	w[dom] = uint8(int(w[dom]) + 255 - sum)
	return
}

// SkinVertex converts a raw vertex.
func SkinVertex(v vvd.Vertex) Vertex {
	sv := Vertex{
		Position: mgl32.Vec3(v.Position),
		Normal:   mgl32.Vec3(v.Normal),
		Tangent:  placeholderTangent,
		TexCoord: mgl32.Vec2(v.UV),
	}
	sv.BoneIndices, sv.BoneWeights = PackWeights(v)
	return sv
}

// BuildMesh assembles LOD 0 of a mesh. Vertices are deduplicated, partial
// trailing triangles are dropped and the winding is flipped. Triangles which
// reference vertices outside the pool are skipped and recorded in dc.
func BuildMesh(s StripSource, t *VertexOffsetTable, pool []vvd.Vertex, bp, m, me int, source string, dc *diag.Collector) *Mesh {
	mesh := &Mesh{
		BodyPart:      bp,
		Model:         m,
		Index:         me,
		MaterialIndex: -1,
	}
	orig := s.MeshVertexIndices(bp, m, 0, me)
	if len(orig)%3 != 0 {
		dc.Warnf(source, "mesh %d/%d/%d: dropping %d trailing indices", bp, m, me, len(orig)%3)
		orig = orig[:len(orig)-len(orig)%3]
	}

	var skipped int
	local := map[int]uint32{}
	for i := 0; i < len(orig); i += 3 {
		var g [3]int
		ok := true
		for j := range g {
			if g[j] = t.Global(bp, m, me, orig[i+j]); g[j] < 0 || g[j] >= len(pool) {
				ok = false
			}
		}
		if !ok {
			skipped++
			continue
		}
		var tri [3]uint32
		for j, x := range g {
			l, seen := local[x]
			if !seen {
				l = uint32(len(mesh.Vertices))
				local[x] = l
				mesh.Vertices = append(mesh.Vertices, SkinVertex(pool[x]))
			}
			tri[j] = l
		}
		mesh.Indices = append(mesh.Indices, tri[0], tri[2], tri[1])
	}
	if skipped != 0 {
		dc.Warnf(source, "mesh %d/%d/%d: skipped %d triangles referencing vertices outside the pool (%d): %w", bp, m, me, skipped, len(pool), diag.ErrTruncatedData)
	}
	mesh.Min, mesh.Max = bounds(mesh.Vertices)
	return mesh
}

// EmptyMesh returns a placeholder for a choice without any triangles. It has
// a single zero-area triangle.
func EmptyMesh(bp, m int) *Mesh {
	const eps = 1e-4
	return &Mesh{
		BodyPart:      bp,
		Model:         m,
		MaterialIndex: -1,
		Vertices: []Vertex{{
			Normal:      mgl32.Vec3{0, 0, 1},
			Tangent:     placeholderTangent,
			BoneWeights: [4]uint8{255},
		}},
		Indices: []uint32{0, 0, 0},
		Min:     mgl32.Vec3{-eps, -eps, -eps},
		Max:     mgl32.Vec3{eps, eps, eps},
		Empty:   true,
	}
}

func bounds(vs []Vertex) (lo, hi mgl32.Vec3) {
	if len(vs) == 0 {
		return
	}
	lo, hi = vs[0].Position, vs[0].Position
	for _, v := range vs[1:] {
		for i := range 3 {
			lo[i] = math32.Min(lo[i], v.Position[i])
			hi[i] = math32.Max(hi[i], v.Position[i])
		}
	}
	return
}

func (m *Mesh) String() string {
	return fmt.Sprintf("mesh %d/%d/%d (%s): %d vertices, %d triangles", m.BodyPart, m.Model, m.Index, m.Material, len(m.Vertices), m.Triangles())
}
