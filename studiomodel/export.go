package studiomodel

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/chewxy/math32"
)

// VertexStride is the size of a packed vertex.
const VertexStride = 11*4 + 4 + 4

// PackVertices lays out vertices for upload: position, normal and tangent as
// 3 float32s, the texture coordinate as 2 float32s, then the four bone
// indices and four bone weights as bytes. Floats are little-endian.
func PackVertices(vs []Vertex) []byte {
	b := make([]byte, len(vs)*VertexStride)
	for i, v := range vs {
		p := b[i*VertexStride:]
		var fs []float32
		fs = append(fs, v.Position[:]...)
		fs = append(fs, v.Normal[:]...)
		fs = append(fs, v.Tangent[:]...)
		fs = append(fs, v.TexCoord[:]...)
		for j, f := range fs {
			binary.LittleEndian.PutUint32(p[j*4:], math32.Float32bits(f))
		}
		copy(p[44:48], v.BoneIndices[:])
		copy(p[48:52], v.BoneWeights[:])
	}
	return b
}

// WriteOBJ writes the non-placeholder meshes of the first choice of every
// body group as a Wavefront OBJ, with one group per mesh.
func (m *Model) WriteOBJ(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# %s\n", m.Name)
	base := 1
	for _, g := range m.BodyGroups {
		if len(g.Choices) == 0 {
			continue
		}
		for _, mi := range g.Choices[0].Meshes {
			mesh := m.Meshes[mi]
			if mesh.Empty {
				continue
			}
			fmt.Fprintf(bw, "g %s_%d\n", g.Name, mesh.Index)
			if mesh.Material != "" {
				fmt.Fprintf(bw, "usemtl %s\n", mesh.Material)
			}
			for _, v := range mesh.Vertices {
				fmt.Fprintf(bw, "v %g %g %g\n", v.Position[0], v.Position[1], v.Position[2])
			}
			for _, v := range mesh.Vertices {
				fmt.Fprintf(bw, "vt %g %g\n", v.TexCoord[0], 1-v.TexCoord[1])
			}
			for _, v := range mesh.Vertices {
				fmt.Fprintf(bw, "vn %g %g %g\n", v.Normal[0], v.Normal[1], v.Normal[2])
			}
			for i := 0; i+2 < len(mesh.Indices); i += 3 {
				a, b, c := int(mesh.Indices[i])+base, int(mesh.Indices[i+1])+base, int(mesh.Indices[i+2])+base
				fmt.Fprintf(bw, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, b, b, b, c, c, c)
			}
			base += len(mesh.Vertices)
		}
	}
	return bw.Flush()
}
