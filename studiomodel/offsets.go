package studiomodel

// StripSource provides the strip hierarchy of a model. It is implemented by
// *vtx.File.
type StripSource interface {
	// Layout returns the number of LOD 0 meshes of each model of each body
	// part.
	Layout() [][]int
	// MeshVertexIndices returns the original mesh vertex index of each render
	// index of a mesh.
	MeshVertexIndices(bp, m, lod, me int) []uint16
}

// VertexOffsetTable maps mesh-local vertex indices to indices into the LOD 0
// vertex pool.
type VertexOffsetTable struct {
	BodyPartStart []int
	ModelStart    [][]int   // relative to the body part
	MeshStart     [][][]int // relative to the model
	MeshVertices  [][][]int // 1 + the largest original vertex index
}

// ComputeVertexOffsets walks every mesh at LOD 0 to find the number of
// vertices it uses, and accumulates them into offsets.
func ComputeVertexOffsets(s StripSource) *VertexOffsetTable {
	layout := s.Layout()
	t := &VertexOffsetTable{
		BodyPartStart: make([]int, len(layout)),
		ModelStart:    make([][]int, len(layout)),
		MeshStart:     make([][][]int, len(layout)),
		MeshVertices:  make([][][]int, len(layout)),
	}
	var bpStart int
	for bp, models := range layout {
		t.BodyPartStart[bp] = bpStart
		t.ModelStart[bp] = make([]int, len(models))
		t.MeshStart[bp] = make([][]int, len(models))
		t.MeshVertices[bp] = make([][]int, len(models))

		var modelStart int
		for m, meshes := range models {
			t.ModelStart[bp][m] = modelStart
			t.MeshStart[bp][m] = make([]int, meshes)
			t.MeshVertices[bp][m] = make([]int, meshes)

			var meshStart int
			for me := 0; me < meshes; me++ {
				var n int
				for _, v := range s.MeshVertexIndices(bp, m, 0, me) {
					n = max(n, int(v)+1)
				}
				t.MeshStart[bp][m][me] = meshStart
				t.MeshVertices[bp][m][me] = n
				meshStart += n
			}
			modelStart += meshStart
		}
		bpStart += modelStart
	}
	return t
}

// Global returns the vertex pool index of a mesh-local vertex, or -1 if the
// mesh isn't in the table.
func (t *VertexOffsetTable) Global(bp, m, me int, orig uint16) int {
	if bp < 0 || bp >= len(t.MeshStart) || m < 0 || m >= len(t.MeshStart[bp]) || me < 0 || me >= len(t.MeshStart[bp][m]) {
		return -1
	}
	return t.BodyPartStart[bp] + t.ModelStart[bp][m] + t.MeshStart[bp][m][me] + int(orig)
}

// Total returns the number of vertices covered by the table.
func (t *VertexOffsetTable) Total() (n int) {
	for _, models := range t.MeshVertices {
		for _, meshes := range models {
			for _, v := range meshes {
				n += v
			}
		}
	}
	return
}
