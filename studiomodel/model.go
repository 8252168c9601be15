// Package studiomodel assembles studio models (.mdl with .vvd and .vtx) into
// skinned triangle meshes with a skeleton, body groups and materials.
package studiomodel

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pg9182/srcvpk/diag"
	"github.com/pg9182/srcvpk/material"
	"github.com/pg9182/srcvpk/mdl"
	"github.com/pg9182/srcvpk/vtf"
	"github.com/pg9182/srcvpk/vtx"
	"github.com/pg9182/srcvpk/vvd"
	"github.com/pkg/errors"
)

// StripExts are the extensions of the strip files, in order of preference.
var StripExts = []string{".dx90.vtx", ".dx80.vtx", ".sw.vtx", ".vtx"}

// Model is an assembled studio model.
type Model struct {
	Name       string
	Meshes     []*Mesh
	BodyGroups []BodyGroup
	Bones      []Bone
	Materials  []Material // by material index
	Min, Max   mgl32.Vec3

	// Placeholder is set if the model couldn't be assembled and was replaced
	// by a flat quad.
	Placeholder bool
}

// BodyGroup is a set of mutually exclusive choices.
type BodyGroup struct {
	Name    string
	Choices []Choice
}

// Choice is an alternative for a body group.
type Choice struct {
	Name   string
	Meshes []int // into Model.Meshes
}

// Options configures Load.
type Options struct {
	// Diag receives problems encountered while loading.
	Diag *diag.Collector
	// MaterialParser parses materials. If nil, material.Parse is used.
	MaterialParser func([]byte) (*material.Material, error)
	// LoadTextures decodes the base texture of each material.
	LoadTextures bool
}

func readPart(fsys fs.FS, name string) ([]byte, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read model part %q", name)
	}
	return b, nil
}

// Load loads a model from fsys. It only fails if the .mdl itself can't be
// read. If the model can't be assembled, a placeholder is returned and the
// reason is recorded as a degraded diagnostic.
func Load(fsys fs.FS, name string, opt Options) (*Model, error) {
	name = strings.ToLower(strings.ReplaceAll(name, "\\", "/"))
	data, err := readPart(fsys, name)
	if err != nil {
		return nil, err
	}
	m, err := assemble(fsys, name, data, opt)
	if err != nil {
		opt.Diag.Degradef(name, "%w", err)
		return Placeholder(name), nil
	}
	return m, nil
}

func assemble(fsys fs.FS, name string, data []byte, opt Options) (*Model, error) {
	dc := opt.Diag
	if len(data) >= 4 && string(data[:4]) == mdl.MagicCompressed {
		return nil, errors.Wrap(diag.ErrUnsupportedFormat, "compressed mdl")
	}
	mf, err := mdl.Read(data, name, dc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read mdl")
	}

	base := strings.TrimSuffix(name, ".mdl")
	vvdData, err := readPart(fsys, base+".vvd")
	if err != nil {
		return nil, errors.Wrapf(diag.ErrMissingCompanionFile, "failed to read vvd: %v", err)
	}
	vf, err := vvd.Read(vvdData, base+".vvd", dc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read vvd")
	}

	var tf *vtx.File
	for _, ext := range StripExts {
		b, err := readPart(fsys, base+ext)
		if err != nil {
			dc.Absentf(name, "%v", err)
			continue
		}
		if tf, err = vtx.Read(b, base+ext, dc); err != nil {
			return nil, errors.Wrap(err, "failed to read vtx")
		}
		break
	}
	if tf == nil {
		return nil, errors.Wrap(diag.ErrMissingCompanionFile, "failed to find vtx")
	}

	m := &Model{Name: name}
	offsets := ComputeVertexOffsets(tf)
	if n := offsets.Total(); n != len(vf.Vertices) {
		dc.Warnf(name, "strips use %d vertices, but vvd has %d", n, len(vf.Vertices))
	}

	textures := mf.TextureNames()
	parts := mf.BodyParts()
	var triangles int
	for bp, models := range tf.Layout() {
		g := BodyGroup{Name: fmt.Sprintf("bodypart%d", bp)}
		if bp < len(parts) && parts[bp].Name != "" {
			g.Name = parts[bp].Name
		}
		for mi, meshes := range models {
			c := Choice{Name: fmt.Sprintf("model%d", mi)}
			if bp < len(parts) && mi < len(parts[bp].Models) && parts[bp].Models[mi] != "" {
				c.Name = parts[bp].Models[mi]
			}
			for me := 0; me < meshes; me++ {
				mesh := BuildMesh(tf, offsets, vf.Vertices, bp, mi, me, name, dc)
				if mesh.Triangles() == 0 {
					continue
				}
				if mesh.MaterialIndex = mf.MeshMaterialIndex(bp, mi, me); mesh.MaterialIndex >= 0 && mesh.MaterialIndex < len(textures) {
					mesh.Material = textures[mesh.MaterialIndex]
				} else {
					dc.Warnf(name, "mesh %d/%d/%d: unknown material index %d", bp, mi, me, mesh.MaterialIndex)
				}
				triangles += mesh.Triangles()
				c.Meshes = append(c.Meshes, len(m.Meshes))
				m.Meshes = append(m.Meshes, mesh)
			}
			if len(c.Meshes) == 0 {
				c.Meshes = append(c.Meshes, len(m.Meshes))
				m.Meshes = append(m.Meshes, EmptyMesh(bp, mi))
			}
			g.Choices = append(g.Choices, c)
		}
		m.BodyGroups = append(m.BodyGroups, g)
	}
	if triangles == 0 {
		return nil, errors.Wrap(diag.ErrTruncatedData, "no usable meshes")
	}

	m.Bones = BuildSkeleton(mf.Bones())
	m.Materials = ResolveMaterials(fsys, name, textures, mf.TextureDirs(), opt)
	m.Min, m.Max = m.bounds()
	return m, nil
}

func (m *Model) bounds() (lo, hi mgl32.Vec3) {
	first := true
	for _, mesh := range m.Meshes {
		if mesh.Empty || len(mesh.Vertices) == 0 {
			continue
		}
		if first {
			lo, hi, first = mesh.Min, mesh.Max, false
			continue
		}
		for i := range 3 {
			lo[i] = min(lo[i], mesh.Min[i])
			hi[i] = max(hi[i], mesh.Max[i])
		}
	}
	return
}

// Placeholder returns a flat unit quad facing +Z.
func Placeholder(name string) *Model {
	mesh := &Mesh{
		MaterialIndex: -1,
		Indices:       []uint32{0, 2, 1, 0, 3, 2},
		Min:           mgl32.Vec3{-1, -1, 0},
		Max:           mgl32.Vec3{1, 1, 0},
	}
	for _, c := range [][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
		mesh.Vertices = append(mesh.Vertices, Vertex{
			Position:    mgl32.Vec3{c[0], c[1], 0},
			Normal:      mgl32.Vec3{0, 0, 1},
			Tangent:     placeholderTangent,
			TexCoord:    mgl32.Vec2{(c[0] + 1) / 2, (1 - c[1]) / 2},
			BoneWeights: [4]uint8{255},
		})
	}
	return &Model{
		Name:   name,
		Meshes: []*Mesh{mesh},
		BodyGroups: []BodyGroup{{
			Name:    "default",
			Choices: []Choice{{Name: "default", Meshes: []int{0}}},
		}},
		Min:         mesh.Min,
		Max:         mesh.Max,
		Placeholder: true,
	}
}

// Material is a resolved material.
type Material struct {
	Name string
	Path string // of the vmt, or empty if not found

	Params      map[string]string
	BaseTexture string       // path of the vtf, if any
	Texture     *vtf.Texture // if Options.LoadTextures is set
}

// MaterialPaths returns the candidate paths for a material used by the model
// at modelPath, in order of preference.
func MaterialPaths(modelPath, name string, dirs []string) []string {
	name = strings.ToLower(strings.Trim(strings.ReplaceAll(name, "\\", "/"), "/"))
	name = strings.TrimSuffix(name, ".vmt")
	var ps []string
	if strings.Contains(name, "/") {
		ps = append(ps, path.Join("materials", name)+".vmt")
	} else {
		ps = append(ps, path.Join("materials", path.Dir(modelPath), name)+".vmt")
	}
	for _, d := range dirs {
		d = strings.ToLower(strings.ReplaceAll(d, "\\", "/"))
		p := path.Join("materials", d, name) + ".vmt"
		if !contains(ps, p) {
			ps = append(ps, p)
		}
	}
	return ps
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// ResolveMaterials finds and parses the materials used by a model.
func ResolveMaterials(fsys fs.FS, modelPath string, names, dirs []string, opt Options) []Material {
	dc := opt.Diag
	parse := opt.MaterialParser
	if parse == nil {
		parse = material.Parse
	}
	ms := make([]Material, len(names))
	for i, n := range names {
		mt := &ms[i]
		mt.Name = n
		for _, p := range MaterialPaths(modelPath, n, dirs) {
			b, err := fs.ReadFile(fsys, p)
			if err != nil {
				continue
			}
			mt.Path = p
			v, err := parse(b)
			if err != nil {
				dc.Warnf(p, "parse material: %w", err)
			}
			if v == nil {
				break
			}
			mt.Params = v.Params
			if tex, ok := v.BaseTexture(); ok && tex != "" {
				mt.BaseTexture = material.TexturePath(tex)
			}
			break
		}
		if mt.Path == "" {
			dc.Absentf(modelPath, "material %q not found", n)
			continue
		}
		if opt.LoadTextures && mt.BaseTexture != "" {
			b, err := fs.ReadFile(fsys, mt.BaseTexture)
			if err != nil {
				dc.Absentf(mt.Path, "base texture: %v", err)
				continue
			}
			mt.Texture = vtf.LoadOrFallback(b, mt.BaseTexture, dc)
		}
	}
	return ms
}
