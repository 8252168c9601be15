package studiomodel

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pg9182/srcvpk/mdl"
)

// Bone is a bone with its resolved world transform.
type Bone struct {
	Name       string
	Parent     int // -1 for roots
	ParentName string

	LocalPosition mgl32.Vec3
	LocalRotation mgl32.Quat
	WorldPosition mgl32.Vec3
	WorldRotation mgl32.Quat
}

// BuildSkeleton resolves the world transform of each bone. Bones are
// processed in order, and a bone whose parent is not an earlier bone is
// treated as a root.
func BuildSkeleton(bones []mdl.Bone) []Bone {
	r := make([]Bone, len(bones))
	for i, b := range bones {
		x := &r[i]
		x.Name = b.Name
		x.Parent = int(b.Parent)
		x.LocalPosition = b.Position
		x.LocalRotation = normalize(b.Rotation)
		if x.Parent < 0 || x.Parent >= i {
			x.Parent = -1
			x.WorldPosition = x.LocalPosition
			x.WorldRotation = x.LocalRotation
			continue
		}
		p := &r[x.Parent]
		x.ParentName = p.Name
		x.WorldPosition = p.WorldPosition.Add(p.WorldRotation.Rotate(x.LocalPosition))
		x.WorldRotation = normalize(p.WorldRotation.Mul(x.LocalRotation))
	}
	return r
}

// normalize normalizes q, replacing degenerate rotations with the identity.
func normalize(q mgl32.Quat) mgl32.Quat {
	l := math32.Sqrt(q.W*q.W + q.V.Dot(q.V))
	if !(l > 1e-6) || math32.IsInf(l, 0) {
		return mgl32.QuatIdent()
	}
	return mgl32.Quat{W: q.W / l, V: q.V.Mul(1 / l)}
}
