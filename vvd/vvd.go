// Package vvd reads studio model vertex data (.vvd) files.
package vvd

import (
	"fmt"

	"github.com/pg9182/srcvpk/diag"
	"github.com/pg9182/srcvpk/internal/bincursor"
)

// Magic is the file ID of a VVD.
const Magic = "IDSV"

// Record sizes.
const (
	HeaderSize = 64
	FixupSize  = 12
	VertexSize = 48
	MaxLODs    = 8
)

// Header is the fixed VVD header.
type Header struct {
	ID               [4]byte
	Version          int32
	Checksum         int32
	LODs             int32
	LODVertexCount   [MaxLODs]int32
	FixupCount       int32
	FixupTableOffset int32
	VertexDataOffset int32
	TangentOffset    int32
}

// Fixup copies Count raw vertices starting at Source into the vertex list of
// LOD.
type Fixup struct {
	LOD    int32
	Source int32
	Count  int32
}

// Vertex is a raw vertex record.
type Vertex struct {
	Weights   [3]float32
	Bones     [3]uint8
	BoneCount uint8
	Position  [3]float32
	Normal    [3]float32
	UV        [2]float32
}

// File is a parsed VVD. If reading failed part way, Header and Fixups are
// populated as far as they could be read and Vertices may be empty.
type File struct {
	Header   Header
	Fixups   []Fixup
	Vertices []Vertex // LOD 0, in mesh order
}

// Read parses a VVD, recording problems in dc. It only fails if the header
// can't be read.
func Read(data []byte, source string, dc *diag.Collector) (*File, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("read vvd header: %d bytes: %w", len(data), diag.ErrTruncatedData)
	}
	c := bincursor.New(data)

	var f File
	copy(f.Header.ID[:], data[:4])
	c.Skip(4)
	f.Header.Version, _ = c.I32()
	f.Header.Checksum, _ = c.I32()
	f.Header.LODs, _ = c.I32()
	lods, _ := c.I32s(MaxLODs)
	copy(f.Header.LODVertexCount[:], lods)
	f.Header.FixupCount, _ = c.I32()
	f.Header.FixupTableOffset, _ = c.I32()
	f.Header.VertexDataOffset, _ = c.I32()
	f.Header.TangentOffset, _ = c.I32()

	if string(f.Header.ID[:]) != Magic {
		dc.Warnf(source, "unexpected vvd id %q", f.Header.ID[:])
	}

	if f.Header.FixupCount > 0 {
		if !c.Fits(int64(f.Header.FixupTableOffset), int64(f.Header.FixupCount)*FixupSize) {
			dc.Warnf(source, "fixup table (%d entries at %d): %w", f.Header.FixupCount, f.Header.FixupTableOffset, diag.ErrTruncatedData)
			return &f, nil
		}
		c.Seek(int64(f.Header.FixupTableOffset))
		f.Fixups = make([]Fixup, f.Header.FixupCount)
		var pool int64
		for i := range f.Fixups {
			fx := &f.Fixups[i]
			fx.LOD, _ = c.I32()
			fx.Source, _ = c.I32()
			fx.Count, _ = c.I32()
			if fx.Source < 0 || fx.Count < 0 {
				dc.Warnf(source, "fixup %d: negative range (%d, %d): %w", i, fx.Source, fx.Count, diag.ErrTruncatedData)
				return &f, nil
			}
			pool = max(pool, int64(fx.Source)+int64(fx.Count))
		}
		raw, err := readVertices(c, int64(f.Header.VertexDataOffset), pool)
		if err != nil {
			dc.Warnf(source, "vertex pool: %w", err)
			return &f, nil
		}
		for _, fx := range f.Fixups {
			if fx.LOD != 0 {
				continue
			}
			f.Vertices = append(f.Vertices, raw[fx.Source:fx.Source+fx.Count]...)
		}
		return &f, nil
	}

	n := int64(f.Header.LODVertexCount[0])
	if n < 0 {
		dc.Warnf(source, "negative lod 0 vertex count %d: %w", n, diag.ErrMalformedHeader)
		return &f, nil
	}
	raw, err := readVertices(c, int64(f.Header.VertexDataOffset), n)
	if err != nil {
		dc.Warnf(source, "vertices: %w", err)
		return &f, nil
	}
	f.Vertices = raw
	return &f, nil
}

func readVertices(c *bincursor.Cursor, off, n int64) ([]Vertex, error) {
	if !c.Fits(off, n*VertexSize) {
		return nil, fmt.Errorf("%d vertices at %d: %w", n, off, diag.ErrTruncatedData)
	}
	c.Seek(off)
	vs := make([]Vertex, n)
	for i := range vs {
		v := &vs[i]
		w, _ := c.F32s(3)
		copy(v.Weights[:], w)
		b, _ := c.Bytes(3)
		copy(v.Bones[:], b)
		v.BoneCount, _ = c.U8()
		p, _ := c.F32s(3)
		copy(v.Position[:], p)
		nm, _ := c.F32s(3)
		copy(v.Normal[:], nm)
		uv, _ := c.F32s(2)
		copy(v.UV[:], uv)
	}
	return vs, nil
}
