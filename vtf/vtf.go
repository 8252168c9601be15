// Package vtf decodes Valve texture files.
package vtf

import (
	"fmt"
	"image"

	"github.com/pg9182/srcvpk/diag"
	"github.com/pg9182/srcvpk/internal/bincursor"
)

// Magic is the signature at the start of a VTF.
const Magic = "VTF\x00"

// Texture flags used when locating image data.
const (
	FlagEnvMap uint32 = 0x4000
)

// Resource tags (3 bytes, little-endian) in 7.3+ headers.
const (
	ResourceLowRes  uint32 = 0x01
	ResourceHighRes uint32 = 0x30
)

// Header is a parsed VTF header.
type Header struct {
	Major, Minor  int32
	HeaderSize    int32
	Width, Height uint16
	Flags         uint32
	Frames        uint16
	FirstFrame    uint16
	Reflectivity  [3]float32
	BumpScale     float32
	Format        Format
	MipCount      uint8
	LowResFormat  Format
	LowResWidth   uint8
	LowResHeight  uint8
	Depth         uint16            // 7.2+
	Resources     map[uint32]uint32 // 7.3+, tag -> data
}

// Faces returns the number of faces stored per frame.
func (h *Header) Faces() int {
	if h.Flags&FlagEnvMap == 0 {
		return 1
	}
	if h.Major == 7 && h.Minor < 5 && h.FirstFrame != 0xFFFF {
		return 7 // sphere map
	}
	return 6
}

// ReadHeader parses the header at the start of c.
func ReadHeader(c *bincursor.Cursor) (*Header, error) {
	if err := c.Seek(0); err != nil {
		return nil, err
	}
	sig, err := c.Bytes(4)
	if err != nil || string(sig) != Magic {
		return nil, fmt.Errorf("read header: bad magic %q: %w", sig, diag.ErrMalformedHeader)
	}
	var h Header
	var f [3]int32
	var r = func(fn func() error) {
		if err == nil {
			err = fn()
		}
	}
	r(func() (err error) { h.Major, err = c.I32(); return })
	r(func() (err error) { h.Minor, err = c.I32(); return })
	r(func() (err error) { h.HeaderSize, err = c.I32(); return })
	r(func() (err error) { h.Width, err = c.U16(); return })
	r(func() (err error) { h.Height, err = c.U16(); return })
	r(func() (err error) { h.Flags, err = c.U32(); return })
	r(func() (err error) { h.Frames, err = c.U16(); return })
	r(func() (err error) { h.FirstFrame, err = c.U16(); return })
	r(func() error { return c.Skip(4) })
	r(func() error {
		v, err := c.F32s(3)
		if err == nil {
			copy(h.Reflectivity[:], v)
		}
		return err
	})
	r(func() error { return c.Skip(4) })
	r(func() (err error) { h.BumpScale, err = c.F32(); return })
	r(func() (err error) { f[0], err = c.I32(); return })
	r(func() (err error) { h.MipCount, err = c.U8(); return })
	r(func() (err error) { f[1], err = c.I32(); return })
	r(func() (err error) { h.LowResWidth, err = c.U8(); return })
	r(func() (err error) { h.LowResHeight, err = c.U8(); return })
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	h.Format, h.LowResFormat = Format(f[0]), Format(f[1])
	if h.Major != 7 {
		return nil, fmt.Errorf("read header: unsupported version %d.%d: %w", h.Major, h.Minor, diag.ErrMalformedHeader)
	}
	if h.Width == 0 || h.Height == 0 {
		return nil, fmt.Errorf("read header: invalid size %dx%d: %w", h.Width, h.Height, diag.ErrMalformedHeader)
	}
	h.Depth = 1
	if h.Minor >= 2 {
		if h.Depth, err = c.U16(); err != nil {
			return nil, fmt.Errorf("read header: depth: %w", err)
		}
		if h.Depth == 0 {
			h.Depth = 1
		}
	}
	if h.Minor >= 3 {
		var n uint32
		r(func() error { return c.Skip(3) })
		r(func() (err error) { n, err = c.U32(); return })
		r(func() error { return c.Skip(8) })
		if err != nil {
			return nil, fmt.Errorf("read header: resources: %w", err)
		}
		h.Resources = map[uint32]uint32{}
		for i := uint32(0); i < n; i++ {
			tag, err1 := c.U32()
			data, err2 := c.U32()
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("read header: resource %d: %w", i, diag.ErrTruncatedData)
			}
			h.Resources[tag&0xFFFFFF] = data
		}
	}
	return &h, nil
}

// mipSize returns the size of every frame, face and slice of mip level l.
func (h *Header) mipSize(l int) int {
	w, ht, d := max(1, int(h.Width)>>l), max(1, int(h.Height)>>l), max(1, int(h.Depth)>>l)
	return ImageSize(h.Format, w, ht) * d * max(1, int(h.Frames)) * h.Faces()
}

// ImageOffset returns the offset of the largest mip of the first frame, face
// and slice.
func (h *Header) ImageOffset() int {
	var off int
	if v, ok := h.Resources[ResourceHighRes]; ok {
		off = int(v)
	} else {
		off = int(h.HeaderSize)
		if h.LowResFormat != FormatNone {
			off += ImageSize(h.LowResFormat, int(h.LowResWidth), int(h.LowResHeight))
		}
	}
	for l := int(h.MipCount) - 1; l > 0; l-- {
		off += h.mipSize(l)
	}
	return off
}

// Texture is a decoded RGBA8 image.
type Texture struct {
	Width, Height int
	Pix           []byte // Width*Height*4
	Header        *Header
	Fallback      bool
}

// Image wraps the pixels as an image.
func (t *Texture) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    t.Pix,
		Stride: t.Width * 4,
		Rect:   image.Rect(0, 0, t.Width, t.Height),
	}
}

// Load decodes the largest mip of the first frame of a VTF.
func Load(data []byte) (*Texture, error) {
	c := bincursor.New(data)
	h, err := ReadHeader(c)
	if err != nil {
		return nil, err
	}
	off := h.ImageOffset()
	if err := c.Seek(int64(off)); err != nil {
		return nil, fmt.Errorf("seek to image data at %d: %w", off, diag.ErrTruncatedData)
	}
	pix, err := Decode(h.Format, int(h.Width), int(h.Height), c)
	if err != nil {
		return nil, err
	}
	return &Texture{
		Width:  int(h.Width),
		Height: int(h.Height),
		Pix:    pix,
		Header: h,
	}, nil
}

// FallbackColor is the color of placeholder textures.
var FallbackColor = [4]uint8{255, 0, 255, 255}

// Fallback returns a flat 4x4 placeholder texture.
func Fallback() *Texture {
	t := &Texture{Width: 4, Height: 4, Pix: make([]byte, 4*4*4), Fallback: true}
	for i := 0; i < len(t.Pix); i += 4 {
		copy(t.Pix[i:], FallbackColor[:])
	}
	return t
}

// LoadOrFallback is like Load, but records failures in dc and returns a
// placeholder instead.
func LoadOrFallback(data []byte, source string, dc *diag.Collector) *Texture {
	t, err := Load(data)
	if err != nil {
		dc.Degradef(source, "load texture: %w", err)
		return Fallback()
	}
	return t
}
