package vtf

import (
	"encoding/binary"
	"fmt"

	"github.com/pg9182/srcvpk/diag"
	"github.com/pg9182/srcvpk/internal/bincursor"
)

// Decode decodes a w x h image in format f at the current position of c into
// RGBA8 pixels. The result is always exactly w*h*4 bytes; on error, nothing is
// returned and c is not advanced.
func Decode(f Format, w, h int, c *bincursor.Cursor) ([]byte, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("decode %s: invalid size %dx%d: %w", f, w, h, diag.ErrMalformedHeader)
	}
	var (
		block func([]byte, *blockPixels)
		pixel func([]byte, []byte)
	)
	switch f {
	case FormatDXT1, FormatDXT1OneBitAlpha:
		block = decodeDXT1
	case FormatDXT3:
		block = decodeDXT3
	case FormatDXT5:
		block = decodeDXT5
	default:
		if pixel = pixelDecoder(f); pixel == nil {
			return nil, fmt.Errorf("decode %s: %w", f, diag.ErrUnsupportedFormat)
		}
	}
	n := ImageSize(f, w, h)
	if c.Remaining() < n {
		return nil, fmt.Errorf("decode %s %dx%d: need %d bytes, have %d: %w", f, w, h, n, c.Remaining(), diag.ErrTruncatedData)
	}
	src, err := c.Bytes(n)
	if err != nil {
		return nil, err
	}
	if block != nil {
		return decodeBlocks(src, w, h, f.BlockSize(), block), nil
	}
	bpp := f.BytesPerPixel()
	out := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		pixel(out[i*4:i*4+4], src[i*bpp:i*bpp+bpp])
	}
	return out, nil
}

// pixelDecoder returns a function converting one raw pixel to RGBA8, or nil
// if the format can't be decoded without extra data.
func pixelDecoder(f Format) func(d, s []byte) {
	switch f {
	case FormatRGBA8888:
		return func(d, s []byte) { copy(d, s) }
	case FormatABGR8888:
		return func(d, s []byte) { d[0], d[1], d[2], d[3] = s[3], s[2], s[1], s[0] }
	case FormatARGB8888:
		return func(d, s []byte) { d[0], d[1], d[2], d[3] = s[1], s[2], s[3], s[0] }
	case FormatBGRA8888:
		return func(d, s []byte) { d[0], d[1], d[2], d[3] = s[2], s[1], s[0], s[3] }
	case FormatBGRX8888:
		return func(d, s []byte) { d[0], d[1], d[2], d[3] = s[2], s[1], s[0], 255 }
	case FormatRGB888:
		return func(d, s []byte) { d[0], d[1], d[2], d[3] = s[0], s[1], s[2], 255 }
	case FormatBGR888:
		return func(d, s []byte) { d[0], d[1], d[2], d[3] = s[2], s[1], s[0], 255 }
	case FormatRGB888Bluescreen:
		return func(d, s []byte) { bluescreen(d, s[0], s[1], s[2]) }
	case FormatBGR888Bluescreen:
		return func(d, s []byte) { bluescreen(d, s[2], s[1], s[0]) }
	case FormatRGB565:
		return func(d, s []byte) {
			v := binary.LittleEndian.Uint16(s)
			d[0], d[1], d[2], d[3] = expand5(v>>11), expand6(v>>5), expand5(v), 255
		}
	case FormatBGR565:
		return func(d, s []byte) {
			v := binary.LittleEndian.Uint16(s)
			d[0], d[1], d[2], d[3] = expand5(v), expand6(v>>5), expand5(v>>11), 255
		}
	case FormatBGRA4444:
		return func(d, s []byte) {
			v := binary.LittleEndian.Uint16(s)
			d[0], d[1], d[2], d[3] = expand4(v>>8), expand4(v>>4), expand4(v), expand4(v>>12)
		}
	case FormatBGRA5551:
		return func(d, s []byte) {
			v := binary.LittleEndian.Uint16(s)
			d[0], d[1], d[2], d[3] = expand5(v>>10), expand5(v>>5), expand5(v), uint8(v>>15)*255
		}
	case FormatBGRX5551:
		return func(d, s []byte) {
			v := binary.LittleEndian.Uint16(s)
			d[0], d[1], d[2], d[3] = expand5(v>>10), expand5(v>>5), expand5(v), 255
		}
	case FormatI8:
		return func(d, s []byte) { d[0], d[1], d[2], d[3] = s[0], s[0], s[0], 255 }
	case FormatIA88:
		return func(d, s []byte) { d[0], d[1], d[2], d[3] = s[0], s[0], s[0], s[1] }
	case FormatA8:
		return func(d, s []byte) { d[0], d[1], d[2], d[3] = 0, 0, 0, s[0] }
	case FormatUV88:
		return func(d, s []byte) { d[0], d[1], d[2], d[3] = s[0], s[1], 0, 255 }
	default:
		return nil
	}
}

func expand4(v uint16) uint8 { return uint8(uint32(v&0xF) * 255 / 15) }

// bluescreen treats pure blue as transparent.
func bluescreen(d []byte, r, g, b uint8) {
	if r == 0 && g == 0 && b == 255 {
		d[0], d[1], d[2], d[3] = 0, 0, 0, 0
		return
	}
	d[0], d[1], d[2], d[3] = r, g, b, 255
}
