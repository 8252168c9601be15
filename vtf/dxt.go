package vtf

import "encoding/binary"

// expand5 and expand6 scale a 5 or 6-bit channel to 8 bits, truncating.
func expand5(v uint16) uint8 { return uint8(uint32(v&0x1F) * 255 / 31) }
func expand6(v uint16) uint8 { return uint8(uint32(v&0x3F) * 255 / 63) }

func rgb565(c uint16) [4]uint8 {
	return [4]uint8{expand5(c >> 11), expand6(c >> 5), expand5(c), 255}
}

// ColorPalette returns the four RGBA colors selectable by a DXT color block
// with endpoints c0 and c1. If punchThrough is set and c0 <= c1, the third
// color is the midpoint and the fourth is transparent black.
func ColorPalette(c0, c1 uint16, punchThrough bool) (p [4][4]uint8) {
	p[0], p[1] = rgb565(c0), rgb565(c1)
	if !punchThrough || c0 > c1 {
		for i := 0; i < 3; i++ {
			a, b := uint32(p[0][i]), uint32(p[1][i])
			p[2][i] = uint8((2*a + b) / 3)
			p[3][i] = uint8((a + 2*b) / 3)
		}
		p[2][3], p[3][3] = 255, 255
	} else {
		for i := 0; i < 3; i++ {
			p[2][i] = uint8((uint32(p[0][i]) + uint32(p[1][i])) / 2)
		}
		p[2][3] = 255
		p[3] = [4]uint8{}
	}
	return
}

// AlphaPalette returns the eight alpha values selectable by a DXT5 alpha
// block with endpoints a0 and a1.
func AlphaPalette(a0, a1 uint8) (p [8]uint8) {
	p[0], p[1] = a0, a1
	x, y := uint32(a0), uint32(a1)
	if a0 > a1 {
		for i := uint32(2); i < 8; i++ {
			p[i] = uint8((x*(8-i) + y*(i-1)) / 7)
		}
	} else {
		for i := uint32(2); i < 6; i++ {
			p[i] = uint8((x*(6-i) + y*(i-1)) / 5)
		}
		p[6], p[7] = 0, 255
	}
	return
}

// blockPixels is a decoded 4x4 block, row-major.
type blockPixels [16][4]uint8

// colorBlock decodes the 8-byte color part of a block.
func colorBlock(b []byte, punchThrough bool, px *blockPixels) {
	pal := ColorPalette(binary.LittleEndian.Uint16(b[0:]), binary.LittleEndian.Uint16(b[2:]), punchThrough)
	idx := binary.LittleEndian.Uint32(b[4:])
	for i := range px {
		px[i] = pal[(idx>>(2*i))&3]
	}
}

func decodeDXT1(b []byte, px *blockPixels) {
	colorBlock(b, true, px)
}

func decodeDXT3(b []byte, px *blockPixels) {
	colorBlock(b[8:], false, px)
	alpha := binary.LittleEndian.Uint64(b)
	for i := range px {
		px[i][3] = uint8(uint32((alpha>>(4*i))&0xF) * 255 / 15)
	}
}

func decodeDXT5(b []byte, px *blockPixels) {
	colorBlock(b[8:], false, px)
	pal := AlphaPalette(b[0], b[1])
	var idx uint64
	for i := 0; i < 6; i++ {
		idx |= uint64(b[2+i]) << (8 * i)
	}
	for i := range px {
		px[i][3] = pal[(idx>>(3*i))&7]
	}
}

// decodeBlocks expands 4x4 blocks in row-major block order, discarding pixels
// outside w x h.
func decodeBlocks(src []byte, w, h, size int, fn func([]byte, *blockPixels)) []byte {
	out := make([]byte, w*h*4)
	var px blockPixels
	for by := 0; by < (h+3)/4; by++ {
		for bx := 0; bx < (w+3)/4; bx++ {
			fn(src[:size], &px)
			src = src[size:]
			for i, c := range px {
				x, y := bx*4+i%4, by*4+i/4
				if x >= w || y >= h {
					continue
				}
				copy(out[(y*w+x)*4:], c[:])
			}
		}
	}
	return out
}
