package vtf

import "fmt"

// Format is a VTF image format.
type Format int32

// Image formats. The values are the ones stored in VTF headers.
const (
	FormatNone             Format = -1
	FormatRGBA8888         Format = 0
	FormatABGR8888         Format = 1
	FormatRGB888           Format = 2
	FormatBGR888           Format = 3
	FormatRGB565           Format = 4
	FormatI8               Format = 5
	FormatIA88             Format = 6
	FormatP8               Format = 7
	FormatA8               Format = 8
	FormatRGB888Bluescreen Format = 9
	FormatBGR888Bluescreen Format = 10
	FormatARGB8888         Format = 11
	FormatBGRA8888         Format = 12
	FormatDXT1             Format = 13
	FormatDXT3             Format = 14
	FormatDXT5             Format = 15
	FormatBGRX8888         Format = 16
	FormatBGR565           Format = 17
	FormatBGRX5551         Format = 18
	FormatBGRA4444         Format = 19
	FormatDXT1OneBitAlpha  Format = 20
	FormatBGRA5551         Format = 21
	FormatUV88             Format = 22
	FormatUVWQ8888         Format = 23
	FormatRGBA16161616F    Format = 24
	FormatRGBA16161616     Format = 25
	FormatUVLX8888         Format = 26
)

var formatNames = map[Format]string{
	FormatNone:             "NONE",
	FormatRGBA8888:         "RGBA8888",
	FormatABGR8888:         "ABGR8888",
	FormatRGB888:           "RGB888",
	FormatBGR888:           "BGR888",
	FormatRGB565:           "RGB565",
	FormatI8:               "I8",
	FormatIA88:             "IA88",
	FormatP8:               "P8",
	FormatA8:               "A8",
	FormatRGB888Bluescreen: "RGB888_BLUESCREEN",
	FormatBGR888Bluescreen: "BGR888_BLUESCREEN",
	FormatARGB8888:         "ARGB8888",
	FormatBGRA8888:         "BGRA8888",
	FormatDXT1:             "DXT1",
	FormatDXT3:             "DXT3",
	FormatDXT5:             "DXT5",
	FormatBGRX8888:         "BGRX8888",
	FormatBGR565:           "BGR565",
	FormatBGRX5551:         "BGRX5551",
	FormatBGRA4444:         "BGRA4444",
	FormatDXT1OneBitAlpha:  "DXT1_ONEBITALPHA",
	FormatBGRA5551:         "BGRA5551",
	FormatUV88:             "UV88",
	FormatUVWQ8888:         "UVWQ8888",
	FormatRGBA16161616F:    "RGBA16161616F",
	FormatRGBA16161616:     "RGBA16161616",
	FormatUVLX8888:         "UVLX8888",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Format(%d)", int32(f))
}

// IsBlock checks whether f is block-compressed.
func (f Format) IsBlock() bool {
	return f.BlockSize() != 0
}

// BlockSize returns the size of a 4x4 block, or 0 if f isn't block-compressed.
func (f Format) BlockSize() int {
	switch f {
	case FormatDXT1, FormatDXT1OneBitAlpha:
		return 8
	case FormatDXT3, FormatDXT5:
		return 16
	default:
		return 0
	}
}

// BytesPerPixel returns the pixel size of a raw format, or 0 if f is
// block-compressed or unknown.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGBA8888, FormatABGR8888, FormatARGB8888, FormatBGRA8888, FormatBGRX8888, FormatUVWQ8888, FormatUVLX8888:
		return 4
	case FormatRGB888, FormatBGR888, FormatRGB888Bluescreen, FormatBGR888Bluescreen:
		return 3
	case FormatRGB565, FormatBGR565, FormatIA88, FormatBGRX5551, FormatBGRA4444, FormatBGRA5551, FormatUV88:
		return 2
	case FormatI8, FormatP8, FormatA8:
		return 1
	case FormatRGBA16161616F, FormatRGBA16161616:
		return 8
	default:
		return 0
	}
}

// ImageSize returns the number of bytes used by a single w x h image. It
// returns 0 for unknown formats.
func ImageSize(f Format, w, h int) int {
	if w <= 0 || h <= 0 {
		return 0
	}
	if bs := f.BlockSize(); bs != 0 {
		return ((w + 3) / 4) * ((h + 3) / 4) * bs
	}
	return w * h * f.BytesPerPixel()
}
