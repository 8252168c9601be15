package srcvpk

import (
	"hash"
)

// CRC32 computes the checksum stored in VPK entries (IEEE, reflected).
func CRC32(b []byte) uint32 {
	return crcUpdate(0, b)
}

type crc struct {
	crc uint32
}

// NewCRC returns a hash computing the VPK entry checksum.
func NewCRC() hash.Hash32 {
	return new(crc)
}

func (d *crc) Size() int { return 4 }

func (d *crc) BlockSize() int { return 1 }

func (c *crc) Write(b []byte) (n int, err error) {
	c.crc = crcUpdate(c.crc, b)
	return len(b), nil
}

func (c *crc) Reset() {
	c.crc = 0
}

func (c *crc) Sum32() uint32 {
	return c.crc
}

func (d *crc) Sum(in []byte) []byte {
	s := d.Sum32()
	return append(in, byte(s>>24), byte(s>>16), byte(s>>8), byte(s))
}

// half-byte table for 0xEDB88320
var crcTable = [...]uint32{
	0x00000000, 0x1db71064, 0x3b6e20c8, 0x26d930ac, 0x76dc4190, 0x6b6b51f4, 0x4db26158, 0x5005713c,
	0xedb88320, 0xf00f9344, 0xd6d6a3e8, 0xcb61b38c, 0x9b64c2b0, 0x86d3d2d4, 0xa00ae278, 0xbdbdf21c,
}

func crcUpdate(crc uint32, b []byte) uint32 {
	crc = ^crc
	for _, x := range b {
		b := uint32(x)
		crc = (crc >> 4) ^ crcTable[(crc&0xF)^(b&0xF)]
		crc = (crc >> 4) ^ crcTable[(crc&0xF)^(b>>4)]
	}
	return ^crc
}
