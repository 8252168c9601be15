// Package srcvpk reads Source engine VPK archives (and the Respawn variant
// used by Titanfall), and serves their contents as an [io/fs.FS] for the
// texture and model readers.
package srcvpk

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pg9182/srcvpk/diag"
	"github.com/pg9182/srcvpk/internal/bincursor"
)

// VPK constants.
const (
	ValvePakMagic          uint32 = 0x55AA1234
	ValvePakVersion1       uint32 = 1
	ValvePakVersion2       uint32 = 2
	ValvePakVersionRespawn uint32 = 2 | 3<<16 // major 2, minor 3 as two u16s

	ValvePakEntryTerminator uint16 = 0xFFFF
)

// ValvePakIndex is a VPK shard index.
type ValvePakIndex uint16

const (
	ValvePakIndexDir ValvePakIndex = 0x7FFF // data is inline in _dir.vpk, after the tree
	ValvePakIndexEOF ValvePakIndex = 0xFFFF // not actually one
)

func (i ValvePakIndex) String() string {
	switch i {
	case ValvePakIndexDir:
		return "dir"
	case ValvePakIndexEOF:
		return "EOF"
	default:
		return fmt.Sprintf("%03d", uint16(i))
	}
}

func (i ValvePakIndex) GoString() string {
	switch i {
	case ValvePakIndexDir:
		return "ValvePakIndexDir"
	case ValvePakIndexEOF:
		return "ValvePakIndexEOF"
	default:
		return "ValvePakIndex(" + strconv.FormatUint(uint64(i), 10) + ")"
	}
}

// ValvePakDir is the parsed directory of a VPK. It is immutable once parsed.
type ValvePakDir struct {
	Magic    uint32
	Version  uint32
	TreeSize uint32

	// HeaderSize is the size of the header before the tree.
	HeaderSize uint32

	// Truncated is set if the tree ended early (the declared tree size was
	// larger than the file or a record crossed the tree end).
	Truncated bool

	File []ValvePakFile

	ext map[string][]int
}

// IsRespawn checks whether the directory uses the Respawn chunked format.
func (d *ValvePakDir) IsRespawn() bool {
	return d.Version == ValvePakVersionRespawn
}

// DataOffset returns the absolute offset of the inline data section in the
// dir file (i.e., add this to ValvePakFile.Offset for ValvePakIndexDir).
func (d *ValvePakDir) DataOffset() int64 {
	return int64(d.HeaderSize) + int64(d.TreeSize)
}

// Ext returns the files with the provided extension (case-insensitive) in
// tree order.
func (d *ValvePakDir) Ext(ext string) []*ValvePakFile {
	is := d.ext[strings.ToLower(ext)]
	fs := make([]*ValvePakFile, len(is))
	for n, i := range is {
		fs[n] = &d.File[i]
	}
	return fs
}

// Extensions returns the sorted list of extensions in the directory.
func (d *ValvePakDir) Extensions() []string {
	xs := make([]string, 0, len(d.ext))
	for x := range d.ext {
		xs = append(xs, x)
	}
	sort.Strings(xs)
	return xs
}

// FindEntry finds a file by its full path (case-insensitive, forward or
// backward slashes).
func (d *ValvePakDir) FindEntry(name string) (*ValvePakFile, bool) {
	name = normalizePath(name)
	for i := range d.File {
		if strings.EqualFold(d.File[i].Path, name) {
			return &d.File[i], true
		}
	}
	return nil, false
}

func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	return strings.TrimLeft(p, "/")
}

// ValvePakFile is a file entry in a VPK.
type ValvePakFile struct {
	Ext  string
	Dir  string // empty for the root directory
	Name string
	Path string // Dir/Name.Ext, or Name.Ext in the root

	CRC32        uint32
	PreloadBytes uint16
	Preload      []byte
	Index        ValvePakIndex
	Offset       uint32 // relative to the data section for ValvePakIndexDir
	Length       uint32 // total length, including the preload bytes

	Chunk []ValvePakChunk // Respawn only
}

// ArchiveLength returns the number of bytes stored in the shard.
func (f *ValvePakFile) ArchiveLength() uint32 {
	if f.Length < uint32(len(f.Preload)) {
		return 0
	}
	return f.Length - uint32(len(f.Preload))
}

// ValvePakChunk is a file chunk in a Respawn VPK.
type ValvePakChunk struct {
	LoadFlags        uint32
	TextureFlags     uint16
	Offset           uint64
	CompressedSize   uint64
	UncompressedSize uint64
}

// IsCompressed checks if a chunk is compressed.
func (c ValvePakChunk) IsCompressed() bool {
	return c.CompressedSize != c.UncompressedSize
}

// readHeader parses the fixed header from c, setting HeaderSize.
func (d *ValvePakDir) readHeader(c *bincursor.Cursor) error {
	var err error
	if d.Magic, err = c.U32(); err != nil {
		return fmt.Errorf("read dir magic: %w", diag.ErrMalformedHeader)
	} else if d.Magic != ValvePakMagic {
		return fmt.Errorf("read dir magic: expected %08X, got %08X: %w", ValvePakMagic, d.Magic, diag.ErrMalformedHeader)
	}
	if d.Version, err = c.U32(); err != nil {
		return fmt.Errorf("read dir version: %w", diag.ErrMalformedHeader)
	}
	switch d.Version {
	case ValvePakVersion1, ValvePakVersion2, ValvePakVersionRespawn:
	default:
		return fmt.Errorf("unsupported dir version %d (%d.%d): %w", d.Version, uint16(d.Version), d.Version>>16, diag.ErrMalformedHeader)
	}
	if d.TreeSize, err = c.U32(); err != nil {
		return fmt.Errorf("read tree size: %w", diag.ErrMalformedHeader)
	}
	switch d.Version {
	case ValvePakVersion2:
		// file data, archive md5, other md5, signature section sizes
		if err := c.Skip(4 * 4); err != nil {
			return fmt.Errorf("read v2 section sizes: %w", diag.ErrMalformedHeader)
		}
	case ValvePakVersionRespawn:
		if err := c.Skip(4); err != nil {
			return fmt.Errorf("read data size: %w", diag.ErrMalformedHeader)
		}
	}
	d.HeaderSize = uint32(c.Pos())
	return nil
}

// headerProbeSize is enough to read any supported header.
const headerProbeSize = 28

// readTree parses the directory tree from tree, which must start at the tree
// and contain at most TreeSize bytes. It never fails; parsing stops at the
// first record which would cross the end.
func (d *ValvePakDir) readTree(tree []byte, dc *diag.Collector, source string) {
	c := bincursor.New(tree)
	d.ext = map[string][]int{}

	// an unterminated string means we hit the end of the tree
	str := func() (string, bool) {
		start := c.Pos()
		s := c.CString(-1)
		if c.Pos() == start || tree[c.Pos()-1] != 0 {
			return s, false
		}
		return s, true
	}
	truncate := func(what string) {
		d.Truncated = true
		dc.Warnf(source, "read directory tree %s at %d: tree ended early, keeping %d files: %w", what, c.Pos(), len(d.File), diag.ErrTruncatedData)
	}
	if int64(len(tree)) < int64(d.TreeSize) {
		d.Truncated = true
		dc.Warnf(source, "tree size %d exceeds file (%d bytes available): %w", d.TreeSize, len(tree), diag.ErrTruncatedData)
	}
	for {
		xx, ok := str()
		if !ok {
			truncate("extension")
			return
		}
		if xx == "" {
			break
		}
		for {
			xp, ok := str()
			if !ok {
				truncate("path")
				return
			}
			if xp == "" {
				break
			}
			if xp == " " {
				xp = ""
			}
			for {
				xn, ok := str()
				if !ok {
					truncate("name")
					return
				}
				if xn == "" {
					break
				}
				f := fileRecord{ValvePakFile: ValvePakFile{Ext: xx, Dir: xp, Name: xn}}
				if xp == "" {
					f.Path = xn + "." + xx
				} else {
					f.Path = xp + "/" + xn + "." + xx
				}
				var err error
				if d.IsRespawn() {
					err = f.readRespawnEntry(c)
				} else {
					err = f.readEntry(c)
				}
				if err != nil {
					truncate(fmt.Sprintf("file data for %q", f.Path))
					return
				}
				if f.terminator != ValvePakEntryTerminator {
					dc.Warnf(source, "file %q: expected entry terminator %04X, got %04X", f.Path, ValvePakEntryTerminator, f.terminator)
				}
				d.ext[strings.ToLower(xx)] = append(d.ext[strings.ToLower(xx)], len(d.File))
				d.File = append(d.File, f.ValvePakFile)
			}
		}
	}
}

// fileRecord is a ValvePakFile while it's being parsed.
type fileRecord struct {
	ValvePakFile
	terminator uint16
}

// entrySize is the size of a Valve entry record, excluding preload bytes.
const entrySize = 18

func (f *fileRecord) readEntry(c *bincursor.Cursor) error {
	if c.Remaining() < entrySize {
		return diag.ErrUnexpectedEndOfData
	}
	f.CRC32, _ = c.U32()
	f.PreloadBytes, _ = c.U16()
	idx, _ := c.U16()
	f.Index = ValvePakIndex(idx)
	f.Offset, _ = c.U32()
	length, _ := c.U32()
	f.terminator, _ = c.U16()

	var err error
	if f.Preload, err = c.Bytes(int(f.PreloadBytes)); err != nil {
		return err
	}
	f.Length = uint32(f.PreloadBytes) + length
	return nil
}

// respawnChunkSize is the size of a Respawn chunk record.
const respawnChunkSize = 4 + 2 + 8 + 8 + 8

func (f *fileRecord) readRespawnEntry(c *bincursor.Cursor) error {
	if c.Remaining() < 4+2+2 {
		return diag.ErrUnexpectedEndOfData
	}
	f.CRC32, _ = c.U32()
	f.PreloadBytes, _ = c.U16()
	idx, _ := c.U16()
	f.Index = ValvePakIndex(idx)
	for {
		if c.Remaining() < respawnChunkSize+2 {
			return diag.ErrUnexpectedEndOfData
		}
		var e ValvePakChunk
		e.LoadFlags, _ = c.U32()
		e.TextureFlags, _ = c.U16()
		e.Offset, _ = c.U64()
		e.CompressedSize, _ = c.U64()
		e.UncompressedSize, _ = c.U64()
		f.Chunk = append(f.Chunk, e)
		f.Length += uint32(e.UncompressedSize)

		n, _ := c.U16()
		if ValvePakIndex(n) != f.Index {
			f.terminator = n
			break
		}
	}
	var err error
	if f.Preload, err = c.Bytes(int(f.PreloadBytes)); err != nil {
		return err
	}
	f.Length += uint32(f.PreloadBytes)
	return nil
}
