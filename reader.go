package srcvpk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/pg9182/srcvpk/diag"
	"github.com/pg9182/srcvpk/internal/bincursor"
	"github.com/pg9182/tf2lzham"
)

// Shard is an open VPK shard (or the dir file itself).
type Shard interface {
	io.ReaderAt
	io.Closer
}

// ShardOpener opens the dir file (ValvePakIndexDir) or a numbered shard.
type ShardOpener func(ValvePakIndex) (Shard, error)

// Reader reads VPKs. Shards are opened for each read and closed before it
// returns, so a Reader holds no open files and is safe for concurrent use.
type Reader struct {
	Root ValvePakDir
	Diag *diag.Collector

	name string
	open ShardOpener
}

// Open opens the VPK dir file at path. If the file name has a locale prefix
// (Respawn), it is removed from the shard names.
func Open(path, prefix string, dc *diag.Collector) (*Reader, error) {
	vpk, err := PathToValvePakRef(path, prefix)
	if err != nil {
		return nil, fmt.Errorf("resolve vpk %q: %w", path, err)
	}
	return OpenRef(vpk, dc)
}

// OpenRef opens the VPK referenced by vpk.
func OpenRef(vpk ValvePakRef, dc *diag.Collector) (*Reader, error) {
	f, err := os.Open(vpk.Resolve(ValvePakIndexDir))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f, fi.Size(), func(i ValvePakIndex) (Shard, error) {
		return os.Open(vpk.Resolve(i))
	}, dc)
	if err != nil {
		return nil, err
	}
	r.name = slashPath(vpk.Resolve(ValvePakIndexDir))
	return r, nil
}

func slashPath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// NewReader parses the directory from dir (size bytes long), using open to
// access shard data later. The dir is only used during the call.
func NewReader(dir io.ReaderAt, size int64, open ShardOpener, dc *diag.Collector) (*Reader, error) {
	r := &Reader{
		Diag: dc,
		name: "vpk",
		open: open,
	}

	hdr := make([]byte, min(size, headerProbeSize))
	if n, err := dir.ReadAt(hdr, 0); err != nil && !(errors.Is(err, io.EOF) && n == len(hdr)) {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := r.Root.readHeader(bincursor.New(hdr)); err != nil {
		return nil, fmt.Errorf("read root directory: %w", err)
	}

	avail := size - int64(r.Root.HeaderSize)
	tree := make([]byte, min(avail, int64(r.Root.TreeSize)))
	if n, err := dir.ReadAt(tree, int64(r.Root.HeaderSize)); err != nil && !(errors.Is(err, io.EOF) && n == len(tree)) {
		tree = tree[:n]
		dc.Warnf(r.name, "read directory tree: %v: %w", err, diag.ErrTruncatedData)
	}
	r.Root.readTree(tree, dc, r.name)
	return r, nil
}

// FindEntry finds a file by its full path (case-insensitive).
func (r *Reader) FindEntry(name string) (*ValvePakFile, bool) {
	return r.Root.FindEntry(name)
}

// ReadEntry returns exactly f.Length bytes: the preload bytes followed by the
// data stored in the shard. Missing shards and short reads are zero-filled and
// recorded as diagnostics rather than failing.
func (r *Reader) ReadEntry(f *ValvePakFile) []byte {
	buf, err := r.read(f)
	if err != nil {
		r.Diag.Warnf(f.Path, "read entry: %w", err)
	}
	return buf
}

// ReadEntryChecked is like ReadEntry, but fails instead of zero-filling, and
// verifies the checksum.
func (r *Reader) ReadEntryChecked(f *ValvePakFile) ([]byte, error) {
	buf, err := r.read(f)
	if err != nil {
		return nil, err
	}
	if f.CRC32 != 0 {
		if x := CRC32(buf); x != f.CRC32 {
			return nil, fmt.Errorf("expected %08X, got %08X: %w", f.CRC32, x, diag.ErrChecksum)
		}
	}
	return buf, nil
}

// read always returns a buffer of f.Length bytes, even on error.
func (r *Reader) read(f *ValvePakFile) ([]byte, error) {
	buf := make([]byte, f.Length)
	n := copy(buf, f.Preload)
	if f.ArchiveLength() == 0 {
		return buf, nil
	}
	if r.open == nil {
		return buf, fmt.Errorf("open shard %s: no opener: %w", f.Index, diag.ErrMissingShard)
	}
	sh, err := r.open(f.Index)
	if err != nil {
		return buf, fmt.Errorf("open shard %s: %v: %w", f.Index, err, diag.ErrMissingShard)
	}
	defer sh.Close()

	var base int64
	if f.Index == ValvePakIndexDir {
		base = r.Root.DataOffset()
	}
	if len(f.Chunk) == 0 {
		if m, err := sh.ReadAt(buf[n:], base+int64(f.Offset)); m != len(buf[n:]) {
			return buf, fmt.Errorf("read %d bytes at %d from shard %s: got %d (%v): %w", len(buf[n:]), base+int64(f.Offset), f.Index, m, err, diag.ErrTruncatedData)
		}
		return buf, nil
	}
	for i, c := range f.Chunk {
		dst := buf[n:]
		if uint64(len(dst)) < c.UncompressedSize {
			return buf, fmt.Errorf("chunk %d: uncompressed size %d overflows entry: %w", i, c.UncompressedSize, diag.ErrTruncatedData)
		}
		dst = dst[:c.UncompressedSize]
		n += len(dst)
		if err := readChunk(sh, base, c, dst); err != nil {
			return buf, fmt.Errorf("chunk %d: %w", i, err)
		}
	}
	return buf, nil
}

func readChunk(r io.ReaderAt, base int64, c ValvePakChunk, dst []byte) error {
	if !c.IsCompressed() {
		if m, err := r.ReadAt(dst, base+int64(c.Offset)); m != len(dst) {
			return fmt.Errorf("read chunk: got %d of %d bytes (%v): %w", m, len(dst), err, diag.ErrTruncatedData)
		}
		return nil
	}
	src := make([]byte, int(c.CompressedSize))
	if m, err := r.ReadAt(src, base+int64(c.Offset)); m != len(src) {
		return fmt.Errorf("read chunk: got %d of %d bytes (%v): %w", m, len(src), err, diag.ErrTruncatedData)
	}
	if n, _, _, err := tf2lzham.Decompress(dst, src); err != nil {
		return fmt.Errorf("decompress chunk: %w", err)
	} else if n != len(dst) {
		return fmt.Errorf("decompress chunk: got %d of %d bytes: %w", n, len(dst), diag.ErrTruncatedData)
	}
	return nil
}

var (
	_ fs.FS          = (*Reader)(nil)
	_ fs.ReadFileFS  = (*Reader)(nil)
	_ fs.File        = (*readerFile)(nil)
	_ io.ReadSeeker  = (*readerFile)(nil)
	_ fs.ReadDirFile = (*readerDir)(nil)
	_ fs.DirEntry    = (*readerInfo)(nil)
	_ fs.FileInfo    = (*readerInfo)(nil)
)

// ReadFile implements fs.ReadFileFS. Names are matched case-insensitively,
// and unreadable data is zero-filled (see ReadEntry).
func (r *Reader) ReadFile(name string) ([]byte, error) {
	f, ok := r.FindEntry(name)
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	return r.ReadEntry(f), nil
}

type readerFile struct {
	info readerInfo
	*bytes.Reader
}

func (f *readerFile) Stat() (fs.FileInfo, error) {
	return &f.info, nil
}

func (f *readerFile) Close() error {
	return nil
}

type readerDir struct {
	info   readerInfo
	entry  []*readerInfo
	offset int
}

func (f *readerDir) Stat() (fs.FileInfo, error) {
	return &f.info, nil
}

func (f *readerDir) Read(b []byte) (n int, err error) {
	return 0, &fs.PathError{Op: "read", Path: f.info.name, Err: fs.ErrInvalid}
}

func (f *readerDir) Close() error {
	return nil
}

func (d *readerDir) ReadDir(count int) ([]fs.DirEntry, error) {
	n := len(d.entry) - d.offset
	if n == 0 && count > 0 {
		return nil, io.EOF
	}
	if count > 0 && n > count {
		n = count
	}
	list := make([]fs.DirEntry, n)
	for i := range list {
		list[i] = d.entry[d.offset+i]
	}
	d.offset += n
	return list, nil
}

type readerInfo struct {
	name string
	file *ValvePakFile
}

func (i *readerInfo) Info() (fs.FileInfo, error) {
	return i, nil
}

func (i *readerInfo) Type() fs.FileMode {
	return i.Mode().Type()
}

func (i *readerInfo) Name() string {
	return i.name
}

func (i *readerInfo) Size() int64 {
	if i.IsDir() {
		return 0
	}
	return int64(i.file.Length)
}

func (i *readerInfo) Mode() fs.FileMode {
	if i.IsDir() {
		return 0777 | fs.ModeDir
	}
	return 0666
}

func (i *readerInfo) ModTime() time.Time {
	return time.Time{}
}

func (i *readerInfo) IsDir() bool {
	return i.file == nil
}

func (i *readerInfo) Sys() interface{} {
	if i.IsDir() {
		return nil
	}
	return *i.file
}

// Open implements fs.FS. File names are matched case-insensitively, and the
// returned files are seekable.
func (r *Reader) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	if f, ok := r.FindEntry(name); ok {
		return &readerFile{readerInfo{path.Base(f.Path), f}, bytes.NewReader(r.ReadEntry(f))}, nil
	}
	things := map[string]*ValvePakFile{}
	if name == "." {
		for fi, f := range r.Root.File {
			if i := strings.Index(f.Path, "/"); i < 0 {
				things[f.Path] = &r.Root.File[fi]
			} else {
				things[f.Path[:i]] = nil
			}
		}
	} else {
		prefix := strings.ToLower(name) + "/"
		for fi, f := range r.Root.File {
			if strings.HasPrefix(strings.ToLower(f.Path), prefix) {
				tmp := f.Path[len(prefix):]
				if i := strings.Index(tmp, "/"); i < 0 {
					things[tmp] = &r.Root.File[fi]
				} else {
					things[tmp[:i]] = nil
				}
			}
		}
		if len(things) == 0 {
			return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist} // no file with the provided name, and the name isn't a dir prefix of other files
		}
	}
	var dirents []*readerInfo
	for thing, file := range things {
		dirents = append(dirents, &readerInfo{thing, file})
	}
	sort.Slice(dirents, func(i, j int) bool {
		return dirents[i].name < dirents[j].name
	})
	return &readerDir{readerInfo{name[strings.LastIndex(name, "/")+1:], nil}, dirents, 0}, nil
}
