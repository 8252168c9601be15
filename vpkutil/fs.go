package vpkutil

import (
	"errors"
	"io/fs"
	"path"
	"strings"
)

// LayerFS searches each filesystem in order, returning the first match. It is
// used to resolve assets from a VPK and then from loose game files.
type LayerFS []fs.FS

var (
	_ fs.FS         = LayerFS(nil)
	_ fs.ReadFileFS = LayerFS(nil)
)

// Open implements fs.FS.
func (l LayerFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	for _, x := range l {
		f, err := x.Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// ReadFile implements fs.ReadFileFS.
func (l LayerFS) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrInvalid}
	}
	for _, x := range l {
		b, err := fs.ReadFile(x, name)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
}

// AssetPath normalizes a path to an asset inside a game directory or VPK,
// adding ext (and prefix, if the path doesn't already start with it) if
// missing.
func AssetPath(p, prefix, ext string) string {
	p = strings.ToLower(strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimLeft(path.Clean("/"+p), "/")
	if prefix != "" && !strings.HasPrefix(p, prefix+"/") {
		p = prefix + "/" + p
	}
	if ext != "" && path.Ext(p) != ext {
		p += ext
	}
	return p
}
