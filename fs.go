package srcvpk

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Ext is the file extension of a VPK.
const Ext = ".vpk"

// JoinName generates a filename for a VPK.
func JoinName(prefix, name string, idx ValvePakIndex) (fn string) {
	if idx != ValvePakIndexEOF {
		if idx == ValvePakIndexDir {
			fn = prefix
		}
		fn += name + "_" + idx.String() + Ext
	}
	return
}

// SplitName is the inverse of JoinName.
func SplitName(fn, prefix string) (name string, idx ValvePakIndex, err error) {
	var ok bool

	// ensure it's a vpk
	if fn, ok = strings.CutSuffix(fn, Ext); !ok {
		return "", ValvePakIndexEOF, fmt.Errorf("split %q (prefix %q): does not have extension %s", fn, prefix, Ext)
	}

	// if not, find the suffix, parse it, and cut it off
	if i := strings.LastIndex(fn, "_"); i == -1 || i == len(fn)-1 {
		return "", ValvePakIndexEOF, fmt.Errorf("split %q (prefix %q): vpk block does not have an index suffix", fn, prefix)
	} else {
		if idxStr := fn[i+1:]; idxStr == ValvePakIndexDir.String() {
			idx = ValvePakIndexDir
		} else if n, err := strconv.ParseUint(idxStr, 10, 16); err != nil {
			return "", ValvePakIndexEOF, fmt.Errorf("split %q (prefix %q): vpk block has an invalid index suffix: not a dir, and not an index: %w", fn, prefix, err)
		} else {
			idx = ValvePakIndex(n)
		}
		fn = fn[:i]
	}

	// if it's a vpk dir, cut the prefix if it has one
	if idx == ValvePakIndexDir {
		fn = strings.TrimPrefix(fn, prefix)
	}

	// the remaining text is the name
	name = fn
	return name, idx, nil
}

// PathToValvePakRef returns a ValvePakRef from the provided path to a dir
// file or any of its shards. It may or may not exist. A file without an
// index suffix is treated as a bare dir file (name.vpk with shards
// name_NNN.vpk).
func PathToValvePakRef(filename, prefix string) (ValvePakRef, error) {
	path, fn := filepath.Split(filepath.FromSlash(filename))
	name, _, err := SplitName(fn, prefix)
	if err != nil {
		bare, ok := strings.CutSuffix(fn, Ext)
		if !ok || bare == "" {
			return ValvePakRef{}, err
		}
		return ValvePakRef{Path: path, Prefix: prefix, Name: bare, Bare: true}, nil
	}
	return ValvePakRef{Path: path, Prefix: prefix, Name: name}, nil
}

// ValvePakRef references a VPK from the filesystem.
type ValvePakRef struct {
	Path   string
	Prefix string // locale prefix of Respawn dir files, if any
	Name   string
	Bare   bool // the dir file is Name.vpk rather than PrefixName_dir.vpk
}

// Resolve returns the path to the dir file or a shard. Shard names are the
// dir name with the _dir suffix (and prefix) removed and _NNN appended.
func (v ValvePakRef) Resolve(i ValvePakIndex) string {
	if v.Path == "" {
		v.Path = "."
	}
	if v.Name == "" {
		panic("vpk name is required")
	}
	var fn string
	switch {
	case v.Bare && i == ValvePakIndexDir:
		fn = v.Name + Ext
	case v.Bare:
		fn = strings.TrimPrefix(v.Name, v.Prefix) + "_" + i.String() + Ext
	default:
		fn = JoinName(v.Prefix, v.Name, i)
	}
	return filepath.Join(v.Path, fn)
}

// List returns the names of the existing files belonging to the VPK.
func (v ValvePakRef) List() ([]string, error) {
	if v.Path == "" {
		v.Path = "."
	}
	if v.Name == "" {
		panic("vpk name is required")
	}
	ds, err := os.ReadDir(v.Path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Base(v.Resolve(ValvePakIndexDir))
	shard := strings.TrimPrefix(v.Name, v.Prefix)
	if !v.Bare {
		shard = v.Name
	}
	var ns []string
	for _, d := range ds {
		if d.Name() == dir {
			ns = append(ns, d.Name())
			continue
		}
		// ensure it's a vpk shard belonging to us
		if name, idx, err := SplitName(d.Name(), v.Prefix); err == nil && name == shard && idx != ValvePakIndexDir {
			ns = append(ns, d.Name())
		}
	}
	return ns, nil
}
