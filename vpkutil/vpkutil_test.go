package vpkutil

import (
	"errors"
	"io/fs"
	"path"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/pg9182/srcvpk"
	"github.com/spf13/pflag"
)

func TestCLIIncludeExclude(t *testing.T) {
	for _, x := range []struct {
		Args []string
		Skip []string
		Keep []string
	}{
		{nil, nil, []string{"a/b.vtf", "c.mdl"}},
		{[]string{"-e", "materials"}, []string{"materials/a.vtf"}, []string{"models/materials.mdl", "models/a.mdl"}},
		{[]string{"--exclude-ext", ".VTF"}, []string{"materials/a.vtf"}, []string{"materials/a.vmt"}},
		{[]string{"-E", "*.mdl"}, []string{"models/a.vvd"}, []string{"models/a.mdl"}},
		{[]string{"-e", "/models", "-E", "crate.*"}, []string{"models/a.vvd"}, []string{"models/crate.vvd", "materials/a.vmt"}},
	} {
		set := pflag.NewFlagSet("test", pflag.ContinueOnError)
		ie := NewCLIIncludeExclude(set, true)
		if err := set.Parse(x.Args); err != nil {
			t.Fatalf("%q: parse: %v", x.Args, err)
		}
		check := func(p string, skip bool) {
			f := srcvpk.ValvePakFile{Path: p, Ext: strings.TrimPrefix(path.Ext(p), ".")}
			if v, err := ie.Skip(&f); err != nil {
				t.Errorf("%q: skip %q: %v", x.Args, p, err)
			} else if v != skip {
				t.Errorf("%q: skip %q: expected %t, got %t", x.Args, p, skip, v)
			}
		}
		for _, p := range x.Skip {
			check(p, true)
		}
		for _, p := range x.Keep {
			check(p, false)
		}
	}
}

func TestLayerFS(t *testing.T) {
	l := LayerFS{
		fstest.MapFS{"a.txt": {Data: []byte("a0")}},
		fstest.MapFS{"a.txt": {Data: []byte("a1")}, "b.txt": {Data: []byte("b1")}},
	}
	for name, exp := range map[string]string{"a.txt": "a0", "b.txt": "b1"} {
		if b, err := fs.ReadFile(l, name); err != nil || string(b) != exp {
			t.Errorf("read %q: expected %q, got %q (%v)", name, exp, b, err)
		}
		if f, err := l.Open(name); err != nil {
			t.Errorf("open %q: %v", name, err)
		} else {
			f.Close()
		}
	}
	if _, err := fs.ReadFile(l, "c.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("read missing: expected not exist, got %v", err)
	}
	if _, err := l.Open("../a.txt"); err == nil {
		t.Errorf("open invalid path: expected error")
	}
}

func TestAssetPath(t *testing.T) {
	for _, x := range [][4]string{
		{"Models\\Props\\Crate", "models", ".mdl", "models/props/crate.mdl"},
		{"models/props/crate.mdl", "models", ".mdl", "models/props/crate.mdl"},
		{"props/crate.mdl", "models", ".mdl", "models/props/crate.mdl"},
		{"/materials/../materials/a", "materials", ".vtf", "materials/a.vtf"},
		{"a/b", "", "", "a/b"},
	} {
		if v := AssetPath(x[0], x[1], x[2]); v != x[3] {
			t.Errorf("AssetPath(%q, %q, %q): expected %q, got %q", x[0], x[1], x[2], x[3], v)
		}
	}
}
