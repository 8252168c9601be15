package material

import (
	"errors"
	"testing"

	"github.com/pg9182/srcvpk/diag"
)

func TestParse(t *testing.T) {
	m, err := Parse([]byte(`// crate
"VertexLitGeneric"
{
	"$baseTexture" "models\props/Crate01"
	$surfaceprop metal
	"$translucent" 1 // trailing
	"Proxies"
	{
		"AnimatedTexture"
		{
			"animatedtexturevar" "$basetexture"
		}
	}
	"$color" "[1 1 1]"
}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Shader != "VertexLitGeneric" {
		t.Errorf("unexpected shader %q", m.Shader)
	}
	for k, exp := range map[string]string{
		"$basetexture": `models\props/Crate01`,
		"$SurfaceProp": "metal",
		"$translucent": "1",
		"$color":       "[1 1 1]",
	} {
		if act, ok := m.Get(k); !ok || act != exp {
			t.Errorf("%s: expected %q, got %q (%t)", k, exp, act, ok)
		}
	}
	if len(m.Params) != 4 {
		t.Errorf("expected nested blocks to be skipped, got %v", m.Params)
	}
	if tex, _ := m.BaseTexture(); TexturePath(tex) != "materials/models/props/crate01.vtf" {
		t.Errorf("unexpected texture path %q", TexturePath(tex))
	}
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		in  string
		err error
	}{
		{"", diag.ErrMalformedHeader},
		{"{ }", diag.ErrMalformedHeader},
		{"LightmappedGeneric $basetexture x", diag.ErrMalformedHeader},
		{"LightmappedGeneric { $basetexture x", diag.ErrTruncatedData},
		{"LightmappedGeneric { $basetexture", diag.ErrTruncatedData},
		{"LightmappedGeneric { proxies { x {", diag.ErrTruncatedData},
	} {
		if _, err := Parse([]byte(tc.in)); !errors.Is(err, tc.err) {
			t.Errorf("%q: expected %v, got %v", tc.in, tc.err, err)
		}
	}

	// partial results are still returned
	m, _ := Parse([]byte(`UnlitGeneric { $basetexture "a/b"`))
	if tex, ok := m.BaseTexture(); !ok || tex != "a/b" {
		t.Errorf("expected partial result, got %v", m)
	}
}

func TestTexturePath(t *testing.T) {
	for in, exp := range map[string]string{
		"models/props/crate":          "materials/models/props/crate.vtf",
		"Materials\\Models\\A.vtf":    "materials/models/a.vtf",
		"/dev/dev_measuregeneric01b":  "materials/dev/dev_measuregeneric01b.vtf",
		"materials/concrete/wall.VTF": "materials/concrete/wall.vtf",
	} {
		if act := TexturePath(in); act != exp {
			t.Errorf("%q: expected %q, got %q", in, exp, act)
		}
	}
}
