// Package material extracts the top-level properties of material (.vmt)
// files. Nested blocks (proxies, fallbacks, patches) are skipped.
package material

import (
	"fmt"
	"strings"

	"github.com/pg9182/srcvpk/diag"
)

// Material is a parsed material.
type Material struct {
	Shader string
	Params map[string]string // lowercase keys
}

// Get returns a parameter (case-insensitive).
func (m *Material) Get(key string) (string, bool) {
	v, ok := m.Params[strings.ToLower(key)]
	return v, ok
}

// BaseTexture returns the $basetexture parameter.
func (m *Material) BaseTexture() (string, bool) {
	return m.Get("$basetexture")
}

// TexturePath returns the path of a texture referenced by a material.
func TexturePath(name string) string {
	name = strings.ToLower(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimPrefix(strings.TrimSuffix(name, ".vtf"), "materials/")
	return "materials/" + strings.TrimLeft(name, "/") + ".vtf"
}

// Parse parses a material.
func Parse(b []byte) (*Material, error) {
	t := tokenizer{s: string(b)}
	m := &Material{Params: map[string]string{}}

	shader, ok := t.next()
	if !ok || shader == "{" || shader == "}" {
		return nil, fmt.Errorf("parse material: expected shader name: %w", diag.ErrMalformedHeader)
	}
	m.Shader = shader
	if tok, ok := t.next(); !ok || tok != "{" {
		return nil, fmt.Errorf("parse material: expected { after %q: %w", shader, diag.ErrMalformedHeader)
	}
	for {
		key, ok := t.next()
		if !ok {
			return m, fmt.Errorf("parse material: unterminated block: %w", diag.ErrTruncatedData)
		}
		if key == "}" {
			return m, nil
		}
		val, ok := t.next()
		if !ok {
			return m, fmt.Errorf("parse material: missing value for %q: %w", key, diag.ErrTruncatedData)
		}
		if val == "{" {
			if !t.skipBlock() {
				return m, fmt.Errorf("parse material: unterminated block %q: %w", key, diag.ErrTruncatedData)
			}
			continue
		}
		m.Params[strings.ToLower(key)] = val
	}
}

type tokenizer struct {
	s   string
	off int
}

// next returns the next token. Braces are returned as tokens. Quoted strings
// are returned without the quotes.
func (t *tokenizer) next() (string, bool) {
	for t.off < len(t.s) {
		switch c := t.s[t.off]; {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			t.off++
		case strings.HasPrefix(t.s[t.off:], "//"):
			if i := strings.IndexByte(t.s[t.off:], '\n'); i >= 0 {
				t.off += i + 1
			} else {
				t.off = len(t.s)
			}
		case c == '{' || c == '}':
			t.off++
			return string(c), true
		case c == '"':
			end := strings.IndexByte(t.s[t.off+1:], '"')
			if end < 0 {
				s := t.s[t.off+1:]
				t.off = len(t.s)
				return s, true
			}
			s := t.s[t.off+1 : t.off+1+end]
			t.off += end + 2
			return s, true
		default:
			start := t.off
			for t.off < len(t.s) && !strings.ContainsRune(" \t\r\n{}\"", rune(t.s[t.off])) {
				t.off++
			}
			return t.s[start:t.off], true
		}
	}
	return "", false
}

// skipBlock skips to the end of the current block.
func (t *tokenizer) skipBlock() bool {
	for depth := 1; depth > 0; {
		tok, ok := t.next()
		if !ok {
			return false
		}
		switch tok {
		case "{":
			depth++
		case "}":
			depth--
		}
	}
	return true
}
