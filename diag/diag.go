// Package diag contains the error taxonomy shared by the asset readers and a
// collector for the non-fatal problems they encounter while parsing.
package diag

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Error taxonomy. Readers wrap these so callers can use errors.Is.
var (
	ErrMalformedHeader      = errors.New("malformed header")
	ErrTruncatedData        = errors.New("truncated data")
	ErrUnsupportedFormat    = errors.New("unsupported format")
	ErrMissingCompanionFile = errors.New("missing companion file")
	ErrMissingShard         = errors.New("missing shard")
	ErrUnexpectedEndOfData  = errors.New("unexpected end of data")
	ErrChecksum             = errors.New("checksum mismatch")
)

// Kind classifies a Record.
type Kind int

const (
	// Absent means an optional element was not present. It is not a failure.
	Absent Kind = iota
	// Warning means something was malformed but the affected piece was
	// skipped or repaired.
	Warning
	// Degraded means a whole asset was replaced by a placeholder.
	Degraded
)

func (k Kind) String() string {
	switch k {
	case Absent:
		return "absent"
	case Warning:
		return "warning"
	case Degraded:
		return "degraded"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Record is a single diagnostic.
type Record struct {
	Kind   Kind
	Source string // asset path or component
	Err    error
}

func (r Record) String() string {
	if r.Source == "" {
		return r.Kind.String() + ": " + r.Err.Error()
	}
	return r.Kind.String() + ": " + r.Source + ": " + r.Err.Error()
}

// Collector accumulates diagnostics. A nil *Collector discards everything, so
// readers never need to check whether diagnostics are being captured. It is
// safe for concurrent use.
type Collector struct {
	// Printf, if set, is called for every record as it is added.
	Printf func(format string, v ...interface{})

	mu  sync.Mutex
	rec []Record
}

// Add records err under the provided kind and source.
func (c *Collector) Add(kind Kind, source string, err error) {
	if c == nil || err == nil {
		return
	}
	r := Record{Kind: kind, Source: source, Err: err}
	c.mu.Lock()
	c.rec = append(c.rec, r)
	p := c.Printf
	c.mu.Unlock()
	if p != nil {
		p("%s\n", r)
	}
}

// Absentf records an absent optional element.
func (c *Collector) Absentf(source, format string, v ...interface{}) {
	c.Add(Absent, source, fmt.Errorf(format, v...))
}

// Warnf records a recoverable problem. Use %w to attach a taxonomy error.
func (c *Collector) Warnf(source, format string, v ...interface{}) {
	c.Add(Warning, source, fmt.Errorf(format, v...))
}

// Degradef records that an asset was replaced with a placeholder.
func (c *Collector) Degradef(source, format string, v ...interface{}) {
	c.Add(Degraded, source, fmt.Errorf(format, v...))
}

// Records returns a copy of the collected records.
func (c *Collector) Records() []Record {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Record(nil), c.rec...)
}

// Count returns the number of records of the provided kind.
func (c *Collector) Count(kind Kind) (n int) {
	for _, r := range c.Records() {
		if r.Kind == kind {
			n++
		}
	}
	return
}

// Has checks whether any record wraps target.
func (c *Collector) Has(target error) bool {
	for _, r := range c.Records() {
		if errors.Is(r.Err, target) {
			return true
		}
	}
	return false
}

// Reset discards all records.
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.rec = nil
	c.mu.Unlock()
}

func (c *Collector) String() string {
	var b strings.Builder
	for _, r := range c.Records() {
		b.WriteString(r.String())
		b.WriteByte('\n')
	}
	return b.String()
}
