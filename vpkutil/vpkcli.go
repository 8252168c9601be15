// Package vpkutil contains helpers for command-line tools built on srcvpk.
package vpkutil

import (
	"fmt"
	"strings"

	"github.com/pg9182/srcvpk"
	"github.com/pg9182/srcvpk/internal"
	"github.com/spf13/pflag"
)

// CLIIncludeExclude filters VPK files using the provided globs.
type CLIIncludeExclude struct {
	Exclude    *[]string
	ExcludeExt *[]string
	Include    *[]string
}

// NewCLIIncludeExclude creates a new CLIIncludeExclude and registers it with
// the provided [pflag.FlagSet]. If short is true, -e and -E are registered
// for --exclude and --include.
func NewCLIIncludeExclude(set *pflag.FlagSet, short bool) CLIIncludeExclude {
	var e, i string
	if short {
		e, i = "e", "E"
	}
	return CLIIncludeExclude{
		Exclude:    set.StringSliceP("exclude", e, nil, "Excludes files or directories matching the provided glob (anchor to the start with /)"),
		ExcludeExt: set.StringSlice("exclude-ext", nil, "Shortcut for --exclude to remove files with the provided extension"),
		Include:    set.StringSliceP("include", i, nil, "Negates --exclude for files or directories matching the provided glob (if only includes are provided, it excludes everything else)"),
	}
}

// Skip determines whether to skip the specified file.
func (ie CLIIncludeExclude) Skip(f *srcvpk.ValvePakFile) (bool, error) {
	var excluded bool
	for _, x := range *ie.Exclude {
		if m, err := internal.MatchGlobParents(x, f.Path); err != nil {
			return false, fmt.Errorf("process excludes: match %q against glob %q: %w", f.Path, x, err)
		} else if m {
			excluded = true
			break
		}
	}
	if !excluded {
		for _, x := range *ie.ExcludeExt {
			if strings.EqualFold(strings.TrimPrefix(x, "."), f.Ext) {
				excluded = true
				break
			}
		}
	}
	if len(*ie.Exclude) == 0 && len(*ie.ExcludeExt) == 0 && len(*ie.Include) != 0 {
		excluded = true
	}
	for _, x := range *ie.Include {
		if m, err := internal.MatchGlobParents(x, f.Path); err != nil {
			return false, fmt.Errorf("process includes: match %q against glob %q: %w", f.Path, x, err)
		} else if m {
			excluded = false
			break
		}
	}
	return excluded, nil
}
