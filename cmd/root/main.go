package root

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"runtime"
	"slices"
	"strings"

	"github.com/pg9182/srcvpk"
	"github.com/pg9182/srcvpk/diag"
	"github.com/pg9182/srcvpk/vpkutil"
	"github.com/spf13/cobra"
)

var Flags struct {
	VPKDir    string
	VPKPrefix string
	GameDir   string
	Verbose   bool
	Threads   int
}

var Command = &cobra.Command{
	Use:   "srcvpk",
	Short: "Reads Source engine VPK archives, textures and models.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if Flags.Threads < 1 {
			Flags.Threads = 1
		}
		if Flags.Threads > runtime.NumCPU() {
			runtime.GOMAXPROCS(Flags.Threads)
		}
	},
}

var GroupVPK = &cobra.Group{
	ID:    "vpk",
	Title: "Archive commands:",
}

var GroupAsset = &cobra.Group{
	ID:    "asset",
	Title: "Asset commands:",
}

func init() {
	Command.AddGroup(GroupVPK, GroupAsset)
	Command.PersistentFlags().StringVar(&Flags.VPKDir, "vpk-dir", "", "set the vpk directory, and use vpk names instead of paths")
	Command.PersistentFlags().StringVar(&Flags.VPKPrefix, "vpk-prefix", "english", "the vpk locale prefix to use (respawn vpks only)")
	Command.PersistentFlags().StringVar(&Flags.GameDir, "game-dir", "", "also look for loose assets in this directory (after the vpk)")
	Command.PersistentFlags().BoolVarP(&Flags.Verbose, "verbose", "v", false, "print diagnostics as they are encountered")
	Command.PersistentFlags().IntVarP(&Flags.Threads, "threads", "j", runtime.NumCPU(), "number of files to read in parallel (default is cpu count)")
}

// Diag returns a new diagnostics collector which prints to stderr if
// --verbose is set.
func Diag() *diag.Collector {
	var dc diag.Collector
	if Flags.Verbose {
		dc.Printf = func(format string, v ...interface{}) {
			fmt.Fprintf(os.Stderr, "warning: "+format, v...)
		}
	}
	return &dc
}

// VPK resolves the provided name to a VPK.
func VPK(name string) (srcvpk.ValvePakRef, error) {
	if Flags.VPKDir != "" {
		if name == "" {
			return srcvpk.ValvePakRef{}, fmt.Errorf("invalid vpk name %q", name)
		}
		return srcvpk.ValvePakRef{Path: Flags.VPKDir, Prefix: Flags.VPKPrefix, Name: name}, nil
	}
	if vpk, err := srcvpk.PathToValvePakRef(name, Flags.VPKPrefix); err != nil {
		return srcvpk.ValvePakRef{}, fmt.Errorf("invalid vpk path %q: %w", name, err)
	} else {
		return vpk, nil
	}
}

// Open opens a VPK, exiting on failure.
func Open(vpk srcvpk.ValvePakRef, dc *diag.Collector) *srcvpk.Reader {
	r, err := srcvpk.OpenRef(vpk, dc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: open vpk: %v\n", err)
		os.Exit(1)
	}
	return r
}

// AssetFS returns the filesystem assets are loaded from: the VPK, then the
// game directory if --game-dir is set.
func AssetFS(r *srcvpk.Reader) fs.FS {
	l := vpkutil.LayerFS{r}
	if Flags.GameDir != "" {
		l = append(l, os.DirFS(Flags.GameDir))
	}
	return l
}

// ArgVPK updates cmd to use the vpk name/path as the first mandatory argument,
// validating it and registering completions.
//
// If i is positive, it completes arguments after (one or multi) it with names
// from the VPK (these are not validated) with the provided extension, or all
// files if ext is empty.
func ArgVPK(out *srcvpk.ValvePakRef, cmd *cobra.Command, i int, multi, dirs bool, ext string) {
	if i == 0 {
		panic("file arg index must not be zero")
	}

	// check the help text if it's set
	if a, b, _ := strings.Cut(cmd.Use, " "); a != "" {
		if a, _, _ := strings.Cut(b, " "); a != "vpk_path" {
			panic("second argument help must be vpk_path")
		}
	}

	if cmd.GroupID == "" {
		cmd.GroupID = GroupVPK.ID
	}

	args := func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			if Flags.VPKDir != "" {
				return fmt.Errorf("vpk name is required")
			}
			return fmt.Errorf("vpk path is required")
		}
		if vpk, err := VPK(args[0]); err != nil {
			return err
		} else {
			*out = vpk
		}
		return nil
	}
	if next := cmd.Args; next != nil {
		cmd.Args = cobra.MatchAll(args, next)
	} else {
		cmd.Args = args
	}

	if validArgsFunction, next := func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			if Flags.VPKDir == "" {
				return []string{srcvpk.Ext}, cobra.ShellCompDirectiveFilterFileExt
			}
			ds, err := os.ReadDir(Flags.VPKDir)
			if err != nil {
				return nil, cobra.ShellCompDirectiveError
			}
			var ns []string
			for _, d := range ds {
				if n, idx, err := srcvpk.SplitName(d.Name(), Flags.VPKPrefix); err == nil && idx == srcvpk.ValvePakIndexDir {
					ns = append(ns, n)
				}
			}
			return ns, cobra.ShellCompDirectiveNoFileComp
		}
		if i > 0 && len(args) >= i && (multi || len(args) == i) {
			vpk, err := VPK(args[0])
			if err != nil {
				return nil, cobra.ShellCompDirectiveError
			}
			r, err := srcvpk.OpenRef(vpk, nil)
			if err != nil {
				return nil, cobra.ShellCompDirectiveError
			}

			var (
				cs []string
				ds = map[string]struct{}{}
			)
			for _, f := range r.Root.File {
				if ext == "" || strings.EqualFold(f.Ext, ext) {
					if strings.HasPrefix(f.Path, toComplete) {
						cs = append(cs, f.Path)
					}
				}
				if dirs {
				d:
					for d := f.Path; d != ""; {
						d = path.Dir(d)
						if d == "." {
							d = ""
						}
						if _, ok := ds[d]; ok {
							continue d
						}
						ds[d] = struct{}{}
					}
				}
			}
			if dirs {
				for d := range ds {
					cs = append(cs, d+"/")
				}
			}

			slices.Sort(cs)
			cs = slices.Compact(cs)
			return cs, cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveDefault
	}, cmd.ValidArgsFunction; next != nil {
		cmd.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 || (i > 0 && len(args) >= i && (multi || len(args) == i)) {
				return validArgsFunction(cmd, args, toComplete)
			}
			return next(cmd, args, toComplete)
		}
	} else {
		cmd.ValidArgsFunction = validArgsFunction
	}
}

// FlagIncludeExclude adds --exclude, --exclude-ext and --include flags,
// setting skip to a function checking if a file is excluded.
func FlagIncludeExclude(skip *func(*srcvpk.ValvePakFile) (bool, error), cmd *cobra.Command, short bool) {
	*skip = vpkutil.NewCLIIncludeExclude(cmd.Flags(), short).Skip
}
