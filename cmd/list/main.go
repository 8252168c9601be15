package list

import (
	"fmt"
	"os"
	"strings"

	"github.com/pg9182/srcvpk"
	"github.com/pg9182/srcvpk/cmd/root"
	"github.com/pg9182/srcvpk/internal"
	"github.com/spf13/cobra"
)

var Flags struct {
	VPK            srcvpk.ValvePakRef
	HumanReadable  bool
	Long           bool
	Test           bool
	Ext            string
	IncludeExclude func(*srcvpk.ValvePakFile) (bool, error)
}

var Command = &cobra.Command{
	Use:     "list vpk_path",
	Short:   "Lists the contents of a VPK",
	Args:    cobra.ExactArgs(1),
	Aliases: []string{"ls"},
	Run: func(cmd *cobra.Command, args []string) {
		main()
	},
}

func init() {
	Command.Flags().Bool("help", false, "help for "+Command.Name()) // prevent the default short help flag from being set
	Command.Flags().BoolVarP(&Flags.HumanReadable, "human-readable", "h", false, "show values in human-readable form")
	Command.Flags().BoolVarP(&Flags.Long, "long", "l", false, "show detailed file metadata (adds the following columns to the beginning: block_index crc32[hex] preload_size[bytes] archive_size[bytes] size[bytes] chunks)")
	Command.Flags().BoolVarP(&Flags.Test, "test", "t", false, "also attempt to read contents and verify checksums (adds a column with OK/ERR to the end)")
	Command.Flags().StringVar(&Flags.Ext, "ext", "", "only list files with the provided extension (uses the extension index)")
	root.FlagIncludeExclude(&Flags.IncludeExclude, Command, true)
	root.ArgVPK(&Flags.VPK, Command, -1, false, false, "")
	root.Command.AddCommand(Command)
}

func main() {
	dc := root.Diag()
	r := root.Open(Flags.VPK, dc)

	files := make([]*srcvpk.ValvePakFile, len(r.Root.File))
	for i := range r.Root.File {
		files[i] = &r.Root.File[i]
	}
	if Flags.Ext != "" {
		files = r.Root.Ext(strings.TrimPrefix(Flags.Ext, "."))
	}

	var pathLen int
	for _, f := range files {
		pathLen = max(pathLen, min(len(f.Path), 64))
	}

	var testErrCount, testCount int
	for _, f := range files {
		if skip, err := Flags.IncludeExclude(f); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		} else if skip {
			continue
		}

		if Flags.Long {
			if Flags.HumanReadable {
				fmt.Printf("%s %08X %9s %9s %9s %3d  ", f.Index, f.CRC32, formatBytesSIAligned(int64(len(f.Preload))), formatBytesSIAligned(int64(f.ArchiveLength())), formatBytesSIAligned(int64(f.Length)), len(f.Chunk))
			} else {
				fmt.Printf("%s %08X %9d %9d %9d %3d  ", f.Index, f.CRC32, len(f.Preload), f.ArchiveLength(), f.Length, len(f.Chunk))
			}
		}
		if Flags.Test {
			fmt.Printf("%*s", -pathLen, f.Path)
			os.Stdout.Sync()
		} else {
			fmt.Printf("%s", f.Path)
		}

		var testErr error
		if Flags.Test {
			testCount++
			if _, testErr = r.ReadEntryChecked(f); testErr != nil {
				testErrCount++
				fmt.Printf(" ERR")
			} else {
				fmt.Printf("  OK")
			}
		}
		fmt.Printf("\n")

		if testErr != nil {
			fmt.Fprintf(os.Stderr, "warning: entry %q: test: %v\n", f.Path, testErr)
		}
	}
	if r.Root.Truncated {
		fmt.Fprintf(os.Stderr, "warning: directory tree is truncated, listing may be incomplete\n")
	}
	if Flags.Test {
		fmt.Fprintf(os.Stderr, "%d/%d files valid\n", testCount-testErrCount, testCount)
		if testErrCount != 0 {
			os.Exit(1)
		}
	}
}

func formatBytesSIAligned(b int64) string {
	s := internal.FormatBytesSI(b)
	s, isB := strings.CutSuffix(s, " B")
	if isB {
		s += "  B"
	}
	return s
}
