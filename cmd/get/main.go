package get

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/pg9182/srcvpk"
	"github.com/pg9182/srcvpk/cmd/root"
	"github.com/spf13/cobra"
)

var Flags struct {
	VPK   srcvpk.ValvePakRef
	Files []string
	Force bool
}

var Command = &cobra.Command{
	Use:     "get vpk_path file...",
	Aliases: []string{"cat"},
	Short:   "Reads files from a VPK to stdout",
	Args:    cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		Flags.Files = args[1:]
		main()
	},
}

func init() {
	Command.Flags().BoolVarP(&Flags.Force, "force", "f", false, "write unreadable data as zeros instead of failing, and ignore checksums")
	root.ArgVPK(&Flags.VPK, Command, 1, true, false, "")
	root.Command.AddCommand(Command)
}

func main() {
	dc := root.Diag()
	r := root.Open(Flags.VPK, dc)

	var failed int
	for _, name := range Flags.Files {
		if err := func() error {
			f, ok := r.FindEntry(name)
			if !ok {
				return fs.ErrNotExist
			}
			var b []byte
			if Flags.Force {
				b = r.ReadEntry(f)
			} else {
				var err error
				if b, err = r.ReadEntryChecked(f); err != nil {
					return err
				}
			}
			_, err := os.Stdout.Write(b)
			return err
		}(); err != nil {
			fmt.Fprintf(os.Stderr, "error: read file %q: %v\n", name, err)
			failed++
		}
	}
	if failed != 0 {
		os.Exit(1)
	}
}
