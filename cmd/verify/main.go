package verify

import (
	"fmt"
	"os"

	"github.com/pg9182/srcvpk"
	"github.com/pg9182/srcvpk/cmd/root"
	"github.com/pg9182/srcvpk/internal"
	"github.com/spf13/cobra"
)

var Flags struct {
	VPK      srcvpk.ValvePakRef
	Progress bool
}

var Command = &cobra.Command{
	Use:   "verify vpk_path",
	Short: "Verifies the contents of a VPK",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		main()
	},
}

func init() {
	root.ArgVPK(&Flags.VPK, Command, -1, false, false, "")
	Command.Flags().BoolVarP(&Flags.Progress, "progress", "p", false, "display files as they are verified")
	root.Command.AddCommand(Command)
}

func main() {
	dc := root.Diag()
	r := root.Open(Flags.VPK, dc)

	var failure int
	internal.ForEach(len(r.Root.File), root.Flags.Threads, func(i int) error {
		_, err := r.ReadEntryChecked(&r.Root.File[i])
		return err
	}, func(i int, err error) {
		f := &r.Root.File[i]
		if err != nil {
			if Flags.Progress {
				fmt.Printf("%s: ERROR\n", f.Path)
			}
			fmt.Fprintf(os.Stderr, "%s: ERROR - %v\n", f.Path, err)
			failure++
		} else if Flags.Progress {
			fmt.Printf("%s: OK\n", f.Path)
		}
	})
	if r.Root.Truncated {
		fmt.Fprintf(os.Stderr, "error: directory tree is truncated\n")
		failure++
	}
	if failure != 0 {
		os.Exit(1)
	}
}
