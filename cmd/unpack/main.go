package unpack

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pg9182/srcvpk"
	"github.com/pg9182/srcvpk/cmd/root"
	"github.com/pg9182/srcvpk/internal"
	"github.com/spf13/cobra"
)

var Flags struct {
	VPK            srcvpk.ValvePakRef
	Path           string
	Strict         bool
	Progress       bool
	IncludeExclude func(*srcvpk.ValvePakFile) (bool, error)
}

var Command = &cobra.Command{
	Use:   "unpack vpk_path out_path",
	Short: "Extracts the contents of a VPK",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		Flags.Path = args[1]
		main()
	},
}

func init() {
	root.ArgVPK(&Flags.VPK, Command, -1, false, false, "")
	Command.Flags().BoolVarP(&Flags.Strict, "strict", "s", false, "fail on unreadable data and checksum mismatches instead of zero-filling")
	Command.Flags().BoolVarP(&Flags.Progress, "progress", "p", false, "display progress information")
	root.FlagIncludeExclude(&Flags.IncludeExclude, Command, true)
	root.Command.AddCommand(Command)
}

func main() {
	dc := root.Diag()
	r := root.Open(Flags.VPK, dc)

	if err := os.Mkdir(Flags.Path, 0777); err != nil && !errors.Is(err, fs.ErrExist) {
		fmt.Fprintf(os.Stderr, "error: create output directory: %v\n", err)
		os.Exit(1)
	}
	if dis, err := os.ReadDir(Flags.Path); err != nil {
		fmt.Fprintf(os.Stderr, "error: list output directory: %v\n", err)
		os.Exit(1)
	} else if len(dis) != 0 {
		fmt.Fprintf(os.Stderr, "error: output directory must not exist or be empty, found %q\n", dis[0].Name())
		os.Exit(1)
	}

	var files []*srcvpk.ValvePakFile
	var excludedCount int
	for i := range r.Root.File {
		f := &r.Root.File[i]
		if skip, err := Flags.IncludeExclude(f); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		} else if skip {
			excludedCount++
			continue
		}
		files = append(files, f)
	}

	var failed int
	internal.ForEach(len(files), root.Flags.Threads, func(i int) error {
		return extract(r, files[i])
	}, func(i int, err error) {
		f := files[i]
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: extract vpk file %q: %v\n", f.Path, err)
			failed++
			return
		}
		if Flags.Progress {
			fmt.Printf("[%4d/%4d] %s (%s)\n", i+1, len(files), f.Path, internal.FormatBytesSI(int64(f.Length)))
		}
	})
	if failed != 0 {
		os.Exit(1)
	}
	if Flags.Progress {
		if excludedCount != 0 {
			fmt.Printf("\nsuccess (%d files excluded by command-line filter)\n", excludedCount)
		} else {
			fmt.Printf("\nsuccess\n")
		}
	}
}

func extract(r *srcvpk.Reader, f *srcvpk.ValvePakFile) error {
	var b []byte
	if Flags.Strict {
		var err error
		if b, err = r.ReadEntryChecked(f); err != nil {
			return err
		}
	} else {
		b = r.ReadEntry(f)
	}

	outPath := filepath.Join(Flags.Path, filepath.FromSlash(f.Path))
	if err := os.MkdirAll(filepath.Dir(outPath), 0777); err != nil {
		return err
	}

	tf, err := os.CreateTemp(filepath.Dir(outPath), ".vpk*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tf.Name())
	defer tf.Close()

	if _, err := tf.Write(b); err != nil {
		return err
	}
	if err := tf.Close(); err != nil {
		return err
	}
	if err := os.Rename(tf.Name(), outPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
