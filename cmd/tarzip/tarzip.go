package tarzip

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/pg9182/srcvpk"
	"github.com/pg9182/srcvpk/cmd/root"
	"github.com/pg9182/srcvpk/internal"
	"github.com/spf13/cobra"
)

var TarCommand = command("tar")
var ZipCommand = command("zip")

func command(format string) *cobra.Command {
	var main func()
	var Flags struct {
		VPK            srcvpk.ValvePakRef
		IncludeExclude func(*srcvpk.ValvePakFile) (bool, error)
		Output         string
		Strict         bool
		Progress       bool
	}
	var Command = &cobra.Command{
		Use:   format + " vpk_path",
		Short: "Streams the contents of VPK as a " + format + " archive",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			main()
		},
	}
	main = func() {
		dc := root.Diag()
		r := root.Open(Flags.VPK, dc)

		var w *os.File
		switch Flags.Output {
		case "":
			fmt.Fprintf(os.Stderr, "error: no output file specified\n")
			os.Exit(1)
		case "-":
			w = os.Stdout
		default:
			var err error
			w, err = os.OpenFile(Flags.Output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: create output file: %v\n", err)
				os.Exit(1)
			}
		}
		defer w.Close()

		var (
			archive func(name string, size int64, r io.Reader) error
			finish  func() error
		)
		switch format {
		case "tar":
			a := tar.NewWriter(w)
			ds := map[string]struct{}{}
			archive = func(name string, size int64, r io.Reader) error {
				var mkdirs []string
			d:
				for d := path.Dir(name); d != "" && d != "."; d = path.Dir(d) {
					if _, ok := ds[d]; ok {
						continue d
					}
					mkdirs = append(mkdirs, d)
					ds[d] = struct{}{}
				}
				for i := len(mkdirs) - 1; i >= 0; i-- {
					if err := a.WriteHeader(&tar.Header{
						Name: mkdirs[i] + "/",
						Mode: 0777,
					}); err != nil {
						return err
					}
				}
				err := a.WriteHeader(&tar.Header{
					Name: name,
					Size: size,
					Mode: 0666,
				})
				if err == nil {
					_, err = io.Copy(a, r)
				}
				return err
			}
			finish = a.Close
		case "zip":
			a := zip.NewWriter(w)
			archive = func(name string, size int64, r io.Reader) error {
				w, err := a.CreateHeader(&zip.FileHeader{
					Name:               name,
					Method:             zip.Deflate,
					UncompressedSize64: uint64(size),
				})
				if err == nil {
					_, err = io.Copy(w, r)
				}
				return err
			}
			finish = a.Close
		default:
			panic("unknown archive format " + format)
		}

		var files []*srcvpk.ValvePakFile
		for i := range r.Root.File {
			f := &r.Root.File[i]
			if skip, err := Flags.IncludeExclude(f); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			} else if skip {
				if Flags.Progress {
					fmt.Fprintf(os.Stderr, "%s (skipped)\n", f.Path)
				}
				continue
			}
			files = append(files, f)
		}

		type result struct {
			b   []byte
			err error
		}
		internal.ForEach(len(files), root.Flags.Threads, func(i int) (x result) {
			if Flags.Strict {
				x.b, x.err = r.ReadEntryChecked(files[i])
			} else {
				x.b = r.ReadEntry(files[i])
			}
			return
		}, func(i int, x result) {
			f := files[i]
			if Flags.Progress {
				fmt.Fprintf(os.Stderr, "%s\n", f.Path)
			}
			if x.err != nil {
				fmt.Fprintf(os.Stderr, "error: read vpk file %q: %v\n", f.Path, x.err)
				os.Exit(1)
			}
			if err := archive(f.Path, int64(len(x.b)), bytes.NewReader(x.b)); err != nil {
				fmt.Fprintf(os.Stderr, "error: process vpk file %q: %v\n", f.Path, err)
				os.Exit(1)
			}
		})
		if err := finish(); err != nil {
			fmt.Fprintf(os.Stderr, "error: write output file %q: %v\n", Flags.Output, err)
			os.Exit(1)
		}

		if err := w.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error: write output file %q: %v\n", Flags.Output, err)
			os.Exit(1)
		}
	}
	{
		root.ArgVPK(&Flags.VPK, Command, -1, false, false, "")
		root.FlagIncludeExclude(&Flags.IncludeExclude, Command, true)
		Command.Flags().StringVarP(&Flags.Output, "output", "o", "-", "write the archive to a file")
		Command.Flags().BoolVarP(&Flags.Strict, "strict", "s", false, "fail on unreadable data and checksum mismatches instead of zero-filling")
		Command.Flags().BoolVarP(&Flags.Progress, "progress", "p", false, "display files as they are archived")
		root.Command.AddCommand(Command)
	}
	return Command
}
