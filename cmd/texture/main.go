package texture

import (
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/ftrvxmtrx/tga"
	"github.com/pg9182/srcvpk"
	"github.com/pg9182/srcvpk/cmd/root"
	"github.com/pg9182/srcvpk/vpkutil"
	"github.com/pg9182/srcvpk/vtf"
	"github.com/spf13/cobra"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

var Flags struct {
	VPK      srcvpk.ValvePakRef
	Textures []string
	Output   string
	Format   string
	Quality  int
	Scale    float64
	Info     bool
	Fallback bool
}

var Command = &cobra.Command{
	GroupID: root.GroupAsset.ID,
	Use:     "texture vpk_path texture...",
	Short:   "Decodes textures from a VPK to images",
	Args:    cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		Flags.Textures = args[1:]
		main()
	},
}

// Encoders contains the supported output formats.
var Encoders = map[string]func(quality int) imgio.Encoder{
	"png": func(int) imgio.Encoder {
		return imgio.PNGEncoder()
	},
	"jpg": func(quality int) imgio.Encoder {
		return imgio.JPEGEncoder(quality)
	},
	"bmp": func(int) imgio.Encoder {
		return bmp.Encode
	},
	"tga": func(int) imgio.Encoder {
		return tga.Encode
	},
	"webp": func(int) imgio.Encoder {
		return func(w io.Writer, img image.Image) error {
			return nativewebp.Encode(w, img, nil)
		}
	},
}

func init() {
	var formats []string
	for f := range Encoders {
		formats = append(formats, f)
	}
	slices.Sort(formats)

	Command.Flags().StringVarP(&Flags.Output, "output", "o", ".", "output directory (or - to write a single image to stdout)")
	Command.Flags().StringVarP(&Flags.Format, "format", "f", "png", "output format ("+strings.Join(formats, ", ")+")")
	Command.Flags().IntVarP(&Flags.Quality, "quality", "q", 90, "jpeg quality")
	Command.Flags().Float64VarP(&Flags.Scale, "scale", "s", 1, "resample the image by this factor")
	Command.Flags().BoolVarP(&Flags.Info, "info", "i", false, "only print the texture header")
	Command.Flags().BoolVar(&Flags.Fallback, "fallback", false, "write a placeholder image for textures which can't be decoded")
	root.ArgVPK(&Flags.VPK, Command, 1, true, false, "vtf")
	root.Command.AddCommand(Command)
}

func main() {
	enc, ok := Encoders[Flags.Format]
	if !ok {
		fmt.Fprintf(os.Stderr, "error: unknown format %q\n", Flags.Format)
		os.Exit(2)
	}
	if Flags.Scale <= 0 {
		fmt.Fprintf(os.Stderr, "error: invalid scale %v\n", Flags.Scale)
		os.Exit(2)
	}
	if Flags.Output == "-" && len(Flags.Textures) != 1 && !Flags.Info {
		fmt.Fprintf(os.Stderr, "error: can only write one image to stdout\n")
		os.Exit(2)
	}

	dc := root.Diag()
	fsys := root.AssetFS(root.Open(Flags.VPK, dc))

	var failed int
	for _, name := range Flags.Textures {
		name = vpkutil.AssetPath(name, "materials", ".vtf")
		if err := func() error {
			b, err := fs.ReadFile(fsys, name)
			if err != nil {
				return err
			}
			if Flags.Info {
				h, err := vtf.Load(b)
				if err != nil {
					return err
				}
				printInfo(name, h.Header)
				return nil
			}
			var t *vtf.Texture
			if Flags.Fallback {
				t = vtf.LoadOrFallback(b, name, dc)
			} else if t, err = vtf.Load(b); err != nil {
				return err
			}
			return write(name, Scale(t.Image(), Flags.Scale), enc(Flags.Quality))
		}(); err != nil {
			fmt.Fprintf(os.Stderr, "error: texture %q: %v\n", name, err)
			failed++
		}
	}
	if failed != 0 {
		os.Exit(1)
	}
}

func printInfo(name string, h *vtf.Header) {
	fmt.Printf("%s: vtf %d.%d %dx%d %s", name, h.Major, h.Minor, h.Width, h.Height, h.Format)
	fmt.Printf(" mips=%d frames=%d faces=%d depth=%d flags=%08X", h.MipCount, h.Frames, h.Faces(), h.Depth, h.Flags)
	if h.LowResFormat != vtf.FormatNone {
		fmt.Printf(" lowres=%dx%d %s", h.LowResWidth, h.LowResHeight, h.LowResFormat)
	}
	if len(h.Resources) != 0 {
		fmt.Printf(" resources=%d", len(h.Resources))
	}
	fmt.Println()
}

// Scale resamples img by the provided factor.
func Scale(img image.Image, factor float64) image.Image {
	if factor == 1 {
		return img
	}
	b := img.Bounds()
	w, h := max(1, int(float64(b.Dx())*factor)), max(1, int(float64(b.Dy())*factor))
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func write(name string, img image.Image, enc imgio.Encoder) error {
	if Flags.Output == "-" {
		return enc(os.Stdout, img)
	}
	out := filepath.Join(Flags.Output, filepath.FromSlash(strings.TrimSuffix(name, path.Ext(name))+"."+Flags.Format))
	if err := os.MkdirAll(filepath.Dir(out), 0777); err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := enc(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", Flags.Format, err)
	}
	return f.Close()
}
