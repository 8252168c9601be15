package model

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pg9182/srcvpk"
	"github.com/pg9182/srcvpk/cmd/root"
	"github.com/pg9182/srcvpk/studiomodel"
	"github.com/pg9182/srcvpk/vpkutil"
	"github.com/pg9182/srcvpk/vtx"
	"github.com/spf13/cobra"
)

var Flags struct {
	VPK      srcvpk.ValvePakRef
	Models   []string
	OBJ      string
	Strips   bool
	Textures bool
}

var Command = &cobra.Command{
	GroupID: root.GroupAsset.ID,
	Use:     "model vpk_path model...",
	Short:   "Assembles studio models from a VPK",
	Args:    cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		Flags.Models = args[1:]
		main()
	},
}

func init() {
	Command.Flags().StringVar(&Flags.OBJ, "obj", "", "also write each model as a wavefront obj to this directory")
	Command.Flags().BoolVar(&Flags.Strips, "strips", false, "also show the raw strip hierarchy counts")
	Command.Flags().BoolVar(&Flags.Textures, "textures", false, "also decode the base texture of each material")
	root.ArgVPK(&Flags.VPK, Command, 1, true, false, "mdl")
	root.Command.AddCommand(Command)
}

func main() {
	dc := root.Diag()
	fsys := root.AssetFS(root.Open(Flags.VPK, dc))

	var failed int
	for _, name := range Flags.Models {
		name = vpkutil.AssetPath(name, "models", ".mdl")
		if err := func() error {
			m, err := studiomodel.Load(fsys, name, studiomodel.Options{
				Diag:         dc,
				LoadTextures: Flags.Textures,
			})
			if err != nil {
				return err
			}
			printModel(m)
			if Flags.Strips {
				printStrips(fsys, name)
			}
			if Flags.OBJ != "" {
				out := filepath.Join(Flags.OBJ, filepath.FromSlash(strings.TrimSuffix(name, ".mdl")+".obj"))
				if err := os.MkdirAll(filepath.Dir(out), 0777); err != nil {
					return err
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := m.WriteOBJ(f); err != nil {
					return fmt.Errorf("write obj: %w", err)
				}
				return f.Close()
			}
			return nil
		}(); err != nil {
			fmt.Fprintf(os.Stderr, "error: model %q: %v\n", name, err)
			failed++
		}
	}
	if failed != 0 {
		os.Exit(1)
	}
}

func printModel(m *studiomodel.Model) {
	var vertices, triangles int
	for _, mesh := range m.Meshes {
		if !mesh.Empty {
			vertices += len(mesh.Vertices)
			triangles += mesh.Triangles()
		}
	}
	fmt.Printf("%s:", m.Name)
	if m.Placeholder {
		fmt.Printf(" (placeholder)")
	}
	fmt.Printf(" %d meshes, %d vertices, %d triangles, %d bones, bounds %v %v\n", len(m.Meshes), vertices, triangles, len(m.Bones), m.Min, m.Max)
	for _, g := range m.BodyGroups {
		fmt.Printf("  bodygroup %s\n", g.Name)
		for _, c := range g.Choices {
			fmt.Printf("    %s\n", c.Name)
			for _, i := range c.Meshes {
				fmt.Printf("      %s\n", m.Meshes[i])
			}
		}
	}
	for i, mt := range m.Materials {
		fmt.Printf("  material %d %s", i, mt.Name)
		if mt.Path == "" {
			fmt.Printf(" (missing)")
		} else {
			fmt.Printf(" %s", mt.Path)
		}
		if mt.BaseTexture != "" {
			fmt.Printf(" -> %s", mt.BaseTexture)
		}
		if mt.Texture != nil {
			fmt.Printf(" (%dx%d", mt.Texture.Width, mt.Texture.Height)
			if mt.Texture.Fallback {
				fmt.Printf(", fallback")
			}
			fmt.Printf(")")
		}
		fmt.Println()
	}
	for _, b := range m.Bones {
		fmt.Printf("  bone %s", b.Name)
		if b.ParentName != "" {
			fmt.Printf(" (parent %s)", b.ParentName)
		}
		fmt.Printf(" %v\n", b.WorldPosition)
	}
}

func printStrips(fsys fs.FS, name string) {
	base := strings.TrimSuffix(name, ".mdl")
	for _, ext := range studiomodel.StripExts {
		b, err := fs.ReadFile(fsys, base+ext)
		if err != nil {
			continue
		}
		f, err := vtx.Read(b, base+ext, nil)
		if err != nil {
			fmt.Printf("  %s: %v\n", base+ext, err)
			continue
		}
		fmt.Printf("  %s: %s\n", base+ext, f.Summary())
	}
}
