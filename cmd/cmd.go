// Package cmd contains the srcvpk command-line interface.
package cmd

import (
	"github.com/pg9182/srcvpk/cmd/root"

	_ "github.com/pg9182/srcvpk/cmd/get"
	_ "github.com/pg9182/srcvpk/cmd/list"
	_ "github.com/pg9182/srcvpk/cmd/model"
	_ "github.com/pg9182/srcvpk/cmd/tarzip"
	_ "github.com/pg9182/srcvpk/cmd/texture"
	_ "github.com/pg9182/srcvpk/cmd/unpack"
	_ "github.com/pg9182/srcvpk/cmd/verify"
	_ "github.com/pg9182/srcvpk/cmd/version"
)

func Execute() {
	root.Command.Execute()
}
