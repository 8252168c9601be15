// Command srcvpk reads Source engine VPK archives, textures and models.
package main

import "github.com/pg9182/srcvpk/cmd"

func main() {
	cmd.Execute()
}
