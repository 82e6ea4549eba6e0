package main

import "github.com/CuylerR/Meta-sapling-OS/cmd/treemanifest/cmd"

func main() {
	cmd.Execute()
}
