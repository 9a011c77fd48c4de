// Package main provides the entry point for the mds CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/lukasn42/move-datastructure/cmd/mds/commands"
	"github.com/lukasn42/move-datastructure/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	err := commands.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
