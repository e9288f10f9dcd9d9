package main

import (
	"os"

	"github.com/danieljhkim/treedit/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)

	// Execute has already reported the error.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
