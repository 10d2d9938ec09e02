package main

import (
	"os"

	"github.com/kweller/nutrisolve/internal/cli"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	return cli.Execute(version)
}
