// Command ideaflow runs timed idea pipeline sessions.
package main

import (
	"os"

	"github.com/vnykmshr/ideaflow/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.NewRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}
