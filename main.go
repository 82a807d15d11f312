package main

import (
	"os"

	"github.com/mrlokans/librarydesk/internal/cli"
	"github.com/mrlokans/librarydesk/internal/logging"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := cli.NewRootCommand(Version, Commit).Execute(); err != nil {
		logging.Error().Err(err).Msg("librarydesk failed")
		os.Exit(1)
	}
}
