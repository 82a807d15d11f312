// Package cli holds the librarydesk command line: the server and the
// bootstrap commands that create libraries and accounts.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/librarydesk/internal/config"
	"github.com/mrlokans/librarydesk/internal/entrypoint"
)

// NewRootCommand builds the command tree. Running without a subcommand serves HTTP.
func NewRootCommand(version, commit string) *cobra.Command {
	root := &cobra.Command{
		Use:           "librarydesk",
		Short:         "Librarian desk for multi-library catalogues, loans and members",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return entrypoint.Run(config.NewConfig(), version)
		},
	}

	root.AddCommand(
		newServeCommand(version),
		newCreateLibraryCommand(),
		newCreateLibrarianCommand(),
		newCreateMemberCommand(),
	)
	return root
}

func newServeCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return entrypoint.Run(config.NewConfig(), version)
		},
	}
}
