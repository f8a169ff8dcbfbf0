package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the toolsctl command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "toolsctl",
		Short: "Operator tooling for the AI tool catalogue",
		Long: `toolsctl seeds and inspects the tool catalogue, runs discovery queries
from the terminal and manages a device-local favourites list.

Database commands read the same environment as the server (DB_URL, LOG_LEVEL, ...).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(NewSeedCmd())
	root.AddCommand(NewCountCmd())
	root.AddCommand(NewSearchCmd())
	root.AddCommand(NewFavoritesCmd())
	root.AddCommand(NewMigrateCmd())

	return root
}
