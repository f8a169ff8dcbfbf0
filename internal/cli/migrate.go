package cli

import (
	"github.com/spf13/cobra"

	"github.com/Clark-Hu/ai-tool-finder/internal/config"
	"github.com/Clark-Hu/ai-tool-finder/internal/logging"
	"github.com/Clark-Hu/ai-tool-finder/internal/store"
)

// NewMigrateCmd creates the 'migrate' command.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if err := store.Migrate(cfg.DBURL, logger); err != nil {
				return err
			}
			cmd.Println("Migrations applied.")
			return nil
		},
	}
}
