package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/punchamoorthee/payledger/internal/config"
	"github.com/punchamoorthee/payledger/internal/store/postgres"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the Postgres schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(postgres.Up), string(postgres.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := postgres.Up
			if len(args) > 0 {
				dir = postgres.Direction(args[0])
			}

			cfg, logger, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cfg.StoreDriver != config.DriverPostgres {
				return fmt.Errorf("migrate requires STORE_DRIVER=%s", config.DriverPostgres)
			}
			return postgres.Migrate(cfg.DBSource, dir, logger)
		},
	}
}
