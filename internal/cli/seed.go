package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"kids-activity-service/internal/content"
	"kids-activity-service/internal/infra/postgres"
)

// NewSeedCmd writes the built-in activities and catalogs into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the built-in activities and catalogs into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			bundle, err := content.Load()
			if err != nil {
				return err
			}
			db := postgres.OpenBun(cfg.Postgres.URL)
			defer db.Close()

			if !skipMigrate {
				if err := migrateDB(cmd.Context(), db, log); err != nil {
					return err
				}
			}
			stats, err := postgres.NewSeeder(db).Seed(cmd.Context(), bundle)
			if err != nil {
				return err
			}
			log.Info("content seeded", "activities", stats.Activities, "catalog_entries", stats.CatalogEntries)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply migrations first")
	return cmd
}
