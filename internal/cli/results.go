package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"kids-activity-service/internal/infra/postgres"
)

// NewResultsCmd prints the recorded results of one activity, newest first.
func NewResultsCmd(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "results <activity-id>",
		Short: "Print recorded results of an activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			db := postgres.OpenBun(cfg.Postgres.URL)
			defer db.Close()

			results, err := postgres.NewResultStore(db).ResultsFor(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if limit > 0 && len(results) > limit {
				results = results[:limit]
			}
			return printYAML(cmd, results)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results to print (0 for all)")
	return cmd
}
