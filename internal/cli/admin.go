package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"kids-activity-service/internal/config"
	"kids-activity-service/internal/schooladmin"
)

// NewAdminCmd groups read-only school administration commands.
func NewAdminCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "School administration API commands",
	}
	cmd.AddCommand(newAdminOverviewCmd(configPath))
	cmd.AddCommand(newAdminClassCmd(configPath))
	return cmd
}

func newAdminOverviewCmd(configPath *string) *cobra.Command {
	var filter schooladmin.ClassFilter
	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Print classes, teachers, students and class stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, done, err := adminClient(*configPath)
			if err != nil {
				return err
			}
			defer done()
			ov, err := client.Overview(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printYAML(cmd, ov)
		},
	}
	cmd.Flags().StringVar(&filter.Grade, "grade", "", "only classes of this grade")
	cmd.Flags().StringVar(&filter.Stream, "stream", "", "only classes of this stream")
	return cmd
}

func newAdminClassCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "class <id>",
		Short: "Print one class with its class teachers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, done, err := adminClient(*configPath)
			if err != nil {
				return err
			}
			defer done()
			class, err := client.GetClass(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printYAML(cmd, class)
		},
	}
}

func adminClient(configPath string) (*schooladmin.Client, func(), error) {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Admin.BaseURL == "" {
		return nil, nil, fmt.Errorf("admin base url not configured")
	}
	hc := &http.Client{Timeout: config.TTLDuration(cfg.Admin.Timeout, 10*time.Second)}
	client := schooladmin.NewClient(cfg.Admin.BaseURL, cfg.Admin.Token,
		schooladmin.WithHTTPClient(hc),
		schooladmin.WithLogger(log),
	)
	return client, log.Sync, nil
}

func printYAML(cmd *cobra.Command, v interface{}) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
