package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/miaoyq/usage-reporter/internal/config"
)

func main() {
	var (
		opts          Options
		intervalHours int
	)

	rootCmd := &cobra.Command{
		Use:   "usage-reporter",
		Short: "Background usage and health reporter",
		Long:  "Samples local service health and enabled pipes, and reports usage events to the analytics collector",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Config.DistinctID == "" {
				opts.Config.DistinctID = uuid.NewString()
			}
			opts.Config.Interval = config.IntervalFromHours(intervalHours)

			app, err := NewApp(opts)
			if err != nil {
				return err
			}
			return app.Run()
		},
		SilenceUsage: true,
	}

	opts.Config = config.DefaultConfig()
	flags := rootCmd.Flags()
	flags.StringVar(&opts.Config.APIKey, "api-key", os.Getenv("USAGE_REPORTER_API_KEY"), "collector API key")
	flags.StringVar(&opts.Config.DistinctID, "distinct-id", "", "user identity, generated when empty")
	flags.IntVar(&intervalHours, "interval-hours", 1, "hours between periodic reports")
	flags.StringVar(&opts.Config.LocalAPIBaseURL, "local-api", config.DefaultLocalAPIBaseURL, "local service base URL")
	flags.StringVar(&opts.Config.APIHost, "api-host", config.DefaultAPIHost, "collector base URL")
	flags.DurationVar(&opts.Config.Timeout, "timeout", 30*time.Second, "per-request timeout")
	flags.StringVarP(&opts.SettingsPath, "settings", "s", "", "settings file carrying analytics_enabled (YAML or JSON)")
	flags.BoolVar(&opts.Verbose, "verbose", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
