package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/huangsam/pmoinsight/internal/api"
	"github.com/huangsam/pmoinsight/internal/jobs"
)

// serveCmd runs the REST API and, when a schedule is configured, the generation cron.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Serve the dashboard, rules, insights and projects API over HTTP.

When a schedule is set, generation also runs on that cron spec in the
configured time zone. Scheduled failures are logged and never stop the server.

Examples:
  # Serve on the default address
  pmoinsight serve

  # Generate insights every weekday at 07:00 Berlin time
  pmoinsight serve --schedule "0 7 * * 1-5" --timezone Europe/Berlin`,
	PreRunE: sharedSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.Schedule != "" {
			scheduler, err := jobs.NewCron(cfg, appLog, svc)
			if err != nil {
				return err
			}
			scheduler.Start()
			defer scheduler.Stop()
			appLog.Info().Str("schedule", cfg.Schedule).Str("timezone", cfg.Location.String()).Msg("scheduled generation enabled")
		}

		router := api.NewRouter(cfg, appLog, svc)
		return api.Serve(ctx, cfg.HTTPAddr, router, appLog)
	},
}
