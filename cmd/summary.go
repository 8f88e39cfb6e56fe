package cmd

import (
	"github.com/spf13/cobra"

	"github.com/huangsam/pmoinsight/core"
)

// summaryCmd prints the portfolio dashboard.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the dashboard summary",
	Long: `Show portfolio counts, the active sprint and open insights grouped by type.

Reads the stored snapshot and insights; it does not run generation.`,
	PreRunE: sharedSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteSummary(rootCtx, cfg, svc)
	},
}
