package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/huangsam/pmoinsight/core"
	"github.com/huangsam/pmoinsight/internal/contract"
	"github.com/huangsam/pmoinsight/internal/iostore"
	"github.com/huangsam/pmoinsight/schema"
)

// insightsCmd groups insight generation and lifecycle.
var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Generate, list, resolve and export insights",
	Long: `Work with the deduplicated insight list.

A generation pass evaluates every active rule against the current snapshot.
Each finding either refreshes the matching open insight or creates a new one.
Insights are never resolved automatically; use "insights resolve".

Examples:
  pmoinsight insights generate
  pmoinsight insights list --type budget_overrun --resolved no
  pmoinsight insights resolve 42
  pmoinsight insights export --output-file pmo`,
}

var insightsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List insights, newest first",
	PreRunE: sharedSetup,
	RunE: func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()
		insightType, _ := flags.GetString("type")
		resolvedFlag, _ := flags.GetString("resolved")
		skip, _ := flags.GetInt("skip")
		limit, _ := flags.GetInt("limit")
		if skip < 0 || limit <= 0 {
			return fmt.Errorf("skip must be >= 0 and limit must be > 0")
		}

		filter := schema.InsightFilter{InsightType: insightType, Offset: skip, Limit: limit}
		if resolvedFlag != "" {
			resolved, err := contract.ParseBoolString(resolvedFlag)
			if err != nil {
				return fmt.Errorf("invalid --resolved value: %w", err)
			}
			filter.Resolved = &resolved
		}
		return core.ExecuteListInsights(rootCtx, cfg, svc, filter)
	},
}

var insightsGenerateCmd = &cobra.Command{
	Use:     "generate",
	Short:   "Run one generation pass and show the open insights",
	PreRunE: sharedSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteGenerate(rootCtx, cfg, svc)
	},
}

var insightsResolveCmd = &cobra.Command{
	Use:     "resolve <id>",
	Short:   "Mark an insight as resolved",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetup,
	RunE: func(_ *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return core.ExecuteResolve(rootCtx, cfg, svc, id)
	},
}

var insightsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export insights and generation runs to Parquet files",
	Long: `Write <output-file>.insights.parquet and <output-file>.generation_runs.parquet
for analysis in DuckDB, Pandas or any other Parquet reader.`,
	PreRunE: sharedSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		return iostore.ExecuteInsightsExport(rootCtx, cfg.OutputFile)
	},
}
