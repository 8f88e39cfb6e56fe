package cmd

import (
	"github.com/spf13/cobra"

	"github.com/huangsam/pmoinsight/core"
)

// projectsCmd groups project views over the current snapshot.
var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Browse projects in the current snapshot",
}

var projectsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List projects",
	PreRunE: sharedSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteListProjects(rootCtx, cfg, svc)
	},
}

var projectsSummaryCmd = &cobra.Command{
	Use:     "summary <id>",
	Short:   "Show one project's rollup",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetup,
	RunE: func(_ *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return core.ExecuteProjectSummary(rootCtx, cfg, svc, id)
	},
}
