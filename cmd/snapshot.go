package cmd

import (
	"github.com/spf13/cobra"

	"github.com/huangsam/pmoinsight/core"
)

// snapshotCmd groups snapshot management.
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage the PMO data snapshot",
}

var snapshotLoadCmd = &cobra.Command{
	Use:   "load <file.yaml>",
	Short: "Replace the stored snapshot with a YAML file",
	Long: `Validate a YAML snapshot and atomically replace the stored one.

An invalid file leaves the stored snapshot untouched.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetup,
	RunE: func(_ *cobra.Command, args []string) error {
		return core.ExecuteLoadSnapshot(rootCtx, svc, args[0])
	},
}
