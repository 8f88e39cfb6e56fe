package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/huangsam/pmoinsight/core"
	"github.com/huangsam/pmoinsight/internal/iostore"
)

// dbCmd focused on database management.
//
// Note: migrate and clear use configSetup instead of sharedSetup so they do
// not open the store, which would migrate it to the latest version first.
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the pmoinsight database",
	Long: `Manage the database holding rules, insights, generation runs and the snapshot.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (in-memory)

Subcommands:
  migrate - Apply or roll back schema migrations
  status  - Show schema version, row counts and the latest run
  clear   - Remove all stored data
  runs    - List recent generation runs

Examples:
  # Check database status
  pmoinsight db status

  # Use PostgreSQL (set connection string via env variable)
  PMOINSIGHT_BACKEND=postgresql PMOINSIGHT_DB_CONNECT="host=localhost dbname=pmo" pmoinsight db migrate`,
}

var dbMigrateCmd = &cobra.Command{
	Use:     "migrate",
	Short:   "Migrate the database schema",
	PreRunE: configSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		target, _ := cmd.Flags().GetInt("target-version")
		return iostore.Migrate(cfg.Backend, cfg.DBConnect, target)
	},
}

var dbStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display database statistics and connection details",
	PreRunE: sharedSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		store := iostore.Manager.Store()
		if store == nil {
			return errors.New("store is not initialized")
		}
		status, err := store.GetStatus(rootCtx)
		if err != nil {
			return fmt.Errorf("failed to get database status: %w", err)
		}
		iostore.PrintStoreStatus(status)
		return nil
	},
}

var dbClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored data",
	Long: `Delete every rule, insight, run and snapshot row from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops all pmoinsight tables and the migration table`,
	PreRunE: configSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := iostore.ClearStore(cfg.Backend, cfg.DBConnect); err != nil {
			return err
		}
		fmt.Println("Database cleared successfully.")
		return nil
	},
}

var dbRunsCmd = &cobra.Command{
	Use:     "runs",
	Short:   "List recent generation runs",
	PreRunE: sharedSetup,
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit < 0 {
			return fmt.Errorf("limit must be >= 0 (received %d)", limit)
		}
		return core.ExecuteListRuns(rootCtx, cfg, svc, limit)
	},
}
