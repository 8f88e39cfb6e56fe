package iostore

import (
	"context"
	"fmt"

	"github.com/huangsam/pmoinsight/schema"
)

// GetStatus returns status information about the store.
func (s *SQLStore) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:    string(s.backend),
		Connected:  s.db != nil,
		TableSizes: make(map[string]int64),
	}
	if s.db == nil {
		return status, nil
	}

	version, err := s.schemaVersion(ctx)
	if err != nil {
		return status, err
	}
	status.SchemaVersion = version

	// --- 1. Generation runs ---
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+generationRunsTable)
	if err := row.Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}
	if status.TotalRuns > 0 {
		var lastStarted, oldestStarted int64
		row = s.db.QueryRowContext(ctx, "SELECT id, started_at FROM "+generationRunsTable+" ORDER BY id DESC LIMIT 1")
		if err := row.Scan(&status.LastRunID, &lastStarted); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		status.LastRunTime = fromNanos(lastStarted)

		row = s.db.QueryRowContext(ctx, "SELECT started_at FROM "+generationRunsTable+" ORDER BY id ASC LIMIT 1")
		if err := row.Scan(&oldestStarted); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		status.OldestRunTime = fromNanos(oldestStarted)
	}

	// --- 2. Insights and rules ---
	row = s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM "+insightsTable+" WHERE is_resolved = ?"), false)
	if err := row.Scan(&status.OpenInsights); err != nil {
		return status, fmt.Errorf("failed to count open insights: %w", err)
	}
	row = s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM "+rulesTable+" WHERE is_active = ?"), true)
	if err := row.Scan(&status.ActiveRules); err != nil {
		return status, fmt.Errorf("failed to count active rules: %w", err)
	}

	// --- 3. Table sizes ---
	for _, table := range allTables {
		var count int64
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.SnapshotLoaded = status.TableSizes[snapshotMetaTable] > 0

	return status, nil
}

// PrintStoreStatus prints store status information.
func PrintStoreStatus(status schema.StoreStatus) {
	fmt.Printf("Backend: %s\n", status.Backend)
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	fmt.Printf("Schema Version: %d\n", status.SchemaVersion)
	fmt.Printf("Snapshot Loaded: %t\n", status.SnapshotLoaded)
	fmt.Printf("Active Rules: %d\n", status.ActiveRules)
	fmt.Printf("Open Insights: %d\n", status.OpenInsights)
	fmt.Printf("Total Runs: %d\n", status.TotalRuns)
	if status.TotalRuns > 0 {
		fmt.Printf("Last Run ID: %d\n", status.LastRunID)
		fmt.Printf("Last Run: %s\n", status.LastRunTime.Format("2006-01-02 15:04:05"))
		fmt.Printf("Oldest Run: %s\n", status.OldestRunTime.Format("2006-01-02 15:04:05"))
	}
	fmt.Println("Table Sizes:")
	for _, table := range allTables {
		fmt.Printf("  %s: %d rows\n", table, status.TableSizes[table])
	}
}
