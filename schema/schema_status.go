package schema

import "time"

// StoreStatus represents the status of the persistence layer.
type StoreStatus struct {
	Backend        string           `json:"backend"`
	Connected      bool             `json:"connected"`
	SchemaVersion  uint             `json:"schema_version"`
	TotalRuns      int              `json:"total_runs"`
	LastRunID      int64            `json:"last_run_id"`
	LastRunTime    time.Time        `json:"last_run_time"`
	OldestRunTime  time.Time        `json:"oldest_run_time"`
	OpenInsights   int              `json:"open_insights"`
	ActiveRules    int              `json:"active_rules"`
	TableSizes     map[string]int64 `json:"table_sizes"`
	SnapshotLoaded bool             `json:"snapshot_loaded"`
}
