// Package contract provides interfaces and shared utilities for pmoinsight's internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/pmoinsight/schema"
)

// SnapshotProvider supplies the point-in-time data the engines evaluate.
// Callers must treat the returned snapshot as read-only.
type SnapshotProvider interface {
	LoadSnapshot(ctx context.Context) (*schema.Snapshot, error)
}

// SnapshotWriter replaces the stored snapshot. It is the write side used by
// the upload pipeline and the snapshot load command.
type SnapshotWriter interface {
	ReplaceSnapshot(ctx context.Context, snap *schema.Snapshot) error
}

// SnapshotStore combines both sides of snapshot storage.
type SnapshotStore interface {
	SnapshotProvider
	SnapshotWriter
}

// RuleStore persists business rules.
type RuleStore interface {
	// ListRules returns rules ordered by priority then id. An empty ruleType
	// matches every type.
	ListRules(ctx context.Context, ruleType schema.RuleType, activeOnly bool) ([]schema.Rule, error)

	// GetRule returns schema.ErrNotFound for unknown ids.
	GetRule(ctx context.Context, id int64) (schema.Rule, error)

	CreateRule(ctx context.Context, draft schema.RuleDraft) (schema.Rule, error)
	UpdateRule(ctx context.Context, id int64, draft schema.RuleDraft) (schema.Rule, error)
	DeleteRule(ctx context.Context, id int64) error
}

// InsightStore persists insights and enforces at most one unresolved insight
// per dedup key.
type InsightStore interface {
	ListInsights(ctx context.Context, filter schema.InsightFilter) ([]schema.Insight, error)

	// Reconcile upserts findings in a single transaction: matching unresolved
	// insights are refreshed, the rest are created. Insights absent from
	// findings are left untouched.
	Reconcile(ctx context.Context, findings []schema.Finding, now time.Time) (schema.ReconcileResult, error)

	// ResolveInsight marks an insight resolved. Resolving twice is a no-op.
	ResolveInsight(ctx context.Context, id int64, now time.Time) (schema.Insight, error)

	// CountUnresolved returns unresolved insight counts keyed by insight type.
	CountUnresolved(ctx context.Context) (map[string]int, error)
}

// RunStore tracks generation passes for audit.
type RunStore interface {
	// BeginRun records a pass that has started and returns its id.
	BeginRun(ctx context.Context, run schema.GenerationRun) (int64, error)

	// EndRun stores the outcome of a pass started by BeginRun.
	EndRun(ctx context.Context, run schema.GenerationRun) error

	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]schema.GenerationRun, error)
}

// StoreManager hands out the stores backing a process.
// This allows the persistence layer to be mocked for testing.
type StoreManager interface {
	GetSnapshotStore() SnapshotStore
	GetRuleStore() RuleStore
	GetInsightStore() InsightStore
	GetRunStore() RunStore
}
