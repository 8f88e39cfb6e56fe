package iostore

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/huangsam/pmoinsight/internal/contract"
	"github.com/huangsam/pmoinsight/schema"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetSnapshotStore implements the StoreManager interface.
func (m *MockStoreManager) GetSnapshotStore() contract.SnapshotStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.SnapshotStore)
	return store
}

// GetRuleStore implements the StoreManager interface.
func (m *MockStoreManager) GetRuleStore() contract.RuleStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.RuleStore)
	return store
}

// GetInsightStore implements the StoreManager interface.
func (m *MockStoreManager) GetInsightStore() contract.InsightStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.InsightStore)
	return store
}

// GetRunStore implements the StoreManager interface.
func (m *MockStoreManager) GetRunStore() contract.RunStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.RunStore)
	return store
}

// MockSnapshotStore is a mock implementation of SnapshotStore for testing.
type MockSnapshotStore struct {
	mock.Mock
}

var _ contract.SnapshotStore = &MockSnapshotStore{} // Compile-time check

// LoadSnapshot implements the SnapshotProvider interface.
func (m *MockSnapshotStore) LoadSnapshot(ctx context.Context) (*schema.Snapshot, error) {
	args := m.Called(ctx)
	snap, _ := args.Get(0).(*schema.Snapshot)
	return snap, args.Error(1)
}

// ReplaceSnapshot implements the SnapshotWriter interface.
func (m *MockSnapshotStore) ReplaceSnapshot(ctx context.Context, snap *schema.Snapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

// MockRuleStore is a mock implementation of RuleStore for testing.
type MockRuleStore struct {
	mock.Mock
}

var _ contract.RuleStore = &MockRuleStore{} // Compile-time check

// ListRules implements the RuleStore interface.
func (m *MockRuleStore) ListRules(ctx context.Context, ruleType schema.RuleType, activeOnly bool) ([]schema.Rule, error) {
	args := m.Called(ctx, ruleType, activeOnly)
	rules, _ := args.Get(0).([]schema.Rule)
	return rules, args.Error(1)
}

// GetRule implements the RuleStore interface.
func (m *MockRuleStore) GetRule(ctx context.Context, id int64) (schema.Rule, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(schema.Rule), args.Error(1)
}

// CreateRule implements the RuleStore interface.
func (m *MockRuleStore) CreateRule(ctx context.Context, draft schema.RuleDraft) (schema.Rule, error) {
	args := m.Called(ctx, draft)
	return args.Get(0).(schema.Rule), args.Error(1)
}

// UpdateRule implements the RuleStore interface.
func (m *MockRuleStore) UpdateRule(ctx context.Context, id int64, draft schema.RuleDraft) (schema.Rule, error) {
	args := m.Called(ctx, id, draft)
	return args.Get(0).(schema.Rule), args.Error(1)
}

// DeleteRule implements the RuleStore interface.
func (m *MockRuleStore) DeleteRule(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockInsightStore is a mock implementation of InsightStore for testing.
type MockInsightStore struct {
	mock.Mock
}

var _ contract.InsightStore = &MockInsightStore{} // Compile-time check

// ListInsights implements the InsightStore interface.
func (m *MockInsightStore) ListInsights(ctx context.Context, filter schema.InsightFilter) ([]schema.Insight, error) {
	args := m.Called(ctx, filter)
	insights, _ := args.Get(0).([]schema.Insight)
	return insights, args.Error(1)
}

// Reconcile implements the InsightStore interface.
func (m *MockInsightStore) Reconcile(ctx context.Context, findings []schema.Finding, now time.Time) (schema.ReconcileResult, error) {
	args := m.Called(ctx, findings, now)
	return args.Get(0).(schema.ReconcileResult), args.Error(1)
}

// ResolveInsight implements the InsightStore interface.
func (m *MockInsightStore) ResolveInsight(ctx context.Context, id int64, now time.Time) (schema.Insight, error) {
	args := m.Called(ctx, id, now)
	return args.Get(0).(schema.Insight), args.Error(1)
}

// CountUnresolved implements the InsightStore interface.
func (m *MockInsightStore) CountUnresolved(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	counts, _ := args.Get(0).(map[string]int)
	return counts, args.Error(1)
}

// MockRunStore is a mock implementation of RunStore for testing.
type MockRunStore struct {
	mock.Mock
}

var _ contract.RunStore = &MockRunStore{} // Compile-time check

// BeginRun implements the RunStore interface.
func (m *MockRunStore) BeginRun(ctx context.Context, run schema.GenerationRun) (int64, error) {
	args := m.Called(ctx, run)
	return args.Get(0).(int64), args.Error(1)
}

// EndRun implements the RunStore interface.
func (m *MockRunStore) EndRun(ctx context.Context, run schema.GenerationRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// ListRuns implements the RunStore interface.
func (m *MockRunStore) ListRuns(ctx context.Context, limit int) ([]schema.GenerationRun, error) {
	args := m.Called(ctx, limit)
	runs, _ := args.Get(0).([]schema.GenerationRun)
	return runs, args.Error(1)
}
