// Package iostore persists snapshots, rules, insights and generation runs.
package iostore

import (
	"sync"

	"github.com/huangsam/pmoinsight/internal/contract"
)

// StoreManager hands out the stores backing the process. All four views are
// served by the same SQL store.
type StoreManager struct {
	sync.RWMutex // Protects the store pointer during initialization
	store        *SQLStore
}

var _ contract.StoreManager = &StoreManager{} // Compile-time check

// GetSnapshotStore returns the snapshot store.
func (mgr *StoreManager) GetSnapshotStore() contract.SnapshotStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.store
}

// GetRuleStore returns the rule store.
func (mgr *StoreManager) GetRuleStore() contract.RuleStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.store
}

// GetInsightStore returns the insight store.
func (mgr *StoreManager) GetInsightStore() contract.InsightStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.store
}

// GetRunStore returns the generation run store.
func (mgr *StoreManager) GetRunStore() contract.RunStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.store
}

// Store returns the concrete store for status and export commands.
func (mgr *StoreManager) Store() *SQLStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.store
}

// NewStoreManager wraps an open store. It is used by tests and by callers
// that manage the store lifecycle themselves.
func NewStoreManager(store *SQLStore) *StoreManager {
	return &StoreManager{store: store}
}
