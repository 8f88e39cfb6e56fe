package iostore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/pmoinsight/schema"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSnapshot() *schema.Snapshot {
	return &schema.Snapshot{
		AsOf: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Projects: []schema.Project{
			{ID: 4, Code: "ITPR-100", Name: "Billing Revamp", Owner: "Dana", Status: schema.ProjectActive,
				StartDate: schema.NewDate(2025, time.January, 6)},
		},
		Sprints: []schema.Sprint{
			{ID: 1, Name: "Sprint 1", TeamID: 2, StartDate: schema.NewDate(2025, time.January, 6),
				EndDate: schema.NewDate(2025, time.January, 17)},
			{ID: 2, Name: "Sprint 2", Release: "R1", TeamID: 2, StartDate: schema.NewDate(2025, time.January, 20),
				EndDate: schema.NewDate(2025, time.January, 31), IsActive: true},
		},
		Teams:       []schema.Team{{ID: 2, Name: "Payments"}},
		TeamMembers: []schema.TeamMember{{ID: 1, TeamID: 2, Name: "Ari", Allocation: 0.5, IsActive: true}},
		Epics:       []schema.Epic{{ID: 1, FormattedID: "E1", Name: "Invoices", ProjectID: 4}},
		Features:    []schema.Feature{{ID: 1, FormattedID: "F1", Name: "PDF", EpicID: 1}},
		UserStories: []schema.UserStory{
			{ID: 1, FormattedID: "US1", Name: "Render", FeatureID: 1, TeamID: 2, SprintID: 2, PlanEstimate: 80, Completed: true},
		},
		TimesheetEntries: []schema.TimesheetEntry{
			{ID: 1, TeamID: 2, ProjectID: 4, ResourceName: "Ari", WeekStart: schema.NewDate(2025, time.January, 20), Hours: 1560},
		},
	}
}

func alertDraft(name string, priority int) schema.RuleDraft {
	return schema.RuleDraft{
		Name:       name,
		RuleType:   schema.AlertRule,
		Parameters: json.RawMessage(`{"metric": "budget_overrun_pct", "threshold": 20, "comparison": "gt", "severity": "warning"}`),
		Priority:   priority,
	}
}

func overrunFinding(title string, value float64) schema.Finding {
	return schema.Finding{
		InsightType: schema.BudgetOverrunInsight,
		Subject:     schema.Subject{Kind: schema.ProjectSubject, ID: 4, Key: "ITPR-100"},
		Title:       title,
		Description: "over budget",
		Severity:    schema.WarningSeverity,
		RuleID:      1,
		Value:       schema.FloatPtr(value),
	}
}

func TestNewStore_UnsupportedBackend(t *testing.T) {
	_, err := NewStore(schema.DatabaseBackend("oracle"), "")
	assert.Error(t, err)
}

func TestNewStore_NoneBackendIsEphemeral(t *testing.T) {
	store, err := NewStore(schema.NoneBackend, "ignored")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	_, err = store.CreateRule(ctx, alertDraft("Overrun", 1))
	require.NoError(t, err)
	rules, err := store.ListRules(ctx, "", false)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestRuleStore_CRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateRule(ctx, alertDraft("  Overrun  ", 1))
	require.NoError(t, err)
	assert.Greater(t, created.ID, int64(0))
	assert.Equal(t, "Overrun", created.Name)
	assert.True(t, created.IsActive)
	assert.Equal(t, schema.AlertParams{
		Metric: schema.BudgetOverrunPct, Threshold: 20, Comparison: schema.GreaterThan, Severity: schema.WarningSeverity,
	}, created.Parameters)

	got, err := store.GetRule(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Parameters, got.Parameters)

	update := alertDraft("Overrun strict", 2)
	update.IsActive = schema.BoolPtr(false)
	updated, err := store.UpdateRule(ctx, created.ID, update)
	require.NoError(t, err)
	assert.Equal(t, "Overrun strict", updated.Name)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 2, updated.Priority)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

	require.NoError(t, store.DeleteRule(ctx, created.ID))
	_, err = store.GetRule(ctx, created.ID)
	assert.ErrorIs(t, err, schema.ErrNotFound)
}

func TestRuleStore_Errors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateRule(ctx, schema.RuleDraft{
		Name:       "Bad factor",
		RuleType:   schema.ConversionRule,
		Parameters: json.RawMessage(`{"factor": -1, "from_unit": "story_points", "to_unit": "hours"}`),
	})
	var ve *schema.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "parameters.factor", ve.Field)

	rules, err := store.ListRules(ctx, "", false)
	require.NoError(t, err)
	assert.Empty(t, rules, "invalid drafts must not be stored")

	_, err = store.UpdateRule(ctx, 999, alertDraft("Missing", 1))
	assert.ErrorIs(t, err, schema.ErrNotFound)
	assert.ErrorIs(t, store.DeleteRule(ctx, 999), schema.ErrNotFound)
	_, err = store.GetRule(ctx, 999)
	assert.ErrorIs(t, err, schema.ErrNotFound)
}

func TestRuleStore_ListOrderAndFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateRule(ctx, alertDraft("Late tier", 5))
	require.NoError(t, err)
	inactive := alertDraft("Disabled", 1)
	inactive.IsActive = schema.BoolPtr(false)
	_, err = store.CreateRule(ctx, inactive)
	require.NoError(t, err)
	_, err = store.CreateRule(ctx, schema.RuleDraft{
		Name:       "Points to hours",
		RuleType:   schema.ConversionRule,
		Parameters: json.RawMessage(`{"factor": 13, "from_unit": "story_points", "to_unit": "hours"}`),
		Priority:   1,
	})
	require.NoError(t, err)

	all, err := store.ListRules(ctx, "", false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Disabled", "Points to hours", "Late tier"}, []string{all[0].Name, all[1].Name, all[2].Name})

	active, err := store.ListRules(ctx, "", true)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	alerts, err := store.ListRules(ctx, schema.AlertRule, true)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Late tier", alerts[0].Name)
}

// insertRawRule writes a rule row directly, bypassing draft validation.
func insertRawRule(t *testing.T, store *SQLStore, name string, ruleType schema.RuleType, params string) {
	t.Helper()
	now := toNanos(time.Now().UTC())
	query := `INSERT INTO ` + rulesTable + ` (name, description, rule_type, parameters, is_active, priority, created_at, updated_at)
		VALUES (?, '', ?, ?, ?, ?, ?, ?)`
	_, err := store.db.ExecContext(context.Background(), store.rebind(query), name, string(ruleType), params, true, 3, now, now)
	require.NoError(t, err)
}

func TestRuleStore_ReadsLegacyRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	valid, err := store.CreateRule(ctx, alertDraft("Overrun", 1))
	require.NoError(t, err)
	insertRawRule(t, store, "Defects", schema.AlertRule,
		`{"metric": "defect_density", "threshold": 2, "comparison": "gt", "severity": "warning"}`)
	insertRawRule(t, store, "Garbled", schema.AlertRule, `{"metric": 7}`)

	rules, err := store.ListRules(ctx, "", true)
	require.NoError(t, err)
	require.Len(t, rules, 2, "the undecodable row is skipped, the rest are listed")
	assert.Equal(t, valid.ID, rules[0].ID)
	assert.Equal(t, "Defects", rules[1].Name)
	assert.Equal(t, schema.Metric("defect_density"), rules[1].Parameters.(schema.AlertParams).Metric)

	got, err := store.GetRule(ctx, rules[1].ID)
	require.NoError(t, err)
	assert.Equal(t, rules[1].Parameters, got.Parameters)

	garbledID := rules[1].ID + 1
	_, err = store.GetRule(ctx, garbledID)
	assert.ErrorIs(t, err, errUndecodableRule)

	repaired, err := store.UpdateRule(ctx, garbledID, alertDraft("Garbled", 4))
	require.NoError(t, err)
	assert.Equal(t, schema.BudgetOverrunPct, repaired.Parameters.(schema.AlertParams).Metric)
}

func TestInsightStore_ReconcileCreatesThenUpdates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	first := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	res, err := store.Reconcile(ctx, []schema.Finding{overrunFinding("Overrun", 50)}, first)
	require.NoError(t, err)
	assert.Equal(t, schema.ReconcileResult{Created: 1}, res)

	open, err := store.ListInsights(ctx, schema.InsightFilter{Resolved: schema.BoolPtr(false)})
	require.NoError(t, err)
	require.Len(t, open, 1)
	original := open[0]

	second := first.Add(time.Hour)
	res, err = store.Reconcile(ctx, []schema.Finding{overrunFinding("Overrun worse", 60)}, second)
	require.NoError(t, err)
	assert.Equal(t, schema.ReconcileResult{Updated: 1}, res)

	open, err = store.ListInsights(ctx, schema.InsightFilter{Resolved: schema.BoolPtr(false)})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, original.ID, open[0].ID)
	assert.True(t, original.CreatedAt.Equal(open[0].CreatedAt))
	assert.True(t, second.Equal(open[0].LastSeenAt))
	assert.Equal(t, "Overrun worse", open[0].Title)
	require.NotNil(t, open[0].Value)
	assert.Equal(t, 60.0, *open[0].Value)
	assert.Equal(t, "ITPR-100", open[0].Subject.Key)
}

func TestInsightStore_ReconcileLeavesUnseenInsights(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	other := overrunFinding("Team under", 40)
	other.InsightType = schema.UnderUtilizationInsight
	other.Subject = schema.Subject{Kind: schema.TeamSubject, ID: 2}
	_, err := store.Reconcile(ctx, []schema.Finding{overrunFinding("Overrun", 50), other}, now)
	require.NoError(t, err)

	_, err = store.Reconcile(ctx, []schema.Finding{overrunFinding("Overrun", 50)}, now.Add(time.Minute))
	require.NoError(t, err)

	open, err := store.ListInsights(ctx, schema.InsightFilter{Resolved: schema.BoolPtr(false)})
	require.NoError(t, err)
	assert.Len(t, open, 2, "insights missing from a pass are not auto-resolved")

	counts, err := store.CountUnresolved(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{schema.BudgetOverrunInsight: 1, schema.UnderUtilizationInsight: 1}, counts)
}

func TestInsightStore_ResolveIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	_, err := store.Reconcile(ctx, []schema.Finding{overrunFinding("Overrun", 50)}, now)
	require.NoError(t, err)
	open, err := store.ListInsights(ctx, schema.InsightFilter{})
	require.NoError(t, err)
	require.Len(t, open, 1)

	resolved, err := store.ResolveInsight(ctx, open[0].ID, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, resolved.IsResolved)
	require.NotNil(t, resolved.ResolvedAt)

	again, err := store.ResolveInsight(ctx, open[0].ID, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, again.IsResolved)
	assert.True(t, resolved.ResolvedAt.Equal(*again.ResolvedAt), "second resolve must not move resolved_at")

	_, err = store.ResolveInsight(ctx, 12345, now)
	assert.ErrorIs(t, err, schema.ErrNotFound)
}

func TestInsightStore_ReappearingConditionCreatesNewInsight(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	_, err := store.Reconcile(ctx, []schema.Finding{overrunFinding("Overrun", 50)}, now)
	require.NoError(t, err)
	first, err := store.ListInsights(ctx, schema.InsightFilter{})
	require.NoError(t, err)
	require.Len(t, first, 1)
	_, err = store.ResolveInsight(ctx, first[0].ID, now)
	require.NoError(t, err)

	res, err := store.Reconcile(ctx, []schema.Finding{overrunFinding("Overrun", 55)}, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	all, err := store.ListInsights(ctx, schema.InsightFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.NotEqual(t, all[0].ID, all[1].ID)

	resolved, err := store.ListInsights(ctx, schema.InsightFilter{Resolved: schema.BoolPtr(true)})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, first[0].ID, resolved[0].ID, "resolved insight stays resolved")
}

func TestInsightStore_ListFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	for i := range 5 {
		f := overrunFinding("Overrun", 50)
		f.Subject = schema.Subject{Kind: schema.ProjectSubject, ID: int64(i + 1)}
		_, err := store.Reconcile(ctx, []schema.Finding{f}, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	page, err := store.ListInsights(ctx, schema.InsightFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(4), page[0].Subject.ID, "newest first")
	assert.Equal(t, int64(3), page[1].Subject.ID)

	tail, err := store.ListInsights(ctx, schema.InsightFilter{Offset: 4})
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, int64(1), tail[0].Subject.ID)

	none, err := store.ListInsights(ctx, schema.InsightFilter{InsightType: schema.VelocityDropInsight})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRunStore_Lifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	id, err := store.BeginRun(ctx, schema.GenerationRun{RunUUID: "run-1", StartedAt: start, Status: schema.RunRunning})
	require.NoError(t, err)

	finished := start.Add(250 * time.Millisecond)
	require.NoError(t, store.EndRun(ctx, schema.GenerationRun{
		ID: id, FinishedAt: &finished, DurationMs: 250, RulesEvaluated: 3, Findings: 2, Created: 1, Updated: 1,
		Status: schema.RunSucceeded,
	}))
	_, err = store.BeginRun(ctx, schema.GenerationRun{RunUUID: "run-2", StartedAt: finished, Status: schema.RunRunning})
	require.NoError(t, err)

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].RunUUID)
	assert.Nil(t, runs[0].FinishedAt)
	assert.Equal(t, schema.RunSucceeded, runs[1].Status)
	assert.Equal(t, 3, runs[1].RulesEvaluated)
	require.NotNil(t, runs[1].FinishedAt)
	assert.True(t, finished.Equal(*runs[1].FinishedAt))

	limited, err := store.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	empty, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Projects)

	snap := testSnapshot()
	require.NoError(t, store.ReplaceSnapshot(ctx, snap))

	loaded, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snap.AsOf.Equal(loaded.AsOf))
	assert.Equal(t, snap.Projects, loaded.Projects)
	assert.Equal(t, snap.Sprints, loaded.Sprints)
	assert.Equal(t, snap.Teams, loaded.Teams)
	assert.Equal(t, snap.TeamMembers, loaded.TeamMembers)
	assert.Equal(t, snap.Epics, loaded.Epics)
	assert.Equal(t, snap.Features, loaded.Features)
	assert.Equal(t, snap.UserStories, loaded.UserStories)
	assert.Equal(t, snap.TimesheetEntries, loaded.TimesheetEntries)

	smaller := testSnapshot()
	smaller.TimesheetEntries = nil
	require.NoError(t, store.ReplaceSnapshot(ctx, smaller))
	loaded, err = store.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded.TimesheetEntries, "replace drops previous rows")
}

func TestSnapshotStore_RejectsInvalidSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.ReplaceSnapshot(ctx, testSnapshot()))

	bad := testSnapshot()
	bad.Sprints[0].IsActive = true
	err := store.ReplaceSnapshot(ctx, bad)
	assert.True(t, schema.IsValidationError(err))

	loaded, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Sprints, 2, "previous snapshot survives a rejected replace")
}

func TestSnapshotStore_CanceledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.LoadSnapshot(ctx)
	assert.Error(t, err)
}

func TestGetStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	status, err := store.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Backend)
	assert.True(t, status.Connected)
	assert.Equal(t, uint(1), status.SchemaVersion)
	assert.False(t, status.SnapshotLoaded)

	require.NoError(t, store.ReplaceSnapshot(ctx, testSnapshot()))
	_, err = store.CreateRule(ctx, alertDraft("Overrun", 1))
	require.NoError(t, err)
	_, err = store.Reconcile(ctx, []schema.Finding{overrunFinding("Overrun", 50)}, time.Now())
	require.NoError(t, err)
	_, err = store.BeginRun(ctx, schema.GenerationRun{RunUUID: "r", StartedAt: time.Now(), Status: schema.RunRunning})
	require.NoError(t, err)

	status, err = store.GetStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.SnapshotLoaded)
	assert.Equal(t, 1, status.ActiveRules)
	assert.Equal(t, 1, status.OpenInsights)
	assert.Equal(t, 1, status.TotalRuns)
	assert.Equal(t, int64(2), status.TableSizes[sprintsTable])
}

func TestMigrateAndClear_SQLiteFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pmo.db")

	require.NoError(t, Migrate(schema.SQLiteBackend, dbPath, -1))
	require.NoError(t, Migrate(schema.SQLiteBackend, dbPath, -1), "second migrate is a no-op")
	require.NoError(t, Migrate(schema.SQLiteBackend, dbPath, 0))

	store, err := NewStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	version, err := store.schemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	require.NoError(t, store.Close())

	require.NoError(t, ClearStore(schema.SQLiteBackend, dbPath))
	_, err = os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, Migrate(schema.NoneBackend, "", -1))
	assert.NoError(t, ClearStore(schema.NoneBackend, ""))
	assert.Error(t, ClearStore(schema.DatabaseBackend("oracle"), ""))
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{backend: schema.PostgreSQLBackend}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))
	lite := &SQLStore{backend: schema.SQLiteBackend}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestNormalizeMySQLDSN(t *testing.T) {
	dsn, err := normalizeMySQLDSN("user:pass@tcp(localhost:3306)/pmo")
	require.NoError(t, err)
	assert.Contains(t, dsn, "multiStatements=true")
	assert.Contains(t, dsn, "clientFoundRows=true")

	_, err = normalizeMySQLDSN("not a dsn")
	assert.Error(t, err)
}
