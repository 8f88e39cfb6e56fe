package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/pmoinsight/core"
	"github.com/huangsam/pmoinsight/internal/contract"
	"github.com/huangsam/pmoinsight/internal/iostore"
	"github.com/huangsam/pmoinsight/schema"
)

const snapshotJSON = `{
	"as_of": "2025-03-10T00:00:00Z",
	"projects": [{"id": 1, "code": "ITPR-100", "name": "Billing", "status": "Active"},
	             {"id": 2, "code": "ITPR-101", "name": "Data Lake", "status": "Closed"}],
	"teams": [{"id": 5, "name": "Payments"}],
	"epics": [{"id": 1, "formatted_id": "E1", "project_id": 1}],
	"features": [{"id": 1, "formatted_id": "F1", "epic_id": 1}],
	"user_stories": [{"id": 1, "formatted_id": "US1", "feature_id": 1, "team_id": 5, "plan_estimate": 6, "completed": true},
	                 {"id": 2, "formatted_id": "US2", "feature_id": 1, "plan_estimate": 4}],
	"timesheet_entries": [{"id": 1, "team_id": 5, "project_id": 1, "resource_name": "Ari", "week_start": "2025-03-03", "hours": 169}]
}`

const overrunRuleJSON = `{"name": "Budget overrun", "rule_type": "alert", "priority": 1,
	"parameters": {"metric": "budget_overrun_pct", "threshold": 20, "comparison": "gt", "severity": "warning"}}`

var testConfig = &contract.Config{Workers: 2, SnapshotTimeout: time.Second, HoursPerPoint: 13, HoursPerDay: 8, GinMode: gin.TestMode}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	store, err := iostore.NewStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	svc := core.NewService(testConfig, iostore.NewStoreManager(store), zerolog.Nop())
	return NewRouter(testConfig, zerolog.Nop(), svc)
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// seed loads the snapshot and the overrun rule.
func seed(t *testing.T, r http.Handler) schema.Rule {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/snapshot", snapshotJSON)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(t, r, http.MethodPost, "/api/rules/", overrunRuleJSON)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[schema.Rule](t, w)
}

func TestHealth(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}

func TestRulesCRUD(t *testing.T) {
	r := newTestRouter(t)
	created := seed(t, r)
	assert.Equal(t, "Budget overrun", created.Name)
	assert.Equal(t, schema.AlertParams{Metric: schema.BudgetOverrunPct, Threshold: 20, Comparison: schema.GreaterThan, Severity: schema.WarningSeverity}, created.Parameters)

	w := do(t, r, http.MethodGet, "/api/rules/?rule_type=alert", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]schema.Rule](t, w), 1)

	w = do(t, r, http.MethodPut, "/api/rules/1", `{"name": "Overrun (paused)", "rule_type": "alert", "is_active": false,
		"parameters": {"metric": "budget_overrun_pct", "threshold": 25, "comparison": "gt", "severity": "critical"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, decode[schema.Rule](t, w).IsActive)

	// Inactive rules are hidden by default.
	w = do(t, r, http.MethodGet, "/api/rules/", "")
	assert.Empty(t, decode[[]schema.Rule](t, w))
	w = do(t, r, http.MethodGet, "/api/rules/?active_only=false", "")
	assert.Len(t, decode[[]schema.Rule](t, w), 1)

	w = do(t, r, http.MethodGet, "/api/rules/1", "")
	assert.Equal(t, "Overrun (paused)", decode[schema.Rule](t, w).Name)

	w = do(t, r, http.MethodDelete, "/api/rules/1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, r, http.MethodDelete, "/api/rules/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, r, http.MethodGet, "/api/rules/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRules_ValidationErrors(t *testing.T) {
	r := newTestRouter(t)
	tests := []struct {
		name, method, path, body, field string
	}{
		{"negative factor", http.MethodPost, "/api/rules/",
			`{"name": "x", "rule_type": "conversion", "parameters": {"factor": -1, "from_unit": "story_points", "to_unit": "hours"}}`,
			"parameters.factor"},
		{"empty name", http.MethodPost, "/api/rules/", `{"name": "", "rule_type": "alert", "parameters": {}}`, "name"},
		{"malformed body", http.MethodPost, "/api/rules/", `{"name":`, "body"},
		{"bad id", http.MethodGet, "/api/rules/abc", "", "id"},
		{"unknown rule type filter", http.MethodGet, "/api/rules/?rule_type=magic", "", "rule_type"},
		{"bad active_only", http.MethodGet, "/api/rules/?active_only=maybe", "", "active_only"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, tt.method, tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			body := decode[map[string]string](t, w)
			assert.Equal(t, tt.field, body["field"])
			assert.NotEmpty(t, body["reason"])
			assert.NotEmpty(t, body["error"])
		})
	}

	w := do(t, r, http.MethodPut, "/api/rules/42", overrunRuleJSON)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInsightsLifecycle(t *testing.T) {
	r := newTestRouter(t)
	seed(t, r)

	w := do(t, r, http.MethodGet, "/api/insights/generate", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	listed := decode[[]schema.Insight](t, w)
	require.Len(t, listed, 1)
	assert.Equal(t, "Budget overrun on ITPR-100", listed[0].Title)

	w = do(t, r, http.MethodPost, "/api/insights/generate", "")
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[core.GenerateResult](t, w)
	assert.Equal(t, schema.RunSucceeded, res.Run.Status)
	require.Len(t, res.Insights, 1)
	assert.Equal(t, listed[0].ID, res.Insights[0].ID)

	w = do(t, r, http.MethodGet, "/api/dashboard/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[schema.DashboardSummary](t, w)
	assert.Equal(t, 2, summary.TotalProjects)
	assert.Equal(t, 1, summary.ActiveProjects)
	assert.Nil(t, summary.ActiveSprint)
	assert.Equal(t, map[string]int{schema.BudgetOverrunInsight: 1}, summary.InsightsCount)

	w = do(t, r, http.MethodGet, "/api/insights/", "")
	require.Len(t, decode[[]schema.Insight](t, w), 1)

	path := "/api/insights/" + jsonNumber(listed[0].ID) + "/resolve"
	w = do(t, r, http.MethodPatch, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[schema.Insight](t, w).IsResolved)
	w = do(t, r, http.MethodPatch, path, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, r, http.MethodPatch, "/api/insights/999/resolve", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/api/insights/", "")
	assert.Empty(t, decode[[]schema.Insight](t, w), "the default list shows open insights only")
	w = do(t, r, http.MethodGet, "/api/insights/?resolved=true", "")
	assert.Len(t, decode[[]schema.Insight](t, w), 1)
	w = do(t, r, http.MethodGet, "/api/insights/?resolved=false", "")
	assert.Empty(t, decode[[]schema.Insight](t, w))
	w = do(t, r, http.MethodGet, "/api/insights/?insight_type=under_utilization", "")
	assert.Empty(t, decode[[]schema.Insight](t, w))
	w = do(t, r, http.MethodGet, "/api/insights/?resolved=perhaps", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, r, http.MethodGet, "/api/insights/?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestProjects(t *testing.T) {
	r := newTestRouter(t)
	seed(t, r)

	w := do(t, r, http.MethodGet, "/api/projects/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]schema.Project](t, w), 2)

	w = do(t, r, http.MethodGet, "/api/projects/?skip=1&limit=5", "")
	page := decode[[]schema.Project](t, w)
	require.Len(t, page, 1)
	assert.Equal(t, "ITPR-101", page[0].Code)

	w = do(t, r, http.MethodGet, "/api/projects/?skip=9", "")
	assert.Empty(t, decode[[]schema.Project](t, w))

	w = do(t, r, http.MethodGet, "/api/projects/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Billing", decode[schema.Project](t, w).Name)

	w = do(t, r, http.MethodGet, "/api/projects/1/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[schema.ProjectSummary](t, w)
	assert.InDelta(t, 60.0, summary.CompletionPct, 1e-9)
	assert.InDelta(t, 169.0, summary.LoggedHours, 1e-9)

	w = do(t, r, http.MethodGet, "/api/projects/3", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, r, http.MethodGet, "/api/projects/3/summary", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReplaceSnapshot_Invalid(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/snapshot", `{"projects": [{"id": 1}, {"id": 1}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, r, http.MethodPost, "/api/snapshot", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSnapshotUnavailableMapsTo503(t *testing.T) {
	snaps := &iostore.MockSnapshotStore{}
	snaps.On("LoadSnapshot", mock.Anything).Return(nil, errors.New("provider down"))
	runs := &iostore.MockRunStore{}
	runs.On("BeginRun", mock.Anything, mock.Anything).Return(int64(1), nil)
	runs.On("EndRun", mock.Anything, mock.Anything).Return(nil)
	mgr := &iostore.MockStoreManager{}
	mgr.On("GetSnapshotStore").Return(snaps)
	mgr.On("GetRunStore").Return(runs)

	svc := core.NewService(testConfig, mgr, zerolog.Nop())
	r := NewRouter(testConfig, zerolog.Nop(), svc)

	for _, req := range [][2]string{
		{http.MethodGet, "/api/dashboard/summary"},
		{http.MethodPost, "/api/insights/generate"},
		{http.MethodGet, "/api/insights/generate"},
		{http.MethodGet, "/api/projects/"},
	} {
		w := do(t, r, req[0], req[1], "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, req[1])
	}
}

func TestInternalErrorsAreHidden(t *testing.T) {
	insights := &iostore.MockInsightStore{}
	insights.On("ListInsights", mock.Anything, mock.Anything).Return(nil, errors.New("disk on fire"))
	mgr := &iostore.MockStoreManager{}
	mgr.On("GetInsightStore").Return(insights)

	r := NewRouter(testConfig, zerolog.Nop(), core.NewService(testConfig, mgr, zerolog.Nop()))
	w := do(t, r, http.MethodGet, "/api/insights/", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk on fire")
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", newTestRouter(t), zerolog.Nop()) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
