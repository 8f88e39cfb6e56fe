package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/pmoinsight/core"
	"github.com/huangsam/pmoinsight/internal/contract"
	"github.com/huangsam/pmoinsight/internal/iostore"
	mcp_internal "github.com/huangsam/pmoinsight/internal/mcp"
	"github.com/huangsam/pmoinsight/schema"
)

var testConfig = &contract.Config{Workers: 1, SnapshotTimeout: time.Second, HoursPerPoint: 13, HoursPerDay: 8}

func newSeededServer(t *testing.T) *server.MCPServer {
	t.Helper()
	store, err := iostore.NewStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.ReplaceSnapshot(ctx, &schema.Snapshot{
		AsOf:             time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Projects:         []schema.Project{{ID: 1, Code: "ITPR-100", Name: "Billing", Status: schema.ProjectActive}},
		Epics:            []schema.Epic{{ID: 1, FormattedID: "E1", ProjectID: 1}},
		Features:         []schema.Feature{{ID: 1, FormattedID: "F1", EpicID: 1}},
		UserStories:      []schema.UserStory{{ID: 1, FormattedID: "US1", FeatureID: 1, PlanEstimate: 10}},
		TimesheetEntries: []schema.TimesheetEntry{{ID: 1, ProjectID: 1, ResourceName: "Ari", WeekStart: schema.NewDate(2025, time.March, 3), Hours: 169}},
	}))
	_, err = store.CreateRule(ctx, schema.RuleDraft{
		Name: "Budget overrun", RuleType: schema.AlertRule, Priority: 1,
		Parameters: json.RawMessage(`{"metric": "budget_overrun_pct", "threshold": 20, "comparison": "gt", "severity": "warning"}`),
	})
	require.NoError(t, err)

	svc := core.NewService(testConfig, iostore.NewStoreManager(store), zerolog.Nop())
	return mcp_internal.NewMCPServer(svc, zerolog.Nop())
}

func call(t *testing.T, s *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	require.NotNil(t, tool, "tool %s should exist", name)
	res, err := tool.Handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	return res
}

func text(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func TestMCPServer_Tools(t *testing.T) {
	s := newSeededServer(t)

	res := call(t, s, "generate_insights", nil)
	require.False(t, res.IsError, text(res))
	var generated core.GenerateResult
	require.NoError(t, json.Unmarshal([]byte(text(res)), &generated))
	require.Len(t, generated.Insights, 1)
	assert.Equal(t, "Budget overrun on ITPR-100", generated.Insights[0].Title)

	res = call(t, s, "get_dashboard_summary", nil)
	require.False(t, res.IsError)
	var summary schema.DashboardSummary
	require.NoError(t, json.Unmarshal([]byte(text(res)), &summary))
	assert.Equal(t, map[string]int{schema.BudgetOverrunInsight: 1}, summary.InsightsCount)

	res = call(t, s, "list_insights", map[string]any{"resolved": false, "insight_type": schema.BudgetOverrunInsight})
	require.False(t, res.IsError)
	var insights []schema.Insight
	require.NoError(t, json.Unmarshal([]byte(text(res)), &insights))
	assert.Len(t, insights, 1)

	res = call(t, s, "list_insights", map[string]any{"resolved": true})
	require.NoError(t, json.Unmarshal([]byte(text(res)), &insights))
	assert.Empty(t, insights)

	res = call(t, s, "list_rules", map[string]any{"rule_type": "alert"})
	require.False(t, res.IsError)
	var rules []schema.Rule
	require.NoError(t, json.Unmarshal([]byte(text(res)), &rules))
	require.Len(t, rules, 1)
	assert.Equal(t, "Budget overrun", rules[0].Name)

	res = call(t, s, "get_project_summary", map[string]any{"project_id": 1.0})
	require.False(t, res.IsError)
	var project schema.ProjectSummary
	require.NoError(t, json.Unmarshal([]byte(text(res)), &project))
	assert.Equal(t, 1, project.OpenInsights)
}

func TestMCPServer_ToolErrors(t *testing.T) {
	s := newSeededServer(t)

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{"missing project id", "get_project_summary", nil, "project_id must be a positive number"},
		{"unknown project", "get_project_summary", map[string]any{"project_id": 7.0}, "not found"},
		{"unknown rule type", "list_rules", map[string]any{"rule_type": "magic"}, "unknown rule_type"},
		{"bad limit", "list_insights", map[string]any{"limit": -1.0}, "limit must be a positive number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, s, tt.tool, tt.args)
			assert.True(t, res.IsError, "The response should indicate an error state")
			assert.Contains(t, text(res), tt.want)
		})
	}
}

func TestMCPServer_SnapshotUnavailable(t *testing.T) {
	snaps := &iostore.MockSnapshotStore{}
	snaps.On("LoadSnapshot", mock.Anything).Return(nil, errors.New("provider down"))
	mgr := &iostore.MockStoreManager{}
	mgr.On("GetSnapshotStore").Return(snaps)

	s := mcp_internal.NewMCPServer(core.NewService(testConfig, mgr, zerolog.Nop()), zerolog.Nop())
	res := call(t, s, "get_dashboard_summary", nil)
	assert.True(t, res.IsError)
	assert.Contains(t, text(res), "snapshot unavailable")
}
