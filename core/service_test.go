package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/pmoinsight/internal/contract"
	"github.com/huangsam/pmoinsight/internal/iostore"
	"github.com/huangsam/pmoinsight/schema"
)

func testConfig() *contract.Config {
	return &contract.Config{Workers: 2, SnapshotTimeout: time.Second, HoursPerPoint: 13, HoursPerDay: 8}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	_, store := newTestGenerator(t)
	return NewService(testConfig(), iostore.NewStoreManager(store), zerolog.Nop())
}

func TestService_DashboardSummary(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	before, err := svc.DashboardSummary(ctx)
	require.NoError(t, err)
	assert.Empty(t, before.InsightsCount)
	assert.Equal(t, 1, before.TotalProjects)
	assert.Equal(t, 2, before.TotalUserStories)
	assert.InDelta(t, 10.0, before.TotalStoryPoints, 1e-9)
	require.NotNil(t, before.ActiveSprint)
	assert.Equal(t, "Sprint 9", *before.ActiveSprint)

	_, err = svc.Generate(ctx)
	require.NoError(t, err)

	after, err := svc.DashboardSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{schema.BudgetOverrunInsight: 1}, after.InsightsCount)
}

func TestService_ProjectSummary(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.ProjectSummary(ctx, 42)
	assert.ErrorIs(t, err, schema.ErrNotFound)

	_, err = svc.Generate(ctx)
	require.NoError(t, err)

	summary, err := svc.ProjectSummary(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "ITPR-100", summary.Project.Code)
	assert.Equal(t, 1, summary.TotalEpics)
	assert.InDelta(t, 60.0, summary.CompletionPct, 1e-9)
	assert.InDelta(t, 169.0, summary.LoggedHours, 1e-9)
	assert.Equal(t, 1, summary.OpenInsights)
}

func TestService_Projects(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	projects, err := svc.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)

	p, err := svc.GetProject(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Billing", p.Name)

	_, err = svc.GetProject(ctx, 2)
	assert.ErrorIs(t, err, schema.ErrNotFound)
}

func TestService_SnapshotUnavailable(t *testing.T) {
	snaps := &iostore.MockSnapshotStore{}
	snaps.On("LoadSnapshot", mock.Anything).Return(nil, errors.New("connection refused"))
	insights := &iostore.MockInsightStore{}
	svc := NewService(testConfig(), mockStores(snaps, insights, &iostore.MockRunStore{}), zerolog.Nop())
	ctx := context.Background()

	_, err := svc.DashboardSummary(ctx)
	assert.ErrorIs(t, err, schema.ErrSnapshotUnavailable)
	_, err = svc.ProjectSummary(ctx, 1)
	assert.ErrorIs(t, err, schema.ErrSnapshotUnavailable)
	_, err = svc.ListProjects(ctx)
	assert.ErrorIs(t, err, schema.ErrSnapshotUnavailable)
	insights.AssertNotCalled(t, "ListInsights", mock.Anything, mock.Anything)
}

func TestService_ReplaceSnapshotAndRuns(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.ReplaceSnapshot(ctx, &schema.Snapshot{AsOf: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)}))
	projects, err := svc.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)

	res, err := svc.Generate(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Insights)

	runs, err := svc.ListRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].RulesEvaluated)

	rules, err := svc.Rules().ListRules(ctx, "", true)
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}
