// Package agg computes dashboard aggregates from a snapshot and the current
// insight set. Nothing is cached; every call recomputes from its inputs.
package agg

import (
	"fmt"

	"github.com/huangsam/pmoinsight/core/algo"
	"github.com/huangsam/pmoinsight/core/metrics"
	"github.com/huangsam/pmoinsight/schema"
)

// Summarize builds the dashboard summary. Only unresolved insights count
// towards insights_count.
func Summarize(snap *schema.Snapshot, insights []schema.Insight) schema.DashboardSummary {
	if snap == nil {
		snap = &schema.Snapshot{}
	}
	summary := schema.DashboardSummary{
		TotalProjects:    len(snap.Projects),
		TotalSprints:     len(snap.Sprints),
		TotalTeams:       len(snap.Teams),
		TotalUserStories: len(snap.UserStories),
		InsightsCount:    CountUnresolved(insights),
	}

	for _, p := range snap.Projects {
		if p.Status == schema.ProjectActive {
			summary.ActiveProjects++
		}
	}
	for _, m := range snap.TeamMembers {
		if m.IsActive {
			summary.TotalTeamMembers++
		}
	}
	for _, us := range snap.UserStories {
		summary.TotalStoryPoints += us.PlanEstimate
	}
	if sprint, ok := algo.PickActiveSprint(snap.Sprints); ok {
		name := sprint.Name
		summary.ActiveSprint = &name
	}
	return summary
}

// CountUnresolved maps insight type to the number of unresolved insights.
func CountUnresolved(insights []schema.Insight) map[string]int {
	counts := map[string]int{}
	for _, in := range insights {
		if !in.IsResolved {
			counts[in.InsightType]++
		}
	}
	return counts
}

// SummarizeProject rolls up one project's hierarchy, logged time and open
// insights. It returns schema.ErrNotFound for unknown ids.
func SummarizeProject(snap *schema.Snapshot, projectID int64, insights []schema.Insight) (schema.ProjectSummary, error) {
	ix := metrics.NewIndex(snap)
	project, ok := ix.Project(projectID)
	if !ok {
		return schema.ProjectSummary{}, fmt.Errorf("project %d: %w", projectID, schema.ErrNotFound)
	}

	r := ix.Rollup(projectID)
	summary := schema.ProjectSummary{
		Project:              project,
		TotalEpics:           r.Epics,
		TotalFeatures:        r.Features,
		TotalUserStories:     r.Stories,
		TotalStoryPoints:     r.TotalPoints,
		CompletedStoryPoints: r.CompletedPoints,
		CompletionPct:        r.CompletionPct(),
		LoggedHours:          r.LoggedHours,
	}
	for _, in := range insights {
		if !in.IsResolved && in.Subject.Kind == schema.ProjectSubject && in.Subject.ID == projectID {
			summary.OpenInsights++
		}
	}
	return summary, nil
}
