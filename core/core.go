// Package core has the insight generator and the orchestration shared by the
// CLI, REST and MCP front ends.
package core

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/huangsam/pmoinsight/internal/contract"
	"github.com/huangsam/pmoinsight/internal/outwriter"
	"github.com/huangsam/pmoinsight/schema"
)

// ReadSnapshotFile decodes a YAML (or JSON) snapshot fixture and checks its
// structural invariants.
func ReadSnapshotFile(path string) (*schema.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	var snap schema.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	if err := schema.ValidateSnapshot(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ExecuteSummary prints the dashboard summary.
func ExecuteSummary(ctx context.Context, cfg *contract.Config, svc *Service) error {
	summary, err := svc.DashboardSummary(ctx)
	if err != nil {
		return err
	}
	return outwriter.PrintDashboardSummary(summary, cfg)
}

// ExecuteGenerate runs one generation pass and prints the open insights.
func ExecuteGenerate(ctx context.Context, cfg *contract.Config, svc *Service) error {
	res, err := svc.Generate(ctx)
	if err != nil {
		return err
	}
	return outwriter.PrintGeneration(res.Run, res.Insights, cfg)
}

// ExecuteListInsights prints insights matching filter.
func ExecuteListInsights(ctx context.Context, cfg *contract.Config, svc *Service, filter schema.InsightFilter) error {
	insights, err := svc.ListInsights(ctx, filter)
	if err != nil {
		return err
	}
	return outwriter.PrintInsights(insights, cfg)
}

// ExecuteResolve resolves one insight and prints it.
func ExecuteResolve(ctx context.Context, cfg *contract.Config, svc *Service, id int64) error {
	insight, err := svc.Resolve(ctx, id)
	if err != nil {
		return err
	}
	return outwriter.PrintInsights([]schema.Insight{insight}, cfg)
}

// ExecuteListRules prints rules, optionally narrowed to one type or to
// active rules.
func ExecuteListRules(ctx context.Context, cfg *contract.Config, svc *Service, ruleType schema.RuleType, activeOnly bool) error {
	rules, err := svc.Rules().ListRules(ctx, ruleType, activeOnly)
	if err != nil {
		return err
	}
	return outwriter.PrintRules(rules, cfg)
}

// ExecuteSaveRule creates a rule when id is zero and replaces rule id otherwise.
func ExecuteSaveRule(ctx context.Context, cfg *contract.Config, svc *Service, id int64, draft schema.RuleDraft) error {
	var (
		rule schema.Rule
		err  error
	)
	if id == 0 {
		rule, err = svc.Rules().CreateRule(ctx, draft)
	} else {
		rule, err = svc.Rules().UpdateRule(ctx, id, draft)
	}
	if err != nil {
		return err
	}
	return outwriter.PrintRules([]schema.Rule{rule}, cfg)
}

// ExecuteDeleteRule removes rule id. Insights it produced are kept.
func ExecuteDeleteRule(ctx context.Context, svc *Service, id int64) error {
	if err := svc.Rules().DeleteRule(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Rule %d deleted.\n", id)
	return nil
}

// ExecuteListProjects prints every project in the current snapshot.
func ExecuteListProjects(ctx context.Context, cfg *contract.Config, svc *Service) error {
	projects, err := svc.ListProjects(ctx)
	if err != nil {
		return err
	}
	return outwriter.PrintProjects(projects, cfg)
}

// ExecuteProjectSummary prints one project rollup.
func ExecuteProjectSummary(ctx context.Context, cfg *contract.Config, svc *Service, id int64) error {
	summary, err := svc.ProjectSummary(ctx, id)
	if err != nil {
		return err
	}
	return outwriter.PrintProjectSummary(summary, cfg)
}

// ExecuteListRuns prints the most recent generation runs.
func ExecuteListRuns(ctx context.Context, cfg *contract.Config, svc *Service, limit int) error {
	runs, err := svc.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	return outwriter.PrintRuns(runs, cfg)
}

// ExecuteLoadSnapshot replaces the stored snapshot with the file at path.
func ExecuteLoadSnapshot(ctx context.Context, svc *Service, path string) error {
	snap, err := ReadSnapshotFile(path)
	if err != nil {
		return err
	}
	if err := svc.ReplaceSnapshot(ctx, snap); err != nil {
		return err
	}
	fmt.Printf("Loaded snapshot as of %s: %d projects, %d sprints, %d teams, %d user stories, %d timesheet entries\n",
		snap.AsOf.Format(contract.DateTimeFormat), len(snap.Projects), len(snap.Sprints), len(snap.Teams),
		len(snap.UserStories), len(snap.TimesheetEntries))
	return nil
}
