package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/huangsam/pmoinsight/core/agg"
	"github.com/huangsam/pmoinsight/core/engine"
	"github.com/huangsam/pmoinsight/core/metrics"
	"github.com/huangsam/pmoinsight/internal/contract"
	"github.com/huangsam/pmoinsight/schema"
)

// Service is the query and command surface shared by the CLI, the REST
// server and the MCP server.
type Service struct {
	stores    contract.StoreManager
	generator *Generator
}

// NewService wires the engine and generator from cfg.
func NewService(cfg *contract.Config, stores contract.StoreManager, log zerolog.Logger) *Service {
	eng := engine.New(cfg.Workers, metrics.Params{HoursPerPoint: cfg.HoursPerPoint, HoursPerDay: cfg.HoursPerDay})
	return &Service{
		stores:    stores,
		generator: NewGenerator(stores, eng, cfg.SnapshotTimeout, log),
	}
}

// Generator returns the generation command.
func (s *Service) Generator() *Generator { return s.generator }

// Rules returns the rule store.
func (s *Service) Rules() contract.RuleStore { return s.stores.GetRuleStore() }

// Generate runs one generation pass.
func (s *Service) Generate(ctx context.Context) (*GenerateResult, error) {
	return s.generator.Generate(ctx)
}

// Resolve marks an insight resolved.
func (s *Service) Resolve(ctx context.Context, id int64) (schema.Insight, error) {
	return s.generator.Resolve(ctx, id)
}

// ListInsights returns stored insights matching filter.
func (s *Service) ListInsights(ctx context.Context, filter schema.InsightFilter) ([]schema.Insight, error) {
	return s.stores.GetInsightStore().ListInsights(ctx, filter)
}

// ListRuns returns recent generation runs.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]schema.GenerationRun, error) {
	return s.stores.GetRunStore().ListRuns(ctx, limit)
}

// ReplaceSnapshot stores snap as the current snapshot.
func (s *Service) ReplaceSnapshot(ctx context.Context, snap *schema.Snapshot) error {
	return s.stores.GetSnapshotStore().ReplaceSnapshot(ctx, snap)
}

// DashboardSummary aggregates the current snapshot and unresolved insights.
func (s *Service) DashboardSummary(ctx context.Context) (schema.DashboardSummary, error) {
	snap, insights, err := s.snapshotAndOpenInsights(ctx)
	if err != nil {
		return schema.DashboardSummary{}, err
	}
	return agg.Summarize(snap, insights), nil
}

// ProjectSummary rolls up one project.
func (s *Service) ProjectSummary(ctx context.Context, id int64) (schema.ProjectSummary, error) {
	snap, insights, err := s.snapshotAndOpenInsights(ctx)
	if err != nil {
		return schema.ProjectSummary{}, err
	}
	return agg.SummarizeProject(snap, id, insights)
}

// ListProjects returns every project in the current snapshot.
func (s *Service) ListProjects(ctx context.Context) ([]schema.Project, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	projects := snap.Projects
	if projects == nil {
		projects = []schema.Project{}
	}
	return projects, nil
}

// GetProject returns one project or schema.ErrNotFound.
func (s *Service) GetProject(ctx context.Context, id int64) (schema.Project, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return schema.Project{}, err
	}
	if p, ok := metrics.NewIndex(snap).Project(id); ok {
		return p, nil
	}
	return schema.Project{}, fmt.Errorf("project %d: %w", id, schema.ErrNotFound)
}

func (s *Service) loadSnapshot(ctx context.Context) (*schema.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.generator.snapshotTimeout)
	defer cancel()
	snap, err := s.stores.GetSnapshotStore().LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", schema.ErrSnapshotUnavailable, err)
	}
	return snap, nil
}

func (s *Service) snapshotAndOpenInsights(ctx context.Context) (*schema.Snapshot, []schema.Insight, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	insights, err := s.ListInsights(ctx, schema.InsightFilter{Resolved: schema.BoolPtr(false)})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list unresolved insights: %w", err)
	}
	return snap, insights, nil
}
