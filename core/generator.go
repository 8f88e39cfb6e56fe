package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/huangsam/pmoinsight/core/engine"
	"github.com/huangsam/pmoinsight/internal/contract"
	"github.com/huangsam/pmoinsight/schema"
)

// Generator runs generation passes: snapshot, rules, evaluation and
// reconciliation against the persisted insight set. A pass either commits
// every finding or none of them.
type Generator struct {
	stores          contract.StoreManager
	engine          *engine.Engine
	locks           *keyLocker
	snapshotTimeout time.Duration
	log             zerolog.Logger
	now             func() time.Time
}

// NewGenerator wires a Generator. A non-positive snapshotTimeout falls back
// to contract.DefaultSnapshotTimeout.
func NewGenerator(stores contract.StoreManager, eng *engine.Engine, snapshotTimeout time.Duration, log zerolog.Logger) *Generator {
	if snapshotTimeout <= 0 {
		snapshotTimeout = contract.DefaultSnapshotTimeout
	}
	return &Generator{
		stores:          stores,
		engine:          eng,
		locks:           newKeyLocker(),
		snapshotTimeout: snapshotTimeout,
		log:             log,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// GenerateResult is the outcome of a successful pass.
type GenerateResult struct {
	Run      schema.GenerationRun `json:"run"`
	Insights []schema.Insight     `json:"insights"`
}

// Generate runs one pass and returns the full unresolved insight set. A
// snapshot that cannot be loaded within the timeout fails the pass with
// schema.ErrSnapshotUnavailable before anything is written.
func (g *Generator) Generate(ctx context.Context) (*GenerateResult, error) {
	runs := g.stores.GetRunStore()
	run := schema.GenerationRun{RunUUID: uuid.NewString(), StartedAt: g.now(), Status: schema.RunRunning}
	id, err := runs.BeginRun(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("failed to record generation run: %w", err)
	}
	run.ID = id
	logger := g.log.With().Str("run_uuid", run.RunUUID).Logger()
	logger.Debug().Int64("run_id", run.ID).Msg("generation started")

	insights, genErr := g.run(ctx, &run)

	finished := g.now()
	run.FinishedAt = &finished
	run.DurationMs = finished.Sub(run.StartedAt).Milliseconds()
	run.Status = schema.RunSucceeded
	if genErr != nil {
		run.Status = schema.RunFailed
		run.Error = genErr.Error()
	}
	if err := runs.EndRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn().Err(err).Msg("failed to record generation outcome")
	}

	if genErr != nil {
		logger.Error().Err(genErr).Msg("generation failed")
		return nil, genErr
	}
	logger.Info().
		Int("rules", run.RulesEvaluated).
		Int("findings", run.Findings).
		Int("created", run.Created).
		Int("updated", run.Updated).
		Int64("duration_ms", run.DurationMs).
		Msg("generation finished")
	return &GenerateResult{Run: run, Insights: insights}, nil
}

func (g *Generator) run(ctx context.Context, run *schema.GenerationRun) ([]schema.Insight, error) {
	snapCtx, cancel := context.WithTimeout(ctx, g.snapshotTimeout)
	snap, err := g.stores.GetSnapshotStore().LoadSnapshot(snapCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", schema.ErrSnapshotUnavailable, err)
	}

	rules, err := g.stores.GetRuleStore().ListRules(ctx, "", true)
	if err != nil {
		return nil, fmt.Errorf("failed to list active rules: %w", err)
	}

	result, err := g.engine.Evaluate(ctx, snap, rules)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate rules: %w", err)
	}
	run.RulesEvaluated = result.RulesEvaluated
	run.Findings = len(result.Findings)

	keys := make([]string, len(result.Findings))
	for i, f := range result.Findings {
		keys[i] = f.Key()
	}
	unlock, err := g.locks.Lock(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to lock insight keys: %w", err)
	}
	reconciled, err := g.stores.GetInsightStore().Reconcile(ctx, result.Findings, g.now())
	unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile insights: %w", err)
	}
	run.Created = reconciled.Created
	run.Updated = reconciled.Updated

	insights, err := g.stores.GetInsightStore().ListInsights(ctx, schema.InsightFilter{Resolved: schema.BoolPtr(false)})
	if err != nil {
		return nil, fmt.Errorf("failed to list unresolved insights: %w", err)
	}
	return insights, nil
}

// Resolve marks an insight resolved. Resolving an already resolved insight
// returns it unchanged.
func (g *Generator) Resolve(ctx context.Context, id int64) (schema.Insight, error) {
	insight, err := g.stores.GetInsightStore().ResolveInsight(ctx, id, g.now())
	if err != nil {
		return schema.Insight{}, err
	}
	g.log.Info().Int64("insight_id", id).Str("insight_type", insight.InsightType).Msg("insight resolved")
	return insight, nil
}
