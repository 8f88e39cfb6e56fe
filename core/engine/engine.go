// Package engine evaluates business rules against a snapshot.
//
// Rules run in priority tiers. All rules of a tier are evaluated in parallel
// against the derived-field state frozen at the start of the tier; their
// writes become visible to the next tier only. Findings from every tier are
// merged and de-duplicated with the priority conflict tie-break, so the
// result never depends on scheduling or worker count.
package engine

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/huangsam/pmoinsight/core/algo"
	"github.com/huangsam/pmoinsight/core/metrics"
	"github.com/huangsam/pmoinsight/schema"
)

// Engine is stateless apart from its configuration and safe for concurrent use.
type Engine struct {
	workers  int
	defaults metrics.Params
}

// New returns an Engine using up to workers goroutines per tier. Defaults
// apply until a conversion rule overrides them.
func New(workers int, defaults metrics.Params) *Engine {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if defaults.HoursPerPoint <= 0 {
		defaults.HoursPerPoint = schema.DefaultHoursPerPoint
	}
	if defaults.HoursPerDay <= 0 {
		defaults.HoursPerDay = schema.DefaultHoursPerDay
	}
	return &Engine{workers: workers, defaults: defaults}
}

// EvalResult is the outcome of one evaluation pass.
type EvalResult struct {
	Findings       []schema.Finding `json:"findings"`
	Derived        []DerivedValue   `json:"derived"`
	RulesEvaluated int              `json:"rules_evaluated"`
}

// ruleOutput is the slot one rule writes into. Slots are preallocated per
// tier so workers never share memory.
type ruleOutput struct {
	findings []schema.Finding
	derived  []DerivedValue
}

// Evaluate runs rules over snap. Inactive rules are ignored. The only error
// is ctx cancellation; undefined metrics skip their subject.
func (e *Engine) Evaluate(ctx context.Context, snap *schema.Snapshot, rules []schema.Rule) (EvalResult, error) {
	ix := metrics.NewIndex(snap)
	st := newState(e.defaults)

	active := make([]schema.Rule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive && r.Parameters != nil {
			active = append(active, r)
		}
	}

	var findings []schema.Finding
	for _, tier := range algo.Tiers(active) {
		outputs := make([]ruleOutput, len(tier))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		for i, rule := range tier {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				outputs[i] = evaluateRule(ix, st, rule)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return EvalResult{}, err
		}

		// Barrier: merge in rule id order.
		var writes []DerivedValue
		for _, out := range outputs {
			findings = append(findings, out.findings...)
			writes = append(writes, out.derived...)
		}
		st = st.next(writes)
	}

	return EvalResult{
		Findings:       algo.ResolveConflicts(findings),
		Derived:        st.list(),
		RulesEvaluated: len(active),
	}, nil
}

// evaluateRule dispatches on the closed set of parameter variants.
func evaluateRule(ix *metrics.Index, st *state, rule schema.Rule) ruleOutput {
	switch p := rule.Parameters.(type) {
	case schema.ConversionParams:
		return evaluateConversion(rule, p)
	case schema.CalculationParams:
		return evaluateCalculation(ix, st, rule, p)
	case schema.AlertParams:
		return evaluateAlert(ix, st, rule, p)
	case schema.ValidationParams:
		return evaluateValidation(ix, rule, p)
	default:
		return ruleOutput{}
	}
}

// metricValue prefers a derived field named after the metric over the
// built-in computation.
func metricValue(ix *metrics.Index, st *state, m schema.Metric, subj schema.Subject) (float64, bool) {
	if v, ok := st.lookup(subj, string(m)); ok {
		return v, true
	}
	return ix.Compute(m, subj, st.params())
}
