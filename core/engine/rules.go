package engine

import (
	"fmt"

	"github.com/huangsam/pmoinsight/core/metrics"
	"github.com/huangsam/pmoinsight/schema"
)

func evaluateConversion(rule schema.Rule, p schema.ConversionParams) ruleOutput {
	field, value, ok := p.Derived()
	if !ok {
		return ruleOutput{}
	}
	return ruleOutput{derived: []DerivedValue{{Subject: globalSubject, Field: field, Value: value, RuleID: rule.ID}}}
}

func evaluateCalculation(ix *metrics.Index, st *state, rule schema.Rule, p schema.CalculationParams) ruleOutput {
	var out ruleOutput
	for _, subj := range ix.Subjects(schema.MetricSubjects[p.ExpressionID]) {
		v, ok := metricValue(ix, st, p.ExpressionID, subj)
		if !ok {
			continue
		}
		out.derived = append(out.derived, DerivedValue{Subject: subj, Field: p.OutputField, Value: v, RuleID: rule.ID})
	}
	return out
}

func evaluateAlert(ix *metrics.Index, st *state, rule schema.Rule, p schema.AlertParams) ruleOutput {
	var out ruleOutput
	insightType := p.InsightType()
	for _, subj := range ix.Subjects(schema.MetricSubjects[p.Metric]) {
		v, ok := metricValue(ix, st, p.Metric, subj)
		if !ok || !p.Comparison.Holds(v, p.Threshold) {
			continue
		}
		out.findings = append(out.findings, schema.Finding{
			InsightType: insightType,
			Subject:     subj,
			Title:       alertTitle(insightType, subj),
			Description: fmt.Sprintf("%s is %.1f (threshold %s %g) per rule %q",
				p.Metric, v, p.Comparison.Symbol(), p.Threshold, rule.Name),
			Severity: p.Severity,
			RuleID:   rule.ID,
			Priority: rule.Priority,
			Value:    schema.FloatPtr(v),
		})
	}
	return out
}

func alertTitle(insightType string, subj schema.Subject) string {
	label := subj.Key
	if label == "" {
		label = subj.String()
	}
	switch insightType {
	case schema.BudgetOverrunInsight:
		return "Budget overrun on " + label
	case schema.UnderUtilizationInsight:
		return "Under-utilization in " + label
	case schema.OverUtilizationInsight:
		return "Over-utilization in " + label
	case schema.VelocityDropInsight:
		return "Velocity drop in " + label
	case schema.ForecastAlertInsight:
		return "Completion forecast risk on " + label
	default:
		return fmt.Sprintf("%s on %s", insightType, label)
	}
}
