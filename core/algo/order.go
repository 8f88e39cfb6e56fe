// Package algo has the deterministic orderings the engines rely on.
package algo

import (
	"cmp"
	"slices"

	"github.com/huangsam/pmoinsight/schema"
)

// CompareFindings orders findings by priority, insight type, subject kind,
// subject id and finally rule id, which makes the order total.
func CompareFindings(a, b schema.Finding) int {
	return cmp.Or(
		cmp.Compare(a.Priority, b.Priority),
		cmp.Compare(a.InsightType, b.InsightType),
		cmp.Compare(a.Subject.Kind, b.Subject.Kind),
		cmp.Compare(a.Subject.ID, b.Subject.ID),
		cmp.Compare(a.RuleID, b.RuleID),
	)
}

// SortFindings sorts findings in place with CompareFindings.
func SortFindings(findings []schema.Finding) {
	slices.SortStableFunc(findings, CompareFindings)
}

// ResolveConflicts keeps one finding per dedup key: the one from the
// higher-priority (lower number) rule, then the lower rule id. The result is
// sorted with CompareFindings.
func ResolveConflicts(findings []schema.Finding) []schema.Finding {
	sorted := slices.Clone(findings)
	SortFindings(sorted)

	seen := make(map[string]bool, len(sorted))
	kept := make([]schema.Finding, 0, len(sorted))
	for _, f := range sorted {
		key := f.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, f)
	}
	return kept
}

// Tiers groups rules by priority. Tiers are ordered by ascending priority and
// rules within a tier by id.
func Tiers(rules []schema.Rule) [][]schema.Rule {
	sorted := slices.Clone(rules)
	slices.SortFunc(sorted, func(a, b schema.Rule) int {
		return cmp.Or(cmp.Compare(a.Priority, b.Priority), cmp.Compare(a.ID, b.ID))
	})

	var tiers [][]schema.Rule
	for i, r := range sorted {
		if i == 0 || r.Priority != sorted[i-1].Priority {
			tiers = append(tiers, nil)
		}
		tiers[len(tiers)-1] = append(tiers[len(tiers)-1], r)
	}
	return tiers
}

// PickActiveSprint returns the single "current" sprint across the
// organization. Among active sprints it prefers the one whose scope (team,
// else project, else organization) has the most sprints overall, then the
// lexicographically smallest name, then the lowest id.
func PickActiveSprint(sprints []schema.Sprint) (schema.Sprint, bool) {
	type scope struct {
		kind schema.SubjectKind
		id   int64
	}
	scopeOf := func(s schema.Sprint) scope {
		switch {
		case s.TeamID != 0:
			return scope{schema.TeamSubject, s.TeamID}
		case s.ProjectID != 0:
			return scope{schema.ProjectSubject, s.ProjectID}
		default:
			return scope{schema.GlobalSubject, 0}
		}
	}

	counts := map[scope]int{}
	var active []schema.Sprint
	for _, s := range sprints {
		counts[scopeOf(s)]++
		if s.IsActive {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return schema.Sprint{}, false
	}

	best := slices.MinFunc(active, func(a, b schema.Sprint) int {
		return cmp.Or(
			cmp.Compare(counts[scopeOf(b)], counts[scopeOf(a)]),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return best, true
}
