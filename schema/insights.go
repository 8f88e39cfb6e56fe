package schema

import (
	"fmt"
	"time"
)

// Subject identifies the entity an insight or finding is about. Key is a
// human-facing label (project code, team name) and is not part of identity.
type Subject struct {
	Kind SubjectKind `json:"kind"`
	ID   int64       `json:"id"`
	Key  string      `json:"key,omitempty"`
}

// String renders the subject as kind(key) or kind#id.
func (s Subject) String() string {
	if s.Key != "" {
		return fmt.Sprintf("%s(%s)", s.Kind, s.Key)
	}
	return fmt.Sprintf("%s#%d", s.Kind, s.ID)
}

// DedupKey returns the identity used to enforce at most one unresolved
// insight per insight type and subject.
func DedupKey(insightType string, s Subject) string {
	return fmt.Sprintf("%s|%s|%d", insightType, s.Kind, s.ID)
}

// Finding is a candidate insight produced by a single evaluation pass.
type Finding struct {
	InsightType string   `json:"insight_type"`
	Subject     Subject  `json:"subject"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	RuleID      int64    `json:"rule_id"`
	Priority    int      `json:"priority"`
	Value       *float64 `json:"value,omitempty"`
}

// Key returns the dedup key of the finding.
func (f Finding) Key() string {
	return DedupKey(f.InsightType, f.Subject)
}

// Insight is a persisted finding with lifecycle state. IsResolved only ever
// moves from false to true.
type Insight struct {
	ID          int64      `json:"id"`
	InsightType string     `json:"insight_type"`
	Subject     Subject    `json:"subject"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Severity    Severity   `json:"severity"`
	RuleID      int64      `json:"rule_id,omitempty"`
	Value       *float64   `json:"value,omitempty"`
	IsResolved  bool       `json:"is_resolved"`
	CreatedAt   time.Time  `json:"created_at"`
	LastSeenAt  time.Time  `json:"last_seen_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// Key returns the dedup key of the insight.
func (i Insight) Key() string {
	return DedupKey(i.InsightType, i.Subject)
}

// InsightFilter narrows insight listings. Nil Resolved means both states.
type InsightFilter struct {
	InsightType string
	Resolved    *bool
	Offset      int
	Limit       int
}

// ReconcileResult reports what a reconcile pass did.
type ReconcileResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// GenerationRun records one generate pass for audit.
type GenerationRun struct {
	ID             int64      `json:"id"`
	RunUUID        string     `json:"run_uuid"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	DurationMs     int64      `json:"duration_ms"`
	RulesEvaluated int        `json:"rules_evaluated"`
	Findings       int        `json:"findings"`
	Created        int        `json:"created"`
	Updated        int        `json:"updated"`
	Status         string     `json:"status"`
	Error          string     `json:"error,omitempty"`
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 { return &f }
