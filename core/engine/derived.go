package engine

import (
	"cmp"
	"maps"
	"slices"

	"github.com/huangsam/pmoinsight/core/metrics"
	"github.com/huangsam/pmoinsight/schema"
)

// globalSubject owns derived fields that apply to the whole snapshot.
var globalSubject = schema.Subject{Kind: schema.GlobalSubject}

type derivedKey struct {
	kind  schema.SubjectKind
	id    int64
	field string
}

// DerivedValue is one field written by a conversion or calculation rule.
type DerivedValue struct {
	Subject schema.Subject `json:"subject"`
	Field   string         `json:"field"`
	Value   float64        `json:"value"`
	RuleID  int64          `json:"rule_id"`
}

func (d DerivedValue) key() derivedKey {
	return derivedKey{kind: d.Subject.Kind, id: d.Subject.ID, field: d.Field}
}

// state is the derived-field view a tier evaluates against. It is frozen for
// the duration of a tier; writes are applied at the tier barrier.
type state struct {
	values   map[derivedKey]DerivedValue
	defaults metrics.Params
}

func newState(defaults metrics.Params) *state {
	return &state{values: map[derivedKey]DerivedValue{}, defaults: defaults}
}

// params returns the conversion factors visible to this tier.
func (s *state) params() metrics.Params {
	p := s.defaults
	if v, ok := s.values[derivedKey{kind: schema.GlobalSubject, field: schema.HoursPerPointField}]; ok {
		p.HoursPerPoint = v.Value
	}
	if v, ok := s.values[derivedKey{kind: schema.GlobalSubject, field: schema.HoursPerDayField}]; ok {
		p.HoursPerDay = v.Value
	}
	return p
}

// lookup returns a derived value for subj, if an earlier tier wrote one.
func (s *state) lookup(subj schema.Subject, field string) (float64, bool) {
	v, ok := s.values[derivedKey{kind: subj.Kind, id: subj.ID, field: field}]
	return v.Value, ok
}

// next applies writes in order on a copy, so later writes win.
func (s *state) next(writes []DerivedValue) *state {
	values := maps.Clone(s.values)
	for _, w := range writes {
		values[w.key()] = w
	}
	return &state{values: values, defaults: s.defaults}
}

// list returns every derived value sorted by subject then field.
func (s *state) list() []DerivedValue {
	out := slices.Collect(maps.Values(s.values))
	slices.SortFunc(out, func(a, b DerivedValue) int {
		return cmp.Or(
			cmp.Compare(a.Subject.Kind, b.Subject.Kind),
			cmp.Compare(a.Subject.ID, b.Subject.ID),
			cmp.Compare(a.Field, b.Field),
		)
	})
	return out
}
