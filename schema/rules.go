package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// MaxRuleNameLength bounds rule names, matching the store column width.
const MaxRuleNameLength = 255

// Rule is a user-configurable business rule. Parameters always holds the
// variant matching RuleType.
type Rule struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	RuleType    RuleType       `json:"rule_type"`
	Parameters  RuleParameters `json:"parameters"`
	IsActive    bool           `json:"is_active"`
	Priority    int            `json:"priority"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// UnmarshalJSON decodes parameters into the variant named by rule_type.
func (r *Rule) UnmarshalJSON(b []byte) error {
	type ruleAlias Rule
	aux := struct {
		*ruleAlias
		Parameters json.RawMessage `json:"parameters"`
	}{ruleAlias: (*ruleAlias)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	params, err := DecodeStoredParameters(r.RuleType, aux.Parameters)
	if err != nil {
		return err
	}
	r.Parameters = params
	return nil
}

// RuleDraft is the client-supplied shape for create and update.
type RuleDraft struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	RuleType    RuleType        `json:"rule_type" yaml:"rule_type"`
	Parameters  json.RawMessage `json:"parameters" yaml:"-"`
	IsActive    *bool           `json:"is_active,omitempty" yaml:"is_active"`
	Priority    int             `json:"priority" yaml:"priority"`
}

// Active returns the draft's is_active flag, defaulting to true.
func (d RuleDraft) Active() bool {
	return d.IsActive == nil || *d.IsActive
}

// ValidateDraft checks every write-time constraint on a draft and returns its
// decoded parameters.
func ValidateDraft(d RuleDraft) (RuleParameters, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return nil, NewValidationError("name", "must not be empty")
	}
	if len(name) > MaxRuleNameLength {
		return nil, NewValidationError("name", "must be at most %d characters", MaxRuleNameLength)
	}
	if !ValidRuleTypes[d.RuleType] {
		return nil, NewValidationError("rule_type", "unknown rule type %q, must be conversion, validation, alert or calculation", d.RuleType)
	}
	return DecodeParameters(d.RuleType, d.Parameters)
}

// RuleParameters is the closed set of typed parameter shapes, one per rule type.
type RuleParameters interface {
	RuleType() RuleType
	validate() error
}

// requiredKeys lists the parameter keys that must be present for each rule type.
var requiredKeys = map[RuleType][]string{
	ConversionRule:  {"factor", "from_unit", "to_unit"},
	ValidationRule:  {"field"},
	AlertRule:       {"metric", "threshold", "comparison", "severity"},
	CalculationRule: {"expression_id", "output_field"},
}

// DecodeParameters strictly decodes raw JSON into the variant for ruleType.
// Unknown keys, missing required keys and out-of-range values are rejected.
func DecodeParameters(ruleType RuleType, raw json.RawMessage) (RuleParameters, error) {
	if !ValidRuleTypes[ruleType] {
		return nil, NewValidationError("rule_type", "unknown rule type %q", ruleType)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, NewValidationError("parameters", "is required")
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil || keys == nil {
		return nil, NewValidationError("parameters", "must be a JSON object")
	}
	for _, k := range requiredKeys[ruleType] {
		if v, ok := keys[k]; !ok || string(bytes.TrimSpace(v)) == "null" {
			return nil, NewValidationError("parameters."+k, "is required")
		}
	}

	params, err := decodeVariant(ruleType, raw)
	if err != nil {
		return nil, err
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	return params, nil
}

// DecodeStoredParameters decodes parameters that were accepted at write time.
// Shapes and types are still enforced but value constraints are not, so rows
// written under an older catalog keep loading.
func DecodeStoredParameters(ruleType RuleType, raw json.RawMessage) (RuleParameters, error) {
	if !ValidRuleTypes[ruleType] {
		return nil, NewValidationError("rule_type", "unknown rule type %q", ruleType)
	}
	return decodeVariant(ruleType, raw)
}

func decodeVariant(ruleType RuleType, raw json.RawMessage) (RuleParameters, error) {
	var params RuleParameters
	var err error
	switch ruleType {
	case ConversionRule:
		var p ConversionParams
		err = decodeStrict(raw, &p)
		params = p
	case ValidationRule:
		var p ValidationParams
		err = decodeStrict(raw, &p)
		params = p
	case AlertRule:
		var p AlertParams
		err = decodeStrict(raw, &p)
		params = p
	case CalculationRule:
		var p CalculationParams
		err = decodeStrict(raw, &p)
		params = p
	}
	if err != nil {
		return nil, err
	}
	return params, nil
}

// decodeStrict decodes raw into v, rejecting unknown fields.
func decodeStrict(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return NewValidationError("parameters."+typeErr.Field, "must be a %s", typeErr.Type.Kind())
		}
		return NewValidationError("parameters", "%s", strings.TrimPrefix(err.Error(), "json: "))
	}
	return nil
}

// --- conversion ---

// ConversionParams converts between effort units.
type ConversionParams struct {
	Factor   float64 `json:"factor"`
	FromUnit Unit    `json:"from_unit"`
	ToUnit   Unit    `json:"to_unit"`
}

// RuleType implements RuleParameters.
func (ConversionParams) RuleType() RuleType { return ConversionRule }

func (p ConversionParams) validate() error {
	if p.Factor <= 0 {
		return NewValidationError("parameters.factor", "must be greater than 0 (received %g)", p.Factor)
	}
	if !ValidUnits[p.FromUnit] {
		return NewValidationError("parameters.from_unit", "unknown unit %q", p.FromUnit)
	}
	if !ValidUnits[p.ToUnit] {
		return NewValidationError("parameters.to_unit", "unknown unit %q", p.ToUnit)
	}
	if p.FromUnit == p.ToUnit {
		return NewValidationError("parameters.to_unit", "must differ from from_unit")
	}
	if _, _, ok := p.Derived(); !ok {
		return NewValidationError("parameters", "unsupported conversion %s -> %s", p.FromUnit, p.ToUnit)
	}
	return nil
}

// Derived returns the global derived field this conversion sets and its value.
func (p ConversionParams) Derived() (field string, value float64, ok bool) {
	switch {
	case p.Factor <= 0:
		return "", 0, false
	case p.FromUnit == StoryPointsUnit && p.ToUnit == HoursUnit:
		return HoursPerPointField, p.Factor, true
	case p.FromUnit == HoursUnit && p.ToUnit == StoryPointsUnit:
		return HoursPerPointField, 1 / p.Factor, true
	case p.FromUnit == DaysUnit && p.ToUnit == HoursUnit:
		return HoursPerDayField, p.Factor, true
	case p.FromUnit == HoursUnit && p.ToUnit == DaysUnit:
		return HoursPerDayField, 1 / p.Factor, true
	default:
		return "", 0, false
	}
}

// --- validation ---

// ValidationFields lists the entity fields a validation rule may check,
// mapped to whether the field is numeric (and so accepts min/max).
var ValidationFields = map[string]bool{
	"project.owner":            false,
	"project.end_date":         false,
	"user_story.plan_estimate": true,
	"user_story.team_id":       false,
	"user_story.sprint_id":     false,
	"team_member.allocation":   true,
	"timesheet_entry.hours":    true,
}

// ValidationParams checks a data field on every entity of one kind.
type ValidationParams struct {
	Field    string   `json:"field"`
	Required bool     `json:"required"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Severity Severity `json:"severity,omitempty"`
}

// RuleType implements RuleParameters.
func (ValidationParams) RuleType() RuleType { return ValidationRule }

func (p ValidationParams) validate() error {
	numeric, ok := ValidationFields[p.Field]
	if !ok {
		return NewValidationError("parameters.field", "unknown field %q", p.Field)
	}
	if !numeric && (p.Min != nil || p.Max != nil) {
		return NewValidationError("parameters.field", "min/max are only allowed on numeric fields")
	}
	if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
		return NewValidationError("parameters.min", "must not exceed max")
	}
	if !p.Required && p.Min == nil && p.Max == nil {
		return NewValidationError("parameters", "at least one of required, min or max must be set")
	}
	if p.Severity != "" && !ValidSeverities[p.Severity] {
		return NewValidationError("parameters.severity", "must be info, warning or critical")
	}
	return nil
}

// EffectiveSeverity returns the configured severity, defaulting to warning.
func (p ValidationParams) EffectiveSeverity() Severity {
	if p.Severity == "" {
		return WarningSeverity
	}
	return p.Severity
}

// InsightType returns the insight type emitted for violations of this field.
func (p ValidationParams) InsightType() string {
	return ValidationInsightPrefix + p.Field
}

// --- alert ---

// AlertParams emits a finding when metric <comparison> threshold holds.
type AlertParams struct {
	Metric     Metric     `json:"metric"`
	Threshold  float64    `json:"threshold"`
	Comparison Comparison `json:"comparison"`
	Severity   Severity   `json:"severity"`
}

// RuleType implements RuleParameters.
func (AlertParams) RuleType() RuleType { return AlertRule }

func (p AlertParams) validate() error {
	if _, ok := MetricSubjects[p.Metric]; !ok {
		return NewValidationError("parameters.metric", "unknown metric %q", p.Metric)
	}
	if !ValidComparisons[p.Comparison] {
		return NewValidationError("parameters.comparison", "must be gt, gte, lt or lte")
	}
	if !ValidSeverities[p.Severity] {
		return NewValidationError("parameters.severity", "must be info, warning or critical")
	}
	return nil
}

// InsightType maps the metric and comparison to the insight type tag.
func (p AlertParams) InsightType() string {
	switch p.Metric {
	case BudgetOverrunPct:
		return BudgetOverrunInsight
	case UtilizationPct:
		if p.Comparison == LessThan || p.Comparison == LessThanOrEqual {
			return UnderUtilizationInsight
		}
		return OverUtilizationInsight
	case SprintVelocityDrop:
		return VelocityDropInsight
	case ForecastSprintsRemaining:
		return ForecastAlertInsight
	default:
		return string(p.Metric) + GenericAlertInsightSuffix
	}
}

// --- calculation ---

var outputFieldPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// CalculationParams stores a built-in metric under a named derived field.
type CalculationParams struct {
	ExpressionID Metric `json:"expression_id"`
	OutputField  string `json:"output_field"`
}

// RuleType implements RuleParameters.
func (CalculationParams) RuleType() RuleType { return CalculationRule }

func (p CalculationParams) validate() error {
	if _, ok := MetricSubjects[p.ExpressionID]; !ok {
		return NewValidationError("parameters.expression_id", "unknown expression %q", p.ExpressionID)
	}
	if !outputFieldPattern.MatchString(p.OutputField) {
		return NewValidationError("parameters.output_field", "must match %s", outputFieldPattern)
	}
	if p.OutputField == HoursPerPointField || p.OutputField == HoursPerDayField {
		return NewValidationError("parameters.output_field", "%q is reserved for conversion rules", p.OutputField)
	}
	return nil
}

// FormatParameters renders parameters compactly for tables and logs.
func FormatParameters(p RuleParameters) string {
	switch v := p.(type) {
	case ConversionParams:
		return fmt.Sprintf("1 %s = %g %s", v.FromUnit, v.Factor, v.ToUnit)
	case ValidationParams:
		parts := []string{v.Field}
		if v.Required {
			parts = append(parts, "required")
		}
		if v.Min != nil {
			parts = append(parts, fmt.Sprintf("min=%g", *v.Min))
		}
		if v.Max != nil {
			parts = append(parts, fmt.Sprintf("max=%g", *v.Max))
		}
		return strings.Join(parts, " ")
	case AlertParams:
		return fmt.Sprintf("%s %s %g (%s)", v.Metric, v.Comparison.Symbol(), v.Threshold, v.Severity)
	case CalculationParams:
		return fmt.Sprintf("%s := %s", v.OutputField, v.ExpressionID)
	default:
		return ""
	}
}
