package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for persistence.
	DatabaseBackend string

	// RuleType tags the variant of a rule's parameters.
	RuleType string

	// Severity represents how urgent an insight is.
	Severity string

	// Comparison is the operator an alert rule applies to a metric.
	Comparison string

	// Unit is a unit of effort used by conversion rules.
	Unit string

	// SubjectKind names the kind of entity an insight is about.
	SubjectKind string

	// Metric names a built-in derived metric.
	Metric string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite"
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All rule types supported.
const (
	ConversionRule  RuleType = "conversion"
	ValidationRule  RuleType = "validation"
	AlertRule       RuleType = "alert"
	CalculationRule RuleType = "calculation"
)

// All severities supported, from least to most urgent.
const (
	InfoSeverity     Severity = "info"
	WarningSeverity  Severity = "warning"
	CriticalSeverity Severity = "critical"
)

// All comparisons supported.
const (
	GreaterThan        Comparison = "gt"
	GreaterThanOrEqual Comparison = "gte"
	LessThan           Comparison = "lt"
	LessThanOrEqual    Comparison = "lte"
)

// All units supported by conversion rules.
const (
	StoryPointsUnit Unit = "story_points"
	HoursUnit       Unit = "hours"
	DaysUnit        Unit = "days"
)

// All subject kinds.
const (
	ProjectSubject        SubjectKind = "project"
	TeamSubject           SubjectKind = "team"
	SprintSubject         SubjectKind = "sprint"
	UserStorySubject      SubjectKind = "user_story"
	TeamMemberSubject     SubjectKind = "team_member"
	TimesheetEntrySubject SubjectKind = "timesheet_entry"
	GlobalSubject         SubjectKind = "global"
)

// Built-in metrics. Alert rules name one of these and calculation rules
// use them as expression ids.
const (
	BudgetOverrunPct         Metric = "budget_overrun_pct"
	OverrunHours             Metric = "overrun_hours"
	LoggedHours              Metric = "logged_hours"
	BudgetHours              Metric = "budget_hours"
	CompletionPct            Metric = "completion_pct"
	RemainingPoints          Metric = "remaining_points"
	ForecastSprintsRemaining Metric = "forecast_sprints_remaining"
	UtilizationPct           Metric = "utilization_pct"
	SprintVelocityDrop       Metric = "sprint_velocity_drop"
	AvgVelocity              Metric = "avg_velocity"
)

// Insight types produced by alert rules on well-known metrics.
const (
	BudgetOverrunInsight      = "budget_overrun"
	UnderUtilizationInsight   = "under_utilization"
	OverUtilizationInsight    = "over_utilization"
	VelocityDropInsight       = "velocity_drop"
	ForecastAlertInsight      = "forecast_alert"
	ValidationInsightPrefix   = "validation:"
	GenericAlertInsightSuffix = "_alert"
)

// Project statuses as they appear in uploaded extracts.
const (
	ProjectActive = "Active"
	ProjectClosed = "Closed"
	ProjectOnHold = "On Hold"
)

// Derived field names written by conversion rules.
const (
	HoursPerPointField = "hours_per_point"
	HoursPerDayField   = "hours_per_day"
)

// Defaults used when no conversion rule overrides them.
const (
	DefaultHoursPerPoint = 13.0
	DefaultHoursPerDay   = 8.0
)

// Generation run statuses.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// ValidOutputModes is a set of valid output modes.
var ValidOutputModes = map[OutputMode]bool{
	CSVOut:     true,
	TextOut:    true,
	JSONOut:    true,
	ParquetOut: true,
}

// ValidDatabaseBackends is a set of valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]bool{
	SQLiteBackend:     true,
	MySQLBackend:      true,
	PostgreSQLBackend: true,
	NoneBackend:       true,
}

// ValidRuleTypes is a set of valid rule types.
var ValidRuleTypes = map[RuleType]bool{
	ConversionRule:  true,
	ValidationRule:  true,
	AlertRule:       true,
	CalculationRule: true,
}

// ValidSeverities is a set of valid severities.
var ValidSeverities = map[Severity]bool{
	InfoSeverity:     true,
	WarningSeverity:  true,
	CriticalSeverity: true,
}

// ValidComparisons is a set of valid alert comparisons.
var ValidComparisons = map[Comparison]bool{
	GreaterThan:        true,
	GreaterThanOrEqual: true,
	LessThan:           true,
	LessThanOrEqual:    true,
}

// ValidUnits is a set of valid conversion units.
var ValidUnits = map[Unit]bool{
	StoryPointsUnit: true,
	HoursUnit:       true,
	DaysUnit:        true,
}

// MetricSubjects maps each built-in metric to the kind of subject it is computed for.
var MetricSubjects = map[Metric]SubjectKind{
	BudgetOverrunPct:         ProjectSubject,
	OverrunHours:             ProjectSubject,
	LoggedHours:              ProjectSubject,
	BudgetHours:              ProjectSubject,
	CompletionPct:            ProjectSubject,
	RemainingPoints:          ProjectSubject,
	ForecastSprintsRemaining: ProjectSubject,
	UtilizationPct:           TeamSubject,
	SprintVelocityDrop:       TeamSubject,
	AvgVelocity:              TeamSubject,
}

// Rank orders severities so that critical sorts above warning and info.
func (s Severity) Rank() int {
	switch s {
	case CriticalSeverity:
		return 3
	case WarningSeverity:
		return 2
	case InfoSeverity:
		return 1
	default:
		return 0
	}
}

// Holds reports whether value <cmp> threshold is true.
func (c Comparison) Holds(value, threshold float64) bool {
	switch c {
	case GreaterThan:
		return value > threshold
	case GreaterThanOrEqual:
		return value >= threshold
	case LessThan:
		return value < threshold
	case LessThanOrEqual:
		return value <= threshold
	default:
		return false
	}
}

// Symbol returns the math symbol for a comparison.
func (c Comparison) Symbol() string {
	switch c {
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	case LessThan:
		return "<"
	case LessThanOrEqual:
		return "<="
	default:
		return string(c)
	}
}
