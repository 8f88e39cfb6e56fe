package contract

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/huangsam/pmoinsight/schema"
)

// Default values for configuration.
const (
	DefaultPrecision       = 1
	DefaultHTTPAddr        = ":8080"
	DefaultTimezone        = "UTC"
	DefaultSnapshotTimeout = 30 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
	DefaultGinMode         = "release"
	DefaultHoursPerPoint   = 13.0
	DefaultHoursPerDay     = 8.0
)

// DefaultWorkers is the default number of concurrent rule evaluators.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// ScheduleParser accepts standard five-field cron specs plus descriptors
// such as @hourly.
var ScheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Config holds the final, validated runtime configuration.
type Config struct {
	Backend   schema.DatabaseBackend
	DBConnect string // Please use env var as this is plaintext

	Output     schema.OutputMode
	OutputFile string
	Precision  int
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool

	Workers         int
	SnapshotTimeout time.Duration
	HoursPerPoint   float64
	HoursPerDay     float64

	HTTPAddr string
	GinMode  string
	Schedule string
	Location *time.Location

	LogLevel  string
	LogFormat string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Storage ---
	Backend   string `mapstructure:"backend"`
	DBConnect string `mapstructure:"db-connect"`

	// --- Output ---
	Output     string `mapstructure:"output"`
	OutputFile string `mapstructure:"output-file"`
	Precision  int    `mapstructure:"precision"`
	Width      int    `mapstructure:"width"`
	Color      string `mapstructure:"color"`

	// --- Engine ---
	Workers         int     `mapstructure:"workers"`
	SnapshotTimeout string  `mapstructure:"snapshot-timeout"`
	HoursPerPoint   float64 `mapstructure:"hours-per-point"`
	HoursPerDay     float64 `mapstructure:"hours-per-day"`

	// --- Server ---
	HTTPAddr string `mapstructure:"http-addr"`
	GinMode  string `mapstructure:"gin-mode"`
	Schedule string `mapstructure:"schedule"`
	Timezone string `mapstructure:"timezone"`

	// --- Logging ---
	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateOutputInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfig(cfg, input); err != nil {
		return err
	}
	if err := validateEngineInputs(cfg, input); err != nil {
		return err
	}
	if err := validateServerInputs(cfg, input); err != nil {
		return err
	}
	return validateLogInputs(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateOutputInputs handles rendering options.
func validateOutputInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Precision < 1 || input.Precision > 2 {
		return fmt.Errorf("precision must be 1 or 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}
	return nil
}

// validateBackendConfig validates the storage backend.
func validateBackendConfig(cfg *Config, input *ConfigRawInput) error {
	cfg.Backend = schema.DatabaseBackend(strings.ToLower(input.Backend))
	if _, ok := schema.ValidDatabaseBackends[cfg.Backend]; !ok {
		return fmt.Errorf("invalid backend '%s'. must be sqlite, mysql, postgresql, none", input.Backend)
	}
	cfg.DBConnect = input.DBConnect
	return ValidateDatabaseConnectionString(cfg.Backend, cfg.DBConnect)
}

// validateEngineInputs covers the worker pool, snapshot deadline and unit defaults.
func validateEngineInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 1. Workers ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 2. Snapshot timeout ---
	cfg.SnapshotTimeout = DefaultSnapshotTimeout
	if input.SnapshotTimeout != "" {
		d, err := time.ParseDuration(input.SnapshotTimeout)
		if err != nil {
			return fmt.Errorf("invalid snapshot-timeout '%s': %w", input.SnapshotTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("snapshot-timeout must be positive (received %s)", d)
		}
		cfg.SnapshotTimeout = d
	}

	// --- 3. Unit defaults, overridable per pass by conversion rules ---
	if input.HoursPerPoint <= 0 {
		return fmt.Errorf("hours-per-point must be greater than 0 (received %g)", input.HoursPerPoint)
	}
	cfg.HoursPerPoint = input.HoursPerPoint
	if input.HoursPerDay <= 0 {
		return fmt.Errorf("hours-per-day must be greater than 0 (received %g)", input.HoursPerDay)
	}
	cfg.HoursPerDay = input.HoursPerDay
	return nil
}

// validateServerInputs handles the HTTP listener and scheduler.
func validateServerInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.HTTPAddr = input.HTTPAddr
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}

	cfg.GinMode = strings.ToLower(input.GinMode)
	switch cfg.GinMode {
	case "":
		cfg.GinMode = DefaultGinMode
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid gin-mode '%s'. must be debug, release, test", input.GinMode)
	}

	tz := input.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("invalid timezone '%s': %w", tz, err)
	}
	cfg.Location = loc

	cfg.Schedule = strings.TrimSpace(input.Schedule)
	if cfg.Schedule != "" {
		if _, err := ScheduleParser.Parse(cfg.Schedule); err != nil {
			return fmt.Errorf("invalid schedule '%s': %w", cfg.Schedule, err)
		}
	}
	return nil
}

// validateLogInputs checks zerolog level and writer format.
func validateLogInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.LogLevel = strings.ToLower(input.LogLevel)
	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = DefaultLogLevel
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level '%s'. must be debug, info, warn, error", input.LogLevel)
	}

	cfg.LogFormat = strings.ToLower(input.LogFormat)
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = DefaultLogFormat
	case "console", "json":
	default:
		return fmt.Errorf("invalid log-format '%s'. must be console, json", input.LogFormat)
	}
	return nil
}
