package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/pmoinsight/core"
	"github.com/huangsam/pmoinsight/internal/contract"
	"github.com/huangsam/pmoinsight/internal/iostore"
	"github.com/huangsam/pmoinsight/internal/logger"
	"github.com/huangsam/pmoinsight/schema"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// appLog is the configured process logger.
var appLog = zerolog.Nop()

// svc is the insight service shared by every command that touches data.
var svc *core.Service

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "pmoinsight",
	Short:              "Rule-driven insights over PMO project data.",
	Long:               `pmoinsight evaluates configurable rules against a snapshot of projects, teams, sprints and timesheets, and keeps a deduplicated list of actionable insights.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Set environment variable prefix
	viper.SetEnvPrefix("PMOINSIGHT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("backend", schema.SQLiteBackend)
	viper.SetDefault("db-connect", "")
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("color", "yes")
	viper.SetDefault("http-addr", contract.DefaultHTTPAddr)
	viper.SetDefault("timezone", contract.DefaultTimezone)
	viper.SetDefault("snapshot-timeout", contract.DefaultSnapshotTimeout.String())
	viper.SetDefault("hours-per-point", contract.DefaultHoursPerPoint)
	viper.SetDefault("hours-per-day", contract.DefaultHoursPerDay)
	viper.SetDefault("log-level", contract.DefaultLogLevel)
	viper.SetDefault("log-format", contract.DefaultLogFormat)
	viper.SetDefault("gin-mode", contract.DefaultGinMode)
}

// loadConfigFile handles config file loading logic common to all setup functions.
func loadConfigFile() error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".pmoinsight") // Name of config file (without extension)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// configSetup resolves and validates configuration and installs the logger
// without opening the store.
func configSetup() error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}

	l, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	appLog = l
	return nil
}

// sharedSetup runs configSetup, opens the store and builds the service.
func sharedSetup(_ *cobra.Command, _ []string) error {
	if err := configSetup(); err != nil {
		return err
	}

	// 4. Initialize persistence layer with validated config
	if err := iostore.InitStores(cfg.Backend, cfg.DBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	svc = core.NewService(cfg, iostore.Manager, appLog)
	return nil
}

// configSetupWrapper provides PreRunE for commands that manage the database directly.
func configSetupWrapper(_ *cobra.Command, _ []string) error {
	return configSetup()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
