// Package cmd defines the command-line interface for pmoinsight.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/pmoinsight/internal/contract"
	"github.com/huangsam/pmoinsight/schema"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(versionCmd)

	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesCreateCmd)
	rulesCmd.AddCommand(rulesUpdateCmd)
	rulesCmd.AddCommand(rulesDeleteCmd)

	insightsCmd.AddCommand(insightsListCmd)
	insightsCmd.AddCommand(insightsGenerateCmd)
	insightsCmd.AddCommand(insightsResolveCmd)
	insightsCmd.AddCommand(insightsExportCmd)

	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsSummaryCmd)

	snapshotCmd.AddCommand(snapshotLoadCmd)

	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbClearCmd)
	dbCmd.AddCommand(dbRunsCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("backend", string(schema.SQLiteBackend), "Storage backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("db-connect", "", "Database connection string (SQLite file path, or DSN for mysql/postgresql)")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent rule evaluators")
	rootCmd.PersistentFlags().String("snapshot-timeout", contract.DefaultSnapshotTimeout.String(), "Deadline for loading the data snapshot")
	rootCmd.PersistentFlags().Float64("hours-per-point", contract.DefaultHoursPerPoint, "Hours per story point when no conversion rule applies")
	rootCmd.PersistentFlags().Float64("hours-per-day", contract.DefaultHoursPerDay, "Working hours per day for capacity")
	rootCmd.PersistentFlags().String("log-level", contract.DefaultLogLevel, "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("log-format", contract.DefaultLogFormat, "Log format: console or json")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Server flags are bound to Viper so they can come from the config file too
	serveCmd.Flags().String("http-addr", contract.DefaultHTTPAddr, "HTTP listen address")
	serveCmd.Flags().String("gin-mode", contract.DefaultGinMode, "Gin mode: debug or release or test")
	serveCmd.Flags().String("schedule", "", "Cron spec for scheduled generation (empty disables)")
	serveCmd.Flags().String("timezone", contract.DefaultTimezone, "Time zone for the schedule")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}

	// Command-local flags are read straight from the command
	rulesListCmd.Flags().String("type", "", "Filter by rule type: conversion or alert or validation or calculation")
	rulesListCmd.Flags().Bool("all", false, "Include inactive rules")
	for _, c := range []*cobra.Command{rulesCreateCmd, rulesUpdateCmd} {
		c.Flags().String("name", "", "Rule name")
		c.Flags().String("description", "", "Rule description")
		c.Flags().String("type", "", "Rule type: conversion or alert or validation or calculation")
		c.Flags().String("params", "", "Rule parameters as a JSON object")
		c.Flags().String("params-file", "", "Path to a JSON file holding the rule parameters")
		c.Flags().Int("priority", 0, "Evaluation priority (lower runs first)")
		c.Flags().String("active", "yes", "Whether the rule is active (yes/no/true/false/1/0)")
	}

	insightsListCmd.Flags().String("type", "", "Filter by insight type")
	insightsListCmd.Flags().String("resolved", "", "Filter by resolution state (yes/no); empty lists both")
	insightsListCmd.Flags().Int("skip", 0, "Number of insights to skip")
	insightsListCmd.Flags().Int("limit", 100, "Maximum number of insights to list")

	dbMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	dbRunsCmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 lists all)")
}
