// Package outwriter has output and writer logic.
package outwriter

import (
	"os"

	"golang.org/x/term"

	"github.com/huangsam/pmoinsight/internal/contract"
	"github.com/huangsam/pmoinsight/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteSummary prints the dashboard summary using the configured output format.
func (ow *OutWriter) WriteSummary(summary schema.DashboardSummary, cfg *contract.Config) error {
	return PrintDashboardSummary(summary, cfg)
}

// WriteProjectSummary prints one project rollup using the configured output format.
func (ow *OutWriter) WriteProjectSummary(summary schema.ProjectSummary, cfg *contract.Config) error {
	return PrintProjectSummary(summary, cfg)
}

// WriteProjects prints the project list using the configured output format.
func (ow *OutWriter) WriteProjects(projects []schema.Project, cfg *contract.Config) error {
	return PrintProjects(projects, cfg)
}

// WriteRules prints rules using the configured output format.
func (ow *OutWriter) WriteRules(rules []schema.Rule, cfg *contract.Config) error {
	return PrintRules(rules, cfg)
}

// WriteInsights prints insights using the configured output format.
func (ow *OutWriter) WriteInsights(insights []schema.Insight, cfg *contract.Config) error {
	return PrintInsights(insights, cfg)
}

// WriteGeneration prints the outcome of a generation pass.
func (ow *OutWriter) WriteGeneration(run schema.GenerationRun, insights []schema.Insight, cfg *contract.Config) error {
	return PrintGeneration(run, insights, cfg)
}

// WriteRuns prints generation runs using the configured output format.
func (ow *OutWriter) WriteRuns(runs []schema.GenerationRun, cfg *contract.Config) error {
	return PrintRuns(runs, cfg)
}

// getMaxTableTextWidth returns the room left for a free-text column once
// fixedWidth characters of other columns are accounted for.
func getMaxTableTextWidth(cfg *contract.Config, fixedWidth int) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Borders, separators and padding
	available := termWidth - fixedWidth - 20
	if available < 15 {
		return 15
	}
	if available > 70 {
		return 70
	}
	return available
}

// severityLabel picks the colored or plain severity label.
func severityLabel(sev schema.Severity, cfg *contract.Config) string {
	if cfg.UseColors {
		return contract.GetColorLabel(sev)
	}
	return contract.GetPlainLabel(sev)
}
