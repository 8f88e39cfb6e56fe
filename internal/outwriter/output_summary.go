package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/huangsam/pmoinsight/internal/contract"
	"github.com/huangsam/pmoinsight/schema"
)

// PrintDashboardSummary outputs the dashboard aggregates.
func PrintDashboardSummary(summary schema.DashboardSummary, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, summary)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeKeyValueCSV(w, summaryPairs(summary, cfg.Precision))
		}, "Wrote CSV")
	case schema.ParquetOut:
		return errParquetUnsupported
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSummaryText(w, summary, cfg)
		}, "Wrote table")
	}
}

// summaryPairs flattens the summary into ordered metric/value rows.
// Insight counts become insights.<type> rows sorted by type.
func summaryPairs(s schema.DashboardSummary, precision int) [][2]string {
	fmtFloat, _ := createFormatters(precision)
	activeSprint := ""
	if s.ActiveSprint != nil {
		activeSprint = *s.ActiveSprint
	}
	pairs := [][2]string{
		{"total_projects", strconv.Itoa(s.TotalProjects)},
		{"active_projects", strconv.Itoa(s.ActiveProjects)},
		{"total_sprints", strconv.Itoa(s.TotalSprints)},
		{"active_sprint", activeSprint},
		{"total_teams", strconv.Itoa(s.TotalTeams)},
		{"total_team_members", strconv.Itoa(s.TotalTeamMembers)},
		{"total_user_stories", strconv.Itoa(s.TotalUserStories)},
		{"total_story_points", fmtFloat(s.TotalStoryPoints)},
	}
	types := make([]string, 0, len(s.InsightsCount))
	for t := range s.InsightsCount {
		types = append(types, t)
	}
	slices.Sort(types)
	for _, t := range types {
		pairs = append(pairs, [2]string{"insights." + t, strconv.Itoa(s.InsightsCount[t])})
	}
	return pairs
}

func writeSummaryText(w io.Writer, s schema.DashboardSummary, cfg *contract.Config) error {
	if _, err := fmt.Fprintf(w, "📊 PMO Dashboard\n================\n\n"); err != nil {
		return err
	}
	pairs := summaryPairs(s, cfg.Precision)
	var overview, insights [][]string
	for _, p := range pairs {
		if insightType, ok := strings.CutPrefix(p[0], "insights."); ok {
			insights = append(insights, []string{insightType, p[1]})
			continue
		}
		overview = append(overview, []string{p[0], p[1]})
	}
	if err := writeTable(w, []string{"Metric", "Value"}, overview, false); err != nil {
		return err
	}
	if len(insights) == 0 {
		_, err := fmt.Fprintf(w, "\nNo open insights\n")
		return err
	}
	if _, err := fmt.Fprintf(w, "\nOpen insights by type\n"); err != nil {
		return err
	}
	return writeTable(w, []string{"Insight Type", "Open"}, insights, false)
}

func writeKeyValueCSV(w io.Writer, pairs [][2]string) error {
	return writeCSVWithHeader(w, []string{"metric", "value"}, func(cw *csv.Writer) error {
		for _, p := range pairs {
			if err := cw.Write(p[:]); err != nil {
				return err
			}
		}
		return nil
	})
}

// PrintProjectSummary outputs one project rollup.
func PrintProjectSummary(s schema.ProjectSummary, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)
	pairs := [][2]string{
		{"code", s.Project.Code},
		{"name", s.Project.Name},
		{"status", s.Project.Status},
		{"owner", s.Project.Owner},
		{"total_epics", strconv.Itoa(s.TotalEpics)},
		{"total_features", strconv.Itoa(s.TotalFeatures)},
		{"total_user_stories", strconv.Itoa(s.TotalUserStories)},
		{"total_story_points", fmtFloat(s.TotalStoryPoints)},
		{"completed_story_points", fmtFloat(s.CompletedStoryPoints)},
		{"completion_pct", fmtFloat(s.CompletionPct)},
		{"logged_hours", fmtFloat(s.LoggedHours)},
		{"open_insights", strconv.Itoa(s.OpenInsights)},
	}

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, s)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeKeyValueCSV(w, pairs)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return errParquetUnsupported
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			rows := make([][]string, len(pairs))
			for i, p := range pairs {
				rows[i] = []string{p[0], p[1]}
			}
			return writeTable(w, []string{"Metric", "Value"}, rows, false)
		}, "Wrote table")
	}
}

// PrintProjects outputs the project list.
func PrintProjects(projects []schema.Project, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, projects)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			header := []string{"id", "code", "name", "theme", "owner", "status", "start_date", "end_date"}
			return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
				for _, p := range projects {
					if err := cw.Write(projectRecord(p, true)); err != nil {
						return err
					}
				}
				return nil
			})
		}, "Wrote CSV")
	case schema.ParquetOut:
		return errParquetUnsupported
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				rows = append(rows, projectRecord(p, false))
			}
			headers := []string{"ID", "Code", "Name", "Owner", "Status", "Start", "End"}
			if err := writeTable(w, headers, rows, false); err != nil {
				return err
			}
			_, err := fmt.Fprintf(w, "Showing %d projects\n", len(projects))
			return err
		}, "Wrote table")
	}
}

func projectRecord(p schema.Project, withTheme bool) []string {
	rec := []string{strconv.FormatInt(p.ID, 10), p.Code, p.Name}
	if withTheme {
		rec = append(rec, p.Theme)
	}
	return append(rec, p.Owner, p.Status, p.StartDate.String(), p.EndDate.String())
}
