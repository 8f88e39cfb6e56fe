package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/pmoinsight/internal/contract"
	"github.com/huangsam/pmoinsight/internal/parquet"
	"github.com/huangsam/pmoinsight/schema"
)

// PrintInsights outputs insights, dispatching based on the output format configured.
func PrintInsights(insights []schema.Insight, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, insights)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeInsightsCSV(w, insights, cfg.Precision)
		}, "Wrote CSV")
	case schema.ParquetOut:
		if err := parquet.WriteInsightsParquet(parquet.ConvertInsights(insights), cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
		return nil
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if err := writeInsightsTable(w, insights, cfg); err != nil {
				return err
			}
			_, err := fmt.Fprintf(w, "Showing %d insights (%d open)\n", len(insights), countOpen(insights))
			return err
		}, "Wrote table")
	}
}

// PrintGeneration outputs a generation pass: the run record and the
// resulting open insights.
func PrintGeneration(run schema.GenerationRun, insights []schema.Insight, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, struct {
				Run      schema.GenerationRun `json:"run"`
				Insights []schema.Insight     `json:"insights"`
			}{run, insights})
		}, "Wrote JSON")
	case schema.CSVOut, schema.ParquetOut:
		return PrintInsights(insights, cfg)
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if err := writeInsightsTable(w, insights, cfg); err != nil {
				return err
			}
			_, err := fmt.Fprintf(w, "Evaluated %d rules in %v: %d findings, %d created, %d updated, %d open\n",
				run.RulesEvaluated, time.Duration(run.DurationMs)*time.Millisecond,
				run.Findings, run.Created, run.Updated, countOpen(insights))
			return err
		}, "Wrote table")
	}
}

func countOpen(insights []schema.Insight) int {
	n := 0
	for _, in := range insights {
		if !in.IsResolved {
			n++
		}
	}
	return n
}

// writeInsightsTable generates and writes the human-readable table.
func writeInsightsTable(w io.Writer, insights []schema.Insight, cfg *contract.Config) error {
	_, fmtOptional := createFormatters(cfg.Precision)
	// ID + Type + Subject + Severity + Value + Status + Last Seen
	titleWidth := getMaxTableTextWidth(cfg, 75)

	headers := []string{"ID", "Type", "Subject", "Severity", "Title", "Value", "Status", "Last Seen"}
	rows := make([][]string, 0, len(insights))
	for _, in := range insights {
		rows = append(rows, []string{
			strconv.FormatInt(in.ID, 10),
			in.InsightType,
			in.Subject.String(),
			severityLabel(in.Severity, cfg),
			contract.TruncateText(in.Title, titleWidth),
			fmtOptional(in.Value),
			contract.GetStatusLabel(in.IsResolved, cfg.UseColors),
			in.LastSeenAt.Format(time.DateOnly),
		})
	}
	return writeTable(w, headers, rows, false)
}

// writeInsightsCSV writes insights in CSV format.
func writeInsightsCSV(w io.Writer, insights []schema.Insight, precision int) error {
	_, fmtOptional := createFormatters(precision)
	header := []string{
		"id", "insight_type", "subject_kind", "subject_id", "subject_key", "title", "description",
		"severity", "rule_id", "value", "is_resolved", "created_at", "last_seen_at", "resolved_at",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, in := range insights {
			resolvedAt := ""
			if in.ResolvedAt != nil {
				resolvedAt = in.ResolvedAt.Format(contract.DateTimeFormat)
			}
			rec := []string{
				strconv.FormatInt(in.ID, 10),
				in.InsightType,
				string(in.Subject.Kind),
				strconv.FormatInt(in.Subject.ID, 10),
				in.Subject.Key,
				in.Title,
				in.Description,
				contract.GetPlainLabel(in.Severity),
				strconv.FormatInt(in.RuleID, 10),
				fmtOptional(in.Value),
				strconv.FormatBool(in.IsResolved),
				in.CreatedAt.Format(contract.DateTimeFormat),
				in.LastSeenAt.Format(contract.DateTimeFormat),
				resolvedAt,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
