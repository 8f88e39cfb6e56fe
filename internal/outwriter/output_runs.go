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

// PrintRuns outputs generation runs, most recent first.
func PrintRuns(runs []schema.GenerationRun, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, runs)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRunsCSV(w, runs)
		}, "Wrote CSV")
	case schema.ParquetOut:
		if err := parquet.WriteGenerationRunsParquet(parquet.ConvertGenerationRuns(runs), cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
		return nil
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRunsTable(w, runs, cfg)
		}, "Wrote table")
	}
}

func runStatusLabel(status string, cfg *contract.Config) string {
	if !cfg.UseColors {
		return status
	}
	switch status {
	case schema.RunFailed:
		return contract.CriticalColor.Sprint(status)
	case schema.RunSucceeded:
		return contract.ResolvedColor.Sprint(status)
	default:
		return contract.WarningColor.Sprint(status)
	}
}

func writeRunsTable(w io.Writer, runs []schema.GenerationRun, cfg *contract.Config) error {
	// ID + Run + Started + Duration + four counters + Status
	errWidth := getMaxTableTextWidth(cfg, 85)
	headers := []string{"ID", "Run", "Started", "Duration", "Rules", "Findings", "Created", "Updated", "Status", "Error"}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			shortUUID(r.RunUUID),
			r.StartedAt.Local().Format(time.DateTime),
			(time.Duration(r.DurationMs) * time.Millisecond).String(),
			strconv.Itoa(r.RulesEvaluated),
			strconv.Itoa(r.Findings),
			strconv.Itoa(r.Created),
			strconv.Itoa(r.Updated),
			runStatusLabel(r.Status, cfg),
			contract.TruncateText(r.Error, errWidth),
		})
	}
	return writeTable(w, headers, rows, false)
}

func shortUUID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func writeRunsCSV(w io.Writer, runs []schema.GenerationRun) error {
	header := []string{
		"id", "run_uuid", "started_at", "finished_at", "duration_ms", "rules_evaluated",
		"findings", "created", "updated", "status", "error",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range runs {
			finished := ""
			if r.FinishedAt != nil {
				finished = r.FinishedAt.Format(contract.DateTimeFormat)
			}
			rec := []string{
				strconv.FormatInt(r.ID, 10),
				r.RunUUID,
				r.StartedAt.Format(contract.DateTimeFormat),
				finished,
				strconv.FormatInt(r.DurationMs, 10),
				strconv.Itoa(r.RulesEvaluated),
				strconv.Itoa(r.Findings),
				strconv.Itoa(r.Created),
				strconv.Itoa(r.Updated),
				r.Status,
				r.Error,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
