// Package parquet exports pmoinsight insights and generation runs to Parquet
// files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/huangsam/pmoinsight/schema"
)

// Insight is one row of the pmo_insights table.
type Insight struct {
	// ID is the insight's store id
	ID int64 `parquet:"id,snappy"`

	InsightType string `parquet:"insight_type,snappy,dict"`
	SubjectKind string `parquet:"subject_kind,snappy,dict"`
	SubjectID   int64  `parquet:"subject_id,snappy"`

	// SubjectKey is the human label of the subject (nullable)
	SubjectKey *string `parquet:"subject_key,optional,snappy"`

	Title       string `parquet:"title,snappy"`
	Description string `parquet:"description,snappy"`
	Severity    string `parquet:"severity,snappy,dict"`
	RuleID      int64  `parquet:"rule_id,snappy"`

	// MetricValue is the value that tripped the rule (nullable for validation findings)
	MetricValue *float64 `parquet:"metric_value,optional,snappy"`

	IsResolved bool      `parquet:"is_resolved,snappy"`
	CreatedAt  time.Time `parquet:"created_at,snappy"`
	LastSeenAt time.Time `parquet:"last_seen_at,snappy"`

	// ResolvedAt is set once the insight is resolved (nullable)
	ResolvedAt *time.Time `parquet:"resolved_at,optional,snappy"`
}

// GenerationRun is one row of the pmo_generation_runs table.
type GenerationRun struct {
	ID        int64     `parquet:"id,snappy"`
	RunUUID   string    `parquet:"run_uuid,snappy"`
	StartedAt time.Time `parquet:"started_at,snappy"`

	// FinishedAt is nil while the run is in progress
	FinishedAt *time.Time `parquet:"finished_at,optional,snappy"`

	DurationMs     int64  `parquet:"duration_ms,snappy"`
	RulesEvaluated int32  `parquet:"rules_evaluated,snappy"`
	Findings       int32  `parquet:"findings,snappy"`
	Created        int32  `parquet:"created,snappy"`
	Updated        int32  `parquet:"updated,snappy"`
	Status         string `parquet:"status,snappy,dict"`

	// Error holds the failure reason of a failed run (nullable)
	Error *string `parquet:"error,optional,snappy"`
}

// WriteInsightsParquet writes insight rows to a Parquet file.
func WriteInsightsParquet(data []Insight, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteGenerationRunsParquet writes generation run rows to a Parquet file.
func WriteGenerationRunsParquet(data []GenerationRun, outputPath string) error {
	return writeRows(data, outputPath)
}

// writeRows writes rows using the schema inferred from T's struct tags.
func writeRows[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertInsights converts store insights to Parquet rows.
func ConvertInsights(records []schema.Insight) []Insight {
	result := make([]Insight, len(records))
	for i, r := range records {
		row := Insight{
			ID:          r.ID,
			InsightType: r.InsightType,
			SubjectKind: string(r.Subject.Kind),
			SubjectID:   r.Subject.ID,
			Title:       r.Title,
			Description: r.Description,
			Severity:    string(r.Severity),
			RuleID:      r.RuleID,
			MetricValue: r.Value,
			IsResolved:  r.IsResolved,
			CreatedAt:   r.CreatedAt,
			LastSeenAt:  r.LastSeenAt,
			ResolvedAt:  r.ResolvedAt,
		}
		if r.Subject.Key != "" {
			key := r.Subject.Key
			row.SubjectKey = &key
		}
		result[i] = row
	}
	return result
}

// ConvertGenerationRuns converts store runs to Parquet rows.
func ConvertGenerationRuns(records []schema.GenerationRun) []GenerationRun {
	result := make([]GenerationRun, len(records))
	for i, r := range records {
		row := GenerationRun{
			ID:             r.ID,
			RunUUID:        r.RunUUID,
			StartedAt:      r.StartedAt,
			FinishedAt:     r.FinishedAt,
			DurationMs:     r.DurationMs,
			RulesEvaluated: int32(r.RulesEvaluated),
			Findings:       int32(r.Findings),
			Created:        int32(r.Created),
			Updated:        int32(r.Updated),
			Status:         r.Status,
		}
		if r.Error != "" {
			msg := r.Error
			row.Error = &msg
		}
		result[i] = row
	}
	return result
}
