package iostore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/huangsam/pmoinsight/schema"
)

// BeginRun records a started generation pass.
func (s *SQLStore) BeginRun(ctx context.Context, run schema.GenerationRun) (int64, error) {
	query := fmt.Sprintf(`INSERT INTO %s (run_uuid, started_at, status, error_message) VALUES (?, ?, ?, ?)`, generationRunsTable)
	id, err := s.insertReturningID(ctx, s.db, query, run.RunUUID, toNanos(run.StartedAt), run.Status, "")
	if err != nil {
		return 0, fmt.Errorf("failed to insert generation run: %w", err)
	}
	return id, nil
}

// EndRun stores the outcome of a generation pass.
func (s *SQLStore) EndRun(ctx context.Context, run schema.GenerationRun) error {
	query := fmt.Sprintf(`UPDATE %s SET finished_at = ?, duration_ms = ?, rules_evaluated = ?, findings = ?,
		created_count = ?, updated_count = ?, status = ?, error_message = ? WHERE id = ?`, generationRunsTable)
	_, err := s.db.ExecContext(ctx, s.rebind(query),
		nullableNanos(run.FinishedAt), run.DurationMs, run.RulesEvaluated, run.Findings,
		run.Created, run.Updated, run.Status, run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update generation run %d: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns all runs.
func (s *SQLStore) ListRuns(ctx context.Context, limit int) ([]schema.GenerationRun, error) {
	query := fmt.Sprintf(`SELECT id, run_uuid, started_at, finished_at, duration_ms, rules_evaluated, findings,
		created_count, updated_count, status, error_message FROM %s ORDER BY id DESC`, generationRunsTable)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query generation runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []schema.GenerationRun{}
	for rows.Next() {
		var run schema.GenerationRun
		var startedAt int64
		var finishedAt, durationMs, rulesEvaluated, findings, created, updated sql.NullInt64
		var errMsg sql.NullString
		if err := rows.Scan(&run.ID, &run.RunUUID, &startedAt, &finishedAt, &durationMs, &rulesEvaluated,
			&findings, &created, &updated, &run.Status, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan generation run: %w", err)
		}
		run.StartedAt = fromNanos(startedAt)
		run.FinishedAt = timePtr(finishedAt)
		run.DurationMs = durationMs.Int64
		run.RulesEvaluated = int(rulesEvaluated.Int64)
		run.Findings = int(findings.Int64)
		run.Created = int(created.Int64)
		run.Updated = int(updated.Int64)
		run.Error = errMsg.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating generation runs: %w", err)
	}
	return runs, nil
}
