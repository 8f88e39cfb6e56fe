package iostore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/huangsam/pmoinsight/schema"
)

const insightColumns = `id, insight_type, subject_kind, subject_id, subject_key, title, description, severity,
	rule_id, metric_value, is_resolved, created_at, last_seen_at, resolved_at`

// ListInsights returns insights matching filter, newest first.
func (s *SQLStore) ListInsights(ctx context.Context, filter schema.InsightFilter) ([]schema.Insight, error) {
	var where []string
	var args []any
	if filter.InsightType != "" {
		where = append(where, "insight_type = ?")
		args = append(args, filter.InsightType)
	}
	if filter.Resolved != nil {
		where = append(where, "is_resolved = ?")
		args = append(args, *filter.Resolved)
	}

	query := fmt.Sprintf("SELECT %s FROM %s", insightColumns, insightsTable)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, max(filter.Offset, 0))
	} else if filter.Offset > 0 {
		// MySQL has no OFFSET without LIMIT
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", int64(1)<<62, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query insights: %w", err)
	}
	defer func() { _ = rows.Close() }()

	insights := []schema.Insight{}
	for rows.Next() {
		insight, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		insights = append(insights, insight)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating insights: %w", err)
	}
	return insights, nil
}

// Reconcile upserts findings against the unresolved set in one transaction.
// The open_key unique column guarantees a second unresolved insight for the
// same key can never be committed, even by another process.
func (s *SQLStore) Reconcile(ctx context.Context, findings []schema.Finding, now time.Time) (schema.ReconcileResult, error) {
	var result schema.ReconcileResult
	if len(findings) == 0 {
		return result, nil
	}

	ordered := make([]schema.Finding, len(findings))
	copy(ordered, findings)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Key() < ordered[j].Key() })

	updateQuery := s.rebind(fmt.Sprintf(`UPDATE %s SET title = ?, description = ?, severity = ?, rule_id = ?,
		metric_value = ?, subject_key = ?, last_seen_at = ? WHERE open_key = ?`, insightsTable))
	insertQuery := fmt.Sprintf(`INSERT INTO %s (insight_type, subject_kind, subject_id, subject_key, title, description,
		severity, rule_id, metric_value, is_resolved, created_at, last_seen_at, open_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, insightsTable)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, f := range ordered {
			key := f.Key()
			res, err := tx.ExecContext(ctx, updateQuery,
				f.Title, f.Description, string(f.Severity), f.RuleID,
				nullableFloat(f.Value), f.Subject.Key, toNanos(now), key)
			if err != nil {
				return fmt.Errorf("failed to refresh insight %s: %w", key, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to refresh insight %s: %w", key, err)
			}
			if n > 0 {
				result.Updated++
				continue
			}
			if _, err := s.insertReturningID(ctx, tx, insertQuery,
				f.InsightType, string(f.Subject.Kind), f.Subject.ID, f.Subject.Key, f.Title, f.Description,
				string(f.Severity), f.RuleID, nullableFloat(f.Value), false, toNanos(now), toNanos(now), key); err != nil {
				return fmt.Errorf("failed to create insight %s: %w", key, err)
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return schema.ReconcileResult{}, err
	}
	return result, nil
}

// ResolveInsight marks an insight resolved and frees its dedup key.
func (s *SQLStore) ResolveInsight(ctx context.Context, id int64, now time.Time) (schema.Insight, error) {
	var resolved schema.Insight
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := s.getInsight(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.IsResolved {
			resolved = current
			return nil
		}
		query := fmt.Sprintf(`UPDATE %s SET is_resolved = ?, resolved_at = ?, open_key = NULL
			WHERE id = ? AND is_resolved = ?`, insightsTable)
		if _, err := tx.ExecContext(ctx, s.rebind(query), true, toNanos(now), id, false); err != nil {
			return fmt.Errorf("failed to resolve insight %d: %w", id, err)
		}
		resolved, err = s.getInsight(ctx, tx, id)
		return err
	})
	return resolved, err
}

// CountUnresolved returns unresolved insight counts keyed by insight type.
func (s *SQLStore) CountUnresolved(ctx context.Context) (map[string]int, error) {
	query := fmt.Sprintf("SELECT insight_type, COUNT(*) FROM %s WHERE is_resolved = ? GROUP BY insight_type", insightsTable)
	rows, err := s.db.QueryContext(ctx, s.rebind(query), false)
	if err != nil {
		return nil, fmt.Errorf("failed to count insights: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := map[string]int{}
	for rows.Next() {
		var insightType string
		var n int
		if err := rows.Scan(&insightType, &n); err != nil {
			return nil, fmt.Errorf("failed to scan insight count: %w", err)
		}
		counts[insightType] = n
	}
	return counts, rows.Err()
}

func (s *SQLStore) getInsight(ctx context.Context, q queryer, id int64) (schema.Insight, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", insightColumns, insightsTable)
	insight, err := scanInsight(q.QueryRowContext(ctx, s.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Insight{}, fmt.Errorf("insight %d: %w", id, schema.ErrNotFound)
	}
	return insight, err
}

func scanInsight(row rowScanner) (schema.Insight, error) {
	var in schema.Insight
	var kind, severity string
	var subjectKey, description sql.NullString
	var value sql.NullFloat64
	var createdAt, lastSeenAt int64
	var resolvedAt sql.NullInt64
	if err := row.Scan(&in.ID, &in.InsightType, &kind, &in.Subject.ID, &subjectKey, &in.Title, &description,
		&severity, &in.RuleID, &value, &in.IsResolved, &createdAt, &lastSeenAt, &resolvedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return in, err
		}
		return in, fmt.Errorf("failed to scan insight: %w", err)
	}
	in.Subject.Kind = schema.SubjectKind(kind)
	in.Subject.Key = subjectKey.String
	in.Description = description.String
	in.Severity = schema.Severity(severity)
	in.Value = floatPtr(value)
	in.CreatedAt = fromNanos(createdAt)
	in.LastSeenAt = fromNanos(lastSeenAt)
	in.ResolvedAt = timePtr(resolvedAt)
	return in, nil
}
