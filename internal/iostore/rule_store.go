package iostore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/pmoinsight/internal/contract"
	"github.com/huangsam/pmoinsight/schema"
)

const ruleColumns = "id, name, description, rule_type, parameters, is_active, priority, created_at, updated_at"

// errUndecodableRule marks a stored row whose parameters no longer decode.
var errUndecodableRule = errors.New("undecodable rule parameters")

// ListRules returns rules ordered by priority then id.
func (s *SQLStore) ListRules(ctx context.Context, ruleType schema.RuleType, activeOnly bool) ([]schema.Rule, error) {
	var where []string
	var args []any
	if ruleType != "" {
		where = append(where, "rule_type = ?")
		args = append(args, string(ruleType))
	}
	if activeOnly {
		where = append(where, "is_active = ?")
		args = append(args, true)
	}

	query := fmt.Sprintf("SELECT %s FROM %s", ruleColumns, rulesTable)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY priority, id"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	rules := []schema.Rule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if errors.Is(err, errUndecodableRule) {
			contract.LogWarn("Skipping stored rule", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return rules, nil
}

// GetRule returns one rule or schema.ErrNotFound.
func (s *SQLStore) GetRule(ctx context.Context, id int64) (schema.Rule, error) {
	return s.getRule(ctx, s.db, id)
}

func (s *SQLStore) getRule(ctx context.Context, q queryer, id int64) (schema.Rule, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", ruleColumns, rulesTable)
	rule, err := scanRule(q.QueryRowContext(ctx, s.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Rule{}, fmt.Errorf("rule %d: %w", id, schema.ErrNotFound)
	}
	return rule, err
}

// CreateRule validates and inserts a rule.
func (s *SQLStore) CreateRule(ctx context.Context, draft schema.RuleDraft) (schema.Rule, error) {
	params, err := schema.ValidateDraft(draft)
	if err != nil {
		return schema.Rule{}, err
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return schema.Rule{}, fmt.Errorf("failed to marshal rule parameters: %w", err)
	}

	now := time.Now().UTC()
	query := fmt.Sprintf(`INSERT INTO %s (name, description, rule_type, parameters, is_active, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, rulesTable)
	id, err := s.insertReturningID(ctx, s.db, query,
		strings.TrimSpace(draft.Name), draft.Description, string(draft.RuleType), string(raw),
		draft.Active(), draft.Priority, toNanos(now), toNanos(now))
	if err != nil {
		return schema.Rule{}, fmt.Errorf("failed to insert rule: %w", err)
	}
	return s.GetRule(ctx, id)
}

// UpdateRule replaces every field of an existing rule.
func (s *SQLStore) UpdateRule(ctx context.Context, id int64, draft schema.RuleDraft) (schema.Rule, error) {
	params, err := schema.ValidateDraft(draft)
	if err != nil {
		return schema.Rule{}, err
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return schema.Rule{}, fmt.Errorf("failed to marshal rule parameters: %w", err)
	}

	var updated schema.Rule
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		// An undecodable row can still be overwritten
		if _, err := s.getRule(ctx, tx, id); err != nil && !errors.Is(err, errUndecodableRule) {
			return err
		}
		query := fmt.Sprintf(`UPDATE %s SET name = ?, description = ?, rule_type = ?, parameters = ?,
			is_active = ?, priority = ?, updated_at = ? WHERE id = ?`, rulesTable)
		if _, err := tx.ExecContext(ctx, s.rebind(query),
			strings.TrimSpace(draft.Name), draft.Description, string(draft.RuleType), string(raw),
			draft.Active(), draft.Priority, toNanos(time.Now().UTC()), id); err != nil {
			return fmt.Errorf("failed to update rule %d: %w", id, err)
		}
		updated, err = s.getRule(ctx, tx, id)
		return err
	})
	return updated, err
}

// DeleteRule removes a rule. Insights it produced are kept.
func (s *SQLStore) DeleteRule(ctx context.Context, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", rulesTable)
	result, err := s.db.ExecContext(ctx, s.rebind(query), id)
	if err != nil {
		return fmt.Errorf("failed to delete rule %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete rule %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("rule %d: %w", id, schema.ErrNotFound)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (schema.Rule, error) {
	var rule schema.Rule
	var ruleType, params string
	var createdAt, updatedAt int64
	if err := row.Scan(&rule.ID, &rule.Name, &rule.Description, &ruleType, &params,
		&rule.IsActive, &rule.Priority, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rule, err
		}
		return rule, fmt.Errorf("failed to scan rule: %w", err)
	}
	rule.RuleType = schema.RuleType(ruleType)
	decoded, err := schema.DecodeStoredParameters(rule.RuleType, json.RawMessage(params))
	if err != nil {
		return rule, fmt.Errorf("rule %d: %w: %w", rule.ID, errUndecodableRule, err)
	}
	rule.Parameters = decoded
	rule.CreatedAt = fromNanos(createdAt)
	rule.UpdatedAt = fromNanos(updatedAt)
	return rule, nil
}
