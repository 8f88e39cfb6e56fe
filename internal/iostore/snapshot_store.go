package iostore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/pmoinsight/schema"
)

// ReplaceSnapshot validates snap and swaps it in for the stored snapshot in a
// single transaction. Readers see either the old or the new snapshot.
func (s *SQLStore) ReplaceSnapshot(ctx context.Context, snap *schema.Snapshot) error {
	if err := schema.ValidateSnapshot(snap); err != nil {
		return err
	}
	asOf := snap.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		// --- 1. Clear previous snapshot ---
		for _, table := range snapshotTables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		// --- 2. Insert entities ---
		exec := func(table, columns, marks string, rows int, args func(i int) []any) error {
			query := s.rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, columns, marks))
			for i := range rows {
				if _, err := tx.ExecContext(ctx, query, args(i)...); err != nil {
					return fmt.Errorf("failed to insert into %s: %w", table, err)
				}
			}
			return nil
		}

		if err := exec(projectsTable, "id, code, name, theme, owner, status, start_date, end_date", "?, ?, ?, ?, ?, ?, ?, ?",
			len(snap.Projects), func(i int) []any {
				p := snap.Projects[i]
				return []any{p.ID, p.Code, p.Name, p.Theme, p.Owner, p.Status, dateArg(p.StartDate), dateArg(p.EndDate)}
			}); err != nil {
			return err
		}
		if err := exec(sprintsTable, "id, name, release_name, team_id, project_id, start_date, end_date, is_active", "?, ?, ?, ?, ?, ?, ?, ?",
			len(snap.Sprints), func(i int) []any {
				sp := snap.Sprints[i]
				return []any{sp.ID, sp.Name, sp.Release, sp.TeamID, sp.ProjectID, dateArg(sp.StartDate), dateArg(sp.EndDate), sp.IsActive}
			}); err != nil {
			return err
		}
		if err := exec(teamsTable, "id, name, description", "?, ?, ?",
			len(snap.Teams), func(i int) []any {
				t := snap.Teams[i]
				return []any{t.ID, t.Name, t.Description}
			}); err != nil {
			return err
		}
		if err := exec(teamMembersTable, "id, team_id, name, email, role, allocation, is_active", "?, ?, ?, ?, ?, ?, ?",
			len(snap.TeamMembers), func(i int) []any {
				m := snap.TeamMembers[i]
				return []any{m.ID, m.TeamID, m.Name, m.Email, m.Role, m.Allocation, m.IsActive}
			}); err != nil {
			return err
		}
		if err := exec(epicsTable, "id, formatted_id, name, project_id, status", "?, ?, ?, ?, ?",
			len(snap.Epics), func(i int) []any {
				e := snap.Epics[i]
				return []any{e.ID, e.FormattedID, e.Name, e.ProjectID, e.Status}
			}); err != nil {
			return err
		}
		if err := exec(featuresTable, "id, formatted_id, name, epic_id, status", "?, ?, ?, ?, ?",
			len(snap.Features), func(i int) []any {
				f := snap.Features[i]
				return []any{f.ID, f.FormattedID, f.Name, f.EpicID, f.Status}
			}); err != nil {
			return err
		}
		if err := exec(userStoriesTable, "id, formatted_id, name, feature_id, team_id, sprint_id, plan_estimate, status, completed", "?, ?, ?, ?, ?, ?, ?, ?, ?",
			len(snap.UserStories), func(i int) []any {
				us := snap.UserStories[i]
				return []any{us.ID, us.FormattedID, us.Name, us.FeatureID, us.TeamID, us.SprintID, us.PlanEstimate, us.Status, us.Completed}
			}); err != nil {
			return err
		}
		if err := exec(timesheetTable, "id, team_id, project_id, resource_name, week_start, hours", "?, ?, ?, ?, ?, ?",
			len(snap.TimesheetEntries), func(i int) []any {
				te := snap.TimesheetEntries[i]
				return []any{te.ID, te.TeamID, te.ProjectID, te.ResourceName, dateArg(te.WeekStart), te.Hours}
			}); err != nil {
			return err
		}

		// --- 3. Record snapshot metadata ---
		return exec(snapshotMetaTable, "id, as_of, loaded_at", "?, ?, ?", 1, func(int) []any {
			return []any{1, toNanos(asOf), toNanos(time.Now().UTC())}
		})
	})
}

// LoadSnapshot reads the stored snapshot. An empty store yields an empty
// snapshot. ctx bounds every query, so a deadline turns a slow database into
// an error rather than a partial snapshot.
func (s *SQLStore) LoadSnapshot(ctx context.Context) (*schema.Snapshot, error) {
	snap := &schema.Snapshot{}

	// One transaction gives a consistent view against a concurrent ReplaceSnapshot
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot read: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var asOf int64
	err = tx.QueryRowContext(ctx, "SELECT as_of FROM "+snapshotMetaTable+" WHERE id = 1").Scan(&asOf)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to read snapshot metadata: %w", err)
	default:
		snap.AsOf = fromNanos(asOf)
	}

	var loadErr error
	load := func(table, columns string, scan func(rowScanner) error) {
		if loadErr != nil {
			return
		}
		rows, err := tx.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY id", columns, table))
		if err != nil {
			loadErr = fmt.Errorf("failed to query %s: %w", table, err)
			return
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			if err := scan(rows); err != nil {
				loadErr = fmt.Errorf("failed to scan %s: %w", table, err)
				return
			}
		}
		if err := rows.Err(); err != nil {
			loadErr = fmt.Errorf("error iterating %s: %w", table, err)
		}
	}

	load(projectsTable, "id, code, name, theme, owner, status, start_date, end_date", func(r rowScanner) error {
		var p schema.Project
		var theme, owner, start, end sql.NullString
		if err := r.Scan(&p.ID, &p.Code, &p.Name, &theme, &owner, &p.Status, &start, &end); err != nil {
			return err
		}
		p.Theme, p.Owner = theme.String, owner.String
		var err error
		if p.StartDate, err = scanDate(start); err != nil {
			return err
		}
		if p.EndDate, err = scanDate(end); err != nil {
			return err
		}
		snap.Projects = append(snap.Projects, p)
		return nil
	})
	load(sprintsTable, "id, name, release_name, team_id, project_id, start_date, end_date, is_active", func(r rowScanner) error {
		var sp schema.Sprint
		var release, start, end sql.NullString
		if err := r.Scan(&sp.ID, &sp.Name, &release, &sp.TeamID, &sp.ProjectID, &start, &end, &sp.IsActive); err != nil {
			return err
		}
		sp.Release = release.String
		var err error
		if sp.StartDate, err = scanDate(start); err != nil {
			return err
		}
		if sp.EndDate, err = scanDate(end); err != nil {
			return err
		}
		snap.Sprints = append(snap.Sprints, sp)
		return nil
	})
	load(teamsTable, "id, name, description", func(r rowScanner) error {
		var t schema.Team
		var desc sql.NullString
		if err := r.Scan(&t.ID, &t.Name, &desc); err != nil {
			return err
		}
		t.Description = desc.String
		snap.Teams = append(snap.Teams, t)
		return nil
	})
	load(teamMembersTable, "id, team_id, name, email, role, allocation, is_active", func(r rowScanner) error {
		var m schema.TeamMember
		var email, role sql.NullString
		if err := r.Scan(&m.ID, &m.TeamID, &m.Name, &email, &role, &m.Allocation, &m.IsActive); err != nil {
			return err
		}
		m.Email, m.Role = email.String, role.String
		snap.TeamMembers = append(snap.TeamMembers, m)
		return nil
	})
	load(epicsTable, "id, formatted_id, name, project_id, status", func(r rowScanner) error {
		var e schema.Epic
		var status sql.NullString
		if err := r.Scan(&e.ID, &e.FormattedID, &e.Name, &e.ProjectID, &status); err != nil {
			return err
		}
		e.Status = status.String
		snap.Epics = append(snap.Epics, e)
		return nil
	})
	load(featuresTable, "id, formatted_id, name, epic_id, status", func(r rowScanner) error {
		var f schema.Feature
		var status sql.NullString
		if err := r.Scan(&f.ID, &f.FormattedID, &f.Name, &f.EpicID, &status); err != nil {
			return err
		}
		f.Status = status.String
		snap.Features = append(snap.Features, f)
		return nil
	})
	load(userStoriesTable, "id, formatted_id, name, feature_id, team_id, sprint_id, plan_estimate, status, completed", func(r rowScanner) error {
		var us schema.UserStory
		var status sql.NullString
		if err := r.Scan(&us.ID, &us.FormattedID, &us.Name, &us.FeatureID, &us.TeamID, &us.SprintID,
			&us.PlanEstimate, &status, &us.Completed); err != nil {
			return err
		}
		us.Status = status.String
		snap.UserStories = append(snap.UserStories, us)
		return nil
	})
	load(timesheetTable, "id, team_id, project_id, resource_name, week_start, hours", func(r rowScanner) error {
		var te schema.TimesheetEntry
		var week sql.NullString
		if err := r.Scan(&te.ID, &te.TeamID, &te.ProjectID, &te.ResourceName, &week, &te.Hours); err != nil {
			return err
		}
		var err error
		if te.WeekStart, err = scanDate(week); err != nil {
			return err
		}
		snap.TimesheetEntries = append(snap.TimesheetEntries, te)
		return nil
	})

	if loadErr != nil {
		return nil, loadErr
	}
	return snap, nil
}
