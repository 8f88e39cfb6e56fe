package schema

import "fmt"

// ValidateSnapshot checks the structural invariants a snapshot must hold
// before it is stored: unique ids per entity kind, non-negative estimates
// and hours, allocations within [0, 1] and at most one active sprint per team.
func ValidateSnapshot(s *Snapshot) error {
	if s == nil {
		return NewValidationError("snapshot", "is required")
	}

	check := func(kind string, ids []int64) error {
		seen := make(map[int64]bool, len(ids))
		for i, id := range ids {
			if id <= 0 {
				return NewValidationError(fmt.Sprintf("%s[%d].id", kind, i), "must be positive (received %d)", id)
			}
			if seen[id] {
				return NewValidationError(fmt.Sprintf("%s[%d].id", kind, i), "duplicate id %d", id)
			}
			seen[id] = true
		}
		return nil
	}

	if err := check("projects", collectIDs(s.Projects, func(p Project) int64 { return p.ID })); err != nil {
		return err
	}
	if err := check("sprints", collectIDs(s.Sprints, func(p Sprint) int64 { return p.ID })); err != nil {
		return err
	}
	if err := check("teams", collectIDs(s.Teams, func(p Team) int64 { return p.ID })); err != nil {
		return err
	}
	if err := check("team_members", collectIDs(s.TeamMembers, func(p TeamMember) int64 { return p.ID })); err != nil {
		return err
	}
	if err := check("epics", collectIDs(s.Epics, func(p Epic) int64 { return p.ID })); err != nil {
		return err
	}
	if err := check("features", collectIDs(s.Features, func(p Feature) int64 { return p.ID })); err != nil {
		return err
	}
	if err := check("user_stories", collectIDs(s.UserStories, func(p UserStory) int64 { return p.ID })); err != nil {
		return err
	}
	if err := check("timesheet_entries", collectIDs(s.TimesheetEntries, func(p TimesheetEntry) int64 { return p.ID })); err != nil {
		return err
	}

	for i, us := range s.UserStories {
		if us.PlanEstimate < 0 {
			return NewValidationError(fmt.Sprintf("user_stories[%d].plan_estimate", i), "must not be negative (received %g)", us.PlanEstimate)
		}
	}
	for i, te := range s.TimesheetEntries {
		if te.Hours < 0 {
			return NewValidationError(fmt.Sprintf("timesheet_entries[%d].hours", i), "must not be negative (received %g)", te.Hours)
		}
	}
	for i, m := range s.TeamMembers {
		if m.Allocation < 0 || m.Allocation > 1 {
			return NewValidationError(fmt.Sprintf("team_members[%d].allocation", i), "must be between 0 and 1 (received %g)", m.Allocation)
		}
	}

	activeByTeam := map[int64]string{}
	for i, sp := range s.Sprints {
		if !sp.IsActive || sp.TeamID == 0 {
			continue
		}
		if other, ok := activeByTeam[sp.TeamID]; ok {
			return NewValidationError(fmt.Sprintf("sprints[%d].is_active", i), "team %d already has active sprint %q", sp.TeamID, other)
		}
		activeByTeam[sp.TeamID] = sp.Name
	}
	return nil
}

func collectIDs[T any](items []T, id func(T) int64) []int64 {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = id(item)
	}
	return ids
}
