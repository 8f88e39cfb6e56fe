// Package metrics computes the built-in derived metrics over an immutable
// snapshot. Every lookup is precomputed once per snapshot in an Index.
package metrics

import (
	"cmp"
	"slices"

	"github.com/huangsam/pmoinsight/schema"
)

// Index holds the lookups the metric catalog needs. It never mutates the
// snapshot it was built from and is safe for concurrent reads.
type Index struct {
	snap *schema.Snapshot
	asOf schema.Date

	projects map[int64]schema.Project
	teams    map[int64]schema.Team
	sprints  map[int64]schema.Sprint

	// storiesByProject follows story -> feature -> epic -> project.
	storiesByProject map[int64][]schema.UserStory
	epicsByProject   map[int64]int
	featuresByProj   map[int64]int
	storiesBySprint  map[int64][]schema.UserStory

	entriesByProject map[int64][]schema.TimesheetEntry
	entriesByTeam    map[int64][]schema.TimesheetEntry
	membersByTeam    map[int64][]schema.TeamMember
	sprintsByTeam    map[int64][]schema.Sprint
}

// NewIndex builds an Index over snap.
func NewIndex(snap *schema.Snapshot) *Index {
	if snap == nil {
		snap = &schema.Snapshot{}
	}
	ix := &Index{
		snap:             snap,
		projects:         make(map[int64]schema.Project, len(snap.Projects)),
		teams:            make(map[int64]schema.Team, len(snap.Teams)),
		sprints:          make(map[int64]schema.Sprint, len(snap.Sprints)),
		storiesByProject: map[int64][]schema.UserStory{},
		epicsByProject:   map[int64]int{},
		featuresByProj:   map[int64]int{},
		storiesBySprint:  map[int64][]schema.UserStory{},
		entriesByProject: map[int64][]schema.TimesheetEntry{},
		entriesByTeam:    map[int64][]schema.TimesheetEntry{},
		membersByTeam:    map[int64][]schema.TeamMember{},
		sprintsByTeam:    map[int64][]schema.Sprint{},
	}
	if !snap.AsOf.IsZero() {
		ix.asOf = schema.DateOf(snap.AsOf)
	}

	for _, p := range snap.Projects {
		ix.projects[p.ID] = p
	}
	for _, t := range snap.Teams {
		ix.teams[t.ID] = t
	}
	for _, s := range snap.Sprints {
		ix.sprints[s.ID] = s
		if s.TeamID != 0 {
			ix.sprintsByTeam[s.TeamID] = append(ix.sprintsByTeam[s.TeamID], s)
		}
	}

	epicProject := make(map[int64]int64, len(snap.Epics))
	for _, e := range snap.Epics {
		epicProject[e.ID] = e.ProjectID
		ix.epicsByProject[e.ProjectID]++
	}
	featureProject := make(map[int64]int64, len(snap.Features))
	for _, f := range snap.Features {
		pid := epicProject[f.EpicID]
		featureProject[f.ID] = pid
		ix.featuresByProj[pid]++
	}
	for _, us := range snap.UserStories {
		if pid, ok := featureProject[us.FeatureID]; ok && pid != 0 {
			ix.storiesByProject[pid] = append(ix.storiesByProject[pid], us)
		}
		if us.SprintID != 0 {
			ix.storiesBySprint[us.SprintID] = append(ix.storiesBySprint[us.SprintID], us)
		}
	}

	for _, te := range snap.TimesheetEntries {
		if te.ProjectID != 0 {
			ix.entriesByProject[te.ProjectID] = append(ix.entriesByProject[te.ProjectID], te)
		}
		ix.entriesByTeam[te.TeamID] = append(ix.entriesByTeam[te.TeamID], te)
	}
	for _, m := range snap.TeamMembers {
		ix.membersByTeam[m.TeamID] = append(ix.membersByTeam[m.TeamID], m)
	}
	return ix
}

// Snapshot returns the indexed snapshot. Callers must not modify it.
func (ix *Index) Snapshot() *schema.Snapshot { return ix.snap }

// Project returns the project with id.
func (ix *Index) Project(id int64) (schema.Project, bool) {
	p, ok := ix.projects[id]
	return p, ok
}

// Subjects lists every subject of kind in id order.
func (ix *Index) Subjects(kind schema.SubjectKind) []schema.Subject {
	var subjects []schema.Subject
	switch kind {
	case schema.ProjectSubject:
		for _, p := range ix.snap.Projects {
			subjects = append(subjects, schema.Subject{Kind: kind, ID: p.ID, Key: p.Code})
		}
	case schema.TeamSubject:
		for _, t := range ix.snap.Teams {
			subjects = append(subjects, schema.Subject{Kind: kind, ID: t.ID, Key: t.Name})
		}
	}
	slices.SortFunc(subjects, func(a, b schema.Subject) int { return cmp.Compare(a.ID, b.ID) })
	return subjects
}

// ProjectRollup sums a project's work hierarchy and logged time.
type ProjectRollup struct {
	Epics           int
	Features        int
	Stories         int
	TotalPoints     float64
	CompletedPoints float64
	LoggedHours     float64
}

// CompletionPct is completed / total points, 0 when the project has no points.
func (r ProjectRollup) CompletionPct() float64 {
	if r.TotalPoints == 0 {
		return 0
	}
	return r.CompletedPoints / r.TotalPoints * 100
}

// RemainingPoints is the estimate not yet completed.
func (r ProjectRollup) RemainingPoints() float64 {
	return r.TotalPoints - r.CompletedPoints
}

// Rollup returns the rollup for project id.
func (ix *Index) Rollup(projectID int64) ProjectRollup {
	r := ProjectRollup{
		Epics:    ix.epicsByProject[projectID],
		Features: ix.featuresByProj[projectID],
	}
	for _, us := range ix.storiesByProject[projectID] {
		r.Stories++
		r.TotalPoints += us.PlanEstimate
		if us.Completed {
			r.CompletedPoints += us.PlanEstimate
		}
	}
	for _, te := range ix.entriesByProject[projectID] {
		r.LoggedHours += te.Hours
	}
	return r
}

// ActiveSprint returns the team's active sprint, falling back to an active
// organization-wide sprint.
func (ix *Index) ActiveSprint(teamID int64) (schema.Sprint, bool) {
	for _, s := range ix.sprintsByTeam[teamID] {
		if s.IsActive {
			return s, true
		}
	}
	var org []schema.Sprint
	for _, s := range ix.snap.Sprints {
		if s.IsActive && s.TeamID == 0 && s.ProjectID == 0 {
			org = append(org, s)
		}
	}
	if len(org) == 0 {
		return schema.Sprint{}, false
	}
	slices.SortFunc(org, func(a, b schema.Sprint) int { return cmp.Compare(a.ID, b.ID) })
	return org[0], true
}

// CompletedSprints returns the team's finished sprints, oldest first. A
// sprint is finished when it is inactive and ended on or before the
// snapshot date.
func (ix *Index) CompletedSprints(teamID int64) []schema.Sprint {
	var done []schema.Sprint
	for _, s := range ix.sprintsByTeam[teamID] {
		if s.IsActive || s.EndDate.IsZero() {
			continue
		}
		if !ix.asOf.IsZero() && s.EndDate.After(ix.asOf.Time) {
			continue
		}
		done = append(done, s)
	}
	slices.SortFunc(done, compareSprintsByEnd)
	return done
}

// CompletedPoints sums the points of completed stories in a sprint.
func (ix *Index) CompletedPoints(sprintID int64) float64 {
	var total float64
	for _, us := range ix.storiesBySprint[sprintID] {
		if us.Completed {
			total += us.PlanEstimate
		}
	}
	return total
}

func compareSprintsByEnd(a, b schema.Sprint) int {
	if c := a.EndDate.Compare(b.EndDate.Time); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
