package metrics

import (
	"slices"

	"github.com/huangsam/pmoinsight/schema"
)

// VelocityWindow is how many recent sprints average into a velocity.
const VelocityWindow = 3

// Params carries the conversion factors in effect for one evaluation tier.
type Params struct {
	HoursPerPoint float64
	HoursPerDay   float64
}

// DefaultParams returns the factors used when no conversion rule applies.
func DefaultParams() Params {
	return Params{HoursPerPoint: schema.DefaultHoursPerPoint, HoursPerDay: schema.DefaultHoursPerDay}
}

// Compute evaluates metric m for subj. The boolean is false when the metric
// is undefined for that subject, which callers treat as a skip.
func (ix *Index) Compute(m schema.Metric, subj schema.Subject, p Params) (float64, bool) {
	if schema.MetricSubjects[m] != subj.Kind {
		return 0, false
	}
	switch subj.Kind {
	case schema.ProjectSubject:
		if _, ok := ix.projects[subj.ID]; !ok {
			return 0, false
		}
		return ix.projectMetric(m, subj.ID, p)
	case schema.TeamSubject:
		if _, ok := ix.teams[subj.ID]; !ok {
			return 0, false
		}
		return ix.teamMetric(m, subj.ID, p)
	default:
		return 0, false
	}
}

func (ix *Index) projectMetric(m schema.Metric, id int64, p Params) (float64, bool) {
	r := ix.Rollup(id)
	budget := r.TotalPoints * p.HoursPerPoint

	switch m {
	case schema.LoggedHours:
		return r.LoggedHours, true
	case schema.BudgetHours:
		return budget, true
	case schema.OverrunHours:
		return r.LoggedHours - budget, true
	case schema.BudgetOverrunPct:
		if budget <= 0 {
			return 0, false
		}
		return (r.LoggedHours - budget) / budget * 100, true
	case schema.CompletionPct:
		return r.CompletionPct(), true
	case schema.RemainingPoints:
		return r.RemainingPoints(), true
	case schema.ForecastSprintsRemaining:
		velocity, ok := ix.projectVelocity(id)
		if !ok {
			return 0, false
		}
		return r.RemainingPoints() / velocity, true
	default:
		return 0, false
	}
}

func (ix *Index) teamMetric(m schema.Metric, id int64, p Params) (float64, bool) {
	switch m {
	case schema.UtilizationPct:
		return ix.utilization(id, p)
	case schema.SprintVelocityDrop:
		done := ix.CompletedSprints(id)
		if len(done) < 2 {
			return 0, false
		}
		previous := ix.CompletedPoints(done[len(done)-2].ID)
		current := ix.CompletedPoints(done[len(done)-1].ID)
		if previous == 0 {
			return 0, false
		}
		return (previous - current) / previous * 100, true
	case schema.AvgVelocity:
		done := ix.CompletedSprints(id)
		if len(done) == 0 {
			return 0, false
		}
		if len(done) > VelocityWindow {
			done = done[len(done)-VelocityWindow:]
		}
		var total float64
		for _, s := range done {
			total += ix.CompletedPoints(s.ID)
		}
		return total / float64(len(done)), true
	default:
		return 0, false
	}
}

// utilization is logged hours in the active sprint over the team's capacity
// for that sprint.
func (ix *Index) utilization(teamID int64, p Params) (float64, bool) {
	sprint, ok := ix.ActiveSprint(teamID)
	if !ok {
		return 0, false
	}

	var allocation float64
	for _, m := range ix.membersByTeam[teamID] {
		if m.IsActive {
			allocation += m.Allocation
		}
	}
	capacity := float64(schema.WorkingDays(sprint.StartDate, sprint.EndDate)) * p.HoursPerDay * allocation
	if capacity <= 0 {
		return 0, false
	}

	var logged float64
	entries := 0
	for _, te := range ix.entriesByTeam[teamID] {
		if te.WeekStart.Between(sprint.StartDate, sprint.EndDate) {
			logged += te.Hours
			entries++
		}
	}
	if entries == 0 {
		return 0, false
	}
	return logged / capacity * 100, true
}

// projectVelocity averages completed points per sprint across the most
// recent sprints in which the project's stories were completed.
func (ix *Index) projectVelocity(projectID int64) (float64, bool) {
	bySprint := map[int64]float64{}
	for _, us := range ix.storiesByProject[projectID] {
		if us.Completed && us.SprintID != 0 {
			if _, ok := ix.sprints[us.SprintID]; ok {
				bySprint[us.SprintID] += us.PlanEstimate
			}
		}
	}
	if len(bySprint) == 0 {
		return 0, false
	}

	sprints := make([]schema.Sprint, 0, len(bySprint))
	for id := range bySprint {
		sprints = append(sprints, ix.sprints[id])
	}
	slices.SortFunc(sprints, compareSprintsByEnd)
	if len(sprints) > VelocityWindow {
		sprints = sprints[len(sprints)-VelocityWindow:]
	}

	var total float64
	for _, s := range sprints {
		total += bySprint[s.ID]
	}
	velocity := total / float64(len(sprints))
	if velocity <= 0 {
		return 0, false
	}
	return velocity, true
}
