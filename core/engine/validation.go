package engine

import (
	"fmt"
	"strings"

	"github.com/huangsam/pmoinsight/core/metrics"
	"github.com/huangsam/pmoinsight/schema"
)

// fieldValue is one entity's value for a validated field. For numeric
// fields num is set and present means non-zero; text fields only use present.
type fieldValue struct {
	subject schema.Subject
	present bool
	num     *float64
}

// fieldValues extracts field from every entity of its kind.
func fieldValues(snap *schema.Snapshot, field string) []fieldValue {
	var out []fieldValue
	switch field {
	case "project.owner", "project.end_date":
		for _, p := range snap.Projects {
			present := strings.TrimSpace(p.Owner) != ""
			if field == "project.end_date" {
				present = !p.EndDate.IsZero()
			}
			out = append(out, fieldValue{
				subject: schema.Subject{Kind: schema.ProjectSubject, ID: p.ID, Key: p.Code},
				present: present,
			})
		}
	case "user_story.plan_estimate", "user_story.team_id", "user_story.sprint_id":
		for _, us := range snap.UserStories {
			fv := fieldValue{subject: schema.Subject{Kind: schema.UserStorySubject, ID: us.ID, Key: us.FormattedID}}
			switch field {
			case "user_story.plan_estimate":
				fv.present = us.PlanEstimate != 0
				fv.num = schema.FloatPtr(us.PlanEstimate)
			case "user_story.team_id":
				fv.present = us.TeamID != 0
			case "user_story.sprint_id":
				fv.present = us.SprintID != 0
			}
			out = append(out, fv)
		}
	case "team_member.allocation":
		for _, m := range snap.TeamMembers {
			out = append(out, fieldValue{
				subject: schema.Subject{Kind: schema.TeamMemberSubject, ID: m.ID, Key: m.Name},
				present: m.Allocation != 0,
				num:     schema.FloatPtr(m.Allocation),
			})
		}
	case "timesheet_entry.hours":
		for _, te := range snap.TimesheetEntries {
			key := strings.TrimSpace(te.ResourceName + " " + te.WeekStart.String())
			out = append(out, fieldValue{
				subject: schema.Subject{Kind: schema.TimesheetEntrySubject, ID: te.ID, Key: key},
				present: te.Hours != 0,
				num:     schema.FloatPtr(te.Hours),
			})
		}
	}
	return out
}

// evaluateValidation emits one finding per entity violating the rule.
func evaluateValidation(ix *metrics.Index, rule schema.Rule, p schema.ValidationParams) ruleOutput {
	var out ruleOutput
	name := p.Field[strings.IndexByte(p.Field, '.')+1:]

	for _, fv := range fieldValues(ix.Snapshot(), p.Field) {
		label := fv.subject.Key
		if label == "" {
			label = fv.subject.String()
		}

		var title, desc string
		switch {
		case p.Required && !fv.present:
			title = fmt.Sprintf("Missing %s on %s", name, label)
			desc = fmt.Sprintf("%s is required per rule %q", p.Field, rule.Name)
		case fv.num != nil && p.Min != nil && *fv.num < *p.Min:
			title = fmt.Sprintf("%s below minimum on %s", name, label)
			desc = fmt.Sprintf("%s is %g, minimum is %g per rule %q", p.Field, *fv.num, *p.Min, rule.Name)
		case fv.num != nil && p.Max != nil && *fv.num > *p.Max:
			title = fmt.Sprintf("%s above maximum on %s", name, label)
			desc = fmt.Sprintf("%s is %g, maximum is %g per rule %q", p.Field, *fv.num, *p.Max, rule.Name)
		default:
			continue
		}

		out.findings = append(out.findings, schema.Finding{
			InsightType: p.InsightType(),
			Subject:     fv.subject,
			Title:       title,
			Description: desc,
			Severity:    p.EffectiveSeverity(),
			RuleID:      rule.ID,
			Priority:    rule.Priority,
			Value:       fv.num,
		})
	}
	return out
}
