// Package schema has models, enums and error types for all parts of pmoinsight.
package schema

import "time"

// Project is the root subject for most insights.
type Project struct {
	ID        int64  `json:"id" yaml:"id"`
	Code      string `json:"code" yaml:"code"`
	Name      string `json:"name" yaml:"name"`
	Theme     string `json:"theme,omitempty" yaml:"theme"`
	Owner     string `json:"owner,omitempty" yaml:"owner"`
	Status    string `json:"status" yaml:"status"`
	StartDate Date   `json:"start_date" yaml:"start_date"`
	EndDate   Date   `json:"end_date" yaml:"end_date"`
}

// Sprint is a time box scoped to a team, a project, or neither
// (an organization-wide cadence) when both ids are zero.
type Sprint struct {
	ID        int64  `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Release   string `json:"release,omitempty" yaml:"release"`
	TeamID    int64  `json:"team_id,omitempty" yaml:"team_id"`
	ProjectID int64  `json:"project_id,omitempty" yaml:"project_id"`
	StartDate Date   `json:"start_date" yaml:"start_date"`
	EndDate   Date   `json:"end_date" yaml:"end_date"`
	IsActive  bool   `json:"is_active" yaml:"is_active"`
}

// Team groups members that log time and deliver stories.
type Team struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// TeamMember belongs to one team. Allocation is the fraction of a full-time
// week the member spends on the team.
type TeamMember struct {
	ID         int64   `json:"id" yaml:"id"`
	TeamID     int64   `json:"team_id" yaml:"team_id"`
	Name       string  `json:"name" yaml:"name"`
	Email      string  `json:"email,omitempty" yaml:"email"`
	Role       string  `json:"role,omitempty" yaml:"role"`
	Allocation float64 `json:"allocation" yaml:"allocation"`
	IsActive   bool    `json:"is_active" yaml:"is_active"`
}

// Epic is the top of the work hierarchy under a project.
type Epic struct {
	ID          int64  `json:"id" yaml:"id"`
	FormattedID string `json:"formatted_id" yaml:"formatted_id"`
	Name        string `json:"name" yaml:"name"`
	ProjectID   int64  `json:"project_id" yaml:"project_id"`
	Status      string `json:"status,omitempty" yaml:"status"`
}

// Feature belongs to an epic.
type Feature struct {
	ID          int64  `json:"id" yaml:"id"`
	FormattedID string `json:"formatted_id" yaml:"formatted_id"`
	Name        string `json:"name" yaml:"name"`
	EpicID      int64  `json:"epic_id" yaml:"epic_id"`
	Status      string `json:"status,omitempty" yaml:"status"`
}

// UserStory is the unit of estimated work. PlanEstimate is in story points.
type UserStory struct {
	ID           int64   `json:"id" yaml:"id"`
	FormattedID  string  `json:"formatted_id" yaml:"formatted_id"`
	Name         string  `json:"name" yaml:"name"`
	FeatureID    int64   `json:"feature_id" yaml:"feature_id"`
	TeamID       int64   `json:"team_id,omitempty" yaml:"team_id"`
	SprintID     int64   `json:"sprint_id,omitempty" yaml:"sprint_id"`
	PlanEstimate float64 `json:"plan_estimate" yaml:"plan_estimate"`
	Status       string  `json:"status,omitempty" yaml:"status"`
	Completed    bool    `json:"completed" yaml:"completed"`
}

// TimesheetEntry records hours a resource logged for a team in a given week.
type TimesheetEntry struct {
	ID           int64   `json:"id" yaml:"id"`
	TeamID       int64   `json:"team_id" yaml:"team_id"`
	ProjectID    int64   `json:"project_id,omitempty" yaml:"project_id"`
	ResourceName string  `json:"resource_name" yaml:"resource_name"`
	WeekStart    Date    `json:"week_start" yaml:"week_start"`
	Hours        float64 `json:"hours" yaml:"hours"`
}

// Snapshot is a point-in-time read view of all tracking data. Engines treat it
// as immutable and never write through it.
type Snapshot struct {
	AsOf             time.Time        `json:"as_of" yaml:"as_of"`
	Projects         []Project        `json:"projects" yaml:"projects"`
	Sprints          []Sprint         `json:"sprints" yaml:"sprints"`
	Teams            []Team           `json:"teams" yaml:"teams"`
	TeamMembers      []TeamMember     `json:"team_members" yaml:"team_members"`
	Epics            []Epic           `json:"epics" yaml:"epics"`
	Features         []Feature        `json:"features" yaml:"features"`
	UserStories      []UserStory      `json:"user_stories" yaml:"user_stories"`
	TimesheetEntries []TimesheetEntry `json:"timesheet_entries" yaml:"timesheet_entries"`
}
