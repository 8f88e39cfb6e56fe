package schema

// DashboardSummary is the aggregate view shown on the dashboard.
type DashboardSummary struct {
	TotalProjects    int            `json:"total_projects"`
	ActiveProjects   int            `json:"active_projects"`
	TotalSprints     int            `json:"total_sprints"`
	ActiveSprint     *string        `json:"active_sprint"`
	TotalTeams       int            `json:"total_teams"`
	TotalTeamMembers int            `json:"total_team_members"`
	TotalUserStories int            `json:"total_user_stories"`
	TotalStoryPoints float64        `json:"total_story_points"`
	InsightsCount    map[string]int `json:"insights_count"`
}

// ProjectSummary rolls up a project's work hierarchy.
type ProjectSummary struct {
	Project              Project `json:"project"`
	TotalEpics           int     `json:"total_epics"`
	TotalFeatures        int     `json:"total_features"`
	TotalUserStories     int     `json:"total_user_stories"`
	TotalStoryPoints     float64 `json:"total_story_points"`
	CompletedStoryPoints float64 `json:"completed_story_points"`
	CompletionPct        float64 `json:"completion_pct"`
	LoggedHours          float64 `json:"logged_hours"`
	OpenInsights         int     `json:"open_insights"`
}
