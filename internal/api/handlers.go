package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/huangsam/pmoinsight/core"
	"github.com/huangsam/pmoinsight/schema"
)

// Default page size for list endpoints.
const defaultLimit = 100

// Handlers adapts HTTP requests onto the core service.
type Handlers struct {
	log zerolog.Logger
	svc *core.Service
}

// NewHandlers returns handlers bound to svc.
func NewHandlers(log zerolog.Logger, svc *core.Service) *Handlers {
	return &Handlers{log: log, svc: svc}
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// DashboardSummary serves GET /api/dashboard/summary.
func (h *Handlers) DashboardSummary(c *gin.Context) {
	summary, err := h.svc.DashboardSummary(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ListRules serves GET /api/rules/?rule_type=&active_only=. active_only
// defaults to true.
func (h *Handlers) ListRules(c *gin.Context) {
	ruleType := schema.RuleType(c.Query("rule_type"))
	if ruleType != "" && !schema.ValidRuleTypes[ruleType] {
		_ = c.Error(schema.NewValidationError("rule_type", "unknown rule type %q", ruleType))
		return
	}
	activeOnly, err := boolQuery(c, "active_only", true)
	if err != nil {
		_ = c.Error(err)
		return
	}
	rules, err := h.svc.Rules().ListRules(c.Request.Context(), ruleType, activeOnly)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

// GetRule serves GET /api/rules/:id.
func (h *Handlers) GetRule(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	rule, err := h.svc.Rules().GetRule(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// CreateRule serves POST /api/rules/.
func (h *Handlers) CreateRule(c *gin.Context) {
	var draft schema.RuleDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		_ = c.Error(schema.NewValidationError("body", "%v", err))
		return
	}
	rule, err := h.svc.Rules().CreateRule(c.Request.Context(), draft)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// UpdateRule serves PUT /api/rules/:id.
func (h *Handlers) UpdateRule(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	var draft schema.RuleDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		_ = c.Error(schema.NewValidationError("body", "%v", err))
		return
	}
	rule, err := h.svc.Rules().UpdateRule(c.Request.Context(), id, draft)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// DeleteRule serves DELETE /api/rules/:id.
func (h *Handlers) DeleteRule(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := h.svc.Rules().DeleteRule(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "rule deleted", "id": id})
}

// ListInsights serves GET /api/insights/?insight_type=&resolved=&skip=&limit=.
// resolved defaults to false so the list shows open insights.
func (h *Handlers) ListInsights(c *gin.Context) {
	filter := schema.InsightFilter{InsightType: c.Query("insight_type")}
	resolved, err := boolQuery(c, "resolved", false)
	if err != nil {
		_ = c.Error(err)
		return
	}
	filter.Resolved = &resolved
	skip, limit, err := pageQuery(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	filter.Offset, filter.Limit = skip, limit

	insights, err := h.svc.ListInsights(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, insights)
}

// GenerateList serves GET /api/insights/generate. It runs a generation pass
// and answers with the refreshed open insight list only.
func (h *Handlers) GenerateList(c *gin.Context) {
	res, err := h.svc.Generate(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res.Insights)
}

// Generate serves POST /api/insights/generate with the run record included.
func (h *Handlers) Generate(c *gin.Context) {
	res, err := h.svc.Generate(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ResolveInsight serves PATCH /api/insights/:id/resolve.
func (h *Handlers) ResolveInsight(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	insight, err := h.svc.Resolve(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, insight)
}

// ListProjects serves GET /api/projects/?skip=&limit=.
func (h *Handlers) ListProjects(c *gin.Context) {
	skip, limit, err := pageQuery(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	projects, err := h.svc.ListProjects(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	projects = projects[min(skip, len(projects)):]
	projects = projects[:min(limit, len(projects))]
	c.JSON(http.StatusOK, projects)
}

// GetProject serves GET /api/projects/:id.
func (h *Handlers) GetProject(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	project, err := h.svc.GetProject(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// ProjectSummary serves GET /api/projects/:id/summary.
func (h *Handlers) ProjectSummary(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	summary, err := h.svc.ProjectSummary(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ReplaceSnapshot serves POST /api/snapshot, the write side used by the
// upload pipeline.
func (h *Handlers) ReplaceSnapshot(c *gin.Context) {
	var snap schema.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		_ = c.Error(schema.NewValidationError("body", "%v", err))
		return
	}
	if err := h.svc.ReplaceSnapshot(c.Request.Context(), &snap); err != nil {
		_ = c.Error(err)
		return
	}
	h.log.Info().Time("as_of", snap.AsOf).Int("projects", len(snap.Projects)).Msg("snapshot replaced")
	c.JSON(http.StatusOK, gin.H{
		"as_of":             snap.AsOf,
		"projects":          len(snap.Projects),
		"sprints":           len(snap.Sprints),
		"teams":             len(snap.Teams),
		"user_stories":      len(snap.UserStories),
		"timesheet_entries": len(snap.TimesheetEntries),
	})
}

func idParam(c *gin.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, schema.NewValidationError("id", "must be a positive integer (received %q)", raw)
	}
	return id, nil
}

func boolQuery(c *gin.Context, key string, def bool) (bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, schema.NewValidationError(key, "must be a boolean (received %q)", raw)
	}
	return v, nil
}

func pageQuery(c *gin.Context) (skip, limit int, err error) {
	skip, limit = 0, defaultLimit
	if raw := c.Query("skip"); raw != "" {
		if skip, err = strconv.Atoi(raw); err != nil || skip < 0 {
			return 0, 0, schema.NewValidationError("skip", "must be a non-negative integer (received %q)", raw)
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 {
			return 0, 0, schema.NewValidationError("limit", "must be a positive integer (received %q)", raw)
		}
	}
	return skip, limit, nil
}
