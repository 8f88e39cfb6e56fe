package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/huangsam/pmoinsight/core"
	"github.com/huangsam/pmoinsight/schema"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	svc *core.Service
	log zerolog.Logger
}

// jsonResult renders v as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// failure turns a service error into a tool error result.
func (h *toolHandler) failure(tool string, err error) (*mcp.CallToolResult, error) {
	h.log.Warn().Err(err).Str("tool", tool).Msg("mcp tool failed")
	switch {
	case errors.Is(err, schema.ErrSnapshotUnavailable):
		return mcp.NewToolResultError(fmt.Sprintf("snapshot unavailable, try again later: %v", err)), nil
	case errors.Is(err, schema.ErrNotFound), schema.IsValidationError(err):
		return mcp.NewToolResultError(err.Error()), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", tool, err)), nil
	}
}

func (h *toolHandler) handleDashboardSummary(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := h.svc.DashboardSummary(ctx)
	if err != nil {
		return h.failure("get_dashboard_summary", err)
	}
	return jsonResult(summary)
}

func (h *toolHandler) handleListInsights(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := schema.InsightFilter{
		InsightType: request.GetString("insight_type", ""),
		Limit:       request.GetInt("limit", 100),
	}
	if filter.Limit <= 0 {
		return mcp.NewToolResultError("limit must be a positive number"), nil
	}
	if _, ok := request.GetArguments()["resolved"]; ok {
		filter.Resolved = schema.BoolPtr(request.GetBool("resolved", false))
	}

	insights, err := h.svc.ListInsights(ctx, filter)
	if err != nil {
		return h.failure("list_insights", err)
	}
	return jsonResult(insights)
}

func (h *toolHandler) handleGenerateInsights(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := h.svc.Generate(ctx)
	if err != nil {
		return h.failure("generate_insights", err)
	}
	return jsonResult(res)
}

func (h *toolHandler) handleListRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ruleType := schema.RuleType(request.GetString("rule_type", ""))
	if ruleType != "" && !schema.ValidRuleTypes[ruleType] {
		return mcp.NewToolResultError(fmt.Sprintf("unknown rule_type %q", ruleType)), nil
	}
	rules, err := h.svc.Rules().ListRules(ctx, ruleType, request.GetBool("active_only", true))
	if err != nil {
		return h.failure("list_rules", err)
	}
	return jsonResult(rules)
}

func (h *toolHandler) handleProjectSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetInt("project_id", 0)
	if id <= 0 {
		return mcp.NewToolResultError("project_id must be a positive number"), nil
	}
	summary, err := h.svc.ProjectSummary(ctx, int64(id))
	if err != nil {
		return h.failure("get_project_summary", err)
	}
	return jsonResult(summary)
}
