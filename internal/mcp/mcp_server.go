// Package mcp provides the Model Context Protocol (MCP) server implementation.
// It is the read and command interface the chat adapter phrases answers from.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/huangsam/pmoinsight/core"
)

// NewMCPServer initializes and configures the pmoinsight MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(svc *core.Service, log zerolog.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"PMO Insight Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{svc: svc, log: log}

	// --- 1. Tool: get_dashboard_summary ---
	s.AddTool(mcp.NewTool("get_dashboard_summary",
		mcp.WithDescription("Summarize projects, sprints, teams, story points and open insight counts by type."),
	), h.handleDashboardSummary)

	// --- 2. Tool: list_insights ---
	s.AddTool(mcp.NewTool("list_insights",
		mcp.WithDescription("List stored insights, newest first."),
		mcp.WithString("insight_type", mcp.Description("Only return insights of this type, e.g. budget_overrun.")),
		mcp.WithBoolean("resolved", mcp.Description("true for resolved insights, false for open ones. Omit for both.")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of insights to return (default 100).")),
	), h.handleListInsights)

	// --- 3. Tool: generate_insights ---
	s.AddTool(mcp.NewTool("generate_insights",
		mcp.WithDescription("Run a generation pass over the current snapshot and return the open insights."),
	), h.handleGenerateInsights)

	// --- 4. Tool: list_rules ---
	s.AddTool(mcp.NewTool("list_rules",
		mcp.WithDescription("List business rules in evaluation order (priority, then id)."),
		mcp.WithString("rule_type", mcp.Description("Only return rules of this type."),
			mcp.Enum("conversion", "validation", "alert", "calculation")),
		mcp.WithBoolean("active_only", mcp.Description("Only return active rules (default true).")),
	), h.handleListRules)

	// --- 5. Tool: get_project_summary ---
	s.AddTool(mcp.NewTool("get_project_summary",
		mcp.WithDescription("Roll up one project's epics, features, stories, completion, logged hours and open insights."),
		mcp.WithNumber("project_id", mcp.Description("The project id."), mcp.Required()),
	), h.handleProjectSummary)

	return s
}

// StartMCPServer serves the pmoinsight MCP server over stdio.
func StartMCPServer(svc *core.Service, log zerolog.Logger) error {
	return server.ServeStdio(NewMCPServer(svc, log))
}
