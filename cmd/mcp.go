package cmd

import (
	"github.com/spf13/cobra"

	"github.com/huangsam/pmoinsight/internal/mcp"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the pmoinsight MCP server",
	Long:  `Launch an MCP server over stdio so a chat assistant can query summaries, insights and rules, and trigger generation.`,
	// Logs go to stderr; stdio carries the protocol.
	PreRunE: sharedSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(svc, appLog)
	},
}
