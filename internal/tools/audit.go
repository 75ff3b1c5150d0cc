package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// AuditTool handles the idpf_audit MCP tool. It is read-only.
type AuditTool struct {
	workspace WorkspaceFunc
}

// NewAuditTool creates an AuditTool.
func NewAuditTool(ws WorkspaceFunc) *AuditTool {
	return &AuditTool{workspace: ws}
}

// Definition returns the MCP tool definition for registration.
func (t *AuditTool) Definition() mcp.Tool {
	return mcp.NewTool("idpf_audit",
		mcp.WithDescription(
			"Compare the deployed framework files with the manifest and the template source. "+
				"Reports files that are missing, modified, obsolete, outdated, untracked or clean. "+
				"Never writes.",
		),
	)
}

// Handle processes the idpf_audit tool call.
func (t *AuditTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ws, err := t.workspace()
	if err != nil {
		return nil, fmt.Errorf("resolving project: %w", err)
	}

	report, err := ws.Audit()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Audit failed: %v", err)), nil
	}
	return mcp.NewToolResultText(auditMarkdown(report)), nil
}
