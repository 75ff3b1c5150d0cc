package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
)

// DeployTool handles the idpf_deploy MCP tool. Overlapping calls are
// serialized so two runs never interleave on the same project.
type DeployTool struct {
	workspace WorkspaceFunc
	mu        sync.Mutex
}

// NewDeployTool creates a DeployTool.
func NewDeployTool(ws WorkspaceFunc) *DeployTool {
	return &DeployTool{workspace: ws}
}

// Definition returns the MCP tool definition for registration.
func (t *DeployTool) Definition() mcp.Tool {
	return mcp.NewTool("idpf_deploy",
		mcp.WithDescription(
			"Deploy the IDPF framework templates into the project. "+
				"MANAGED files are replaced; EXTENSIBLE files keep the user's extension blocks "+
				"and are archived first when edited outside them. "+
				"Returns every file's action plus all warnings. Use `dry_run` to preview.",
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("If true, computes the outcome without writing anything (default: false)"),
		),
	)
}

// Handle processes the idpf_deploy tool call.
func (t *DeployTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dryRun := boolArg(req, "dry_run", false)

	ws, err := t.workspace()
	if err != nil {
		return nil, fmt.Errorf("resolving project: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	summary, err := ws.Deploy(ctx, dryRun)
	if summary == nil {
		if err == nil {
			err = errors.New("deployment returned no summary")
		}
		return mcp.NewToolResultError(fmt.Sprintf("Deployment could not start: %v", err)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(runMarkdown(summary)), nil
	}
	return mcp.NewToolResultText(runMarkdown(summary)), nil
}
