package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/history"
)

// HistoryTool handles the idpf_history MCP tool.
type HistoryTool struct {
	workspace WorkspaceFunc
}

// NewHistoryTool creates a HistoryTool.
func NewHistoryTool(ws WorkspaceFunc) *HistoryTool {
	return &HistoryTool{workspace: ws}
}

// Definition returns the MCP tool definition for registration.
func (t *HistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("idpf_history",
		mcp.WithDescription(
			"Show recorded deployments. Without arguments, lists recent runs. "+
				"With `run_id`, shows one run's files and warnings. "+
				"With `orphans_path`, shows the content of extension blocks an upgrade had no place for, "+
				"so they can be pasted back.",
		),
		mcp.WithString("run_id",
			mcp.Description("Run ID or unique prefix to inspect"),
		),
		mcp.WithString("orphans_path",
			mcp.Description("Project-relative file path whose orphaned blocks to show; use \"*\" for all files"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum runs to list (default: 10)"),
		),
	)
}

// Handle processes the idpf_history tool call.
func (t *HistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := req.GetString("run_id", "")
	orphansPath := req.GetString("orphans_path", "")
	limit := intArg(req, "limit", 10)

	if runID != "" && orphansPath != "" {
		return mcp.NewToolResultError("Pass either `run_id` or `orphans_path`, not both."), nil
	}

	ws, err := t.workspace()
	if err != nil {
		return nil, fmt.Errorf("resolving project: %w", err)
	}
	store, err := ws.History()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Deployment history unavailable: %v", err)), nil
	}
	defer func() { _ = store.Close() }()

	switch {
	case runID != "":
		run, err := store.GetRun(runID)
		if errors.Is(err, history.ErrRunNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Run %q not found. Call `idpf_history` without arguments to list runs.", runID)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(runDetailMarkdown(run)), nil

	case orphansPath != "":
		path := orphansPath
		if path == "*" {
			path = ""
		}
		blocks, err := store.OrphanedBlocks(path)
		if err != nil {
			return nil, fmt.Errorf("loading orphaned blocks: %w", err)
		}
		return mcp.NewToolResultText(orphansMarkdown(path, blocks)), nil

	default:
		runs, err := store.ListRuns(limit)
		if err != nil {
			return nil, fmt.Errorf("listing runs: %w", err)
		}
		return mcp.NewToolResultText(runsMarkdown(runs)), nil
	}
}
