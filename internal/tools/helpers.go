// Package tools implements MCP tool handlers for framework deployment.
//
// Each tool receives its dependencies via its struct and returns a handler
// compatible with mcp-go's CallToolRequest signature. User-facing problems
// become tool errors; only unexpected failures are returned as Go errors.
package tools

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/config"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/workspace"
)

// WorkspaceFunc resolves the project a tool call operates on.
type WorkspaceFunc func() (*workspace.Workspace, error)

// Fixed always returns a workspace rooted at root.
func Fixed(root string, logger *zap.Logger) WorkspaceFunc {
	return func() (*workspace.Workspace, error) {
		return workspace.New(root, logger), nil
	}
}

// FromWorkingDir walks up from the current working directory to the
// nearest project with a .idpf/ directory, falling back to the working
// directory itself.
func FromWorkingDir(logger *zap.Logger) WorkspaceFunc {
	return func() (*workspace.Workspace, error) {
		dir, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		return workspace.New(config.FindProjectRoot(dir), logger), nil
	}
}

// truncate shortens s to n runes for inline display.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}
