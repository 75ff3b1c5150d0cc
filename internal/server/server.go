// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the tools, prompts and
// resources and hands them their dependencies. No business logic lives
// here, only wiring.
package server

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/prompts"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/resources"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Deps are the server's dependencies.
type Deps struct {
	// Workspace resolves the project for each call. Nil means the project
	// containing the working directory.
	Workspace tools.WorkspaceFunc
	Logger    *zap.Logger
}

// New creates and configures the MCP server with all tools, prompts and
// resources registered.
func New(deps Deps) *server.MCPServer {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Workspace == nil {
		deps.Workspace = tools.FromWorkingDir(deps.Logger)
	}

	s := server.NewMCPServer(
		"idpf",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register tools ---

	deployTool := tools.NewDeployTool(deps.Workspace)
	s.AddTool(deployTool.Definition(), deployTool.Handle)

	auditTool := tools.NewAuditTool(deps.Workspace)
	s.AddTool(auditTool.Definition(), auditTool.Handle)

	historyTool := tools.NewHistoryTool(deps.Workspace)
	s.AddTool(historyTool.Definition(), historyTool.Handle)

	// --- Register prompts ---

	upgradePrompt := prompts.NewUpgradeReviewPrompt()
	s.AddPrompt(upgradePrompt.Definition(), upgradePrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(deps.Workspace)
	s.AddResource(resourceHandler.ManifestResource(), resourceHandler.HandleManifest)
	s.AddResource(resourceHandler.ConfigResource(), resourceHandler.HandleConfig)

	deps.Logger.Debug("mcp server configured", zap.String("version", Version))
	return s
}

// serverInstructions returns the system instructions that tell the AI
// how to use the server.
func serverInstructions() string {
	return `You have access to idpf, the IDPF framework installer.

## What it does
idpf deploys framework files (rules, commands, CLAUDE.md) from a template
source into the project and keeps them up to date across framework versions.

Every deployed file carries a header:
- <!-- MANAGED -->: owned by the framework. Upgrades replace it. Never edit it.
- <!-- EXTENSIBLE -->: owned by the framework, with extension points.

Users customize EXTENSIBLE files only between extension markers:

    <!-- USER-EXTENSION-START: some-id -->
    ...user content...
    <!-- USER-EXTENSION-END: some-id -->

Content inside these blocks survives every upgrade. Edits outside them are
"rogue edits": the next deploy archives the whole file under
.idpf/archive/ and then replaces it.

## Tools
- idpf_audit: read-only. Shows missing, modified, obsolete, outdated and
  untracked files. Start here.
- idpf_deploy: deploys. Use dry_run=true first and explain the warnings.
- idpf_history: lists past runs, one run's details, or the content of
  orphaned extension blocks (blocks whose id no longer exists in the
  new template).

## Rules
- When a user wants to change a framework file, put the change in an
  extension block. If no suitable block exists, say so instead of editing
  outside the markers.
- After a deploy that orphaned blocks, offer to move their content into
  the new extension points.
- Do not edit .idpf/manifest.json by hand.`
}
