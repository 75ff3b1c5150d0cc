// Package prompts implements MCP prompt handlers for framework upgrades.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// UpgradeReviewPrompt handles the idpf-upgrade-review MCP prompt.
// It walks the AI through auditing, previewing and applying an upgrade.
type UpgradeReviewPrompt struct{}

// NewUpgradeReviewPrompt creates an UpgradeReviewPrompt.
func NewUpgradeReviewPrompt() *UpgradeReviewPrompt {
	return &UpgradeReviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *UpgradeReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("idpf-upgrade-review",
		mcp.WithPromptDescription(
			"Review and apply an IDPF framework upgrade. "+
				"Audits the project, previews the deployment, explains every warning "+
				"and only then deploys.",
		),
		mcp.WithArgument("apply",
			mcp.ArgumentDescription("'yes' to deploy after the review without asking again. Default: ask first"),
		),
	)
}

// Handle processes the idpf-upgrade-review prompt request.
func (p *UpgradeReviewPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	apply := false
	if args := req.Params.Arguments; args != nil {
		apply = strings.EqualFold(strings.TrimSpace(args["apply"]), "yes")
	}

	final := "4. Ask me whether to continue. Only after I confirm, run `idpf_deploy`."
	if apply {
		final = "4. If nothing in the preview is alarming, run `idpf_deploy`; otherwise stop and ask me."
	}

	return &mcp.GetPromptResult{
		Description: "IDPF framework upgrade review",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to upgrade the IDPF framework in this project.\n\n"+
						"Please:\n"+
						"1. Run `idpf_audit` and summarize which files are modified, missing, obsolete or outdated\n"+
						"2. Run `idpf_deploy` with dry_run=true\n"+
						"3. Explain each warning in plain words, especially files that will be archived "+
						"because they were edited outside extension blocks, and blocks that will be orphaned\n"+
						"%s\n"+
						"5. After deploying, if any blocks were orphaned, call `idpf_history` with `orphans_path` "+
						"and help me move their content into the new extension points",
					final,
				)),
			},
		},
	}, nil
}
