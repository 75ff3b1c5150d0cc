// Package resources implements MCP resource handlers for framework
// deployment state.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (idpf://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"

	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/workspace"
)

const (
	// ManifestURI addresses the deployment manifest.
	ManifestURI = "idpf://manifest"
	// ConfigURI addresses the effective project configuration.
	ConfigURI = "idpf://config"
)

// Handler manages idpf resource endpoints.
type Handler struct {
	workspace func() (*workspace.Workspace, error)
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(ws func() (*workspace.Workspace, error)) *Handler {
	return &Handler{workspace: ws}
}

// ManifestResource returns the MCP resource definition for the manifest.
func (h *Handler) ManifestResource() mcp.Resource {
	return mcp.NewResource(
		ManifestURI,
		"IDPF Deployment Manifest",
		mcp.WithResourceDescription("Deployed framework version and the checksum of every deployed file, by category"),
		mcp.WithMIMEType("application/json"),
	)
}

// ConfigResource returns the MCP resource definition for the config.
func (h *Handler) ConfigResource() mcp.Resource {
	return mcp.NewResource(
		ConfigURI,
		"IDPF Project Configuration",
		mcp.WithResourceDescription("Effective .idpf/config.yaml: template source, categories and protected frontmatter fields"),
		mcp.WithMIMEType("application/yaml"),
	)
}

// HandleManifest returns the project manifest as JSON. A project that was
// never deployed yields an empty manifest.
func (h *Handler) HandleManifest(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ws, err := h.workspace()
	if err != nil {
		return nil, fmt.Errorf("finding project root: %w", err)
	}

	m, err := ws.Manifests.Load(ws.Root)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// HandleConfig returns the effective configuration as YAML.
func (h *Handler) HandleConfig(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ws, err := h.workspace()
	if err != nil {
		return nil, fmt.Errorf("finding project root: %w", err)
	}

	cfg, err := ws.Config()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/yaml",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
