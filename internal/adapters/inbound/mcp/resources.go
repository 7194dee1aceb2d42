package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pourline/pourline/internal/bootstrap"
)

const creditsURIPrefix = "pourline://credits/"

// registerResources registers all pourline MCP resources on the given server.
func registerResources(s *server.MCPServer, rt *bootstrap.Runtime) {
	// 1. pourline://catalog - product reference data
	s.AddResource(
		mcplib.NewResource(
			"pourline://catalog",
			"Catalog",
			mcplib.WithResourceDescription("Products with their dispenser flags, PLU codes and cocktail ingredients"),
			mcplib.WithMIMEType("application/json"),
		),
		handleCatalogResource(rt),
	)

	// 2. pourline://config - effective configuration
	s.AddResource(
		mcplib.NewResource(
			"pourline://config",
			"Configuration",
			mcplib.WithResourceDescription("Effective runtime configuration after file and environment overrides"),
			mcplib.WithMIMEType("application/json"),
		),
		handleConfigResource(rt),
	)

	// 3. pourline://credits/{session} - per-session ledger (resource template)
	s.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			creditsURIPrefix+"{session}",
			"Session Credits",
			mcplib.WithTemplateDescription("Credits granted and withdrawn in a session"),
			mcplib.WithTemplateMIMEType("application/json"),
		),
		handleCreditsResource(rt),
	)
}

func handleCatalogResource(rt *bootstrap.Runtime) server.ResourceHandlerFunc {
	return func(_ context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		return jsonContents(request.Params.URI, rt.Catalog.Products())
	}
}

func handleConfigResource(rt *bootstrap.Runtime) server.ResourceHandlerFunc {
	return func(_ context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		return jsonContents(request.Params.URI, rt.Config)
	}
}

func handleCreditsResource(rt *bootstrap.Runtime) server.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		session := templateArg(request, "session", creditsURIPrefix)
		if session == "" {
			return nil, fmt.Errorf("session is required")
		}

		recs, err := rt.Gateway.Credits(ctx, session)
		if err != nil {
			return nil, fmt.Errorf("listing credits failed: %w", err)
		}
		return jsonContents(request.Params.URI, recs)
	}
}

// templateArg reads a template variable, falling back to the URI suffix.
func templateArg(request mcplib.ReadResourceRequest, name, prefix string) string {
	switch v := request.Params.Arguments[name].(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return strings.TrimPrefix(request.Params.URI, prefix)
}

func jsonContents(uri string, v any) ([]mcplib.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
