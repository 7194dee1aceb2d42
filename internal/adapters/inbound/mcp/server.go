package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/pourline/pourline/internal/bootstrap"
)

// NewPourlineMCPServer creates an MCP server exposing the dispenser actions
// and the runtime's reference data as tools and resources.
func NewPourlineMCPServer(rt *bootstrap.Runtime, version string) *server.MCPServer {
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"pourline",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	registerTools(s, rt)
	registerResources(s, rt)

	return s
}
