package cli

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	mcpadapter "github.com/pourline/pourline/internal/adapters/inbound/mcp"
)

func newMCPCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server commands",
		Long:  "Commands for running the pourline MCP (Model Context Protocol) server.",
	}
	cmd.AddCommand(newMCPServeCmd(g))
	return cmd
}

func newMCPServeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start pourline MCP server (stdio)",
		Long:  "Start the pourline MCP server using stdio transport. This lets assistants send orders, probe the middleware and withdraw credits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.runtime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			s := mcpadapter.NewPourlineMCPServer(rt, version)
			return server.ServeStdio(s)
		},
	}
}
