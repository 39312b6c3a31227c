// Package mcp exposes context building over the Model Context Protocol, so
// MCP-capable assistants can request a packed project context directly.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server serves gptcontext tools over stdio for one project base directory.
type Server struct {
	base string
}

// NewServer creates a Server rooted at the given project base directory.
func NewServer(base string) *Server {
	return &Server{base: base}
}

// Run registers the tools and serves MCP over stdio until the client
// disconnects.
func (s *Server) Run(version string) error {
	srv := server.NewMCPServer("gptcontext", version,
		server.WithToolCapabilities(false),
	)

	srv.AddTool(mcp.NewTool("build_context",
		mcp.WithDescription("Pack the project's source files into one token-bounded context document. Large files can be replaced by cached summaries."),
		mcp.WithString("scan_dir",
			mcp.Description("Subdirectory of the project to scan (default: the whole project)"),
		),
		mcp.WithString("preset",
			mcp.Description("Scan preset name, e.g. python, frontend, backend, go"),
		),
		mcp.WithNumber("max_tokens",
			mcp.Description("Total token budget for the document (default: configured limit)"),
		),
		mcp.WithBoolean("summarize",
			mcp.Description("Summarize files over the per-file threshold instead of skipping them"),
		),
	), s.handleBuildContext)

	srv.AddTool(mcp.NewTool("list_presets",
		mcp.WithDescription("List the available scan presets with their descriptions."),
	), s.handleListPresets)

	return server.ServeStdio(srv)
}
