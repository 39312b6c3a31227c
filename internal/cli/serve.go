package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gptcontext/gptcontext/internal/mcp"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		Long: `Serve gptcontext as a Model Context Protocol server on stdin/stdout, so
MCP-capable assistants can request a packed project context with the
build_context tool.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := filepath.Abs(buildFlags.base)
			if err != nil {
				return fmt.Errorf("cli: resolve base: %w", err)
			}
			return mcp.NewServer(base).Run(version)
		},
	}
}
