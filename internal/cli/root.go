// Package cli defines the Cobra command tree for the gptcontext CLI.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// version, commit, date are set via -ldflags at build time.
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd is the base command. Running it without a subcommand performs a
// build, so `gptcontext` in a project directory does the whole job.
var rootCmd = &cobra.Command{
	Use:   "gptcontext [flags]",
	Short: "Concatenate a source tree into one token-bounded LLM context file",
	Long: `gptcontext walks a project directory, filters files by extension and
exclusion rules, and concatenates their content into a single context file
sized to fit an LLM token budget.

Files above the per-file token threshold can be replaced by remote-generated
summaries (OpenAI or Claude) so their gist still fits the budget. Summaries
are cached by content hash, so unchanged files never pay for a second call.

Run 'gptcontext' in any project directory to get started.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd.Context())
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute(v, c, d string) {
	version, commit, date = v, c, d
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	bindBuildFlags(rootCmd)
	rootCmd.AddCommand(
		newPresetsCmd(),
		newCacheCmd(),
		newWatchCmd(),
		newServeCmd(),
		newGitignoreCmd(),
		newVersionCmd(),
	)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gptcontext %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
