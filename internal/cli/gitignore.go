package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gptcontext/gptcontext/internal/config"
	"github.com/gptcontext/gptcontext/internal/gitignore"
)

func newGitignoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gitignore",
		Short: "Add the generated output files and cache to the project's .gitignore",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := filepath.Abs(buildFlags.base)
			if err != nil {
				return fmt.Errorf("cli: resolve base: %w", err)
			}

			entries := []string{
				config.DefaultContextFilename,
				config.DefaultMessageFilename,
				config.CacheDirName + "/",
			}
			if err := gitignore.EnsureEntries(base, entries...); err != nil {
				return err
			}
			fmt.Printf("Ensured %d entries in %s\n", len(entries), filepath.Join(base, ".gitignore"))
			return nil
		},
	}
}
