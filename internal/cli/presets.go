package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gptcontext/gptcontext/internal/preset"
)

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List available scan presets",
		Long: `List the built-in presets plus any *.yml files under <base>/presets/.
A project preset with the same name as a built-in shadows it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := filepath.Abs(buildFlags.base)
			if err != nil {
				return fmt.Errorf("cli: resolve base: %w", err)
			}

			presets, err := preset.List(base)
			if err != nil {
				return err
			}

			for _, p := range presets {
				desc := p.Description
				if desc == "" {
					desc = "(no description)"
				}
				fmt.Printf("%-12s %s\n", p.Name, desc)
			}
			return nil
		},
	}
}
