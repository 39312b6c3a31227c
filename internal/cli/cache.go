package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gptcontext/gptcontext/internal/summarize"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the summary cache",
	}
	cmd.AddCommand(newCacheClearCmd(), newCachePathCmd())
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached summary for this scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}

			dir := p.cacheDir()
			cache, err := summarize.NewCache(dir)
			if err != nil {
				return err
			}
			if err := cache.Clear(); err != nil {
				return err
			}
			fmt.Printf("Cleared summary cache at %s\n", dir)
			return nil
		},
	}
}

func newCachePathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the summary cache directory for this scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}
			fmt.Println(p.cacheDir())
			return nil
		},
	}
}
