package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var debounceMs int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the project for file changes and rebuild the context file",
		Long: `Start a long-running watcher that monitors the scan directory for file
changes (create, modify, delete) and rebuilds the context file.

Changes are debounced so that rapid edits (e.g. saving multiple files at once)
are batched into a single rebuild. The summary cache makes rebuilds cheap:
only changed oversize files hit the remote service again.

Press Ctrl-C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("cli: create watcher: %w", err)
			}
			defer watcher.Close()

			if err := addWatchDirs(watcher, p); err != nil {
				return fmt.Errorf("cli: add watch directories: %w", err)
			}

			debounce := time.Duration(debounceMs) * time.Millisecond
			fmt.Printf("Watching %s for changes (debounce %s). Press Ctrl-C to stop.\n", p.scanRoot, debounce)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Build once up front so the context file exists immediately.
			rebuild(ctx, p)

			timer := time.NewTimer(debounce)
			timer.Stop() // Don't fire immediately.
			dirty := false

			for {
				select {
				case <-ctx.Done():
					fmt.Println("\nStopping watcher.")
					return nil

				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}

					rel, err := filepath.Rel(p.scanRoot, event.Name)
					if err != nil || rel == "." {
						continue
					}
					if skipWatchEvent(rel, p) {
						continue
					}

					// If a new directory was created, start watching it.
					if event.Has(fsnotify.Create) {
						if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
							_ = watcher.Add(event.Name)
						}
					}

					dirty = true
					timer.Reset(debounce)

				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					fmt.Fprintf(os.Stderr, "  watch error: %v\n", err)

				case <-timer.C:
					if !dirty {
						continue
					}
					dirty = false
					rebuild(ctx, p)
				}
			}
		},
	}

	cmd.Flags().IntVar(&debounceMs, "debounce", 500, "debounce interval in milliseconds")

	return cmd
}

// rebuild runs one build and writes the output, reporting errors without
// stopping the watcher.
func rebuild(ctx context.Context, p *pipeline) {
	res, err := p.build(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  rebuild failed: %v\n", err)
		return
	}
	if res.Cancelled {
		return
	}
	ctxPath, err := p.write(res)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  write failed: %v\n", err)
		return
	}
	fmt.Printf("[%s] rebuilt %s (%d/%d tokens)\n",
		time.Now().Format("15:04:05"), ctxPath, res.UsedTokens, res.MaxTokens)
}

// addWatchDirs recursively adds directories to the watcher, skipping
// excluded ones.
func addWatchDirs(watcher *fsnotify.Watcher, p *pipeline) error {
	return filepath.WalkDir(p.scanRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(p.scanRoot, path)
		if rel != "." && skipWatchEvent(rel, p) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// skipWatchEvent checks whether a path relative to the scan root belongs to
// an excluded directory or to this tool's own output.
func skipWatchEvent(rel string, p *pipeline) bool {
	s := p.settings
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, part := range parts {
		if s.ExcludeDirs[part] {
			return true
		}
	}
	name := parts[len(parts)-1]
	return name == s.ContextFilename || name == s.MessageFilename
}
