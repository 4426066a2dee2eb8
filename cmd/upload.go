package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/msalah0e/kgx/internal/parallel"
	"github.com/msalah0e/kgx/internal/ui"
)

func uploadCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload documents for ingestion into the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			c, err := newClient()
			if err != nil {
				fail("%v", err)
			}

			var tasks []parallel.Task
			for _, path := range args {
				path := path
				info, err := os.Stat(path)
				if err != nil || info.IsDir() {
					fail("Not a file: %s", path)
				}
				tasks = append(tasks, parallel.Task{
					Name: filepath.Base(path),
					Fn: func(ctx context.Context) (string, error) {
						resp, err := c.Upload(ctx, path)
						if err != nil {
							return "", err
						}
						return resp.Message, nil
					},
				})
			}

			n := concurrency
			if n == 0 {
				n = cfg.Parallel.Concurrency
			}
			if !cfg.Parallel.Enabled {
				n = 1
			}

			ui.Banner(fmt.Sprintf("uploading %d file(s)", len(tasks)))
			results := parallel.Run(cmd.Context(), tasks, n, os.Stdout)
			fmt.Println()
			if failed := parallel.Failed(results); failed > 0 {
				fail("%d of %d uploads failed", failed, len(results))
			}
			ui.Good.Printf("  %s All %d uploads ingested\n", ui.StatusIcon(true), len(results))
		},
	}

	cmd.Flags().IntVarP(&concurrency, "jobs", "j", 0, "Concurrent uploads (default from config)")
	return cmd
}
