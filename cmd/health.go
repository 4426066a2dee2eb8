package cmd

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/msalah0e/kgx/internal/cache"
	"github.com/msalah0e/kgx/internal/config"
	"github.com/msalah0e/kgx/internal/neo4jsrc"
	"github.com/msalah0e/kgx/internal/ui"
)

func healthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "health",
		Aliases: []string{"status"},
		Short:   "Check the backend, graph database and cache",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			ui.Banner("health")
			fmt.Printf("  %s  %s/%s\n", ui.Brand.Sprintf("%-10s", "Platform"), runtime.GOOS, runtime.GOARCH)
			fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-10s", "Config"), config.Path())
			fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-10s", "Source"), cfg.Backend.Source)
			fmt.Println()

			healthy := true
			check := func(name string, detail string, err error) {
				if err != nil {
					healthy = false
					fmt.Printf("  %s %-10s %s\n", ui.StatusIcon(false), name, ui.Bad.Sprint(err))
					return
				}
				fmt.Printf("  %s %-10s %s\n", ui.StatusIcon(true), name, ui.Subtle.Sprint(detail))
			}

			if c, err := newClient(); err != nil {
				check("backend", "", err)
			} else {
				st, err := c.Health(ctx)
				detail := c.BaseURL()
				if st != nil && st.Message != "" {
					detail += "  " + st.Message
				}
				check("backend", detail, err)
			}

			if strings.EqualFold(cfg.Backend.Source, "neo4j") {
				ex, err := neo4jsrc.Connect(ctx, cfg.Neo4jSource())
				if err == nil {
					_ = ex.Close(ctx)
				}
				check("neo4j", cfg.Neo4j.URI, err)
			}

			c, err := cache.Open(ctx, cfg.CacheOptions())
			switch {
			case err != nil:
				check("cache", "", err)
			case c == nil:
				fmt.Printf("  %s %-10s %s\n", ui.WarnIcon(), "cache", ui.Subtle.Sprint("disabled"))
			default:
				_ = c.Close()
				check("cache", cfg.Cache.Backend, nil)
			}

			fmt.Println()
			if !healthy {
				fail("Some checks failed")
			}
			ui.Good.Printf("  %s All checks passed\n", ui.StatusIcon(true))
		},
	}
	return cmd
}
