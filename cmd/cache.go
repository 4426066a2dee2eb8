package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/msalah0e/kgx/internal/cache"
	"github.com/msalah0e/kgx/internal/ui"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the association cache",
		Run: func(cmd *cobra.Command, args []string) {
			showCache()
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "info",
			Short: "Show the configured cache backend",
			Run: func(cmd *cobra.Command, args []string) {
				showCache()
			},
		},
		cacheClearCmd(),
	)

	return cmd
}

func cacheLocation() string {
	switch strings.ToLower(cfg.Cache.Backend) {
	case "disk":
		if cfg.Cache.Dir != "" {
			return cfg.Cache.Dir
		}
		return filepath.Join(cache.Dir(), "assoc")
	case "redis":
		prefix := cfg.Cache.Prefix
		if prefix == "" {
			prefix = "kgx:"
		}
		return fmt.Sprintf("%s db=%d prefix=%s", cfg.Cache.RedisAddr, cfg.Cache.RedisDB, prefix)
	case "memory":
		return "in-process"
	default:
		return "disabled"
	}
}

func showCache() {
	ui.Banner("cache")
	backend := cfg.Cache.Backend
	if backend == "" {
		backend = "none"
	}
	fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-10s", "Backend"), backend)
	fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-10s", "Location"), cacheLocation())
	fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-10s", "TTL"), cfg.Cache.TTL.Duration)
}

func cacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached association payload",
		Run: func(cmd *cobra.Command, args []string) {
			switch strings.ToLower(cfg.Cache.Backend) {
			case "", "none", "off":
				ui.Warn.Printf("  %s cache is disabled\n", ui.WarnIcon())
				return
			case "memory":
				fmt.Println(ui.Subtle.Sprint("  memory cache lives only inside a running session; nothing to clear"))
				return
			}

			c, err := cache.Open(cmd.Context(), cfg.CacheOptions())
			if err != nil {
				fail("Cannot open cache: %v", err)
			}
			defer c.Close()

			n, err := c.Clear(cmd.Context())
			if err != nil {
				fail("Clearing cache: %v", err)
			}
			log.Debug("cache cleared", "backend", cfg.Cache.Backend, "entries", n)
			ui.Good.Printf("  %s Removed %d cached entries\n", ui.StatusIcon(true), n)
		},
	}
}
