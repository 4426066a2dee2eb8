package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/msalah0e/kgx/internal/config"
	"github.com/msalah0e/kgx/internal/ui"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig()
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				showConfig()
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write a default config file if none exists",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				path := config.Path()
				if _, err := os.Stat(path); err == nil {
					fmt.Printf("  %s Config already exists: %s\n", ui.StatusIcon(true), path)
					return
				}
				if err := config.EnsureExists(); err != nil {
					fail("Failed to write config: %v", err)
				}
				ui.Good.Printf("  %s Wrote %s\n", ui.StatusIcon(true), path)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println(config.Path())
			},
		},
	)
	return cmd
}

func showConfig() {
	ui.Subtle.Printf("# %s\n", config.Path())
	shown := *cfg
	if shown.Neo4j.Password != "" {
		shown.Neo4j.Password = strings.Repeat("*", 8)
	}
	if err := toml.NewEncoder(os.Stdout).Encode(&shown); err != nil {
		fail("Failed to encode config: %v", err)
	}
}
