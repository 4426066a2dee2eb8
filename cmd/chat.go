package cmd

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/msalah0e/kgx/internal/backend"
	"github.com/msalah0e/kgx/internal/history"
	"github.com/msalah0e/kgx/internal/ui"
)

func chatCmd() *cobra.Command {
	var showCitations bool

	cmd := &cobra.Command{
		Use:   "chat <question>",
		Short: "Ask the knowledge base a question",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			question := strings.Join(args, " ")
			c, err := newClient()
			if err != nil {
				fail("%v", err)
			}

			ui.Banner("chat")
			start := time.Now()
			resp, err := c.Chat(cmd.Context(), question)
			e := history.Entry{Action: "chat", Text: question, Duration: time.Since(start).Seconds()}
			if err != nil {
				e.Error = err.Error()
			}
			record(e)
			if err != nil {
				fail("Chat failed: %v", err)
			}

			fmt.Println(indent(resp.Answer))
			if showCitations && len(resp.Citations) > 0 {
				fmt.Println()
				ui.Subtle.Println("  Sources:")
				rows := make([][]string, 0, len(resp.Citations))
				for _, cit := range resp.Citations {
					rows = append(rows, []string{cit.Type, cit.SourceFile, strings.ReplaceAll(cit.Content, "\n", " ")})
				}
				ui.Table([]string{"TYPE", "FILE", "EXCERPT"}, rows)
			}
		},
	}

	cmd.Flags().BoolVar(&showCitations, "citations", true, "Print retrieval sources")
	return cmd
}

func askCmd() *cobra.Command {
	var tool string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single tool: web, arxiv or neo4j_agent",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if !slices.Contains(backend.Tools, tool) {
				fail("Unknown tool %q (want one of %s)", tool, strings.Join(backend.Tools, ", "))
			}
			c, err := newClient()
			if err != nil {
				fail("%v", err)
			}

			ui.Banner("ask " + tool)
			resp, err := c.Tool(cmd.Context(), strings.Join(args, " "), tool)
			if err != nil {
				fail("Tool query failed: %v", err)
			}
			if resp.Source != "" {
				ui.Subtle.Printf("  source: %s\n\n", resp.Source)
			}
			fmt.Println(indent(resp.Answer))
		},
	}

	cmd.Flags().StringVar(&tool, "tool", "web", "Tool to query")
	_ = cmd.RegisterFlagCompletionFunc("tool", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return backend.Tools, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func indent(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
