package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/msalah0e/kgx/internal/explorer"
	"github.com/msalah0e/kgx/internal/graph"
	"github.com/msalah0e/kgx/internal/ui"
)

func expandCmd() *cobra.Command {
	var (
		nodes    []string
		format   string
		pngPath  string
		htmlPath string
	)

	cmd := &cobra.Command{
		Use:   "expand <text> --node <id> [--node <id>...]",
		Short: "Run a query, then expand nodes with their associations in order",
		Long: `Expanding a node merges its neighbors into the graph the same way a click does
in the viewer: new neighbors ring the node, and associations from the previous
expansion that lost all their links are dropped.`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if len(nodes) == 0 {
				fail("At least one --node is required")
			}
			text := strings.Join(args, " ")
			sess, release, err := newSession(cmd.Context(), false)
			if err != nil {
				fail("%v", err)
			}
			defer release()

			start := time.Now()
			err = sess.Query(cmd.Context(), text)
			recordQuery(sess, text, start, err)
			if err != nil {
				if errors.Is(err, explorer.ErrNothingFound) {
					ui.Warn.Println("  No results found.")
					return
				}
				fail("Query failed: %v", err)
			}
			sess.Settle(settleTicks)

			for _, id := range nodes {
				start := time.Now()
				res, err := sess.Expand(cmd.Context(), id)
				recordExpand(id, res, start, err)
				switch {
				case errors.Is(err, explorer.ErrNothingFound):
					ui.Warn.Printf("  %s No associations found for %s.\n", ui.WarnIcon(), id)
				case errors.Is(err, explorer.ErrUnknownNode):
					fail("Node %q is not in the graph", id)
				case err != nil:
					fail("Expanding %s failed: %v", id, err)
				default:
					fmt.Printf("  %s %s  +%d nodes, +%d edges", ui.StatusIcon(true), id, len(res.AddedNodes), res.AddedEdges)
					if len(res.Pruned) > 0 {
						fmt.Printf(", pruned %d", len(res.Pruned))
					}
					fmt.Println()
				}
				sess.Settle(settleTicks)
			}
			fmt.Println()

			g := sess.State().Graph
			if format == "table" && len(nodes) > 0 {
				if tree, err := graph.RenderShow(g, nodes[len(nodes)-1], ui.Fn(ui.Brand), ui.Fn(ui.Subtle), ui.Fn(ui.Info)); err == nil {
					fmt.Println(tree)
				}
			}
			if pngPath != "" || htmlPath != "" {
				if err := writeRenderings(sess, "expand: "+text, pngPath, htmlPath); err != nil {
					fail("%v", err)
				}
			}
			if err := printGraph(g, format); err != nil {
				fail("%v", err)
			}
		},
	}

	cmd.Flags().StringArrayVarP(&nodes, "node", "n", nil, "Node id to expand (repeatable, applied in order)")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, yaml, dot")
	cmd.Flags().StringVar(&pngPath, "png", "", "Render the final layout to a PNG file")
	cmd.Flags().StringVar(&htmlPath, "html", "", "Write a standalone HTML view")
	return cmd
}
