package cmd

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/msalah0e/kgx/internal/explorer"
	"github.com/msalah0e/kgx/internal/history"
	"github.com/msalah0e/kgx/internal/merge"
	"github.com/msalah0e/kgx/internal/ui"
)

// settleTicks bounds the offline layout run before rendering.
const settleTicks = 600

func queryCmd() *cobra.Command {
	var (
		format   string
		pngPath  string
		htmlPath string
	)

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Turn a question into a graph query and print the result graph",
		Long: `Send text to the backend's text-to-query endpoint (or run it as Cypher when
the source is neo4j), parse the returned rows into a graph and print it.

  kgx query "which batches used supplier Acme"
  kgx query --format dot "steel grades" | dot -Tsvg > g.svg
  kgx query --png graph.png "materials in batch 42"`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
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

			if pngPath != "" || htmlPath != "" {
				sess.Settle(settleTicks)
				if err := writeRenderings(sess, "query: "+text, pngPath, htmlPath); err != nil {
					fail("%v", err)
				}
			}
			if err := printGraph(sess.State().Graph, format); err != nil {
				fail("%v", err)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, yaml, dot")
	cmd.Flags().StringVar(&pngPath, "png", "", "Also render the laid-out graph to a PNG file")
	cmd.Flags().StringVar(&htmlPath, "html", "", "Also write a standalone HTML view")
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return formats, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func recordQuery(sess *explorer.Session, text string, start time.Time, err error) {
	e := history.Entry{Action: "query", Text: text, Duration: time.Since(start).Seconds()}
	if g := sess.State().Graph; err == nil {
		e.Nodes, e.Edges = g.Len(), g.EdgeCount()
	} else if !errors.Is(err, explorer.ErrNothingFound) {
		e.Error = err.Error()
	}
	record(e)
}

func recordExpand(id string, res merge.Result, start time.Time, err error) {
	e := history.Entry{Action: "expand", Node: id, Nodes: len(res.AddedNodes), Edges: res.AddedEdges, Duration: time.Since(start).Seconds()}
	if err != nil && !errors.Is(err, explorer.ErrNothingFound) {
		e.Error = err.Error()
	}
	record(e)
}
