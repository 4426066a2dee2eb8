package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/msalah0e/kgx/internal/backend"
	"github.com/msalah0e/kgx/internal/explorer"
	"github.com/msalah0e/kgx/internal/graph"
	"github.com/msalah0e/kgx/internal/history"
	"github.com/msalah0e/kgx/internal/ui"
)

func experimentCmd() *cobra.Command {
	var (
		pathFlag string
		node     string
		depth    int
		doc      string
		raw      bool
	)

	cmd := &cobra.Command{
		Use:   "experiment [text]",
		Short: "Design an experiment along a path of the graph",
		Long: `Ask the backend to design an experiment for a chain of concepts. Give the chain
directly, or run a query and walk it from a node.

  kgx experiment --path "Steel -> Carbon -> Hardness" --doc paper.pdf
  kgx experiment "steel grades" --node 4:abc:12 --depth 3 --doc paper.pdf`,
		Run: func(cmd *cobra.Command, args []string) {
			if doc == "" {
				fail("--doc is required")
			}
			var names []string
			switch {
			case pathFlag != "":
				names = parsePath(pathFlag)
			case len(args) > 0 && node != "":
				names = queryPath(cmd, strings.Join(args, " "), node, depth)
			default:
				fail("Give --path, or a query with --node")
			}
			if len(names) < 2 {
				fail("A path needs at least two nodes, got %q", backend.PathString(names))
			}

			c, err := newClient()
			if err != nil {
				fail("%v", err)
			}
			ui.Banner("experiment")
			fmt.Printf("  %s  %s\n\n", ui.Brand.Sprint("path"), backend.PathString(names))

			start := time.Now()
			exp, err := c.DesignExperiment(cmd.Context(), names, doc)
			e := history.Entry{Action: "experiment", Text: backend.PathString(names), Duration: time.Since(start).Seconds()}
			if err != nil {
				e.Error = err.Error()
			}
			record(e)
			if err != nil {
				fail("Experiment design failed: %v", err)
			}

			if raw || len(exp.Parsed) == 0 {
				fmt.Println(indent(exp.LLMResponse))
				return
			}
			var buf bytes.Buffer
			enc := json.NewEncoder(&buf)
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			if err := enc.Encode(exp.Parsed); err != nil {
				fail("%v", err)
			}
			fmt.Println(indent(buf.String()))
		},
	}

	cmd.Flags().StringVar(&pathFlag, "path", "", `Path as "A -> B -> C"`)
	cmd.Flags().StringVarP(&node, "node", "n", "", "Start node when walking a query result")
	cmd.Flags().IntVar(&depth, "depth", 3, "Nodes to walk from --node")
	cmd.Flags().StringVar(&doc, "doc", "", "Source document id (usually the uploaded file name)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the model response instead of the parsed design")
	return cmd
}

// parsePath splits "A -> B -> C" into its trimmed, non-empty parts.
func parsePath(s string) []string {
	var out []string
	for _, part := range strings.Split(s, "->") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// chainNames walks the graph from id and returns display names.
func chainNames(g *graph.Graph, id string, depth int) []string {
	ids := g.Chain(id, depth)
	names := make([]string, 0, len(ids))
	for _, nid := range ids {
		n, _ := g.Node(nid)
		name := n.DisplayName
		if name == "" {
			name = nid
		}
		names = append(names, name)
	}
	return names
}

func queryPath(cmd *cobra.Command, text, node string, depth int) []string {
	sess, release, err := newSession(cmd.Context(), false)
	if err != nil {
		fail("%v", err)
	}
	defer release()

	start := time.Now()
	err = sess.Query(cmd.Context(), text)
	recordQuery(sess, text, start, err)
	if errors.Is(err, explorer.ErrNothingFound) {
		fail("No results found.")
	}
	if err != nil {
		fail("Query failed: %v", err)
	}
	g := sess.State().Graph
	if !g.HasNode(node) {
		fail("Node %q is not in the graph", node)
	}
	return chainNames(g, node, depth)
}
