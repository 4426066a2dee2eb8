package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/msalah0e/kgx/internal/explorer"
	"github.com/msalah0e/kgx/internal/graph"
	"github.com/msalah0e/kgx/internal/ui"
)

const replHelp = `  query <text>     replace the graph with a new query result
  click <id>       select a node and merge its associations
  bg               clear the selection
  filter <expr>    show only nodes matching a CEL expression (empty clears)
  show [id]        list visible nodes, or one node with its relations
  search <text>    find nodes by name, id, label or property
  stats            graph summary
  render <file>    write the current view to .png or .html
  quit             leave`

func exploreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explore",
		Short: "Interactive exploration shell",
		Long:  "Query and expand the graph step by step from a prompt.\n\n" + replHelp,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			sess, release, err := newSession(cmd.Context(), false)
			if err != nil {
				fail("%v", err)
			}
			defer release()

			ui.Banner("explore  (type help)")
			if err := runREPL(cmd.Context(), sess, cmd.InOrStdin(), cmd.OutOrStdout(), true); err != nil {
				fail("%v", err)
			}
		},
	}
}

// runREPL reads commands from in until EOF or quit.
func runREPL(ctx context.Context, sess *explorer.Session, in io.Reader, out io.Writer, prompt bool) error {
	sc := bufio.NewScanner(in)
	for {
		if prompt {
			fmt.Fprint(out, ui.Brand.Sprint("kgx> "))
		}
		if !sc.Scan() {
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		verb, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		if verb == "quit" || verb == "exit" {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		replCommand(ctx, sess, out, verb, arg)
	}
}

func replCommand(ctx context.Context, sess *explorer.Session, out io.Writer, verb, arg string) {
	switch verb {
	case "help", "?":
		fmt.Fprintln(out, replHelp)

	case "query":
		if arg == "" {
			fmt.Fprintln(out, "  usage: query <text>")
			return
		}
		start := time.Now()
		err := sess.Query(ctx, arg)
		recordQuery(sess, arg, start, err)
		switch {
		case errors.Is(err, explorer.ErrNothingFound):
			fmt.Fprintln(out, ui.Warn.Sprint("  No results found."))
		case err != nil:
			fmt.Fprintln(out, ui.Bad.Sprintf("  %v", err))
		default:
			sess.Settle(settleTicks)
			st := sess.State()
			fmt.Fprintf(out, "  %s %d nodes, %d edges\n", ui.StatusIcon(true), st.Graph.Len(), st.Graph.EdgeCount())
		}

	case "click":
		if arg == "" {
			fmt.Fprintln(out, "  usage: click <id>")
			return
		}
		start := time.Now()
		res, err := sess.Expand(ctx, arg)
		recordExpand(arg, res, start, err)
		switch {
		case errors.Is(err, explorer.ErrNothingFound):
			fmt.Fprintln(out, ui.Warn.Sprintf("  No associations found for %s.", arg))
		case err != nil:
			fmt.Fprintln(out, ui.Bad.Sprintf("  %v", err))
		default:
			sess.Settle(settleTicks)
			fmt.Fprintf(out, "  %s selected %s  +%d nodes, +%d edges, pruned %d\n",
				ui.StatusIcon(true), arg, len(res.AddedNodes), res.AddedEdges, len(res.Pruned))
		}

	case "bg":
		sess.Background()
		fmt.Fprintln(out, ui.Subtle.Sprint("  selection cleared"))

	case "filter":
		if err := sess.SetFilter(arg); err != nil {
			fmt.Fprintln(out, ui.Bad.Sprintf("  %v", err))
			return
		}
		snap := sess.Snapshot()
		fmt.Fprintf(out, "  %d visible, %d hidden\n", len(snap.Nodes), snap.Hidden)

	case "show":
		if arg != "" {
			tree, err := graph.RenderShow(sess.State().Graph, arg, ui.Fn(ui.Brand), ui.Fn(ui.Subtle), ui.Fn(ui.Info))
			if err != nil {
				fmt.Fprintln(out, ui.Bad.Sprintf("  %v", err))
				return
			}
			fmt.Fprint(out, tree)
			return
		}
		snap := sess.Snapshot()
		for _, n := range snap.Nodes {
			marker := " "
			switch {
			case n.Selected:
				marker = "●"
			case n.Neighbor:
				marker = "○"
			}
			fmt.Fprintf(out, "  %s %-20s %s %s\n", marker, ui.Truncate(n.ID, 20), n.Name, ui.Subtle.Sprint(strings.Join(n.Labels, ",")))
		}
		if snap.Hidden > 0 {
			fmt.Fprintln(out, ui.Subtle.Sprintf("  (%d hidden by filter)", snap.Hidden))
		}
		if snap.Notice != "" {
			fmt.Fprintln(out, ui.Warn.Sprint("  "+snap.Notice))
		}

	case "search":
		hits := sess.State().Graph.Search(arg)
		if len(hits) == 0 {
			fmt.Fprintln(out, "  no matches")
			return
		}
		for _, h := range hits {
			fmt.Fprintf(out, "  %-20s %s %s\n", h.Node.ID, h.Node.DisplayName, ui.Subtle.Sprintf("(%d)", h.Score))
		}

	case "stats":
		st := sess.State()
		s := st.Graph.GetStats()
		fmt.Fprintf(out, "  nodes %d  edges %d  associations %d  labels %d  mode %s\n",
			s.Nodes, s.Edges, s.Associations, s.Labels, st.Mode())

	case "render":
		var pngPath, htmlPath string
		switch strings.ToLower(filepath.Ext(arg)) {
		case ".png":
			pngPath = arg
		case ".html", ".htm":
			htmlPath = arg
		default:
			fmt.Fprintln(out, "  usage: render <file.png|file.html>")
			return
		}
		if err := writeRenderings(sess, "kgx explore", pngPath, htmlPath); err != nil {
			fmt.Fprintln(out, ui.Bad.Sprintf("  %v", err))
		}

	default:
		fmt.Fprintf(out, "  unknown command %q (type help)\n", verb)
	}
}
