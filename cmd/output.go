package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/msalah0e/kgx/internal/explorer"
	"github.com/msalah0e/kgx/internal/graph"
	"github.com/msalah0e/kgx/internal/render"
	"github.com/msalah0e/kgx/internal/ui"
)

var formats = []string{"table", "json", "yaml", "dot"}

// printGraph writes g to stdout in format.
func printGraph(g *graph.Graph, format string) error {
	switch format {
	case "", "table":
		printTables(g)
		return nil
	case "json":
		data, err := g.ExportJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "yaml":
		data, err := g.ExportYAML()
		if err != nil {
			return err
		}
		fmt.Print(string(data))
	case "dot":
		fmt.Print(g.ExportDOT())
	default:
		return fmt.Errorf("unknown format %q (want %s)", format, strings.Join(formats, ", "))
	}
	return nil
}

func printTables(g *graph.Graph) {
	stats := g.GetStats()
	fmt.Printf("  %s  %d\n", ui.Brand.Sprintf("%-14s", "Nodes"), stats.Nodes)
	fmt.Printf("  %s  %d\n", ui.Brand.Sprintf("%-14s", "Edges"), stats.Edges)
	if stats.Associations > 0 {
		fmt.Printf("  %s  %d\n", ui.Brand.Sprintf("%-14s", "Associations"), stats.Associations)
	}
	fmt.Println()

	nodes := make([][]string, 0, g.Len())
	for _, n := range g.Nodes() {
		mark := ""
		if n.IsAssociation() {
			mark = "assoc"
		}
		nodes = append(nodes, []string{n.ID, n.DisplayName, strings.Join(n.Labels, ","), mark})
	}
	ui.Table([]string{"ID", "NAME", "LABELS", ""}, nodes)

	if g.EdgeCount() == 0 {
		return
	}
	fmt.Println()
	edges := make([][]string, 0, g.EdgeCount())
	for _, e := range g.Edges() {
		edges = append(edges, []string{e.Source, e.Type, e.Target})
	}
	ui.Table([]string{"SOURCE", "TYPE", "TARGET"}, edges)
}

// writeRenderings saves the session's current snapshot as PNG and/or HTML.
func writeRenderings(sess *explorer.Session, title, pngPath, htmlPath string) error {
	snap := sess.Snapshot()
	params := cfg.LayoutParams()

	if pngPath != "" {
		f, err := os.Create(pngPath)
		if err != nil {
			return err
		}
		err = render.PNG(f, snap, params, render.PNGOptions{Fit: true, Labels: true})
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("writing %s: %w", pngPath, err)
		}
		ui.Good.Printf("  %s Wrote %s\n", ui.StatusIcon(true), pngPath)
	}
	if htmlPath != "" {
		page, err := render.StaticPage(title, snap, params)
		if err != nil {
			return err
		}
		if err := os.WriteFile(htmlPath, []byte(page), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", htmlPath, err)
		}
		ui.Good.Printf("  %s Wrote %s\n", ui.StatusIcon(true), htmlPath)
	}
	return nil
}
