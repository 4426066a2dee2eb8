package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/msalah0e/kgx/internal/backend"
	"github.com/msalah0e/kgx/internal/history"
	"github.com/msalah0e/kgx/internal/ui"
)

func pageCmd() *cobra.Command {
	var (
		file  string
		out   string
		open  bool
		pulse backend.Pulse
	)

	cmd := &cobra.Command{
		Use:   "page [text...]",
		Short: "Have the backend build a standalone graph page from text or a document",
		Long: `Extract a knowledge graph from free text or an uploaded document on the
backend and save the generated HTML page.

  kgx page "Steel is an alloy of iron and carbon; carbon raises hardness."
  kgx page --file notes.pdf --out notes.html --open`,
		Run: func(cmd *cobra.Command, args []string) {
			text := strings.TrimSpace(strings.Join(args, " "))
			if (text == "") == (file == "") {
				fail("Give either text or --file")
			}
			c, err := newClient()
			if err != nil {
				fail("%v", err)
			}

			ui.Banner("page")
			start := time.Now()
			var page *backend.GraphPage
			e := history.Entry{Action: "page", Text: text}
			if file != "" {
				e.Text = file
				page, err = c.GraphFromFile(cmd.Context(), file, pulse)
			} else {
				page, err = c.GraphFromText(cmd.Context(), text)
			}
			e.Duration = time.Since(start).Seconds()
			if err != nil {
				e.Error = err.Error()
			}
			record(e)
			if err != nil {
				fail("Page generation failed: %v", err)
			}

			if err := os.WriteFile(out, []byte(page.HTMLContent), 0o644); err != nil {
				fail("Writing %s: %v", out, err)
			}
			fmt.Printf("  %s Wrote %s\n", ui.StatusIcon(true), out)
			if open {
				abs, err := filepath.Abs(out)
				if err != nil {
					abs = out
				}
				openBrowser("file://" + abs)
			}
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Document to build the graph from")
	cmd.Flags().StringVarP(&out, "out", "o", "kgx-graph.html", "Output HTML file")
	cmd.Flags().BoolVar(&open, "open", false, "Open the page in a browser")
	cmd.Flags().BoolVar(&pulse.Off, "no-pulse", false, "Disable node pulsing (documents only)")
	cmd.Flags().Float64Var(&pulse.Amplitude, "pulse-amp", 0, "Pulse amplitude (documents only)")
	cmd.Flags().Float64Var(&pulse.Speed, "pulse-speed", 0, "Pulse speed (documents only)")
	return cmd
}
