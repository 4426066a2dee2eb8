// Package render draws exploration snapshots: a PNG for the terminal
// workflow and the HTML canvas viewer.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"sort"

	"github.com/fogleman/gg"

	"github.com/msalah0e/kgx/internal/explorer"
	"github.com/msalah0e/kgx/internal/graph"
	"github.com/msalah0e/kgx/internal/layout"
)

// Palette mirrors the viewer's label colors.
var Palette = []string{"#2DB682", "#0171E3", "#E07C3A", "#9B59B6", "#E74C3C", "#1ABC9C", "#F1C40F", "#3498DB", "#E91E63", "#00BCD4"}

// PNGOptions controls image output.
type PNGOptions struct {
	Width  int
	Height int
	// Fit ignores the snapshot transform and frames every node.
	Fit    bool
	Labels bool
}

// LabelColors assigns palette colors to first labels in sorted order.
func LabelColors(snap explorer.Snapshot) map[string]string {
	seen := make(map[string]bool)
	for _, n := range snap.Nodes {
		seen[firstLabel(n)] = true
	}
	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	out := make(map[string]string, len(labels))
	for i, l := range labels {
		out[l] = Palette[i%len(Palette)]
	}
	return out
}

func firstLabel(n explorer.NodeView) string {
	if len(n.Labels) > 0 {
		return n.Labels[0]
	}
	return "default"
}

// PNG draws snap into w. Unpositioned nodes are skipped.
func PNG(w io.Writer, snap explorer.Snapshot, p layout.Params, opts PNGOptions) error {
	p = p.WithDefaults()
	if opts.Width == 0 {
		opts.Width = int(p.Width)
	}
	if opts.Height == 0 {
		opts.Height = int(p.Height)
	}
	scale := float64(opts.Width) / p.Width
	if s := float64(opts.Height) / p.Height; s < scale {
		scale = s
	}

	t := snap.Transform
	if opts.Fit || t.K == 0 {
		t = fitAll(snap, p)
	}

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetColor(color.RGBA{R: 0x0a, G: 0x0e, B: 0x17, A: 0xff})
	dc.Clear()

	pos := make(map[string]explorer.NodeView, len(snap.Nodes))
	for _, n := range snap.Nodes {
		if n.Positioned {
			pos[n.ID] = n
		}
	}
	screen := func(x, y float64) (float64, float64) {
		return (x*t.K + t.X) * scale, (y*t.K + t.Y) * scale
	}

	for _, e := range snap.Edges {
		a, okA := pos[e.Source]
		b, okB := pos[e.Target]
		if !okA || !okB {
			continue
		}
		ax, ay := screen(a.X, a.Y)
		bx, by := screen(b.X, b.Y)
		if e.Association {
			dc.SetDash(4, 4)
		} else {
			dc.SetDash()
		}
		if e.Highlight {
			dc.SetRGBA(0.18, 0.71, 0.51, 0.8)
			dc.SetLineWidth(2)
		} else {
			dc.SetRGBA(1, 1, 1, 0.15)
			dc.SetLineWidth(1)
		}
		dc.DrawLine(ax, ay, bx, by)
		dc.Stroke()
	}
	dc.SetDash()

	colors := LabelColors(snap)
	for _, n := range snap.Nodes {
		if !n.Positioned {
			continue
		}
		x, y := screen(n.X, n.Y)
		r := nodeRadius(n) * t.K * scale
		dc.DrawCircle(x, y, r)
		dc.SetHexColor(colors[firstLabel(n)])
		dc.FillPreserve()
		if n.Selected {
			dc.SetColor(color.White)
			dc.SetLineWidth(3)
		} else {
			dc.SetHexColor(colors[firstLabel(n)])
			dc.SetLineWidth(1)
		}
		dc.Stroke()
		if opts.Labels {
			dc.SetRGB(0.8, 0.8, 0.8)
			dc.DrawStringAnchored(n.Name, x, y+r+10, 0.5, 0.5)
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func nodeRadius(n explorer.NodeView) float64 {
	switch {
	case n.Selected:
		return 11
	case n.Association:
		return 6
	default:
		return 8
	}
}

func fitAll(snap explorer.Snapshot, p layout.Params) layout.Transform {
	var pts []graph.Point
	for _, n := range snap.Nodes {
		if n.Positioned {
			pts = append(pts, graph.Point{X: n.X, Y: n.Y})
		}
	}
	t, ok := layout.Fit(pts, p)
	if !ok {
		return layout.Identity
	}
	return t
}
