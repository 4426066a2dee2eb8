package render

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msalah0e/kgx/internal/explorer"
	"github.com/msalah0e/kgx/internal/layout"
)

func sampleSnapshot() explorer.Snapshot {
	return explorer.Snapshot{
		Selected: "a",
		Nodes: []explorer.NodeView{
			{ID: "a", Name: "Alpha", Labels: []string{"Batch"}, X: 100, Y: 100, Positioned: true, Selected: true},
			{ID: "b", Name: "Beta", Labels: []string{"Material"}, X: 300, Y: 200, Positioned: true, Association: true},
			{ID: "c", Name: "Gamma"},
		},
		Edges: []explorer.EdgeView{
			{ID: "a--USES--b", Source: "a", Target: "b", Type: "USES", Highlight: true, Association: true},
			{ID: "a--X--c", Source: "a", Target: "c", Type: "X"},
		},
		Transform: layout.Identity,
	}
}

func TestPNG(t *testing.T) {
	var buf bytes.Buffer
	err := PNG(&buf, sampleSnapshot(), layout.Params{}, PNGOptions{Width: 600, Height: 400, Fit: true, Labels: true})
	require.NoError(t, err)

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 600, img.Bounds().Dx())
	assert.Equal(t, 400, img.Bounds().Dy())
}

func TestPNGDefaultsToLayoutSize(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, explorer.Snapshot{}, layout.Params{}, PNGOptions{}))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 1200, img.Bounds().Dx())
}

func TestLabelColors(t *testing.T) {
	colors := LabelColors(sampleSnapshot())
	assert.Equal(t, Palette[0], colors["Batch"])
	assert.Equal(t, Palette[1], colors["Material"])
	assert.Equal(t, Palette[2], colors["default"])
}

func TestLivePage(t *testing.T) {
	html := LivePage("kgx viewer", layout.DefaultParams())
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "const LIVE=true;")
	assert.Contains(t, html, "const VW=1200,VH=800;")
	assert.Contains(t, html, "let snap=null;")
	assert.Contains(t, html, "/api/snapshot")
	assert.Contains(t, html, `"kgx viewer"`)
	assert.NotContains(t, html, "%!")
}

func TestStaticPage(t *testing.T) {
	html, err := StaticPage("query: steel", sampleSnapshot(), layout.DefaultParams())
	require.NoError(t, err)
	assert.Contains(t, html, "const LIVE=false;")
	assert.Contains(t, html, `"name":"Alpha"`)
	assert.Contains(t, html, `"query: steel"`)
	assert.NotContains(t, html, "%!")
}
