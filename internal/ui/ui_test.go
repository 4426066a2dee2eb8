package ui

import (
	"testing"

	"github.com/fatih/color"
)

func TestTruncate(t *testing.T) {
	if got := Truncate("steel batch", 20); got != "steel batch" {
		t.Errorf("short string changed: %q", got)
	}
	if got := Truncate("abcdefgh", 5); got != "abcd…" {
		t.Errorf("got %q", got)
	}
}

func TestFnWithoutColor(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	if got := Fn(Brand)("kgx"); got != "kgx" {
		t.Errorf("got %q", got)
	}
	if got := StatusIcon(true); got != "✓" {
		t.Errorf("got %q", got)
	}
}
