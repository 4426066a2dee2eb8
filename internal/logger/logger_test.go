package logger

import "testing"

func TestNew(t *testing.T) {
	for _, mode := range []string{"dev", "prod"} {
		l, err := New(mode, "debug")
		if err != nil {
			t.Fatalf("New(%q) failed: %v", mode, err)
		}
		l.With("component", "test").Debug("hello", "k", 1)
	}
}

func TestNewBadLevel(t *testing.T) {
	if _, err := New("dev", "loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestOrNop(t *testing.T) {
	l := OrNop(nil)
	if l == nil || l.SugaredLogger == nil {
		t.Fatal("expected a usable logger")
	}
	l.Info("discarded")
}
