package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRejection_EmbeddedAndFallback(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Rejection("not_your_turn"); got != "It is not your turn." {
		t.Fatalf("not_your_turn = %q", got)
	}
	if got := c.Rejection("made_up"); !strings.Contains(got, "made_up") {
		t.Fatalf("fallback = %q", got)
	}
}

func TestNew_OverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("reject:\n  game_full: \"Kein Platz mehr.\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Rejection("game_full"); got != "Kein Platz mehr." {
		t.Fatalf("override not applied: %q", got)
	}
}

func TestNew_DuplicateOverrideKeys(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("reject:\n  game_full: \"x\"\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestRender_MissingField(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("reject.default", map[string]string{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}
