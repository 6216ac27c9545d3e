package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestToTitle(t *testing.T) {
	tests := map[string]string{
		"pubforms": "Pubforms",
		"my-site":  "My Site",
		"a--b":     "A  B",
		"":         "",
	}
	for in, want := range tests {
		if got := toTitle(in); got != want {
			t.Errorf("toTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRunInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my-site")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := runInit(dir); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	cfg, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("config.toml not written: %v", err)
	}
	if !strings.Contains(string(cfg), `name = "My Site"`) {
		t.Errorf("site name not rendered:\n%s", cfg)
	}

	env, err := os.ReadFile(filepath.Join(dir, ".env"))
	if err != nil {
		t.Fatalf(".env not written: %v", err)
	}
	line := strings.SplitN(string(env), "\n", 2)[0]
	if secret := strings.TrimPrefix(line, "SESSION_SECRET="); len(secret) != 64 {
		t.Errorf("session secret = %q, want 64 hex chars", secret)
	}

	if err := runInit(dir); err == nil {
		t.Error("expected second init to refuse overwriting files")
	}
}
