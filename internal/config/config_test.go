package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.General.DefaultRange != "today" {
		t.Errorf("DefaultRange = %q, want today", cfg.General.DefaultRange)
	}
	if !cfg.Services.Claude || cfg.Services.Codex {
		t.Errorf("service defaults = %+v", cfg.Services)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	want := DefaultConfig()
	want.General.DefaultRange = "week"
	want.General.ClaudeDir = "/srv/claude"
	want.Services.Codex = true
	want.Credentials.CodexPath = "/srv/codex/auth.json"

	if Exists() {
		t.Fatal("config should not exist yet")
	}
	if err := Save(want); err != nil {
		t.Fatal(err)
	}
	if !Exists() {
		t.Fatal("config should exist after Save")
	}

	got, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfgDir := filepath.Join(dir, "token-watcher")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	data := "[general]\ndefault_range = \"month\"\n"
	if err := os.WriteFile(filepath.Join(cfgDir, "config.toml"), []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.General.DefaultRange != "month" {
		t.Errorf("DefaultRange = %q, want month", cfg.General.DefaultRange)
	}
	if !cfg.Services.Claude {
		t.Error("unset [services] must keep the default claude=true")
	}
}

func TestProjectsDir(t *testing.T) {
	var cfg Config
	cfg.General.ClaudeDir = "/data/claude"
	if got := cfg.ProjectsDir(); got != "/data/claude/projects" {
		t.Errorf("ProjectsDir = %q", got)
	}
}

func TestAvailability(t *testing.T) {
	dir := t.TempDir()
	claudePath := filepath.Join(dir, ".credentials.json")
	if err := os.WriteFile(claudePath, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}

	var cfg Config
	cfg.Credentials.ClaudePath = claudePath
	cfg.Credentials.CodexPath = filepath.Join(dir, "missing.json")

	avail := cfg.Availability()
	if !avail.Claude {
		t.Error("claude credentials present on disk, want available")
	}
	if avail.Codex {
		t.Error("codex auth file missing, want unavailable")
	}
}
