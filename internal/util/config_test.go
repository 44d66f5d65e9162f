package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigurationOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lisp.toml")
	content := `
log_level = "debug"
max_depth = 50

[journal]
driver = "sqlite3"
dsn = "file:runs.db"

[repl]
prompt = "> "
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfiguration()
	if err := LoadConfiguration(path, true, &cfg); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	if cfg.LogLevel != "debug" || cfg.MaxDepth != 50 {
		t.Errorf("top-level keys not applied: %+v", cfg)
	}
	if cfg.Journal.Driver != "sqlite3" || cfg.Journal.DSN != "file:runs.db" {
		t.Errorf("journal table not applied: %+v", cfg.Journal)
	}
	if cfg.Repl.Prompt != "> " {
		t.Errorf("repl prompt not applied: %q", cfg.Repl.Prompt)
	}
	if !cfg.PrintResults || cfg.Repl.HistoryFile == "" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadConfigurationMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")
	cfg := DefaultConfiguration()
	if err := LoadConfiguration(path, false, &cfg); err != nil {
		t.Errorf("optional missing file should be ignored, got %v", err)
	}
	if err := LoadConfiguration(path, true, &cfg); err == nil {
		t.Errorf("required missing file should fail")
	}
}

func TestLoadConfigurationRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lisp.toml")
	if err := os.WriteFile(path, []byte("max_dept = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfiguration()
	err := LoadConfiguration(path, true, &cfg)
	if err == nil || !strings.Contains(err.Error(), "max_dept") {
		t.Errorf("expected unknown key error, got %v", err)
	}
}

func TestGetLineAndColumn(t *testing.T) {
	src := "ab\ncd\n\nef"
	tests := []struct {
		pos       int
		line, col int
	}{
		{0, 1, 1},
		{1, 1, 2},
		{3, 2, 1},
		{7, 4, 1},
	}
	for _, tt := range tests {
		line, col := GetLineAndColumn(src, tt.pos)
		if line != tt.line || col != tt.col {
			t.Errorf("pos %d: expected %d:%d, got %d:%d", tt.pos, tt.line, tt.col, line, col)
		}
	}
}
