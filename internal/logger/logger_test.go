package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"freshscan/internal/config"
)

func TestLogger_WritesLevelFiles(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(&config.Config{LogDirectory: dir})
	defer l.Close()

	l.Info("pass %d finished", 7)
	l.Warning("patch %d skipped", 3)
	l.Error("inference broke: %s", "boom")

	tests := []struct {
		file string
		want string
	}{
		{"info.log", "pass 7 finished"},
		{"warning.log", "patch 3 skipped"},
		{"error.log", "inference broke: boom"},
	}

	for _, tt := range tests {
		data, err := os.ReadFile(filepath.Join(dir, tt.file))
		if err != nil {
			t.Fatalf("Failed to read %s: %v", tt.file, err)
		}
		if !strings.Contains(string(data), tt.want) {
			t.Errorf("%s does not contain %q: %s", tt.file, tt.want, data)
		}
	}
}

func TestLogger_CleanLogs(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(&config.Config{LogDirectory: dir})
	defer l.Close()

	l.Warning("something to clear")

	if err := l.CleanLogs("warning.log"); err != nil {
		t.Fatalf("CleanLogs failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "warning.log"))
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("Expected empty warning.log, got %d bytes", info.Size())
	}
}

func TestLogger_CleanLogs_MissingFile(t *testing.T) {
	l := NewLogger(&config.Config{LogDirectory: t.TempDir()})
	defer l.Close()

	if err := l.CleanLogs("nope.log"); err == nil {
		t.Error("Expected error for missing log file")
	}
}
