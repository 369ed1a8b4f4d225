package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aitail/aitail/internal/telemetry"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aitail.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	f, err := cfg.FilterSet()
	if err != nil {
		t.Fatal(err)
	}
	if f != telemetry.DefaultFilterSet() {
		t.Errorf("default filter = %v, want all types", f)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
filters:
  message: false
  remote_dependency: false
log:
  file: /tmp/aitail.log
  level: debug
source:
  poll_interval: 250ms
  from_start: true
tui:
  detail_style: light
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Log.File != "/tmp/aitail.log" {
		t.Errorf("Log.File = %q", cfg.Log.File)
	}
	if cfg.Source.PollInterval != 250*time.Millisecond {
		t.Errorf("Source.PollInterval = %v, want 250ms", cfg.Source.PollInterval)
	}
	if !cfg.Source.FromStart {
		t.Error("Source.FromStart = false, want true")
	}
	if cfg.TUI.DetailStyle != "light" {
		t.Errorf("TUI.DetailStyle = %q", cfg.TUI.DetailStyle)
	}

	// Defaults should still be applied for unspecified fields.
	if cfg.Source.ReconnectMax != 30*time.Second {
		t.Errorf("Source.ReconnectMax = %v, want default 30s", cfg.Source.ReconnectMax)
	}
	if cfg.Log.MaxBackups != 3 {
		t.Errorf("Log.MaxBackups = %d, want default 3", cfg.Log.MaxBackups)
	}
	if !cfg.TUI.Follow {
		t.Error("TUI.Follow default lost")
	}

	level, err := cfg.Log.SlogLevel()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, %v", level, err)
	}

	f, err := cfg.FilterSet()
	if err != nil {
		t.Fatal(err)
	}
	if f.Enabled(telemetry.Message) || f.Enabled(telemetry.RemoteDependency) {
		t.Errorf("filter = %v, Message and RemoteDependency should be off", f)
	}
	if !f.Enabled(telemetry.Request) || !f.Enabled(telemetry.Exception) || !f.Enabled(telemetry.Event) {
		t.Errorf("filter = %v, omitted types should stay on", f)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !os.IsNotExist(err) {
		t.Errorf("Load(missing) error = %v, want not-exist", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "filters: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("Load accepted invalid YAML")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown filter", "filters:\n  metric: true\n", "unknown telemetry type"},
		{"duplicate filter", "filters:\n  remote_dependency: true\n  dependency: false\n", "both set"},
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"zero poll", "source:\n  poll_interval: 0s\n", "poll_interval"},
		{"negative demo", "source:\n  demo_interval: -1s\n", "demo_interval"},
		{"reconnect order", "source:\n  reconnect_base: 10s\n  reconnect_max: 1s\n", "reconnect_max"},
		{"threshold", "source:\n  degraded_threshold: 0\n", "degraded_threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestSlogLevelEmpty(t *testing.T) {
	level, err := LogConfig{}.SlogLevel()
	if err != nil || level != slog.LevelInfo {
		t.Errorf("SlogLevel() = %v, %v; want info", level, err)
	}
}
