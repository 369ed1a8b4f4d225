package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aitail/aitail/internal/telemetry"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Filters map[string]bool `yaml:"filters"`
	Log     LogConfig       `yaml:"log"`
	Source  SourceConfig    `yaml:"source"`
	TUI     TUIConfig       `yaml:"tui"`
}

type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type SourceConfig struct {
	PollInterval      time.Duration `yaml:"poll_interval"`
	ReconnectBase     time.Duration `yaml:"reconnect_base"`
	ReconnectMax      time.Duration `yaml:"reconnect_max"`
	FromStart         bool          `yaml:"from_start"`
	DemoInterval      time.Duration `yaml:"demo_interval"`
	DegradedThreshold int           `yaml:"degraded_threshold"`
}

type TUIConfig struct {
	DetailStyle string `yaml:"detail_style"`
	Follow      bool   `yaml:"follow"`
}

// Default returns the configuration used when no file is given. Load starts
// from the same values, so omitted keys keep their defaults. The filters map
// starts empty; every type not named in it is enabled.
func Default() *Config {
	return &Config{
		Filters: make(map[string]bool),
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Source: SourceConfig{
			PollInterval:      500 * time.Millisecond,
			ReconnectBase:     time.Second,
			ReconnectMax:      30 * time.Second,
			DemoInterval:      400 * time.Millisecond,
			DegradedThreshold: 5,
		},
		TUI: TUIConfig{
			DetailStyle: "dark",
			Follow:      true,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	seen := make(map[telemetry.Type]string, len(c.Filters))
	for key := range c.Filters {
		t, err := telemetry.ParseType(key)
		if err != nil {
			return fmt.Errorf("filters: %w", err)
		}
		if prev, ok := seen[t]; ok {
			return fmt.Errorf("filters: %q and %q both set %v", prev, key, t)
		}
		seen[t] = key
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	durations := map[string]time.Duration{
		"source.poll_interval":  c.Source.PollInterval,
		"source.reconnect_base": c.Source.ReconnectBase,
		"source.reconnect_max":  c.Source.ReconnectMax,
		"source.demo_interval":  c.Source.DemoInterval,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}
	if c.Source.ReconnectMax < c.Source.ReconnectBase {
		return fmt.Errorf("source.reconnect_max (%v) is below reconnect_base (%v)", c.Source.ReconnectMax, c.Source.ReconnectBase)
	}
	if c.Source.DegradedThreshold <= 0 {
		return fmt.Errorf("source.degraded_threshold must be positive, got %d", c.Source.DegradedThreshold)
	}
	return nil
}

// FilterSet returns the initial filter. Types missing from the filters map
// stay enabled.
func (c *Config) FilterSet() (telemetry.FilterSet, error) {
	f := telemetry.DefaultFilterSet()
	for key, enabled := range c.Filters {
		t, err := telemetry.ParseType(key)
		if err != nil {
			return 0, fmt.Errorf("filters: %w", err)
		}
		f = f.Set(t, enabled)
	}
	return f, nil
}

func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
