package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate defaults: %v", err)
	}
	if cfg.DataSource.ChunkSize != 50 || cfg.DataSource.ChunkDelay != time.Second {
		t.Errorf("expected chunk 50/1s, got %d/%v", cfg.DataSource.ChunkSize, cfg.DataSource.ChunkDelay)
	}
	if cfg.History.OverwriteDays != 5 || cfg.History.LookbackDays != 420 {
		t.Errorf("expected overwrite 5 lookback 420, got %d %d", cfg.History.OverwriteDays, cfg.History.LookbackDays)
	}
	if len(cfg.Indices) != 1 || cfg.Indices[0] != "Nifty 500" {
		t.Errorf("expected default index Nifty 500, got %v", cfg.Indices)
	}
	if got := cfg.HistoryStart().Format("2006-01-02"); got != "2014-01-01" {
		t.Errorf("expected history start 2014-01-01, got %s", got)
	}
	if got := cfg.DisplayFrom().Format("2006-01-02"); got != "2015-01-01" {
		t.Errorf("expected display from 2015-01-01, got %s", got)
	}
	if cfg.Location().String() != "Asia/Kolkata" {
		t.Errorf("expected Asia/Kolkata, got %s", cfg.Location())
	}
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
data_source:
  chunk_size: 20
  chunk_delay: 250ms
history:
  dir: "/var/breadth"
  overwrite_days: 3
indices: ["Nifty 50"]
log:
  level: debug
  format: json
`)
	t.Setenv("HISTORY_DIR", "/tmp/override")
	t.Setenv("BREADTH_INDICES", "Nifty 500, Defence & Aerospace ,")
	t.Setenv("CRON_DAILY", "0 0 19 * * 1-5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.DataSource.ChunkSize != 20 || cfg.DataSource.ChunkDelay != 250*time.Millisecond {
		t.Errorf("expected chunk 20/250ms, got %d/%v", cfg.DataSource.ChunkSize, cfg.DataSource.ChunkDelay)
	}
	if cfg.History.Dir != "/tmp/override" {
		t.Errorf("expected env to override history dir, got %s", cfg.History.Dir)
	}
	if cfg.History.OverwriteDays != 3 {
		t.Errorf("expected overwrite_days 3, got %d", cfg.History.OverwriteDays)
	}
	if len(cfg.Indices) != 2 || cfg.Indices[1] != "Defence & Aerospace" {
		t.Errorf("expected two trimmed indices, got %q", cfg.Indices)
	}
	if cfg.Schedule.DailyCron != "0 0 19 * * 1-5" {
		t.Errorf("expected cron override, got %s", cfg.Schedule.DailyCron)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("expected debug/json, got %s/%s", cfg.Log.Level, cfg.Log.Format)
	}
}

func TestLoad_ExplicitZeroWins(t *testing.T) {
	path := writeConfig(t, `
data_source:
  retries: 0
  chunk_delay: 0s
history:
  overwrite_days: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.History.OverwriteDays != 0 {
		t.Errorf("expected overwrite_days 0, got %d", cfg.History.OverwriteDays)
	}
	if cfg.DataSource.Retries != 0 {
		t.Errorf("expected retries 0, got %d", cfg.DataSource.Retries)
	}
	if cfg.DataSource.ChunkDelay != 0 {
		t.Errorf("expected chunk_delay 0, got %v", cfg.DataSource.ChunkDelay)
	}
	if cfg.DataSource.ChunkSize != 50 {
		t.Errorf("expected unset chunk_size to keep default 50, got %d", cfg.DataSource.ChunkSize)
	}
}

func TestLoad_EnvZeroOverwriteDays(t *testing.T) {
	t.Setenv("OVERWRITE_DAYS", "0")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.History.OverwriteDays != 0 {
		t.Errorf("expected OVERWRITE_DAYS=0 to survive, got %d", cfg.History.OverwriteDays)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "history: [unclosed")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad start", func(c *Config) { c.History.Start = "01/01/2014" }},
		{"short lookback", func(c *Config) { c.History.LookbackDays = 100 }},
		{"negative overwrite", func(c *Config) { c.History.OverwriteDays = -1 }},
		{"bad timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }},
		{"token without chat", func(c *Config) { c.Telegram.BotToken = "abc" }},
		{"bad level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"no indices", func(c *Config) { c.Indices = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}
