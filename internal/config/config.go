package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"BreadthSentinel/internal/model"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		BaseURL    string        `yaml:"base_url"`
		APIKey     string        `yaml:"api_key"`
		ChunkSize  int           `yaml:"chunk_size"`
		ChunkDelay time.Duration `yaml:"chunk_delay"`
		Retries    int           `yaml:"retries"`
		Timeout    time.Duration `yaml:"timeout"`
		NSEBaseURL string        `yaml:"nse_base_url"`
	} `yaml:"data_source"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
		Timezone  string `yaml:"timezone"`
	} `yaml:"schedule"`
	History struct {
		Dir           string `yaml:"dir"`
		Start         string `yaml:"start"`
		OverwriteDays int    `yaml:"overwrite_days"`
		LookbackDays  int    `yaml:"lookback_days"`
	} `yaml:"history"`
	Indices  []string `yaml:"indices"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Dashboard struct {
		Addr        string `yaml:"addr"`
		DisplayFrom string `yaml:"display_from"`
	} `yaml:"dashboard"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load starts from Default, overlays the YAML file, then applies .env and
// environment variable overrides. Values set explicitly, zero included, win
// over defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already set in the process environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		c.Schedule.DailyCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("HISTORY_DIR"); v != "" {
		c.History.Dir = v
	}
	if v := os.Getenv("OVERWRITE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.History.OverwriteDays = n
		}
	}
	if v := os.Getenv("DASHBOARD_ADDR"); v != "" {
		c.Dashboard.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("BREADTH_INDICES"); v != "" {
		var names []string
		for _, n := range strings.Split(v, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		c.Indices = names
	}
}

// Default returns the configuration used for every field the YAML file and
// environment leave unset.
func Default() *Config {
	c := &Config{}
	c.DataSource.ChunkSize = 50
	c.DataSource.ChunkDelay = time.Second
	c.DataSource.Retries = 2
	c.DataSource.Timeout = 30 * time.Second
	c.Schedule.DailyCron = "0 30 18 * * 1-5"
	c.Schedule.Timezone = "Asia/Kolkata"
	c.History.Dir = "data"
	c.History.Start = "2014-01-01"
	c.History.OverwriteDays = 5
	c.History.LookbackDays = 420
	c.Indices = []string{"Nifty 500"}
	c.Dashboard.Addr = ":8080"
	c.Dashboard.DisplayFrom = "2015-01-01"
	c.Log.Level = "info"
	c.Log.Format = "console"
	return c
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	if _, err := model.ParseDate(c.History.Start); err != nil {
		return fmt.Errorf("history.start must be YYYY-MM-DD: %w", err)
	}
	if _, err := model.ParseDate(c.Dashboard.DisplayFrom); err != nil {
		return fmt.Errorf("dashboard.display_from must be YYYY-MM-DD: %w", err)
	}
	if len(c.Indices) == 0 {
		return fmt.Errorf("indices must name at least one index")
	}
	if c.History.OverwriteDays < 0 {
		return fmt.Errorf("history.overwrite_days must not be negative")
	}
	// 200 trading sessions span roughly 290 calendar days.
	if c.History.LookbackDays < 300 {
		return fmt.Errorf("history.lookback_days must be at least 300 to cover a 200-session SMA")
	}
	if c.DataSource.ChunkSize < 0 || c.DataSource.Retries < 0 {
		return fmt.Errorf("data_source.chunk_size and retries must not be negative")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console")
	}
	return nil
}

// HistoryStart returns the parsed backfill start date.
func (c *Config) HistoryStart() time.Time {
	t, _ := model.ParseDate(c.History.Start)
	return t
}

// DisplayFrom returns the parsed first date shown on the dashboard.
func (c *Config) DisplayFrom() time.Time {
	t, _ := model.ParseDate(c.Dashboard.DisplayFrom)
	return t
}

// Location returns the scheduler time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
