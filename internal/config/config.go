package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"valuescreen/internal/criteria"
)

// Config represents the application configuration
type Config struct {
	Data     DataConfig        `yaml:"data" toml:"data"`
	Screener ScreenerConfig    `yaml:"screener" toml:"screener"`
	Schedule ScheduleConfig    `yaml:"schedule" toml:"schedule"`
	Log      LogConfig         `yaml:"log" toml:"log"`
	Criteria criteria.Criteria `yaml:"criteria" toml:"criteria"`
}

// DataConfig locates the data directories and bounds access to them
type DataConfig struct {
	// Dirs are tried in order; later directories fill gaps in earlier ones
	Dirs      []string `yaml:"dirs" toml:"dirs"`
	RateLimit int      `yaml:"rate_limit" toml:"rate_limit"` // requests per minute, 0 = unlimited
	Retries   int      `yaml:"retries" toml:"retries"`
	Cache     bool     `yaml:"cache" toml:"cache"`
}

// ScreenerConfig holds screener settings
type ScreenerConfig struct {
	Workers  int    `yaml:"workers" toml:"workers"`
	Timeout  string `yaml:"timeout" toml:"timeout"` // Go duration, "" = no bound
	Top      int    `yaml:"top" toml:"top"`         // 0 = all
	Universe string `yaml:"universe" toml:"universe"`
}

// ScheduleConfig holds the periodic run settings
type ScheduleConfig struct {
	Cron      string   `yaml:"cron" toml:"cron"`
	Pipelines []string `yaml:"pipelines" toml:"pipelines"` // "score", "signals"
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	JSON  bool   `yaml:"json" toml:"json"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Dirs:    []string{"data"},
			Retries: 2,
			Cache:   true,
		},
		Screener: ScreenerConfig{
			Workers: 8,
			Timeout: "5m",
		},
		Schedule: ScheduleConfig{
			Cron:      "0 18 * * 1-5",
			Pipelines: []string{"score", "signals"},
		},
		Log: LogConfig{
			Level: "info",
		},
		Criteria: criteria.Default(),
	}
}

// Load loads configuration from a YAML or TOML file (by extension).
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides applies VALUESCREEN_* environment variables; malformed
// numbers are ignored
func applyEnvOverrides(cfg *Config) {
	if dir := os.Getenv("VALUESCREEN_DATA_DIR"); dir != "" {
		cfg.Data.Dirs = strings.Split(dir, string(os.PathListSeparator))
	}
	if workers := os.Getenv("VALUESCREEN_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			cfg.Screener.Workers = n
		}
	}
	if level := os.Getenv("VALUESCREEN_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

// TimeoutDuration parses Screener.Timeout
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Screener.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Screener.Timeout)
	if err != nil {
		return 0, fmt.Errorf("screener.timeout: %w", err)
	}
	return d, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Data.Dirs) == 0 {
		return fmt.Errorf("at least one data directory is required")
	}
	if c.Screener.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.Screener.Top < 0 {
		return fmt.Errorf("top must not be negative")
	}
	if c.Data.RateLimit < 0 || c.Data.Retries < 0 {
		return fmt.Errorf("rate_limit and retries must not be negative")
	}
	if d, err := c.TimeoutDuration(); err != nil {
		return err
	} else if d < 0 {
		return fmt.Errorf("screener.timeout must not be negative")
	}
	for _, p := range c.Schedule.Pipelines {
		if p != "score" && p != "signals" {
			return fmt.Errorf("unknown pipeline %q (want score or signals)", p)
		}
	}
	if err := c.Criteria.Validate(); err != nil {
		return fmt.Errorf("criteria: %w", err)
	}
	return nil
}
