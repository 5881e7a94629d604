package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration, loaded from an optional YAML file.
// Flags override file values; anything left unset falls back to defaults.
type Config struct {
	Addr    string  `yaml:"addr"`
	DBPath  string  `yaml:"db_path"`
	LogPath string  `yaml:"log_path"`
	Lending Lending `yaml:"lending"`
}

// Lending is the custody policy: when requests are accepted and how long a
// loan runs before it can go overdue.
type Lending struct {
	WindowOpen  string `yaml:"window_open"`
	WindowClose string `yaml:"window_close"`
	Timezone    string `yaml:"timezone"`
	LoanDays    int    `yaml:"loan_days"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:   ":8080",
		DBPath: "izposoja.sqlite3",
		Lending: Lending{
			WindowOpen:  "09:00",
			WindowClose: "17:00",
			Timezone:    "Local",
			LoanDays:    14,
		},
	}
}

// Load reads the configuration from path, applying defaults for unset
// fields. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the lending policy for contradictions.
func (c Config) Validate() error {
	open, err := parseClock(c.Lending.WindowOpen)
	if err != nil {
		return fmt.Errorf("lending.window_open: %w", err)
	}
	close, err := parseClock(c.Lending.WindowClose)
	if err != nil {
		return fmt.Errorf("lending.window_close: %w", err)
	}
	if open >= close {
		return fmt.Errorf("lending window opens at or after it closes (%s >= %s)",
			c.Lending.WindowOpen, c.Lending.WindowClose)
	}
	if c.Lending.LoanDays <= 0 {
		return fmt.Errorf("lending.loan_days must be positive, got %d", c.Lending.LoanDays)
	}
	if _, err := c.Lending.Location(); err != nil {
		return err
	}
	return nil
}

// WindowMinutes returns the request window bounds as minutes since midnight.
func (l Lending) WindowMinutes() (open, close int, err error) {
	open, err = parseClock(l.WindowOpen)
	if err != nil {
		return 0, 0, fmt.Errorf("lending.window_open: %w", err)
	}
	close, err = parseClock(l.WindowClose)
	if err != nil {
		return 0, 0, fmt.Errorf("lending.window_close: %w", err)
	}
	return open, close, nil
}

// Location resolves the policy timezone.
func (l Lending) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return nil, fmt.Errorf("lending.timezone: %w", err)
	}
	return loc, nil
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
