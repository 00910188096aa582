package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env            string        `yaml:"env"`
	LogLevel       string        `yaml:"log_level"`
	ListenAddr     string        `yaml:"listen_addr"`
	DBType         string        `yaml:"storage_backend"`
	DBDSN          string        `yaml:"postgres_dsn"`
	SQLitePath     string        `yaml:"sqlite_path"`
	DataDir        string        `yaml:"data_dir"`
	StateDir       string        `yaml:"state_dir"`
	AuthToken      string        `yaml:"auth_token"`
	AuthServiceURL string        `yaml:"auth_service_url"`
	Timezone       string        `yaml:"timezone"`
	TickInterval   time.Duration `yaml:"tick_interval"`
	ArchiveTimeout time.Duration `yaml:"archive_timeout"`
	TapThreshold   int           `yaml:"tap_threshold"`
	TapWindow      time.Duration `yaml:"tap_window"`
}

var (
	cfg  *Config
	once sync.Once
)

// Load reads the process configuration once. Invalid configuration is fatal.
func Load() *Config {
	once.Do(func() {
		_ = loadDotEnv()
		c, err := Parse(os.Getenv("CONFIG_FILE"))
		if err != nil {
			panic("Invalid config: " + err.Error())
		}
		cfg = c
	})
	return cfg
}

func defaults() *Config {
	return &Config{
		Env:            "development",
		LogLevel:       "info",
		ListenAddr:     ":8088",
		DBType:         "file",
		SQLitePath:     "data/echo.db",
		DataDir:        "data",
		StateDir:       "data/state",
		AuthToken:      "MOCK-TOKEN",
		TickInterval:   time.Minute,
		ArchiveTimeout: 30 * time.Second,
		TapThreshold:   5,
		TapWindow:      2 * time.Second,
	}
}

// Parse builds a Config from defaults, then the optional YAML file, then the
// environment. Later sources win.
func Parse(file string) (*Config, error) {
	c := defaults()
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
		if err := yaml.Unmarshal(raw, c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", file, err)
		}
	}

	c.Env = getEnv("APP_ENV", c.Env)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.DBType = getEnv("STORAGE_BACKEND", c.DBType)
	c.DBDSN = getEnv("POSTGRES_DSN", c.DBDSN)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.StateDir = getEnv("STATE_DIR", c.StateDir)
	c.AuthToken = getEnv("AUTH_TOKEN", c.AuthToken)
	c.AuthServiceURL = getEnv("AUTH_SERVICE_URL", c.AuthServiceURL)
	c.Timezone = getEnv("TZ_NAME", c.Timezone)

	var err error
	if c.TickInterval, err = getDuration("TICK_INTERVAL", c.TickInterval); err != nil {
		return nil, err
	}
	if c.ArchiveTimeout, err = getDuration("ARCHIVE_TIMEOUT", c.ArchiveTimeout); err != nil {
		return nil, err
	}
	if c.TapWindow, err = getDuration("TAP_WINDOW", c.TapWindow); err != nil {
		return nil, err
	}
	if v := os.Getenv("TAP_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: TAP_THRESHOLD: %w", err)
		}
		c.TapThreshold = n
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	switch c.DBType {
	case "postgres":
		if c.DBDSN == "" {
			return errors.New("POSTGRES_DSN is required when STORAGE_BACKEND=postgres")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required when STORAGE_BACKEND=sqlite")
		}
	case "file":
		if c.DataDir == "" {
			return errors.New("File storage requires DATA_DIR to be set")
		}
	default:
		return errors.New("STORAGE_BACKEND must be one of: file, sqlite, postgres")
	}
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return errors.New("APP_ENV must be one of: development, staging, production")
	}
	if c.Env != "development" && c.AuthServiceURL == "" {
		return errors.New("AUTH_SERVICE_URL is required outside development")
	}
	if c.TickInterval <= 0 {
		return errors.New("TICK_INTERVAL must be positive")
	}
	if c.TapThreshold < 2 {
		return errors.New("TAP_THRESHOLD must be at least 2")
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("TZ_NAME: %w", err)
		}
	}
	return nil
}

// Location resolves the configured timezone; empty means the host's local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		f, err := os.Open(".env")
		if err != nil {
			return err
		}
		defer f.Close()
		var lines []string
		buf := make([]byte, 4096)
		for {
			n, err := f.Read(buf)
			if n > 0 {
				lines = append(lines, string(buf[:n]))
			}
			if err != nil {
				break
			}
		}
		for _, line := range lines {
			for _, l := range splitLines(line) {
				if len(l) == 0 || l[0] == '#' {
					continue
				}
				kv := splitKV(l)
				if len(kv) == 2 && os.Getenv(kv[0]) == "" {
					os.Setenv(kv[0], kv[1])
				}
			}
		}
	}
	return nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, c := range s {
		if c == '\n' || c == '\r' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func splitKV(s string) []string {
	for i, c := range s {
		if c == '=' {
			return []string{s[:i], s[i+1:]}
		}
	}
	return nil
}
