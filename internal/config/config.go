package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/hession/storesearch/internal/itunes"
	"github.com/hession/storesearch/internal/logger"
)

var (
	// configDir is the configuration directory path
	// Can be set via SetConfigDir before loading config
	configDir     string
	configDirInit bool
)

// SetConfigDir sets a custom configuration directory
// Must be called before any config loading functions
func SetConfigDir(dir string) {
	configDir = dir
	configDirInit = true
}

// GetConfigDir returns the configuration directory
// Priority: 1. Manually set via SetConfigDir, 2. ./config in current directory
func GetConfigDir() string {
	if !configDirInit {
		cwd, err := os.Getwd()
		if err == nil {
			configDir = filepath.Join(cwd, "config")
		}
		configDirInit = true
	}
	return configDir
}

// Config application configuration structure
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
}

// StoreConfig iTunes Search API configuration
type StoreConfig struct {
	BaseURL         string `yaml:"base_url"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	UserAgent       string `yaml:"user_agent"`
	DefaultCategory string `yaml:"default_category"`
	// Locale drives result ordering and price formatting.
	Locale string `yaml:"locale"`
}

// HistoryConfig search history configuration
type HistoryConfig struct {
	Enabled    bool   `yaml:"enabled"`
	DBPath     string `yaml:"db_path"`
	MaxEntries int    `yaml:"max_entries"`
}

// LogConfig logging configuration
type LogConfig struct {
	Level   string `yaml:"level"`
	MaxDays int    `yaml:"max_days"`
	Console bool   `yaml:"console"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Store: StoreConfig{
			BaseURL:         itunes.DefaultBaseURL,
			TimeoutSeconds:  15,
			UserAgent:       "StoreSearch/0.1",
			DefaultCategory: itunes.All.String(),
			Locale:          "en",
		},
		History: HistoryConfig{
			Enabled:    true,
			DBPath:     filepath.Join(homeDir, ".storesearch", "history.db"),
			MaxEntries: 20,
		},
		Log: LogConfig{
			Level:   "info",
			MaxDays: 7,
			Console: false,
		},
	}
}

// ConfigDir returns the configuration directory path
func ConfigDir() (string, error) {
	dir := GetConfigDir()
	if dir == "" {
		return "", fmt.Errorf("failed to determine config directory")
	}
	return dir, nil
}

// LogDir returns the log directory path
func LogDir() string {
	dir := GetConfigDir()
	if dir == "" {
		return "logs"
	}
	return filepath.Join(dir, "logs")
}

// ConfigPath returns the configuration file path
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads configuration from file, writing defaults when it is missing
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := Save(cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig() // Use default values as base
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves configuration to file
func Save(cfg *Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	content := "# StoreSearch Configuration File\n# For more info: https://github.com/hession/storesearch\n\n" + string(data)

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Store.BaseURL) == "" {
		return fmt.Errorf("config error: store.base_url cannot be empty")
	}
	if c.Store.TimeoutSeconds <= 0 {
		return fmt.Errorf("config error: store.timeout_seconds must be greater than 0")
	}
	if _, err := itunes.ParseCategory(c.Store.DefaultCategory); err != nil {
		return fmt.Errorf("config error: store.default_category: %w", err)
	}
	if _, err := language.Parse(c.Store.Locale); err != nil {
		return fmt.Errorf("config error: store.locale %q is not a valid language tag", c.Store.Locale)
	}

	if c.History.Enabled && strings.TrimSpace(c.History.DBPath) == "" {
		return fmt.Errorf("config error: history.db_path cannot be empty")
	}
	if c.History.MaxEntries <= 0 {
		return fmt.Errorf("config error: history.max_entries must be greater than 0")
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config error: log.level: %w", err)
	}
	if c.Log.MaxDays <= 0 {
		return fmt.Errorf("config error: log.max_days must be greater than 0")
	}

	return nil
}

// Timeout returns the request timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Store.TimeoutSeconds) * time.Second
}

// Category returns the default search category, All when unset or invalid
func (c *Config) Category() itunes.Category {
	cat, err := itunes.ParseCategory(c.Store.DefaultCategory)
	if err != nil {
		return itunes.All
	}
	return cat
}

// LanguageTag returns the configured locale, English when unset or invalid
func (c *Config) LanguageTag() language.Tag {
	tag, err := language.Parse(c.Store.Locale)
	if err != nil {
		return language.English
	}
	return tag
}

// LoggerConfig builds the logger settings for the given directory
func (c *Config) LoggerConfig(logDir string) logger.Config {
	level, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		level = logger.INFO
	}
	return logger.Config{
		LogDir:     logDir,
		Level:      level,
		MaxDays:    c.Log.MaxDays,
		ConsoleOut: c.Log.Console,
	}
}

// String returns string representation of config
func (c *Config) String() string {
	historyDB := c.History.DBPath
	if !c.History.Enabled {
		historyDB = "(disabled)"
	}

	return fmt.Sprintf(`StoreSearch Configuration:
  Store:
    Base URL: %s
    Timeout Seconds: %d
    User Agent: %s
    Default Category: %s
    Locale: %s
  History:
    DB Path: %s
    Max Entries: %d
  Log:
    Level: %s
    Max Days: %d
    Console: %v`,
		c.Store.BaseURL,
		c.Store.TimeoutSeconds,
		c.Store.UserAgent,
		c.Store.DefaultCategory,
		c.Store.Locale,
		historyDB,
		c.History.MaxEntries,
		c.Log.Level,
		c.Log.MaxDays,
		c.Log.Console,
	)
}
