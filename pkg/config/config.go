// Package config loads colorout's application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/colorout/pkg/types"
)

// Store backends
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Color modes
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config holds all configuration for colorout
type Config struct {
	// Rule persistence
	Store        string `yaml:"store" env:"COLOROUT_STORE"`
	SettingsPath string `yaml:"settings_path" env:"COLOROUT_SETTINGS"`
	Watch        bool   `yaml:"watch" env:"COLOROUT_WATCH"`

	// Classifier
	CacheSize int `yaml:"cache_size" env:"COLOROUT_CACHE_SIZE"`

	// Output
	Color   string            `yaml:"color" env:"COLOROUT_COLOR"`
	Colors  map[string]string `yaml:"colors"`
	Summary bool              `yaml:"summary" env:"COLOROUT_SUMMARY"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Store:     StoreFile,
		Watch:     true,
		CacheSize: 4096,
		Color:     ColorAuto,
		Summary:   false,
	}
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	return LoadFrom(getConfigPath())
}

// LoadFrom loads configuration from the file at path (which may be absent)
// and the environment.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if cfg.SettingsPath == "" {
		cfg.SettingsPath = defaultSettingsPath(cfg.Store)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ColorOverrides parses the colors map into classification tags
func (c *Config) ColorOverrides() (map[types.ClassificationTag]string, error) {
	out := make(map[types.ClassificationTag]string, len(c.Colors))
	for name, color := range c.Colors {
		tag, err := types.ParseClassification(name)
		if err != nil {
			return nil, fmt.Errorf("colors: %w", err)
		}
		out[tag] = color
	}
	return out, nil
}

// getConfigPath returns the config file path
func getConfigPath() string {
	// Check for explicit config path
	if path := os.Getenv("COLOROUT_CONFIG"); path != "" {
		return path
	}
	return filepath.Join(xdg.ConfigHome, "colorout", "config.yaml")
}

func defaultSettingsPath(store string) string {
	name := "settings.yaml"
	if store == StoreSQLite {
		name = "settings.db"
	}
	return filepath.Join(xdg.ConfigHome, "colorout", name)
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, path string) error {
	// #nosec G304 - The config file path comes from trusted sources (env var or standard locations)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) error {
	if store := os.Getenv("COLOROUT_STORE"); store != "" {
		cfg.Store = store
	}

	if path := os.Getenv("COLOROUT_SETTINGS"); path != "" {
		cfg.SettingsPath = path
	}

	if size := os.Getenv("COLOROUT_CACHE_SIZE"); size != "" {
		n, err := strconv.Atoi(size)
		if err != nil {
			return fmt.Errorf("invalid COLOROUT_CACHE_SIZE: %w", err)
		}
		cfg.CacheSize = n
	}

	if color := os.Getenv("COLOROUT_COLOR"); color != "" {
		cfg.Color = strings.ToLower(color)
	}

	if err := envBool("COLOROUT_WATCH", &cfg.Watch); err != nil {
		return err
	}
	if err := envBool("COLOROUT_SUMMARY", &cfg.Summary); err != nil {
		return err
	}

	return nil
}

func envBool(name string, dst *bool) error {
	value := os.Getenv(name)
	if value == "" {
		return nil
	}
	switch value {
	case "true", "1", "yes":
		*dst = true
	case "false", "0", "no":
		*dst = false
	default:
		return fmt.Errorf("invalid %s value: %q (use true/false)", name, value)
	}
	return nil
}

// validate validates the configuration
func validate(cfg *Config) error {
	switch cfg.Store {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("store must be one of file, sqlite, memory (got %q)", cfg.Store)
	}

	switch cfg.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("color must be one of auto, always, never (got %q)", cfg.Color)
	}

	if cfg.CacheSize < 0 {
		return fmt.Errorf("cache_size must be non-negative")
	}

	if _, err := cfg.ColorOverrides(); err != nil {
		return err
	}

	return nil
}
