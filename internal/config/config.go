// Package config loads service configuration from an optional YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the service's tunable parameters
type Config struct {
	Port           string `yaml:"port"`
	Model          string `yaml:"model"`
	TokenBudget    int    `yaml:"token_budget"`
	ItemCost       int    `yaml:"item_cost"`
	CropMargin     int    `yaml:"crop_margin"`
	RenderDPI      int    `yaml:"render_dpi"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Port:           "8888",
		Model:          "", // annotation client default
		TokenBudget:    100,
		ItemCost:       1,
		CropMargin:     5,
		RenderDPI:      144,
		MaxUploadBytes: 25 * 1024 * 1024,
	}
}

// Load reads configuration from the YAML file at path if it exists,
// then applies environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			slog.Debug("No config file, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			slog.Info("Loaded config file", "path", path)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("TOKEN_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.TokenBudget = n
		} else {
			slog.Warn("Ignoring invalid TOKEN_BUDGET", "value", v)
		}
	}
	if v := os.Getenv("ITEM_COST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ItemCost = n
		} else {
			slog.Warn("Ignoring invalid ITEM_COST", "value", v)
		}
	}
}

func (c *Config) validate() error {
	if c.TokenBudget <= 0 {
		return fmt.Errorf("token_budget must be positive, got %d", c.TokenBudget)
	}
	if c.ItemCost <= 0 {
		return fmt.Errorf("item_cost must be positive, got %d", c.ItemCost)
	}
	if c.ItemCost > c.TokenBudget {
		return fmt.Errorf("item_cost %d exceeds token_budget %d", c.ItemCost, c.TokenBudget)
	}
	if c.CropMargin < 0 {
		return fmt.Errorf("crop_margin must not be negative, got %d", c.CropMargin)
	}
	if c.RenderDPI < 72 {
		return fmt.Errorf("render_dpi must be at least 72, got %d", c.RenderDPI)
	}
	return nil
}
