// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Chart ChartConfig `toml:"chart"`
	Load  LoadConfig  `toml:"load"`
}

// ChartConfig maps chart-related settings.
type ChartConfig struct {
	Cap         *int    `toml:"cap"`
	TakeFront   *bool   `toml:"take-front"`
	OthersLabel *string `toml:"others-label"`
}

// LoadConfig maps CSV loading settings.
type LoadConfig struct {
	Measure *string `toml:"measure"`
}

// LoadFile reads a TOML config from the given path. Missing file is not an error.
func LoadFile(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
