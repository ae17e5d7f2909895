package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mcuadros/go-defaults"
	"gopkg.in/yaml.v3"
)

// monitorConfig tunes the monitor command. Loaded from an optional YAML file;
// missing fields take the struct-tag defaults.
type monitorConfig struct {
	// DeviceName matches a controller advertising in pairing mode.
	DeviceName string `yaml:"device_name" default:"SteamController"`

	// RetryDelay separates reconnect attempts.
	RetryDelay time.Duration `yaml:"retry_delay" default:"3s"`

	// BondedCache is the YAML file remembering the paired controller address.
	BondedCache string `yaml:"bonded_cache"`
}

func loadMonitorConfig(path string) (*monitorConfig, error) {
	cfg := &monitorConfig{}
	defaults.SetDefaults(cfg)

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if cfg.BondedCache == "" {
		cfg.BondedCache = defaultBondedCachePath()
	}
	return cfg, nil
}

func defaultBondedCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "padctl-bonded.yaml"
	}
	return filepath.Join(home, ".config", "padctl", "bonded.yaml")
}
