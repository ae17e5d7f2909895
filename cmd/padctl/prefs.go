package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/padctl/padctl/steamctl"
)

// bondedCache is a YAML file store for the paired controller address.
type bondedCache struct {
	path string
}

var _ steamctl.Preferences = (*bondedCache)(nil)

type bondedCacheFile struct {
	Address string `yaml:"address"`
}

func newBondedCache(path string) *bondedCache {
	return &bondedCache{path: path}
}

func (c *bondedCache) BondedAddress() (string, bool) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return "", false
	}
	var f bondedCacheFile
	if err := yaml.Unmarshal(raw, &f); err != nil || f.Address == "" {
		return "", false
	}
	return f.Address, true
}

func (c *bondedCache) SetBondedAddress(addr string) error {
	raw, err := yaml.Marshal(bondedCacheFile{Address: addr})
	if err != nil {
		return fmt.Errorf("failed to encode bonded cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("failed to create bonded cache directory: %w", err)
	}
	if err := os.WriteFile(c.path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write bonded cache: %w", err)
	}
	return nil
}
