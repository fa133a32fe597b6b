package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath    = "compile.yml"
	DefaultPort    = 8080
	DefaultTTL     = 24 * time.Hour
	DefaultLockTTL = 10 * time.Minute
)

// Load reads, validates and fills defaults for a compile job file.
// Relative dataset and output paths are taken relative to the file.
func Load(path string) (*CompileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range cfg.Datasets {
		cfg.Datasets[i].Path = resolve(base, cfg.Datasets[i].Path)
	}
	cfg.Output.Path = resolve(base, cfg.Output.Path)
	return cfg, nil
}

// Parse decodes and validates a compile job document
func Parse(data []byte) (*CompileConfig, error) {
	var cfg CompileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Output.Format == "" {
		cfg.Output.Format = "msgpack"
		if filepath.Ext(cfg.Output.Path) == ".json" {
			cfg.Output.Format = "json"
		}
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultTTL
	}
	if cfg.Cache.LockTTL == 0 {
		cfg.Cache.LockTTL = DefaultLockTTL
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = DefaultPort
	}
	return &cfg, nil
}

func resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// ListenAddr returns the address the inspection API listens on
func (c *CompileConfig) ListenAddr() string {
	return fmt.Sprintf(":%d", c.API.Port)
}
