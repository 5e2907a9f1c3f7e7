package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/Hanaasagi/w90parse/internal/logger"
	"github.com/Hanaasagi/w90parse/internal/wannier"
)

type Config struct {
	Core     CoreConfig     `toml:"core"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Archive  ArchiveConfig  `toml:"archive"`
}

type CoreConfig struct {
	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`
	Workers  int    `toml:"workers"` // 0: one per CPU
	Color    bool   `toml:"color"`
}

type PipelineConfig struct {
	PathMismatch string `toml:"path_mismatch"` // "fail" or "adjust-last"
}

type ArchiveConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.toml")
}

func DefaultArchivePath() string {
	return filepath.Join(xdg.DataHome, appName, "runs.db")
}

func NewDefaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			LogLevel: "info",
			LogFile:  logger.DefaultPath(),
			Workers:  0,
			Color:    true,
		},
		Pipeline: PipelineConfig{
			PathMismatch: wannier.MismatchFail.String(),
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Path:    DefaultArchivePath(),
		},
	}
}

func LoadConfigFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil // no config file, return defaults
	}

	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to decode TOML config: %w", err)
	}

	return config, nil
}

// Validate checks the values a TOML file or a flag may have set
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Core.LogLevel); err != nil {
		return err
	}
	if c.Core.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Core.Workers)
	}
	if _, err := wannier.ParseMismatchPolicy(c.Pipeline.PathMismatch); err != nil {
		return err
	}
	if c.Archive.Enabled && c.Archive.Path == "" {
		return fmt.Errorf("archive enabled without a path")
	}
	return nil
}

// ParseOptions turns the pipeline section into parser options
func (c *Config) ParseOptions() (wannier.Options, error) {
	policy, err := wannier.ParseMismatchPolicy(c.Pipeline.PathMismatch)
	if err != nil {
		return wannier.Options{}, err
	}
	return wannier.Options{PathMismatch: policy}, nil
}
