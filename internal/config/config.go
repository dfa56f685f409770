// Package config loads and validates the recalld service configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/medivault/recall/codec"
	"github.com/medivault/recall/persistence"
)

// Config holds all configuration for the recalld service and CLI.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Sources   SourcesConfig   `yaml:"sources"`
	Watch     WatchConfig     `yaml:"watch"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	RequestTimeoutSecs int    `yaml:"request_timeout_secs"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// EmbeddingConfig holds embedding gateway settings.
//
// The Google API key is deliberately absent: it is read from the
// GOOGLE_API_KEY environment variable so it never lands in a config file.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider"`
	Model             string  `yaml:"model"`
	Dimension         int     `yaml:"dimension"`
	BatchSize         int     `yaml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	CacheSize         int     `yaml:"cache_size"`
}

// IndexConfig holds vector index and artifact settings.
type IndexConfig struct {
	Dir             string `yaml:"dir"`
	ArtifactPrefix  string `yaml:"artifact_prefix"`
	Compression     string `yaml:"compression"`
	Codec           string `yaml:"codec"`
	OverfetchFactor int    `yaml:"overfetch_factor"`
}

// SourcesConfig holds the data sources ingested by `recalld init`.
type SourcesConfig struct {
	DiseasesCSV string `yaml:"diseases_csv"`
	RecordsDB   string `yaml:"records_db"`
}

// WatchConfig holds artifact watcher settings.
type WatchConfig struct {
	Enabled        bool `yaml:"enabled"`
	AutoReload     bool `yaml:"auto_reload"`
	DebounceMillis int  `yaml:"debounce_millis"`
}

// LoggingConfig holds zap logger settings.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load reads the config file at path, applies defaults, expands paths and
// validates the result. A missing file yields the pure defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyDefaults(cfg)

	cfg.Index.Dir = expandPath(cfg.Index.Dir)
	cfg.Sources.DiseasesCSV = expandPath(cfg.Sources.DiseasesCSV)
	cfg.Sources.RecordsDB = expandPath(cfg.Sources.RecordsDB)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that defaults cannot fix.
func (c *Config) Validate() error {
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("config: embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}

	switch c.Embedding.Provider {
	case "google", "mock":
	default:
		return fmt.Errorf("config: unknown embedding.provider %q (want google or mock)", c.Embedding.Provider)
	}

	if _, ok := persistence.CompressionByName(c.Index.Compression); !ok {
		return fmt.Errorf("config: unknown index.compression %q (want none, lz4 or zstd)", c.Index.Compression)
	}

	if _, ok := codec.ByName(c.Index.Codec); !ok {
		return fmt.Errorf("config: unknown index.codec %q (want json or go-json)", c.Index.Codec)
	}

	if c.Index.OverfetchFactor < 1 {
		return fmt.Errorf("config: index.overfetch_factor must be at least 1, got %d", c.Index.OverfetchFactor)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown logging.level %q", c.Logging.Level)
	}

	return nil
}

// expandPath resolves a leading "~" against the home directory.
func expandPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
