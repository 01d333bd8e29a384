// Package config provides TOML configuration for a veilberry ledger.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the main configuration for a veilberry ledger.
type Config struct {
	RecordStore  RecordStoreConfig  `toml:"recordstore"`
	MappingStore MappingStoreConfig `toml:"mappingstore"`
	Metrics      MetricsConfig      `toml:"metrics"`
	Tracing      TracingConfig      `toml:"tracing"`
	Logging      LoggingConfig      `toml:"logging"`
}

// RecordStoreConfig contains record storage configuration.
type RecordStoreConfig struct {
	// Backend is the storage backend to use ("leveldb", "badgerdb", or "memory").
	Backend string `toml:"backend"`

	// Path is the directory path for record storage.
	// Ignored by the memory backend.
	Path string `toml:"path"`

	// CacheSize is the record cache size in entries.
	CacheSize int `toml:"cache_size"`
}

// MappingStoreConfig contains public mapping state storage configuration.
type MappingStoreConfig struct {
	// Backend is the storage backend to use ("iavl" or "memory").
	Backend string `toml:"backend"`

	// Path is the directory path for mapping state storage.
	// Ignored by the memory backend.
	Path string `toml:"path"`

	// CacheSize is the IAVL node cache size.
	CacheSize int `toml:"cache_size"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled determines whether metrics collection is active.
	Enabled bool `toml:"enabled"`

	// ListenAddr is the address to serve metrics on (e.g., ":9090").
	ListenAddr string `toml:"listen_addr"`
}

// TracingConfig contains tracing configuration.
type TracingConfig struct {
	// Enabled determines whether trace export is active.
	Enabled bool `toml:"enabled"`

	// Exporter is the span exporter ("otlp", "otlp-http", "stdout", or "none").
	Exporter string `toml:"exporter"`

	// Endpoint is the collector endpoint for the otlp exporters.
	Endpoint string `toml:"endpoint"`

	// SampleRatio is the fraction of invocations to trace, in [0, 1].
	SampleRatio float64 `toml:"sample_ratio"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `toml:"level"`

	// Format is the log output format ("text" or "json").
	Format string `toml:"format"`

	// Output is the log output destination ("stdout", "stderr", or a file path).
	Output string `toml:"output"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		RecordStore: RecordStoreConfig{
			Backend:   "leveldb",
			Path:      "data/records",
			CacheSize: 4096,
		},
		MappingStore: MappingStoreConfig{
			Backend:   "iavl",
			Path:      "data/mappings",
			CacheSize: 10000,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: ":9090",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Exporter:    "none",
			Endpoint:    "localhost:4317",
			SampleRatio: 1.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// LoadConfig loads configuration from a TOML file.
// Missing values are filled with defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validation errors.
var (
	ErrInvalidRecordStoreBackend  = errors.New("recordstore backend must be 'leveldb', 'badgerdb', or 'memory'")
	ErrEmptyRecordStorePath       = errors.New("recordstore path cannot be empty")
	ErrInvalidRecordCacheSize     = errors.New("recordstore cache_size must be non-negative")
	ErrInvalidMappingStoreBackend = errors.New("mappingstore backend must be 'iavl' or 'memory'")
	ErrEmptyMappingStorePath      = errors.New("mappingstore path cannot be empty")
	ErrInvalidMappingCacheSize    = errors.New("mappingstore cache_size must be non-negative")
	ErrEmptyMetricsListenAddr     = errors.New("metrics listen_addr cannot be empty when enabled")
	ErrInvalidTracingExporter     = errors.New("tracing exporter must be one of: otlp, otlp-http, stdout, none")
	ErrEmptyTracingEndpoint       = errors.New("tracing endpoint cannot be empty for otlp exporters")
	ErrInvalidSampleRatio         = errors.New("tracing sample_ratio must be in [0, 1]")
	ErrInvalidLogLevel            = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat           = errors.New("log format must be 'text' or 'json'")
	ErrEmptyLogOutput             = errors.New("log output cannot be empty")
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.RecordStore.Validate(); err != nil {
		return fmt.Errorf("recordstore config: %w", err)
	}
	if err := c.MappingStore.Validate(); err != nil {
		return fmt.Errorf("mappingstore config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate checks the record store configuration for errors.
func (c *RecordStoreConfig) Validate() error {
	switch c.Backend {
	case "leveldb", "badgerdb":
		if c.Path == "" {
			return ErrEmptyRecordStorePath
		}
	case "memory":
		// No path required.
	default:
		return ErrInvalidRecordStoreBackend
	}
	if c.CacheSize < 0 {
		return ErrInvalidRecordCacheSize
	}
	return nil
}

// Validate checks the mapping store configuration for errors.
func (c *MappingStoreConfig) Validate() error {
	switch c.Backend {
	case "iavl":
		if c.Path == "" {
			return ErrEmptyMappingStorePath
		}
	case "memory":
		// No path required.
	default:
		return ErrInvalidMappingStoreBackend
	}
	if c.CacheSize < 0 {
		return ErrInvalidMappingCacheSize
	}
	return nil
}

// Validate checks the metrics configuration for errors.
func (c *MetricsConfig) Validate() error {
	if c.Enabled && c.ListenAddr == "" {
		return ErrEmptyMetricsListenAddr
	}
	return nil
}

// Validate checks the tracing configuration for errors.
func (c *TracingConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Exporter {
	case "otlp", "otlp-http":
		if c.Endpoint == "" {
			return ErrEmptyTracingEndpoint
		}
	case "stdout", "none":
		// No endpoint required.
	default:
		return ErrInvalidTracingExporter
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return ErrInvalidSampleRatio
	}
	return nil
}

// Validate checks the logging configuration for errors.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return ErrInvalidLogLevel
	}

	switch c.Format {
	case "text", "json":
		// Valid formats
	default:
		return ErrInvalidLogFormat
	}

	if c.Output == "" {
		return ErrEmptyLogOutput
	}

	return nil
}

// WriteConfigFile writes the configuration to a TOML file.
func WriteConfigFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return nil
}

// EnsureDataDirs creates the data directories specified in the configuration.
func (c *Config) EnsureDataDirs() error {
	dirs := []string{}
	if c.RecordStore.Backend != "memory" {
		dirs = append(dirs, c.RecordStore.Path)
	}
	if c.MappingStore.Backend != "memory" {
		dirs = append(dirs, c.MappingStore.Path)
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	return nil
}
