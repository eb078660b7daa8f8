// Package config loads alignmeet settings from defaults, a YAML file and
// ALIGNMEET_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider selects the embedding backend.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderHash   Provider = "hash"
)

// Default configuration values.
const (
	DefaultConfigDir   = ".alignmeet"
	DefaultConfigFile  = "config.yaml"
	DefaultLogFile     = "alignmeet.log"
	DefaultDBFile      = "alignmeet.sqlite"
	DefaultProvider    = ProviderOllama
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultModel       = "nomic-embed-text"
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 4
	DefaultThreshold   = 0.5
	DefaultIndent      = "-"
	DefaultLogLevel    = "info"
)

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider          Provider      `yaml:"provider"`
	URL               string        `yaml:"url"`
	Model             string        `yaml:"model"`
	Timeout           time.Duration `yaml:"timeout"`
	Concurrency       int           `yaml:"concurrency"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// AlignConfig holds automatic alignment settings.
type AlignConfig struct {
	// Threshold is the largest cosine distance accepted as a link.
	Threshold float64 `yaml:"threshold"`

	// Final confirms proposed links instead of leaving them tentative.
	Final bool `yaml:"final"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Config is the full alignmeet configuration.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Align     AlignConfig     `yaml:"align"`

	// Indent is the marker added when indenting minutes.
	Indent string `yaml:"indent"`

	// Annotator is recorded with exported meetings.
	Annotator string `yaml:"annotator,omitempty"`

	// DBPath is the export database. Empty means the config directory.
	DBPath string `yaml:"db_path,omitempty"`

	Log LogConfig `yaml:"log"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:    DefaultProvider,
			URL:         DefaultOllamaURL,
			Model:       DefaultModel,
			Timeout:     DefaultTimeout,
			Concurrency: DefaultConcurrency,
		},
		Align:     AlignConfig{Threshold: DefaultThreshold},
		Indent:    DefaultIndent,
		Annotator: os.Getenv("USER"),
		Log:       LogConfig{Level: DefaultLogLevel},
	}
}

// Dir returns the configuration directory path.
// Uses $ALIGNMEET_CONFIG_DIR if set, otherwise ~/.alignmeet
func Dir() (string, error) {
	if dir := os.Getenv("ALIGNMEET_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir), nil
}

// Path returns the full path to the configuration file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// Load reads the configuration. Later sources override earlier ones:
// 1. Default values
// 2. Config file ($ALIGNMEET_CONFIG_DIR/config.yaml or ~/.alignmeet/config.yaml)
// 3. Environment variables (ALIGNMEET_*)
func Load() (*Config, error) {
	cfg := Default()

	path, err := Path()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// loadFromFile decodes path over cfg. Keys missing from the file keep their
// current values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("ALIGNMEET_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = Provider(v)
	}
	if v := os.Getenv("ALIGNMEET_OLLAMA_URL"); v != "" {
		cfg.Embedding.URL = v
	}
	if v := os.Getenv("ALIGNMEET_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("ALIGNMEET_EMBEDDING_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ALIGNMEET_EMBEDDING_TIMEOUT: %w", err)
		}
		cfg.Embedding.Timeout = d
	}
	if v := os.Getenv("ALIGNMEET_EMBEDDING_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ALIGNMEET_EMBEDDING_CONCURRENCY: %w", err)
		}
		cfg.Embedding.Concurrency = n
	}
	if v := os.Getenv("ALIGNMEET_EMBEDDING_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("ALIGNMEET_EMBEDDING_RPS: %w", err)
		}
		cfg.Embedding.RequestsPerSecond = f
	}
	if v := os.Getenv("ALIGNMEET_ALIGN_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("ALIGNMEET_ALIGN_THRESHOLD: %w", err)
		}
		cfg.Align.Threshold = f
	}
	if v := os.Getenv("ALIGNMEET_ALIGN_FINAL"); v == "true" || v == "1" {
		cfg.Align.Final = true
	}
	if v := os.Getenv("ALIGNMEET_INDENT"); v != "" {
		cfg.Indent = v
	}
	if v := os.Getenv("ALIGNMEET_ANNOTATOR"); v != "" {
		cfg.Annotator = v
	}
	if v := os.Getenv("ALIGNMEET_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("ALIGNMEET_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ALIGNMEET_LOG_JSON"); v == "true" || v == "1" {
		cfg.Log.JSON = true
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case ProviderOllama:
		if c.Embedding.URL == "" {
			return fmt.Errorf("embedding.url is required for the ollama provider")
		}
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required for the ollama provider")
		}
	case ProviderHash:
	default:
		return fmt.Errorf("invalid embedding.provider: %q (must be ollama or hash)", c.Embedding.Provider)
	}
	if c.Embedding.Timeout <= 0 {
		return fmt.Errorf("embedding.timeout must be positive")
	}
	if c.Embedding.Concurrency < 1 {
		return fmt.Errorf("embedding.concurrency must be at least 1")
	}
	if c.Embedding.RequestsPerSecond < 0 {
		return fmt.Errorf("embedding.requests_per_second must not be negative")
	}
	if c.Align.Threshold <= 0 || c.Align.Threshold > 2 {
		return fmt.Errorf("align.threshold must be in (0, 2], got %v", c.Align.Threshold)
	}
	if c.Indent == "" {
		return fmt.Errorf("indent must not be empty")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level: %q (must be debug, info, warn or error)", c.Log.Level)
	}
	return nil
}

// ResolveDBPath returns DBPath, or the database file in the config
// directory when unset.
func (c *Config) ResolveDBPath() (string, error) {
	if c.DBPath != "" {
		return c.DBPath, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultDBFile), nil
}

// LogPath returns the file the TUI logs to.
func LogPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultLogFile), nil
}

// Save writes cfg to the config file, creating the directory.
func Save(cfg *Config) error {
	dir, err := Dir()
	if err != nil {
		return fmt.Errorf("getting config directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
