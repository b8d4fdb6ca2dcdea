// ABOUTME: Configuration loading for the mindscribe CLI
// ABOUTME: Merges defaults, a YAML file and MINDSCRIBE_* environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values
const (
	DefaultConfigDir      = ".mindscribe"
	DefaultConfigFile     = "config.yaml"
	DefaultBackend        = BackendWebSocket
	DefaultASRAddress     = "localhost:8931"
	DefaultModel          = "whisper-tiny.en"
	DefaultCodec          = "pcm"
	DefaultTopicsURL      = "http://localhost:8000"
	DefaultTopicsTimeout  = 2 * time.Minute
	DefaultHubListen      = "localhost:8930"
	DefaultLogLevel       = "info"
	DefaultLogFile        = "mindscribe.log"
	DefaultPreviewSeconds = 5
)

// ASR backends
const (
	BackendWebSocket = "ws"
	BackendHTTP      = "http"
)

// ASRConfig selects and addresses the speech recognition engine
type ASRConfig struct {
	// Backend is "ws" for a mindscribe ASR worker or "http" for an
	// OpenAI-compatible transcription endpoint
	Backend string `yaml:"backend"`

	// Address is host:port for ws workers or a base URL for http
	Address string `yaml:"address"`

	// Discover browses mDNS for a worker when set
	Discover bool `yaml:"discover"`

	// Model is the model id passed to Load
	Model string `yaml:"model"`

	// APIKey is sent as a bearer token to http backends
	APIKey string `yaml:"api_key,omitempty"`

	// Codec is the chunk payload codec for ws workers (pcm or opus)
	Codec string `yaml:"codec"`

	// ChunkTimeout bounds one chunk invocation; zero disables it
	ChunkTimeout time.Duration `yaml:"chunk_timeout"`
}

// TopicsConfig addresses the topic-analysis service
type TopicsConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// HubConfig configures the diagram broadcast server
type HubConfig struct {
	// Listen is the address of the /tree, /metrics and /healthz server;
	// empty disables it
	Listen string `yaml:"listen"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	File  string `yaml:"file"`
}

// Config holds all mindscribe settings
type Config struct {
	ASR            ASRConfig    `yaml:"asr"`
	Topics         TopicsConfig `yaml:"topics"`
	Hub            HubConfig    `yaml:"hub"`
	Log            LogConfig    `yaml:"log"`
	PreviewSeconds int          `yaml:"preview_seconds"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ASR: ASRConfig{
			Backend: DefaultBackend,
			Address: DefaultASRAddress,
			Model:   DefaultModel,
			Codec:   DefaultCodec,
		},
		Topics: TopicsConfig{
			URL:     DefaultTopicsURL,
			Timeout: DefaultTopicsTimeout,
		},
		Hub: HubConfig{Listen: DefaultHubListen},
		Log: LogConfig{
			Level: DefaultLogLevel,
			File:  DefaultLogFile,
		},
		PreviewSeconds: DefaultPreviewSeconds,
	}
}

// ConfigDir returns $MINDSCRIBE_CONFIG_DIR or ~/.mindscribe
func ConfigDir() (string, error) {
	if dir := os.Getenv("MINDSCRIBE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the default configuration file path
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// Load reads configuration in this order, later sources winning:
//  1. defaults
//  2. the YAML file at path, or the default path when path is empty
//  3. MINDSCRIBE_* environment variables
//
// A missing default file is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return nil, fmt.Errorf("getting config path: %w", err)
		}
		path = p
	}

	if err := loadFromFile(cfg, path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays a YAML file; keys absent from the file keep their
// current values
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

func loadFromEnv(cfg *Config) error {
	strs := map[string]*string{
		"MINDSCRIBE_ASR_BACKEND": &cfg.ASR.Backend,
		"MINDSCRIBE_ASR_ADDRESS": &cfg.ASR.Address,
		"MINDSCRIBE_ASR_MODEL":   &cfg.ASR.Model,
		"MINDSCRIBE_ASR_API_KEY": &cfg.ASR.APIKey,
		"MINDSCRIBE_ASR_CODEC":   &cfg.ASR.Codec,
		"MINDSCRIBE_TOPICS_URL":  &cfg.Topics.URL,
		"MINDSCRIBE_HUB_LISTEN":  &cfg.Hub.Listen,
		"MINDSCRIBE_LOG_LEVEL":   &cfg.Log.Level,
		"MINDSCRIBE_LOG_FILE":    &cfg.Log.File,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v := os.Getenv("MINDSCRIBE_ASR_DISCOVER"); v != "" {
		cfg.ASR.Discover = isTrue(v)
	}
	if v := os.Getenv("MINDSCRIBE_LOG_JSON"); v != "" {
		cfg.Log.JSON = isTrue(v)
	}

	durations := map[string]*time.Duration{
		"MINDSCRIBE_ASR_CHUNK_TIMEOUT": &cfg.ASR.ChunkTimeout,
		"MINDSCRIBE_TOPICS_TIMEOUT":    &cfg.Topics.Timeout,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", key, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv("MINDSCRIBE_PREVIEW_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing MINDSCRIBE_PREVIEW_SECONDS: %w", err)
		}
		cfg.PreviewSeconds = n
	}
	return nil
}

func isTrue(v string) bool {
	return v == "true" || v == "1"
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	switch c.ASR.Backend {
	case BackendWebSocket, BackendHTTP:
	default:
		return fmt.Errorf("invalid asr backend %q: must be %s or %s", c.ASR.Backend, BackendWebSocket, BackendHTTP)
	}

	if c.ASR.Address == "" && !(c.ASR.Discover && c.ASR.Backend == BackendWebSocket) {
		return fmt.Errorf("asr address is required unless discovery is enabled for the ws backend")
	}

	switch strings.ToLower(c.ASR.Codec) {
	case "pcm", "opus":
	default:
		return fmt.Errorf("invalid asr codec %q: must be pcm or opus", c.ASR.Codec)
	}

	if c.ASR.Model == "" {
		return fmt.Errorf("asr model is required")
	}
	if c.ASR.ChunkTimeout < 0 {
		return fmt.Errorf("asr chunk_timeout must not be negative")
	}
	if c.Topics.Timeout < 0 {
		return fmt.Errorf("topics timeout must not be negative")
	}
	if c.PreviewSeconds < 0 {
		return fmt.Errorf("preview_seconds must not be negative")
	}
	return nil
}

// Save writes the configuration as YAML, creating the directory if needed
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
