// Package config loads the ragdex YAML configuration by environment name,
// expands ${VAR} references and fills defaults so a missing config file
// still yields a fully working local setup.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the ragdex pipeline configuration.
type Config struct {
	Data      DataConfig      `yaml:"data"`
	Normalize NormalizeConfig `yaml:"normalize"`
	Slicing   SlicingConfig   `yaml:"slicing"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Context   ContextConfig   `yaml:"context"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DataConfig locates the artifact data directory.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// NormalizeConfig holds text canonicalization settings.
type NormalizeConfig struct {
	TokenDivisor int `yaml:"token_divisor"` // chars per token heuristic (default: 4)
}

// SlicingConfig holds slicing stage settings.
type SlicingConfig struct {
	MaxTokens int `yaml:"max_tokens"` // per-slice token budget (default: 1500)
	Workers   int `yaml:"workers"`    // 0 = GOMAXPROCS
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string       `yaml:"provider"` // hash, openai (default: hash)
	Dimensions int          `yaml:"dimensions"`
	Workers    int          `yaml:"workers"` // 0 = GOMAXPROCS
	OpenAI     OpenAIConfig `yaml:"openai"`
	Cache      CacheConfig  `yaml:"cache"`
}

// OpenAIConfig holds OpenAI-compatible provider settings.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// CacheConfig holds the embedding cache backend settings.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	TTLHours         int      `yaml:"ttl_hours"` // default 168; negative = keep entries forever
}

// RetrievalConfig holds retrieval defaults.
type RetrievalConfig struct {
	TopK     int     `yaml:"top_k"`
	MinScore float64 `yaml:"min_score"`
}

// ContextConfig holds context assembly settings.
type ContextConfig struct {
	MaxTokens     int `yaml:"max_tokens"`      // assembled context budget (default: 2000)
	MinPartTokens int `yaml:"min_part_tokens"` // smallest truncated fragment (default: 100)
}

// HTTPConfig holds HTTP server settings for the serve command.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// Load reads configuration from a YAML file by environment name (local, dev,
// prod). A missing file is not an error: the defaults describe a complete
// local setup with the deterministic hash embedder.
func Load(env string) (Config, error) {
	var cfg Config

	configPath := findConfigPath(env)
	data, err := os.ReadFile(filepath.Clean(configPath))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// defaults only
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	default:
		data = expandEnvVars(data)
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Data.Dir == "" {
		c.Data.Dir = "data"
	}
	if c.Normalize.TokenDivisor <= 0 {
		c.Normalize.TokenDivisor = 4
	}
	if c.Slicing.MaxTokens <= 0 {
		c.Slicing.MaxTokens = 1500
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "hash"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Embedding.OpenAI.Model == "" {
		c.Embedding.OpenAI.Model = "text-embedding-3-small"
	}
	if c.Embedding.Cache.Driver == "" {
		c.Embedding.Cache.Driver = "valkey"
	}
	if c.Embedding.Cache.ReadinessTimeout <= 0 {
		c.Embedding.Cache.ReadinessTimeout = 10
	}
	if c.Embedding.Cache.TTLHours == 0 {
		c.Embedding.Cache.TTLHours = 168
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 5
	}
	if c.Context.MaxTokens <= 0 {
		c.Context.MaxTokens = 2000
	}
	if c.Context.MinPartTokens <= 0 {
		c.Context.MinPartTokens = 100
	}
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "hash", "openai":
	default:
		return fmt.Errorf("embedding.provider must be \"hash\" or \"openai\", got %q", c.Embedding.Provider)
	}
	if c.Embedding.Provider == "openai" && c.Embedding.OpenAI.APIKey == "" {
		return fmt.Errorf("embedding.openai.api_key is required for the openai provider")
	}
	switch c.Embedding.Cache.Driver {
	case "valkey", "redis":
	default:
		return fmt.Errorf("embedding.cache.driver must be \"valkey\" or \"redis\", got %q", c.Embedding.Cache.Driver)
	}
	if c.Embedding.Cache.Enabled && len(c.Embedding.Cache.Addrs) == 0 {
		return fmt.Errorf("embedding.cache.addrs is required when the cache is enabled")
	}
	if c.Retrieval.MinScore < 0 || c.Retrieval.MinScore > 1 {
		return fmt.Errorf("retrieval.min_score must be between 0 and 1, got %v", c.Retrieval.MinScore)
	}
	if c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
