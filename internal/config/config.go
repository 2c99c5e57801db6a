// Package config loads the service configuration from YAML and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/eduassist/internal/blob"
	"github.com/abhisek/eduassist/internal/cache"
	"github.com/abhisek/eduassist/internal/embedding"
	"github.com/abhisek/eduassist/internal/llm"
	"github.com/abhisek/eduassist/internal/rag"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	AuthToken       string        `yaml:"auth_token"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig selects the SQL backend. An empty sqlite DSN means the
// default database path.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// BlobConfig selects where uploaded bytes go: "fs" or "s3".
type BlobConfig struct {
	Backend string        `yaml:"backend"`
	Dir     string        `yaml:"dir"`
	S3      blob.S3Config `yaml:"s3"`
}

// CacheConfig selects the answer cache: "none", "memory" or "redis".
type CacheConfig struct {
	Backend string             `yaml:"backend"`
	TTL     time.Duration      `yaml:"ttl"`
	Redis   cache.RedisOptions `yaml:"redis"`
}

// LLMConfig is the file form of the model settings. API keys come from the
// environment.
type LLMConfig struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LogConfig sets the minimum log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Config is the root configuration.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Database  DatabaseConfig   `yaml:"database"`
	Blob      BlobConfig       `yaml:"blob"`
	Cache     CacheConfig      `yaml:"cache"`
	LLM       LLMConfig        `yaml:"llm"`
	Embedding embedding.Config `yaml:"embedding"`
	Retrieval rag.Config       `yaml:"retrieval"`
	Log       LogConfig        `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			MaxUploadBytes:  10 << 20,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{Driver: "sqlite"},
		Blob: BlobConfig{
			Backend: "fs",
			Dir:     filepath.Join("data", "materials"),
			S3:      blob.DefaultS3Config(),
		},
		Cache: CacheConfig{
			Backend: "none",
			TTL:     cache.DefaultTTL,
			Redis:   cache.DefaultRedisOptions(),
		},
		LLM: LLMConfig{
			Provider: "auto",
			Timeout:  60 * time.Second,
		},
		Embedding: embedding.DefaultConfig(),
		Retrieval: rag.DefaultConfig(),
		Log:       LogConfig{Level: "INFO"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	ApplyEnv(cfg)
	return cfg, cfg.Validate()
}

// LoadDefault tries ./eduassist.yaml, then the user config directory.
// It returns the path it used, or "" when running on defaults.
func LoadDefault() (*Config, string, error) {
	for _, p := range searchPaths() {
		if _, err := os.Stat(p); err == nil {
			cfg, err := Load(p)
			return cfg, p, err
		}
	}
	cfg := Default()
	ApplyEnv(cfg)
	return cfg, "", cfg.Validate()
}

func searchPaths() []string {
	paths := []string{"eduassist.yaml"}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		paths = append(paths, filepath.Join(dir, "eduassist", "config.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "eduassist", "config.yaml"))
	}
	return paths
}

// ApplyEnv overlays EDUASSIST_* variables onto cfg.
func ApplyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "EDUASSIST_ADDR")
	setString(&cfg.Server.AuthToken, "EDUASSIST_AUTH_TOKEN")
	if v, err := strconv.ParseInt(os.Getenv("EDUASSIST_MAX_UPLOAD_BYTES"), 10, 64); err == nil && v > 0 {
		cfg.Server.MaxUploadBytes = v
	}

	setString(&cfg.Database.Driver, "EDUASSIST_DB_DRIVER")
	setString(&cfg.Database.DSN, "EDUASSIST_DB_DSN")

	setString(&cfg.Blob.Dir, "EDUASSIST_BLOB_DIR")
	if ep := os.Getenv("EDUASSIST_S3_ENDPOINT"); ep != "" {
		cfg.Blob.Backend = "s3"
		cfg.Blob.S3.Endpoint = ep
	}
	setString(&cfg.Blob.S3.Bucket, "EDUASSIST_S3_BUCKET")
	setString(&cfg.Blob.S3.AccessKey, "EDUASSIST_S3_ACCESS_KEY")
	setString(&cfg.Blob.S3.SecretKey, "EDUASSIST_S3_SECRET_KEY")

	if addr := os.Getenv("EDUASSIST_REDIS_ADDR"); addr != "" {
		cfg.Cache.Backend = "redis"
		cfg.Cache.Redis.Address = addr
	}
	setString(&cfg.Cache.Redis.Password, "EDUASSIST_REDIS_PASSWORD")

	setString(&cfg.Embedding.Provider, "EDUASSIST_EMBEDDING_PROVIDER")
	setString(&cfg.Embedding.Model, "EDUASSIST_EMBEDDING_MODEL")

	setString(&cfg.Log.Level, "EDUASSIST_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks the backend selections.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return errors.New("database.dsn is required for postgres")
	}
	switch c.Blob.Backend {
	case "fs", "s3":
	default:
		return fmt.Errorf("unknown blob backend %q", c.Blob.Backend)
	}
	switch c.Cache.Backend {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("server.max_upload_bytes must be positive")
	}
	return nil
}

// LLMSettings builds the model configuration: file values first, then the
// EDUASSIST_* variables, then the vendors' standard key variables.
func (c *Config) LLMSettings() llm.Config {
	out := llm.DefaultConfig()
	if c.LLM.Provider != "" {
		out.Provider = c.LLM.Provider
	}
	if c.LLM.Timeout > 0 {
		out.Timeout = c.LLM.Timeout
	}
	llm.ApplyEnv(&out)
	llm.DiscoverKeys(&out)
	out.SetModel(c.LLM.Model)
	if c.LLM.BaseURL != "" {
		switch out.Provider {
		case "openai":
			out.OpenAI.BaseURL = c.LLM.BaseURL
		case "openrouter":
			out.OpenRouter.BaseURL = c.LLM.BaseURL
		case "anthropic":
			out.Anthropic.BaseURL = c.LLM.BaseURL
		case "gemini":
			out.Gemini.BaseURL = c.LLM.BaseURL
		}
	}
	return out
}

// EmbeddingSettings fills the embedding API key from the matching model
// provider key when none is set.
func (c *Config) EmbeddingSettings() embedding.Config {
	out := c.Embedding
	if out.APIKey != "" {
		return out
	}
	keys := c.LLMSettings()
	switch out.Provider {
	case "openai":
		out.APIKey = keys.OpenAI.APIKey
	case "gemini":
		out.APIKey = keys.Gemini.APIKey
	}
	return out
}
