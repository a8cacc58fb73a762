package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Server struct {
		Addr            string `yaml:"addr" toml:"addr"`
		ReadTimeoutSecs int    `yaml:"read_timeout_secs" toml:"read_timeout_secs"`
		MaxUploadMB     int64  `yaml:"max_upload_mb" toml:"max_upload_mb"`
		AutoMigrate     bool   `yaml:"auto_migrate" toml:"auto_migrate"`
	} `yaml:"server" toml:"server"`
	Database struct {
		Driver           string `yaml:"driver" toml:"driver"`
		ConnectionString string `yaml:"connection_string" toml:"connection_string"`
		MaxConns         int32  `yaml:"max_conns" toml:"max_conns"`
	} `yaml:"database" toml:"database"`
	OpenAI struct {
		BaseURL     string `yaml:"base_url" toml:"base_url"`
		APIKeyEnv   string `yaml:"api_key_env" toml:"api_key_env"`
		ChatModel   string `yaml:"chat_model" toml:"chat_model"`
		TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs"`
	} `yaml:"openai" toml:"openai"`
	Ollama struct {
		BaseURL      string `yaml:"base_url" toml:"base_url"`
		DefaultModel string `yaml:"default_model" toml:"default_model"`
	} `yaml:"ollama" toml:"ollama"`
	Chat struct {
		Provider        string   `yaml:"provider" toml:"provider"`
		ContextKeywords []string `yaml:"context_keywords" toml:"context_keywords"`
		Temperature     float64  `yaml:"temperature" toml:"temperature"`
	} `yaml:"chat" toml:"chat"`
	Embeddings struct {
		Provider            string `yaml:"provider" toml:"provider"`
		TextModel           string `yaml:"text_model" toml:"text_model"`
		Dimensions          int    `yaml:"dimensions" toml:"dimensions"`
		DocumentPrefixChars int    `yaml:"document_prefix_chars" toml:"document_prefix_chars"`
	} `yaml:"embeddings" toml:"embeddings"`
	Processing struct {
		ChunkSize        int  `yaml:"chunk_size" toml:"chunk_size"`
		ChunkOverlap     int  `yaml:"chunk_overlap" toml:"chunk_overlap"`
		TopK             int  `yaml:"top_k" toml:"top_k"`
		EmbedConcurrency int  `yaml:"embed_concurrency" toml:"embed_concurrency"`
		Deduplicate      bool `yaml:"deduplicate" toml:"deduplicate"`
	} `yaml:"processing" toml:"processing"`
	Search struct {
		BaseURL       string  `yaml:"base_url" toml:"base_url"`
		APIKeyEnv     string  `yaml:"api_key_env" toml:"api_key_env"`
		RatePerSecond float64 `yaml:"rate_per_second" toml:"rate_per_second"`
	} `yaml:"search" toml:"search"`
	Logging struct {
		Level  string `yaml:"level" toml:"level"`
		Format string `yaml:"format" toml:"format"`
	} `yaml:"logging" toml:"logging"`
	Client struct {
		ServerURL          string `yaml:"server_url" toml:"server_url"`
		PlaybackIntervalMS int    `yaml:"playback_interval_ms" toml:"playback_interval_ms"`
	} `yaml:"client" toml:"client"`
	Paths struct {
		DocumentsDir string `yaml:"documents_dir" toml:"documents_dir"`
	} `yaml:"paths" toml:"paths"`
}

// DefaultPath is where Load looks when no path is given
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".docchat", "config.yaml")
}

// Load loads configuration from path, or from DefaultPath when path is empty.
// A missing default file yields defaults; a missing explicit file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := unmarshal(path, data, cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save writes configuration to path, choosing the format by extension
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(c)
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

func unmarshal(path string, data []byte, cfg *Config) error {
	if isTOML(path) {
		return toml.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Validate checks values that would otherwise fail deep inside a request
func (c *Config) Validate() error {
	var problems []string

	if c.Processing.ChunkSize <= 0 {
		problems = append(problems, "processing.chunk_size must be positive")
	}
	if c.Processing.ChunkOverlap < 0 || c.Processing.ChunkOverlap >= c.Processing.ChunkSize {
		problems = append(problems, "processing.chunk_overlap must be >= 0 and < chunk_size")
	}
	if c.Processing.TopK <= 0 {
		problems = append(problems, "processing.top_k must be positive")
	}
	if c.Embeddings.Dimensions <= 0 {
		problems = append(problems, "embeddings.dimensions must be positive")
	}
	if !oneOf(c.Chat.Provider, "openai", "ollama") {
		problems = append(problems, fmt.Sprintf("chat.provider %q is not one of openai, ollama", c.Chat.Provider))
	}
	if !oneOf(c.Embeddings.Provider, "openai", "ollama") {
		problems = append(problems, fmt.Sprintf("embeddings.provider %q is not one of openai, ollama", c.Embeddings.Provider))
	}
	if !oneOf(c.Database.Driver, "postgres", "memory") {
		problems = append(problems, fmt.Sprintf("database.driver %q is not one of postgres, memory", c.Database.Driver))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

// EmbeddingModel returns the configured embedding model or the provider default
func (c *Config) EmbeddingModel() string {
	if c.Embeddings.TextModel != "" {
		return c.Embeddings.TextModel
	}
	if c.Embeddings.Provider == "ollama" {
		return "nomic-embed-text"
	}
	return "text-embedding-3-small"
}

// OpenAIKey returns the OpenAI API key from the configured environment variable
func (c *Config) OpenAIKey() string {
	return os.Getenv(c.OpenAI.APIKeyEnv)
}

// SearchKey returns the SerpAPI key from the configured environment variable
func (c *Config) SearchKey() string {
	return os.Getenv(c.Search.APIKeyEnv)
}

// OpenAITimeout is the per-request timeout for OpenAI calls
func (c *Config) OpenAITimeout() time.Duration {
	return time.Duration(c.OpenAI.TimeoutSecs) * time.Second
}

// PlaybackInterval is the delay between revealed words in the terminal client
func (c *Config) PlaybackInterval() time.Duration {
	return time.Duration(c.Client.PlaybackIntervalMS) * time.Millisecond
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{}

	cfg.Server.Addr = ":3000"
	cfg.Server.ReadTimeoutSecs = 30
	cfg.Server.MaxUploadMB = 32
	cfg.Server.AutoMigrate = false

	cfg.Database.Driver = "postgres"
	cfg.Database.ConnectionString = "postgres://postgres@localhost/docchat?sslmode=disable"
	cfg.Database.MaxConns = 10

	cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	cfg.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	cfg.OpenAI.ChatModel = "gpt-4o-mini"
	cfg.OpenAI.TimeoutSecs = 120

	cfg.Ollama.BaseURL = "http://localhost:11434"
	cfg.Ollama.DefaultModel = ""

	cfg.Chat.Provider = "openai"
	cfg.Chat.ContextKeywords = []string{"document", "text", "content"}
	cfg.Chat.Temperature = 0

	cfg.Embeddings.Provider = "openai"
	cfg.Embeddings.TextModel = ""
	cfg.Embeddings.Dimensions = 1536
	cfg.Embeddings.DocumentPrefixChars = 2000

	cfg.Processing.ChunkSize = 1000
	cfg.Processing.ChunkOverlap = 200
	cfg.Processing.TopK = 3
	cfg.Processing.EmbedConcurrency = 4
	cfg.Processing.Deduplicate = true

	cfg.Search.BaseURL = "https://serpapi.com"
	cfg.Search.APIKeyEnv = "SERPAPI_KEY"
	cfg.Search.RatePerSecond = 1

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	cfg.Client.ServerURL = "http://localhost:3000"
	cfg.Client.PlaybackIntervalMS = 50

	cfg.Paths.DocumentsDir = filepath.Join(os.Getenv("HOME"), "documents")

	return cfg
}
