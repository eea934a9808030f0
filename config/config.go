package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the PDF chat tool.
type Config struct {
	Chunk     ChunkConfig     `yaml:"chunk"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Session   SessionConfig   `yaml:"session"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ChunkConfig controls how extracted text is split. Sizes are in characters.
type ChunkConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK int `yaml:"top_k"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`    // "gemini", "openai", "ollama", "hash"
	Model       string `yaml:"model"`       // e.g., "text-embedding-004"
	APIKeyEnv   string `yaml:"api_key_env"` // Environment variable for API key
	BaseURL     string `yaml:"base_url"`    // Empty means the provider default
	Dimension   int    `yaml:"dimension"`   // Only used by the hash provider
	BatchSize   int    `yaml:"batch_size"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	CacheSize   int    `yaml:"cache_size"` // Query embeddings kept in memory during chat
}

// LLMConfig configures the remote completion API.
type LLMConfig struct {
	Model       string `yaml:"model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	BaseURL     string `yaml:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SessionConfig selects where and how the indexed session is stored.
type SessionConfig struct {
	Backend string `yaml:"backend"` // "bolt" or "sqlite"
	Path    string `yaml:"path"`    // Empty means .pdfrag/session.db under the root dir
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chunk: ChunkConfig{
			Size:    1000,
			Overlap: 200,
		},
		Retrieve: RetrieveConfig{
			TopK: 3,
		},
		Embedding: EmbeddingConfig{
			Provider:    "gemini",
			Model:       "text-embedding-004",
			APIKeyEnv:   "GOOGLE_API_KEY",
			Dimension:   384,
			BatchSize:   100,
			TimeoutSecs: 60,
			CacheSize:   256,
		},
		LLM: LLMConfig{
			Model:       "gemini-1.5-flash",
			APIKeyEnv:   "GOOGLE_API_KEY",
			BaseURL:     "https://generativelanguage.googleapis.com/v1beta",
			TimeoutSecs: 30,
		},
		Session: SessionConfig{
			Backend: "bolt",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for pdfrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "pdfrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".pdfrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Chunk.Size <= 0 {
		return fmt.Errorf("chunk.size must be positive, got %d", c.Chunk.Size)
	}
	if c.Chunk.Overlap < 0 {
		return fmt.Errorf("chunk.overlap must not be negative, got %d", c.Chunk.Overlap)
	}
	if c.Chunk.Overlap >= c.Chunk.Size {
		return fmt.Errorf("chunk.overlap (%d) must be smaller than chunk.size (%d)", c.Chunk.Overlap, c.Chunk.Size)
	}
	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK)
	}

	switch c.Embedding.Provider {
	case "gemini", "openai", "ollama":
	case "hash":
		if c.Embedding.Dimension <= 0 {
			return fmt.Errorf("embedding.dimension must be positive for the hash provider")
		}
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}

	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding.batch_size must be positive, got %d", c.Embedding.BatchSize)
	}
	if c.Embedding.CacheSize < 0 {
		return fmt.Errorf("embedding.cache_size must not be negative, got %d", c.Embedding.CacheSize)
	}

	switch c.Session.Backend {
	case "bolt", "sqlite":
	default:
		return fmt.Errorf("unsupported session backend: %s", c.Session.Backend)
	}

	if c.LLM.APIKeyEnv == "" {
		return fmt.Errorf("llm.api_key_env must be set")
	}
	return nil
}

// SessionPath returns the session file path, resolving the default against dir.
func (c *Config) SessionPath(dir string) string {
	if c.Session.Path == "" {
		return filepath.Join(dir, ".pdfrag", "session.db")
	}
	if filepath.IsAbs(c.Session.Path) {
		return c.Session.Path
	}
	return filepath.Join(dir, c.Session.Path)
}

// EnsureSessionDir ensures the directory holding the session file exists.
func EnsureSessionDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
