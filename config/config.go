package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names
const (
	ProviderMistral = "mistral"
	ProviderOpenAI  = "openai"
	ProviderOllama  = "ollama"
)

// Storage backends
const (
	BackendFS       = "fs"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Search engines
const (
	EngineDuckDuckGo = "duckduckgo"
	EngineBrave      = "brave"
)

// Config holds application configuration
type Config struct {
	Provider string `yaml:"provider"`
	OpenAI   struct {
		BaseURL        string  `yaml:"base_url"`
		APIKey         string  `yaml:"api_key"`
		ChatModel      string  `yaml:"chat_model"`
		EmbeddingModel string  `yaml:"embedding_model"`
		MaxRetries     int     `yaml:"max_retries"`
		Temperature    float32 `yaml:"temperature"`
		MaxTokens      int     `yaml:"max_tokens"`
	} `yaml:"openai"`
	Ollama struct {
		BaseURL      string `yaml:"base_url"`
		DefaultModel string `yaml:"default_model"`
	} `yaml:"ollama"`
	Embeddings struct {
		TextModel string `yaml:"text_model"`
	} `yaml:"embeddings"`
	Processing struct {
		ChunkSize    int `yaml:"chunk_size"`    // characters, 0 keeps one record per file
		ChunkOverlap int `yaml:"chunk_overlap"` // percent of words carried over
		TopK         int `yaml:"top_k"`
		Workers      int `yaml:"workers"`
	} `yaml:"processing"`
	Storage struct {
		Backend    string `yaml:"backend"`
		Dir        string `yaml:"dir"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"storage"`
	Database struct {
		ConnectionString string `yaml:"connection_string"`
	} `yaml:"database"`
	Paths struct {
		DocumentsDir string `yaml:"documents_dir"`
	} `yaml:"paths"`
	Web struct {
		Enabled           bool          `yaml:"enabled"`
		Engine            string        `yaml:"engine"`
		BraveAPIKey       string        `yaml:"brave_api_key"`
		MaxResults        int           `yaml:"max_results"`
		SnippetChars      int           `yaml:"snippet_chars"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
		TrustedSources    []string      `yaml:"trusted_sources"`
		Timeout           time.Duration `yaml:"timeout"`
	} `yaml:"web"`
	Routing struct {
		Keywords []string `yaml:"keywords"`
	} `yaml:"routing"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Dir returns the directory holding the config file and the default caches
func Dir() string {
	return filepath.Join(os.Getenv("HOME"), ".lexis")
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load loads configuration from path (DefaultPath when empty), falls back
// to defaults when the file does not exist and applies environment overrides.
// A .env file in the working directory is read first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MISTRAL_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("LEXIS_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("LEXIS_DOCUMENTS_DIR"); v != "" {
		c.Paths.DocumentsDir = v
	}
	if v := os.Getenv("LEXIS_STORAGE_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("LEXIS_DATABASE_URL"); v != "" {
		c.Database.ConnectionString = v
	}
}

// Save saves configuration to path (DefaultPath when empty)
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// Validate rejects settings no component can run with
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderMistral, ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	switch c.Storage.Backend {
	case BackendFS, BackendSQLite:
	case BackendPostgres:
		if c.Database.ConnectionString == "" {
			return errors.New("postgres backend requires database.connection_string")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Processing.TopK <= 0 {
		return fmt.Errorf("processing.top_k must be positive, got %d", c.Processing.TopK)
	}
	if c.Processing.ChunkSize < 0 {
		return fmt.Errorf("processing.chunk_size must not be negative, got %d", c.Processing.ChunkSize)
	}
	if c.Processing.ChunkOverlap < 0 || c.Processing.ChunkOverlap >= 100 {
		return fmt.Errorf("processing.chunk_overlap is a percentage in [0, 100), got %d", c.Processing.ChunkOverlap)
	}

	if c.Web.Enabled {
		switch c.Web.Engine {
		case EngineDuckDuckGo:
		case EngineBrave:
			if c.Web.BraveAPIKey == "" {
				return errors.New("brave engine requires web.brave_api_key")
			}
		default:
			return fmt.Errorf("unknown search engine %q", c.Web.Engine)
		}
	}
	return nil
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{}

	cfg.Provider = ProviderMistral
	cfg.OpenAI.BaseURL = "https://api.mistral.ai/v1"
	cfg.OpenAI.ChatModel = "open-mistral-7b"
	cfg.OpenAI.EmbeddingModel = "mistral-embed"
	cfg.OpenAI.MaxRetries = 3
	cfg.OpenAI.Temperature = 0.1
	cfg.OpenAI.MaxTokens = 1024
	cfg.Ollama.BaseURL = "http://localhost:11434"
	cfg.Ollama.DefaultModel = ""
	cfg.Embeddings.TextModel = "nomic-embed-text"
	cfg.Processing.ChunkSize = 512
	cfg.Processing.ChunkOverlap = 50
	cfg.Processing.TopK = 3
	cfg.Processing.Workers = 4
	cfg.Storage.Backend = BackendFS
	cfg.Storage.Dir = filepath.Join(Dir(), "storage")
	cfg.Storage.SQLitePath = filepath.Join(Dir(), "index.db")
	cfg.Database.ConnectionString = "postgres://postgres@localhost/postgres?sslmode=disable"
	cfg.Paths.DocumentsDir = "legal_docs"
	cfg.Web.Enabled = true
	cfg.Web.Engine = EngineDuckDuckGo
	cfg.Web.MaxResults = 5
	cfg.Web.SnippetChars = 400
	cfg.Web.RequestsPerSecond = 1
	cfg.Web.Timeout = 10 * time.Second
	cfg.Log.Level = "info"

	return cfg
}
