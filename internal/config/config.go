package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Fact store backends.
const (
	StorePostgres  = "postgres"
	StorePathstore = "pathstore"
	StoreMemory    = "memory"
)

type Config struct {
	Port string `envconfig:"PORT" default:"8090"`

	// Auth
	DealgestAPIKey string `envconfig:"DEALGEST_API_KEY"`

	// Chat model (any OpenAI-compatible endpoint)
	LLMAPIKey      string        `envconfig:"LLM_API_KEY"`
	LLMBaseURL     string        `envconfig:"LLM_BASE_URL"`
	LLMModel       string        `envconfig:"LLM_MODEL" default:"deepseek-chat"`
	LLMTemperature float32       `envconfig:"LLM_TEMPERATURE" default:"0.1"`
	LLMMaxTokens   int           `envconfig:"LLM_MAX_TOKENS" default:"4096"`
	LLMMaxRetries  int           `envconfig:"LLM_MAX_RETRIES" default:"3"`
	LLMRetryDelay  time.Duration `envconfig:"LLM_RETRY_DELAY" default:"1s"`

	// Embeddings; key and base URL fall back to the LLM settings.
	EmbeddingAPIKey  string `envconfig:"EMBEDDING_API_KEY"`
	EmbeddingBaseURL string `envconfig:"EMBEDDING_BASE_URL"`
	EmbeddingModel   string `envconfig:"EMBEDDING_MODEL" default:"bge-large-zh-v1.5"`
	EmbeddingDim     int    `envconfig:"EMBEDDING_DIM" default:"1024"`

	// Storage
	FactStore       string `envconfig:"FACT_STORE" default:"postgres"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	PathstoreURL    string `envconfig:"PATHSTORE_URL" default:"http://localhost:8080"`
	PathstoreAPIKey string `envconfig:"PATHSTORE_API_KEY"`
	BleveDir        string `envconfig:"BLEVE_DIR" default:"data/bleve"`
	OutputDir       string `envconfig:"OUTPUT_DIR" default:"output"`

	// Chunking and retrieval
	ChunkSize      int     `envconfig:"CHUNK_SIZE" default:"512"`
	ChunkOverlap   int     `envconfig:"CHUNK_OVERLAP" default:"64"`
	TopK           int     `envconfig:"TOP_K" default:"8"`
	MergeThreshold float64 `envconfig:"MERGE_THRESHOLD" default:"0.7"`

	// Worker pool
	WorkerCount  int           `envconfig:"WORKER_COUNT" default:"4"`
	MaxQueueSize int           `envconfig:"MAX_QUEUE_SIZE" default:"100"`
	JobTTL       time.Duration `envconfig:"JOB_TTL" default:"1h"`

	// Upload limits
	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"52428800"` // 50MB

	// PDF
	PDFFallbackPdftotext bool `envconfig:"PDF_FALLBACK_PDFTOTEXT" default:"true"`
	PDFTables            bool `envconfig:"PDF_TABLES" default:"true"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if cfg.EmbeddingAPIKey == "" {
		cfg.EmbeddingAPIKey = cfg.LLMAPIKey
	}
	if cfg.EmbeddingBaseURL == "" {
		cfg.EmbeddingBaseURL = cfg.LLMBaseURL
	}
	cfg.FactStore = strings.ToLower(cfg.FactStore)
	return &cfg, nil
}

// Validate checks the settings the server cannot run without. The batch CLI
// only needs the LLM settings and the chosen store.
func (c *Config) Validate() error {
	var errs []error
	if c.LLMAPIKey == "" {
		errs = append(errs, errors.New("LLM_API_KEY is required"))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap))
	}
	if c.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("EMBEDDING_DIM must be positive, got %d", c.EmbeddingDim))
	}
	switch c.FactStore {
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StorePathstore:
		if c.PathstoreAPIKey == "" {
			errs = append(errs, errors.New("PATHSTORE_API_KEY is required for the pathstore store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown FACT_STORE %q", c.FactStore))
	}
	return errors.Join(errs...)
}

// ValidateServer adds the checks only the HTTP server needs.
func (c *Config) ValidateServer() error {
	err := c.Validate()
	if c.DealgestAPIKey == "" {
		err = errors.Join(err, errors.New("DEALGEST_API_KEY is required"))
	}
	return err
}

// HasVectorStore reports whether pgvector search can be wired.
func (c *Config) HasVectorStore() bool {
	return c.DatabaseURL != ""
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
