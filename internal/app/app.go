// Package app wires configuration into the stores, indexes, extractor and
// pipeline shared by the server and the batch CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dgallion1/dealgest/internal/chunker"
	"github.com/dgallion1/dealgest/internal/config"
	"github.com/dgallion1/dealgest/internal/extract"
	"github.com/dgallion1/dealgest/internal/index"
	"github.com/dgallion1/dealgest/internal/parser"
	"github.com/dgallion1/dealgest/internal/pathstore"
	"github.com/dgallion1/dealgest/internal/pipeline"
	"github.com/dgallion1/dealgest/internal/store"
)

// App holds the wired components. Close releases them.
type App struct {
	Config       *config.Config
	Log          *slog.Logger
	Store        store.Store
	Search       index.Searcher
	LLM          *extract.LLMClient
	Orchestrator *pipeline.Orchestrator

	pool     *pgxpool.Pool
	keywords *index.KeywordIndex
	ps       *pathstore.Client
}

// NewLogger builds the JSON logger at the configured level.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// Options adjusts wiring per command.
type Options struct {
	// Migrate applies pending schema migrations before use.
	Migrate bool
}

// New connects every configured backend. Postgres serves both vector search
// and, when FACT_STORE=postgres, fact storage; the bleve index is always
// opened so keyword search works without a database.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger, opts Options) (_ *App, err error) {
	a := &App{Config: cfg, Log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.HasVectorStore() {
		if opts.Migrate {
			if err := store.Migrate(cfg.DatabaseURL, log); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		a.pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := a.pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		log.Info("connected to database")
	}

	a.keywords, err = index.OpenKeywordIndex(cfg.BleveDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyword index: %w", err)
	}
	indexers := []index.Indexer{a.keywords}
	hybrid := &index.Hybrid{Lexical: a.keywords, Log: log}

	if a.pool != nil {
		embedder := index.NewEmbedder(
			index.NewOpenAIAdapter(cfg.EmbeddingAPIKey, cfg.EmbeddingBaseURL, cfg.EmbeddingModel),
			cfg.EmbeddingDim,
		)
		vectors := index.NewVectorStore(a.pool, embedder)
		indexers = append(indexers, vectors)
		hybrid.Semantic = vectors
	} else {
		log.Warn("DATABASE_URL not set, vector search disabled")
	}
	a.Search = hybrid

	switch cfg.FactStore {
	case config.StorePostgres:
		if a.pool == nil {
			return nil, errors.New("postgres fact store needs DATABASE_URL")
		}
		a.Store = store.NewPostgres(a.pool)
	case config.StorePathstore:
		a.ps = pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		a.Store = pathstore.NewFactStore(a.ps)
	default:
		a.Store = store.NewMemory()
	}
	log.Info("fact store ready", "backend", cfg.FactStore)

	a.LLM = extract.NewLLMClient(extract.LLMConfig{
		APIKey:      cfg.LLMAPIKey,
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		MaxRetries:  cfg.LLMMaxRetries,
		RetryDelay:  cfg.LLMRetryDelay,
	}, extract.NewStats(time.Hour), log)

	extractor, err := extract.NewExtractor(a.Search, a.LLM, cfg.TopK, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build extractor: %w", err)
	}

	worker := pipeline.NewWorker(extractor, a.Store, indexers, log, pipeline.WorkerOptions{
		Chunk: chunker.Config{ChunkSize: cfg.ChunkSize, ChunkOverlap: cfg.ChunkOverlap},
		Parser: parser.Options{
			PDFFallbackPdftotext: cfg.PDFFallbackPdftotext,
			PDFTables:            cfg.PDFTables,
		},
		OutputDir:      cfg.OutputDir,
		MergeThreshold: cfg.MergeThreshold,
	})
	a.Orchestrator = pipeline.NewOrchestrator(pipeline.Options{
		WorkerCount:  cfg.WorkerCount,
		MaxQueueSize: cfg.MaxQueueSize,
		JobTTL:       cfg.JobTTL,
	}, worker, log)

	return a, nil
}

// Close releases backend connections. It is safe to call on a partly built App.
func (a *App) Close() {
	if a.keywords != nil {
		if err := a.keywords.Close(); err != nil {
			a.Log.Warn("close keyword index", "error", err)
		}
	}
	if a.ps != nil {
		a.ps.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
