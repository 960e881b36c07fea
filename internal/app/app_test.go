package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/dealgest/internal/config"
	"github.com/dgallion1/dealgest/internal/index"
	"github.com/dgallion1/dealgest/internal/pathstore"
	"github.com/dgallion1/dealgest/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		LLMAPIKey:    "sk-test",
		LLMModel:     "deepseek-chat",
		FactStore:    config.StoreMemory,
		BleveDir:     filepath.Join(t.TempDir(), "bleve"),
		ChunkSize:    512,
		ChunkOverlap: 64,
		TopK:         8,
		EmbeddingDim: 1024,
		WorkerCount:  2,
	}
}

func TestNew_WithoutDatabase(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), testConfig(t), log, Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &store.Memory{}, a.Store)
	hybrid, ok := a.Search.(*index.Hybrid)
	require.True(t, ok)
	assert.Nil(t, hybrid.Semantic)
	assert.NotNil(t, hybrid.Lexical)
	assert.Equal(t, "deepseek-chat", a.LLM.Model())
	assert.NotNil(t, a.Orchestrator)
}

func TestNew_Pathstore(t *testing.T) {
	cfg := testConfig(t)
	cfg.FactStore = config.StorePathstore
	cfg.PathstoreURL = "http://localhost:1"
	cfg.PathstoreAPIKey = "ps-key"

	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{})
	require.NoError(t, err)
	defer a.Close()
	assert.IsType(t, &pathstore.FactStore{}, a.Store)
}

func TestNew_PostgresStoreNeedsDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.FactStore = config.StorePostgres

	_, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
