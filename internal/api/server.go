package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/dealgest/internal/config"
	"github.com/dgallion1/dealgest/internal/extract"
	"github.com/dgallion1/dealgest/internal/index"
	"github.com/dgallion1/dealgest/internal/pipeline"
	"github.com/dgallion1/dealgest/internal/store"
)

// LLMInfo exposes the chat client's model name and call statistics.
type LLMInfo interface {
	Model() string
	Stats() *extract.Stats
}

// Server is the HTTP API server for dealgest.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	store        store.Store
	search       index.Searcher
	llm          LLMInfo
	log          *slog.Logger
	cfg          *config.Config
}

// NewServer creates and configures the HTTP server. search and llm may be nil;
// the endpoints that need them then answer 503.
func NewServer(orch *pipeline.Orchestrator, st store.Store, search index.Searcher, llm LLMInfo, log *slog.Logger, cfg *config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		store:        st,
		search:       search,
		llm:          llm,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.DealgestAPIKey, s.log))

		r.Post("/api/ingest", s.handleIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Post("/api/ingest/batch", s.handleBatchIngest)
		r.Get("/api/stats/llm", s.handleLLMStats)

		r.Get("/api/documents", s.handleListDocuments)
		r.Get("/api/documents/{docID}/facts", s.handleGetFacts)
		r.Get("/api/documents/{docID}/tables", s.handleGetTables)

		r.Post("/api/search", s.handleSearch)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
