// Package index stores document chunks for retrieval: dense vectors in
// Postgres, terms in a bleve index, and a fused view over both.
package index

import (
	"context"
	"errors"

	"github.com/dgallion1/dealgest/internal/doctree"
)

// ErrEmptyQuery is returned when a search query is blank.
var ErrEmptyQuery = errors.New("index: empty query")

// Hit is one retrieved chunk with its backend score. Higher is better.
type Hit struct {
	Chunk doctree.Chunk `json:"chunk"`
	Score float64       `json:"score"`
}

// Searcher returns up to topK chunks of docID most relevant to query. An empty
// docID searches every document.
type Searcher interface {
	Search(ctx context.Context, query, docID string, topK int) ([]Hit, error)
}

// Indexer replaces the stored chunks of a document.
type Indexer interface {
	IndexChunks(ctx context.Context, docID string, chunks []doctree.Chunk) error
	DeleteDoc(ctx context.Context, docID string) error
}

// Store is a backend that both indexes and searches.
type Store interface {
	Indexer
	Searcher
}
