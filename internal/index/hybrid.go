package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

const (
	rrfK            = 60
	semanticWeight  = 1.0
	lexicalWeight   = 0.85
	candidateFactor = 3
)

// Hybrid fuses dense and keyword rankings with reciprocal rank fusion.
// Either backend may be nil. When one backend fails the other's ranking is
// used alone.
type Hybrid struct {
	Semantic Searcher
	Lexical  Searcher
	Log      *slog.Logger
}

type fusionCandidate struct {
	hit   Hit
	score float64
}

func (h *Hybrid) Search(ctx context.Context, query, docID string, topK int) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = 8
	}
	candidates := topK * candidateFactor

	var semantic, lexical []Hit
	var semErr, lexErr error
	if h.Semantic != nil {
		semantic, semErr = h.Semantic.Search(ctx, query, docID, candidates)
	}
	if h.Lexical != nil {
		lexical, lexErr = h.Lexical.Search(ctx, query, docID, candidates)
	}

	switch {
	case semErr != nil && lexErr != nil:
		return nil, fmt.Errorf("hybrid search: semantic: %v; lexical: %w", semErr, lexErr)
	case semErr != nil && h.Lexical == nil:
		return nil, semErr
	case lexErr != nil && h.Semantic == nil:
		return nil, lexErr
	}
	if semErr != nil {
		h.logger().Warn("semantic search failed, using keyword ranking", "doc_id", docID, "error", semErr)
	}
	if lexErr != nil {
		h.logger().Warn("keyword search failed, using semantic ranking", "doc_id", docID, "error", lexErr)
	}

	fused := FuseRRF(semantic, lexical)
	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, nil
}

func (h *Hybrid) logger() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}

// FuseRRF scores each chunk as the weighted sum of 1/(k+rank) over the lists
// it appears in. Ties keep semantic order first.
func FuseRRF(semantic, lexical []Hit) []Hit {
	byKey := make(map[string]*fusionCandidate)
	var order []string
	add := func(list []Hit, weight float64) {
		for i, h := range list {
			key := h.Chunk.SourceID()
			cand, ok := byKey[key]
			if !ok {
				cand = &fusionCandidate{hit: h}
				byKey[key] = cand
				order = append(order, key)
			}
			cand.score += weight / float64(rrfK+i+1)
		}
	}
	add(semantic, semanticWeight)
	add(lexical, lexicalWeight)

	out := make([]Hit, 0, len(order))
	for _, key := range order {
		cand := byKey[key]
		cand.hit.Score = cand.score
		out = append(out, cand.hit)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
