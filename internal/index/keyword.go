package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/dgallion1/dealgest/internal/doctree"
)

const batchSize = 100

// keywordDoc is the stored form of a chunk.
type keywordDoc struct {
	DocID     string  `json:"doc_id"`
	ChunkID   float64 `json:"chunk_id"`
	Page      float64 `json:"page"`
	Section   string  `json:"section"`
	ChunkType string  `json:"chunk_type"`
	Text      string  `json:"text"`
}

// KeywordIndex is a bleve full-text index over chunk text. Text is analyzed
// with the CJK bigram analyzer; doc_id is stored verbatim for filtering.
type KeywordIndex struct {
	mu  sync.RWMutex
	idx bleve.Index
}

// OpenKeywordIndex opens the index at path, creating it if it does not exist.
func OpenKeywordIndex(path string) (*KeywordIndex, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create keyword index dir: %w", err)
		}
		idx, err = bleve.New(path, keywordMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("open keyword index: %w", err)
	}
	return &KeywordIndex{idx: idx}, nil
}

// NewMemKeywordIndex returns an in-memory index.
func NewMemKeywordIndex() (*KeywordIndex, error) {
	idx, err := bleve.NewMemOnly(keywordMapping())
	if err != nil {
		return nil, err
	}
	return &KeywordIndex{idx: idx}, nil
}

func keywordMapping() *mapping.IndexMappingImpl {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = cjk.AnalyzerName
	text.Store = true

	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keyword.Name
	exact.Store = true

	num := bleve.NewNumericFieldMapping()
	num.Store = true

	doc := bleve.NewDocumentStaticMapping()
	doc.AddFieldMappingsAt("text", text)
	doc.AddFieldMappingsAt("section", text)
	doc.AddFieldMappingsAt("doc_id", exact)
	doc.AddFieldMappingsAt("chunk_type", exact)
	doc.AddFieldMappingsAt("chunk_id", num)
	doc.AddFieldMappingsAt("page", num)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = cjk.AnalyzerName
	return m
}

func keywordID(docID string, chunkID int) string {
	return fmt.Sprintf("%s#%d", docID, chunkID)
}

// IndexChunks replaces the document's chunks in the index.
func (k *KeywordIndex) IndexChunks(ctx context.Context, docID string, chunks []doctree.Chunk) error {
	if err := k.DeleteDoc(ctx, docID); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	batch := k.idx.NewBatch()
	for i, c := range chunks {
		doc := keywordDoc{
			DocID:     docID,
			ChunkID:   float64(c.ChunkID),
			Page:      float64(c.Page),
			Section:   c.Section,
			ChunkType: string(c.Type()),
			Text:      c.Text,
		}
		if err := batch.Index(keywordID(docID, c.ChunkID), doc); err != nil {
			return fmt.Errorf("index chunk %d: %w", c.ChunkID, err)
		}
		if (i+1)%batchSize == 0 {
			if err := k.idx.Batch(batch); err != nil {
				return fmt.Errorf("index batch: %w", err)
			}
			batch = k.idx.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := k.idx.Batch(batch); err != nil {
			return fmt.Errorf("index batch: %w", err)
		}
	}
	return nil
}

// DeleteDoc removes every chunk of a document.
func (k *KeywordIndex) DeleteDoc(ctx context.Context, docID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	for {
		q := bleve.NewTermQuery(docID)
		q.SetField("doc_id")
		req := bleve.NewSearchRequestOptions(q, batchSize, 0, false)
		res, err := k.idx.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("find chunks for %s: %w", docID, err)
		}
		if len(res.Hits) == 0 {
			return nil
		}
		batch := k.idx.NewBatch()
		for _, h := range res.Hits {
			batch.Delete(h.ID)
		}
		if err := k.idx.Batch(batch); err != nil {
			return fmt.Errorf("delete chunks for %s: %w", docID, err)
		}
	}
}

// Search runs a match query on chunk text, restricted to docID when set.
func (k *KeywordIndex) Search(ctx context.Context, q, docID string, topK int) ([]Hit, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = 8
	}

	match := bleve.NewMatchQuery(q)
	match.SetField("text")
	var root query.Query = match
	if docID != "" {
		term := bleve.NewTermQuery(docID)
		term.SetField("doc_id")
		root = bleve.NewConjunctionQuery(match, term)
	}

	req := bleve.NewSearchRequestOptions(root, topK, 0, false)
	req.Fields = []string{"*"}

	k.mu.RLock()
	res, err := k.idx.SearchInContext(ctx, req)
	k.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		var c doctree.Chunk
		if v, ok := h.Fields["doc_id"].(string); ok {
			c.DocID = v
		}
		if v, ok := h.Fields["chunk_id"].(float64); ok {
			c.ChunkID = int(v)
		}
		if v, ok := h.Fields["page"].(float64); ok {
			c.Page = int(v)
		}
		if v, ok := h.Fields["section"].(string); ok {
			c.Section = v
		}
		if v, ok := h.Fields["chunk_type"].(string); ok {
			c.Metadata.ChunkType = doctree.ChunkType(v)
		}
		if v, ok := h.Fields["text"].(string); ok {
			c.Text = v
		}
		hits = append(hits, Hit{Chunk: c, Score: h.Score})
	}
	return hits, nil
}

// DocCount returns the number of indexed chunks.
func (k *KeywordIndex) DocCount() (uint64, error) {
	return k.idx.DocCount()
}

func (k *KeywordIndex) Close() error {
	return k.idx.Close()
}
