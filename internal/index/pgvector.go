package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/dgallion1/dealgest/internal/doctree"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// VectorStore keeps chunk embeddings in the chunks table and ranks them by
// inner product. Vectors are unit length, so the score is cosine similarity.
type VectorStore struct {
	db    dbtx
	embed *Embedder
}

func NewVectorStore(pool *pgxpool.Pool, embed *Embedder) *VectorStore {
	return &VectorStore{db: pool, embed: embed}
}

func NewVectorStoreWithTx(tx dbtx, embed *Embedder) *VectorStore {
	return &VectorStore{db: tx, embed: embed}
}

// IndexChunks embeds the chunks and replaces the document's stored rows. The
// delete and the inserts go out as one batch, which the server runs in a
// single implicit transaction.
func (s *VectorStore) IndexChunks(ctx context.Context, docID string, chunks []doctree.Chunk) error {
	if len(chunks) == 0 {
		return s.DeleteDoc(ctx, docID)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := s.embed.Embed(ctx, texts)
	if err != nil {
		return err
	}

	b := &pgx.Batch{}
	b.Queue(`DELETE FROM chunks WHERE doc_id = $1`, docID)
	for i, c := range chunks {
		b.Queue(
			`INSERT INTO chunks (doc_id, chunk_id, page, section, chunk_type, text, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			docID, c.ChunkID, c.Page, c.Section, string(c.Type()), c.Text,
			pgvector.NewVector(vecs[i]),
		)
	}

	br := s.db.SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			if i == 0 {
				return fmt.Errorf("delete chunks for %s: %w", docID, err)
			}
			return fmt.Errorf("insert chunk %d: %w", chunks[i-1].ChunkID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("index chunks for %s: %w", docID, err)
	}
	return nil
}

// DeleteDoc removes every chunk of a document.
func (s *VectorStore) DeleteDoc(ctx context.Context, docID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM chunks WHERE doc_id = $1`, docID); err != nil {
		return fmt.Errorf("delete chunks for %s: %w", docID, err)
	}
	return nil
}

// Search embeds the query and returns the nearest chunks. The doc_id filter
// is applied in SQL so topK results are always from the requested document.
func (s *VectorStore) Search(ctx context.Context, query, docID string, topK int) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = 8
	}
	vec, err := s.embed.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT doc_id, chunk_id, page, section, chunk_type, text,
		       (embedding <#> $1) * -1 AS score
		FROM chunks
		WHERE ($2 = '' OR doc_id = $2)
		ORDER BY embedding <#> $1
		LIMIT $3`,
		pgvector.NewVector(vec), docID, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	hits := make([]Hit, 0, topK)
	for rows.Next() {
		var (
			h         Hit
			chunkType string
		)
		if err := rows.Scan(&h.Chunk.DocID, &h.Chunk.ChunkID, &h.Chunk.Page, &h.Chunk.Section, &chunkType, &h.Chunk.Text, &h.Score); err != nil {
			return nil, err
		}
		h.Chunk.Metadata.ChunkType = doctree.ChunkType(chunkType)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// IndexedDocIDs lists documents that have stored chunks.
func (s *VectorStore) IndexedDocIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT doc_id FROM chunks ORDER BY doc_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
