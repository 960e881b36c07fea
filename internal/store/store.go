// Package store persists extraction results and classified tables.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dgallion1/dealgest/internal/extract"
	"github.com/dgallion1/dealgest/internal/tables"
)

// ErrNotFound is returned when no record exists for a document.
var ErrNotFound = errors.New("store: not found")

// Summary is the listing view of a stored record.
type Summary struct {
	DocID       string         `json:"doc_id"`
	CompanyName string         `json:"company_name"`
	StockCode   string         `json:"stock_code"`
	Status      extract.Status `json:"status"`
	ExtractedAt time.Time      `json:"extracted_at"`
}

// FactStore keeps one fact record per document. Save overwrites.
type FactStore interface {
	Save(ctx context.Context, rec *extract.FactRecord) error
	Get(ctx context.Context, docID string) (*extract.FactRecord, error)
	List(ctx context.Context) ([]Summary, error)
	// ProcessedIDs returns documents whose record is success or partial.
	ProcessedIDs(ctx context.Context) (map[string]bool, error)
}

// TableStore keeps the classified tables of each document.
type TableStore interface {
	SaveTables(ctx context.Context, docID string, ts []tables.EnrichedTable) error
	Tables(ctx context.Context, docID string) ([]tables.EnrichedTable, error)
}

// Store is both.
type Store interface {
	FactStore
	TableStore
}

// SummaryOf builds the listing view of a record.
func SummaryOf(rec *extract.FactRecord) Summary {
	return Summary{
		DocID:       rec.DocID,
		CompanyName: rec.CompanyName,
		StockCode:   rec.StockCode,
		Status:      rec.Status,
		ExtractedAt: rec.ExtractedAt,
	}
}
