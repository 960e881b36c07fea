package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dgallion1/dealgest/internal/extract"
	"github.com/dgallion1/dealgest/internal/tables"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres stores fact records and tables as jsonb, keyed by doc_id.
type Postgres struct {
	db dbtx
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{db: pool}
}

func NewPostgresWithTx(tx dbtx) *Postgres {
	return &Postgres{db: tx}
}

func (p *Postgres) Save(ctx context.Context, rec *extract.FactRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = p.db.Exec(ctx,
		`INSERT INTO facts (doc_id, company_name, stock_code, status, record, extracted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (doc_id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			stock_code = EXCLUDED.stock_code,
			status = EXCLUDED.status,
			record = EXCLUDED.record,
			extracted_at = EXCLUDED.extracted_at`,
		rec.DocID, rec.CompanyName, rec.StockCode, string(rec.Status), body, rec.ExtractedAt,
	)
	if err != nil {
		return fmt.Errorf("save facts %s: %w", rec.DocID, err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, docID string) (*extract.FactRecord, error) {
	var body []byte
	err := p.db.QueryRow(ctx, `SELECT record FROM facts WHERE doc_id = $1`, docID).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get facts %s: %w", docID, err)
	}
	var rec extract.FactRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decode facts %s: %w", docID, err)
	}
	return &rec, nil
}

func (p *Postgres) List(ctx context.Context) ([]Summary, error) {
	rows, err := p.db.Query(ctx,
		`SELECT doc_id, company_name, stock_code, status, extracted_at FROM facts ORDER BY doc_id`)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	defer rows.Close()

	out := make([]Summary, 0)
	for rows.Next() {
		var (
			s      Summary
			status string
		)
		if err := rows.Scan(&s.DocID, &s.CompanyName, &s.StockCode, &status, &s.ExtractedAt); err != nil {
			return nil, err
		}
		s.Status = extract.Status(status)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) ProcessedIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := p.db.Query(ctx,
		`SELECT doc_id FROM facts WHERE status IN ($1, $2)`,
		string(extract.StatusSuccess), string(extract.StatusPartial),
	)
	if err != nil {
		return nil, fmt.Errorf("processed ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func (p *Postgres) SaveTables(ctx context.Context, docID string, ts []tables.EnrichedTable) error {
	body, err := json.Marshal(ts)
	if err != nil {
		return fmt.Errorf("marshal tables: %w", err)
	}
	_, err = p.db.Exec(ctx,
		`INSERT INTO doc_tables (doc_id, tables, table_count, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (doc_id) DO UPDATE SET
			tables = EXCLUDED.tables,
			table_count = EXCLUDED.table_count,
			updated_at = now()`,
		docID, body, len(ts),
	)
	if err != nil {
		return fmt.Errorf("save tables %s: %w", docID, err)
	}
	return nil
}

func (p *Postgres) Tables(ctx context.Context, docID string) ([]tables.EnrichedTable, error) {
	var body []byte
	err := p.db.QueryRow(ctx, `SELECT tables FROM doc_tables WHERE doc_id = $1`, docID).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tables %s: %w", docID, err)
	}
	var ts []tables.EnrichedTable
	if err := json.Unmarshal(body, &ts); err != nil {
		return nil, fmt.Errorf("decode tables %s: %w", docID, err)
	}
	return ts, nil
}
