package store

import (
	"context"
	"sort"
	"sync"

	"github.com/dgallion1/dealgest/internal/extract"
	"github.com/dgallion1/dealgest/internal/tables"
)

// Memory is an in-process Store. Records are lost on exit.
type Memory struct {
	mu     sync.RWMutex
	facts  map[string]extract.FactRecord
	tables map[string][]tables.EnrichedTable
}

func NewMemory() *Memory {
	return &Memory{
		facts:  make(map[string]extract.FactRecord),
		tables: make(map[string][]tables.EnrichedTable),
	}
}

func (m *Memory) Save(ctx context.Context, rec *extract.FactRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facts[rec.DocID] = *rec
	return nil
}

func (m *Memory) Get(ctx context.Context, docID string) (*extract.FactRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.facts[docID]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *Memory) List(ctx context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Summary, 0, len(m.facts))
	for _, rec := range m.facts {
		out = append(out, SummaryOf(&rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocID < out[j].DocID })
	return out, nil
}

func (m *Memory) ProcessedIDs(ctx context.Context) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make(map[string]bool)
	for id, rec := range m.facts {
		if rec.Processed() {
			ids[id] = true
		}
	}
	return ids, nil
}

func (m *Memory) SaveTables(ctx context.Context, docID string, ts []tables.EnrichedTable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[docID] = append([]tables.EnrichedTable(nil), ts...)
	return nil
}

func (m *Memory) Tables(ctx context.Context, docID string) ([]tables.EnrichedTable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ts, ok := m.tables[docID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]tables.EnrichedTable(nil), ts...), nil
}
