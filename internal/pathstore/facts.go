package pathstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dgallion1/dealgest/internal/extract"
	"github.com/dgallion1/dealgest/internal/store"
	"github.com/dgallion1/dealgest/internal/tables"
)

const (
	factsPrefix  = "dealgest/facts"
	tablesPrefix = "dealgest/tables"
	listLimit    = 10000
)

// FactStore keeps each record at dealgest/facts/<doc_id> and the document's
// tables at dealgest/tables/<doc_id>, linked to each other.
type FactStore struct {
	client *Client
}

func NewFactStore(c *Client) *FactStore {
	return &FactStore{client: c}
}

var _ store.Store = (*FactStore)(nil)

func factKey(docID string) string  { return factsPrefix + "/" + docID }
func tableKey(docID string) string { return tablesPrefix + "/" + docID }

func (s *FactStore) Save(ctx context.Context, rec *extract.FactRecord) error {
	return s.client.PutNode(ctx, factKey(rec.DocID), NodeRequest{
		Value:     rec,
		MergeMode: "replace",
		Source:    "dealgest",
	})
}

func (s *FactStore) Get(ctx context.Context, docID string) (*extract.FactRecord, error) {
	node, err := s.client.GetNode(ctx, factKey(docID))
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, store.ErrNotFound
	}
	var rec extract.FactRecord
	if err := json.Unmarshal(node.Value, &rec); err != nil {
		return nil, fmt.Errorf("decode facts %s: %w", docID, err)
	}
	return &rec, nil
}

func (s *FactStore) List(ctx context.Context) ([]store.Summary, error) {
	recs, err := s.records(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]store.Summary, 0, len(recs))
	for i := range recs {
		out = append(out, store.SummaryOf(&recs[i]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocID < out[j].DocID })
	return out, nil
}

func (s *FactStore) ProcessedIDs(ctx context.Context) (map[string]bool, error) {
	recs, err := s.records(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool)
	for i := range recs {
		if recs[i].Processed() {
			ids[recs[i].DocID] = true
		}
	}
	return ids, nil
}

// records scans every stored record. Nodes that do not decode are skipped.
func (s *FactStore) records(ctx context.Context) ([]extract.FactRecord, error) {
	nodes, err := s.client.ListChildren(ctx, factsPrefix, listLimit)
	if err != nil {
		return nil, err
	}
	out := make([]extract.FactRecord, 0, len(nodes))
	for _, n := range nodes {
		var rec extract.FactRecord
		if err := json.Unmarshal(n.Value, &rec); err != nil {
			continue
		}
		if rec.DocID == "" {
			rec.DocID = strings.TrimPrefix(n.Key, factsPrefix+"/")
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *FactStore) SaveTables(ctx context.Context, docID string, ts []tables.EnrichedTable) error {
	if err := s.client.PutNode(ctx, tableKey(docID), NodeRequest{
		Value:     ts,
		MergeMode: "replace",
		Source:    "dealgest",
	}); err != nil {
		return err
	}
	return s.client.PutLink(ctx, LinkRequest{
		From:          factKey(docID),
		To:            tableKey(docID),
		Weight:        1,
		Summary:       fmt.Sprintf("%d tables", len(ts)),
		Bidirectional: true,
	})
}

func (s *FactStore) Tables(ctx context.Context, docID string) ([]tables.EnrichedTable, error) {
	node, err := s.client.GetNode(ctx, tableKey(docID))
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, store.ErrNotFound
	}
	var ts []tables.EnrichedTable
	if err := json.Unmarshal(node.Value, &ts); err != nil {
		return nil, fmt.Errorf("decode tables %s: %w", docID, err)
	}
	return ts, nil
}

// Delete removes a document's record and tables.
func (s *FactStore) Delete(ctx context.Context, docID string) error {
	if err := s.client.DeleteNode(ctx, factKey(docID), false); err != nil {
		return err
	}
	return s.client.DeleteNode(ctx, tableKey(docID), false)
}
