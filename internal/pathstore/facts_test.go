package pathstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/dgallion1/dealgest/internal/doctree"
	"github.com/dgallion1/dealgest/internal/extract"
	"github.com/dgallion1/dealgest/internal/store"
	"github.com/dgallion1/dealgest/internal/tables"
)

// fakePathstore is an in-memory stand-in for the /kv and /links endpoints.
type fakePathstore struct {
	mu    sync.Mutex
	nodes map[string]json.RawMessage
	links []LinkRequest
	auth  []string
}

func newFakePathstore(t *testing.T) (*fakePathstore, *httptest.Server) {
	f := &fakePathstore{nodes: make(map[string]json.RawMessage)}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakePathstore) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))

	if r.URL.Path == "/links" {
		var l LinkRequest
		json.NewDecoder(r.Body).Decode(&l)
		f.links = append(f.links, l)
		w.WriteHeader(http.StatusCreated)
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/kv/")
	switch {
	case r.Method == http.MethodPut:
		var req struct {
			Value json.RawMessage `json:"value"`
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &req)
		f.nodes[key] = req.Value
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && strings.HasSuffix(key, "/*"):
		prefix := strings.TrimSuffix(key, "*")
		var nodes []Node
		for k, v := range f.nodes {
			if strings.HasPrefix(k, prefix) {
				nodes = append(nodes, Node{Key: k, Value: v})
			}
		}
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].Key < nodes[j].Key })
		json.NewEncoder(w).Encode(map[string]any{"nodes": nodes})
	case r.Method == http.MethodGet:
		v, ok := f.nodes[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(Node{Key: key, Value: v})
	case r.Method == http.MethodDelete:
		delete(f.nodes, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestFactStoreSaveGet(t *testing.T) {
	fake, srv := newFakePathstore(t)
	s := NewFactStore(NewClient(srv.URL+"/", "secret"))
	ctx := context.Background()

	rec := &extract.FactRecord{
		DocID:       "600001",
		CompanyName: "甲公司",
		Status:      extract.StatusSuccess,
		DealSummary: extract.DealSummary{Acquirer: "甲公司"},
	}
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok := fake.nodes["dealgest/facts/600001"]; !ok {
		t.Fatalf("expected node at dealgest/facts/600001, got %v", fake.nodes)
	}

	got, err := s.Get(ctx, "600001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DealSummary.Acquirer != "甲公司" {
		t.Fatalf("expected acquirer 甲公司, got %q", got.DealSummary.Acquirer)
	}
	if fake.auth[0] != "Bearer secret" {
		t.Fatalf("expected bearer auth, got %q", fake.auth[0])
	}
}

func TestFactStoreGetMissing(t *testing.T) {
	_, srv := newFakePathstore(t)
	s := NewFactStore(NewClient(srv.URL, "k"))

	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err = s.Tables(context.Background(), "nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFactStoreListAndProcessed(t *testing.T) {
	_, srv := newFakePathstore(t)
	s := NewFactStore(NewClient(srv.URL, "k"))
	ctx := context.Background()

	for id, status := range map[string]extract.Status{
		"b": extract.StatusPartial,
		"a": extract.StatusSuccess,
		"c": extract.StatusFailed,
	} {
		if err := s.Save(ctx, &extract.FactRecord{DocID: id, Status: status}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].DocID != "a" || list[2].DocID != "c" {
		t.Fatalf("unexpected list: %+v", list)
	}

	ids, err := s.ProcessedIDs(ctx)
	if err != nil {
		t.Fatalf("processed: %v", err)
	}
	if len(ids) != 2 || !ids["a"] || !ids["b"] || ids["c"] {
		t.Fatalf("unexpected processed ids: %v", ids)
	}
}

func TestFactStoreTablesLinked(t *testing.T) {
	fake, srv := newFakePathstore(t)
	s := NewFactStore(NewClient(srv.URL, "k"))
	ctx := context.Background()

	ts := []tables.EnrichedTable{{
		Table: doctree.Table{ID: "table_1", Page: 4, Header: []string{"项目", "金额"}, Rows: [][]string{{"货币资金", "100"}}},
		Title: "资产负债表",
	}}
	if err := s.SaveTables(ctx, "600001", ts); err != nil {
		t.Fatalf("save tables: %v", err)
	}
	got, err := s.Tables(ctx, "600001")
	if err != nil {
		t.Fatalf("tables: %v", err)
	}
	if len(got) != 1 || got[0].Title != "资产负债表" || got[0].Rows[0][0] != "货币资金" {
		t.Fatalf("unexpected tables: %+v", got)
	}
	if len(fake.links) != 1 || fake.links[0].From != "dealgest/facts/600001" || fake.links[0].To != "dealgest/tables/600001" {
		t.Fatalf("unexpected links: %+v", fake.links)
	}

	if err := s.Delete(ctx, "600001"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Tables(ctx, "600001"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected tables deleted, got %v", err)
	}
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "k").PutNode(context.Background(), "x", NodeRequest{Value: 1})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Status != http.StatusInternalServerError || !strings.Contains(se.Body, "boom") {
		t.Fatalf("unexpected status error: %+v", se)
	}
}
