package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/dealgest/internal/config"
	"github.com/dgallion1/dealgest/internal/doctree"
	"github.com/dgallion1/dealgest/internal/extract"
	"github.com/dgallion1/dealgest/internal/index"
	"github.com/dgallion1/dealgest/internal/pipeline"
	"github.com/dgallion1/dealgest/internal/store"
	"github.com/dgallion1/dealgest/internal/tables"
)

const testKey = "secret-key"

type nopExtractor struct{}

func (nopExtractor) ExtractFacts(ctx context.Context, docID string, meta doctree.FileMetadata) *extract.FactRecord {
	return &extract.FactRecord{DocID: docID, Status: extract.StatusSuccess}
}

type stubSearcher struct {
	hits  []index.Hit
	err   error
	query string
	docID string
	topK  int
}

func (s *stubSearcher) Search(ctx context.Context, query, docID string, topK int) ([]index.Hit, error) {
	s.query, s.docID, s.topK = query, docID, topK
	if strings.TrimSpace(query) == "" {
		return nil, index.ErrEmptyQuery
	}
	return s.hits, s.err
}

type stubLLM struct{ stats *extract.Stats }

func (l stubLLM) Model() string { return "deepseek-chat" }
func (l stubLLM) Stats() *extract.Stats { return l.stats }

type testEnv struct {
	srv    *Server
	store  *store.Memory
	search *stubSearcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{DealgestAPIKey: testKey, MaxUploadBytes: 1 << 20, TopK: 8}
	st := store.NewMemory()
	worker := pipeline.NewWorker(nopExtractor{}, st, nil, log, pipeline.WorkerOptions{})
	orch := pipeline.NewOrchestrator(pipeline.Options{WorkerCount: 1, MaxQueueSize: 2}, worker, log)
	search := &stubSearcher{}
	stats := extract.NewStats(time.Hour)
	stats.Record(120)
	return &testEnv{
		srv:    NewServer(orch, st, search, stubLLM{stats: stats}, log, cfg),
		store:  st,
		search: search,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func multipartBody(t *testing.T, field, filename, content string, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range extra {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid api key", decode(t, rec)["error"])
}

func TestIngestAndStatus(t *testing.T) {
	env := newTestEnv(t)
	body, ct := multipartBody(t, "file", "600001_甲公司重大资产重组报告书.txt", "第一节 交易概述", map[string]string{"force": "true"})

	rec := env.do(t, http.MethodPost, "/api/ingest", body, ct)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "600001_甲公司重大资产重组报告书", out["doc_id"])
	assert.Equal(t, "queued", out["status"])

	jobID := out["job_id"].(string)
	rec = env.do(t, http.MethodGet, "/api/ingest/"+jobID+"/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode(t, rec)
	assert.Equal(t, jobID, status["job_id"])
	assert.Equal(t, "queued", status["status"])

	rec = env.do(t, http.MethodGet, "/api/ingest/nope/status", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngestRejectsUnsupported(t *testing.T) {
	env := newTestEnv(t)
	body, ct := multipartBody(t, "file", "report.xlsx", "x", nil)
	rec := env.do(t, http.MethodPost, "/api/ingest", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], ".xlsx")
}

func TestBatchIngest(t *testing.T) {
	env := newTestEnv(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"a.txt", "b.exe"} {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		fw.Write([]byte("正文"))
	}
	require.NoError(t, mw.Close())

	rec := env.do(t, http.MethodPost, "/api/ingest/batch", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobs := decode(t, rec)["jobs"].([]any)
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].(map[string]any)["doc_id"])
	assert.Contains(t, jobs[1].(map[string]any)["error"], "unsupported")
}

func TestDocumentsFactsAndTables(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.Save(ctx, &extract.FactRecord{DocID: "d1", CompanyName: "甲公司", Status: extract.StatusSuccess}))
	require.NoError(t, env.store.Save(ctx, &extract.FactRecord{DocID: "d2", Status: extract.StatusFailed}))
	require.NoError(t, env.store.SaveTables(ctx, "d1", []tables.EnrichedTable{
		{Table: doctree.Table{ID: "table_1", Page: 3}, Title: "合并资产负债表", Classification: tables.Classification{Type: tables.TypeFinancialReport}},
		{Table: doctree.Table{ID: "table_2", Page: 9}, Title: "表格_2", Classification: tables.Classification{Type: tables.TypeOther}},
	}))

	rec := env.do(t, http.MethodGet, "/api/documents", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["count"])

	rec = env.do(t, http.MethodGet, "/api/documents?status=success", nil, "")
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = env.do(t, http.MethodGet, "/api/documents/d1/facts", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "甲公司", decode(t, rec)["company_name"])

	rec = env.do(t, http.MethodGet, "/api/documents/missing/facts", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/documents/d1/tables?type=financial_report", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	ts := decode(t, rec)["tables"].([]any)
	require.Len(t, ts, 1)
	assert.Equal(t, "合并资产负债表", ts[0].(map[string]any)["title"])
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	env.search.hits = []index.Hit{{Chunk: doctree.Chunk{DocID: "d1", ChunkID: 4, Page: 7, Text: "募集资金用途"}, Score: 0.9}}

	rec := env.do(t, http.MethodPost, "/api/search", strings.NewReader(`{"query":"募集资金","doc_id":"d1","top_k":500}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode(t, rec)["count"])
	assert.Equal(t, "d1", env.search.docID)
	assert.Equal(t, maxTopK, env.search.topK)

	rec = env.do(t, http.MethodPost, "/api/search", strings.NewReader(`{"query":"  "}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/search", strings.NewReader(`{`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.search.err = errors.New("backends down")
	rec = env.do(t, http.MethodPost, "/api/search", strings.NewReader(`{"query":"交易对价"}`), "application/json")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, 8, env.search.topK)
}

func TestLLMStats(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/stats/llm", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "deepseek-chat", out["model"])
	assert.NotNil(t, out["stats"])
}
