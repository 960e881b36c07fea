package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/dealgest/internal/extract"
	"github.com/dgallion1/dealgest/internal/store"
)

func writeInputs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestCollectInputs(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		"b.pdf":   "x",
		"a.txt":   "x",
		"c.xlsx":  "x",
		"note.md": "x",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755))

	files, err := CollectInputs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.pdf"),
		filepath.Join(dir, "note.md"),
	}, files)

	single, err := CollectInputs(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.txt")}, single)

	_, err = CollectInputs(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestRunBatch_ResumeSkipsProcessed(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		"done.txt":    "已处理",
		"partial.txt": "部分处理",
		"failed.txt":  "上次失败",
		"new.txt":     "新文档",
		"empty.txt":   "   ",
	})
	st := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, &extract.FactRecord{DocID: "done", Status: extract.StatusSuccess}))
	require.NoError(t, st.Save(ctx, &extract.FactRecord{DocID: "partial", Status: extract.StatusPartial}))
	require.NoError(t, st.Save(ctx, &extract.FactRecord{DocID: "failed", Status: extract.StatusFailed}))

	ex := &fakeExtractor{status: extract.StatusSuccess}
	w := newTestWorker(t, ex, st, nil, "")
	o := NewOrchestrator(Options{WorkerCount: 2}, w, discardLogger())

	files, err := CollectInputs(dir)
	require.NoError(t, err)

	stats, err := o.RunBatch(ctx, files, true)
	require.NoError(t, err)
	assert.Equal(t, BatchStats{Total: 5, Success: 2, Failed: 1, Skipped: 2}, stats)
	assert.ElementsMatch(t, []string{"failed", "new"}, ex.calls)
}

func TestRunBatch_NoResumeRedoesAll(t *testing.T) {
	dir := writeInputs(t, map[string]string{"done.txt": "已处理"})
	st := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, &extract.FactRecord{DocID: "done", Status: extract.StatusSuccess}))

	ex := &fakeExtractor{status: extract.StatusSuccess}
	o := NewOrchestrator(Options{WorkerCount: 1}, newTestWorker(t, ex, st, nil, ""), discardLogger())

	stats, err := o.RunBatch(ctx, []string{filepath.Join(dir, "done.txt")}, false)
	require.NoError(t, err)
	assert.Equal(t, BatchStats{Total: 1, Success: 1}, stats)
	assert.Equal(t, []string{"done"}, ex.calls)
}

func TestRunBatch_Empty(t *testing.T) {
	o := NewOrchestrator(Options{}, newTestWorker(t, &fakeExtractor{}, store.NewMemory(), nil, ""), discardLogger())
	stats, err := o.RunBatch(context.Background(), nil, true)
	require.NoError(t, err)
	assert.Equal(t, BatchStats{}, stats)
}

func TestOrchestratorSubmit(t *testing.T) {
	ex := &fakeExtractor{status: extract.StatusSuccess}
	o := NewOrchestrator(Options{WorkerCount: 1, MaxQueueSize: 4}, newTestWorker(t, ex, store.NewMemory(), nil, ""), discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("queued.txt", []byte("第一节 交易概述\n正文"))
	require.NoError(t, o.Submit(job))
	<-job.Wait()

	assert.Equal(t, StatusCompleted, o.GetJob(job.ID).Snapshot().Status)
}
