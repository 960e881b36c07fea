package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dgallion1/dealgest/internal/doctree"
	"github.com/dgallion1/dealgest/internal/parser"
)

// BatchStats counts the outcome of a batch run. Success includes partial
// records; Failed covers parse, index, store and extraction failures.
type BatchStats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// CollectInputs expands path into the files to process: the file itself, or
// every supported file directly inside a directory, sorted by name.
func CollectInputs(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("input path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !parser.IsSupportedExtension(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// RunBatch processes files directly, bypassing the job queue, with up to
// WorkerCount documents in flight. With resume, documents whose stored record
// is success or partial are skipped without being read.
func (o *Orchestrator) RunBatch(ctx context.Context, paths []string, resume bool) (BatchStats, error) {
	w, log := o.worker, o.log
	stats := BatchStats{Total: len(paths)}
	if len(paths) == 0 {
		log.Warn("no input files")
		return stats, nil
	}

	processed := map[string]bool{}
	if resume {
		ids, err := w.store.ProcessedIDs(ctx)
		if err != nil {
			return stats, fmt.Errorf("load processed ids: %w", err)
		}
		processed = ids
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, o.opts.WorkerCount)
	)
	count := func(s JobStatus) {
		mu.Lock()
		defer mu.Unlock()
		switch s {
		case StatusCompleted, StatusPartial:
			stats.Success++
		case StatusSkipped:
			stats.Skipped++
		default:
			stats.Failed++
		}
	}

	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		docID := doctree.DocIDFromFilename(path)
		if processed[docID] {
			log.Info("already processed, skipping", "doc_id", docID)
			count(StatusSkipped)
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()

			data, err := os.ReadFile(path)
			if err != nil {
				log.Error("read input failed", "path", path, "error", err)
				count(StatusFailed)
				return
			}
			job := NewJob(filepath.Base(path), data)
			// Resume was decided above; without it every document is redone.
			job.Force = true
			o.jobs.Put(job)
			w.Process(ctx, job)
			count(job.Snapshot().Status)
		}(path)
	}
	wg.Wait()

	log.Info("batch finished",
		"total", stats.Total,
		"success", stats.Success,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
	)
	return stats, ctx.Err()
}
