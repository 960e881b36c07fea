package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/dealgest/internal/chunker"
	"github.com/dgallion1/dealgest/internal/doctree"
	"github.com/dgallion1/dealgest/internal/extract"
	"github.com/dgallion1/dealgest/internal/index"
	"github.com/dgallion1/dealgest/internal/parser"
	"github.com/dgallion1/dealgest/internal/store"
	"github.com/dgallion1/dealgest/internal/tables"
)

// FactExtractor produces the fact record for an indexed document.
type FactExtractor interface {
	ExtractFacts(ctx context.Context, docID string, meta doctree.FileMetadata) *extract.FactRecord
}

// WorkerOptions holds the per-document processing settings.
type WorkerOptions struct {
	Chunk          chunker.Config
	Parser         parser.Options
	OutputDir      string  // chunk dumps and table CSVs; empty disables both
	MergeThreshold float64 // header similarity for cross-page table merges
}

// Worker processes a single document job.
type Worker struct {
	extractor FactExtractor
	store     store.Store
	indexers  []index.Indexer
	log       *slog.Logger
	opts      WorkerOptions
}

func NewWorker(ex FactExtractor, st store.Store, indexers []index.Indexer, log *slog.Logger, opts WorkerOptions) *Worker {
	if opts.Chunk.ChunkSize <= 0 {
		opts.Chunk = chunker.DefaultConfig()
	}
	return &Worker{
		extractor: ex,
		store:     st,
		indexers:  indexers,
		log:       log,
		opts:      opts,
	}
}

// Process runs the full ingest pipeline for a job: parse, chunk, dump,
// index, extract, classify tables, store.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFileWith(job.Filename, w.opts.Parser)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	doc, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	job.releaseFileData()
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	if job.Title != "" {
		doc.Title = job.Title
	}
	job.mu.Lock()
	job.DocID = doc.ID
	job.Title = doc.Title
	job.ContentHash = ContentHashHex([]byte(flattenPages(doc.Pages)))
	job.mu.Unlock()
	job.update(func(p *Progress) { p.Pages = len(doc.Pages) })
	log = log.With("doc_id", doc.ID)
	recordParseWarnings(job, log, doc)

	if len(doc.Pages) == 0 {
		log.Warn("document has no text")
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	// Phase 1.5: Skip documents that already have a usable record.
	if !job.Force {
		done, err := w.alreadyProcessed(ctx, doc.ID)
		if err != nil {
			log.Warn("processed check failed, proceeding", "error", err)
		} else if done {
			log.Info("document already processed, skipping")
			job.SetStatus(StatusSkipped, "already_processed")
			return
		}
	}

	// Phase 2: Chunk
	job.SetStatus(StatusChunking, "chunking")
	chunks := chunker.Assemble(doc.ID, doc.Pages, w.opts.Chunk)
	stats := chunker.Summarize(chunks)
	job.update(func(p *Progress) {
		p.TotalChunks = len(chunks)
		p.TableChunks = stats.Table
	})
	log.Info("chunked document", "chunks", len(chunks), "table_chunks", stats.Table, "pages", stats.Pages, "max_len", stats.MaxLen)

	if len(chunks) == 0 {
		log.Warn("no chunks produced")
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "chunking")
		return
	}

	if w.opts.OutputDir != "" {
		if path, err := w.dumpChunks(doc.ID, chunks); err != nil {
			log.Warn("chunk dump failed", "error", err)
		} else {
			log.Info("chunks saved", "path", path)
		}
	}

	// Phase 3: Index
	job.SetStatus(StatusIndexing, "indexing")
	if err := w.index(ctx, log, doc.ID, chunks); err != nil {
		log.Error("indexing failed", "error", err)
		job.AddError(fmt.Sprintf("index: %s", err))
		job.SetStatus(StatusFailed, "indexing")
		return
	}

	// Phase 4: Extract facts
	job.SetStatus(StatusExtracting, "extracting")
	meta := doctree.MetadataFromFilename(job.Filename)
	rec := w.extractor.ExtractFacts(ctx, doc.ID, meta)
	job.update(func(p *Progress) {
		p.FieldsFailed = len(rec.Errors)
		p.FieldsExtracted = len(extract.Fields) - len(rec.Errors)
		p.UnverifiedQuotes = len(rec.UnverifiedQuotes)
	})
	for field, msg := range rec.Errors {
		job.AddError(fmt.Sprintf("%s: %s", field, msg))
	}

	// Phase 5: Tables
	job.SetStatus(StatusClassifying, "classifying_tables")
	enriched := w.processTables(log, doc, chunks)
	job.update(func(p *Progress) {
		p.TablesFound = len(doc.Tables)
		p.TablesAfterMerge = len(enriched)
	})

	// Phase 6: Store
	job.SetStatus(StatusStoring, "storing")
	onRetry := func(n uint, err error) {
		log.Warn("retryable store error", "attempt", n+1, "error", err)
	}
	if err := withRetry(ctx, func() error { return w.store.Save(ctx, rec) }, onRetry); err != nil {
		log.Error("store facts failed", "error", err)
		job.AddError(fmt.Sprintf("store: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}
	if err := withRetry(ctx, func() error { return w.store.SaveTables(ctx, doc.ID, enriched) }, onRetry); err != nil {
		log.Error("store tables failed", "error", err)
		job.AddError(fmt.Sprintf("store tables: %s", err))
	}

	log.Info("document processed", "status", rec.Status, "tables", len(enriched))
	switch rec.Status {
	case extract.StatusSuccess:
		job.SetStatus(StatusCompleted, "done")
	case extract.StatusPartial:
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusFailed, "extracting")
	}
}

func (w *Worker) alreadyProcessed(ctx context.Context, docID string) (bool, error) {
	rec, err := w.store.Get(ctx, docID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec.Processed(), nil
}

// index writes the chunks to every backend. It fails only when every backend
// fails, so a document stays searchable through whichever one is up.
func (w *Worker) index(ctx context.Context, log *slog.Logger, docID string, chunks []doctree.Chunk) error {
	if len(w.indexers) == 0 {
		return nil
	}
	var errs []error
	for _, ix := range w.indexers {
		err := withRetry(ctx, func() error { return ix.IndexChunks(ctx, docID, chunks) }, func(n uint, err error) {
			log.Warn("retryable index error", "attempt", n+1, "error", err)
		})
		if err != nil {
			log.Warn("index backend failed", "backend", fmt.Sprintf("%T", ix), "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) == len(w.indexers) {
		return errors.Join(errs...)
	}
	return nil
}

// processTables merges continuation tables, classifies and titles them, and
// exports CSVs when an output directory is set.
func (w *Worker) processTables(log *slog.Logger, doc *doctree.Document, chunks []doctree.Chunk) []tables.EnrichedTable {
	if len(doc.Tables) == 0 {
		return nil
	}
	merged, groups := tables.MergeCrossPage(doc.Tables, w.opts.MergeThreshold)
	enriched := tables.Enrich(merged, chunks)

	counts := tables.CountByType(enriched)
	log.Info("tables classified",
		"tables", len(enriched),
		"merged_groups", len(groups),
		"financial_report", counts[tables.TypeFinancialReport],
		"fundraising", counts[tables.TypeFundraising],
		"other", counts[tables.TypeOther],
	)

	if w.opts.OutputDir != "" {
		paths, err := tables.ExportCSV(filepath.Join(w.opts.OutputDir, "tables"), doc.ID, enriched)
		if err != nil {
			log.Warn("table export failed", "error", err)
		} else {
			log.Info("tables exported", "files", len(paths))
		}
	}
	return enriched
}

func (w *Worker) dumpChunks(docID string, chunks []doctree.Chunk) (string, error) {
	dir := filepath.Join(w.opts.OutputDir, "chunks")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, docID+".jsonl")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := chunker.WriteJSONL(f, chunks); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// flattenPages joins page text for hashing.
func flattenPages(pages []doctree.Page) string {
	var sb strings.Builder
	for i, p := range pages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// recordParseWarnings logs non-fatal parser problems and keeps them on the job.
func recordParseWarnings(job *Job, log *slog.Logger, doc *doctree.Document) {
	for _, msg := range doc.Warnings {
		log.Warn("parse warning", "warning", msg)
		job.AddWarning(msg)
	}
}
