package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driving"
	"github.com/custodia-labs/khub-cli/internal/logger"
)

// Ensure JobEngine implements the interface.
var _ driving.Indexer = (*JobEngine)(nil)

// Pipeline step names recorded in the job error log.
const (
	stepSizeCheck = "size_check"
	stepParse     = "parse"
	stepChunk     = "chunk"
	stepEmbed     = "embed"
	stepPersist   = "persist"
)

// JobEngine drives the parse → chunk → embed → persist pipeline over
// pending ledger documents, in batches, with per-document failure
// isolation. A run is resumable: job state lives in the job store and
// document state in the ledger, so a killed engine picks up where it
// stopped.
type JobEngine struct {
	docStore driven.DocumentStore
	jobStore driven.JobStore
	parsers  driven.ParserRegistry
	chunker  driven.Chunker
	embedder driven.EmbeddingService
	vectors  driven.VectorStore
	settings domain.Settings

	// running is the in-process single-run guard. The durable guard
	// is JobStore.Begin.
	running atomic.Bool

	mu          sync.Mutex
	currentFile string
}

// NewJobEngine creates the indexing engine.
func NewJobEngine(
	docStore driven.DocumentStore,
	jobStore driven.JobStore,
	parsers driven.ParserRegistry,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	settings domain.Settings,
) *JobEngine {
	settings.Normalise()
	return &JobEngine{
		docStore: docStore,
		jobStore: jobStore,
		parsers:  parsers,
		chunker:  chunker,
		embedder: embedder,
		vectors:  vectors,
		settings: settings,
	}
}

// Run starts or resumes an indexing run.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (e *JobEngine) Run(ctx context.Context, opts driving.RunOptions) (*domain.IndexJob, error) {
	if e.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if e.vectors == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}

	if !e.running.CompareAndSwap(false, true) {
		return nil, domain.ErrJobActive
	}
	defer e.running.Store(false)
	defer e.setCurrentFile("")

	if err := e.resetForRun(ctx, opts); err != nil {
		return nil, err
	}

	total, err := e.pendingCount(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("count pending: %w", err)
	}

	job, resumed, err := e.jobStore.Begin(ctx, domain.IndexJob{
		ID:         uuid.NewString(),
		Status:     domain.JobProcessing,
		TotalFiles: total,
		StartedAt:  time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("begin job: %w", err)
	}

	if resumed {
		logger.Info("Resuming job %s (%d/%d done)", job.ID, job.ProcessedFiles+job.FailedFiles, job.TotalFiles)
		// New pending documents may have arrived since the job was
		// interrupted.
		job.TotalFiles = job.ProcessedFiles + job.FailedFiles + total
	} else {
		logger.Section("Index Run")
		logger.Info("Job %s: %d documents to index", job.ID, total)
	}

	runErr := e.processBatches(ctx, job, opts)

	if runErr == nil {
		now := time.Now()
		job.Status = domain.JobCompleted
		job.FinishedAt = &now
		logger.Info("Job %s complete: %d indexed, %d failed", job.ID, job.ProcessedFiles, job.FailedFiles)
	} else if isFatal(runErr) {
		now := time.Now()
		job.Status = domain.JobFailed
		job.FinishedAt = &now
		logger.Warn("Job %s aborted: %v", job.ID, runErr)
	}
	// A paused or cancelled run keeps status processing so the next
	// Run resumes it.

	if err := e.jobStore.Update(ctx, job); err != nil {
		return job, fmt.Errorf("update job: %w", err)
	}
	return job, runErr
}

// Progress reports the active or most recent job.
func (e *JobEngine) Progress(ctx context.Context) (*domain.JobProgress, error) {
	job, err := e.jobStore.Latest(ctx)
	if err != nil {
		return nil, err
	}

	progress := &domain.JobProgress{
		JobID:           job.ID,
		Status:          job.Status,
		Total:           job.TotalFiles,
		Processed:       job.ProcessedFiles,
		Failed:          job.FailedFiles,
		ProgressPercent: job.ProgressPercent(),
	}
	if e.running.Load() {
		progress.CurrentFile = e.getCurrentFile()
	}
	return progress, nil
}

// Job retrieves a job record by ID.
func (e *JobEngine) Job(ctx context.Context, id string) (*domain.IndexJob, error) {
	return e.jobStore.Get(ctx, id)
}

// resetForRun applies the retry/force options by moving documents
// back to pending before the run starts.
func (e *JobEngine) resetForRun(ctx context.Context, opts driving.RunOptions) error {
	// Documents stuck in processing belong to a run that died
	// mid-document; the single-run guard means no live run owns them.
	if err := e.resetStatus(ctx, domain.StatusProcessing, nil); err != nil {
		return fmt.Errorf("reset orphaned documents: %w", err)
	}
	if opts.RetryFailed {
		if err := e.resetStatus(ctx, domain.StatusFailed, opts.DocumentIDs); err != nil {
			return fmt.Errorf("reset failed documents: %w", err)
		}
	}
	if opts.Force {
		if err := e.resetStatus(ctx, domain.StatusIndexed, opts.DocumentIDs); err != nil {
			return fmt.Errorf("reset indexed documents: %w", err)
		}
	}
	return nil
}

// resetStatus moves documents in the given state back to pending,
// optionally restricted to specific IDs.
func (e *JobEngine) resetStatus(ctx context.Context, from domain.DocumentStatus, ids []string) error {
	if len(ids) > 0 {
		for _, id := range ids {
			doc, err := e.docStore.Get(ctx, id)
			if err != nil {
				return err
			}
			if doc.Status != from {
				continue
			}
			if err := e.docStore.UpdateStatus(ctx, id, domain.StatusPending); err != nil {
				return err
			}
		}
		return nil
	}

	docs, _, err := e.docStore.List(ctx, driven.DocumentFilter{Status: from})
	if err != nil {
		return err
	}
	for i := range docs {
		if err := e.docStore.UpdateStatus(ctx, docs[i].ID, domain.StatusPending); err != nil {
			return err
		}
	}
	return nil
}

// pendingCount returns how many documents this run will process.
func (e *JobEngine) pendingCount(ctx context.Context, opts driving.RunOptions) (int, error) {
	if len(opts.DocumentIDs) > 0 {
		count := 0
		for _, id := range opts.DocumentIDs {
			doc, err := e.docStore.Get(ctx, id)
			if err != nil {
				return 0, err
			}
			if doc.Status == domain.StatusPending {
				count++
			}
		}
		return count, nil
	}

	_, total, err := e.docStore.List(ctx, driven.DocumentFilter{Status: domain.StatusPending, Limit: 1})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// processBatches pulls pending documents in batches until none remain,
// the context is cancelled, or the memory ceiling pauses the run.
func (e *JobEngine) processBatches(ctx context.Context, job *domain.IndexJob, opts driving.RunOptions) error {
	for {
		batch, err := e.nextBatch(ctx, opts.DocumentIDs)
		if err != nil {
			return fmt.Errorf("list pending: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}

		for i := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}

			doc := &batch[i]
			e.setCurrentFile(doc.Filename)
			logger.Debug("Indexing %s (%s)", doc.Filename, doc.ID)

			if err := e.processDocument(ctx, doc); err != nil {
				var indexErr *domain.IndexError
				if !errors.As(err, &indexErr) || indexErr.Kind == domain.ErrorKindConfig {
					// Configuration errors poison every remaining
					// document; abort the run instead of failing each
					// one individually.
					return err
				}

				logger.Warn("Failed %s: %v", doc.Filename, indexErr)
				if serr := e.docStore.UpdateStatus(ctx, doc.ID, domain.StatusFailed); serr != nil {
					return fmt.Errorf("mark %s failed: %w", doc.ID, serr)
				}
				job.FailedFiles++
				job.Errors = append(job.Errors, domain.JobError{
					DocumentID: doc.ID,
					Kind:       indexErr.Kind,
					Step:       indexErr.Step,
					Message:    indexErr.Message(),
				})
			} else {
				job.ProcessedFiles++
			}

			if job.ProcessedFiles+job.FailedFiles > job.TotalFiles {
				job.TotalFiles = job.ProcessedFiles + job.FailedFiles
			}
			if err := e.jobStore.Update(ctx, job); err != nil {
				return fmt.Errorf("update job: %w", err)
			}

			if e.overMemoryCeiling() {
				logger.Warn("Memory ceiling reached, pausing job %s", job.ID)
				return nil
			}
		}
	}
}

// processDocument runs one document through the pipeline. Failures
// come back as *domain.IndexError so the caller can classify them.
func (e *JobEngine) processDocument(ctx context.Context, doc *domain.Document) error {
	info, err := os.Stat(doc.Filepath)
	if err != nil {
		return domain.NewIndexError(domain.ErrorKindParse, stepSizeCheck, err)
	}
	if info.Size() > e.settings.MaxFileBytes {
		// Oversized files are rejected without being read.
		return domain.NewIndexError(domain.ErrorKindSizeLimit, stepSizeCheck,
			fmt.Errorf("file is %d bytes, limit is %d", info.Size(), e.settings.MaxFileBytes))
	}

	if err := e.docStore.UpdateStatus(ctx, doc.ID, domain.StatusProcessing); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	parsed, err := e.parsers.Parse(ctx, doc.Filepath, doc.Type)
	if err != nil {
		return domain.NewIndexError(domain.ErrorKindParse, stepParse, err)
	}

	chunks, err := e.chunker.Chunk(ctx, parsed)
	if err != nil {
		return domain.NewIndexError(domain.ErrorKindParse, stepChunk, err)
	}
	if len(chunks) == 0 {
		return domain.NewIndexError(domain.ErrorKindParse, stepChunk,
			errors.New("document produced no content"))
	}

	for i := range chunks {
		chunks[i].DocumentID = doc.ID
		chunks[i].Folder = doc.Folder
		chunks[i].Filename = doc.Filename
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	embeddings, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		if errors.Is(err, domain.ErrDimensionMismatch) {
			return domain.NewIndexError(domain.ErrorKindConfig, stepEmbed, err)
		}
		return domain.NewIndexError(domain.ErrorKindEmbedding, stepEmbed, err)
	}
	if len(embeddings) != len(chunks) {
		return domain.NewIndexError(domain.ErrorKindEmbedding, stepEmbed,
			fmt.Errorf("got %d embeddings for %d chunks", len(embeddings), len(chunks)))
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	if err := e.vectors.Upsert(ctx, doc.ID, chunks); err != nil {
		if errors.Is(err, domain.ErrDimensionMismatch) {
			return domain.NewIndexError(domain.ErrorKindConfig, stepPersist, err)
		}
		return domain.NewIndexError(domain.ErrorKindStoreWrite, stepPersist, err)
	}

	// Record parse-time metadata before flipping the status.
	doc.Metadata = parsed.Meta
	if err := e.docStore.Save(ctx, doc); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	if err := e.docStore.MarkIndexed(ctx, doc.ID, len(chunks), time.Now()); err != nil {
		return fmt.Errorf("mark indexed: %w", err)
	}

	logger.Debug("Indexed %s: %d chunks", doc.Filename, len(chunks))
	return nil
}

// overMemoryCeiling reports whether heap usage crossed the configured
// ceiling. A GC pass runs first so transient garbage from the last
// document does not trigger a spurious pause.
func (e *JobEngine) overMemoryCeiling() bool {
	if e.settings.MemoryCeilingBytes == 0 {
		return false
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	if stats.HeapAlloc <= e.settings.MemoryCeilingBytes {
		return false
	}

	runtime.GC()
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc > e.settings.MemoryCeilingBytes
}

func (e *JobEngine) setCurrentFile(name string) {
	e.mu.Lock()
	e.currentFile = name
	e.mu.Unlock()
}

func (e *JobEngine) getCurrentFile() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentFile
}

// isFatal reports whether the run error should fail the job rather
// than pause it for resumption.
func isFatal(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var indexErr *domain.IndexError
	if errors.As(err, &indexErr) {
		return indexErr.Kind == domain.ErrorKindConfig
	}
	return true
}

// nextBatch pulls the next batch of pending documents. Targeted runs
// look the documents up by ID so other pending work cannot crowd them
// out of the batch window.
func (e *JobEngine) nextBatch(ctx context.Context, ids []string) ([]domain.Document, error) {
	if len(ids) == 0 {
		batch, _, err := e.docStore.List(ctx, driven.DocumentFilter{
			Status: domain.StatusPending,
			Limit:  e.settings.BatchSize,
		})
		return batch, err
	}

	var batch []domain.Document
	for _, id := range ids {
		doc, err := e.docStore.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if doc.Status != domain.StatusPending {
			continue
		}
		batch = append(batch, *doc)
		if len(batch) == e.settings.BatchSize {
			break
		}
	}
	return batch, nil
}
