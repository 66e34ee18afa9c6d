package driving

import (
	"context"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
)

// RunOptions configures one indexing run.
type RunOptions struct {
	// DocumentIDs restricts the run to specific documents. Empty
	// means every pending document.
	DocumentIDs []string

	// Force re-indexes documents that are already indexed. Their
	// prior chunks are replaced, never appended to.
	Force bool

	// RetryFailed resets failed documents to pending before the run.
	RetryFailed bool
}

// Indexer drives batches of documents through the
// parse → chunk → embed → persist pipeline.
type Indexer interface {
	// Run starts or resumes an indexing run and processes documents
	// until none remain pending, the context is cancelled, or the
	// memory ceiling pauses the batch. Only one run may be active at
	// a time; a second call fails fast with domain.ErrJobActive.
	// Returns the finalised (or paused) job record.
	Run(ctx context.Context, opts RunOptions) (*domain.IndexJob, error)

	// Progress reports the active or most recent job for polling.
	Progress(ctx context.Context) (*domain.JobProgress, error)

	// Job retrieves a job record by ID.
	Job(ctx context.Context, id string) (*domain.IndexJob, error)
}
