package driving

import (
	"context"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
)

// LibraryStats aggregates the state of the whole collection for
// status displays.
type LibraryStats struct {
	Total      int                           `json:"total"`
	ByStatus   map[domain.DocumentStatus]int `json:"by_status"`
	ChunkCount int                           `json:"chunk_count"`

	// LatestJob is the most recently started index job, nil when no
	// job has ever run.
	LatestJob *domain.IndexJob `json:"latest_job,omitempty"`
}

// LibraryService manages documents across the ledger and the vector
// store. Operations that touch only the ledger live on the document
// store directly; this service exists for the cross-store ones.
type LibraryService interface {
	// Document retrieves one ledger record.
	Document(ctx context.Context, id string) (*domain.Document, error)

	// Chunks returns a document's indexed chunks in ordinal order.
	Chunks(ctx context.Context, id string) ([]domain.Chunk, error)

	// Delete removes a document from the ledger and its chunks from
	// the vector store.
	Delete(ctx context.Context, id string) error

	// Stats aggregates collection counts and the latest job.
	Stats(ctx context.Context) (*LibraryStats, error)
}
