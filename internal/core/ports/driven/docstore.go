package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
)

// DocumentFilter narrows ledger listings.
type DocumentFilter struct {
	Folder string
	Status domain.DocumentStatus
	Type   domain.FileType
	Tag    string

	// Limit caps the number of returned documents; 0 means no cap.
	Limit int

	// Offset skips the first N matching documents.
	Offset int
}

// TagCount is one tag with its usage count.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// FolderStat aggregates per-folder document counts.
type FolderStat struct {
	Name    string `json:"name"`
	Count   int    `json:"count"`
	Indexed int    `json:"indexed"`
}

// DocumentStore is the document ledger: the relational record of
// documents and their lifecycle status. The job engine mutates
// status/chunks_count/indexed_at; the scanner creates and updates
// records. Backed by SQLite.
type DocumentStore interface {
	// Save inserts or updates a document, keyed by filepath. A
	// re-scan of an existing path updates size and metadata but
	// preserves the lifecycle status.
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID. Returns domain.ErrNotFound when
	// absent.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// GetByPath retrieves a document by its unique filepath.
	GetByPath(ctx context.Context, path string) (*domain.Document, error)

	// List returns documents matching the filter and the total match
	// count before Limit/Offset.
	List(ctx context.Context, filter DocumentFilter) ([]domain.Document, int, error)

	// UpdateStatus sets the lifecycle status. Concurrent writes per
	// document are serialised by the store.
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error

	// MarkIndexed records a successful index: status, chunk count and
	// timestamp in one write.
	MarkIndexed(ctx context.Context, id string, chunks int, at time.Time) error

	// SetTags replaces the document's tag set.
	SetTags(ctx context.Context, id string, tags []string) error

	// ListTags returns all tags with usage counts.
	ListTags(ctx context.Context) ([]TagCount, error)

	// Folders returns per-folder document statistics.
	Folders(ctx context.Context) ([]FolderStat, error)

	// CountByStatus returns document counts per lifecycle state.
	CountByStatus(ctx context.Context) (map[domain.DocumentStatus]int, error)

	// Delete removes a document record. Removing an absent document
	// is a no-op.
	Delete(ctx context.Context, id string) error
}
