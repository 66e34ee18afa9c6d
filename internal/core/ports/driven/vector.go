package driven

import (
	"context"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
)

// VectorHit is one nearest-neighbour match from the store.
type VectorHit struct {
	// ChunkID is the collection key ("{document_id}_chunk_{index}").
	ChunkID string

	DocumentID string
	ChunkIndex int
	Text       string
	Page       int
	Folder     string
	Filename   string

	// Distance is the store's native distance (L2, ascending better).
	Distance float64

	// Score is the store-specific similarity conversion of Distance,
	// in (0, 1]. The conversion is not portable across stores; the
	// retrieval layer owns all threshold policy.
	Score float64
}

// VectorFilter restricts a nearest-neighbour query.
type VectorFilter struct {
	Folders     []string
	DocumentIDs []string
}

// Empty reports whether the filter imposes no restriction.
func (f VectorFilter) Empty() bool {
	return len(f.Folders) == 0 && len(f.DocumentIDs) == 0
}

// VectorStore persists chunk vectors with metadata and serves
// nearest-neighbour queries. The ANN mechanics are the store's
// concern; callers treat it as opaque.
//
// The store is opened with a fixed embedding dimension. Mixing
// dimensions within one collection is an invariant violation and
// fails fast with domain.ErrDimensionMismatch.
type VectorStore interface {
	// Upsert replaces the document's entire chunk set with the given
	// chunks. The replacement is atomic from a reader's perspective:
	// concurrent queries see either the old or the new set, never a
	// mix.
	Upsert(ctx context.Context, documentID string, chunks []domain.Chunk) error

	// Query returns up to topK nearest neighbours in ascending
	// distance order, with the filter applied before the limit.
	Query(ctx context.Context, vector []float32, topK int, filter VectorFilter) ([]VectorHit, error)

	// Delete removes all chunks for a document. Idempotent: deleting
	// an absent document is a no-op.
	Delete(ctx context.Context, documentID string) error

	// DocumentChunks returns a document's chunks in ordinal order,
	// without embeddings.
	DocumentChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// Count returns the total number of chunks in the collection.
	Count(ctx context.Context) (int, error)

	// Dimensions returns the collection's fixed embedding dimension.
	Dimensions() int

	// Close releases resources.
	Close() error
}
