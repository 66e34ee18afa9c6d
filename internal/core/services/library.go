package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driving"
	"github.com/custodia-labs/khub-cli/internal/logger"
)

// Ensure LibraryService implements the interface.
var _ driving.LibraryService = (*LibraryService)(nil)

// LibraryService coordinates operations that span the ledger and the
// vector store.
type LibraryService struct {
	docStore driven.DocumentStore
	jobStore driven.JobStore
	vectors  driven.VectorStore
}

// NewLibraryService creates the library service. The vector store may
// be nil; chunk operations then report it unavailable and deletes
// touch only the ledger.
func NewLibraryService(docStore driven.DocumentStore, jobStore driven.JobStore, vectors driven.VectorStore) *LibraryService {
	return &LibraryService{docStore: docStore, jobStore: jobStore, vectors: vectors}
}

// Document retrieves one ledger record.
func (s *LibraryService) Document(ctx context.Context, id string) (*domain.Document, error) {
	return s.docStore.Get(ctx, id)
}

// Chunks returns a document's indexed chunks in ordinal order.
func (s *LibraryService) Chunks(ctx context.Context, id string) ([]domain.Chunk, error) {
	if s.vectors == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}
	if _, err := s.docStore.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.vectors.DocumentChunks(ctx, id)
}

// Delete removes a document from the ledger and its chunks from the
// vector store. The vector delete runs first so a failure leaves the
// ledger record in place for a retry.
func (s *LibraryService) Delete(ctx context.Context, id string) error {
	if _, err := s.docStore.Get(ctx, id); err != nil {
		return err
	}

	if s.vectors != nil {
		if err := s.vectors.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
	}
	if err := s.docStore.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	logger.Debug("Deleted document %s", id)
	return nil
}

// Stats aggregates collection counts and the latest job.
func (s *LibraryService) Stats(ctx context.Context) (*driving.LibraryStats, error) {
	byStatus, err := s.docStore.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	stats := &driving.LibraryStats{ByStatus: byStatus}
	for _, count := range byStatus {
		stats.Total += count
	}

	if s.vectors != nil {
		count, err := s.vectors.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count chunks: %w", err)
		}
		stats.ChunkCount = count
	}

	job, err := s.jobStore.Latest(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("latest job: %w", err)
	}
	stats.LatestJob = job

	return stats, nil
}
