package mcp

import (
	"context"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	resp     *domain.SearchResponse
	err      error
	lastOpts domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	_ string,
	opts domain.SearchOptions,
) (*domain.SearchResponse, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.resp == nil {
		return &domain.SearchResponse{Results: []domain.SearchResult{}}, nil
	}
	return m.resp, nil
}

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer       *domain.Answer
	err          error
	lastQuestion string
}

func (m *mockAnswerService) Ask(
	_ context.Context,
	question string,
	_ domain.SearchOptions,
) (*domain.Answer, error) {
	m.lastQuestion = question
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

// mockIndexer is a mock implementation of driving.Indexer.
type mockIndexer struct {
	progress *domain.JobProgress
	job      *domain.IndexJob
	err      error
}

func (m *mockIndexer) Run(_ context.Context, _ driving.RunOptions) (*domain.IndexJob, error) {
	return m.job, m.err
}

func (m *mockIndexer) Progress(_ context.Context) (*domain.JobProgress, error) {
	return m.progress, m.err
}

func (m *mockIndexer) Job(_ context.Context, _ string) (*domain.IndexJob, error) {
	return m.job, m.err
}

// mockLibraryService is a mock implementation of driving.LibraryService.
type mockLibraryService struct {
	doc    *domain.Document
	chunks []domain.Chunk
	stats  *driving.LibraryStats
	err    error
}

func (m *mockLibraryService) Document(_ context.Context, _ string) (*domain.Document, error) {
	return m.doc, m.err
}

func (m *mockLibraryService) Chunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return m.chunks, m.err
}

func (m *mockLibraryService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockLibraryService) Stats(_ context.Context) (*driving.LibraryStats, error) {
	return m.stats, m.err
}
