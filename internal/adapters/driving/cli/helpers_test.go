package cli

import (
	"context"

	"github.com/custodia-labs/khub-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driving"
)

// setupTestServices swaps the package-level services for doubles and
// returns a cleanup that restores the previous wiring.
func setupTestServices() func() {
	prevSearch := searchService
	prevAnswer := answerService
	prevIndexer := indexerService
	prevScan := scanService
	prevLibrary := libraryService
	prevSettings := settingsService
	prevDocStore := documentStore
	prevSettingsValue := appSettings
	prevReady := servicesReady

	searchService = &cliMockSearch{
		resp: &domain.SearchResponse{
			Results: []domain.SearchResult{
				{
					DocumentID: "doc-1",
					Filename:   "notes.md",
					Folder:     "ml",
					ChunkIndex: 0,
					Text:       "Gradient descent minimises the loss.",
					Score:      0.88,
				},
			},
		},
	}
	answerService = &cliMockAnswer{
		answer: &domain.Answer{
			Text:    "Gradient descent iteratively minimises the loss.",
			Model:   "llama3",
			Sources: []domain.SearchResult{{DocumentID: "doc-1", Filename: "notes.md", Score: 0.88}},
		},
	}
	indexerService = &cliMockIndexer{
		job: &domain.IndexJob{
			ID:             "job-1",
			Status:         domain.JobCompleted,
			TotalFiles:     2,
			ProcessedFiles: 2,
		},
	}
	scanService = &cliMockScan{result: &driving.ScanResult{NewFiles: 1, UpdatedFiles: 2, TotalFiles: 3}}
	libraryService = &cliMockLibrary{
		stats: &driving.LibraryStats{
			Total:      3,
			ByStatus:   map[domain.DocumentStatus]int{domain.StatusIndexed: 3},
			ChunkCount: 12,
		},
	}
	settingsService = &cliMockSettings{settings: domain.DefaultSettings()}
	documentStore = memory.NewDocumentStore()
	appSettings = domain.DefaultSettings()
	servicesReady = true

	return func() {
		searchService = prevSearch
		answerService = prevAnswer
		indexerService = prevIndexer
		scanService = prevScan
		libraryService = prevLibrary
		settingsService = prevSettings
		documentStore = prevDocStore
		appSettings = prevSettingsValue
		servicesReady = prevReady
	}
}

type cliMockSearch struct {
	resp *domain.SearchResponse
	err  error
}

func (m *cliMockSearch) Search(_ context.Context, _ string, _ domain.SearchOptions) (*domain.SearchResponse, error) {
	return m.resp, m.err
}

type cliMockAnswer struct {
	answer *domain.Answer
	err    error
}

func (m *cliMockAnswer) Ask(_ context.Context, _ string, _ domain.SearchOptions) (*domain.Answer, error) {
	return m.answer, m.err
}

type cliMockIndexer struct {
	job      *domain.IndexJob
	progress *domain.JobProgress
	err      error
	lastOpts driving.RunOptions
}

func (m *cliMockIndexer) Run(_ context.Context, opts driving.RunOptions) (*domain.IndexJob, error) {
	m.lastOpts = opts
	return m.job, m.err
}

func (m *cliMockIndexer) Progress(_ context.Context) (*domain.JobProgress, error) {
	return m.progress, m.err
}

func (m *cliMockIndexer) Job(_ context.Context, _ string) (*domain.IndexJob, error) {
	return m.job, m.err
}

type cliMockScan struct {
	result *driving.ScanResult
	err    error
}

func (m *cliMockScan) Scan(_ context.Context) (*driving.ScanResult, error) {
	return m.result, m.err
}

func (m *cliMockScan) Watch(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

type cliMockLibrary struct {
	doc    *domain.Document
	chunks []domain.Chunk
	stats  *driving.LibraryStats
	err    error
}

func (m *cliMockLibrary) Document(_ context.Context, _ string) (*domain.Document, error) {
	return m.doc, m.err
}

func (m *cliMockLibrary) Chunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return m.chunks, m.err
}

func (m *cliMockLibrary) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *cliMockLibrary) Stats(_ context.Context) (*driving.LibraryStats, error) {
	return m.stats, m.err
}

type cliMockSettings struct {
	settings domain.Settings
	err      error
}

func (m *cliMockSettings) Get() (domain.Settings, error) {
	return m.settings, m.err
}

func (m *cliMockSettings) Save(settings domain.Settings) error {
	m.settings = settings
	return m.err
}
