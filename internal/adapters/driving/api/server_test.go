package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/khub-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driving"
)

// --- Mock driving services ---

type apiMockSearch struct {
	resp *domain.SearchResponse
	err  error
}

func (m *apiMockSearch) Search(_ context.Context, _ string, _ domain.SearchOptions) (*domain.SearchResponse, error) {
	return m.resp, m.err
}

type apiMockAnswer struct {
	answer *domain.Answer
	err    error
}

func (m *apiMockAnswer) Ask(_ context.Context, _ string, _ domain.SearchOptions) (*domain.Answer, error) {
	return m.answer, m.err
}

type apiMockIndexer struct {
	job    *domain.IndexJob
	runErr error
	jobErr error
}

func (m *apiMockIndexer) Run(_ context.Context, _ driving.RunOptions) (*domain.IndexJob, error) {
	return m.job, m.runErr
}

func (m *apiMockIndexer) Progress(_ context.Context) (*domain.JobProgress, error) {
	return nil, domain.ErrNotFound
}

func (m *apiMockIndexer) Job(_ context.Context, _ string) (*domain.IndexJob, error) {
	if m.jobErr != nil {
		return nil, m.jobErr
	}
	return m.job, nil
}

type apiMockScanner struct {
	result *driving.ScanResult
	err    error
}

func (m *apiMockScanner) Scan(_ context.Context) (*driving.ScanResult, error) {
	return m.result, m.err
}

func (m *apiMockScanner) Watch(_ context.Context) error { return nil }

type apiMockLibrary struct {
	doc    *domain.Document
	chunks []domain.Chunk
	stats  *driving.LibraryStats
	err    error

	deletedID string
}

func (m *apiMockLibrary) Document(_ context.Context, _ string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.doc, nil
}

func (m *apiMockLibrary) Chunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return m.chunks, m.err
}

func (m *apiMockLibrary) Delete(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.deletedID = id
	return nil
}

func (m *apiMockLibrary) Stats(_ context.Context) (*driving.LibraryStats, error) {
	return m.stats, m.err
}

type apiMockSettings struct {
	settings domain.Settings
	saveErr  error
	saved    *domain.Settings
}

func (m *apiMockSettings) Get() (domain.Settings, error) { return m.settings, nil }

func (m *apiMockSettings) Save(settings domain.Settings) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = &settings
	return nil
}

// --- Helpers ---

func newTestServer(deps Deps) *Server {
	if deps.DocStore == nil {
		deps.DocStore = memory.NewDocumentStore()
	}
	return NewServer(Config{}, deps)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// --- Tests ---

func TestSearchEndpoint(t *testing.T) {
	srv := newTestServer(Deps{Search: &apiMockSearch{resp: &domain.SearchResponse{
		Results: []domain.SearchResult{{ChunkID: "d1_chunk_0", Filename: "a.md", Score: 0.9, Text: "hit"}},
	}}})

	rec := doJSON(t, srv, http.MethodPost, "/api/search", jsonBody{"query": "hello", "top_k": 3})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, false, body["low_confidence"])
}

func TestSearchEndpoint_RequiresQuery(t *testing.T) {
	srv := newTestServer(Deps{Search: &apiMockSearch{}})

	rec := doJSON(t, srv, http.MethodPost, "/api/search", jsonBody{"top_k": 3})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "INVALID_REQUEST", errObj["code"])
}

func TestSearchEndpoint_ServiceUnavailable(t *testing.T) {
	srv := newTestServer(Deps{Search: &apiMockSearch{err: domain.ErrEmbeddingUnavailable}})

	rec := doJSON(t, srv, http.MethodPost, "/api/search", jsonBody{"query": "q"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "SERVICE_UNAVAILABLE", errObj["code"])
}

func TestChatEndpoint(t *testing.T) {
	srv := newTestServer(Deps{Answer: &apiMockAnswer{answer: &domain.Answer{
		Text:  "The office is in Taipei [source 1].",
		Model: "llama3",
		Sources: []domain.SearchResult{
			{Filename: "handbook.md", Score: 0.91},
		},
		ElapsedMS: 42,
	}}})

	rec := doJSON(t, srv, http.MethodPost, "/api/chat", jsonBody{"question": "Where is the office?"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "The office is in Taipei [source 1].", body["answer"])
	assert.Equal(t, "llama3", body["model_used"])
	assert.Len(t, body["sources"], 1)
}

func TestProcessIndex_CompletesWithinWindow(t *testing.T) {
	finished := time.Now()
	srv := newTestServer(Deps{Indexer: &apiMockIndexer{job: &domain.IndexJob{
		ID: "job-1", Status: domain.JobCompleted, TotalFiles: 2, ProcessedFiles: 2,
		StartedAt: time.Now(), FinishedAt: &finished,
	}}})

	rec := doJSON(t, srv, http.MethodPost, "/api/index/process", jsonBody{})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "job-1", body["job_id"])
	assert.Equal(t, "completed", body["status"])
}

func TestProcessIndex_ActiveJobConflicts(t *testing.T) {
	srv := newTestServer(Deps{Indexer: &apiMockIndexer{runErr: domain.ErrJobActive}})

	rec := doJSON(t, srv, http.MethodPost, "/api/index/process", jsonBody{})
	require.Equal(t, http.StatusConflict, rec.Code)

	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "JOB_ACTIVE", errObj["code"])
}

func TestIndexStatus(t *testing.T) {
	srv := newTestServer(Deps{Library: &apiMockLibrary{stats: &driving.LibraryStats{
		Total: 5,
		ByStatus: map[domain.DocumentStatus]int{
			domain.StatusIndexed: 3,
			domain.StatusPending: 1,
			domain.StatusFailed:  1,
		},
		ChunkCount: 40,
		LatestJob: &domain.IndexJob{
			ID: "job-9", Status: domain.JobProcessing, TotalFiles: 4, ProcessedFiles: 2,
		},
	}}})

	rec := doJSON(t, srv, http.MethodGet, "/api/index/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(5), body["total"])
	assert.Equal(t, float64(3), body["indexed"])
	assert.Equal(t, float64(40), body["chunk_count"])

	active := body["active_job"].(map[string]any)
	assert.Equal(t, "job-9", active["job_id"])
	assert.Equal(t, float64(50), active["progress_percent"])
}

func TestJobEndpoint_NotFound(t *testing.T) {
	srv := newTestServer(Deps{Indexer: &apiMockIndexer{jobErr: domain.ErrNotFound}})

	rec := doJSON(t, srv, http.MethodGet, "/api/index/jobs/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "NOT_FOUND", errObj["code"])
}

func TestDocumentEndpoints(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	doc := &domain.Document{
		ID: "doc1", Filename: "a.md", Filepath: "/docs/a.md", Folder: "notes",
		Type: domain.FileTypeMarkdown, Status: domain.StatusIndexed, ChunksCount: 2,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.Save(ctx, doc))
	require.NoError(t, store.SetTags(ctx, doc.ID, []string{"api", "guide"}))

	library := &apiMockLibrary{doc: doc}
	srv := newTestServer(Deps{DocStore: store, Library: library})

	rec := doJSON(t, srv, http.MethodGet, "/api/documents?folder=notes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["total"])

	rec = doJSON(t, srv, http.MethodGet, "/api/documents/doc1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "a.md", body["filename"])

	rec = doJSON(t, srv, http.MethodDelete, "/api/documents/doc1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "doc1", library.deletedID)

	rec = doJSON(t, srv, http.MethodGet, "/api/tags", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Len(t, body["tags"], 2)

	rec = doJSON(t, srv, http.MethodGet, "/api/folders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Len(t, body["folders"], 1)
}

func TestTagEndpoints(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	doc := &domain.Document{
		ID: "doc1", Filename: "a.md", Filepath: "/docs/a.md",
		Type: domain.FileTypeMarkdown, Status: domain.StatusPending, CreatedAt: time.Now(),
	}
	require.NoError(t, store.Save(ctx, doc))

	srv := newTestServer(Deps{DocStore: store, Library: &apiMockLibrary{doc: doc}})

	rec := doJSON(t, srv, http.MethodPost, "/api/documents/doc1/tags", jsonBody{"tags": []string{"a", "b"}})
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := store.Get(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Tags)

	// The remove handler reads current tags through the library.
	doc.Tags = []string{"a", "b"}
	rec = doJSON(t, srv, http.MethodDelete, "/api/documents/doc1/tags/a", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err = store.Get(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, got.Tags)
}

func TestScanEndpoint(t *testing.T) {
	srv := newTestServer(Deps{Scanner: &apiMockScanner{result: &driving.ScanResult{
		NewFiles: 2, UpdatedFiles: 1, TotalFiles: 3,
	}}})

	rec := doJSON(t, srv, http.MethodPost, "/api/documents/scan", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["new_files"])
	assert.Equal(t, float64(3), body["total_files"])
}

func TestSettingsEndpoints(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.Embedding.APIKey = "sk-secret"
	mock := &apiMockSettings{settings: settings}
	srv := newTestServer(Deps{Settings: mock})

	rec := doJSON(t, srv, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sk-secret", "API keys must never leave the server")

	body := decodeBody(t, rec)
	embedding := body["embedding"].(map[string]any)
	assert.Equal(t, "ollama", embedding["provider"])

	// Round-trip the redacted payload; the stored key must survive.
	var payload settingsPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	payload.TopK = 9

	rec = doJSON(t, srv, http.MethodPut, "/api/settings", payload)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, mock.saved)
	assert.Equal(t, 9, mock.saved.TopK)
	assert.Equal(t, "sk-secret", mock.saved.Embedding.APIKey)
}

// jsonBody is shorthand for request payloads.
type jsonBody = map[string]any
