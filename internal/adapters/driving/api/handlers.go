package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driving"
	"github.com/custodia-labs/khub-cli/internal/logger"
)

// startWindow is how long the index-process handler waits for the run
// to finish (or fail fast) before answering 202 and letting it
// continue in the background.
const startWindow = 150 * time.Millisecond

type handler struct {
	deps Deps
}

func (h *handler) register(router *gin.Engine) {
	api := router.Group("/api")

	api.POST("/search", h.search)
	api.POST("/chat", h.chat)

	api.POST("/index/process", h.processIndex)
	api.GET("/index/status", h.indexStatus)
	api.GET("/index/jobs/:id", h.job)

	api.GET("/documents", h.listDocuments)
	api.POST("/documents/scan", h.scan)
	api.GET("/documents/:id", h.getDocument)
	api.GET("/documents/:id/chunks", h.documentChunks)
	api.DELETE("/documents/:id", h.deleteDocument)
	api.POST("/documents/:id/tags", h.setTags)
	api.DELETE("/documents/:id/tags/:tag", h.removeTag)

	api.GET("/folders", h.folders)
	api.GET("/tags", h.tags)

	api.GET("/settings", h.getSettings)
	api.PUT("/settings", h.updateSettings)
}

// --- search and chat ---

type searchRequest struct {
	Query       string   `json:"query"`
	TopK        int      `json:"top_k"`
	Threshold   float64  `json:"threshold"`
	Folders     []string `json:"folders"`
	Types       []string `json:"types"`
	Tags        []string `json:"tags"`
	DocumentIDs []string `json:"document_ids"`
}

func (r *searchRequest) options() domain.SearchOptions {
	types := make([]domain.FileType, 0, len(r.Types))
	for _, t := range r.Types {
		types = append(types, domain.FileType(t))
	}
	return domain.SearchOptions{
		TopK:      r.TopK,
		Threshold: r.Threshold,
		Filter: domain.SearchFilter{
			Folders:     r.Folders,
			Types:       types,
			Tags:        r.Tags,
			DocumentIDs: r.DocumentIDs,
		},
	}
}

func (h *handler) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		respondBadRequest(c, "query is required")
		return
	}

	resp, err := h.deps.Search.Search(c.Request.Context(), req.Query, req.options())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"results":        resp.Results,
		"count":          len(resp.Results),
		"low_confidence": resp.LowConfidence,
	})
}

type chatRequest struct {
	Question  string   `json:"question"`
	TopK      int      `json:"top_k"`
	Threshold float64  `json:"threshold"`
	Folders   []string `json:"folders"`
	Tags      []string `json:"tags"`
}

func (h *handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Question == "" {
		respondBadRequest(c, "question is required")
		return
	}

	opts := domain.SearchOptions{
		TopK:      req.TopK,
		Threshold: req.Threshold,
		Filter:    domain.SearchFilter{Folders: req.Folders, Tags: req.Tags},
	}
	answer, err := h.deps.Answer.Ask(c.Request.Context(), req.Question, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

// --- indexing ---

type indexRequest struct {
	DocumentIDs []string `json:"document_ids"`
	Force       bool     `json:"force"`
	RetryFailed bool     `json:"retry_failed"`
}

func (h *handler) processIndex(c *gin.Context) {
	var req indexRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	opts := driving.RunOptions{
		DocumentIDs: req.DocumentIDs,
		Force:       req.Force,
		RetryFailed: req.RetryFailed,
	}

	type runResult struct {
		job *domain.IndexJob
		err error
	}
	done := make(chan runResult, 1)
	go func() {
		// The run outlives the request; it must not die with it.
		job, err := h.deps.Indexer.Run(context.Background(), opts)
		if err != nil && !errors.Is(err, domain.ErrJobActive) {
			logger.Warn("Index run failed: %v", err)
		}
		done <- runResult{job, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			respondError(c, res.err)
			return
		}
		c.JSON(http.StatusOK, jobBody(res.job))
	case <-time.After(startWindow):
		c.JSON(http.StatusAccepted, gin.H{"status": "processing"})
	}
}

func (h *handler) indexStatus(c *gin.Context) {
	stats, err := h.deps.Library.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	body := gin.H{
		"total":       stats.Total,
		"indexed":     stats.ByStatus[domain.StatusIndexed],
		"pending":     stats.ByStatus[domain.StatusPending],
		"processing":  stats.ByStatus[domain.StatusProcessing],
		"failed":      stats.ByStatus[domain.StatusFailed],
		"chunk_count": stats.ChunkCount,
	}

	if stats.LatestJob != nil && !stats.LatestJob.Status.Terminal() {
		body["active_job"] = gin.H{
			"job_id":           stats.LatestJob.ID,
			"progress_percent": stats.LatestJob.ProgressPercent(),
		}
	}
	c.JSON(http.StatusOK, body)
}

func (h *handler) job(c *gin.Context) {
	job, err := h.deps.Indexer.Job(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobBody(job))
}

func jobBody(job *domain.IndexJob) gin.H {
	errs := job.Errors
	if errs == nil {
		errs = []domain.JobError{}
	}
	body := gin.H{
		"job_id":     job.ID,
		"status":     job.Status,
		"total":      job.TotalFiles,
		"processed":  job.ProcessedFiles,
		"failed":     job.FailedFiles,
		"started_at": job.StartedAt,
		"errors":     errs,
	}
	if job.FinishedAt != nil {
		body["finished_at"] = job.FinishedAt
	}
	return body
}

// --- documents ---

func (h *handler) listDocuments(c *gin.Context) {
	filter := driven.DocumentFilter{
		Folder: c.Query("folder"),
		Status: domain.DocumentStatus(c.Query("status")),
		Type:   domain.FileType(c.Query("type")),
		Tag:    c.Query("tag"),
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	}

	docs, total, err := h.deps.DocStore.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, len(docs))
	for i := range docs {
		out[i] = documentBody(&docs[i])
	}
	c.JSON(http.StatusOK, gin.H{"documents": out, "total": total})
}

func (h *handler) getDocument(c *gin.Context) {
	doc, err := h.deps.Library.Document(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, documentBody(doc))
}

func (h *handler) documentChunks(c *gin.Context) {
	chunks, err := h.deps.Library.Chunks(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, len(chunks))
	for i, chunk := range chunks {
		out[i] = gin.H{
			"chunk_id": chunk.Key(),
			"index":    chunk.Index,
			"text":     chunk.Text,
			"page":     chunk.Page,
			"heading":  chunk.Heading,
		}
	}
	c.JSON(http.StatusOK, gin.H{"chunks": out, "count": len(out)})
}

func (h *handler) deleteDocument(c *gin.Context) {
	if err := h.deps.Library.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *handler) scan(c *gin.Context) {
	result, err := h.deps.Scanner.Scan(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type tagsRequest struct {
	Tags []string `json:"tags"`
}

func (h *handler) setTags(c *gin.Context) {
	var req tagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	id := c.Param("id")
	if err := h.deps.DocStore.SetTags(c.Request.Context(), id, req.Tags); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document_id": id, "tags": req.Tags})
}

func (h *handler) removeTag(c *gin.Context) {
	id := c.Param("id")
	tag := c.Param("tag")

	doc, err := h.deps.Library.Document(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	remaining := make([]string, 0, len(doc.Tags))
	for _, t := range doc.Tags {
		if t != tag {
			remaining = append(remaining, t)
		}
	}
	if err := h.deps.DocStore.SetTags(c.Request.Context(), id, remaining); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document_id": id, "tags": remaining})
}

func (h *handler) folders(c *gin.Context) {
	folders, err := h.deps.DocStore.Folders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"folders": folders})
}

func (h *handler) tags(c *gin.Context) {
	tags, err := h.deps.DocStore.ListTags(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

func documentBody(doc *domain.Document) gin.H {
	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}
	body := gin.H{
		"id":           doc.ID,
		"filename":     doc.Filename,
		"filepath":     doc.Filepath,
		"folder":       doc.Folder,
		"type":         doc.Type,
		"size_bytes":   doc.SizeBytes,
		"status":       doc.Status,
		"chunks_count": doc.ChunksCount,
		"tags":         tags,
		"metadata":     doc.Metadata,
		"created_at":   doc.CreatedAt,
	}
	if doc.IndexedAt != nil {
		body["indexed_at"] = doc.IndexedAt
	}
	return body
}

// --- settings ---

// settingsPayload is the JSON mirror of domain.Settings.
type settingsPayload struct {
	ScanDir        string  `json:"scan_dir"`
	Recursive      bool    `json:"recursive"`
	ChunkSize      int     `json:"chunk_size"`
	ChunkOverlap   int     `json:"chunk_overlap"`
	BatchSize      int     `json:"batch_size"`
	MaxFileBytes   int64   `json:"max_file_bytes"`
	TopK           int     `json:"top_k"`
	ScoreThreshold float64 `json:"score_threshold"`

	Embedding struct {
		Provider   string `json:"provider"`
		Model      string `json:"model"`
		BaseURL    string `json:"base_url,omitempty"`
		APIKey     string `json:"api_key,omitempty"`
		Dimensions int    `json:"dimensions"`
	} `json:"embedding"`

	LLM struct {
		Provider     string `json:"provider"`
		Model        string `json:"model,omitempty"`
		BaseURL      string `json:"base_url,omitempty"`
		ClaudeAPIKey string `json:"claude_api_key,omitempty"`
		OpenAIAPIKey string `json:"openai_api_key,omitempty"`
	} `json:"llm"`
}

const redactedKey = "********"

func settingsBody(s domain.Settings) settingsPayload {
	var p settingsPayload
	p.ScanDir = s.ScanDir
	p.Recursive = s.Recursive
	p.ChunkSize = s.ChunkSize
	p.ChunkOverlap = s.ChunkOverlap
	p.BatchSize = s.BatchSize
	p.MaxFileBytes = s.MaxFileBytes
	p.TopK = s.TopK
	p.ScoreThreshold = s.ScoreThreshold

	p.Embedding.Provider = s.Embedding.Provider
	p.Embedding.Model = s.Embedding.Model
	p.Embedding.BaseURL = s.Embedding.BaseURL
	p.Embedding.Dimensions = s.Embedding.Dimensions
	if s.Embedding.APIKey != "" {
		p.Embedding.APIKey = redactedKey
	}

	p.LLM.Provider = s.LLM.Provider
	p.LLM.Model = s.LLM.Model
	p.LLM.BaseURL = s.LLM.BaseURL
	if s.LLM.ClaudeAPIKey != "" {
		p.LLM.ClaudeAPIKey = redactedKey
	}
	if s.LLM.OpenAIAPIKey != "" {
		p.LLM.OpenAIAPIKey = redactedKey
	}
	return p
}

func (h *handler) getSettings(c *gin.Context) {
	settings, err := h.deps.Settings.Get()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settingsBody(settings))
}

func (h *handler) updateSettings(c *gin.Context) {
	current, err := h.deps.Settings.Get()
	if err != nil {
		respondError(c, err)
		return
	}

	var p settingsPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	updated := current
	updated.ScanDir = p.ScanDir
	updated.Recursive = p.Recursive
	updated.ChunkSize = p.ChunkSize
	updated.ChunkOverlap = p.ChunkOverlap
	updated.BatchSize = p.BatchSize
	updated.MaxFileBytes = p.MaxFileBytes
	updated.TopK = p.TopK
	updated.ScoreThreshold = p.ScoreThreshold

	updated.Embedding.Provider = p.Embedding.Provider
	updated.Embedding.Model = p.Embedding.Model
	updated.Embedding.BaseURL = p.Embedding.BaseURL
	updated.Embedding.Dimensions = p.Embedding.Dimensions
	if p.Embedding.APIKey != "" && p.Embedding.APIKey != redactedKey {
		updated.Embedding.APIKey = p.Embedding.APIKey
	}

	updated.LLM.Provider = p.LLM.Provider
	updated.LLM.Model = p.LLM.Model
	updated.LLM.BaseURL = p.LLM.BaseURL
	if p.LLM.ClaudeAPIKey != "" && p.LLM.ClaudeAPIKey != redactedKey {
		updated.LLM.ClaudeAPIKey = p.LLM.ClaudeAPIKey
	}
	if p.LLM.OpenAIAPIKey != "" && p.LLM.OpenAIAPIKey != redactedKey {
		updated.LLM.OpenAIAPIKey = p.LLM.OpenAIAPIKey
	}

	if err := h.deps.Settings.Save(updated); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settingsBody(updated))
}

func intQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
