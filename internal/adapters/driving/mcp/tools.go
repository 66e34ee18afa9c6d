package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
)

// SearchInput is the input schema for the search_knowledge tool.
type SearchInput struct {
	Query     string  `json:"query" jsonschema:"the search query to find relevant passages"`
	TopK      int     `json:"top_k,omitempty" jsonschema:"maximum number of results to return (default 5)"`
	Threshold float64 `json:"threshold,omitempty" jsonschema:"minimum similarity score for a confident match"`
}

// SearchOutput is the output schema for the search_knowledge tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`

	// LowConfidence is true when every result fell below the score
	// threshold and was returned as a best-effort fallback.
	LowConfidence bool `json:"low_confidence"`
}

// SearchResultOutput represents a single retrieval hit.
type SearchResultOutput struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Folder     string  `json:"folder,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
	Page       int     `json:"page,omitempty"`
}

// AskInput is the input schema for the ask_knowledge tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed collection"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of context passages to retrieve (default 5)"`
}

// AskOutput is the output schema for the ask_knowledge tool.
type AskOutput struct {
	Answer    string               `json:"answer"`
	Model     string               `json:"model_used,omitempty"`
	Sources   []SearchResultOutput `json:"sources"`
	ElapsedMS int64                `json:"response_time_ms"`
}

// IndexStatusInput is the input schema for the index_status tool.
type IndexStatusInput struct{}

// IndexStatusOutput is the output schema for the index_status tool.
type IndexStatusOutput struct {
	TotalDocuments int            `json:"total_documents"`
	ByStatus       map[string]int `json:"by_status"`
	ChunkCount     int            `json:"chunk_count"`

	// Job is the active or most recent indexing job, absent when no
	// job has ever run.
	Job *JobOutput `json:"job,omitempty"`
}

// JobOutput summarises one indexing job for agents.
type JobOutput struct {
	JobID           string `json:"job_id"`
	Status          string `json:"status"`
	Total           int    `json:"total"`
	Processed       int    `json:"processed"`
	Failed          int    `json:"failed"`
	CurrentFile     string `json:"current_file,omitempty"`
	ProgressPercent int    `json:"progress_percent"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct {
	Folder string `json:"folder,omitempty" jsonschema:"restrict the listing to one folder"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of documents to return (default 20)"`
}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Total     int              `json:"total"`
}

// DocumentOutput is one ledger record in a listing.
type DocumentOutput struct {
	ID          string   `json:"id"`
	Filename    string   `json:"filename"`
	Folder      string   `json:"folder,omitempty"`
	Type        string   `json:"type"`
	Status      string   `json:"status"`
	ChunksCount int      `json:"chunks_count"`
	Tags        []string `json:"tags,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
// Tools backed by optional ports are skipped when the port is absent.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_knowledge",
		Description: "Search the indexed document collection for passages relevant to a query",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_knowledge",
		Description: "Answer a question using retrieved passages from the indexed collection",
	}, s.handleAsk)

	if s.ports.Indexer != nil && s.ports.Library != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "index_status",
			Description: "Report collection counts and the state of the active or latest indexing job",
		}, s.handleIndexStatus)
	}

	if s.ports.Documents != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_documents",
			Description: "List documents in the collection, optionally restricted to one folder",
		}, s.handleListDocuments)
	}
}

// handleSearch handles the search_knowledge tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.SearchOptions{TopK: input.TopK, Threshold: input.Threshold}
	resp, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results:       resultOutputs(resp.Results),
		Count:         len(resp.Results),
		LowConfidence: resp.LowConfidence,
	}
	return nil, output, nil
}

// handleAsk handles the ask_knowledge tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	opts := domain.SearchOptions{TopK: input.TopK}
	answer, err := s.ports.Answer.Ask(ctx, input.Question, opts)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:    answer.Text,
		Model:     answer.Model,
		Sources:   resultOutputs(answer.Sources),
		ElapsedMS: answer.ElapsedMS,
	}
	return nil, output, nil
}

// handleIndexStatus handles the index_status tool invocation.
func (s *Server) handleIndexStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ IndexStatusInput,
) (*mcp.CallToolResult, IndexStatusOutput, error) {
	stats, err := s.ports.Library.Stats(ctx)
	if err != nil {
		return nil, IndexStatusOutput{}, err
	}

	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}

	output := IndexStatusOutput{
		TotalDocuments: stats.Total,
		ByStatus:       byStatus,
		ChunkCount:     stats.ChunkCount,
	}

	if stats.LatestJob != nil {
		progress, err := s.ports.Indexer.Progress(ctx)
		if err != nil {
			return nil, IndexStatusOutput{}, err
		}
		output.Job = jobOutput(progress)
	}

	return nil, output, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	filter := driven.DocumentFilter{Folder: input.Folder, Limit: limit}
	docs, total, err := s.ports.Documents.List(ctx, filter)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Total:     total,
	}
	for i := range docs {
		output.Documents[i] = DocumentOutput{
			ID:          docs[i].ID,
			Filename:    docs[i].Filename,
			Folder:      docs[i].Folder,
			Type:        string(docs[i].Type),
			Status:      string(docs[i].Status),
			ChunksCount: docs[i].ChunksCount,
			Tags:        docs[i].Tags,
		}
	}

	return nil, output, nil
}

func resultOutputs(results []domain.SearchResult) []SearchResultOutput {
	out := make([]SearchResultOutput, len(results))
	for i := range results {
		out[i] = SearchResultOutput{
			DocumentID: results[i].DocumentID,
			Filename:   results[i].Filename,
			Folder:     results[i].Folder,
			ChunkIndex: results[i].ChunkIndex,
			Text:       results[i].Text,
			Score:      results[i].Score,
			Page:       results[i].Page,
		}
	}
	return out
}

func jobOutput(p *domain.JobProgress) *JobOutput {
	return &JobOutput{
		JobID:           p.JobID,
		Status:          string(p.Status),
		Total:           p.Total,
		Processed:       p.Processed,
		Failed:          p.Failed,
		CurrentFile:     p.CurrentFile,
		ProgressPercent: p.ProgressPercent,
	}
}
