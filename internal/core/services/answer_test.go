package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
)

// --- Mock implementations for answer testing ---

// ansMockSearch implements driving.SearchService with scripted results.
type ansMockSearch struct {
	resp *domain.SearchResponse
	err  error

	lastQuery string
}

func (m *ansMockSearch) Search(_ context.Context, query string, _ domain.SearchOptions) (*domain.SearchResponse, error) {
	m.lastQuery = query
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

// ansMockLLM implements driven.LLMService.
type ansMockLLM struct {
	answer string
	err    error

	lastQuestion string
	lastPassages []driven.ContextPassage
}

func (m *ansMockLLM) GenerateAnswer(_ context.Context, question string, passages []driven.ContextPassage) (string, error) {
	m.lastQuestion = question
	m.lastPassages = passages
	return m.answer, m.err
}

func (m *ansMockLLM) ModelName() string            { return "mock-llm" }
func (m *ansMockLLM) Ping(_ context.Context) error { return nil }
func (m *ansMockLLM) Close() error                 { return nil }

func searchResponse(results ...domain.SearchResult) *domain.SearchResponse {
	return &domain.SearchResponse{Results: results}
}

func TestAnswerEngine_GeneratesAnswerFromContext(t *testing.T) {
	search := &ansMockSearch{resp: searchResponse(
		domain.SearchResult{Filename: "handbook.md", Text: "The office is in Taipei.", Score: 0.9, Page: 2},
	)}
	llm := &ansMockLLM{answer: "The office is in Taipei [source 1]."}
	engine := NewAnswerEngine(search, llm)

	answer, err := engine.Ask(context.Background(), "Where is the office?", domain.SearchOptions{})
	require.NoError(t, err)

	assert.Equal(t, "The office is in Taipei [source 1].", answer.Text)
	assert.Equal(t, "mock-llm", answer.Model)
	assert.Equal(t, "Where is the office?", llm.lastQuestion)
	require.Len(t, llm.lastPassages, 1)
	assert.Equal(t, "handbook.md", llm.lastPassages[0].Filename)
	assert.Equal(t, 2, llm.lastPassages[0].Page)
	assert.GreaterOrEqual(t, answer.ElapsedMS, int64(0))
}

func TestAnswerEngine_TruncatesSourceText(t *testing.T) {
	long := strings.Repeat("x", 500)
	search := &ansMockSearch{resp: searchResponse(
		domain.SearchResult{Filename: "big.md", Text: long, Score: 0.8},
	)}
	llm := &ansMockLLM{answer: "ok"}
	engine := NewAnswerEngine(search, llm)

	answer, err := engine.Ask(context.Background(), "q", domain.SearchOptions{})
	require.NoError(t, err)

	require.Len(t, answer.Sources, 1)
	assert.Len(t, answer.Sources[0].Text, sourceTextLimit+len("..."))
	// The LLM still sees the full passage.
	assert.Equal(t, long, llm.lastPassages[0].Text)
}

func TestAnswerEngine_NoResults(t *testing.T) {
	search := &ansMockSearch{resp: searchResponse()}
	llm := &ansMockLLM{answer: "unused"}
	engine := NewAnswerEngine(search, llm)

	answer, err := engine.Ask(context.Background(), "q", domain.SearchOptions{})
	require.NoError(t, err)

	assert.Contains(t, answer.Text, "could not find")
	assert.Empty(t, answer.Sources)
	assert.Empty(t, answer.Model)
	assert.Empty(t, llm.lastQuestion, "LLM must not be called without context")
}

func TestAnswerEngine_DegradesWithoutLLM(t *testing.T) {
	search := &ansMockSearch{resp: searchResponse(
		domain.SearchResult{Filename: "notes.md", Text: "Relevant passage.", Score: 0.9, Page: 3},
	)}
	engine := NewAnswerEngine(search, nil)

	answer, err := engine.Ask(context.Background(), "q", domain.SearchOptions{})
	require.NoError(t, err)

	assert.Contains(t, answer.Text, "No language model is configured")
	assert.Contains(t, answer.Text, "notes.md")
	assert.Contains(t, answer.Text, "page 3")
	assert.Empty(t, answer.Model)
	require.Len(t, answer.Sources, 1)
}

func TestAnswerEngine_EmptyQuestion(t *testing.T) {
	engine := NewAnswerEngine(&ansMockSearch{resp: searchResponse()}, nil)

	_, err := engine.Ask(context.Background(), "  ", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnswerEngine_PropagatesErrors(t *testing.T) {
	search := &ansMockSearch{err: domain.ErrEmbeddingUnavailable}
	engine := NewAnswerEngine(search, &ansMockLLM{})
	_, err := engine.Ask(context.Background(), "q", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	search = &ansMockSearch{resp: searchResponse(domain.SearchResult{Filename: "a.md", Text: "t"})}
	llm := &ansMockLLM{err: errors.New("all providers down")}
	engine = NewAnswerEngine(search, llm)
	_, err = engine.Ask(context.Background(), "q", domain.SearchOptions{})
	assert.ErrorContains(t, err, "all providers down")
}
