package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driving"
	"github.com/custodia-labs/khub-cli/internal/logger"
)

// Ensure AnswerEngine implements the interface.
var _ driving.AnswerService = (*AnswerEngine)(nil)

const (
	// sourceTextLimit caps the passage text echoed back in the
	// sources list. The full text still reaches the LLM.
	sourceTextLimit = 200

	// summaryLimit caps the no-LLM fallback summary.
	summaryLimit = 500
)

// AnswerEngine answers questions over the indexed collection. It owns
// retrieval and context assembly; answer synthesis is delegated to
// the LLM service.
type AnswerEngine struct {
	retriever driving.SearchService
	llm       driven.LLMService
}

// NewAnswerEngine creates the question-answering service. The llm may
// be nil; Ask then degrades to a context summary instead of failing.
func NewAnswerEngine(retriever driving.SearchService, llm driven.LLMService) *AnswerEngine {
	return &AnswerEngine{retriever: retriever, llm: llm}
}

// Ask retrieves context for the question and generates an answer.
func (a *AnswerEngine) Ask(ctx context.Context, question string, opts domain.SearchOptions) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}

	start := time.Now()

	resp, err := a.retriever.Search(ctx, question, opts)
	if err != nil {
		return nil, err
	}

	if len(resp.Results) == 0 {
		return &domain.Answer{
			Text:      "I could not find anything relevant in the knowledge base.",
			Sources:   []domain.SearchResult{},
			ElapsedMS: time.Since(start).Milliseconds(),
		}, nil
	}

	answer := &domain.Answer{Sources: truncateSources(resp.Results)}

	if a.llm == nil {
		// Retrieval still works without a language model; return the
		// context itself rather than an error.
		answer.Text = noLLMSummary(resp.Results)
	} else {
		passages := make([]driven.ContextPassage, len(resp.Results))
		for i, r := range resp.Results {
			passages[i] = driven.ContextPassage{
				Filename: r.Filename,
				Text:     r.Text,
				Page:     r.Page,
			}
		}

		text, err := a.llm.GenerateAnswer(ctx, question, passages)
		if err != nil {
			return nil, err
		}
		answer.Text = text
		answer.Model = a.llm.ModelName()
		logger.Debug("Answer generated by %s in %s", answer.Model, time.Since(start))
	}

	answer.ElapsedMS = time.Since(start).Milliseconds()
	return answer, nil
}

// truncateSources copies the results with passage text capped for
// response payloads.
func truncateSources(results []domain.SearchResult) []domain.SearchResult {
	sources := make([]domain.SearchResult, len(results))
	copy(sources, results)
	for i := range sources {
		sources[i].Text = truncateText(sources[i].Text, sourceTextLimit)
	}
	return sources
}

// truncateText caps s at roughly limit bytes without splitting a
// multi-byte rune.
func truncateText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit] + "..."
}

// noLLMSummary builds the degraded answer used when no language model
// is configured: a capped digest of the retrieved passages.
func noLLMSummary(results []domain.SearchResult) string {
	var b strings.Builder
	b.WriteString("No language model is configured. The most relevant passages were:\n")
	for i, r := range results {
		b.WriteString(fmt.Sprintf("\n[%d] %s", i+1, r.Filename))
		if r.Page > 0 {
			b.WriteString(fmt.Sprintf(" (page %d)", r.Page))
		}
		b.WriteString("\n")
		b.WriteString(truncateText(r.Text, summaryLimit/len(results)))
		b.WriteString("\n")
	}
	return b.String()
}
