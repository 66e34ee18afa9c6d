package driving

import (
	"context"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
)

// SearchService executes semantic retrieval end to end: query
// embedding, vector search, threshold/fallback scoring, and ledger
// enrichment.
type SearchService interface {
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error)
}

// AnswerService answers questions over the indexed collection by
// retrieving context passages and delegating synthesis to the LLM
// collaborator.
type AnswerService interface {
	Ask(ctx context.Context, question string, opts domain.SearchOptions) (*domain.Answer, error)
}
