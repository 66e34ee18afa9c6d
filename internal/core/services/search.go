package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driving"
	"github.com/custodia-labs/khub-cli/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.SearchService = (*Retriever)(nil)

// overfetchMultiplier is how many candidates beyond top_k the vector
// query requests, so post-filtering and the threshold partition still
// have enough to choose from.
const overfetchMultiplier = 3

// Retriever executes semantic retrieval: query embedding, vector
// search, threshold partitioning with low-confidence fallback, and
// deterministic ordering.
//
// The retriever owns all threshold policy. Scores arriving from the
// vector store are opaque similarity values in (0, 1]; what counts as
// "confident" depends on the embedding model, which only this layer
// can reason about.
type Retriever struct {
	docStore driven.DocumentStore
	vectors  driven.VectorStore
	embedder driven.EmbeddingService
	settings domain.Settings
}

// NewRetriever creates the retrieval service. The embedder and vector
// store may be nil; Search then fails with the matching typed error
// rather than an empty success.
func NewRetriever(
	docStore driven.DocumentStore,
	vectors driven.VectorStore,
	embedder driven.EmbeddingService,
	settings domain.Settings,
) *Retriever {
	settings.Normalise()
	return &Retriever{
		docStore: docStore,
		vectors:  vectors,
		embedder: embedder,
		settings: settings,
	}
}

// Search retrieves the chunks most similar to the query.
func (r *Retriever) Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &domain.SearchResponse{Results: []domain.SearchResult{}}, nil
	}
	if r.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if r.vectors == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = r.settings.TopK
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = r.settings.ScoreThreshold
	}
	logger.Debug("Search: query=%q top_k=%d threshold=%.2f", query, topK, threshold)

	filter, empty, err := r.resolveFilter(ctx, opts.Filter)
	if err != nil {
		return nil, err
	}
	if empty {
		// The tag/type filters matched no documents; there is nothing
		// to search over.
		return &domain.SearchResponse{Results: []domain.SearchResult{}}, nil
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	hits, err := r.vectors.Query(ctx, vector, topK*overfetchMultiplier, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrVectorStoreUnavailable, err)
	}
	logger.Debug("Search: %d raw candidates", len(hits))

	candidates := make([]domain.SearchResult, len(hits))
	for i, hit := range hits {
		candidates[i] = domain.SearchResult{
			ChunkID:    hit.ChunkID,
			DocumentID: hit.DocumentID,
			Filename:   hit.Filename,
			Folder:     hit.Folder,
			ChunkIndex: hit.ChunkIndex,
			Text:       hit.Text,
			Score:      hit.Score,
			Page:       hit.Page,
		}
	}

	confident := make([]domain.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		if c.Score >= threshold {
			confident = append(confident, c)
		}
	}

	// A threshold that discards every candidate must not masquerade
	// as an empty index: fall back to the raw candidates, flagged.
	results := confident
	lowConfidence := false
	if len(confident) == 0 && len(candidates) > 0 {
		logger.Debug("Search: all %d candidates below threshold, low-confidence fallback", len(candidates))
		results = candidates
		lowConfidence = true
	}

	rankResults(results)
	if len(results) > topK {
		results = results[:topK]
	}
	for i := range results {
		results[i].LowConfidence = lowConfidence
	}

	logger.Debug("Search: returning %d results (low_confidence=%t)", len(results), lowConfidence)
	return &domain.SearchResponse{Results: results, LowConfidence: lowConfidence}, nil
}

// resolveFilter translates the search filter into a vector store
// filter. Tag and type restrictions have no pushdown in the vector
// store, so they resolve to document ID sets via the ledger. The
// empty return is true when the restrictions matched no documents at
// all.
func (r *Retriever) resolveFilter(ctx context.Context, f domain.SearchFilter) (driven.VectorFilter, bool, error) {
	out := driven.VectorFilter{Folders: f.Folders}

	if len(f.Tags) == 0 && len(f.Types) == 0 {
		out.DocumentIDs = f.DocumentIDs
		return out, false, nil
	}

	allowed, err := r.resolveDocumentIDs(ctx, f)
	if err != nil {
		return out, false, err
	}
	if len(allowed) == 0 {
		return out, true, nil
	}

	if len(f.DocumentIDs) > 0 {
		intersection := allowed[:0]
		requested := make(map[string]bool, len(f.DocumentIDs))
		for _, id := range f.DocumentIDs {
			requested[id] = true
		}
		for _, id := range allowed {
			if requested[id] {
				intersection = append(intersection, id)
			}
		}
		if len(intersection) == 0 {
			return out, true, nil
		}
		allowed = intersection
	}

	out.DocumentIDs = allowed
	return out, false, nil
}

// resolveDocumentIDs collects the IDs of documents matching the tag
// and type restrictions. Values within one dimension are OR'd,
// dimensions are AND'd.
func (r *Retriever) resolveDocumentIDs(ctx context.Context, f domain.SearchFilter) ([]string, error) {
	union := func(filters []driven.DocumentFilter) (map[string]bool, error) {
		matched := make(map[string]bool)
		for _, filter := range filters {
			docs, _, err := r.docStore.List(ctx, filter)
			if err != nil {
				return nil, fmt.Errorf("resolve filter: %w", err)
			}
			for i := range docs {
				matched[docs[i].ID] = true
			}
		}
		return matched, nil
	}

	var tagFilters, typeFilters []driven.DocumentFilter
	for _, tag := range f.Tags {
		tagFilters = append(tagFilters, driven.DocumentFilter{Tag: tag})
	}
	for _, t := range f.Types {
		typeFilters = append(typeFilters, driven.DocumentFilter{Type: t})
	}

	matched, err := union(tagFilters)
	if err != nil {
		return nil, err
	}
	if len(typeFilters) > 0 {
		byType, err := union(typeFilters)
		if err != nil {
			return nil, err
		}
		if len(tagFilters) == 0 {
			matched = byType
		} else {
			for id := range matched {
				if !byType[id] {
					delete(matched, id)
				}
			}
		}
	}

	ids := make([]string, 0, len(matched))
	for id := range matched {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// rankResults orders results by score descending, breaking ties by
// chunk ordinal then document ID so equal scores rank
// deterministically.
func rankResults(results []domain.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].ChunkIndex != results[j].ChunkIndex {
			return results[i].ChunkIndex < results[j].ChunkIndex
		}
		return results[i].DocumentID < results[j].DocumentID
	})
}
