package domain

// SearchFilter narrows retrieval to a subset of the collection.
type SearchFilter struct {
	// Folders restricts results to documents in these folders.
	Folders []string

	// Types restricts results to these file types.
	Types []FileType

	// Tags restricts results to documents carrying any of these tags.
	Tags []string

	// DocumentIDs restricts results to specific documents.
	DocumentIDs []string
}

// Empty reports whether the filter imposes no restriction.
func (f SearchFilter) Empty() bool {
	return len(f.Folders) == 0 && len(f.Types) == 0 && len(f.Tags) == 0 && len(f.DocumentIDs) == 0
}

// SearchOptions configures a retrieval query. Zero values mean "use
// the configured default", never "disable": callers that want no
// threshold filtering set ScoreThreshold to zero in settings rather
// than passing a zero here.
type SearchOptions struct {
	// TopK is the maximum number of results. Zero falls back to the
	// configured default.
	TopK int

	// Threshold is the minimum similarity score for a result to count
	// as high-confidence. Results below it are only returned via the
	// low-confidence fallback. Zero or negative falls back to the
	// configured default.
	Threshold float64

	// Filter narrows the candidate set.
	Filter SearchFilter
}

// SearchResult is one ranked retrieval hit, enriched with ledger
// metadata for display.
type SearchResult struct {
	ChunkID       string  `json:"chunk_id"`
	DocumentID    string  `json:"document_id"`
	Filename      string  `json:"filename"`
	Folder        string  `json:"folder,omitempty"`
	ChunkIndex    int     `json:"chunk_index"`
	Text          string  `json:"text"`
	Score         float64 `json:"score"`
	Page          int     `json:"page,omitempty"`
	LowConfidence bool    `json:"low_confidence,omitempty"`
}

// SearchResponse is the full result of one retrieval.
// LowConfidence is true when every returned result fell below the
// threshold and was returned via the fallback. An empty Results slice
// means the index (or the filtered subset) genuinely had no
// candidates; it is never used to signal "all scores were low".
type SearchResponse struct {
	Results       []SearchResult `json:"results"`
	LowConfidence bool           `json:"low_confidence"`
}

// Answer is the response of the question-answering path. The answer
// text itself is produced by the external LLM collaborator; the core
// contributes the ranked source passages.
type Answer struct {
	Text      string         `json:"answer"`
	Model     string         `json:"model_used,omitempty"`
	Sources   []SearchResult `json:"sources"`
	ElapsedMS int64          `json:"response_time_ms"`
}
