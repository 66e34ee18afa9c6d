package mcp

import (
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces the MCP server exposes.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search provides semantic retrieval.
	Search driving.SearchService

	// Answer provides question answering over the collection.
	Answer driving.AnswerService

	// Indexer reports indexing job progress.
	Indexer driving.Indexer

	// Library provides collection stats and per-document chunks.
	Library driving.LibraryService

	// Documents is the ledger, used for listings and resources.
	Documents driven.DocumentStore
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	// Indexer, Library and Documents are optional; the tools and
	// resources that need them are only registered when present.
	return nil
}
