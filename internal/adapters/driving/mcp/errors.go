// Package mcp provides an MCP (Model Context Protocol) server adapter for the
// knowledge hub. It lets AI agents search the indexed collection, ask
// questions over it, and inspect indexing state.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("mcp: answer service is required")
