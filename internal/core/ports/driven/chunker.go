package driven

import (
	"context"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
)

// Chunker splits a parsed document into retrievable chunks.
//
// The split is structural: heading and slide boundaries first, with a
// size window plus overlap as the fallback for oversized sections.
// Returned chunks carry Index (contiguous from 0, reading order),
// Text, Page and Heading; the caller fills in document identity.
// Empty input produces zero chunks, not an error.
type Chunker interface {
	Chunk(ctx context.Context, parsed *ParsedDocument) ([]domain.Chunk, error)
}
