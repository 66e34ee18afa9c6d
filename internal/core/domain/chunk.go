package domain

import "fmt"

// Chunk is one retrievable unit of text. Chunks are immutable once
// written: re-indexing a document replaces its entire chunk set.
type Chunk struct {
	// DocumentID links to the owning ledger document.
	DocumentID string

	// Index is the ordinal position in document reading order.
	// Ordinals for a document are contiguous from 0.
	Index int

	// Text is the chunk content, including any heading context prefix
	// added by the chunker.
	Text string

	// Page is the page or slide the chunk starts on (1-based),
	// 0 when the format has no page concept.
	Page int

	// Heading is the section heading path the chunk belongs to.
	Heading string

	// Folder and Filename are denormalised from the document for
	// filter pushdown and display.
	Folder   string
	Filename string

	// Embedding is the vector representation. Populated by the
	// embedding step; nil before that.
	Embedding []float32
}

// Key returns the vector collection key for this chunk.
func (c Chunk) Key() string {
	return fmt.Sprintf("%s_chunk_%d", c.DocumentID, c.Index)
}
