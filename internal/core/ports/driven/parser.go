package driven

import (
	"context"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
)

// Page is one page or slide of parsed text.
type Page struct {
	// Number is the 1-based page or slide number.
	Number int

	// Text is the extracted text for the page.
	Text string
}

// ParsedDocument is the output of parsing one file: ordered text with
// page boundaries plus embedded metadata.
type ParsedDocument struct {
	Pages []Page
	Meta  domain.DocumentMeta
}

// Text joins all page texts in reading order.
func (p *ParsedDocument) Text() string {
	out := ""
	for i, page := range p.Pages {
		if i > 0 {
			out += "\n\n"
		}
		out += page.Text
	}
	return out
}

// Parser extracts text and structure from one file format.
type Parser interface {
	// Parse reads the file at path and returns its text split by
	// page/slide boundaries. Corrupt or unreadable files return an
	// error; the caller classifies it as a parse failure.
	Parse(ctx context.Context, path string) (*ParsedDocument, error)
}

// ParserRegistry dispatches to the parser for a file type.
type ParserRegistry interface {
	// Parse selects the parser for t and runs it. Returns
	// domain.ErrUnsupportedType when no parser handles t.
	Parse(ctx context.Context, path string, t domain.FileType) (*ParsedDocument, error)
}
