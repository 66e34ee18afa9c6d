// Package parsers converts raw files into ordered text with page and
// slide boundaries, polymorphic over file type.
package parsers

import (
	"context"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ParserRegistry = (*Registry)(nil)

// Registry dispatches parsing by file type.
type Registry struct {
	parsers map[domain.FileType]driven.Parser
}

// NewRegistry creates a registry with all built-in parsers registered.
func NewRegistry() *Registry {
	return &Registry{
		parsers: map[domain.FileType]driven.Parser{
			domain.FileTypePDF:      &PDFParser{},
			domain.FileTypePPTX:     &PPTXParser{},
			domain.FileTypeDOCX:     &DOCXParser{},
			domain.FileTypeMarkdown: &MarkdownParser{},
		},
	}
}

// Register adds or replaces the parser for a file type.
func (r *Registry) Register(t domain.FileType, p driven.Parser) {
	r.parsers[t] = p
}

// Parse selects the parser for t and runs it.
func (r *Registry) Parse(ctx context.Context, path string, t domain.FileType) (*driven.ParsedDocument, error) {
	p, ok := r.parsers[t]
	if !ok {
		return nil, domain.ErrUnsupportedType
	}
	return p.Parse(ctx, path)
}
