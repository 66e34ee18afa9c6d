package parsers

import (
	"context"
	"os"
	"strings"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
)

// Ensure MarkdownParser implements the interface.
var _ driven.Parser = (*MarkdownParser)(nil)

// MarkdownParser handles Markdown documents. The raw text is kept as
// is: heading markers are structure cues the chunker relies on.
type MarkdownParser struct{}

// Parse reads a markdown file as a single page.
func (p *MarkdownParser) Parse(_ context.Context, path string) (*driven.ParsedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text := string(data)

	return &driven.ParsedDocument{
		Pages: []driven.Page{{Number: 1, Text: text}},
		Meta: domain.DocumentMeta{
			Pages: 1,
			Title: markdownTitle(text),
		},
	}, nil
}

// markdownTitle returns the first H1 heading, if any.
func markdownTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}
