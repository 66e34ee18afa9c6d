package parsers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
)

// Ensure PDFParser implements the interface.
var _ driven.Parser = (*PDFParser)(nil)

// PDFParser extracts per-page text from PDF files.
type PDFParser struct{}

// Parse opens the PDF and extracts text page by page. Pages without
// extractable text are skipped; their numbering is preserved.
func (p *PDFParser) Parse(ctx context.Context, path string) (*driven.ParsedDocument, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages := make([]driven.Page, 0, total)

	for num := 1; num <= total; num++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not fail the document.
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		pages = append(pages, driven.Page{Number: num, Text: text})
	}

	meta := domain.DocumentMeta{Pages: total}
	if info := reader.Trailer().Key("Info"); !info.IsNull() {
		meta.Title = strings.TrimSpace(info.Key("Title").RawString())
		meta.Author = strings.TrimSpace(info.Key("Author").RawString())
	}

	return &driven.ParsedDocument{Pages: pages, Meta: meta}, nil
}
