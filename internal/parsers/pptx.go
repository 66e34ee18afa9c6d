package parsers

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
)

// Ensure PPTXParser implements the interface.
var _ driven.Parser = (*PPTXParser)(nil)

// PPTXParser extracts per-slide text from PowerPoint files.
type PPTXParser struct{}

// slideFilePattern matches slide entries like ppt/slides/slide12.xml.
var slideFilePattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// Parse opens the PPTX as a ZIP archive and extracts text slide by
// slide. Slides without text are skipped; slide numbering is
// preserved.
func (p *PPTXParser) Parse(ctx context.Context, path string) (*driven.ParsedDocument, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open pptx: %w", err)
	}
	defer reader.Close()

	type slideEntry struct {
		number int
		name   string
	}
	var slides []slideEntry
	for _, file := range reader.File {
		m := slideFilePattern.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slideEntry{number: n, name: file.Name})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].number < slides[j].number })

	pages := make([]driven.Page, 0, len(slides))
	for _, slide := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := readZipFile(&reader.Reader, slide.name)
		if err != nil || data == nil {
			continue
		}

		text := slideText(data)
		if text == "" {
			continue
		}
		pages = append(pages, driven.Page{Number: slide.number, Text: text})
	}

	meta := domain.DocumentMeta{Pages: len(slides)}
	if props, ok := readCoreProps(&reader.Reader); ok {
		meta.Title = props.Title
		meta.Author = props.Author
	}

	return &driven.ParsedDocument{Pages: pages, Meta: meta}, nil
}

// slideText collects the text runs (a:t elements) of one slide,
// joining paragraphs with newlines. Token scanning avoids binding to
// the full DrawingML schema.
func slideText(data []byte) string {
	decoder := xml.NewDecoder(strings.NewReader(string(data)))

	var b strings.Builder
	var line strings.Builder
	inText := false

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(line.String()); s != "" {
					if b.Len() > 0 {
						b.WriteString("\n")
					}
					b.WriteString(s)
				}
				line.Reset()
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}

	if s := strings.TrimSpace(line.String()); s != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(s)
	}

	return b.String()
}
