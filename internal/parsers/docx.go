package parsers

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
)

// Ensure DOCXParser implements the interface.
var _ driven.Parser = (*DOCXParser)(nil)

// DOCXParser extracts paragraph text from Word documents.
// DOCX has no page concept at the XML level; the whole document is a
// single page.
type DOCXParser struct{}

// documentXML mirrors the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
}

type docxText struct {
	Content string `xml:",chardata"`
}

// corePropsXML mirrors docProps/core.xml.
type corePropsXML struct {
	Title  string `xml:"title"`
	Author string `xml:"creator"`
}

// Parse opens the DOCX as a ZIP archive and extracts its text.
func (p *DOCXParser) Parse(_ context.Context, path string) (*driven.ParsedDocument, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer reader.Close()

	content, err := docxDocumentText(&reader.Reader)
	if err != nil {
		return nil, err
	}

	meta := domain.DocumentMeta{Pages: 1}
	if props, ok := readCoreProps(&reader.Reader); ok {
		meta.Title = props.Title
		meta.Author = props.Author
	}

	doc := &driven.ParsedDocument{Meta: meta}
	if content != "" {
		doc.Pages = []driven.Page{{Number: 1, Text: content}}
	}
	return doc, nil
}

// docxDocumentText extracts paragraph text from word/document.xml.
func docxDocumentText(reader *zip.Reader) (string, error) {
	data, err := readZipFile(reader, "word/document.xml")
	if err != nil {
		return "", err
	}
	if data == nil {
		return "", fmt.Errorf("open docx: %w", domain.ErrInvalidInput)
	}

	var doc documentXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("parse document.xml: %w", err)
	}

	var b strings.Builder
	for _, para := range doc.Body.Paragraphs {
		var line strings.Builder
		for _, run := range para.Runs {
			for _, t := range run.Text {
				line.WriteString(t.Content)
			}
		}
		if s := strings.TrimSpace(line.String()); s != "" {
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(s)
		}
	}
	return b.String(), nil
}

// readCoreProps reads title/author from docProps/core.xml, when present.
func readCoreProps(reader *zip.Reader) (corePropsXML, bool) {
	var props corePropsXML

	data, err := readZipFile(reader, "docProps/core.xml")
	if err != nil || data == nil {
		return props, false
	}
	if err := xml.Unmarshal(data, &props); err != nil {
		return props, false
	}
	props.Title = strings.TrimSpace(props.Title)
	props.Author = strings.TrimSpace(props.Author)
	return props, true
}

// readZipFile returns the named archive entry, or nil when absent.
func readZipFile(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, nil
}
