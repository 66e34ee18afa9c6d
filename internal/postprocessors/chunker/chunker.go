// Package chunker splits parsed documents into semantically coherent,
// context-preserving chunks. Structural boundaries (headings, slide
// breaks) are split first; a size window with overlap is the fallback
// for oversized sections.
package chunker

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
)

// DefaultChunkSize is the default target chunk size in characters.
const DefaultChunkSize = 500

// DefaultOverlap is the default overlap between adjacent chunks
// produced by an oversized split.
const DefaultOverlap = 50

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// Chunker implements structural chunking.
type Chunker struct {
	chunkSize     int
	overlap       int
	headingPrefix bool
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithHeadingPrefix controls whether chunks carry their section
// heading as a leading "[heading] " prefix. Enabled by default: the
// prefix is what keeps an oversized split interpretable out of
// context.
func WithHeadingPrefix(enabled bool) Option {
	return func(c *Chunker) {
		c.headingPrefix = enabled
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize:     DefaultChunkSize,
		overlap:       DefaultOverlap,
		headingPrefix: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	return c
}

// heading is one detected structural boundary.
type heading struct {
	pos   int
	level int
	title string
	match string
}

// section is a span of text under one heading.
type section struct {
	title   string
	level   int
	pos     int
	content string
}

// Heading detection patterns: markdown plus common English and CJK
// chapter conventions.
var (
	mdHeadingPattern  = regexp.MustCompile(`(?m)^(#{1,6})[ \t]+(.+)$`)
	enHeadingPattern  = regexp.MustCompile(`(?mi)^(?:Chapter|Section|Part)[ \t]+\d+[:.]?[ \t]*(.*)$`)
	cjkChapterPattern = regexp.MustCompile(`(?m)^第[一二三四五六七八九十\d]+[章節课課][ \t]*[:：]?[ \t]*(.*)$`)
)

// Chunk splits the parsed document into ordered chunks. Output order
// is the canonical reading order and becomes the ordinal sequence.
// Empty input produces zero chunks, not an error.
func (c *Chunker) Chunk(_ context.Context, parsed *driven.ParsedDocument) ([]domain.Chunk, error) {
	if parsed == nil {
		return nil, nil
	}

	// Merge page texts, remembering where each page starts so chunks
	// can be attributed back to a page.
	var full strings.Builder
	type pageMarker struct {
		offset int
		number int
	}
	var markers []pageMarker

	for _, page := range parsed.Pages {
		text := strings.TrimSpace(page.Text)
		if text == "" {
			continue
		}
		markers = append(markers, pageMarker{offset: full.Len(), number: page.Number})
		full.WriteString(text)
		full.WriteString("\n\n")
	}

	text := full.String()
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	pageAt := func(offset int) int {
		page := 0
		for _, m := range markers {
			if m.offset <= offset {
				page = m.number
			} else {
				break
			}
		}
		return page
	}

	var chunks []domain.Chunk
	currentHeading := ""

	for _, sec := range splitByHeadings(text) {
		if sec.content == "" {
			continue
		}
		if sec.title != "" {
			currentHeading = sec.title
		}

		prefix := ""
		if c.headingPrefix && currentHeading != "" {
			prefix = "[" + currentHeading + "] "
		}

		effectiveSize := c.chunkSize - len(prefix)
		if effectiveSize < 1 {
			effectiveSize = c.chunkSize
		}

		var pieces []piece
		if len(sec.content) <= effectiveSize {
			pieces = []piece{{text: sec.content, offset: 0}}
		} else {
			pieces = splitParagraphs(sec.content, effectiveSize, c.overlap)
		}

		for _, p := range pieces {
			chunks = append(chunks, domain.Chunk{
				Index:   len(chunks),
				Text:    prefix + p.text,
				Page:    pageAt(sec.pos + p.offset),
				Heading: currentHeading,
			})
		}
	}

	return chunks, nil
}

// detectHeadings finds all structural boundaries, sorted by position.
func detectHeadings(text string) []heading {
	var found []heading
	seen := make(map[int]bool)

	for _, m := range mdHeadingPattern.FindAllStringSubmatchIndex(text, -1) {
		found = append(found, heading{
			pos:   m[0],
			level: m[3] - m[2],
			title: strings.TrimSpace(text[m[4]:m[5]]),
			match: text[m[0]:m[1]],
		})
		seen[m[0]] = true
	}

	for _, pattern := range []*regexp.Regexp{enHeadingPattern, cjkChapterPattern} {
		for _, m := range pattern.FindAllStringSubmatchIndex(text, -1) {
			if seen[m[0]] {
				continue
			}
			found = append(found, heading{
				pos:   m[0],
				level: 2,
				title: strings.TrimSpace(text[m[0]:m[1]]),
				match: text[m[0]:m[1]],
			})
			seen[m[0]] = true
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].pos < found[j].pos })
	return found
}

// splitByHeadings cuts the text into sections at heading boundaries.
// Text before the first heading becomes an untitled section; with no
// headings at all the whole document is one section.
func splitByHeadings(text string) []section {
	headings := detectHeadings(text)

	if len(headings) == 0 {
		return []section{{content: strings.TrimSpace(text)}}
	}

	var sections []section

	if headings[0].pos > 0 {
		if pre := strings.TrimSpace(text[:headings[0].pos]); pre != "" {
			sections = append(sections, section{content: pre})
		}
	}

	for i, h := range headings {
		end := len(text)
		if i+1 < len(headings) {
			end = headings[i+1].pos
		}
		body := strings.TrimSpace(strings.TrimPrefix(text[h.pos:end], h.match))
		sections = append(sections, section{
			title:   h.title,
			level:   h.level,
			pos:     h.pos,
			content: body,
		})
	}

	return sections
}

// piece is one fragment of an oversized section, with its offset
// within the section for page attribution.
type piece struct {
	text   string
	offset int
}

// splitParagraphs windows an oversized section at paragraph
// boundaries, carrying the last paragraph forward as overlap when it
// fits. Paragraphs larger than the window fall through to sentence
// splitting.
func splitParagraphs(content string, size, overlap int) []piece {
	paragraphs := strings.Split(content, "\n\n")

	var pieces []piece
	var current []string
	currentLen := 0
	offset := 0
	flushOffset := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		pieces = append(pieces, piece{text: strings.Join(current, "\n\n"), offset: flushOffset})
		current = nil
		currentLen = 0
	}

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			offset += 2
			continue
		}
		paraLen := len(para)

		switch {
		case paraLen > size:
			flush()
			for _, sub := range splitLongText(para, size, overlap) {
				pieces = append(pieces, piece{text: sub.text, offset: offset + sub.offset})
			}

		case currentLen+paraLen > size:
			prevLast := ""
			if len(current) > 0 {
				prevLast = current[len(current)-1]
			}
			flush()

			flushOffset = offset
			if overlap > 0 && prevLast != "" && len(prevLast) <= overlap {
				current = []string{prevLast, para}
				currentLen = len(prevLast) + paraLen
			} else {
				current = []string{para}
				currentLen = paraLen
			}

		default:
			if len(current) == 0 {
				flushOffset = offset
			}
			current = append(current, para)
			currentLen += paraLen
		}

		offset += paraLen + 2
	}

	flush()
	return pieces
}

// sentenceSeparators mark preferred split points for very long text,
// in priority order.
var sentenceSeparators = []string{"。", "！", "？", ". ", "! ", "? ", "\n", "；", "; "}

// splitLongText windows text that has no usable paragraph boundaries,
// preferring sentence boundaries within each window. Cut points and
// the overlap rewind are kept on rune boundaries so multi-byte text
// never splits mid-rune.
func splitLongText(text string, size, overlap int) []piece {
	var pieces []piece
	start := 0

	for start < len(text) {
		end := start + size
		if end >= len(text) {
			pieces = append(pieces, piece{text: text[start:], offset: start})
			break
		}
		end = runeStart(text, end)
		if end <= start {
			_, width := utf8.DecodeRuneInString(text[start:])
			end = start + width
		}

		best := end
		for _, sep := range sentenceSeparators {
			if pos := strings.LastIndex(text[start:end], sep); pos > 0 {
				best = start + pos + len(sep)
				break
			}
		}

		pieces = append(pieces, piece{text: text[start:best], offset: start})

		next := runeStart(text, best-overlap)
		if next <= start {
			next = best
		}
		start = next
	}

	return pieces
}

// runeStart backs pos off to the nearest rune boundary at or before it.
func runeStart(s string, pos int) int {
	for pos > 0 && !utf8.RuneStart(s[pos]) {
		pos--
	}
	return pos
}
