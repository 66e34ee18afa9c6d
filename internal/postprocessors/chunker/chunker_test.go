package chunker

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
)

func parsedFrom(pages ...string) *driven.ParsedDocument {
	doc := &driven.ParsedDocument{}
	for i, text := range pages {
		doc.Pages = append(doc.Pages, driven.Page{Number: i + 1, Text: text})
	}
	doc.Meta.Pages = len(pages)
	return doc
}

func TestChunker_EmptyInput(t *testing.T) {
	c := New()

	chunks, err := c.Chunk(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = c.Chunk(context.Background(), parsedFrom("", "   \n  "))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunker_NoHeadings(t *testing.T) {
	c := New()

	chunks, err := c.Chunk(context.Background(), parsedFrom("Plain text without any structure."))
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "Plain text without any structure.", chunks[0].Text)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Empty(t, chunks[0].Heading)
}

func TestChunker_HeadingSections(t *testing.T) {
	c := New()

	doc := parsedFrom(
		"# Introduction\n\nThis system indexes documents.",
		"# Usage\n\nRun the scan command first.",
		"More usage notes on the next page.",
	)

	chunks, err := c.Chunk(context.Background(), doc)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
	}
	assert.Equal(t, "Introduction", chunks[0].Heading)
	assert.Contains(t, chunks[0].Text, "[Introduction]")
	assert.Contains(t, chunks[0].Text, "indexes documents")
	assert.Equal(t, 1, chunks[0].Page)

	assert.Equal(t, "Usage", chunks[1].Heading)
	assert.Contains(t, chunks[1].Text, "[Usage]")
	assert.Contains(t, chunks[1].Text, "More usage notes")
	assert.Equal(t, 2, chunks[1].Page)
}

func TestChunker_PreambleBeforeFirstHeading(t *testing.T) {
	c := New()

	doc := parsedFrom("Leading summary paragraph.\n\n# Details\n\nThe details follow.")
	chunks, err := c.Chunk(context.Background(), doc)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Equal(t, "Leading summary paragraph.", chunks[0].Text)
	assert.Empty(t, chunks[0].Heading)
	assert.Equal(t, "Details", chunks[1].Heading)
}

func TestChunker_OversizedSectionSplits(t *testing.T) {
	c := New(WithChunkSize(120), WithOverlap(20))

	paras := make([]string, 6)
	for i := range paras {
		paras[i] = strings.Repeat("word ", 15)
	}
	doc := parsedFrom("# Long Section\n\n" + strings.Join(paras, "\n\n"))

	chunks, err := c.Chunk(context.Background(), doc)
	require.NoError(t, err)

	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, "Long Section", chunk.Heading)
		assert.True(t, strings.HasPrefix(chunk.Text, "[Long Section] "), "chunk %d missing heading prefix", i)
	}
}

func TestChunker_LongParagraphSentenceSplit(t *testing.T) {
	c := New(WithChunkSize(100), WithOverlap(0), WithHeadingPrefix(false))

	sentence := "This sentence pads the paragraph out. "
	doc := parsedFrom(strings.Repeat(sentence, 10))

	chunks, err := c.Chunk(context.Background(), doc)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	// Splits land on sentence boundaries, not mid-word.
	for _, chunk := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(strings.TrimSpace(chunk.Text), "."), "chunk %q should end at a sentence", chunk.Text)
	}
}

func TestChunker_MultiByteTextSplitsOnRuneBoundaries(t *testing.T) {
	c := New(WithChunkSize(50), WithOverlap(10), WithHeadingPrefix(false))

	// Continuous CJK text with no sentence separators forces the raw
	// window fallback, where every cut point is mid-text.
	doc := parsedFrom(strings.Repeat("知識庫系統索引本地文件", 40))

	chunks, err := c.Chunk(context.Background(), doc)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk.Text), "chunk %d is not valid UTF-8: %q", i, chunk.Text)
		assert.NotEmpty(t, chunk.Text)
	}
}

func TestChunker_MultiByteOverlapStaysValid(t *testing.T) {
	c := New(WithChunkSize(60), WithOverlap(7), WithHeadingPrefix(false))

	// An overlap that is not a multiple of the rune width exercises
	// the rewind side of the window.
	doc := parsedFrom(strings.Repeat("向量檢索與語意搜尋", 30))

	chunks, err := c.Chunk(context.Background(), doc)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk.Text), "chunk %d is not valid UTF-8: %q", i, chunk.Text)
	}
}

func TestChunker_ChapterHeadings(t *testing.T) {
	c := New()

	doc := parsedFrom("Chapter 1: Overview\n\nThe overview text.\n\nChapter 2: Setup\n\nThe setup text.")
	chunks, err := c.Chunk(context.Background(), doc)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Equal(t, "Chapter 1: Overview", chunks[0].Heading)
	assert.Equal(t, "Chapter 2: Setup", chunks[1].Heading)
}

func TestChunker_HeadingPrefixDisabled(t *testing.T) {
	c := New(WithHeadingPrefix(false))

	doc := parsedFrom("# Title\n\nBody text.")
	chunks, err := c.Chunk(context.Background(), doc)
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, "Body text.", chunks[0].Text)
	assert.Equal(t, "Title", chunks[0].Heading)
}
