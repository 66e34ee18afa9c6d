package parsers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slideXML(lines ...string) string {
	body := ""
	for _, line := range lines {
		body += `<a:p><a:r><a:t>` + line + `</a:t></a:r></a:p>`
	}
	return `<?xml version="1.0"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
  xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <p:cSld><p:spTree>` + body + `</p:spTree></p:cSld>
</p:sld>`
}

func TestPPTXParser_Parse(t *testing.T) {
	path := writeZip(t, "deck.pptx", map[string]string{
		"ppt/slides/slide1.xml":  slideXML("Title slide", "Subtitle"),
		"ppt/slides/slide2.xml":  slideXML("Agenda"),
		"ppt/slides/slide10.xml": slideXML("Closing"),
	})

	parsed, err := (&PPTXParser{}).Parse(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, parsed.Pages, 3)
	assert.Equal(t, 1, parsed.Pages[0].Number)
	assert.Equal(t, "Title slide\nSubtitle", parsed.Pages[0].Text)
	assert.Equal(t, 2, parsed.Pages[1].Number)
	// Numeric ordering, not lexicographic: slide10 comes last.
	assert.Equal(t, 10, parsed.Pages[2].Number)
	assert.Equal(t, "Closing", parsed.Pages[2].Text)
	assert.Equal(t, 3, parsed.Meta.Pages)
}

func TestPPTXParser_EmptySlidesSkipped(t *testing.T) {
	path := writeZip(t, "deck.pptx", map[string]string{
		"ppt/slides/slide1.xml": slideXML(),
		"ppt/slides/slide2.xml": slideXML("Only content"),
	})

	parsed, err := (&PPTXParser{}).Parse(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, parsed.Pages, 1)
	assert.Equal(t, 2, parsed.Pages[0].Number)
}
