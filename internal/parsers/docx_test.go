package parsers

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeZip builds an OOXML-style archive with the given entries.
func writeZip(t *testing.T, name string, entries map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)

	w := zip.NewWriter(f)
	for entryName, content := range entries {
		entry, err := w.Create(entryName)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

const docxDocumentXML = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>  </w:t></w:r></w:p>
  </w:body>
</w:document>`

const docxCoreXML = `<?xml version="1.0"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
  xmlns:dc="http://purl.org/dc/elements/1.1/">
  <dc:title>Quarterly Report</dc:title>
  <dc:creator>Jane Doe</dc:creator>
</cp:coreProperties>`

func TestDOCXParser_Parse(t *testing.T) {
	path := writeZip(t, "report.docx", map[string]string{
		"word/document.xml": docxDocumentXML,
		"docProps/core.xml": docxCoreXML,
	})

	parsed, err := (&DOCXParser{}).Parse(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, parsed.Pages, 1)
	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", parsed.Pages[0].Text)
	assert.Equal(t, "Quarterly Report", parsed.Meta.Title)
	assert.Equal(t, "Jane Doe", parsed.Meta.Author)
}

func TestDOCXParser_MissingDocumentXML(t *testing.T) {
	path := writeZip(t, "empty.docx", map[string]string{
		"docProps/core.xml": docxCoreXML,
	})

	_, err := (&DOCXParser{}).Parse(context.Background(), path)
	assert.Error(t, err)
}

func TestDOCXParser_NotAZip(t *testing.T) {
	path := writeTempFile(t, "broken.docx", "not a zip archive")

	_, err := (&DOCXParser{}).Parse(context.Background(), path)
	assert.Error(t, err)
}
