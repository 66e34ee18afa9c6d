package domain

import (
	"crypto/md5" //nolint:gosec // Identifier derivation, not a security context.
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"
)

// FileType identifies a supported document format.
type FileType string

// Supported file types.
const (
	FileTypePDF      FileType = "pdf"
	FileTypePPTX     FileType = "pptx"
	FileTypeMarkdown FileType = "md"
	FileTypeDOCX     FileType = "docx"
)

// FileTypeFromPath maps a file extension to a FileType.
// Returns "" for unsupported extensions.
func FileTypeFromPath(path string) FileType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FileTypePDF
	case ".pptx":
		return FileTypePPTX
	case ".md":
		return FileTypeMarkdown
	case ".docx":
		return FileTypeDOCX
	default:
		return ""
	}
}

// DocumentStatus is the lifecycle state of a document in the ledger.
type DocumentStatus string

// Document lifecycle states.
const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusIndexed    DocumentStatus = "indexed"
	StatusFailed     DocumentStatus = "failed"
)

// CanTransition reports whether moving from s to next follows the
// document state machine: pending → processing → {indexed, failed}.
// Failed and indexed documents may return to pending for a retry or
// forced re-index.
func (s DocumentStatus) CanTransition(next DocumentStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusIndexed || next == StatusFailed
	case StatusIndexed, StatusFailed:
		return next == StatusPending
	default:
		return false
	}
}

// DocumentMeta holds extensible metadata extracted while parsing.
type DocumentMeta struct {
	// Pages is the page or slide count, when the format has one.
	Pages int `json:"pages,omitempty" toml:"pages,omitempty"`

	// Title is the document title from embedded properties.
	Title string `json:"title,omitempty" toml:"title,omitempty"`

	// Author is the document author from embedded properties.
	Author string `json:"author,omitempty" toml:"author,omitempty"`
}

// Document is one ledger record for a physical file.
// The filepath is unique: a re-scan updates the existing record,
// it never duplicates.
type Document struct {
	// ID is derived from the filepath and stable across re-scans.
	ID string

	// Filename is the base name of the file.
	Filename string

	// Filepath is the absolute path. Unique within the ledger.
	Filepath string

	// Folder is the logical folder relative to the scan root.
	// Empty for files at the root.
	Folder string

	// Type is the document format.
	Type FileType

	// SizeBytes is the file size recorded at scan time.
	SizeBytes int64

	// Status is the lifecycle state. Mutated only by the job engine
	// (processing/indexed/failed) and the scanner (pending).
	Status DocumentStatus

	// ChunksCount is the number of chunk records the vector store
	// holds for this document. Invariant: status=indexed implies
	// ChunksCount matches the store.
	ChunksCount int

	// Tags are user-assigned labels.
	Tags []string

	// Metadata carries parse-time metadata (pages, title, author).
	Metadata DocumentMeta

	// CreatedAt is when the document first entered the ledger.
	CreatedAt time.Time

	// IndexedAt is when the document was last successfully indexed.
	// Nil while pending or failed.
	IndexedAt *time.Time
}

// NewDocumentID derives a stable document identifier from a filepath.
func NewDocumentID(path string) string {
	sum := md5.Sum([]byte(path)) //nolint:gosec // Not used for security.
	return hex.EncodeToString(sum[:])[:12]
}
