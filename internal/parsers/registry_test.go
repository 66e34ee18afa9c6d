package parsers

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
)

func TestRegistry_UnsupportedType(t *testing.T) {
	r := NewRegistry()
	_, err := r.Parse(context.Background(), "/tmp/file.xyz", domain.FileType("xyz"))
	if !errors.Is(err, domain.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestRegistry_Dispatch(t *testing.T) {
	r := NewRegistry()
	path := writeTempFile(t, "note.md", "# Hello")

	parsed, err := r.Parse(context.Background(), path, domain.FileTypeMarkdown)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Meta.Title != "Hello" {
		t.Errorf("Title = %q, want Hello", parsed.Meta.Title)
	}
}
