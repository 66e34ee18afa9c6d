// Package memory provides in-memory store implementations used by
// tests and ephemeral runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	byPath    map[string]string
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		byPath:    make(map[string]string),
	}
}

// Save stores or updates a document keyed by filepath. Re-saving an
// existing path refreshes size and metadata but preserves status.
func (s *DocumentStore) Save(_ context.Context, doc *domain.Document) error {
	if doc.ID == "" || doc.Filepath == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *doc
	if copied.Status == "" {
		copied.Status = domain.StatusPending
	}
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}

	if existingID, ok := s.byPath[doc.Filepath]; ok {
		existing := s.documents[existingID]
		existing.Filename = copied.Filename
		existing.Folder = copied.Folder
		existing.Type = copied.Type
		existing.SizeBytes = copied.SizeBytes
		existing.Metadata = copied.Metadata
		s.documents[existingID] = existing
		return nil
	}

	copied.Tags = append([]string(nil), copied.Tags...)
	s.documents[copied.ID] = copied
	s.byPath[copied.Filepath] = copied.ID
	return nil
}

// Get retrieves a document by ID.
func (s *DocumentStore) Get(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// GetByPath retrieves a document by filepath.
func (s *DocumentStore) GetByPath(_ context.Context, path string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPath[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc := s.documents[id]
	return &doc, nil
}

// List returns documents matching the filter and the total match count.
func (s *DocumentStore) List(_ context.Context, filter driven.DocumentFilter) ([]domain.Document, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.Document
	for _, doc := range s.documents {
		if filter.Folder != "" && doc.Folder != filter.Folder {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		if filter.Type != "" && doc.Type != filter.Type {
			continue
		}
		if filter.Tag != "" && !hasTag(doc.Tags, filter.Tag) {
			continue
		}
		matched = append(matched, doc)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].Filepath < matched[j].Filepath })

	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	return matched, total, nil
}

// UpdateStatus sets the lifecycle status.
func (s *DocumentStore) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = status
	s.documents[id] = doc
	return nil
}

// MarkIndexed records a successful index.
func (s *DocumentStore) MarkIndexed(_ context.Context, id string, chunks int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	at = at.UTC()
	doc.Status = domain.StatusIndexed
	doc.ChunksCount = chunks
	doc.IndexedAt = &at
	s.documents[id] = doc
	return nil
}

// SetTags replaces the document's tag set.
func (s *DocumentStore) SetTags(_ context.Context, id string, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}

	var cleaned []string
	seen := make(map[string]bool)
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		cleaned = append(cleaned, tag)
	}
	sort.Strings(cleaned)

	doc.Tags = cleaned
	s.documents[id] = doc
	return nil
}

// ListTags returns all tags with usage counts.
func (s *DocumentStore) ListTags(_ context.Context) ([]driven.TagCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, doc := range s.documents {
		for _, tag := range doc.Tags {
			counts[tag]++
		}
	}

	var tags []driven.TagCount
	for tag, count := range counts {
		tags = append(tags, driven.TagCount{Tag: tag, Count: count})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Tag < tags[j].Tag
	})
	return tags, nil
}

// Folders returns per-folder document statistics.
func (s *DocumentStore) Folders(_ context.Context) ([]driven.FolderStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]*driven.FolderStat)
	for _, doc := range s.documents {
		stat, ok := stats[doc.Folder]
		if !ok {
			stat = &driven.FolderStat{Name: doc.Folder}
			stats[doc.Folder] = stat
		}
		stat.Count++
		if doc.Status == domain.StatusIndexed {
			stat.Indexed++
		}
	}

	var folders []driven.FolderStat
	for _, stat := range stats {
		folders = append(folders, *stat)
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
	return folders, nil
}

// CountByStatus returns document counts per lifecycle state.
func (s *DocumentStore) CountByStatus(_ context.Context) (map[domain.DocumentStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.DocumentStatus]int)
	for _, doc := range s.documents {
		counts[doc.Status]++
	}
	return counts, nil
}

// Delete removes a document record.
func (s *DocumentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.documents[id]; ok {
		delete(s.byPath, doc.Filepath)
		delete(s.documents, id)
	}
	return nil
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}
