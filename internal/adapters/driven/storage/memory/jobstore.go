package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
)

// Ensure JobStore implements the interface.
var _ driven.JobStore = (*JobStore)(nil)

// JobStore is an in-memory implementation of driven.JobStore.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]domain.IndexJob

	// order preserves insertion order for Latest.
	order []string
}

// NewJobStore creates a new in-memory job store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]domain.IndexJob)}
}

// Begin resumes the most recent non-terminal job or creates the given
// one with status processing.
func (s *JobStore) Begin(_ context.Context, job domain.IndexJob) (*domain.IndexJob, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.order) - 1; i >= 0; i-- {
		existing := s.jobs[s.order[i]]
		if !existing.Status.Terminal() {
			existing.Status = domain.JobProcessing
			s.jobs[existing.ID] = existing
			return &existing, true, nil
		}
	}

	job.Status = domain.JobProcessing
	if job.StartedAt.IsZero() {
		job.StartedAt = time.Now().UTC()
	}
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	return &job, false, nil
}

// Update writes the job record.
func (s *JobStore) Update(_ context.Context, job *domain.IndexJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return domain.ErrNotFound
	}
	s.jobs[job.ID] = *job
	return nil
}

// Get retrieves a job by ID.
func (s *JobStore) Get(_ context.Context, id string) (*domain.IndexJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

// Latest returns the most recently started job.
func (s *JobStore) Latest(_ context.Context) (*domain.IndexJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return nil, domain.ErrNotFound
	}
	job := s.jobs[s.order[len(s.order)-1]]
	return &job, nil
}
