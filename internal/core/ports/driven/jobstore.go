package driven

import (
	"context"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
)

// JobStore persists index job records.
type JobStore interface {
	// Begin atomically resumes the most recent non-terminal job or,
	// when none exists, creates the given one with status processing.
	// The check-and-set happens in a single transaction so two
	// concurrent starts cannot both create a job. The returned bool
	// is true when an existing job was resumed.
	Begin(ctx context.Context, job domain.IndexJob) (*domain.IndexJob, bool, error)

	// Update writes the job's counters, status, error log and
	// finished timestamp.
	Update(ctx context.Context, job *domain.IndexJob) error

	// Get retrieves a job by ID. Returns domain.ErrNotFound when
	// absent.
	Get(ctx context.Context, id string) (*domain.IndexJob, error)

	// Latest returns the most recently started job, or
	// domain.ErrNotFound when no job has ever run.
	Latest(ctx context.Context) (*domain.IndexJob, error)
}
