package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
)

func TestStatusCmd_Use(t *testing.T) {
	assert.Equal(t, "status", statusCmd.Use)
}

func TestStatusCmd_ReportsCounts(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Documents: 3 total, 12 chunks indexed")
	assert.Contains(t, buf.String(), "No indexing job has run yet.")
}

func TestStatusCmd_ReportsLatestJob(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	mock := libraryService.(*cliMockLibrary)
	mock.stats.LatestJob = &domain.IndexJob{
		ID:             "job-1",
		Status:         domain.JobCompleted,
		TotalFiles:     3,
		ProcessedFiles: 3,
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Latest job job-1: completed, 3/3 files")
}
