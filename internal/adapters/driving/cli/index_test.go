package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
)

func TestIndexCmd_Use(t *testing.T) {
	assert.Equal(t, "index", indexCmd.Use)
}

func TestIndexCmd_HasForceFlag(t *testing.T) {
	flag := indexCmd.Flags().Lookup("force")
	require.NotNil(t, flag, "force flag should exist")
	assert.Equal(t, "f", flag.Shorthand)
}

func TestIndexCmd_RunsAndReportsSummary(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"index"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Indexing complete: 2 indexed, 0 failed of 2 files")
}

func TestIndexCmd_PassesFlagsToRun(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"index", "--force", "--retry-failed"})
	defer func() {
		rootCmd.SetArgs(nil)
		indexForce = false
		indexRetryFailed = false
	}()

	err := rootCmd.Execute()
	require.NoError(t, err)

	mock := indexerService.(*cliMockIndexer)
	assert.True(t, mock.lastOpts.Force)
	assert.True(t, mock.lastOpts.RetryFailed)
}

func TestIndexCmd_ActiveJobFailsFast(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	mock := indexerService.(*cliMockIndexer)
	mock.job = nil
	mock.err = domain.ErrJobActive

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"index"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already active")
}

func TestIndexCmd_ReportsDocumentErrors(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	mock := indexerService.(*cliMockIndexer)
	mock.job = &domain.IndexJob{
		ID:             "job-2",
		Status:         domain.JobCompleted,
		TotalFiles:     2,
		ProcessedFiles: 1,
		FailedFiles:    1,
		Errors: []domain.JobError{
			{DocumentID: "doc-2", Kind: domain.ErrorKindParse, Step: "parse", Message: "encrypted PDF"},
		},
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"index"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "failed doc-2")
	assert.Contains(t, buf.String(), "encrypted PDF")
}
