package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driving"
)

var (
	indexForce       bool
	indexRetryFailed bool
	indexDocuments   []string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index pending documents",
	Long: `Runs the indexing pipeline over pending documents: parse, chunk,
embed and persist to the vector store. The run is resumable; an
interrupted job picks up where it left off on the next invocation.
Only one run may be active at a time.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVarP(&indexForce, "force", "f", false, "re-index documents that are already indexed")
	indexCmd.Flags().BoolVar(&indexRetryFailed, "retry-failed", false, "reset failed documents to pending before the run")
	indexCmd.Flags().StringSliceVar(&indexDocuments, "document", nil, "restrict the run to specific document IDs")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}
	if indexerService == nil {
		return errors.New("indexer not configured")
	}

	opts := driving.RunOptions{
		DocumentIDs: indexDocuments,
		Force:       indexForce,
		RetryFailed: indexRetryFailed,
	}

	job, err := indexerService.Run(cmd.Context(), opts)
	if errors.Is(err, domain.ErrJobActive) {
		return errors.New("an indexing run is already active")
	}
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	printJob(cmd, job)
	return nil
}

func printJob(cmd *cobra.Command, job *domain.IndexJob) {
	switch job.Status {
	case domain.JobCompleted:
		cmd.Printf("Indexing complete: %d indexed, %d failed of %d files (job %s)\n",
			job.ProcessedFiles, job.FailedFiles, job.TotalFiles, job.ID)
	case domain.JobProcessing:
		cmd.Printf("Indexing paused at %d/%d files; run 'khub index' again to resume (job %s)\n",
			job.ProcessedFiles+job.FailedFiles, job.TotalFiles, job.ID)
	default:
		cmd.Printf("Indexing %s: %d indexed, %d failed of %d files (job %s)\n",
			job.Status, job.ProcessedFiles, job.FailedFiles, job.TotalFiles, job.ID)
	}

	for _, jobErr := range job.Errors {
		cmd.Printf("  failed %s [%s/%s]: %s\n", jobErr.DocumentID, jobErr.Kind, jobErr.Step, jobErr.Message)
	}
}
