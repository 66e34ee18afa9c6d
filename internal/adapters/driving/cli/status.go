package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collection and indexing status",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	stats, err := libraryService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading status failed: %w", err)
	}

	if statusJSON {
		return printJSON(cmd, stats)
	}

	cmd.Printf("Documents: %d total, %d chunks indexed\n", stats.Total, stats.ChunkCount)
	for _, status := range []domain.DocumentStatus{
		domain.StatusPending, domain.StatusProcessing, domain.StatusIndexed, domain.StatusFailed,
	} {
		if count := stats.ByStatus[status]; count > 0 {
			cmd.Printf("  %-10s %d\n", status, count)
		}
	}

	if stats.LatestJob == nil {
		cmd.Println("No indexing job has run yet.")
		return nil
	}

	job := stats.LatestJob
	cmd.Printf("Latest job %s: %s, %d/%d files", job.ID, job.Status,
		job.ProcessedFiles+job.FailedFiles, job.TotalFiles)
	if job.FailedFiles > 0 {
		cmd.Printf(" (%d failed)", job.FailedFiles)
	}
	cmd.Println()

	if job.Status == domain.JobProcessing && indexerService != nil {
		progress, err := indexerService.Progress(cmd.Context())
		if err == nil && progress.CurrentFile != "" {
			cmd.Printf("  currently processing: %s (%d%%)\n", progress.CurrentFile, progress.ProgressPercent)
		}
	}
	return nil
}
