package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var scanWatch bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the documents directory into the ledger",
	Long: `Walks the configured scan directory and registers every supported
file (PDF, PPTX, Markdown, DOCX) in the document ledger. New files are
added as pending; files seen before keep their indexing status.
Files deleted from disk are never removed from the ledger.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVarP(&scanWatch, "watch", "w", false, "keep watching the directory and re-scan on changes")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}
	if scanService == nil {
		return errors.New("scan service not configured")
	}

	result, err := scanService.Scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	cmd.Printf("Scanned %s: %d new, %d known, %d total\n",
		appSettings.ScanDir, result.NewFiles, result.UpdatedFiles, result.TotalFiles)

	if !scanWatch {
		return nil
	}

	cmd.Println("Watching for changes (Ctrl-C to stop)...")
	if err := scanService.Watch(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
