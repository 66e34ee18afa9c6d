package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
)

var (
	searchTopK      int
	searchThreshold float64
	searchFolders   []string
	searchTypes     []string
	searchTags      []string
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Performs semantic search across the indexed collection. Results
below the score threshold are still shown when nothing confident
matched, marked as low confidence.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "maximum number of results (default from settings)")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "minimum confident score (default from settings)")
	searchCmd.Flags().StringSliceVar(&searchFolders, "folder", nil, "restrict to folders")
	searchCmd.Flags().StringSliceVar(&searchTypes, "type", nil, "restrict to file types (pdf, pptx, md, docx)")
	searchCmd.Flags().StringSliceVar(&searchTags, "tag", nil, "restrict to documents with any of these tags")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}
	if searchService == nil {
		return errors.New("search service not configured")
	}

	opts := domain.SearchOptions{
		TopK:      searchTopK,
		Threshold: searchThreshold,
		Filter: domain.SearchFilter{
			Folders: searchFolders,
			Types:   fileTypes(searchTypes),
			Tags:    searchTags,
		},
	}

	resp, err := searchService.Search(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(cmd, resp)
	}
	printSearchResults(cmd, resp)
	return nil
}

func printSearchResults(cmd *cobra.Command, resp *domain.SearchResponse) {
	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return
	}

	if resp.LowConfidence {
		cmd.Println("No confident matches; showing closest results.")
	}
	cmd.Println("Results:")
	cmd.Println()
	for i := range resp.Results {
		r := &resp.Results[i]
		location := r.Filename
		if r.Folder != "" {
			location = r.Folder + "/" + r.Filename
		}
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, location, r.Score)
		if r.Page > 0 {
			cmd.Printf("      Page %d, chunk %d\n", r.Page, r.ChunkIndex)
		}
		cmd.Printf("      %s\n", snippet(r.Text, 160))
		cmd.Println()
	}
}

func fileTypes(names []string) []domain.FileType {
	if len(names) == 0 {
		return nil
	}
	types := make([]domain.FileType, len(names))
	for i, name := range names {
		types[i] = domain.FileType(name)
	}
	return types
}

// snippet flattens and caps a chunk for single-line display.
func snippet(text string, limit int) string {
	flat := make([]rune, 0, limit)
	for _, r := range text {
		if r == '\n' || r == '\t' {
			r = ' '
		}
		flat = append(flat, r)
		if len(flat) >= limit {
			return string(flat) + "..."
		}
	}
	return string(flat)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
