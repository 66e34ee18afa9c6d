package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
)

var (
	askTopK int
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question over the indexed collection",
	Long: `Retrieves the most relevant passages for the question and hands
them to the configured LLM provider for answer synthesis. Without an
LLM provider the raw passages are returned instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of context passages (default from settings)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	opts := domain.SearchOptions{TopK: askTopK}
	answer, err := answerService.Ask(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return printJSON(cmd, answer)
	}

	cmd.Println(answer.Text)
	if len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i := range answer.Sources {
			src := &answer.Sources[i]
			if src.Page > 0 {
				cmd.Printf("  [%d] %s (page %d, score %.2f)\n", i+1, src.Filename, src.Page, src.Score)
			} else {
				cmd.Printf("  [%d] %s (score %.2f)\n", i+1, src.Filename, src.Score)
			}
		}
	}
	if answer.Model != "" {
		cmd.Printf("\nModel: %s (%dms)\n", answer.Model, answer.ElapsedMS)
	}
	return nil
}
