package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure scanning, chunking, retrieval and provider
settings. Settings live in the TOML config file under ~/.khub.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set one setting",
	Long: `Set a single setting and persist it.

Available keys:
  scan-dir            root directory the scanner enumerates
  chunk-size          target chunk size in characters
  chunk-overlap       overlap between split chunks in characters
  batch-size          documents per indexing batch
  top-k               default number of retrieval results
  score-threshold     minimum confident similarity score (0..1)
  embedding-provider  "ollama" or "openai"
  embedding-model     embedding model name
  embedding-api-key   API key for hosted embedding providers
  llm-provider        "auto", "ollama", "claude" or "openai"
  llm-model           answer-generation model name`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings failed: %w", err)
	}

	cmd.Printf("scan-dir:            %s\n", settings.ScanDir)
	cmd.Printf("recursive:           %t\n", settings.Recursive)
	cmd.Printf("chunk-size:          %d\n", settings.ChunkSize)
	cmd.Printf("chunk-overlap:       %d\n", settings.ChunkOverlap)
	cmd.Printf("batch-size:          %d\n", settings.BatchSize)
	cmd.Printf("max-file-bytes:      %d\n", settings.MaxFileBytes)
	cmd.Printf("top-k:               %d\n", settings.TopK)
	cmd.Printf("score-threshold:     %.2f\n", settings.ScoreThreshold)
	cmd.Printf("embedding-provider:  %s\n", settings.Embedding.Provider)
	cmd.Printf("embedding-model:     %s\n", settings.Embedding.Model)
	cmd.Printf("embedding-api-key:   %s\n", maskKey(settings.Embedding.APIKey))
	cmd.Printf("llm-provider:        %s\n", settings.LLM.Provider)
	cmd.Printf("llm-model:           %s\n", settings.LLM.Model)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings failed: %w", err)
	}

	if err := applySetting(&settings, args[0], args[1]); err != nil {
		return err
	}

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("saving settings failed: %w", err)
	}
	cmd.Printf("Set %s = %s\n", args[0], args[1])
	return nil
}

//nolint:gocyclo // Plain key dispatch.
func applySetting(settings *domain.Settings, key, value string) error {
	switch key {
	case "scan-dir":
		settings.ScanDir = value
	case "chunk-size":
		return setInt(&settings.ChunkSize, key, value)
	case "chunk-overlap":
		return setInt(&settings.ChunkOverlap, key, value)
	case "batch-size":
		return setInt(&settings.BatchSize, key, value)
	case "top-k":
		return setInt(&settings.TopK, key, value)
	case "score-threshold":
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %q", key, value)
		}
		settings.ScoreThreshold = parsed
	case "embedding-provider":
		settings.Embedding.Provider = value
	case "embedding-model":
		settings.Embedding.Model = value
	case "embedding-api-key":
		settings.Embedding.APIKey = value
	case "llm-provider":
		settings.LLM.Provider = value
	case "llm-model":
		settings.LLM.Model = value
	default:
		return fmt.Errorf("unknown setting: %s", key)
	}
	return nil
}

func setInt(target *int, key, value string) error {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q", key, value)
	}
	*target = parsed
	return nil
}

func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return "********"
}
