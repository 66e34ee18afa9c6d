// Package cli provides the cobra command tree for the khub binary.
// Commands share one set of services wired lazily on first use, so
// cheap commands like version never touch the stores.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/khub-cli/internal/adapters/driven/ai"
	"github.com/custodia-labs/khub-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/khub-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/khub-cli/internal/adapters/driven/vector/sqlitevec"
	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driving"
	"github.com/custodia-labs/khub-cli/internal/core/services"
	"github.com/custodia-labs/khub-cli/internal/logger"
	"github.com/custodia-labs/khub-cli/internal/parsers"
	"github.com/custodia-labs/khub-cli/internal/postprocessors/chunker"
)

var version = "0.3.0"

var (
	configDir   string
	dataDir     string
	verboseFlag bool
)

// Shared service instances, wired by initServices. Tests replace
// these directly and mark servicesReady.
var (
	appSettings domain.Settings

	documentStore driven.DocumentStore
	jobStore      driven.JobStore
	vectorStore   driven.VectorStore

	searchService   driving.SearchService
	answerService   driving.AnswerService
	indexerService  driving.Indexer
	scanService     driving.ScanService
	libraryService  driving.LibraryService
	settingsService driving.SettingsService

	servicesReady bool
	closers       []io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "khub",
	Short: "Local knowledge hub: index documents, search and ask",
	Long: `khub indexes local documents (PDF, PPTX, Markdown, DOCX) into a
vector collection and serves semantic search and question answering
over them, from the terminal, a REST API, or an MCP server.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.khub)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.khub/data)")
}

// Execute runs the root command. It installs signal handling so a
// Ctrl-C pauses indexing runs and stops servers gracefully.
func Execute() error {
	defer closeServices()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

// initServices wires the stores, providers and core services. Safe to
// call from every command; it only builds once.
func initServices() error {
	if servicesReady {
		return nil
	}

	settingsStore, err := file.NewSettingsStore(configDir)
	if err != nil {
		return fmt.Errorf("opening config store: %w", err)
	}
	settings, err := settingsStore.Load()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	settings.Normalise()
	appSettings = settings
	settingsService = services.NewSettingsService(settingsStore)

	ledger, err := sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	closers = append(closers, ledger)
	documentStore = ledger.DocumentStore()
	jobStore = ledger.JobStore()

	vecPath, err := vectorDBPath()
	if err != nil {
		return err
	}
	vectors, err := sqlitevec.Open(vecPath, settings.Embedding.Dimensions)
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}
	closers = append(closers, vectors)
	vectorStore = vectors

	// Providers are optional: commands that need a missing one fail
	// with the matching typed error instead of at startup.
	embedder, err := ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		logger.Warn("embedding provider not available: %v", err)
		embedder = nil
	}
	llm, err := ai.CreateLLMService(&settings.LLM)
	if err != nil {
		logger.Warn("LLM provider not available: %v", err)
		llm = nil
	}

	chunk := chunker.New(
		chunker.WithChunkSize(settings.ChunkSize),
		chunker.WithOverlap(settings.ChunkOverlap),
	)
	registry := parsers.NewRegistry()

	indexerService = services.NewJobEngine(documentStore, jobStore, registry, chunk, embedder, vectorStore, settings)
	searchService = services.NewRetriever(documentStore, vectorStore, embedder, settings)
	answerService = services.NewAnswerEngine(searchService, llm)
	scanService = services.NewScanner(documentStore, settings)
	libraryService = services.NewLibraryService(documentStore, jobStore, vectorStore)

	servicesReady = true
	return nil
}

func closeServices() {
	for _, c := range closers {
		c.Close() //nolint:errcheck
	}
	closers = nil
}

// vectorDBPath resolves the vector database file inside the data
// directory, mirroring the ledger's default.
func vectorDBPath() (string, error) {
	dir := dataDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".khub", "data")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return filepath.Join(dir, "vectors.db"), nil
}
