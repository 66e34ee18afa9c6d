package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/khub-cli/internal/adapters/driving/api"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Serves the knowledge hub over HTTP: search, chat, indexing control,
document management and settings. The server runs until interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "listen address")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "listen port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}

	server := api.NewServer(api.Config{Host: serveHost, Port: servePort}, api.Deps{
		Search:   searchService,
		Answer:   answerService,
		Indexer:  indexerService,
		Scanner:  scanService,
		Library:  libraryService,
		Settings: settingsService,
		DocStore: documentStore,
	})

	cmd.Printf("REST API listening on http://%s:%d\n", serveHost, servePort)
	return server.Start(cmd.Context())
}
