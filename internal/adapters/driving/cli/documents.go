package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
)

var (
	documentsFolder string
	documentsStatus string
	documentsLimit  int
	documentsJSON   bool
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Manage ledger documents",
	RunE:  runDocumentsList,
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents in the ledger",
	RunE:  runDocumentsList,
}

var documentsShowCmd = &cobra.Command{
	Use:   "show [document-id]",
	Short: "Show one document with its metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsShow,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [document-id]",
	Short: "Remove a document from the ledger and the vector store",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

var documentsTagCmd = &cobra.Command{
	Use:   "tag [document-id] [tags...]",
	Short: "Replace a document's tags",
	Long: `Replaces the document's tag set with the given tags. With no tags,
clears the set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDocumentsTag,
}

func init() {
	documentsListCmd.Flags().StringVar(&documentsFolder, "folder", "", "restrict to one folder")
	documentsListCmd.Flags().StringVar(&documentsStatus, "status", "", "restrict to one status (pending, processing, indexed, failed)")
	documentsListCmd.Flags().IntVarP(&documentsLimit, "limit", "n", 50, "maximum number of documents")
	documentsListCmd.Flags().BoolVar(&documentsJSON, "json", false, "output as JSON")

	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsShowCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	documentsCmd.AddCommand(documentsTagCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}
	if documentStore == nil {
		return errors.New("document store not configured")
	}

	filter := driven.DocumentFilter{
		Folder: documentsFolder,
		Status: domain.DocumentStatus(documentsStatus),
		Limit:  documentsLimit,
	}
	docs, total, err := documentStore.List(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("listing documents failed: %w", err)
	}

	if documentsJSON {
		return printJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents in the ledger. Run 'khub scan' first.")
		return nil
	}

	for i := range docs {
		doc := &docs[i]
		location := doc.Filename
		if doc.Folder != "" {
			location = doc.Folder + "/" + doc.Filename
		}
		cmd.Printf("  %s  %-10s %-5s %s", doc.ID, doc.Status, doc.Type, location)
		if len(doc.Tags) > 0 {
			cmd.Printf("  [%s]", strings.Join(doc.Tags, ", "))
		}
		cmd.Println()
	}
	if total > len(docs) {
		cmd.Printf("Showing %d of %d documents.\n", len(docs), total)
	}
	return nil
}

func runDocumentsShow(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	doc, err := libraryService.Document(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("reading document failed: %w", err)
	}
	return printJSON(cmd, doc)
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	if err := libraryService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("deleting document failed: %w", err)
	}
	cmd.Printf("Deleted document %s.\n", args[0])
	return nil
}

func runDocumentsTag(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}
	if documentStore == nil {
		return errors.New("document store not configured")
	}

	id, tags := args[0], args[1:]
	if err := documentStore.SetTags(cmd.Context(), id, tags); err != nil {
		return fmt.Errorf("setting tags failed: %w", err)
	}
	if len(tags) == 0 {
		cmd.Printf("Cleared tags on %s.\n", id)
	} else {
		cmd.Printf("Tagged %s: %s\n", id, strings.Join(tags, ", "))
	}
	return nil
}
