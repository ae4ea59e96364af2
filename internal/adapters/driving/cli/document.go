package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hierag/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage indexed documents",
	Long:  `List, inspect or delete indexed documents and rebuild their closure tables.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentShowCmd = &cobra.Command{
	Use:   "show [doc-id]",
	Short: "Show document info and index statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentShow,
}

var documentTreeCmd = &cobra.Command{
	Use:   "tree [doc-id]",
	Short: "Print the chunk tree of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentTree,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document with its chunks and embeddings",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var documentClosureCmd = &cobra.Command{
	Use:   "closure [doc-id]",
	Short: "Rebuild the closure table of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentClosure,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentShowCmd)
	documentCmd.AddCommand(documentTreeCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentClosureCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return fmt.Errorf("document: %w", errNotConfigured)
	}

	docs, err := documentService.List(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	st := newStyles(cmd.OutOrStdout())
	for i := range docs {
		d := &docs[i]
		cmd.Printf("  %s\n", st.Path.Render(string(d.ID)))
		cmd.Printf("    Title:  %s\n", d.Title)
		cmd.Printf("    Source: %s\n", d.SourceFile)
		cmd.Printf("    Chunks: %d\n", d.ChunkCount)
		if d.Category != "" {
			cmd.Printf("    Category: %s\n", d.Category)
		}
		cmd.Println()
	}
	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentShow(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return fmt.Errorf("document: %w", errNotConfigured)
	}

	stats, err := documentService.Stats(commandContext(cmd), domain.DocumentID(args[0]))
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	d := &stats.Document
	st := newStyles(cmd.OutOrStdout())

	cmd.Printf("Document: %s\n\n", st.Title.Render(string(d.ID)))
	cmd.Printf("  Title:      %s\n", d.Title)
	cmd.Printf("  Source:     %s\n", d.SourceFile)
	if d.Category != "" {
		cmd.Printf("  Category:   %s\n", d.Category)
	}
	if d.Version != "" {
		cmd.Printf("  Version:    %s\n", d.Version)
	}
	if d.EffectiveDate != nil {
		cmd.Printf("  Effective:  %s\n", d.EffectiveDate.Format("2006-01-02"))
	}
	cmd.Printf("  Characters: %d\n", d.TotalChars)
	cmd.Printf("  Created:    %s\n", d.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Updated:    %s\n", d.UpdatedAt.Format("2006-01-02 15:04:05"))

	cmd.Println("\n  Chunks:")
	cmd.Printf("    total:     %d\n", d.ChunkCount)
	cmd.Printf("    max depth: %d\n", stats.MaxDepth)
	for _, t := range []domain.ChunkType{
		domain.ChunkTypeDocument, domain.ChunkTypeChapter, domain.ChunkTypeArticle,
		domain.ChunkTypeSection, domain.ChunkTypeParagraph, domain.ChunkTypeDetail,
	} {
		if n := stats.ChunksByType[t]; n > 0 {
			cmd.Printf("    %-10s %d\n", t.String()+":", n)
		}
	}

	cmd.Println("\n  Index:")
	cmd.Printf("    closure rows:       %d\n", stats.ClosureRows)
	cmd.Printf("    summary embeddings: %d/%d\n", stats.SummaryEmbeddings, stats.ExpectedSummaryEmbeddings())
	cmd.Printf("    detail embeddings:  %d/%d\n", stats.DetailEmbeddings, stats.ExpectedDetailEmbeddings())
	if stats.IsComplete() {
		cmd.Printf("    status:             %s\n", st.Success.Render("complete"))
	} else {
		cmd.Printf("    status:             %s (re-index with --force)\n", st.Warning.Render("incomplete"))
	}

	if len(d.Metadata) > 0 {
		keys := make([]string, 0, len(d.Metadata))
		for k := range d.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		cmd.Println("\n  Metadata:")
		for _, k := range keys {
			cmd.Printf("    %s: %s\n", k, d.Metadata[k])
		}
	}
	return nil
}

func runDocumentTree(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return fmt.Errorf("document: %w", errNotConfigured)
	}

	chunks, err := documentService.Chunks(commandContext(cmd), domain.DocumentID(args[0]))
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}

	st := newStyles(cmd.OutOrStdout())
	for i := range chunks {
		c := &chunks[i]
		preview := strings.Join(strings.Fields(c.Content), " ")
		if domain.RuneCount(preview) > 40 {
			preview = domain.TruncateRunes(preview, 40) + domain.Ellipsis
		}
		cmd.Printf("%s%s %s %s\n",
			strings.Repeat("  ", c.Depth),
			st.Path.Render(domain.DisplayTitle(c)),
			st.Muted.Render(fmt.Sprintf("[%s/%s, %d chars]", c.Type, c.Level, c.CharCount)),
			preview)
	}
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return fmt.Errorf("document: %w", errNotConfigured)
	}

	docID := domain.DocumentID(args[0])
	if err := documentService.Delete(commandContext(cmd), docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s deleted.\n", docID)
	return nil
}

func runDocumentClosure(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return fmt.Errorf("document: %w", errNotConfigured)
	}

	docID := domain.DocumentID(args[0])
	rows, err := documentService.RebuildClosure(commandContext(cmd), docID)
	if err != nil {
		return fmt.Errorf("failed to rebuild closure: %w", err)
	}

	cmd.Printf("Closure table of %s rebuilt: %d rows.\n", docID, rows)
	return nil
}
