package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/core/ports/driving"
)

var (
	queryK         int
	queryDocument  string
	queryStrategy  string
	queryMaxLength int
	queryJSON      bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Retrieve passages with their hierarchical context",
	Long: `Embeds the query, searches the vector indexes and returns each match
with its enclosing sections and a preview of its children.

Strategies:
  summary_first  search summary nodes, then descend into their details (default)
  direct         search detail nodes and attach their ancestors

Examples:
  hierag query "雇主應置備勞工工資清冊"
  hierag query -k 3 --document labour "加班費如何計算"
  hierag query --json "特別休假"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().StringVarP(&queryDocument, "document", "d", "", "restrict results to one document ID")
	queryCmd.Flags().StringVarP(&queryStrategy, "strategy", "s", "", "retrieval strategy (default from config)")
	queryCmd.Flags().IntVar(&queryMaxLength, "max-length", 0, "truncate passage content to this many characters (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output passages as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return fmt.Errorf("query: %w", errNotConfigured)
	}

	query := strings.TrimSpace(strings.Join(args, " "))
	passages, err := retrievalService.Retrieve(commandContext(cmd), query, driving.RetrieveOptions{
		K:                queryK,
		DocumentID:       domain.DocumentID(queryDocument),
		Strategy:         queryStrategy,
		ContentMaxLength: queryMaxLength,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		if passages == nil {
			passages = []domain.Passage{}
		}
		data, err := json.MarshalIndent(passages, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal passages: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(passages) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Println(st.Title.Render(fmt.Sprintf("%d results for %q", len(passages), query)))
	for i := range passages {
		p := &passages[i]
		cmd.Println()
		cmd.Printf("%d. %s %s %s\n",
			i+1,
			st.Path.Render(p.Metadata.SectionPath),
			st.Muted.Render(fmt.Sprintf("[%s, %s]", p.Metadata.ChunkType, p.Metadata.Source)),
			st.Score.Render(fmt.Sprintf("%.4f", p.Metadata.Score)))
		cmd.Println(p.Content)
	}
	return nil
}
