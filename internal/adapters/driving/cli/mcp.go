package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hierag/internal/adapters/driving/mcp"
)

var (
	mcpPort     int
	mcpHost     string
	mcpReadOnly bool
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol server",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve hierarchical retrieval to AI assistants",
	Long: `Serve the indexed documents over the Model Context Protocol.

Tools:
  retrieve_hierarchical  summary-first or direct retrieval with context
  list_documents         indexed documents, optionally by category
  index_document         index a file (omitted with --read-only)

Resources:
  hierag://documents              all documents
  hierag://documents/{documentId} statistics and outline of one document

Without --port the server speaks JSON-RPC over stdio, which is what
assistants launching hierag as a subprocess expect:

  {
    "mcpServers": {
      "hierag": {"command": "/path/to/hierag", "args": ["mcp", "serve", "--read-only"]}
    }
  }

With --port it serves the streamable HTTP transport instead:

  hierag mcp serve --port 8080
  hierag mcp serve --host 0.0.0.0 --port 8080 --read-only`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 serves stdio)")
	mcpServeCmd.Flags().StringVar(&mcpHost, "host", "localhost", "HTTP listen host")
	mcpServeCmd.Flags().BoolVar(&mcpReadOnly, "read-only", false, "do not expose the index_document tool")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

// mcpPorts collects the services the server exposes.
func mcpPorts(readOnly bool) *mcp.Ports {
	ports := &mcp.Ports{
		Retrieval: retrievalService,
		Documents: documentService,
	}
	if !readOnly && indexService != nil {
		ports.Index = indexService
	}
	return ports
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil {
		return fmt.Errorf("mcp: %w", errNotConfigured)
	}
	if mcpPort < 0 || mcpPort > 65535 {
		return fmt.Errorf("mcp: invalid port %d", mcpPort)
	}

	server, err := mcp.NewServer(mcpPorts(mcpReadOnly), log, mcp.WithVersion(version))
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	if mcpPort == 0 {
		return server.Run(ctx)
	}

	addr := net.JoinHostPort(mcpHost, strconv.Itoa(mcpPort))
	fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://%s/\n", addr)
	return server.RunHTTP(ctx, addr)
}
