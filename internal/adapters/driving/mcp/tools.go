package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/core/ports/driving"
)

// RetrieveInput is the input schema for the retrieve_hierarchical tool.
type RetrieveInput struct {
	Query      string `json:"query" jsonschema:"the question or text to find passages for"`
	TopK       int    `json:"top_k,omitempty" jsonschema:"number of passages to return (default from config)"`
	DocumentID string `json:"document_id,omitempty" jsonschema:"restrict results to one document"`
	Strategy   string `json:"strategy,omitempty" jsonschema:"retrieval strategy: summary_first or direct"`
	MaxLength  int    `json:"max_length,omitempty" jsonschema:"truncate each passage to this many characters"`
}

// RetrieveOutput is the output schema for the retrieve_hierarchical tool.
type RetrieveOutput struct {
	Passages []domain.Passage `json:"passages"`
	Count    int              `json:"count"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct {
	Category string `json:"category,omitempty" jsonschema:"only list documents in this category"`
}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput represents a single indexed document.
type DocumentOutput struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	SourceFile    string `json:"source_file"`
	Category      string `json:"category,omitempty"`
	Version       string `json:"version,omitempty"`
	EffectiveDate string `json:"effective_date,omitempty"`
	ChunkCount    int    `json:"chunk_count"`
}

// IndexInput is the input schema for the index_document tool.
type IndexInput struct {
	Path     string `json:"path" jsonschema:"path of the file to index"`
	Force    bool   `json:"force,omitempty" jsonschema:"replace the document if it is already indexed"`
	Strategy string `json:"strategy,omitempty" jsonschema:"chunking strategy: legal, markdown or flat"`
	Category string `json:"category,omitempty" jsonschema:"category stored on the document"`
}

// IndexOutput is the output schema for the index_document tool.
type IndexOutput struct {
	DocumentID        string `json:"document_id"`
	Skipped           bool   `json:"skipped"`
	Strategy          string `json:"strategy"`
	Chunks            int    `json:"chunks"`
	SummaryEmbeddings int    `json:"summary_embeddings"`
	DetailEmbeddings  int    `json:"detail_embeddings"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "retrieve_hierarchical",
		Description: "Retrieve passages relevant to a query. Each passage carries its " +
			"enclosing chapters and articles and a preview of its sub-items.",
	}, s.handleRetrieve)

	if s.ports.Documents != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_documents",
			Description: "List the indexed documents",
		}, s.handleListDocuments)
	}

	if s.ports.Index != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "index_document",
			Description: "Index a file so its content can be retrieved",
		}, s.handleIndex)
	}
}

// handleRetrieve handles the retrieve_hierarchical tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, RetrieveOutput{}, errors.New("query is required")
	}

	passages, err := s.ports.Retrieval.Retrieve(ctx, query, driving.RetrieveOptions{
		K:                input.TopK,
		DocumentID:       domain.DocumentID(input.DocumentID),
		Strategy:         input.Strategy,
		ContentMaxLength: input.MaxLength,
	})
	if err != nil {
		s.log.Warn("retrieve failed", "error", err)
		return nil, RetrieveOutput{}, err
	}
	if passages == nil {
		passages = []domain.Passage{}
	}
	s.log.Debug("retrieved", "passages", len(passages))

	return nil, RetrieveOutput{Passages: passages, Count: len(passages)}, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.ports.Documents.List(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{Documents: make([]DocumentOutput, 0, len(docs))}
	for i := range docs {
		if input.Category != "" && docs[i].Category != input.Category {
			continue
		}
		output.Documents = append(output.Documents, toDocumentOutput(&docs[i]))
	}
	output.Count = len(output.Documents)

	return nil, output, nil
}

// handleIndex handles the index_document tool invocation.
func (s *Server) handleIndex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexInput,
) (*mcp.CallToolResult, IndexOutput, error) {
	if s.ports.Index == nil {
		return nil, IndexOutput{}, ErrIndexingDisabled
	}
	if strings.TrimSpace(input.Path) == "" {
		return nil, IndexOutput{}, errors.New("path is required")
	}

	res, err := s.ports.Index.IndexDocument(ctx, input.Path, driving.IndexOptions{
		Force:    input.Force,
		Strategy: input.Strategy,
		Category: input.Category,
	})
	if err != nil {
		s.log.Warn("index failed", "path", input.Path, "error", err)
		return nil, IndexOutput{}, err
	}

	return nil, IndexOutput{
		DocumentID:        string(res.Document.ID),
		Skipped:           res.Skipped,
		Strategy:          res.Strategy,
		Chunks:            res.Document.ChunkCount,
		SummaryEmbeddings: res.SummaryEmbeddings,
		DetailEmbeddings:  res.DetailEmbeddings,
	}, nil
}

func toDocumentOutput(d *domain.Document) DocumentOutput {
	out := DocumentOutput{
		ID:         string(d.ID),
		Title:      d.Title,
		SourceFile: d.SourceFile,
		Category:   d.Category,
		Version:    d.Version,
		ChunkCount: d.ChunkCount,
	}
	if d.EffectiveDate != nil {
		out.EffectiveDate = d.EffectiveDate.Format("2006-01-02")
	}
	return out
}
