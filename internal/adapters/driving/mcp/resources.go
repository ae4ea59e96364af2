package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/hierag/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for hierag resources.
	uriScheme = "hierag://"
)

// documentResource is the JSON body of a document resource.
type documentResource struct {
	DocumentOutput
	MaxDepth          int            `json:"max_depth"`
	ChunksByType      map[string]int `json:"chunks_by_type"`
	ClosureRows       int            `json:"closure_rows"`
	SummaryEmbeddings int            `json:"summary_embeddings"`
	DetailEmbeddings  int            `json:"detail_embeddings"`
	Complete          bool           `json:"complete"`
	Outline           []string       `json:"outline"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Documents == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "List of all indexed documents",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document",
		Description: "Index statistics and structural outline of one document",
		MIMEType:    "application/json",
	}, s.handleDocumentResource)
}

// handleDocumentsResource returns every indexed document.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docs, err := s.ports.Documents.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	infos := make([]DocumentOutput, len(docs))
	for i := range docs {
		infos[i] = toDocumentOutput(&docs[i])
	}
	return jsonResource(req.Params.URI, infos)
}

// handleDocumentResource returns statistics and the outline of one document.
func (s *Server) handleDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	stats, err := s.ports.Documents.Stats(ctx, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document stats: %w", err)
	}
	chunks, err := s.ports.Documents.Chunks(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("getting document chunks: %w", err)
	}

	body := documentResource{
		DocumentOutput:    toDocumentOutput(&stats.Document),
		MaxDepth:          stats.MaxDepth,
		ChunksByType:      make(map[string]int, len(stats.ChunksByType)),
		ClosureRows:       stats.ClosureRows,
		SummaryEmbeddings: stats.SummaryEmbeddings,
		DetailEmbeddings:  stats.DetailEmbeddings,
		Complete:          stats.IsComplete(),
		Outline:           outline(chunks),
	}
	for t, n := range stats.ChunksByType {
		body.ChunksByType[t.String()] = n
	}
	return jsonResource(req.Params.URI, body)
}

// outline lists the chapter and article titles of a chunk tree, indented by depth.
func outline(chunks []domain.Chunk) []string {
	lines := make([]string, 0)
	for i := range chunks {
		c := &chunks[i]
		if c.Type != domain.ChunkTypeChapter && c.Type != domain.ChunkTypeArticle {
			continue
		}
		lines = append(lines, strings.Repeat("  ", max(c.Depth-1, 0))+domain.DisplayTitle(c))
	}
	return lines
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDocumentID extracts the document ID from a URI like hierag://documents/{documentId}.
func extractDocumentID(uri string) domain.DocumentID {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return domain.DocumentID(id)
}
