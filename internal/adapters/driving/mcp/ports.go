package mcp

import (
	"github.com/custodia-labs/hierag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval answers queries.
	Retrieval driving.RetrievalService

	// Documents lists and inspects indexed documents.
	Documents driving.DocumentService

	// Index indexes new source files.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	// Documents and Index are optional
	return nil
}
