// Package mcp provides an MCP (Model Context Protocol) server adapter for hierag.
// It lets AI assistants retrieve passages with their hierarchical context
// and manage the indexed documents.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// ErrIndexingDisabled is returned by index_document when no index service is wired.
var ErrIndexingDisabled = errors.New("mcp: indexing is not available")
